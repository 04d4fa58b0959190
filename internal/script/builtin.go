package script

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"
)

// builtinFS holds the scripts shipped with the binary, one per file.
//
//go:embed scripts/*
var builtinFS embed.FS

var builtin = sync.OnceValue(func() Library {
	lib, err := loadFS(builtinFS, "scripts")
	if err != nil {
		panic(fmt.Sprintf("script: embedded library: %v", err))
	}
	return lib
})

// Builtin returns the embedded library: simple, ring_demo, design_cuj and
// feedback_demo. The returned map is a fresh copy.
func Builtin() Library {
	out := make(Library)
	out.Merge(builtin())
	return out
}

func loadFS(fsys fs.FS, dir string) (Library, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}
	lib := make(Library)
	for _, e := range entries {
		if e.IsDir() || !Supported(e.Name()) {
			continue
		}
		p := path.Join(dir, e.Name())
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, err
		}
		name := strings.TrimSuffix(e.Name(), path.Ext(e.Name()))
		l, err := Parse(name, p, data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		lib.Merge(l)
	}
	return lib, nil
}
