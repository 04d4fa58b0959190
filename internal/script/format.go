package script

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
	"gopkg.in/yaml.v3"
)

// Library is a set of scripts by name.
type Library map[string]*Script

// Names returns the script names in sorted order.
func (l Library) Names() []string {
	names := make([]string, 0, len(l))
	for n := range l {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Merge copies every script of other into l, replacing same-named ones.
func (l Library) Merge(other Library) {
	for n, s := range other {
		l[n] = s
	}
}

// ParseJSON decodes a JSON document holding either one script, which is named
// name, or an object of named scripts. A document whose entries are neither
// recognizable steps nor scripts is read as one script when every key carries
// a step ordinal, so steps with unknown commands are still played and skipped.
func ParseJSON(name string, data []byte) (Library, error) {
	top, err := objectFields(data)
	if err != nil {
		return nil, fmt.Errorf("parse script json: %w", err)
	}

	if isSingleScript(top) {
		return Library{name: parseScriptFields(name, top)}, nil
	}

	lib := make(Library, len(top))
	for _, f := range top {
		if !isObject(f.raw) {
			return nil, fmt.Errorf("parse script json: script %q is not an object", f.key)
		}
		steps, err := objectFields(f.raw)
		if err != nil {
			return nil, fmt.Errorf("parse script json: script %q: %w", f.key, err)
		}
		lib[f.key] = parseScriptFields(f.key, steps)
	}
	return lib, nil
}

func isSingleScript(top []field) bool {
	for _, f := range top {
		if inner, ok := fieldsOf(f.raw); ok && looksLikeStep(inner) {
			return true
		}
	}
	for _, f := range top {
		inner, ok := fieldsOf(f.raw)
		if !ok {
			continue
		}
		for _, step := range inner {
			if fields, ok := fieldsOf(step.raw); ok && looksLikeStep(fields) {
				return false
			}
		}
	}
	if len(top) == 0 {
		return false
	}
	for _, f := range top {
		if _, ok := keyOrdinal(f.key); !ok {
			return false
		}
	}
	return true
}

// fieldsOf returns the fields of raw when it is a JSON object.
func fieldsOf(raw json.RawMessage) ([]field, bool) {
	if !isObject(raw) {
		return nil, false
	}
	fields, err := objectFields(raw)
	return fields, err == nil
}

// ParseYAML decodes the YAML rendition of a JSON script document. Mapping
// order is preserved so step commands resolve the same way.
func ParseYAML(name string, data []byte) (Library, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse script yaml: %w", err)
	}
	var buf bytes.Buffer
	if err := yamlToJSON(&buf, &doc); err != nil {
		return nil, fmt.Errorf("parse script yaml: %w", err)
	}
	return ParseJSON(name, buf.Bytes())
}

func yamlToJSON(buf *bytes.Buffer, n *yaml.Node) error {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			buf.WriteString("null")
			return nil
		}
		return yamlToJSON(buf, n.Content[0])
	case yaml.AliasNode:
		return yamlToJSON(buf, n.Alias)
	case yaml.MappingNode:
		buf.WriteByte('{')
		for i := 0; i+1 < len(n.Content); i += 2 {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(n.Content[i].Value)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := yamlToJSON(buf, n.Content[i+1]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case yaml.SequenceNode:
		buf.WriteByte('[')
		for i, c := range n.Content {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := yamlToJSON(buf, c); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		var v any
		if err := n.Decode(&v); err != nil {
			return err
		}
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		buf.Write(b)
	}
	return nil
}

type hclFile struct {
	Scripts []*hclScript `hcl:"script,block"`
	Steps   []*hclStep   `hcl:"step,block"`
}

type hclScript struct {
	Name  string     `hcl:"name,label"`
	Steps []*hclStep `hcl:"step,block"`
}

type hclStep struct {
	Key     string    `hcl:"key,label"`
	Command string    `hcl:"command,optional"`
	Message string    `hcl:"message,optional"`
	Params  cty.Value `hcl:"params,optional"`
}

// ParseHCL decodes scripts written as HCL blocks:
//
//	script "demo" {
//	  step "1" {
//	    command = "add_circular_rings"
//	    params  = { ringSizes = [3, 5] }
//	    message = "Two rings"
//	  }
//	}
//
// Top-level step blocks form a single script named name.
func ParseHCL(name string, filename string, data []byte) (Library, error) {
	f, diags := hclparse.NewParser().ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse script hcl %s: %w", filename, diags)
	}
	var parsed hclFile
	if diags := gohcl.DecodeBody(f.Body, nil, &parsed); diags.HasErrors() {
		return nil, fmt.Errorf("decode script hcl %s: %w", filename, diags)
	}

	lib := make(Library)
	if len(parsed.Steps) > 0 {
		s, err := hclSteps(name, parsed.Steps)
		if err != nil {
			return nil, err
		}
		lib[name] = s
	}
	for _, sc := range parsed.Scripts {
		s, err := hclSteps(sc.Name, sc.Steps)
		if err != nil {
			return nil, err
		}
		lib[sc.Name] = s
	}
	return lib, nil
}

func hclSteps(name string, blocks []*hclStep) (*Script, error) {
	steps := make([]Step, 0, len(blocks))
	for _, b := range blocks {
		st := Step{Key: b.Key, Command: Command(b.Command), Message: b.Message}
		if !b.Params.IsNull() {
			raw, err := ctyjson.Marshal(b.Params, b.Params.Type())
			if err != nil {
				return nil, fmt.Errorf("script %q step %q: params: %w", name, b.Key, err)
			}
			st.Params = raw
		}
		if st.Command == "" && st.Message != "" {
			st.Command = CmdMessageOnly
		}
		steps = append(steps, st)
	}
	return NewScript(name, steps), nil
}

// Parse decodes data in the format implied by filename's extension (.json,
// .yaml/.yml, .hcl). A single-script document is named name.
func Parse(name, filename string, data []byte) (Library, error) {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".json":
		return ParseJSON(name, data)
	case ".yaml", ".yml":
		return ParseYAML(name, data)
	case ".hcl":
		return ParseHCL(name, filename, data)
	default:
		return nil, fmt.Errorf("parse script %s: unsupported extension %q", filename, ext)
	}
}

// LoadFile reads a script library from path. A single-script file is named
// after the file without its extension.
func LoadFile(path string) (Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	base := filepath.Base(path)
	return Parse(strings.TrimSuffix(base, filepath.Ext(base)), path, data)
}

// LoadDir merges every script file directly inside dir.
func LoadDir(dir string) (Library, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	lib := make(Library)
	for _, e := range entries {
		if e.IsDir() || !Supported(e.Name()) {
			continue
		}
		l, err := LoadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		lib.Merge(l)
	}
	return lib, nil
}

// Supported reports whether path has a script file extension.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml", ".hcl":
		return true
	}
	return false
}
