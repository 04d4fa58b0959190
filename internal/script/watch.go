package script

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce collapses the burst of events an editor save produces.
const DefaultDebounce = 100 * time.Millisecond

// Watcher reloads a script file whenever it changes on disk.
type Watcher struct {
	path     string
	debounce time.Duration
	onReload func(Library, error)
	logger   *zap.Logger
}

// NewWatcher watches path and calls onReload with the parsed library (or the
// parse error) after each settled change.
func NewWatcher(path string, debounce time.Duration, onReload func(Library, error), logger *zap.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{path: filepath.Clean(path), debounce: debounce, onReload: onReload, logger: logger}
}

// Run watches until ctx is done. The parent directory is watched rather than
// the file so renames by editors are picked up.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", w.path, err)
	}
	w.logger.Info("watching script", zap.String("path", w.path))

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", zap.Error(err))
		case e, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(e.Name) != w.path || !e.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			pending = timer.C
		case <-pending:
			pending = nil
			lib, err := LoadFile(w.path)
			if err != nil {
				w.logger.Warn("script reload failed", zap.String("path", w.path), zap.Error(err))
			} else {
				w.logger.Info("script reloaded", zap.String("path", w.path), zap.Strings("scripts", lib.Names()))
			}
			w.onReload(lib, err)
		}
	}
}
