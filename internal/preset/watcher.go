package preset

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 500 * time.Millisecond

// Watcher reloads the preset file when it changes on disk. The parent
// directory is watched rather than the file itself, since most editors
// replace files by rename.
type Watcher struct {
	store  *Store
	path   string
	logger *slog.Logger
	fsw    *fsnotify.Watcher
}

func NewWatcher(store *Store, path string, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch %q: %w", filepath.Dir(path), err)
	}

	return &Watcher{store: store, path: path, logger: logger, fsw: fsw}, nil
}

// Run processes file events until the context is cancelled. Reloads are
// debounced so editors that write in multiple steps trigger one reload.
func (w *Watcher) Run(ctx context.Context) {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			w.fsw.Close()
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
			} else {
				timer.Reset(reloadDebounce)
			}
			timerC = timer.C

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("preset watcher error", "error", err)

		case <-timerC:
			timerC = nil
			if err := w.store.LoadFile(w.path); err != nil {
				w.logger.Warn("preset reload failed, keeping previous presets", "error", err)
				continue
			}
			w.logger.Info("presets reloaded", "path", w.path, "count", len(w.store.List()))
		}
	}
}
