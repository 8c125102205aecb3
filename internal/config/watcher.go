package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const DefaultReloadDebounce = 200 * time.Millisecond

// Watcher reloads the configuration when the file or one of its includes
// changes on disk. Directories are watched rather than files so that
// editors replacing the file by rename are seen.
type Watcher struct {
	path     string
	debounce time.Duration
	logger   *slog.Logger
	fsw      *fsnotify.Watcher

	files map[string]struct{}
	dirs  map[string]struct{}
}

func NewWatcher(path string, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if debounce <= 0 {
		debounce = DefaultReloadDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	w := &Watcher{
		path:     path,
		debounce: debounce,
		logger:   logger,
		fsw:      fsw,
		files:    make(map[string]struct{}),
		dirs:     make(map[string]struct{}),
	}
	files := []string{path}
	if res, err := LoadFromPath(path); err == nil {
		files = append(files, res.Files...)
	}
	if err := w.track(files); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) track(files []string) error {
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			continue
		}
		w.files[abs] = struct{}{}
		dir := filepath.Dir(abs)
		if _, ok := w.dirs[dir]; ok {
			continue
		}
		if err := w.fsw.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		w.dirs[dir] = struct{}{}
	}
	return nil
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
		return false
	}
	abs, err := filepath.Abs(ev.Name)
	if err != nil {
		return false
	}
	_, ok := w.files[abs]
	return ok
}

// Run calls onChange with every configuration that loads and validates,
// until ctx is done. A broken file is logged and leaves the previous
// configuration in effect.
func (w *Watcher) Run(ctx context.Context, onChange func(*Config)) error {
	defer w.fsw.Close()

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("config watcher error", "error", err)
		case <-fire:
			fire = nil
			res, err := LoadFromPath(w.path)
			if err != nil {
				w.logger.Warn("config reload failed", "path", w.path, "error", err)
				continue
			}
			if err := w.track(res.Files); err != nil {
				w.logger.Warn("config watcher", "error", err)
			}
			w.logger.Info("config reloaded", "path", w.path, "files", len(res.Files))
			onChange(res.Config)
		}
	}
}
