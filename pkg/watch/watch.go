// Package watch re-runs a callback whenever a watched file changes
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vulndash/vulndash/pkg/logger"
)

// Options configures the watcher behavior
type Options struct {
	Delay      time.Duration // Debounce delay
	InitialRun bool          // Run the callback on startup
}

// DefaultOptions returns default watch options
func DefaultOptions() Options {
	return Options{
		Delay:      300 * time.Millisecond,
		InitialRun: false,
	}
}

// Watcher monitors one file and calls OnChange after it settles
type Watcher struct {
	opts     Options
	path     string
	onChange func(path string) error
	watcher  *fsnotify.Watcher
	mu       sync.Mutex
	runs     int
}

// New creates a watcher for path. The parent directory is watched so the
// file survives editors that replace it on save.
func New(path string, opts Options, onChange func(path string) error) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	if opts.Delay <= 0 {
		opts.Delay = DefaultOptions().Delay
	}
	return &Watcher{opts: opts, path: abs, onChange: onChange, watcher: watcher}, nil
}

// Start blocks, running the callback after each burst of changes, until ctx
// is done or the watcher is closed.
func (w *Watcher) Start(ctx context.Context) error {
	if w.opts.InitialRun {
		w.run()
	}

	// Event loop
	debounce := time.NewTimer(w.opts.Delay)
	debounce.Stop()
	changed := false

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}

			// Only care about write/create/rename events
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				changed = true
				debounce.Reset(w.opts.Delay)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watching %s: %v", w.path, err)

		case <-debounce.C:
			if changed {
				changed = false
				w.run()
			}
		}
	}
}

func (w *Watcher) run() {
	w.mu.Lock()
	w.runs++
	w.mu.Unlock()

	logger.Info("reloading %s", filepath.Base(w.path))
	if err := w.onChange(w.path); err != nil {
		logger.Error("reloading %s: %v", w.path, err)
	}
}

// Runs returns how many times the callback ran
func (w *Watcher) Runs() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.runs
}

// Close stops the watcher
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
