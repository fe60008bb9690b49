// Package watch re-runs an action when template files under a directory
// change. Bursts of events are coalesced into one run.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/panbanda/clasp/internal/scanner"
	"github.com/panbanda/clasp/pkg/config"
)

// DefaultDebounce is the quiet period used when none is given.
const DefaultDebounce = 500 * time.Millisecond

// Watcher monitors files for changes and triggers analysis.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	scanner   *scanner.Scanner
	debounce  time.Duration
	path      string
	callback  func(changed []string)

	mu      sync.Mutex
	pending map[string]struct{}
	last    time.Time
}

// NewWatcher creates a watcher for the tree at path. Files are filtered with
// the scan globs of cfg.
func NewWatcher(path string, cfg *config.Config, debounce time.Duration) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	return &Watcher{
		fsWatcher: fsWatcher,
		scanner:   scanner.NewScanner(cfg),
		debounce:  debounce,
		path:      path,
		pending:   make(map[string]struct{}),
	}, nil
}

// SetCallback sets the function called with the sorted changed paths once
// events have been quiet for the debounce period. Calls never overlap.
func (w *Watcher) SetCallback(cb func(changed []string)) {
	w.callback = cb
}

// Start adds every directory below the root and processes events until ctx
// is done.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addTree(w.path); err != nil {
		return err
	}
	slog.Debug("watching", "path", w.path, "dirs", len(w.fsWatcher.WatchList()))

	ticker := time.NewTicker(w.tick())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watch error", "error", err)

		case <-ticker.C:
			w.flush()
		}
	}
}

func (w *Watcher) tick() time.Duration {
	return max(min(w.debounce/5, 100*time.Millisecond), time.Millisecond)
}

// addTree registers root and every directory below it that a scan would
// descend into.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.scanner.SkipsDir(w.rel(path)) {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
}

func (w *Watcher) rel(path string) string {
	rel, err := filepath.Rel(w.path, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// handleEvent records a relevant change. New directories are watched too.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !w.scanner.SkipsDir(w.rel(event.Name)) {
				if err := w.addTree(event.Name); err != nil {
					slog.Debug("watch add failed", "path", event.Name, "error", err)
				}
			}
			return
		}
	}

	if !w.scanner.Match(w.rel(event.Name)) {
		return
	}

	w.mu.Lock()
	w.pending[event.Name] = struct{}{}
	w.last = time.Now()
	w.mu.Unlock()
}

// flush hands the pending batch to the callback once the debounce period
// has passed without new events.
func (w *Watcher) flush() {
	w.mu.Lock()
	if len(w.pending) == 0 || time.Since(w.last) < w.debounce {
		w.mu.Unlock()
		return
	}
	changed := make([]string, 0, len(w.pending))
	for p := range w.pending {
		changed = append(changed, p)
	}
	clear(w.pending)
	w.mu.Unlock()

	slices.Sort(changed)
	if w.callback == nil {
		return
	}
	w.callback(changed)
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	return w.fsWatcher.Close()
}

// WatchedDirs returns the directories currently watched.
func (w *Watcher) WatchedDirs() []string {
	return w.fsWatcher.WatchList()
}
