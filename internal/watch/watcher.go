package watch

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher delivers filesystem events under the repository root to the
// aggregator. Directory events are never reported as changes; newly created
// directories are added to the watch set instead.
type Watcher struct {
	root       string
	classifier *Classifier
	agg        *Aggregator
	logger     *slog.Logger

	fsw  *fsnotify.Watcher
	done chan struct{}

	mu   sync.Mutex
	dirs map[string]struct{} // directories currently under watch
}

// NewWatcher creates a watcher rooted at root
func NewWatcher(root string, classifier *Classifier, agg *Aggregator, logger *slog.Logger) *Watcher {
	return &Watcher{
		root:       root,
		classifier: classifier,
		agg:        agg,
		logger:     logger,
	}
}

// Start registers the directory tree and starts the event goroutine
func (w *Watcher) Start() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create filesystem watcher: %w", err)
	}
	w.fsw = fsw
	w.done = make(chan struct{})
	w.dirs = make(map[string]struct{})

	if err := w.addTree(w.root); err != nil {
		_ = fsw.Close()
		return err
	}

	go w.run()
	return nil
}

// Stop stops the event goroutine and releases the watch descriptors
func (w *Watcher) Stop() {
	if w.fsw == nil {
		return
	}
	close(w.done)
	_ = w.fsw.Close()
}

func (w *Watcher) run() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("filesystem watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	switch {
	case event.Op&fsnotify.Create != 0:
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			// New directory: watch it, but never report it as a change.
			w.maybeWatchDir(event.Name)
			return
		}
		w.agg.Notify(event.Name, KindCreated)

	case event.Op&fsnotify.Write != 0:
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			return
		}
		w.agg.Notify(event.Name, KindModified)

	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		// The path is already gone, so stat cannot tell files from
		// directories; the watched-dir set can.
		if w.forgetDir(event.Name) {
			return
		}
		w.agg.Notify(event.Name, KindDeleted)
	}
}

// maybeWatchDir adds a single directory to the watch set unless ignored
func (w *Watcher) maybeWatchDir(path string) {
	if w.classifier.Ignore(path) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.dirs[path]; ok {
		return
	}
	if err := w.fsw.Add(path); err != nil {
		w.logger.Warn("failed to watch directory", "path", path, "error", err)
		return
	}
	w.dirs[path] = struct{}{}
}

// forgetDir drops a path from the watched-dir set, reporting whether it
// was a watched directory
func (w *Watcher) forgetDir(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.dirs[path]; !ok {
		return false
	}
	delete(w.dirs, path)
	return true
}

// addTree registers root and every non-ignored directory below it
func (w *Watcher) addTree(root string) error {
	if err := w.fsw.Add(root); err != nil {
		return fmt.Errorf("failed to watch %s: %w", root, err)
	}
	w.dirs[root] = struct{}{}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() || path == root {
			return nil
		}
		if w.classifier.Ignore(path) {
			return filepath.SkipDir
		}
		w.maybeWatchDir(path)
		return nil
	})
}
