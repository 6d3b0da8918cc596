package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/fsbadge/fsbadge/badge"
	"github.com/fsbadge/fsbadge/logging"
)

// Handler receives filesystem changes as absolute paths.
type Handler interface {
	FileCreated(path string)
	FileChanged(path string)
	FileDeleted(path string)
}

// Watcher monitors a workspace root recursively and forwards events to a
// Handler. Debouncing is left to the handler.
type Watcher struct {
	root    string
	exclude badge.Excluder
	handler Handler
	watcher *fsnotify.Watcher
}

// New creates a watcher for root. Directories matched by exclude are not
// watched.
func New(root string, exclude badge.Excluder, handler Handler) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	return &Watcher{
		root:    root,
		exclude: exclude,
		handler: handler,
		watcher: w,
	}, nil
}

// Start adds the watches and forwards events. Blocks until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	l := logging.Sub("watch")

	if err := w.addRecursive(w.root); err != nil {
		return fmt.Errorf("watch %s: %w", w.root, err)
	}
	l.Info("watching", "root", w.root, "dirs", len(w.watcher.WatchList()))

	for {
		select {
		case <-ctx.Done():
			w.watcher.Close()
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.dispatch(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			l.Warn("watcher error", "err", err)
		}
	}
}

func (w *Watcher) dispatch(event fsnotify.Event) {
	l := logging.Sub("watch")
	l.Debug("event", "path", event.Name, "op", event.Op.String())

	switch {
	case event.Has(fsnotify.Create):
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(event.Name); err != nil {
				l.Warn("watch new directory failed", "path", event.Name, "err", err)
			}
		}
		w.handler.FileCreated(event.Name)
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		// The new name of a rename arrives as its own Create.
		w.handler.FileDeleted(event.Name)
	case event.Has(fsnotify.Write):
		w.handler.FileChanged(event.Name)
	}
}

// addRecursive adds a directory and all non-excluded subdirectories.
func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil // skip inaccessible dirs
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.exclude != nil && w.exclude.Excluded(path) {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
}

// Close closes the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
