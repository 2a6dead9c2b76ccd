package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/dshills/forester-mcp/internal/logging"
)

// Watcher reports changes to corpus documents under a set of roots.
// Directories are watched recursively; new directories are picked up as
// they appear.
type Watcher struct {
	fsw      *fsnotify.Watcher
	roots    []string
	pattern  string
	onChange func(path string)
	logger   *slog.Logger

	mu   sync.Mutex
	dirs map[string]struct{}
}

// New creates a watcher and installs watches for every directory below roots.
// onChange is called from the watcher goroutine for each matching event.
func New(roots []string, pattern string, onChange func(path string), logger *slog.Logger) (*Watcher, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid watch pattern %q", pattern)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &Watcher{
		fsw:      fsw,
		roots:    roots,
		pattern:  pattern,
		onChange: onChange,
		logger:   logging.OrDiscard(logger),
		dirs:     make(map[string]struct{}),
	}

	for _, root := range roots {
		if _, err := w.addTree(root, true); err != nil {
			_ = fsw.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", root, err)
		}
	}

	w.logger.Debug("watcher started", "roots", roots, "directories", w.watchedDirs())
	return w, nil
}

// Run processes events until ctx is cancelled, then releases the watches
func (w *Watcher) Run(ctx context.Context) error {
	defer func() {
		if err := w.fsw.Close(); err != nil {
			w.logger.Warn("failed to close watcher", "error", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	path := event.Name

	switch {
	case event.Has(fsnotify.Create):
		// A new directory may already hold documents by the time it is watched
		found, err := w.addTree(path, false)
		if err != nil {
			w.logger.Debug("failed to watch new path", "path", path, "error", err)
		}
		if found || w.matches(path) {
			w.notify(path)
		}

	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		if w.forgetDir(path) || w.matches(path) {
			w.notify(path)
		}

	case event.Has(fsnotify.Write):
		if w.matches(path) {
			w.notify(path)
		}
	}
}

func (w *Watcher) notify(path string) {
	w.logger.Debug("corpus changed", "path", path)
	if w.onChange != nil {
		w.onChange(path)
	}
}

// addTree watches path and every directory below it, skipping dot
// directories other than a root. It reports whether a matching document was
// seen along the way. A non-directory path is ignored.
func (w *Watcher) addTree(path string, root bool) (bool, error) {
	found := false
	err := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == path {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			if w.matches(p) {
				found = true
			}
			return nil
		}
		if (p != path || !root) && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(p); err != nil {
			w.logger.Warn("failed to watch directory", "path", p, "error", err)
			return nil
		}
		w.mu.Lock()
		w.dirs[p] = struct{}{}
		w.mu.Unlock()
		return nil
	})
	return found, err
}

// forgetDir drops a removed directory and its descendants, reporting whether
// path was a watched directory
func (w *Watcher) forgetDir(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	_, ok := w.dirs[path]
	if !ok {
		return false
	}
	prefix := path + string(filepath.Separator)
	for dir := range w.dirs {
		if dir == path || strings.HasPrefix(dir, prefix) {
			delete(w.dirs, dir)
		}
	}
	return true
}

// matches reports whether path, relative to its root, matches the pattern
func (w *Watcher) matches(path string) bool {
	for _, root := range w.roots {
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
			continue
		}
		if ok, _ := doublestar.Match(w.pattern, filepath.ToSlash(rel)); ok {
			return true
		}
	}
	return false
}

func (w *Watcher) watchedDirs() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.dirs)
}
