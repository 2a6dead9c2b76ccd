package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type changeLog struct {
	mu    sync.Mutex
	paths []string
}

func (c *changeLog) record(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paths = append(c.paths, path)
}

func (c *changeLog) contains(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.paths {
		if p == path {
			return true
		}
	}
	return false
}

// startWatcher runs a watcher over root until the test ends
func startWatcher(t *testing.T, root string) *changeLog {
	t.Helper()
	log := &changeLog{}
	w, err := New([]string{root}, "**/*.tree", log.record, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
	return log
}

func TestWatcher_WriteMatchingFile(t *testing.T) {
	root := t.TempDir()
	trees := filepath.Join(root, "trees")
	require.NoError(t, os.Mkdir(trees, 0o755))
	log := startWatcher(t, root)

	path := filepath.Join(trees, "jms-0001.tree")
	require.NoError(t, os.WriteFile(path, []byte(`\title{Sheaves}`), 0o644))

	assert.Eventually(t, func() bool { return log.contains(path) }, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	root := t.TempDir()
	log := startWatcher(t, root)

	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.md"), []byte("x"), 0o644))
	sentinel := filepath.Join(root, "jms-0001.tree")
	require.NoError(t, os.WriteFile(sentinel, []byte("x"), 0o644))

	require.Eventually(t, func() bool { return log.contains(sentinel) }, 2*time.Second, 10*time.Millisecond)
	assert.False(t, log.contains(filepath.Join(root, "notes.md")))
}

func TestWatcher_Remove(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "jms-0001.tree")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	log := startWatcher(t, root)

	require.NoError(t, os.Remove(path))

	assert.Eventually(t, func() bool { return log.contains(path) }, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_NewDirectory(t *testing.T) {
	root := t.TempDir()
	log := startWatcher(t, root)

	dir := filepath.Join(root, "drafts")
	require.NoError(t, os.Mkdir(dir, 0o755))

	// Files written into the new directory are reported once it is watched
	path := filepath.Join(dir, "jms-0002.tree")
	assert.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("x"), 0o644)
		return log.contains(path)
	}, 2*time.Second, 20*time.Millisecond)
}

func TestWatcher_RemoveDirectory(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "archive")
	require.NoError(t, os.Mkdir(dir, 0o755))
	log := startWatcher(t, root)

	require.NoError(t, os.Remove(dir))

	assert.Eventually(t, func() bool { return log.contains(dir) }, 2*time.Second, 10*time.Millisecond)
}

func TestNew_InvalidPattern(t *testing.T) {
	_, err := New([]string{t.TempDir()}, "[", nil, nil)
	assert.Error(t, err)
}

func TestNew_MissingRoot(t *testing.T) {
	_, err := New([]string{filepath.Join(t.TempDir(), "missing")}, "**/*.tree", nil, nil)
	assert.Error(t, err)
}

func TestWatcher_Matches(t *testing.T) {
	w := &Watcher{roots: []string{"/forest"}, pattern: "**/*.tree"}

	assert.True(t, w.matches("/forest/jms-0001.tree"))
	assert.True(t, w.matches("/forest/trees/deep/jms-0001.tree"))
	assert.False(t, w.matches("/forest/trees/jms-0001.xml"))
	assert.False(t, w.matches("/elsewhere/jms-0001.tree"))
	assert.False(t, w.matches("/forest"))
}

func TestWatcher_NewDotDirectoryIsSkipped(t *testing.T) {
	root := t.TempDir()
	w, err := New([]string{root}, "**/*.tree", nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.fsw.Close() })
	require.Equal(t, 1, w.watchedDirs())

	hidden := filepath.Join(root, ".cache")
	require.NoError(t, os.MkdirAll(filepath.Join(hidden, "objects"), 0o755))
	w.handle(fsnotify.Event{Name: hidden, Op: fsnotify.Create})
	assert.Equal(t, 1, w.watchedDirs())

	drafts := filepath.Join(root, "drafts")
	require.NoError(t, os.MkdirAll(filepath.Join(drafts, ".git"), 0o755))
	w.handle(fsnotify.Event{Name: drafts, Op: fsnotify.Create})
	assert.Equal(t, 2, w.watchedDirs(), "drafts is watched, drafts/.git is not")
}

func TestNew_DotRootIsWatched(t *testing.T) {
	root := filepath.Join(t.TempDir(), ".forest")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "trees"), 0o755))

	w, err := New([]string{root}, "**/*.tree", nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.fsw.Close() })
	assert.Equal(t, 2, w.watchedDirs())
}
