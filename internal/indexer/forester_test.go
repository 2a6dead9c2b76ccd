package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fakeForester = `#!/bin/sh
dir=$(dirname "$0")
printf '%s\n' "$@" > "$dir/args.txt"
pwd > "$dir/cwd.txt"
case "$1" in
query) cat "$dir/out.json" ;;
new) echo "$PWD/trees/jms-0042.tree" ;;
fail) echo "unbound tree jms-9999" >&2; exit 3 ;;
hang) exec sleep 30 ;;
esac
`

const queryOutput = `{
  "jms-0001": {
    "title": "Sheaves on a site",
    "taxon": "Definition",
    "tags": ["topos"],
    "route": "jms-0001.xml",
    "metas": {"author": "jms"},
    "sourcePath": "/forest/trees/jms-0001.tree"
  },
  "jms-0002": {
    "title": null,
    "taxon": null,
    "tags": [],
    "route": "",
    "metas": {},
    "sourcePath": "trees/jms-0002.tree"
  }
}`

// setupForester installs the fake forester script and returns its directory
func setupForester(t *testing.T) (string, *Forester) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake forester is a shell script")
	}

	binDir := t.TempDir()
	script := filepath.Join(binDir, "forester")
	require.NoError(t, os.WriteFile(script, []byte(fakeForester), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(binDir, "out.json"), []byte(queryOutput), 0o644))

	f := New(Config{
		ForesterPath: script,
		WaitDelay:    200 * time.Millisecond,
	}, nil)
	return binDir, f
}

func readArgs(t *testing.T, binDir string) []string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(binDir, "args.txt"))
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func TestForester_Query(t *testing.T) {
	binDir, f := setupForester(t)
	root := t.TempDir()

	rs, err := f.Query(context.Background(), root)
	require.NoError(t, err)
	require.Equal(t, 2, rs.Len())

	e, ok := rs.Get("jms-0001")
	require.True(t, ok)
	assert.Equal(t, "Sheaves on a site", e.TitleOr(""))
	assert.Equal(t, "Definition", e.TaxonOr(""))
	assert.Equal(t, []string{"topos"}, e.Tags)
	assert.Equal(t, map[string]string{"author": "jms"}, e.Metas)
	assert.Equal(t, "/forest/trees/jms-0001.tree", e.SourcePath)

	e, ok = rs.Get("jms-0002")
	require.True(t, ok)
	assert.False(t, e.HasTitle())
	assert.Equal(t, filepath.Join(root, "trees", "jms-0002.tree"), e.SourcePath)

	assert.Equal(t, []string{"query", "all", filepath.Join(root, "forest.toml")}, readArgs(t, binDir))

	cwd, err := os.ReadFile(filepath.Join(binDir, "cwd.txt"))
	require.NoError(t, err)
	wantRoot, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)
	gotRoot, err := filepath.EvalSymlinks(strings.TrimSpace(string(cwd)))
	require.NoError(t, err)
	assert.Equal(t, wantRoot, gotRoot)
}

func TestForester_QueryFailure(t *testing.T) {
	binDir, _ := setupForester(t)
	require.NoError(t, os.WriteFile(filepath.Join(binDir, "out.json"), []byte("not json"), 0o644))
	f := New(Config{ForesterPath: filepath.Join(binDir, "forester")}, nil)

	_, err := f.Query(context.Background(), t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode query output")
}

func TestForester_MissingBinary(t *testing.T) {
	f := New(Config{ForesterPath: filepath.Join(t.TempDir(), "no-such-forester")}, nil)

	_, err := f.Query(context.Background(), t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "forester query")
}

func TestForester_CommandStderr(t *testing.T) {
	_, f := setupForester(t)

	_, err := f.Command(context.Background(), t.TempDir(), []string{"fail"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unbound tree jms-9999")

	var exitErr interface{ ExitCode() int }
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 3, exitErr.ExitCode())
}

func TestForester_Command(t *testing.T) {
	binDir, f := setupForester(t)
	root := t.TempDir()

	out, err := f.Command(context.Background(), root, []string{"new", "--prefix", "jms"})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(out), "trees/jms-0042.tree"))
	assert.Equal(t, []string{"new", "--prefix", "jms", filepath.Join(root, "forest.toml")}, readArgs(t, binDir))
}

func TestForester_CommandInProgress(t *testing.T) {
	_, f := setupForester(t)

	require.True(t, f.lock.TryAcquire())
	_, err := f.Command(context.Background(), t.TempDir(), []string{"new"})
	assert.ErrorIs(t, err, ErrCommandInProgress)

	f.lock.Release()
	_, err = f.Command(context.Background(), t.TempDir(), []string{"new"})
	assert.NoError(t, err)
}

func TestForester_QueryCancellation(t *testing.T) {
	binDir, _ := setupForester(t)
	script := "#!/bin/sh\nexec sleep 30\n"
	hang := filepath.Join(binDir, "forester-hang")
	require.NoError(t, os.WriteFile(hang, []byte(script), 0o755))
	f := New(Config{ForesterPath: hang, WaitDelay: 200 * time.Millisecond}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	start := time.Now()
	_, err := f.Query(ctx, t.TempDir())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestForester_AbsoluteConfigFile(t *testing.T) {
	binDir, _ := setupForester(t)
	f := New(Config{
		ForesterPath: filepath.Join(binDir, "forester"),
		ConfigFile:   "/etc/forest.toml",
	}, nil)

	_, err := f.Query(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "/etc/forest.toml", readArgs(t, binDir)[2])
}

func TestCommandLock(t *testing.T) {
	var l CommandLock
	assert.True(t, l.TryAcquire())
	assert.False(t, l.TryAcquire())
	l.Release()
	assert.True(t, l.TryAcquire())
}
