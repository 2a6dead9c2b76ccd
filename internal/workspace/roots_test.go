package workspace

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/forester-mcp/internal/logging"
	"github.com/dshills/forester-mcp/pkg/types"
)

func TestRoots_None(t *testing.T) {
	r := NewRoots(nil, nil)

	_, err := r.Root()
	assert.ErrorIs(t, err, types.ErrNoWorkspaceRoot)
}

func TestRoots_Single(t *testing.T) {
	var buf bytes.Buffer
	r := NewRoots([]string{"/forest"}, logging.New(&buf, slog.LevelDebug))

	root, err := r.Root()
	require.NoError(t, err)
	assert.Equal(t, "/forest", root)
	assert.Empty(t, buf.String())
}

func TestRoots_ManyWarnsOnce(t *testing.T) {
	var buf bytes.Buffer
	r := NewRoots([]string{"/forest", "/other"}, logging.New(&buf, slog.LevelDebug))

	for i := 0; i < 3; i++ {
		root, err := r.Root()
		require.NoError(t, err)
		assert.Equal(t, "/forest", root)
	}
	assert.Equal(t, 1, strings.Count(buf.String(), "only one workspace root"))
}

func TestRoots_AllIsACopy(t *testing.T) {
	paths := []string{"/forest"}
	r := NewRoots(paths, nil)
	paths[0] = "/mutated"

	all := r.All()
	assert.Equal(t, []string{"/forest"}, all)
	all[0] = "/mutated"
	assert.Equal(t, []string{"/forest"}, r.All())
}
