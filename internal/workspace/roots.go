// Package workspace resolves the single workspace root requests operate on.
package workspace

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/dshills/forester-mcp/internal/logging"
	"github.com/dshills/forester-mcp/pkg/types"
)

// Roots holds the open workspace roots. Exactly one is supported: with none
// every request fails, with several the first is used and a warning logged.
type Roots struct {
	paths    []string
	logger   *slog.Logger
	warnOnce sync.Once
}

// NewRoots creates a resolver over paths
func NewRoots(paths []string, logger *slog.Logger) *Roots {
	return &Roots{
		paths:  slices.Clone(paths),
		logger: logging.OrDiscard(logger),
	}
}

// Root returns the workspace root
func (r *Roots) Root() (string, error) {
	if len(r.paths) == 0 {
		return "", types.ErrNoWorkspaceRoot
	}
	if len(r.paths) > 1 {
		r.warnOnce.Do(func() {
			r.logger.Warn("only one workspace root is supported, using the first",
				"root", r.paths[0],
				"ignored", r.paths[1:])
		})
	}
	return r.paths[0], nil
}

// All returns every configured root
func (r *Roots) All() []string {
	return slices.Clone(r.paths)
}
