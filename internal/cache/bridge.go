package cache

import (
	"context"
	"log/slog"

	"github.com/dshills/forester-mcp/internal/logging"
	"github.com/dshills/forester-mcp/pkg/types"
)

// Bridge races a request's cancellation against the shared rebuild.
//
// A cancelled request gets the empty result set immediately. As a side
// effect the cache is marked stale and the current rebuild is aborted, so
// the next access from any caller starts a fresh rebuild.
type Bridge struct {
	state  *State
	logger *slog.Logger
}

// NewBridge creates a bridge over state
func NewBridge(state *State, logger *slog.Logger) *Bridge {
	return &Bridge{
		state:  state,
		logger: logging.OrDiscard(logger),
	}
}

// Await waits for r on behalf of one request.
//
// Nothing is registered outside the select, so no cancellation handler
// survives the call on any exit path.
func (b *Bridge) Await(ctx context.Context, r *Rebuild) (*types.ResultSet, error) {
	// A settled rebuild wins over an already-cancelled request
	select {
	case <-r.Done():
		return r.Result()
	default:
	}

	select {
	case <-r.Done():
		return r.Result()
	case <-ctx.Done():
		b.cancelled(ctx, r)
		return types.EmptyResultSet(), nil
	}
}

// cancelled marks the cache stale and aborts whatever rebuild is current,
// which may be newer than the one the request was waiting on.
func (b *Bridge) cancelled(ctx context.Context, r *Rebuild) {
	b.state.mu.Lock()
	b.state.stale = true
	current := b.state.pending
	aborted := current != nil && current.abortNow()
	b.state.mu.Unlock()

	b.logger.DebugContext(ctx, "request cancelled, cache marked stale",
		"waited_generation", r.Generation,
		"aborted", aborted)
}
