package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dshills/forester-mcp/internal/logging"
	"github.com/dshills/forester-mcp/pkg/types"
)

// Indexer produces a fresh result set for a workspace root.
// It must return promptly once ctx is cancelled.
type Indexer interface {
	Query(ctx context.Context, root string) (*types.ResultSet, error)
}

// RootResolver resolves the workspace root for a request
type RootResolver interface {
	Root() (string, error)
}

// Observer is notified after each rebuild has settled and the indexer has
// returned. It is never called on a request's path.
type Observer interface {
	RebuildSettled(r *Rebuild)
}

// Option configures a Coordinator
type Option func(*Coordinator)

// WithLogger sets the coordinator's logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// WithObserver registers an observer for settled rebuilds
func WithObserver(o Observer) Option {
	return func(c *Coordinator) {
		c.observer = o
	}
}

// Coordinator decides, for each request, whether to reuse the cached result
// set, join the in-flight rebuild, or start a new one.
type Coordinator struct {
	state    *State
	bridge   *Bridge
	indexer  Indexer
	roots    RootResolver
	logger   *slog.Logger
	observer Observer

	running sync.WaitGroup // rebuild goroutines, observer included
}

// NewCoordinator creates a coordinator over state
func NewCoordinator(state *State, indexer Indexer, roots RootResolver, opts ...Option) *Coordinator {
	c := &Coordinator{
		state:   state,
		indexer: indexer,
		roots:   roots,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.OrDiscard(c.logger)
	c.bridge = NewBridge(state, c.logger)
	return c
}

// GetCurrent returns the current result set for one request.
//
// Requests that arrive while the cache is fresh share the most recent
// rebuild, running or finished. A failed rebuild keeps failing every caller
// until the cache is invalidated again. If ctx is cancelled first the
// request gets the empty result set and the cache is marked stale.
func (c *Coordinator) GetCurrent(ctx context.Context) (*types.ResultSet, error) {
	r, err := c.acquire()
	if err != nil {
		return nil, err
	}
	return c.bridge.Await(ctx, r)
}

// Warm starts a rebuild if the cache is stale without waiting for it
func (c *Coordinator) Warm() error {
	_, err := c.acquire()
	return err
}

// State returns the cache state the coordinator operates on
func (c *Coordinator) State() *State {
	return c.state
}

// Close aborts the in-flight rebuild, if any, and marks the cache stale.
// It returns once every rebuild goroutine has exited and the observer has
// seen its rebuild.
func (c *Coordinator) Close() {
	c.state.mu.Lock()
	c.state.stale = true
	if c.state.pending != nil {
		c.state.pending.abortNow()
	}
	c.state.mu.Unlock()

	c.running.Wait()
}

// acquire returns the rebuild the caller should wait on, starting one when
// the cache is stale. The whole decision runs under the state lock.
func (c *Coordinator) acquire() (*Rebuild, error) {
	// Resolve before consuming stale so a missing root leaves it set
	root, err := c.roots.Root()
	if err != nil {
		return nil, err
	}

	s := c.state
	s.mu.Lock()
	defer s.mu.Unlock()

	stale := s.stale
	s.stale = false
	if !stale && s.pending != nil {
		return s.pending, nil
	}

	if s.pending != nil {
		s.pending.abortNow()
	}

	s.generation++
	ctx, abort := context.WithCancel(context.Background())
	r := newRebuild(s.generation, root, abort)
	s.pending = r

	c.logger.Debug("starting index rebuild", "generation", r.Generation, "root", root)
	c.running.Add(1)
	go c.run(ctx, r)
	return r, nil
}

// run drives the indexer for r and settles it
func (c *Coordinator) run(ctx context.Context, r *Rebuild) {
	defer c.running.Done()

	rs, err := c.indexer.Query(ctx, r.Root)
	if err != nil {
		if r.settle(nil, &types.RebuildError{Generation: r.Generation, Err: err}, OutcomeFailed) {
			c.logger.Warn("index rebuild failed",
				"generation", r.Generation,
				"root", r.Root,
				"error", err)
		}
	} else {
		if rs == nil {
			rs = types.EmptyResultSet()
		}
		if r.settle(rs, nil, OutcomeReady) {
			c.logger.Info("index rebuilt",
				"generation", r.Generation,
				"entries", rs.Len(),
				"duration", time.Since(r.StartedAt).Round(time.Millisecond))
		}
	}

	// Release the abort context once the indexer is done with it
	r.abort()

	if r.outcome == OutcomeAborted {
		c.logger.Debug("index rebuild aborted", "generation", r.Generation)
	}
	if c.observer != nil {
		c.observer.RebuildSettled(r)
	}
}
