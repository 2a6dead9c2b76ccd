package cache

import (
	"context"
	"sync"
	"time"

	"github.com/dshills/forester-mcp/pkg/types"
)

// Outcome describes how a rebuild settled
type Outcome string

const (
	OutcomeReady   Outcome = "ready"   // Indexer produced a result set
	OutcomeFailed  Outcome = "failed"  // Indexer returned an error
	OutcomeAborted Outcome = "aborted" // Superseded or cancelled before the indexer returned
)

// Rebuild is one run of the external indexer, shared by every caller that
// joins it. It settles exactly once; later results are discarded.
type Rebuild struct {
	Generation uint64
	Root       string
	StartedAt  time.Time

	abort context.CancelFunc
	done  chan struct{}
	once  sync.Once

	// Written once before done is closed
	result     *types.ResultSet
	err        error
	outcome    Outcome
	finishedAt time.Time
}

func newRebuild(generation uint64, root string, abort context.CancelFunc) *Rebuild {
	return &Rebuild{
		Generation: generation,
		Root:       root,
		StartedAt:  time.Now(),
		abort:      abort,
		done:       make(chan struct{}),
	}
}

// Done is closed once the rebuild has settled
func (r *Rebuild) Done() <-chan struct{} {
	return r.done
}

// Settled reports whether the rebuild has settled
func (r *Rebuild) Settled() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// Result returns the settled result. It must only be called after Done is closed.
func (r *Rebuild) Result() (*types.ResultSet, error) {
	return r.result, r.err
}

// Outcome returns how the rebuild settled, or "" while it is running
func (r *Rebuild) Outcome() Outcome {
	if !r.Settled() {
		return ""
	}
	return r.outcome
}

// FinishedAt returns when the rebuild settled, or the zero time while it is running
func (r *Rebuild) FinishedAt() time.Time {
	if !r.Settled() {
		return time.Time{}
	}
	return r.finishedAt
}

// settle records the result if the rebuild has not settled yet.
// Returns true if this call settled it.
func (r *Rebuild) settle(rs *types.ResultSet, err error, outcome Outcome) bool {
	settled := false
	r.once.Do(func() {
		r.result = rs
		r.err = err
		r.outcome = outcome
		r.finishedAt = time.Now()
		close(r.done)
		settled = true
	})
	return settled
}

// abortNow settles the rebuild with the empty result set and asks the indexer
// to stop. Settling first guarantees joined callers see the empty result
// rather than the indexer's cancellation error.
func (r *Rebuild) abortNow() bool {
	settled := r.settle(types.EmptyResultSet(), nil, OutcomeAborted)
	r.abort()
	return settled
}
