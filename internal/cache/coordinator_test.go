package cache

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/forester-mcp/pkg/types"
)

var errIndexer = errors.New("forester exited with status 1")

// fakeIndexer blocks every Query until its gate is released or the
// rebuild is aborted. Each successful call returns a distinct result set.
type fakeIndexer struct {
	calls     atomic.Int32
	aborted   atomic.Int32
	failCalls int32 // the first failCalls calls return errIndexer
	gate      chan struct{}
	gateOnce  sync.Once
}

func newFakeIndexer(open bool) *fakeIndexer {
	f := &fakeIndexer{gate: make(chan struct{})}
	if open {
		f.release()
	}
	return f
}

func (f *fakeIndexer) release() {
	f.gateOnce.Do(func() { close(f.gate) })
}

func (f *fakeIndexer) Query(ctx context.Context, root string) (*types.ResultSet, error) {
	n := f.calls.Add(1)
	select {
	case <-f.gate:
	case <-ctx.Done():
		f.aborted.Add(1)
		return nil, ctx.Err()
	}
	if n <= f.failCalls {
		return nil, errIndexer
	}
	return types.NewResultSet([]types.Entry{{
		ID:         fmt.Sprintf("tree-%04d", n),
		SourcePath: filepath.Join(root, "trees", "tree.tree"),
	}})
}

type staticRoots struct {
	root string
	err  error
}

func (s staticRoots) Root() (string, error) {
	return s.root, s.err
}

type recordingObserver struct {
	mu       sync.Mutex
	outcomes map[uint64]Outcome
}

func (o *recordingObserver) RebuildSettled(r *Rebuild) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.outcomes == nil {
		o.outcomes = make(map[uint64]Outcome)
	}
	o.outcomes[r.Generation] = r.Outcome()
}

func (o *recordingObserver) snapshot() map[uint64]Outcome {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make(map[uint64]Outcome, len(o.outcomes))
	for k, v := range o.outcomes {
		out[k] = v
	}
	return out
}

func newTestCoordinator(t *testing.T, f *fakeIndexer, opts ...Option) *Coordinator {
	t.Helper()
	c := NewCoordinator(NewState(), f, staticRoots{root: "/forest"}, opts...)
	t.Cleanup(func() {
		c.Close()
		f.release()
	})
	return c
}

const waitFor = 2 * time.Second

func TestGetCurrent_Idempotent(t *testing.T) {
	f := newFakeIndexer(true)
	c := newTestCoordinator(t, f)
	ctx := context.Background()

	first, err := c.GetCurrent(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, first.Len())

	for i := 0; i < 5; i++ {
		rs, err := c.GetCurrent(ctx)
		require.NoError(t, err)
		assert.Same(t, first, rs)
	}
	assert.Equal(t, int32(1), f.calls.Load(), "exactly one rebuild")
}

func TestGetCurrent_Coalesces(t *testing.T) {
	f := newFakeIndexer(false)
	c := newTestCoordinator(t, f)

	const n = 10
	results := make([]*types.ResultSet, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rs, err := c.GetCurrent(context.Background())
			assert.NoError(t, err)
			results[i] = rs
		}(i)
	}

	require.Eventually(t, func() bool { return f.calls.Load() == 1 }, waitFor, time.Millisecond)
	f.release()
	wg.Wait()

	require.NotNil(t, results[0])
	for i := 1; i < n; i++ {
		assert.Same(t, results[0], results[i])
	}
	assert.Equal(t, int32(1), f.calls.Load(), "concurrent callers must share one rebuild")
}

func TestGetCurrent_InvalidationTriggersRebuild(t *testing.T) {
	f := newFakeIndexer(true)
	c := newTestCoordinator(t, f)
	tracker := NewTracker(c.State())
	ctx := context.Background()

	first, err := c.GetCurrent(ctx)
	require.NoError(t, err)

	tracker.Invalidate()

	second, err := c.GetCurrent(ctx)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, int32(2), f.calls.Load())

	_, ok := second.Get("tree-0002")
	assert.True(t, ok)
}

func TestGetCurrent_CancellationFallback(t *testing.T) {
	f := newFakeIndexer(false)
	c := newTestCoordinator(t, f)

	ctx, cancel := context.WithCancel(context.Background())
	type result struct {
		rs  *types.ResultSet
		err error
	}
	done := make(chan result, 1)
	go func() {
		rs, err := c.GetCurrent(ctx)
		done <- result{rs, err}
	}()

	require.Eventually(t, func() bool { return f.calls.Load() == 1 }, waitFor, time.Millisecond)
	cancel()

	select {
	case res := <-done:
		require.NoError(t, res.err, "cancellation is not an error")
		assert.Same(t, types.EmptyResultSet(), res.rs)
	case <-time.After(waitFor):
		t.Fatal("cancelled request did not return")
	}

	// The indexer never completed on its own; it was asked to stop
	require.Eventually(t, func() bool { return f.aborted.Load() == 1 }, waitFor, time.Millisecond)
	assert.True(t, c.State().Snapshot().Stale)
}

func TestGetCurrent_CancellationForcesGlobalRebuild(t *testing.T) {
	f := newFakeIndexer(false)
	c := newTestCoordinator(t, f)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.GetCurrent(ctx)
	}()
	require.Eventually(t, func() bool { return f.calls.Load() == 1 }, waitFor, time.Millisecond)
	cancel()
	<-done

	// No change notification happened, yet the next caller rebuilds
	f.release()
	rs, err := c.GetCurrent(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.calls.Load())
	_, ok := rs.Get("tree-0002")
	assert.True(t, ok)
}

func TestGetCurrent_CancellationSettlesJoinedCallers(t *testing.T) {
	f := newFakeIndexer(false)
	c := newTestCoordinator(t, f)

	r, err := c.acquire()
	require.NoError(t, err)
	joined, err := c.acquire()
	require.NoError(t, err)
	require.Same(t, r, joined)

	ctxA, cancelA := context.WithCancel(context.Background())
	resB := make(chan *types.ResultSet, 1)
	go func() {
		rs, _ := c.bridge.Await(context.Background(), r)
		resB <- rs
	}()

	cancelA()
	rsA, err := c.bridge.Await(ctxA, r)
	require.NoError(t, err)
	assert.Same(t, types.EmptyResultSet(), rsA)

	select {
	case rs := <-resB:
		assert.Same(t, types.EmptyResultSet(), rs)
	case <-time.After(waitFor):
		t.Fatal("joined caller was not released by the abort")
	}
	assert.Equal(t, OutcomeAborted, r.Outcome())
}

func TestGetCurrent_ThreeCompletionsThenSave(t *testing.T) {
	f := newFakeIndexer(false)
	c := newTestCoordinator(t, f)
	tracker := NewTracker(c.State())

	burst := func() []*types.ResultSet {
		results := make([]*types.ResultSet, 3)
		var wg sync.WaitGroup
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				rs, err := c.GetCurrent(context.Background())
				assert.NoError(t, err)
				results[i] = rs
			}(i)
		}
		wg.Wait()
		return results
	}

	firstCh := make(chan []*types.ResultSet, 1)
	go func() { firstCh <- burst() }()
	require.Eventually(t, func() bool { return f.calls.Load() == 1 }, waitFor, time.Millisecond)
	f.release()
	first := <-firstCh
	assert.Equal(t, int32(1), f.calls.Load(), "one rebuild serves all three requests")
	assert.Same(t, first[0], first[1])
	assert.Same(t, first[0], first[2])

	// Save event
	tracker.Invalidate()

	second := burst()
	assert.Equal(t, int32(2), f.calls.Load(), "the save triggers exactly one new rebuild")
	assert.NotSame(t, first[0], second[0])
	assert.Same(t, second[0], second[1])
	assert.Same(t, second[0], second[2])
}

func TestGetCurrent_StickyFailure(t *testing.T) {
	f := newFakeIndexer(true)
	f.failCalls = 1
	c := newTestCoordinator(t, f)
	ctx := context.Background()

	_, err1 := c.GetCurrent(ctx)
	_, err2 := c.GetCurrent(ctx)

	require.Error(t, err1)
	assert.ErrorIs(t, err1, types.ErrRebuildFailed)
	assert.ErrorIs(t, err1, errIndexer)
	assert.Equal(t, err1, err2, "later callers observe the same failure")
	assert.Equal(t, int32(1), f.calls.Load(), "failures are not retried")

	var re *types.RebuildError
	require.ErrorAs(t, err1, &re)
	assert.Equal(t, uint64(1), re.Generation)

	snap := c.State().Snapshot()
	assert.Equal(t, PhaseFailed, snap.Phase)
	assert.ErrorIs(t, snap.Err, errIndexer)

	NewTracker(c.State()).Invalidate()
	rs, err := c.GetCurrent(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rs.Len())
	assert.Equal(t, PhaseReady, c.State().Snapshot().Phase)
}

func TestGetCurrent_SupersededRebuildIsAborted(t *testing.T) {
	f := newFakeIndexer(false)
	c := newTestCoordinator(t, f)

	r1, err := c.acquire()
	require.NoError(t, err)
	// r1 must reach the indexer first so that r2 gets the second result
	require.Eventually(t, func() bool { return f.calls.Load() == 1 }, waitFor, time.Millisecond)

	NewTracker(c.State()).Invalidate()
	r2, err := c.acquire()
	require.NoError(t, err)
	require.NotSame(t, r1, r2)

	require.True(t, r1.Settled())
	assert.Equal(t, OutcomeAborted, r1.Outcome())
	rs, err := r1.Result()
	assert.NoError(t, err)
	assert.Same(t, types.EmptyResultSet(), rs)
	require.Eventually(t, func() bool { return f.aborted.Load() == 1 }, waitFor, time.Millisecond)

	f.release()
	rs, err = c.bridge.Await(context.Background(), r2)
	require.NoError(t, err)
	_, ok := rs.Get("tree-0002")
	assert.True(t, ok)
}

func TestGetCurrent_NoWorkspaceRoot(t *testing.T) {
	f := newFakeIndexer(true)
	c := NewCoordinator(NewState(), f, staticRoots{err: types.ErrNoWorkspaceRoot})
	defer c.Close()

	_, err := c.GetCurrent(context.Background())
	assert.ErrorIs(t, err, types.ErrNoWorkspaceRoot)
	assert.Equal(t, int32(0), f.calls.Load())

	snap := c.State().Snapshot()
	assert.True(t, snap.Stale, "a failed root resolution must not consume stale")
	assert.Equal(t, PhaseIdle, snap.Phase)
}

func TestGetCurrent_CancelledRequestAfterSettle(t *testing.T) {
	f := newFakeIndexer(true)
	c := newTestCoordinator(t, f)

	first, err := c.GetCurrent(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rs, err := c.GetCurrent(ctx)
	require.NoError(t, err)
	assert.Same(t, first, rs, "a settled result wins over cancellation")
	assert.False(t, c.State().Snapshot().Stale)
	assert.Equal(t, int32(1), f.calls.Load())
}

func TestGetCurrent_AlreadyCancelledWhileBuilding(t *testing.T) {
	f := newFakeIndexer(false)
	c := newTestCoordinator(t, f)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rs, err := c.GetCurrent(ctx)
	require.NoError(t, err)
	assert.Same(t, types.EmptyResultSet(), rs)
	assert.True(t, c.State().Snapshot().Stale)
	require.Eventually(t, func() bool { return f.aborted.Load() == 1 }, waitFor, time.Millisecond)
}

func TestState_SnapshotPhases(t *testing.T) {
	f := newFakeIndexer(false)
	c := newTestCoordinator(t, f)

	snap := c.State().Snapshot()
	assert.Equal(t, PhaseIdle, snap.Phase)
	assert.True(t, snap.Stale)
	assert.Equal(t, uint64(0), snap.Generation)

	require.NoError(t, c.Warm())
	snap = c.State().Snapshot()
	assert.Equal(t, PhaseBuilding, snap.Phase)
	assert.False(t, snap.Stale)
	assert.Equal(t, uint64(1), snap.Generation)
	assert.Equal(t, "/forest", snap.Root)

	f.release()
	require.Eventually(t, func() bool {
		return c.State().Snapshot().Phase == PhaseReady
	}, waitFor, time.Millisecond)
	snap = c.State().Snapshot()
	assert.Equal(t, 1, snap.Entries)
	assert.False(t, snap.FinishedAt.IsZero())

	c.Close()
	snap = c.State().Snapshot()
	assert.True(t, snap.Stale)
	assert.Equal(t, PhaseReady, snap.Phase, "closing a settled rebuild keeps its result")
}

func TestCoordinator_Observer(t *testing.T) {
	f := newFakeIndexer(false)
	obs := &recordingObserver{}
	c := newTestCoordinator(t, f, WithObserver(obs))

	require.NoError(t, c.Warm())
	NewTracker(c.State()).Invalidate()
	require.NoError(t, c.Warm())

	require.Eventually(t, func() bool { return len(obs.snapshot()) == 1 }, waitFor, time.Millisecond)
	assert.Equal(t, OutcomeAborted, obs.snapshot()[1])

	f.release()
	require.Eventually(t, func() bool { return len(obs.snapshot()) == 2 }, waitFor, time.Millisecond)
	assert.Equal(t, OutcomeReady, obs.snapshot()[2])
}

func TestCoordinator_CloseReleasesWaiters(t *testing.T) {
	f := newFakeIndexer(false)
	obs := &recordingObserver{}
	c := newTestCoordinator(t, f, WithObserver(obs))

	done := make(chan *types.ResultSet, 1)
	go func() {
		rs, _ := c.GetCurrent(context.Background())
		done <- rs
	}()
	require.Eventually(t, func() bool { return f.calls.Load() == 1 }, waitFor, time.Millisecond)

	c.Close()

	// Close returns only after the indexer and the observer are done
	assert.Equal(t, int32(1), f.aborted.Load())
	assert.Equal(t, map[uint64]Outcome{1: OutcomeAborted}, obs.snapshot())

	select {
	case rs := <-done:
		assert.Same(t, types.EmptyResultSet(), rs)
	case <-time.After(waitFor):
		t.Fatal("Close did not release the waiter")
	}
}

func TestPhase_String(t *testing.T) {
	assert.Equal(t, "idle", PhaseIdle.String())
	assert.Equal(t, "building", PhaseBuilding.String())
	assert.Equal(t, "ready", PhaseReady.String())
	assert.Equal(t, "failed", PhaseFailed.String())
	assert.Equal(t, "unknown", Phase(42).String())
}
