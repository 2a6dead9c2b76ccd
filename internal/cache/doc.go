// Package cache implements the query cache and cancellation coordinator.
//
// The external indexer is far too slow to run once per keystroke, so the
// last result set is cached and shared. Three pieces cooperate over one
// explicit State:
//
//   - Tracker turns corpus change notifications into the stale flag.
//   - Coordinator decides per request whether to reuse the cached result
//     set, join the in-flight rebuild, or start a new one.
//   - Bridge races each request's context against the shared rebuild.
//
// # Basic Usage
//
//	state := cache.NewState()
//	coord := cache.NewCoordinator(state, indexer, roots, cache.WithLogger(logger))
//	tracker := cache.NewTracker(state)
//
//	w, err := watcher.New(roots, "**/*.tree", func(string) { tracker.Invalidate() }, logger)
//
//	rs, err := coord.GetCurrent(ctx)
//
//	coord.Close() // aborts the pending rebuild and waits for its goroutine
//
// # Coalescing
//
// Only a caller that observes stale == true starts a rebuild, and the test
// and clear happen under the state lock. Everyone else joins the pending
// rebuild, so N concurrent requests against a stale cache cause exactly
// one indexer run and all N see the same *types.ResultSet.
//
// # Cancellation
//
// A request whose context is cancelled before the rebuild settles gets the
// empty result set right away. It also marks the cache stale and aborts the
// current rebuild: the next request from any caller starts over. Aborting
// settles the rebuild with the empty result set, so other joined requests
// return at once too; the indexer process is asked to stop but may linger.
//
// # Failures
//
// An indexer error settles the rebuild with a *types.RebuildError. The
// failure is sticky: every caller sharing the rebuild, including later
// ones, observes it until the next invalidation. There is no retry and no
// timeout.
package cache
