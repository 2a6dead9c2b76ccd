package cache

// Tracker turns corpus change notifications into the stale flag. Every
// event counts the same; events are not diffed, counted or debounced.
type Tracker struct {
	state *State
}

// NewTracker creates a tracker writing to state
func NewTracker(state *State) *Tracker {
	return &Tracker{state: state}
}

// Invalidate marks the cached result set stale
func (t *Tracker) Invalidate() {
	t.state.markStale()
}
