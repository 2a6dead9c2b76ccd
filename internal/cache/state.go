package cache

import (
	"sync"
	"time"
)

// Phase is the lifecycle phase of the cache
type Phase int

const (
	PhaseIdle     Phase = iota // No usable rebuild
	PhaseBuilding              // A rebuild is in flight
	PhaseReady                 // The latest rebuild produced a result set
	PhaseFailed                // The latest rebuild failed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseBuilding:
		return "building"
	case PhaseReady:
		return "ready"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// State is the process-wide cache state shared by the Coordinator, the
// Bridge and the Tracker. Every transition happens under mu and never
// blocks, so a test-and-clear of stale and the swap of pending are a single
// indivisible step.
type State struct {
	mu         sync.Mutex
	stale      bool
	pending    *Rebuild
	generation uint64
}

// NewState creates the cache state: stale, with nothing pending
func NewState() *State {
	return &State{stale: true}
}

func (s *State) markStale() {
	s.mu.Lock()
	s.stale = true
	s.mu.Unlock()
}

// Snapshot is a point-in-time view of the cache state
type Snapshot struct {
	Phase      Phase
	Stale      bool
	Generation uint64
	Root       string
	Entries    int
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Snapshot returns the current lifecycle phase and its details
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Phase:      PhaseIdle,
		Stale:      s.stale,
		Generation: s.generation,
	}
	r := s.pending
	if r == nil {
		return snap
	}

	snap.Root = r.Root
	snap.StartedAt = r.StartedAt
	if !r.Settled() {
		snap.Phase = PhaseBuilding
		return snap
	}

	snap.FinishedAt = r.finishedAt
	switch r.outcome {
	case OutcomeReady:
		snap.Phase = PhaseReady
		snap.Entries = r.result.Len()
	case OutcomeFailed:
		snap.Phase = PhaseFailed
		snap.Err = r.err
	}
	return snap
}
