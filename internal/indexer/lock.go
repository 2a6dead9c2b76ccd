package indexer

import "sync/atomic"

// CommandLock provides non-blocking lock semantics using atomic operations.
// Document creation holds it so two forester commands never allocate ids
// against the same corpus at once.
type CommandLock struct {
	state atomic.Int32 // 0 = unlocked, 1 = locked
}

// TryAcquire attempts to acquire the lock without blocking.
// Returns true if the lock was successfully acquired, false otherwise.
func (l *CommandLock) TryAcquire() bool {
	return l.state.CompareAndSwap(0, 1)
}

// Release releases the lock.
// Must only be called by the goroutine that successfully acquired the lock.
func (l *CommandLock) Release() {
	l.state.Store(0)
}
