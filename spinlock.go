package fiberop

import "sync/atomic"

// SpinLock is a busy-wait mutex for the rare spots deep in scheduler code
// where sleeping (as a regular mutex may, under contention) costs more than
// burning a core for a few cycles — timer-accuracy-sensitive paths in
// particular. Don't reach for this outside such a path: it has none of a
// regular mutex's fairness, and heavy contention on it wastes CPU a
// blocking lock wouldn't.
//
// SpinLock exposes no Lock/Unlock of its own; always go through
// [NewSpinLockGuard] so acquire/release stay paired.
type SpinLock struct {
	_    [cacheLineSize]byte //nolint:unused
	flag atomic.Bool
}

// SpinLockGuard holds a SpinLock for its lifetime. Release it with
// [SpinLockGuard.Unlock] (there is no defer-friendly Close/Done alias —
// name it what it does).
type SpinLockGuard struct {
	lock *SpinLock
}

// NewSpinLockGuard spins until it acquires lock, then returns a guard
// holding it.
func NewSpinLockGuard(lock *SpinLock) *SpinLockGuard {
	for !lock.flag.CompareAndSwap(false, true) {
		// busy-wait; no backoff, matching std::atomic_flag::test_and_set's
		// unconditional spin.
	}
	return &SpinLockGuard{lock: lock}
}

// Unlock releases the held SpinLock. Calling it twice, or on an already
// released guard, is undefined (matching the reference RAII guard, which
// has no such protection either).
func (g *SpinLockGuard) Unlock() {
	g.lock.flag.Store(false)
}
