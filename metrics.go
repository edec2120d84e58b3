package fiberop

import "sync/atomic"

// atomicAddUint64/atomicLoadUint64 centralize the plain-counter pattern used
// across Pool/ReadyQueue/Driver metrics. Counters are exposed via a snapshot
// rather than pushed to a backend, since no metrics backend is in scope
// here.
func atomicAddUint64(addr *uint64, delta uint64) {
	atomic.AddUint64(addr, delta)
}

func atomicLoadUint64(addr *uint64) uint64 {
	return atomic.LoadUint64(addr)
}

// ReadyQueueMetrics is a point-in-time snapshot of a ReadyQueue's counters.
type ReadyQueueMetrics struct {
	Pushed   uint64
	Popped   uint64
	Overflow uint64
	Stolen   uint64
}

// DriverMetrics is a point-in-time snapshot of a Driver's counters.
type DriverMetrics struct {
	Resumes     uint64
	Suspensions uint64
	Panics      uint64
	Cancels     uint64
}
