package fiberop

import (
	"runtime"
	"sync"
	"sync/atomic"
)

var currentFiberNextID atomic.Uint64

var currentFiberIDs sync.Map // goroutine id (uint64) -> fiber id (uint64)

// AcquireFiberID returns a fresh, process-wide monotonically increasing
// fiber identifier, starting at 1 (0 is reserved to mean "no fiber" in
// contexts like [LogEntry.FiberID]). A Driver calls this once per fiber it
// creates.
func AcquireFiberID() uint64 {
	return currentFiberNextID.Add(1)
}

// SetCurrentFiberID records id as the fiber currently executing on the
// calling goroutine. A Driver calls this immediately before running a
// fiber's continuation on a worker goroutine, and [ClearCurrentFiberID]
// immediately after, bracketing exactly the window during which code may
// legitimately ask [CurrentFiberID] "what fiber is this."
func SetCurrentFiberID(id uint64) {
	currentFiberIDs.Store(goroutineID(), id)
}

// ClearCurrentFiberID forgets the current goroutine's fiber association.
func ClearCurrentFiberID() {
	currentFiberIDs.Delete(goroutineID())
}

// CurrentFiberID returns the fiber id associated with the calling
// goroutine, and true iff one has been set (via [SetCurrentFiberID]) and
// not yet cleared.
func CurrentFiberID() (id uint64, ok bool) {
	v, ok := currentFiberIDs.Load(goroutineID())
	if !ok {
		return 0, false
	}
	return v.(uint64), true
}

// goroutineID returns the calling goroutine's runtime-assigned id. Go
// deliberately exposes no public API for this; parsing it out of a stack
// trace is the established workaround used where goroutine-local storage
// is otherwise unavailable.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] < '0' || buf[i] > '9' {
			break
		}
		id = id*10 + uint64(buf[i]-'0')
	}
	return id
}
