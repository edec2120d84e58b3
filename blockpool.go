package fiberop

import (
	"fmt"
	"sync"
)

// BlockPool recycles pointers to a single size class of value, backed by a
// [sync.Pool]. It is not parameterized on a Go type: like the reference
// allocator this is grounded on (whose BlockSize-templated class is reused
// via placement new for many different payload types of similar size), one
// BlockPool instance backs [Pool]'s allocate/deallocate for every type that
// falls into its tier. Allocate/Deallocate are the generic, type-aware entry
// points; blockSize is retained only as tier metadata for logging — nothing
// here actually carves memory to that size.
//
// Earlier revisions of this allocator carved blocks out of a single
// `make([]byte, ...)` arena per chunk, linked through an ABA-protected CAS
// free list, and returned a block to the list when a runtime.SetFinalizer
// fired. That doesn't survive contact with Go's garbage collector: a `[]byte`
// arena is a noscan allocation, so any pointer-bearing value written into it
// (a closure, a *Pool, an error string) was invisible to the GC and could be
// collected out from under a live node; separately, runtime.SetFinalizer
// refuses any pointer that isn't at the start of its own allocation, which an
// interior slab offset never is, so the second node ever recycled from a
// tier crashed the process outright. Recycling through sync.Pool avoids both
// problems: every value handed out is an ordinary, individually-allocated
// `*T` that the GC scans precisely regardless of what it points to, and is
// therefore also a legal runtime.SetFinalizer target.
type BlockPool struct {
	blockSize uintptr
	logger    Logger
	recycled  sync.Pool
}

// NewBlockPool constructs a BlockPool for the size tier starting at
// blockSize bytes. blockSize is descriptive only: it labels the tier in
// diagnostics, it does not bound what may be allocated from it.
func NewBlockPool(blockSize uintptr) *BlockPool {
	return &BlockPool{
		blockSize: blockSize,
		logger:    NewNoOpLogger(),
	}
}

// blockPoolAllocate hands out a *T, preferring a recycled one from a prior
// Deallocate of the same concrete type and falling back to a fresh
// allocation otherwise (either because the pool was empty, or because the
// slot sync.Pool handed back held some other type that happened to share
// this tier — in which case that slot is simply dropped, left for the
// garbage collector).
func blockPoolAllocate[T any](bp *BlockPool, value T) *T {
	if v := bp.recycled.Get(); v != nil {
		if typed, ok := v.(*T); ok {
			*typed = value
			return typed
		}
	} else if bp.logger.IsEnabled(LevelDebug) {
		bp.logger.Log(LogEntry{
			Level:    LevelDebug,
			Category: "pool",
			Message:  fmt.Sprintf("tier %d bytes: no recycled block, allocating fresh", bp.blockSize),
		})
	}
	p := new(T)
	*p = value
	return p
}

// blockPoolDeallocate zeroes the value at ptr (the Go analogue of running
// T's destructor — this drops any references the payload held, so the
// garbage collector can reclaim what it pointed to) and returns ptr to this
// pool for a future blockPoolAllocate[T] to reuse. Calling it with a pointer
// not obtained from a matching blockPoolAllocate[T] call on the same
// BlockPool is undefined behavior.
func blockPoolDeallocate[T any](bp *BlockPool, ptr *T) {
	var zero T
	*ptr = zero
	bp.recycled.Put(ptr)
}

// Teardown drops every block this pool is holding for reuse, making them
// eligible for garbage collection. It does not run destructors for blocks
// still handed out: the pool's contract is that it outlives every object
// allocated from it.
func (bp *BlockPool) Teardown() {
	bp.recycled = sync.Pool{}
}
