package fiberop

import (
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/exp/constraints"
)

// Pool is a size-tiered façade over seven [BlockPool] instances with block
// sizes cacheLineSize, 2x, 4x, ... 64x. Allocate/Deallocate dispatch to the
// smallest tier whose block size is at least unsafe.Sizeof(T); above the
// largest tier, both fall through to the Go allocator/garbage collector.
type Pool struct {
	tiers  [poolTierCount]*BlockPool
	opts   *poolOptions
	allocs [poolTierCount + 1]uint64 // metrics: per-tier + fallback allocate counts, atomic via metrics.go helpers
}

// NewPool constructs a Pool with the standard seven size tiers.
func NewPool(opts ...PoolOption) *Pool {
	cfg := resolvePoolOptions(opts)
	p := &Pool{opts: cfg}
	blockSize := uintptr(cacheLineSize)
	for i := 0; i < poolTierCount; i++ {
		bp := NewBlockPool(blockSize)
		bp.logger = cfg.logger
		p.tiers[i] = bp
		blockSize *= 2
	}
	return p
}

// tierFor returns the tier index (0-based) whose block size is the smallest
// at-least-sizeof(T), or -1 if T is too large for any tier (system
// allocator fallback). It is generic over any integer size type so
// it serves both the uintptr sizes poolAllocate computes and plain int
// sizes a caller might already have in hand (e.g. a pre-measured payload
// length), without a separate conversion at every call site.
func tierFor[S constraints.Integer](size S) int {
	blockSize := S(cacheLineSize)
	for i := 0; i < poolTierCount; i++ {
		if size <= blockSize {
			return i
		}
		blockSize *= 2
	}
	return -1
}

// poolAllocate is the generic entry point: allocates a T-sized slot from the
// appropriate tier (or the Go heap, above the largest tier) and stores
// value into it.
func poolAllocate[T any](p *Pool, value T) *T {
	var zero T
	tier := tierFor(unsafe.Sizeof(zero))
	if tier < 0 {
		if p.opts.logger.IsEnabled(LevelWarn) {
			p.opts.logger.Log(LogEntry{
				Level:    LevelWarn,
				Category: "pool",
				Message:  fmt.Sprintf("falling back to system allocator: %d bytes exceeds largest tier", unsafe.Sizeof(zero)),
			})
		}
		v := new(T)
		*v = value
		p.recordAlloc(poolTierCount)
		return v
	}
	p.recordAlloc(tier)
	return blockPoolAllocate(p.tiers[tier], value)
}

// poolDeallocate returns a T-sized slot allocated by poolAllocate. Calling
// it with a pointer not obtained from the matching Pool is undefined
// behavior.
func poolDeallocate[T any](p *Pool, ptr *T) {
	var zero T
	tier := tierFor(unsafe.Sizeof(zero))
	if tier < 0 {
		return // system allocator: nothing to do, GC reclaims it
	}
	blockPoolDeallocate(p.tiers[tier], ptr)
}

// sharedGlobalPool is the process-wide default Pool, lazily constructed on
// first use. A single shared instance is safe for cross-goroutine
// allocate/deallocate, since fibers migrate between scheduler workers and
// must be able to free a node from a different goroutine than allocated it.
var sharedGlobalPool = sync.OnceValue(func() *Pool {
	return NewPool(WithPoolLogger(getGlobalLogger()))
})

// GlobalPool returns the process-wide Pool instance, lazily constructed on
// first call. The underlying BlockPools are safe for cross-goroutine use: a
// value allocated on one goroutine may be freed from another.
func GlobalPool() *Pool {
	return sharedGlobalPool()
}

func (p *Pool) recordAlloc(tier int) {
	if p == nil {
		return
	}
	atomicAddUint64(&p.allocs[tier], 1)
}

// TierAllocCounts returns a snapshot of how many allocations this Pool has
// served from each of its seven tiers, plus a final entry for the system
// allocator fallback. Intended for tests and diagnostics, not the hot path.
func (p *Pool) TierAllocCounts() [poolTierCount + 1]uint64 {
	var out [poolTierCount + 1]uint64
	for i := range out {
		out[i] = atomicLoadUint64(&p.allocs[i])
	}
	return out
}

// Teardown releases every block this Pool is holding for reuse, across all
// tiers. No attempt is made to run any still-outstanding value's equivalent
// of a destructor — callers must ensure nothing allocated from this Pool is
// used afterward.
func (p *Pool) Teardown() {
	for _, bp := range p.tiers {
		bp.Teardown()
	}
}
