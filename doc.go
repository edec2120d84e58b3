// Package fiberop provides a lazy, composable, trampolined description of
// asynchronous computations (FiberOp) and the supporting primitives a
// fiber-style interpreter needs to evaluate them on a caller-supplied
// scheduler: a type-erased value container (Erased), a tri-state result
// carrier (FiberValue), a size-tiered recycling allocator (Pool), and a
// bounded work-stealing deque (ReadyQueue).
//
// # Architecture
//
// FiberOp is an immutable algebraic tree: VALUE, ERROR, THUNK, ASYNC, DELAY,
// RACE, CANCEL, and CEDE are terminal nodes; FLATMAP sequences two programs.
// [FiberOp.FlatMap] normalizes the tree so it is always left-associated,
// which bounds the interpreter's stack depth to the left spine regardless of
// how deeply user code nests continuations.
//
// Every FiberOp and every Erased payload is allocated from a [Pool]: a
// façade over seven [BlockPool] size tiers, each backed by a [sync.Pool] of
// recycled nodes, falling back to the Go allocator above the largest tier.
// [GlobalPool] returns a lazily
// constructed, process-wide instance; its underlying blocks are safe to
// allocate and free from any goroutine, since fibers migrate between
// scheduler workers.
//
// This package does not include a scheduler, a ready-queue-owning worker
// pool, or a Task-level monadic facade — those are external collaborators
// that consume the contracts in [Scheduler] and [Deferred]. internal/harness
// provides a minimal reference implementation of both, used only by this
// package's own tests.
//
// # Thread Safety
//
//   - [Pool] and [BlockPool] are safe for concurrent allocate/free from any
//     goroutine.
//   - [ReadyQueue] is mutex-guarded; its size is readable without the lock.
//   - FiberOp trees are immutable and freely shareable once constructed.
//   - [Erased] and [FiberValue] are not safe for concurrent use: each is
//     owned by exactly one fiber at a time and handed off by move, not by
//     shared mutation.
//
// # Cancellation
//
// Cancellation is cooperative, carried by [FiberValue.IsCanceled]. A CANCEL op,
// an external cancellation request, or a losing RACE branch all unwind the
// continuation stack without invoking pending continuations.
package fiberop
