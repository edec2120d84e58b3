package fiberop

import (
	"context"
	"time"
)

// Scheduler is the external collaborator a Driver uses to run work and
// measure time. This package never constructs one itself; callers supply
// whatever scheduler fits their host application (a fixed worker pool, an
// inline executor for tests, or a production thread pool). internal/harness
// provides a minimal reference implementation used by this package's own
// tests.
type Scheduler interface {
	// Submit enqueues fn to run, returning immediately.
	Submit(fn func())
	// SubmitAfter enqueues fn to run no sooner than delay from now.
	SubmitAfter(delay time.Duration, fn func())
	// NowMillis returns the scheduler's notion of the current time, in
	// milliseconds. Exposed separately from Submit/SubmitAfter so a test
	// scheduler can fake time without affecting dispatch.
	NowMillis() int64
	// Shutdown stops accepting new work and releases the scheduler's
	// resources. Already-submitted work may or may not run to completion;
	// callers that need a drain guarantee should track it themselves.
	Shutdown()
}

// Deferred is a single-assignment future of a T-or-error result, the
// external contract an Async FiberOp's callback returns. Implementations
// must tolerate OnComplete being registered after the result is already
// available, invoking cb immediately in that case.
type Deferred[T any] interface {
	// OnComplete registers cb to run once exactly, with the eventual
	// result or error. Registering multiple callbacks is legal; all of
	// them run once the result lands.
	OnComplete(cb func(T, error))
	// Cancel requests early cancellation. A Deferred that has already
	// completed ignores Cancel.
	Cancel()
	// Await blocks the calling goroutine until the result is available or
	// ctx is done, whichever comes first.
	Await(ctx context.Context) (T, error)
}
