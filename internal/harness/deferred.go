// Package harness provides a minimal Scheduler/Deferred/Driver
// implementation used to exercise github.com/joeycumines/go-fiberop's
// FiberOp algebra end-to-end in tests. It is not part of the library's
// public surface: real hosts bring their own scheduler and future type.
package harness

import (
	"context"
	"sync"

	"github.com/joeycumines/go-fiberop"
)

// deferred is a single-assignment future satisfying fiberop.Deferred[T].
// Grounded on the resolve-once/reject-once contract of a Promise/A+
// implementation, generalized from string-keyed JS values to a Go generic
// result type.
type deferred[T any] struct {
	mu        sync.Mutex
	done      chan struct{}
	completed bool
	value     T
	err       error
	callbacks []func(T, error)
	canceled  bool
	onCancel  func()
}

// NewDeferred constructs a pending deferred[T]. onCancel, if non-nil, is
// invoked the first time Cancel is called on a still-pending deferred.
func NewDeferred[T any](onCancel func()) *deferredHandle[T] {
	d := &deferred[T]{done: make(chan struct{}), onCancel: onCancel}
	return &deferredHandle[T]{d: d}
}

// deferredHandle exposes the resolve/reject side to the producer
// (Complete) separately from the fiberop.Deferred[T] consumer side
// (OnComplete/Cancel/Await), mirroring how a Promise's executor gets
// resolve/reject callbacks distinct from the promise object itself.
type deferredHandle[T any] struct {
	d *deferred[T]
}

// Deferred returns the fiberop.Deferred[T] view of this handle.
func (h *deferredHandle[T]) Deferred() fiberop.Deferred[T] {
	return h.d
}

// Complete resolves the deferred with (value, err), running every callback
// registered so far (and any registered later, immediately). Calling
// Complete more than once is a no-op after the first call.
func (h *deferredHandle[T]) Complete(value T, err error) {
	d := h.d
	d.mu.Lock()
	if d.completed || d.canceled {
		d.mu.Unlock()
		return
	}
	d.completed = true
	d.value = value
	d.err = err
	callbacks := d.callbacks
	d.callbacks = nil
	close(d.done)
	d.mu.Unlock()

	for _, cb := range callbacks {
		cb(value, err)
	}
}

func (d *deferred[T]) OnComplete(cb func(T, error)) {
	d.mu.Lock()
	if d.completed {
		value, err := d.value, d.err
		d.mu.Unlock()
		cb(value, err)
		return
	}
	if d.canceled {
		d.mu.Unlock()
		cb(d.value, context.Canceled)
		return
	}
	d.callbacks = append(d.callbacks, cb)
	d.mu.Unlock()
}

func (d *deferred[T]) Cancel() {
	d.mu.Lock()
	if d.completed || d.canceled {
		d.mu.Unlock()
		return
	}
	d.canceled = true
	onCancel := d.onCancel
	callbacks := d.callbacks
	d.callbacks = nil
	close(d.done)
	d.mu.Unlock()

	var zero T
	for _, cb := range callbacks {
		cb(zero, context.Canceled)
	}
	if onCancel != nil {
		onCancel()
	}
}

func (d *deferred[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-d.done:
		d.mu.Lock()
		value, err, canceled := d.value, d.err, d.canceled
		d.mu.Unlock()
		if canceled {
			return value, context.Canceled
		}
		return value, err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
