package fiberop

import (
	"reflect"
	"sync"
	"unsafe"
)

// Erased is a single-slot owning container for exactly one value of any
// type. It is deliberately unsafe: no runtime type check guards
// [Get] on a non-empty container, because the whole point is a
// blind, unchecked cast that costs nothing on the interpreter's hot path.
// Compile-time type safety belongs one layer up, in whatever Task-style
// façade constructs the FiberOp graph this package evaluates.
//
// The zero value is a valid, empty Erased.
type Erased struct {
	ptr     unsafe.Pointer
	destroy func(unsafe.Pointer)
	clone   func(unsafe.Pointer) unsafe.Pointer
	typ     *typeTag
	pool    *Pool
}

// typeTag identifies the concrete type stored, used only for the
// same-type assignment fast path and for debugging; it is never consulted
// to validate a [Get] call.
type typeTag struct {
	name string
}

// NewErased constructs an Erased holding a deep copy of value, allocated
// from pool. Passing a nil pool allocates from [GlobalPool].
func NewErased[T any](pool *Pool, value T) Erased {
	if pool == nil {
		pool = GlobalPool()
	}
	ptr := poolAllocate(pool, value)
	return Erased{
		ptr: unsafe.Pointer(ptr),
		destroy: func(p unsafe.Pointer) {
			poolDeallocate(pool, (*T)(p))
		},
		clone: func(p unsafe.Pointer) unsafe.Pointer {
			return unsafe.Pointer(poolAllocate(pool, *(*T)(p)))
		},
		typ:  typeTagFor[T](),
		pool: pool,
	}
}

// typeTagFor returns a stable *typeTag for T. Go generics can't range over
// instantiations to build this at init time, so each call memoizes lazily
// into a package-level map keyed by T's reflect.Type, guarded by a mutex since
// Erased values of arbitrary types are constructed concurrently across
// goroutines.
func typeTagFor[T any]() *typeTag {
	typ := reflect.TypeOf((*T)(nil)).Elem()

	typeTagMu.RLock()
	tag, ok := typeTagStorage[typ]
	typeTagMu.RUnlock()
	if ok {
		return tag
	}

	typeTagMu.Lock()
	defer typeTagMu.Unlock()
	if tag, ok := typeTagStorage[typ]; ok {
		return tag
	}
	tag = &typeTag{name: typ.String()}
	typeTagStorage[typ] = tag
	return tag
}

var (
	typeTagMu      sync.RWMutex
	typeTagStorage = map[reflect.Type]*typeTag{}
)

// HasValue reports whether this container currently holds a value.
func (e Erased) HasValue() bool {
	return e.ptr != nil
}

// Get returns a pointer to the payload, assuming the caller knows the
// concrete type T. It returns ErrEmptyContainer if the container is empty.
// If T does not match the type the container actually holds, the result is
// undefined: this is a blind pointer cast, not a type-checked conversion.
func Get[T any](e Erased) (*T, error) {
	if e.ptr == nil {
		return nil, ErrEmptyContainer
	}
	return (*T)(e.ptr), nil
}

// MustGet is [Get] without the error return, for call sites that have
// already established (by construction) that e is non-empty.
func MustGet[T any](e Erased) *T {
	v, err := Get[T](e)
	if err != nil {
		panic(err)
	}
	return v
}

// Clone produces a new Erased holding a deep copy of this container's
// payload via its stored copy function. Cloning an empty Erased yields
// another empty Erased.
func (e Erased) Clone() Erased {
	if e.ptr == nil {
		return Erased{}
	}
	return Erased{
		ptr:     e.clone(e.ptr),
		destroy: e.destroy,
		clone:   e.clone,
		typ:     e.typ,
		pool:    e.pool,
	}
}

// Take moves the payload out of e, leaving e empty. The caller receives
// ownership of the returned Erased; e must not be used to access the moved
// payload afterward.
func (e *Erased) Take() Erased {
	moved := Erased{ptr: e.ptr, destroy: e.destroy, clone: e.clone, typ: e.typ, pool: e.pool}
	e.ptr = nil
	e.destroy = nil
	e.clone = nil
	e.typ = nil
	e.pool = nil
	return moved
}

// Reset destroys the payload, if any, and returns this container to the
// empty state.
func (e *Erased) Reset() {
	if e.ptr != nil {
		e.destroy(e.ptr)
		e.ptr = nil
		e.destroy = nil
		e.clone = nil
		e.typ = nil
	}
}

// SetErased assigns a new value of type T into e. If e already holds a
// value of the identical concrete type, the payload is overwritten in
// place; otherwise the old payload is destroyed and a new one is allocated.
func SetErased[T any](e *Erased, pool *Pool, value T) {
	if pool == nil {
		pool = GlobalPool()
	}
	if e.ptr != nil && e.typ == typeTagFor[T]() {
		*(*T)(e.ptr) = value
		return
	}
	e.Reset()
	*e = NewErased(pool, value)
}
