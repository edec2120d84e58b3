package fiberop

// FiberValue is the tri-state result slot a Driver resumes a fiber's
// continuations with: a successful value, an error, or a cancellation, never
// more than one at a time. Cancellation takes priority in construction order
// (setCanceled always wins the last write) and clears any previously held
// payload, since a canceled fiber must not observe a stale value or error.
type FiberValue struct {
	value    Erased
	isError  bool
	canceled bool
}

// IsValue reports whether this FiberValue holds a successful result.
func (v *FiberValue) IsValue() bool {
	return !v.isError && !v.canceled && v.value.HasValue()
}

// IsError reports whether this FiberValue holds an error result.
func (v *FiberValue) IsError() bool {
	return v.isError
}

// IsCanceled reports whether this FiberValue represents a canceled fiber.
func (v *FiberValue) IsCanceled() bool {
	return v.canceled
}

// SetValue installs a successful result, clearing any prior error or
// canceled state.
func (v *FiberValue) SetValue(value Erased) {
	v.value = value
	v.isError = false
	v.canceled = false
}

// SetError installs an error result, clearing any prior canceled state. The
// error payload is carried in the same Erased slot as a value would be;
// IsError is what distinguishes the two, not a different field type.
func (v *FiberValue) SetError(value Erased) {
	v.value = value
	v.isError = true
	v.canceled = false
}

// SetCanceled resets the payload and marks this FiberValue as canceled.
func (v *FiberValue) SetCanceled() {
	v.value.Reset()
	v.isError = false
	v.canceled = true
}

// GetValue returns the held value and true iff IsValue is true.
func (v *FiberValue) GetValue() (Erased, bool) {
	if v.IsValue() {
		return v.value, true
	}
	return Erased{}, false
}

// GetError returns the held error payload and true iff IsError is true.
func (v *FiberValue) GetError() (Erased, bool) {
	if v.isError {
		return v.value, true
	}
	return Erased{}, false
}

// Underlying returns the raw payload slot regardless of state, for callers
// that already know which of IsValue/IsError/IsCanceled applies and just
// need the bits.
func (v *FiberValue) Underlying() Erased {
	return v.value
}
