package fiberop_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joeycumines/go-fiberop"
)

func TestEither_Left(t *testing.T) {
	e := fiberop.Left[int, string](42)
	assert.True(t, e.IsLeft())
	assert.False(t, e.IsRight())

	v, ok := e.Left()
	assert.True(t, ok)
	assert.Equal(t, 42, v)

	_, ok = e.Right()
	assert.False(t, ok)
}

func TestEither_Right(t *testing.T) {
	e := fiberop.Right[int, string]("boom")
	assert.True(t, e.IsRight())
	assert.False(t, e.IsLeft())

	v, ok := e.Right()
	assert.True(t, ok)
	assert.Equal(t, "boom", v)

	_, ok = e.Left()
	assert.False(t, ok)
}

func TestEither_ZeroValue(t *testing.T) {
	var e fiberop.Either[int, string]
	assert.False(t, e.IsLeft())
	assert.False(t, e.IsRight())
}

func TestEither_SameTypeBothSides(t *testing.T) {
	left := fiberop.Left[error, error](assert.AnError)
	right := fiberop.Right[error, error](assert.AnError)

	assert.True(t, left.IsLeft())
	assert.True(t, right.IsRight())
}
