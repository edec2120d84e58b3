package fiberop_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/go-fiberop"
)

func TestErased_RoundTrip(t *testing.T) {
	pool := fiberop.NewPool()
	e := fiberop.NewErased(pool, 123)
	require.True(t, e.HasValue())

	v, err := fiberop.Get[int](e)
	require.NoError(t, err)
	assert.Equal(t, 123, *v)
}

func TestErased_EmptyGet(t *testing.T) {
	var e fiberop.Erased
	assert.False(t, e.HasValue())

	_, err := fiberop.Get[string](e)
	assert.ErrorIs(t, err, fiberop.ErrEmptyContainer)
}

func TestErased_Clone(t *testing.T) {
	pool := fiberop.NewPool()
	type payload struct{ n int }
	e := fiberop.NewErased(pool, payload{n: 7})

	clone := e.Clone()
	require.True(t, clone.HasValue())

	orig, err := fiberop.Get[payload](e)
	require.NoError(t, err)
	cloned, err := fiberop.Get[payload](clone)
	require.NoError(t, err)

	assert.Equal(t, orig.n, cloned.n)
	assert.NotSame(t, orig, cloned)
}

func TestErased_Take(t *testing.T) {
	pool := fiberop.NewPool()
	e := fiberop.NewErased(pool, "hello")

	moved := e.Take()
	assert.False(t, e.HasValue())
	require.True(t, moved.HasValue())

	v, err := fiberop.Get[string](moved)
	require.NoError(t, err)
	assert.Equal(t, "hello", *v)
}

func TestSetErased_SameTypeOverwritesInPlace(t *testing.T) {
	pool := fiberop.NewPool()
	var e fiberop.Erased
	fiberop.SetErased(&e, pool, 1)
	first, err := fiberop.Get[int](e)
	require.NoError(t, err)
	assert.Equal(t, 1, *first)

	fiberop.SetErased(&e, pool, 2)
	second, err := fiberop.Get[int](e)
	require.NoError(t, err)
	assert.Equal(t, 2, *second)
}

func TestSetErased_DifferentTypeReplaces(t *testing.T) {
	pool := fiberop.NewPool()
	var e fiberop.Erased
	fiberop.SetErased(&e, pool, 1)
	fiberop.SetErased(&e, pool, "now a string")

	v, err := fiberop.Get[string](e)
	require.NoError(t, err)
	assert.Equal(t, "now a string", *v)
}
