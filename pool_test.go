package fiberop_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/go-fiberop"
)

func TestPool_AllocateDeallocate(t *testing.T) {
	pool := fiberop.NewPool()
	e := fiberop.NewErased(pool, 42)
	v, err := fiberop.Get[int](e)
	require.NoError(t, err)
	assert.Equal(t, 42, *v)
}

func TestPool_TierAllocCountsTracksSmallAllocations(t *testing.T) {
	pool := fiberop.NewPool()
	before := pool.TierAllocCounts()

	for i := 0; i < 16; i++ {
		fiberop.NewErased(pool, i)
	}

	after := pool.TierAllocCounts()

	var delta uint64
	for i := range after {
		delta += after[i] - before[i]
	}
	assert.Equal(t, uint64(16), delta)
}

func TestPool_LargeValueFallsBackToSystemAllocator(t *testing.T) {
	pool := fiberop.NewPool()
	type huge [8192]byte

	before := pool.TierAllocCounts()
	fiberop.NewErased(pool, huge{})
	after := pool.TierAllocCounts()

	// the fallback bucket is the last entry
	assert.Equal(t, before[len(before)-1]+1, after[len(after)-1])
}

func TestPool_ConcurrentAllocateDeallocate(t *testing.T) {
	pool := fiberop.NewPool()
	const goroutines = 32
	const perGoroutine = 200

	done := make(chan struct{})
	for i := 0; i < goroutines; i++ {
		go func(seed int) {
			defer func() { done <- struct{}{} }()
			for j := 0; j < perGoroutine; j++ {
				e := fiberop.NewErased(pool, seed*perGoroutine+j)
				v, err := fiberop.Get[int](e)
				require.NoError(t, err)
				assert.Equal(t, seed*perGoroutine+j, *v)
			}
		}(i)
	}
	for i := 0; i < goroutines; i++ {
		<-done
	}
}

func TestGlobalPool_ReturnsSingleton(t *testing.T) {
	a := fiberop.GlobalPool()
	b := fiberop.GlobalPool()
	assert.Same(t, a, b)
}

func TestPool_Teardown(t *testing.T) {
	pool := fiberop.NewPool()
	fiberop.NewErased(pool, 1)
	assert.NotPanics(t, func() { pool.Teardown() })
}
