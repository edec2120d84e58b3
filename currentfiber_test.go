package fiberop_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/go-fiberop"
)

func TestAcquireFiberID_Monotonic(t *testing.T) {
	a := fiberop.AcquireFiberID()
	b := fiberop.AcquireFiberID()
	assert.Less(t, a, b)
}

func TestCurrentFiberID_SetClear(t *testing.T) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, ok := fiberop.CurrentFiberID()
		assert.False(t, ok)

		id := fiberop.AcquireFiberID()
		fiberop.SetCurrentFiberID(id)

		got, ok := fiberop.CurrentFiberID()
		require.True(t, ok)
		assert.Equal(t, id, got)

		fiberop.ClearCurrentFiberID()
		_, ok = fiberop.CurrentFiberID()
		assert.False(t, ok)
	}()
	<-done
}

func TestCurrentFiberID_IsolatedPerGoroutine(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(id uint64) {
			defer wg.Done()
			fiberop.SetCurrentFiberID(id)
			defer fiberop.ClearCurrentFiberID()

			got, ok := fiberop.CurrentFiberID()
			require.True(t, ok)
			assert.Equal(t, id, got)
		}(uint64(i))
	}
	wg.Wait()
}
