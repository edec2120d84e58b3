package fiberop_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joeycumines/go-fiberop"
)

func TestSpinLock_MutualExclusion(t *testing.T) {
	lock := &fiberop.SpinLock{}
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			guard := fiberop.NewSpinLockGuard(lock)
			defer guard.Unlock()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, counter)
}
