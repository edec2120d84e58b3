package fiberop_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/go-fiberop"
)

func TestReadyQueue_PushBackPopFrontFIFO(t *testing.T) {
	q := fiberop.NewReadyQueue()
	var order []int
	for i := 0; i < 3; i++ {
		i := i
		require.True(t, q.PushBack(func() { order = append(order, i) }))
	}

	for i := 0; i < 3; i++ {
		task, ok := q.PopFront()
		require.True(t, ok)
		task()
	}
	assert.Equal(t, []int{0, 1, 2}, order)
}

func TestReadyQueue_PushFrontOverflowEviction(t *testing.T) {
	q := fiberop.NewReadyQueue(fiberop.WithMaxQueueSize(2))

	ran := false
	require.True(t, q.PushBack(func() {}))
	require.True(t, q.PushBack(func() { ran = true }))

	overflow, evicted := q.PushFront(func() {})
	assert.True(t, evicted)
	require.NotNil(t, overflow)
	overflow()
	assert.True(t, ran)
	assert.Equal(t, 2, q.Size())
}

func TestReadyQueue_PushBackRejectsWhenFull(t *testing.T) {
	q := fiberop.NewReadyQueue(fiberop.WithMaxQueueSize(1))
	require.True(t, q.PushBack(func() {}))
	assert.False(t, q.PushBack(func() {}))
}

func TestReadyQueue_PushBatchBackAllOrNothing(t *testing.T) {
	q := fiberop.NewReadyQueue(fiberop.WithMaxQueueSize(2))
	batch := []fiberop.Task{func() {}, func() {}, func() {}}
	assert.False(t, q.PushBatchBack(batch))
	assert.Equal(t, 0, q.Size())

	assert.True(t, q.PushBatchBack(batch[:2]))
	assert.Equal(t, 2, q.Size())
}

func TestReadyQueue_PopBackLIFO(t *testing.T) {
	q := fiberop.NewReadyQueue()
	lastRan := false
	require.True(t, q.PushBack(func() {}))
	require.True(t, q.PushBack(func() { lastRan = true }))

	task, ok := q.PopBack()
	require.True(t, ok)
	task()
	assert.True(t, lastRan)
	assert.Equal(t, 1, q.Size())
}

func TestReadyQueue_StealFromMovesOneTask(t *testing.T) {
	victim := fiberop.NewReadyQueue()
	thief := fiberop.NewReadyQueue()

	ran := false
	require.True(t, victim.PushBack(func() {}))
	require.True(t, victim.PushBack(func() { ran = true }))

	assert.True(t, thief.StealFrom(victim))
	assert.Equal(t, 1, victim.Size())
	assert.Equal(t, 1, thief.Size())

	task, ok := thief.PopFront()
	require.True(t, ok)
	task()
	assert.True(t, ran)
}

func TestReadyQueue_StealFromEmptyVictimFails(t *testing.T) {
	victim := fiberop.NewReadyQueue()
	thief := fiberop.NewReadyQueue()
	assert.False(t, thief.StealFrom(victim))
}

func TestReadyQueue_StealFromSelfFails(t *testing.T) {
	q := fiberop.NewReadyQueue()
	require.True(t, q.PushBack(func() {}))
	assert.False(t, q.StealFrom(q))
}

func TestReadyQueue_ConcurrentStealingNeverDeadlocks(t *testing.T) {
	a := fiberop.NewReadyQueue()
	b := fiberop.NewReadyQueue()
	for i := 0; i < 100; i++ {
		a.PushBack(func() {})
		b.PushBack(func() {})
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); a.StealFrom(b) }()
		go func() { defer wg.Done(); b.StealFrom(a) }()
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("concurrent steal_from deadlocked")
	}
}

func TestReadyQueue_AwaitWorkWakesOnPush(t *testing.T) {
	q := fiberop.NewReadyQueue()
	done := make(chan struct{})
	go func() {
		q.AwaitWork(time.Second)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	q.PushBack(func() {})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("AwaitWork did not wake on push")
	}
}

func TestReadyQueue_Metrics(t *testing.T) {
	q := fiberop.NewReadyQueue()
	q.PushBack(func() {})
	q.PopFront()

	m := q.Metrics()
	assert.Equal(t, uint64(1), m.Pushed)
	assert.Equal(t, uint64(1), m.Popped)
}
