package fiberop

import (
	"container/list"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/exp/slices"
)

// Task is a unit of scheduler work: a fiber resumption, a timer callback, or
// anything else a Driver hands off to a worker.
type Task func()

var readyQueueSeq atomic.Uint64

// ReadyQueue is a bounded, thread-safe double-ended queue of Task values,
// purpose-built for a work-stealing scheduler: owners push and pop from the
// front (their own end), idle workers steal from the back of someone else's
// queue, and a full queue sheds its oldest item rather than blocking a
// producer that must make progress.
type ReadyQueue struct {
	seq uint64 // creation order, used to break steal_from lock-ordering ties

	mu           sync.Mutex
	cond         *sync.Cond
	tasks        list.List
	maxQueueSize int
	size         atomic.Int64 // memoized size; relaxed reads are fine, an approximate count suffices
	logger       Logger

	metrics ReadyQueueMetrics
}

// NewReadyQueue constructs an empty ReadyQueue. opts may bound its capacity
// with WithMaxQueueSize; the default is unbounded.
func NewReadyQueue(opts ...ReadyQueueOption) *ReadyQueue {
	cfg := resolveReadyQueueOptions(opts)
	q := &ReadyQueue{
		seq:          readyQueueSeq.Add(1),
		maxQueueSize: cfg.maxSize,
		logger:       cfg.logger,
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Size returns the queue's current length. It is a relaxed, momentary
// snapshot — by the time the caller observes it, concurrent pushes/pops may
// have already changed it.
func (q *ReadyQueue) Size() int {
	return int(q.size.Load())
}

// Empty reports whether the queue currently holds no tasks.
func (q *ReadyQueue) Empty() bool {
	return q.size.Load() == 0
}

// AwaitWork blocks the calling goroutine until either a task becomes
// available, [ReadyQueue.Wake] is called, or timeout elapses.
func (q *ReadyQueue) AwaitWork(timeout time.Duration) {
	done := make(chan struct{})
	timer := time.AfterFunc(timeout, func() {
		q.mu.Lock()
		close(done)
		q.cond.Broadcast()
		q.mu.Unlock()
	})
	defer timer.Stop()

	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		select {
		case <-done:
			return
		default:
		}
		if q.tasks.Len() > 0 {
			return
		}
		q.cond.Wait()
	}
}

// PushFront pushes task to the front of the queue. If the queue is already
// at capacity, the oldest task (the back of the queue) is evicted and
// returned alongside ok=true so the caller can reschedule or drop it rather
// than silently lose work.
func (q *ReadyQueue) PushFront(task Task) (overflow Task, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.tasks.Len()+1 > q.maxQueueSize {
		back := q.tasks.Back()
		overflow = q.tasks.Remove(back).(Task)
		q.tasks.PushFront(task)
		atomicAddUint64(&q.metrics.Overflow, 1)
		if q.logger.IsEnabled(LevelWarn) {
			q.logger.Log(LogEntry{
				Level:    LevelWarn,
				Category: "readyqueue",
				Message:  "evicted oldest task: queue at capacity",
			})
		}
		return overflow, true
	}

	q.tasks.PushFront(task)
	q.size.Add(1)
	atomicAddUint64(&q.metrics.Pushed, 1)
	q.cond.Signal()
	return nil, false
}

// PushBack pushes task to the back of the queue, returning false without
// modifying the queue if it is already at capacity.
func (q *ReadyQueue) PushBack(task Task) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.tasks.Len() >= q.maxQueueSize {
		return false
	}

	q.tasks.PushBack(task)
	q.size.Add(1)
	atomicAddUint64(&q.metrics.Pushed, 1)
	q.cond.Signal()
	return true
}

// PushBatchBack pushes every task in batch to the back of the queue,
// atomically: either all of them fit and are pushed, or none are, returning
// false.
func (q *ReadyQueue) PushBatchBack(batch []Task) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.tasks.Len()+len(batch) > q.maxQueueSize {
		return false
	}

	// slices.Clone guards against a caller mutating batch's backing array
	// after this call returns but before every element has been copied
	// into the list — the batch is logically taken by value, matching the
	// by-value std::vector<std::function<void()>> parameter it mirrors.
	for _, task := range slices.Clone(batch) {
		q.tasks.PushBack(task)
	}
	q.size.Add(int64(len(batch)))
	atomicAddUint64(&q.metrics.Pushed, uint64(len(batch)))
	q.cond.Signal()
	return true
}

// PopFront removes and returns the task at the front of the queue, or
// ok=false if the queue is empty.
func (q *ReadyQueue) PopFront() (task Task, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	front := q.tasks.Front()
	if front == nil {
		return nil, false
	}
	task = q.tasks.Remove(front).(Task)
	q.size.Add(-1)
	atomicAddUint64(&q.metrics.Popped, 1)
	return task, true
}

// PopBack removes and returns the task at the back of the queue, or
// ok=false if the queue is empty.
func (q *ReadyQueue) PopBack() (task Task, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	back := q.tasks.Back()
	if back == nil {
		return nil, false
	}
	task = q.tasks.Remove(back).(Task)
	q.size.Add(-1)
	atomicAddUint64(&q.metrics.Popped, 1)
	return task, true
}

// StealFrom moves one task from the back of victim to the front of q,
// returning true iff a task was moved. Locks on q and victim are acquired
// in a fixed order (by each queue's creation sequence number, not by
// address) so that two workers stealing from each other at the same time
// can never deadlock.
func (q *ReadyQueue) StealFrom(victim *ReadyQueue) bool {
	if q == victim {
		return false
	}

	first, second := q, victim
	if victim.seq < q.seq {
		first, second = victim, q
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	second.mu.Lock()
	defer second.mu.Unlock()

	if q.tasks.Len() >= q.maxQueueSize || victim.tasks.Len() == 0 {
		return false
	}

	back := victim.tasks.Back()
	task := victim.tasks.Remove(back).(Task)
	q.tasks.PushFront(task)

	q.size.Add(1)
	victim.size.Add(-1)
	atomicAddUint64(&q.metrics.Stolen, 1)
	q.cond.Signal()
	return true
}

// Wake unblocks every goroutine currently parked in AwaitWork, regardless of
// whether a task is actually available. A scheduler uses this to force a poll
// after changing external state (e.g. a shutdown flag) that AwaitWork's
// normal signal path wouldn't otherwise observe.
func (q *ReadyQueue) Wake() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.cond.Broadcast()
}

// Metrics returns a snapshot of this queue's push/pop/overflow/steal
// counters.
func (q *ReadyQueue) Metrics() ReadyQueueMetrics {
	return ReadyQueueMetrics{
		Pushed:   atomicLoadUint64(&q.metrics.Pushed),
		Popped:   atomicLoadUint64(&q.metrics.Popped),
		Overflow: atomicLoadUint64(&q.metrics.Overflow),
		Stolen:   atomicLoadUint64(&q.metrics.Stolen),
	}
}
