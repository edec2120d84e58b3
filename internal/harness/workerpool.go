package harness

import (
	"container/heap"
	"math/rand"
	"sync"
	"time"

	"github.com/joeycumines/go-fiberop"
)

// WorkerPool is a fixed-size goroutine pool satisfying fiberop.Scheduler,
// built directly on fiberop.ReadyQueue: each worker owns a queue and steals
// from a random sibling when its own is empty, a work-stealing shape well
// suited to a scheduler that owns fibers as work items.
type WorkerPool struct {
	queues  []*fiberop.ReadyQueue
	wg      sync.WaitGroup
	closing chan struct{}
	closed  sync.Once

	timersMu sync.Mutex
	timers   timerHeap
	timerNew chan struct{}

	next int // round-robin submit cursor, not synchronized: only Submit's caller needs consistency, and races just skew distribution
}

// NewWorkerPool starts a WorkerPool with the given number of workers.
func NewWorkerPool(workers int) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	p := &WorkerPool{
		queues:   make([]*fiberop.ReadyQueue, workers),
		closing:  make(chan struct{}),
		timerNew: make(chan struct{}, 1),
	}
	for i := range p.queues {
		p.queues[i] = fiberop.NewReadyQueue()
	}

	p.wg.Add(workers + 1)
	for i := range p.queues {
		go p.runWorker(i)
	}
	go p.runTimers()

	return p
}

// Submit enqueues fn on a queue chosen round-robin, falling back to an
// arbitrary queue's PushBack if the chosen one happens to be momentarily
// full (bounded queues are not in play here since NewReadyQueue defaults to
// unbounded, but the fallback tries every queue before giving up). If every
// queue is full, fn is dropped without running.
func (p *WorkerPool) Submit(fn func()) {
	idx := p.next % len(p.queues)
	p.next++
	if p.queues[idx].PushBack(fiberop.Task(fn)) {
		return
	}
	for _, q := range p.queues {
		if q.PushBack(fiberop.Task(fn)) {
			return
		}
	}
}

// SubmitAfter schedules fn to run no sooner than delay from now, via an
// internal min-heap of pending timers serviced by a single timer goroutine
// (the same shape as an event loop's timer wheel, sized down to a plain
// binary heap since this harness has no per-tick budget to amortize
// against).
func (p *WorkerPool) SubmitAfter(delay time.Duration, fn func()) {
	p.timersMu.Lock()
	heap.Push(&p.timers, &timerEntry{at: time.Now().Add(delay), fn: fn})
	p.timersMu.Unlock()

	select {
	case p.timerNew <- struct{}{}:
	default:
	}
}

// NowMillis returns wall-clock time in milliseconds. There is no
// virtual/test clock here; tests that need determinism should fake
// fiberop.Scheduler directly instead of going through WorkerPool.
func (p *WorkerPool) NowMillis() int64 {
	return time.Now().UnixMilli()
}

// Shutdown stops every worker and the timer goroutine. It does not wait for
// already-queued work to drain.
func (p *WorkerPool) Shutdown() {
	p.closed.Do(func() {
		close(p.closing)
		for _, q := range p.queues {
			q.Wake()
		}
	})
	p.wg.Wait()
}

func (p *WorkerPool) runWorker(idx int) {
	defer p.wg.Done()
	own := p.queues[idx]
	for {
		select {
		case <-p.closing:
			return
		default:
		}

		task, ok := own.PopFront()
		if !ok {
			task, ok = p.steal(idx)
		}
		if ok {
			task()
			continue
		}

		own.AwaitWork(10 * time.Millisecond)
	}
}

func (p *WorkerPool) steal(idx int) (fiberop.Task, bool) {
	if len(p.queues) < 2 {
		return nil, false
	}
	start := rand.Intn(len(p.queues))
	for i := 0; i < len(p.queues); i++ {
		victimIdx := (start + i) % len(p.queues)
		if victimIdx == idx {
			continue
		}
		if p.queues[idx].StealFrom(p.queues[victimIdx]) {
			return p.queues[idx].PopFront()
		}
	}
	return nil, false
}

func (p *WorkerPool) runTimers() {
	defer p.wg.Done()
	for {
		p.timersMu.Lock()
		var wait time.Duration
		if p.timers.Len() == 0 {
			wait = time.Hour
		} else {
			wait = time.Until(p.timers[0].at)
		}
		p.timersMu.Unlock()

		if wait < 0 {
			wait = 0
		}
		timer := time.NewTimer(wait)
		select {
		case <-p.closing:
			timer.Stop()
			return
		case <-p.timerNew:
			timer.Stop()
		case <-timer.C:
		}

		now := time.Now()
		p.timersMu.Lock()
		var ready []*timerEntry
		for p.timers.Len() > 0 && !p.timers[0].at.After(now) {
			ready = append(ready, heap.Pop(&p.timers).(*timerEntry))
		}
		p.timersMu.Unlock()

		for _, entry := range ready {
			p.Submit(entry.fn)
		}
	}
}

type timerEntry struct {
	at time.Time
	fn func()
}

type timerHeap []*timerEntry

func (h timerHeap) Len() int            { return len(h) }
func (h timerHeap) Less(i, j int) bool  { return h[i].at.Before(h[j].at) }
func (h timerHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *timerHeap) Push(x interface{}) { *h = append(*h, x.(*timerEntry)) }
func (h *timerHeap) Pop() interface{} {
	old := *h
	n := len(old)
	entry := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return entry
}
