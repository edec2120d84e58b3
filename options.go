package fiberop

// poolOptions holds configuration for constructing a Pool.
type poolOptions struct {
	logger Logger
}

// PoolOption configures a [Pool] at construction.
type PoolOption interface {
	applyPool(*poolOptions)
}

type poolOptionFunc func(*poolOptions)

func (f poolOptionFunc) applyPool(o *poolOptions) { f(o) }

// WithPoolLogger attaches a [Logger] to a Pool for fresh-allocation and
// fallback-allocation diagnostics. The hot allocate/free path never logs;
// only a tier running out of recycled blocks (an infrequent event under
// steady-state reuse) and system-allocator fallback do.
func WithPoolLogger(logger Logger) PoolOption {
	return poolOptionFunc(func(o *poolOptions) {
		o.logger = logger
	})
}

func resolvePoolOptions(opts []PoolOption) *poolOptions {
	cfg := &poolOptions{logger: NewNoOpLogger()}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.applyPool(cfg)
	}
	return cfg
}

// readyQueueOptions holds configuration for constructing a ReadyQueue.
type readyQueueOptions struct {
	maxSize int
	logger  Logger
}

// ReadyQueueOption configures a [ReadyQueue] at construction.
type ReadyQueueOption interface {
	applyReadyQueue(*readyQueueOptions)
}

type readyQueueOptionFunc func(*readyQueueOptions)

func (f readyQueueOptionFunc) applyReadyQueue(o *readyQueueOptions) { f(o) }

// WithMaxQueueSize bounds a ReadyQueue. Without this option the queue is
// unbounded (max int).
func WithMaxQueueSize(n int) ReadyQueueOption {
	return readyQueueOptionFunc(func(o *readyQueueOptions) {
		o.maxSize = n
	})
}

// WithReadyQueueLogger attaches a [Logger] to a ReadyQueue for overflow
// eviction diagnostics.
func WithReadyQueueLogger(logger Logger) ReadyQueueOption {
	return readyQueueOptionFunc(func(o *readyQueueOptions) {
		o.logger = logger
	})
}

func resolveReadyQueueOptions(opts []ReadyQueueOption) *readyQueueOptions {
	cfg := &readyQueueOptions{maxSize: int(^uint(0) >> 1), logger: NewNoOpLogger()}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.applyReadyQueue(cfg)
	}
	return cfg
}
