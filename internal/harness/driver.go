package harness

import (
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joeycumines/go-fiberop"
)

// Driver is a reference interpretation of the FiberOp algebra: given a
// starting node, it walks the continuation stack built up by FlatMap,
// suspending only at ASYNC, DELAY, RACE, and CEDE, resuming via the
// Scheduler it was built with.
type Driver struct {
	scheduler fiberop.Scheduler
	pool      *fiberop.Pool
	metrics   fiberop.DriverMetrics

	// Logger receives diagnostics for panics recovered from THUNK callables.
	// A panic raised by an ASYNC callable is not recovered by the Driver.
	// Defaults to a no-op logger; set directly before the Driver starts
	// running fibers.
	Logger fiberop.Logger
}

// NewDriver constructs a Driver that resumes suspended fibers on scheduler,
// allocating FiberValue/Erased plumbing from pool (GlobalPool if nil).
func NewDriver(scheduler fiberop.Scheduler, pool *fiberop.Pool) *Driver {
	if pool == nil {
		pool = fiberop.GlobalPool()
	}
	return &Driver{scheduler: scheduler, pool: pool, Logger: fiberop.NewNoOpLogger()}
}

// Metrics returns a snapshot of this Driver's resume/suspend/panic/cancel
// counters.
func (d *Driver) Metrics() fiberop.DriverMetrics {
	return fiberop.DriverMetrics{
		Resumes:     atomicLoad(&d.metrics.Resumes),
		Suspensions: atomicLoad(&d.metrics.Suspensions),
		Panics:      atomicLoad(&d.metrics.Panics),
		Cancels:     atomicLoad(&d.metrics.Cancels),
	}
}

func atomicLoad(addr *uint64) uint64 { return atomic.LoadUint64(addr) }
func atomicBump(addr *uint64)        { atomic.AddUint64(addr, 1) }

// fiberState is cancellation context shared by every step of one fiber's
// evaluation (and, independently, by each child of a RACE: a loser's
// cancellation must never reach the winner's state).
type fiberState struct {
	id       uint64
	canceled atomic.Bool
}

// Run evaluates op to completion, invoking done exactly once with the
// resulting FiberValue. Evaluation may complete synchronously on the
// calling goroutine or asynchronously on the Driver's Scheduler, depending
// on whether op suspends.
func (d *Driver) Run(op *fiberop.FiberOp, done func(fiberop.FiberValue)) {
	d.run(op, nil, &fiberState{id: fiberop.AcquireFiberID()}, done)
}

func (d *Driver) run(op *fiberop.FiberOp, stack []fiberop.FlatMapPredicate, state *fiberState, done func(fiberop.FiberValue)) {
	fiberop.SetCurrentFiberID(state.id)
	defer fiberop.ClearCurrentFiberID()

	for {
		atomicBump(&d.metrics.Resumes)

		if state.canceled.Load() {
			var fv fiberop.FiberValue
			fv.SetCanceled()
			atomicBump(&d.metrics.Cancels)
			done(fv)
			return
		}

		switch op.Type() {
		case fiberop.OpValue, fiberop.OpError:
			constant, _ := op.Constant()
			var fv fiberop.FiberValue
			if left, ok := constant.Left(); ok {
				fv.SetValue(left)
			} else {
				right, _ := constant.Right()
				fv.SetError(right)
			}
			next, rest, ok := popContinuation(stack)
			if !ok {
				done(fv)
				return
			}
			op, stack = next(fv), rest
			continue

		case fiberop.OpThunk:
			thunkFn, _ := op.ThunkFn()
			var fv fiberop.FiberValue
			if result, failed := d.invokeThunk(thunkFn); failed {
				fv.SetError(result)
			} else {
				fv.SetValue(result)
			}
			next, rest, ok := popContinuation(stack)
			if !ok {
				done(fv)
				return
			}
			op, stack = next(fv), rest
			continue

		case fiberop.OpFlatMap:
			input, predicate, _ := op.FlatMapParts()
			stack = append(stack, predicate)
			op = input
			continue

		case fiberop.OpCede:
			atomicBump(&d.metrics.Suspensions)
			pool := op.Pool()
			stackCopy, stateCopy := stack, state
			d.scheduler.Submit(func() {
				d.continueWith(unitValue(pool), stackCopy, stateCopy, done)
			})
			return

		case fiberop.OpDelay:
			atomicBump(&d.metrics.Suspensions)
			ms, _ := op.DelayMillis()
			pool := op.Pool()
			stackCopy, stateCopy := stack, state
			d.scheduler.SubmitAfter(time.Duration(ms)*time.Millisecond, func() {
				d.continueWith(unitValue(pool), stackCopy, stateCopy, done)
			})
			return

		case fiberop.OpAsync:
			atomicBump(&d.metrics.Suspensions)
			asyncFn, _ := op.AsyncFn()
			pool := op.Pool()
			stackCopy, stateCopy := stack, state
			deferredResult := asyncFn(d.scheduler)
			deferredResult.OnComplete(func(result fiberop.Erased, err error) {
				var fv fiberop.FiberValue
				if err != nil {
					fv.SetError(fiberop.NewErased(pool, err))
				} else {
					fv.SetValue(result)
				}
				d.continueWith(fv, stackCopy, stateCopy, done)
			})
			return

		case fiberop.OpRace:
			atomicBump(&d.metrics.Suspensions)
			children, _ := op.RaceChildren()
			d.race(children, stack, done)
			return

		case fiberop.OpCancel:
			state.canceled.Store(true)
			var fv fiberop.FiberValue
			fv.SetCanceled()
			atomicBump(&d.metrics.Cancels)
			done(fv)
			return

		default:
			panic("fiberop: driver encountered unknown op type")
		}
	}
}

// invokeThunk runs thunkFn, translating a panic into a FiberValue-carried
// PanicError rather than letting it cross the driver boundary: a THUNK's
// failures must surface as an ERROR FiberValue, not a language-level
// exception that unwinds an unrelated goroutine's stack. failed reports
// whether result carries such a PanicError rather than the thunk's value.
func (d *Driver) invokeThunk(thunkFn fiberop.SyncThunk) (result fiberop.Erased, failed bool) {
	defer func() {
		if r := recover(); r != nil {
			failed = true
			atomicBump(&d.metrics.Panics)
			err := fiberop.RecoverAsError(r, string(debug.Stack()))
			if d.Logger.IsEnabled(fiberop.LevelError) {
				fiberID, _ := fiberop.CurrentFiberID()
				d.Logger.Log(fiberop.LogEntry{
					Level:    fiberop.LevelError,
					Category: "driver",
					FiberID:  fiberID,
					Message:  "recovered panic from THUNK callable",
					Err:      err,
				})
			}
			result = fiberop.NewErased(d.pool, err)
		}
	}()
	return thunkFn(), false
}

// continueWith resumes evaluation after a suspension point with the given
// resolved FiberValue, feeding it to the next continuation (or completing
// the fiber if the stack is empty).
func (d *Driver) continueWith(value fiberop.FiberValue, stack []fiberop.FlatMapPredicate, state *fiberState, done func(fiberop.FiberValue)) {
	if value.IsCanceled() || state.canceled.Load() {
		var fv fiberop.FiberValue
		fv.SetCanceled()
		atomicBump(&d.metrics.Cancels)
		done(fv)
		return
	}
	next, rest, ok := popContinuation(stack)
	if !ok {
		done(value)
		return
	}
	d.run(next(value), rest, state, done)
}

// race launches every child concurrently, each with its own cancellation
// state, resumes the parent fiber with whichever child's FiberValue lands
// first, and signals cancellation to the rest.
func (d *Driver) race(children []*fiberop.FiberOp, stack []fiberop.FlatMapPredicate, done func(fiberop.FiberValue)) {
	if len(children) == 0 {
		var fv fiberop.FiberValue
		fv.SetCanceled()
		done(fv)
		return
	}

	var once sync.Once
	childStates := make([]*fiberState, len(children))
	for i := range childStates {
		childStates[i] = &fiberState{id: fiberop.AcquireFiberID()}
	}

	for i, child := range children {
		i, child := i, child
		d.scheduler.Submit(func() {
			d.run(child, nil, childStates[i], func(fv fiberop.FiberValue) {
				once.Do(func() {
					for j, state := range childStates {
						if j != i {
							state.canceled.Store(true)
						}
					}
					d.continueWith(fv, stack, &fiberState{id: fiberop.AcquireFiberID()}, done)
				})
			})
		})
	}
}

func popContinuation(stack []fiberop.FlatMapPredicate) (fiberop.FlatMapPredicate, []fiberop.FlatMapPredicate, bool) {
	if len(stack) == 0 {
		return nil, nil, false
	}
	last := len(stack) - 1
	return stack[last], stack[:last], true
}

func unitValue(pool *fiberop.Pool) fiberop.FiberValue {
	var fv fiberop.FiberValue
	fv.SetValue(fiberop.NewErased(pool, fiberop.None{}))
	return fv
}

