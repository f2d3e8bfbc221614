package core

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// idlePolicy governs what a worker does once it finds nothing to pop,
// steal, or pull from the root queue. BusyPool spins immediately back into
// the loop; LazyPool parks after a configurable number of empty rounds.
type idlePolicy interface {
	// onIdle is called after one failed round. It returns false only when
	// the engine is shutting down and the worker should stop looping.
	onIdle(w *Worker) bool
	wakeOne()
	wakeAll()
}

// engine is the scheduling core shared by BusyPool and LazyPool: worker
// set, root-submission queue, shutdown/lifecycle state, and the
// observability seams. The two pool variants differ only in which
// idlePolicy they install.
type engine struct {
	name   string
	config *PoolConfig

	workers   []*Worker
	rootQueue chan *Frame

	idle idlePolicy

	history *rootHistory

	shuttingDown atomic.Bool
	activeFrames atomic.Int32

	startOnce sync.Once
	wg        sync.WaitGroup
}

const rootQueueCapacity = 4096

func newEngine(cfg *PoolConfig) *engine {
	if cfg == nil {
		cfg = DefaultPoolConfig()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	e := &engine{
		name:      cfg.Name,
		config:    cfg,
		rootQueue: make(chan *Frame, rootQueueCapacity),
		history:   newRootHistory(cfg.HistoryCapacity),
	}
	e.workers = make([]*Worker, cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		stack := NewVirtualStack(cfg.StackCapacity)
		e.workers[i] = newWorker(i, e, stack)
	}
	return e
}

// start launches one goroutine per worker. Safe to call multiple times;
// only the first call has any effect.
func (e *engine) start() {
	e.startOnce.Do(func() {
		for _, w := range e.workers {
			e.wg.Add(1)
			go e.workerLoop(w)
		}
	})
}

func (e *engine) workerLoop(w *Worker) {
	defer e.wg.Done()
	for {
		if w.runOneStep() {
			continue
		}
		if !e.idle.onIdle(w) {
			return
		}
	}
}

// submit enqueues a root frame running fn and wakes one idle worker. It
// fails with ErrPoolShutdown once shutdown has begun.
func submit[T any](e *engine, fn func(*Control) (T, error)) (Future[T], error) {
	if e.shuttingDown.Load() {
		var zero Future[T]
		return zero, ErrPoolShutdown
	}

	root := NewFrame(FrameRoot, nil, nil, nil)
	rec := e.history.begin(fn)
	root.resume = func(w *Worker) {
		runBody(w, root, fn)
		e.history.finish(rec, root, e.activeFrames.Load())
	}

	e.rootQueue <- root
	e.idle.wakeOne()
	return NewFuture[T](root), nil
}

// syncWait submits fn as a root and blocks the *calling* goroutine (which is
// not itself a worker and runs no pop/steal loop of its own) on a channel
// close until some pool worker has picked up the root, run it to
// completion, and recorded its history entry, then reads the bound result
// off the now-terminal root frame.
func syncWait[T any](e *engine, fn func(*Control) (T, error)) (T, error) {
	var zero T

	root := NewFrame(FrameRoot, nil, nil, nil)
	rec := e.history.begin(fn)
	done := make(chan struct{})
	root.resume = func(w *Worker) {
		runBody(w, root, fn)
		e.history.finish(rec, root, e.activeFrames.Load())
		close(done)
	}

	if e.shuttingDown.Load() {
		return zero, ErrPoolShutdown
	}
	e.rootQueue <- root
	e.idle.wakeOne()

	<-done
	root.setStatus(StatusRetired)
	if root.err != nil {
		return zero, root.err
	}
	v, ok := bindResult[T](root.result)
	if !ok {
		return zero, &TaskError{Kind: ErrMisuse, Frame: root}
	}
	return v, nil
}

// WaitIdle blocks until no frame is running anywhere in the pool and every
// worker's deque and the root queue are empty. It does not prevent new
// submissions from arriving after it returns.
func (e *engine) waitIdle(ctx context.Context) error {
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for {
		if e.activeFrames.Load() == 0 && len(e.rootQueue) == 0 && e.allDequesEmpty() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (e *engine) allDequesEmpty() bool {
	for _, w := range e.workers {
		if !w.Deque.IsEmpty() {
			return false
		}
	}
	return true
}

// shutdown marks the engine as shutting down, wakes every parked worker so
// it can observe the flag, and waits for all worker goroutines to exit.
func (e *engine) shutdown() {
	e.shuttingDown.Store(true)
	e.idle.wakeAll()
	e.wg.Wait()
	for _, w := range e.workers {
		w.Stack.Release()
	}
}

// WorkerStats reports per-worker deque depth and stack usage, for
// diagnostics that Stats' pool-wide aggregate can't answer.
func (e *engine) WorkerStats() []WorkerStats {
	out := make([]WorkerStats, len(e.workers))
	for i, w := range e.workers {
		out[i] = WorkerStats{
			ID:         w.ID,
			Queued:     w.Deque.Size(),
			StackUsed:  w.Stack.InUse(),
			StackCap:   w.Stack.Capacity(),
			HasFailure: w.Stack.PeekFailure(),
		}
	}
	return out
}

// Stats reports a point-in-time snapshot of the pool's load.
func (e *engine) Stats() PoolStats {
	queued := int64(0)
	for _, w := range e.workers {
		queued += w.Deque.Size()
	}
	return PoolStats{
		Name:    e.name,
		Workers: len(e.workers),
		Queued:  int(queued),
		Active:  int(e.activeFrames.Load()),
		Roots:   len(e.rootQueue),
		Running: !e.shuttingDown.Load(),
	}
}
