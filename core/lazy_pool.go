package core

import (
	"context"
	"sync"
)

// LazyPool is the park/wake-scheduled pool variant: a worker that has run
// IdleStealBudget empty rounds since it last parked parks on a condition
// variable instead of continuing to spin. The count is reset only when the
// worker parks, not when a round finds work, so the rounds need not be
// consecutive. A PushBottom-producing Fork, or a new root
// Submit, wakes exactly one parked worker — a push creates exactly one new
// unit of stealable work, so waking one consumer is enough. A frame reaching
// a terminal status (see runBody in protocol.go, and the stack-overflow
// branch of runFrame) wakes every parked worker instead: any number of them
// could be blocked in a Join/Join2 waiting specifically on that frame, there
// is no per-frame wait queue to target the right one directly, and waking
// only one risks picking a worker whose own join condition is still false
// while the one that actually needed this completion sleeps on. Shutdown
// also wakes all of them.
//
// Lost-wakeup avoidance follows the standard "bump a generation counter
// before signalling, have the waiter recheck the generation under the lock
// after waking" pattern: a wake that happens between a worker's last failed
// runOneStep and the moment it parks is never missed, because the
// generation will already have moved past what the worker last observed.
type LazyPool struct {
	eng *engine
	idl *lazyIdle
}

type lazyIdle struct {
	eng    *engine
	budget int

	mu       sync.Mutex
	cond     *sync.Cond
	gen      int64
	lastSeen []int64
	rounds   []int
}

func newLazyIdle(eng *engine, budget int) *lazyIdle {
	l := &lazyIdle{
		eng:      eng,
		budget:   budget,
		lastSeen: make([]int64, len(eng.workers)),
		rounds:   make([]int, len(eng.workers)),
	}
	l.cond = sync.NewCond(&l.mu)
	return l
}

func (l *lazyIdle) onIdle(w *Worker) bool {
	if l.eng.shuttingDown.Load() {
		return false
	}

	l.rounds[w.ID]++
	if l.rounds[w.ID] < l.budget {
		return true
	}

	l.eng.config.Logger.Debug("worker parked", F("worker", w.ID))

	l.mu.Lock()
	for !l.eng.shuttingDown.Load() && l.gen == l.lastSeen[w.ID] {
		l.cond.Wait()
	}
	l.lastSeen[w.ID] = l.gen
	shuttingDown := l.eng.shuttingDown.Load()
	l.mu.Unlock()

	l.rounds[w.ID] = 0
	if !shuttingDown {
		l.eng.config.Logger.Debug("worker woke", F("worker", w.ID))
	}
	return !shuttingDown
}

func (l *lazyIdle) wakeOne() {
	l.mu.Lock()
	l.gen++
	l.mu.Unlock()
	l.cond.Signal()
}

func (l *lazyIdle) wakeAll() {
	l.mu.Lock()
	l.gen++
	l.mu.Unlock()
	l.cond.Broadcast()
}

// NewLazyPool constructs and starts a LazyPool.
func NewLazyPool(opts ...Option) *LazyPool {
	cfg := DefaultPoolConfig()
	cfg.Name = "lazy-pool"
	cfg.apply(opts)

	eng := newEngine(cfg)
	idl := newLazyIdle(eng, cfg.IdleStealBudget)
	eng.idle = idl

	p := &LazyPool{eng: eng, idl: idl}
	eng.start()
	return p
}

func (p *LazyPool) engineHandle() *engine { return p.eng }

func (p *LazyPool) Shutdown() { p.eng.shutdown() }

func (p *LazyPool) WaitIdle(ctx context.Context) error { return p.eng.waitIdle(ctx) }

func (p *LazyPool) Stats() PoolStats { return p.eng.Stats() }

func (p *LazyPool) WorkerStats() []WorkerStats { return p.eng.WorkerStats() }

func (p *LazyPool) RecentRoots(limit int) []RootExecutionRecord { return p.eng.history.Recent(limit) }
