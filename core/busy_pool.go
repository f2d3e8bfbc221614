package core

import "context"

// BusyPool is the spin-scheduled pool variant: a worker with nothing to
// pop, steal, or pull from the root queue immediately loops back into
// stealing. Appropriate for fine-grained, latency-sensitive forks where
// the cost of ever going to sleep outweighs the wasted CPU of spinning.
type BusyPool struct {
	eng *engine
}

type busyIdle struct{ eng *engine }

func (b *busyIdle) onIdle(w *Worker) bool { return !b.eng.shuttingDown.Load() }
func (b *busyIdle) wakeOne()              {}
func (b *busyIdle) wakeAll()              {}

// NewBusyPool constructs and starts a BusyPool.
func NewBusyPool(opts ...Option) *BusyPool {
	cfg := DefaultPoolConfig()
	cfg.Name = "busy-pool"
	cfg.apply(opts)

	eng := newEngine(cfg)
	eng.idle = &busyIdle{eng: eng}
	p := &BusyPool{eng: eng}
	eng.start()
	return p
}

func (p *BusyPool) engineHandle() *engine { return p.eng }

// Shutdown stops accepting new submissions and waits for every worker to
// drain and exit.
func (p *BusyPool) Shutdown() { p.eng.shutdown() }

// WaitIdle blocks until the pool has no in-flight work.
func (p *BusyPool) WaitIdle(ctx context.Context) error { return p.eng.waitIdle(ctx) }

// Stats reports a point-in-time load snapshot.
func (p *BusyPool) Stats() PoolStats { return p.eng.Stats() }

func (p *BusyPool) WorkerStats() []WorkerStats { return p.eng.WorkerStats() }

// RecentRoots returns up to limit of the most recently completed root
// submissions.
func (p *BusyPool) RecentRoots(limit int) []RootExecutionRecord { return p.eng.history.Recent(limit) }
