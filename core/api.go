package core

import "context"

// Pool is the capability surface common to BusyPool and LazyPool. The
// engineHandle method is intentionally unexported: external packages
// consume Pool values and pass them to Submit/SyncWait, they do not
// implement new pool variants from outside this package.
type Pool interface {
	engineHandle() *engine
	Shutdown()
	WaitIdle(ctx context.Context) error
	Stats() PoolStats
	WorkerStats() []WorkerStats
	RecentRoots(limit int) []RootExecutionRecord
}

var (
	_ Pool = (*BusyPool)(nil)
	_ Pool = (*LazyPool)(nil)
)

// Submit schedules fn as a root computation on p and returns a Future that
// resolves once it completes, without blocking the caller.
func Submit[T any](p Pool, fn func(*Control) (T, error)) (Future[T], error) {
	return submit[T](p.engineHandle(), fn)
}

// SyncWait submits fn as a root computation on p and blocks the calling
// goroutine — which need not itself be a worker — until it completes,
// returning the bound result directly.
func SyncWait[T any](p Pool, fn func(*Control) (T, error)) (T, error) {
	return syncWait[T](p.engineHandle(), fn)
}
