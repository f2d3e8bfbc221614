package forkjoin

import "github.com/Swind/go-forkjoin/core"

// Fork schedules fn to run asynchronously as a child of the frame c
// belongs to, and returns immediately with a Future that resolves once it
// completes. The child is pushed to the calling worker's deque and is
// stealable by any other worker from the moment Fork returns.
func Fork[T any](c *Control, fn func(*Control) (T, error)) Future[T] {
	return core.Fork(c, fn)
}

// Call runs fn synchronously on the calling worker: identical
// result-binding semantics to Fork, but no deque interaction and no steal
// eligibility. Present so call sites can pick call/fork uniformly without
// branching on whether parallelism is worthwhile for a given subproblem.
func Call[T any](c *Control, fn func(*Control) (T, error)) (T, error) {
	return core.Call(c, fn)
}

// Join blocks until every future in fs has resolved, helping the pool make
// progress on other ready frames while it waits rather than idling.
func Join[T any](c *Control, fs ...Future[T]) ([]T, error) {
	return core.Join(c, fs...)
}

// Join2 joins two futures of possibly different result types, covering the
// common two-child fork shape without forcing both children to share a
// single Future instantiation.
func Join2[A, B any](c *Control, fa Future[A], fb Future[B]) (A, B, error) {
	return core.Join2(c, fa, fb)
}

// Submit schedules fn as a root computation on p and returns a Future that
// resolves once it completes, without blocking the caller.
func Submit[T any](p Pool, fn func(*Control) (T, error)) (Future[T], error) {
	return core.Submit(p, fn)
}

// SyncWait submits fn as a root computation on p and blocks the calling
// goroutine — which need not itself be a worker — until it completes.
func SyncWait[T any](p Pool, fn func(*Control) (T, error)) (T, error) {
	return core.SyncWait(p, fn)
}
