// Package forkjoin implements a structured fork-join runtime for
// divide-and-conquer parallelism.
//
// Work is decomposed recursively with Fork and Call; a worker that forks a
// child keeps running until it needs the child's result, at which point it
// Joins — helping the pool steal and run other ready work while it waits,
// rather than idling. Two pool variants are provided: BusyPool spins on an
// empty deque, appropriate for fine-grained, latency-sensitive forks;
// LazyPool parks idle workers after a configurable number of empty steal
// rounds, appropriate for coarser workloads where spinning wastes a core.
//
// # Quick Start
//
//	pool := forkjoin.NewBusyPool(forkjoin.WithWorkers(8))
//	defer pool.Shutdown()
//
//	result, err := forkjoin.SyncWait(pool, fib)
//
//	func fib(c *forkjoin.Control) (int, error) {
//	    n := ... // read from a closure-captured argument
//	    if n < 2 {
//	        return n, nil
//	    }
//	    a, b, err := forkjoin.Join2(c,
//	        forkjoin.Fork(c, fibAt(n-1)),
//	        forkjoin.Fork(c, fibAt(n-2)),
//	    )
//	    return a + b, err
//	}
//
// # Key Concepts
//
//   - Control is the handle every fork/call body receives as its first
//     argument: it carries the running worker and frame explicitly, rather
//     than relying on goroutine-local state.
//   - Fork schedules a child asynchronously and returns immediately; Call
//     runs one synchronously with identical result-binding semantics.
//   - Join blocks until named futures resolve, helping the pool's
//     work-stealing make progress on other frames while it waits.
//
// # Thread Safety
//
// Pool, Control, and Future values are safe to share across the goroutines
// a fork/call body itself spawns only through Fork/Call/Join — spawning
// unstructured goroutines that outlive their parent frame's scope is not
// supported: Join has no way to observe a frame it never scheduled.
package forkjoin
