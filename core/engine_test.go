package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func newPool(t *testing.T, variant string, workers int, opts ...Option) Pool {
	t.Helper()
	allOpts := append([]Option{WithWorkers(workers)}, opts...)
	var p Pool
	switch variant {
	case "busy":
		p = NewBusyPool(allOpts...)
	case "lazy":
		p = NewLazyPool(append(allOpts, WithIdleStealBudget(4))...)
	default:
		t.Fatalf("unknown pool variant %q", variant)
	}
	t.Cleanup(p.Shutdown)
	return p
}

func fibTask(c *Control, n int) (int, error) {
	if n < 2 {
		return n, nil
	}
	left := Fork(c, func(c *Control) (int, error) { return fibTask(c, n-1) })
	right, err := Call(c, func(c *Control) (int, error) { return fibTask(c, n-2) })
	if err != nil {
		return 0, err
	}
	results, err := Join(c, left)
	if err != nil {
		return 0, err
	}
	return results[0] + right, nil
}

func TestFibonacci_AcrossWorkerCountsAndVariants(t *testing.T) {
	cases := []struct {
		n    int
		want int
	}{
		{30, 832040},
		{35, 9227465},
	}

	for _, variant := range []string{"busy", "lazy"} {
		for _, workers := range []int{1, 2, 4, 8} {
			for _, tc := range cases {
				variant, workers, tc := variant, workers, tc
				t.Run(fmt.Sprintf("%s/workers=%d/fib(%d)", variant, workers, tc.n), func(t *testing.T) {
					pool := newPool(t, variant, workers)
					got, err := SyncWait(pool, func(c *Control) (int, error) { return fibTask(c, tc.n) })
					if err != nil {
						t.Fatalf("SyncWait failed: %v", err)
					}
					if got != tc.want {
						t.Fatalf("fib(%d) = %d, want %d", tc.n, got, tc.want)
					}
				})
			}
		}
	}
}

func nqueens(c *Control, n int, placed []int) (int, error) {
	if len(placed) == n {
		return 1, nil
	}

	var futures []Future[int]
	row := len(placed)
	for col := 0; col < n; col++ {
		safe := true
		for r, pc := range placed {
			if pc == col || row-r == col-pc || row-r == pc-col {
				safe = false
				break
			}
		}
		if !safe {
			continue
		}
		next := append(append([]int{}, placed...), col)
		futures = append(futures, Fork(c, func(c *Control) (int, error) {
			return nqueens(c, n, next)
		}))
	}

	results, err := Join(c, futures...)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, r := range results {
		total += r
	}
	return total, nil
}

func TestNQueens_MatchesSequentialOracle(t *testing.T) {
	cases := map[int]int{8: 92, 10: 724, 12: 14200}

	for _, variant := range []string{"busy", "lazy"} {
		for n, want := range cases {
			variant, n, want := variant, n, want
			t.Run(fmt.Sprintf("%s/n=%d", variant, n), func(t *testing.T) {
				pool := newPool(t, variant, 4)
				got, err := SyncWait(pool, func(c *Control) (int, error) { return nqueens(c, n, nil) })
				if err != nil {
					t.Fatalf("SyncWait failed: %v", err)
				}
				if got != want {
					t.Fatalf("nqueens(%d) = %d, want %d", n, got, want)
				}
			})
		}
	}
}

func parallelIncrementOnce(c *Control, data []int, grain int) error {
	n := len(data)
	if grain <= 0 || grain >= n {
		for i := range data {
			data[i]++
		}
		return nil
	}

	var futures []Future[Ignored]
	for start := 0; start < n; start += grain {
		end := start + grain
		if end > n {
			end = n
		}
		chunk := data[start:end]
		futures = append(futures, Fork(c, func(c *Control) (Ignored, error) {
			for i := range chunk {
				chunk[i]++
			}
			return Ignored{}, nil
		}))
	}

	_, err := Join(c, futures...)
	return err
}

func TestParallelIncrement_GrainSizes(t *testing.T) {
	const length = 10000
	const applications = 10

	for _, variant := range []string{"busy", "lazy"} {
		for _, grain := range []int{1, 100, 300, 20000} {
			variant, grain := variant, grain
			t.Run(fmt.Sprintf("%s/grain=%d", variant, grain), func(t *testing.T) {
				pool := newPool(t, variant, 4)

				data := make([]int, length)
				for i := range data {
					data[i] = i
				}

				for app := 0; app < applications; app++ {
					_, err := SyncWait(pool, func(c *Control) (Ignored, error) {
						return Ignored{}, parallelIncrementOnce(c, data, grain)
					})
					if err != nil {
						t.Fatalf("application %d failed: %v", app, err)
					}
				}

				for i, v := range data {
					if v != i+applications {
						t.Fatalf("data[%d] = %d, want %d", i, v, i+applications)
					}
				}
			})
		}
	}
}

func TestStackOverflow_SurfacesAsTaskFailure(t *testing.T) {
	pool := newPool(t, "busy", 1, WithStackCapacity(128))

	_, err := SyncWait(pool, func(c *Control) (Ignored, error) {
		_, err := Call(c, func(c *Control) (Ignored, error) {
			// frameFootprint (64 bytes) for this Call itself is already
			// charged against the worker's 128-byte stack; a further
			// 128-byte allocation cannot fit in what remains.
			if _, ok := c.Worker.Stack.Allocate(128, 1); !ok {
				return Ignored{}, &TaskError{Kind: ErrStackOverflow, Frame: c.Frame}
			}
			return Ignored{}, nil
		})
		return Ignored{}, err
	})

	if err == nil {
		t.Fatal("expected a stack_overflow failure, got nil")
	}
	var te *TaskError
	if !errors.As(err, &te) {
		t.Fatalf("error %v does not unwrap to *TaskError", err)
	}
	if te.Kind != ErrStackOverflow {
		t.Fatalf("TaskError.Kind = %v, want %v", te.Kind, ErrStackOverflow)
	}
}

func TestExceptionSurfacing_AfterTwoSuccessfulForks(t *testing.T) {
	pool := newPool(t, "busy", 4)

	_, err := SyncWait(pool, func(c *Control) (Ignored, error) {
		a := Fork(c, func(c *Control) (int, error) { return 1, nil })
		b := Fork(c, func(c *Control) (int, error) { return 2, nil })

		_, joinErr := Join(c, a, b)
		if joinErr != nil {
			return Ignored{}, joinErr
		}
		return Ignored{}, fmt.Errorf("root body failed after its children succeeded")
	})
	if err == nil {
		t.Fatal("expected the root's own failure to surface, got nil")
	}

	// The pool must accept further submissions without needing a restart.
	got, err := SyncWait(pool, func(c *Control) (int, error) { return 7, nil })
	if err != nil {
		t.Fatalf("pool rejected a submission after a prior failure: %v", err)
	}
	if got != 7 {
		t.Fatalf("got %d, want 7", got)
	}
}

func TestAddressToStackLookup_AcrossWorkers(t *testing.T) {
	pool := newPool(t, "busy", 2)

	type observation struct {
		addr     uintptr
		capacity uintptr
	}
	obsCh := make(chan observation, 1)

	_, err := SyncWait(pool, func(c *Control) (Ignored, error) {
		ptr, ok := c.Worker.Stack.Allocate(16, 8)
		if !ok {
			return Ignored{}, fmt.Errorf("allocation on stack A failed")
		}
		obsCh <- observation{addr: uintptr(ptr), capacity: c.Worker.Stack.Capacity()}
		c.Worker.Stack.Deallocate(ptr, 16)
		return Ignored{}, nil
	})
	if err != nil {
		t.Fatalf("SyncWait failed: %v", err)
	}

	obs := <-obsCh
	recovered, ok := StackFromAddress(obs.addr, obs.capacity)
	if !ok {
		t.Fatal("StackFromAddress failed to recover the stack that produced the address")
	}
	if recovered.Capacity() != obs.capacity {
		t.Fatalf("recovered stack capacity = %d, want %d", recovered.Capacity(), obs.capacity)
	}
}

func TestWaitIdle_ReturnsOnceDrained(t *testing.T) {
	pool := newPool(t, "busy", 4)

	_, err := Submit(pool, func(c *Control) (int, error) { return fibTask(c, 20) })
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.WaitIdle(ctx); err != nil {
		t.Fatalf("WaitIdle failed: %v", err)
	}

	stats := pool.Stats()
	if stats.Active != 0 || stats.Queued != 0 {
		t.Fatalf("pool not idle after WaitIdle: %+v", stats)
	}
}

func TestTaskError_MessageIncludesFramePath(t *testing.T) {
	pool := newPool(t, "busy", 1)

	_, err := SyncWait(pool, func(c *Control) (Ignored, error) {
		_, err := Call(c, func(c *Control) (Ignored, error) {
			return Ignored{}, fmt.Errorf("boom")
		})
		return Ignored{}, err
	})
	if err == nil {
		t.Fatal("expected a failure, got nil")
	}
	if want := "task_failure at root/call: boom"; err.Error() != want {
		t.Fatalf("err.Error() = %q, want %q", err.Error(), want)
	}
}

func TestShutdown_ReleasesWorkerStacksFromRegistry(t *testing.T) {
	pool := NewBusyPool(WithWorkers(2))

	var addr uintptr
	var capacity uintptr
	_, err := SyncWait(pool, func(c *Control) (Ignored, error) {
		ptr, ok := c.Worker.Stack.Allocate(8, 8)
		if !ok {
			return Ignored{}, fmt.Errorf("allocation failed")
		}
		addr, capacity = uintptr(ptr), c.Worker.Stack.Capacity()
		c.Worker.Stack.Deallocate(ptr, 8)
		return Ignored{}, nil
	})
	if err != nil {
		t.Fatalf("SyncWait failed: %v", err)
	}

	if _, ok := StackFromAddress(addr, capacity); !ok {
		t.Fatal("StackFromAddress failed before shutdown, want a hit")
	}

	pool.Shutdown()

	if _, ok := StackFromAddress(addr, capacity); ok {
		t.Fatal("StackFromAddress succeeded after shutdown, want the registry entry released")
	}
}

func TestSubmit_RejectedAfterShutdown(t *testing.T) {
	pool := NewBusyPool(WithWorkers(2))
	pool.Shutdown()

	_, err := Submit(pool, func(c *Control) (int, error) { return 1, nil })
	if !errors.Is(err, ErrPoolShutdown) {
		t.Fatalf("Submit after shutdown returned %v, want ErrPoolShutdown", err)
	}
}

func TestRecentRoots_RecordsSubmissions(t *testing.T) {
	pool := newPool(t, "busy", 2, WithHistoryCapacity(4))

	for i := 0; i < 3; i++ {
		if _, err := SyncWait(pool, func(c *Control) (int, error) { return fibTask(c, 10) }); err != nil {
			t.Fatalf("SyncWait failed: %v", err)
		}
	}

	recent := pool.RecentRoots(0)
	if len(recent) != 3 {
		t.Fatalf("RecentRoots returned %d records, want 3", len(recent))
	}
	for _, r := range recent {
		if r.Failed {
			t.Fatalf("record %+v marked failed, want success", r)
		}
	}
}

func TestRootHistory_RecordsSuppressedFailures(t *testing.T) {
	pool := newPool(t, "busy", 1, WithHistoryCapacity(4))

	_, err := SyncWait(pool, func(c *Control) (Ignored, error) {
		Call(c, func(c *Control) (Ignored, error) {
			return Ignored{}, &TaskError{Kind: ErrTaskFailure, Frame: c.Frame, Err: fmt.Errorf("first")}
		})
		Call(c, func(c *Control) (Ignored, error) {
			return Ignored{}, &TaskError{Kind: ErrTaskFailure, Frame: c.Frame, Err: fmt.Errorf("second")}
		})
		return Ignored{}, nil
	})
	if err != nil {
		t.Fatalf("SyncWait failed: %v", err)
	}

	recent := pool.RecentRoots(1)
	if len(recent) != 1 {
		t.Fatalf("RecentRoots returned %d records, want 1", len(recent))
	}
	if recent[0].SuppressedFailures != 1 {
		t.Fatalf("SuppressedFailures = %d, want 1 (two failures recorded on one worker's stack, first wins)", recent[0].SuppressedFailures)
	}
}

func TestWorkerStats_ReportsPerWorkerDeque(t *testing.T) {
	pool := newPool(t, "busy", 3)

	stats := pool.WorkerStats()
	if len(stats) != 3 {
		t.Fatalf("WorkerStats returned %d entries, want 3", len(stats))
	}
	seen := map[int]bool{}
	for _, ws := range stats {
		seen[ws.ID] = true
		if ws.StackCap == 0 {
			t.Fatalf("worker %d reported zero stack capacity", ws.ID)
		}
		if ws.Queued != 0 {
			t.Fatalf("worker %d reported %d queued on an idle pool, want 0", ws.ID, ws.Queued)
		}
		if ws.HasFailure {
			t.Fatalf("worker %d reported HasFailure on a pool that never ran anything", ws.ID)
		}
	}
	for i := 0; i < 3; i++ {
		if !seen[i] {
			t.Fatalf("WorkerStats missing worker id %d", i)
		}
	}
}

type recordingLogger struct {
	mu   sync.Mutex
	msgs []string
}

func (r *recordingLogger) Debug(msg string, fields ...Field) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}
func (r *recordingLogger) Info(msg string, fields ...Field)  {}
func (r *recordingLogger) Warn(msg string, fields ...Field)  {}
func (r *recordingLogger) Error(msg string, fields ...Field) {}

func (r *recordingLogger) has(msg string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.msgs {
		if m == msg {
			return true
		}
	}
	return false
}

func TestLazyPool_LogsWorkerParkAndWake(t *testing.T) {
	logger := &recordingLogger{}
	pool := NewLazyPool(WithWorkers(1), WithIdleStealBudget(1), WithLogger(logger))
	t.Cleanup(pool.Shutdown)

	_, err := SyncWait(pool, func(c *Control) (int, error) { return 1, nil })
	if err != nil {
		t.Fatalf("SyncWait failed: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if logger.has("worker parked") && logger.has("worker woke") {
			break
		}
		time.Sleep(time.Millisecond)
	}
	if !logger.has("worker parked") {
		t.Fatal("expected a \"worker parked\" log after the worker ran out of work")
	}
	if !logger.has("worker woke") {
		t.Fatal("expected a \"worker woke\" log once the parked worker was signalled")
	}
}

// TestLazyPool_CompletionWakesBlockedJoiner guards against a lost-wakeup
// deadlock: a tiny IdleStealBudget parks workers almost immediately, and a
// deeply forked tree guarantees some worker is blocked in Join on a future
// that a different, currently-parked worker must wake up to finish. Before
// wakeAll was wired into frame completion, this reliably hung forever.
func TestLazyPool_CompletionWakesBlockedJoiner(t *testing.T) {
	pool := NewLazyPool(WithWorkers(4), WithIdleStealBudget(1))
	t.Cleanup(pool.Shutdown)

	done := make(chan struct{})
	go func() {
		defer close(done)
		got, err := SyncWait(pool, func(c *Control) (int, error) { return fibTask(c, 22) })
		if err != nil {
			t.Errorf("SyncWait failed: %v", err)
		}
		if got != 17711 {
			t.Errorf("fib(22) = %d, want 17711", got)
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("SyncWait deadlocked: a parked worker was never woken by a completing frame")
	}
}
