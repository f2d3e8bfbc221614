package core

import "unsafe"

// frameFootprint is the arena footprint charged against a worker's virtual
// stack for the duration of one running frame. It models stack consumption
// without trying to relocate the Go closures that actually implement a
// frame's body into the arena (the Go runtime gives user code no lever for
// that); what the arena tracks faithfully is nesting depth, LIFO release
// order, capacity exhaustion, and address-to-stack recovery, which is the
// part of the contract the stack module's tests exercise directly.
const (
	frameFootprint      = 64
	frameFootprintAlign = unsafe.Alignof(uint64(0))
)

// Worker owns one virtual stack and one Chase-Lev deque. It is always
// backed by exactly one goroutine for its entire lifetime; "worker" and
// "goroutine" are interchangeable in this engine.
type Worker struct {
	ID    int
	Stack *VirtualStack
	Deque *Deque

	eng      *engine
	rngState uint32
}

// newWorker seeds the xorshift32 victim-selection generator from the
// worker's own id so different workers diverge immediately.
func newWorker(id int, eng *engine, stack *VirtualStack) *Worker {
	seed := uint32(id)*2654435761 + 1
	if seed == 0 {
		seed = 1
	}
	return &Worker{ID: id, Stack: stack, Deque: NewDeque(64), eng: eng, rngState: seed}
}

// nextVictim returns a pseudo-random worker index other than w's own,
// using a per-worker xorshift32 generator (grounded on the fastrand idiom
// used for metrics-shard selection in the example pool; here it drives
// steal-victim selection instead).
func (w *Worker) nextVictim(numWorkers int) int {
	if numWorkers <= 1 {
		return w.ID
	}
	x := w.rngState
	x ^= x << 13
	x ^= x >> 17
	x ^= x << 5
	w.rngState = x

	victim := int(x) % (numWorkers - 1)
	if victim < 0 {
		victim = -victim
	}
	if victim >= w.ID {
		victim++
	}
	return victim
}

// runOneStep pops one frame (own deque first, then a steal attempt, then
// the pool's root-submission queue) and runs it to completion. It reports
// false if nothing was available this round.
func (w *Worker) runOneStep() bool {
	if f, ok := w.Deque.PopBottom(); ok {
		w.runFrame(f)
		return true
	}

	if f, ok := w.steal(); ok {
		w.eng.config.Metrics.RecordStealAttempt(w.eng.name, true)
		w.runFrame(f)
		return true
	}
	w.eng.config.Metrics.RecordStealAttempt(w.eng.name, false)

	select {
	case f := <-w.eng.rootQueue:
		w.runFrame(f)
		return true
	default:
	}

	return false
}

func (w *Worker) steal() (*Frame, bool) {
	n := len(w.eng.workers)
	if n <= 1 {
		return nil, false
	}
	victim := w.eng.workers[w.nextVictim(n)]
	if victim == w {
		return nil, false
	}
	return victim.Deque.Steal()
}

// runFrame charges the frame's footprint against this worker's own virtual
// stack, executes its body, and releases the footprint. Completion is
// observed by the parent's Join/Join2 polling this frame's own status; the
// status transition itself is what a parked worker's wake-all is reacting
// to (see runBody), not a direct notification to any particular parent.
func (w *Worker) runFrame(f *Frame) {
	n := w.eng.activeFrames.Add(1)
	w.eng.config.Metrics.RecordActiveFrames(w.eng.name, int(n))
	defer func() {
		n := w.eng.activeFrames.Add(-1)
		w.eng.config.Metrics.RecordActiveFrames(w.eng.name, int(n))
	}()

	ptr, ok := w.Stack.Allocate(frameFootprint, frameFootprintAlign)
	if !ok {
		te := &TaskError{Kind: ErrStackOverflow, Frame: f}
		w.Stack.RecordFailure(te)
		w.eng.config.Metrics.RecordStackOverflow(w.eng.name)
		f.bind(nil, te)
		f.setStatus(StatusFailed)
		w.eng.idle.wakeAll()
	} else {
		f.Stack = w.Stack
		f.resume(w)
		w.Stack.Deallocate(ptr, frameFootprint)
	}

	w.eng.config.Metrics.RecordFrameCompleted(w.eng.name, f.Kind, f.Status() == StatusFailed)
}
