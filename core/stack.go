package core

import (
	"sync"
	"sync/atomic"
	"unsafe"
)

// DefaultStackCapacity is the arena size handed to a VirtualStack when a
// pool's config does not override it. It must stay a power of two; see
// nextPowerOfTwo.
const DefaultStackCapacity = 64 * 1024

// stackRegistry maps a virtual stack's aligned base address back to the
// *VirtualStack that owns it, so that StackFromAddress can recover a stack
// from any pointer allocated out of its arena.
var stackRegistry sync.Map // map[uintptr]*VirtualStack

// VirtualStack is a fixed-capacity bump-pointer arena backing one worker's
// logical call chain. Allocation only ever grows the cursor forward;
// Deallocate only ever retracts it from the most recently allocated region
// (strict LIFO). The backing array is aligned to its own capacity so that
// StackFromAddress can recover the owning stack from any address inside it
// by masking off the low bits.
type VirtualStack struct {
	capacity uintptr
	base     uintptr
	raw      []byte // over-allocated backing array; arena is a sub-slice of this
	cursor   uintptr

	// failure is the stack's single failure slot. Only the first write
	// wins; later writes are coalesced (see RecordFailure).
	failure atomic.Pointer[TaskError]

	// suppressed counts failures observed after the slot was already
	// occupied, for diagnostics (see core/task_history.go).
	suppressed atomic.Int64
}

// NewVirtualStack allocates a new virtual stack with the given capacity
// (rounded up to the next power of two; a capacity <= 0 selects
// DefaultStackCapacity).
func NewVirtualStack(capacity int) *VirtualStack {
	if capacity <= 0 {
		capacity = DefaultStackCapacity
	}
	capacity = int(nextPowerOfTwo(uint64(capacity)))

	// Over-allocate by 2x so an aligned window of exactly `capacity` bytes
	// can always be carved out of it, regardless of where the Go allocator
	// happened to place the backing array.
	raw := make([]byte, capacity*2)
	rawBase := uintptr(unsafe.Pointer(&raw[0]))
	mask := uintptr(capacity) - 1
	aligned := (rawBase + mask) &^ mask

	s := &VirtualStack{
		capacity: uintptr(capacity),
		base:     aligned,
		raw:      raw,
	}
	stackRegistry.Store(s.base, s)
	return s
}

// Release removes the stack from the address registry. Callers must not use
// the stack afterwards; this exists so a pool can drop its workers' stacks
// without leaking registry entries once it shuts down.
func (s *VirtualStack) Release() {
	stackRegistry.Delete(s.base)
}

// Allocate reserves size bytes aligned to align, returning false if the
// arena is exhausted. Only the stack's owning worker may call this.
func (s *VirtualStack) Allocate(size, align uintptr) (unsafe.Pointer, bool) {
	if align == 0 {
		align = 1
	}
	cur := s.base + s.cursor
	alignedAddr := (cur + align - 1) &^ (align - 1)
	end := alignedAddr + size
	if end > s.base+s.capacity {
		return nil, false
	}
	s.cursor = end - s.base
	return unsafe.Pointer(alignedAddr), true //nolint:govet
}

// Deallocate releases a region previously returned by Allocate. It is a
// programmer error to deallocate anything other than the most recently
// allocated, not-yet-deallocated region; under normal operation this is
// enforced by construction (frames are retired in reverse allocation order),
// so the hot path here only retracts the cursor when the region ends at the
// current top and otherwise does nothing; the panicking check lives in
// assertLIFODeallocation under -tags forkjoin_debug.
func (s *VirtualStack) Deallocate(ptr unsafe.Pointer, size uintptr) {
	addr := uintptr(ptr)
	end := addr + size
	assertLIFODeallocation(s, end)
	if end == s.base+s.cursor {
		s.cursor = addr - s.base
	}
}

// InUse reports how many bytes of the arena are currently allocated.
func (s *VirtualStack) InUse() uintptr { return s.cursor }

// Capacity reports the arena's total size in bytes.
func (s *VirtualStack) Capacity() uintptr { return s.capacity }

// RecordFailure stores err in the stack's failure slot if it is the first
// failure observed on this stack; otherwise it coalesces (counts) the extra
// failure and drops it. Recording the failure the slot already holds (the
// same error propagating up through its ancestors) is not counted again.
func (s *VirtualStack) RecordFailure(err *TaskError) {
	if !s.failure.CompareAndSwap(nil, err) && s.failure.Load() != err {
		s.suppressed.Add(1)
	}
}

// TakeFailure returns and clears the stack's failure slot, along with the
// number of additional failures that were coalesced away.
func (s *VirtualStack) TakeFailure() (*TaskError, int64) {
	err := s.failure.Swap(nil)
	suppressed := s.suppressed.Swap(0)
	return err, suppressed
}

// PeekFailure reports whether the stack currently holds an unresolved
// failure, without clearing it.
func (s *VirtualStack) PeekFailure() bool {
	return s.failure.Load() != nil
}

// StackFromAddress recovers the owning *VirtualStack for any address
// previously returned by Allocate on a stack of the given capacity, by
// masking off the low bits to find the arena's aligned base and looking it
// up in the registry.
func StackFromAddress(addr uintptr, capacity uintptr) (*VirtualStack, bool) {
	if capacity == 0 {
		return nil, false
	}
	mask := capacity - 1
	base := addr &^ mask
	v, ok := stackRegistry.Load(base)
	if !ok {
		return nil, false
	}
	return v.(*VirtualStack), true
}

func nextPowerOfTwo(n uint64) uint64 {
	if n <= 1 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}
