//go:build forkjoin_debug

package core

// assertLIFODeallocation panics when a Deallocate call does not target the
// most recently allocated, not-yet-deallocated region of s. Built only
// under -tags forkjoin_debug; the production path trusts the invariant
// instead of paying for the check on every frame retirement.
func assertLIFODeallocation(s *VirtualStack, end uintptr) {
	if end != s.base+s.cursor {
		panic("forkjoin: Deallocate called out of LIFO order")
	}
}
