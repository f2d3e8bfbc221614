//go:build !forkjoin_debug

package core

// assertLIFODeallocation is a no-op outside of -tags forkjoin_debug; see
// stack_debug.go.
func assertLIFODeallocation(s *VirtualStack, end uintptr) {}
