package forkjoin

import "sync"

// =============================================================================
// Global Pool Helper (Singleton)
// =============================================================================

var (
	globalPool Pool
	globalMu   sync.Mutex
)

// InitGlobalPool initializes the global pool. variant selects "busy" or
// "lazy"; anything else defaults to "busy". It is a no-op if the global
// pool is already initialized.
func InitGlobalPool(variant string, opts ...Option) {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalPool != nil {
		return
	}

	if variant == "lazy" {
		globalPool = NewLazyPool(opts...)
	} else {
		globalPool = NewBusyPool(opts...)
	}
}

// GetGlobalPool returns the global pool. It panics if InitGlobalPool has
// not been called first.
func GetGlobalPool() Pool {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalPool == nil {
		panic("forkjoin: global pool not initialized, call InitGlobalPool() first")
	}
	return globalPool
}

// ShutdownGlobalPool stops the global pool, if any.
func ShutdownGlobalPool() {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalPool != nil {
		globalPool.Shutdown()
		globalPool = nil
	}
}
