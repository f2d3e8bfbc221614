package core

import (
	"fmt"
	"time"
)

// =============================================================================
// PanicHandler: invoked when a fork/call body panics
// =============================================================================

// PanicHandler is called when a task body panics during execution, just
// before the panic is converted into a *TaskError on the owning stack's
// failure slot. Implementations must be safe to call concurrently from
// multiple workers.
type PanicHandler interface {
	HandlePanic(runnerName string, workerID int, panicInfo any, stackTrace []byte)
}

// DefaultPanicHandler logs panics to stdout.
type DefaultPanicHandler struct{}

func (h *DefaultPanicHandler) HandlePanic(runnerName string, workerID int, panicInfo any, stackTrace []byte) {
	fmt.Printf("[worker %d @ %s] panic: %v\nstack trace:\n%s", workerID, runnerName, panicInfo, stackTrace)
}

// =============================================================================
// Metrics: observability seam, adapted for Prometheus in observability/prometheus
// =============================================================================

// Metrics collects scheduler-lifecycle metrics. All methods are optional in
// spirit; implementations should handle being called from many workers
// concurrently without blocking the caller.
type Metrics interface {
	// RecordStealAttempt records one steal attempt against a victim, and
	// whether it succeeded.
	RecordStealAttempt(poolName string, success bool)

	// RecordJoinWait records how long a frame spent in StatusAwaitingJoin
	// before its Join/Join2 call returned.
	RecordJoinWait(poolName string, d time.Duration)

	// RecordFrameCompleted records a completed frame's kind and whether it
	// failed.
	RecordFrameCompleted(poolName string, kind FrameKind, failed bool)

	// RecordActiveFrames records a point-in-time count of frames currently
	// running or awaiting join across the pool.
	RecordActiveFrames(poolName string, count int)

	// RecordStackOverflow records a virtual stack exhaustion event.
	RecordStackOverflow(poolName string)
}

// NilMetrics discards everything. The default when no Metrics is configured.
type NilMetrics struct{}

func (NilMetrics) RecordStealAttempt(poolName string, success bool)             {}
func (NilMetrics) RecordJoinWait(poolName string, d time.Duration)              {}
func (NilMetrics) RecordFrameCompleted(poolName string, kind FrameKind, f bool) {}
func (NilMetrics) RecordActiveFrames(poolName string, count int)                {}
func (NilMetrics) RecordStackOverflow(poolName string)                         {}

// =============================================================================
// PoolConfig: functional-options configuration for BusyPool/LazyPool
// =============================================================================

// PoolConfig holds the tunables shared by BusyPool and LazyPool.
type PoolConfig struct {
	Name            string
	Workers         int
	StackCapacity   int
	IdleStealBudget int // LazyPool only: empty steal rounds since the last park before parking again
	PanicHandler    PanicHandler
	Metrics         Metrics
	Logger          Logger
	HistoryCapacity int
}

// Option configures a PoolConfig.
type Option func(*PoolConfig)

// DefaultPoolConfig returns a config with sensible defaults and every
// pluggable handler populated, mirroring the teacher's
// all-handlers-populated config contract.
func DefaultPoolConfig() *PoolConfig {
	return &PoolConfig{
		Workers:         4,
		StackCapacity:   DefaultStackCapacity,
		IdleStealBudget: 256,
		PanicHandler:    &DefaultPanicHandler{},
		Metrics:         NilMetrics{},
		Logger:          NewNoOpLogger(),
		HistoryCapacity: defaultRootHistoryCapacity,
	}
}

func WithName(name string) Option { return func(c *PoolConfig) { c.Name = name } }

func WithWorkers(n int) Option {
	return func(c *PoolConfig) {
		if n > 0 {
			c.Workers = n
		}
	}
}

// WithStackCapacity sets the per-worker virtual stack arena size in bytes.
// It is rounded up to the next power of two by NewVirtualStack.
func WithStackCapacity(bytes int) Option {
	return func(c *PoolConfig) {
		if bytes > 0 {
			c.StackCapacity = bytes
		}
	}
}

// WithIdleStealBudget sets how many failed steal rounds a LazyPool worker
// runs, counted since it last parked, before parking. Ignored by BusyPool.
func WithIdleStealBudget(rounds int) Option {
	return func(c *PoolConfig) {
		if rounds > 0 {
			c.IdleStealBudget = rounds
		}
	}
}

func WithPanicHandler(h PanicHandler) Option {
	return func(c *PoolConfig) {
		if h != nil {
			c.PanicHandler = h
		}
	}
}

func WithMetrics(m Metrics) Option {
	return func(c *PoolConfig) {
		if m != nil {
			c.Metrics = m
		}
	}
}

func WithLogger(l Logger) Option {
	return func(c *PoolConfig) {
		if l != nil {
			c.Logger = l
		}
	}
}

func WithHistoryCapacity(n int) Option {
	return func(c *PoolConfig) {
		if n > 0 {
			c.HistoryCapacity = n
		}
	}
}

func (c *PoolConfig) apply(opts []Option) {
	for _, opt := range opts {
		opt(c)
	}
}
