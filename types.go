package forkjoin

import "github.com/Swind/go-forkjoin/core"

// Re-export the core engine's types for convenience, so most callers only
// ever need to import the forkjoin package.

// Control is the handle threaded through every fork/call body.
type Control = core.Control

// Future is the handle returned by Fork; read its result with Await.
type Future[T any] = core.Future[T]

// Pool is the capability surface shared by BusyPool and LazyPool.
type Pool = core.Pool

// BusyPool spins on an empty deque instead of parking.
type BusyPool = core.BusyPool

// LazyPool parks idle workers after a configurable steal budget.
type LazyPool = core.LazyPool

// PoolConfig and Option configure a pool at construction time.
type PoolConfig = core.PoolConfig
type Option = core.Option

// PanicHandler, Metrics, Logger are the pluggable ambient-observability
// seams a pool can be configured with.
type PanicHandler = core.PanicHandler
type Metrics = core.Metrics
type Logger = core.Logger
type Field = core.Field

// TaskError, ErrorKind classify a failure surfaced through a Future.
type TaskError = core.TaskError
type ErrorKind = core.ErrorKind

const (
	ErrStackOverflow = core.ErrStackOverflow
	ErrTaskFailure   = core.ErrTaskFailure
	ErrMisuse        = core.ErrMisuse
)

// FrameKind, FrameStatus expose the task-frame state machine for
// introspection (tests, metrics adapters); ordinary callers never
// construct a Frame directly.
type FrameKind = core.FrameKind
type FrameStatus = core.FrameStatus

const (
	FrameRoot = core.FrameRoot
	FrameCall = core.FrameCall
	FrameFork = core.FrameFork
)

// PoolStats, WorkerStats, RootExecutionRecord are observability snapshots.
type PoolStats = core.PoolStats
type WorkerStats = core.WorkerStats
type RootExecutionRecord = core.RootExecutionRecord

// Constructors and options re-exported directly.
var (
	NewBusyPool         = core.NewBusyPool
	NewLazyPool         = core.NewLazyPool
	DefaultPoolConfig   = core.DefaultPoolConfig
	WithName            = core.WithName
	WithWorkers         = core.WithWorkers
	WithStackCapacity   = core.WithStackCapacity
	WithIdleStealBudget = core.WithIdleStealBudget
	WithPanicHandler    = core.WithPanicHandler
	WithMetrics         = core.WithMetrics
	WithLogger          = core.WithLogger
	WithHistoryCapacity = core.WithHistoryCapacity
	NewDefaultLogger    = core.NewDefaultLogger
	NewNoOpLogger       = core.NewNoOpLogger
)

// ErrPoolShutdown is returned by Submit/SyncWait once a pool has begun
// shutting down.
var ErrPoolShutdown = core.ErrPoolShutdown
