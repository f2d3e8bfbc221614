package prometheus

import (
	"errors"
	"fmt"
	"time"

	"github.com/Swind/go-forkjoin/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// ExporterOptions controls collector configuration.
type ExporterOptions struct {
	JoinWaitBuckets []float64
}

// MetricsExporter adapts core.Metrics to Prometheus collectors.
type MetricsExporter struct {
	stealAttemptsTotal  *prom.CounterVec
	joinWaitSeconds     *prom.HistogramVec
	framesCompleted     *prom.CounterVec
	activeFrames        *prom.GaugeVec
	stackOverflowsTotal *prom.CounterVec
}

var _ core.Metrics = (*MetricsExporter)(nil)

// NewMetricsExporter creates and registers Prometheus collectors for core.Metrics.
func NewMetricsExporter(namespace string, reg prom.Registerer, opts ExporterOptions) (*MetricsExporter, error) {
	if namespace == "" {
		namespace = "forkjoin"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	buckets := opts.JoinWaitBuckets
	if len(buckets) == 0 {
		buckets = prom.DefBuckets
	}

	stealAttempts := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "steal_attempts_total",
		Help:      "Total number of steal attempts by outcome.",
	}, []string{"pool", "outcome"})
	joinWait := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "join_wait_seconds",
		Help:      "Time a frame spent awaiting join before its continuation resumed.",
		Buckets:   buckets,
	}, []string{"pool"})
	framesCompleted := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "frames_completed_total",
		Help:      "Total number of completed frames by kind and outcome.",
	}, []string{"pool", "kind", "outcome"})
	active := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "active_frames",
		Help:      "Current number of frames running or awaiting join.",
	}, []string{"pool"})
	overflows := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "stack_overflows_total",
		Help:      "Total number of virtual stack overflow events.",
	}, []string{"pool"})

	var err error
	if stealAttempts, err = registerCollector(reg, stealAttempts); err != nil {
		return nil, err
	}
	if joinWait, err = registerCollector(reg, joinWait); err != nil {
		return nil, err
	}
	if framesCompleted, err = registerCollector(reg, framesCompleted); err != nil {
		return nil, err
	}
	if active, err = registerCollector(reg, active); err != nil {
		return nil, err
	}
	if overflows, err = registerCollector(reg, overflows); err != nil {
		return nil, err
	}

	return &MetricsExporter{
		stealAttemptsTotal:  stealAttempts,
		joinWaitSeconds:     joinWait,
		framesCompleted:     framesCompleted,
		activeFrames:        active,
		stackOverflowsTotal: overflows,
	}, nil
}

// RecordStealAttempt records one steal attempt against a victim deque.
func (m *MetricsExporter) RecordStealAttempt(poolName string, success bool) {
	if m == nil {
		return
	}
	outcome := "miss"
	if success {
		outcome = "hit"
	}
	m.stealAttemptsTotal.WithLabelValues(normalizeLabel(poolName, "unknown"), outcome).Inc()
}

// RecordJoinWait records how long a frame spent awaiting join.
func (m *MetricsExporter) RecordJoinWait(poolName string, d time.Duration) {
	if m == nil {
		return
	}
	m.joinWaitSeconds.WithLabelValues(normalizeLabel(poolName, "unknown")).Observe(d.Seconds())
}

// RecordFrameCompleted records a completed frame's kind and outcome.
func (m *MetricsExporter) RecordFrameCompleted(poolName string, kind core.FrameKind, failed bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if failed {
		outcome = "failed"
	}
	m.framesCompleted.WithLabelValues(normalizeLabel(poolName, "unknown"), kind.String(), outcome).Inc()
}

// RecordActiveFrames records the current number of running/awaiting-join
// frames.
func (m *MetricsExporter) RecordActiveFrames(poolName string, count int) {
	if m == nil {
		return
	}
	m.activeFrames.WithLabelValues(normalizeLabel(poolName, "unknown")).Set(float64(count))
}

// RecordStackOverflow records a virtual stack exhaustion event.
func (m *MetricsExporter) RecordStackOverflow(poolName string) {
	if m == nil {
		return
	}
	m.stackOverflowsTotal.WithLabelValues(normalizeLabel(poolName, "unknown")).Inc()
}

func normalizeLabel(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func registerCollector[T prom.Collector](reg prom.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var alreadyRegisteredErr prom.AlreadyRegisteredError
	if errors.As(err, &alreadyRegisteredErr) {
		existing, ok := alreadyRegisteredErr.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}

	return collector, err
}
