package prometheus

import (
	"testing"
	"time"

	"github.com/Swind/go-forkjoin/core"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestMetricsExporter_RecordMethods(t *testing.T) {
	reg := prom.NewRegistry()
	exporter, err := NewMetricsExporter("forkjoin", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("NewMetricsExporter failed: %v", err)
	}

	exporter.RecordStealAttempt("pool-a", true)
	exporter.RecordStealAttempt("pool-a", false)
	exporter.RecordJoinWait("pool-a", 250*time.Millisecond)
	exporter.RecordFrameCompleted("pool-a", core.FrameFork, false)
	exporter.RecordFrameCompleted("pool-a", core.FrameFork, true)
	exporter.RecordActiveFrames("pool-a", 7)
	exporter.RecordStackOverflow("pool-a")

	hits := testutil.ToFloat64(exporter.stealAttemptsTotal.WithLabelValues("pool-a", "hit"))
	if hits != 1 {
		t.Fatalf("steal hits = %v, want 1", hits)
	}
	misses := testutil.ToFloat64(exporter.stealAttemptsTotal.WithLabelValues("pool-a", "miss"))
	if misses != 1 {
		t.Fatalf("steal misses = %v, want 1", misses)
	}

	active := testutil.ToFloat64(exporter.activeFrames.WithLabelValues("pool-a"))
	if active != 7 {
		t.Fatalf("active frames = %v, want 7", active)
	}

	overflow := testutil.ToFloat64(exporter.stackOverflowsTotal.WithLabelValues("pool-a"))
	if overflow != 1 {
		t.Fatalf("stack overflow total = %v, want 1", overflow)
	}

	ok := testutil.ToFloat64(exporter.framesCompleted.WithLabelValues("pool-a", "fork", "ok"))
	if ok != 1 {
		t.Fatalf("frames completed ok = %v, want 1", ok)
	}
	failed := testutil.ToFloat64(exporter.framesCompleted.WithLabelValues("pool-a", "fork", "failed"))
	if failed != 1 {
		t.Fatalf("frames completed failed = %v, want 1", failed)
	}

	histCount, err := histogramSampleCount(exporter.joinWaitSeconds.WithLabelValues("pool-a"))
	if err != nil {
		t.Fatalf("histogramSampleCount failed: %v", err)
	}
	if histCount != 1 {
		t.Fatalf("join wait sample count = %d, want 1", histCount)
	}
}

func TestMetricsExporter_AlreadyRegisteredReuse(t *testing.T) {
	reg := prom.NewRegistry()
	first, err := NewMetricsExporter("forkjoin", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("first NewMetricsExporter failed: %v", err)
	}
	second, err := NewMetricsExporter("forkjoin", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("second NewMetricsExporter failed: %v", err)
	}

	first.RecordStackOverflow("pool-a")
	second.RecordStackOverflow("pool-a")

	got := testutil.ToFloat64(first.stackOverflowsTotal.WithLabelValues("pool-a"))
	if got != 2 {
		t.Fatalf("shared stack overflow counter = %v, want 2", got)
	}
}

func TestMetricsExporter_NilReceiverIsSafe(t *testing.T) {
	var exporter *MetricsExporter
	exporter.RecordStealAttempt("pool-a", true)
	exporter.RecordJoinWait("pool-a", time.Millisecond)
	exporter.RecordFrameCompleted("pool-a", core.FrameCall, false)
	exporter.RecordActiveFrames("pool-a", 1)
	exporter.RecordStackOverflow("pool-a")
}

func histogramSampleCount(observer prom.Observer) (uint64, error) {
	collector, ok := observer.(prom.Collector)
	if !ok {
		return 0, nil
	}

	metricCh := make(chan prom.Metric, 1)
	collector.Collect(metricCh)
	close(metricCh)
	for metric := range metricCh {
		msg := &dto.Metric{}
		if err := metric.Write(msg); err != nil {
			return 0, err
		}
		if msg.Histogram != nil {
			return msg.Histogram.GetSampleCount(), nil
		}
	}
	return 0, nil
}
