package reputation

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestObserveCompute_IncrementsCounter(t *testing.T) {
	ComputationsTotal.Reset()

	done := observeCompute()
	done(TierTrusted)

	m := &dto.Metric{}
	counter, err := ComputationsTotal.GetMetricWithLabelValues("trusted")
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues failed: %v", err)
	}
	_ = counter.Write(m)

	if m.Counter.GetValue() != 1.0 {
		t.Errorf("expected counter value 1, got %f", m.Counter.GetValue())
	}
}

func TestObserveCompute_ObservesHistogram(t *testing.T) {
	done := observeCompute()
	done(TierNewcomer)

	m := &dto.Metric{}
	_ = ComputeDuration.Write(m)
	if m.Histogram.GetSampleCount() == 0 {
		t.Error("expected at least 1 histogram sample")
	}
}

func TestMetrics_Registered(t *testing.T) {
	names := []string{
		"agora_reputation_computations_total",
		"agora_reputation_compute_duration_seconds",
		"agora_reputation_snapshots_persisted_total",
		"agora_reputation_tier_changes_total",
	}

	// Counter vecs with no observations yet do not appear in Gather, so
	// touch the labeled ones first
	ComputationsTotal.WithLabelValues("trusted").Add(0)
	TierChangesTotal.WithLabelValues("up").Add(0)

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}

	found := map[string]bool{}
	for _, mf := range families {
		found[mf.GetName()] = true
	}
	for _, name := range names {
		if !found[name] {
			t.Errorf("metric %s not registered", name)
		}
	}
}
