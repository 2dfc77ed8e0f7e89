package reputation

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ComputationsTotal counts score computations by resulting tier.
	ComputationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "agora",
		Subsystem: "reputation",
		Name:      "computations_total",
		Help:      "Total reputation score computations by resulting tier.",
	}, []string{"tier"})

	// ComputeDuration tracks how long a full score computation takes.
	ComputeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "agora",
		Subsystem: "reputation",
		Name:      "compute_duration_seconds",
		Help:      "Reputation score computation latency in seconds.",
		Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
	})

	// SnapshotsPersisted counts snapshots written by the worker.
	SnapshotsPersisted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "agora",
		Subsystem: "reputation",
		Name:      "snapshots_persisted_total",
		Help:      "Total reputation snapshots written to the snapshot store.",
	})

	// TierChangesTotal counts observed tier transitions by direction.
	TierChangesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "agora",
		Subsystem: "reputation",
		Name:      "tier_changes_total",
		Help:      "Total observed tier transitions by direction.",
	}, []string{"direction"}) // "up", "down"
)

func init() {
	prometheus.MustRegister(
		ComputationsTotal,
		ComputeDuration,
		SnapshotsPersisted,
		TierChangesTotal,
	)
}

// observeCompute records one computation. Returns a func to call when done.
func observeCompute() func(tier Tier) {
	start := time.Now()
	return func(tier Tier) {
		ComputeDuration.Observe(time.Since(start).Seconds())
		ComputationsTotal.WithLabelValues(string(tier)).Inc()
	}
}
