package reputation

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/mwhited/agora/internal/traces"
)

// TierChange describes an observed tier transition between two snapshots.
type TierChange struct {
	AgentID  string `json:"agentId"`
	From     Tier   `json:"from"`
	To       Tier   `json:"to"`
	OldScore int    `json:"oldScore"`
	NewScore int    `json:"newScore"`
}

// Worker periodically recomputes reputation for all agents, persists
// snapshots, and emits events when scores or tiers move.
type Worker struct {
	engine   *Engine
	provider StatsProvider
	store    SnapshotStore
	interval time.Duration
	logger   *slog.Logger
	stop     chan struct{}

	onScore      func(agentID string, r *Result)
	onTierChange func(tc TierChange)
}

// NewWorker creates a reputation snapshot worker.
// interval is typically 1 hour in production, 10 seconds in demo mode.
func NewWorker(provider StatsProvider, store SnapshotStore, interval time.Duration, logger *slog.Logger) *Worker {
	return &Worker{
		engine:   NewEngine(),
		provider: provider,
		store:    store,
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

// OnScoreUpdate registers a callback invoked for every recomputed score.
// Set before Start.
func (w *Worker) OnScoreUpdate(fn func(agentID string, r *Result)) {
	w.onScore = fn
}

// OnTierChange registers a callback invoked when an agent's tier moves.
// Set before Start.
func (w *Worker) OnTierChange(fn func(tc TierChange)) {
	w.onTierChange = fn
}

// Start begins the snapshot loop. Call in a goroutine.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Run once immediately on start
	w.snapshot(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case <-ticker.C:
			w.snapshot(ctx)
		}
	}
}

// Stop signals the worker to stop.
func (w *Worker) Stop() {
	select {
	case w.stop <- struct{}{}:
	default:
	}
}

func (w *Worker) snapshot(ctx context.Context) {
	ctx, span := traces.StartSpan(ctx, "reputation.Worker.snapshot")
	defer span.End()

	inputs, err := w.provider.AllAgentInputs(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get agent inputs")
		w.logger.Warn("reputation snapshot failed to get inputs", "error", err)
		return
	}

	if len(inputs) == 0 {
		return
	}

	now := time.Now()
	tierChanges := 0
	var snaps []*Snapshot
	for agentID, in := range inputs {
		done := observeCompute()
		result := w.engine.Compute(*in, now)
		done(result.Tier)
		result.AgentID = agentID

		prev, err := w.store.Latest(ctx, agentID)
		if err != nil {
			w.logger.Warn("reputation snapshot failed to load previous", "agent_id", agentID, "error", err)
		}

		if w.onScore != nil {
			w.onScore(agentID, result)
		}
		if prev != nil && prev.Tier != result.Tier {
			tierChanges++
			direction := "up"
			if result.Score < prev.Score {
				direction = "down"
			}
			TierChangesTotal.WithLabelValues(direction).Inc()
			w.logger.Info("agent tier changed",
				"agent_id", agentID,
				"from", prev.Tier,
				"to", result.Tier,
				"score", result.Score,
			)
			if w.onTierChange != nil {
				w.onTierChange(TierChange{
					AgentID:  agentID,
					From:     prev.Tier,
					To:       result.Tier,
					OldScore: prev.Score,
					NewScore: result.Score,
				})
			}
		}

		snaps = append(snaps, SnapshotFromResult(agentID, result))
	}

	if err := w.store.SaveBatch(ctx, snaps); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to save snapshots")
		w.logger.Warn("reputation snapshot failed to save", "error", err, "count", len(snaps))
		return
	}
	SnapshotsPersisted.Add(float64(len(snaps)))
	span.SetAttributes(
		attribute.Int("snapshot.agents", len(snaps)),
		attribute.Int("snapshot.tier_changes", tierChanges),
	)

	w.logger.Info("reputation snapshot completed", "agents", len(snaps), "tier_changes", tierChanges)
}
