package reputation

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func TestWorkerSnapshot(t *testing.T) {
	provider := &stubProvider{
		agents: map[string]*Input{
			"busy-bot":  establishedInput(),
			"fresh-bot": freshInput(),
		},
	}

	store := NewMemorySnapshotStore()
	worker := NewWorker(provider, store, 100*time.Millisecond, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 350*time.Millisecond)
	defer cancel()

	go worker.Start(ctx)

	// Wait for at least one snapshot cycle
	time.Sleep(200 * time.Millisecond)

	snapsA, err := store.Query(context.Background(), HistoryQuery{AgentID: "busy-bot", Limit: 10})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(snapsA) == 0 {
		t.Fatal("expected snapshots for busy-bot")
	}
	if snapsA[0].Score <= 0 {
		t.Errorf("expected positive score, got %d", snapsA[0].Score)
	}
	if snapsA[0].Tier != TierTrusted {
		t.Errorf("expected trusted tier, got %s", snapsA[0].Tier)
	}

	snapsB, err := store.Query(context.Background(), HistoryQuery{AgentID: "fresh-bot", Limit: 10})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(snapsB) == 0 {
		t.Fatal("expected snapshots for fresh-bot")
	}

	// Higher activity should yield a higher score
	if snapsA[0].Score <= snapsB[0].Score {
		t.Errorf("expected busy-bot score (%d) > fresh-bot score (%d)", snapsA[0].Score, snapsB[0].Score)
	}

	cancel()
	worker.Stop()
}

func TestWorkerEmptyNetwork(t *testing.T) {
	provider := &stubProvider{agents: map[string]*Input{}}
	store := NewMemorySnapshotStore()
	worker := NewWorker(provider, store, 100*time.Millisecond, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	go worker.Start(ctx)
	time.Sleep(150 * time.Millisecond)

	// No agents means no snapshots, but no crash either
	snaps, err := store.Query(context.Background(), HistoryQuery{AgentID: "nobody", Limit: 10})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(snaps) != 0 {
		t.Errorf("expected no snapshots, got %d", len(snaps))
	}

	cancel()
	worker.Stop()
}

func TestWorkerTierChangeEvent(t *testing.T) {
	provider := &stubProvider{
		agents: map[string]*Input{"riser": establishedInput()},
	}
	store := NewMemorySnapshotStore()

	// Seed history in a lower tier so the first recompute crosses a boundary
	_ = store.Save(context.Background(), &Snapshot{
		AgentID: "riser", Score: 450, Tier: TierReliable,
		CreatedAt: time.Now().Add(-time.Hour),
	})

	worker := NewWorker(provider, store, time.Hour, testLogger())

	var mu sync.Mutex
	var changes []TierChange
	worker.OnTierChange(func(tc TierChange) {
		mu.Lock()
		changes = append(changes, tc)
		mu.Unlock()
	})

	worker.snapshot(context.Background())

	mu.Lock()
	defer mu.Unlock()
	if len(changes) != 1 {
		t.Fatalf("expected 1 tier change, got %d", len(changes))
	}
	tc := changes[0]
	if tc.AgentID != "riser" {
		t.Errorf("agent = %s, want riser", tc.AgentID)
	}
	if tc.From != TierReliable || tc.To != TierTrusted {
		t.Errorf("transition = %s -> %s, want reliable -> trusted", tc.From, tc.To)
	}
	if tc.OldScore != 450 {
		t.Errorf("old score = %d, want 450", tc.OldScore)
	}
}

func TestWorkerScoreUpdateEvent(t *testing.T) {
	provider := &stubProvider{
		agents: map[string]*Input{"busy-bot": establishedInput()},
	}
	worker := NewWorker(provider, NewMemorySnapshotStore(), time.Hour, testLogger())

	var mu sync.Mutex
	got := map[string]int{}
	worker.OnScoreUpdate(func(agentID string, r *Result) {
		mu.Lock()
		got[agentID] = r.Score
		mu.Unlock()
	})

	worker.snapshot(context.Background())

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 {
		t.Fatalf("expected 1 score update, got %d", len(got))
	}
	if got["busy-bot"] <= 0 {
		t.Errorf("expected positive score for busy-bot, got %d", got["busy-bot"])
	}
}

func TestMemorySnapshotStoreLatest(t *testing.T) {
	store := NewMemorySnapshotStore()
	ctx := context.Background()

	snap1 := &Snapshot{AgentID: "busy-bot", Score: 500, Tier: TierReliable, CreatedAt: time.Now().Add(-time.Hour)}
	snap2 := &Snapshot{AgentID: "busy-bot", Score: 620, Tier: TierTrusted, CreatedAt: time.Now()}

	_ = store.Save(ctx, snap1)
	_ = store.Save(ctx, snap2)

	latest, err := store.Latest(ctx, "busy-bot")
	if err != nil {
		t.Fatalf("latest failed: %v", err)
	}
	if latest == nil {
		t.Fatal("expected non-nil latest")
	}
	if latest.Score != 620 {
		t.Errorf("expected score 620, got %d", latest.Score)
	}

	none, err := store.Latest(ctx, "nobody")
	if err != nil {
		t.Fatalf("latest failed: %v", err)
	}
	if none != nil {
		t.Errorf("expected nil for unknown agent, got %+v", none)
	}
}

func TestSignerRoundTrip(t *testing.T) {
	signer := NewSigner("test-secret")
	if signer == nil {
		t.Fatal("signer should not be nil")
	}

	payload := map[string]interface{}{"score": 725, "agentId": "busy-bot"}
	sig, issuedAt, expiresAt, err := signer.Sign(payload)
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if sig == "" || issuedAt == "" || expiresAt == "" {
		t.Fatal("expected non-empty signature fields")
	}

	if !signer.Verify(payload, sig) {
		t.Error("expected signature to verify")
	}

	// Tampered payload should fail
	payload["score"] = 999
	if signer.Verify(payload, sig) {
		t.Error("expected tampered payload to fail verification")
	}
}

func TestNilSigner(t *testing.T) {
	signer := NewSigner("")
	if signer != nil {
		t.Fatal("expected nil signer for empty secret")
	}
}
