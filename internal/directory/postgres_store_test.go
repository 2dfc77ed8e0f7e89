package directory

import (
	"context"
	"testing"

	"github.com/mwhited/agora/internal/testutil"
)

// These tests run against a real PostgreSQL instance and are skipped
// unless POSTGRES_URL is set.

func TestPostgresAgentLifecycle(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)
	ctx := context.Background()

	agent := &Agent{ID: "PG-Bot", Name: "PG Bot"}
	if err := store.CreateAgent(ctx, agent); err != nil {
		t.Fatalf("CreateAgent: %v", err)
	}
	if agent.ID != "pg-bot" {
		t.Errorf("expected lowercased id, got %q", agent.ID)
	}

	if err := store.CreateAgent(ctx, &Agent{ID: "pg-bot"}); err != ErrAgentExists {
		t.Errorf("expected ErrAgentExists, got %v", err)
	}

	got, err := store.GetAgent(ctx, "pg-bot")
	if err != nil {
		t.Fatalf("GetAgent: %v", err)
	}
	if got.Name != "PG Bot" {
		t.Errorf("expected name PG Bot, got %q", got.Name)
	}

	got.Name = "Renamed"
	if err := store.UpdateAgent(ctx, got); err != nil {
		t.Fatalf("UpdateAgent: %v", err)
	}

	if err := store.DeleteAgent(ctx, "pg-bot"); err != nil {
		t.Fatalf("DeleteAgent: %v", err)
	}
	if _, err := store.GetAgent(ctx, "pg-bot"); err != ErrAgentNotFound {
		t.Errorf("expected ErrAgentNotFound after delete, got %v", err)
	}
}

func TestPostgresTransactionCounters(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)
	ctx := context.Background()

	for _, id := range []string{"buyer-bot", "seller-bot"} {
		if err := store.CreateAgent(ctx, &Agent{ID: id}); err != nil {
			t.Fatalf("CreateAgent %s: %v", id, err)
		}
	}

	tx := &Transaction{From: "buyer-bot", To: "seller-bot", Status: TxCompleted}
	if err := store.RecordTransaction(ctx, tx); err != nil {
		t.Fatalf("RecordTransaction: %v", err)
	}

	for _, id := range []string{"buyer-bot", "seller-bot"} {
		agent, err := store.GetAgent(ctx, id)
		if err != nil {
			t.Fatalf("GetAgent %s: %v", id, err)
		}
		if agent.Stats.TotalTransactions != 1 || agent.Stats.SuccessfulTransactions != 1 {
			t.Errorf("%s: expected 1 total / 1 successful, got %d / %d",
				id, agent.Stats.TotalTransactions, agent.Stats.SuccessfulTransactions)
		}
	}

	// Flip to failed: successful moves to failed, total stays put
	if _, err := store.UpdateTransactionStatus(ctx, tx.ID, TxFailed); err != nil {
		t.Fatalf("UpdateTransactionStatus: %v", err)
	}
	agent, err := store.GetAgent(ctx, "buyer-bot")
	if err != nil {
		t.Fatalf("GetAgent: %v", err)
	}
	if agent.Stats.TotalTransactions != 1 || agent.Stats.SuccessfulTransactions != 0 || agent.Stats.FailedTransactions != 1 {
		t.Errorf("expected 1/0/1 after status flip, got %d/%d/%d",
			agent.Stats.TotalTransactions, agent.Stats.SuccessfulTransactions, agent.Stats.FailedTransactions)
	}
}

func TestPostgresReviewReplacement(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)
	ctx := context.Background()

	for _, id := range []string{"rated-bot", "critic-bot"} {
		if err := store.CreateAgent(ctx, &Agent{ID: id}); err != nil {
			t.Fatalf("CreateAgent %s: %v", id, err)
		}
	}

	if err := store.PostReview(ctx, &Review{AgentID: "rated-bot", ReviewerID: "critic-bot", Rating: 5}); err != nil {
		t.Fatalf("PostReview: %v", err)
	}
	// Same reviewer again replaces rather than stacking
	if err := store.PostReview(ctx, &Review{AgentID: "rated-bot", ReviewerID: "critic-bot", Rating: 2}); err != nil {
		t.Fatalf("PostReview replace: %v", err)
	}

	agent, err := store.GetAgent(ctx, "rated-bot")
	if err != nil {
		t.Fatalf("GetAgent: %v", err)
	}
	if agent.Stats.ReviewsCount != 1 {
		t.Errorf("expected 1 review after replacement, got %d", agent.Stats.ReviewsCount)
	}
	if agent.Stats.AvgRating != 2 {
		t.Errorf("expected avg rating 2 after replacement, got %v", agent.Stats.AvgRating)
	}
}

func TestPostgresConnectionsAndHeartbeats(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)
	ctx := context.Background()

	for _, id := range []string{"alpha-bot", "beta-bot"} {
		if err := store.CreateAgent(ctx, &Agent{ID: id}); err != nil {
			t.Fatalf("CreateAgent %s: %v", id, err)
		}
	}

	conn := &Connection{Requester: "alpha-bot", Target: "beta-bot"}
	if err := store.RequestConnection(ctx, conn); err != nil {
		t.Fatalf("RequestConnection: %v", err)
	}

	// Reverse direction counts as a duplicate while the first is live
	if err := store.RequestConnection(ctx, &Connection{Requester: "beta-bot", Target: "alpha-bot"}); err != ErrConnectionExists {
		t.Errorf("expected ErrConnectionExists, got %v", err)
	}

	accepted, err := store.RespondConnection(ctx, conn.ID, true)
	if err != nil {
		t.Fatalf("RespondConnection: %v", err)
	}
	if accepted.Status != ConnAccepted {
		t.Errorf("expected accepted status, got %q", accepted.Status)
	}

	agent, err := store.GetAgent(ctx, "beta-bot")
	if err != nil {
		t.Fatalf("GetAgent: %v", err)
	}
	if agent.Stats.ConnectionsAccepted != 1 {
		t.Errorf("expected 1 accepted connection, got %d", agent.Stats.ConnectionsAccepted)
	}

	if err := store.RecordHeartbeat(ctx, "alpha-bot", true); err != nil {
		t.Fatalf("RecordHeartbeat: %v", err)
	}
	if err := store.RecordHeartbeat(ctx, "alpha-bot", false); err != nil {
		t.Fatalf("RecordHeartbeat: %v", err)
	}
	agent, err = store.GetAgent(ctx, "alpha-bot")
	if err != nil {
		t.Fatalf("GetAgent: %v", err)
	}
	if agent.Stats.UptimeChecks != 2 || agent.Stats.UptimeUp != 1 {
		t.Errorf("expected 2 checks / 1 up, got %d / %d", agent.Stats.UptimeChecks, agent.Stats.UptimeUp)
	}
}
