package realtime

import (
	"context"
	"log/slog"
	"testing"
	"time"
)

func testHub() *Hub {
	return NewHub(slog.Default())
}

// ---------------------------------------------------------------------------
// shouldSend tests
// ---------------------------------------------------------------------------

func TestShouldSend_AllEvents(t *testing.T) {
	h := testHub()
	client := &Client{sub: Subscription{AllEvents: true}}

	event := &Event{Type: EventScoreUpdate, Timestamp: time.Now()}
	if !h.shouldSend(client, event) {
		t.Error("AllEvents client should receive all events")
	}
}

func TestShouldSend_EventTypeFilter(t *testing.T) {
	h := testHub()

	client := &Client{sub: Subscription{
		EventTypes: []EventType{EventTierChange, EventAgentJoined},
	}}

	tierEvent := &Event{Type: EventTierChange}
	joinedEvent := &Event{Type: EventAgentJoined}
	scoreEvent := &Event{Type: EventScoreUpdate}

	if !h.shouldSend(client, tierEvent) {
		t.Error("Should receive tier_change events")
	}
	if !h.shouldSend(client, joinedEvent) {
		t.Error("Should receive agent_joined events")
	}
	if h.shouldSend(client, scoreEvent) {
		t.Error("Should NOT receive score_update events")
	}
}

func TestShouldSend_AgentFilter(t *testing.T) {
	h := testHub()

	client := &Client{sub: Subscription{
		AgentIDs: []string{"helper-bot"},
	}}

	matching := &Event{
		Type: EventScoreUpdate,
		Data: map[string]interface{}{"agentId": "helper-bot", "score": 620.0},
	}
	notMatching := &Event{
		Type: EventScoreUpdate,
		Data: map[string]interface{}{"agentId": "other-bot", "score": 300.0},
	}

	if !h.shouldSend(client, matching) {
		t.Error("Should match on agentId")
	}
	if h.shouldSend(client, notMatching) {
		t.Error("Should NOT match unrelated agents")
	}
}

func TestShouldSend_TierFilter(t *testing.T) {
	h := testHub()

	client := &Client{sub: Subscription{
		Tiers: []string{"elite", "legendary"},
	}}

	elite := &Event{
		Type: EventTierChange,
		Data: map[string]interface{}{"agentId": "star-bot", "tier": "elite"},
	}
	newcomer := &Event{
		Type: EventTierChange,
		Data: map[string]interface{}{"agentId": "fresh-bot", "tier": "newcomer"},
	}

	if !h.shouldSend(client, elite) {
		t.Error("Should receive elite tier events")
	}
	if h.shouldSend(client, newcomer) {
		t.Error("Should NOT receive newcomer tier events")
	}
}

func TestShouldSend_MinScoreFilter(t *testing.T) {
	h := testHub()

	client := &Client{sub: Subscription{
		MinScore: 600,
	}}

	high := &Event{
		Type: EventScoreUpdate,
		Data: map[string]interface{}{"agentId": "trusted-bot", "score": 750.0},
	}
	low := &Event{
		Type: EventScoreUpdate,
		Data: map[string]interface{}{"agentId": "fresh-bot", "score": 240.0},
	}

	if !h.shouldSend(client, high) {
		t.Error("Should receive high score update")
	}
	if h.shouldSend(client, low) {
		t.Error("Should NOT receive low score update")
	}
}

func TestShouldSend_EmptySubscription(t *testing.T) {
	h := testHub()

	// No filters, not AllEvents
	client := &Client{sub: Subscription{}}

	event := &Event{Type: EventScoreUpdate}
	if !h.shouldSend(client, event) {
		t.Error("Empty subscription (no filters) should receive events")
	}
}

func TestShouldSend_NonMapData(t *testing.T) {
	h := testHub()

	client := &Client{sub: Subscription{
		AgentIDs: []string{"helper-bot"},
	}}

	// Event with non-map data should not crash
	event := &Event{
		Type: EventAgentJoined,
		Data: "string data not a map",
	}

	// Agent filter skips non-map data (can't extract an id), so event passes through
	if !h.shouldSend(client, event) {
		t.Error("Non-map data should pass through when agent filter can't extract an id")
	}
}

// ---------------------------------------------------------------------------
// Hub lifecycle tests
// ---------------------------------------------------------------------------

func TestHub_Stats_Initial(t *testing.T) {
	h := testHub()

	stats := h.Stats()
	if stats["connectedClients"].(int) != 0 {
		t.Errorf("Expected 0 connected clients, got %v", stats["connectedClients"])
	}
	if stats["totalEvents"].(int64) != 0 {
		t.Errorf("Expected 0 total events, got %v", stats["totalEvents"])
	}
}

func TestHub_BroadcastAndStats(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	// Broadcast an event
	h.Broadcast(&Event{Type: EventScoreUpdate, Timestamp: time.Now()})
	time.Sleep(50 * time.Millisecond)

	stats := h.Stats()
	if stats["totalEvents"].(int64) != 1 {
		t.Errorf("Expected 1 total event, got %v", stats["totalEvents"])
	}
}

func TestHub_RegisterUnregister(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	client := &Client{
		hub:  h,
		send: make(chan []byte, 256),
		sub:  Subscription{AllEvents: true},
	}

	h.register <- client
	time.Sleep(50 * time.Millisecond)

	stats := h.Stats()
	if stats["connectedClients"].(int) != 1 {
		t.Errorf("Expected 1 connected client, got %v", stats["connectedClients"])
	}
	if stats["peakClients"].(int64) != 1 {
		t.Errorf("Expected peak 1, got %v", stats["peakClients"])
	}

	h.unregister <- client
	time.Sleep(50 * time.Millisecond)

	stats = h.Stats()
	if stats["connectedClients"].(int) != 0 {
		t.Errorf("Expected 0 connected clients after unregister, got %v", stats["connectedClients"])
	}
	// Peak should still be 1
	if stats["peakClients"].(int64) != 1 {
		t.Errorf("Expected peak still 1, got %v", stats["peakClients"])
	}
}

func TestHub_BroadcastToClient(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	client := &Client{
		hub:  h,
		send: make(chan []byte, 256),
		sub:  Subscription{AllEvents: true},
	}

	h.register <- client
	time.Sleep(50 * time.Millisecond)

	h.BroadcastScoreUpdate("helper-bot", 620, "trusted")

	select {
	case msg := <-client.send:
		if len(msg) == 0 {
			t.Error("Expected non-empty message")
		}
	case <-time.After(time.Second):
		t.Error("Timeout waiting for broadcast")
	}
}

func TestHub_BroadcastTierChange(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	// Should not panic
	h.BroadcastTierChange("helper-bot", "reliable", "trusted", 580, 620)
	h.BroadcastAgentJoined("fresh-bot", "Fresh Bot")
}

func TestHub_ContextCancellation(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
		// Hub stopped
	case <-time.After(2 * time.Second):
		t.Error("Hub did not stop after context cancellation")
	}
}

func TestHub_FilteredBroadcast(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	// Client only wants tier changes
	client := &Client{
		hub:  h,
		send: make(chan []byte, 256),
		sub:  Subscription{EventTypes: []EventType{EventTierChange}},
	}

	h.register <- client
	time.Sleep(50 * time.Millisecond)

	// Send a score update (should be filtered out)
	h.Broadcast(&Event{Type: EventScoreUpdate, Timestamp: time.Now()})
	time.Sleep(100 * time.Millisecond)

	select {
	case <-client.send:
		t.Error("Client should NOT receive score_update event")
	default:
		// Good - filtered out
	}

	// Send a tier change (should be received)
	h.Broadcast(&Event{Type: EventTierChange, Timestamp: time.Now()})

	select {
	case msg := <-client.send:
		if len(msg) == 0 {
			t.Error("Expected non-empty message")
		}
	case <-time.After(time.Second):
		t.Error("Client should receive tier_change event")
	}
}
