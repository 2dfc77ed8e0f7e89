package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(store Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandler(store)
	h.RegisterRoutes(r.Group("/v1"))
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterAgentEndpoint(t *testing.T) {
	r := newTestRouter(NewMemoryStore())

	w := doJSON(t, r, "POST", "/v1/agents", gin.H{
		"id":   "helper-bot",
		"name": "Helper Bot",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var agent Agent
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &agent))
	assert.Equal(t, "helper-bot", agent.ID)
	assert.Equal(t, "Helper Bot", agent.Name)
	assert.False(t, agent.CreatedAt.IsZero())

	// Same id again conflicts
	w = doJSON(t, r, "POST", "/v1/agents", gin.H{
		"id":   "helper-bot",
		"name": "Impostor",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRegisterAgentFiresJoinedHook(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandler(NewMemoryStore())

	var joinedID, joinedName string
	h.OnAgentJoined(func(agentID, name string) {
		joinedID = agentID
		joinedName = name
	})
	h.RegisterRoutes(r.Group("/v1"))

	w := doJSON(t, r, "POST", "/v1/agents", gin.H{"id": "helper-bot", "name": "Helper Bot"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "helper-bot", joinedID)
	assert.Equal(t, "Helper Bot", joinedName)

	// Failed registrations stay silent
	joinedID = ""
	w = doJSON(t, r, "POST", "/v1/agents", gin.H{"id": "helper-bot", "name": "Impostor"})
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Empty(t, joinedID)
}

func TestRegisterAgentRejectsBadID(t *testing.T) {
	r := newTestRouter(NewMemoryStore())

	for _, id := range []string{"", "ab", "has spaces", "-leading-dash", "way!bad"} {
		w := doJSON(t, r, "POST", "/v1/agents", gin.H{"id": id, "name": "x"})
		assert.Equal(t, http.StatusBadRequest, w.Code, "id %q should be rejected", id)
	}
}

func TestGetAgentEndpoint(t *testing.T) {
	store := NewMemoryStore()
	seedAgents(t, store, "helper-bot")
	r := newTestRouter(store)

	w := doJSON(t, r, "GET", "/v1/agents/helper-bot", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, "GET", "/v1/agents/ghost-bot", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateAndDeleteAgentEndpoints(t *testing.T) {
	store := NewMemoryStore()
	seedAgents(t, store, "helper-bot")
	r := newTestRouter(store)

	w := doJSON(t, r, "PUT", "/v1/agents/helper-bot", gin.H{"name": "Renamed"})
	require.Equal(t, http.StatusOK, w.Code)

	agent, err := store.GetAgent(context.Background(), "helper-bot")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", agent.Name)

	w = doJSON(t, r, "DELETE", "/v1/agents/helper-bot", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, r, "DELETE", "/v1/agents/helper-bot", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRecordTransactionEndpoint(t *testing.T) {
	store := NewMemoryStore()
	seedAgents(t, store, "alpha", "beta")
	r := newTestRouter(store)

	w := doJSON(t, r, "POST", "/v1/transactions", gin.H{
		"from":   "alpha",
		"to":     "beta",
		"status": "completed",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var tx Transaction
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tx))
	assert.NotEmpty(t, tx.ID)
	assert.Equal(t, TxCompleted, tx.Status)

	// Both counters moved
	agent, err := store.GetAgent(context.Background(), "beta")
	require.NoError(t, err)
	assert.Equal(t, 1, agent.Stats.TotalTransactions)
	assert.Equal(t, 1, agent.Stats.SuccessfulTransactions)
}

func TestRecordTransactionEndpointErrors(t *testing.T) {
	store := NewMemoryStore()
	seedAgents(t, store, "alpha", "beta")
	r := newTestRouter(store)

	w := doJSON(t, r, "POST", "/v1/transactions", gin.H{"from": "alpha", "to": "alpha"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, "POST", "/v1/transactions", gin.H{"from": "alpha", "to": "ghost"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, "POST", "/v1/transactions", gin.H{"from": "alpha", "to": "beta", "status": "exploded"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateTransactionStatusEndpoint(t *testing.T) {
	store := NewMemoryStore()
	seedAgents(t, store, "alpha", "beta")
	tx := &Transaction{From: "alpha", To: "beta"}
	require.NoError(t, store.RecordTransaction(context.Background(), tx))
	r := newTestRouter(store)

	w := doJSON(t, r, "PUT", "/v1/transactions/"+tx.ID, gin.H{"status": "failed"})
	require.Equal(t, http.StatusOK, w.Code)

	agent, err := store.GetAgent(context.Background(), "alpha")
	require.NoError(t, err)
	assert.Equal(t, 1, agent.Stats.FailedTransactions)

	w = doJSON(t, r, "PUT", "/v1/transactions/txn_missing", gin.H{"status": "failed"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, "PUT", "/v1/transactions/"+tx.ID, gin.H{"status": "exploded"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPostReviewEndpoint(t *testing.T) {
	store := NewMemoryStore()
	seedAgents(t, store, "target", "reviewer")
	r := newTestRouter(store)

	w := doJSON(t, r, "POST", "/v1/agents/target/reviews", gin.H{
		"reviewerId": "reviewer",
		"rating":     4,
		"comment":    "solid work",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	agent, err := store.GetAgent(context.Background(), "target")
	require.NoError(t, err)
	assert.Equal(t, 1, agent.Stats.ReviewsCount)
	assert.Equal(t, 4.0, agent.Stats.AvgRating)

	w = doJSON(t, r, "POST", "/v1/agents/target/reviews", gin.H{
		"reviewerId": "reviewer",
		"rating":     7,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, "POST", "/v1/agents/target/reviews", gin.H{
		"reviewerId": "target",
		"rating":     5,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListReviewsEndpoint(t *testing.T) {
	store := NewMemoryStore()
	seedAgents(t, store, "target", "rev-one", "rev-two")
	require.NoError(t, store.PostReview(context.Background(), &Review{AgentID: "target", ReviewerID: "rev-one", Rating: 5}))
	require.NoError(t, store.PostReview(context.Background(), &Review{AgentID: "target", ReviewerID: "rev-two", Rating: 3}))
	r := newTestRouter(store)

	w := doJSON(t, r, "GET", "/v1/agents/target/reviews", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Reviews []Review `json:"reviews"`
		Count   int      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
}

func TestConnectionEndpoints(t *testing.T) {
	store := NewMemoryStore()
	seedAgents(t, store, "alpha", "beta")
	r := newTestRouter(store)

	w := doJSON(t, r, "POST", "/v1/connections", gin.H{
		"requester": "alpha",
		"target":    "beta",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var conn Connection
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &conn))
	assert.Equal(t, ConnPending, conn.Status)

	// Duplicate pair conflicts
	w = doJSON(t, r, "POST", "/v1/connections", gin.H{
		"requester": "beta",
		"target":    "alpha",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, r, "PUT", "/v1/connections/"+conn.ID, gin.H{"accept": true})
	require.Equal(t, http.StatusOK, w.Code)

	agent, err := store.GetAgent(context.Background(), "beta")
	require.NoError(t, err)
	assert.Equal(t, 1, agent.Stats.ConnectionsAccepted)

	// Already responded
	w = doJSON(t, r, "PUT", "/v1/connections/"+conn.ID, gin.H{"accept": false})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestHeartbeatEndpoint(t *testing.T) {
	store := NewMemoryStore()
	seedAgents(t, store, "helper-bot")
	r := newTestRouter(store)

	w := doJSON(t, r, "POST", "/v1/agents/helper-bot/heartbeat", gin.H{"up": true})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, r, "POST", "/v1/agents/helper-bot/heartbeat", gin.H{"up": false})
	assert.Equal(t, http.StatusNoContent, w.Code)

	agent, err := store.GetAgent(context.Background(), "helper-bot")
	require.NoError(t, err)
	assert.Equal(t, 2, agent.Stats.UptimeChecks)
	assert.Equal(t, 1, agent.Stats.UptimeUp)

	// Missing 'up' field fails binding
	w = doJSON(t, r, "POST", "/v1/agents/helper-bot/heartbeat", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, "POST", "/v1/agents/ghost/heartbeat", gin.H{"up": true})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNetworkStatsEndpoint(t *testing.T) {
	store := NewMemoryStore()
	seedAgents(t, store, "alpha", "beta")
	require.NoError(t, store.RecordTransaction(context.Background(), &Transaction{From: "alpha", To: "beta"}))
	r := newTestRouter(store)

	w := doJSON(t, r, "GET", "/v1/network/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var stats NetworkStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, int64(2), stats.TotalAgents)
	assert.Equal(t, int64(1), stats.TotalTransactions)
}

func TestListAgentsEndpoint(t *testing.T) {
	store := NewMemoryStore()
	seedAgents(t, store, "a-bot", "b-bot", "c-bot")
	r := newTestRouter(store)

	w := doJSON(t, r, "GET", "/v1/agents?limit=2", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Agents []Agent `json:"agents"`
		Count  int     `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
}
