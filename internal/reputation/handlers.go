package reputation

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mwhited/agora/internal/traces"
)

// Handler provides HTTP endpoints for reputation
type Handler struct {
	engine        *Engine
	provider      StatsProvider
	snapshotStore SnapshotStore
	signer        *Signer
}

// NewHandler creates a new reputation handler
func NewHandler(provider StatsProvider) *Handler {
	return &Handler{
		engine:   NewEngine(),
		provider: provider,
	}
}

// NewHandlerFull creates a handler with snapshot store and signer.
func NewHandlerFull(provider StatsProvider, store SnapshotStore, signer *Signer) *Handler {
	return &Handler{
		engine:        NewEngine(),
		provider:      provider,
		snapshotStore: store,
		signer:        signer,
	}
}

// RegisterRoutes sets up reputation endpoints
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/reputation", h.GetLeaderboard)
	r.GET("/reputation/:id", h.GetReputation)
	r.POST("/reputation/batch", h.GetBatchReputation)
	r.GET("/reputation/:id/history", h.GetReputationHistory)
	r.GET("/reputation/:id/progress", h.GetTierProgress)
	r.GET("/reputation/:id/delta", h.GetReputationDelta)
	r.GET("/tiers", h.GetTiers)
}

func (h *Handler) compute(ctx context.Context, agentID string, in Input) *Result {
	_, span := traces.StartSpan(ctx, "reputation.Compute", traces.AgentID(agentID))
	defer span.End()

	done := observeCompute()
	result := h.engine.Compute(in, time.Now())
	done(result.Tier)
	result.AgentID = agentID

	span.SetAttributes(traces.Score(result.Score), traces.TierName(string(result.Tier)))
	return result
}

// GetReputation returns the reputation score for a single agent
func (h *Handler) GetReputation(c *gin.Context) {
	id := strings.ToLower(c.Param("id"))

	in, err := h.provider.AgentInput(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "agent_not_found",
			"message": "Agent not found",
		})
		return
	}

	result := h.compute(c.Request.Context(), id, *in)

	resp := gin.H{"reputation": result}
	if h.signer != nil {
		sig, issued, expires, err := h.signer.Sign(result)
		if err == nil {
			resp["signature"] = sig
			resp["issuedAt"] = issued
			resp["expiresAt"] = expires
		}
	}
	c.JSON(http.StatusOK, resp)
}

// GetBatchReputation returns reputation scores for multiple agents.
// POST /v1/reputation/batch
func (h *Handler) GetBatchReputation(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Request body must contain 'agentIds' array",
		})
		return
	}

	if len(req.AgentIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "At least one agent id is required",
		})
		return
	}
	if len(req.AgentIDs) > 100 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "too_many_agents",
			"message": "Maximum 100 agent ids per batch request",
		})
		return
	}

	var scores []*SignedResult
	for _, id := range req.AgentIDs {
		id = strings.ToLower(id)
		in, err := h.provider.AgentInput(c.Request.Context(), id)
		if err != nil {
			// Unknown agents get a zero-score newcomer entry rather than
			// failing the batch
			info, _ := InfoFor(TierNewcomer)
			scores = append(scores, &SignedResult{
				Reputation: &Result{AgentID: id, Tier: TierNewcomer, TierInfo: info},
			})
			continue
		}
		result := h.compute(c.Request.Context(), id, *in)
		signed := &SignedResult{Reputation: result}
		if h.signer != nil {
			sig, issued, expires, err := h.signer.Sign(result)
			if err == nil {
				signed.Signature = sig
				signed.IssuedAt = issued
				signed.ExpiresAt = expires
			}
		}
		scores = append(scores, signed)
	}

	resp := BatchResponse{Scores: scores}
	if h.signer != nil {
		sig, issued, expires, err := h.signer.Sign(scores)
		if err == nil {
			resp.Signature = sig
			resp.IssuedAt = issued
			resp.ExpiresAt = expires
		}
	}

	c.JSON(http.StatusOK, resp)
}

// GetReputationHistory returns historical reputation snapshots.
// GET /v1/reputation/:id/history?from=&to=&limit=
func (h *Handler) GetReputationHistory(c *gin.Context) {
	id := strings.ToLower(c.Param("id"))

	if h.snapshotStore == nil {
		c.JSON(http.StatusNotImplemented, gin.H{
			"error":   "not_available",
			"message": "Historical reputation data is not available",
		})
		return
	}

	q := HistoryQuery{
		AgentID: id,
		Limit:   100,
	}

	if from := c.Query("from"); from != "" {
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			q.From = t
		}
	}
	if to := c.Query("to"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			q.To = t
		}
	}
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			q.Limit = parsed
			if q.Limit > 1000 {
				q.Limit = 1000
			}
		}
	}

	snapshots, err := h.snapshotStore.Query(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "query_failed",
			"message": "Failed to query reputation history",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"agentId":   id,
		"snapshots": snapshots,
		"count":     len(snapshots),
	})
}

// GetTierProgress returns how far an agent has advanced through its tier.
// GET /v1/reputation/:id/progress
func (h *Handler) GetTierProgress(c *gin.Context) {
	id := strings.ToLower(c.Param("id"))

	in, err := h.provider.AgentInput(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "agent_not_found",
			"message": "Agent not found",
		})
		return
	}

	result := h.compute(c.Request.Context(), id, *in)
	progress := ProgressToNextTier(result.Score)

	resp := gin.H{
		"agentId":  id,
		"score":    result.Score,
		"progress": progress,
	}
	if progress.NextTier != nil {
		resp["pointsToNextTier"] = progress.NextTier.MinScore - result.Score
	}
	c.JSON(http.StatusOK, resp)
}

// GetReputationDelta compares the current score against the latest snapshot.
// GET /v1/reputation/:id/delta
func (h *Handler) GetReputationDelta(c *gin.Context) {
	id := strings.ToLower(c.Param("id"))

	if h.snapshotStore == nil {
		c.JSON(http.StatusNotImplemented, gin.H{
			"error":   "not_available",
			"message": "Historical reputation data is not available",
		})
		return
	}

	in, err := h.provider.AgentInput(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "agent_not_found",
			"message": "Agent not found",
		})
		return
	}

	result := h.compute(c.Request.Context(), id, *in)

	prev, err := h.snapshotStore.Latest(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "query_failed",
			"message": "Failed to load previous score",
		})
		return
	}
	if prev == nil {
		c.JSON(http.StatusOK, gin.H{
			"agentId": id,
			"current": result,
			"delta":   DescribeDelta(result.Score, result.Score),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"agentId":  id,
		"current":  result,
		"previous": prev,
		"delta":    DescribeDelta(prev.Score, result.Score),
	})
}

// GetLeaderboard returns all agents ranked by score.
// GET /v1/reputation?tier=&limit=
func (h *Handler) GetLeaderboard(c *gin.Context) {
	inputs, err := h.provider.AllAgentInputs(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to load agents",
		})
		return
	}

	tierFilter := Tier(strings.ToLower(c.Query("tier")))
	if tierFilter != "" {
		if _, ok := InfoFor(tierFilter); !ok {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_tier",
				"message": "Unknown tier",
			})
			return
		}
	}

	limit := 100
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
			if limit > 1000 {
				limit = 1000
			}
		}
	}

	distribution := make(map[Tier]int, len(Tiers()))
	var results []*Result
	for id, in := range inputs {
		result := h.compute(c.Request.Context(), id, *in)
		distribution[result.Tier]++
		if tierFilter != "" && result.Tier != tierFilter {
			continue
		}
		results = append(results, result)
	}

	// Rank by score, ID as tiebreak for stable ordering
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].AgentID < results[j].AgentID
	})

	if len(results) > limit {
		results = results[:limit]
	}

	c.JSON(http.StatusOK, gin.H{
		"agents":       results,
		"count":        len(results),
		"distribution": distribution,
	})
}

// GetTiers returns the static tier descriptor table.
// GET /v1/tiers
func (h *Handler) GetTiers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"tiers": Tiers(),
	})
}
