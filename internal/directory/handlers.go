package directory

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/codes"

	"github.com/mwhited/agora/internal/logging"
	"github.com/mwhited/agora/internal/security"
	"github.com/mwhited/agora/internal/traces"
	"github.com/mwhited/agora/internal/validation"
)

// Handler provides HTTP handlers for the directory API
type Handler struct {
	store Store

	onAgentJoined func(agentID, name string)
}

// NewHandler creates a new directory handler
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// OnAgentJoined registers a callback invoked after a successful registration.
// Used to fan events out to realtime subscribers. Set before serving.
func (h *Handler) OnAgentJoined(fn func(agentID, name string)) {
	h.onAgentJoined = fn
}

// RegisterRoutes sets up the directory routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	// Agent management
	r.POST("/agents", h.RegisterAgent)
	r.GET("/agents", h.ListAgents)
	r.GET("/agents/:id", h.GetAgent)
	r.PUT("/agents/:id", h.UpdateAgent)
	r.DELETE("/agents/:id", h.DeleteAgent)

	// Activity recording (these counters become reputation)
	r.POST("/transactions", h.RecordTransaction)
	r.PUT("/transactions/:txId", h.UpdateTransactionStatus)
	r.GET("/agents/:id/transactions", h.ListTransactions)

	r.POST("/agents/:id/reviews", h.PostReview)
	r.GET("/agents/:id/reviews", h.ListReviews)

	r.POST("/connections", h.RequestConnection)
	r.PUT("/connections/:connId", h.RespondConnection)
	r.GET("/agents/:id/connections", h.ListConnections)

	r.POST("/agents/:id/heartbeat", h.RecordHeartbeat)

	// Network stats
	r.GET("/network/stats", h.GetNetworkStats)
}

// -----------------------------------------------------------------------------
// Agent Handlers
// -----------------------------------------------------------------------------

// RegisterAgent handles POST /agents
func (h *Handler) RegisterAgent(c *gin.Context) {
	ctx := c.Request.Context()
	logger := logging.L(ctx)

	var req RegisterAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	req.ID = validation.SanitizeAgentID(req.ID)
	if errs := validation.Validate(
		validation.ValidAgentID("id", req.ID),
		validation.MaxLength("name", req.Name, 200),
		validation.MaxLength("description", req.Description, validation.MaxStringLength),
	); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": errs.Error(),
		})
		return
	}

	// Endpoints are fetched server-side later, so reject SSRF-prone hosts now
	if req.Endpoint != "" {
		if err := security.ValidateEndpointURL(req.Endpoint); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_endpoint",
				"message": err.Error(),
			})
			return
		}
	}

	agent := &Agent{
		ID:          req.ID,
		Name:        validation.SanitizeString(req.Name, 200),
		Description: validation.SanitizeString(req.Description, validation.MaxStringLength),
		Endpoint:    req.Endpoint,
	}

	if err := h.store.CreateAgent(ctx, agent); err != nil {
		if errors.Is(err, ErrAgentExists) {
			c.JSON(http.StatusConflict, gin.H{
				"error":   "agent_exists",
				"message": "An agent with this id is already registered",
			})
			return
		}
		logger.Error("failed to create agent", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to register agent",
		})
		return
	}

	logger.Info("agent registered",
		"agent_id", agent.ID,
		"name", agent.Name,
	)

	if h.onAgentJoined != nil {
		h.onAgentJoined(agent.ID, agent.Name)
	}

	c.JSON(http.StatusCreated, agent)
}

// GetAgent handles GET /agents/:id
func (h *Handler) GetAgent(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	agent, err := h.store.GetAgent(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAgentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "Agent not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to get agent",
		})
		return
	}

	c.JSON(http.StatusOK, agent)
}

// UpdateAgent handles PUT /agents/:id
func (h *Handler) UpdateAgent(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	var req struct {
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
		Endpoint    string `json:"endpoint,omitempty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	agent := &Agent{
		ID:          id,
		Name:        validation.SanitizeString(req.Name, 200),
		Description: validation.SanitizeString(req.Description, validation.MaxStringLength),
		Endpoint:    req.Endpoint,
	}

	if err := h.store.UpdateAgent(ctx, agent); err != nil {
		if errors.Is(err, ErrAgentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "Agent not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to update agent",
		})
		return
	}

	c.JSON(http.StatusOK, agent)
}

// ListAgents handles GET /agents
func (h *Handler) ListAgents(c *gin.Context) {
	ctx := c.Request.Context()

	query := AgentQuery{
		Limit:  parseIntQuery(c, "limit", 100),
		Offset: parseIntQuery(c, "offset", 0),
	}

	agents, err := h.store.ListAgents(ctx, query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to list agents",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"agents": agents,
		"count":  len(agents),
	})
}

// DeleteAgent handles DELETE /agents/:id
func (h *Handler) DeleteAgent(c *gin.Context) {
	ctx := c.Request.Context()
	logger := logging.L(ctx)
	id := c.Param("id")

	if err := h.store.DeleteAgent(ctx, id); err != nil {
		if errors.Is(err, ErrAgentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "Agent not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to delete agent",
		})
		return
	}

	logger.Info("agent deleted", "agent_id", id)
	c.Status(http.StatusNoContent)
}

// -----------------------------------------------------------------------------
// Transaction Handlers
// -----------------------------------------------------------------------------

// RecordTransaction handles POST /transactions
func (h *Handler) RecordTransaction(c *gin.Context) {
	ctx := c.Request.Context()
	logger := logging.L(ctx)

	var req RecordTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	if req.Status != "" && !ValidTxStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_status",
			"message": "Status must be pending, completed, or failed",
		})
		return
	}

	ctx, span := traces.StartSpan(ctx, "directory.RecordTransaction", traces.AgentID(req.From))
	defer span.End()

	tx := &Transaction{
		From:   req.From,
		To:     req.To,
		Status: req.Status,
	}

	if err := h.store.RecordTransaction(ctx, tx); err != nil {
		switch {
		case errors.Is(err, ErrAgentNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "One or both agents not found",
			})
		case errors.Is(err, ErrSelfReference):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "self_reference",
				"message": "An agent cannot transact with itself",
			})
		default:
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to record transaction")
			logger.Error("failed to record transaction", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "internal_error",
				"message": "Failed to record transaction",
			})
		}
		return
	}

	span.SetAttributes(traces.TransactionID(tx.ID))

	logger.Info("transaction recorded",
		"tx_id", tx.ID,
		"from", tx.From,
		"to", tx.To,
		"status", tx.Status,
	)

	c.JSON(http.StatusCreated, tx)
}

// UpdateTransactionStatus handles PUT /transactions/:txId
func (h *Handler) UpdateTransactionStatus(c *gin.Context) {
	ctx := c.Request.Context()
	logger := logging.L(ctx)
	txID := c.Param("txId")

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	tx, err := h.store.UpdateTransactionStatus(ctx, txID, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, ErrTransactionNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "Transaction not found",
			})
		case errors.Is(err, ErrInvalidStatus):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_status",
				"message": "Status must be pending, completed, or failed",
			})
		default:
			logger.Error("failed to update transaction", "tx_id", txID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "internal_error",
				"message": "Failed to update transaction",
			})
		}
		return
	}

	c.JSON(http.StatusOK, tx)
}

// ListTransactions handles GET /agents/:id/transactions
func (h *Handler) ListTransactions(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	limit := parseIntQuery(c, "limit", 100)

	txs, err := h.store.ListTransactions(ctx, id, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to list transactions",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transactions": txs,
		"count":        len(txs),
	})
}

// -----------------------------------------------------------------------------
// Review Handlers
// -----------------------------------------------------------------------------

// PostReview handles POST /agents/:id/reviews
func (h *Handler) PostReview(c *gin.Context) {
	ctx := c.Request.Context()
	logger := logging.L(ctx)
	id := c.Param("id")

	var req PostReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	if errs := validation.Validate(
		validation.ValidAgentID("reviewerId", req.ReviewerID),
		validation.RatingRange("rating", req.Rating),
	); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": errs.Error(),
		})
		return
	}

	review := &Review{
		AgentID:    id,
		ReviewerID: req.ReviewerID,
		Rating:     req.Rating,
		Comment:    validation.SanitizeString(req.Comment, validation.MaxStringLength),
	}

	if err := h.store.PostReview(ctx, review); err != nil {
		switch {
		case errors.Is(err, ErrAgentNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "Agent or reviewer not found",
			})
		case errors.Is(err, ErrSelfReference):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "self_reference",
				"message": "An agent cannot review itself",
			})
		case errors.Is(err, ErrInvalidRating):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_rating",
				"message": "Rating must be between 1 and 5",
			})
		default:
			logger.Error("failed to post review", "agent_id", id, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "internal_error",
				"message": "Failed to post review",
			})
		}
		return
	}

	logger.Info("review posted",
		"agent_id", id,
		"reviewer_id", review.ReviewerID,
		"rating", review.Rating,
	)

	c.JSON(http.StatusCreated, review)
}

// ListReviews handles GET /agents/:id/reviews
func (h *Handler) ListReviews(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	limit := parseIntQuery(c, "limit", 100)

	reviews, err := h.store.ListReviews(ctx, id, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to list reviews",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reviews": reviews,
		"count":   len(reviews),
	})
}

// -----------------------------------------------------------------------------
// Connection Handlers
// -----------------------------------------------------------------------------

// RequestConnection handles POST /connections
func (h *Handler) RequestConnection(c *gin.Context) {
	ctx := c.Request.Context()
	logger := logging.L(ctx)

	var req ConnectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	conn := &Connection{
		Requester: req.Requester,
		Target:    req.Target,
	}

	if err := h.store.RequestConnection(ctx, conn); err != nil {
		switch {
		case errors.Is(err, ErrAgentNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "One or both agents not found",
			})
		case errors.Is(err, ErrSelfReference):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "self_reference",
				"message": "An agent cannot connect to itself",
			})
		case errors.Is(err, ErrConnectionExists):
			c.JSON(http.StatusConflict, gin.H{
				"error":   "connection_exists",
				"message": "A connection between these agents already exists",
			})
		default:
			logger.Error("failed to request connection", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "internal_error",
				"message": "Failed to request connection",
			})
		}
		return
	}

	logger.Info("connection requested",
		"connection_id", conn.ID,
		"requester", conn.Requester,
		"target", conn.Target,
	)

	c.JSON(http.StatusCreated, conn)
}

// RespondConnection handles PUT /connections/:connId
func (h *Handler) RespondConnection(c *gin.Context) {
	ctx := c.Request.Context()
	logger := logging.L(ctx)
	connID := c.Param("connId")

	var req struct {
		Accept *bool `json:"accept" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Request body must contain 'accept'",
		})
		return
	}

	ctx, span := traces.StartSpan(ctx, "directory.RespondConnection", traces.ConnectionID(connID))
	defer span.End()

	conn, err := h.store.RespondConnection(ctx, connID, *req.Accept)
	if err != nil {
		switch {
		case errors.Is(err, ErrConnectionNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "Connection not found",
			})
		case errors.Is(err, ErrInvalidStatus):
			c.JSON(http.StatusConflict, gin.H{
				"error":   "already_responded",
				"message": "Connection has already been responded to",
			})
		default:
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to respond to connection")
			logger.Error("failed to respond to connection", "connection_id", connID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "internal_error",
				"message": "Failed to respond to connection",
			})
		}
		return
	}

	c.JSON(http.StatusOK, conn)
}

// ListConnections handles GET /agents/:id/connections
func (h *Handler) ListConnections(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	conns, err := h.store.ListConnections(ctx, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to list connections",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"connections": conns,
		"count":       len(conns),
	})
}

// -----------------------------------------------------------------------------
// Heartbeat Handler
// -----------------------------------------------------------------------------

// RecordHeartbeat handles POST /agents/:id/heartbeat
func (h *Handler) RecordHeartbeat(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	var req HeartbeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Request body must contain 'up'",
		})
		return
	}

	if err := h.store.RecordHeartbeat(ctx, id, *req.Up); err != nil {
		if errors.Is(err, ErrAgentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "Agent not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to record heartbeat",
		})
		return
	}

	c.Status(http.StatusNoContent)
}

// -----------------------------------------------------------------------------
// Stats Handler
// -----------------------------------------------------------------------------

// GetNetworkStats handles GET /network/stats
func (h *Handler) GetNetworkStats(c *gin.Context) {
	ctx := c.Request.Context()

	stats, err := h.store.GetNetworkStats(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to get network stats",
		})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func parseIntQuery(c *gin.Context, key string, defaultVal int) int {
	if val := c.Query(key); val != "" {
		var i int
		if _, err := fmt.Sscanf(val, "%d", &i); err == nil && i > 0 {
			return i
		}
	}
	return defaultVal
}
