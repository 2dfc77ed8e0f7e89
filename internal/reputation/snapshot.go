package reputation

import "time"

// Snapshot is a point-in-time reputation result stored for history.
type Snapshot struct {
	ID              int       `json:"id"`
	AgentID         string    `json:"agentId"`
	Score           int       `json:"score"`
	NormalizedScore int       `json:"normalizedScore"`
	Tier            Tier      `json:"tier"`
	Transactions    float64   `json:"transactions"`
	SuccessRate     float64   `json:"successRate"`
	Reviews         float64   `json:"reviews"`
	Uptime          float64   `json:"uptime"`
	Age             float64   `json:"age"`
	Connections     float64   `json:"connections"`
	CreatedAt       time.Time `json:"createdAt"`
}

// SnapshotFromResult creates a Snapshot from a computed Result.
func SnapshotFromResult(agentID string, r *Result) *Snapshot {
	return &Snapshot{
		AgentID:         agentID,
		Score:           r.Score,
		NormalizedScore: r.NormalizedScore,
		Tier:            r.Tier,
		Transactions:    r.Breakdown.Transactions,
		SuccessRate:     r.Breakdown.SuccessRate,
		Reviews:         r.Breakdown.Reviews,
		Uptime:          r.Breakdown.Uptime,
		Age:             r.Breakdown.Age,
		Connections:     r.Breakdown.Connections,
		CreatedAt:       r.CalculatedAt,
	}
}

// SignedResult wraps a Result with HMAC signature and validity window.
type SignedResult struct {
	Reputation *Result `json:"reputation"`
	Signature  string  `json:"signature,omitempty"`
	IssuedAt   string  `json:"issuedAt,omitempty"`
	ExpiresAt  string  `json:"expiresAt,omitempty"`
}

// BatchRequest is a request for batch reputation lookups.
type BatchRequest struct {
	AgentIDs []string `json:"agentIds" binding:"required"`
}

// BatchResponse returns multiple reputation scores.
type BatchResponse struct {
	Scores    []*SignedResult `json:"scores"`
	Signature string          `json:"signature,omitempty"`
	IssuedAt  string          `json:"issuedAt,omitempty"`
	ExpiresAt string          `json:"expiresAt,omitempty"`
}

// HistoryQuery holds query parameters for historical scores.
type HistoryQuery struct {
	AgentID string
	From    time.Time
	To      time.Time
	Limit   int
}
