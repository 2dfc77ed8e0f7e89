// Package directory implements agent registration and activity tracking.
// Every counter it maintains is a raw input to reputation scoring.
package directory

import (
	"errors"
	"time"
)

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

var (
	ErrAgentNotFound       = errors.New("directory: agent not found")
	ErrAgentExists         = errors.New("directory: agent already registered")
	ErrTransactionNotFound = errors.New("directory: transaction not found")
	ErrConnectionNotFound  = errors.New("directory: connection not found")
	ErrConnectionExists    = errors.New("directory: connection already exists")
	ErrInvalidRating       = errors.New("directory: rating must be between 1 and 5")
	ErrInvalidStatus       = errors.New("directory: invalid status")
	ErrSelfReference       = errors.New("directory: agent cannot reference itself")
)

// -----------------------------------------------------------------------------
// Core Types
// -----------------------------------------------------------------------------

// Agent represents a registered agent on the network
type Agent struct {
	// Identity
	ID          string `json:"id"`          // Slug identifier (primary key)
	Name        string `json:"name"`        // Human-readable name
	Description string `json:"description"` // What this agent does

	// Metadata
	Endpoint  string    `json:"endpoint,omitempty"` // Agent's API endpoint
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Activity counters (these become reputation)
	Stats AgentStats `json:"stats"`
}

// AgentStats tracks agent activity. Counters are maintained on every write
// so reputation computation never scans history.
type AgentStats struct {
	TotalTransactions      int `json:"totalTransactions"`
	SuccessfulTransactions int `json:"successfulTransactions"`
	FailedTransactions     int `json:"failedTransactions"`

	ReviewsCount int     `json:"reviewsCount"`
	AvgRating    float64 `json:"avgRating"` // 0 when no reviews

	UptimeChecks int `json:"uptimeChecks"` // Heartbeats received
	UptimeUp     int `json:"uptimeUp"`     // Heartbeats reporting up

	ConnectionsAccepted int `json:"connectionsAccepted"`

	LastActive time.Time `json:"lastActive,omitempty"`
}

// UptimePercent derives availability from heartbeat counters. An agent
// with no heartbeat history reports 100: absence of evidence is not
// evidence of downtime.
func (s AgentStats) UptimePercent() float64 {
	if s.UptimeChecks == 0 {
		return 100
	}
	return float64(s.UptimeUp) / float64(s.UptimeChecks) * 100
}

// Transaction statuses
const (
	TxPending   = "pending"
	TxCompleted = "completed"
	TxFailed    = "failed"
)

// Transaction records a unit of work between two agents
type Transaction struct {
	ID        string    `json:"id"`
	From      string    `json:"from"`   // Initiating agent ID
	To        string    `json:"to"`     // Serving agent ID
	Status    string    `json:"status"` // pending, completed, failed
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ValidTxStatus reports whether s is a known transaction status.
func ValidTxStatus(s string) bool {
	return s == TxPending || s == TxCompleted || s == TxFailed
}

// Review is a 1-5 star rating left by one agent for another.
// One review per reviewer per agent; re-reviewing replaces the old rating.
type Review struct {
	ID         string    `json:"id"`
	AgentID    string    `json:"agentId"`
	ReviewerID string    `json:"reviewerId"`
	Rating     int       `json:"rating"` // 1-5
	Comment    string    `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Connection statuses
const (
	ConnPending  = "pending"
	ConnAccepted = "accepted"
	ConnDeclined = "declined"
)

// Connection is a pairing between two agents. Only accepted connections
// count toward reputation.
type Connection struct {
	ID          string     `json:"id"`
	Requester   string     `json:"requester"`
	Target      string     `json:"target"`
	Status      string     `json:"status"` // pending, accepted, declined
	CreatedAt   time.Time  `json:"createdAt"`
	RespondedAt *time.Time `json:"respondedAt,omitempty"`
}

// -----------------------------------------------------------------------------
// Request Types
// -----------------------------------------------------------------------------

// RegisterAgentRequest is the payload for agent registration
type RegisterAgentRequest struct {
	ID          string `json:"id" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Endpoint    string `json:"endpoint,omitempty"`
}

// RecordTransactionRequest is the payload for recording a transaction
type RecordTransactionRequest struct {
	From   string `json:"from" binding:"required"`
	To     string `json:"to" binding:"required"`
	Status string `json:"status,omitempty"` // Defaults to pending
}

// PostReviewRequest is the payload for leaving a review
type PostReviewRequest struct {
	ReviewerID string `json:"reviewerId" binding:"required"`
	Rating     int    `json:"rating" binding:"required"`
	Comment    string `json:"comment,omitempty"`
}

// ConnectionRequest is the payload for requesting a connection
type ConnectionRequest struct {
	Requester string `json:"requester" binding:"required"`
	Target    string `json:"target" binding:"required"`
}

// HeartbeatRequest is the payload for an availability report
type HeartbeatRequest struct {
	Up *bool `json:"up" binding:"required"`
}

// -----------------------------------------------------------------------------
// Query Types
// -----------------------------------------------------------------------------

// AgentQuery filters for listing agents
type AgentQuery struct {
	Limit  int // Max results (default 100)
	Offset int // Pagination offset
}
