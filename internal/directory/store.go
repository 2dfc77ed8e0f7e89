package directory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mwhited/agora/internal/idgen"
)

// -----------------------------------------------------------------------------
// Store Interface (swap implementations later)
// -----------------------------------------------------------------------------

// Store defines the persistence interface for the directory
type Store interface {
	// Agents
	CreateAgent(ctx context.Context, agent *Agent) error
	GetAgent(ctx context.Context, id string) (*Agent, error)
	UpdateAgent(ctx context.Context, agent *Agent) error
	ListAgents(ctx context.Context, query AgentQuery) ([]*Agent, error)
	DeleteAgent(ctx context.Context, id string) error

	// Transactions
	RecordTransaction(ctx context.Context, tx *Transaction) error
	UpdateTransactionStatus(ctx context.Context, id, status string) (*Transaction, error)
	ListTransactions(ctx context.Context, agentID string, limit int) ([]*Transaction, error)

	// Reviews (one per reviewer per agent; re-review replaces)
	PostReview(ctx context.Context, review *Review) error
	ListReviews(ctx context.Context, agentID string, limit int) ([]*Review, error)

	// Connections
	RequestConnection(ctx context.Context, conn *Connection) error
	RespondConnection(ctx context.Context, id string, accept bool) (*Connection, error)
	ListConnections(ctx context.Context, agentID string) ([]*Connection, error)

	// Heartbeats
	RecordHeartbeat(ctx context.Context, agentID string, up bool) error

	// Stats
	GetNetworkStats(ctx context.Context) (*NetworkStats, error)
}

// NetworkStats tracks overall network activity
type NetworkStats struct {
	TotalAgents       int64     `json:"totalAgents"`
	TotalTransactions int64     `json:"totalTransactions"`
	TotalReviews      int64     `json:"totalReviews"`
	TotalConnections  int64     `json:"totalConnections"` // Accepted only
	UpdatedAt         time.Time `json:"updatedAt"`
}

// -----------------------------------------------------------------------------
// In-Memory Store
// -----------------------------------------------------------------------------

// MemoryStore is a thread-safe in-memory implementation
type MemoryStore struct {
	mu           sync.RWMutex
	agents       map[string]*Agent       // id -> agent
	transactions map[string]*Transaction // id -> transaction
	reviews      map[string]*Review      // agentID+"/"+reviewerID -> review
	connections  map[string]*Connection  // id -> connection
	stats        NetworkStats
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		agents:       make(map[string]*Agent),
		transactions: make(map[string]*Transaction),
		reviews:      make(map[string]*Review),
		connections:  make(map[string]*Connection),
		stats: NetworkStats{
			UpdatedAt: time.Now(),
		},
	}
}

// Compile-time interface check
var _ Store = (*MemoryStore)(nil)

// -----------------------------------------------------------------------------
// Agent Operations
// -----------------------------------------------------------------------------

func (m *MemoryStore) CreateAgent(ctx context.Context, agent *Agent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := strings.ToLower(agent.ID)
	if _, exists := m.agents[id]; exists {
		return ErrAgentExists
	}

	// Normalize
	agent.ID = id
	agent.CreatedAt = time.Now()
	agent.UpdatedAt = agent.CreatedAt
	agent.Stats = AgentStats{}

	m.agents[id] = agent
	m.stats.TotalAgents++
	m.stats.UpdatedAt = time.Now()

	return nil
}

func (m *MemoryStore) GetAgent(ctx context.Context, id string) (*Agent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	agent, exists := m.agents[strings.ToLower(id)]
	if !exists {
		return nil, ErrAgentNotFound
	}

	// Return a copy to prevent mutation
	copy := *agent
	return &copy, nil
}

func (m *MemoryStore) UpdateAgent(ctx context.Context, agent *Agent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := strings.ToLower(agent.ID)
	existing, exists := m.agents[id]
	if !exists {
		return ErrAgentNotFound
	}

	// Stats and CreatedAt are store-owned
	agent.ID = id
	agent.Stats = existing.Stats
	agent.CreatedAt = existing.CreatedAt
	agent.UpdatedAt = time.Now()
	m.agents[id] = agent

	return nil
}

func (m *MemoryStore) ListAgents(ctx context.Context, query AgentQuery) ([]*Agent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if query.Limit == 0 {
		query.Limit = 100
	}

	results := make([]*Agent, 0, len(m.agents))
	for _, agent := range m.agents {
		copy := *agent
		results = append(results, &copy)
	}

	// Sort by transaction count (most active first), ID as tiebreak for
	// stable pagination
	sort.Slice(results, func(i, j int) bool {
		if results[i].Stats.TotalTransactions != results[j].Stats.TotalTransactions {
			return results[i].Stats.TotalTransactions > results[j].Stats.TotalTransactions
		}
		return results[i].ID < results[j].ID
	})

	if query.Offset >= len(results) {
		return []*Agent{}, nil
	}
	end := query.Offset + query.Limit
	if end > len(results) {
		end = len(results)
	}

	return results[query.Offset:end], nil
}

func (m *MemoryStore) DeleteAgent(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.ToLower(id)
	if _, exists := m.agents[key]; !exists {
		return ErrAgentNotFound
	}

	delete(m.agents, key)
	m.stats.TotalAgents--
	m.stats.UpdatedAt = time.Now()

	return nil
}

// -----------------------------------------------------------------------------
// Transaction Operations
// -----------------------------------------------------------------------------

func (m *MemoryStore) RecordTransaction(ctx context.Context, tx *Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	from := strings.ToLower(tx.From)
	to := strings.ToLower(tx.To)
	if from == to {
		return ErrSelfReference
	}
	fromAgent, ok := m.agents[from]
	if !ok {
		return ErrAgentNotFound
	}
	toAgent, ok := m.agents[to]
	if !ok {
		return ErrAgentNotFound
	}

	if tx.Status == "" {
		tx.Status = TxPending
	}
	if !ValidTxStatus(tx.Status) {
		return ErrInvalidStatus
	}
	if tx.ID == "" {
		tx.ID = idgen.WithPrefix("txn_")
	}
	tx.From = from
	tx.To = to
	tx.CreatedAt = time.Now()
	tx.UpdatedAt = tx.CreatedAt

	m.transactions[tx.ID] = tx
	m.stats.TotalTransactions++
	m.stats.UpdatedAt = time.Now()

	now := time.Now()
	for _, agent := range []*Agent{fromAgent, toAgent} {
		agent.Stats.TotalTransactions++
		agent.Stats.LastActive = now
		applyTxStatus(&agent.Stats, tx.Status)
		agent.UpdatedAt = now
	}

	return nil
}

func (m *MemoryStore) UpdateTransactionStatus(ctx context.Context, id, status string) (*Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !ValidTxStatus(status) {
		return nil, ErrInvalidStatus
	}
	tx, exists := m.transactions[id]
	if !exists {
		return nil, ErrTransactionNotFound
	}
	if tx.Status == status {
		copy := *tx
		return &copy, nil
	}

	old := tx.Status
	tx.Status = status
	tx.UpdatedAt = time.Now()

	for _, agentID := range []string{tx.From, tx.To} {
		if agent, ok := m.agents[agentID]; ok {
			revertTxStatus(&agent.Stats, old)
			applyTxStatus(&agent.Stats, status)
			agent.Stats.LastActive = tx.UpdatedAt
			agent.UpdatedAt = tx.UpdatedAt
		}
	}

	copy := *tx
	return &copy, nil
}

func applyTxStatus(s *AgentStats, status string) {
	switch status {
	case TxCompleted:
		s.SuccessfulTransactions++
	case TxFailed:
		s.FailedTransactions++
	}
}

func revertTxStatus(s *AgentStats, status string) {
	switch status {
	case TxCompleted:
		s.SuccessfulTransactions--
	case TxFailed:
		s.FailedTransactions--
	}
}

func (m *MemoryStore) ListTransactions(ctx context.Context, agentID string, limit int) ([]*Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit == 0 {
		limit = 100
	}

	id := strings.ToLower(agentID)
	var results []*Transaction

	for _, tx := range m.transactions {
		if tx.From == id || tx.To == id {
			copy := *tx
			results = append(results, &copy)
		}
	}

	// Sort by time (newest first)
	sort.Slice(results, func(i, j int) bool {
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})

	if len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

// -----------------------------------------------------------------------------
// Review Operations
// -----------------------------------------------------------------------------

func (m *MemoryStore) PostReview(ctx context.Context, review *Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	agentID := strings.ToLower(review.AgentID)
	reviewerID := strings.ToLower(review.ReviewerID)
	if agentID == reviewerID {
		return ErrSelfReference
	}
	if review.Rating < 1 || review.Rating > 5 {
		return ErrInvalidRating
	}
	agent, ok := m.agents[agentID]
	if !ok {
		return ErrAgentNotFound
	}
	if _, ok := m.agents[reviewerID]; !ok {
		return ErrAgentNotFound
	}

	key := agentID + "/" + reviewerID
	_, replacing := m.reviews[key]

	if review.ID == "" {
		review.ID = idgen.WithPrefix("rev_")
	}
	review.AgentID = agentID
	review.ReviewerID = reviewerID
	review.CreatedAt = time.Now()
	m.reviews[key] = review

	if !replacing {
		m.stats.TotalReviews++
	}
	m.stats.UpdatedAt = time.Now()

	// Recompute the aggregate from the reviews themselves so replacement
	// cannot drift the average
	var sum, count int
	for _, r := range m.reviews {
		if r.AgentID == agentID {
			sum += r.Rating
			count++
		}
	}
	agent.Stats.ReviewsCount = count
	agent.Stats.AvgRating = float64(sum) / float64(count)
	agent.UpdatedAt = time.Now()

	return nil
}

func (m *MemoryStore) ListReviews(ctx context.Context, agentID string, limit int) ([]*Review, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit == 0 {
		limit = 100
	}

	id := strings.ToLower(agentID)
	var results []*Review
	for _, r := range m.reviews {
		if r.AgentID == id {
			copy := *r
			results = append(results, &copy)
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})

	if len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

// -----------------------------------------------------------------------------
// Connection Operations
// -----------------------------------------------------------------------------

func (m *MemoryStore) RequestConnection(ctx context.Context, conn *Connection) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	requester := strings.ToLower(conn.Requester)
	target := strings.ToLower(conn.Target)
	if requester == target {
		return ErrSelfReference
	}
	if _, ok := m.agents[requester]; !ok {
		return ErrAgentNotFound
	}
	if _, ok := m.agents[target]; !ok {
		return ErrAgentNotFound
	}

	// One live connection per pair, regardless of direction
	for _, c := range m.connections {
		if c.Status == ConnDeclined {
			continue
		}
		if (c.Requester == requester && c.Target == target) ||
			(c.Requester == target && c.Target == requester) {
			return ErrConnectionExists
		}
	}

	if conn.ID == "" {
		conn.ID = idgen.WithPrefix("con_")
	}
	conn.Requester = requester
	conn.Target = target
	conn.Status = ConnPending
	conn.CreatedAt = time.Now()
	conn.RespondedAt = nil

	m.connections[conn.ID] = conn
	return nil
}

func (m *MemoryStore) RespondConnection(ctx context.Context, id string, accept bool) (*Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conn, exists := m.connections[id]
	if !exists {
		return nil, ErrConnectionNotFound
	}
	if conn.Status != ConnPending {
		return nil, ErrInvalidStatus
	}

	now := time.Now()
	conn.RespondedAt = &now
	if accept {
		conn.Status = ConnAccepted
		m.stats.TotalConnections++
		for _, agentID := range []string{conn.Requester, conn.Target} {
			if agent, ok := m.agents[agentID]; ok {
				agent.Stats.ConnectionsAccepted++
				agent.Stats.LastActive = now
				agent.UpdatedAt = now
			}
		}
	} else {
		conn.Status = ConnDeclined
	}
	m.stats.UpdatedAt = now

	copy := *conn
	return &copy, nil
}

func (m *MemoryStore) ListConnections(ctx context.Context, agentID string) ([]*Connection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id := strings.ToLower(agentID)
	var results []*Connection
	for _, c := range m.connections {
		if c.Requester == id || c.Target == id {
			copy := *c
			results = append(results, &copy)
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})

	return results, nil
}

// -----------------------------------------------------------------------------
// Heartbeat Operations
// -----------------------------------------------------------------------------

func (m *MemoryStore) RecordHeartbeat(ctx context.Context, agentID string, up bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	agent, ok := m.agents[strings.ToLower(agentID)]
	if !ok {
		return ErrAgentNotFound
	}

	agent.Stats.UptimeChecks++
	if up {
		agent.Stats.UptimeUp++
		agent.Stats.LastActive = time.Now()
	}
	agent.UpdatedAt = time.Now()

	return nil
}

// -----------------------------------------------------------------------------
// Stats
// -----------------------------------------------------------------------------

func (m *MemoryStore) GetNetworkStats(ctx context.Context) (*NetworkStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	copy := m.stats
	return &copy, nil
}
