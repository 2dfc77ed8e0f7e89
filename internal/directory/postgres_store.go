package directory

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/mwhited/agora/internal/idgen"
)

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed store
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Compile-time interface check
var _ Store = (*PostgresStore)(nil)

// -----------------------------------------------------------------------------
// Agent Operations
// -----------------------------------------------------------------------------

func (p *PostgresStore) CreateAgent(ctx context.Context, agent *Agent) error {
	id := strings.ToLower(agent.ID)
	now := time.Now()

	_, err := p.db.ExecContext(ctx, `
		INSERT INTO agents (id, name, description, endpoint, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
	`, id, agent.Name, agent.Description, agent.Endpoint, now)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrAgentExists
		}
		return fmt.Errorf("failed to create agent: %w", err)
	}

	if _, err := p.db.ExecContext(ctx, `
		INSERT INTO agent_stats (agent_id) VALUES ($1) ON CONFLICT DO NOTHING
	`, id); err != nil {
		return fmt.Errorf("failed to initialize agent stats: %w", err)
	}

	agent.ID = id
	agent.CreatedAt = now
	agent.UpdatedAt = now
	agent.Stats = AgentStats{}

	return nil
}

func (p *PostgresStore) GetAgent(ctx context.Context, id string) (*Agent, error) {
	id = strings.ToLower(id)

	var agent Agent
	var lastActive sql.NullTime

	err := p.db.QueryRowContext(ctx, `
		SELECT a.id, a.name, a.description, a.endpoint, a.created_at, a.updated_at,
		       s.total_transactions, s.successful_transactions, s.failed_transactions,
		       s.reviews_count, s.avg_rating, s.uptime_checks, s.uptime_up,
		       s.connections_accepted, s.last_active
		FROM agents a
		JOIN agent_stats s ON s.agent_id = a.id
		WHERE a.id = $1
	`, id).Scan(&agent.ID, &agent.Name, &agent.Description, &agent.Endpoint,
		&agent.CreatedAt, &agent.UpdatedAt,
		&agent.Stats.TotalTransactions, &agent.Stats.SuccessfulTransactions,
		&agent.Stats.FailedTransactions, &agent.Stats.ReviewsCount,
		&agent.Stats.AvgRating, &agent.Stats.UptimeChecks, &agent.Stats.UptimeUp,
		&agent.Stats.ConnectionsAccepted, &lastActive)

	if err == sql.ErrNoRows {
		return nil, ErrAgentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get agent: %w", err)
	}
	if lastActive.Valid {
		agent.Stats.LastActive = lastActive.Time
	}

	return &agent, nil
}

func (p *PostgresStore) UpdateAgent(ctx context.Context, agent *Agent) error {
	result, err := p.db.ExecContext(ctx, `
		UPDATE agents SET name = $1, description = $2, endpoint = $3, updated_at = NOW()
		WHERE id = $4
	`, agent.Name, agent.Description, agent.Endpoint, strings.ToLower(agent.ID))

	if err != nil {
		return fmt.Errorf("failed to update agent: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return ErrAgentNotFound
	}

	return nil
}

func (p *PostgresStore) ListAgents(ctx context.Context, query AgentQuery) ([]*Agent, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = 100
	}

	rows, err := p.db.QueryContext(ctx, `
		SELECT a.id
		FROM agents a
		JOIN agent_stats s ON s.agent_id = a.id
		ORDER BY s.total_transactions DESC, a.id ASC
		LIMIT $1 OFFSET $2
	`, limit, query.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan agent id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate agents: %w", err)
	}

	agents := make([]*Agent, 0, len(ids))
	for _, id := range ids {
		agent, err := p.GetAgent(ctx, id)
		if err == nil {
			agents = append(agents, agent)
		}
	}

	return agents, nil
}

func (p *PostgresStore) DeleteAgent(ctx context.Context, id string) error {
	result, err := p.db.ExecContext(ctx, `
		DELETE FROM agents WHERE id = $1
	`, strings.ToLower(id))

	if err != nil {
		return fmt.Errorf("failed to delete agent: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return ErrAgentNotFound
	}

	return nil
}

// -----------------------------------------------------------------------------
// Transaction Operations
// -----------------------------------------------------------------------------

func (p *PostgresStore) RecordTransaction(ctx context.Context, tx *Transaction) error {
	from := strings.ToLower(tx.From)
	to := strings.ToLower(tx.To)
	if from == to {
		return ErrSelfReference
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

	dbtx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = dbtx.Rollback() }()

	err = dbtx.QueryRowContext(ctx, `
		INSERT INTO transactions (id, from_agent, to_agent, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING created_at, updated_at
	`, tx.ID, from, to, tx.Status).Scan(&tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "foreign key") {
			return ErrAgentNotFound
		}
		return fmt.Errorf("failed to record transaction: %w", err)
	}

	if err := bumpTxCounters(ctx, dbtx, tx.Status, +1, from, to); err != nil {
		return err
	}

	if err := dbtx.Commit(); err != nil {
		return err
	}

	tx.From = from
	tx.To = to
	return nil
}

func (p *PostgresStore) UpdateTransactionStatus(ctx context.Context, id, status string) (*Transaction, error) {
	if !ValidTxStatus(status) {
		return nil, ErrInvalidStatus
	}

	dbtx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = dbtx.Rollback() }()

	tx := &Transaction{ID: id}
	var old string
	err = dbtx.QueryRowContext(ctx, `
		SELECT from_agent, to_agent, status, created_at
		FROM transactions WHERE id = $1
		FOR UPDATE
	`, id).Scan(&tx.From, &tx.To, &old, &tx.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction: %w", err)
	}

	if old == status {
		tx.Status = old
		tx.UpdatedAt = tx.CreatedAt
		return tx, dbtx.Commit()
	}

	err = dbtx.QueryRowContext(ctx, `
		UPDATE transactions SET status = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING updated_at
	`, status, id).Scan(&tx.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to update transaction: %w", err)
	}
	tx.Status = status

	// Move the resolved counters without touching the totals
	if err := bumpTxStatusCounters(ctx, dbtx, old, -1, tx.From, tx.To); err != nil {
		return nil, err
	}
	if err := bumpTxStatusCounters(ctx, dbtx, status, +1, tx.From, tx.To); err != nil {
		return nil, err
	}

	return tx, dbtx.Commit()
}

func bumpTxCounters(ctx context.Context, dbtx *sql.Tx, status string, delta int, agentIDs ...string) error {
	for _, id := range agentIDs {
		_, err := dbtx.ExecContext(ctx, `
			UPDATE agent_stats SET total_transactions = total_transactions + $1, last_active = NOW()
			WHERE agent_id = $2
		`, delta, id)
		if err != nil {
			return fmt.Errorf("failed to update stats: %w", err)
		}
	}
	return bumpTxStatusCounters(ctx, dbtx, status, delta, agentIDs...)
}

func bumpTxStatusCounters(ctx context.Context, dbtx *sql.Tx, status string, delta int, agentIDs ...string) error {
	var column string
	switch status {
	case TxCompleted:
		column = "successful_transactions"
	case TxFailed:
		column = "failed_transactions"
	default:
		return nil
	}

	for _, id := range agentIDs {
		// column is one of two literals above, never user input
		q := fmt.Sprintf(`UPDATE agent_stats SET %s = %s + $1, last_active = NOW() WHERE agent_id = $2`, column, column)
		if _, err := dbtx.ExecContext(ctx, q, delta, id); err != nil {
			return fmt.Errorf("failed to update stats: %w", err)
		}
	}
	return nil
}

func (p *PostgresStore) ListTransactions(ctx context.Context, agentID string, limit int) ([]*Transaction, error) {
	if limit <= 0 {
		limit = 100
	}
	id := strings.ToLower(agentID)

	rows, err := p.db.QueryContext(ctx, `
		SELECT id, from_agent, to_agent, status, created_at, updated_at
		FROM transactions
		WHERE from_agent = $1 OR to_agent = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, id, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []*Transaction
	for rows.Next() {
		tx := &Transaction{}
		if err := rows.Scan(&tx.ID, &tx.From, &tx.To, &tx.Status, &tx.CreatedAt, &tx.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		results = append(results, tx)
	}
	return results, rows.Err()
}

// -----------------------------------------------------------------------------
// Review Operations
// -----------------------------------------------------------------------------

func (p *PostgresStore) PostReview(ctx context.Context, review *Review) error {
	agentID := strings.ToLower(review.AgentID)
	reviewerID := strings.ToLower(review.ReviewerID)
	if agentID == reviewerID {
		return ErrSelfReference
	}
	if review.Rating < 1 || review.Rating > 5 {
		return ErrInvalidRating
	}
	if review.ID == "" {
		review.ID = idgen.WithPrefix("rev_")
	}

	dbtx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = dbtx.Rollback() }()

	err = dbtx.QueryRowContext(ctx, `
		INSERT INTO reviews (id, agent_id, reviewer_id, rating, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (agent_id, reviewer_id)
		DO UPDATE SET rating = EXCLUDED.rating, comment = EXCLUDED.comment, created_at = NOW()
		RETURNING id, created_at
	`, review.ID, agentID, reviewerID, review.Rating, review.Comment).Scan(&review.ID, &review.CreatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "foreign key") {
			return ErrAgentNotFound
		}
		return fmt.Errorf("failed to post review: %w", err)
	}

	// Recompute the aggregate from the reviews themselves so replacement
	// cannot drift the average
	_, err = dbtx.ExecContext(ctx, `
		UPDATE agent_stats SET
			reviews_count = agg.cnt,
			avg_rating = agg.avg
		FROM (SELECT COUNT(*) AS cnt, AVG(rating) AS avg FROM reviews WHERE agent_id = $1) agg
		WHERE agent_id = $1
	`, agentID)
	if err != nil {
		return fmt.Errorf("failed to update review stats: %w", err)
	}

	review.AgentID = agentID
	review.ReviewerID = reviewerID
	return dbtx.Commit()
}

func (p *PostgresStore) ListReviews(ctx context.Context, agentID string, limit int) ([]*Review, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := p.db.QueryContext(ctx, `
		SELECT id, agent_id, reviewer_id, rating, comment, created_at
		FROM reviews
		WHERE agent_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, strings.ToLower(agentID), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []*Review
	for rows.Next() {
		r := &Review{}
		if err := rows.Scan(&r.ID, &r.AgentID, &r.ReviewerID, &r.Rating, &r.Comment, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// -----------------------------------------------------------------------------
// Connection Operations
// -----------------------------------------------------------------------------

func (p *PostgresStore) RequestConnection(ctx context.Context, conn *Connection) error {
	requester := strings.ToLower(conn.Requester)
	target := strings.ToLower(conn.Target)
	if requester == target {
		return ErrSelfReference
	}
	if conn.ID == "" {
		conn.ID = idgen.WithPrefix("con_")
	}

	var exists bool
	err := p.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM connections
			WHERE status <> 'declined'
			  AND ((requester = $1 AND target = $2) OR (requester = $2 AND target = $1))
		)
	`, requester, target).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check connections: %w", err)
	}
	if exists {
		return ErrConnectionExists
	}

	err = p.db.QueryRowContext(ctx, `
		INSERT INTO connections (id, requester, target, status, created_at)
		VALUES ($1, $2, $3, 'pending', NOW())
		RETURNING created_at
	`, conn.ID, requester, target).Scan(&conn.CreatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "foreign key") {
			return ErrAgentNotFound
		}
		return fmt.Errorf("failed to request connection: %w", err)
	}

	conn.Requester = requester
	conn.Target = target
	conn.Status = ConnPending
	conn.RespondedAt = nil
	return nil
}

func (p *PostgresStore) RespondConnection(ctx context.Context, id string, accept bool) (*Connection, error) {
	dbtx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = dbtx.Rollback() }()

	conn := &Connection{ID: id}
	err = dbtx.QueryRowContext(ctx, `
		SELECT requester, target, status, created_at
		FROM connections WHERE id = $1
		FOR UPDATE
	`, id).Scan(&conn.Requester, &conn.Target, &conn.Status, &conn.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrConnectionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load connection: %w", err)
	}
	if conn.Status != ConnPending {
		return nil, ErrInvalidStatus
	}

	status := ConnDeclined
	if accept {
		status = ConnAccepted
	}

	var respondedAt time.Time
	err = dbtx.QueryRowContext(ctx, `
		UPDATE connections SET status = $1, responded_at = NOW()
		WHERE id = $2
		RETURNING responded_at
	`, status, id).Scan(&respondedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to respond to connection: %w", err)
	}
	conn.Status = status
	conn.RespondedAt = &respondedAt

	if accept {
		_, err = dbtx.ExecContext(ctx, `
			UPDATE agent_stats SET connections_accepted = connections_accepted + 1, last_active = NOW()
			WHERE agent_id = ANY($1)
		`, pq.Array([]string{conn.Requester, conn.Target}))
		if err != nil {
			return nil, fmt.Errorf("failed to update connection stats: %w", err)
		}
	}

	return conn, dbtx.Commit()
}

func (p *PostgresStore) ListConnections(ctx context.Context, agentID string) ([]*Connection, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, requester, target, status, created_at, responded_at
		FROM connections
		WHERE requester = $1 OR target = $1
		ORDER BY created_at DESC
	`, strings.ToLower(agentID))
	if err != nil {
		return nil, fmt.Errorf("failed to list connections: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []*Connection
	for rows.Next() {
		c := &Connection{}
		var respondedAt sql.NullTime
		if err := rows.Scan(&c.ID, &c.Requester, &c.Target, &c.Status, &c.CreatedAt, &respondedAt); err != nil {
			return nil, fmt.Errorf("scan connection: %w", err)
		}
		if respondedAt.Valid {
			t := respondedAt.Time
			c.RespondedAt = &t
		}
		results = append(results, c)
	}
	return results, rows.Err()
}

// -----------------------------------------------------------------------------
// Heartbeat Operations
// -----------------------------------------------------------------------------

func (p *PostgresStore) RecordHeartbeat(ctx context.Context, agentID string, up bool) error {
	upInc := 0
	if up {
		upInc = 1
	}

	result, err := p.db.ExecContext(ctx, `
		UPDATE agent_stats SET
			uptime_checks = uptime_checks + 1,
			uptime_up = uptime_up + $1,
			last_active = CASE WHEN $1 = 1 THEN NOW() ELSE last_active END
		WHERE agent_id = $2
	`, upInc, strings.ToLower(agentID))
	if err != nil {
		return fmt.Errorf("failed to record heartbeat: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return ErrAgentNotFound
	}
	return nil
}

// -----------------------------------------------------------------------------
// Stats
// -----------------------------------------------------------------------------

func (p *PostgresStore) GetNetworkStats(ctx context.Context) (*NetworkStats, error) {
	stats := &NetworkStats{UpdatedAt: time.Now()}

	err := p.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM agents),
			(SELECT COUNT(*) FROM transactions),
			(SELECT COUNT(*) FROM reviews),
			(SELECT COUNT(*) FROM connections WHERE status = 'accepted')
	`).Scan(&stats.TotalAgents, &stats.TotalTransactions, &stats.TotalReviews, &stats.TotalConnections)
	if err != nil {
		return nil, fmt.Errorf("failed to get network stats: %w", err)
	}

	return stats, nil
}
