package reputation

import (
	"context"
	"strings"

	"github.com/mwhited/agora/internal/directory"
)

// StatsProvider fetches raw signals for reputation computation.
type StatsProvider interface {
	AgentInput(ctx context.Context, agentID string) (*Input, error)
	AllAgentInputs(ctx context.Context) (map[string]*Input, error)
}

// DirectoryProvider implements StatsProvider using the directory store.
// The directory maintains counters on every write, so building an Input
// is a single agent lookup, never a history scan.
type DirectoryProvider struct {
	store directory.Store
}

// NewDirectoryProvider creates a provider backed by the directory
func NewDirectoryProvider(store directory.Store) *DirectoryProvider {
	return &DirectoryProvider{store: store}
}

// AgentInput fetches signals for a single agent
func (p *DirectoryProvider) AgentInput(ctx context.Context, agentID string) (*Input, error) {
	agent, err := p.store.GetAgent(ctx, strings.ToLower(agentID))
	if err != nil {
		return nil, err
	}
	return inputFromAgent(agent), nil
}

// AllAgentInputs fetches signals for all agents
func (p *DirectoryProvider) AllAgentInputs(ctx context.Context) (map[string]*Input, error) {
	agents, err := p.store.ListAgents(ctx, directory.AgentQuery{Limit: 10000})
	if err != nil {
		return nil, err
	}

	result := make(map[string]*Input, len(agents))
	for _, agent := range agents {
		result[agent.ID] = inputFromAgent(agent)
	}
	return result, nil
}

func inputFromAgent(agent *directory.Agent) *Input {
	s := agent.Stats
	return &Input{
		TotalTransactions:      s.TotalTransactions,
		SuccessfulTransactions: s.SuccessfulTransactions,
		AvgRating:              s.AvgRating,
		ReviewsCount:           s.ReviewsCount,
		UptimePercent:          s.UptimePercent(),
		CreatedAt:              agent.CreatedAt,
		ConnectionsCount:       s.ConnectionsAccepted,
	}
}
