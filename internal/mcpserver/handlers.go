package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// Handlers holds the handler functions for each MCP tool.
type Handlers struct {
	client *AgoraClient
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(client *AgoraClient) *Handlers {
	return &Handlers{client: client}
}

// HandleGetReputation returns the reputation score for an agent.
func (h *Handlers) HandleGetReputation(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	agentID := req.GetString("agent_id", "")
	if agentID == "" {
		return mcp.NewToolResultError("agent_id is required"), nil
	}

	raw, err := h.client.GetReputation(ctx, agentID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get reputation: %v", err)), nil
	}

	text, err := formatReputation(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse reputation: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleGetTierProgress shows tier advancement for an agent.
func (h *Handlers) HandleGetTierProgress(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	agentID := req.GetString("agent_id", "")
	if agentID == "" {
		return mcp.NewToolResultError("agent_id is required"), nil
	}

	raw, err := h.client.GetTierProgress(ctx, agentID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get tier progress: %v", err)), nil
	}

	text, err := formatTierProgress(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse tier progress: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleCompareAgents compares scores for multiple agents.
func (h *Handlers) HandleCompareAgents(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawIDs, ok := req.GetArguments()["agent_ids"].([]any)
	if !ok || len(rawIDs) == 0 {
		return mcp.NewToolResultError("agent_ids is required and must be an array"), nil
	}
	if len(rawIDs) > 10 {
		return mcp.NewToolResultError("compare at most 10 agents at a time"), nil
	}

	var agentIDs []string
	for _, v := range rawIDs {
		if s, ok := v.(string); ok && s != "" {
			agentIDs = append(agentIDs, s)
		}
	}
	if len(agentIDs) < 2 {
		return mcp.NewToolResultError("at least 2 agent ids are required"), nil
	}

	raw, err := h.client.GetBatchReputation(ctx, agentIDs)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to compare agents: %v", err)), nil
	}

	text, err := formatComparison(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse comparison: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleExplainScoreChange explains the score delta since the last snapshot.
func (h *Handlers) HandleExplainScoreChange(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	agentID := req.GetString("agent_id", "")
	if agentID == "" {
		return mcp.NewToolResultError("agent_id is required"), nil
	}

	raw, err := h.client.GetReputationDelta(ctx, agentID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get score change: %v", err)), nil
	}

	text, err := formatDelta(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse score change: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleGetLeaderboard returns the ranked agent list.
func (h *Handlers) HandleGetLeaderboard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tier := req.GetString("tier", "")
	limit := req.GetInt("limit", 20)

	raw, err := h.client.GetLeaderboard(ctx, tier, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get leaderboard: %v", err)), nil
	}

	text, err := formatLeaderboard(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse leaderboard: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleListTiers returns the static tier table.
func (h *Handlers) HandleListTiers(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := h.client.ListTiers(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list tiers: %v", err)), nil
	}

	text, err := formatTiers(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse tiers: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleGetNetworkStats returns network statistics.
func (h *Handlers) HandleGetNetworkStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := h.client.GetNetworkStats(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get network stats: %v", err)), nil
	}

	return mcp.NewToolResultText(formatJSON(raw)), nil
}

// --- Formatting helpers ---

func formatReputation(raw json.RawMessage) (string, error) {
	var resp map[string]any
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", err
	}

	rep, ok := resp["reputation"].(map[string]any)
	if !ok {
		rep = resp
	}

	var sb strings.Builder
	sb.WriteString("Agent Reputation:\n")
	if v := getString(rep, "agentId"); v != "" {
		sb.WriteString(fmt.Sprintf("  Agent: %s\n", v))
	}
	if v, ok := getFloat(rep, "score"); ok {
		sb.WriteString(fmt.Sprintf("  Score: %.0f / 1000\n", v))
	}
	if v := getString(rep, "tier"); v != "" {
		sb.WriteString(fmt.Sprintf("  Tier: %s\n", v))
	}

	if breakdown, ok := rep["breakdown"].(map[string]any); ok {
		sb.WriteString("  Breakdown (0-100 each):\n")
		for _, factor := range []string{"transactions", "successRate", "reviews", "uptime", "age", "connections"} {
			if v, ok := getFloat(breakdown, factor); ok {
				sb.WriteString(fmt.Sprintf("    %-12s %.1f\n", factor+":", v))
			}
		}
	}

	if sig := getString(resp, "signature"); sig != "" {
		sb.WriteString(fmt.Sprintf("  Signed: yes (expires %s)\n", getString(resp, "expiresAt")))
	}

	return sb.String(), nil
}

func formatTierProgress(raw json.RawMessage) (string, error) {
	var resp map[string]any
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("Tier Progress:\n")
	if v := getString(resp, "agentId"); v != "" {
		sb.WriteString(fmt.Sprintf("  Agent: %s\n", v))
	}
	if v, ok := getFloat(resp, "score"); ok {
		sb.WriteString(fmt.Sprintf("  Score: %.0f\n", v))
	}

	if progress, ok := resp["progress"].(map[string]any); ok {
		if v := getString(progress, "tier"); v != "" {
			sb.WriteString(fmt.Sprintf("  Current tier: %s\n", v))
		}
		if v, ok := getFloat(progress, "progress"); ok {
			sb.WriteString(fmt.Sprintf("  Progress through tier: %.1f%%\n", v))
		}
		if next, ok := progress["nextTier"].(map[string]any); ok {
			sb.WriteString(fmt.Sprintf("  Next tier: %s\n", getString(next, "name", "tier")))
		} else {
			sb.WriteString("  Next tier: none (top tier reached)\n")
		}
	}

	if v, ok := getFloat(resp, "pointsToNextTier"); ok {
		sb.WriteString(fmt.Sprintf("  Points to next tier: %.0f\n", v))
	}

	return sb.String(), nil
}

func formatComparison(raw json.RawMessage) (string, error) {
	var resp struct {
		Scores []map[string]any `json:"scores"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", err
	}
	if len(resp.Scores) == 0 {
		return "No agents to compare.", nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Comparing %d agents:\n\n", len(resp.Scores)))
	for i, entry := range resp.Scores {
		rep, ok := entry["reputation"].(map[string]any)
		if !ok {
			continue
		}
		id := getString(rep, "agentId")
		tier := getString(rep, "tier")
		score, _ := getFloat(rep, "score")
		sb.WriteString(fmt.Sprintf("%d. %s — %.0f (%s)\n", i+1, id, score, tier))
	}
	return sb.String(), nil
}

func formatDelta(raw json.RawMessage) (string, error) {
	var resp map[string]any
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("Score Change:\n")
	if v := getString(resp, "agentId"); v != "" {
		sb.WriteString(fmt.Sprintf("  Agent: %s\n", v))
	}
	if current, ok := resp["current"].(map[string]any); ok {
		if v, ok := getFloat(current, "score"); ok {
			sb.WriteString(fmt.Sprintf("  Current score: %.0f\n", v))
		}
	}
	if prev, ok := resp["previous"].(map[string]any); ok {
		if v, ok := getFloat(prev, "score"); ok {
			sb.WriteString(fmt.Sprintf("  Previous score: %.0f\n", v))
		}
	} else {
		sb.WriteString("  No previous snapshot on record.\n")
	}
	if delta, ok := resp["delta"].(map[string]any); ok {
		if v, ok := getFloat(delta, "delta"); ok {
			sb.WriteString(fmt.Sprintf("  Delta: %+.0f (%s)\n", v, getString(delta, "direction")))
		}
		if v := getString(delta, "description"); v != "" {
			sb.WriteString(fmt.Sprintf("  Assessment: %s\n", v))
		}
	}

	return sb.String(), nil
}

func formatLeaderboard(raw json.RawMessage) (string, error) {
	var resp struct {
		Agents       []map[string]any `json:"agents"`
		Distribution map[string]int   `json:"distribution"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", err
	}

	if len(resp.Agents) == 0 {
		return "No agents on the leaderboard.", nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Leaderboard (%d agents):\n\n", len(resp.Agents)))
	for i, a := range resp.Agents {
		score, _ := getFloat(a, "score")
		sb.WriteString(fmt.Sprintf("%d. %s — %.0f (%s)\n", i+1, getString(a, "agentId"), score, getString(a, "tier")))
	}

	if len(resp.Distribution) > 0 {
		sb.WriteString("\nTier distribution:\n")
		for _, tier := range []string{"newcomer", "active", "reliable", "trusted", "elite", "legendary"} {
			if n, ok := resp.Distribution[tier]; ok && n > 0 {
				sb.WriteString(fmt.Sprintf("  %-10s %d\n", tier+":", n))
			}
		}
	}

	return sb.String(), nil
}

func formatTiers(raw json.RawMessage) (string, error) {
	var resp struct {
		Tiers []map[string]any `json:"tiers"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", err
	}
	if len(resp.Tiers) == 0 {
		return "", fmt.Errorf("no tiers in response")
	}

	var sb strings.Builder
	sb.WriteString("Trust Tiers:\n\n")
	for _, t := range resp.Tiers {
		min, _ := getFloat(t, "minScore")
		max, hasMax := getFloat(t, "maxScore")
		rangeStr := fmt.Sprintf("%.0f+", min)
		if hasMax && max >= 0 {
			rangeStr = fmt.Sprintf("%.0f-%.0f", min, max)
		}
		sb.WriteString(fmt.Sprintf("%s (%s)\n", getString(t, "name", "tier"), rangeStr))
		if desc := getString(t, "description"); desc != "" {
			sb.WriteString(fmt.Sprintf("  %s\n", desc))
		}
	}
	return sb.String(), nil
}

func formatJSON(raw json.RawMessage) string {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		return string(raw)
	}
	return pretty.String()
}

// getString extracts a string value from a map, trying multiple key names.
func getString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s, ok := v.(string); ok {
				return s
			}
			if f, ok := v.(float64); ok {
				return fmt.Sprintf("%g", f)
			}
		}
	}
	return ""
}

// getFloat extracts a float64 value from a map, trying multiple key names.
func getFloat(m map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if f, ok := v.(float64); ok {
				return f, true
			}
		}
	}
	return 0, false
}
