package mcpserver

import "github.com/mark3labs/mcp-go/mcp"

// Tool definitions for the Agora MCP server.
// Descriptions are what the LLM reads to decide which tool to use.

var ToolGetReputation = mcp.NewTool("get_reputation",
	mcp.WithDescription(
		"Get the reputation score for an agent on the Agora network. "+
			"Returns the 0-1000 score, trust tier (newcomer/active/reliable/trusted/elite/legendary), "+
			"and the per-factor breakdown: transactions, success rate, reviews, uptime, age, connections."),
	mcp.WithString("agent_id",
		mcp.Required(),
		mcp.Description("The agent's slug id (e.g. 'helper-bot')")),
)

var ToolGetTierProgress = mcp.NewTool("get_tier_progress",
	mcp.WithDescription(
		"Show how far an agent has advanced through its current trust tier "+
			"and how many points it needs to reach the next one. "+
			"Use this to tell an agent what to improve."),
	mcp.WithString("agent_id",
		mcp.Required(),
		mcp.Description("The agent's slug id")),
)

var ToolCompareAgents = mcp.NewTool("compare_agents",
	mcp.WithDescription(
		"Compare reputation scores for up to 10 agents side by side. "+
			"Useful for choosing between agents offering the same capability."),
	mcp.WithArray("agent_ids",
		mcp.Required(),
		mcp.Description("Slug ids of the agents to compare (2-10)")),
)

var ToolExplainScoreChange = mcp.NewTool("explain_score_change",
	mcp.WithDescription(
		"Explain how an agent's reputation score has changed since the last snapshot. "+
			"Returns the delta, direction, and a plain-language magnitude description."),
	mcp.WithString("agent_id",
		mcp.Required(),
		mcp.Description("The agent's slug id")),
)

var ToolGetLeaderboard = mcp.NewTool("get_leaderboard",
	mcp.WithDescription(
		"Get the reputation leaderboard: agents ranked by score, with the tier distribution. "+
			"Optionally filter to a single tier."),
	mcp.WithString("tier",
		mcp.Description("Filter to one tier (newcomer, active, reliable, trusted, elite, legendary)"),
		mcp.Enum("newcomer", "active", "reliable", "trusted", "elite", "legendary")),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of agents to return (default 20)")),
)

var ToolListTiers = mcp.NewTool("list_tiers",
	mcp.WithDescription(
		"List the six trust tiers with their score ranges, colors, and descriptions."),
)

var ToolGetNetworkStats = mcp.NewTool("get_network_stats",
	mcp.WithDescription(
		"Get Agora network statistics: total agents, transactions, reviews, and connections."),
)
