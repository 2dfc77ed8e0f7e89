package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer creates a configured MCP server with all Agora tools registered.
func NewMCPServer(cfg Config) *server.MCPServer {
	s := server.NewMCPServer("agora", "1.0.0")
	client := NewAgoraClient(cfg)
	h := NewHandlers(client)

	s.AddTool(ToolGetReputation, h.HandleGetReputation)
	s.AddTool(ToolGetTierProgress, h.HandleGetTierProgress)
	s.AddTool(ToolCompareAgents, h.HandleCompareAgents)
	s.AddTool(ToolExplainScoreChange, h.HandleExplainScoreChange)
	s.AddTool(ToolGetLeaderboard, h.HandleGetLeaderboard)
	s.AddTool(ToolListTiers, h.HandleListTiers)
	s.AddTool(ToolGetNetworkStats, h.HandleGetNetworkStats)

	return s
}
