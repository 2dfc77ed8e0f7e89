package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Config holds the configuration for connecting to the Agora API.
type Config struct {
	APIURL string // Base URL, e.g. "http://localhost:8080"
}

// AgoraClient is a pure HTTP client for the Agora reputation API.
type AgoraClient struct {
	cfg        Config
	httpClient *http.Client
}

// NewAgoraClient creates a new client for the Agora API.
func NewAgoraClient(cfg Config) *AgoraClient {
	return &AgoraClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// apiError represents an error response from the API.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// doRequest makes an HTTP request to the API and returns the response body.
func (c *AgoraClient) doRequest(ctx context.Context, method, path string, query url.Values, body any) (json.RawMessage, error) {
	u, err := url.Parse(c.cfg.APIURL + path)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Message != "" {
			return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, apiErr.Message)
		}
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(respBody))
	}

	return json.RawMessage(respBody), nil
}

// GetReputation returns the reputation score for a given agent.
func (c *AgoraClient) GetReputation(ctx context.Context, agentID string) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/v1/reputation/"+agentID, nil, nil)
}

// GetBatchReputation returns scores for multiple agents at once.
func (c *AgoraClient) GetBatchReputation(ctx context.Context, agentIDs []string) (json.RawMessage, error) {
	body := map[string]any{"agentIds": agentIDs}
	return c.doRequest(ctx, http.MethodPost, "/v1/reputation/batch", nil, body)
}

// GetTierProgress returns how far an agent has advanced through its tier.
func (c *AgoraClient) GetTierProgress(ctx context.Context, agentID string) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/v1/reputation/"+agentID+"/progress", nil, nil)
}

// GetReputationDelta returns the score change since the last snapshot.
func (c *AgoraClient) GetReputationDelta(ctx context.Context, agentID string) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/v1/reputation/"+agentID+"/delta", nil, nil)
}

// GetLeaderboard returns ranked agents, optionally filtered by tier.
func (c *AgoraClient) GetLeaderboard(ctx context.Context, tier string, limit int) (json.RawMessage, error) {
	q := url.Values{}
	if tier != "" {
		q.Set("tier", tier)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return c.doRequest(ctx, http.MethodGet, "/v1/reputation", q, nil)
}

// ListTiers returns the static tier table.
func (c *AgoraClient) ListTiers(ctx context.Context) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/v1/tiers", nil, nil)
}

// GetNetworkStats returns network-wide statistics.
func (c *AgoraClient) GetNetworkStats(ctx context.Context) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/v1/network/stats", nil, nil)
}
