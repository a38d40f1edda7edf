package research

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const tavilyBaseURL = "https://api.tavily.com"

// TavilyClient is a Searcher backed by the Tavily search API.
type TavilyClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewTavilyClient creates a Tavily client. baseURL may be empty for the
// public endpoint.
func NewTavilyClient(apiKey, baseURL string) *TavilyClient {
	if baseURL == "" {
		baseURL = tavilyBaseURL
	}
	return &TavilyClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

type tavilyRequest struct {
	APIKey            string `json:"api_key"`
	Query             string `json:"query"`
	MaxResults        int    `json:"max_results,omitempty"`
	Topic             string `json:"topic,omitempty"`
	SearchDepth       string `json:"search_depth"`
	IncludeRawContent bool   `json:"include_raw_content"`
}

// Search runs q against the API.
func (c *TavilyClient) Search(ctx context.Context, q Query) (*SearchResponse, error) {
	body, err := json.Marshal(tavilyRequest{
		APIKey:            c.apiKey,
		Query:             q.Text,
		MaxResults:        q.MaxResults,
		Topic:             string(q.Topic),
		SearchDepth:       "basic",
		IncludeRawContent: q.IncludeRawContent,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal tavily request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tavily request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read tavily response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tavily API error %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var out SearchResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse tavily response: %w", err)
	}
	if out.Query == "" {
		out.Query = q.Text
	}
	return &out, nil
}
