package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPProxyClient forwards model calls to an external HTTP handler that
// speaks this package's Request/Response JSON. It lets a host application
// own authentication and request shaping for a model.
type HTTPProxyClient struct {
	callbackURL string
	modelName   string
	client      *http.Client
}

// NewHTTPProxyClient creates a proxy client for the given callback URL
// (e.g. "http://127.0.0.1:9100").
func NewHTTPProxyClient(callbackURL, modelName string) *HTTPProxyClient {
	return &HTTPProxyClient{
		callbackURL: strings.TrimRight(callbackURL, "/"),
		modelName:   modelName,
		client:      &http.Client{Timeout: 5 * time.Minute},
	}
}

// Call posts req to <callback>/llm/<model>/call.
func (c *HTTPProxyClient) Call(ctx context.Context, req Request) (*Response, error) {
	if req.Model == "" {
		req.Model = c.modelName
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/llm/%s/call", c.callbackURL, url.PathEscape(c.modelName))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("proxy LLM error %d: %s", resp.StatusCode, string(data))
	}

	var result Response
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("parse proxy response: %w", err)
	}
	return &result, nil
}
