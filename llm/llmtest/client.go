// Package llmtest provides a scriptable llm.Client for tests.
package llmtest

import (
	"context"
	"fmt"
	"sync"

	"wick_deep/llm"
)

// Client is an llm.Client driven by a handler function. It records every
// request it receives.
type Client struct {
	Handler func(ctx context.Context, req llm.Request) (*llm.Response, error)

	mu       sync.Mutex
	requests []llm.Request
}

// Call records req and delegates to Handler.
func (c *Client) Call(ctx context.Context, req llm.Request) (*llm.Response, error) {
	c.mu.Lock()
	c.requests = append(c.requests, req)
	c.mu.Unlock()
	if c.Handler == nil {
		return &llm.Response{}, nil
	}
	return c.Handler(ctx, req)
}

// Requests returns a copy of the recorded requests.
func (c *Client) Requests() []llm.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]llm.Request, len(c.requests))
	copy(out, c.requests)
	return out
}

// Script returns a client that answers with responses in order and fails
// once they run out.
func Script(responses ...*llm.Response) *Client {
	var (
		mu sync.Mutex
		i  int
	)
	return &Client{Handler: func(ctx context.Context, req llm.Request) (*llm.Response, error) {
		mu.Lock()
		defer mu.Unlock()
		if i >= len(responses) {
			return nil, fmt.Errorf("llmtest: script exhausted after %d responses", len(responses))
		}
		r := responses[i]
		i++
		return r, nil
	}}
}

// Text is a plain assistant reply.
func Text(content string) *llm.Response {
	return &llm.Response{Content: content}
}

// Calls is an assistant reply made of tool calls.
func Calls(calls ...llm.ToolCallResult) *llm.Response {
	return &llm.Response{ToolCalls: calls}
}

// Call builds one tool call.
func Call(id, name string, args map[string]any) llm.ToolCallResult {
	if args == nil {
		args = map[string]any{}
	}
	return llm.ToolCallResult{ID: id, Name: name, Args: args}
}

// LastUserContent returns the content of the last user message in req.
func LastUserContent(req llm.Request) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			return req.Messages[i].Content
		}
	}
	return ""
}
