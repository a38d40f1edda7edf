package agent

import (
	"context"

	"wick_deep/llm"
)

// ModelCallWrapFunc is the signature for the "next" function in the model call chain.
type ModelCallWrapFunc func(ctx context.Context, msgs []Message) (*llm.Response, error)

// ToolCallFunc is the signature for the "next" function in the tool call chain.
type ToolCallFunc func(ctx context.Context, call ToolCall) (*ToolResult, error)

// Hook is agent middleware arranged as an onion ring around model and tool calls.
type Hook interface {
	Name() string

	// BeforeAgent is called once before the loop starts. It may modify state directly.
	BeforeAgent(ctx context.Context, state *State) error

	// ModifyRequest is called before each model call to rewrite the outgoing message list.
	// The state must not be modified.
	ModifyRequest(ctx context.Context, state *State, msgs []Message) ([]Message, error)

	// WrapModelCall wraps each model call.
	WrapModelCall(ctx context.Context, msgs []Message, next ModelCallWrapFunc) (*llm.Response, error)

	// WrapToolCall wraps each tool execution. It may rewrite the output and
	// add to the result's Update.
	WrapToolCall(ctx context.Context, call ToolCall, next ToolCallFunc) (*ToolResult, error)
}

// BaseHook provides no-op defaults for all hook methods.
// Embed this to only override the methods you need.
type BaseHook struct{}

func (BaseHook) Name() string { return "base" }

func (BaseHook) BeforeAgent(ctx context.Context, state *State) error {
	return nil
}

func (BaseHook) ModifyRequest(ctx context.Context, state *State, msgs []Message) ([]Message, error) {
	return msgs, nil
}

func (BaseHook) WrapModelCall(ctx context.Context, msgs []Message, next ModelCallWrapFunc) (*llm.Response, error) {
	return next(ctx, msgs)
}

func (BaseHook) WrapToolCall(ctx context.Context, call ToolCall, next ToolCallFunc) (*ToolResult, error) {
	return next(ctx, call)
}
