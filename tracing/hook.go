package tracing

import (
	"context"
	"unicode/utf8"

	"wick_deep/agent"
	"wick_deep/llm"
)

const previewLen = 500

// TracingHook wraps model calls and tool calls with timed spans. Per-hook
// BeforeAgent/ModifyRequest spans are recorded by the agent loop itself.
type TracingHook struct {
	agent.BaseHook
}

// NewTracingHook creates a new tracing hook.
func NewTracingHook() *TracingHook {
	return &TracingHook{}
}

func (h *TracingHook) Name() string { return "tracing" }

func (h *TracingHook) WrapModelCall(ctx context.Context, msgs []agent.Message, next agent.ModelCallWrapFunc) (*llm.Response, error) {
	tr := agent.TraceFromContext(ctx)
	if tr == nil {
		return next(ctx, msgs)
	}

	s := tr.StartSpan("llm.call")
	s.Set("message_count", len(msgs))
	resp, err := next(ctx, msgs)
	if err != nil {
		s.Set("error", err.Error())
	} else if resp != nil {
		s.Set("content_length", len(resp.Content))
		s.Set("content", preview(resp.Content))
		if len(resp.ToolCalls) > 0 {
			names := make([]string, len(resp.ToolCalls))
			for i, tc := range resp.ToolCalls {
				names[i] = tc.Name
			}
			s.Set("tool_calls", names)
		}
	}
	s.End()
	return resp, err
}

func (h *TracingHook) WrapToolCall(ctx context.Context, call agent.ToolCall, next agent.ToolCallFunc) (*agent.ToolResult, error) {
	tr := agent.TraceFromContext(ctx)
	if tr == nil {
		return next(ctx, call)
	}

	s := tr.StartSpan("tool.call")
	s.Set("tool_name", call.Name)
	s.Set("tool_call_id", call.ID)
	s.Set("tool_args", call.Args)
	result, err := next(ctx, call)
	if err != nil {
		s.Set("error", err.Error())
	} else if result != nil {
		s.Set("output_length", len(result.Output))
		s.Set("output", preview(result.Output))
		if n := len(result.Update.Files); n > 0 {
			s.Set("files_written", n)
		}
		if result.Error != "" {
			s.Set("tool_error", result.Error)
		}
	}
	s.End()
	return result, err
}

func preview(s string) string {
	if len(s) <= previewLen {
		return s
	}
	cut := previewLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "...(truncated)"
}
