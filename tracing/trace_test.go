package tracing

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wick_deep/agent"
	"wick_deep/llm"
	"wick_deep/llm/llmtest"
)

func TestTrace_Spans(t *testing.T) {
	tr := NewTrace("main", "thread-1", "ollama:llama3", "invoke", 1)
	require.NotEmpty(t, tr.TraceID)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.StartSpan("tool.call").Set("i", i).End()
		}()
	}
	wg.Wait()
	tr.RecordEvent("tools.available", map[string]any{"count": 3})
	tr.Finish(errors.New("boom"), map[string]any{"files": 2})

	snap := tr.Snapshot()
	assert.Len(t, snap.Spans, 21)
	assert.Equal(t, "boom", snap.Error)
	assert.Equal(t, 2, snap.Output["files"])
}

func TestScoped(t *testing.T) {
	tr := NewTrace("main", "t", "m", "cli", 0)
	ctx := Scoped(WithTrace(context.Background(), tr), "subagent/research-agent")

	agent.StartSpan(ctx, "llm.call").End()
	agent.TraceFromContext(ctx).RecordEvent("tools.available", nil)

	require.Len(t, tr.Spans, 2)
	assert.Equal(t, "subagent/research-agent/llm.call", tr.Spans[0].Name)
	assert.Same(t, tr, FromContext(ctx))

	assert.Equal(t, context.Background(), Scoped(context.Background(), "x"))
}

func TestStore(t *testing.T) {
	s := NewStore(2)
	a, b, c := NewTrace("a", "", "", "", 0), NewTrace("b", "", "", "", 0), NewTrace("c", "", "", "", 0)
	s.Put(a)
	s.Put(b)
	s.Put(c)

	assert.Nil(t, s.Get(a.TraceID))
	assert.Same(t, c, s.Get(c.TraceID))
	list := s.List(10)
	require.Len(t, list, 2)
	assert.Same(t, c, list[0])
}

func TestTracingHook(t *testing.T) {
	tr := NewTrace("main", "t", "m", "invoke", 0)
	ctx := WithTrace(context.Background(), tr)
	h := NewTracingHook()

	_, err := h.WrapModelCall(ctx, nil, func(ctx context.Context, msgs []agent.Message) (*llm.Response, error) {
		return &llm.Response{Content: "ok", ToolCalls: []llm.ToolCallResult{{Name: "ls"}}}, nil
	})
	require.NoError(t, err)

	_, err = h.WrapToolCall(ctx, agent.ToolCall{ID: "1", Name: "write_file"}, func(ctx context.Context, call agent.ToolCall) (*agent.ToolResult, error) {
		return &agent.ToolResult{Output: "Updated file a.md", Update: agent.Update{Files: map[string]string{"a.md": "x"}}}, nil
	})
	require.NoError(t, err)

	require.Len(t, tr.Spans, 2)
	assert.Equal(t, []string{"ls"}, tr.Spans[0].Metadata["tool_calls"])
	assert.Equal(t, 1, tr.Spans[1].Metadata["files_written"])
}

func TestRun(t *testing.T) {
	client := llmtest.Script(
		llmtest.Calls(llmtest.Call("c1", "noop", nil)),
		llmtest.Text("finished"),
	)
	noop := &agent.FuncTool{
		ToolName:   "noop",
		ToolParams: map[string]any{"type": "object"},
		Fn: func(ctx context.Context, state *agent.State, args map[string]any) (agent.Update, string, error) {
			return agent.Update{}, "ok", nil
		},
	}
	a := agent.NewAgent("main", &agent.AgentConfig{Model: "ollama:llama3"}, client, []agent.Tool{noop}, []agent.Hook{NewTracingHook()})
	state := &agent.State{ThreadID: "t1", Messages: []agent.Message{agent.Human("go")}}
	store := NewStore(10)

	tr, err := Run(context.Background(), a, state, "cli", store)
	require.NoError(t, err)

	assert.Same(t, tr, store.Get(tr.TraceID))
	assert.Equal(t, "t1", tr.ThreadID)
	assert.Equal(t, "ollama:llama3", tr.Model)
	assert.Equal(t, "finished", tr.Output["response"])

	var names []string
	for _, s := range tr.Snapshot().Spans {
		names = append(names, s.Name)
	}
	assert.Contains(t, names, "llm.call")
	assert.Contains(t, names, "tool.call")
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", preview("short"))

	got := preview("a" + strings.Repeat("é", 300))
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, "a"+strings.Repeat("é", 249)+"...(truncated)", got)
}
