package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wick_deep/llm"
	"wick_deep/llm/llmtest"
)

func writeTool() Tool {
	return &FuncTool{
		ToolName: "write_file",
		ToolDesc: "write",
		ToolParams: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"file_path": map[string]any{"type": "string"},
				"content":   map[string]any{"type": "string"},
			},
		},
		Fn: func(ctx context.Context, state *State, args map[string]any) (Update, string, error) {
			u, msg := WriteFile(StringArg(args, "file_path"), StringArg(args, "content"))
			return u, msg, nil
		},
	}
}

func TestAgent_Run(t *testing.T) {
	t.Run("applies tool updates and stops on plain answer", func(t *testing.T) {
		client := llmtest.Script(
			llmtest.Calls(
				llmtest.Call("c1", "write_file", map[string]any{"file_path": "a.md", "content": "A"}),
				llmtest.Call("c2", "write_file", map[string]any{"file_path": "b.md", "content": "B"}),
			),
			llmtest.Text("done"),
		)
		a := NewAgent("main", &AgentConfig{SystemPrompt: "sys"}, client, []Tool{writeTool()}, nil)
		state := &State{Messages: []Message{Human("go")}}

		require.NoError(t, a.Run(context.Background(), state))

		assert.Equal(t, map[string]string{"a.md": "A", "b.md": "B"}, state.Files)
		assert.Equal(t, "done", FinalAnswer(state))
		// user, assistant(tool calls), 2 tool results, assistant
		require.Len(t, state.Messages, 5)
		assert.Equal(t, "c1", state.Messages[2].ToolCallID)
		assert.Equal(t, "c2", state.Messages[3].ToolCallID)
		assert.NoError(t, Messages(state.Messages).Validate())

		reqs := client.Requests()
		require.Len(t, reqs, 2)
		assert.Equal(t, "sys", reqs[0].SystemPrompt)
		require.Len(t, reqs[0].Tools, 1)
	})

	t.Run("same key in one turn resolves in call order", func(t *testing.T) {
		client := llmtest.Script(
			llmtest.Calls(
				llmtest.Call("c1", "write_file", map[string]any{"file_path": "x.md", "content": "first"}),
				llmtest.Call("c2", "write_file", map[string]any{"file_path": "x.md", "content": "second"}),
			),
			llmtest.Text("ok"),
		)
		a := NewAgent("main", &AgentConfig{}, client, []Tool{writeTool()}, nil)
		state := &State{Messages: []Message{Human("go")}}
		require.NoError(t, a.Run(context.Background(), state))
		assert.Equal(t, "second", state.Files["x.md"])
	})

	t.Run("unknown tool becomes error text", func(t *testing.T) {
		client := llmtest.Script(
			llmtest.Calls(llmtest.Call("c1", "nope", nil)),
			llmtest.Text("sorry"),
		)
		a := NewAgent("main", &AgentConfig{}, client, nil, nil)
		state := &State{Messages: []Message{Human("go")}}
		require.NoError(t, a.Run(context.Background(), state))
		assert.Equal(t, `Error: tool "nope" not found`, state.Messages[2].Content)
	})

	t.Run("tool go error becomes error text", func(t *testing.T) {
		failing := &FuncTool{ToolName: "fail", Fn: func(ctx context.Context, state *State, args map[string]any) (Update, string, error) {
			return Update{Files: map[string]string{"partial": "x"}}, "", errors.New("disk on fire")
		}}
		client := llmtest.Script(llmtest.Calls(llmtest.Call("c1", "fail", nil)), llmtest.Text("ok"))
		a := NewAgent("main", &AgentConfig{}, client, []Tool{failing}, nil)
		state := &State{Messages: []Message{Human("go")}}
		require.NoError(t, a.Run(context.Background(), state))
		assert.Equal(t, "Error: disk on fire", state.Messages[2].Content)
		assert.NotContains(t, state.Files, "partial")
	})

	t.Run("model failure is returned", func(t *testing.T) {
		client := &llmtest.Client{Handler: func(ctx context.Context, req llm.Request) (*llm.Response, error) {
			return nil, errors.New("503")
		}}
		a := NewAgent("main", &AgentConfig{}, client, nil, nil)
		err := a.Run(context.Background(), &State{Messages: []Message{Human("go")}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "503")
	})

	t.Run("iteration cap", func(t *testing.T) {
		client := &llmtest.Client{Handler: func(ctx context.Context, req llm.Request) (*llm.Response, error) {
			return llmtest.Calls(llmtest.Call("", "write_file", map[string]any{"file_path": "loop.md", "content": "x"})), nil
		}}
		a := NewAgent("main", &AgentConfig{MaxIterations: 3}, client, []Tool{writeTool()}, nil)
		state := &State{Messages: []Message{Human("go")}}
		err := a.Run(context.Background(), state)
		require.ErrorIs(t, err, ErrIterationLimit)
		assert.Contains(t, err.Error(), "after 3 model calls")
		assert.Len(t, client.Requests(), 3)
		assert.Equal(t, "x", state.Files["loop.md"])
		for _, m := range state.Messages {
			for _, tc := range m.ToolCalls {
				assert.True(t, strings.HasPrefix(tc.ID, "call_"), "missing ids are generated")
			}
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		a := NewAgent("main", &AgentConfig{}, llmtest.Script(), nil, nil)
		assert.ErrorIs(t, a.Run(ctx, &State{Messages: []Message{Human("go")}}), context.Canceled)
	})
}

type recordingHook struct {
	BaseHook
	order *[]string
	name  string
}

func (h *recordingHook) Name() string { return h.name }

func (h *recordingHook) ModifyRequest(ctx context.Context, state *State, msgs []Message) ([]Message, error) {
	return append([]Message{System("from " + h.name)}, msgs...), nil
}

func (h *recordingHook) WrapToolCall(ctx context.Context, call ToolCall, next ToolCallFunc) (*ToolResult, error) {
	*h.order = append(*h.order, h.name+">")
	r, err := next(ctx, call)
	*h.order = append(*h.order, "<"+h.name)
	return r, err
}

func TestAgent_HookOrder(t *testing.T) {
	var order []string
	hooks := []Hook{
		&recordingHook{name: "outer", order: &order},
		&recordingHook{name: "inner", order: &order},
	}
	client := llmtest.Script(
		llmtest.Calls(llmtest.Call("c1", "write_file", map[string]any{"file_path": "a", "content": "b"})),
		llmtest.Text("done"),
	)
	a := NewAgent("main", &AgentConfig{}, client, []Tool{writeTool()}, hooks)
	state := &State{Messages: []Message{Human("go")}}
	require.NoError(t, a.Run(context.Background(), state))

	assert.Equal(t, []string{"outer>", "inner>", "<inner", "<outer"}, order)
	// request hooks never leak into the stored conversation
	assert.Empty(t, Messages(state.Messages).ByRole(RoleSystem))
	first := client.Requests()[0]
	assert.Equal(t, "from inner", first.Messages[0].Content)
}
