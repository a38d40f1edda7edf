package wickdeep

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wick_deep/agent"
	"wick_deep/llm"
	"wick_deep/llm/llmtest"
	"wick_deep/research"
)

func stubResolver(client llm.Client) func(any) (llm.Client, string, error) {
	return func(spec any) (llm.Client, string, error) {
		return client, "stub", nil
	}
}

func toolNames(a *agent.Agent) []string {
	names := make([]string, len(a.Tools))
	for i, t := range a.Tools {
		names[i] = t.Name()
	}
	return names
}

func fakeSearcher() research.Searcher {
	return research.SearcherFunc(func(ctx context.Context, q research.Query) (*research.SearchResponse, error) {
		return &research.SearchResponse{Query: q.Text, Results: []research.SearchResult{
			{URL: "https://example.com/" + q.Text, Title: q.Text, RawContent: "raw page about " + q.Text},
		}}, nil
	})
}

func TestBuilder_Build(t *testing.T) {
	cfgs, err := LoadConfigFile("testdata/agents.yaml")
	require.NoError(t, err)

	t.Run("configured tools in order", func(t *testing.T) {
		b := &Builder{Resolve: stubResolver(llmtest.Script()), Searcher: fakeSearcher()}
		a, err := b.Build("research", cfgs["research"])
		require.NoError(t, err)
		assert.Equal(t, []string{"ls", "read_file", "write_file", "write_todos", "read_todos", "think_tool", "search", "task"}, toolNames(a))

		var hookNames []string
		for _, h := range a.Hooks {
			hookNames = append(hookNames, h.Name())
		}
		assert.Equal(t, []string{"tracing", "todolist", "filesystem", "memory", "skills", "summarization"}, hookNames)
	})

	t.Run("all tools when none listed", func(t *testing.T) {
		b := &Builder{Resolve: stubResolver(llmtest.Script())}
		a, err := b.Build("notes", cfgs["notes"])
		require.NoError(t, err)
		assert.Equal(t, []string{"ls", "read_file", "read_todos", "think_tool", "write_file", "write_todos"}, toolNames(a))
	})

	t.Run("search needs a key or searcher", func(t *testing.T) {
		b := &Builder{Resolve: stubResolver(llmtest.Script())}
		_, err := b.Build("research", cfgs["research"])
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown tool "search"`)
	})

	t.Run("tavily key enables search", func(t *testing.T) {
		b := &Builder{Resolve: stubResolver(llmtest.Script()), TavilyAPIKey: "k"}
		_, err := b.Build("research", cfgs["research"])
		require.NoError(t, err)
	})

	t.Run("subagent with unknown tool", func(t *testing.T) {
		b := &Builder{Resolve: stubResolver(llmtest.Script())}
		_, err := b.Build("x", &agent.AgentConfig{Model: "m", Subagents: []agent.SubAgentCfg{{Name: "w", Tools: []string{"shell"}}}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown tool")
	})
}

// TestRunTask_ResearchFlow drives a lead agent that plans, delegates a
// sub-topic to a worker that searches, and writes a report from the files.
func TestRunTask_ResearchFlow(t *testing.T) {
	cfgs, err := LoadConfigFile("testdata/agents.yaml")
	require.NoError(t, err)
	lead := cfgs["research"]
	worker := lead.Subagents[0]

	client := &llmtest.Client{Handler: func(ctx context.Context, req llm.Request) (*llm.Response, error) {
		if req.ToolChoice == "record_summary" {
			return llmtest.Calls(llmtest.Call("s", "record_summary", map[string]any{
				"filename": "go_generics.md", "summary": "Generics landed in Go 1.18",
			})), nil
		}
		toolTurns := 0
		for _, m := range req.Messages {
			if m.Role == "tool" {
				toolTurns++
			}
		}
		switch {
		case req.SystemPrompt == worker.SystemPrompt && toolTurns == 0:
			return llmtest.Calls(llmtest.Call("w1", "search", map[string]any{"query": "go generics"})), nil
		case req.SystemPrompt == worker.SystemPrompt:
			return llmtest.Text("Generics arrived in Go 1.18; see go_generics.md"), nil
		case toolTurns == 0:
			return llmtest.Calls(
				llmtest.Call("l1", "write_todos", map[string]any{"todos": []any{
					map[string]any{"content": "research generics", "status": "in_progress"},
				}}),
				llmtest.Call("l2", "task", map[string]any{"description": "Research Go generics history", "subagent_type": "research-agent"}),
			), nil
		case toolTurns == 2:
			return llmtest.Calls(llmtest.Call("l3", "write_file", map[string]any{"file_path": "final_report.md", "content": "# Report"})), nil
		default:
			return llmtest.Text("Report written to final_report.md"), nil
		}
	}}

	b := &Builder{Resolve: stubResolver(client), Searcher: fakeSearcher()}
	state, trace, err := RunTask(context.Background(), b, cfgs, "research", "History of Go generics?")
	require.NoError(t, err)

	assert.Equal(t, "Report written to final_report.md", agent.FinalAnswer(state))
	assert.ElementsMatch(t, []string{"AGENTS.md", "go_generics.md", "final_report.md"}, agent.ListFiles(state))
	assert.Contains(t, state.Files["go_generics.md"], "## Raw Content\nraw page about go generics")
	require.Len(t, state.Todos, 1)

	// the lead only ever saw the worker's final answer
	for _, m := range state.Messages {
		assert.False(t, strings.Contains(m.Content, "raw page about"), "raw content leaked into lead context")
	}
	assert.Equal(t, "Generics arrived in Go 1.18; see go_generics.md", state.Messages[3].Content)

	var sawWorkerSpan bool
	for _, s := range trace.Snapshot().Spans {
		if strings.HasPrefix(s.Name, "subagent/research-agent/") {
			sawWorkerSpan = true
		}
	}
	assert.True(t, sawWorkerSpan)

	_, _, err = RunTask(context.Background(), b, cfgs, "ghost", "x")
	assert.ErrorContains(t, err, `agent "ghost" not found`)
}
