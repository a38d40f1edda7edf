package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wick_deep/agent"
	"wick_deep/hooks"
	"wick_deep/llm/llmtest"
	"wick_deep/tracing"
)

func newTestServer(t *testing.T, client *llmtest.Client) *httptest.Server {
	t.Helper()
	reg := agent.NewRegistry()
	reg.RegisterTemplate("main", &agent.AgentConfig{Name: "Main", Model: "ollama:llama3"})
	threads := agent.NewThreadStore(time.Hour)
	t.Cleanup(threads.Close)

	mux := http.NewServeMux()
	RegisterRoutes(mux, &Deps{
		Registry: reg,
		Build: func(id string, cfg *agent.AgentConfig) (*agent.Agent, error) {
			fs := hooks.NewFilesystemHook(nil, nil)
			return agent.NewAgent(id, cfg, client, fs.Tools(), []agent.Hook{tracing.NewTracingHook(), fs}), nil
		},
		Threads:    threads,
		TraceStore: tracing.NewStore(10),
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

func TestInvokeAndInspectThread(t *testing.T) {
	client := llmtest.Script(
		llmtest.Calls(llmtest.Call("c1", "write_file", map[string]any{"file_path": "notes.md", "content": "line one\nline two"})),
		llmtest.Text("saved"),
		llmtest.Text("second turn"),
	)
	srv := newTestServer(t, client)

	resp, out := postJSON(t, srv.URL+"/agents/main/invoke", map[string]any{
		"thread_id": "t1",
		"messages":  []map[string]string{{"role": "user", "content": "take notes"}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "saved", out["response"])
	assert.Equal(t, "t1", out["thread_id"])
	assert.Equal(t, []any{"notes.md"}, out["files"])
	traceID, _ := out["trace_id"].(string)
	require.NotEmpty(t, traceID)

	t.Run("thread state persists across invokes", func(t *testing.T) {
		resp, out := postJSON(t, srv.URL+"/agents/main/invoke", map[string]any{
			"thread_id": "t1",
			"messages":  []map[string]string{{"role": "user", "content": "again"}},
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "second turn", out["response"])

		reqs := client.Requests()
		// user, assistant(call), tool, assistant, user
		assert.Len(t, reqs[2].Messages, 5)
	})

	t.Run("files", func(t *testing.T) {
		var files map[string]any
		require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/agents/main/threads/t1/files", &files))
		assert.Equal(t, []any{"notes.md"}, files["files"])

		var file map[string]any
		require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/agents/main/threads/t1/files/read?path=notes.md&offset=1", &file))
		assert.Equal(t, "     2\tline two", file["content"])

		require.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/agents/main/threads/t1/files/read?path=missing.md", &file))
	})

	t.Run("trace", func(t *testing.T) {
		var trace map[string]any
		require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/traces/"+traceID, &trace))
		assert.Equal(t, "main", trace["agent_id"])
		assert.NotEmpty(t, trace["spans"])
	})

	t.Run("unknown thread", func(t *testing.T) {
		var body map[string]any
		assert.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/agents/main/threads/nope/files", &body))
	})
}

func TestInvokeErrors(t *testing.T) {
	srv := newTestServer(t, llmtest.Script())

	t.Run("unknown agent", func(t *testing.T) {
		resp, _ := postJSON(t, srv.URL+"/agents/ghost/invoke", map[string]any{
			"messages": []map[string]string{{"role": "user", "content": "hi"}},
		})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("assistant role rejected", func(t *testing.T) {
		resp, out := postJSON(t, srv.URL+"/agents/main/invoke", map[string]any{
			"messages": []map[string]string{{"role": "assistant", "content": "hi"}},
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, out["error"], "not allowed")
	})

	t.Run("model failure returns trace id", func(t *testing.T) {
		resp, out := postJSON(t, srv.URL+"/agents/main/invoke", map[string]any{
			"messages": []map[string]string{{"role": "user", "content": "hi"}},
		})
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.NotEmpty(t, out["trace_id"])
		assert.Contains(t, out["error"], "script exhausted")
	})
}

func TestListAgents(t *testing.T) {
	srv := newTestServer(t, llmtest.Script())
	var agents []agent.AgentInfo
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/agents", &agents))
	require.Len(t, agents, 1)
	assert.Equal(t, "main", agents[0].AgentID)
	assert.Equal(t, "ollama:llama3", agents[0].Model)
}
