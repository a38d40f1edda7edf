package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"wick_deep/agent"
	"wick_deep/tracing"
)

// Deps holds shared dependencies injected into handlers.
type Deps struct {
	Registry   *agent.Registry
	Build      agent.BuildFunc
	Threads    *agent.ThreadStore
	TraceStore *tracing.Store
	Logger     *zap.Logger
}

// RegisterRoutes registers the /agents and /traces routes on the given mux.
func RegisterRoutes(mux *http.ServeMux, deps *Deps) {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	h := &agentHandler{deps: deps}

	mux.HandleFunc("GET /agents", h.listAgents)
	mux.HandleFunc("GET /agents/{id}", h.getAgent)
	mux.HandleFunc("POST /agents/{id}/invoke", h.invoke)
	mux.HandleFunc("GET /agents/{id}/threads/{thread}", h.getThread)
	mux.HandleFunc("DELETE /agents/{id}/threads/{thread}", h.deleteThread)
	mux.HandleFunc("GET /agents/{id}/threads/{thread}/files", h.listFiles)
	mux.HandleFunc("GET /agents/{id}/threads/{thread}/files/read", h.readFile)
	mux.HandleFunc("GET /traces", h.listTraces)
	mux.HandleFunc("GET /traces/{id}", h.getTrace)
}

type agentHandler struct {
	deps *Deps
}

type invokeRequest struct {
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	ThreadID *string `json:"thread_id"`
}

// scopedKey keeps threads of different agents apart in the shared store.
func scopedKey(agentID, threadID string) string {
	return agentID + ":" + threadID
}

// --- Agents ---

func (h *agentHandler) listAgents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Registry.ListAgents())
}

func (h *agentHandler) getAgent(w http.ResponseWriter, r *http.Request) {
	agentID := r.PathValue("id")
	for _, info := range h.deps.Registry.ListAgents() {
		if info.AgentID == agentID {
			writeJSON(w, http.StatusOK, info)
			return
		}
	}
	writeJSONError(w, http.StatusNotFound, "agent not found: "+agentID)
}

// --- Invoke ---

// validateAndConvertMessages checks that all user-submitted messages have an
// allowed role and returns them as agent.Message. Only "user" and "system" are
// accepted; "assistant" and "tool" are produced by the agent loop.
func validateAndConvertMessages(req invokeRequest) ([]agent.Message, error) {
	chain := make(agent.Messages, len(req.Messages))
	for i, m := range req.Messages {
		chain[i] = agent.Message{Role: m.Role, Content: m.Content}
	}
	if err := chain.ValidateUserInput(); err != nil {
		return nil, err
	}
	return chain, nil
}

func (h *agentHandler) invoke(w http.ResponseWriter, r *http.Request) {
	agentID := r.PathValue("id")
	if _, ok := h.deps.Registry.Config(agentID); !ok {
		writeJSONError(w, http.StatusNotFound, "agent not found: "+agentID)
		return
	}

	var req invokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	msgs, err := validateAndConvertMessages(req)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	a, err := h.deps.Registry.GetOrBuild(agentID, h.deps.Build)
	if err != nil {
		h.deps.Logger.Error("agent build failed", zap.String("agent", agentID), zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	threadID := uuid.NewString()
	if req.ThreadID != nil && *req.ThreadID != "" {
		threadID = *req.ThreadID
	}

	state, release := h.deps.Threads.Checkout(scopedKey(agentID, threadID))
	defer release()
	state.Messages = append(state.Messages, msgs...)

	trace, err := tracing.Run(r.Context(), a, state, "invoke", h.deps.TraceStore)
	if err != nil {
		h.deps.Logger.Warn("invoke failed",
			zap.String("agent", agentID),
			zap.String("thread", threadID),
			zap.String("trace_id", trace.TraceID),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":     err.Error(),
			"thread_id": threadID,
			"trace_id":  trace.TraceID,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"thread_id": threadID,
		"trace_id":  trace.TraceID,
		"response":  agent.FinalAnswer(state),
		"todos":     nonNilTodos(state.Todos),
		"files":     agent.ListFiles(state),
	})
}

// --- Threads & files ---

func (h *agentHandler) thread(w http.ResponseWriter, r *http.Request) *agent.State {
	state := h.deps.Threads.Get(scopedKey(r.PathValue("id"), r.PathValue("thread")))
	if state == nil {
		writeJSONError(w, http.StatusNotFound, "thread not found: "+r.PathValue("thread"))
	}
	return state
}

func (h *agentHandler) getThread(w http.ResponseWriter, r *http.Request) {
	state, release, ok := h.checkout(w, r)
	if !ok {
		return
	}
	defer release()
	writeJSON(w, http.StatusOK, map[string]any{
		"thread_id": r.PathValue("thread"),
		"messages":  state.Messages,
		"todos":     nonNilTodos(state.Todos),
		"files":     agent.ListFiles(state),
	})
}

func (h *agentHandler) deleteThread(w http.ResponseWriter, r *http.Request) {
	if h.thread(w, r) == nil {
		return
	}
	h.deps.Threads.Delete(scopedKey(r.PathValue("id"), r.PathValue("thread")))
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *agentHandler) listFiles(w http.ResponseWriter, r *http.Request) {
	state, release, ok := h.checkout(w, r)
	if !ok {
		return
	}
	defer release()
	writeJSON(w, http.StatusOK, map[string]any{
		"thread_id": r.PathValue("thread"),
		"files":     agent.ListFiles(state),
	})
}

func (h *agentHandler) readFile(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	path := q.Get("path")
	if path == "" {
		writeJSONError(w, http.StatusBadRequest, "path is required")
		return
	}
	offset, _ := strconv.Atoi(q.Get("offset"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	state, release, ok := h.checkout(w, r)
	if !ok {
		return
	}
	defer release()
	if _, exists := state.Files[path]; !exists {
		writeJSONError(w, http.StatusNotFound, "file not found: "+path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"path":    path,
		"content": agent.ReadFile(state, path, offset, limit),
	})
}

// checkout holds an existing thread so reads never race a running invoke.
func (h *agentHandler) checkout(w http.ResponseWriter, r *http.Request) (*agent.State, func(), bool) {
	if h.thread(w, r) == nil {
		return nil, nil, false
	}
	state, release := h.deps.Threads.Checkout(scopedKey(r.PathValue("id"), r.PathValue("thread")))
	return state, release, true
}

// --- Traces ---

func (h *agentHandler) listTraces(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	traces := h.deps.TraceStore.List(limit)
	out := make([]*tracing.Trace, len(traces))
	for i, t := range traces {
		out[i] = t.Snapshot()
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *agentHandler) getTrace(w http.ResponseWriter, r *http.Request) {
	t := h.deps.TraceStore.Get(r.PathValue("id"))
	if t == nil {
		writeJSONError(w, http.StatusNotFound, "trace not found")
		return
	}
	writeJSON(w, http.StatusOK, t.Snapshot())
}

// --- Helpers ---

func nonNilTodos(t []agent.Todo) []agent.Todo {
	if t == nil {
		return []agent.Todo{}
	}
	return t
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
