package tracing

import (
	"context"

	"wick_deep/agent"
)

// Run executes a over state inside a new trace and stores the finished trace
// in store (which may be nil). The trace is returned even when the run fails.
func Run(ctx context.Context, a *agent.Agent, state *agent.State, kind string, store *Store) (*Trace, error) {
	t := NewTrace(a.ID, state.ThreadID, a.Config.ModelStr(), kind, len(state.Messages))
	err := a.Run(WithTrace(ctx, t), state)
	t.Finish(err, map[string]any{
		"response":      preview(agent.FinalAnswer(state)),
		"message_count": len(state.Messages),
		"file_count":    len(state.Files),
		"todo_count":    len(state.Todos),
	})
	if store != nil {
		store.Put(t)
	}
	return t, err
}
