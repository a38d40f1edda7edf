package wickdeep

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"wick_deep/agent"
	"wick_deep/tracing"
)

// RunTask builds agentID from cfgs and runs task as a fresh top-level
// session. The final state is returned even when the run fails.
func RunTask(ctx context.Context, b *Builder, cfgs map[string]*agent.AgentConfig, agentID, task string) (*agent.State, *tracing.Trace, error) {
	cfg, ok := cfgs[agentID]
	if !ok {
		ids := make([]string, 0, len(cfgs))
		for id := range cfgs {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		return nil, nil, fmt.Errorf("agent %q not found (available: %v)", agentID, ids)
	}
	a, err := b.Build(agentID, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("build agent %q: %w", agentID, err)
	}

	state := &agent.State{
		ThreadID: uuid.NewString(),
		Messages: []agent.Message{agent.Human(task)},
		Files:    make(map[string]string),
	}
	t, err := tracing.Run(ctx, a, state, "cli", nil)
	return state, t, err
}
