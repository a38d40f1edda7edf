package hooks

import (
	"context"
	"fmt"
	"strings"

	"wick_deep/agent"
)

// MemoryHook injects memory files (e.g. AGENTS.md) from the virtual file
// store into the request, wrapped in <agent_memory> tags. Configured initial
// content is written into the store on first use.
type MemoryHook struct {
	agent.BaseHook
	paths   []string
	initial map[string]string
}

// NewMemoryHook creates a memory hook for the given store paths.
func NewMemoryHook(paths []string, initial map[string]string) *MemoryHook {
	return &MemoryHook{paths: paths, initial: initial}
}

func (h *MemoryHook) Name() string { return "memory" }

// BeforeAgent seeds memory files that do not exist yet.
func (h *MemoryHook) BeforeAgent(ctx context.Context, state *agent.State) error {
	seed := make(map[string]string)
	for path, content := range h.initial {
		if _, ok := state.Files[path]; !ok {
			seed[path] = content
		}
	}
	if len(seed) > 0 {
		state.Apply(agent.Update{Files: seed})
	}
	return nil
}

// ModifyRequest injects the current memory content.
func (h *MemoryHook) ModifyRequest(ctx context.Context, state *agent.State, msgs []agent.Message) ([]agent.Message, error) {
	var parts []string
	for _, path := range h.paths {
		if content := strings.TrimSpace(state.Files[path]); content != "" {
			parts = append(parts, content)
		}
	}
	if len(parts) == 0 {
		return msgs, nil
	}

	injection := fmt.Sprintf(`<agent_memory>
%s
</agent_memory>

Guidelines for agent memory:
- This memory lives in the file store at: %s
- Update it with write_file when you learn something worth keeping
- Keep entries concise and organized`, strings.Join(parts, "\n\n---\n\n"), strings.Join(h.paths, ", "))

	return prependSystem(msgs, injection), nil
}

// prependSystem appends text to a leading system message, or adds one.
// The caller's slice is not modified.
func prependSystem(msgs []agent.Message, text string) []agent.Message {
	out := make([]agent.Message, 0, len(msgs)+1)
	if len(msgs) > 0 && msgs[0].Role == agent.RoleSystem {
		first := msgs[0]
		first.Content += "\n\n" + text
		out = append(out, first)
		return append(out, msgs[1:]...)
	}
	out = append(out, agent.System(text))
	return append(out, msgs...)
}
