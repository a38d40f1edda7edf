package research

import (
	"context"

	"wick_deep/agent"
)

const thinkDescription = `Record a reflection on research progress before deciding the next step.

Use it after each search to note what you found, what is still missing, whether the
evidence is enough for a good answer, and whether to keep searching or answer now.`

// ThinkTool returns think_tool, which echoes the reflection back and changes nothing.
func ThinkTool() agent.Tool {
	return &agent.FuncTool{
		ToolName: "think_tool",
		ToolDesc: thinkDescription,
		ToolParams: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"reflection": map[string]any{
					"type":        "string",
					"description": "Your reflection on progress, findings, gaps and next steps",
				},
			},
			"required": []string{"reflection"},
		},
		Fn: func(ctx context.Context, state *agent.State, args map[string]any) (agent.Update, string, error) {
			return agent.Update{}, "Reflection recorded: " + agent.StringArg(args, "reflection"), nil
		},
	}
}
