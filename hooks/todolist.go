package hooks

import (
	"context"

	"wick_deep/agent"
)

const writeTodosDescription = `Create or replace the task list used to plan and track multi-step work.

Pass the complete list every time; it replaces the previous one. Each item has a short
content description and a status of pending, in_progress or completed. Keep exactly one
item in_progress while working, and mark items completed as soon as they are done.`

const readTodosDescription = `Read the current task list with the status of every item.

Use it to re-focus on what remains before choosing the next step.`

// TodoListHook provides the task list tools (write_todos, read_todos).
type TodoListHook struct {
	agent.BaseHook
}

// NewTodoListHook creates a todo list hook.
func NewTodoListHook() *TodoListHook {
	return &TodoListHook{}
}

func (h *TodoListHook) Name() string { return "todolist" }

// BeforeAgent initializes the todo state.
func (h *TodoListHook) BeforeAgent(ctx context.Context, state *agent.State) error {
	if state.Todos == nil {
		state.Todos = []agent.Todo{}
	}
	return nil
}

// Tools returns write_todos and read_todos.
func (h *TodoListHook) Tools() []agent.Tool {
	return []agent.Tool{
		&agent.FuncTool{
			ToolName: "write_todos",
			ToolDesc: writeTodosDescription,
			ToolParams: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"todos": map[string]any{
						"type": "array",
						"items": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"content": map[string]any{"type": "string"},
								"status": map[string]any{
									"type": "string",
									"enum": []string{string(agent.TodoPending), string(agent.TodoInProgress), string(agent.TodoCompleted)},
								},
							},
							"required": []string{"content", "status"},
						},
					},
				},
				"required": []string{"todos"},
			},
			Fn: func(ctx context.Context, state *agent.State, args map[string]any) (agent.Update, string, error) {
				todos, err := agent.ParseTodos(args["todos"])
				if err != nil {
					return agent.Update{}, "Error: " + err.Error(), nil
				}
				u, msg := agent.WriteTodos(todos)
				return u, msg, nil
			},
		},
		&agent.FuncTool{
			ToolName:   "read_todos",
			ToolDesc:   readTodosDescription,
			ToolParams: map[string]any{"type": "object", "properties": map[string]any{}},
			Fn: func(ctx context.Context, state *agent.State, args map[string]any) (agent.Update, string, error) {
				return agent.Update{}, agent.ReadTodos(state), nil
			},
		},
	}
}
