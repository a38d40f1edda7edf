package agent

import (
	"encoding/json"
	"fmt"
	"strings"
)

// WriteTodos replaces the whole task list.
func WriteTodos(todos []Todo) (Update, string) {
	if todos == nil {
		todos = []Todo{}
	}
	b, _ := json.Marshal(todos)
	return ReplaceTodos(todos), "Updated todo list to " + string(b)
}

// ReadTodos renders the task list with a status marker per item.
func ReadTodos(s *State) string {
	if len(s.Todos) == 0 {
		return "No todos currently in the list."
	}
	var sb strings.Builder
	sb.WriteString("Current TODO List:\n")
	for i, t := range s.Todos {
		fmt.Fprintf(&sb, "%d. %s %s (%s)\n", i+1, statusMarker(t.Status), t.Content, t.Status)
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

// ParseTodos decodes the loosely typed tool argument into todos and checks
// every status. The error text is meant to be shown to the model.
func ParseTodos(raw any) ([]Todo, error) {
	if raw == nil {
		return nil, fmt.Errorf("todos is required")
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid todos: %w", err)
	}
	var todos []Todo
	if err := json.Unmarshal(b, &todos); err != nil {
		return nil, fmt.Errorf("invalid todos: %w", err)
	}
	for i, t := range todos {
		if strings.TrimSpace(t.Content) == "" {
			return nil, fmt.Errorf("todo %d has empty content", i)
		}
		if !t.Status.Valid() {
			return nil, fmt.Errorf("todo %d has invalid status %q (must be pending, in_progress or completed)", i, t.Status)
		}
	}
	return todos, nil
}

func statusMarker(s TodoStatus) string {
	switch s {
	case TodoPending:
		return "⏳"
	case TodoInProgress:
		return "🔄"
	case TodoCompleted:
		return "✅"
	default:
		return "❓"
	}
}
