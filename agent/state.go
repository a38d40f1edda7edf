package agent

import "maps"

// State is the shared record a controller run operates on.
// Tools only read it; every change travels back as an Update.
type State struct {
	ThreadID string            `json:"thread_id,omitempty"`
	Messages []Message         `json:"messages"`
	Todos    []Todo            `json:"todos,omitempty"`
	Files    map[string]string `json:"files,omitempty"` // path → content
}

// TodoStatus is the lifecycle state of a Todo.
type TodoStatus string

const (
	TodoPending    TodoStatus = "pending"
	TodoInProgress TodoStatus = "in_progress"
	TodoCompleted  TodoStatus = "completed"
)

// Valid reports whether s is one of the known statuses.
func (s TodoStatus) Valid() bool {
	switch s {
	case TodoPending, TodoInProgress, TodoCompleted:
		return true
	}
	return false
}

// Todo is one entry of the task list.
type Todo struct {
	Content string     `json:"content"`
	Status  TodoStatus `json:"status"`
}

// Update is the state change produced by a tool or delegation.
//
// Files is a delta merged with MergeFiles. Todos replaces the whole list when
// non-nil. Messages are appended.
type Update struct {
	Files    map[string]string
	Todos    *[]Todo
	Messages []Message
}

// IsZero reports whether applying u would change nothing.
func (u Update) IsZero() bool {
	return len(u.Files) == 0 && u.Todos == nil && len(u.Messages) == 0
}

// ReplaceTodos builds an Update that swaps in a new task list.
func ReplaceTodos(todos []Todo) Update {
	cp := make([]Todo, len(todos))
	copy(cp, todos)
	return Update{Todos: &cp}
}

// MergeFiles combines two file maps with right-biased precedence.
// Neither input is modified. A nil side yields the other side unchanged.
func MergeFiles(left, right map[string]string) map[string]string {
	if left == nil {
		return right
	}
	if right == nil {
		return left
	}
	out := make(map[string]string, len(left)+len(right))
	maps.Copy(out, left)
	maps.Copy(out, right)
	return out
}

// DiffFiles returns the entries of next that are absent from base or carry
// different content. Keys removed in next are not reported.
func DiffFiles(base, next map[string]string) map[string]string {
	delta := make(map[string]string)
	for path, content := range next {
		if old, ok := base[path]; !ok || old != content {
			delta[path] = content
		}
	}
	return delta
}

// Apply folds u into s.
func (s *State) Apply(u Update) {
	if len(u.Files) > 0 {
		s.Files = MergeFiles(s.Files, u.Files)
	}
	if u.Todos != nil {
		todos := make([]Todo, len(*u.Todos))
		copy(todos, *u.Todos)
		s.Todos = todos
	}
	s.Messages = append(s.Messages, u.Messages...)
}

// Fork returns an isolated state for a delegated task: a single user message,
// plus copies of the file map and task list. Nothing in the fork aliases s.
func (s *State) Fork(task string) *State {
	files := make(map[string]string, len(s.Files))
	maps.Copy(files, s.Files)
	todos := make([]Todo, len(s.Todos))
	copy(todos, s.Todos)
	return &State{
		Messages: []Message{Human(task)},
		Todos:    todos,
		Files:    files,
	}
}
