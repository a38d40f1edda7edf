package agent

import (
	"context"
	"sort"
)

// Tool is a capability the model can invoke.
//
// Execute receives the state as of the start of the current turn and must
// treat it as read-only: several tools of the same turn run concurrently.
// Changes are returned in the Update and applied by the loop in call order.
// Failures the model should see belong in the returned text; a Go error is
// turned into an "Error: ..." result by the loop.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]any // JSON Schema
	Execute(ctx context.Context, state *State, args map[string]any) (Update, string, error)
}

// FuncTool wraps a plain function as a Tool.
type FuncTool struct {
	ToolName   string
	ToolDesc   string
	ToolParams map[string]any
	Fn         func(ctx context.Context, state *State, args map[string]any) (Update, string, error)
}

func (f *FuncTool) Name() string               { return f.ToolName }
func (f *FuncTool) Description() string        { return f.ToolDesc }
func (f *FuncTool) Parameters() map[string]any { return f.ToolParams }
func (f *FuncTool) Execute(ctx context.Context, state *State, args map[string]any) (Update, string, error) {
	return f.Fn(ctx, state, args)
}

// ToolSet is a name-indexed collection of tools.
type ToolSet struct {
	tools map[string]Tool
}

// NewToolSet builds a set from tools; a later tool replaces an earlier one with the same name.
func NewToolSet(tools ...Tool) *ToolSet {
	s := &ToolSet{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		s.Add(t)
	}
	return s
}

// Add registers a tool.
func (s *ToolSet) Add(tool Tool) {
	s.tools[tool.Name()] = tool
}

// Get returns a tool by name or nil.
func (s *ToolSet) Get(name string) Tool {
	return s.tools[name]
}

// Has reports whether name is registered.
func (s *ToolSet) Has(name string) bool {
	_, ok := s.tools[name]
	return ok
}

// Names returns all tool names, sorted.
func (s *ToolSet) Names() []string {
	names := make([]string, 0, len(s.tools))
	for name := range s.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns the tools ordered by name.
func (s *ToolSet) All() []Tool {
	out := make([]Tool, 0, len(s.tools))
	for _, name := range s.Names() {
		out = append(out, s.tools[name])
	}
	return out
}

// Subset returns the named tools in the given order, skipping unknown names.
// An empty names list selects everything.
func (s *ToolSet) Subset(names []string) []Tool {
	if len(names) == 0 {
		return s.All()
	}
	out := make([]Tool, 0, len(names))
	for _, name := range names {
		if t, ok := s.tools[name]; ok {
			out = append(out, t)
		}
	}
	return out
}

// StringArg reads a string argument, returning "" when absent or mistyped.
func StringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

// IntArg reads a numeric argument (JSON numbers decode as float64), falling back to def.
func IntArg(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	}
	return def
}
