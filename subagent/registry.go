// Package subagent delegates tasks to isolated worker agents. A worker
// starts from a single user message and copies of the parent's files and
// todos; only its final answer and the files it changed flow back.
package subagent

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"wick_deep/agent"
)

// TaskToolName is the name of the delegation tool. Definitions may list it
// to let a worker delegate further.
const TaskToolName = "task"

var (
	ErrEmptyName      = errors.New("sub-agent name is empty")
	ErrDuplicateAgent = errors.New("duplicate sub-agent name")
	ErrUnknownTool    = errors.New("unknown tool")
)

// Definition describes a worker. An empty Tools list grants every base tool.
// Model overrides the dispatcher's default model when set.
type Definition struct {
	Name        string
	Description string
	Prompt      string
	Tools       []string
	Model       string
}

// FromConfig converts agents.yaml sub-agent entries.
func FromConfig(cfgs []agent.SubAgentCfg) []Definition {
	defs := make([]Definition, len(cfgs))
	for i, c := range cfgs {
		defs[i] = Definition{
			Name:        c.Name,
			Description: c.Description,
			Prompt:      c.SystemPrompt,
			Tools:       c.Tools,
			Model:       c.Model,
		}
	}
	return defs
}

// Registry is the immutable set of worker definitions, keyed by name.
type Registry struct {
	defs  map[string]Definition
	order []string
}

// NewRegistry validates defs against the available tools and builds the
// registry. Names must be unique and non-empty; every listed tool must exist
// in tools or be the task tool.
func NewRegistry(defs []Definition, tools *agent.ToolSet) (*Registry, error) {
	r := &Registry{defs: make(map[string]Definition, len(defs))}
	for _, def := range defs {
		name := strings.TrimSpace(def.Name)
		if name == "" {
			return nil, ErrEmptyName
		}
		if _, ok := r.defs[name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateAgent, name)
		}
		for _, tool := range def.Tools {
			if tool != TaskToolName && !tools.Has(tool) {
				return nil, fmt.Errorf("sub-agent %s: %w %q", name, ErrUnknownTool, tool)
			}
		}
		def.Name = name
		def.Tools = append([]string(nil), def.Tools...)
		r.defs[name] = def
		r.order = append(r.order, name)
	}
	return r, nil
}

// Get returns the definition for name.
func (r *Registry) Get(name string) (Definition, bool) {
	def, ok := r.defs[name]
	return def, ok
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	names := append([]string(nil), r.order...)
	sort.Strings(names)
	return names
}

// Len returns the number of definitions.
func (r *Registry) Len() int { return len(r.order) }

// Catalog lists "- name: description" lines in registration order.
func (r *Registry) Catalog() string {
	lines := make([]string, len(r.order))
	for i, name := range r.order {
		lines[i] = fmt.Sprintf("- %s: %s", name, r.defs[name].Description)
	}
	return strings.Join(lines, "\n")
}
