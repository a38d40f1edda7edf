package agent

import (
	"fmt"
	"sort"
	"sync"
)

// BuildFunc turns a template into a runnable Agent.
type BuildFunc func(agentID string, cfg *AgentConfig) (*Agent, error)

// Registry manages agent templates (from agents.yaml) and the agents built
// from them. An agent is built on first use and reused afterwards; it holds no
// per-run state.
type Registry struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// Template is an agent configuration plus its lazily built Agent.
type Template struct {
	AgentID string
	Config  *AgentConfig
	agent   *Agent
}

// AgentInfo is the JSON view of an agent template.
type AgentInfo struct {
	AgentID       string   `json:"agent_id"`
	Name          *string  `json:"name"`
	Model         string   `json:"model"`
	SystemPrompt  *string  `json:"system_prompt"`
	Tools         []string `json:"tools"`
	Subagents     []string `json:"subagents"`
	Skills        []string `json:"skills"`
	Memory        []string `json:"memory"`
	MaxIterations int      `json:"max_iterations"`
	MaxDepth      int      `json:"max_depth"`
	Debug         bool     `json:"debug"`
}

// NewRegistry creates an empty agent registry.
func NewRegistry() *Registry {
	return &Registry{templates: make(map[string]*Template)}
}

// RegisterTemplate stores an agent template, replacing any earlier one with the same ID.
func (r *Registry) RegisterTemplate(agentID string, cfg *AgentConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates[agentID] = &Template{AgentID: agentID, Config: cfg}
}

// ListTemplates returns all template IDs, sorted.
func (r *Registry) ListTemplates() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.templates))
	for id := range r.templates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// TemplateCount returns the number of registered templates.
func (r *Registry) TemplateCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.templates)
}

// Config returns the template config for agentID.
func (r *Registry) Config(agentID string) (*AgentConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tmpl, ok := r.templates[agentID]
	if !ok {
		return nil, false
	}
	return tmpl.Config, true
}

// GetOrBuild returns the agent for agentID, building it with build on first use.
func (r *Registry) GetOrBuild(agentID string, build BuildFunc) (*Agent, error) {
	r.mu.RLock()
	tmpl, ok := r.templates[agentID]
	if ok && tmpl.agent != nil {
		a := tmpl.agent
		r.mu.RUnlock()
		return a, nil
	}
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("agent template %q not found", agentID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock
	tmpl, ok = r.templates[agentID]
	if !ok {
		return nil, fmt.Errorf("agent template %q not found", agentID)
	}
	if tmpl.agent != nil {
		return tmpl.agent, nil
	}
	a, err := build(agentID, tmpl.Config)
	if err != nil {
		return nil, fmt.Errorf("build agent %q: %w", agentID, err)
	}
	tmpl.agent = a
	return a, nil
}

// ListAgents returns info for every template, sorted by ID.
func (r *Registry) ListAgents() []AgentInfo {
	ids := r.ListTemplates()
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]AgentInfo, 0, len(ids))
	for _, id := range ids {
		result = append(result, templateToInfo(r.templates[id]))
	}
	return result
}

func templateToInfo(tmpl *Template) AgentInfo {
	cfg := tmpl.Config
	info := AgentInfo{
		AgentID:       tmpl.AgentID,
		Tools:         nonNilStrings(cfg.Tools),
		Subagents:     subagentNames(cfg.Subagents),
		Skills:        []string{},
		Memory:        []string{},
		Model:         cfg.ModelStr(),
		MaxIterations: cfg.Iterations(),
		MaxDepth:      cfg.Depth(),
		Debug:         cfg.Debug,
	}
	if cfg.Name != "" {
		info.Name = &cfg.Name
	}
	if cfg.SystemPrompt != "" {
		sp := truncate(cfg.SystemPrompt, 120)
		info.SystemPrompt = &sp
	}
	if cfg.Skills != nil {
		info.Skills = nonNilStrings(cfg.Skills.Paths)
	}
	if cfg.Memory != nil {
		info.Memory = nonNilStrings(cfg.Memory.Paths)
	}
	return info
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func subagentNames(subs []SubAgentCfg) []string {
	names := make([]string, len(subs))
	for i, sa := range subs {
		names[i] = sa.Name
	}
	return names
}

func truncate(s string, maxLen int) string {
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}
