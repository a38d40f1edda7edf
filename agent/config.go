package agent

// DefaultMaxIterations bounds the model/tool loop when the config leaves it unset.
const DefaultMaxIterations = 25

// AgentConfig is the configuration for creating an agent from agents.yaml.
type AgentConfig struct {
	Name          string            `yaml:"name" json:"name"`
	Model         any               `yaml:"model" json:"model"` // string or map
	SystemPrompt  string            `yaml:"system_prompt" json:"system_prompt"`
	Tools         []string          `yaml:"tools" json:"tools"`
	Subagents     []SubAgentCfg     `yaml:"subagents" json:"subagents"`
	Research      *ResearchCfg      `yaml:"research" json:"research,omitempty"`
	Skills        *SkillsCfg        `yaml:"skills" json:"skills,omitempty"`
	Memory        *MemoryCfg        `yaml:"memory" json:"memory,omitempty"`
	ContextWindow int               `yaml:"context_window" json:"context_window"`
	MaxIterations int               `yaml:"max_iterations" json:"max_iterations"`
	MaxDepth      *int              `yaml:"max_depth" json:"max_depth,omitempty"`
	Debug         bool              `yaml:"debug" json:"debug"`
	BuiltinConfig map[string]string `yaml:"builtin_config" json:"builtin_config"`
}

// SubAgentCfg describes a delegate worker.
type SubAgentCfg struct {
	Name         string   `yaml:"name" json:"name"`
	Description  string   `yaml:"description" json:"description"`
	SystemPrompt string   `yaml:"system_prompt" json:"system_prompt"`
	Tools        []string `yaml:"tools" json:"tools"`
	Model        string   `yaml:"model" json:"model"`
}

// ResearchCfg tunes the search tool and its summarization batch.
type ResearchCfg struct {
	MaxResults      int    `yaml:"max_results" json:"max_results"`
	MaxResultsLimit int    `yaml:"max_results_limit" json:"max_results_limit"`
	Topic           string `yaml:"topic" json:"topic"`
	SummaryModel    string `yaml:"summary_model" json:"summary_model"`
	Concurrency     int    `yaml:"concurrency" json:"concurrency"`
}

// SkillsCfg lists file-store prefixes scanned for SKILL.md files.
type SkillsCfg struct {
	Paths []string `yaml:"paths" json:"paths"`
}

// MemoryCfg lists memory files injected into the system prompt, with
// optional seed content written on first use.
type MemoryCfg struct {
	Paths          []string          `yaml:"paths" json:"paths"`
	InitialContent map[string]string `yaml:"initial_content" json:"initial_content"`
}

// ModelStr extracts a display string from the Model field (string or map).
func (c *AgentConfig) ModelStr() string {
	switch v := c.Model.(type) {
	case string:
		return v
	case map[string]any:
		prov, _ := v["provider"].(string)
		model, _ := v["model"].(string)
		if prov != "" && model != "" {
			return prov + ":" + model
		}
		if model != "" {
			return model
		}
		return prov
	default:
		return ""
	}
}

// Iterations returns the configured loop bound or the default.
func (c *AgentConfig) Iterations() int {
	if c.MaxIterations > 0 {
		return c.MaxIterations
	}
	return DefaultMaxIterations
}

// Depth returns the delegation depth limit; 0 means unlimited.
func (c *AgentConfig) Depth() int {
	if c.MaxDepth == nil {
		return 3
	}
	return *c.MaxDepth
}
