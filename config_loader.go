package wickdeep

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"wick_deep/agent"
)

// configFile is the top-level structure of agents.yaml.
type configFile struct {
	Defaults *configDefaults               `yaml:"defaults"`
	Agents   map[string]*agent.AgentConfig `yaml:"agents"`
}

type configDefaults struct {
	Model         any                `yaml:"model"`
	Debug         bool               `yaml:"debug"`
	ContextWindow int                `yaml:"context_window"`
	MaxIterations int                `yaml:"max_iterations"`
	MaxDepth      *int               `yaml:"max_depth"`
	Research      *agent.ResearchCfg `yaml:"research"`
	BuiltinConfig map[string]string  `yaml:"builtin_config"`
}

// LoadConfigFile reads agents.yaml and returns the agent configs keyed by ID.
func LoadConfigFile(path string) (map[string]*agent.AgentConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes agents.yaml content, applies defaults and validates
// every agent.
func ParseConfig(data []byte) (map[string]*agent.AgentConfig, error) {
	var cfg configFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	for agentID, agentCfg := range cfg.Agents {
		if agentCfg == nil {
			agentCfg = &agent.AgentConfig{}
			cfg.Agents[agentID] = agentCfg
		}
		applyDefaults(agentCfg, cfg.Defaults)
		if agentCfg.Name == "" {
			agentCfg.Name = agentID
		}
		if err := validateAgent(agentID, agentCfg); err != nil {
			return nil, err
		}
	}
	if cfg.Agents == nil {
		cfg.Agents = map[string]*agent.AgentConfig{}
	}
	return cfg.Agents, nil
}

func applyDefaults(c *agent.AgentConfig, d *configDefaults) {
	if d == nil {
		return
	}
	if c.Model == nil {
		c.Model = d.Model
	}
	if !c.Debug && d.Debug {
		c.Debug = true
	}
	if c.ContextWindow == 0 {
		c.ContextWindow = d.ContextWindow
	}
	if c.MaxIterations == 0 {
		c.MaxIterations = d.MaxIterations
	}
	if c.MaxDepth == nil && d.MaxDepth != nil {
		depth := *d.MaxDepth
		c.MaxDepth = &depth
	}
	if c.Research == nil && d.Research != nil {
		research := *d.Research
		c.Research = &research
	}
	for k, v := range d.BuiltinConfig {
		if c.BuiltinConfig == nil {
			c.BuiltinConfig = make(map[string]string)
		}
		if _, ok := c.BuiltinConfig[k]; !ok {
			c.BuiltinConfig[k] = v
		}
	}
}

func validateAgent(agentID string, c *agent.AgentConfig) error {
	if c.ModelStr() == "" {
		return fmt.Errorf("agent %q: model is required", agentID)
	}
	if c.MaxDepth != nil && *c.MaxDepth < 0 {
		return fmt.Errorf("agent %q: max_depth must not be negative", agentID)
	}
	seen := make(map[string]bool, len(c.Subagents))
	for _, sa := range c.Subagents {
		if sa.Name == "" {
			return fmt.Errorf("agent %q: subagent with empty name", agentID)
		}
		if seen[sa.Name] {
			return fmt.Errorf("agent %q: duplicate subagent %q", agentID, sa.Name)
		}
		seen[sa.Name] = true
	}
	return nil
}
