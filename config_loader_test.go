package wickdeep

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFile(t *testing.T) {
	cfgs, err := LoadConfigFile("testdata/agents.yaml")
	require.NoError(t, err)
	require.Len(t, cfgs, 2)

	research := cfgs["research"]
	require.NotNil(t, research)
	assert.Equal(t, "Deep Researcher", research.Name)
	assert.Equal(t, "ollama:llama3.1:8b", research.ModelStr())
	assert.Equal(t, 15, research.Iterations())
	assert.Equal(t, 2, research.Depth())
	require.NotNil(t, research.Research)
	assert.Equal(t, 2, research.Research.MaxResults)
	assert.Equal(t, 4, research.Research.Concurrency)
	require.Len(t, research.Subagents, 2)
	assert.Equal(t, "research-agent", research.Subagents[0].Name)
	assert.Equal(t, []string{"search", "think_tool", "read_file", "ls"}, research.Subagents[0].Tools)
	assert.Equal(t, "Cite sources by file name.", research.Memory.InitialContent["AGENTS.md"])

	notes := cfgs["notes"]
	assert.Equal(t, "notes", notes.Name)
	assert.Equal(t, "anthropic:claude-haiku-4-5", notes.ModelStr())
	assert.Equal(t, 0, notes.Depth())
	assert.Equal(t, 15, notes.Iterations())
}

func TestParseConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"missing model", "agents:\n  a:\n    name: A\n", `agent "a": model is required`},
		{"duplicate subagent", "agents:\n  a:\n    model: x\n    subagents:\n      - name: s\n      - name: s\n", `duplicate subagent "s"`},
		{"negative depth", "agents:\n  a:\n    model: x\n    max_depth: -1\n", "max_depth must not be negative"},
		{"bad yaml", "agents: [", "failed to parse config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseConfig_DefaultsDoNotShare(t *testing.T) {
	cfgs, err := ParseConfig([]byte("defaults:\n  model: m\n  research:\n    max_results: 1\n  builtin_config:\n    tavily_api_key: k\nagents:\n  a: {}\n  b:\n    builtin_config:\n      tavily_api_key: own\n"))
	require.NoError(t, err)
	cfgs["a"].Research.MaxResults = 9
	assert.Equal(t, 1, cfgs["b"].Research.MaxResults)
	assert.Equal(t, "k", cfgs["a"].BuiltinConfig["tavily_api_key"])
	assert.Equal(t, "own", cfgs["b"].BuiltinConfig["tavily_api_key"])
}
