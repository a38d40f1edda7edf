package hooks

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"wick_deep/agent"
)

var frontmatterRE = regexp.MustCompile(`(?s)\A---\s*\n(.*?\n)---\s*\n`)

// SkillEntry represents a discovered skill.
type SkillEntry struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Path        string `yaml:"-"`
}

// SkillsHook discovers SKILL.md files in the virtual file store under the
// configured prefixes and injects a catalog into the request. Only metadata
// goes into the prompt; the agent reads a skill with read_file on demand.
type SkillsHook struct {
	agent.BaseHook
	prefixes []string
}

// NewSkillsHook creates a skills hook that scans the given path prefixes.
func NewSkillsHook(prefixes []string) *SkillsHook {
	return &SkillsHook{prefixes: prefixes}
}

func (h *SkillsHook) Name() string { return "skills" }

// Discover returns the skills currently present in state, sorted by path.
func (h *SkillsHook) Discover(state *agent.State) []SkillEntry {
	var skills []SkillEntry
	for _, p := range agent.ListFiles(state) {
		if path.Base(p) != "SKILL.md" || !h.inScope(p) {
			continue
		}
		entry := SkillEntry{Path: p, Name: path.Base(path.Dir(p))}
		if match := frontmatterRE.FindStringSubmatch(state.Files[p]); match != nil {
			var front SkillEntry
			if err := yaml.Unmarshal([]byte(match[1]), &front); err == nil {
				if front.Name != "" {
					entry.Name = front.Name
				}
				entry.Description = strings.TrimSpace(front.Description)
			}
		}
		skills = append(skills, entry)
	}
	sort.Slice(skills, func(i, j int) bool { return skills[i].Path < skills[j].Path })
	return skills
}

// ModifyRequest injects the skills catalog.
func (h *SkillsHook) ModifyRequest(ctx context.Context, state *agent.State, msgs []agent.Message) ([]agent.Message, error) {
	skills := h.Discover(state)
	if len(skills) == 0 {
		return msgs, nil
	}

	var sb strings.Builder
	sb.WriteString("Available Skills:\n")
	for _, skill := range skills {
		fmt.Fprintf(&sb, "- [%s] %s → Read %s for full instructions\n", skill.Name, skill.Description, skill.Path)
	}
	return prependSystem(msgs, strings.TrimSuffix(sb.String(), "\n")), nil
}

func (h *SkillsHook) inScope(p string) bool {
	if len(h.prefixes) == 0 {
		return true
	}
	for _, prefix := range h.prefixes {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}
