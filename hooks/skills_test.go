package hooks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wick_deep/agent"
)

func TestSkillsHook(t *testing.T) {
	state := &agent.State{Files: map[string]string{
		"skills/report/SKILL.md":  "---\nname: report-writer\ndescription: Write a final report\n---\nSteps...",
		"skills/cite/SKILL.md":    "no frontmatter here",
		"notes/other/SKILL.md":    "---\nname: hidden\n---\n",
		"skills/report/README.md": "not a skill",
	}}
	h := NewSkillsHook([]string{"skills/"})

	t.Run("discovers skills under prefixes", func(t *testing.T) {
		skills := h.Discover(state)
		require.Len(t, skills, 2)
		assert.Equal(t, SkillEntry{Name: "cite", Path: "skills/cite/SKILL.md"}, skills[0])
		assert.Equal(t, SkillEntry{Name: "report-writer", Description: "Write a final report", Path: "skills/report/SKILL.md"}, skills[1])
	})

	t.Run("injects catalog", func(t *testing.T) {
		out, err := h.ModifyRequest(context.Background(), state, []agent.Message{agent.Human("hi")})
		require.NoError(t, err)
		require.Len(t, out, 2)
		assert.Contains(t, out[0].Content, "- [report-writer] Write a final report → Read skills/report/SKILL.md for full instructions")
	})

	t.Run("no prefixes scans everything", func(t *testing.T) {
		assert.Len(t, NewSkillsHook(nil).Discover(state), 3)
	})
}
