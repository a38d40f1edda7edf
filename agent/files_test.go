package agent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestListFiles(t *testing.T) {
	assert.Empty(t, ListFiles(&State{}))
	s := &State{Files: map[string]string{"b.md": "", "a.md": "x"}}
	assert.Equal(t, []string{"a.md", "b.md"}, ListFiles(s))
}

func TestReadFile(t *testing.T) {
	s := &State{Files: map[string]string{
		"notes.md": "line1\nline2\nline3",
		"empty.md": "",
		"blank.md": "  \n ",
		"crlf.md":  "a\r\nb\rc\n",
		"long.md":  strings.Repeat("é", 2500),
	}}

	t.Run("window with line numbers", func(t *testing.T) {
		assert.Equal(t, "     2\tline2", ReadFile(s, "notes.md", 1, 1))
	})

	t.Run("defaults read everything", func(t *testing.T) {
		assert.Equal(t, "     1\tline1\n     2\tline2\n     3\tline3", ReadFile(s, "notes.md", 0, 0))
	})

	t.Run("limit past end returns remaining lines", func(t *testing.T) {
		got := ReadFile(s, "notes.md", 2, 50)
		assert.Equal(t, "     3\tline3", got)
	})

	t.Run("missing file", func(t *testing.T) {
		assert.Equal(t, "Error: File 'nope.md' not found", ReadFile(s, "nope.md", 0, 0))
	})

	t.Run("empty file", func(t *testing.T) {
		assert.Equal(t, "System reminder: File exists but has empty contents", ReadFile(s, "empty.md", 0, 0))
		// whitespace is content
		assert.Equal(t, "     1\t  \n     2\t ", ReadFile(s, "blank.md", 0, 0))
	})

	t.Run("offset out of range", func(t *testing.T) {
		assert.Equal(t, "Error: Line offset 3 exceeds file length (3 lines)", ReadFile(s, "notes.md", 3, 10))
	})

	t.Run("negative offset reads from start", func(t *testing.T) {
		assert.True(t, strings.HasPrefix(ReadFile(s, "notes.md", -5, 1), "     1\tline1"))
	})

	t.Run("universal newlines", func(t *testing.T) {
		assert.Equal(t, "     1\ta\n     2\tb\n     3\tc", ReadFile(s, "crlf.md", 0, 0))
	})

	t.Run("long lines truncated by characters", func(t *testing.T) {
		got := ReadFile(s, "long.md", 0, 0)
		line := strings.TrimPrefix(got, "     1\t")
		assert.Equal(t, 2000, len([]rune(line)))
	})
}

func TestReadFile_LineCount(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 2500; i++ {
		sb.WriteString("x\n")
	}
	s := &State{Files: map[string]string{"big.md": sb.String()}}

	assert.Len(t, strings.Split(ReadFile(s, "big.md", 0, 0), "\n"), DefaultReadLimit)
	assert.Len(t, strings.Split(ReadFile(s, "big.md", 2400, 500), "\n"), 100)
}

func TestWriteFile(t *testing.T) {
	u, msg := WriteFile("report.md", "# Title")
	assert.Equal(t, "Updated file report.md", msg)
	assert.Equal(t, map[string]string{"report.md": "# Title"}, u.Files)

	s := &State{Files: map[string]string{"report.md": "old", "keep.md": "k"}}
	s.Apply(u)
	assert.Equal(t, "# Title", s.Files["report.md"])
	assert.Equal(t, "k", s.Files["keep.md"])
}

func TestSplitLines(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"a\nb\n", []string{"a", "b"}},
		{"a\r\nb\rc", []string{"a", "b", "c"}},
		{"a\r\r\nb", []string{"a", "", "b"}},
		{"a\vb\fc\x1cd\x1de\x1ef", []string{"a", "b", "c", "d", "e", "f"}},
		{"é\u0085ü\u2028x\u2029", []string{"é", "ü", "x"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, splitLines(tt.in), "%q", tt.in)
	}

	s := &State{Files: map[string]string{"f.md": "one\ntwo\fthree"}}
	assert.Equal(t, "     3\tthree", ReadFile(s, "f.md", 2, 1))
}
