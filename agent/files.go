package agent

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultReadLimit is the number of lines ReadFile returns when no limit is given.
	DefaultReadLimit = 2000
	// MaxLineLength is the number of characters kept from each line by ReadFile.
	MaxLineLength = 2000
)

// ListFiles returns every path in the store, sorted.
func ListFiles(s *State) []string {
	paths := make([]string, 0, len(s.Files))
	for p := range s.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// ReadFile renders a window of a stored file with 1-based line numbers.
// Missing files, empty files and out-of-range offsets produce descriptive
// text rather than an error.
func ReadFile(s *State, path string, offset, limit int) string {
	content, ok := s.Files[path]
	if !ok {
		return fmt.Sprintf("Error: File '%s' not found", path)
	}
	if content == "" {
		return "System reminder: File exists but has empty contents"
	}
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = DefaultReadLimit
	}

	lines := splitLines(content)
	if offset >= len(lines) {
		return fmt.Sprintf("Error: Line offset %d exceeds file length (%d lines)", offset, len(lines))
	}
	end := min(offset+limit, len(lines))

	out := make([]string, 0, end-offset)
	for i := offset; i < end; i++ {
		out = append(out, fmt.Sprintf("%6d\t%s", i+1, truncateRunes(lines[i], MaxLineLength)))
	}
	return strings.Join(out, "\n")
}

// WriteFile stores content at path, replacing anything already there.
func WriteFile(path, content string) (Update, string) {
	return Update{Files: map[string]string{path: content}}, fmt.Sprintf("Updated file %s", path)
}

// splitLines breaks s on universal line boundaries: \n, \r\n, \r, \v, \f,
// \x1c-\x1e, U+0085, U+2028 and U+2029. A trailing terminator does not
// produce an empty final line.
func splitLines(s string) []string {
	var lines []string
	start := 0
	for i, r := range s {
		if i < start {
			continue // second byte of \r\n
		}
		switch r {
		case '\n', '\v', '\f', '\x1c', '\x1d', '\x1e', '\u0085', '\u2028', '\u2029':
			lines = append(lines, s[start:i])
			start = i + utf8.RuneLen(r)
		case '\r':
			lines = append(lines, s[start:i])
			start = i + 1
			if start < len(s) && s[start] == '\n' {
				start++
			}
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
