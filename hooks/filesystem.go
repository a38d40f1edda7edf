package hooks

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"wick_deep/agent"
	"wick_deep/metrics"
)

const (
	// evictionThreshold is the result size (chars, ~20k tokens) above which
	// a tool result is moved into the file store.
	evictionThreshold = 80_000
	evictionPreview   = 2000
	evictionDir       = "tool_results/"
)

const lsDescription = `List all files in the virtual file system.

Files are saved by search results, sub-agents and earlier write_file calls. Use this
first to see what context has already been offloaded before reading anything.`

const readFileDescription = `Read a file from the virtual file system.

Returns lines prefixed with 1-based line numbers. By default up to 2000 lines are
returned from the start of the file; use offset and limit to page through long files.
Lines longer than 2000 characters are truncated.`

const writeFileDescription = `Write a file to the virtual file system.

Creates the file or fully replaces an existing one at the same path. Use it to save
plans, notes and intermediate results instead of keeping them in the conversation.`

// FilesystemHook provides the file store tools (ls, read_file, write_file)
// over State.Files and evicts oversized tool results into the same store.
type FilesystemHook struct {
	agent.BaseHook
	logger  *zap.Logger
	metrics *metrics.Recorder
}

// NewFilesystemHook creates the hook. logger and m may be nil.
func NewFilesystemHook(logger *zap.Logger, m *metrics.Recorder) *FilesystemHook {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FilesystemHook{logger: logger, metrics: m}
}

func (h *FilesystemHook) Name() string { return "filesystem" }

// Tools returns the file store tools.
func (h *FilesystemHook) Tools() []agent.Tool {
	return []agent.Tool{
		&agent.FuncTool{
			ToolName:   "ls",
			ToolDesc:   lsDescription,
			ToolParams: map[string]any{"type": "object", "properties": map[string]any{}},
			Fn: func(ctx context.Context, state *agent.State, args map[string]any) (agent.Update, string, error) {
				data, err := json.Marshal(agent.ListFiles(state))
				if err != nil {
					return agent.Update{}, "", err
				}
				return agent.Update{}, string(data), nil
			},
		},
		&agent.FuncTool{
			ToolName: "read_file",
			ToolDesc: readFileDescription,
			ToolParams: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"file_path": map[string]any{"type": "string", "description": "Path of the file to read"},
					"offset":    map[string]any{"type": "integer", "description": "Line number to start reading from (0-based, default 0)"},
					"limit":     map[string]any{"type": "integer", "description": "Maximum number of lines to read (default 2000)"},
				},
				"required": []string{"file_path"},
			},
			Fn: func(ctx context.Context, state *agent.State, args map[string]any) (agent.Update, string, error) {
				path := agent.StringArg(args, "file_path")
				if path == "" {
					return agent.Update{}, "Error: file_path is required", nil
				}
				offset := agent.IntArg(args, "offset", 0)
				limit := agent.IntArg(args, "limit", agent.DefaultReadLimit)
				return agent.Update{}, agent.ReadFile(state, path, offset, limit), nil
			},
		},
		&agent.FuncTool{
			ToolName: "write_file",
			ToolDesc: writeFileDescription,
			ToolParams: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"file_path": map[string]any{"type": "string", "description": "Path where the file should be created or replaced"},
					"content":   map[string]any{"type": "string", "description": "Content to write"},
				},
				"required": []string{"file_path", "content"},
			},
			Fn: func(ctx context.Context, state *agent.State, args map[string]any) (agent.Update, string, error) {
				path := agent.StringArg(args, "file_path")
				if path == "" {
					return agent.Update{}, "Error: file_path is required", nil
				}
				u, msg := agent.WriteFile(path, agent.StringArg(args, "content"))
				return u, msg, nil
			},
		},
	}
}

// WrapToolCall moves oversized results into the file store under
// tool_results/<call id>.md and leaves a head/tail preview in their place.
func (h *FilesystemHook) WrapToolCall(ctx context.Context, call agent.ToolCall, next agent.ToolCallFunc) (*agent.ToolResult, error) {
	result, err := next(ctx, call)
	if err != nil || result == nil {
		return result, err
	}

	// File tools return content the model asked for explicitly.
	switch call.Name {
	case "ls", "read_file", "write_file":
		return result, nil
	}
	if len(result.Output) <= evictionThreshold {
		return result, nil
	}

	path := evictionDir + sanitizeCallID(call.ID) + ".md"
	full := result.Output
	result.Update.Files = agent.MergeFiles(result.Update.Files, map[string]string{path: full})
	result.Output = fmt.Sprintf(
		"%s\n\n... [Output truncated: %d chars total. Showing first and last %d chars. Full result saved to %s; use read_file to page through it] ...\n\n%s",
		head(full, evictionPreview), len(full), evictionPreview, path, tail(full, evictionPreview),
	)

	h.logger.Debug("evicted large tool result",
		zap.String("tool", call.Name),
		zap.String("path", path),
		zap.Int("chars", len(full)),
	)
	h.metrics.FilesOffloaded("eviction", 1)
	return result, nil
}

// head returns at most n bytes from the start of s, cut on a rune boundary.
func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// tail returns at most n bytes from the end of s, cut on a rune boundary.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	start := len(s) - n
	for start < len(s) && !utf8.RuneStart(s[start]) {
		start++
	}
	return s[start:]
}

func sanitizeCallID(id string) string {
	id = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, id)
	if id == "" {
		return "result"
	}
	return id
}
