package agent

import (
	"fmt"
	"strings"
)

// Message is one entry of a conversation.
type Message struct {
	Role       string     `json:"role"` // "system", "user", "assistant", "tool"
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"` // set when Role == "tool"
	Name       string     `json:"name,omitempty"`         // tool name when Role == "tool"
}

// ToolCall is a model's request to invoke a tool.
type ToolCall struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// ToolResult is the outcome of one tool call as seen by the loop and hooks.
// Output goes back to the model; Update is applied to State after the turn.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Name       string `json:"name"`
	Output     string `json:"output"`
	Error      string `json:"error,omitempty"`
	Update     Update `json:"-"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ValidRole returns true if r is a known message role.
func ValidRole(r string) bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool:
		return true
	}
	return false
}

// Human creates a user message.
func Human(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// System creates a system message.
func System(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// AI creates an assistant message with optional tool calls.
//
//	AI("Sure, I can help.")  → plain response
//	AI("", tc1, tc2)         → tool-calling response
func AI(content string, toolCalls ...ToolCall) Message {
	return Message{Role: RoleAssistant, Content: content, ToolCalls: toolCalls}
}

// ToolMsg creates a tool result message.
func ToolMsg(toolCallID, name, output string) Message {
	return Message{Role: RoleTool, Content: output, ToolCallID: toolCallID, Name: name}
}

// Messages is an ordered conversation.
type Messages []Message

// Last returns the last message, or a zero Message if empty.
func (m Messages) Last() Message {
	if len(m) == 0 {
		return Message{}
	}
	return m[len(m)-1]
}

// LastContent returns the content of the last message.
func (m Messages) LastContent() string {
	return m.Last().Content
}

// ByRole returns messages with the given role.
func (m Messages) ByRole(role string) Messages {
	var out Messages
	for _, msg := range m {
		if msg.Role == role {
			out = append(out, msg)
		}
	}
	return out
}

// Validate checks that the conversation is well-formed:
// known roles, tool messages linked to a call, and no empty user turns.
func (m Messages) Validate() error {
	for i, msg := range m {
		if !ValidRole(msg.Role) {
			return fmt.Errorf("message[%d]: unknown role %q", i, msg.Role)
		}
		switch msg.Role {
		case RoleTool:
			if msg.ToolCallID == "" {
				return fmt.Errorf("message[%d]: tool message missing tool_call_id", i)
			}
			if msg.Name == "" {
				return fmt.Errorf("message[%d]: tool message missing name", i)
			}
		case RoleAssistant:
			for j, tc := range msg.ToolCalls {
				if tc.ID == "" || tc.Name == "" {
					return fmt.Errorf("message[%d].tool_calls[%d]: missing id or name", i, j)
				}
			}
		case RoleUser, RoleSystem:
			if msg.Content == "" {
				return fmt.Errorf("message[%d]: %s message has empty content", i, msg.Role)
			}
		}
	}
	return nil
}

// ValidateUserInput checks messages submitted from outside the loop
// (only user and system roles allowed).
func (m Messages) ValidateUserInput() error {
	if len(m) == 0 {
		return fmt.Errorf("messages must not be empty")
	}
	for i, msg := range m {
		if msg.Role != RoleUser && msg.Role != RoleSystem {
			return fmt.Errorf("message[%d]: role %q not allowed (must be \"user\" or \"system\")", i, msg.Role)
		}
		if msg.Content == "" {
			return fmt.Errorf("message[%d]: content must not be empty", i)
		}
	}
	return nil
}

// String renders the conversation for logs and the CLI.
func (m Messages) String() string {
	var sb strings.Builder
	for _, msg := range m {
		if msg.Role == RoleTool {
			fmt.Fprintf(&sb, "[%s: %s (call_id=%s)]\n", roleLabel(msg.Role), msg.Name, msg.ToolCallID)
		} else {
			fmt.Fprintf(&sb, "[%s]\n", roleLabel(msg.Role))
		}
		if msg.Content != "" {
			sb.WriteString(msg.Content)
			sb.WriteString("\n")
		}
		for _, tc := range msg.ToolCalls {
			fmt.Fprintf(&sb, "  → tool_call: %s(id=%s, args=%v)\n", tc.Name, tc.ID, tc.Args)
		}
	}
	return sb.String()
}

func roleLabel(role string) string {
	switch role {
	case RoleSystem:
		return "System"
	case RoleUser:
		return "Human"
	case RoleAssistant:
		return "AI"
	case RoleTool:
		return "Tool"
	default:
		return role
	}
}
