package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoStructuredOutput is returned when the model answers without calling
// the schema tool and its text is not valid JSON either.
var ErrNoStructuredOutput = errors.New("model returned no structured output")

// CallStructured asks the model for output matching schema by forcing a call
// to a single tool whose parameters are that schema, then decodes the call
// arguments into out. Any tools already on req are replaced.
func CallStructured(ctx context.Context, client Client, req Request, schema ToolSchema, out any) error {
	req.Tools = []ToolSchema{schema}
	req.ToolChoice = schema.Name

	resp, err := client.Call(ctx, req)
	if err != nil {
		return err
	}

	for _, tc := range resp.ToolCalls {
		if tc.Name != schema.Name {
			continue
		}
		raw, err := json.Marshal(tc.Args)
		if err != nil {
			return fmt.Errorf("marshal %s arguments: %w", schema.Name, err)
		}
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode %s arguments: %w", schema.Name, err)
		}
		return nil
	}

	// Some OpenAI-compatible servers ignore tool_choice and answer in text.
	if text := stripCodeFence(resp.Content); text != "" {
		if err := json.Unmarshal([]byte(text), out); err == nil {
			return nil
		}
	}
	return ErrNoStructuredOutput
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
