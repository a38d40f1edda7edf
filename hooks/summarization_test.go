package hooks

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wick_deep/agent"
	"wick_deep/llm"
	"wick_deep/llm/llmtest"
)

func TestSplitPoint(t *testing.T) {
	t.Run("keeps at least two", func(t *testing.T) {
		msgs := []agent.Message{agent.Human("a"), agent.AI("b"), agent.Human("c"), agent.AI("d")}
		assert.Equal(t, 2, splitPoint(msgs))
	})

	t.Run("does not open tail with tool result", func(t *testing.T) {
		msgs := []agent.Message{
			agent.Human("q"),
			agent.AI("", agent.ToolCall{ID: "1", Name: "ls"}),
			agent.ToolMsg("1", "ls", "[]"),
			agent.AI("answer"),
		}
		// keep = 2 -> cut at index 2 (tool) -> moved to 1
		assert.Equal(t, 1, splitPoint(msgs))
	})
}

func longConversation(n int) []agent.Message {
	msgs := make([]agent.Message, 0, n)
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			msgs = append(msgs, agent.Human(strings.Repeat("word ", 50)))
		} else {
			msgs = append(msgs, agent.AI(strings.Repeat("reply ", 50)))
		}
	}
	return msgs
}

func TestSummarizationHook_WrapModelCall(t *testing.T) {
	var forwarded []agent.Message
	next := func(ctx context.Context, msgs []agent.Message) (*llm.Response, error) {
		forwarded = msgs
		return &llm.Response{Content: "ok"}, nil
	}

	t.Run("below threshold passes through", func(t *testing.T) {
		client := llmtest.Script()
		h := NewSummarizationHook(client, 100_000, nil)
		msgs := longConversation(4)
		_, err := h.WrapModelCall(context.Background(), msgs, next)
		require.NoError(t, err)
		assert.Equal(t, msgs, forwarded)
		assert.Empty(t, client.Requests())
	})

	t.Run("above threshold compacts", func(t *testing.T) {
		client := llmtest.Script(llmtest.Text("short summary"))
		h := NewSummarizationHook(client, 200, nil)
		msgs := longConversation(20)
		_, err := h.WrapModelCall(context.Background(), msgs, next)
		require.NoError(t, err)

		require.Len(t, forwarded, 3)
		assert.Equal(t, agent.RoleSystem, forwarded[0].Role)
		assert.Equal(t, "[Conversation Summary]\nshort summary", forwarded[0].Content)
		assert.Equal(t, msgs[18:], forwarded[1:])
		require.Len(t, client.Requests(), 1)
	})

	t.Run("summary failure forwards original", func(t *testing.T) {
		client := &llmtest.Client{Handler: func(ctx context.Context, req llm.Request) (*llm.Response, error) {
			return nil, errors.New("boom")
		}}
		h := NewSummarizationHook(client, 200, nil)
		msgs := longConversation(20)
		_, err := h.WrapModelCall(context.Background(), msgs, next)
		require.NoError(t, err)
		assert.Equal(t, msgs, forwarded)
	})
}
