package hooks

import (
	"sync"

	"github.com/tiktoken-go/tokenizer"

	"wick_deep/agent"
)

// TokenCounter counts tokens with the GPT-4 BPE encoding. Other model
// families are approximated with the same encoding.
type TokenCounter struct {
	codec tokenizer.Codec
}

var (
	defaultCounter     *TokenCounter
	defaultCounterOnce sync.Once
)

// DefaultTokenCounter returns a shared counter. If the encoding cannot be
// loaded the counter falls back to a 4-chars-per-token estimate.
func DefaultTokenCounter() *TokenCounter {
	defaultCounterOnce.Do(func() {
		codec, err := tokenizer.ForModel(tokenizer.GPT4)
		if err != nil {
			defaultCounter = &TokenCounter{}
			return
		}
		defaultCounter = &TokenCounter{codec: codec}
	})
	return defaultCounter
}

// Count returns the number of tokens in text.
func (tc *TokenCounter) Count(text string) int {
	if tc == nil || tc.codec == nil {
		return len(text) / 4
	}
	n, err := tc.codec.Count(text)
	if err != nil {
		return len(text) / 4
	}
	return n
}

// CountMessages sums content and tool-call names across msgs.
func (tc *TokenCounter) CountMessages(msgs []agent.Message) int {
	total := 0
	for _, m := range msgs {
		total += tc.Count(m.Content)
		for _, call := range m.ToolCalls {
			total += tc.Count(call.Name)
		}
	}
	return total
}
