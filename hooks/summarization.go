package hooks

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"wick_deep/agent"
	"wick_deep/llm"
)

const (
	defaultContextWindow = 128_000
	compactionRatio      = 0.85
)

// SummarizationHook compacts the outgoing conversation when it exceeds 85% of
// the model's context window: older messages are replaced by a model-written
// summary and the most recent tenth is kept verbatim. Stored state is not
// touched; only the request is compacted.
type SummarizationHook struct {
	agent.BaseHook
	llmClient     llm.Client
	contextWindow int
	counter       *TokenCounter
	logger        *zap.Logger
}

// NewSummarizationHook creates a summarization hook. contextWindow <= 0
// selects 128k tokens.
func NewSummarizationHook(client llm.Client, contextWindow int, logger *zap.Logger) *SummarizationHook {
	if contextWindow <= 0 {
		contextWindow = defaultContextWindow
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SummarizationHook{
		llmClient:     client,
		contextWindow: contextWindow,
		counter:       DefaultTokenCounter(),
		logger:        logger,
	}
}

func (h *SummarizationHook) Name() string { return "summarization" }

// WrapModelCall checks token count and summarizes if needed.
func (h *SummarizationHook) WrapModelCall(ctx context.Context, msgs []agent.Message, next agent.ModelCallWrapFunc) (*llm.Response, error) {
	total := h.counter.CountMessages(msgs)
	threshold := int(float64(h.contextWindow) * compactionRatio)
	if total <= threshold {
		return next(ctx, msgs)
	}

	cut := splitPoint(msgs)
	if cut <= 0 {
		return next(ctx, msgs)
	}
	oldMsgs, recentMsgs := msgs[:cut], msgs[cut:]

	var sb strings.Builder
	sb.WriteString("Summarize the following conversation context concisely. ")
	sb.WriteString("Preserve key decisions, file paths in the virtual file system, and important findings. ")
	sb.WriteString("Keep the summary under 2000 words.\n\n")
	for _, m := range oldMsgs {
		content := m.Content
		if len(content) > 2000 && m.Name == "write_file" {
			content = content[:2000] + "... [truncated]"
		}
		fmt.Fprintf(&sb, "[%s] %s\n\n", m.Role, content)
	}

	resp, err := h.llmClient.Call(ctx, llm.Request{
		Messages:  []llm.Message{{Role: "user", Content: sb.String()}},
		MaxTokens: 2000,
	})
	if err != nil {
		// degraded but functional
		h.logger.Warn("conversation compaction failed", zap.Error(err))
		return next(ctx, msgs)
	}

	h.logger.Debug("compacted conversation",
		zap.Int("tokens", total),
		zap.Int("summarized_messages", len(oldMsgs)),
		zap.Int("kept_messages", len(recentMsgs)),
	)
	if tr := agent.TraceFromContext(ctx); tr != nil {
		tr.RecordEvent("summarization.compacted", map[string]any{
			"tokens":              total,
			"summarized_messages": len(oldMsgs),
		})
	}

	compressed := make([]agent.Message, 0, len(recentMsgs)+1)
	compressed = append(compressed, agent.System("[Conversation Summary]\n"+resp.Content))
	compressed = append(compressed, recentMsgs...)
	return next(ctx, compressed)
}

// splitPoint returns the index where the kept tail starts: the last tenth of
// the messages (at least two), moved back so the tail never opens with a tool
// result separated from the assistant turn that requested it.
func splitPoint(msgs []agent.Message) int {
	keep := max(len(msgs)/10, 2)
	cut := len(msgs) - keep
	for cut > 0 && msgs[cut].Role == agent.RoleTool {
		cut--
	}
	return cut
}
