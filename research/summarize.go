package research

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"wick_deep/llm"
	"wick_deep/metrics"
)

const (
	fallbackSummaryLen = 1000
	defaultConcurrency = 8
	summaryMaxTokens   = 1024
)

const summarizePrompt = `You are summarizing the raw content of a web page that was retrieved during research. Today's date is %s.

Produce two things:
1. filename: a short, descriptive, lowercase file name for storing this page, using underscores instead of spaces and ending in .md (for example "rust_async_runtime_comparison.md").
2. summary: the key learnings from the page in a few concise paragraphs. Keep concrete facts, figures, names and dates. Leave out navigation, ads and boilerplate.

Web page content:
<webpage_content>
%s
</webpage_content>`

var summarySchema = llm.ToolSchema{
	Name:        "record_summary",
	Description: "Record the file name and summary for a web page.",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"filename": map[string]any{"type": "string", "description": "Name of the file to store."},
			"summary":  map[string]any{"type": "string", "description": "Key learnings from the webpage."},
		},
		"required": []string{"filename", "summary"},
	},
}

// Summarizer turns documents into structured summaries with one model call
// per document, all issued as a single concurrent batch. If any call fails
// the whole batch is replaced by local truncation summaries.
type Summarizer struct {
	client      llm.Client
	model       string
	concurrency int
	logger      *zap.Logger
	metrics     *metrics.Recorder
	now         func() time.Time
}

// NewSummarizer creates a summarizer. concurrency <= 0 selects 8 calls in
// flight. logger and m may be nil.
func NewSummarizer(client llm.Client, model string, concurrency int, logger *zap.Logger, m *metrics.Recorder) *Summarizer {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Summarizer{
		client:      client,
		model:       model,
		concurrency: concurrency,
		logger:      logger,
		metrics:     m,
		now:         time.Now,
	}
}

// Summarize returns one summary per document, in input order. It never
// fails: batch errors fall back to FallbackSummaries.
func (s *Summarizer) Summarize(ctx context.Context, docs []string) []Summary {
	if len(docs) == 0 {
		return []Summary{}
	}

	date := Timestamp(s.now())
	summaries, err := llm.Batch(ctx, s.concurrency, len(docs), func(ctx context.Context, i int) (Summary, error) {
		var out Summary
		err := llm.CallStructured(ctx, s.client, llm.Request{
			Model:       s.model,
			Messages:    []llm.Message{{Role: "user", Content: fmt.Sprintf(summarizePrompt, date, docs[i])}},
			MaxTokens:   summaryMaxTokens,
			Temperature: llm.Float(0),
		}, summarySchema, &out)
		if err != nil {
			return Summary{}, fmt.Errorf("summarize document %d: %w", i, err)
		}
		return out, nil
	})
	if err != nil {
		s.logger.Warn("summary batch failed, using truncation fallback",
			zap.Int("documents", len(docs)),
			zap.Error(err),
		)
		s.metrics.SummaryBatch("fallback")
		return FallbackSummaries(docs)
	}

	s.metrics.SummaryBatch("model")
	return dedupeFilenames(summaries)
}

// FallbackSummaries summarizes by truncation: the first 1000 characters plus
// "..." when longer, stored as search_result_<index>.md.
func FallbackSummaries(docs []string) []Summary {
	out := make([]Summary, len(docs))
	for i, doc := range docs {
		summary := doc
		if r := []rune(doc); len(r) > fallbackSummaryLen {
			summary = string(r[:fallbackSummaryLen]) + "..."
		}
		out[i] = Summary{Filename: fallbackFilename(i), Summary: summary}
	}
	return out
}

func fallbackFilename(i int) string {
	return fmt.Sprintf("search_result_%d.md", i)
}

// dedupeFilenames replaces unusable model-chosen names with the fallback name
// for that index and suffixes repeats with _<index> (counting up past names
// already taken) so that no two results of one batch overwrite each other.
func dedupeFilenames(in []Summary) []Summary {
	seen := make(map[string]bool, len(in))
	out := make([]Summary, len(in))
	for i, s := range in {
		name := strings.TrimSpace(s.Filename)
		if !safeFilename(name) {
			name = fallbackFilename(i)
		}
		if seen[name] {
			ext := path.Ext(name)
			stem := strings.TrimSuffix(name, ext)
			for n := i; seen[name]; n++ {
				name = fmt.Sprintf("%s_%d%s", stem, n, ext)
			}
		}
		seen[name] = true
		out[i] = Summary{Filename: name, Summary: s.Summary}
	}
	return out
}

func safeFilename(name string) bool {
	if name == "" || strings.HasPrefix(name, "/") || strings.Contains(name, "..") {
		return false
	}
	return !strings.ContainsAny(name, "\x00\r\n\\")
}
