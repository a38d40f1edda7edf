package research

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"wick_deep/agent"
	"wick_deep/metrics"
)

const (
	defaultMaxResults      = 1
	defaultMaxResultsLimit = 5
)

const searchDescription = `Search the web and save the full results to files.

Each result is summarized and stored in the virtual file system together with its raw
page content. Only the file names and short summaries are returned here; use read_file
to look at the details of a result when you need them.`

// Pipeline runs search → summarize → offload → compact index.
type Pipeline struct {
	searcher   Searcher
	summarizer *Summarizer
	maxResults int
	limit      int
	topic      Topic
	logger     *zap.Logger
	metrics    *metrics.Recorder
	now        func() time.Time
}

// NewPipeline wires a search pipeline. cfg may be nil for defaults: one
// result per query, at most five, general topic.
func NewPipeline(searcher Searcher, summarizer *Summarizer, cfg *agent.ResearchCfg, logger *zap.Logger, m *metrics.Recorder) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Pipeline{
		searcher:   searcher,
		summarizer: summarizer,
		maxResults: defaultMaxResults,
		limit:      defaultMaxResultsLimit,
		topic:      TopicGeneral,
		logger:     logger,
		metrics:    m,
		now:        time.Now,
	}
	if cfg != nil {
		if cfg.MaxResultsLimit > 0 {
			p.limit = cfg.MaxResultsLimit
		}
		if cfg.MaxResults > 0 {
			p.maxResults = min(cfg.MaxResults, p.limit)
		}
		if t := Topic(cfg.Topic); t.Valid() {
			p.topic = t
		}
	}
	return p
}

// Run executes one search. maxResults <= 0 and an empty topic select the
// configured defaults. Failures are reported in the returned text.
func (p *Pipeline) Run(ctx context.Context, query string, maxResults int, topic Topic) (agent.Update, string) {
	if strings.TrimSpace(query) == "" {
		return agent.Update{}, "Error: query is required"
	}
	if topic == "" {
		topic = p.topic
	}
	if !topic.Valid() {
		return agent.Update{}, fmt.Sprintf("Error: invalid topic %q, must be one of general, news, finance", topic)
	}
	if maxResults <= 0 {
		maxResults = p.maxResults
	}
	maxResults = min(maxResults, p.limit)

	span := agent.StartSpan(ctx, "research.search").Set("query", query).Set("max_results", maxResults)
	defer span.End()

	resp, err := p.searcher.Search(ctx, Query{
		Text:              query,
		MaxResults:        maxResults,
		Topic:             topic,
		IncludeRawContent: true,
	})
	if err != nil {
		p.logger.Warn("search failed", zap.String("query", query), zap.Error(err))
		span.Set("error", err.Error())
		return agent.Update{}, "Error: search failed: " + err.Error()
	}
	var results []SearchResult
	if resp != nil {
		results = resp.Results
	}
	span.Set("results", len(results))

	docs := make([]string, len(results))
	for i, r := range results {
		docs[i] = NormalizeContent(r.RawContent)
	}
	summaries := p.summarizer.Summarize(ctx, docs)

	date := Timestamp(p.now())
	files := make(map[string]string, len(results))
	saved := make([]string, 0, len(results))
	lines := make([]string, 0, len(results))
	for i, r := range results {
		s := summaries[i]
		files[s.Filename] = renderDocument(r, s, query, date)
		saved = append(saved, s.Filename)
		lines = append(lines, fmt.Sprintf("- %s: %s...", s.Filename, s.Summary))
	}

	p.metrics.FilesOffloaded("search", len(files))
	p.logger.Debug("search offloaded",
		zap.String("query", query),
		zap.Int("results", len(results)),
	)

	text := fmt.Sprintf("🔍 Found %d result(s) for '%s':\n\n%s\n\nFiles: %s\n💡 Use read_file() to access full details when needed.",
		len(results), query, strings.Join(lines, "\n"), strings.Join(saved, ", "))
	if len(files) == 0 {
		return agent.Update{}, text
	}
	return agent.Update{Files: files}, text
}

func renderDocument(r SearchResult, s Summary, query, date string) string {
	raw := r.RawContent
	if raw == "" {
		raw = "No raw content available"
	}
	return fmt.Sprintf("# Search Result: %s\n\n**URL:** %s\n**Query:** %s\n**Date:** %s\n\n## Summary\n%s\n\n## Raw Content\n%s\n",
		r.Title, r.URL, query, date, s.Summary, raw)
}

// Tool exposes the pipeline as the search tool.
func (p *Pipeline) Tool() agent.Tool {
	return &agent.FuncTool{
		ToolName: "search",
		ToolDesc: searchDescription,
		ToolParams: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{"type": "string", "description": "Search query to execute"},
				"max_results": map[string]any{
					"type":        "integer",
					"description": fmt.Sprintf("Maximum number of results (default %d, at most %d)", p.maxResults, p.limit),
				},
				"topic": map[string]any{
					"type":        "string",
					"enum":        []string{string(TopicGeneral), string(TopicNews), string(TopicFinance)},
					"description": "Topic filter for the search",
				},
			},
			"required": []string{"query"},
		},
		Fn: func(ctx context.Context, state *agent.State, args map[string]any) (agent.Update, string, error) {
			u, text := p.Run(ctx, agent.StringArg(args, "query"), agent.IntArg(args, "max_results", 0), Topic(agent.StringArg(args, "topic")))
			return u, text, nil
		},
	}
}
