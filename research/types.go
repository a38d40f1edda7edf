// Package research implements the search tool: a web search whose full
// results are summarized in parallel and offloaded into the virtual file
// store, so only a compact index reaches the conversation.
package research

import (
	"context"
	"time"
)

// Topic filters search results.
type Topic string

const (
	TopicGeneral Topic = "general"
	TopicNews    Topic = "news"
	TopicFinance Topic = "finance"
)

// Valid reports whether t is a supported topic.
func (t Topic) Valid() bool {
	switch t {
	case TopicGeneral, TopicNews, TopicFinance:
		return true
	}
	return false
}

// Query is one search request.
type Query struct {
	Text              string
	MaxResults        int
	Topic             Topic
	IncludeRawContent bool
}

// SearchResult is one hit. RawContent is empty when the provider returned none.
type SearchResult struct {
	URL        string `json:"url"`
	Title      string `json:"title"`
	Content    string `json:"content"`
	RawContent string `json:"raw_content"`
}

// SearchResponse is the ordered result list for a query.
type SearchResponse struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
}

// Searcher is a web search provider.
type Searcher interface {
	Search(ctx context.Context, q Query) (*SearchResponse, error)
}

// SearcherFunc adapts a function to Searcher.
type SearcherFunc func(ctx context.Context, q Query) (*SearchResponse, error)

func (f SearcherFunc) Search(ctx context.Context, q Query) (*SearchResponse, error) {
	return f(ctx, q)
}

// Summary is the structured summary of one document.
type Summary struct {
	Filename string `json:"filename"`
	Summary  string `json:"summary"`
}

const timestampLayout = "Jan 2, 2006 15:04:05 (Monday)"

// Timestamp renders t the way generated documents and prompts show it.
func Timestamp(t time.Time) string {
	return t.Format(timestampLayout)
}
