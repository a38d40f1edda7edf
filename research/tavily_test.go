package research

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTavilyClient_Search(t *testing.T) {
	t.Run("sends query and decodes results", func(t *testing.T) {
		var got tavilyRequest
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/search", r.URL.Path)
			assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"query":"go","results":[{"url":"https://go.dev","title":"Go","content":"snippet","raw_content":"full"},{"url":"u2","title":"t2","content":"c2","raw_content":null}]}`))
		}))
		defer srv.Close()

		c := NewTavilyClient("key", srv.URL)
		resp, err := c.Search(context.Background(), Query{Text: "go", MaxResults: 2, Topic: TopicNews, IncludeRawContent: true})
		require.NoError(t, err)

		assert.Equal(t, "key", got.APIKey)
		assert.Equal(t, 2, got.MaxResults)
		assert.Equal(t, "news", got.Topic)
		assert.True(t, got.IncludeRawContent)

		require.Len(t, resp.Results, 2)
		assert.Equal(t, SearchResult{URL: "https://go.dev", Title: "Go", Content: "snippet", RawContent: "full"}, resp.Results[0])
		assert.Empty(t, resp.Results[1].RawContent)
	})

	t.Run("non-200 is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "bad key", http.StatusUnauthorized)
		}))
		defer srv.Close()

		_, err := NewTavilyClient("key", srv.URL).Search(context.Background(), Query{Text: "go"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "401")
		assert.Contains(t, err.Error(), "bad key")
	})
}
