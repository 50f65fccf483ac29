package dedupe

import (
	"testing"
	"time"

	"github.com/azure/last30days/internal/dates"
	"github.com/azure/last30days/internal/fixtures"
	"github.com/azure/last30days/internal/models"
	"github.com/azure/last30days/internal/normalize"
	"github.com/azure/last30days/internal/scoring"
	"github.com/azure/last30days/internal/sources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func redditIDs(items []models.RedditItem) []string {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	return ids
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name     string
		a        string
		b        string
		expected bool
	}{
		{name: "www vs old reddit", a: "https://www.reddit.com/r/go/comments/abc/x/", b: "https://old.reddit.com/r/go/comments/abc/x", expected: true},
		{name: "Mobile reddit", a: "https://m.reddit.com/r/go/comments/abc/x", b: "https://reddit.com/r/go/comments/abc/x/", expected: true},
		{name: "Twitter alias", a: "https://twitter.com/user/status/42", b: "https://x.com/user/status/42", expected: true},
		{name: "Tracking params", a: "https://x.com/user/status/42?s=20&t=abc", b: "https://x.com/user/status/42", expected: true},
		{name: "UTM params", a: "https://reddit.com/r/go/comments/abc/x/?utm_source=share&utm_medium=web", b: "https://reddit.com/r/go/comments/abc/x", expected: true},
		{name: "Fragment", a: "https://x.com/user/status/42#reply", b: "http://X.com/user/status/42", expected: true},
		{name: "Meaningful query kept", a: "https://example.com/post?id=1", b: "https://example.com/post?id=2", expected: false},
		{name: "Different threads", a: "https://reddit.com/r/go/comments/abc/x", b: "https://reddit.com/r/go/comments/abd/x", expected: false},
		{name: "Schemeless www reddit", a: "www.reddit.com/r/x/comments/a", b: "https://reddit.com/r/x/comments/a", expected: true},
		{name: "Schemeless twitter", a: "twitter.com/user/status/42?s=20", b: "https://x.com/user/status/42", expected: true},
		{name: "Schemeless different hosts", a: "www.reddit.com/r/x/comments/a", b: "https://example.com/r/x/comments/a", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeURL(tt.a) == NormalizeURL(tt.b))
		})
	}

	assert.Equal(t, "", NormalizeURL("  "))
	assert.Equal(t, "reddit.com/r/x/comments/a", NormalizeURL("WWW.Reddit.com/r/x/comments/a/"))
	assert.Equal(t, "/r/x/comments/a", NormalizeURL("/r/x/comments/a/"), "relative paths have no host to fold")
}

func TestJaccard(t *testing.T) {
	assert.Equal(t, 1.0, Jaccard(Tokens("Skills vs MCP servers - when to use which"), Tokens("skills vs. MCP servers: when to use which?")))
	assert.InDelta(t, 0.5, Jaccard(Tokens("a b c"), Tokens("b c d")), 1e-9)
	assert.Equal(t, 0.0, Jaccard(Tokens(""), Tokens("")))
}

func TestDedupe_URLDuplicateKeepsHigherScore(t *testing.T) {
	items := []models.RedditItem{
		{ID: "low", URL: "https://www.reddit.com/r/go/comments/abc/thread/", Title: "First title", Score: 60},
		{ID: "high", URL: "https://www.reddit.com/r/go/comments/abc/thread/", Title: "Another title entirely", Score: 80},
	}
	scoring.SortReddit(items)

	out := Dedupe(items)
	require.Len(t, out, 1)
	assert.Equal(t, "high", out[0].ID)
	assert.Equal(t, 80, out[0].Score)
}

func TestDedupe_Rules(t *testing.T) {
	items := []models.XItem{
		{ID: "1", URL: "https://x.com/a/status/1", Text: "Release notes for tokio 2.0 are out today", Score: 90},
		{ID: "1", URL: "https://x.com/b/status/99", Text: "unrelated", Score: 85},
		{ID: "2", URL: "https://twitter.com/a/status/1?s=20", Text: "different words", Score: 80},
		{ID: "3", URL: "https://x.com/c/status/3", Text: "release notes for Tokio 2.0 are out today!", Score: 70},
		{ID: "4", URL: "https://x.com/d/status/4", Text: "Release notes for tokio 2.0 are finally out", Score: 60},
		{ID: "5", URL: "", Text: "", Score: 50},
		{ID: "6", URL: "", Text: "", Score: 40},
	}

	out := Dedupe(items)

	ids := make([]string, len(out))
	for i, item := range out {
		ids[i] = item.ID
	}
	assert.Equal(t, []string{"1", "4", "5", "6"}, ids)
}

func TestDedupe_Idempotent(t *testing.T) {
	items := []models.RedditItem{
		{ID: "a", URL: "https://reddit.com/r/x/comments/a/t", Title: "Kubernetes operators in production", Score: 90},
		{ID: "b", URL: "https://old.reddit.com/r/x/comments/a/t/", Title: "Something else", Score: 80},
		{ID: "c", URL: "https://reddit.com/r/x/comments/c/t", Title: "kubernetes operators in production", Score: 70},
		{ID: "d", URL: "https://reddit.com/r/x/comments/d/t", Title: "Writing an operator with kubebuilder", Score: 60},
	}

	once := Dedupe(items)
	twice := Dedupe(once)
	assert.Equal(t, once, twice)
	assert.Equal(t, []string{"a", "d"}, redditIDs(once))
}

func TestDedupe_KeepsBestOfEachCluster(t *testing.T) {
	raw, err := sources.ParseRedditRecords(fixtures.MustLoad(fixtures.OpenAISample))
	require.NoError(t, err)

	window, err := dates.NewWindow("2026-02-13", "2026-03-15")
	require.NoError(t, err)
	items := normalize.New(window, time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)).Reddit(raw)
	items = scoring.New(scoring.DefaultConfig(), window).ScoreReddit(items)
	scoring.SortReddit(items)

	best := map[string]int{}
	for _, item := range items {
		key := NormalizeURL(item.URL)
		if item.Score > best[key] {
			best[key] = item.Score
		}
	}

	out := Dedupe(items)
	require.Len(t, out, 3)
	for _, item := range out {
		assert.Equal(t, best[NormalizeURL(item.URL)], item.Score, item.ID)
	}
	for i := 1; i < len(out); i++ {
		assert.False(t, scoring.Less(out[i], out[i-1]), "order is preserved")
	}
}

func TestDedupe_Empty(t *testing.T) {
	assert.Empty(t, Dedupe([]models.XItem{}))
	assert.Empty(t, Dedupe[models.XItem](nil))
}
