package normalize

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/azure/last30days/internal/dates"
	"github.com/azure/last30days/internal/enrich"
	"github.com/azure/last30days/internal/fixtures"
	"github.com/azure/last30days/internal/models"
	"github.com/azure/last30days/internal/sources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 15, 18, 30, 0, 0, time.UTC)

func testNormalizer(t *testing.T) *Normalizer {
	t.Helper()
	window, err := dates.NewWindow("2026-02-13", "2026-03-15")
	require.NoError(t, err)
	return New(window, testNow)
}

func flexFloat(v float64) *sources.FlexFloat {
	f := sources.FlexFloat(v)
	return &f
}

func TestResolveDate(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		date       string
		confidence models.DateConfidence
	}{
		{name: "ISO day", raw: "2026-03-01", date: "2026-03-01", confidence: models.ConfidenceHigh},
		{name: "RFC3339", raw: "2026-03-01T23:10:00Z", date: "2026-03-01", confidence: models.ConfidenceHigh},
		{name: "Epoch seconds", raw: "1772323200", date: "2026-03-01", confidence: models.ConfidenceHigh},
		{name: "Month name with year", raw: "May 8, 2025", date: "2025-05-08", confidence: models.ConfidenceHigh},
		{name: "Days ago", raw: "3 days ago", date: "2026-03-12", confidence: models.ConfidenceMedium},
		{name: "Hours ago", raw: "2 hours ago", date: "2026-03-15", confidence: models.ConfidenceMedium},
		{name: "A month ago", raw: "a month ago", date: "2026-02-13", confidence: models.ConfidenceMedium},
		{name: "Yesterday", raw: "Yesterday", date: "2026-03-14", confidence: models.ConfidenceMedium},
		{name: "Last week", raw: "last week", date: "2026-03-08", confidence: models.ConfidenceMedium},
		{name: "Month and day", raw: "Jan 5", date: "2026-01-05", confidence: models.ConfidenceMedium},
		{name: "Month and day in the future rolls back a year", raw: "Dec 24", date: "2025-12-24", confidence: models.ConfidenceMedium},
		{name: "Year and month", raw: "2026-02", date: "2026-02-01", confidence: models.ConfidenceMedium},
		{name: "Ambiguous month/day", raw: "03/04/2026", date: "2026-03-04", confidence: models.ConfidenceMedium},
		{name: "Empty", raw: "", confidence: models.ConfidenceLow},
		{name: "Null text", raw: "null", confidence: models.ConfidenceLow},
		{name: "Bare year", raw: "2026", confidence: models.ConfidenceLow},
		{name: "Garbage", raw: "recently-ish", confidence: models.ConfidenceLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			date, confidence := resolveDate(tt.raw, testNow)
			assert.Equal(t, tt.confidence, confidence)
			if tt.date == "" {
				assert.Nil(t, date)
				return
			}
			require.NotNil(t, date)
			assert.Equal(t, tt.date, *date)
		})
	}
}

func TestNormalizer_Reddit(t *testing.T) {
	n := testNormalizer(t)
	records := []sources.RedditRecord{
		{
			Title:       "  Generics   in practice ",
			URL:         "https://www.reddit.com/r/golang/comments/AbC123/generics_in_practice/",
			Subreddit:   "r/golang",
			Date:        "2026-03-10",
			WhyRelevant: "hands-on",
			Relevance:   flexFloat(1.7),
		},
		{Title: "no identity at all"},
		{ID: "given", Title: "negative relevance", URL: "https://example.com/x", Relevance: flexFloat(-0.2)},
		{Title: "positional", URL: "https://www.reddit.com/r/golang/"},
	}

	items := n.Reddit(records)
	require.Len(t, items, 3)

	first := items[0]
	assert.Equal(t, "abc123", first.ID)
	assert.Equal(t, "Generics in practice", first.Title)
	assert.Equal(t, "golang", first.Subreddit)
	assert.Equal(t, models.ConfidenceHigh, first.DateConfidence)
	assert.Equal(t, 1.0, first.Relevance)
	assert.Nil(t, first.Engagement, "no enrichment means no engagement")
	assert.NotNil(t, first.TopComments)
	assert.NotNil(t, first.CommentInsights)

	assert.Equal(t, "given", items[1].ID)
	assert.Equal(t, 0.0, items[1].Relevance)

	assert.Equal(t, "R4", items[2].ID)
	assert.Equal(t, 0.5, items[2].Relevance, "missing relevance defaults to 0.5")
	assert.Equal(t, models.ConfidenceLow, items[2].DateConfidence)
	assert.Nil(t, items[2].Date)
}

func TestNormalizer_RedditEnriched(t *testing.T) {
	thread, err := enrich.ParseThread(fixtures.MustLoad(fixtures.RedditThreadSample))
	require.NoError(t, err)

	records := []sources.RedditRecord{{
		Title:  "What are you actually using skills for?",
		URL:    "https://www.reddit.com/r/ClaudeAI/comments/1q2w3e4/what/",
		Date:   "2 days ago",
		Thread: thread,
	}}

	items := testNormalizer(t).Reddit(records)
	require.Len(t, items, 1)

	item := items[0]
	assert.Equal(t, models.ConfidenceHigh, item.DateConfidence, "enrichment timestamp wins over relative text")
	require.NotNil(t, item.Date)
	assert.Equal(t, "2026-01-05", *item.Date)
	require.NotNil(t, item.Engagement)
	assert.Equal(t, 412, *item.Engagement.Score)
	assert.Equal(t, 137, *item.Engagement.NumComments)
	assert.Nil(t, item.Engagement.Likes)
	assert.Len(t, item.TopComments, 3)
	assert.Len(t, item.CommentInsights, 2)
}

func TestNormalizer_X(t *testing.T) {
	records, err := sources.ParseXRecords(fixtures.MustLoad(fixtures.XAISample))
	require.NoError(t, err)

	items := testNormalizer(t).X(records)
	require.Len(t, items, 4)

	first := items[0]
	assert.Equal(t, "1890000000000000001", first.ID)
	assert.Equal(t, "devrel_ana", first.AuthorHandle)
	assert.Equal(t, models.ConfidenceMedium, first.DateConfidence)
	require.NotNil(t, first.Engagement)
	assert.Equal(t, 1200, *first.Engagement.Likes)
	assert.Equal(t, 140, *first.Engagement.Reposts)
	assert.Nil(t, first.Engagement.Score)

	second := items[1]
	assert.Nil(t, second.Engagement, "all-null metrics collapse to no engagement")
	assert.Equal(t, models.ConfidenceLow, second.DateConfidence)

	assert.Equal(t, items[1].ID, items[2].ID, "share links resolve to the same status id")
}

func TestNormalizer_XUnreadableOptionalFields(t *testing.T) {
	text := `{"items": [
		{"id": 1890000000000000009, "url": "https://x.com/a/status/1890000000000000009", "relevance": "high"},
		{"url": "https://x.com/b/status/42", "engagement": {"likes": "N/A", "replies": ""}}
	]}`
	raw, err := json.Marshal(map[string]string{"output_text": text})
	require.NoError(t, err)

	records, err := sources.ParseXRecords(raw)
	require.NoError(t, err)

	items := testNormalizer(t).X(records)
	require.Len(t, items, 2)

	assert.Equal(t, "1890000000000000009", items[0].ID)
	assert.Equal(t, 0.5, items[0].Relevance, "unreadable relevance defaults to 0.5")
	assert.Equal(t, "42", items[1].ID)
	assert.Nil(t, items[1].Engagement, "unreadable metrics leave engagement absent")
}

func TestNormalizer_ExplicitTimestampNeverLow(t *testing.T) {
	n := testNormalizer(t)
	explicit := []string{"2026-03-01", "2025-01-01", "2026-03-01T05:00:00Z", "1772323200", "2031-07-04"}

	for _, raw := range explicit {
		reddit := n.Reddit([]sources.RedditRecord{{URL: "https://www.reddit.com/r/a/comments/x1/t/", Date: sources.FlexString(raw)}})
		require.Len(t, reddit, 1)
		assert.NotEqual(t, models.ConfidenceLow, reddit[0].DateConfidence, raw)

		x := n.X([]sources.XRecord{{URL: "https://x.com/a/status/1", Date: sources.FlexString(raw)}})
		require.Len(t, x, 1)
		assert.NotEqual(t, models.ConfidenceLow, x[0].DateConfidence, raw)
	}

	created := 1772323200.0
	reddit := n.Reddit([]sources.RedditRecord{{URL: "https://www.reddit.com/r/a/comments/x1/t/", Thread: &sources.Thread{CreatedUTC: &created}}})
	assert.Equal(t, models.ConfidenceHigh, reddit[0].DateConfidence)
}

func TestNormalizer_OutOfWindowRetained(t *testing.T) {
	items := testNormalizer(t).X([]sources.XRecord{{URL: "https://x.com/a/status/7", Date: "2025-06-01"}})
	require.Len(t, items, 1)
	assert.Equal(t, "2025-06-01", *items[0].Date)
}

func TestClip(t *testing.T) {
	assert.Equal(t, "a b", clip(" a \n b ", 10))
	assert.Equal(t, "abcd...", clip("abcdefghij", 7))
}
