// Package normalize maps raw search records onto the report item model.
package normalize

import (
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/azure/last30days/internal/dates"
	"github.com/azure/last30days/internal/models"
	"github.com/azure/last30days/internal/sources"
	"github.com/sirupsen/logrus"
)

const (
	defaultRelevance = 0.5
	maxTitle         = 300
	maxText          = 500
	maxWhy           = 300
)

var (
	redditThreadID = regexp.MustCompile(`/comments/([a-z0-9]+)`)
	xStatusID      = regexp.MustCompile(`/status(?:es)?/(\d+)`)
)

// Normalizer converts records from one run. Now anchors relative dates.
type Normalizer struct {
	Window dates.Window
	Now    time.Time
}

// New creates a normalizer for the given window and clock.
func New(window dates.Window, now time.Time) *Normalizer {
	return &Normalizer{Window: window, Now: now.UTC()}
}

// Reddit normalizes Reddit records. Records with neither an id nor a url are dropped.
func (n *Normalizer) Reddit(records []sources.RedditRecord) []models.RedditItem {
	items := make([]models.RedditItem, 0, len(records))
	for i, rec := range records {
		id := itemID(string(rec.ID), rec.URL, redditThreadID, "R", i)
		if id == "" {
			logrus.Debugf("Dropping Reddit record %d without id or url", i)
			continue
		}

		item := models.RedditItem{
			ID:              id,
			Title:           clip(rec.Title, maxTitle),
			URL:             strings.TrimSpace(rec.URL),
			Subreddit:       subreddit(rec.Subreddit),
			TopComments:     []models.Comment{},
			CommentInsights: []string{},
			Relevance:       relevance(rec.Relevance),
			WhyRelevant:     clip(rec.WhyRelevant, maxWhy),
		}
		item.Date, item.DateConfidence = resolveDate(string(rec.Date), n.Now)

		if th := rec.Thread; th != nil {
			if th.CreatedUTC != nil && *th.CreatedUTC > 0 {
				d := dates.FromUnix(*th.CreatedUTC)
				item.Date, item.DateConfidence = &d, models.ConfidenceHigh
			}
			item.Engagement = (&models.Engagement{
				Score:       th.Score,
				NumComments: th.NumComments,
				UpvoteRatio: th.UpvoteRatio,
			}).OrNil()
			if len(th.Comments) > 0 {
				item.TopComments = th.Comments
			}
			if len(th.Insights) > 0 {
				item.CommentInsights = th.Insights
			}
		}

		n.logOutOfWindow(item.ID, item.Date)
		items = append(items, item)
	}
	return items
}

// X normalizes X records.
func (n *Normalizer) X(records []sources.XRecord) []models.XItem {
	items := make([]models.XItem, 0, len(records))
	for i, rec := range records {
		id := itemID(string(rec.ID), rec.URL, xStatusID, "X", i)
		if id == "" {
			logrus.Debugf("Dropping X record %d without id or url", i)
			continue
		}

		item := models.XItem{
			ID:           id,
			Text:         clip(rec.Text, maxText),
			URL:          strings.TrimSpace(rec.URL),
			AuthorHandle: strings.TrimPrefix(strings.TrimSpace(rec.AuthorHandle), "@"),
			Relevance:    relevance(rec.Relevance),
			WhyRelevant:  clip(rec.WhyRelevant, maxWhy),
		}
		item.Date, item.DateConfidence = resolveDate(string(rec.Date), n.Now)

		if m := rec.Engagement; m != nil {
			item.Engagement = (&models.Engagement{
				Likes:   m.Likes.IntPtr(),
				Reposts: m.Reposts.IntPtr(),
				Replies: m.Replies.IntPtr(),
				Quotes:  m.Quotes.IntPtr(),
			}).OrNil()
		}

		n.logOutOfWindow(item.ID, item.Date)
		items = append(items, item)
	}
	return items
}

func (n *Normalizer) logOutOfWindow(id string, date *string) {
	if date == nil {
		return
	}
	day, err := dates.ParseDay(*date)
	if err == nil && !n.Window.Contains(day) {
		logrus.Debugf("Item %s dated %s falls outside %s..%s", id, *date,
			dates.FormatDay(n.Window.From), dates.FormatDay(n.Window.To))
	}
}

// itemID prefers the reported id, then the id embedded in the url, then a
// positional id when at least a url is known.
func itemID(reported, rawURL string, pattern *regexp.Regexp, prefix string, index int) string {
	if id := strings.TrimSpace(reported); id != "" {
		return id
	}
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return ""
	}
	if u, err := url.Parse(rawURL); err == nil {
		if m := pattern.FindStringSubmatch(strings.ToLower(u.Path)); m != nil {
			return m[1]
		}
	}
	return fmt.Sprintf("%s%d", prefix, index+1)
}

func subreddit(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "/")
	s = strings.TrimPrefix(s, "r/")
	return strings.TrimSuffix(s, "/")
}

func relevance(v *sources.FlexFloat) float64 {
	if v == nil {
		return defaultRelevance
	}
	r := float64(*v)
	switch {
	case math.IsNaN(r):
		return defaultRelevance
	case r < 0:
		return 0
	case r > 1:
		return 1
	}
	return r
}

func clip(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n-3])) + "..."
}
