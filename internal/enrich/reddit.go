package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/azure/last30days/internal/dates"
	"github.com/azure/last30days/internal/models"
	"github.com/azure/last30days/internal/sources"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	maxTopComments  = 10
	maxInsights     = 7
	maxExcerpt      = 300
	maxInsight      = 150
	minInsightChars = 30
)

// ThreadFetcher returns the raw JSON listing of a Reddit thread.
type ThreadFetcher interface {
	FetchThread(ctx context.Context, threadURL string) ([]byte, error)
}

const redditBaseURL = "https://www.reddit.com"

// RedditClient fetches public thread listings from reddit.com.
type RedditClient struct {
	baseURL string
	client  *resty.Client
	limiter *rate.Limiter
}

var _ ThreadFetcher = (*RedditClient)(nil)

// NewRedditClient creates a thread client limited to rps requests per second.
func NewRedditClient(rps float64) *RedditClient {
	return NewRedditClientWithURL(rps, redditBaseURL)
}

// NewRedditClientWithURL fetches thread listings from another host.
func NewRedditClientWithURL(rps float64, baseURL string) *RedditClient {
	return &RedditClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: resty.New().
			SetTimeout(30*time.Second).
			SetHeader("User-Agent", "last30days/1.0 (research tool)"),
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

func (c *RedditClient) FetchThread(ctx context.Context, threadURL string) ([]byte, error) {
	path, err := threadPath(threadURL)
	if err != nil {
		return nil, err
	}
	jsonURL := c.baseURL + path

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("raw_json", "1").
		Get(jsonURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch thread: %w", err)
	}

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("reddit returned status %d for %s", resp.StatusCode(), jsonURL)
	}

	return resp.Body(), nil
}

// StaticFetcher serves the same thread for every URL; used by mock runs.
type StaticFetcher struct {
	Data []byte
}

func (s StaticFetcher) FetchThread(ctx context.Context, threadURL string) ([]byte, error) {
	return s.Data, nil
}

// ThreadJSONURL converts a Reddit thread link into its .json listing URL.
func ThreadJSONURL(threadURL string) (string, error) {
	path, err := threadPath(threadURL)
	if err != nil {
		return "", err
	}
	return redditBaseURL + path, nil
}

func threadPath(threadURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(threadURL))
	if err != nil {
		return "", fmt.Errorf("invalid thread url %q: %w", threadURL, err)
	}
	host := strings.ToLower(u.Host)
	if host != "reddit.com" && !strings.HasSuffix(host, ".reddit.com") {
		return "", fmt.Errorf("not a reddit url: %q", threadURL)
	}
	if !strings.Contains(u.Path, "/comments/") {
		return "", fmt.Errorf("not a reddit thread: %q", threadURL)
	}

	path := strings.TrimSuffix(u.Path, "/")
	path = strings.TrimSuffix(path, ".json")
	return path + ".json", nil
}

// Enricher attaches real thread data to Reddit records.
type Enricher struct {
	fetcher     ThreadFetcher
	concurrency int
}

// NewEnricher creates an enricher running at most concurrency fetches at once.
func NewEnricher(fetcher ThreadFetcher, concurrency int) *Enricher {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Enricher{fetcher: fetcher, concurrency: concurrency}
}

// Enrich fetches every record's thread and returns the records in their
// original order. Records whose thread cannot be fetched or parsed are
// returned unchanged.
func (e *Enricher) Enrich(ctx context.Context, records []sources.RedditRecord) []sources.RedditRecord {
	out := make([]sources.RedditRecord, len(records))
	copy(out, records)

	var g errgroup.Group
	g.SetLimit(e.concurrency)

	for i := range out {
		i := i
		if out[i].URL == "" {
			continue
		}
		g.Go(func() error {
			raw, err := e.fetcher.FetchThread(ctx, out[i].URL)
			if err != nil {
				logrus.Debugf("Skipping enrichment of %s: %v", out[i].URL, err)
				return nil
			}
			thread, err := ParseThread(raw)
			if err != nil {
				logrus.Debugf("Failed to parse thread %s: %v", out[i].URL, err)
				return nil
			}
			out[i].Thread = thread
			return nil
		})
	}
	_ = g.Wait()

	enriched := 0
	for _, rec := range out {
		if rec.Thread != nil {
			enriched++
		}
	}
	logrus.Infof("Enriched %d of %d Reddit threads", enriched, len(out))

	return out
}

type listing struct {
	Data struct {
		Children []struct {
			Kind string          `json:"kind"`
			Data json.RawMessage `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type submission struct {
	Score       *int     `json:"score"`
	NumComments *int     `json:"num_comments"`
	UpvoteRatio *float64 `json:"upvote_ratio"`
	CreatedUTC  *float64 `json:"created_utc"`
}

type redditComment struct {
	Score      int     `json:"score"`
	CreatedUTC float64 `json:"created_utc"`
	Author     string  `json:"author"`
	Body       string  `json:"body"`
	Permalink  string  `json:"permalink"`
}

// ParseThread reads the submission metrics and top comments out of a thread listing.
func ParseThread(raw []byte) (*sources.Thread, error) {
	var listings []listing
	if err := json.Unmarshal(raw, &listings); err != nil {
		return nil, fmt.Errorf("failed to parse thread listing: %w", err)
	}
	if len(listings) == 0 || len(listings[0].Data.Children) == 0 {
		return nil, fmt.Errorf("thread listing has no submission")
	}

	var post submission
	if err := json.Unmarshal(listings[0].Data.Children[0].Data, &post); err != nil {
		return nil, fmt.Errorf("failed to parse submission: %w", err)
	}

	thread := &sources.Thread{
		Score:       post.Score,
		NumComments: post.NumComments,
		UpvoteRatio: post.UpvoteRatio,
		CreatedUTC:  post.CreatedUTC,
	}

	var comments []redditComment
	if len(listings) > 1 {
		for _, child := range listings[1].Data.Children {
			if child.Kind != "t1" {
				continue
			}
			var c redditComment
			if err := json.Unmarshal(child.Data, &c); err != nil {
				continue
			}
			if isRemoved(c.Body) {
				continue
			}
			comments = append(comments, c)
		}
	}

	sort.SliceStable(comments, func(i, j int) bool {
		return comments[i].Score > comments[j].Score
	})
	if len(comments) > maxTopComments {
		comments = comments[:maxTopComments]
	}

	for _, c := range comments {
		var date *string
		if c.CreatedUTC > 0 {
			d := dates.FromUnix(c.CreatedUTC)
			date = &d
		}
		thread.Comments = append(thread.Comments, models.Comment{
			Score:   c.Score,
			Date:    date,
			Author:  c.Author,
			Excerpt: excerpt(c.Body, maxExcerpt),
			URL:     commentURL(c.Permalink),
		})
	}
	thread.Insights = insights(comments)

	return thread, nil
}

// insights distills the top comments into short takeaways.
func insights(comments []redditComment) []string {
	var out []string
	for _, c := range comments {
		if len(out) >= maxInsights {
			break
		}
		body := collapse(c.Body)
		if len(body) < minInsightChars || lowValue(body) {
			continue
		}
		out = append(out, excerpt(firstSentence(body), maxInsight))
	}
	return out
}

var lowValuePhrases = []string{
	"this", "this.", "same", "same here", "lol", "thanks", "thank you", "+1",
	"great post", "agreed", "following", "bump",
}

func lowValue(body string) bool {
	lower := strings.ToLower(strings.TrimSpace(body))
	for _, p := range lowValuePhrases {
		if lower == p || strings.HasPrefix(lower, p+" ") && len(lower) < len(p)+12 {
			return true
		}
	}
	return strings.HasPrefix(lower, "http") && !strings.Contains(lower, " ")
}

func isRemoved(body string) bool {
	b := strings.TrimSpace(body)
	return b == "" || b == "[deleted]" || b == "[removed]"
}

func firstSentence(s string) string {
	for i, r := range s {
		if (r == '.' || r == '!' || r == '?') && i+1 < len(s) && s[i+1] == ' ' && i >= minInsightChars {
			return s[:i+1]
		}
	}
	return s
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func excerpt(s string, n int) string {
	r := []rune(collapse(s))
	if len(r) <= n {
		return string(r)
	}
	head := string(r[:n])
	if cut := strings.LastIndex(head, " "); cut >= len(head)/2 {
		head = head[:cut]
	}
	return strings.TrimRight(head, " ,;:") + "..."
}

func commentURL(permalink string) string {
	if permalink == "" {
		return ""
	}
	if strings.HasPrefix(permalink, "http") {
		return permalink
	}
	return redditBaseURL + permalink
}
