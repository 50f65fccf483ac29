package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateConfidence describes how reliable an item's date is.
type DateConfidence string

const (
	ConfidenceHigh   DateConfidence = "high"   // explicit timestamp from the source or enrichment
	ConfidenceMedium DateConfidence = "medium" // relative or partial date text
	ConfidenceLow    DateConfidence = "low"    // guessed or absent
)

// Valid reports whether c is one of the known confidence tiers.
func (c DateConfidence) Valid() bool {
	switch c {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return true
	}
	return false
}

// Mode names which sources a report covers.
type Mode string

const (
	ModeRedditOnly Mode = "reddit-only"
	ModeXOnly      Mode = "x-only"
	ModeBoth       Mode = "both"
)

// ModeForSources maps a resolved source selection ("reddit", "x", "both") to a report mode.
func ModeForSources(sources string) (Mode, error) {
	switch sources {
	case "both":
		return ModeBoth, nil
	case "reddit":
		return ModeRedditOnly, nil
	case "x":
		return ModeXOnly, nil
	}
	return "", fmt.Errorf("unknown source selection %q", sources)
}

// IncludesReddit reports whether Reddit results belong in a report of this mode.
func (m Mode) IncludesReddit() bool { return m == ModeBoth || m == ModeRedditOnly }

// IncludesX reports whether X results belong in a report of this mode.
func (m Mode) IncludesX() bool { return m == ModeBoth || m == ModeXOnly }

// Engagement holds optional platform metrics. A nil field means the source
// did not report it, which is different from a reported zero.
type Engagement struct {
	// Reddit
	Score       *int     `json:"score,omitempty"`
	NumComments *int     `json:"num_comments,omitempty"`
	UpvoteRatio *float64 `json:"upvote_ratio,omitempty"`

	// X
	Likes   *int `json:"likes,omitempty"`
	Reposts *int `json:"reposts,omitempty"`
	Replies *int `json:"replies,omitempty"`
	Quotes  *int `json:"quotes,omitempty"`
}

// IsEmpty reports whether no metric is present.
func (e *Engagement) IsEmpty() bool {
	if e == nil {
		return true
	}
	return e.Score == nil && e.NumComments == nil && e.UpvoteRatio == nil &&
		e.Likes == nil && e.Reposts == nil && e.Replies == nil && e.Quotes == nil
}

// OrNil collapses an engagement without any present metric to nil so it serializes as null.
func (e *Engagement) OrNil() *Engagement {
	if e.IsEmpty() {
		return nil
	}
	return e
}

// Int returns a pointer to v, for filling Engagement fields.
func Int(v int) *int { return &v }

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Comment is an excerpt of a Reddit comment attached to a RedditItem.
type Comment struct {
	Score   int     `json:"score"`
	Date    *string `json:"date"`
	Author  string  `json:"author"`
	Excerpt string  `json:"excerpt"`
	URL     string  `json:"url"`
}

// SubScores are the weighted inputs of the composite score, each 0-100.
type SubScores struct {
	Relevance  int `json:"relevance"`
	Recency    int `json:"recency"`
	Engagement int `json:"engagement"`
}

// RedditItem is a normalized Reddit thread.
type RedditItem struct {
	ID              string         `json:"id"`
	Title           string         `json:"title"`
	URL             string         `json:"url"`
	Subreddit       string         `json:"subreddit"`
	Date            *string        `json:"date"`
	DateConfidence  DateConfidence `json:"date_confidence"`
	Engagement      *Engagement    `json:"engagement"`
	TopComments     []Comment      `json:"top_comments"`
	CommentInsights []string       `json:"comment_insights"`
	Relevance       float64        `json:"relevance"`
	WhyRelevant     string         `json:"why_relevant"`
	Subs            SubScores      `json:"subs"`
	Score           int            `json:"score"`
}

// XItem is a normalized X post.
type XItem struct {
	ID             string         `json:"id"`
	Text           string         `json:"text"`
	URL            string         `json:"url"`
	AuthorHandle   string         `json:"author_handle"`
	Date           *string        `json:"date"`
	DateConfidence DateConfidence `json:"date_confidence"`
	Engagement     *Engagement    `json:"engagement"`
	Relevance      float64        `json:"relevance"`
	WhyRelevant    string         `json:"why_relevant"`
	Subs           SubScores      `json:"subs"`
	Score          int            `json:"score"`
}

// Item is the view of a normalized item shared by the scorer and the deduplicator.
type Item interface {
	ItemID() string
	ItemURL() string
	ItemText() string
	ItemRelevance() float64
	ItemSubs() SubScores
	ItemScore() int
}

func (r RedditItem) ItemID() string         { return r.ID }
func (r RedditItem) ItemURL() string        { return r.URL }
func (r RedditItem) ItemText() string       { return r.Title }
func (r RedditItem) ItemRelevance() float64 { return r.Relevance }
func (r RedditItem) ItemSubs() SubScores    { return r.Subs }
func (r RedditItem) ItemScore() int         { return r.Score }

func (x XItem) ItemID() string         { return x.ID }
func (x XItem) ItemURL() string        { return x.URL }
func (x XItem) ItemText() string       { return x.Text }
func (x XItem) ItemRelevance() float64 { return x.Relevance }
func (x XItem) ItemSubs() SubScores    { return x.Subs }
func (x XItem) ItemScore() int         { return x.Score }

var (
	_ Item = RedditItem{}
	_ Item = XItem{}
)

// Report is the result of one research run.
type Report struct {
	Topic            string       `json:"topic"`
	RangeFrom        string       `json:"-"`
	RangeTo          string       `json:"-"`
	GeneratedAt      string       `json:"generated_at"`
	Mode             Mode         `json:"mode"`
	OpenAIModelUsed  *string      `json:"openai_model_used"`
	XAIModelUsed     *string      `json:"xai_model_used"`
	Reddit           []RedditItem `json:"reddit"`
	X                []XItem      `json:"x"`
	BestPractices    []string     `json:"best_practices"`
	PromptPack       []string     `json:"prompt_pack"`
	ContextSnippetMD string       `json:"context_snippet_md"`
	RedditError      string       `json:"reddit_error,omitempty"`
	XError           string       `json:"x_error,omitempty"`
}

// DateRange is the serialized form of the report window.
type DateRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// reportAlias drops Report's methods so the custom marshalers don't recurse.
type reportAlias Report

type reportJSON struct {
	Range DateRange `json:"range"`
	*reportAlias
}

// MarshalJSON nests the window under "range" and emits empty lists as [] rather than null.
func (r Report) MarshalJSON() ([]byte, error) {
	out := reportAlias(r)
	out.Reddit = append([]RedditItem{}, r.Reddit...)
	if out.X == nil {
		out.X = []XItem{}
	}
	if out.BestPractices == nil {
		out.BestPractices = []string{}
	}
	if out.PromptPack == nil {
		out.PromptPack = []string{}
	}
	for i := range out.Reddit {
		if out.Reddit[i].TopComments == nil {
			out.Reddit[i].TopComments = []Comment{}
		}
		if out.Reddit[i].CommentInsights == nil {
			out.Reddit[i].CommentInsights = []string{}
		}
	}
	return json.Marshal(reportJSON{
		Range:       DateRange{From: r.RangeFrom, To: r.RangeTo},
		reportAlias: &out,
	})
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (r *Report) UnmarshalJSON(data []byte) error {
	aux := reportJSON{reportAlias: (*reportAlias)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	r.RangeFrom = aux.Range.From
	r.RangeTo = aux.Range.To
	return nil
}

// NewReport creates an empty report stamped with generatedAt.
func NewReport(topic, from, to string, mode Mode, openaiModel, xaiModel string, generatedAt time.Time) *Report {
	return &Report{
		Topic:           topic,
		RangeFrom:       from,
		RangeTo:         to,
		GeneratedAt:     generatedAt.UTC().Format(time.RFC3339),
		Mode:            mode,
		OpenAIModelUsed: optional(openaiModel),
		XAIModelUsed:    optional(xaiModel),
		Reddit:          []RedditItem{},
		X:               []XItem{},
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
