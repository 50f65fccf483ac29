// Package scoring computes sub-scores and the composite score for report items
// and orders them.
package scoring

import (
	"fmt"
	"math"
	"sort"

	"github.com/azure/last30days/internal/dates"
	"github.com/azure/last30days/internal/models"
)

// Weights are the composite score weights. They should sum to 1.
type Weights struct {
	Relevance  float64 `yaml:"relevance"`
	Recency    float64 `yaml:"recency"`
	Engagement float64 `yaml:"engagement"`
}

// Validate checks that every weight is non-negative and the total is 1.
func (w Weights) Validate() error {
	if w.Relevance < 0 || w.Recency < 0 || w.Engagement < 0 {
		return fmt.Errorf("score weights must be non-negative")
	}
	if sum := w.Relevance + w.Recency + w.Engagement; math.Abs(sum-1) > 1e-6 {
		return fmt.Errorf("score weights must sum to 1, got %.3f", sum)
	}
	return nil
}

// Config holds the scoring policy.
type Config struct {
	Weights Weights

	RecencyFull      int // age in days still scored 100
	RecencyHorizon   int // age in days that reaches the floor
	RecencyFloor     int
	OutOfWindowScore int
	UndatedScore     int

	NeutralEngagement int
	RedditSaturation  float64
	XSaturation       float64
}

// DefaultConfig returns the standard policy.
func DefaultConfig() Config {
	return Config{
		Weights:           Weights{Relevance: 0.5, Recency: 0.3, Engagement: 0.2},
		RecencyFull:       1,
		RecencyHorizon:    30,
		RecencyFloor:      10,
		OutOfWindowScore:  5,
		UndatedScore:      20,
		NeutralEngagement: 50,
		RedditSaturation:  5000,
		XSaturation:       10000,
	}
}

// Scorer fills sub-scores and composite scores for one report window.
type Scorer struct {
	cfg    Config
	window dates.Window
}

// New creates a scorer. Recency is measured against the window, never the wall clock.
func New(cfg Config, window dates.Window) *Scorer {
	return &Scorer{cfg: cfg, window: window}
}

// ScoreReddit returns scored copies of the items.
func (s *Scorer) ScoreReddit(items []models.RedditItem) []models.RedditItem {
	out := make([]models.RedditItem, len(items))
	for i, item := range items {
		item.Subs = models.SubScores{
			Relevance:  relevanceScore(item.Relevance),
			Recency:    s.recency(item.Date),
			Engagement: s.redditEngagement(item.Engagement),
		}
		item.Score = s.Composite(item.Subs)
		out[i] = item
	}
	return out
}

// ScoreX returns scored copies of the items.
func (s *Scorer) ScoreX(items []models.XItem) []models.XItem {
	out := make([]models.XItem, len(items))
	for i, item := range items {
		item.Subs = models.SubScores{
			Relevance:  relevanceScore(item.Relevance),
			Recency:    s.recency(item.Date),
			Engagement: s.xEngagement(item.Engagement),
		}
		item.Score = s.Composite(item.Subs)
		out[i] = item
	}
	return out
}

// Composite is the weighted sum of the sub-scores, rounded.
func (s *Scorer) Composite(subs models.SubScores) int {
	w := s.cfg.Weights
	total := w.Relevance*float64(subs.Relevance) +
		w.Recency*float64(subs.Recency) +
		w.Engagement*float64(subs.Engagement)
	return int(math.Round(total))
}

func relevanceScore(r float64) int {
	return clamp(int(math.Round(r*100)), 0, 100)
}

func (s *Scorer) recency(date *string) int {
	if date == nil {
		return s.cfg.UndatedScore
	}
	day, err := dates.ParseDay(*date)
	if err != nil {
		return s.cfg.UndatedScore
	}
	if !s.window.Contains(day) {
		return s.cfg.OutOfWindowScore
	}

	age := s.window.AgeInDays(day)
	if age <= s.cfg.RecencyFull {
		return 100
	}
	if age >= s.cfg.RecencyHorizon {
		return s.cfg.RecencyFloor
	}

	span := float64(s.cfg.RecencyHorizon - s.cfg.RecencyFull)
	frac := float64(age-s.cfg.RecencyFull) / span
	return int(math.Round(100 - frac*float64(100-s.cfg.RecencyFloor)))
}

func (s *Scorer) redditEngagement(e *models.Engagement) int {
	if e == nil || (e.Score == nil && e.NumComments == nil) {
		return s.cfg.NeutralEngagement
	}

	v := 0.0
	if e.Score != nil {
		v += float64(*e.Score)
	}
	if e.NumComments != nil {
		v += 2 * float64(*e.NumComments)
	}
	if v < 0 {
		v = 0
	}
	if e.UpvoteRatio != nil {
		v *= 0.5 + clampFloat(*e.UpvoteRatio, 0, 1)
	}
	return logScale(v, s.cfg.RedditSaturation)
}

func (s *Scorer) xEngagement(e *models.Engagement) int {
	if e == nil || (e.Likes == nil && e.Reposts == nil && e.Replies == nil && e.Quotes == nil) {
		return s.cfg.NeutralEngagement
	}

	v := 0.0
	if e.Likes != nil {
		v += float64(*e.Likes)
	}
	if e.Reposts != nil {
		v += 2 * float64(*e.Reposts)
	}
	if e.Replies != nil {
		v += 1.5 * float64(*e.Replies)
	}
	if e.Quotes != nil {
		v += float64(*e.Quotes)
	}
	if v < 0 {
		v = 0
	}
	return logScale(v, s.cfg.XSaturation)
}

func logScale(v, saturation float64) int {
	if saturation <= 0 {
		return 0
	}
	scaled := 100 * math.Log1p(v) / math.Log1p(saturation)
	return clamp(int(math.Round(scaled)), 0, 100)
}

// Sort orders items by score, relevance sub-score, raw relevance, then id.
func Sort[T models.Item](items []T) {
	sort.SliceStable(items, func(i, j int) bool {
		return Less(items[i], items[j])
	})
}

// Less reports whether a ranks ahead of b.
func Less(a, b models.Item) bool {
	if a.ItemScore() != b.ItemScore() {
		return a.ItemScore() > b.ItemScore()
	}
	if ra, rb := a.ItemSubs().Relevance, b.ItemSubs().Relevance; ra != rb {
		return ra > rb
	}
	if a.ItemRelevance() != b.ItemRelevance() {
		return a.ItemRelevance() > b.ItemRelevance()
	}
	return a.ItemID() < b.ItemID()
}

// SortReddit sorts Reddit items in place.
func SortReddit(items []models.RedditItem) { Sort(items) }

// SortX sorts X items in place.
func SortX(items []models.XItem) { Sort(items) }

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
