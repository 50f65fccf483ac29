package normalize

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/azure/last30days/internal/dates"
	"github.com/azure/last30days/internal/models"
)

var (
	relativeAgo = regexp.MustCompile(`^(\d+|a|an|one)\s+(second|minute|min|hour|hr|day|week|month|year)s?\s+ago$`)
	lastUnit    = regexp.MustCompile(`^(?:last|past|previous)\s+(day|week|month|year)$`)
	yearMonth   = regexp.MustCompile(`^\d{4}-\d{1,2}$`)
	epoch       = regexp.MustCompile(`^\d{9,10}(\.\d+)?$`)
	bareYear    = regexp.MustCompile(`^\d{4}$`)
)

var monthDayLayouts = []string{"Jan 2", "January 2", "2 Jan", "2 January", "Jan 2nd", "Jan. 2"}

// resolveDate turns a source-reported date string into a YYYY-MM-DD day and a
// confidence tier, resolving relative text against now.
func resolveDate(raw string, now time.Time) (*string, models.DateConfidence) {
	s := strings.TrimSpace(raw)
	if s == "" || strings.EqualFold(s, "null") || strings.EqualFold(s, "unknown") || bareYear.MatchString(s) {
		return nil, models.ConfidenceLow
	}

	if t, ok := explicitDate(s); ok {
		return day(t), models.ConfidenceHigh
	}
	if t, ok := relativeDate(strings.ToLower(s), now); ok {
		return day(t), models.ConfidenceMedium
	}
	if t, ok := partialDate(s, now); ok {
		return day(t), models.ConfidenceMedium
	}
	return nil, models.ConfidenceLow
}

// explicitDate accepts timestamps that carry a year and need no guessing.
func explicitDate(s string) (time.Time, bool) {
	if epoch.MatchString(s) {
		secs, err := strconv.ParseFloat(s, 64)
		if err == nil {
			return time.Unix(int64(secs), 0).UTC(), true
		}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), true
	}
	if t, err := dates.ParseDay(s); err == nil {
		return t, true
	}
	if yearMonth.MatchString(s) {
		return time.Time{}, false
	}
	t, err := dateparse.ParseStrict(s)
	if err != nil || t.Year() < 1970 {
		return time.Time{}, false
	}
	return t.UTC(), true
}

func relativeDate(s string, now time.Time) (time.Time, bool) {
	switch s {
	case "today", "now", "just now":
		return now, true
	case "yesterday":
		return now.AddDate(0, 0, -1), true
	case "this week":
		return now.AddDate(0, 0, -3), true
	}

	if m := lastUnit.FindStringSubmatch(s); m != nil {
		return subtract(now, 1, m[1]), true
	}
	if m := relativeAgo.FindStringSubmatch(s); m != nil {
		n := 1
		if v, err := strconv.Atoi(m[1]); err == nil {
			n = v
		}
		return subtract(now, n, m[2]), true
	}
	return time.Time{}, false
}

func subtract(now time.Time, n int, unit string) time.Time {
	switch unit {
	case "second":
		return now.Add(-time.Duration(n) * time.Second)
	case "minute", "min":
		return now.Add(-time.Duration(n) * time.Minute)
	case "hour", "hr":
		return now.Add(-time.Duration(n) * time.Hour)
	case "day":
		return now.AddDate(0, 0, -n)
	case "week":
		return now.AddDate(0, 0, -7*n)
	case "month":
		return now.AddDate(0, 0, -30*n)
	default:
		return now.AddDate(-n, 0, 0)
	}
}

// partialDate resolves dates missing a year, a day, or an unambiguous
// month/day order.
func partialDate(s string, now time.Time) (time.Time, bool) {
	for _, layout := range monthDayLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		t = time.Date(now.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		if t.After(now) {
			t = t.AddDate(-1, 0, 0)
		}
		return t, true
	}

	if yearMonth.MatchString(s) {
		if t, err := time.Parse("2006-1", s); err == nil {
			return t, true
		}
	}

	if _, err := dateparse.ParseStrict(s); errors.Is(err, dateparse.ErrAmbiguousMMDD) {
		t, err := dateparse.ParseIn(s, time.UTC, dateparse.PreferMonthFirst(true))
		if err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func day(t time.Time) *string {
	d := dates.FormatDay(t)
	return &d
}
