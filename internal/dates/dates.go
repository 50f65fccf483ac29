package dates

import (
	"fmt"
	"time"
)

// DayLayout is the calendar format used for report windows and item dates.
const DayLayout = "2006-01-02"

// Window is an inclusive [From, To] range of calendar days in UTC.
type Window struct {
	From time.Time
	To   time.Time
}

// GetDateRange returns the trailing window of the given number of days ending today (UTC).
func GetDateRange(days int) (string, string) {
	return GetDateRangeAt(time.Now(), days)
}

// GetDateRangeAt is GetDateRange with an explicit clock.
func GetDateRangeAt(now time.Time, days int) (string, string) {
	to := TruncateDay(now)
	from := to.AddDate(0, 0, -days)
	return FormatDay(from), FormatDay(to)
}

// NewWindow builds a Window from two YYYY-MM-DD strings.
func NewWindow(from, to string) (Window, error) {
	f, err := ParseDay(from)
	if err != nil {
		return Window{}, fmt.Errorf("invalid window start %q: %w", from, err)
	}
	t, err := ParseDay(to)
	if err != nil {
		return Window{}, fmt.Errorf("invalid window end %q: %w", to, err)
	}
	if t.Before(f) {
		return Window{}, fmt.Errorf("window end %s is before start %s", to, from)
	}
	return Window{From: f, To: t}, nil
}

// Days returns the length of the window in days.
func (w Window) Days() int {
	return int(w.To.Sub(w.From).Hours() / 24)
}

// Contains reports whether the day falls inside the window, bounds included.
func (w Window) Contains(day time.Time) bool {
	d := TruncateDay(day)
	return !d.Before(w.From) && !d.After(w.To)
}

// AgeInDays returns how many whole days the given day lies before the window end.
// Days after the end yield a negative age.
func (w Window) AgeInDays(day time.Time) int {
	return int(w.To.Sub(TruncateDay(day)).Hours() / 24)
}

// ParseDay parses a YYYY-MM-DD string as a UTC day.
func ParseDay(s string) (time.Time, error) {
	return time.ParseInLocation(DayLayout, s, time.UTC)
}

// FormatDay renders a time as YYYY-MM-DD in UTC.
func FormatDay(t time.Time) string {
	return t.UTC().Format(DayLayout)
}

// TruncateDay drops the time-of-day component in UTC.
func TruncateDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// FromUnix converts epoch seconds to a UTC day string.
func FromUnix(seconds float64) string {
	return FormatDay(time.Unix(int64(seconds), 0))
}
