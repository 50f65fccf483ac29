package sources

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/azure/last30days/internal/models"
	"github.com/sirupsen/logrus"
)

// RedditRecord is one Reddit thread as reported by the search model,
// optionally extended with data from the real thread.
type RedditRecord struct {
	ID          FlexString `json:"id,omitempty"`
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	Subreddit   string     `json:"subreddit"`
	Date        FlexString `json:"date,omitempty"`
	WhyRelevant string     `json:"why_relevant"`
	Relevance   *FlexFloat `json:"relevance,omitempty"`
	Thread      *Thread    `json:"thread,omitempty"`
}

// Thread is what enrichment learned from fetching the thread itself.
type Thread struct {
	Score       *int             `json:"score,omitempty"`
	NumComments *int             `json:"num_comments,omitempty"`
	UpvoteRatio *float64         `json:"upvote_ratio,omitempty"`
	CreatedUTC  *float64         `json:"created_utc,omitempty"`
	Comments    []models.Comment `json:"top_comments,omitempty"`
	Insights    []string         `json:"comment_insights,omitempty"`
}

// XRecord is one X post as reported by the search model.
type XRecord struct {
	ID           FlexString     `json:"id,omitempty"`
	Text         string         `json:"text"`
	URL          string         `json:"url"`
	AuthorHandle string         `json:"author_handle"`
	Date         FlexString     `json:"date,omitempty"`
	Engagement   *XMetricRecord `json:"engagement,omitempty"`
	WhyRelevant  string         `json:"why_relevant"`
	Relevance    *FlexFloat     `json:"relevance,omitempty"`
}

// XMetricRecord carries whatever metrics the model could read off the post.
type XMetricRecord struct {
	Likes   *FlexInt `json:"likes,omitempty"`
	Reposts *FlexInt `json:"reposts,omitempty"`
	Replies *FlexInt `json:"replies,omitempty"`
	Quotes  *FlexInt `json:"quotes,omitempty"`
}

// UnmarshalJSON decodes a record field by field. An optional field that
// cannot be read is left absent instead of failing the whole record.
func (r *RedditRecord) UnmarshalJSON(data []byte) error {
	f, err := decodeFields(data)
	if err != nil {
		return err
	}
	*r = RedditRecord{
		ID:          f.flexString("id"),
		Title:       string(f.flexString("title")),
		URL:         string(f.flexString("url")),
		Subreddit:   string(f.flexString("subreddit")),
		Date:        f.flexString("date"),
		WhyRelevant: string(f.flexString("why_relevant")),
		Relevance:   f.flexFloat("relevance"),
	}
	if raw, ok := f["thread"]; ok && !isNull(raw) {
		var thread Thread
		if err := json.Unmarshal(raw, &thread); err != nil {
			logrus.Debugf("Ignoring unreadable thread field: %v", err)
		} else {
			r.Thread = &thread
		}
	}
	return nil
}

// UnmarshalJSON decodes a record field by field, like RedditRecord.
func (x *XRecord) UnmarshalJSON(data []byte) error {
	f, err := decodeFields(data)
	if err != nil {
		return err
	}
	*x = XRecord{
		ID:           f.flexString("id"),
		Text:         string(f.flexString("text")),
		URL:          string(f.flexString("url")),
		AuthorHandle: string(f.flexString("author_handle")),
		Date:         f.flexString("date"),
		WhyRelevant:  string(f.flexString("why_relevant")),
		Relevance:    f.flexFloat("relevance"),
	}
	if raw, ok := f["engagement"]; ok && !isNull(raw) {
		var m XMetricRecord
		if err := json.Unmarshal(raw, &m); err != nil {
			logrus.Debugf("Ignoring unreadable engagement field: %v", err)
		} else {
			x.Engagement = &m
		}
	}
	return nil
}

// UnmarshalJSON keeps every metric that parses and drops the rest.
func (m *XMetricRecord) UnmarshalJSON(data []byte) error {
	f, err := decodeFields(data)
	if err != nil {
		return err
	}
	*m = XMetricRecord{
		Likes:   f.flexInt("likes"),
		Reposts: f.flexInt("reposts"),
		Replies: f.flexInt("replies"),
		Quotes:  f.flexInt("quotes"),
	}
	return nil
}

type rawFields map[string]json.RawMessage

func decodeFields(data []byte) (rawFields, error) {
	var f rawFields
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if f == nil {
		return nil, fmt.Errorf("expected an object, got %s", data)
	}
	return f, nil
}

func isNull(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}

func (f rawFields) flexString(key string) FlexString {
	raw, ok := f[key]
	if !ok {
		return ""
	}
	var v FlexString
	if err := json.Unmarshal(raw, &v); err != nil {
		logrus.Debugf("Ignoring unreadable %s field: %v", key, err)
		return ""
	}
	return v
}

func (f rawFields) flexFloat(key string) *FlexFloat {
	raw, ok := f[key]
	if !ok || isNull(raw) {
		return nil
	}
	var v FlexFloat
	if err := json.Unmarshal(raw, &v); err != nil {
		logrus.Debugf("Ignoring unreadable %s field: %v", key, err)
		return nil
	}
	return &v
}

func (f rawFields) flexInt(key string) *FlexInt {
	raw, ok := f[key]
	if !ok || isNull(raw) {
		return nil
	}
	var v FlexInt
	if err := json.Unmarshal(raw, &v); err != nil {
		logrus.Debugf("Ignoring unreadable %s field: %v", key, err)
		return nil
	}
	return &v
}

// ParseRedditRecords decodes the Reddit records out of a raw search response.
// Items that are not JSON objects are skipped.
func ParseRedditRecords(raw []byte) ([]RedditRecord, error) {
	items, err := rawItems(raw)
	if err != nil {
		return nil, err
	}

	records := make([]RedditRecord, 0, len(items))
	for i, item := range items {
		var rec RedditRecord
		if err := json.Unmarshal(item, &rec); err != nil {
			logrus.Debugf("Skipping Reddit record %d: %v", i, err)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// ParseXRecords decodes the X records out of a raw search response.
func ParseXRecords(raw []byte) ([]XRecord, error) {
	items, err := rawItems(raw)
	if err != nil {
		return nil, err
	}

	records := make([]XRecord, 0, len(items))
	for i, item := range items {
		var rec XRecord
		if err := json.Unmarshal(item, &rec); err != nil {
			logrus.Debugf("Skipping X record %d: %v", i, err)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func rawItems(raw []byte) ([]json.RawMessage, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	text, err := OutputText(raw)
	if err != nil {
		return nil, err
	}
	return extractItems(text)
}

// FlexString accepts a JSON string or number.
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = FlexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*s = FlexString(n.String())
	return nil
}

// FlexFloat accepts a JSON number or a numeric string.
type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	var n json.Number
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		n = json.Number(strings.TrimSpace(v))
	} else if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	v, err := strconv.ParseFloat(string(n), 64)
	if err != nil {
		return fmt.Errorf("invalid number %q: %w", n, err)
	}
	*f = FlexFloat(v)
	return nil
}

// FlexInt accepts numbers and display strings such as "1,204" or "3.4K".
type FlexInt int

func (i *FlexInt) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		n, err := parseCount(v)
		if err != nil {
			return err
		}
		*i = FlexInt(n)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*i = FlexInt(int(f))
	return nil
}

func parseCount(s string) (int, error) {
	s = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), ",", ""))
	mult := 1.0
	switch {
	case strings.HasSuffix(s, "K"):
		mult, s = 1e3, strings.TrimSuffix(s, "K")
	case strings.HasSuffix(s, "M"):
		mult, s = 1e6, strings.TrimSuffix(s, "M")
	case strings.HasSuffix(s, "B"):
		mult, s = 1e9, strings.TrimSuffix(s, "B")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid count %q: %w", s, err)
	}
	return int(math.Round(f * mult)), nil
}

// IntPtr converts an optional FlexInt to an optional int.
func (i *FlexInt) IntPtr() *int {
	if i == nil {
		return nil
	}
	v := int(*i)
	return &v
}
