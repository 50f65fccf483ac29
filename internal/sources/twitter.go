package sources

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// TwitterSource finds X posts through the xAI Responses API with X search.
type TwitterSource struct {
	apiKey string
	api    *responsesClient
}

var (
	_ XSearcher   = (*TwitterSource)(nil)
	_ ModelLister = (*TwitterSource)(nil)
)

// NewTwitterSource creates a new X source backed by xAI
func NewTwitterSource(apiKey string) *TwitterSource {
	return NewTwitterSourceWithURL(apiKey, XAIBaseURL)
}

// NewTwitterSourceWithURL points the source at another xAI-compatible endpoint.
func NewTwitterSourceWithURL(apiKey, baseURL string) *TwitterSource {
	return &TwitterSource{
		apiKey: apiKey,
		api:    newResponsesClient("xAI", baseURL, apiKey),
	}
}

func (t *TwitterSource) GetName() string {
	return "x"
}

func (t *TwitterSource) IsEnabled() bool {
	return t.apiKey != ""
}

// ListModels lists the xAI models available to the key.
func (t *TwitterSource) ListModels(ctx context.Context) ([]ModelInfo, error) {
	return t.api.ListModels(ctx)
}

// SearchX asks the model to search X for posts about the topic inside the window.
func (t *TwitterSource) SearchX(ctx context.Context, q Query) (*Response, error) {
	if !t.IsEnabled() {
		return nil, fmt.Errorf("x source disabled - missing xAI API key")
	}

	counts := q.Depth.XCounts()
	body := map[string]any{
		"model": q.Model,
		"tools": []map[string]any{{
			"type":      "x_search",
			"from_date": q.From,
			"to_date":   q.To,
		}},
		"input": []map[string]string{{
			"role":    "user",
			"content": xPrompt(q.Topic, q.From, q.To, counts),
		}},
	}

	logrus.Infof("Searching X for %q with %s (%d-%d posts)", q.Topic, q.Model, counts.Min, counts.Max)
	raw, err := t.api.post(ctx, "/responses", body)
	if err != nil {
		return nil, err
	}

	return &Response{Raw: raw}, nil
}

func xPrompt(topic, from, to string, c Counts) string {
	return fmt.Sprintf(`Find %d-%d X posts about: %s

Only include posts from %s to %s. Skip reposts and spam.

Return JSON only:
{"items": [{"text": "...", "url": "https://x.com/handle/status/...", "author_handle": "...", "date": "YYYY-MM-DD or null", "engagement": {"likes": 0, "reposts": 0, "replies": 0, "quotes": 0}, "why_relevant": "...", "relevance": 0.0}]}

relevance is 0.0-1.0. Use null for metrics or dates you cannot see.`, c.Min, c.Max, topic, from, to)
}
