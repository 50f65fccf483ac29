package sources

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// RedditSource finds Reddit threads through the OpenAI Responses API with web search.
type RedditSource struct {
	apiKey string
	api    *responsesClient
}

var (
	_ RedditSearcher = (*RedditSource)(nil)
	_ ModelLister    = (*RedditSource)(nil)
)

// NewRedditSource creates a new Reddit source backed by OpenAI
func NewRedditSource(apiKey string) *RedditSource {
	return NewRedditSourceWithURL(apiKey, OpenAIBaseURL)
}

// NewRedditSourceWithURL points the source at another OpenAI-compatible endpoint.
func NewRedditSourceWithURL(apiKey, baseURL string) *RedditSource {
	return &RedditSource{
		apiKey: apiKey,
		api:    newResponsesClient("OpenAI", baseURL, apiKey),
	}
}

func (r *RedditSource) GetName() string {
	return "reddit"
}

func (r *RedditSource) IsEnabled() bool {
	return r.apiKey != ""
}

// ListModels lists the OpenAI models available to the key.
func (r *RedditSource) ListModels(ctx context.Context) ([]ModelInfo, error) {
	return r.api.ListModels(ctx)
}

// SearchReddit asks the model to search Reddit for recent threads about the topic.
func (r *RedditSource) SearchReddit(ctx context.Context, q Query) (*Response, error) {
	if !r.IsEnabled() {
		return nil, fmt.Errorf("reddit source disabled - missing OpenAI API key")
	}

	counts := q.Depth.RedditCounts()
	body := map[string]any{
		"model": q.Model,
		"tools": []map[string]any{{
			"type": "web_search",
			"filters": map[string]any{
				"allowed_domains": []string{"reddit.com"},
			},
		}},
		"include": []string{"web_search_call.action.sources"},
		"input":   redditPrompt(q.Topic, q.From, q.To, counts),
	}

	logrus.Infof("Searching Reddit for %q with %s (%d-%d threads)", q.Topic, q.Model, counts.Min, counts.Max)
	raw, err := r.api.post(ctx, "/responses", body)
	if err != nil {
		return nil, err
	}

	return &Response{Raw: raw}, nil
}

func redditPrompt(topic, from, to string, c Counts) string {
	return fmt.Sprintf(`Find %d-%d Reddit discussion threads about: %s

Only include threads posted between %s and %s. Prefer threads with real discussion.

Return JSON only:
{"items": [{"title": "...", "url": "https://www.reddit.com/r/.../comments/...", "subreddit": "...", "date": "YYYY-MM-DD or null", "why_relevant": "...", "relevance": 0.0}]}

relevance is 0.0-1.0. Use null for dates you cannot verify.`, c.Min, c.Max, topic, from, to)
}
