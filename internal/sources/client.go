package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

const (
	userAgent     = "last30days/1.0"
	searchTimeout = 180 * time.Second
	maxErrorBody  = 500
	OpenAIBaseURL = "https://api.openai.com/v1"
	XAIBaseURL    = "https://api.x.ai/v1"
)

// APIError is returned when a provider answers with a non-2xx status.
type APIError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API returned status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// responsesClient talks to an OpenAI-compatible Responses API.
type responsesClient struct {
	provider string
	baseURL  string
	apiKey   string
	client   *resty.Client
}

func newResponsesClient(provider, baseURL, apiKey string) *responsesClient {
	return &responsesClient{
		provider: provider,
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		client: resty.New().
			SetTimeout(searchTimeout).
			SetHeader("User-Agent", userAgent),
	}
}

func (c *responsesClient) post(ctx context.Context, path string, body any) ([]byte, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetAuthToken(c.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(c.baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", c.provider, err)
	}

	if resp.IsError() {
		return nil, &APIError{Provider: c.provider, StatusCode: resp.StatusCode(), Body: truncate(string(resp.Body()), maxErrorBody)}
	}

	logrus.Debugf("%s %s returned %d bytes", c.provider, path, len(resp.Body()))
	return resp.Body(), nil
}

func (c *responsesClient) get(ctx context.Context, path string) ([]byte, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetAuthToken(c.apiKey).
		Get(c.baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", c.provider, err)
	}

	if resp.IsError() {
		return nil, &APIError{Provider: c.provider, StatusCode: resp.StatusCode(), Body: truncate(string(resp.Body()), maxErrorBody)}
	}

	return resp.Body(), nil
}

// ListModels fetches the provider's /models listing.
func (c *responsesClient) ListModels(ctx context.Context) ([]ModelInfo, error) {
	body, err := c.get(ctx, "/models")
	if err != nil {
		return nil, err
	}
	return ParseModelList(body)
}

// OutputText pulls the assistant text out of a Responses API payload.
// Chat-completions payloads are accepted as well.
func OutputText(raw []byte) (string, error) {
	var payload struct {
		OutputText string `json:"output_text"`
		Output     []struct {
			Type    string `json:"type"`
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"output"`
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Error json.RawMessage `json:"error"`
	}

	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if len(payload.Error) > 0 && string(payload.Error) != "null" {
		return "", fmt.Errorf("response carries error: %s", truncate(string(payload.Error), maxErrorBody))
	}

	if payload.OutputText != "" {
		return payload.OutputText, nil
	}

	var parts []string
	for _, out := range payload.Output {
		if out.Type != "message" {
			continue
		}
		for _, c := range out.Content {
			if c.Type == "output_text" && c.Text != "" {
				parts = append(parts, c.Text)
			}
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, "\n"), nil
	}

	for _, choice := range payload.Choices {
		if choice.Message.Content != "" {
			return choice.Message.Content, nil
		}
	}

	return "", errors.New("response has no output text")
}

// extractItems finds the {"items": [...]} object inside model output and
// returns its elements undecoded.
func extractItems(text string) ([]json.RawMessage, error) {
	var envelope struct {
		Items []json.RawMessage `json:"items"`
	}

	trimmed := strings.TrimSpace(text)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	if err := json.Unmarshal([]byte(strings.TrimSpace(trimmed)), &envelope); err == nil && envelope.Items != nil {
		return envelope.Items, nil
	}

	idx := strings.Index(text, `"items"`)
	if idx < 0 {
		return nil, errors.New("no items object in output")
	}
	start := strings.LastIndex(text[:idx], "{")
	if start < 0 {
		return nil, errors.New("no items object in output")
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(text[start:])))
	if err := dec.Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode items object: %w", err)
	}
	return envelope.Items, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
