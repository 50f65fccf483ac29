package research

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/azure/last30days/internal/config"
	"github.com/azure/last30days/internal/enrich"
	"github.com/azure/last30days/internal/fixtures"
	"github.com/azure/last30days/internal/models"
	"github.com/azure/last30days/internal/render"
	"github.com/azure/last30days/internal/scoring"
	"github.com/azure/last30days/internal/sources"
	"github.com/azure/last30days/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 15, 18, 30, 0, 0, time.UTC)

// MockRedditSearcher is a mock implementation of sources.RedditSearcher
type MockRedditSearcher struct {
	mock.Mock
}

func (m *MockRedditSearcher) GetName() string { return "reddit" }
func (m *MockRedditSearcher) IsEnabled() bool { return true }

func (m *MockRedditSearcher) SearchReddit(ctx context.Context, q sources.Query) (*sources.Response, error) {
	args := m.Called(ctx, q)
	resp, _ := args.Get(0).(*sources.Response)
	return resp, args.Error(1)
}

// MockXSearcher is a mock implementation of sources.XSearcher
type MockXSearcher struct {
	mock.Mock
}

func (m *MockXSearcher) GetName() string { return "x" }
func (m *MockXSearcher) IsEnabled() bool { return true }

func (m *MockXSearcher) SearchX(ctx context.Context, q sources.Query) (*sources.Response, error) {
	args := m.Called(ctx, q)
	resp, _ := args.Get(0).(*sources.Response)
	return resp, args.Error(1)
}

// MockNotificationService is a mock implementation of the notification interface
type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) SendReport(report *models.Report) error {
	args := m.Called(report)
	return args.Error(0)
}

func testConfig() *config.Config {
	return &config.Config{
		OpenAIAPIKey:      "sk-test",
		XAIAPIKey:         "xai-test",
		OpenAIModel:       "gpt-5",
		XAIModel:          "grok-4-0709",
		CacheTTL:          time.Hour,
		RedditRPS:         100,
		EnrichConcurrency: 2,
		Weights:           scoring.DefaultConfig().Weights,
	}
}

func fixtureResponse(t *testing.T, name string) *sources.Response {
	t.Helper()
	data, err := fixtures.Load(name)
	require.NoError(t, err)
	return &sources.Response{Raw: data}
}

func newTestService(t *testing.T, cfg *config.Config, store storage.StorageInterface, reddit *MockRedditSearcher, x *MockXSearcher, opts ...Option) *Service {
	t.Helper()
	opts = append([]Option{
		WithRedditSearcher(reddit),
		WithXSearcher(x),
		WithThreadFetcher(enrich.StaticFetcher{Data: fixtures.MustLoad(fixtures.RedditThreadSample)}),
		WithClock(func() time.Time { return testNow }),
	}, opts...)
	return NewService(cfg, store, nil, opts...)
}

func TestService_Plan(t *testing.T) {
	svc := newTestService(t, testConfig(), nil, &MockRedditSearcher{}, &MockXSearcher{})

	plan, err := svc.Plan(Request{Topic: "  claude   code skills "})
	require.NoError(t, err)
	assert.Equal(t, "claude code skills", plan.Topic)
	assert.Equal(t, config.SourcesBoth, plan.Sources)
	assert.Equal(t, sources.DepthDefault, plan.Depth)
	assert.Equal(t, models.ModeBoth, plan.Mode)
	assert.Equal(t, "2026-02-13", plan.From)
	assert.Equal(t, "2026-03-15", plan.To)
	assert.Len(t, plan.Key, 16)

	quick, err := svc.Plan(Request{Topic: "claude code skills", Depth: sources.DepthQuick})
	require.NoError(t, err)
	assert.NotEqual(t, plan.Key, quick.Key)
}

func TestService_PlanErrors(t *testing.T) {
	redditOnly := testConfig()
	redditOnly.XAIAPIKey = ""
	noKeys := testConfig()
	noKeys.OpenAIAPIKey, noKeys.XAIAPIKey = "", ""

	tests := []struct {
		name string
		cfg  *config.Config
		req  Request
	}{
		{name: "Empty topic", cfg: testConfig(), req: Request{Topic: "   "}},
		{name: "Bad depth", cfg: testConfig(), req: Request{Topic: "go", Depth: "extreme"}},
		{name: "Bad sources", cfg: testConfig(), req: Request{Topic: "go", Sources: "youtube"}},
		{name: "No keys", cfg: noKeys, req: Request{Topic: "go"}},
		{name: "X without key", cfg: redditOnly, req: Request{Topic: "go", Sources: "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reddit, x := &MockRedditSearcher{}, &MockXSearcher{}
			svc := newTestService(t, tt.cfg, nil, reddit, x)

			_, err := svc.Run(context.Background(), tt.req)
			assert.Error(t, err)
			reddit.AssertNotCalled(t, "SearchReddit", mock.Anything, mock.Anything)
			x.AssertNotCalled(t, "SearchX", mock.Anything, mock.Anything)
		})
	}
}

func TestService_Run_RedditOnly(t *testing.T) {
	cfg := testConfig()
	cfg.XAIAPIKey = ""

	reddit, x := &MockRedditSearcher{}, &MockXSearcher{}
	reddit.On("SearchReddit", mock.Anything, mock.MatchedBy(func(q sources.Query) bool {
		return q.Topic == "claude code skills" && q.Model == "gpt-5" && q.From == "2026-02-13" && q.Depth == sources.DepthDefault
	})).Return(fixtureResponse(t, fixtures.OpenAISample), nil)

	svc := newTestService(t, cfg, nil, reddit, x)
	report, err := svc.Run(context.Background(), Request{Topic: "claude code skills"})
	require.NoError(t, err)

	assert.Equal(t, models.ModeRedditOnly, report.Mode)
	require.Len(t, report.Reddit, 3)
	assert.Empty(t, report.X)
	assert.Empty(t, report.XError)
	require.NotNil(t, report.OpenAIModelUsed)
	assert.Equal(t, "gpt-5", *report.OpenAIModelUsed)
	assert.Nil(t, report.XAIModelUsed)
	assert.Contains(t, report.ContextSnippetMD, "claude code skills")

	for i := 1; i < len(report.Reddit); i++ {
		assert.False(t, scoring.Less(report.Reddit[i], report.Reddit[i-1]), "reddit items out of order at %d", i)
	}
	for _, item := range report.Reddit {
		require.NotNil(t, item.Engagement)
		assert.Equal(t, 412, *item.Engagement.Score)
		assert.Equal(t, models.ConfidenceHigh, item.DateConfidence)
	}

	data, err := json.Marshal(report)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"x":[]`)
	assert.NotContains(t, string(data), "x_error")

	reddit.AssertExpectations(t)
	x.AssertNotCalled(t, "SearchX", mock.Anything, mock.Anything)
}

func TestService_Run_SourceErrorIsolated(t *testing.T) {
	reddit, x := &MockRedditSearcher{}, &MockXSearcher{}
	reddit.On("SearchReddit", mock.Anything, mock.Anything).
		Return(nil, &sources.APIError{Provider: "openai", StatusCode: 429, Body: "rate limited"})
	x.On("SearchX", mock.Anything, mock.Anything).Return(fixtureResponse(t, fixtures.XAISample), nil)

	svc := newTestService(t, testConfig(), nil, reddit, x)
	report, err := svc.Run(context.Background(), Request{Topic: "claude code skills"})
	require.NoError(t, err)

	assert.Equal(t, models.ModeBoth, report.Mode)
	assert.Contains(t, report.RedditError, "429")
	assert.Empty(t, report.Reddit)
	assert.NotNil(t, report.Reddit)
	assert.Empty(t, report.XError)
	assert.Len(t, report.X, 3)

	var metrics Metrics
	require.NoError(t, json.Unmarshal([]byte(svc.GetMetrics()), &metrics))
	assert.Equal(t, 1, metrics.Runs)
	assert.Equal(t, 1, metrics.ErrorCount)
	assert.Equal(t, 3, metrics.SourceMetrics["x"])
}

func TestService_Run_UnparseableResponse(t *testing.T) {
	reddit, x := &MockRedditSearcher{}, &MockXSearcher{}
	reddit.On("SearchReddit", mock.Anything, mock.Anything).Return(fixtureResponse(t, fixtures.OpenAISample), nil)
	x.On("SearchX", mock.Anything, mock.Anything).Return(&sources.Response{Raw: []byte(`{"output": 7}`)}, nil)

	svc := newTestService(t, testConfig(), nil, reddit, x)
	report, err := svc.Run(context.Background(), Request{Topic: "claude code skills"})
	require.NoError(t, err)

	assert.Len(t, report.Reddit, 3)
	assert.NotEmpty(t, report.XError)
	assert.Empty(t, report.X)
}

func TestService_Run_Cache(t *testing.T) {
	store, err := storage.NewFileStorage(t.TempDir())
	require.NoError(t, err)

	cfg := testConfig()
	cfg.XAIAPIKey = ""
	reddit, x := &MockRedditSearcher{}, &MockXSearcher{}
	reddit.On("SearchReddit", mock.Anything, mock.Anything).Return(fixtureResponse(t, fixtures.OpenAISample), nil)

	svc := newTestService(t, cfg, store, reddit, x)
	ctx := context.Background()

	first, err := svc.Run(ctx, Request{Topic: "claude code skills"})
	require.NoError(t, err)
	reddit.AssertNumberOfCalls(t, "SearchReddit", 1)

	second, err := svc.Run(ctx, Request{Topic: "claude code skills"})
	require.NoError(t, err)
	reddit.AssertNumberOfCalls(t, "SearchReddit", 1)
	assert.Equal(t, first.Topic, second.Topic)
	assert.Equal(t, len(first.Reddit), len(second.Reddit))
	assert.Equal(t, first.RangeFrom, second.RangeFrom)

	_, err = svc.Run(ctx, Request{Topic: "claude code skills", Refresh: true})
	require.NoError(t, err)
	reddit.AssertNumberOfCalls(t, "SearchReddit", 2)

	plan, err := svc.Plan(Request{Topic: "claude code skills"})
	require.NoError(t, err)
	cached, err := svc.Cached(plan.Key)
	require.NoError(t, err)
	assert.Equal(t, "claude code skills", cached.Topic)

	var metrics Metrics
	require.NoError(t, json.Unmarshal([]byte(svc.GetMetrics()), &metrics))
	assert.Equal(t, 2, metrics.Runs)
	assert.Equal(t, 1, metrics.CacheHits)
}

func TestService_Run_Reproducible(t *testing.T) {
	reddit, x := &MockRedditSearcher{}, &MockXSearcher{}
	reddit.On("SearchReddit", mock.Anything, mock.Anything).Return(fixtureResponse(t, fixtures.OpenAISample), nil)
	x.On("SearchX", mock.Anything, mock.Anything).Return(fixtureResponse(t, fixtures.XAISample), nil)

	svc := newTestService(t, testConfig(), nil, reddit, x)
	ctx := context.Background()

	first, err := svc.Run(ctx, Request{Topic: "claude code skills", Refresh: true})
	require.NoError(t, err)
	second, err := svc.Run(ctx, Request{Topic: "claude code skills", Refresh: true})
	require.NoError(t, err)

	assert.Equal(t, "2026-03-15T18:30:00Z", first.GeneratedAt, "stamped by the service clock")

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestService_Run_CacheHitKeepsRawArtifacts(t *testing.T) {
	store, err := storage.NewFileStorage(t.TempDir())
	require.NoError(t, err)
	out := t.TempDir()
	writer, err := render.NewWriter(out)
	require.NoError(t, err)

	cfg := testConfig()
	cfg.XAIAPIKey = ""
	reddit, x := &MockRedditSearcher{}, &MockXSearcher{}
	reddit.On("SearchReddit", mock.Anything, mock.Anything).Return(fixtureResponse(t, fixtures.OpenAISample), nil)

	svc := newTestService(t, cfg, store, reddit, x, WithWriter(writer))
	ctx := context.Background()

	_, err = svc.Run(ctx, Request{Topic: "claude code skills"})
	require.NoError(t, err)
	enriched, err := os.ReadFile(filepath.Join(out, render.RawEnrichedFile))
	require.NoError(t, err)
	require.NotEqual(t, "[]", string(enriched))

	_, err = svc.Run(ctx, Request{Topic: "claude code skills"})
	require.NoError(t, err)
	reddit.AssertNumberOfCalls(t, "SearchReddit", 1)

	after, err := os.ReadFile(filepath.Join(out, render.RawEnrichedFile))
	require.NoError(t, err)
	assert.Equal(t, string(enriched), string(after))
}

func TestService_Run_Mock(t *testing.T) {
	store, err := storage.NewFileStorage(t.TempDir())
	require.NoError(t, err)
	out := t.TempDir()
	writer, err := render.NewWriter(out)
	require.NoError(t, err)

	cfg := testConfig()
	cfg.OpenAIAPIKey, cfg.XAIAPIKey = "", ""
	cfg.OpenAIModel, cfg.XAIModel = "", ""
	reddit, x := &MockRedditSearcher{}, &MockXSearcher{}

	svc := newTestService(t, cfg, store, reddit, x, WithWriter(writer))
	report, err := svc.Run(context.Background(), Request{Topic: "claude code skills", Mock: true})
	require.NoError(t, err)

	assert.Equal(t, models.ModeBoth, report.Mode)
	assert.Len(t, report.Reddit, 3)
	assert.Len(t, report.X, 3)
	require.NotNil(t, report.OpenAIModelUsed)
	assert.Equal(t, "gpt-5", *report.OpenAIModelUsed)
	require.NotNil(t, report.XAIModelUsed)
	assert.Equal(t, "grok-4-0709", *report.XAIModelUsed)

	reddit.AssertNotCalled(t, "SearchReddit", mock.Anything, mock.Anything)
	x.AssertNotCalled(t, "SearchX", mock.Anything, mock.Anything)

	keys, err := store.List("reports/")
	require.NoError(t, err)
	assert.Empty(t, keys)

	for _, name := range []string{render.ReportJSONFile, render.ReportMarkdownFile, render.ContextFile, render.RawOpenAIFile, render.RawXAIFile, render.RawEnrichedFile} {
		_, err := os.Stat(filepath.Join(out, name))
		assert.NoError(t, err, name)
	}
}

func TestService_SelectModels(t *testing.T) {
	cfg := testConfig()
	cfg.XAIModel = ""
	svc := newTestService(t, cfg, nil, &MockRedditSearcher{}, &MockXSearcher{})

	selection := svc.SelectModels(context.Background(), models.ModeBoth, false)
	assert.Equal(t, "gpt-5", selection.OpenAI)
	assert.Equal(t, sources.XAIPolicy.Fallback, selection.XAI)

	selection = svc.SelectModels(context.Background(), models.ModeXOnly, true)
	assert.Empty(t, selection.OpenAI)
	assert.Equal(t, "grok-4-0709", selection.XAI)
}

func TestService_RunWatch(t *testing.T) {
	cfg := testConfig()
	cfg.XAIAPIKey = ""
	cfg.WatchTopics = []string{"claude code skills", "rust async"}
	cfg.TeamsWebhookURL = "https://example.com/webhook"

	reddit := &MockRedditSearcher{}
	reddit.On("SearchReddit", mock.Anything, mock.MatchedBy(func(q sources.Query) bool { return q.Topic == "claude code skills" })).
		Return(fixtureResponse(t, fixtures.OpenAISample), nil)
	reddit.On("SearchReddit", mock.Anything, mock.MatchedBy(func(q sources.Query) bool { return q.Topic == "rust async" })).
		Return(nil, errors.New("timeout"))

	notifier := &MockNotificationService{}
	notifier.On("SendReport", mock.MatchedBy(func(r *models.Report) bool { return r.Topic == "claude code skills" })).Return(nil)
	notifier.On("SendReport", mock.MatchedBy(func(r *models.Report) bool { return r.Topic == "rust async" })).Return(errors.New("webhook down"))

	svc := NewService(cfg, nil, notifier,
		WithRedditSearcher(reddit),
		WithThreadFetcher(enrich.StaticFetcher{Data: fixtures.MustLoad(fixtures.RedditThreadSample)}),
		WithClock(func() time.Time { return testNow }),
	)

	err := svc.RunWatch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rust async: webhook down")
	assert.NotContains(t, err.Error(), "claude code skills")
	notifier.AssertNumberOfCalls(t, "SendReport", 2)
}

func TestService_RunWatch_NoTopics(t *testing.T) {
	notifier := &MockNotificationService{}
	svc := NewService(testConfig(), nil, notifier)

	assert.NoError(t, svc.RunWatch(context.Background()))
	notifier.AssertNotCalled(t, "SendReport", mock.Anything)
}
