// Package research runs the end-to-end pipeline that turns a topic into a report.
package research

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/azure/last30days/internal/cache"
	"github.com/azure/last30days/internal/config"
	"github.com/azure/last30days/internal/dates"
	"github.com/azure/last30days/internal/enrich"
	"github.com/azure/last30days/internal/fixtures"
	"github.com/azure/last30days/internal/models"
	"github.com/azure/last30days/internal/normalize"
	"github.com/azure/last30days/internal/notifications"
	"github.com/azure/last30days/internal/render"
	"github.com/azure/last30days/internal/scoring"
	"github.com/azure/last30days/internal/sources"
	"github.com/azure/last30days/internal/storage"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// WindowDays is the length of the research window.
const WindowDays = 30

const runTimeout = 10 * time.Minute

// Request is one research run as requested by the CLI or the HTTP API.
type Request struct {
	Topic   string        `json:"topic"`
	Sources string        `json:"sources,omitempty"`
	Depth   sources.Depth `json:"depth,omitempty"`
	Refresh bool          `json:"refresh,omitempty"`
	Mock    bool          `json:"mock,omitempty"`
}

// Plan is a validated request with its window and cache key resolved.
type Plan struct {
	Topic   string
	Sources string
	Depth   sources.Depth
	Mode    models.Mode
	From    string
	To      string
	Key     string
	Refresh bool
	Mock    bool
}

// ModelSelection names the model chosen for each provider.
type ModelSelection struct {
	OpenAI string `json:"openai"`
	XAI    string `json:"xai"`
}

// Service runs research requests
type Service struct {
	config              *config.Config
	cache               *cache.Cache
	writer              *render.Writer
	notificationService notifications.NotificationInterface
	reddit              sources.RedditSearcher
	x                   sources.XSearcher
	fetcher             enrich.ThreadFetcher
	now                 func() time.Time
	metrics             *Metrics
	mu                  sync.RWMutex
}

// Metrics holds run metrics
type Metrics struct {
	Runs            int            `json:"runs"`
	CacheHits       int            `json:"cache_hits"`
	LastRun         time.Time      `json:"last_run"`
	LastRunDuration string         `json:"last_run_duration"`
	LastTopic       string         `json:"last_topic"`
	SourceMetrics   map[string]int `json:"source_metrics"`
	ErrorCount      int            `json:"error_count"`
}

// Option customizes a Service.
type Option func(*Service)

// WithRedditSearcher replaces the OpenAI-backed Reddit search.
func WithRedditSearcher(r sources.RedditSearcher) Option {
	return func(s *Service) { s.reddit = r }
}

// WithXSearcher replaces the xAI-backed X search.
func WithXSearcher(x sources.XSearcher) Option {
	return func(s *Service) { s.x = x }
}

// WithThreadFetcher replaces the Reddit thread fetcher used for enrichment.
func WithThreadFetcher(f enrich.ThreadFetcher) Option {
	return func(s *Service) { s.fetcher = f }
}

// WithWriter makes every run write its output files.
func WithWriter(w *render.Writer) Option {
	return func(s *Service) { s.writer = w }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a research service. A nil store disables caching and a
// nil notifier disables delivery of watched-topic reports.
func NewService(cfg *config.Config, store storage.StorageInterface, notificationService notifications.NotificationInterface, opts ...Option) *Service {
	service := &Service{
		config:              cfg,
		notificationService: notificationService,
		reddit:              sources.NewRedditSource(cfg.OpenAIAPIKey),
		x:                   sources.NewTwitterSource(cfg.XAIAPIKey),
		fetcher:             enrich.NewRedditClient(cfg.RedditRPS),
		now:                 time.Now,
		metrics: &Metrics{
			SourceMetrics: make(map[string]int),
		},
	}
	if store != nil {
		service.cache = cache.New(store, cfg.CacheTTL)
	}

	for _, opt := range opts {
		opt(service)
	}

	return service
}

// Plan validates a request and resolves its sources, window and cache key.
// It makes no external calls.
func (s *Service) Plan(req Request) (*Plan, error) {
	topic := strings.Join(strings.Fields(req.Topic), " ")
	if topic == "" {
		return nil, errors.New("a topic is required")
	}

	depth := req.Depth
	if depth == "" {
		depth = sources.DepthDefault
	}
	if !depth.Valid() {
		return nil, fmt.Errorf("invalid depth %q (use quick, default or deep)", req.Depth)
	}

	requested := req.Sources
	if requested == "" {
		requested = config.SourcesAuto
	}

	available := s.config.AvailableSources()
	if req.Mock {
		available = config.SourcesBoth
	}
	selected, err := config.ValidateSources(requested, available)
	if err != nil {
		return nil, err
	}

	mode, err := models.ModeForSources(selected)
	if err != nil {
		return nil, err
	}

	from, to := dates.GetDateRangeAt(s.now(), WindowDays)

	return &Plan{
		Topic:   topic,
		Sources: selected,
		Depth:   depth,
		Mode:    mode,
		From:    from,
		To:      to,
		Key:     cache.Key(topic, from, to, selected+":"+string(depth)),
		Refresh: req.Refresh,
		Mock:    req.Mock,
	}, nil
}

// Run executes a request and returns the assembled report. Source failures
// are recorded on the report; only planning errors are returned.
func (s *Service) Run(ctx context.Context, req Request) (*models.Report, error) {
	plan, err := s.Plan(req)
	if err != nil {
		return nil, err
	}
	return s.Execute(ctx, plan)
}

// Execute runs a validated plan.
func (s *Service) Execute(ctx context.Context, plan *Plan) (*models.Report, error) {
	start := time.Now()
	log := logrus.WithFields(logrus.Fields{
		"run_id": uuid.NewString(),
		"topic":  plan.Topic,
	})

	if s.cache != nil && !plan.Refresh && !plan.Mock {
		report, err := s.cache.Load(plan.Key)
		if err == nil {
			log.Infof("Using cached report %s", plan.Key)
			s.recordCacheHit()
			if s.writer != nil {
				if err := s.writer.WriteOutputs(report, nil, nil, nil); err != nil {
					log.Errorf("Failed to write outputs: %v", err)
				}
			}
			return report, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			log.Warnf("Cache lookup failed: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	redditSearcher, xSearcher, fetcher := s.reddit, s.x, s.fetcher
	if plan.Mock {
		redditSearcher, xSearcher = mockReddit, mockX
		fetcher = enrich.StaticFetcher{Data: fixtures.MustLoad(fixtures.RedditThreadSample)}
	}

	selection := s.selectModels(ctx, plan.Mode, redditSearcher, xSearcher)

	window, err := dates.NewWindow(plan.From, plan.To)
	if err != nil {
		return nil, err
	}
	now := s.now()
	st := stages{
		normalizer: normalize.New(window, now),
		scorer:     scoring.New(s.config.ScoringConfig(), window),
	}

	log.Infof("Researching %s from %s to %s (%s, %s)", plan.Mode, plan.From, plan.To, plan.Sources, plan.Depth)

	var (
		wg     sync.WaitGroup
		reddit redditResult
		x      xResult
	)

	if plan.Mode.IncludesReddit() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q := sources.Query{Topic: plan.Topic, Model: selection.OpenAI, From: plan.From, To: plan.To, Depth: plan.Depth}
			enricher := enrich.NewEnricher(fetcher, s.config.EnrichConcurrency)
			reddit = runReddit(ctx, log, redditSearcher, enricher, st, q)
		}()
	}

	if plan.Mode.IncludesX() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q := sources.Query{Topic: plan.Topic, Model: selection.XAI, From: plan.From, To: plan.To, Depth: plan.Depth}
			x = runX(ctx, log, xSearcher, st, q)
		}()
	}

	wg.Wait()

	report := models.NewReport(plan.Topic, plan.From, plan.To, plan.Mode, selection.OpenAI, selection.XAI, now)
	errorCount := 0

	if reddit.err != nil {
		log.Errorf("Reddit search failed: %v", reddit.err)
		report.RedditError = reddit.err.Error()
		errorCount++
	} else if reddit.items != nil {
		report.Reddit = reddit.items
	}

	if x.err != nil {
		log.Errorf("X search failed: %v", x.err)
		report.XError = x.err.Error()
		errorCount++
	} else if x.items != nil {
		report.X = x.items
	}

	report.ContextSnippetMD = render.ContextSnippet(report)

	if s.writer != nil {
		if err := s.writer.WriteOutputs(report, reddit.raw, x.raw, reddit.enriched); err != nil {
			log.Errorf("Failed to write outputs: %v", err)
		}
	}

	if s.cache != nil && !plan.Mock {
		if err := s.cache.Save(plan.Key, report); err != nil {
			log.Warnf("Failed to cache report: %v", err)
		}
	}

	s.updateMetrics(report, time.Since(start), errorCount)
	log.Infof("Research completed in %v: %d Reddit threads, %d X posts", time.Since(start).Round(time.Millisecond), len(report.Reddit), len(report.X))

	return report, nil
}

// SelectModels resolves the model for each provider the mode uses without
// running a search.
func (s *Service) SelectModels(ctx context.Context, mode models.Mode, mock bool) ModelSelection {
	redditSearcher, xSearcher := s.reddit, s.x
	if mock {
		redditSearcher, xSearcher = mockReddit, mockX
	}
	return s.selectModels(ctx, mode, redditSearcher, xSearcher)
}

func (s *Service) selectModels(ctx context.Context, mode models.Mode, redditSearcher sources.RedditSearcher, xSearcher sources.XSearcher) ModelSelection {
	var selection ModelSelection
	if mode.IncludesReddit() {
		selection.OpenAI = pickModel(ctx, sources.OpenAIPolicy, redditSearcher, s.config.OpenAIModel)
	}
	if mode.IncludesX() {
		selection.XAI = pickModel(ctx, sources.XAIPolicy, xSearcher, s.config.XAIModel)
	}
	return selection
}

func pickModel(ctx context.Context, policy sources.ModelPolicy, src sources.Source, pinned string) string {
	if pinned != "" {
		return pinned
	}

	lister, ok := src.(sources.ModelLister)
	if !ok {
		return policy.Fallback
	}

	available, err := lister.ListModels(ctx)
	if err != nil {
		logrus.Warnf("Failed to list %s models, using %s: %v", src.GetName(), policy.Fallback, err)
		return policy.Fallback
	}

	return policy.Select(available, "")
}

// Cached returns a stored report by cache key regardless of its age.
func (s *Service) Cached(key string) (*models.Report, error) {
	if s.cache == nil {
		return nil, cache.ErrMiss
	}
	report, _, err := s.cache.Get(key)
	return report, err
}

// RunWatch refreshes every watched topic and delivers the reports.
func (s *Service) RunWatch(ctx context.Context) error {
	if len(s.config.WatchTopics) == 0 {
		logrus.Info("No watched topics configured")
		return nil
	}

	var failures []string
	for _, topic := range s.config.WatchTopics {
		report, err := s.Run(ctx, Request{Topic: topic, Refresh: true})
		if err != nil {
			logrus.Errorf("Watched topic %q failed: %v", topic, err)
			failures = append(failures, fmt.Sprintf("%s: %v", topic, err))
			continue
		}

		if s.notificationService == nil || !s.config.NotificationsEnabled() {
			continue
		}
		if err := s.notificationService.SendReport(report); err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", topic, err))
		}
	}

	if len(failures) > 0 {
		return fmt.Errorf("watch run errors: %s", strings.Join(failures, "; "))
	}
	return nil
}

func (s *Service) recordCacheHit() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics.CacheHits++
}

func (s *Service) updateMetrics(report *models.Report, duration time.Duration, errorCount int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics.Runs++
	s.metrics.LastRun = s.now()
	s.metrics.LastRunDuration = duration.String()
	s.metrics.LastTopic = report.Topic
	s.metrics.ErrorCount += errorCount
	s.metrics.SourceMetrics["reddit"] += len(report.Reddit)
	s.metrics.SourceMetrics["x"] += len(report.X)
}

// GetMetrics returns current metrics as JSON
func (s *Service) GetMetrics() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, _ := json.MarshalIndent(s.metrics, "", "  ")
	return string(data)
}
