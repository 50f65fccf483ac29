package research

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/azure/last30days/internal/dedupe"
	"github.com/azure/last30days/internal/enrich"
	"github.com/azure/last30days/internal/models"
	"github.com/azure/last30days/internal/normalize"
	"github.com/azure/last30days/internal/scoring"
	"github.com/azure/last30days/internal/sources"
	"github.com/sirupsen/logrus"
)

// stages holds the per-run transformation stages shared by both pipelines.
type stages struct {
	normalizer *normalize.Normalizer
	scorer     *scoring.Scorer
}

type redditResult struct {
	items    []models.RedditItem
	raw      json.RawMessage
	enriched []sources.RedditRecord
	err      error
}

type xResult struct {
	items []models.XItem
	raw   json.RawMessage
	err   error
}

func runReddit(ctx context.Context, log *logrus.Entry, searcher sources.RedditSearcher, enricher *enrich.Enricher, st stages, q sources.Query) redditResult {
	resp, err := searcher.SearchReddit(ctx, q)
	if err != nil {
		return redditResult{err: err}
	}

	records, err := sources.ParseRedditRecords(resp.Raw)
	if err != nil {
		return redditResult{raw: resp.Raw, err: fmt.Errorf("failed to parse Reddit results: %w", err)}
	}
	log.Infof("Found %d Reddit threads", len(records))

	enriched := enricher.Enrich(ctx, records)

	items := st.normalizer.Reddit(enriched)
	items = st.scorer.ScoreReddit(items)
	scoring.SortReddit(items)
	items = dedupe.Dedupe(items)
	log.Infof("Kept %d Reddit threads after dedupe", len(items))

	return redditResult{items: items, raw: resp.Raw, enriched: enriched}
}

func runX(ctx context.Context, log *logrus.Entry, searcher sources.XSearcher, st stages, q sources.Query) xResult {
	resp, err := searcher.SearchX(ctx, q)
	if err != nil {
		return xResult{err: err}
	}

	records, err := sources.ParseXRecords(resp.Raw)
	if err != nil {
		return xResult{raw: resp.Raw, err: fmt.Errorf("failed to parse X results: %w", err)}
	}
	log.Infof("Found %d X posts", len(records))

	items := st.normalizer.X(records)
	items = st.scorer.ScoreX(items)
	scoring.SortX(items)
	items = dedupe.Dedupe(items)
	log.Infof("Kept %d X posts after dedupe", len(items))

	return xResult{items: items, raw: resp.Raw}
}
