package render

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/azure/last30days/internal/models"
	"github.com/azure/last30days/internal/sources"
	"github.com/azure/last30days/internal/storage"
	"github.com/sirupsen/logrus"
)

const (
	ReportJSONFile     = "report.json"
	ReportMarkdownFile = "report.md"
	ContextFile        = "last30days.context.md"
	RawOpenAIFile      = "raw_openai.json"
	RawXAIFile         = "raw_xai.json"
	RawEnrichedFile    = "raw_reddit_threads_enriched.json"
)

// Writer writes the artifacts of a run into an output directory.
type Writer struct {
	dir   string
	store *storage.FileStorage
}

// NewWriter creates the output directory if needed.
func NewWriter(dir string) (*Writer, error) {
	store, err := storage.NewFileStorage(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare output directory: %w", err)
	}
	return &Writer{dir: dir, store: store}, nil
}

// ContextPath is where the context snippet is written.
func (w *Writer) ContextPath() string {
	return filepath.Join(w.dir, ContextFile)
}

// WriteOutputs writes the report in every format plus the raw provider
// responses. Raw responses and enriched threads that are nil are skipped,
// so a run without that data leaves the previous files in place.
func (w *Writer) WriteOutputs(report *models.Report, rawOpenAI, rawXAI []byte, enriched []sources.RedditRecord) error {
	reportJSON, err := JSON(report)
	if err != nil {
		return err
	}

	snippet := report.ContextSnippetMD
	if snippet == "" {
		snippet = ContextSnippet(report)
	}

	var enrichedJSON []byte
	if enriched != nil {
		enrichedJSON, err = json.MarshalIndent(enriched, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal enriched threads: %w", err)
		}
	}

	files := []struct {
		name string
		data []byte
	}{
		{ReportJSONFile, reportJSON},
		{ReportMarkdownFile, []byte(FullReport(report))},
		{ContextFile, []byte(snippet)},
		{RawOpenAIFile, rawOpenAI},
		{RawXAIFile, rawXAI},
		{RawEnrichedFile, enrichedJSON},
	}

	for _, f := range files {
		if f.data == nil {
			logrus.Debugf("Skipping %s: nothing to write", f.name)
			continue
		}
		if err := w.store.Store(f.name, f.data); err != nil {
			return err
		}
	}

	logrus.Infof("Wrote report outputs to %s", w.dir)
	return nil
}
