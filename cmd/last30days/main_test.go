package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/azure/last30days/internal/config"
	"github.com/azure/last30days/internal/models"
	"github.com/azure/last30days/internal/render"
	"github.com/azure/last30days/internal/research"
	"github.com/azure/last30days/internal/scoring"
	"github.com/azure/last30days/internal/sources"
	"github.com/azure/last30days/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResearchOptions_Validate(t *testing.T) {
	tests := []struct {
		name    string
		opts    researchOptions
		want    sources.Depth
		wantErr bool
	}{
		{name: "Defaults", opts: researchOptions{emit: emitCompact}, want: sources.DepthDefault},
		{name: "Quick", opts: researchOptions{emit: emitJSON, quick: true}, want: sources.DepthQuick},
		{name: "Deep", opts: researchOptions{emit: emitPath, deep: true}, want: sources.DepthDeep},
		{name: "Quick and deep", opts: researchOptions{emit: emitCompact, quick: true, deep: true}, wantErr: true},
		{name: "Unknown emit", opts: researchOptions{emit: "html"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.opts.validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRootCmd_FailsBeforeAnyCall(t *testing.T) {
	tests := []struct {
		name string
		args []string
		msg  string
	}{
		{name: "Quick and deep", args: []string{"--quick", "--deep", "rust"}, msg: "--quick and --deep"},
		{name: "Missing topic", args: []string{"--mock"}, msg: "topic is required"},
		{name: "Bad emit", args: []string{"--emit=xml", "rust"}, msg: "invalid --emit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := rootCmd()
			var out bytes.Buffer
			cmd.SetOut(&out)
			cmd.SetArgs(tt.args)

			err := cmd.Execute()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
			assert.Empty(t, out.String())
		})
	}
}

func sampleReport() *models.Report {
	date := "2026-03-10"
	report := models.NewReport("rust async", "2026-02-13", "2026-03-15", models.ModeRedditOnly, "gpt-5", "", time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC))
	report.Reddit = []models.RedditItem{{
		ID: "abc", Title: "Tokio or smol in 2026?", URL: "https://www.reddit.com/r/rust/comments/abc/x/",
		Subreddit: "rust", Date: &date, DateConfidence: models.ConfidenceHigh, Score: 81,
		TopComments: []models.Comment{}, CommentInsights: []string{},
	}}
	report.ContextSnippetMD = render.ContextSnippet(report)
	return report
}

func TestEmit(t *testing.T) {
	dir := t.TempDir()
	writer, err := render.NewWriter(dir)
	require.NoError(t, err)
	report := sampleReport()

	tests := []struct {
		format string
		check  func(t *testing.T, out string)
	}{
		{format: emitCompact, check: func(t *testing.T, out string) {
			assert.Equal(t, render.Compact(report), out)
		}},
		{format: emitJSON, check: func(t *testing.T, out string) {
			var decoded models.Report
			require.NoError(t, json.Unmarshal([]byte(out), &decoded))
			assert.Equal(t, "2026-02-13", decoded.RangeFrom)
			assert.Len(t, decoded.Reddit, 1)
		}},
		{format: emitMD, check: func(t *testing.T, out string) {
			assert.Equal(t, render.FullReport(report), out)
		}},
		{format: emitContext, check: func(t *testing.T, out string) {
			assert.Equal(t, report.ContextSnippetMD, out)
		}},
		{format: emitPath, check: func(t *testing.T, out string) {
			assert.Equal(t, writer.ContextPath(), strings.TrimSpace(out))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var out bytes.Buffer
			require.NoError(t, emit(&out, report, tt.format, writer))
			tt.check(t, out.String())
		})
	}
}

func TestPrintModels(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printModels(context.Background(), &out, &config.Config{XAIModel: "grok-3"}, true))
	assert.Equal(t, "openai: gpt-5\nxai:    grok-3 (pinned)\n", out.String())

	assert.Error(t, printModels(context.Background(), &out, &config.Config{}, false))
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	store, err := storage.NewFileStorage(t.TempDir())
	require.NoError(t, err)
	cfg := &config.Config{
		RedditRPS:         1,
		EnrichConcurrency: 2,
		Weights:           scoring.DefaultConfig().Weights,
	}
	return newRouter(research.NewService(cfg, store, nil))
}

func TestRouter(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		check  func(t *testing.T, rec *httptest.ResponseRecorder)
	}{
		{name: "Health", method: http.MethodGet, path: "/health", status: http.StatusOK, check: func(t *testing.T, rec *httptest.ResponseRecorder) {
			assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
		}},
		{name: "Metrics", method: http.MethodGet, path: "/metrics", status: http.StatusOK, check: func(t *testing.T, rec *httptest.ResponseRecorder) {
			var m research.Metrics
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
		}},
		{name: "Mock research", method: http.MethodPost, path: "/research", body: `{"topic":"claude code skills","mock":true,"sources":"reddit"}`, status: http.StatusOK, check: func(t *testing.T, rec *httptest.ResponseRecorder) {
			var report models.Report
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
			assert.Equal(t, models.ModeRedditOnly, report.Mode)
			assert.NotEmpty(t, report.Reddit)
			assert.Empty(t, report.X)
			assert.Len(t, rec.Header().Get("X-Report-Key"), 16)
		}},
		{name: "Bad body", method: http.MethodPost, path: "/research", body: `{"topic":`, status: http.StatusBadRequest},
		{name: "Missing topic", method: http.MethodPost, path: "/research", body: `{"mock":true}`, status: http.StatusBadRequest, check: func(t *testing.T, rec *httptest.ResponseRecorder) {
			assert.Contains(t, rec.Body.String(), "topic is required")
		}},
		{name: "No credentials", method: http.MethodPost, path: "/research", body: `{"topic":"rust"}`, status: http.StatusBadRequest},
		{name: "Unknown report", method: http.MethodGet, path: "/reports/0123456789abcdef", status: http.StatusNotFound},
		{name: "Malformed key", method: http.MethodGet, path: "/reports/nope", status: http.StatusNotFound},
		{name: "Wrong method", method: http.MethodGet, path: "/research", status: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.check != nil {
				tt.check(t, rec)
			}
		})
	}
}

func TestDescribeModel(t *testing.T) {
	assert.Equal(t, "(no API key)", describeModel("", ""))
	assert.Equal(t, "gpt-5", describeModel("gpt-5", ""))
	assert.Equal(t, "gpt-5 (pinned)", describeModel("gpt-5", "gpt-5"))
}
