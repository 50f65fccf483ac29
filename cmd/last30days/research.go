package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/azure/last30days/internal/config"
	"github.com/azure/last30days/internal/models"
	"github.com/azure/last30days/internal/render"
	"github.com/azure/last30days/internal/research"
	"github.com/azure/last30days/internal/sources"
	"github.com/sirupsen/logrus"
)

const (
	emitCompact = "compact"
	emitJSON    = "json"
	emitMD      = "md"
	emitContext = "context"
	emitPath    = "path"
)

type researchOptions struct {
	refresh bool
	mock    bool
	emit    string
	sources string
	quick   bool
	deep    bool
	verbose bool
}

// validate checks everything that can be checked before loading config.
func (o researchOptions) validate() (sources.Depth, error) {
	switch o.emit {
	case emitCompact, emitJSON, emitMD, emitContext, emitPath:
	default:
		return "", fmt.Errorf("invalid --emit %q (use compact, json, md, context or path)", o.emit)
	}
	return sources.ParseDepth(o.quick, o.deep)
}

func runResearch(ctx context.Context, out io.Writer, args []string, opts researchOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	setupLogging(os.Stderr, opts.verbose, &logrus.TextFormatter{})

	depth, err := opts.validate()
	if err != nil {
		return err
	}

	topic := strings.TrimSpace(strings.Join(args, " "))
	if topic == "" {
		return fmt.Errorf("a topic is required, e.g. last30days \"claude code skills\"")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	writer, err := render.NewWriter(cfg.OutputDir)
	if err != nil {
		return err
	}

	svc := research.NewService(cfg, store, nil, research.WithWriter(writer))
	report, err := svc.Run(ctx, research.Request{
		Topic:   topic,
		Sources: opts.sources,
		Depth:   depth,
		Refresh: opts.refresh,
		Mock:    opts.mock,
	})
	if err != nil {
		return err
	}

	return emit(out, report, opts.emit, writer)
}

// emit prints the report in the requested format.
func emit(out io.Writer, report *models.Report, format string, writer *render.Writer) error {
	switch format {
	case emitJSON:
		data, err := render.JSON(report)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	case emitMD:
		_, err := fmt.Fprint(out, render.FullReport(report))
		return err
	case emitContext:
		_, err := fmt.Fprint(out, report.ContextSnippetMD)
		return err
	case emitPath:
		_, err := fmt.Fprintln(out, writer.ContextPath())
		return err
	}
	_, err := fmt.Fprint(out, render.Compact(report))
	return err
}
