package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/azure/last30days/internal/config"
	"github.com/azure/last30days/internal/storage"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var opts researchOptions

	root := &cobra.Command{
		Use:   "last30days <topic>",
		Short: "Research what Reddit and X said about a topic in the last 30 days",
		Long: "last30days searches Reddit and X for discussion of a topic over the last 30 days,\n" +
			"enriches Reddit threads with real engagement, scores and dedupes the results,\n" +
			"and emits a report for people or agents.",
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResearch(cmd.Context(), cmd.OutOrStdout(), args, opts)
		},
	}

	root.Flags().BoolVar(&opts.refresh, "refresh", false, "ignore the cache and run a fresh search")
	root.Flags().BoolVar(&opts.mock, "mock", false, "use embedded fixtures instead of live APIs")
	root.Flags().StringVar(&opts.emit, "emit", emitCompact, "output format: compact, json, md, context or path")
	root.Flags().StringVar(&opts.sources, "sources", config.SourcesAuto, "sources to search: auto, reddit, x or both")
	root.Flags().BoolVar(&opts.quick, "quick", false, "fewer results, faster")
	root.Flags().BoolVar(&opts.deep, "deep", false, "more results, slower")
	root.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "log progress to stderr")

	root.AddCommand(serveCmd())
	root.AddCommand(modelsCmd())

	return root
}

// setupLogging sends logs to stderr, quiet unless verbose or debug.
func setupLogging(out io.Writer, verbose bool, formatter logrus.Formatter) {
	logrus.SetOutput(out)
	logrus.SetFormatter(formatter)
	logrus.SetLevel(logrus.WarnLevel)
	if verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}
}

func openStore(cfg *config.Config) (storage.StorageInterface, func(), error) {
	store, err := storage.New(cfg.StorageOptions())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize %s cache: %w", cfg.CacheBackend, err)
	}

	cleanup := func() {}
	if closer, ok := store.(io.Closer); ok {
		cleanup = func() {
			if err := closer.Close(); err != nil {
				logrus.Warnf("Failed to close cache: %v", err)
			}
		}
	}
	return store, cleanup, nil
}
