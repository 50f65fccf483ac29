package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/azure/last30days/internal/config"
	"github.com/azure/last30days/internal/models"
	"github.com/azure/last30days/internal/research"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func modelsCmd() *cobra.Command {
	var mock bool

	cmd := &cobra.Command{
		Use:   "models",
		Short: "Print the models a research run would use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(os.Stderr, false, &logrus.TextFormatter{})

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			return printModels(cmd.Context(), cmd.OutOrStdout(), cfg, mock)
		},
	}

	cmd.Flags().BoolVar(&mock, "mock", false, "select from the embedded model lists")
	return cmd
}

func printModels(ctx context.Context, out io.Writer, cfg *config.Config, mock bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	available := cfg.AvailableSources()
	if mock {
		available = config.SourcesBoth
	}
	if available == config.SourcesNone {
		return fmt.Errorf("no API keys configured; add OPENAI_API_KEY and/or XAI_API_KEY to %s", config.EnvPath())
	}

	mode, err := models.ModeForSources(available)
	if err != nil {
		return err
	}
	selection := research.NewService(cfg, nil, nil).SelectModels(ctx, mode, mock)

	fmt.Fprintf(out, "openai: %s\n", describeModel(selection.OpenAI, cfg.OpenAIModel))
	fmt.Fprintf(out, "xai:    %s\n", describeModel(selection.XAI, cfg.XAIModel))
	return nil
}

func describeModel(selected, pinned string) string {
	switch {
	case selected == "":
		return "(no API key)"
	case pinned != "":
		return selected + " (pinned)"
	}
	return selected
}
