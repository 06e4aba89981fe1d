package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bsky-graph/ingest/internal/config"
	"github.com/bsky-graph/ingest/internal/ingest"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Run the full firehose-to-graph ingestion pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIngest()
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest() error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	orch, err := ingest.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("build orchestrator: %w", err)
	}

	logger.Info("ingestion pipeline starting",
		"firehose_url", cfg.FirehoseURL,
		"compress", cfg.Compress,
		"http_addr", cfg.HTTPAddr,
	)

	if err := orch.Run(ctx); err != nil {
		return fmt.Errorf("run orchestrator: %w", err)
	}

	logger.Info("ingestion pipeline stopped")
	return nil
}
