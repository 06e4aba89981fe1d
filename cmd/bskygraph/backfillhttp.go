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

var backfillHTTPCmd = &cobra.Command{
	Use:   "backfill-http",
	Short: "Run only the backfill worker and its HTTP trigger surface",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBackfillHTTP()
	},
}

func init() {
	rootCmd.AddCommand(backfillHTTPCmd)
}

func runBackfillHTTP() error {
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

	logger.Info("backfill-http starting", "http_addr", cfg.HTTPAddr)

	if err := orch.RunBackfillHTTP(ctx); err != nil {
		return fmt.Errorf("run backfill-http: %w", err)
	}

	logger.Info("backfill-http stopped")
	return nil
}
