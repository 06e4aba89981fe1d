package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bsky-graph/ingest/internal/backfill"
	"github.com/bsky-graph/ingest/internal/bluesky"
	"github.com/bsky-graph/ingest/internal/config"
	"github.com/bsky-graph/ingest/internal/domain"
	"github.com/bsky-graph/ingest/internal/drift"
	"github.com/bsky-graph/ingest/internal/firehose"
	"github.com/bsky-graph/ingest/internal/graph"
	"github.com/bsky-graph/ingest/internal/httpapi"
	"github.com/bsky-graph/ingest/internal/purge"
)

// Orchestrator wires components A-G together under one graph-DB handle
// and the shared backfill channel, per spec.md §4.H.
type Orchestrator struct {
	cfg    *config.Config
	logger *slog.Logger

	mutator    *graph.Mutator
	meter      *drift.Meter
	subscriber *firehose.Subscriber
	worker     *backfill.Worker
	scheduler  *purge.Scheduler
	httpServer *httpapi.Server

	backfillCh chan domain.BackfillRequest
}

// New constructs every component but starts nothing.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Orchestrator, error) {
	mutator, err := graph.New(ctx, cfg.BoltURL, cfg.BoltUser, cfg.BoltPassword)
	if err != nil {
		return nil, fmt.Errorf("connect to graph database: %w", err)
	}

	codec, err := firehose.NewCodec()
	if err != nil {
		mutator.Close(ctx)
		return nil, fmt.Errorf("build frame codec: %w", err)
	}

	meter := drift.NewMeter()
	classifier := firehose.NewClassifier(cfg.SpamDIDs, logger)

	backfillCh := make(chan domain.BackfillRequest, cfg.BackfillQueueSize)

	o := &Orchestrator{
		cfg:        cfg,
		logger:     logger,
		mutator:    mutator,
		meter:      meter,
		backfillCh: backfillCh,
	}

	o.subscriber = firehose.NewSubscriber(cfg.FirehoseURL, cfg.Compress, codec, classifier, o.handleMutation, logger)

	client := bluesky.NewClient("")
	o.worker = backfill.NewWorker(backfillCh, client, mutator, logger)

	o.scheduler = purge.NewScheduler(mutator, cfg.PurgeHorizon, logger)

	o.httpServer = httpapi.NewServer(cfg, backfillCh, mutator, logger)

	return o, nil
}

// handleMutation is the firehose.EventHandler passed to the subscriber: it
// applies the mutation to the graph and samples the observed drift.
func (o *Orchestrator) handleMutation(ctx context.Context, mutation domain.Mutation, driftMS float64) {
	if err := Apply(ctx, o.mutator, mutation); err != nil {
		o.logger.Error("apply mutation failed", "kind", mutation.Kind, "did", mutation.DID, "rkey", mutation.RKey, "error", err)
		return
	}
	o.meter.Sample(driftMS)
}

// RunBackfillHTTP starts only the graph handle, the backfill worker, and
// the HTTP server — no firehose subscriber, purge scheduler, or drift
// meter. Useful for running the backfill-serving surface as a separate
// deployment from the firehose ingester.
func (o *Orchestrator) RunBackfillHTTP(ctx context.Context) error {
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		o.worker.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := o.httpServer.Start(); err != nil {
			o.logger.Error("http server exited", "error", err)
		}
	}()

	<-ctx.Done()
	o.logger.Info("shutting down")

	shutdownCtx := context.Background()
	if err := o.httpServer.Shutdown(shutdownCtx); err != nil {
		o.logger.Error("http server shutdown failed", "error", err)
	}

	wg.Wait()

	if err := o.mutator.Close(shutdownCtx); err != nil {
		return fmt.Errorf("close graph driver: %w", err)
	}
	return nil
}

// Run starts every component and blocks until ctx is cancelled, then shuts
// each one down and releases the graph driver.
func (o *Orchestrator) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := o.subscriber.Start(ctx); err != nil && ctx.Err() == nil {
			o.logger.Error("firehose subscriber exited", "error", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		o.worker.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		o.scheduler.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		o.meter.Run(ctx, o.logger)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := o.httpServer.Start(); err != nil {
			o.logger.Error("http server exited", "error", err)
		}
	}()

	<-ctx.Done()
	o.logger.Info("shutting down")

	shutdownCtx := context.Background()
	if err := o.httpServer.Shutdown(shutdownCtx); err != nil {
		o.logger.Error("http server shutdown failed", "error", err)
	}

	wg.Wait()

	if err := o.mutator.Close(shutdownCtx); err != nil {
		return fmt.Errorf("close graph driver: %w", err)
	}
	return nil
}
