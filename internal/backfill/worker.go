// Package backfill drives the on-demand, per-DID follow/block graph
// backfill triggered by the HTTP feed-generator side.
package backfill

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/bsky-graph/ingest/internal/bluesky"
	"github.com/bsky-graph/ingest/internal/domain"
)

// batchSize groups follow/block pairs into bulk writes, per spec.md §4.E.
const batchSize = 60

const (
	collectionFollow = "app.bsky.graph.follow"
	collectionBlock  = "app.bsky.graph.block"
)

// placeholderDID and placeholderRKey reproduce the reference design's
// hard-coded stand-in post (original_source's listen_channel), carried
// forward verbatim since no ranking logic exists yet to pick a real one.
const (
	placeholderDID    = "did:plc:zxs7h3vusn4chpru4nvzw5sj"
	placeholderRKey   = "3lbdbqqdxxc2w"
	placeholderCursor = "1"
)

// pageFetcher is the subset of bluesky.Client the worker depends on, so
// tests can substitute a fake.
type pageFetcher interface {
	ListGraphRecords(ctx context.Context, repoDID, collection string) ([]bluesky.FollowPair, error)
}

// batchMutator is the subset of domain.Mutator the worker writes through.
type batchMutator interface {
	AddFollowBatch(ctx context.Context, did string, pairs []domain.FollowPair) error
	AddBlockBatch(ctx context.Context, did string, pairs []domain.FollowPair) error
}

// Worker consumes backfill requests from a single channel, one at a time,
// per spec.md §4.E's arrival-order requirement.
type Worker struct {
	requests <-chan domain.BackfillRequest
	client   pageFetcher
	mutator  batchMutator
	logger   *slog.Logger

	alreadySeen map[string]struct{}
}

// NewWorker builds a Worker reading from requests.
func NewWorker(requests <-chan domain.BackfillRequest, client pageFetcher, mutator batchMutator, logger *slog.Logger) *Worker {
	return &Worker{
		requests:    requests,
		client:      client,
		mutator:     mutator,
		logger:      logger,
		alreadySeen: make(map[string]struct{}),
	}
}

// Run processes requests until ctx is cancelled or the channel closes.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req, ok := <-w.requests:
			if !ok {
				return
			}
			w.process(ctx, req)
		}
	}
}

func (w *Worker) process(ctx context.Context, req domain.BackfillRequest) {
	did := req.DID
	if _, seen := w.alreadySeen[did]; !seen {
		if err := w.backfillOne(ctx, did); err != nil {
			w.logger.Error("backfill failed", "did", did, "request_id", req.RequestID, "error", err)
		} else {
			w.alreadySeen[did] = struct{}{}
			w.logger.Info("backfill complete", "did", did, "request_id", req.RequestID)
		}
	}

	// §4.E.3: a placeholder response — the HTTP layer stitches in real
	// feed-skeleton results later. This is a deliberate MVP shortcut,
	// not an oversight.
	if req.Reply != nil {
		req.Reply <- domain.BackfillResponse{
			PostURIs: []string{domain.PostURI(placeholderDID, placeholderRKey)},
			Cursor:   placeholderCursor,
		}
	}
}

func (w *Worker) backfillOne(ctx context.Context, did string) error {
	follows, err := w.fetchWithRetry(ctx, did, collectionFollow)
	if err != nil {
		return err
	}
	if err := w.writeBatches(ctx, did, follows, w.mutator.AddFollowBatch); err != nil {
		return err
	}

	blocks, err := w.fetchWithRetry(ctx, did, collectionBlock)
	if err != nil {
		return err
	}
	return w.writeBatches(ctx, did, blocks, w.mutator.AddBlockBatch)
}

// fetchWithRetry pages through collection for did, retrying transient
// upstream errors with a capped exponential backoff. spec.md §4.E allows an
// unbounded retry-the-same-page loop in the reference design but flags that
// a real implementation should cap it — cenkalti/backoff's MaxElapsedTime
// is that cap. Each retry re-lists the whole collection from its first
// page; pages fetched before the failure are discarded, not resumed.
func (w *Worker) fetchWithRetry(ctx context.Context, did, collection string) ([]bluesky.FollowPair, error) {
	var pairs []bluesky.FollowPair

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 2 * time.Minute

	op := func() error {
		p, err := w.client.ListGraphRecords(ctx, did, collection)
		if err != nil {
			w.logger.Warn("backfill page fetch failed, retrying", "did", did, "collection", collection, "error", err)
			return err
		}
		pairs = p
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(policy, ctx)); err != nil {
		return nil, err
	}
	return pairs, nil
}

func (w *Worker) writeBatches(ctx context.Context, did string, pairs []bluesky.FollowPair, write func(context.Context, string, []domain.FollowPair) error) error {
	for start := 0; start < len(pairs); start += batchSize {
		end := start + batchSize
		if end > len(pairs) {
			end = len(pairs)
		}

		batch := make([]domain.FollowPair, end-start)
		for i, p := range pairs[start:end] {
			batch[i] = domain.FollowPair{Out: p.Subject, RKey: p.RKey}
		}

		if err := write(ctx, did, batch); err != nil {
			return err
		}
	}
	return nil
}
