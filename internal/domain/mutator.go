// Package domain holds the types and interfaces shared between the event
// classifier, the graph mutator, the backfill worker, and the purge
// scheduler, without binding any of them to a concrete storage technology.
package domain

import (
	"context"
	"time"
)

// FollowPair is one (subject, edge rkey) pair backfilled from the upstream
// listRecords API for either the follow or the block collection.
type FollowPair struct {
	// Out is the DID on the other end of the edge (the account followed or
	// blocked).
	Out string

	// RKey is the creator's record key for this edge, used to resolve
	// deletions later.
	RKey string
}

// Mutator applies create/delete mutations to the graph store. Every method
// is idempotent on its identity keys: calling it twice with the same
// arguments has the same effect as calling it once, and deleting a key that
// was never created is a no-op.
//
// Implementations MUST serialize all mutation methods, including the batch
// and purge paths, against one process-wide write lock.
type Mutator interface {
	AddPost(ctx context.Context, did, rkey string, createdAtUS int64, isReply, isImage bool) error
	AddReply(ctx context.Context, did, childRKey, parentRKey string) error
	AddRepost(ctx context.Context, did, targetRKey, edgeRKey string) error
	AddLike(ctx context.Context, did, targetRKey, edgeRKey string) error
	AddFollow(ctx context.Context, srcDID, dstDID, edgeRKey string) error
	AddBlock(ctx context.Context, blockeeDID, blockerDID, edgeRKey string) error

	RmPost(ctx context.Context, did, rkey string) error
	RmRepost(ctx context.Context, did, rkey string) error
	RmLike(ctx context.Context, did, rkey string) error
	RmFollow(ctx context.Context, did, rkey string) error
	RmBlock(ctx context.Context, did, rkey string) error

	// AddFollowBatch and AddBlockBatch bulk-insert edges discovered during
	// backfill. pairs should be chunked by the caller (see
	// internal/backfill) before calling, since each call issues one
	// statement under the write lock.
	AddFollowBatch(ctx context.Context, did string, pairs []FollowPair) error
	AddBlockBatch(ctx context.Context, did string, pairs []FollowPair) error

	// PurgeOlderThan removes posts (and their incident edges) whose
	// created_at predates horizon, returning the number of posts removed.
	PurgeOlderThan(ctx context.Context, horizon time.Duration) (int64, error)
}
