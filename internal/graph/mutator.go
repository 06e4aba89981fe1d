// Package graph implements domain.Mutator against a Bolt-protocol graph
// database, serializing every mutation (including batched backfill writes
// and the periodic purge) behind a single process-wide write lock.
package graph

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/bsky-graph/ingest/internal/domain"
)

// Mutator implements domain.Mutator. All of its methods share mu — a plain
// mutual-exclusion lock, not a reader/writer lock, per spec.md §5: graph-DB
// reads by the HTTP layer go through Inner() directly and are not guarded
// by mu.
type Mutator struct {
	driver neo4j.DriverWithContext
	mu     sync.Mutex
}

// New opens a driver against the given Bolt URL and verifies connectivity.
func New(ctx context.Context, boltURL, user, password string) (*Mutator, error) {
	driver, err := neo4j.NewDriverWithContext(boltURL, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("create bolt driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("verify bolt connectivity: %w", err)
	}
	return &Mutator{driver: driver}, nil
}

// Inner returns the shared, pooled Bolt driver for read-only downstream
// consumers (the HTTP layer's /health check). Sharing is by reference, not
// by copy — callers must not close it.
func (m *Mutator) Inner() neo4j.DriverWithContext {
	return m.driver
}

// Close releases the underlying driver's connection pool.
func (m *Mutator) Close(ctx context.Context) error {
	return m.driver.Close(ctx)
}

func (m *Mutator) exec(ctx context.Context, cypher string, params map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, err := neo4j.ExecuteQuery(ctx, m.driver, cypher, params, neo4j.EagerResultTransformer)
	if err != nil {
		return fmt.Errorf("execute graph statement: %w", err)
	}
	return nil
}

func (m *Mutator) AddPost(ctx context.Context, did, rkey string, createdAtUS int64, isReply, isImage bool) error {
	return m.exec(ctx, addPost, map[string]any{
		"did":       did,
		"rkey":      rkey,
		"createdAt": createdAtUS,
		"isReply":   isReply,
		"isImage":   isImage,
	})
}

func (m *Mutator) AddReply(ctx context.Context, did, childRKey, parentRKey string) error {
	return m.exec(ctx, addReply, map[string]any{
		"did":        did,
		"childRKey":  childRKey,
		"parentRKey": parentRKey,
	})
}

func (m *Mutator) AddRepost(ctx context.Context, did, targetRKey, edgeRKey string) error {
	return m.exec(ctx, addRepost, map[string]any{
		"did":        did,
		"targetRKey": targetRKey,
		"edgeRKey":   edgeRKey,
	})
}

func (m *Mutator) AddLike(ctx context.Context, did, targetRKey, edgeRKey string) error {
	return m.exec(ctx, addLike, map[string]any{
		"did":        did,
		"targetRKey": targetRKey,
		"edgeRKey":   edgeRKey,
	})
}

func (m *Mutator) AddFollow(ctx context.Context, srcDID, dstDID, edgeRKey string) error {
	return m.exec(ctx, addFollow, map[string]any{
		"srcDID":   srcDID,
		"dstDID":   dstDID,
		"edgeRKey": edgeRKey,
	})
}

func (m *Mutator) AddBlock(ctx context.Context, blockeeDID, blockerDID, edgeRKey string) error {
	return m.exec(ctx, addBlock, map[string]any{
		"blockeeDID": blockeeDID,
		"blockerDID": blockerDID,
		"edgeRKey":   edgeRKey,
	})
}

func (m *Mutator) RmPost(ctx context.Context, did, rkey string) error {
	return m.exec(ctx, rmPost, map[string]any{"did": did, "rkey": rkey})
}

func (m *Mutator) RmRepost(ctx context.Context, did, rkey string) error {
	return m.exec(ctx, rmRepost, map[string]any{"did": did, "rkey": rkey})
}

func (m *Mutator) RmLike(ctx context.Context, did, rkey string) error {
	return m.exec(ctx, rmLike, map[string]any{"did": did, "rkey": rkey})
}

func (m *Mutator) RmFollow(ctx context.Context, did, rkey string) error {
	return m.exec(ctx, rmFollow, map[string]any{"did": did, "rkey": rkey})
}

func (m *Mutator) RmBlock(ctx context.Context, did, rkey string) error {
	return m.exec(ctx, rmBlock, map[string]any{"did": did, "rkey": rkey})
}

// AddFollowBatch and AddBlockBatch chunk backfilled edges into a single
// UNWIND statement each, per spec.md §4.E's "one DB statement per batch".
func (m *Mutator) AddFollowBatch(ctx context.Context, did string, pairs []domain.FollowPair) error {
	return m.exec(ctx, addFollowBatch, map[string]any{"follows": toBatchParams(did, pairs)})
}

func (m *Mutator) AddBlockBatch(ctx context.Context, did string, pairs []domain.FollowPair) error {
	return m.exec(ctx, addBlockBatch, map[string]any{"blocks": toBatchParams(did, pairs)})
}

func toBatchParams(did string, pairs []domain.FollowPair) []map[string]any {
	rows := make([]map[string]any, len(pairs))
	for i, p := range pairs {
		rows[i] = map[string]any{"out": p.Out, "did": did, "rkey": p.RKey}
	}
	return rows
}

// PurgeOlderThan removes posts (and their incident edges, via DETACH DELETE)
// whose created_at predates now-horizon. It holds the write lock for the
// duration of the single statement; no mutator writes interleave.
func (m *Mutator) PurgeOlderThan(ctx context.Context, horizon time.Duration) (int64, error) {
	cutoff := time.Now().Add(-horizon).UnixMicro()

	m.mu.Lock()
	defer m.mu.Unlock()

	result, err := neo4j.ExecuteQuery(ctx, m.driver, purgeOlderThan,
		map[string]any{"cutoffUS": cutoff}, neo4j.EagerResultTransformer)
	if err != nil {
		return 0, fmt.Errorf("execute purge statement: %w", err)
	}

	if len(result.Records) == 0 {
		return 0, nil
	}
	removed, _, err := neo4j.GetRecordValue[int64](result.Records[0], "removed")
	if err != nil {
		return 0, fmt.Errorf("read purge result: %w", err)
	}
	return removed, nil
}
