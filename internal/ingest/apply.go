// Package ingest wires the firehose classifier's output to the graph
// mutator, and hosts the orchestrator that starts every long-running
// component together.
package ingest

import (
	"context"
	"fmt"

	"github.com/bsky-graph/ingest/internal/domain"
)

// Apply dispatches a single classified mutation to mutator. For a reply
// post it calls AddReply before AddPost, per spec.md §4.B. The two calls
// are not wrapped in a single transaction; if AddReply fails, AddPost is
// not attempted and the error is returned.
func Apply(ctx context.Context, mutator domain.Mutator, m domain.Mutation) error {
	switch m.Kind {
	case domain.MutationAddPost:
		if m.IsReply {
			if err := mutator.AddReply(ctx, m.DID, m.RKey, m.ParentRKey); err != nil {
				return fmt.Errorf("add reply edge: %w", err)
			}
		}
		if err := mutator.AddPost(ctx, m.DID, m.RKey, m.CreatedAtUS, m.IsReply, m.IsImage); err != nil {
			return fmt.Errorf("add post: %w", err)
		}
		return nil

	case domain.MutationAddRepost:
		if err := mutator.AddRepost(ctx, m.DID, m.TargetRKey, m.RKey); err != nil {
			return fmt.Errorf("add repost: %w", err)
		}
		return nil

	case domain.MutationAddLike:
		if err := mutator.AddLike(ctx, m.DID, m.TargetRKey, m.RKey); err != nil {
			return fmt.Errorf("add like: %w", err)
		}
		return nil

	case domain.MutationAddFollow:
		if err := mutator.AddFollow(ctx, m.DID, m.OtherDID, m.RKey); err != nil {
			return fmt.Errorf("add follow: %w", err)
		}
		return nil

	case domain.MutationAddBlock:
		if err := mutator.AddBlock(ctx, m.DID, m.OtherDID, m.RKey); err != nil {
			return fmt.Errorf("add block: %w", err)
		}
		return nil

	case domain.MutationRmPost:
		if err := mutator.RmPost(ctx, m.DID, m.RKey); err != nil {
			return fmt.Errorf("remove post: %w", err)
		}
		return nil

	case domain.MutationRmRepost:
		if err := mutator.RmRepost(ctx, m.DID, m.RKey); err != nil {
			return fmt.Errorf("remove repost: %w", err)
		}
		return nil

	case domain.MutationRmLike:
		if err := mutator.RmLike(ctx, m.DID, m.RKey); err != nil {
			return fmt.Errorf("remove like: %w", err)
		}
		return nil

	case domain.MutationRmFollow:
		if err := mutator.RmFollow(ctx, m.DID, m.RKey); err != nil {
			return fmt.Errorf("remove follow: %w", err)
		}
		return nil

	case domain.MutationRmBlock:
		if err := mutator.RmBlock(ctx, m.DID, m.RKey); err != nil {
			return fmt.Errorf("remove block: %w", err)
		}
		return nil

	case domain.MutationNone:
		return nil

	default:
		return fmt.Errorf("unhandled mutation kind: %v", m.Kind)
	}
}
