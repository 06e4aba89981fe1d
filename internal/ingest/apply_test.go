package ingest_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bsky-graph/ingest/internal/domain"
	"github.com/bsky-graph/ingest/internal/ingest"
)

// recordingMutator implements domain.Mutator and records every call it
// receives, in order, for assertions.
type recordingMutator struct {
	calls []string
}

func (m *recordingMutator) AddPost(_ context.Context, did, rkey string, _ int64, _, _ bool) error {
	m.calls = append(m.calls, "AddPost:"+did+":"+rkey)
	return nil
}
func (m *recordingMutator) AddReply(_ context.Context, did, childRKey, parentRKey string) error {
	m.calls = append(m.calls, "AddReply:"+did+":"+childRKey+":"+parentRKey)
	return nil
}
func (m *recordingMutator) AddRepost(_ context.Context, did, targetRKey, edgeRKey string) error {
	m.calls = append(m.calls, "AddRepost:"+did+":"+targetRKey+":"+edgeRKey)
	return nil
}
func (m *recordingMutator) AddLike(_ context.Context, did, targetRKey, edgeRKey string) error {
	m.calls = append(m.calls, "AddLike:"+did+":"+targetRKey+":"+edgeRKey)
	return nil
}
func (m *recordingMutator) AddFollow(_ context.Context, srcDID, dstDID, edgeRKey string) error {
	m.calls = append(m.calls, "AddFollow:"+srcDID+":"+dstDID+":"+edgeRKey)
	return nil
}
func (m *recordingMutator) AddBlock(_ context.Context, blockeeDID, blockerDID, edgeRKey string) error {
	m.calls = append(m.calls, "AddBlock:"+blockeeDID+":"+blockerDID+":"+edgeRKey)
	return nil
}
func (m *recordingMutator) RmPost(_ context.Context, did, rkey string) error {
	m.calls = append(m.calls, "RmPost:"+did+":"+rkey)
	return nil
}
func (m *recordingMutator) RmRepost(_ context.Context, did, rkey string) error {
	m.calls = append(m.calls, "RmRepost:"+did+":"+rkey)
	return nil
}
func (m *recordingMutator) RmLike(_ context.Context, did, rkey string) error {
	m.calls = append(m.calls, "RmLike:"+did+":"+rkey)
	return nil
}
func (m *recordingMutator) RmFollow(_ context.Context, did, rkey string) error {
	m.calls = append(m.calls, "RmFollow:"+did+":"+rkey)
	return nil
}
func (m *recordingMutator) RmBlock(_ context.Context, did, rkey string) error {
	m.calls = append(m.calls, "RmBlock:"+did+":"+rkey)
	return nil
}
func (m *recordingMutator) AddFollowBatch(_ context.Context, did string, pairs []domain.FollowPair) error {
	m.calls = append(m.calls, "AddFollowBatch")
	return nil
}
func (m *recordingMutator) AddBlockBatch(_ context.Context, did string, pairs []domain.FollowPair) error {
	m.calls = append(m.calls, "AddBlockBatch")
	return nil
}
func (m *recordingMutator) PurgeOlderThan(_ context.Context, _ time.Duration) (int64, error) {
	return 0, nil
}

func TestApplyReplyPostCallsAddReplyBeforeAddPost(t *testing.T) {
	m := &recordingMutator{}
	mutation := domain.Mutation{
		Kind:        domain.MutationAddPost,
		DID:         "did:plc:alice",
		RKey:        "childrkey1234",
		ParentRKey:  "parentrkey456",
		CreatedAtUS: 1000,
		IsReply:     true,
	}

	err := ingest.Apply(context.Background(), m, mutation)
	require.NoError(t, err)

	require.Len(t, m.calls, 2)
	assert.Equal(t, "AddReply:did:plc:alice:childrkey1234:parentrkey456", m.calls[0])
	assert.Equal(t, "AddPost:did:plc:alice:childrkey1234", m.calls[1])
}

func TestApplyNonReplyPostCallsOnlyAddPost(t *testing.T) {
	m := &recordingMutator{}
	mutation := domain.Mutation{
		Kind: domain.MutationAddPost,
		DID:  "did:plc:alice",
		RKey: "rkeyabcdefghi",
	}

	err := ingest.Apply(context.Background(), m, mutation)
	require.NoError(t, err)

	require.Len(t, m.calls, 1)
	assert.Equal(t, "AddPost:did:plc:alice:rkeyabcdefghi", m.calls[0])
}

func TestApplyDispatchesEveryMutationKind(t *testing.T) {
	tests := []struct {
		name string
		m    domain.Mutation
		want string
	}{
		{"repost", domain.Mutation{Kind: domain.MutationAddRepost, DID: "d", TargetRKey: "t", RKey: "r"}, "AddRepost:d:t:r"},
		{"like", domain.Mutation{Kind: domain.MutationAddLike, DID: "d", TargetRKey: "t", RKey: "r"}, "AddLike:d:t:r"},
		{"follow", domain.Mutation{Kind: domain.MutationAddFollow, DID: "d", OtherDID: "o", RKey: "r"}, "AddFollow:d:o:r"},
		{"block", domain.Mutation{Kind: domain.MutationAddBlock, DID: "d", OtherDID: "o", RKey: "r"}, "AddBlock:d:o:r"},
		{"rm post", domain.Mutation{Kind: domain.MutationRmPost, DID: "d", RKey: "r"}, "RmPost:d:r"},
		{"rm repost", domain.Mutation{Kind: domain.MutationRmRepost, DID: "d", RKey: "r"}, "RmRepost:d:r"},
		{"rm like", domain.Mutation{Kind: domain.MutationRmLike, DID: "d", RKey: "r"}, "RmLike:d:r"},
		{"rm follow", domain.Mutation{Kind: domain.MutationRmFollow, DID: "d", RKey: "r"}, "RmFollow:d:r"},
		{"rm block", domain.Mutation{Kind: domain.MutationRmBlock, DID: "d", RKey: "r"}, "RmBlock:d:r"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &recordingMutator{}
			err := ingest.Apply(context.Background(), m, tt.m)
			require.NoError(t, err)
			require.Len(t, m.calls, 1)
			assert.Equal(t, tt.want, m.calls[0])
		})
	}
}

func TestApplyNoneIsNoop(t *testing.T) {
	m := &recordingMutator{}
	err := ingest.Apply(context.Background(), m, domain.Mutation{Kind: domain.MutationNone})
	require.NoError(t, err)
	assert.Empty(t, m.calls)
}
