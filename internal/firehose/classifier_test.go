package firehose_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bsky-graph/ingest/internal/domain"
	"github.com/bsky-graph/ingest/internal/firehose"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClassifyDropsSpamDID(t *testing.T) {
	c := firehose.NewClassifier([]string{"did:plc:spammer"}, discardLogger())

	evt := firehose.Event{
		DID:    "did:plc:spammer",
		TimeUS: time.Now().UnixMicro(),
		Commit: &firehose.Commit{Operation: "create", Collection: firehose.CollectionPost, RKey: "rkey1234567890"},
	}

	_, _, ok := c.Classify(evt, time.Now())
	assert.False(t, ok)
}

func TestClassifyDropsEventsWithoutCommit(t *testing.T) {
	c := firehose.NewClassifier(nil, discardLogger())
	_, _, ok := c.Classify(firehose.Event{DID: "did:plc:a", TimeUS: 1}, time.Now())
	assert.False(t, ok)
}

func TestClassifyDropsStaleCreatePost(t *testing.T) {
	c := firehose.NewClassifier(nil, discardLogger())
	now := time.Now()
	old := now.Add(-48 * time.Hour).Format(time.RFC3339)

	evt := firehose.Event{
		DID:    "did:plc:user1",
		TimeUS: now.UnixMicro(),
		Commit: &firehose.Commit{
			Operation:  "create",
			Collection: firehose.CollectionPost,
			RKey:       "rkey1234567890",
			Record:     &firehose.Record{CreatedAt: old},
		},
	}

	_, _, ok := c.Classify(evt, now)
	assert.False(t, ok)
}

func TestClassifyCreatePostWithReplyExtractsParentRKey(t *testing.T) {
	c := firehose.NewClassifier(nil, discardLogger())
	now := time.Now()

	raw := []byte(`{"createdAt":"` + now.Format(time.RFC3339) + `","reply":{"parent":{"uri":"at://did:plc:other/app.bsky.feed.post/parentrkey456"}}}`)
	var record firehose.Record
	require.NoError(t, json.Unmarshal(raw, &record))

	evt := firehose.Event{
		DID:    "did:plc:user1",
		TimeUS: now.UnixMicro(),
		Commit: &firehose.Commit{
			Operation:  "create",
			Collection: firehose.CollectionPost,
			RKey:       "childrkey1234",
			Record:     &record,
		},
	}

	m, _, ok := c.Classify(evt, now)
	require.True(t, ok)
	assert.Equal(t, domain.MutationAddPost, m.Kind)
	assert.True(t, m.IsReply)
	assert.Equal(t, "parentrkey456", m.ParentRKey)
}

func TestClassifyCreateFollowExtractsSubjectDID(t *testing.T) {
	c := firehose.NewClassifier(nil, discardLogger())
	now := time.Now()

	evt := firehose.Event{
		DID:    "did:plc:follower",
		TimeUS: now.UnixMicro(),
		Commit: &firehose.Commit{
			Operation:  "create",
			Collection: firehose.CollectionFollow,
			RKey:       "followrkey123",
			Record:     &firehose.Record{Subject: &firehose.Subject{DID: "did:plc:followee"}},
		},
	}

	m, _, ok := c.Classify(evt, now)
	require.True(t, ok)
	assert.Equal(t, domain.MutationAddFollow, m.Kind)
	assert.Equal(t, "did:plc:follower", m.DID)
	assert.Equal(t, "did:plc:followee", m.OtherDID)
}

func TestClassifyCreateBlockSwapsActorAndSubject(t *testing.T) {
	c := firehose.NewClassifier(nil, discardLogger())
	now := time.Now()

	evt := firehose.Event{
		DID:    "did:plc:blocker",
		TimeUS: now.UnixMicro(),
		Commit: &firehose.Commit{
			Operation:  "create",
			Collection: firehose.CollectionBlock,
			RKey:       "blockrkey123",
			Record:     &firehose.Record{Subject: &firehose.Subject{DID: "did:plc:blockee"}},
		},
	}

	m, _, ok := c.Classify(evt, now)
	require.True(t, ok)
	assert.Equal(t, domain.MutationAddBlock, m.Kind)
	// the blockee is the subject; the actor (did) is the blocker.
	assert.Equal(t, "did:plc:blockee", m.DID)
	assert.Equal(t, "did:plc:blocker", m.OtherDID)
}

func TestClassifyDeleteDispatchesByCollection(t *testing.T) {
	c := firehose.NewClassifier(nil, discardLogger())

	tests := []struct {
		collection string
		wantKind   domain.MutationKind
	}{
		{firehose.CollectionPost, domain.MutationRmPost},
		{firehose.CollectionRepost, domain.MutationRmRepost},
		{firehose.CollectionLike, domain.MutationRmLike},
		{firehose.CollectionFollow, domain.MutationRmFollow},
		{firehose.CollectionBlock, domain.MutationRmBlock},
	}

	for _, tt := range tests {
		t.Run(tt.collection, func(t *testing.T) {
			evt := firehose.Event{
				DID:    "did:plc:user1",
				TimeUS: time.Now().UnixMicro(),
				Commit: &firehose.Commit{Operation: "delete", Collection: tt.collection, RKey: "rkey1234567890"},
			}
			m, _, ok := c.Classify(evt, time.Now())
			require.True(t, ok)
			assert.Equal(t, tt.wantKind, m.Kind)
		})
	}
}

func TestClassifyIgnoresUpdateOperation(t *testing.T) {
	c := firehose.NewClassifier(nil, discardLogger())
	evt := firehose.Event{
		DID:    "did:plc:user1",
		TimeUS: time.Now().UnixMicro(),
		Commit: &firehose.Commit{Operation: "update", Collection: firehose.CollectionPost, RKey: "rkey1234567890"},
	}
	_, _, ok := c.Classify(evt, time.Now())
	assert.False(t, ok)
}

func TestClassifyIgnoresUnrecognizedCollection(t *testing.T) {
	c := firehose.NewClassifier(nil, discardLogger())
	evt := firehose.Event{
		DID:    "did:plc:user1",
		TimeUS: time.Now().UnixMicro(),
		Commit: &firehose.Commit{Operation: "create", Collection: "app.bsky.actor.profile", RKey: "rkey1234567890"},
	}
	_, _, ok := c.Classify(evt, time.Now())
	assert.False(t, ok)
}
