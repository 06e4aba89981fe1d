package firehose

import (
	"log/slog"
	"time"

	"github.com/bsky-graph/ingest/internal/domain"
)

// staleHorizon is the fixed 24h cutoff beyond which a create-post event is
// dropped, per spec.md §3. It is not configurable — unlike the purge
// horizon, which governs already-stored posts.
const staleHorizon = 24 * time.Hour

// Classifier turns decoded events into typed mutation requests, filtering
// spam, staleness, and malformed records along the way.
type Classifier struct {
	spam   map[string]struct{}
	logger *slog.Logger
}

// NewClassifier builds a Classifier with the given spam DID set.
func NewClassifier(spamDIDs []string, logger *slog.Logger) *Classifier {
	spam := make(map[string]struct{}, len(spamDIDs))
	for _, did := range spamDIDs {
		spam[did] = struct{}{}
	}
	return &Classifier{spam: spam, logger: logger}
}

// Classify implements spec.md §4.B's dispatch procedure. It returns the
// drift sample observed for this event (0 for spam and commit-less events)
// and ok=true only when a Mutation should be handed to the graph mutator.
func (c *Classifier) Classify(evt Event, now time.Time) (mutation domain.Mutation, driftMS float64, ok bool) {
	if _, spam := c.spam[evt.DID]; spam {
		return domain.Mutation{}, 0, false
	}

	if evt.Commit == nil {
		return domain.Mutation{}, 0, false
	}

	driftMS = float64(now.UnixMicro()-evt.TimeUS) / 1000.0

	commit := evt.Commit
	rkey := commit.RKey

	switch commit.Operation {
	case "create":
		m, ok := c.classifyCreate(evt.DID, rkey, evt.TimeUS, commit, now)
		return m, driftMS, ok
	case "delete":
		m, ok := c.classifyDelete(evt.DID, rkey, commit.Collection)
		return m, driftMS, ok
	case "update":
		c.logger.Debug("ignoring update operation", "did", evt.DID, "collection", commit.Collection)
		return domain.Mutation{}, driftMS, false
	default:
		return domain.Mutation{}, driftMS, false
	}
}

func (c *Classifier) classifyCreate(did, rkey string, timeUS int64, commit *Commit, now time.Time) (domain.Mutation, bool) {
	switch commit.Collection {
	case CollectionPost:
		return c.classifyCreatePost(did, rkey, timeUS, commit.Record, now)

	case CollectionRepost:
		target := subjectURIRKey(commit.Record)
		if target == "" {
			c.logger.Warn("dropping repost with empty target rkey", "did", did, "rkey", rkey)
			return domain.Mutation{}, false
		}
		return domain.Mutation{Kind: domain.MutationAddRepost, DID: did, RKey: rkey, TargetRKey: target}, true

	case CollectionLike:
		target := subjectURIRKey(commit.Record)
		if target == "" {
			c.logger.Warn("dropping like with empty target rkey", "did", did, "rkey", rkey)
			return domain.Mutation{}, false
		}
		return domain.Mutation{Kind: domain.MutationAddLike, DID: did, RKey: rkey, TargetRKey: target}, true

	case CollectionFollow:
		other, ok := subjectDID(commit.Record)
		if !ok {
			c.logger.Warn("dropping follow with non-DID subject", "did", did, "rkey", rkey)
			return domain.Mutation{}, false
		}
		return domain.Mutation{Kind: domain.MutationAddFollow, DID: did, RKey: rkey, OtherDID: other}, true

	case CollectionBlock:
		other, ok := subjectDID(commit.Record)
		if !ok {
			c.logger.Warn("dropping block with non-DID subject", "did", did, "rkey", rkey)
			return domain.Mutation{}, false
		}
		// Argument order: the blockee is the subject, the actor (did) is the blocker.
		return domain.Mutation{Kind: domain.MutationAddBlock, DID: other, RKey: rkey, OtherDID: did}, true

	default:
		return domain.Mutation{}, false
	}
}

func (c *Classifier) classifyCreatePost(did, rkey string, timeUS int64, record *Record, now time.Time) (domain.Mutation, bool) {
	createdAtUS := timeUS
	isImage := false
	isReply := false
	var parentRKey string

	if record != nil {
		isImage = len(record.Images) > 0

		// The staleness cutoff applies to created_at parsed from the
		// record, but falls back to the event's own time_us on parse
		// failure, bypassing the cutoff entirely. Preserved verbatim from
		// the reference design (spec.md §9 Open Questions) — flagged here,
		// not silently "fixed".
		if record.CreatedAt != "" {
			if t, err := time.Parse(time.RFC3339, record.CreatedAt); err == nil {
				if now.Sub(t) > staleHorizon {
					return domain.Mutation{}, false
				}
				createdAtUS = t.UnixMicro()
			}
		}

		if record.Reply != nil {
			parentRKey = domain.ParseRKey(record.Reply.Parent.URI)
			isReply = true
		}
	}

	return domain.Mutation{
		Kind:        domain.MutationAddPost,
		DID:         did,
		RKey:        rkey,
		ParentRKey:  parentRKey,
		CreatedAtUS: createdAtUS,
		IsReply:     isReply,
		IsImage:     isImage,
	}, true
}

func (c *Classifier) classifyDelete(did, rkey, collection string) (domain.Mutation, bool) {
	switch collection {
	case CollectionPost:
		return domain.Mutation{Kind: domain.MutationRmPost, DID: did, RKey: rkey}, true
	case CollectionRepost:
		return domain.Mutation{Kind: domain.MutationRmRepost, DID: did, RKey: rkey}, true
	case CollectionLike:
		return domain.Mutation{Kind: domain.MutationRmLike, DID: did, RKey: rkey}, true
	case CollectionFollow:
		return domain.Mutation{Kind: domain.MutationRmFollow, DID: did, RKey: rkey}, true
	case CollectionBlock:
		return domain.Mutation{Kind: domain.MutationRmBlock, DID: did, RKey: rkey}, true
	default:
		return domain.Mutation{}, false
	}
}

// subjectURIRKey extracts the target rkey for a repost/like record, which
// carries the strong-ref variant of Subject. Empty string means absent or
// malformed — an invariant violation the caller drops rather than panics on.
func subjectURIRKey(record *Record) string {
	if record == nil || record.Subject == nil || !record.Subject.IsURI() {
		return ""
	}
	return domain.ParseRKey(record.Subject.URI)
}

// subjectDID extracts the bare-DID variant of Subject, used by follow/block.
func subjectDID(record *Record) (string, bool) {
	if record == nil || record.Subject == nil || !record.Subject.IsDID() {
		return "", false
	}
	return record.Subject.DID, true
}
