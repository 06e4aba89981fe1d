package firehose

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// The five collection NSIDs the classifier acts on. Anything else is
// ignored at dispatch time.
const (
	CollectionPost   = "app.bsky.feed.post"
	CollectionRepost = "app.bsky.feed.repost"
	CollectionLike   = "app.bsky.feed.like"
	CollectionFollow = "app.bsky.graph.follow"
	CollectionBlock  = "app.bsky.graph.block"
)

// Event is the decoded Jetstream event envelope.
type Event struct {
	DID    string  `json:"did"`
	TimeUS int64   `json:"time_us"`
	Commit *Commit `json:"commit,omitempty"`
}

// Commit describes a single create/update/delete operation on one record.
type Commit struct {
	Operation  string  `json:"operation"`
	Collection string  `json:"collection"`
	RKey       string  `json:"rkey"`
	Record     *Record `json:"record,omitempty"`
}

// replyRef mirrors the AT Protocol strong-ref shape used in reply chains.
type replyRef struct {
	Parent strongRef `json:"parent"`
}

type strongRef struct {
	URI string `json:"uri"`
}

// Record is the parsed record body. Its shape depends on the commit's
// collection: created_at/images/reply are only meaningful for posts,
// subject only for repost/like/follow/block.
type Record struct {
	CreatedAt string            `json:"createdAt"`
	Images    []json.RawMessage `json:"images,omitempty"`
	Reply     *replyRef         `json:"reply,omitempty"`
	Subject   *Subject          `json:"subject,omitempty"`

	// Langs is decoded for forward-compatibility but participates in no
	// mutation (see SPEC_FULL.md §3.1).
	Langs []string `json:"langs,omitempty"`
}

// Subject models the untagged union the AT Protocol record's "subject"
// field uses: either a bare DID string (follow/block) or an object carrying
// a "uri" (repost/like). This replaces the Rust source's
// enum Subj { T1(String), T2(StrongRef) } with the Go-idiomatic approach of
// a custom UnmarshalJSON on a sum-type struct, as called for by spec.md §9.
type Subject struct {
	// DID is set when the wire value was a bare DID string.
	DID string
	// URI is set when the wire value was {"uri": "..."}.
	URI string
}

// UnmarshalJSON peeks the first non-whitespace byte to decide which variant
// is on the wire: '"' for a DID string, '{' for a strong-ref object.
// Anything else is a schema violation and is rejected rather than guessed.
func (s *Subject) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return fmt.Errorf("subject: empty value")
	}

	switch trimmed[0] {
	case '"':
		var did string
		if err := json.Unmarshal(trimmed, &did); err != nil {
			return fmt.Errorf("subject: decode DID variant: %w", err)
		}
		s.DID = did
		return nil
	case '{':
		var ref strongRef
		if err := json.Unmarshal(trimmed, &ref); err != nil {
			return fmt.Errorf("subject: decode strong-ref variant: %w", err)
		}
		s.URI = ref.URI
		return nil
	default:
		return fmt.Errorf("subject: unrecognized shape %q", trimmed[0])
	}
}

// IsDID reports whether the wire value was the bare-DID variant.
func (s *Subject) IsDID() bool {
	return s != nil && s.DID != ""
}

// IsURI reports whether the wire value was the strong-ref variant.
func (s *Subject) IsURI() bool {
	return s != nil && s.URI != ""
}
