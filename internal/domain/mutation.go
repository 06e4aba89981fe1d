package domain

// MutationKind identifies which graph.Mutator method a Mutation should be
// dispatched to.
type MutationKind int

const (
	MutationNone MutationKind = iota
	// MutationAddPost also triggers an AddReply call first when IsReply is
	// set, per spec.md §4.B: "compute parent_rkey ... call add_reply(...)
	// before add_post. Then add_post(...)".
	MutationAddPost
	MutationAddRepost
	MutationAddLike
	MutationAddFollow
	MutationAddBlock
	MutationRmPost
	MutationRmRepost
	MutationRmLike
	MutationRmFollow
	MutationRmBlock
)

// Mutation is the typed request the event classifier (internal/firehose)
// hands to the graph mutator (internal/graph). It is a plain data struct
// crossing the subsystem boundary, the same shape as the teacher's
// domain.IncomingPost.
type Mutation struct {
	Kind MutationKind

	DID  string
	RKey string

	// CreatedAtUS, IsReply, IsImage are only set for MutationAddPost.
	CreatedAtUS int64
	IsReply     bool
	IsImage     bool

	// ParentRKey is only set for MutationAddPost when IsReply is true.
	ParentRKey string

	// TargetRKey is only set for MutationAddRepost/MutationAddLike — the
	// rkey of the post being reposted or liked.
	TargetRKey string

	// OtherDID is only set for MutationAddFollow/MutationAddBlock: the
	// followed DID for a follow, and the blocker DID for a block (whose DID
	// field holds the blockee).
	OtherDID string
}
