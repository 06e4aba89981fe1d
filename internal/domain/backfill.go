package domain

// BackfillRequest is sent by the HTTP layer for every feed-skeleton request.
// The backfill worker (internal/backfill) pages that DID's follow and block
// lists and writes them into the graph before replying, unless it has
// already backfilled that DID, in which case it only replies.
type BackfillRequest struct {
	// DID is the requesting user's identity.
	DID string

	// RequestID correlates this request across the HTTP handler and worker
	// logs. Generated per-request by the HTTP layer.
	RequestID string

	// Reply carries the (placeholder, see SPEC_FULL.md §9.2) feed response
	// back to the HTTP handler that sent this request.
	Reply chan BackfillResponse
}

// BackfillResponse is the single reply sent back on Reply. The real feed
// ranking logic this would normally carry is out of scope (spec.md §1
// Non-goals); PostURIs and Cursor are a deliberate MVP placeholder.
type BackfillResponse struct {
	PostURIs []string
	Cursor   string
}
