package httpapi

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bsky-graph/ingest/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// signedClaims builds a bearer token carrying the given "iss" claim. The
// signature is never checked by requesterDID, so any key works.
func signedClaims(t *testing.T, iss string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"iss": iss})
	signed, err := token.SignedString([]byte("irrelevant"))
	require.NoError(t, err)
	return signed
}

func TestRequesterDIDFromValidBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/xrpc/app.bsky.feed.getFeedSkeleton", nil)
	req.Header.Set("Authorization", "Bearer "+signedClaims(t, "did:plc:requester"))

	did, ok := requesterDID(req)
	require.True(t, ok)
	assert.Equal(t, "did:plc:requester", did)
}

func TestRequesterDIDMissingHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/xrpc/app.bsky.feed.getFeedSkeleton", nil)

	_, ok := requesterDID(req)
	assert.False(t, ok)
}

func TestRequesterDIDMalformedPrefix(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/xrpc/app.bsky.feed.getFeedSkeleton", nil)
	req.Header.Set("Authorization", "Basic deadbeef")

	_, ok := requesterDID(req)
	assert.False(t, ok)
}

func TestRequesterDIDUnparsableToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/xrpc/app.bsky.feed.getFeedSkeleton", nil)
	req.Header.Set("Authorization", "Bearer not.a.jwt")

	_, ok := requesterDID(req)
	assert.False(t, ok)
}

func TestRequesterDIDMissingIssClaim(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "did:plc:x"})
	signed, err := token.SignedString([]byte("irrelevant"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/xrpc/app.bsky.feed.getFeedSkeleton", nil)
	req.Header.Set("Authorization", "Bearer "+signed)

	_, ok := requesterDID(req)
	assert.False(t, ok)
}

func TestHandleGetFeedSkeletonRoundTripsThroughBackfillChannel(t *testing.T) {
	backfillCh := make(chan domain.BackfillRequest, 1)
	s := &Server{backfillCh: backfillCh, logger: discardLogger()}

	go func() {
		req := <-backfillCh
		req.Reply <- domain.BackfillResponse{
			PostURIs: []string{"at://did:plc:x/app.bsky.feed.post/abc"},
			Cursor:   "1",
		}
	}()

	req := httptest.NewRequest(http.MethodGet, "/xrpc/app.bsky.feed.getFeedSkeleton?feed=at://did:plc:feed/app.bsky.feed.generator/test", nil)
	req.Header.Set("Authorization", "Bearer "+signedClaims(t, "did:plc:requester"))
	w := httptest.NewRecorder()

	s.handleGetFeedSkeleton(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "at://did:plc:x/app.bsky.feed.post/abc")
	assert.Contains(t, w.Body.String(), `"cursor":"1"`)
}

func TestHandleGetFeedSkeletonMissingFeedParam(t *testing.T) {
	s := &Server{logger: discardLogger()}

	req := httptest.NewRequest(http.MethodGet, "/xrpc/app.bsky.feed.getFeedSkeleton", nil)
	w := httptest.NewRecorder()

	s.handleGetFeedSkeleton(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleGetFeedSkeletonUnauthorized(t *testing.T) {
	s := &Server{logger: discardLogger()}

	req := httptest.NewRequest(http.MethodGet, "/xrpc/app.bsky.feed.getFeedSkeleton?feed=x", nil)
	w := httptest.NewRecorder()

	s.handleGetFeedSkeleton(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
