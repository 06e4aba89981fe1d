// Package httpapi is the minimal feed-generator HTTP surface: enough to
// satisfy describeFeedGenerator, did:web identity, and getFeedSkeleton's
// backfill trigger. Full JWT verification, the forward-proxy mode, and
// real feed ranking are out of scope (spec.md §1) — this package exists
// only at the interface where the HTTP side hands requests to the
// ingestion core's backfill channel.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/bsky-graph/ingest/internal/config"
	"github.com/bsky-graph/ingest/internal/domain"
)

// pinger is the read-only slice of graph.Mutator this package depends on:
// a liveness check against the pooled driver, never a mutation.
type pinger interface {
	Inner() neo4j.DriverWithContext
}

// Server serves the feed generator XRPC endpoints and forwards backfill
// triggers onto a shared channel read by internal/backfill.Worker.
type Server struct {
	cfg        *config.Config
	backfillCh chan<- domain.BackfillRequest
	graph      pinger
	logger     *slog.Logger
	httpServer *http.Server
}

// NewServer builds a Server. backfillCh is the same channel the
// orchestrator hands to the backfill worker; graph is used only for the
// /health readiness check.
func NewServer(cfg *config.Config, backfillCh chan<- domain.BackfillRequest, graph pinger, logger *slog.Logger) *Server {
	s := &Server{
		cfg:        cfg,
		backfillCh: backfillCh,
		graph:      graph,
		logger:     logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /.well-known/did.json", s.handleDIDDoc)
	mux.HandleFunc("GET /xrpc/app.bsky.feed.describeFeedGenerator", s.handleDescribeFeedGenerator)
	mux.HandleFunc("GET /xrpc/app.bsky.feed.getFeedSkeleton", s.handleGetFeedSkeleton)
	mux.HandleFunc("GET /health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      withLogging(logger, mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start begins listening for HTTP requests. It blocks until the server is
// shut down or an error occurs.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// handleHealth verifies the graph driver's pool still has a reachable
// member before reporting ready. It reads through graph.Inner() directly,
// bypassing the mutator's write lock entirely.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.graph != nil {
		if err := s.graph.Inner().VerifyConnectivity(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDIDDoc(w http.ResponseWriter, _ *http.Request) {
	doc := map[string]any{
		"@context": []string{"https://www.w3.org/ns/did/v1"},
		"id":       s.cfg.FeedgenServiceDID,
		"service": []map[string]any{
			{
				"id":              "#bsky_fg",
				"type":            "BskyFeedGenerator",
				"serviceEndpoint": fmt.Sprintf("https://%s", s.cfg.FeedgenHostname),
			},
		},
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDescribeFeedGenerator(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{
		"did":   s.cfg.FeedgenServiceDID,
		"feeds": []map[string]string{},
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleGetFeedSkeleton extracts the requester's DID from the (unverified,
// stub) service-auth bearer token and, on every request, blocks on a round
// trip through the backfill channel before responding; the worker skips the
// backfill itself for DIDs it has already backfilled but always replies. Real
// JWT signature verification against the requester's PDS signing key is
// out of scope; see spec.md §1.
func (s *Server) handleGetFeedSkeleton(w http.ResponseWriter, r *http.Request) {
	feedURI := r.URL.Query().Get("feed")
	if feedURI == "" {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "feed parameter is required")
		return
	}

	did, ok := requesterDID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "AuthRequired", "missing or malformed bearer token")
		return
	}

	requestID := uuid.NewString()
	reply := make(chan domain.BackfillResponse, 1)
	select {
	case s.backfillCh <- domain.BackfillRequest{DID: did, RequestID: requestID, Reply: reply}:
	case <-r.Context().Done():
		return
	}

	s.logger.Debug("backfill requested", "did", did, "request_id", requestID)

	var result domain.BackfillResponse
	select {
	case result = <-reply:
	case <-r.Context().Done():
		return
	}

	feed := make([]map[string]string, 0, len(result.PostURIs))
	for _, uri := range result.PostURIs {
		feed = append(feed, map[string]string{"post": uri})
	}

	resp := map[string]any{"feed": feed}
	if result.Cursor != "" {
		resp["cursor"] = result.Cursor
	}
	writeJSON(w, http.StatusOK, resp)
}

// requesterDID parses the bearer token's claims without verifying its
// signature and returns the "iss" claim, which AT Protocol service auth
// sets to the requesting account's DID.
func requesterDID(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
		return "", false
	}
	raw := header[len(prefix):]

	claims := jwt.MapClaims{}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return "", false
	}

	iss, ok := claims["iss"].(string)
	if !ok || iss == "" {
		return "", false
	}
	return iss, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, errType, message string) {
	writeJSON(w, status, map[string]string{
		"error":   errType,
		"message": message,
	})
}

func withLogging(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.status,
			"duration", time.Since(start),
		)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
