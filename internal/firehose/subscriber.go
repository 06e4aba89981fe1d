package firehose

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bsky-graph/ingest/internal/domain"
)

// idleTimeout is how long the read loop waits for a frame before assuming
// the connection has degraded and reconnecting, per spec.md §4.D.
const idleTimeout = 2 * time.Second

// reconnectCursorSkew is subtracted from "now" to build the resume cursor on
// reconnect, compensating for the in-flight gap left by the dropped
// connection.
const reconnectCursorSkew = 2 * time.Second

// statsLogInterval matches the teacher's periodic-logging idiom in
// Subscriber.subscribe.
const statsLogInterval = 30 * time.Second

// wantedCollections are the two collection-namespace wildcards this pipeline
// requests from Jetstream.
var wantedCollections = []string{
	"app.bsky.graph.*",
	"app.bsky.feed.*",
}

// EventHandler is invoked for every mutation the classifier dispatches.
type EventHandler func(ctx context.Context, mutation domain.Mutation, driftMS float64)

// Subscriber connects to the Jetstream firehose, decodes and classifies
// frames, and invokes handler for every dispatched mutation.
type Subscriber struct {
	url        string
	compress   bool
	codec      *Codec
	classifier *Classifier
	handler    EventHandler
	logger     *slog.Logger
}

// NewSubscriber builds a Subscriber. codec and classifier are owned
// exclusively by this Subscriber's read loop (see Codec's concurrency note).
func NewSubscriber(firehoseURL string, compress bool, codec *Codec, classifier *Classifier, handler EventHandler, logger *slog.Logger) *Subscriber {
	return &Subscriber{
		url:        firehoseURL,
		compress:   compress,
		codec:      codec,
		classifier: classifier,
		handler:    handler,
		logger:     logger,
	}
}

// Start connects to the firehose and processes frames until ctx is
// cancelled, reconnecting automatically on idle timeout, close, or error.
func (s *Subscriber) Start(ctx context.Context) error {
	var cursorUS int64 // 0 means "start live" on the very first connect

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		nextCursor, err := s.connectAndRead(ctx, cursorUS)
		cursorUS = nextCursor
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Error("firehose connection error, reconnecting", "error", err)
		}
	}
}

func (s *Subscriber) buildURL(cursorUS int64) string {
	u, _ := url.Parse(s.url)
	q := u.Query()
	for _, c := range wantedCollections {
		q.Add("wantedCollections", c)
	}
	q.Set("compress", fmt.Sprintf("%t", s.compress))
	if cursorUS > 0 {
		q.Set("cursor", fmt.Sprintf("%d", cursorUS))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// connectAndRead runs one connection's read loop and returns the cursor the
// next reconnect attempt should resume from.
func (s *Subscriber) connectAndRead(ctx context.Context, cursorUS int64) (int64, error) {
	wsURL := s.buildURL(cursorUS)
	s.logger.Info("connecting to firehose", "url", wsURL)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return reconnectCursor(), fmt.Errorf("dial firehose: %w", err)
	}
	defer conn.Close()

	s.logger.Info("connected to firehose")

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	var eventsReceived, commitsReceived, dispatched int64
	lastStatsLog := time.Now()

	for {
		if err := conn.SetReadDeadline(time.Now().Add(idleTimeout)); err != nil {
			return reconnectCursor(), fmt.Errorf("set read deadline: %w", err)
		}

		opcode, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return reconnectCursor(), ctx.Err()
			}
			return reconnectCursor(), fmt.Errorf("read frame: %w", err)
		}

		switch opcode {
		case websocket.BinaryMessage, websocket.TextMessage:
			eventsReceived++
			evt, err := s.codec.Decode(message, s.compress)
			if err != nil {
				s.logger.Error("failed to decode frame", "error", err)
				continue
			}

			if evt.Commit != nil {
				commitsReceived++
			}

			mutation, driftMS, ok := s.classifier.Classify(evt, time.Now())
			if ok {
				dispatched++
				s.handler(ctx, mutation, driftMS)
			}

		case websocket.CloseMessage:
			s.logger.Info("firehose closed connection")
			return reconnectCursor(), fmt.Errorf("connection closed")

		default:
			// Ping/pong are handled by gorilla/websocket internally; any
			// other opcode is ignored per spec.md §4.D.
		}

		if time.Since(lastStatsLog) >= statsLogInterval {
			s.logger.Info("firehose stats",
				"events_received", eventsReceived,
				"commits_received", commitsReceived,
				"mutations_dispatched", dispatched,
			)
			lastStatsLog = time.Now()
		}
	}
}

// reconnectCursor computes "now minus 2s", the resume point spec.md §4.D
// specifies to compensate for the in-flight gap left by a dropped
// connection.
func reconnectCursor() int64 {
	return time.Now().Add(-reconnectCursorSkew).UnixMicro()
}
