// Package config loads process configuration from environment variables and,
// optionally, a TOML spam-list file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// defaultSpamDIDs are the accounts the reference implementation hard-coded as
// spam. They remain the default when SPAM_LIST_PATH is unset.
var defaultSpamDIDs = []string{
	"did:plc:xdx2v7gyd5dmfqt7v77gf457",
	"did:plc:a56vfzkrxo2bh443zgjxr4ix",
	"did:plc:cov6pwd7ajm2wgkrgbpej2f3",
	"did:plc:fcnbisw7xl6lmtcnvioocffz",
	"did:plc:ss7fj6p6yfirwq2hnlkfuntt",
}

// Config holds all configuration for the ingestion pipeline.
type Config struct {
	// FirehoseURL is the Jetstream WebSocket endpoint.
	FirehoseURL string

	// Compress requests zstd-compressed frames from Jetstream.
	Compress bool

	// BoltURL, BoltUser, BoltPassword are the graph database credentials.
	BoltURL      string
	BoltUser     string
	BoltPassword string

	// PurgeHorizon is the maximum age of a post before the purge scheduler
	// removes it. Distinct from the fixed 24h create-time staleness cutoff.
	PurgeHorizon time.Duration

	// BackfillQueueSize bounds the backfill request channel.
	BackfillQueueSize int

	// SpamDIDs is the set of DIDs whose events are dropped before mutation.
	SpamDIDs []string

	// HTTPAddr is the address the minimal backfill-trigger HTTP server binds.
	HTTPAddr string

	// FeedgenServiceDID and FeedgenHostname configure the HTTP layer's
	// did:web identity. Only consumed by internal/httpapi.
	FeedgenServiceDID string
	FeedgenHostname   string
}

// spamFile is the shape of an optional TOML spam-list override.
type spamFile struct {
	Spam []spamEntry `toml:"spam"`
}

type spamEntry struct {
	DID string `toml:"did"`
}

// Load reads configuration from environment variables with sensible
// defaults, following the teacher's Load() shape.
func Load() (*Config, error) {
	compress := os.Getenv("COMPRESS_ENABLE") != ""

	firehoseURL := os.Getenv("FIREHOSE_URL")
	if firehoseURL == "" {
		firehoseURL = "wss://jetstream1.us-east.bsky.network/subscribe"
	}

	boltURL := os.Getenv("BOLT_URL")
	if boltURL == "" {
		boltURL = "bolt://localhost:7687"
	}

	purgeHorizon := 30 * 24 * time.Hour
	if v := os.Getenv("PURGE_HORIZON"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid PURGE_HORIZON: %w", err)
		}
		purgeHorizon = d
	}

	backfillQueueSize := 100
	if v := os.Getenv("BACKFILL_QUEUE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid BACKFILL_QUEUE_SIZE: %w", err)
		}
		backfillQueueSize = n
	}

	spamDIDs, err := loadSpamDIDs(os.Getenv("SPAM_LIST_PATH"))
	if err != nil {
		return nil, err
	}

	httpAddr := os.Getenv("HTTP_ADDR")
	if httpAddr == "" {
		httpAddr = ":3000"
	}

	return &Config{
		FirehoseURL:       firehoseURL,
		Compress:          compress,
		BoltURL:           boltURL,
		BoltUser:          os.Getenv("MM_USER"),
		BoltPassword:      os.Getenv("MM_PW"),
		PurgeHorizon:      purgeHorizon,
		BackfillQueueSize: backfillQueueSize,
		SpamDIDs:          spamDIDs,
		HTTPAddr:          httpAddr,
		FeedgenServiceDID: os.Getenv("FEEDGEN_SERVICE_DID"),
		FeedgenHostname:   os.Getenv("FEEDGEN_HOSTNAME"),
	}, nil
}

// loadSpamDIDs reads the optional TOML spam list, falling back to the
// built-in defaults when path is empty.
func loadSpamDIDs(path string) ([]string, error) {
	if path == "" {
		return defaultSpamDIDs, nil
	}

	var f spamFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("decode spam list %s: %w", path, err)
	}

	dids := make([]string, 0, len(f.Spam))
	for _, e := range f.Spam {
		if e.DID != "" {
			dids = append(dids, e.DID)
		}
	}
	return dids, nil
}
