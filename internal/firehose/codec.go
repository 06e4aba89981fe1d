package firehose

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/bsky-graph/ingest/internal/firehose/dictionary"
)

// maxFrameSize bounds the decompressed size of a single firehose frame.
const maxFrameSize = 400 * 1024

// Codec decompresses (when needed) and JSON-decodes raw firehose frames. A
// Codec is not safe for concurrent use — the underlying zstd decoder keeps
// mutable history-window state — so callers must confine it to a single
// goroutine, as the firehose read loop does. The mutex below is a guard
// against a future caller breaking that discipline, not something the
// current single-task design exercises.
type Codec struct {
	mu      sync.Mutex
	decoder *zstd.Decoder
}

// NewCodec builds a Codec with the bundled dictionary pre-loaded.
func NewCodec() (*Codec, error) {
	dec, err := zstd.NewReader(nil, zstd.WithDecoderDicts(dictionary.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("build zstd decoder: %w", err)
	}
	return &Codec{decoder: dec}, nil
}

// Close releases the decoder's resources.
func (c *Codec) Close() {
	c.decoder.Close()
}

// Decode turns a raw frame into an Event. When compressed is true, the frame
// is first zstd-decompressed against the bundled dictionary. Decode errors
// (corrupt payload, dictionary mismatch, malformed JSON) are returned for
// the caller to log and drop — never panicked.
func (c *Codec) Decode(frame []byte, compressed bool) (Event, error) {
	var evt Event

	if !compressed {
		if err := json.Unmarshal(frame, &evt); err != nil {
			return Event{}, fmt.Errorf("decode uncompressed frame: %w", err)
		}
		return evt, nil
	}

	c.mu.Lock()
	out, err := c.decoder.DecodeAll(frame, make([]byte, 0, maxFrameSize))
	c.mu.Unlock()
	if err != nil {
		return Event{}, fmt.Errorf("zstd decompress frame: %w", err)
	}

	if err := json.Unmarshal(out, &evt); err != nil {
		return Event{}, fmt.Errorf("decode decompressed frame: %w", err)
	}
	return evt, nil
}
