// Package drift tracks the rolling average arrival lag between upstream
// event emission and local receipt.
package drift

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// windowSize is the fixed number of samples the moving average is computed
// over, per spec.md §4.G.
const windowSize = 200

// logInterval is how often the current average is logged.
const logInterval = 5 * time.Second

// Meter is a fixed-window moving average over arrival-lag samples,
// expressed in milliseconds. It is safe for one writer and one reader
// goroutine concurrently.
type Meter struct {
	mu      sync.Mutex
	samples [windowSize]float64
	count   int // number of samples ever written, capped logically at windowSize
	next    int // ring write cursor
}

// NewMeter constructs an empty Meter.
func NewMeter() *Meter {
	return &Meter{}
}

// Sample records one arrival-lag observation, in milliseconds. Called on
// every successfully dispatched create/delete mutation.
func (m *Meter) Sample(ms float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.samples[m.next] = ms
	m.next = (m.next + 1) % windowSize
	if m.count < windowSize {
		m.count++
	}
}

// Average returns the arithmetic mean of the last min(N, 200) samples. It
// returns 0 if no samples have been recorded yet.
func (m *Meter) Average() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.count == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < m.count; i++ {
		sum += m.samples[i]
	}
	return sum / float64(m.count)
}

// Run logs the current average every logInterval until ctx is cancelled.
func (m *Meter) Run(ctx context.Context, logger *slog.Logger) {
	ticker := time.NewTicker(logInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// sample_id lets a log aggregator correlate this reading with
			// nothing in particular yet, but gives every drift log line a
			// unique key for dedup in downstream log pipelines.
			logger.Info("drift", "sample_id", uuid.NewString(), "avg_ms", m.Average())
		}
	}
}
