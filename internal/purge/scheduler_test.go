package purge

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakePurger struct {
	calls       int
	lastHorizon time.Duration
	removed     int64
	err         error
}

func (f *fakePurger) PurgeOlderThan(_ context.Context, horizon time.Duration) (int64, error) {
	f.calls++
	f.lastHorizon = horizon
	return f.removed, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunOnceCallsPurgeWithConfiguredHorizon(t *testing.T) {
	fp := &fakePurger{removed: 3}
	s := NewScheduler(fp, 10*time.Minute, discardLogger())

	s.runOnce(context.Background())

	assert.Equal(t, 1, fp.calls)
	assert.Equal(t, 10*time.Minute, fp.lastHorizon)
}

func TestRunOnceLogsAndContinuesOnError(t *testing.T) {
	fp := &fakePurger{err: errors.New("db unavailable")}
	s := NewScheduler(fp, time.Hour, discardLogger())

	assert.NotPanics(t, func() {
		s.runOnce(context.Background())
	})
	assert.Equal(t, 1, fp.calls)
}

func TestSchedulerRunStopsOnContextCancel(t *testing.T) {
	fp := &fakePurger{removed: 3}
	s := NewScheduler(fp, 30*24*time.Hour, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after context cancellation")
	}

	// No tick fired within the interval, so PurgeOlderThan is never called.
	assert.Equal(t, 0, fp.calls)
}
