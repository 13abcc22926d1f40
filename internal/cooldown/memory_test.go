package cooldown

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akavalov/fairwatch/internal/domain"
)

func TestMemoryTrackerMarkAndExpire(t *testing.T) {
	tracker := NewMemoryTracker(map[string]time.Duration{"GATE": 30 * time.Millisecond}, time.Minute)
	defer tracker.Close()

	ctx := context.Background()
	key := domain.AlertKey{Venue: "GATE", Instrument: "BTC_USDT"}

	active, err := tracker.IsActive(ctx, key)
	require.NoError(t, err)
	assert.False(t, active)

	require.NoError(t, tracker.Mark(ctx, key))

	active, err = tracker.IsActive(ctx, key)
	require.NoError(t, err)
	assert.True(t, active)

	assert.Eventually(t, func() bool {
		active, err := tracker.IsActive(ctx, key)
		return err == nil && !active
	}, time.Second, 5*time.Millisecond)
}

func TestMemoryTrackerRestartSurvivesStaleExpiry(t *testing.T) {
	tracker := NewMemoryTracker(map[string]time.Duration{"GATE": 100 * time.Millisecond}, time.Minute)
	defer tracker.Close()

	ctx := context.Background()
	key := domain.AlertKey{Venue: "GATE", Instrument: "ABC_USDT"}

	require.NoError(t, tracker.Mark(ctx, key))

	// Hold the lock past expiry so the first window's callback is queued
	// behind it, then restart the window while that callback is pending.
	tracker.mu.Lock()
	time.Sleep(150 * time.Millisecond)
	remarked := make(chan struct{})
	go func() {
		_ = tracker.Mark(ctx, key)
		close(remarked)
	}()
	time.Sleep(10 * time.Millisecond)
	tracker.mu.Unlock()
	<-remarked

	// Let the stale callback finish before checking the fresh window.
	time.Sleep(30 * time.Millisecond)
	active, err := tracker.IsActive(ctx, key)
	require.NoError(t, err)
	assert.True(t, active, "restarted window must not be voided by the previous window's expiry")
}

func TestMemoryTrackerRelease(t *testing.T) {
	tracker := NewMemoryTracker(nil, time.Minute)
	defer tracker.Close()

	ctx := context.Background()
	key := domain.AlertKey{Venue: "MEXC", Instrument: "ETH_USDT"}

	require.NoError(t, tracker.Mark(ctx, key))
	require.NoError(t, tracker.Release(ctx, key))

	active, err := tracker.IsActive(ctx, key)
	require.NoError(t, err)
	assert.False(t, active)

	// releasing again is a no-op
	require.NoError(t, tracker.Release(ctx, key))
}

func TestMemoryTrackerKeysAreIndependent(t *testing.T) {
	tracker := NewMemoryTracker(map[string]time.Duration{
		"GATE": time.Minute,
		"MEXC": time.Minute,
	}, time.Minute)
	defer tracker.Close()

	ctx := context.Background()
	gate := domain.AlertKey{Venue: "GATE", Instrument: "BTC_USDT"}
	mexc := domain.AlertKey{Venue: "MEXC", Instrument: "BTC_USDT"}

	require.NoError(t, tracker.Mark(ctx, gate))

	active, err := tracker.IsActive(ctx, mexc)
	require.NoError(t, err)
	assert.False(t, active, "same instrument on another venue must not be gated")
}

func TestMemoryTrackerWindowFallback(t *testing.T) {
	tracker := NewMemoryTracker(map[string]time.Duration{"GATE": 2 * time.Minute}, 5*time.Minute)
	defer tracker.Close()

	assert.Equal(t, 2*time.Minute, tracker.Window("GATE"))
	assert.Equal(t, 5*time.Minute, tracker.Window("MEXC"))
}
