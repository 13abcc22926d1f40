package cooldown

import (
	"context"
	"sync"
	"time"

	"github.com/akavalov/fairwatch/internal/domain"
)

// MemoryTracker keeps cooldown windows in process memory. Expiry is driven
// by one timer per active key; Close stops every outstanding timer.
type MemoryTracker struct {
	windows  map[string]time.Duration // per-venue window
	fallback time.Duration

	mu     sync.Mutex
	timers map[domain.AlertKey]*time.Timer
	closed bool
}

// NewMemoryTracker creates an in-memory tracker. windows maps a venue name
// to its cooldown duration; venues not listed use fallback.
func NewMemoryTracker(windows map[string]time.Duration, fallback time.Duration) *MemoryTracker {
	if fallback <= 0 {
		fallback = 2 * time.Minute
	}
	return &MemoryTracker{
		windows:  windows,
		fallback: fallback,
		timers:   make(map[domain.AlertKey]*time.Timer),
	}
}

// Window returns the cooldown duration for venue.
func (t *MemoryTracker) Window(venue string) time.Duration {
	if d, ok := t.windows[venue]; ok && d > 0 {
		return d
	}
	return t.fallback
}

// Mark implements Tracker.
func (t *MemoryTracker) Mark(_ context.Context, key domain.AlertKey) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	if timer, ok := t.timers[key]; ok {
		timer.Stop()
	}
	// The expiry callback may already be blocked on mu when Mark restarts a
	// window; it must only remove its own timer, never a fresh one.
	var timer *time.Timer
	timer = time.AfterFunc(t.Window(key.Venue), func() {
		t.mu.Lock()
		if t.timers[key] == timer {
			delete(t.timers, key)
		}
		t.mu.Unlock()
	})
	t.timers[key] = timer
	return nil
}

// IsActive implements Tracker.
func (t *MemoryTracker) IsActive(_ context.Context, key domain.AlertKey) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.timers[key]
	return ok, nil
}

// Release implements Tracker.
func (t *MemoryTracker) Release(_ context.Context, key domain.AlertKey) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if timer, ok := t.timers[key]; ok {
		timer.Stop()
		delete(t.timers, key)
	}
	return nil
}

// Close stops all timers. The tracker accepts no new marks afterwards.
func (t *MemoryTracker) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	for key, timer := range t.timers {
		timer.Stop()
		delete(t.timers, key)
	}
	return nil
}
