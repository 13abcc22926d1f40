// Package domain holds the core value types shared across fairwatch:
// ticker snapshots, spread evaluations, alert events, and aggregated
// per-symbol views. Everything here is plain data; behavior lives in the
// services that produce and consume it.
package domain

import "time"

// TickerSnapshot is a normalized per-venue futures ticker observation.
// It is immutable once produced and lives only for the current evaluation.
type TickerSnapshot struct {
	Venue          string
	Instrument     string
	LastPrice      float64
	ReferencePrice float64 // venue mark/fair price
	Volume24h      float64
	ObservedAt     time.Time
}

// Usable reports whether the snapshot carries prices that can be evaluated.
// Non-positive prices make a snapshot unusable for alerting; such snapshots
// are discarded, never treated as a signal.
func (s TickerSnapshot) Usable() bool {
	return s.Instrument != "" && s.LastPrice > 0 && s.ReferencePrice > 0
}

// Direction is the trading bias implied by a spread.
type Direction string

const (
	// DirectionShort means the last price trades above fair value.
	DirectionShort Direction = "SHORT"
	// DirectionLong means the last price trades below fair value.
	DirectionLong Direction = "LONG"
)

// SpreadResult is the derived spread evaluation for one snapshot.
type SpreadResult struct {
	Instrument       string
	SpreadPct        float64 // signed, percent
	Direction        Direction
	ExceedsThreshold bool
}

// AlertKey identifies the cooldown scope of an alert: one venue-instrument
// pair holds at most one live cooldown entry at a time.
type AlertKey struct {
	Venue      string
	Instrument string
}

// String renders the key in "venue:instrument" form, used as a cache key.
func (k AlertKey) String() string {
	return k.Venue + ":" + k.Instrument
}
