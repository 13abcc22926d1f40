package domain

import "time"

// AlertEvent is the unit handed to the notification sink when a spread
// crosses the configured threshold. The enrichment fields are best-effort:
// a failed lookup degrades the field to a placeholder and never blocks the
// alert itself.
type AlertEvent struct {
	ID             string // UUID
	Venue          string
	Instrument     string
	LastPrice      float64
	ReferencePrice float64
	SpreadPct      float64
	Direction      Direction
	Volume24h      float64

	// Supplementary reference data, each independently fault-tolerant.
	IndexInfo    string // index pool composition summary
	NetworkInfo  string // on-chain networks with scanner links
	BuyLimitInfo string // position-limit-derived buying capacity

	FiredAt time.Time
}

// Key returns the cooldown key for this alert.
func (a AlertEvent) Key() AlertKey {
	return AlertKey{Venue: a.Venue, Instrument: a.Instrument}
}
