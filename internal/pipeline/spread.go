package pipeline

import (
	"math"

	"github.com/akavalov/fairwatch/internal/domain"
)

// Evaluate derives the spread result for one snapshot against thresholdPct.
// Snapshots with non-positive prices never produce a signal.
func Evaluate(s domain.TickerSnapshot, thresholdPct float64) domain.SpreadResult {
	if !s.Usable() {
		return domain.SpreadResult{Instrument: s.Instrument}
	}

	spread := (s.LastPrice - s.ReferencePrice) / s.ReferencePrice * 100

	direction := domain.DirectionLong
	if s.LastPrice > s.ReferencePrice {
		direction = domain.DirectionShort
	}

	return domain.SpreadResult{
		Instrument:       s.Instrument,
		SpreadPct:        spread,
		Direction:        direction,
		ExceedsThreshold: math.Abs(spread) >= thresholdPct,
	}
}
