// Package pipeline turns raw streamed frames into delivered alerts:
// normalize, evaluate the spread, gate through the cooldown tracker,
// enrich, and hand off to the notification sink.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/akavalov/fairwatch/internal/cooldown"
	"github.com/akavalov/fairwatch/internal/domain"
	"github.com/akavalov/fairwatch/internal/stream"
)

// Normalizer converts one raw venue frame into canonical snapshots.
// Implementations drop malformed entries rather than erroring.
type Normalizer interface {
	Normalize(msg stream.Message) []domain.TickerSnapshot
}

// Alerter is the delivery boundary. notify.Notifier satisfies it.
type Alerter interface {
	Alert(ctx context.Context, ev domain.AlertEvent) error
}

// Recorder persists fired alerts. Optional; nil disables persistence.
type Recorder interface {
	Insert(ctx context.Context, ev domain.AlertEvent) error
}

// Pipeline processes one venue's ticker stream. A single Pipeline instance
// is driven by a single consumer goroutine, so per-venue evaluation order
// matches arrival order.
type Pipeline struct {
	venueName    string
	normalizer   Normalizer
	thresholdPct float64
	tracker      cooldown.Tracker
	enricher     *Enricher
	alerter      Alerter
	recorder     Recorder
	logger       *slog.Logger
}

// New creates a pipeline for one venue. enricher and recorder may be nil.
func New(venueName string, normalizer Normalizer, thresholdPct float64, tracker cooldown.Tracker,
	enricher *Enricher, alerter Alerter, recorder Recorder, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		venueName:    venueName,
		normalizer:   normalizer,
		thresholdPct: thresholdPct,
		tracker:      tracker,
		enricher:     enricher,
		alerter:      alerter,
		recorder:     recorder,
		logger:       logger.With(slog.String("component", "pipeline"), slog.String("venue", venueName)),
	}
}

// Handler adapts the pipeline to the supervisor's delivery callback.
func (p *Pipeline) Handler() stream.Handler {
	return p.Handle
}

// Handle processes one raw frame. Malformed frames and unusable snapshots
// are dropped; qualifying spreads inside a live cooldown window produce no
// extra alerts.
func (p *Pipeline) Handle(ctx context.Context, msg stream.Message) {
	for _, snap := range p.normalizer.Normalize(msg) {
		if !snap.Usable() {
			continue
		}

		result := Evaluate(snap, p.thresholdPct)
		if !result.ExceedsThreshold {
			continue
		}

		key := domain.AlertKey{Venue: snap.Venue, Instrument: snap.Instrument}
		active, err := p.tracker.IsActive(ctx, key)
		if err != nil {
			p.logger.WarnContext(ctx, "cooldown check failed, alert skipped",
				slog.String("key", key.String()),
				slog.String("error", err.Error()),
			)
			continue
		}
		if active {
			continue
		}

		// Mark before delivery so a slow enrichment cannot open a window
		// for a duplicate from the next frame.
		if err := p.tracker.Mark(ctx, key); err != nil {
			p.logger.WarnContext(ctx, "cooldown mark failed",
				slog.String("key", key.String()),
				slog.String("error", err.Error()),
			)
		}

		ev := domain.AlertEvent{
			ID:             uuid.NewString(),
			Venue:          snap.Venue,
			Instrument:     snap.Instrument,
			LastPrice:      snap.LastPrice,
			ReferencePrice: snap.ReferencePrice,
			SpreadPct:      result.SpreadPct,
			Direction:      result.Direction,
			Volume24h:      snap.Volume24h,
			FiredAt:        time.Now(),
		}
		if p.enricher != nil {
			p.enricher.Enrich(ctx, &ev)
		}

		if err := p.alerter.Alert(ctx, ev); err != nil {
			p.logger.ErrorContext(ctx, "alert delivery failed",
				slog.String("key", key.String()),
				slog.String("error", err.Error()),
			)
		}

		if p.recorder != nil {
			if err := p.recorder.Insert(ctx, ev); err != nil {
				p.logger.WarnContext(ctx, "alert history insert failed",
					slog.String("key", key.String()),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}
