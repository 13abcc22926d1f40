package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/akavalov/fairwatch/internal/aggregate"
	"github.com/akavalov/fairwatch/internal/domain"
	"github.com/akavalov/fairwatch/internal/render"
	"github.com/akavalov/fairwatch/internal/venue"
)

// Enricher attaches supplementary reference data to an alert: index pool
// composition, on-chain networks with scanner links, and the venue's
// position-limit-derived buying capacity. Every lookup is independently
// fault-tolerant; a failure degrades its field to a placeholder and never
// delays or blocks the alert beyond the configured timeout.
type Enricher struct {
	connector venue.Connector
	timeout   time.Duration
	logger    *slog.Logger
}

// NewEnricher creates an enricher over the venue's REST connector.
func NewEnricher(connector venue.Connector, timeout time.Duration, logger *slog.Logger) *Enricher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Enricher{
		connector: connector,
		timeout:   timeout,
		logger:    logger.With(slog.String("component", "enrich"), slog.String("venue", connector.Name())),
	}
}

// Enrich fills ev's supplementary fields in place. The field values are
// render-ready plain strings; failed lookups read as unavailable.
func (e *Enricher) Enrich(ctx context.Context, ev *domain.AlertEvent) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var g errgroup.Group

	g.Go(func() error {
		comp, err := e.connector.GetIndexComposition(ctx, ev.Instrument)
		if err != nil {
			e.degrade(ctx, "index", ev.Instrument, err)
			ev.IndexInfo = domain.Unavailable
			return nil
		}
		ev.IndexInfo = render.IndexSummary(comp)
		return nil
	})

	g.Go(func() error {
		networks, err := e.connector.GetNetworkInfo(ctx, venue.BaseCoin(ev.Instrument))
		if err != nil {
			e.degrade(ctx, "networks", ev.Instrument, err)
			ev.NetworkInfo = domain.Unavailable
			return nil
		}
		groups := aggregate.GroupContracts(map[string][]venue.Network{ev.Venue: networks})
		ev.NetworkInfo = render.NetworkSummary(groups, aggregate.ScannerLinks)
		return nil
	})

	g.Go(func() error {
		detail, err := e.connector.GetContractDetail(ctx, ev.Instrument)
		if err != nil {
			e.degrade(ctx, "buy limit", ev.Instrument, err)
			ev.BuyLimitInfo = domain.Unavailable
			return nil
		}
		ev.BuyLimitInfo = render.BuyLimitSummary(detail, ev.LastPrice)
		return nil
	})

	_ = g.Wait()
}

func (e *Enricher) degrade(ctx context.Context, field, instrument string, err error) {
	e.logger.DebugContext(ctx, "enrichment degraded",
		slog.String("field", field),
		slog.String("instrument", instrument),
		slog.String("error", err.Error()),
	)
}
