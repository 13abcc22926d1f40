// Package aggregate builds on-demand multi-venue symbol views: prices,
// deposit networks, and deduplicated contract addresses from every
// configured venue, with per-source failures degraded to error strings
// instead of failing the whole view.
package aggregate

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/akavalov/fairwatch/internal/domain"
	"github.com/akavalov/fairwatch/internal/render"
	"github.com/akavalov/fairwatch/internal/venue"
)

const defaultTimeout = 15 * time.Second

// Coordinator fans a symbol lookup out to every connector and merges the
// results. It holds no state between calls.
type Coordinator struct {
	connectors []venue.Connector
	timeout    time.Duration
	logger     *slog.Logger
}

// NewCoordinator creates a coordinator over the given connectors. timeout
// bounds one whole aggregation batch.
func NewCoordinator(connectors []venue.Connector, timeout time.Duration, logger *slog.Logger) *Coordinator {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Coordinator{
		connectors: connectors,
		timeout:    timeout,
		logger:     logger.With(slog.String("component", "aggregate")),
	}
}

// venuePartial collects one venue's source results. Each field is written
// by exactly one goroutine before the group is waited on.
type venuePartial struct {
	name string

	futures    venue.FuturesTicker
	futuresErr error

	spot    venue.SpotTicker
	spotErr error

	contract    venue.ContractDetail
	contractErr error

	networks    []venue.Network
	networksErr error

	index    venue.IndexComposition
	indexErr error
}

// Aggregate queries every venue for symbol and merges the answers. A
// failed source contributes an entry to view.Errors and an unavailable
// field, never stale or zero data.
func (c *Coordinator) Aggregate(ctx context.Context, symbol string) domain.AggregatedSymbolView {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	coin := venue.BaseCoin(symbol)
	partials := make([]*venuePartial, len(c.connectors))

	g, gctx := errgroup.WithContext(ctx)
	for i, conn := range c.connectors {
		p := &venuePartial{name: conn.Name()}
		partials[i] = p
		conn := conn

		g.Go(func() error {
			p.futures, p.futuresErr = conn.GetTicker(gctx, symbol)
			return nil
		})
		g.Go(func() error {
			p.spot, p.spotErr = conn.GetSpotTicker(gctx, symbol)
			return nil
		})
		g.Go(func() error {
			p.contract, p.contractErr = conn.GetContractDetail(gctx, symbol)
			return nil
		})
		g.Go(func() error {
			p.networks, p.networksErr = conn.GetNetworkInfo(gctx, coin)
			return nil
		})
		g.Go(func() error {
			p.index, p.indexErr = conn.GetIndexComposition(gctx, symbol)
			return nil
		})
	}
	_ = g.Wait() // workers only record, never fail the group

	view := domain.AggregatedSymbolView{Symbol: symbol, BuiltAt: time.Now()}
	byVenue := make(map[string][]venue.Network)

	for _, p := range partials {
		report := domain.VenueReport{Venue: p.name}

		if p.futuresErr != nil {
			view.Errors = append(view.Errors, p.name+" futures: "+p.futuresErr.Error())
		} else {
			report.FuturesPrice = render.Price(p.futures.LastPrice)
		}

		if p.spotErr != nil {
			view.Errors = append(view.Errors, p.name+" spot: "+p.spotErr.Error())
		} else {
			report.SpotPrice = render.Price(p.spot.LastPrice)
			report.SpotURL = p.spot.URL
		}

		if p.contractErr != nil {
			view.Errors = append(view.Errors, p.name+" contract: "+p.contractErr.Error())
		} else {
			report.FuturesURL = p.contract.FuturesURL
		}

		if p.indexErr != nil {
			view.Errors = append(view.Errors, p.name+" index: "+p.indexErr.Error())
		} else if len(p.index.Constituents) > 0 {
			report.Index = render.IndexSummary(p.index)
		}

		if p.networksErr != nil {
			view.Errors = append(view.Errors, p.name+" networks: "+p.networksErr.Error())
		} else if len(p.networks) > 0 {
			first := p.networks[0]
			report.Network = CanonicalNetwork(first.Name)
			report.DepositEnabled = first.DepositEnabled
			report.WithdrawEnabled = first.WithdrawEnabled
			byVenue[p.name] = p.networks
		}

		view.Venues = append(view.Venues, report)
	}

	view.Contracts = GroupContracts(byVenue)

	if len(view.Errors) > 0 {
		c.logger.Debug("partial aggregation",
			slog.String("symbol", symbol),
			slog.Int("errors", len(view.Errors)))
	}
	return view
}

// ScannerLinks returns the external token scanner URLs for an address.
func ScannerLinks(network, address string) []string {
	var links []string
	if u := DexScreenerURL(network, address); u != "" {
		links = append(links, u)
	}
	if u := GMGNURL(network, address); u != "" {
		links = append(links, u)
	}
	return links
}
