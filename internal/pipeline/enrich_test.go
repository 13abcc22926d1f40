package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/akavalov/fairwatch/internal/domain"
	"github.com/akavalov/fairwatch/internal/venue"
)

// enrichConnector serves only the three enrichment lookups.
type enrichConnector struct {
	comp    venue.IndexComposition
	compErr error

	nets    []venue.Network
	netsErr error

	detail    venue.ContractDetail
	detailErr error
}

func (c *enrichConnector) Name() string { return "MEXC" }

func (c *enrichConnector) GetTicker(context.Context, string) (venue.FuturesTicker, error) {
	return venue.FuturesTicker{}, nil
}

func (c *enrichConnector) GetAllTickers(context.Context) ([]venue.FuturesTicker, error) {
	return nil, nil
}

func (c *enrichConnector) GetContractDetail(context.Context, string) (venue.ContractDetail, error) {
	return c.detail, c.detailErr
}

func (c *enrichConnector) GetAllContracts(context.Context) ([]venue.ContractDetail, error) {
	return nil, nil
}

func (c *enrichConnector) GetIndexComposition(context.Context, string) (venue.IndexComposition, error) {
	return c.comp, c.compErr
}

func (c *enrichConnector) GetNetworkInfo(context.Context, string) ([]venue.Network, error) {
	return c.nets, c.netsErr
}

func (c *enrichConnector) GetSpotTicker(context.Context, string) (venue.SpotTicker, error) {
	return venue.SpotTicker{}, nil
}

func TestEnrichFillsAllFields(t *testing.T) {
	conn := &enrichConnector{
		comp: venue.IndexComposition{
			Symbol: "ABC_USDT",
			Constituents: []venue.IndexConstituent{
				{Exchange: "Binance", WeightPct: 60},
				{Exchange: "OKX", WeightPct: 40},
			},
		},
		nets: []venue.Network{
			{Name: "BEP20", Address: "0xabc", DepositEnabled: true, WithdrawEnabled: true},
		},
		detail: venue.ContractDetail{Symbol: "ABC_USDT", ContractSize: 10, MaxVolume: 500},
	}

	e := NewEnricher(conn, time.Second, testLogger())
	ev := domain.AlertEvent{Venue: "MEXC", Instrument: "ABC_USDT", LastPrice: 2}
	e.Enrich(context.Background(), &ev)

	assert.Contains(t, ev.IndexInfo, "Binance 60.00%")
	assert.Contains(t, ev.IndexInfo, "OKX 40.00%")
	assert.Contains(t, ev.NetworkInfo, "BSC")
	assert.Contains(t, ev.NetworkInfo, "dexscreener.com/bsc/0xabc")
	assert.Contains(t, ev.BuyLimitInfo, "5K tokens")
	assert.Contains(t, ev.BuyLimitInfo, "10K USDT")
}

func TestEnrichDegradesPerField(t *testing.T) {
	conn := &enrichConnector{
		comp: venue.IndexComposition{
			Symbol:       "ABC_USDT",
			Constituents: []venue.IndexConstituent{{Exchange: "Bybit", WeightPct: 100}},
		},
		netsErr:   errors.New("wallet api down"),
		detailErr: errors.New("contract api down"),
	}

	e := NewEnricher(conn, time.Second, testLogger())
	ev := domain.AlertEvent{Venue: "MEXC", Instrument: "ABC_USDT", LastPrice: 2}
	e.Enrich(context.Background(), &ev)

	assert.Contains(t, ev.IndexInfo, "Bybit")
	assert.Equal(t, domain.Unavailable, ev.NetworkInfo)
	assert.Equal(t, domain.Unavailable, ev.BuyLimitInfo)
}
