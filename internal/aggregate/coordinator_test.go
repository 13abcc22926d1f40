package aggregate

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akavalov/fairwatch/internal/domain"
	"github.com/akavalov/fairwatch/internal/venue"
)

// fakeConnector returns canned values with per-method error injection.
type fakeConnector struct {
	name string

	futures venue.FuturesTicker
	spot    venue.SpotTicker
	detail  venue.ContractDetail
	nets    []venue.Network
	index   venue.IndexComposition

	futuresErr error
	spotErr    error
	detailErr  error
	netsErr    error
	indexErr   error
}

func (f *fakeConnector) Name() string { return f.name }

func (f *fakeConnector) GetTicker(context.Context, string) (venue.FuturesTicker, error) {
	return f.futures, f.futuresErr
}

func (f *fakeConnector) GetAllTickers(context.Context) ([]venue.FuturesTicker, error) {
	return []venue.FuturesTicker{f.futures}, f.futuresErr
}

func (f *fakeConnector) GetContractDetail(context.Context, string) (venue.ContractDetail, error) {
	return f.detail, f.detailErr
}

func (f *fakeConnector) GetAllContracts(context.Context) ([]venue.ContractDetail, error) {
	return []venue.ContractDetail{f.detail}, f.detailErr
}

func (f *fakeConnector) GetIndexComposition(context.Context, string) (venue.IndexComposition, error) {
	return f.index, f.indexErr
}

func (f *fakeConnector) GetNetworkInfo(context.Context, string) ([]venue.Network, error) {
	return f.nets, f.netsErr
}

func (f *fakeConnector) GetSpotTicker(context.Context, string) (venue.SpotTicker, error) {
	return f.spot, f.spotErr
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAggregatePartialFailure(t *testing.T) {
	gate := &fakeConnector{
		name:    "GATE",
		futures: venue.FuturesTicker{Instrument: "ABC_USDT", LastPrice: 1.5},
		spotErr: errors.New("spot down"),
		detail:  venue.ContractDetail{FuturesURL: "https://www.gate.io/futures/USDT/ABC_USDT"},
		nets: []venue.Network{
			{Name: "BEP20", Address: "0xAbC123", DepositEnabled: true, WithdrawEnabled: true},
		},
		index: venue.IndexComposition{Constituents: []venue.IndexConstituent{
			{Exchange: "Binance", WeightPct: 60},
			{Exchange: "OKX", WeightPct: 40},
		}},
	}
	mexc := &fakeConnector{
		name:    "MEXC",
		futures: venue.FuturesTicker{Instrument: "ABC_USDT", LastPrice: 1.6},
		spot:    venue.SpotTicker{Pair: "ABCUSDT", LastPrice: 1.55, URL: "https://www.mexc.com/exchange/ABC_USDT"},
		detail:  venue.ContractDetail{FuturesURL: "https://futures.mexc.com/exchange/ABC_USDT"},
		nets: []venue.Network{
			{Name: "BNB Smart Chain (BEP20)", Address: "0xABC123", DepositEnabled: true, WithdrawEnabled: false},
		},
		indexErr: errors.New("weights endpoint down"),
	}

	coord := NewCoordinator([]venue.Connector{gate, mexc}, time.Second, testLogger())
	view := coord.Aggregate(context.Background(), "ABC_USDT")

	require.Len(t, view.Venues, 2)

	gateReport := view.Venues[0]
	assert.Equal(t, "GATE", gateReport.Venue)
	assert.Equal(t, "1.5", gateReport.FuturesPrice)
	assert.Empty(t, gateReport.SpotPrice, "failed source must not produce a value")
	assert.Equal(t, "Binance 60.00%, OKX 40.00%", gateReport.Index)

	mexcReport := view.Venues[1]
	assert.Equal(t, "1.55", mexcReport.SpotPrice)
	assert.Empty(t, mexcReport.Index, "failed source must not produce a value")

	require.Len(t, view.Errors, 2)
	assert.Contains(t, view.Errors[0], "GATE spot")
	assert.Contains(t, view.Errors[1], "MEXC index")

	// Same address, alias-spelled networks: one group listing both venues.
	require.Len(t, view.Contracts, 1)
	assert.Equal(t, NetBSC, view.Contracts[0].Network)
	assert.ElementsMatch(t, []string{"GATE", "MEXC"}, view.Contracts[0].Venues)
}

func TestAggregateAllSourcesDown(t *testing.T) {
	down := errors.New("unreachable")
	conn := &fakeConnector{
		name:       "GATE",
		futuresErr: down,
		spotErr:    down,
		detailErr:  down,
		netsErr:    down,
		indexErr:   down,
	}

	coord := NewCoordinator([]venue.Connector{conn}, time.Second, testLogger())
	view := coord.Aggregate(context.Background(), "ABC_USDT")

	require.Len(t, view.Venues, 1)
	assert.Empty(t, view.Venues[0].FuturesPrice)
	assert.Empty(t, view.Venues[0].SpotPrice)
	assert.Len(t, view.Errors, 5)
	assert.Empty(t, view.Contracts)
}

func TestCanonicalNetwork(t *testing.T) {
	cases := map[string]string{
		"BSC":                     NetBSC,
		"bep20":                   NetBSC,
		"BNB Smart Chain (BEP20)": NetBSC,
		"ERC20":                   NetETH,
		"Ethereum":                NetETH,
		"SOLANA":                  NetSOL,
		"Polygon POS":             NetPolygon,
		"TRC20":                   NetTron,
		"weird-chain":             "WEIRD-CHAIN",
	}
	for input, want := range cases {
		assert.Equal(t, want, CanonicalNetwork(input), "input %q", input)
	}
}

func TestGroupContractsDedupe(t *testing.T) {
	groups := GroupContracts(map[string][]venue.Network{
		"GATE": {
			{Name: "ERC20", Address: "0xDEADBEEF"},
			{Name: "SOL", Address: "So1addr"},
		},
		"MEXC": {
			{Name: "Ethereum", Address: "0xdeadbeef"},
			{Name: "BASE", Address: "0xdeadbeef"}, // same address, other chain
		},
	})

	byKey := make(map[string]domain.ContractGroup)
	for _, g := range groups {
		byKey[g.Network] = g
	}

	require.Len(t, groups, 3)
	assert.ElementsMatch(t, []string{"GATE", "MEXC"}, byKey[NetETH].Venues)
	assert.Equal(t, []string{"MEXC"}, byKey[NetBase].Venues)
	assert.Equal(t, []string{"GATE"}, byKey[NetSOL].Venues)
}

func TestScannerLinks(t *testing.T) {
	links := ScannerLinks("BSC", "0xabc")
	require.Len(t, links, 2)
	assert.Equal(t, "https://dexscreener.com/bsc/0xabc", links[0])
	assert.Equal(t, "https://gmgn.ai/bsc/token/0xabc", links[1])

	assert.Empty(t, ScannerLinks("UNKNOWN-CHAIN", "0xabc"))
	assert.Empty(t, ScannerLinks("BSC", ""))
}
