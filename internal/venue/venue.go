// Package venue defines the read-only exchange connector consumed by the
// pipeline, the aggregator, and the bot. Each supported venue implements
// Connector once; all alert and aggregation logic is written against the
// interface.
package venue

import (
	"context"
	"strings"
)

// Connector is the per-venue read-only REST surface. Implementations must
// never panic across this boundary; every upstream failure is returned as
// an error.
type Connector interface {
	// Name returns the canonical venue name ("GATE", "MEXC").
	Name() string

	// GetTicker returns the current futures ticker for one instrument.
	GetTicker(ctx context.Context, symbol string) (FuturesTicker, error)
	// GetAllTickers returns every futures ticker on the venue.
	GetAllTickers(ctx context.Context) ([]FuturesTicker, error)
	// GetContractDetail returns contract metadata for one instrument.
	GetContractDetail(ctx context.Context, symbol string) (ContractDetail, error)
	// GetAllContracts returns metadata for every listed futures contract.
	GetAllContracts(ctx context.Context) ([]ContractDetail, error)
	// GetIndexComposition returns the fair-price index constituents.
	GetIndexComposition(ctx context.Context, symbol string) (IndexComposition, error)
	// GetNetworkInfo returns the coin's on-chain deposit/withdraw networks.
	GetNetworkInfo(ctx context.Context, coin string) ([]Network, error)
	// GetSpotTicker returns the last traded spot price for a pair.
	GetSpotTicker(ctx context.Context, pair string) (SpotTicker, error)
}

// FuturesTicker is a REST ticker result.
type FuturesTicker struct {
	Instrument string
	LastPrice  float64
	FairPrice  float64
	Volume24h  float64
}

// ContractDetail is futures contract metadata used for buy-limit estimates
// and venue deep links.
type ContractDetail struct {
	Symbol       string
	ContractSize float64 // tokens represented by one contract
	MaxVolume    float64 // position limit in contracts
	FuturesURL   string
}

// MaxPositionTokens is the largest position the venue permits, in tokens.
func (c ContractDetail) MaxPositionTokens() float64 {
	return c.MaxVolume * c.ContractSize
}

// IndexConstituent is one exchange's weight in a fair-price index.
type IndexConstituent struct {
	Exchange  string
	WeightPct float64
}

// IndexComposition is the set of sources backing a venue's index price.
type IndexComposition struct {
	Symbol       string
	Constituents []IndexConstituent
}

// Network is one on-chain deposit/withdraw network for a coin.
type Network struct {
	Name            string
	Address         string // token contract address, may be empty for native coins
	DepositEnabled  bool
	WithdrawEnabled bool
}

// SpotTicker is a REST spot price result.
type SpotTicker struct {
	Pair      string
	LastPrice float64
	URL       string
}

// BaseCoin extracts the base coin from a futures symbol
// ("BTC_USDT" -> "BTC").
func BaseCoin(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if i := strings.IndexAny(s, "_-/"); i > 0 {
		return s[:i]
	}
	return s
}
