package gate

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/akavalov/fairwatch/internal/domain"
	"github.com/akavalov/fairwatch/internal/venue"
)

// browserHeaders make the web index-breakdown endpoint respond; it rejects
// plain API-client requests.
var browserHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/141.0.0.0 Safari/537.36",
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
	"Accept-Language": "en-US,en;q=0.8",
	"Referer":         "https://www.gate.com/",
}

// Client is the Gate.io REST connector. All endpoints used here are
// public; no authentication is required.
type Client struct {
	restURL string // api.gateio.ws/api/v4
	webURL  string // www.gate.com (index breakdown)
	http    *venue.HTTPClient
}

// NewClient creates a Gate.io connector.
func NewClient(restURL, webURL string, http *venue.HTTPClient) *Client {
	return &Client{
		restURL: strings.TrimRight(restURL, "/"),
		webURL:  strings.TrimRight(webURL, "/"),
		http:    http,
	}
}

// Name implements venue.Connector.
func (c *Client) Name() string { return VenueName }

// GetTicker returns the futures ticker for one contract.
func (c *Client) GetTicker(ctx context.Context, symbol string) (venue.FuturesTicker, error) {
	params := url.Values{"contract": {symbol}}
	var tickers []apiFuturesTicker
	if err := c.http.GetJSON(ctx, c.restURL+"/futures/usdt/tickers", params, nil, &tickers); err != nil {
		return venue.FuturesTicker{}, fmt.Errorf("gate: ticker %s: %w", symbol, err)
	}
	for _, t := range tickers {
		if strings.EqualFold(t.Contract, symbol) {
			return t.toVenue(), nil
		}
	}
	return venue.FuturesTicker{}, fmt.Errorf("gate: ticker %s: %w", symbol, domain.ErrNotFound)
}

// GetAllTickers returns every USDT futures ticker.
func (c *Client) GetAllTickers(ctx context.Context) ([]venue.FuturesTicker, error) {
	var tickers []apiFuturesTicker
	if err := c.http.GetJSON(ctx, c.restURL+"/futures/usdt/tickers", nil, nil, &tickers); err != nil {
		return nil, fmt.Errorf("gate: all tickers: %w", err)
	}
	out := make([]venue.FuturesTicker, 0, len(tickers))
	for _, t := range tickers {
		out = append(out, t.toVenue())
	}
	return out, nil
}

// GetContractDetail returns contract metadata for one instrument. Gate has
// no single-contract endpoint worth the extra round trip shape, so the
// full list is fetched and filtered.
func (c *Client) GetContractDetail(ctx context.Context, symbol string) (venue.ContractDetail, error) {
	contracts, err := c.GetAllContracts(ctx)
	if err != nil {
		return venue.ContractDetail{}, err
	}
	for _, contract := range contracts {
		if strings.EqualFold(contract.Symbol, symbol) {
			return contract, nil
		}
	}
	return venue.ContractDetail{}, fmt.Errorf("gate: contract %s: %w", symbol, domain.ErrNotFound)
}

// GetAllContracts returns metadata for every USDT futures contract.
func (c *Client) GetAllContracts(ctx context.Context) ([]venue.ContractDetail, error) {
	var contracts []apiFuturesContract
	if err := c.http.GetJSON(ctx, c.restURL+"/futures/usdt/contracts", nil, nil, &contracts); err != nil {
		return nil, fmt.Errorf("gate: all contracts: %w", err)
	}
	out := make([]venue.ContractDetail, 0, len(contracts))
	for _, contract := range contracts {
		out = append(out, contract.toVenue())
	}
	return out, nil
}

// GetIndexComposition returns the fair-price index constituents via the
// web endpoint. The index is addressed as "BASE/QUOTE".
func (c *Client) GetIndexComposition(ctx context.Context, symbol string) (venue.IndexComposition, error) {
	index := strings.ReplaceAll(symbol, "_", "/")
	params := url.Values{"index": {index}}

	var resp apiIndexBreakdown
	err := c.http.GetJSON(ctx, c.webURL+"/apiw/v2/futures/common/index/breakdown", params, browserHeaders, &resp)
	if err != nil {
		return venue.IndexComposition{}, fmt.Errorf("gate: index breakdown %s: %w", symbol, err)
	}
	if resp.Code != 0 && resp.Code != 200 {
		return venue.IndexComposition{}, fmt.Errorf("gate: index breakdown %s: api code %d", symbol, resp.Code)
	}

	comp := venue.IndexComposition{Symbol: symbol}
	for _, constituent := range resp.Data.Constituents {
		weight := parseFloat(constituent.Weight) * 100
		if weight <= 0 {
			continue
		}
		comp.Constituents = append(comp.Constituents, venue.IndexConstituent{
			Exchange:  constituent.Exchange,
			WeightPct: weight,
		})
	}
	return comp, nil
}

// GetNetworkInfo returns the coin's on-chain networks from the spot
// currency endpoint.
func (c *Client) GetNetworkInfo(ctx context.Context, coin string) ([]venue.Network, error) {
	var currency apiCurrency
	endpoint := c.restURL + "/spot/currencies/" + strings.ToUpper(coin)
	if err := c.http.GetJSON(ctx, endpoint, nil, nil, &currency); err != nil {
		return nil, fmt.Errorf("gate: currency %s: %w", coin, err)
	}

	networks := make([]venue.Network, 0, len(currency.Chains))
	for _, chain := range currency.Chains {
		networks = append(networks, venue.Network{
			Name:            chain.Name,
			Address:         chain.Addr,
			DepositEnabled:  !chain.DepositDisabled,
			WithdrawEnabled: !chain.WithdrawDisabled,
		})
	}
	return networks, nil
}

// GetSpotTicker returns the last spot price for a currency pair.
func (c *Client) GetSpotTicker(ctx context.Context, pair string) (venue.SpotTicker, error) {
	params := url.Values{"currency_pair": {pair}}
	var tickers []apiSpotTicker
	if err := c.http.GetJSON(ctx, c.restURL+"/spot/tickers", params, nil, &tickers); err != nil {
		return venue.SpotTicker{}, fmt.Errorf("gate: spot ticker %s: %w", pair, err)
	}
	for _, t := range tickers {
		if strings.EqualFold(t.CurrencyPair, pair) {
			return venue.SpotTicker{
				Pair:      t.CurrencyPair,
				LastPrice: parseFloat(t.Last),
				URL:       "https://www.gate.io/trade/" + strings.ToUpper(pair),
			}, nil
		}
	}
	return venue.SpotTicker{}, fmt.Errorf("gate: spot ticker %s: %w", pair, domain.ErrNotFound)
}
