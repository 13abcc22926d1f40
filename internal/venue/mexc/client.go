package mexc

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/akavalov/fairwatch/internal/domain"
	"github.com/akavalov/fairwatch/internal/venue"
)

// ClientConfig holds MEXC endpoints and optional API credentials. Only the
// wallet-network endpoint is signed; leaving the credentials empty makes
// GetNetworkInfo fail cleanly while everything else keeps working.
type ClientConfig struct {
	FuturesURL    string // contract.mexc.com/api/v1
	FuturesWebURL string // www.mexc.com/api/platform/futures/api/v1
	SpotURL       string // api.mexc.com
	ApiKey        string
	ApiSecret     string
}

// Client is the MEXC REST connector.
type Client struct {
	cfg      ClientConfig
	http     *venue.HTTPClient
	timeSync *TimeSync
}

// NewClient creates a MEXC connector. timeSync must have been synced
// before any signed call is made.
func NewClient(cfg ClientConfig, http *venue.HTTPClient, timeSync *TimeSync) *Client {
	cfg.FuturesURL = strings.TrimRight(cfg.FuturesURL, "/")
	cfg.FuturesWebURL = strings.TrimRight(cfg.FuturesWebURL, "/")
	cfg.SpotURL = strings.TrimRight(cfg.SpotURL, "/")
	return &Client{cfg: cfg, http: http, timeSync: timeSync}
}

// Name implements venue.Connector.
func (c *Client) Name() string { return VenueName }

// ServerTimeURL returns the endpoint TimeSync should be synced against.
func (c *Client) ServerTimeURL() string {
	return c.cfg.SpotURL + "/api/v3/time"
}

// HasCredentials reports whether signed endpoints are usable.
func (c *Client) HasCredentials() bool {
	return c.cfg.ApiKey != "" && c.cfg.ApiSecret != ""
}

// GetTicker returns the futures ticker for one symbol ("BTC_USDT" form).
func (c *Client) GetTicker(ctx context.Context, symbol string) (venue.FuturesTicker, error) {
	params := url.Values{"symbol": {NormalizeSymbol(symbol)}}
	var env apiEnvelope
	if err := c.http.GetJSON(ctx, c.cfg.FuturesURL+"/contract/ticker", params, nil, &env); err != nil {
		return venue.FuturesTicker{}, fmt.Errorf("mexc: ticker %s: %w", symbol, err)
	}

	ticker, err := decodeFirst[apiFuturesTicker](env.Data)
	if err != nil || ticker.Symbol == "" {
		return venue.FuturesTicker{}, fmt.Errorf("mexc: ticker %s: %w", symbol, domain.ErrNotFound)
	}
	return ticker.toVenue(), nil
}

// GetAllTickers returns every futures ticker.
func (c *Client) GetAllTickers(ctx context.Context) ([]venue.FuturesTicker, error) {
	var env apiEnvelope
	if err := c.http.GetJSON(ctx, c.cfg.FuturesURL+"/contract/ticker", nil, nil, &env); err != nil {
		return nil, fmt.Errorf("mexc: all tickers: %w", err)
	}
	var tickers []apiFuturesTicker
	if err := json.Unmarshal(env.Data, &tickers); err != nil {
		return nil, fmt.Errorf("mexc: all tickers: %w", domain.ErrMalformed)
	}
	out := make([]venue.FuturesTicker, 0, len(tickers))
	for _, t := range tickers {
		out = append(out, t.toVenue())
	}
	return out, nil
}

// GetContractDetail returns contract metadata for one symbol. The symbol
// filter is tried first; some listings only appear in the full dump, so
// that is the fallback.
func (c *Client) GetContractDetail(ctx context.Context, symbol string) (venue.ContractDetail, error) {
	normalized := NormalizeSymbol(symbol)

	params := url.Values{"symbol": {normalized}}
	var env apiEnvelope
	if err := c.http.GetJSON(ctx, c.cfg.FuturesURL+"/contract/detail", params, nil, &env); err == nil {
		if detail, derr := decodeFirst[apiContractDetail](env.Data); derr == nil && detail.Symbol != "" {
			return detail.toVenue(), nil
		}
	}

	contracts, err := c.GetAllContracts(ctx)
	if err != nil {
		return venue.ContractDetail{}, err
	}
	for _, contract := range contracts {
		if strings.EqualFold(contract.Symbol, normalized) {
			return contract, nil
		}
	}
	return venue.ContractDetail{}, fmt.Errorf("mexc: contract %s: %w", symbol, domain.ErrNotFound)
}

// GetAllContracts returns metadata for every futures contract.
func (c *Client) GetAllContracts(ctx context.Context) ([]venue.ContractDetail, error) {
	var env apiEnvelope
	if err := c.http.GetJSON(ctx, c.cfg.FuturesURL+"/contract/detail", nil, nil, &env); err != nil {
		return nil, fmt.Errorf("mexc: all contracts: %w", err)
	}
	var contracts []apiContractDetail
	if err := json.Unmarshal(env.Data, &contracts); err != nil {
		return nil, fmt.Errorf("mexc: all contracts: %w", domain.ErrMalformed)
	}
	out := make([]venue.ContractDetail, 0, len(contracts))
	for _, contract := range contracts {
		out = append(out, contract.toVenue())
	}
	return out, nil
}

// GetIndexComposition returns the index price constituents from the web
// futures API.
func (c *Client) GetIndexComposition(ctx context.Context, symbol string) (venue.IndexComposition, error) {
	params := url.Values{"symbol": {NormalizeSymbol(symbol)}}
	var env apiEnvelope
	if err := c.http.GetJSON(ctx, c.cfg.FuturesWebURL+"/contract/market_price_v2", params, nil, &env); err != nil {
		return venue.IndexComposition{}, fmt.Errorf("mexc: index weights %s: %w", symbol, err)
	}
	if !env.Success {
		return venue.IndexComposition{}, fmt.Errorf("mexc: index weights %s: %s", symbol, env.errorMessage())
	}

	var weights apiIndexWeights
	if err := json.Unmarshal(env.Data, &weights); err != nil {
		return venue.IndexComposition{}, fmt.Errorf("mexc: index weights %s: %w", symbol, domain.ErrMalformed)
	}

	comp := venue.IndexComposition{Symbol: symbol}
	for _, row := range weights.IndexPrice {
		weight := float64(row.Wight) * 100
		if weight <= 0 {
			continue
		}
		comp.Constituents = append(comp.Constituents, venue.IndexConstituent{
			Exchange:  row.MarketName,
			WeightPct: weight,
		})
	}
	return comp, nil
}

// GetNetworkInfo returns the coin's networks from the signed wallet
// endpoint. Requires API credentials.
func (c *Client) GetNetworkInfo(ctx context.Context, coin string) ([]venue.Network, error) {
	if !c.HasCredentials() {
		return nil, fmt.Errorf("mexc: network info: credentials not configured")
	}

	params := url.Values{
		"timestamp":  {strconv.FormatInt(c.timeSync.NowMS(), 10)},
		"recvWindow": {"60000"},
	}
	params.Set("signature", c.sign(params))
	headers := map[string]string{"X-MEXC-APIKEY": c.cfg.ApiKey}

	var coins []apiCoinNetworks
	if err := c.http.GetJSON(ctx, c.cfg.SpotURL+"/api/v3/capital/config/getall", params, headers, &coins); err != nil {
		return nil, fmt.Errorf("mexc: network info %s: %w", coin, err)
	}

	coinUpper := strings.ToUpper(coin)
	for _, entry := range coins {
		if strings.ToUpper(entry.Coin) != coinUpper {
			continue
		}
		networks := make([]venue.Network, 0, len(entry.NetworkList))
		for _, net := range entry.NetworkList {
			networks = append(networks, venue.Network{
				Name:            net.Network,
				Address:         net.Contract,
				DepositEnabled:  net.DepositEnable,
				WithdrawEnabled: net.WithdrawEnable,
			})
		}
		return networks, nil
	}
	return nil, fmt.Errorf("mexc: network info: coin %s: %w", coinUpper, domain.ErrNotFound)
}

// GetSpotTicker returns the last spot price ("BTCUSDT" form).
func (c *Client) GetSpotTicker(ctx context.Context, pair string) (venue.SpotTicker, error) {
	spotSymbol := strings.ReplaceAll(NormalizeSymbol(pair), "_", "")
	params := url.Values{"symbol": {spotSymbol}}
	var price apiSpotPrice
	if err := c.http.GetJSON(ctx, c.cfg.SpotURL+"/api/v3/ticker/price", params, nil, &price); err != nil {
		return venue.SpotTicker{}, fmt.Errorf("mexc: spot ticker %s: %w", pair, err)
	}
	if price.Symbol == "" {
		return venue.SpotTicker{}, fmt.Errorf("mexc: spot ticker %s: %w", pair, domain.ErrNotFound)
	}
	return venue.SpotTicker{
		Pair:      price.Symbol,
		LastPrice: float64(price.Price),
		URL:       "https://www.mexc.com/exchange/" + NormalizeSymbol(pair),
	}, nil
}

// sign computes the HMAC-SHA256 signature over the encoded query string.
func (c *Client) sign(params url.Values) string {
	mac := hmac.New(sha256.New, []byte(c.cfg.ApiSecret))
	mac.Write([]byte(params.Encode()))
	return hex.EncodeToString(mac.Sum(nil))
}

// NormalizeSymbol converts user input ("btc", "BTC/USDT", "BTC-USDT") into
// the venue's underscore futures form ("BTC_USDT").
func NormalizeSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	s = strings.NewReplacer("-", "_", "/", "_").Replace(s)
	if !strings.Contains(s, "_") {
		s += "_USDT"
	}
	return s
}

// decodeFirst unmarshals data as either a single T or a list of T,
// returning the first element.
func decodeFirst[T any](data json.RawMessage) (T, error) {
	var zero T
	if len(data) == 0 {
		return zero, domain.ErrNotFound
	}
	if data[0] == '[' {
		var list []T
		if err := json.Unmarshal(data, &list); err != nil {
			return zero, err
		}
		if len(list) == 0 {
			return zero, domain.ErrNotFound
		}
		return list[0], nil
	}
	var single T
	if err := json.Unmarshal(data, &single); err != nil {
		return zero, err
	}
	return single, nil
}
