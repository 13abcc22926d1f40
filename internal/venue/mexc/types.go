// Package mexc implements the MEXC venue: public futures REST, the signed
// spot wallet endpoint with server-time synchronization, the futures
// streaming transport, and ticker normalization.
package mexc

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/akavalov/fairwatch/internal/domain"
	"github.com/akavalov/fairwatch/internal/stream"
	"github.com/akavalov/fairwatch/internal/venue"
)

// VenueName is the canonical venue identifier used in keys and logs.
const VenueName = "MEXC"

// TopicTickers is the futures ticker push channel.
const TopicTickers = "push.tickers"

// flexFloat decodes JSON numbers that MEXC serves inconsistently as either
// numeric literals or quoted strings.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*f = 0
		return nil
	}
	s := string(data)
	if s[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*f = 0
			return nil
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

// ---------------------------------------------------------------------------
// REST API shapes
// ---------------------------------------------------------------------------

type apiFuturesTicker struct {
	Symbol    string    `json:"symbol"`
	LastPrice flexFloat `json:"lastPrice"`
	FairPrice flexFloat `json:"fairPrice"`
	Volume24  flexFloat `json:"volume24"`
}

func (t apiFuturesTicker) toVenue() venue.FuturesTicker {
	return venue.FuturesTicker{
		Instrument: t.Symbol,
		LastPrice:  float64(t.LastPrice),
		FairPrice:  float64(t.FairPrice),
		Volume24h:  float64(t.Volume24),
	}
}

type apiContractDetail struct {
	Symbol       string    `json:"symbol"`
	BaseCoin     string    `json:"baseCoin"`
	ContractSize flexFloat `json:"contractSize"`
	MaxVol       flexFloat `json:"maxVol"`
}

func (c apiContractDetail) toVenue() venue.ContractDetail {
	return venue.ContractDetail{
		Symbol:       c.Symbol,
		ContractSize: float64(c.ContractSize),
		MaxVolume:    float64(c.MaxVol),
		FuturesURL:   "https://futures.mexc.com/exchange/" + c.Symbol,
	}
}

// apiEnvelope is the success/data wrapper of the futures REST API. Data is
// a single object or a list depending on whether a symbol filter matched.
type apiEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Msg     string          `json:"msg"`
	Data    json.RawMessage `json:"data"`
}

func (e apiEnvelope) errorMessage() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Msg != "" {
		return e.Msg
	}
	return "api error"
}

type apiIndexWeights struct {
	// IndexPrice lists the constituent markets. The field name "wight" is
	// the upstream API's own spelling.
	IndexPrice []struct {
		MarketName string    `json:"marketName"`
		Wight      flexFloat `json:"wight"`
	} `json:"indexPrice"`
}

type apiNetworkItem struct {
	Network        string `json:"network"`
	Contract       string `json:"contract"`
	DepositEnable  bool   `json:"depositEnable"`
	WithdrawEnable bool   `json:"withdrawEnable"`
}

type apiCoinNetworks struct {
	Coin        string           `json:"coin"`
	NetworkList []apiNetworkItem `json:"networkList"`
}

type apiSpotPrice struct {
	Symbol string    `json:"symbol"`
	Price  flexFloat `json:"price"`
}

type apiServerTime struct {
	ServerTime int64 `json:"serverTime"`
}

// ---------------------------------------------------------------------------
// Streaming shapes
// ---------------------------------------------------------------------------

// wsPush is the inbound frame envelope of the futures WS.
type wsPush struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
	Ts      int64           `json:"ts"`
}

// wsRequest is an outbound method frame (subscribe, ping).
type wsRequest struct {
	Method string         `json:"method"`
	Param  map[string]any `json:"param,omitempty"`
}

// Normalizer converts raw MEXC push frames into canonical snapshots.
type Normalizer struct{}

// Normalize decodes a push.tickers batch. Entries with a missing symbol or
// unparsable prices are silently dropped.
func (Normalizer) Normalize(msg stream.Message) []domain.TickerSnapshot {
	var push wsPush
	if err := json.Unmarshal(msg.Payload, &push); err != nil {
		return nil
	}
	var tickers []apiFuturesTicker
	if err := json.Unmarshal(push.Data, &tickers); err != nil {
		return nil
	}

	observed := time.Now()
	if push.Ts > 0 {
		observed = time.UnixMilli(push.Ts)
	}

	out := make([]domain.TickerSnapshot, 0, len(tickers))
	for _, t := range tickers {
		if t.Symbol == "" {
			continue
		}
		out = append(out, domain.TickerSnapshot{
			Venue:          VenueName,
			Instrument:     t.Symbol,
			LastPrice:      float64(t.LastPrice),
			ReferencePrice: float64(t.FairPrice),
			Volume24h:      float64(t.Volume24),
			ObservedAt:     observed,
		})
	}
	return out
}
