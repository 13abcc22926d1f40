// Package gate implements the Gate.io venue: public REST endpoints, the
// USDT futures streaming transport, and ticker normalization.
package gate

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/akavalov/fairwatch/internal/domain"
	"github.com/akavalov/fairwatch/internal/stream"
	"github.com/akavalov/fairwatch/internal/venue"
)

// VenueName is the canonical venue identifier used in keys and logs.
const VenueName = "GATE"

// TopicTickers is the futures ticker stream channel.
const TopicTickers = "futures.tickers"

// ---------------------------------------------------------------------------
// REST API shapes
// ---------------------------------------------------------------------------

type apiFuturesTicker struct {
	Contract  string `json:"contract"`
	Last      string `json:"last"`
	MarkPrice string `json:"mark_price"`
	Volume24h string `json:"volume_24h"`
}

func (t apiFuturesTicker) toVenue() venue.FuturesTicker {
	return venue.FuturesTicker{
		Instrument: t.Contract,
		LastPrice:  parseFloat(t.Last),
		FairPrice:  parseFloat(t.MarkPrice),
		Volume24h:  parseFloat(t.Volume24h),
	}
}

type apiFuturesContract struct {
	Name             string `json:"name"`
	QuantoMultiplier string `json:"quanto_multiplier"`
	OrderSizeMax     int64  `json:"order_size_max"`
}

func (c apiFuturesContract) toVenue() venue.ContractDetail {
	return venue.ContractDetail{
		Symbol:       c.Name,
		ContractSize: parseFloat(c.QuantoMultiplier),
		MaxVolume:    float64(c.OrderSizeMax),
		FuturesURL:   "https://www.gate.io/futures/USDT/" + c.Name,
	}
}

type apiSpotTicker struct {
	CurrencyPair string `json:"currency_pair"`
	Last         string `json:"last"`
}

type apiCurrencyChain struct {
	Name             string `json:"name"`
	Addr             string `json:"addr"`
	DepositDisabled  bool   `json:"deposit_disabled"`
	WithdrawDisabled bool   `json:"withdraw_disabled"`
}

type apiCurrency struct {
	Currency string             `json:"currency"`
	Chains   []apiCurrencyChain `json:"chains"`
}

type apiIndexBreakdown struct {
	Code int `json:"code"`
	Data struct {
		Constituents []struct {
			Exchange string `json:"exchange"`
			Weight   string `json:"weight"` // fraction of 1
		} `json:"constituents"`
	} `json:"data"`
}

// ---------------------------------------------------------------------------
// Streaming shapes
// ---------------------------------------------------------------------------

// wsEnvelope is the outer frame of every Gate futures WS message.
type wsEnvelope struct {
	Time    int64           `json:"time"`
	Channel string          `json:"channel"`
	Event   string          `json:"event"`
	Result  json.RawMessage `json:"result"`
}

// wsCommand is an outbound subscription or keepalive frame.
type wsCommand struct {
	Time    int64    `json:"time"`
	Channel string   `json:"channel"`
	Event   string   `json:"event,omitempty"`
	Payload []string `json:"payload,omitempty"`
}

// Normalizer converts raw Gate ticker frames into canonical snapshots.
type Normalizer struct{}

// Normalize decodes a futures.tickers update. Gate delivers a batch of
// ticker objects per frame; entries with a missing contract name or
// unparsable prices are silently dropped.
func (Normalizer) Normalize(msg stream.Message) []domain.TickerSnapshot {
	var env wsEnvelope
	if err := json.Unmarshal(msg.Payload, &env); err != nil {
		return nil
	}
	var tickers []apiFuturesTicker
	if err := json.Unmarshal(env.Result, &tickers); err != nil {
		return nil
	}

	observed := time.Now()
	if env.Time > 0 {
		observed = time.Unix(env.Time, 0)
	}

	out := make([]domain.TickerSnapshot, 0, len(tickers))
	for _, t := range tickers {
		if t.Contract == "" {
			continue
		}
		last, err1 := strconv.ParseFloat(t.Last, 64)
		mark, err2 := strconv.ParseFloat(t.MarkPrice, 64)
		if err1 != nil || err2 != nil {
			continue
		}
		out = append(out, domain.TickerSnapshot{
			Venue:          VenueName,
			Instrument:     t.Contract,
			LastPrice:      last,
			ReferencePrice: mark,
			Volume24h:      parseFloat(t.Volume24h),
			ObservedAt:     observed,
		})
	}
	return out
}

// parseFloat is the lenient variant used for non-critical numeric fields:
// anything unparsable becomes zero.
func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
