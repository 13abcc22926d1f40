package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/akavalov/fairwatch/internal/domain"
	"github.com/akavalov/fairwatch/internal/venue"
)

func TestPrice(t *testing.T) {
	assert.Equal(t, "0", Price(0))
	assert.Equal(t, "64321.5", Price(64321.5))
	assert.Equal(t, "1.2346", Price(1.23456))
	assert.Equal(t, "0.0412", Price(0.0412))
	assert.Equal(t, "0.00000042", Price(0.00000042))
	assert.Equal(t, "2", Price(2.0))
}

func TestCompact(t *testing.T) {
	assert.Equal(t, "950", Compact(950))
	assert.Equal(t, "1.5K", Compact(1500))
	assert.Equal(t, "5K", Compact(5000))
	assert.Equal(t, "2.25M", Compact(2_250_000))
	assert.Equal(t, "1B", Compact(1e9))
	assert.Equal(t, "-3.2K", Compact(-3200))
}

func TestPercent(t *testing.T) {
	assert.Equal(t, "5.26%", Percent(5.2631))
	assert.Equal(t, "+5.26%", SignedPercent(5.2631))
	assert.Equal(t, "-1.01%", SignedPercent(-1.0101))
	assert.Equal(t, "0.00%", SignedPercent(0))
}

func TestEscapeMarkdownV2(t *testing.T) {
	assert.Equal(t, `ABC\_USDT`, EscapeMarkdownV2("ABC_USDT"))
	assert.Equal(t, `\+5\.26%`, EscapeMarkdownV2("+5.26%"))
	assert.Equal(t, `a\*b\[c\]\(d\)`, EscapeMarkdownV2("a*b[c](d)"))
	assert.Equal(t, "héllo", EscapeMarkdownV2("héllo"))
}

func alertFixture() domain.AlertEvent {
	return domain.AlertEvent{
		Venue:          "GATE",
		Instrument:     "ABC_USDT",
		Direction:      domain.DirectionShort,
		SpreadPct:      5.26,
		LastPrice:      0.0412,
		ReferencePrice: 0.0391,
		Volume24h:      1_500_000,
		IndexInfo:      "Binance 60.00%, OKX 40.00%",
		NetworkInfo:    "BSC 0x123456…cdef [GATE+MEXC]",
		BuyLimitInfo:   "5K tokens (~206 USDT)",
	}
}

func TestAlertPlain(t *testing.T) {
	text := AlertPlain(alertFixture())
	assert.Contains(t, text, "🚨 SHORT ABC_USDT (GATE)")
	assert.Contains(t, text, "Spread: +5.26%")
	assert.Contains(t, text, "Last: 0.0412 | Fair: 0.0391")
	assert.Contains(t, text, "Volume 24h: 1.5M")
	assert.Contains(t, text, "Index: Binance 60.00%, OKX 40.00%")
	assert.Contains(t, text, "Buy limit: 5K tokens (~206 USDT)")
	assert.False(t, strings.HasSuffix(text, "\n"))
}

func TestAlertPlainOmitsMissingSections(t *testing.T) {
	ev := alertFixture()
	ev.IndexInfo = ""
	ev.NetworkInfo = ""
	ev.BuyLimitInfo = ""
	text := AlertPlain(ev)
	assert.NotContains(t, text, "Index:")
	assert.NotContains(t, text, "Networks:")
	assert.NotContains(t, text, "Buy limit:")
}

func TestAlertMarkdown(t *testing.T) {
	text := AlertMarkdown(alertFixture())
	assert.Contains(t, text, `🚨 *SHORT ABC\_USDT* \(GATE\)`)
	assert.Contains(t, text, `Spread: *\+5\.26%*`)
	assert.Contains(t, text, `Last: 0\.0412 \| Fair: 0\.0391`)
	// raw specials never survive unescaped in the body
	assert.NotContains(t, text, "ABC_USDT*")
}

func TestIndexSummary(t *testing.T) {
	assert.Equal(t, domain.Unavailable, IndexSummary(venue.IndexComposition{}))
	comp := venue.IndexComposition{Constituents: []venue.IndexConstituent{
		{Exchange: "Binance", WeightPct: 60},
		{Exchange: "OKX", WeightPct: 40},
	}}
	assert.Equal(t, "Binance 60.00%, OKX 40.00%", IndexSummary(comp))
}

func TestNetworkSummary(t *testing.T) {
	assert.Equal(t, domain.Unavailable, NetworkSummary(nil, nil))

	groups := []domain.ContractGroup{
		{Network: "BSC", Address: "0x1234567890abcdef1234", Venues: []string{"GATE", "MEXC"}},
		{Network: "SOL", Address: "short", Venues: []string{"MEXC"}},
	}
	got := NetworkSummary(groups, func(network, address string) []string {
		if network == "BSC" {
			return []string{"https://dexscreener.com/bsc/0x1234567890abcdef1234"}
		}
		return nil
	})
	assert.Contains(t, got, "BSC 0x123456…1234 [GATE+MEXC] https://dexscreener.com/bsc/0x1234567890abcdef1234")
	assert.Contains(t, got, "SOL short [MEXC]")
}

func TestBuyLimitSummary(t *testing.T) {
	assert.Equal(t, domain.Unavailable, BuyLimitSummary(venue.ContractDetail{}, 1))
	detail := venue.ContractDetail{ContractSize: 10, MaxVolume: 500}
	assert.Equal(t, "5K tokens (~10K USDT)", BuyLimitSummary(detail, 2))
	assert.Equal(t, "5K tokens", BuyLimitSummary(detail, 0))
}
