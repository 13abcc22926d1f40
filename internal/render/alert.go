package render

import (
	"strings"

	"github.com/akavalov/fairwatch/internal/domain"
	"github.com/akavalov/fairwatch/internal/venue"
)

// AlertMarkdown renders an alert as a Telegram MarkdownV2 message.
func AlertMarkdown(ev domain.AlertEvent) string {
	var b strings.Builder
	b.WriteString("🚨 *")
	b.WriteString(EscapeMarkdownV2(string(ev.Direction)))
	b.WriteString(" ")
	b.WriteString(EscapeMarkdownV2(ev.Instrument))
	b.WriteString("* \\(")
	b.WriteString(EscapeMarkdownV2(ev.Venue))
	b.WriteString("\\)\n")

	b.WriteString("Spread: *")
	b.WriteString(EscapeMarkdownV2(SignedPercent(ev.SpreadPct)))
	b.WriteString("*\n")

	writeEscapedLines(&b, alertBody(ev))
	return b.String()
}

// AlertPlain renders an alert without any markup, used as the delivery
// fallback when Telegram rejects the MarkdownV2 variant.
func AlertPlain(ev domain.AlertEvent) string {
	var b strings.Builder
	b.WriteString("🚨 ")
	b.WriteString(string(ev.Direction))
	b.WriteString(" ")
	b.WriteString(ev.Instrument)
	b.WriteString(" (")
	b.WriteString(ev.Venue)
	b.WriteString(")\n")

	b.WriteString("Spread: ")
	b.WriteString(SignedPercent(ev.SpreadPct))
	b.WriteString("\n")

	for _, line := range alertBody(ev) {
		b.WriteString(line)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// alertBody builds the shared detail lines below the headline.
func alertBody(ev domain.AlertEvent) []string {
	lines := []string{
		"Last: " + Price(ev.LastPrice) + " | Fair: " + Price(ev.ReferencePrice),
		"Volume 24h: " + Compact(ev.Volume24h),
	}
	if ev.IndexInfo != "" {
		lines = append(lines, "Index: "+ev.IndexInfo)
	}
	if ev.NetworkInfo != "" {
		lines = append(lines, "Networks: "+ev.NetworkInfo)
	}
	if ev.BuyLimitInfo != "" {
		lines = append(lines, "Buy limit: "+ev.BuyLimitInfo)
	}
	return lines
}

func writeEscapedLines(b *strings.Builder, lines []string) {
	for i, line := range lines {
		b.WriteString(EscapeMarkdownV2(line))
		if i < len(lines)-1 {
			b.WriteString("\n")
		}
	}
}

// IndexSummary renders an index composition as "Exchange W%" pairs.
func IndexSummary(comp venue.IndexComposition) string {
	if len(comp.Constituents) == 0 {
		return domain.Unavailable
	}
	parts := make([]string, 0, len(comp.Constituents))
	for _, c := range comp.Constituents {
		parts = append(parts, c.Exchange+" "+Percent(c.WeightPct))
	}
	return strings.Join(parts, ", ")
}

// NetworkSummary renders contract groups with their scanner links.
func NetworkSummary(groups []domain.ContractGroup, links func(network, address string) []string) string {
	if len(groups) == 0 {
		return domain.Unavailable
	}
	parts := make([]string, 0, len(groups))
	for _, g := range groups {
		line := g.Network + " " + shortAddress(g.Address) + " [" + strings.Join(g.Venues, "+") + "]"
		if links != nil {
			if urls := links(g.Network, g.Address); len(urls) > 0 {
				line += " " + strings.Join(urls, " ")
			}
		}
		parts = append(parts, line)
	}
	return strings.Join(parts, "; ")
}

// BuyLimitSummary renders the venue position limit in tokens and quote.
func BuyLimitSummary(detail venue.ContractDetail, lastPrice float64) string {
	tokens := detail.MaxPositionTokens()
	if tokens <= 0 {
		return domain.Unavailable
	}
	s := Compact(tokens) + " tokens"
	if lastPrice > 0 {
		s += " (~" + Compact(tokens*lastPrice) + " USDT)"
	}
	return s
}

// shortAddress abbreviates a contract address for message bodies.
func shortAddress(addr string) string {
	if len(addr) <= 14 {
		return addr
	}
	return addr[:8] + "…" + addr[len(addr)-4:]
}
