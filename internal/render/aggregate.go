package render

import (
	"strings"

	"github.com/akavalov/fairwatch/internal/domain"
)

// AggregatePlain renders a multi-venue symbol view as a plain-text reply.
func AggregatePlain(view domain.AggregatedSymbolView) string {
	var b strings.Builder
	b.WriteString("📊 ")
	b.WriteString(view.Symbol)
	b.WriteString("\n")

	for _, v := range view.Venues {
		b.WriteString("\n")
		b.WriteString(v.Venue)
		b.WriteString("\n")
		b.WriteString("  Spot: ")
		b.WriteString(orUnavailable(v.SpotPrice))
		if v.SpotURL != "" {
			b.WriteString("  ")
			b.WriteString(v.SpotURL)
		}
		b.WriteString("\n")
		b.WriteString("  Futures: ")
		b.WriteString(orUnavailable(v.FuturesPrice))
		if v.FuturesURL != "" {
			b.WriteString("  ")
			b.WriteString(v.FuturesURL)
		}
		b.WriteString("\n")
		if v.Index != "" {
			b.WriteString("  Index: ")
			b.WriteString(v.Index)
			b.WriteString("\n")
		}
		if v.Network != "" {
			b.WriteString("  Network: ")
			b.WriteString(v.Network)
			b.WriteString(" (deposit ")
			b.WriteString(onOff(v.DepositEnabled))
			b.WriteString(", withdraw ")
			b.WriteString(onOff(v.WithdrawEnabled))
			b.WriteString(")\n")
		}
	}

	if len(view.Contracts) > 0 {
		b.WriteString("\nContracts\n")
		for _, c := range view.Contracts {
			b.WriteString("  ")
			b.WriteString(c.Network)
			b.WriteString(" ")
			b.WriteString(c.Address)
			b.WriteString(" [")
			b.WriteString(strings.Join(c.Venues, "+"))
			b.WriteString("]\n")
		}
	}

	if len(view.Errors) > 0 {
		b.WriteString("\n⚠️ Partial data:\n")
		for _, e := range view.Errors {
			b.WriteString("  - ")
			b.WriteString(e)
			b.WriteString("\n")
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

func orUnavailable(s string) string {
	if s == "" {
		return domain.Unavailable
	}
	return s
}

func onOff(v bool) string {
	if v {
		return "✅"
	}
	return "⛔"
}
