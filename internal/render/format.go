// Package render turns domain values into outbound message text. All money
// and volume formatting lives here; producers hand over raw floats.
package render

import (
	"math"
	"strconv"
	"strings"
)

// Price formats a price with precision appropriate to its magnitude:
// four decimals at or above one, eight below, trailing zeros trimmed.
func Price(v float64) string {
	if v == 0 {
		return "0"
	}
	var s string
	if math.Abs(v) >= 1 {
		s = strconv.FormatFloat(v, 'f', 4, 64)
	} else {
		s = strconv.FormatFloat(v, 'f', 8, 64)
	}
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}

// Compact renders a quantity with K/M/B suffixes.
func Compact(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 1e9:
		return trimFixed(v/1e9) + "B"
	case abs >= 1e6:
		return trimFixed(v/1e6) + "M"
	case abs >= 1e3:
		return trimFixed(v/1e3) + "K"
	default:
		return trimFixed(v)
	}
}

// Percent renders a signed percentage with two decimals.
func Percent(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64) + "%"
}

// SignedPercent renders a percentage with an explicit sign.
func SignedPercent(v float64) string {
	s := Percent(v)
	if v > 0 {
		s = "+" + s
	}
	return s
}

func trimFixed(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}

// markdownV2Specials are the characters Telegram requires escaped in
// MarkdownV2 text outside of entities.
const markdownV2Specials = "_*[]()~`>#+-=|{}.!"

// EscapeMarkdownV2 escapes text for safe inclusion in a MarkdownV2 message.
func EscapeMarkdownV2(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 128 && strings.ContainsRune(markdownV2Specials, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
