package domain

import "time"

// Unavailable marks an aggregated field whose authoritative source failed.
// The aggregator never substitutes stale or zero data for a failed source.
const Unavailable = "N/A"

// VenueReport is the slice of an aggregated view contributed by one venue.
// Empty string fields mean the authoritative source for that field failed;
// the renderer displays them as Unavailable.
type VenueReport struct {
	Venue        string
	SpotPrice    string // formatted decimal, venue spot market
	FuturesPrice string // formatted decimal, venue USDT futures
	SpotURL      string
	FuturesURL   string

	// Index is the venue's fair-price index composition summary.
	Index string

	// First listed deposit network, as reported by the venue wallet API.
	Network         string
	DepositEnabled  bool
	WithdrawEnabled bool
}

// ContractGroup is a token contract address deduplicated across venues.
// Grouping is by (lowercased address, canonical network id); Venues lists
// every venue that reported the address.
type ContractGroup struct {
	Address string
	Network string // canonical network id
	Venues  []string
}

// AggregatedSymbolView is the transient result of one multi-venue
// aggregation call. It is constructed, rendered, and discarded within a
// single request; Errors records every partial-source failure encountered.
type AggregatedSymbolView struct {
	Symbol    string
	Venues    []VenueReport
	Contracts []ContractGroup
	Errors    []string
	BuiltAt   time.Time
}
