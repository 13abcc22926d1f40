package aggregate

import (
	"sort"
	"strings"

	"github.com/akavalov/fairwatch/internal/domain"
	"github.com/akavalov/fairwatch/internal/venue"
)

// Canonical network identifiers. Venues spell the same chain a dozen ways
// ("BNB Smart Chain (BEP20)", "BEP20", "bsc"); grouping and scanner links
// work off these ids.
const (
	NetBSC      = "BSC"
	NetETH      = "ETH"
	NetSOL      = "SOL"
	NetPolygon  = "POLYGON"
	NetArbitrum = "ARBITRUM"
	NetTron     = "TRON"
	NetBase     = "BASE"
	NetOptimism = "OPTIMISM"
	NetAvax     = "AVAX"
	NetTON      = "TON"
	NetSUI      = "SUI"
)

var networkAliases = map[string]string{
	"bsc":                     NetBSC,
	"bep20":                   NetBSC,
	"bep20(bsc)":              NetBSC,
	"bnb smart chain":         NetBSC,
	"bnb smart chain (bep20)": NetBSC,
	"bnb chain":               NetBSC,
	"binance smart chain":     NetBSC,

	"eth":             NetETH,
	"erc20":           NetETH,
	"ethereum":        NetETH,
	"ethereum(erc20)": NetETH,

	"sol":    NetSOL,
	"solana": NetSOL,

	"matic":       NetPolygon,
	"polygon":     NetPolygon,
	"polygon pos": NetPolygon,

	"arb":          NetArbitrum,
	"arbitrum":     NetArbitrum,
	"arbitrum one": NetArbitrum,

	"trx":   NetTron,
	"trc20": NetTron,
	"tron":  NetTron,

	"base": NetBase,

	"op":       NetOptimism,
	"optimism": NetOptimism,

	"avax":          NetAvax,
	"avax c-chain":  NetAvax,
	"avalanche":     NetAvax,
	"avalanche c":   NetAvax,
	"avalanchec":    NetAvax,
	"c-chain":       NetAvax,
	"avax_cchain":   NetAvax,
	"avaxc (avax)":  NetAvax,
	"avalanche-c":   NetAvax,
	"avax c chain":  NetAvax,
	"avalanche (c)": NetAvax,

	"ton":              NetTON,
	"the open network": NetTON,

	"sui": NetSUI,
}

// CanonicalNetwork maps a venue's network label to a canonical id. Unknown
// labels come back upper-cased and trimmed so they still group with exact
// matches from the other venue.
func CanonicalNetwork(name string) string {
	cleaned := strings.ToLower(strings.TrimSpace(name))
	if id, ok := networkAliases[cleaned]; ok {
		return id
	}
	return strings.ToUpper(cleaned)
}

var dexScreenerSlugs = map[string]string{
	NetBSC:      "bsc",
	NetETH:      "ethereum",
	NetSOL:      "solana",
	NetPolygon:  "polygon",
	NetArbitrum: "arbitrum",
	NetTron:     "tron",
	NetBase:     "base",
	NetOptimism: "optimism",
	NetAvax:     "avalanche",
	NetTON:      "ton",
	NetSUI:      "sui",
}

var gmgnSlugs = map[string]string{
	NetBSC:  "bsc",
	NetETH:  "eth",
	NetSOL:  "sol",
	NetBase: "base",
	NetTron: "tron",
}

// DexScreenerURL returns a DexScreener token link, or "" when the network
// has no listing there.
func DexScreenerURL(network, address string) string {
	slug, ok := dexScreenerSlugs[CanonicalNetwork(network)]
	if !ok || address == "" {
		return ""
	}
	return "https://dexscreener.com/" + slug + "/" + address
}

// GMGNURL returns a GMGN token link, or "" when the network is not covered.
func GMGNURL(network, address string) string {
	slug, ok := gmgnSlugs[CanonicalNetwork(network)]
	if !ok || address == "" {
		return ""
	}
	return "https://gmgn.ai/" + slug + "/token/" + address
}

// GroupContracts merges per-venue network listings into contract groups
// keyed by (lowercased address, canonical network). Entries without an
// address are skipped; venue order within a group follows first sighting.
func GroupContracts(byVenue map[string][]venue.Network) []domain.ContractGroup {
	type groupKey struct {
		address string
		network string
	}

	groups := make(map[groupKey]*domain.ContractGroup)
	var order []groupKey

	// Stable venue iteration keeps output deterministic.
	for _, venueName := range sortedKeys(byVenue) {
		for _, net := range byVenue[venueName] {
			if net.Address == "" {
				continue
			}
			key := groupKey{
				address: strings.ToLower(net.Address),
				network: CanonicalNetwork(net.Name),
			}
			group, ok := groups[key]
			if !ok {
				group = &domain.ContractGroup{
					Address: net.Address,
					Network: key.network,
				}
				groups[key] = group
				order = append(order, key)
			}
			if !contains(group.Venues, venueName) {
				group.Venues = append(group.Venues, venueName)
			}
		}
	}

	out := make([]domain.ContractGroup, 0, len(order))
	for _, key := range order {
		out = append(out, *groups[key])
	}
	return out
}

func sortedKeys(m map[string][]venue.Network) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
