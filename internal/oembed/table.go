package oembed

import (
	"maps"
	"slices"
	"strings"

	"oembedfixes/internal/core"
)

const wildcardHost = "://*."

// BuildTable turns provider records into a scheme table.
//
// Records are indexed by name first, so when two records share a name the later
// one replaces the earlier. A non-empty allowed list keeps only the named
// providers. Schemes are inserted in source order and later inserts win, then
// wildcard-subdomain and protocol variants are derived.
func BuildTable(providers []core.Provider, allowed []string) core.SchemeTable {
	table := core.SchemeTable{}
	for _, p := range filterProviders(indexProviders(providers), allowed) {
		for _, endpoint := range p.Endpoints {
			for _, scheme := range endpoint.Schemes {
				table[scheme] = core.SchemeEntry{EndpointURL: endpoint.URL}
			}
		}
	}

	merge(table, wildcardVariants(table))
	merge(table, protocolVariants(table))
	return table
}

// indexProviders collapses records by provider name. The surviving record keeps
// the position of the first record with that name.
func indexProviders(providers []core.Provider) []core.Provider {
	positions := make(map[string]int, len(providers))
	out := make([]core.Provider, 0, len(providers))
	for _, p := range providers {
		if i, ok := positions[p.Name]; ok {
			out[i] = p
			continue
		}
		positions[p.Name] = len(out)
		out = append(out, p)
	}
	return out
}

func filterProviders(providers []core.Provider, allowed []string) []core.Provider {
	if len(allowed) == 0 {
		return providers
	}
	keep := make(map[string]struct{}, len(allowed))
	for _, name := range allowed {
		keep[name] = struct{}{}
	}
	out := providers[:0:0]
	for _, p := range providers {
		if _, ok := keep[p.Name]; ok {
			out = append(out, p)
		}
	}
	return out
}

// wildcardVariants derives "https://example.com/*" from "https://*.example.com/*".
func wildcardVariants(table core.SchemeTable) core.SchemeTable {
	staged := core.SchemeTable{}
	for _, scheme := range slices.Sorted(maps.Keys(table)) {
		if !strings.Contains(scheme, wildcardHost) {
			continue
		}
		staged[strings.ReplaceAll(scheme, wildcardHost, "://")] = table[scheme]
	}
	return staged
}

// protocolVariants derives the https form of every http scheme and vice versa.
func protocolVariants(table core.SchemeTable) core.SchemeTable {
	staged := core.SchemeTable{}
	for _, scheme := range slices.Sorted(maps.Keys(table)) {
		i := strings.Index(scheme, "://")
		if i < 0 {
			continue
		}
		switch scheme[:i] {
		case "http":
			staged["https"+scheme[i:]] = table[scheme]
		case "https":
			staged["http"+scheme[i:]] = table[scheme]
		}
	}
	return staged
}

// merge copies staged entries into table without replacing existing keys.
func merge(table, staged core.SchemeTable) {
	for scheme, entry := range staged {
		if _, exists := table[scheme]; !exists {
			table[scheme] = entry
		}
	}
}
