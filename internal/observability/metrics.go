// Package observability holds the Prometheus collectors exported by the service.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label values for ProviderRefreshes.
const (
	RefreshOK             = "ok"
	RefreshTransportError = "transport_error"
	RefreshPayloadError   = "payload_error"
	RefreshStorageError   = "storage_error"
)

// Label values for SchemeTableLookups.
const (
	LookupHit      = "hit"
	LookupBuilt    = "built"
	LookupFallback = "fallback"
)

var (
	// ProviderRefreshes counts provider list refresh attempts by result.
	ProviderRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oembedfixes_provider_refreshes_total",
			Help: "Total number of oEmbed provider list refresh attempts, by result",
		},
		[]string{"result"},
	)

	// SchemeTableLookups counts scheme table requests by how they were served.
	SchemeTableLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oembedfixes_scheme_table_lookups_total",
			Help: "Total number of scheme table lookups, by cache outcome",
		},
		[]string{"result"},
	)

	// EmbedRewrites counts embed HTML documents passed through the rewriter.
	EmbedRewrites = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "oembedfixes_embed_rewrites_total",
			Help: "Total number of embed HTML documents rewritten",
		},
	)
)
