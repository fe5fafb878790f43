package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Storage tiers used as label values
const (
	TierPrimary = "primary"
	TierLegacy  = "legacy"
)

// Fetch results used as label values
const (
	FetchOK          = "ok"
	FetchHTTPError   = "http_error"
	FetchNetwork     = "network_error"
	FetchCircuitOpen = "circuit_open"
)

// PlaylistsSaved counts playlists written, by the tier that accepted them
var PlaylistsSaved = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "iptvcore_playlists_saved_total",
	Help: "Playlists persisted, by storage tier",
}, []string{"tier"})

// StorageFallbacks counts operations that left the durable tier for the legacy one
var StorageFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "iptvcore_storage_fallbacks_total",
	Help: "Operations served by the legacy tier after the durable tier failed or was unavailable",
}, []string{"operation"})

// Migrations counts one-time moves of legacy data into the durable tier
var Migrations = promauto.NewCounter(prometheus.CounterOpts{
	Name: "iptvcore_legacy_migrations_total",
	Help: "Legacy collections migrated into durable storage",
})

// RepairedChannelIDs counts duplicate channel ids regenerated on load
var RepairedChannelIDs = promauto.NewCounter(prometheus.CounterOpts{
	Name: "iptvcore_repaired_channel_ids_total",
	Help: "Duplicate channel ids regenerated during load",
})

// ParseWarnings counts malformed EXTINF lines skipped while parsing
var ParseWarnings = promauto.NewCounter(prometheus.CounterOpts{
	Name: "iptvcore_parse_warnings_total",
	Help: "Malformed EXTINF lines skipped while parsing",
})

// Fetches counts remote playlist downloads by result
var Fetches = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "iptvcore_fetches_total",
	Help: "Remote playlist fetches, by result",
}, []string{"result"})

// Splits counts playlists split into per-group sub-playlists
var Splits = promauto.NewCounter(prometheus.CounterOpts{
	Name: "iptvcore_splits_total",
	Help: "Playlists split into per-group sub-playlists",
})

// SplitGroups observes how many groups each split produced
var SplitGroups = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "iptvcore_split_groups",
	Help:    "Groups produced per playlist split",
	Buckets: prometheus.ExponentialBuckets(1, 4, 6),
})
