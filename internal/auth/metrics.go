package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	resolutionsTotal = promauto.NewCounterVec( //nolint:gochecknoglobals
		prometheus.CounterOpts{
			Name: "rbac_resolutions_total",
			Help: "Number of permission set resolutions against the store, by result.",
		},
		[]string{"result"},
	)

	cacheLookupsTotal = promauto.NewCounterVec( //nolint:gochecknoglobals
		prometheus.CounterOpts{
			Name: "rbac_cache_lookups_total",
			Help: "Number of resolved permission cache lookups, by result (hit, miss, expired).",
		},
		[]string{"result"},
	)

	invalidationsTotal = promauto.NewCounterVec( //nolint:gochecknoglobals
		prometheus.CounterOpts{
			Name: "rbac_invalidations_total",
			Help: "Number of resolved permission cache invalidations, by scope.",
		},
		[]string{"scope"},
	)

	resolutionSeconds = promauto.NewHistogram( //nolint:gochecknoglobals
		prometheus.HistogramOpts{
			Name:    "rbac_resolution_duration_seconds",
			Help:    "Duration of permission set resolutions against the store.",
			Buckets: prometheus.DefBuckets,
		},
	)
)
