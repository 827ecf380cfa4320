package route

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	decisionsTotal = promauto.NewCounterVec( //nolint:gochecknoglobals
		prometheus.CounterOpts{
			Name: "route_decisions_total",
			Help: "Number of navigation decisions, by state.",
		},
		[]string{"state"},
	)

	abandonedTotal = promauto.NewCounter( //nolint:gochecknoglobals
		prometheus.CounterOpts{
			Name: "route_navigations_abandoned_total",
			Help: "Number of navigations abandoned before they settled.",
		},
	)

	resolutionSeconds = promauto.NewHistogram( //nolint:gochecknoglobals
		prometheus.HistogramOpts{
			Name:    "route_resolution_duration_seconds",
			Help:    "Time from navigation start until a terminal decision.",
			Buckets: prometheus.DefBuckets,
		},
	)
)
