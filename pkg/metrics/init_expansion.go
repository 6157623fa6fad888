package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initExpansionMetrics() {
	r.ExpansionsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "hbcn_expansions_total",
			Help: "Total number of structural graph expansions",
		},
		[]string{"status"},
	)

	r.ExpansionPlacesTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "hbcn_expansion_places_total",
			Help: "Total number of places produced by expansion",
		},
	)

	r.ExpansionDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hbcn_expansion_duration_seconds",
			Help:    "Expansion duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		},
	)
}
