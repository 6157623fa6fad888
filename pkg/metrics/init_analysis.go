package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initAnalysisMetrics() {
	r.CriticalRatio = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "hbcn_critical_ratio",
			Help: "Weight-to-token ratio of the most recent critical cycle",
		},
	)

	r.AnalysisCyclesEnumerated = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "hbcn_analysis_cycles_enumerated",
			Help: "Total number of elementary cycles enumerated by analysis",
		},
	)

	r.AnalysisDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hbcn_analysis_duration_seconds",
			Help:    "Cycle analysis duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		},
	)
}
