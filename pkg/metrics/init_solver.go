package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initSolverMetrics() {
	r.SolvesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "hbcn_solves_total",
			Help: "Total number of constraint generation runs",
		},
		[]string{"algorithm", "status"},
	)

	r.SolveDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hbcn_solve_duration_seconds",
			Help:    "Constraint generation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"algorithm"},
	)

	r.BackendAttemptsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "hbcn_backend_attempts_total",
			Help: "Total number of LP back-end attempts",
		},
		[]string{"backend", "outcome"},
	)

	r.BackendAttemptSeconds = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hbcn_backend_attempt_duration_seconds",
			Help:    "LP back-end attempt duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend"},
	)
}
