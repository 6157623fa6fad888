package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initSweepMetrics() {
	r.SweepTasksTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "hbcn_sweep_tasks_total",
			Help: "Total number of parameter sweep tasks",
		},
		[]string{"status"},
	)

	r.SweepTasksInFlight = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "hbcn_sweep_tasks_in_flight",
			Help: "Sweep tasks currently running",
		},
	)
}
