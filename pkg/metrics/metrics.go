package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
	}

	r.initExpansionMetrics()
	r.initAnalysisMetrics()
	r.initSolverMetrics()
	r.initSweepMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}

// RecordExpansion records one structural-graph expansion
func (r *Registry) RecordExpansion(status string, places int, duration time.Duration) {
	r.ExpansionsTotal.WithLabelValues(status).Inc()
	if status == StatusOK {
		r.ExpansionPlacesTotal.Add(float64(places))
	}
	r.ExpansionDuration.Observe(duration.Seconds())
}

// RecordAnalysis records a cycle analysis. A negative ratio means the
// network had no cycle and leaves the gauge untouched.
func (r *Registry) RecordAnalysis(ratio float64, cycles int, duration time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ratio >= 0 {
		r.CriticalRatio.Set(ratio)
	}
	r.AnalysisCyclesEnumerated.Add(float64(cycles))
	r.AnalysisDuration.Observe(duration.Seconds())
}

// RecordSolve records a constraint generation run
func (r *Registry) RecordSolve(algorithm, status string, duration time.Duration) {
	r.SolvesTotal.WithLabelValues(algorithm, status).Inc()
	r.SolveDuration.WithLabelValues(algorithm).Observe(duration.Seconds())
}

// RecordBackendAttempt records one attempt by an LP back-end
func (r *Registry) RecordBackendAttempt(backend, outcome string, duration time.Duration) {
	r.BackendAttemptsTotal.WithLabelValues(backend, outcome).Inc()
	r.BackendAttemptSeconds.WithLabelValues(backend).Observe(duration.Seconds())
}

// RecordSweepTask records a finished sweep task
func (r *Registry) RecordSweepTask(status string) {
	r.SweepTasksTotal.WithLabelValues(status).Inc()
}

// TaskStarted and TaskDone track sweep tasks currently running.
func (r *Registry) TaskStarted() { r.SweepTasksInFlight.Inc() }

func (r *Registry) TaskDone() { r.SweepTasksInFlight.Dec() }
