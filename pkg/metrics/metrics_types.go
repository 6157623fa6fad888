package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the toolchain
type Registry struct {
	// Expansion Metrics
	ExpansionsTotal      *prometheus.CounterVec
	ExpansionPlacesTotal prometheus.Counter
	ExpansionDuration    prometheus.Histogram

	// Analysis Metrics
	CriticalRatio            prometheus.Gauge
	AnalysisCyclesEnumerated prometheus.Counter
	AnalysisDuration         prometheus.Histogram

	// Solver Metrics
	SolvesTotal           *prometheus.CounterVec
	SolveDuration         *prometheus.HistogramVec
	BackendAttemptsTotal  *prometheus.CounterVec
	BackendAttemptSeconds *prometheus.HistogramVec

	// Sweep Metrics
	SweepTasksTotal    *prometheus.CounterVec
	SweepTasksInFlight prometheus.Gauge

	registry *prometheus.Registry
	mu       sync.RWMutex
}

// Solve and task outcomes used as label values.
const (
	StatusOK         = "ok"
	StatusInfeasible = "infeasible"
	StatusFailed     = "failed"
	StatusInvalid    = "invalid"
)

// Back-end attempt outcomes.
const (
	OutcomeSolved  = "solved"
	OutcomeFailed  = "failed"
	OutcomeTimeout = "timeout"
)

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)
