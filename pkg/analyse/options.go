// Package analyse finds the critical cycle of a timing network and
// computes arrival times for a target cycle time.
package analyse

import (
	"github.com/dd0wney/cluso-hbcn/pkg/logging"
	"github.com/dd0wney/cluso-hbcn/pkg/metrics"
)

const (
	// DefaultMaxCycles bounds elementary-cycle enumeration when
	// Options.MaxCycles is zero.
	DefaultMaxCycles = 100000

	// DefaultTopCycles is the number of cycles kept in a Report.
	DefaultTopCycles = 10

	// tolerance is the relative precision used when comparing ratios and
	// relaxing arrival times.
	tolerance = 1e-9
)

// Options control cycle analysis.
type Options struct {
	// Depth treats every place as weighing 1 and ranks cycles by length.
	Depth bool

	// MaxCycles bounds enumeration. Zero means DefaultMaxCycles and a
	// negative value disables the bound.
	MaxCycles int

	// TopCycles is the number of ranked cycles kept by Analyse. Zero means
	// DefaultTopCycles and a negative value keeps them all.
	TopCycles int

	Logger  logging.Logger
	Metrics *metrics.Registry
}

func (o Options) maxCycles() int {
	switch {
	case o.MaxCycles == 0:
		return DefaultMaxCycles
	case o.MaxCycles < 0:
		return 0
	default:
		return o.MaxCycles
	}
}

func (o Options) topCycles() int {
	if o.TopCycles == 0 {
		return DefaultTopCycles
	}
	return o.TopCycles
}

func (o Options) less() func(a, b *Cycle) bool {
	if o.Depth {
		return LessDepth
	}
	return Less
}
