package analyse

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/dd0wney/cluso-hbcn/pkg/algorithms"
	"github.com/dd0wney/cluso-hbcn/pkg/hbcn"
	"github.com/dd0wney/cluso-hbcn/pkg/logging"
)

// errNoConvergence means the ratio search kept improving past its round limit.
var errNoConvergence = errors.New("critical ratio search did not converge")

// FindCriticalCycle returns the cycle with the highest weight-to-token ratio,
// or nil if the network is acyclic. Equal ratios are resolved by Less. With
// Options.Depth it returns the longest cycle instead, as ordered by
// LessDepth.
func FindCriticalCycle(n *hbcn.Network, opts Options) (*Cycle, error) {
	logger := logging.OrNop(opts.Logger)
	start := time.Now()
	less := opts.less()

	var best *Cycle
	count := 0
	ratio := -1.0
	err := enumerate(n, opts, func(c *Cycle) {
		count++
		ratio = math.Max(ratio, c.Ratio())
		if best == nil || less(c, best) {
			best = c
		}
	})
	if err != nil {
		return nil, err
	}

	if best != nil {
		logger.Debug("critical cycle found",
			logging.Ratio(ratio),
			logging.Int("places", best.Len()),
			logging.Count(count),
		)
	} else {
		logger.Debug("network is acyclic")
	}
	if opts.Metrics != nil {
		opts.Metrics.RecordAnalysis(ratio, count, time.Since(start))
	}
	return best, nil
}

// MaxRatioCycle returns a cycle of maximum weight-to-token ratio without
// enumerating cycles, or nil if the network is acyclic. Each round looks for
// a cycle that is positive under the weights w - ratio*tokens and raises the
// ratio to that cycle's own, until no such cycle is left. Among cycles of
// equal ratio the one returned is arbitrary. Options.MaxCycles is ignored.
func MaxRatioCycle(n *hbcn.Network, opts Options) (*Cycle, error) {
	logger := logging.OrNop(opts.Logger)
	g := n.Digraph()

	var best *Cycle
	// below any ratio, so the first round finds some cycle with a token
	lambda := -1.0
	limit := 4*n.NumPlaces() + 64

	for round := 0; round < limit; round++ {
		raw := algorithms.PositiveCycle(g, func(a algorithms.Arc) float64 {
			p := n.Place(a.ID)
			w := p.Weight()
			if opts.Depth {
				w = 1
			}
			return w - lambda*float64(p.Tokens())
		}, tolerance)
		if raw == nil {
			if best != nil {
				logger.Debug("critical ratio found", logging.Ratio(best.Ratio()), logging.Int("rounds", round))
			}
			return best, nil
		}

		c, err := newCycle(n, raw, opts.Depth)
		if err != nil {
			return nil, err
		}
		if best != nil && c.Ratio() <= lambda+tolerance*math.Max(1, math.Abs(lambda)) {
			return best, nil
		}
		best = c
		lambda = c.Ratio()
	}
	return nil, fmt.Errorf("%w after %d rounds", errNoConvergence, limit)
}
