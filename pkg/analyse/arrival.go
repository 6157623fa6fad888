package analyse

import (
	"errors"
	"fmt"

	"github.com/dd0wney/cluso-hbcn/pkg/algorithms"
	"github.com/dd0wney/cluso-hbcn/pkg/hbcn"
)

// Schedule holds the earliest firing time of every transition within one
// period of length CycleTime.
type Schedule struct {
	CycleTime float64
	// Times is indexed by transition.
	Times []float64
	// Slack is indexed by place: how much later than required its
	// destination fires.
	Slack []float64

	network *hbcn.Network
}

// Time returns the arrival time of t.
func (s *Schedule) Time(t hbcn.Transition) (float64, bool) {
	i, ok := s.network.Index(t)
	if !ok {
		return 0, false
	}
	return s.Times[i], true
}

// ArrivalTimes computes the longest-path arrival time of every transition
// when a token on a place stands for one period of cycleTime. A cycle time
// below the critical ratio makes the relaxation diverge and is reported as
// ErrInfeasible, unless a cycle without tokens diverges, which is
// ErrMalformed.
func ArrivalTimes(n *hbcn.Network, cycleTime float64, opts Options) (*Schedule, error) {
	weight := func(i int) float64 {
		p := n.Place(i)
		w := p.Weight()
		if opts.Depth {
			w = 1
		}
		return w - cycleTime*float64(p.Tokens())
	}

	dist, _, err := algorithms.LongestPaths(n.Digraph(), func(a algorithms.Arc) float64 {
		return weight(a.ID)
	}, tolerance)
	if errors.Is(err, algorithms.ErrPositiveCycle) {
		if lerr := n.CheckLiveness(); lerr != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, lerr)
		}
		return nil, fmt.Errorf("%w: cycle time %g", ErrInfeasible, cycleTime)
	}
	if err != nil {
		return nil, err
	}

	s := &Schedule{
		CycleTime: cycleTime,
		Times:     dist,
		Slack:     make([]float64, n.NumPlaces()),
		network:   n,
	}
	for i := range s.Slack {
		src, dst := n.Endpoints(i)
		s.Slack[i] = dist[dst] - dist[src] - weight(i)
	}
	return s, nil
}
