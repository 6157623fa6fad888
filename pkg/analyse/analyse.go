package analyse

import (
	"math"

	"github.com/dd0wney/cluso-hbcn/pkg/algorithms"
	"github.com/dd0wney/cluso-hbcn/pkg/hbcn"
	"github.com/dd0wney/cluso-hbcn/pkg/logging"
)

// RegionStats summarises the strongly connected regions of a network.
type RegionStats struct {
	Regions    int
	Cyclic     int
	Largest    int
	Singletons int
	// Links is the number of arcs between regions in the condensation.
	Links int
}

// Report is the full result of cycle analysis.
type Report struct {
	Depth bool
	// Acyclic is set when the network has no cycle at all.
	Acyclic bool
	// Critical heads the ranking: the most critical cycle, or the longest
	// one in depth mode. It is nil for an acyclic network.
	Critical *Cycle
	// CycleTime is the critical ratio, or 0 without cycles. In depth mode it
	// is the highest unit-weight ratio, which the longest cycle need not
	// have.
	CycleTime float64
	Schedule  *Schedule
	// Cycles holds the most critical cycles, ranked.
	Cycles      []*Cycle
	TotalCycles int
	Regions     RegionStats
	Stats       algorithms.CycleStats
}

// Analyse enumerates the cycles of the network, ranks them and computes the
// schedule at the critical ratio. Cycles are ranked by Less, or by LessDepth
// when Options.Depth is set.
func Analyse(n *hbcn.Network, opts Options) (*Report, error) {
	logger := logging.OrNop(opts.Logger)
	timer := logging.StartTimer(logger, "analysis complete", logging.Network(n.NumTransitions(), n.NumPlaces()))

	g := n.Digraph()
	acyclic := algorithms.IsDAG(g)
	var cycles []*Cycle
	var err error
	if !acyclic {
		cycles, err = EnumerateCycles(n, opts)
		if err != nil {
			timer.EndError(err)
			return nil, err
		}
		rank(cycles, opts.less())
	}

	r := &Report{
		Depth:       opts.Depth,
		Acyclic:     acyclic,
		TotalCycles: len(cycles),
		Regions:     regionStats(g),
	}

	raw := make([]algorithms.Cycle, len(cycles))
	for i, c := range cycles {
		raw[i] = c.Arcs
	}
	r.Stats = algorithms.AnalyzeCycles(raw)

	if len(cycles) > 0 {
		r.Critical = cycles[0]
		for _, c := range cycles {
			r.CycleTime = math.Max(r.CycleTime, c.Ratio())
		}
	}
	if top := opts.topCycles(); top > 0 && len(cycles) > top {
		cycles = cycles[:top]
	}
	r.Cycles = cycles

	r.Schedule, err = ArrivalTimes(n, r.CycleTime, opts)
	if err != nil {
		timer.EndError(err)
		return nil, err
	}

	elapsed := timer.End(logging.Ratio(r.CycleTime), logging.Count(r.TotalCycles))
	if opts.Metrics != nil {
		ratio := -1.0
		if r.Critical != nil {
			ratio = r.CycleTime
		}
		opts.Metrics.RecordAnalysis(ratio, r.TotalCycles, elapsed)
	}
	return r, nil
}

func regionStats(g *algorithms.Digraph) RegionStats {
	scc := algorithms.StronglyConnectedComponents(g)
	s := RegionStats{
		Regions:    len(scc.Components),
		Singletons: scc.SingletonCount,
		Links:      len(algorithms.Condensation(g, scc)),
	}
	if scc.Largest != nil {
		s.Largest = len(scc.Largest.Vertices)
	}
	for _, c := range scc.Components {
		if c.Cyclic(g) {
			s.Cyclic++
		}
	}
	return s
}
