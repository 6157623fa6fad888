package constrain

import (
	"math"

	"github.com/dd0wney/cluso-hbcn/pkg/analyse"
	"github.com/dd0wney/cluso-hbcn/pkg/hbcn"
)

// Result holds the delays of one successful constraint generation.
type Result struct {
	Algorithm Algorithm
	Params    Params
	// Delays is indexed by place.
	Delays []hbcn.DelayPair
	// Critical is nil for an acyclic network.
	Critical *analyse.Cycle
	// Stretch is the proportional factor or the pseudoclock period.
	Stretch float64
	// Schedule holds arrival times and slack under the solved delays. It
	// is nil for an empty network.
	Schedule *analyse.Schedule
	// Backend names the solver that produced the delays.
	Backend string

	network *hbcn.Network
	solved  *hbcn.Network
}

// Period is the pseudoclock period, or zero for the proportional algorithm.
func (r *Result) Period() float64 {
	if r.Algorithm == Pseudoclock {
		return r.Stretch
	}
	return 0
}

// Source returns the network the result was computed for.
func (r *Result) Source() *hbcn.Network {
	return r.network
}

// Network returns the source network with its delays replaced by the
// solved ones.
func (r *Result) Network() *hbcn.Network {
	return r.solved
}

// Slack returns the slack of place i, or zero without a schedule.
func (r *Result) Slack(i int) float64 {
	if r.Schedule == nil {
		return 0
	}
	return r.Schedule.Slack[i]
}

// PathConstraint is the tightest bound over every place between two
// circuit nodes.
type PathConstraint struct {
	From   string
	To     string
	Delay  hbcn.DelayPair
	Places []int
}

// PathConstraints merges places per pair of circuit nodes, in order of
// first appearance. The maximum is the smallest maximum of the merged places
// and the minimum the largest minimum. Places from a node to itself are
// skipped.
func (r *Result) PathConstraints() []PathConstraint {
	type key struct{ from, to string }
	index := make(map[key]int)
	var out []PathConstraint

	for i, p := range r.network.Places() {
		if p.Src.Node == p.Dst.Node {
			continue
		}
		d := r.Delays[i]
		k := key{p.Src.Node, p.Dst.Node}
		j, ok := index[k]
		if !ok {
			index[k] = len(out)
			out = append(out, PathConstraint{From: k.from, To: k.to, Delay: d, Places: []int{i}})
			continue
		}

		pc := &out[j]
		pc.Places = append(pc.Places, i)
		pc.Delay.Max = math.Min(pc.Delay.Max, d.Max)
		if d.HasMin {
			if !pc.Delay.HasMin || d.Min > pc.Delay.Min {
				pc.Delay.Min = d.Min
			}
			pc.Delay.HasMin = true
		}
	}
	for i := range out {
		if out[i].Delay.HasMin {
			out[i].Delay.Min = math.Min(out[i].Delay.Min, out[i].Delay.Max)
		}
	}
	return out
}
