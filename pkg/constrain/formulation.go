package constrain

import (
	"fmt"
	"math"

	"github.com/dd0wney/cluso-hbcn/pkg/hbcn"
	"github.com/dd0wney/cluso-hbcn/pkg/lp"
)

const (
	// omega splits the tie-breaking weight between shrinking maxima and
	// widening the window below them.
	omega = 0.25

	// offsetWeight keeps arrival offsets as small as possible without
	// competing with the other objective terms.
	offsetWeight = 1e-6
)

// formulation is a model plus the variables results are read back from.
type formulation struct {
	model   *lp.Model
	max     []lp.VarID
	min     []lp.VarID // -1 where the place has no minimum
	stretch lp.VarID
	offsets []lp.VarID
}

func newFormulation(name string, n *hbcn.Network) *formulation {
	f := &formulation{
		model: lp.NewModel(name),
		max:   make([]lp.VarID, n.NumPlaces()),
		min:   make([]lp.VarID, n.NumPlaces()),
	}
	for i := range f.min {
		f.min[i] = -1
	}
	return f
}

// margin returns the margin governing place p, if any. Internal places are
// never given a minimum.
func margin(p hbcn.Place, params Params) (float64, bool) {
	if p.Internal {
		return 0, false
	}
	m := params.ForwardMargin
	if p.Backward() {
		m = params.BackwardMargin
	}
	if m == nil {
		return 0, false
	}
	return *m / 100, true
}

// addMargins creates the minimum of every place under a margin:
// m <= min <= max and min >= (1-mu)*max.
func (f *formulation) addMargins(n *hbcn.Network, params Params) []lp.Term {
	var terms []lp.Term
	for i, p := range n.Places() {
		mu, ok := margin(p, params)
		if !ok {
			continue
		}
		v := f.model.AddVariable(fmt.Sprintf("min%d", i), params.MinDelay, lp.Inf)
		f.min[i] = v
		f.model.AddConstraint(fmt.Sprintf("window%d", i),
			[]lp.Term{{Var: v, Coef: 1}, {Var: f.max[i], Coef: -1}}, lp.LessEqual, 0)
		f.model.AddConstraint(fmt.Sprintf("margin%d", i),
			[]lp.Term{{Var: v, Coef: 1}, {Var: f.max[i], Coef: -(1 - mu)}}, lp.GreaterEqual, 0)
		terms = append(terms, lp.Term{Var: v, Coef: -omega})
	}
	return terms
}

func (f *formulation) setObjective(stretchWeight float64, extra []lp.Term) {
	terms := []lp.Term{{Var: f.stretch, Coef: stretchWeight}}
	for _, v := range f.max {
		terms = append(terms, lp.Term{Var: v, Coef: -(1 - omega)})
	}
	terms = append(terms, extra...)
	f.model.SetObjective(terms, true)
}

// stretchBound is an upper bound on the proportional factor: no place can
// be stretched beyond the whole budget of the marked places.
func stretchBound(n *hbcn.Network, cycleTime float64) float64 {
	minWeight := math.Inf(1)
	for _, p := range n.Places() {
		if w := p.Weight(); w > 0 && w < minWeight {
			minWeight = w
		}
	}
	if math.IsInf(minWeight, 1) {
		return 1
	}
	return math.Max(1, cycleTime*float64(n.MarkedPlaces())/minWeight)
}

// buildProportional builds
//
//	max  W*f - (1-omega)*sum(max) - omega*sum(min) - eps*sum(a)
//	s.t. max_p >= w_p*f                       every place
//	     a_dst - a_src - max_p >= -T*token_p  every place
//	     1 <= f <= F, a_t >= 0, max_p >= m
//
// The arrival offsets a_t exist exactly when every cycle C keeps
// sum_{p in C} max_p <= T*tokens(C).
func buildProportional(n *hbcn.Network, params Params) *formulation {
	f := newFormulation(string(Proportional), n)
	m := f.model
	f.stretch = m.AddVariable("factor", 1, stretchBound(n, params.CycleTime))
	f.addOffsets(n)

	total := 0.0
	for i, p := range n.Places() {
		f.max[i] = m.AddVariable(fmt.Sprintf("max%d", i), params.MinDelay, lp.Inf)
		m.AddConstraint(fmt.Sprintf("share%d", i),
			[]lp.Term{{Var: f.max[i], Coef: 1}, {Var: f.stretch, Coef: -p.Weight()}}, lp.GreaterEqual, 0)
		f.addPlace(n, i, params.CycleTime)
		total += p.Weight()
	}

	extra := append(f.addMargins(n, params), f.offsetTerms()...)
	f.setObjective(2*(total+1), extra)
	return f
}

// addOffsets creates the arrival offset of every transition.
func (f *formulation) addOffsets(n *hbcn.Network) {
	f.offsets = make([]lp.VarID, n.NumTransitions())
	for i := range f.offsets {
		f.offsets[i] = f.model.AddVariable(fmt.Sprintf("arrival%d", i), 0, lp.Inf)
	}
}

// addPlace requires the destination of place i to fire no earlier than its
// source plus the place maximum, less a period per token.
func (f *formulation) addPlace(n *hbcn.Network, i int, cycleTime float64) {
	src, dst := n.Endpoints(i)
	f.model.AddConstraint(fmt.Sprintf("place%d", i), []lp.Term{
		{Var: f.offsets[dst], Coef: 1},
		{Var: f.offsets[src], Coef: -1},
		{Var: f.max[i], Coef: -1},
	}, lp.GreaterEqual, -cycleTime*float64(n.Place(i).Tokens()))
}

func (f *formulation) offsetTerms() []lp.Term {
	terms := make([]lp.Term, len(f.offsets))
	for i, v := range f.offsets {
		terms[i] = lp.Term{Var: v, Coef: -offsetWeight}
	}
	return terms
}

// buildPseudoclock builds
//
//	max  W*P - (1-omega)*sum(max) - omega*sum(min) - eps*sum(a)
//	s.t. a_dst - a_src - max_p >= -T*token_p  every place
//	     max_p >= P                           external places
//	     0 <= P <= T, a_t >= 0, max_p >= max(m, w_p)
func buildPseudoclock(n *hbcn.Network, params Params) *formulation {
	f := newFormulation(string(Pseudoclock), n)
	m := f.model
	f.stretch = m.AddVariable("period", 0, params.CycleTime)
	f.addOffsets(n)

	for i, p := range n.Places() {
		f.max[i] = m.AddVariable(fmt.Sprintf("max%d", i), math.Max(params.MinDelay, p.Weight()), lp.Inf)
		f.addPlace(n, i, params.CycleTime)
		if !p.Internal {
			m.AddConstraint(fmt.Sprintf("clock%d", i),
				[]lp.Term{{Var: f.max[i], Coef: 1}, {Var: f.stretch, Coef: -1}}, lp.GreaterEqual, 0)
		}
	}

	extra := append(f.addMargins(n, params), f.offsetTerms()...)
	f.setObjective(2*float64(n.NumPlaces()+1), extra)
	return f
}

// clean rounds away solver noise.
func clean(v float64) float64 {
	return math.Round(v*1e9) / 1e9
}

// delays reads the delay of every place from a solution.
func (f *formulation) delays(sol *lp.Solution, minDelay float64) []hbcn.DelayPair {
	out := make([]hbcn.DelayPair, len(f.max))
	for i, v := range f.max {
		max := math.Max(clean(sol.Value(v)), minDelay)
		if f.min[i] < 0 {
			out[i] = hbcn.MaxOnly(max)
			continue
		}
		min := math.Min(math.Max(clean(sol.Value(f.min[i])), minDelay), max)
		out[i] = hbcn.Window(min, max)
	}
	return out
}
