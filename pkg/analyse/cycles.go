package analyse

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/dd0wney/cluso-hbcn/pkg/algorithms"
	"github.com/dd0wney/cluso-hbcn/pkg/hbcn"
)

// Cycle is an elementary cycle of a network, rotated so that it starts at its
// least transition.
type Cycle struct {
	// Arcs are the places of the cycle in order; arc IDs are place indices.
	Arcs        algorithms.Cycle
	Transitions []hbcn.Transition
	Weight      float64
	Tokens      int
}

// Places returns the place indices of the cycle in order.
func (c *Cycle) Places() []int {
	out := make([]int, len(c.Arcs))
	for i, a := range c.Arcs {
		out[i] = a.ID
	}
	return out
}

// Len is the number of places on the cycle.
func (c *Cycle) Len() int {
	return len(c.Arcs)
}

// Ratio is the weight per token, the lowest cycle time the cycle allows.
func (c *Cycle) Ratio() float64 {
	return c.Weight / float64(c.Tokens)
}

func (c *Cycle) String() string {
	var b strings.Builder
	for i, t := range c.Transitions {
		if i > 0 {
			b.WriteString(" => ")
		}
		b.WriteString(t.String())
	}
	return fmt.Sprintf("%s (weight %g, tokens %d)", b.String(), c.Weight, c.Tokens)
}

// newCycle rotates raw to its canonical start and sums its weight and tokens.
func newCycle(n *hbcn.Network, raw algorithms.Cycle, depth bool) (*Cycle, error) {
	start := 0
	for i := 1; i < len(raw); i++ {
		if n.Transition(raw[i].From).Less(n.Transition(raw[start].From)) {
			start = i
		}
	}

	c := &Cycle{
		Arcs:        make(algorithms.Cycle, 0, len(raw)),
		Transitions: make([]hbcn.Transition, 0, len(raw)),
	}
	c.Arcs = append(c.Arcs, raw[start:]...)
	c.Arcs = append(c.Arcs, raw[:start]...)

	for _, a := range c.Arcs {
		p := n.Place(a.ID)
		c.Transitions = append(c.Transitions, p.Src)
		c.Tokens += p.Tokens()
		if depth {
			c.Weight++
		} else {
			c.Weight += p.Weight()
		}
	}

	if c.Tokens == 0 {
		return nil, fmt.Errorf("%w: %s", ErrMalformed, c)
	}
	return c, nil
}

// Less orders cycles by criticality: higher ratio first, then fewer places,
// then the transition sequence, then place indices.
func Less(a, b *Cycle) bool {
	ra, rb := a.Ratio(), b.Ratio()
	scale := tolerance * math.Max(1, math.Max(math.Abs(ra), math.Abs(rb)))
	if ra > rb+scale {
		return true
	}
	if rb > ra+scale {
		return false
	}
	if a.Len() != b.Len() {
		return a.Len() < b.Len()
	}
	for i := range a.Transitions {
		ta, tb := a.Transitions[i], b.Transitions[i]
		if ta != tb {
			return ta.Less(tb)
		}
	}
	for i := range a.Arcs {
		if a.Arcs[i].ID != b.Arcs[i].ID {
			return a.Arcs[i].ID < b.Arcs[i].ID
		}
	}
	return false
}

// LessDepth orders cycles for depth analysis: more places first, then as
// Less.
func LessDepth(a, b *Cycle) bool {
	if a.Len() != b.Len() {
		return a.Len() > b.Len()
	}
	return Less(a, b)
}

// Rank sorts cycles from most to least critical.
func Rank(cycles []*Cycle) {
	rank(cycles, Less)
}

// RankDepth sorts cycles from longest to shortest.
func RankDepth(cycles []*Cycle) {
	rank(cycles, LessDepth)
}

func rank(cycles []*Cycle, less func(a, b *Cycle) bool) {
	sort.SliceStable(cycles, func(i, j int) bool {
		return less(cycles[i], cycles[j])
	})
}

// Critical returns the most critical of cycles, or nil if there are none.
func Critical(cycles []*Cycle) *Cycle {
	var best *Cycle
	for _, c := range cycles {
		if best == nil || Less(c, best) {
			best = c
		}
	}
	return best
}

// EnumerateCycles lists every elementary cycle of the network. The order is
// that of enumeration; use Rank for a deterministic order.
func EnumerateCycles(n *hbcn.Network, opts Options) ([]*Cycle, error) {
	var cycles []*Cycle
	err := enumerate(n, opts, func(c *Cycle) {
		cycles = append(cycles, c)
	})
	return cycles, err
}

func enumerate(n *hbcn.Network, opts Options, visit func(*Cycle)) error {
	limit := opts.maxCycles()
	count := 0
	var err error

	algorithms.ElementaryCycles(n.Digraph(), func(raw algorithms.Cycle) bool {
		count++
		if limit > 0 && count > limit {
			err = fmt.Errorf("%w: more than %d cycles", ErrCycleLimit, limit)
			return false
		}
		c, cerr := newCycle(n, raw, opts.Depth)
		if cerr != nil {
			err = cerr
			return false
		}
		visit(c)
		return true
	})
	return err
}
