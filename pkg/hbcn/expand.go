package hbcn

import (
	"math"
	"math/bits"

	"github.com/dd0wney/cluso-hbcn/pkg/structural"
)

// ExpandOptions tunes the expansion.
type ExpandOptions struct {
	// ForwardCompletion widens forward places to at least the completion
	// delay of their destination.
	ForwardCompletion bool
}

// clog2 is the ceiling of log2(n), with clog2(0) = clog2(1) = 0.
func clog2(n int) int {
	if n <= 1 {
		return 0
	}
	return bits.Len(uint(n - 1))
}

// muxDelay models the (de)multiplexer in front of or behind a node with the
// given number of channels.
func muxDelay(degree int) float64 {
	return structural.RegisterDelay * float64(clog2(degree))
}

// Expand turns a structural graph into its timing network. Every node yields
// a data and a spacer transition; every channel yields four places, exactly
// one of them marked according to the channel's reset phase.
func Expand(g *structural.Graph, opts ExpandOptions) (*Network, error) {
	nodes := g.Nodes()

	channels := 0
	for _, node := range nodes {
		channels += len(node.Channels)
	}

	n := newNetwork(2*len(nodes), 4*channels)
	for _, node := range nodes {
		n.addTransition(DataOf(node.Name))
		n.addTransition(SpacerOf(node.Name))
		if node.Kind.IsPort() {
			n.classes[node.Name] = Port
		} else {
			n.classes[node.Name] = Register
		}
	}

	inDegree := g.InDegrees()
	for _, src := range nodes {
		backwardCost := muxDelay(len(src.Channels))

		for _, c := range src.Channels {
			dst, ok := g.Node(c.Target)
			if !ok {
				return nil, &GraphError{Op: "expand", Node: src.Name, Target: c.Target, Err: ErrDanglingReference}
			}

			forward := c.Delay
			if opts.ForwardCompletion {
				forward = math.Max(forward, muxDelay(inDegree[dst.Name])+src.Kind.BaseCost())
			}
			backward := backwardCost + dst.Kind.BaseCost()

			n.addPlace(Place{
				Src: DataOf(src.Name), Dst: DataOf(dst.Name),
				Marked: c.Phase == structural.ReqData, Internal: c.Internal,
				Delay: MaxOnly(forward),
			})
			n.addPlace(Place{
				Src: SpacerOf(src.Name), Dst: SpacerOf(dst.Name),
				Marked: c.Phase == structural.ReqNull, Internal: c.Internal,
				Delay: MaxOnly(forward),
			})
			n.addPlace(Place{
				Src: DataOf(dst.Name), Dst: SpacerOf(src.Name),
				Marked: c.Phase == structural.AckData, Internal: c.Internal,
				Delay: MaxOnly(backward),
			})
			n.addPlace(Place{
				Src: SpacerOf(dst.Name), Dst: DataOf(src.Name),
				Marked: c.Phase == structural.AckNull, Internal: c.Internal,
				Delay: MaxOnly(backward),
			})
		}
	}

	if err := n.CheckLiveness(); err != nil {
		return nil, err
	}
	return n, nil
}
