// Package hbcn models half-buffer channel networks: marked graphs whose
// transitions are the data and spacer events of circuit nodes and whose
// places are the timed precedences between them.
package hbcn

import (
	"fmt"
	"strings"

	"github.com/dd0wney/cluso-hbcn/pkg/algorithms"
)

// Polarity tells the two events of a circuit node apart.
type Polarity uint8

const (
	Spacer Polarity = iota
	Data
)

// Sign is the prefix used for the polarity in the text form.
func (p Polarity) Sign() byte {
	if p == Data {
		return '+'
	}
	return '-'
}

func (p Polarity) String() string {
	if p == Data {
		return "Data"
	}
	return "Spacer"
}

// Transition is an event at a circuit node.
type Transition struct {
	Node     string
	Polarity Polarity
}

// DataOf returns the data transition of node.
func DataOf(node string) Transition {
	return Transition{Node: node, Polarity: Data}
}

// SpacerOf returns the spacer transition of node.
func SpacerOf(node string) Transition {
	return Transition{Node: node, Polarity: Spacer}
}

// String renders the transition as it appears in the text form, e.g. "+{a}".
func (t Transition) String() string {
	return string(t.Polarity.Sign()) + "{" + escapeName(t.Node) + "}"
}

// Less orders transitions by node name, data before spacer.
func (t Transition) Less(o Transition) bool {
	if t.Node != o.Node {
		return t.Node < o.Node
	}
	return t.Polarity > o.Polarity
}

// DelayPair is a required maximum delay with an optional minimum.
type DelayPair struct {
	Max    float64
	Min    float64
	HasMin bool
}

// MaxOnly returns a bound with no minimum.
func MaxOnly(max float64) DelayPair {
	return DelayPair{Max: max}
}

// Window returns a bound with both ends set.
func Window(min, max float64) DelayPair {
	return DelayPair{Min: min, Max: max, HasMin: true}
}

func (d DelayPair) String() string {
	if d.HasMin {
		return "(" + formatFloat(d.Min) + "," + formatFloat(d.Max) + ")"
	}
	return formatFloat(d.Max)
}

// Place is a timed precedence between two transitions.
type Place struct {
	Src      Transition
	Dst      Transition
	Marked   bool
	Internal bool
	Delay    DelayPair
}

// Weight is the delay used by cycle analysis.
func (p Place) Weight() float64 {
	return p.Delay.Max
}

// Backward reports whether the place acknowledges rather than propagates:
// its endpoints have different polarities.
func (p Place) Backward() bool {
	return p.Src.Polarity != p.Dst.Polarity
}

// Tokens is 1 for a marked place and 0 otherwise.
func (p Place) Tokens() int {
	if p.Marked {
		return 1
	}
	return 0
}

// NodeClass separates external ports from everything else.
type NodeClass uint8

const (
	Register NodeClass = iota
	Port
)

// PortPrefix marks port names in networks loaded from text.
const PortPrefix = "port:"

// ClassFromName infers the class of a node from its name.
func ClassFromName(name string) NodeClass {
	if strings.HasPrefix(name, PortPrefix) {
		return Port
	}
	return Register
}

// Network is an immutable marked graph. Transitions and places are indexed
// densely; place indices are stable and are what solvers attach results to.
type Network struct {
	transitions []Transition
	index       map[Transition]int
	places      []Place
	out         [][]int
	in          [][]int
	classes     map[string]NodeClass
}

// New builds a network from explicit transitions and places. Every place
// endpoint must be one of the transitions. classes may be nil, in which case
// node classes are inferred from names.
func New(transitions []Transition, places []Place, classes map[string]NodeClass) (*Network, error) {
	n := newNetwork(len(transitions), len(places))
	for _, t := range transitions {
		if _, dup := n.index[t]; dup {
			return nil, &GraphError{Op: "new", Node: t.Node, Err: ErrDuplicateTransition}
		}
		n.addTransition(t)
	}
	for _, p := range places {
		if _, ok := n.index[p.Src]; !ok {
			return nil, &GraphError{Op: "new", Node: p.Src.Node, Err: ErrUnknownTransition}
		}
		if _, ok := n.index[p.Dst]; !ok {
			return nil, &GraphError{Op: "new", Node: p.Dst.Node, Err: ErrUnknownTransition}
		}
		n.addPlace(p)
	}
	for _, t := range n.transitions {
		class := ClassFromName(t.Node)
		if c, ok := classes[t.Node]; ok {
			class = c
		}
		n.classes[t.Node] = class
	}
	return n, nil
}

func newNetwork(transitions, places int) *Network {
	return &Network{
		transitions: make([]Transition, 0, transitions),
		index:       make(map[Transition]int, transitions),
		places:      make([]Place, 0, places),
		out:         make([][]int, 0, transitions),
		in:          make([][]int, 0, transitions),
		classes:     make(map[string]NodeClass),
	}
}

func (n *Network) addTransition(t Transition) int {
	if i, ok := n.index[t]; ok {
		return i
	}
	i := len(n.transitions)
	n.transitions = append(n.transitions, t)
	n.index[t] = i
	n.out = append(n.out, nil)
	n.in = append(n.in, nil)
	return i
}

func (n *Network) addPlace(p Place) int {
	i := len(n.places)
	n.places = append(n.places, p)
	src, dst := n.index[p.Src], n.index[p.Dst]
	n.out[src] = append(n.out[src], i)
	n.in[dst] = append(n.in[dst], i)
	return i
}

// NumTransitions returns the number of transitions.
func (n *Network) NumTransitions() int {
	return len(n.transitions)
}

// NumPlaces returns the number of places.
func (n *Network) NumPlaces() int {
	return len(n.places)
}

// Transition returns the i-th transition.
func (n *Network) Transition(i int) Transition {
	return n.transitions[i]
}

// Transitions returns a copy of all transitions in index order.
func (n *Network) Transitions() []Transition {
	return append([]Transition(nil), n.transitions...)
}

// Index returns the index of a transition.
func (n *Network) Index(t Transition) (int, bool) {
	i, ok := n.index[t]
	return i, ok
}

// Place returns the i-th place.
func (n *Network) Place(i int) Place {
	return n.places[i]
}

// Places returns a copy of all places in index order.
func (n *Network) Places() []Place {
	return append([]Place(nil), n.places...)
}

// Out returns the indices of places leaving transition i.
func (n *Network) Out(i int) []int {
	return n.out[i]
}

// In returns the indices of places entering transition i.
func (n *Network) In(i int) []int {
	return n.in[i]
}

// Endpoints returns the transition indices of place i.
func (n *Network) Endpoints(i int) (src, dst int) {
	p := n.places[i]
	return n.index[p.Src], n.index[p.Dst]
}

// Class returns the class of a circuit node.
func (n *Network) Class(node string) NodeClass {
	if c, ok := n.classes[node]; ok {
		return c
	}
	return ClassFromName(node)
}

// MarkedPlaces counts the places holding a token.
func (n *Network) MarkedPlaces() int {
	count := 0
	for _, p := range n.places {
		if p.Marked {
			count++
		}
	}
	return count
}

// Digraph returns the network as a digraph over transition indices whose arc
// IDs are place indices.
func (n *Network) Digraph() *algorithms.Digraph {
	g := algorithms.NewDigraph(len(n.transitions))
	for i := range n.places {
		src, dst := n.Endpoints(i)
		g.AddArc(src, dst, i)
	}
	return g
}

// Unweighted returns a copy of the network in which every place weighs 1.
// The receiver is not modified.
func (n *Network) Unweighted() *Network {
	delays := make([]DelayPair, len(n.places))
	for i := range delays {
		delays[i] = MaxOnly(1)
	}
	return n.WithDelays(delays)
}

// WithDelays returns a copy of the network with place delays replaced,
// index for index. It panics if the lengths differ.
func (n *Network) WithDelays(delays []DelayPair) *Network {
	if len(delays) != len(n.places) {
		panic(fmt.Sprintf("hbcn: %d delays for %d places", len(delays), len(n.places)))
	}
	c := &Network{
		transitions: n.transitions,
		index:       n.index,
		places:      make([]Place, len(n.places)),
		out:         n.out,
		in:          n.in,
		classes:     n.classes,
	}
	for i, p := range n.places {
		p.Delay = delays[i]
		c.places[i] = p
	}
	return c
}
