package structural

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownKind      = errors.New("unknown element kind")
	ErrDuplicateNode    = errors.New("duplicate definition")
	ErrUndefinedNode    = errors.New("undefined element")
	ErrNegativeDelay    = errors.New("negative delay")
	ErrEmptyName        = errors.New("empty element name")
	ErrReservedNodeName = errors.New("name collides with a register stage")
)

// Edge is a declared connection as written by the user.
type Edge struct {
	Target string
	Delay  float64
}

// Channel is an edge of the lowered graph.
type Channel struct {
	Target   string
	Delay    float64
	Phase    Phase
	Internal bool
}

// CircuitNode is a named circuit element with its outgoing channels.
type CircuitNode struct {
	Name     string
	Kind     Kind
	Channels []Channel
}

// Graph is a lowered structural graph. Nodes keep their declaration order so
// everything derived from a Graph is deterministic.
type Graph struct {
	nodes []*CircuitNode
	index map[string]int
}

// FromNodes wraps already-lowered nodes in a Graph without checking that
// channel targets exist. Consumers that need the guarantee must check it.
func FromNodes(nodes []*CircuitNode) *Graph {
	g := &Graph{
		nodes: make([]*CircuitNode, 0, len(nodes)),
		index: make(map[string]int, len(nodes)),
	}
	for _, n := range nodes {
		g.index[n.Name] = len(g.nodes)
		g.nodes = append(g.nodes, n)
	}
	return g
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Node looks up a node by name.
func (g *Graph) Node(name string) (*CircuitNode, bool) {
	i, ok := g.index[name]
	if !ok {
		return nil, false
	}
	return g.nodes[i], true
}

// Nodes returns the nodes in declaration order.
func (g *Graph) Nodes() []*CircuitNode {
	out := make([]*CircuitNode, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// InDegree counts the channels ending at name.
func (g *Graph) InDegree(name string) int {
	count := 0
	for _, n := range g.nodes {
		for _, c := range n.Channels {
			if c.Target == name {
				count++
			}
		}
	}
	return count
}

// OutDegree counts the channels leaving name.
func (g *Graph) OutDegree(name string) int {
	n, ok := g.Node(name)
	if !ok {
		return 0
	}
	return len(n.Channels)
}

// InDegrees computes the in-degree of every node in one pass.
func (g *Graph) InDegrees() map[string]int {
	deg := make(map[string]int, len(g.nodes))
	for _, n := range g.nodes {
		for _, c := range n.Channels {
			deg[c.Target]++
		}
	}
	return deg
}

// CheckReferences returns an error for the first channel whose target is
// not defined.
func (g *Graph) CheckReferences() error {
	for _, n := range g.nodes {
		for _, c := range n.Channels {
			if _, ok := g.index[c.Target]; !ok {
				return fmt.Errorf("%w: %q referenced by %q", ErrUndefinedNode, c.Target, n.Name)
			}
		}
	}
	return nil
}
