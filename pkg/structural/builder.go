package structural

import (
	"fmt"
	"math"
)

type declaration struct {
	kind  Kind
	name  string
	edges []Edge
}

// Builder collects element declarations and lowers them into a Graph.
type Builder struct {
	decls []declaration
	seen  map[string]struct{}
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{seen: make(map[string]struct{})}
}

// Add declares an element. Delays must be finite and non-negative.
func (b *Builder) Add(kind Kind, name string, edges ...Edge) error {
	if name == "" {
		return ErrEmptyName
	}
	if _, dup := b.seen[name]; dup {
		return fmt.Errorf("%w: %q", ErrDuplicateNode, name)
	}
	for _, e := range edges {
		if e.Delay < 0 || math.IsNaN(e.Delay) || math.IsInf(e.Delay, 0) {
			return fmt.Errorf("%w: %q -> %q: %v", ErrNegativeDelay, name, e.Target, e.Delay)
		}
	}
	kind.BaseCost() // rejects kinds outside the closed set

	b.seen[name] = struct{}{}
	b.decls = append(b.decls, declaration{
		kind:  kind,
		name:  name,
		edges: append([]Edge(nil), edges...),
	})
	return nil
}

// Build lowers registers into their pipeline stages and checks that every
// edge target is declared.
func (b *Builder) Build() (*Graph, error) {
	nodes := make([]*CircuitNode, 0, len(b.decls))
	for _, d := range b.decls {
		lowered := lower(d)
		for _, n := range lowered[1:] {
			if _, clash := b.seen[n.Name]; clash {
				return nil, fmt.Errorf("%w: %q", ErrReservedNodeName, n.Name)
			}
		}
		nodes = append(nodes, lowered...)
	}

	g := FromNodes(nodes)
	if err := g.CheckReferences(); err != nil {
		return nil, err
	}
	return g, nil
}

// StageName names the i-th internal stage of a register.
func StageName(register string, i int) string {
	return fmt.Sprintf("%s%s%d", register, StageSeparator, i)
}

func channels(edges []Edge, phase Phase, internal bool) []Channel {
	out := make([]Channel, len(edges))
	for i, e := range edges {
		out[i] = Channel{Target: e.Target, Delay: e.Delay, Phase: phase, Internal: internal}
	}
	return out
}

// lower expands one declaration into the nodes that model it. The declared
// name always comes first so references to it reach the register input.
func lower(d declaration) []*CircuitNode {
	switch d.kind {
	case Port, NullReg, ControlReg:
		return []*CircuitNode{{
			Name:     d.name,
			Kind:     d.kind,
			Channels: channels(d.edges, AckNull, false),
		}}

	case DataReg:
		s0, s1 := StageName(d.name, 0), StageName(d.name, 1)
		return []*CircuitNode{
			{
				Name:     d.name,
				Kind:     DataReg,
				Channels: []Channel{{Target: s0, Delay: stageDelay, Phase: ReqNull, Internal: true}},
			},
			{
				Name:     s0,
				Kind:     DataReg,
				Channels: []Channel{{Target: s1, Delay: stageDelay, Phase: ReqData, Internal: true}},
			},
			{
				Name:     s1,
				Kind:     DataReg,
				Channels: channels(d.edges, AckNull, false),
			},
		}

	case UnsafeReg:
		s0 := StageName(d.name, 0)
		return []*CircuitNode{
			{
				Name:     d.name,
				Kind:     UnsafeReg,
				Channels: []Channel{{Target: s0, Delay: stageDelay, Phase: ReqNull, Internal: true}},
			},
			{
				Name:     s0,
				Kind:     UnsafeReg,
				Channels: channels(d.edges, ReqData, true),
			},
		}

	default:
		panic(fmt.Sprintf("structural: unknown kind %d", int(d.kind)))
	}
}
