package hbcn

import (
	"fmt"
	"strings"

	"github.com/dd0wney/cluso-hbcn/pkg/algorithms"
)

// CheckLiveness verifies that every cycle of the network holds a token,
// which is the case exactly when the unmarked places form no cycle.
func (n *Network) CheckLiveness() error {
	unmarked := n.Digraph().Filter(func(a algorithms.Arc) bool {
		return !n.places[a.ID].Marked
	})
	cycle := algorithms.FindCycle(unmarked)
	if cycle == nil {
		return nil
	}

	steps := make([]string, 0, len(cycle)+1)
	for _, a := range cycle {
		steps = append(steps, n.transitions[a.From].String())
	}
	steps = append(steps, steps[0])
	return &GraphError{
		Op:   "liveness",
		Node: n.transitions[cycle[0].From].Node,
		Err:  fmt.Errorf("%w: %s", ErrUnmarkedCycle, strings.Join(steps, " => ")),
	}
}

type channelKey struct {
	src, dst string
}

// channel role of a place within its four-place channel
const (
	roleData = iota
	roleSpacer
	roleAckData
	roleAckNull
	numRoles
)

func channelOf(p Place) (channelKey, int) {
	switch {
	case p.Src.Polarity == Data && p.Dst.Polarity == Data:
		return channelKey{p.Src.Node, p.Dst.Node}, roleData
	case p.Src.Polarity == Spacer && p.Dst.Polarity == Spacer:
		return channelKey{p.Src.Node, p.Dst.Node}, roleSpacer
	case p.Src.Polarity == Data:
		return channelKey{p.Dst.Node, p.Src.Node}, roleAckData
	default:
		return channelKey{p.Dst.Node, p.Src.Node}, roleAckNull
	}
}

// Validate checks that the places group into well-formed channels (four
// places, one token each, no self loops) and that the network is live. It is
// meant for networks that did not come out of Expand.
func (n *Network) Validate() error {
	type channel struct {
		places [numRoles]int
		count  int
		tokens int
	}
	channels := make(map[channelKey]*channel)
	var order []channelKey

	for i, p := range n.places {
		if p.Src == p.Dst {
			return &GraphError{Op: "validate", Node: p.Src.Node, Target: p.Dst.Node,
				Err: fmt.Errorf("%w: self loop on %s", ErrMalformedChannel, p.Src)}
		}
		key, role := channelOf(p)
		c, ok := channels[key]
		if !ok {
			c = &channel{}
			for r := range c.places {
				c.places[r] = -1
			}
			channels[key] = c
			order = append(order, key)
		}
		if c.places[role] >= 0 {
			return &GraphError{Op: "validate", Node: key.src, Target: key.dst,
				Err: fmt.Errorf("%w: duplicate place %s => %s", ErrMalformedChannel, p.Src, p.Dst)}
		}
		c.places[role] = i
		c.count++
		c.tokens += p.Tokens()
	}

	for _, key := range order {
		c := channels[key]
		if c.count != numRoles {
			return &GraphError{Op: "validate", Node: key.src, Target: key.dst,
				Err: fmt.Errorf("%w: %d of %d places", ErrMalformedChannel, c.count, numRoles)}
		}
		if c.tokens != 1 {
			return &GraphError{Op: "validate", Node: key.src, Target: key.dst,
				Err: fmt.Errorf("%w: %d tokens", ErrMalformedChannel, c.tokens)}
		}
	}

	return n.CheckLiveness()
}
