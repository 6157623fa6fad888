package algorithms

import (
	"errors"
	"math"
)

// ErrPositiveCycle is returned when longest-path relaxation does not settle,
// which means some cycle has a positive total weight.
var ErrPositiveCycle = errors.New("positive-weight cycle: longest paths are unbounded")

// relaxation is the state of max-plus Bellman-Ford over a digraph.
type relaxation struct {
	dist    []float64
	pred    []Arc
	hasPred []bool
	settled bool
}

func relax(g *Digraph, weight func(Arc) float64, tol float64) *relaxation {
	n := g.Order()
	r := &relaxation{
		dist:    make([]float64, n),
		pred:    make([]Arc, n),
		hasPred: make([]bool, n),
	}

	for round := 0; round <= n; round++ {
		changed := false
		for u := 0; u < n; u++ {
			for _, a := range g.Out(u) {
				candidate := r.dist[u] + weight(a)
				if candidate > r.dist[a.To]+tol*math.Max(1, math.Abs(r.dist[a.To])) {
					r.dist[a.To] = candidate
					r.pred[a.To] = a
					r.hasPred[a.To] = true
					changed = true
				}
			}
		}
		if !changed {
			r.settled = true
			return r
		}
	}
	return r
}

// predecessorCycle finds a cycle among the predecessor arcs, or nil.
func (r *relaxation) predecessorCycle() Cycle {
	const unseen = -1
	stamp := make([]int, len(r.pred))
	for i := range stamp {
		stamp[i] = unseen
	}

	for start := range r.pred {
		if stamp[start] != unseen {
			continue
		}
		v := start
		for stamp[v] == unseen && r.hasPred[v] {
			stamp[v] = start
			v = r.pred[v].From
		}
		if stamp[v] != start {
			stamp[v] = start
			continue
		}

		// v is on a cycle walked backwards; collect it and restore the order
		var cycle Cycle
		for u := v; ; {
			a := r.pred[u]
			cycle = append(cycle, a)
			u = a.From
			if u == v {
				break
			}
		}
		for i, j := 0, len(cycle)-1; i < j; i, j = i+1, j-1 {
			cycle[i], cycle[j] = cycle[j], cycle[i]
		}
		return cycle
	}
	return nil
}

// LongestPaths computes, for every vertex, the heaviest walk ending at it when
// every vertex may also start a walk with weight 0 (max-plus Bellman-Ford).
//
// A relaxation only counts when it improves a distance by more than tol
// relative to its magnitude, so zero-weight cycles settle. If distances still
// improve after Order() rounds the result is ErrPositiveCycle. pred holds the
// arc that last improved each vertex, or -1.
func LongestPaths(g *Digraph, weight func(Arc) float64, tol float64) (dist []float64, pred []int, err error) {
	r := relax(g, weight, tol)
	if !r.settled {
		return nil, nil, ErrPositiveCycle
	}
	pred = make([]int, len(r.pred))
	for v, a := range r.pred {
		pred[v] = -1
		if r.hasPred[v] {
			pred[v] = a.ID
		}
	}
	return r.dist, pred, nil
}

// PositiveCycle returns a cycle whose total weight is positive, or nil when
// longest paths settle under the same tolerance as LongestPaths.
func PositiveCycle(g *Digraph, weight func(Arc) float64, tol float64) Cycle {
	r := relax(g, weight, tol)
	if r.settled {
		return nil
	}
	return r.predecessorCycle()
}
