package algorithms

// ElementaryCycles enumerates every elementary cycle of g exactly once using
// Johnson's algorithm, calling visit for each. Parallel arcs yield distinct
// cycles. Enumeration stops as soon as visit returns false, and the return
// value reports whether it ran to completion.
//
// The cycle passed to visit is freshly allocated and may be retained.
func ElementaryCycles(g *Digraph, visit func(Cycle) bool) bool {
	var work [][]int
	for _, c := range StronglyConnectedComponents(g).Components {
		if c.Cyclic(g) {
			work = append(work, c.Vertices)
		}
	}

	for len(work) > 0 {
		vertices := work[len(work)-1]
		work = work[:len(work)-1]

		// vertices are sorted, so local vertex 0 is the least one
		sub, back := g.Induced(vertices)
		j := newJohnson(sub, func(local Cycle) bool {
			cycle := make(Cycle, len(local))
			for i, a := range local {
				cycle[i] = Arc{From: back[a.From], To: back[a.To], ID: a.ID}
			}
			return visit(cycle)
		})
		j.circuit(0, 0)
		if j.stop {
			return false
		}

		// drop the start vertex and continue with what stays strongly connected
		rest := vertices[1:]
		if len(rest) == 0 {
			continue
		}
		restGraph, restBack := g.Induced(rest)
		for _, c := range StronglyConnectedComponents(restGraph).Components {
			if !c.Cyclic(restGraph) {
				continue
			}
			mapped := make([]int, len(c.Vertices))
			for i, v := range c.Vertices {
				mapped[i] = restBack[v]
			}
			work = append(work, mapped)
		}
	}
	return true
}

type johnson struct {
	g       *Digraph
	blocked []bool
	b       []map[int]struct{}
	stack   []Arc
	visit   func(Cycle) bool
	stop    bool
}

func newJohnson(g *Digraph, visit func(Cycle) bool) *johnson {
	n := g.Order()
	j := &johnson{
		g:       g,
		blocked: make([]bool, n),
		b:       make([]map[int]struct{}, n),
		visit:   visit,
	}
	for i := range j.b {
		j.b[i] = make(map[int]struct{})
	}
	return j
}

func (j *johnson) unblock(u int) {
	j.blocked[u] = false
	for w := range j.b[u] {
		delete(j.b[u], w)
		if j.blocked[w] {
			j.unblock(w)
		}
	}
}

// circuit searches for cycles through s that continue the current path at v.
func (j *johnson) circuit(v, s int) bool {
	found := false
	j.blocked[v] = true

	for _, a := range j.g.Out(v) {
		if j.stop {
			return true
		}
		switch {
		case a.To == s:
			cycle := make(Cycle, len(j.stack)+1)
			copy(cycle, j.stack)
			cycle[len(j.stack)] = a
			if !j.visit(cycle) {
				j.stop = true
			}
			found = true
		case !j.blocked[a.To]:
			j.stack = append(j.stack, a)
			if j.circuit(a.To, s) {
				found = true
			}
			j.stack = j.stack[:len(j.stack)-1]
		}
	}

	if found {
		j.unblock(v)
	} else {
		for _, a := range j.g.Out(v) {
			j.b[a.To][v] = struct{}{}
		}
	}
	return found
}
