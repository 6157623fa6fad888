package algorithms

import "sort"

// Component is one strongly connected component.
type Component struct {
	ID       int
	Vertices []int
}

// Cyclic reports whether the component can contain a cycle: more than one
// vertex, or a single vertex with a self-loop.
func (c *Component) Cyclic(g *Digraph) bool {
	if len(c.Vertices) > 1 {
		return true
	}
	v := c.Vertices[0]
	for _, a := range g.Out(v) {
		if a.To == v {
			return true
		}
	}
	return false
}

// SCCResult holds the result of Tarjan's strongly connected components algorithm.
type SCCResult struct {
	Components     []*Component
	ComponentOf    []int
	Largest        *Component
	SingletonCount int
}

// CondensationArc is an arc of the condensation DAG, where each SCC has
// been contracted to a single vertex.
type CondensationArc struct {
	From  int
	To    int
	Count int
}

// tarjanState holds per-vertex state during Tarjan's DFS.
type tarjanState struct {
	index   int
	lowlink int
	onStack bool
	visited bool
}

// StronglyConnectedComponents finds all SCCs using Tarjan's algorithm in O(V+E) time.
// Components are emitted in reverse topological order of the condensation;
// vertices inside a component are sorted ascending.
func StronglyConnectedComponents(g *Digraph) *SCCResult {
	n := g.Order()
	state := make([]tarjanState, n)
	componentOf := make([]int, n)
	var stack []int
	indexCounter := 0
	var components []*Component

	var strongconnect func(u int)
	strongconnect = func(u int) {
		state[u] = tarjanState{
			index:   indexCounter,
			lowlink: indexCounter,
			onStack: true,
			visited: true,
		}
		indexCounter++
		stack = append(stack, u)

		for _, a := range g.Out(u) {
			v := a.To
			if !state[v].visited {
				strongconnect(v)
				if state[v].lowlink < state[u].lowlink {
					state[u].lowlink = state[v].lowlink
				}
			} else if state[v].onStack {
				if state[v].index < state[u].lowlink {
					state[u].lowlink = state[v].index
				}
			}
		}

		// u is a root: pop the stack to form an SCC
		if state[u].lowlink == state[u].index {
			id := len(components)
			var members []int
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				state[w].onStack = false
				members = append(members, w)
				componentOf[w] = id
				if w == u {
					break
				}
			}
			sort.Ints(members)
			components = append(components, &Component{ID: id, Vertices: members})
		}
	}

	for v := 0; v < n; v++ {
		if !state[v].visited {
			strongconnect(v)
		}
	}

	result := &SCCResult{Components: components, ComponentOf: componentOf}
	for _, c := range components {
		if len(c.Vertices) == 1 {
			result.SingletonCount++
		}
		if result.Largest == nil || len(c.Vertices) > len(result.Largest.Vertices) {
			result.Largest = c
		}
	}
	return result
}

// Condensation builds the condensation DAG of an SCC result. Arcs between
// the same pair of components are aggregated with their count.
func Condensation(g *Digraph, scc *SCCResult) []CondensationArc {
	type key struct{ from, to int }
	counts := make(map[key]int)

	for u := 0; u < g.Order(); u++ {
		for _, a := range g.Out(u) {
			from, to := scc.ComponentOf[u], scc.ComponentOf[a.To]
			if from == to {
				continue
			}
			counts[key{from, to}]++
		}
	}

	result := make([]CondensationArc, 0, len(counts))
	for k, count := range counts {
		result = append(result, CondensationArc{From: k.from, To: k.to, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].From != result[j].From {
			return result[i].From < result[j].From
		}
		return result[i].To < result[j].To
	})
	return result
}
