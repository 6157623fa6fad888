package algorithms

// Arc is a directed arc to vertex To. ID identifies the arc in the caller's
// own numbering so parallel arcs stay distinguishable.
type Arc struct {
	From int
	To   int
	ID   int
}

// Digraph is a directed multigraph over the vertices 0..Order()-1.
type Digraph struct {
	out  [][]Arc
	size int
}

// NewDigraph creates a digraph with order vertices and no arcs.
func NewDigraph(order int) *Digraph {
	return &Digraph{out: make([][]Arc, order)}
}

// AddArc adds an arc from -> to. It panics when a vertex is out of range.
func (g *Digraph) AddArc(from, to, id int) {
	if from < 0 || from >= len(g.out) || to < 0 || to >= len(g.out) {
		panic("algorithms: arc endpoint out of range")
	}
	g.out[from] = append(g.out[from], Arc{From: from, To: to, ID: id})
	g.size++
}

// Order returns the number of vertices.
func (g *Digraph) Order() int {
	return len(g.out)
}

// Size returns the number of arcs.
func (g *Digraph) Size() int {
	return g.size
}

// Out returns the arcs leaving v. The slice must not be modified.
func (g *Digraph) Out(v int) []Arc {
	return g.out[v]
}

// Filter returns a digraph on the same vertices keeping only the arcs for
// which keep returns true.
func (g *Digraph) Filter(keep func(Arc) bool) *Digraph {
	sub := NewDigraph(len(g.out))
	for _, arcs := range g.out {
		for _, a := range arcs {
			if keep(a) {
				sub.AddArc(a.From, a.To, a.ID)
			}
		}
	}
	return sub
}

// Induced returns the subgraph induced by the given vertices, renumbered in
// the order given, together with the mapping back to the original numbering.
func (g *Digraph) Induced(vertices []int) (*Digraph, []int) {
	local := make(map[int]int, len(vertices))
	for i, v := range vertices {
		local[v] = i
	}
	sub := NewDigraph(len(vertices))
	for i, v := range vertices {
		for _, a := range g.out[v] {
			if j, ok := local[a.To]; ok {
				sub.AddArc(i, j, a.ID)
			}
		}
	}
	back := make([]int, len(vertices))
	copy(back, vertices)
	return sub, back
}
