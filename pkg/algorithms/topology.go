package algorithms

import "errors"

// ErrNotDAG is returned when an ordering is requested for a cyclic digraph.
var ErrNotDAG = errors.New("graph contains cycles, cannot perform topological sort")

// IsDAG checks if the digraph contains no cycles.
func IsDAG(g *Digraph) bool {
	_, err := TopologicalSort(g)
	return err == nil
}

// TopologicalSort returns the vertices in topological order using Kahn's algorithm.
// The ordering ensures that for every arc u->v, u comes before v. Ties are
// broken by vertex number so the order is deterministic.
func TopologicalSort(g *Digraph) ([]int, error) {
	n := g.Order()
	inDegree := make([]int, n)
	for u := 0; u < n; u++ {
		for _, a := range g.Out(u) {
			inDegree[a.To]++
		}
	}

	queue := make([]int, 0, n)
	for v := 0; v < n; v++ {
		if inDegree[v] == 0 {
			queue = append(queue, v)
		}
	}

	sorted := make([]int, 0, n)
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		sorted = append(sorted, current)

		for _, a := range g.Out(current) {
			inDegree[a.To]--
			if inDegree[a.To] == 0 {
				queue = append(queue, a.To)
			}
		}
	}

	// vertices left with a positive in-degree sit on or behind a cycle
	if len(sorted) != n {
		return nil, ErrNotDAG
	}
	return sorted, nil
}
