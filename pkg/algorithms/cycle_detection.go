package algorithms

// Cycle is a closed walk given as its arcs in order; the last arc ends where
// the first one starts.
type Cycle []Arc

// Vertices returns the vertices visited by the cycle, starting with the
// source of the first arc.
func (c Cycle) Vertices() []int {
	out := make([]int, len(c))
	for i, a := range c {
		out[i] = a.From
	}
	return out
}

// FindCycle returns one cycle of g, or nil if g is acyclic.
//
// Algorithm: depth-first search with three colours:
//   - white: unvisited vertex
//   - grey: on the current DFS path
//   - black: finished, every descendant explored
//
// An arc into a grey vertex closes a cycle along the current path.
func FindCycle(g *Digraph) Cycle {
	const (
		white = iota
		grey
		black
	)

	n := g.Order()
	color := make([]int, n)
	// arcs on the current DFS path, parallel to the explicit stack
	var path []Arc

	type frame struct {
		v    int
		next int
	}

	for root := 0; root < n; root++ {
		if color[root] != white {
			continue
		}
		stack := []frame{{v: root}}
		color[root] = grey

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			arcs := g.Out(top.v)
			if top.next == len(arcs) {
				color[top.v] = black
				stack = stack[:len(stack)-1]
				if len(path) > 0 {
					path = path[:len(path)-1]
				}
				continue
			}

			a := arcs[top.next]
			top.next++

			switch color[a.To] {
			case white:
				color[a.To] = grey
				path = append(path, a)
				stack = append(stack, frame{v: a.To})
			case grey:
				return closeCycle(path, a)
			}
		}
	}
	return nil
}

// closeCycle extracts the cycle formed by the back arc from the DFS path.
func closeCycle(path []Arc, back Arc) Cycle {
	if back.From == back.To {
		return Cycle{back}
	}
	start := len(path) - 1
	for start >= 0 && path[start].From != back.To {
		start--
	}
	cycle := make(Cycle, 0, len(path)-start+1)
	cycle = append(cycle, path[start:]...)
	return append(cycle, back)
}

// CycleStats provides statistics about a set of cycles.
type CycleStats struct {
	TotalCycles   int
	ShortestCycle int
	LongestCycle  int
	AverageLength float64
	SelfLoops     int
}

// AnalyzeCycles computes statistics about the given cycles.
func AnalyzeCycles(cycles []Cycle) CycleStats {
	if len(cycles) == 0 {
		return CycleStats{}
	}

	stats := CycleStats{
		TotalCycles:   len(cycles),
		ShortestCycle: len(cycles[0]),
		LongestCycle:  len(cycles[0]),
	}

	total := 0
	for _, c := range cycles {
		length := len(c)
		total += length
		if length == 1 {
			stats.SelfLoops++
		}
		if length < stats.ShortestCycle {
			stats.ShortestCycle = length
		}
		if length > stats.LongestCycle {
			stats.LongestCycle = length
		}
	}
	stats.AverageLength = float64(total) / float64(len(cycles))
	return stats
}
