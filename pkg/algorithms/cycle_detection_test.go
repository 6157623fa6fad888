package algorithms

import "testing"

// assertClosed checks that consecutive arcs chain and the walk returns to its start.
func assertClosed(t *testing.T, c Cycle) {
	t.Helper()
	if len(c) == 0 {
		t.Fatal("Empty cycle")
	}
	for i, a := range c {
		next := c[(i+1)%len(c)]
		if a.To != next.From {
			t.Fatalf("Cycle %v is broken between arcs %d and %d", c, i, (i+1)%len(c))
		}
	}
}

func TestFindCycle_Acyclic(t *testing.T) {
	g := buildDigraph(t, 4, [2]int{0, 1}, [2]int{1, 2}, [2]int{0, 3}, [2]int{3, 2})
	if c := FindCycle(g); c != nil {
		t.Errorf("Expected no cycle, got %v", c)
	}
}

func TestFindCycle_SelfLoop(t *testing.T) {
	g := buildDigraph(t, 2, [2]int{0, 1}, [2]int{1, 1})
	c := FindCycle(g)
	if len(c) != 1 || c[0].ID != 1 {
		t.Fatalf("Expected the self-loop, got %v", c)
	}
}

func TestFindCycle_Tail(t *testing.T) {
	// tail 0 -> 1 leading into the cycle 1 -> 2 -> 3 -> 1
	g := buildDigraph(t, 4, [2]int{0, 1}, [2]int{1, 2}, [2]int{2, 3}, [2]int{3, 1})
	c := FindCycle(g)
	assertClosed(t, c)
	if len(c) != 3 {
		t.Errorf("Expected a 3-arc cycle, got %v", c)
	}
	for _, v := range c.Vertices() {
		if v == 0 {
			t.Errorf("Tail vertex must not be part of the cycle: %v", c)
		}
	}
}

func TestAnalyzeCycles(t *testing.T) {
	cycles := []Cycle{
		{{From: 0, To: 0}},
		{{From: 0, To: 1}, {From: 1, To: 0}},
		{{From: 0, To: 1}, {From: 1, To: 2}, {From: 2, To: 0}},
	}
	stats := AnalyzeCycles(cycles)

	if stats.TotalCycles != 3 {
		t.Errorf("TotalCycles = %d, want 3", stats.TotalCycles)
	}
	if stats.ShortestCycle != 1 || stats.LongestCycle != 3 {
		t.Errorf("Shortest/Longest = %d/%d, want 1/3", stats.ShortestCycle, stats.LongestCycle)
	}
	if stats.SelfLoops != 1 {
		t.Errorf("SelfLoops = %d, want 1", stats.SelfLoops)
	}
	if stats.AverageLength != 2 {
		t.Errorf("AverageLength = %v, want 2", stats.AverageLength)
	}

	if empty := AnalyzeCycles(nil); empty != (CycleStats{}) {
		t.Errorf("AnalyzeCycles(nil) = %+v", empty)
	}
}
