// Package hbcntest provides structural graphs for tests of the packages that
// consume networks.
package hbcntest

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/dd0wney/cluso-hbcn/pkg/hbcn"
	"github.com/dd0wney/cluso-hbcn/pkg/structural"
)

// PortPair is the graph Port "a" [("b", delay)], Port "b" [].
const PortPair = `
	Port "a" [("b", 20)]
	Port "b" []
`

// Accumulator is a small pipeline with a register feeding back into a
// null register.
const Accumulator = `
	Port "a" [("result", 10)]
	Port "b" [("result", 20)]
	NullReg "result" [("acc", 30), ("output", 40)]
	DataReg "acc" [("result", 50)]
	Port "output" []
`

// Feedback has a register whose output loops back to its own input.
const Feedback = `
	Port "input" [("reg", 30)]
	DataReg "reg" [("output", 25), ("reg", 20)]
	Port "output" []
`

// Pipeline returns a chain of stages between Port "in" and Port "out". Stage
// i forks from NullReg "r<i>" into the next stage both directly and through
// NullReg "c<i>", so the number of elementary cycles doubles with every
// stage while the network grows linearly.
func Pipeline(stages int) string {
	var b strings.Builder
	b.WriteString(`Port "in" [("r0", 10)]` + "\n")
	for i := 0; i < stages; i++ {
		next := fmt.Sprintf("r%d", i+1)
		if i == stages-1 {
			next = "out"
		}
		fmt.Fprintf(&b, "NullReg \"r%d\" [(\"c%d\", %d), (%q, %d)]\n", i, i, 5+i%3, next, 12)
		fmt.Fprintf(&b, "NullReg \"c%d\" [(%q, %d)]\n", i, next, 7)
	}
	b.WriteString(`Port "out" []` + "\n")
	return b.String()
}

// MustParse parses a structural graph or fails the test.
func MustParse(t testing.TB, text string) *structural.Graph {
	t.Helper()
	g, err := structural.ParseString(text)
	if err != nil {
		t.Fatalf("Failed to parse structural graph: %v", err)
	}
	return g
}

// MustExpand parses and expands a structural graph or fails the test.
func MustExpand(t testing.TB, text string, forwardCompletion bool) *hbcn.Network {
	t.Helper()
	n, err := hbcn.Expand(MustParse(t, text), hbcn.ExpandOptions{ForwardCompletion: forwardCompletion})
	if err != nil {
		t.Fatalf("Failed to expand: %v", err)
	}
	return n
}

var kinds = []structural.Kind{
	structural.Port,
	structural.DataReg,
	structural.ControlReg,
	structural.NullReg,
	structural.UnsafeReg,
}

// RandomGraph builds a valid structural graph with up to maxNodes declared
// elements. Forward edges go from lower to higher declaration index; edges
// back to an earlier (or the same) element only leave data registers, so
// every structural cycle passes through one.
func RandomGraph(r *rand.Rand, maxNodes int) *structural.Graph {
	return RandomGraphNamed(r, maxNodes, func(i int) string {
		return fmt.Sprintf("n%d", i)
	})
}

// AwkwardName returns a unique node name for index i that carries the
// characters a text form has to escape.
func AwkwardName(r *rand.Rand, i int) string {
	suffixes := []string{"", "\n", "a\r\nb", "{x}", `\`, "\t", "\x00", "\x7f", "é", "port:"}
	return fmt.Sprintf("n%d%s", i, suffixes[r.Intn(len(suffixes))])
}

// RandomGraphNamed is RandomGraph with node i named name(i). Names must be
// unique and non-empty.
func RandomGraphNamed(r *rand.Rand, maxNodes int, name func(int) string) *structural.Graph {
	count := 1 + r.Intn(maxNodes)
	kind := make([]structural.Kind, count)
	for i := range kind {
		kind[i] = kinds[r.Intn(len(kinds))]
	}

	names := make([]string, count)
	for i := range names {
		names[i] = name(i)
	}

	b := structural.NewBuilder()
	for i := 0; i < count; i++ {
		var edges []structural.Edge
		for j := 0; j < count; j++ {
			forward := j > i && r.Float64() < 0.35
			feedback := j <= i && kind[i] == structural.DataReg && r.Float64() < 0.25
			if forward || feedback {
				edges = append(edges, structural.Edge{
					Target: names[j],
					Delay:  float64(r.Intn(40)),
				})
			}
		}
		if err := b.Add(kind[i], names[i], edges...); err != nil {
			panic(err)
		}
	}

	g, err := b.Build()
	if err != nil {
		panic(err)
	}
	return g
}
