package analyse_test

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-hbcn/pkg/analyse"
	"github.com/dd0wney/cluso-hbcn/pkg/hbcn"
	"github.com/dd0wney/cluso-hbcn/pkg/hbcn/hbcntest"
	"github.com/dd0wney/cluso-hbcn/pkg/metrics"
)

func mustNetwork(t *testing.T, text string) *hbcn.Network {
	t.Helper()
	n, err := hbcn.ParseString(text)
	require.NoError(t, err)
	return n
}

func TestCriticalCyclePortPair(t *testing.T) {
	n := hbcntest.MustExpand(t, hbcntest.PortPair, false)

	c, err := analyse.FindCriticalCycle(n, analyse.Options{})
	require.NoError(t, err)
	require.NotNil(t, c)

	assert.Equal(t, 4, c.Len())
	assert.Equal(t, 1, c.Tokens)
	assert.Equal(t, 40.0, c.Weight)
	assert.Equal(t, 40.0, c.Ratio())
	assert.Equal(t, hbcn.DataOf("a"), c.Transitions[0], "rotated to the least transition")
}

func TestCriticalCycleIsolatedPort(t *testing.T) {
	n := hbcntest.MustExpand(t, `Port "lonely" []`, false)

	c, err := analyse.FindCriticalCycle(n, analyse.Options{})
	require.NoError(t, err)
	assert.Nil(t, c)

	s, err := analyse.ArrivalTimes(n, 1, analyse.Options{})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0}, s.Times)
}

func TestCriticalCycleFeedback(t *testing.T) {
	for _, fc := range []bool{false, true} {
		n := hbcntest.MustExpand(t, hbcntest.Feedback, fc)

		c, err := analyse.FindCriticalCycle(n, analyse.Options{})
		require.NoError(t, err)
		require.NotNil(t, c)
		assert.GreaterOrEqual(t, c.Tokens, 1)
		assert.Greater(t, c.Ratio(), 0.0)
	}
}

func TestTieBreak(t *testing.T) {
	// three cycles of ratio 10: x/y and a/b with two places, c/d/e with three
	n := mustNetwork(t, `
  +{x} => +{y} : 5
* +{y} => +{x} : 5
  +{c} => +{d} : 3
  +{d} => +{e} : 3
* +{e} => +{c} : 4
* +{b} => +{a} : 5
  +{a} => +{b} : 5
`)

	c, err := analyse.FindCriticalCycle(n, analyse.Options{})
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, []hbcn.Transition{hbcn.DataOf("a"), hbcn.DataOf("b")}, c.Transitions)
	assert.Equal(t, []int{6, 5}, c.Places())

	cycles, err := analyse.EnumerateCycles(n, analyse.Options{})
	require.NoError(t, err)
	require.Len(t, cycles, 3)
	analyse.Rank(cycles)
	assert.Equal(t, "a", cycles[0].Transitions[0].Node)
	assert.Equal(t, "x", cycles[1].Transitions[0].Node)
	assert.Equal(t, "c", cycles[2].Transitions[0].Node)

	// depth analysis prefers the longest cycle
	depth, err := analyse.FindCriticalCycle(n, analyse.Options{Depth: true})
	require.NoError(t, err)
	assert.Equal(t, 3.0, depth.Ratio())
	assert.Equal(t, hbcn.DataOf("c"), depth.Transitions[0])
}

func TestTieBreakParallelPlaces(t *testing.T) {
	n := mustNetwork(t, `
* +{b} => +{a} : 3
  +{a} => +{b} : 3
* +{b} => +{a} : 3
  +{a} => +{b} : 3
`)
	c, err := analyse.FindCriticalCycle(n, analyse.Options{})
	require.NoError(t, err)
	assert.Equal(t, 6.0, c.Ratio())
	assert.Equal(t, []int{1, 0}, c.Places())
}

func TestMalformedCycle(t *testing.T) {
	n := mustNetwork(t, "  +{a} => +{b} : 1\n  +{b} => +{a} : 1\n")

	_, err := analyse.FindCriticalCycle(n, analyse.Options{})
	assert.True(t, errors.Is(err, analyse.ErrMalformed))

	_, err = analyse.MaxRatioCycle(n, analyse.Options{})
	assert.True(t, errors.Is(err, analyse.ErrMalformed))

	_, err = analyse.ArrivalTimes(n, 100, analyse.Options{})
	assert.True(t, errors.Is(err, analyse.ErrMalformed))
	assert.False(t, errors.Is(err, analyse.ErrInfeasible))

	_, err = analyse.Analyse(n, analyse.Options{})
	assert.True(t, errors.Is(err, analyse.ErrMalformed))
}

func TestMaxRatioCycle(t *testing.T) {
	n := hbcntest.MustExpand(t, hbcntest.PortPair, false)
	c, err := analyse.MaxRatioCycle(n, analyse.Options{})
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, 40.0, c.Ratio())
	assert.Equal(t, hbcn.DataOf("a"), c.Transitions[0])

	acyclic := mustNetwork(t, "* +{a} => +{b} : 3\n  +{b} => +{c} : 4\n")
	c, err = analyse.MaxRatioCycle(acyclic, analyse.Options{})
	require.NoError(t, err)
	assert.Nil(t, c)

	tie := mustNetwork(t, `
  +{x} => +{y} : 5
* +{y} => +{x} : 5
  +{c} => +{d} : 3
  +{d} => +{e} : 3
* +{e} => +{c} : 4
`)
	c, err = analyse.MaxRatioCycle(tie, analyse.Options{})
	require.NoError(t, err)
	assert.Equal(t, 10.0, c.Ratio())

	c, err = analyse.MaxRatioCycle(tie, analyse.Options{Depth: true})
	require.NoError(t, err)
	assert.Equal(t, 3.0, c.Ratio())
}

func TestMaxRatioCycleIgnoresCycleLimit(t *testing.T) {
	n := hbcntest.MustExpand(t, hbcntest.Pipeline(8), false)

	_, err := analyse.FindCriticalCycle(n, analyse.Options{MaxCycles: 100})
	require.True(t, errors.Is(err, analyse.ErrCycleLimit))

	c, err := analyse.MaxRatioCycle(n, analyse.Options{MaxCycles: 100})
	require.NoError(t, err)
	require.NotNil(t, c)

	_, err = analyse.ArrivalTimes(n, c.Ratio(), analyse.Options{})
	assert.NoError(t, err)
	_, err = analyse.ArrivalTimes(n, c.Ratio()*0.99, analyse.Options{})
	assert.True(t, errors.Is(err, analyse.ErrInfeasible))
}

func TestDepthRanksByLength(t *testing.T) {
	for _, tt := range []struct {
		name string
		text string
		fc   bool
	}{
		{"accumulator", hbcntest.Accumulator, false},
		{"feedback", hbcntest.Feedback, true},
	} {
		t.Run(tt.name, func(t *testing.T) {
			n := hbcntest.MustExpand(t, tt.text, tt.fc)

			cycles, err := analyse.EnumerateCycles(n, analyse.Options{Depth: true, MaxCycles: -1})
			require.NoError(t, err)
			longest, ratio := 0, 0.0
			for _, c := range cycles {
				if c.Len() > longest {
					longest = c.Len()
				}
				if c.Ratio() > ratio {
					ratio = c.Ratio()
				}
			}

			r, err := analyse.Analyse(n, analyse.Options{Depth: true, MaxCycles: -1, TopCycles: -1})
			require.NoError(t, err)
			require.NotNil(t, r.Critical)
			assert.Equal(t, longest, r.Critical.Len())
			assert.Equal(t, ratio, r.CycleTime, "cycle time stays the unit-weight ratio")
			for i := 1; i < len(r.Cycles); i++ {
				assert.LessOrEqual(t, r.Cycles[i].Len(), r.Cycles[i-1].Len())
			}

			c, err := analyse.FindCriticalCycle(n, analyse.Options{Depth: true, MaxCycles: -1})
			require.NoError(t, err)
			assert.Equal(t, longest, c.Len())
		})
	}

	n := hbcntest.MustExpand(t, hbcntest.Accumulator, false)
	r, err := analyse.Analyse(n, analyse.Options{Depth: true})
	require.NoError(t, err)
	assert.Equal(t, 8, r.Critical.Len())
	assert.Equal(t, 4.0, r.CycleTime)
}

func TestCycleLimit(t *testing.T) {
	n := hbcntest.MustExpand(t, hbcntest.Accumulator, false)

	_, err := analyse.FindCriticalCycle(n, analyse.Options{MaxCycles: 1})
	assert.True(t, errors.Is(err, analyse.ErrCycleLimit))

	_, err = analyse.FindCriticalCycle(n, analyse.Options{MaxCycles: -1})
	assert.NoError(t, err)
}

func TestArrivalTimesPortPair(t *testing.T) {
	n := hbcntest.MustExpand(t, hbcntest.PortPair, false)

	s, err := analyse.ArrivalTimes(n, 50, analyse.Options{})
	require.NoError(t, err)

	want := map[hbcn.Transition]float64{
		hbcn.DataOf("a"):   0,
		hbcn.DataOf("b"):   20,
		hbcn.SpacerOf("a"): 20,
		hbcn.SpacerOf("b"): 40,
	}
	for tr, at := range want {
		got, ok := s.Time(tr)
		require.True(t, ok)
		assert.Equal(t, at, got, "arrival of %s", tr)
	}

	for i, p := range n.Places() {
		assert.GreaterOrEqual(t, s.Slack[i], 0.0)
		if p.Marked {
			assert.Equal(t, 10.0, s.Slack[i], "the returning token waits out the period")
		}
	}

	_, err = analyse.ArrivalTimes(n, 10, analyse.Options{})
	assert.True(t, errors.Is(err, analyse.ErrInfeasible))

	_, err = analyse.ArrivalTimes(n, 40, analyse.Options{})
	assert.NoError(t, err, "the critical ratio itself is feasible")
}

func TestAnalyseReport(t *testing.T) {
	n := hbcntest.MustExpand(t, hbcntest.Accumulator, false)
	reg := metrics.NewRegistry()

	r, err := analyse.Analyse(n, analyse.Options{TopCycles: 3, MaxCycles: -1, Metrics: reg})
	require.NoError(t, err)
	require.NotNil(t, r.Critical)

	assert.Equal(t, r.Critical.Ratio(), r.CycleTime)
	assert.LessOrEqual(t, len(r.Cycles), 3)
	assert.Equal(t, r.TotalCycles, r.Stats.TotalCycles)
	assert.False(t, r.Acyclic)
	assert.Same(t, r.Critical, r.Cycles[0])
	for i := 1; i < len(r.Cycles); i++ {
		assert.False(t, analyse.Less(r.Cycles[i], r.Cycles[i-1]), "cycles must be ranked")
	}

	// the schedule at the critical ratio leaves no slack on the critical cycle
	for _, p := range r.Critical.Places() {
		assert.InDelta(t, 0, r.Schedule.Slack[p], 1e-6)
	}

	assert.GreaterOrEqual(t, r.Regions.Cyclic, 1)
	assert.GreaterOrEqual(t, r.Regions.Largest, r.Critical.Len())
}

func TestAnalyseAcyclic(t *testing.T) {
	n := mustNetwork(t, "* +{a} => +{b} : 3\n  +{b} => +{c} : 4\n")

	r, err := analyse.Analyse(n, analyse.Options{})
	require.NoError(t, err)
	assert.True(t, r.Acyclic)
	assert.Zero(t, r.TotalCycles)
	assert.Nil(t, r.Critical)
	assert.Zero(t, r.CycleTime)
	assert.Equal(t, 3, r.Regions.Singletons)
	assert.Equal(t, 2, r.Regions.Links)

	at, ok := r.Schedule.Time(hbcn.DataOf("c"))
	require.True(t, ok)
	assert.Equal(t, 7.0, at)
}

func TestCriticalRatioBoundsArrivalTimes(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("feasible at or above the ratio, infeasible below", prop.ForAll(
		func(seed int64, fc bool) bool {
			g := hbcntest.RandomGraph(rand.New(rand.NewSource(seed)), 4)
			n, err := hbcn.Expand(g, hbcn.ExpandOptions{ForwardCompletion: fc})
			if err != nil {
				return false
			}
			c, err := analyse.FindCriticalCycle(n, analyse.Options{MaxCycles: -1})
			if err != nil {
				return false
			}
			if c == nil {
				_, err := analyse.ArrivalTimes(n, 1, analyse.Options{})
				return err == nil
			}
			if c.Tokens < 1 {
				return false
			}
			r := c.Ratio()
			for _, ct := range []float64{r, r * 1.5, r + 10} {
				if _, err := analyse.ArrivalTimes(n, ct, analyse.Options{}); err != nil {
					return false
				}
			}
			if r > 0 {
				_, err := analyse.ArrivalTimes(n, r*0.9, analyse.Options{})
				if !errors.Is(err, analyse.ErrInfeasible) {
					return false
				}
			}
			return true
		},
		gen.Int64(),
		gen.Bool(),
	))

	properties.Property("ratio search matches enumeration", prop.ForAll(
		func(seed int64, depth bool) bool {
			g := hbcntest.RandomGraph(rand.New(rand.NewSource(seed)), 5)
			n, err := hbcn.Expand(g, hbcn.ExpandOptions{})
			if err != nil {
				return false
			}
			cycles, err := analyse.EnumerateCycles(n, analyse.Options{Depth: depth, MaxCycles: -1})
			if err != nil {
				return false
			}
			c, err := analyse.MaxRatioCycle(n, analyse.Options{Depth: depth})
			if err != nil {
				return false
			}
			if len(cycles) == 0 {
				return c == nil
			}
			want := 0.0
			for _, e := range cycles {
				want = math.Max(want, e.Ratio())
			}
			return c != nil && math.Abs(c.Ratio()-want) <= 1e-9*math.Max(1, want)
		},
		gen.Int64(),
		gen.Bool(),
	))

	properties.Property("critical cycle heads the ranking", prop.ForAll(
		func(seed int64) bool {
			g := hbcntest.RandomGraph(rand.New(rand.NewSource(seed)), 4)
			n, err := hbcn.Expand(g, hbcn.ExpandOptions{})
			if err != nil {
				return false
			}
			c, err := analyse.FindCriticalCycle(n, analyse.Options{MaxCycles: -1})
			if err != nil {
				return false
			}
			r, err := analyse.Analyse(n, analyse.Options{MaxCycles: -1})
			if err != nil {
				return false
			}
			if c == nil {
				return r.Critical == nil
			}
			return r.Critical != nil && r.Critical.String() == c.String()
		},
		gen.Int64(),
	))

	properties.TestingRun(t)
}
