package constrain_test

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync/atomic"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-hbcn/pkg/analyse"
	"github.com/dd0wney/cluso-hbcn/pkg/constrain"
	"github.com/dd0wney/cluso-hbcn/pkg/hbcn"
	"github.com/dd0wney/cluso-hbcn/pkg/hbcn/hbcntest"
	"github.com/dd0wney/cluso-hbcn/pkg/lp"
	"github.com/dd0wney/cluso-hbcn/pkg/metrics"
)

// portPair places in expansion order.
var (
	fwdData   = "+{a} => +{b}"
	fwdSpacer = "-{a} => -{b}"
	ackData   = "+{b} => -{a}"
	ackNull   = "-{b} => +{a}"
)

func newEngine(t *testing.T, backends ...lp.Entry) (*constrain.Engine, *metrics.Registry) {
	t.Helper()
	if len(backends) == 0 {
		backends = []lp.Entry{{Name: lp.SimplexName, Backend: lp.NewSimplexBackend()}}
	}
	reg := metrics.NewRegistry()
	engine := constrain.NewEngine(&constrain.EngineConfig{
		Chain:    lp.NewChain(backends, &lp.ChainConfig{}),
		Analysis: analyse.Options{MaxCycles: -1},
		Metrics:  reg,
	})
	return engine, reg
}

func counting(calls *int32) lp.Entry {
	return lp.Entry{Name: "counting", Backend: lp.BackendFunc(func(ctx context.Context, m *lp.Model) (*lp.Solution, error) {
		atomic.AddInt32(calls, 1)
		return lp.NewSimplexBackend().Solve(ctx, m)
	})}
}

// delaysByPlace keys the delays of a result by the place text.
func delaysByPlace(res *constrain.Result) map[string]hbcn.DelayPair {
	out := make(map[string]hbcn.DelayPair)
	for i, p := range res.Source().Places() {
		out[p.Src.String()+" => "+p.Dst.String()] = res.Delays[i]
	}
	return out
}

func solve(t *testing.T, n *hbcn.Network, params constrain.Params) *constrain.Result {
	t.Helper()
	engine, _ := newEngine(t)
	res, err := engine.Constrain(context.Background(), n, params)
	require.NoError(t, err)
	require.Len(t, res.Delays, n.NumPlaces())
	return res
}

func TestProportionalPortPair(t *testing.T) {
	n := hbcntest.MustExpand(t, hbcntest.PortPair, false)
	res := solve(t, n, constrain.Params{CycleTime: 50, MinDelay: 1})

	d := delaysByPlace(res)
	assert.InDelta(t, 24, d[fwdData].Max, 1e-6)
	assert.InDelta(t, 24, d[fwdSpacer].Max, 1e-6)
	assert.InDelta(t, 1, d[ackData].Max, 1e-6)
	assert.InDelta(t, 1, d[ackNull].Max, 1e-6)
	for _, pair := range res.Delays {
		assert.False(t, pair.HasMin, "no margin, no minimum")
		assert.GreaterOrEqual(t, pair.Max, 1.0)
	}

	assert.Equal(t, constrain.Proportional, res.Algorithm)
	assert.Equal(t, lp.SimplexName, res.Backend)
	assert.InDelta(t, 1.2, res.Stretch, 1e-6)
	assert.Zero(t, res.Period())
	require.NotNil(t, res.Critical)
	assert.Equal(t, 40.0, res.Critical.Ratio())
	require.NotNil(t, res.Schedule)
	assert.Equal(t, 50.0, res.Schedule.CycleTime)
}

func TestProportionalUsesSpareCycleTime(t *testing.T) {
	n := hbcntest.MustExpand(t, hbcntest.PortPair, false)
	res := solve(t, n, constrain.Params{CycleTime: 100, MinDelay: 1})

	assert.InDelta(t, 49, delaysByPlace(res)[fwdData].Max, 1e-6)
}

func TestProportionalAtCriticalRatio(t *testing.T) {
	n := hbcntest.MustExpand(t, hbcntest.PortPair, false)

	res := solve(t, n, constrain.Params{CycleTime: 40})
	d := delaysByPlace(res)
	assert.InDelta(t, 20, d[fwdData].Max, 1e-6)
	assert.InDelta(t, 0, d[ackNull].Max, 1e-6)

	// the minimal delay on the backward places no longer fits
	engine, _ := newEngine(t)
	_, err := engine.Constrain(context.Background(), n, constrain.Params{CycleTime: 40, MinDelay: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, analyse.ErrInfeasible))

	var ierr *constrain.InfeasibleError
	require.True(t, errors.As(err, &ierr))
	assert.Equal(t, 40.0, ierr.Ratio)
	assert.Contains(t, err.Error(), "no proportional delay assignment")
}

func TestProportionalForwardMargin(t *testing.T) {
	n := hbcntest.MustExpand(t, hbcntest.PortPair, false)
	res := solve(t, n, constrain.Params{CycleTime: 50, MinDelay: 1, ForwardMargin: constrain.Margin(20)})

	d := delaysByPlace(res)
	require.True(t, d[fwdData].HasMin)
	assert.InDelta(t, 19.2, d[fwdData].Min, 1e-6)
	assert.InDelta(t, 24, d[fwdData].Max, 1e-6)
	assert.False(t, d[ackData].HasMin, "backward places follow the backward margin")
}

func TestMarginBoundaries(t *testing.T) {
	n := hbcntest.MustExpand(t, hbcntest.Accumulator, true)
	ratio := criticalRatio(t, n)

	for _, algorithm := range []constrain.Algorithm{constrain.Proportional, constrain.Pseudoclock} {
		t.Run(string(algorithm), func(t *testing.T) {
			res := solve(t, n, constrain.Params{
				CycleTime:      ratio*2 + 20,
				MinDelay:       1,
				ForwardMargin:  constrain.Margin(0),
				BackwardMargin: constrain.Margin(99),
				Algorithm:      algorithm,
			})

			for i, p := range n.Places() {
				d := res.Delays[i]
				if p.Internal {
					assert.False(t, d.HasMin, "internal place %d", i)
					continue
				}
				require.True(t, d.HasMin, "place %d", i)
				assert.GreaterOrEqual(t, d.Min, 1.0, "margin 99 never goes below the floor")
				assert.LessOrEqual(t, d.Min, d.Max)
				if !p.Backward() {
					assert.InDelta(t, d.Max, d.Min, 1e-6, "margin 0 pins forward place %d", i)
				}
			}
		})
	}
}

func TestPseudoclockPortPair(t *testing.T) {
	n := hbcntest.MustExpand(t, hbcntest.PortPair, false)
	res := solve(t, n, constrain.Params{CycleTime: 50, MinDelay: 1, Algorithm: constrain.Pseudoclock})

	d := delaysByPlace(res)
	assert.InDelta(t, 20, d[fwdData].Max, 1e-6)
	assert.InDelta(t, 20, d[fwdSpacer].Max, 1e-6)
	assert.InDelta(t, 5, d[ackData].Max, 1e-6)
	assert.InDelta(t, 5, d[ackNull].Max, 1e-6)
	assert.InDelta(t, 5, res.Period(), 1e-6)
}

func TestPseudoclockMargins(t *testing.T) {
	n := hbcntest.MustExpand(t, hbcntest.PortPair, false)
	res := solve(t, n, constrain.Params{
		CycleTime:      50,
		MinDelay:       1,
		ForwardMargin:  constrain.Margin(20),
		BackwardMargin: constrain.Margin(20),
		Algorithm:      constrain.Pseudoclock,
	})

	d := delaysByPlace(res)
	assert.InDelta(t, 16, d[fwdData].Min, 1e-6)
	assert.InDelta(t, 16, d[fwdSpacer].Min, 1e-6)
	assert.InDelta(t, 4, d[ackData].Min, 1e-6)
	assert.InDelta(t, 4, d[ackNull].Min, 1e-6)
}

func TestCycleTimeBelowCriticalRatio(t *testing.T) {
	n := hbcntest.MustExpand(t, hbcntest.PortPair, false)

	for _, algorithm := range []constrain.Algorithm{constrain.Pseudoclock, constrain.Proportional} {
		t.Run(string(algorithm), func(t *testing.T) {
			var calls int32
			engine, reg := newEngine(t, counting(&calls))
			_, err := engine.Constrain(context.Background(), n, constrain.Params{
				CycleTime: 10, MinDelay: 1, Algorithm: algorithm,
			})
			require.Error(t, err)
			assert.True(t, errors.Is(err, analyse.ErrInfeasible))

			var ierr *constrain.InfeasibleError
			require.True(t, errors.As(err, &ierr))
			assert.Equal(t, 40.0, ierr.Ratio)
			assert.Equal(t, 10.0, ierr.CycleTime)
			require.NotNil(t, ierr.Critical)
			assert.Zero(t, atomic.LoadInt32(&calls), "rejected before any solve")

			assert.Equal(t, 1.0, solveCount(t, reg, string(algorithm), metrics.StatusInfeasible))
		})
	}
}

func TestIsolatedPortSolvesTrivially(t *testing.T) {
	n := hbcntest.MustExpand(t, `Port "lonely" []`, false)

	var calls int32
	engine, _ := newEngine(t, counting(&calls))
	res, err := engine.Constrain(context.Background(), n, constrain.Params{CycleTime: 1})
	require.NoError(t, err)

	assert.Empty(t, res.Delays)
	assert.Nil(t, res.Critical)
	assert.Empty(t, res.PathConstraints())
	assert.Zero(t, atomic.LoadInt32(&calls))
	assert.Equal(t, 0, res.Network().NumPlaces())
}

func TestInvalidParameters(t *testing.T) {
	n := hbcntest.MustExpand(t, hbcntest.PortPair, false)

	tests := []struct {
		name   string
		params constrain.Params
		field  string
	}{
		{"zero cycle time", constrain.Params{CycleTime: 0}, "CycleTime"},
		{"negative cycle time", constrain.Params{CycleTime: -5}, "CycleTime"},
		{"NaN cycle time", constrain.Params{CycleTime: math.NaN()}, "CycleTime"},
		{"negative minimal delay", constrain.Params{CycleTime: 50, MinDelay: -1}, "MinDelay"},
		{"forward margin of 100", constrain.Params{CycleTime: 50, ForwardMargin: constrain.Margin(100)}, "ForwardMargin"},
		{"negative backward margin", constrain.Params{CycleTime: 50, BackwardMargin: constrain.Margin(-1)}, "BackwardMargin"},
		{"unknown algorithm", constrain.Params{CycleTime: 50, Algorithm: "clocked"}, "Algorithm"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			engine, _ := newEngine(t, counting(&calls))
			_, err := engine.Constrain(context.Background(), n, tt.params)
			require.Error(t, err)
			assert.True(t, errors.Is(err, constrain.ErrInvalidParameter))

			var perr *constrain.ParameterError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, tt.field, perr.Field)
			assert.Zero(t, atomic.LoadInt32(&calls))
		})
	}
}

func TestFeedbackLoop(t *testing.T) {
	n := hbcntest.MustExpand(t, hbcntest.Feedback, true)
	ratio := criticalRatio(t, n)
	cycles, err := analyse.EnumerateCycles(n, analyse.Options{MaxCycles: -1})
	require.NoError(t, err)

	for _, algorithm := range []constrain.Algorithm{constrain.Proportional, constrain.Pseudoclock} {
		t.Run(string(algorithm), func(t *testing.T) {
			T := ratio*1.5 + 10
			res := solve(t, n, constrain.Params{CycleTime: T, Algorithm: algorithm})
			require.NotNil(t, res.Critical)
			assert.GreaterOrEqual(t, res.Critical.Tokens, 1)

			for _, c := range cycles {
				sum := 0.0
				for _, p := range c.Places() {
					sum += res.Delays[p].Max
				}
				assert.LessOrEqual(t, sum, T*float64(c.Tokens)+1e-6, "cycle %s", c)
			}
			for i, p := range n.Places() {
				assert.GreaterOrEqual(t, res.Slack(i), -1e-6, "place %d", i)
				if algorithm == constrain.Pseudoclock {
					assert.GreaterOrEqual(t, res.Delays[i].Max, p.Weight()-1e-9)
				}
			}
		})
	}
}

func TestLongPipelineScales(t *testing.T) {
	// 18 nodes, far beyond the default cycle enumeration limit
	n := hbcntest.MustExpand(t, hbcntest.Pipeline(8), false)

	_, err := analyse.FindCriticalCycle(n, analyse.Options{})
	require.True(t, errors.Is(err, analyse.ErrCycleLimit), "the network must outgrow enumeration")

	c, err := analyse.MaxRatioCycle(n, analyse.Options{})
	require.NoError(t, err)
	require.NotNil(t, c)
	ratio := c.Ratio()

	for _, algorithm := range []constrain.Algorithm{constrain.Proportional, constrain.Pseudoclock} {
		t.Run(string(algorithm), func(t *testing.T) {
			engine, _ := newEngine(t)
			T := ratio*1.25 + 5
			res, err := engine.Constrain(context.Background(), n, constrain.Params{
				CycleTime: T, MinDelay: 1, Algorithm: algorithm,
			})
			require.NoError(t, err)
			require.Len(t, res.Delays, n.NumPlaces())
			require.NotNil(t, res.Critical)
			assert.InDelta(t, ratio, res.Critical.Ratio(), 1e-9)

			// the solved delays still meet the cycle time on every cycle
			_, err = analyse.ArrivalTimes(res.Network(), T*(1+1e-6), analyse.Options{})
			assert.NoError(t, err)
			for i := range res.Delays {
				assert.GreaterOrEqual(t, res.Slack(i), -1e-6, "place %d", i)
			}

			_, err = engine.Constrain(context.Background(), n, constrain.Params{
				CycleTime: ratio * 0.9, Algorithm: algorithm,
			})
			assert.True(t, errors.Is(err, analyse.ErrInfeasible))
		})
	}
}

func TestFallsBackToNextBackend(t *testing.T) {
	n := hbcntest.MustExpand(t, hbcntest.PortPair, false)
	broken := lp.Entry{Name: "licensed", Backend: lp.BackendFunc(func(context.Context, *lp.Model) (*lp.Solution, error) {
		return nil, errors.New("licence server unreachable")
	})}

	engine, reg := newEngine(t, broken, lp.Entry{Name: lp.GonumName, Backend: lp.NewGonumBackend()})
	res, err := engine.Constrain(context.Background(), n, constrain.Params{CycleTime: 50, MinDelay: 1})
	require.NoError(t, err)
	assert.Equal(t, lp.GonumName, res.Backend)
	assert.InDelta(t, 24, delaysByPlace(res)[fwdData].Max, 1e-6)
	assert.Equal(t, 1.0, solveCount(t, reg, "proportional", metrics.StatusOK))

	only, reg := newEngine(t, broken)
	_, err = only.Constrain(context.Background(), n, constrain.Params{CycleTime: 50, MinDelay: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, lp.ErrAllBackendsFailed))

	var all *lp.AllBackendsFailedError
	require.True(t, errors.As(err, &all))
	require.Len(t, all.Attempts, 1)
	assert.Equal(t, "licensed", all.Attempts[0].Backend)
	assert.Equal(t, 1.0, solveCount(t, reg, "proportional", metrics.StatusFailed))
}

func TestPathConstraints(t *testing.T) {
	n := hbcntest.MustExpand(t, hbcntest.PortPair, false)
	res := solve(t, n, constrain.Params{CycleTime: 50, MinDelay: 1, ForwardMargin: constrain.Margin(20)})

	paths := res.PathConstraints()
	require.Len(t, paths, 2)

	assert.Equal(t, "a", paths[0].From)
	assert.Equal(t, "b", paths[0].To)
	assert.Equal(t, []int{0, 1}, paths[0].Places)
	assert.InDelta(t, 24, paths[0].Delay.Max, 1e-6)
	assert.True(t, paths[0].Delay.HasMin)
	assert.InDelta(t, 19.2, paths[0].Delay.Min, 1e-6)

	assert.Equal(t, "b", paths[1].From)
	assert.Equal(t, "a", paths[1].To)
	assert.False(t, paths[1].Delay.HasMin)
}

func TestSolvedNetworkRoundTrips(t *testing.T) {
	n := hbcntest.MustExpand(t, hbcntest.PortPair, false)
	res := solve(t, n, constrain.Params{CycleTime: 50, MinDelay: 1, ForwardMargin: constrain.Margin(20)})

	text, err := res.Network().MarshalText()
	require.NoError(t, err)
	assert.Contains(t, string(text), "+{a} => +{b} : (19.2,24)\n")

	back, err := hbcn.ParseString(string(text))
	require.NoError(t, err)
	for i := 0; i < back.NumPlaces(); i++ {
		assert.Equal(t, res.Delays[i], back.Place(i).Delay)
	}
	// the source network keeps its weights
	assert.Equal(t, 20.0, res.Source().Place(0).Weight())
}

func criticalRatio(t *testing.T, n *hbcn.Network) float64 {
	t.Helper()
	c, err := analyse.FindCriticalCycle(n, analyse.Options{MaxCycles: -1})
	require.NoError(t, err)
	require.NotNil(t, c)
	return c.Ratio()
}

func solveCount(t *testing.T, reg *metrics.Registry, algorithm, status string) float64 {
	t.Helper()
	var metric dto.Metric
	require.NoError(t, reg.SolvesTotal.WithLabelValues(algorithm, status).Write(&metric))
	return metric.Counter.GetValue()
}

func TestConstraintProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)
	engine, _ := newEngine(t)
	algorithms := []constrain.Algorithm{constrain.Proportional, constrain.Pseudoclock}

	network := func(seed int64, fc bool) (*hbcn.Network, float64, bool) {
		g := hbcntest.RandomGraph(rand.New(rand.NewSource(seed)), 3)
		n, err := hbcn.Expand(g, hbcn.ExpandOptions{ForwardCompletion: fc})
		if err != nil {
			return nil, 0, false
		}
		c, err := analyse.FindCriticalCycle(n, analyse.Options{MaxCycles: -1})
		if err != nil || c == nil {
			return n, 0, err == nil
		}
		return n, c.Ratio(), true
	}

	properties.Property("shorter cycle times never raise a maximum", prop.ForAll(
		func(seed int64, fc bool, minDelay int) bool {
			n, r, ok := network(seed, fc)
			if !ok {
				return false
			}
			if r == 0 {
				return true
			}
			for _, algorithm := range algorithms {
				var prev []hbcn.DelayPair
				for _, T := range []float64{r*3 + 20, r*2 + 10, r*1.5 + 5, r*1.05 + 1} {
					res, err := engine.Constrain(context.Background(), n, constrain.Params{
						CycleTime: T, MinDelay: float64(minDelay), Algorithm: algorithm,
					})
					if errors.Is(err, analyse.ErrInfeasible) {
						break
					}
					if err != nil {
						return false
					}
					for i, d := range res.Delays {
						if d.Max < float64(minDelay)-1e-9 {
							return false
						}
						if prev != nil && d.Max > prev[i].Max+1e-6 {
							return false
						}
					}
					prev = res.Delays
				}
			}
			return true
		},
		gen.Int64(),
		gen.Bool(),
		gen.IntRange(0, 2),
	))

	properties.Property("below the critical ratio is infeasible", prop.ForAll(
		func(seed int64, fc bool) bool {
			n, r, ok := network(seed, fc)
			if !ok {
				return false
			}
			if r == 0 {
				return true
			}
			for _, algorithm := range algorithms {
				_, err := engine.Constrain(context.Background(), n, constrain.Params{
					CycleTime: r * 0.9, Algorithm: algorithm,
				})
				if !errors.Is(err, analyse.ErrInfeasible) {
					return false
				}
			}
			return true
		},
		gen.Int64(),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
