package health

import (
	"context"
	"math"
	"os/exec"
	"time"

	"github.com/dd0wney/cluso-hbcn/pkg/lp"
)

// probeModel is a two-variable LP with optimum x = 3, y = 1.
func probeModel() *lp.Model {
	m := lp.NewModel("probe")
	x := m.AddVariable("x", 0, 3)
	y := m.AddVariable("y", 0, lp.Inf)
	m.AddConstraint("a", []lp.Term{{Var: x, Coef: 1}, {Var: y, Coef: 1}}, lp.LessEqual, 4)
	m.AddConstraint("b", []lp.Term{{Var: x, Coef: 1}, {Var: y, Coef: 3}}, lp.LessEqual, 6)
	m.SetObjective([]lp.Term{{Var: x, Coef: 3}, {Var: y, Coef: 2}}, true)
	return m
}

// BackendCheck solves a small probe model with b. A wrong answer or an
// error makes the back-end unhealthy; a slow answer degrades it.
func BackendCheck(name string, b lp.Backend, timeout time.Duration) CheckFunc {
	return func() Check {
		check := Check{
			Name:    "backend:" + name,
			Details: make(map[string]any),
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		start := time.Now()
		sol, err := b.Solve(ctx, probeModel())
		elapsed := time.Since(start)
		check.Details["latency_ms"] = float64(elapsed) / float64(time.Millisecond)

		switch {
		case err != nil:
			check.Status = StatusUnhealthy
			check.Message = err.Error()
		case sol == nil || sol.Status != lp.Optimal || math.Abs(sol.Objective-11) > 1e-6:
			check.Status = StatusUnhealthy
			check.Message = "Wrong answer to probe model"
		case elapsed > timeout/2:
			check.Status = StatusDegraded
			check.Message = "Slow back-end"
		default:
			check.Status = StatusHealthy
			check.Message = "Solved probe model"
		}

		return check
	}
}

// ExecutableCheck reports whether an external solver binary can be found.
// A missing binary only degrades the server: the chain falls back past it.
func ExecutableCheck(name, path string) CheckFunc {
	return func() Check {
		check := Check{Name: name}

		resolved, err := exec.LookPath(path)
		if err != nil {
			check.Status = StatusDegraded
			check.Message = err.Error()
			return check
		}
		check.Status = StatusHealthy
		check.Message = resolved
		return check
	}
}

// MemoryCheck creates a health check for memory usage
func MemoryCheck(getUsage func() (alloc, sys uint64)) CheckFunc {
	return func() Check {
		check := Check{
			Name:    "memory",
			Details: make(map[string]any),
		}

		alloc, sys := getUsage()

		check.Details["alloc_bytes"] = alloc
		check.Details["sys_bytes"] = sys

		usagePercent := 0.0
		if sys > 0 {
			usagePercent = float64(alloc) / float64(sys) * 100
		}

		if usagePercent > 90 {
			check.Status = StatusDegraded
			check.Message = "High memory usage"
		} else {
			check.Status = StatusHealthy
			check.Message = "Memory usage normal"
		}

		return check
	}
}
