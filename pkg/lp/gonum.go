package lp

import (
	"context"
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
	gonumlp "gonum.org/v1/gonum/optimize/convex/lp"
)

// GonumBackend solves models with gonum's simplex. It is not interruptible;
// the chain's timeout abandons it instead.
type GonumBackend struct {
	Tolerance float64
}

// NewGonumBackend returns a gonum back-end with default settings.
func NewGonumBackend() *GonumBackend {
	return &GonumBackend{Tolerance: DefaultTolerance}
}

// Solve implements Backend.
func (g *GonumBackend) Solve(ctx context.Context, m *Model) (*Solution, error) {
	if err := m.Check(); err != nil {
		return nil, err
	}
	sf := newStandardForm(m)
	if sf.decided {
		return decided(sf, m), nil
	}

	rows, cols := len(sf.A), sf.cols()
	if rows > cols {
		return nil, fmt.Errorf("gonum: %d rows exceed %d columns", rows, cols)
	}
	data := make([]float64, 0, rows*cols)
	for _, row := range sf.A {
		data = append(data, row...)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	_, x, err := gonumlp.Simplex(sf.c, mat.NewDense(rows, cols, data), sf.b, g.Tolerance, nil)
	switch {
	case errors.Is(err, gonumlp.ErrInfeasible):
		return &Solution{Status: Infeasible}, nil
	case errors.Is(err, gonumlp.ErrUnbounded):
		return &Solution{Status: Unbounded}, nil
	case err != nil:
		return nil, fmt.Errorf("gonum: %w", err)
	}
	return sf.solution(m, x), nil
}
