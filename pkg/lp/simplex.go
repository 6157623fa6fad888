package lp

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// ErrIterationLimit is returned when the simplex does not converge.
var ErrIterationLimit = errors.New("lp: simplex iteration limit reached")

const (
	// DefaultTolerance is the pivot and reduced-cost tolerance.
	DefaultTolerance = 1e-9

	// blandAfter is the number of consecutive degenerate pivots after
	// which the entering column switches from Dantzig's rule to Bland's.
	blandAfter = 50
)

// SimplexBackend solves models in process with a dense two-phase tableau
// simplex.
type SimplexBackend struct {
	Tolerance float64
	// MaxIterations bounds the pivots of each phase. Zero derives a bound
	// from the tableau size.
	MaxIterations int
}

// NewSimplexBackend returns a simplex back-end with default settings.
func NewSimplexBackend() *SimplexBackend {
	return &SimplexBackend{Tolerance: DefaultTolerance}
}

// Solve implements Backend.
func (s *SimplexBackend) Solve(ctx context.Context, m *Model) (*Solution, error) {
	if err := m.Check(); err != nil {
		return nil, err
	}
	sf := newStandardForm(m)
	if sf.decided {
		return decided(sf, m), nil
	}

	tol := s.Tolerance
	if tol <= 0 {
		tol = DefaultTolerance
	}
	t := newTableau(sf.A, sf.b, tol)
	t.maxIter = s.MaxIterations
	if t.maxIter <= 0 {
		t.maxIter = 50 * (len(t.rows) + t.width)
	}

	x, status, err := t.solve(ctx, sf.c)
	if err != nil {
		return nil, err
	}
	if status != Optimal {
		return &Solution{Status: status}, nil
	}
	return sf.solution(m, x), nil
}

// decided turns a model settled during conversion into a Solution.
func decided(sf *standardForm, m *Model) *Solution {
	if sf.status != Optimal {
		return &Solution{Status: sf.status}
	}
	return sf.solution(m, nil)
}

type tableau struct {
	// rows hold width coefficients followed by the right-hand side
	rows    [][]float64
	basis   []int
	n       int // structural columns; artificials follow
	width   int
	tol     float64
	maxIter int
}

func newTableau(A [][]float64, b []float64, tol float64) *tableau {
	m := len(A)
	n := 0
	if m > 0 {
		n = len(A[0])
	}
	t := &tableau{basis: make([]int, m), n: n, tol: tol}
	for i := range t.basis {
		t.basis[i] = -1
	}

	// a column that is a unit vector can start in the basis
	for j := 0; j < n; j++ {
		row, count := -1, 0
		for i := 0; i < m && count < 2; i++ {
			if A[i][j] != 0 {
				row = i
				count++
			}
		}
		if count == 1 && A[row][j] == 1 && t.basis[row] < 0 {
			t.basis[row] = j
		}
	}

	artificial := 0
	for i := range t.basis {
		if t.basis[i] < 0 {
			artificial++
		}
	}
	t.width = n + artificial

	t.rows = make([][]float64, m)
	next := n
	for i := range A {
		row := make([]float64, t.width+1)
		copy(row, A[i])
		row[t.width] = b[i]
		if t.basis[i] < 0 {
			row[next] = 1
			t.basis[i] = next
			next++
		}
		t.rows[i] = row
	}
	return t
}

func (t *tableau) rhs(i int) float64 {
	return t.rows[i][t.width]
}

func (t *tableau) pivot(r, col int) {
	pr := t.rows[r]
	pv := pr[col]
	for k := range pr {
		pr[k] /= pv
	}
	pr[col] = 1
	for i, row := range t.rows {
		if i == r || row[col] == 0 {
			continue
		}
		f := row[col]
		for k := range row {
			row[k] -= f * pr[k]
		}
		row[col] = 0
	}
	t.basis[r] = col
}

// run minimises cost over the allowed columns, returning Unbounded or
// Optimal.
func (t *tableau) run(ctx context.Context, cost []float64, allowed int) (Status, error) {
	degenerate := 0
	for iter := 0; ; iter++ {
		if iter >= t.maxIter {
			return 0, ErrIterationLimit
		}
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		enter := -1
		best := -t.tol
		for j := 0; j < allowed; j++ {
			rc := cost[j]
			for i, row := range t.rows {
				if row[j] != 0 {
					rc -= cost[t.basis[i]] * row[j]
				}
			}
			if degenerate >= blandAfter {
				if rc < -t.tol {
					enter = j
					break
				}
			} else if rc < best {
				best = rc
				enter = j
			}
		}
		if enter < 0 {
			return Optimal, nil
		}

		leave := -1
		ratio := math.Inf(1)
		for i, row := range t.rows {
			if row[enter] <= t.tol {
				continue
			}
			q := t.rhs(i) / row[enter]
			if q < ratio-t.tol || (q <= ratio+t.tol && leave >= 0 && t.basis[i] < t.basis[leave]) {
				ratio = q
				leave = i
			}
		}
		if leave < 0 {
			return Unbounded, nil
		}
		if ratio <= t.tol {
			degenerate++
		} else {
			degenerate = 0
		}
		t.pivot(leave, enter)
	}
}

func (t *tableau) solve(ctx context.Context, c []float64) ([]float64, Status, error) {
	if t.width > t.n {
		phase1 := make([]float64, t.width)
		for j := t.n; j < t.width; j++ {
			phase1[j] = 1
		}
		if _, err := t.run(ctx, phase1, t.width); err != nil {
			return nil, 0, err
		}

		infeasibility, scale := 0.0, 1.0
		for i, row := range t.rows {
			scale = math.Max(scale, math.Abs(row[t.width]))
			if t.basis[i] >= t.n {
				infeasibility += t.rhs(i)
			}
		}
		if infeasibility > 1e-7*scale {
			return nil, Infeasible, nil
		}
		t.dropArtificials()
	}

	cost := make([]float64, t.width)
	copy(cost, c)
	status, err := t.run(ctx, cost, t.n)
	if err != nil || status != Optimal {
		return nil, status, err
	}

	x := make([]float64, t.n)
	for i, j := range t.basis {
		if j < t.n {
			x[j] = math.Max(0, t.rhs(i))
		}
	}
	return x, Optimal, nil
}

// dropArtificials pivots basic artificial columns out of the basis and
// removes the rows that turn out to be redundant.
func (t *tableau) dropArtificials() {
	for i := range t.rows {
		if t.basis[i] < t.n {
			continue
		}
		for j := 0; j < t.n; j++ {
			if math.Abs(t.rows[i][j]) > t.tol {
				t.pivot(i, j)
				break
			}
		}
	}

	var rows [][]float64
	var basis []int
	for i, row := range t.rows {
		if t.basis[i] < t.n {
			rows = append(rows, row)
			basis = append(basis, t.basis[i])
		}
	}
	t.rows, t.basis = rows, basis
}

func (t *tableau) String() string {
	return fmt.Sprintf("tableau(%dx%d, %d structural)", len(t.rows), t.width, t.n)
}
