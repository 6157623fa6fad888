package lp

import "math"

// standardForm is a model rewritten as
//
//	minimise cᵀx  subject to  Ax = b, x >= 0, b >= 0
//
// with every column appearing in some row. It is shared by the in-process
// back-ends.
type standardForm struct {
	A        [][]float64
	b        []float64
	c        []float64
	constant float64

	// status is set when the model was decided while converting it.
	status  Status
	decided bool

	vars []varMapping
	// column remapping after pruning; -1 for pruned columns
	remap []int
}

type column struct {
	index int
	sign  float64
}

// varMapping expresses a model variable as offset + Σ sign·x[index].
type varMapping struct {
	offset  float64
	columns []column
}

type sparseRow map[int]float64

func newStandardForm(m *Model) *standardForm {
	sf := &standardForm{}
	ncols := 0
	var rows []sparseRow
	var rhs []float64
	var senses []Sense

	for _, v := range m.vars {
		switch {
		case !math.IsInf(v.Lower, -1):
			sf.vars = append(sf.vars, varMapping{offset: v.Lower, columns: []column{{ncols, 1}}})
			if !math.IsInf(v.Upper, 1) {
				rows = append(rows, sparseRow{ncols: 1})
				rhs = append(rhs, v.Upper-v.Lower)
				senses = append(senses, LessEqual)
			}
			ncols++
		case !math.IsInf(v.Upper, 1):
			sf.vars = append(sf.vars, varMapping{offset: v.Upper, columns: []column{{ncols, -1}}})
			ncols++
		default:
			sf.vars = append(sf.vars, varMapping{columns: []column{{ncols, 1}, {ncols + 1, -1}}})
			ncols += 2
		}
	}

	for _, c := range m.constraints {
		row := sparseRow{}
		b := c.RHS
		for _, t := range c.Terms {
			vm := sf.vars[t.Var]
			b -= t.Coef * vm.offset
			for _, col := range vm.columns {
				row[col.index] += t.Coef * col.sign
			}
		}
		for k, v := range row {
			if v == 0 {
				delete(row, k)
			}
		}
		rows = append(rows, row)
		rhs = append(rhs, b)
		senses = append(senses, c.Sense)
	}

	for i, row := range rows {
		switch senses[i] {
		case LessEqual:
			row[ncols] = 1
			ncols++
		case GreaterEqual:
			row[ncols] = -1
			ncols++
		}
		if rhs[i] < 0 {
			for k, v := range row {
				row[k] = -v
			}
			rhs[i] = -rhs[i]
		}
	}

	cost := make([]float64, ncols)
	sign := 1.0
	if m.maximize {
		sign = -1
	}
	for _, t := range m.objective {
		vm := sf.vars[t.Var]
		sf.constant += sign * t.Coef * vm.offset
		for _, col := range vm.columns {
			cost[col.index] += sign * t.Coef * col.sign
		}
	}

	sf.prune(rows, rhs, cost, ncols)
	return sf
}

// prune drops empty rows and columns that appear in no row. An empty row
// with a non-zero right-hand side makes the model infeasible; a free column
// with negative cost makes it unbounded.
func (sf *standardForm) prune(rows []sparseRow, rhs, cost []float64, ncols int) {
	used := make([]bool, ncols)
	var kept []sparseRow
	for i, row := range rows {
		if len(row) == 0 {
			if rhs[i] != 0 {
				sf.status, sf.decided = Infeasible, true
				return
			}
			continue
		}
		kept = append(kept, row)
		sf.b = append(sf.b, rhs[i])
		for k := range row {
			used[k] = true
		}
	}

	sf.remap = make([]int, ncols)
	n := 0
	for j := 0; j < ncols; j++ {
		if !used[j] {
			sf.remap[j] = -1
			if cost[j] < 0 {
				sf.status, sf.decided = Unbounded, true
			}
			continue
		}
		sf.remap[j] = n
		sf.c = append(sf.c, cost[j])
		n++
	}
	if sf.decided {
		return
	}

	sf.A = make([][]float64, len(kept))
	for i, row := range kept {
		dense := make([]float64, n)
		for k, v := range row {
			dense[sf.remap[k]] = v
		}
		sf.A[i] = dense
	}
	if len(kept) == 0 {
		sf.status, sf.decided = Optimal, true
	}
}

// cols is the number of columns after pruning.
func (sf *standardForm) cols() int {
	return len(sf.c)
}

// values maps a standard-form solution back to model variables. x may be
// nil when every column was pruned.
func (sf *standardForm) values(x []float64) []float64 {
	out := make([]float64, len(sf.vars))
	for i, vm := range sf.vars {
		v := vm.offset
		for _, col := range vm.columns {
			if j := sf.remap[col.index]; j >= 0 {
				v += col.sign * x[j]
			}
		}
		out[i] = v
	}
	return out
}

// solution builds a Solution from a standard-form optimum.
func (sf *standardForm) solution(m *Model, x []float64) *Solution {
	values := sf.values(x)
	return &Solution{Status: Optimal, Objective: m.Evaluate(values), Values: values}
}
