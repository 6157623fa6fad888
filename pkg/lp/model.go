// Package lp describes linear programs and solves them through a
// priority-ordered chain of interchangeable back-ends.
package lp

import (
	"fmt"
	"math"
)

// Inf is an absent bound.
var Inf = math.Inf(1)

// VarID identifies a variable of a Model.
type VarID int

// Sense is the relation of a constraint.
type Sense int

const (
	LessEqual Sense = iota
	GreaterEqual
	Equal
)

func (s Sense) String() string {
	switch s {
	case LessEqual:
		return "<="
	case GreaterEqual:
		return ">="
	case Equal:
		return "="
	default:
		return fmt.Sprintf("Sense(%d)", int(s))
	}
}

// Term is a coefficient applied to a variable.
type Term struct {
	Var  VarID
	Coef float64
}

// Variable is a bounded decision variable. Lower may be -Inf and Upper Inf.
type Variable struct {
	Name  string
	Lower float64
	Upper float64
}

// Constraint is a linear relation between terms and a constant.
type Constraint struct {
	Name  string
	Terms []Term
	Sense Sense
	RHS   float64
}

// Model is a linear program under construction.
type Model struct {
	Name        string
	vars        []Variable
	constraints []Constraint
	objective   []Term
	maximize    bool
}

// NewModel creates an empty model.
func NewModel(name string) *Model {
	return &Model{Name: name}
}

// AddVariable adds a variable with bounds lo <= x <= hi.
func (m *Model) AddVariable(name string, lo, hi float64) VarID {
	m.vars = append(m.vars, Variable{Name: name, Lower: lo, Upper: hi})
	return VarID(len(m.vars) - 1)
}

// AddConstraint adds the constraint Σ terms sense rhs.
func (m *Model) AddConstraint(name string, terms []Term, sense Sense, rhs float64) {
	m.constraints = append(m.constraints, Constraint{
		Name:  name,
		Terms: append([]Term(nil), terms...),
		Sense: sense,
		RHS:   rhs,
	})
}

// SetObjective replaces the objective.
func (m *Model) SetObjective(terms []Term, maximize bool) {
	m.objective = append([]Term(nil), terms...)
	m.maximize = maximize
}

// NumVariables returns the number of variables.
func (m *Model) NumVariables() int { return len(m.vars) }

// NumConstraints returns the number of constraints.
func (m *Model) NumConstraints() int { return len(m.constraints) }

// Variable returns the i-th variable.
func (m *Model) Variable(v VarID) Variable { return m.vars[v] }

// Constraint returns the i-th constraint.
func (m *Model) Constraint(i int) Constraint { return m.constraints[i] }

// Objective returns the objective terms and direction.
func (m *Model) Objective() ([]Term, bool) { return m.objective, m.maximize }

// Evaluate computes the objective at values.
func (m *Model) Evaluate(values []float64) float64 {
	sum := 0.0
	for _, t := range m.objective {
		sum += t.Coef * values[t.Var]
	}
	return sum
}

// Check validates the model's structure: bounds must be ordered, not NaN,
// and every term must refer to a variable of the model.
func (m *Model) Check() error {
	for i, v := range m.vars {
		if math.IsNaN(v.Lower) || math.IsNaN(v.Upper) || v.Lower > v.Upper ||
			math.IsInf(v.Lower, 1) || math.IsInf(v.Upper, -1) {
			return fmt.Errorf("lp: variable %d (%s) has bounds [%g, %g]", i, v.Name, v.Lower, v.Upper)
		}
	}
	check := func(where string, terms []Term) error {
		for _, t := range terms {
			if t.Var < 0 || int(t.Var) >= len(m.vars) {
				return fmt.Errorf("lp: %s refers to unknown variable %d", where, t.Var)
			}
			if math.IsNaN(t.Coef) || math.IsInf(t.Coef, 0) {
				return fmt.Errorf("lp: %s has coefficient %g", where, t.Coef)
			}
		}
		return nil
	}
	for i, c := range m.constraints {
		if err := check(fmt.Sprintf("constraint %d (%s)", i, c.Name), c.Terms); err != nil {
			return err
		}
		if math.IsNaN(c.RHS) || math.IsInf(c.RHS, 0) {
			return fmt.Errorf("lp: constraint %d (%s) has right-hand side %g", i, c.Name, c.RHS)
		}
	}
	return check("objective", m.objective)
}

// Status is the outcome of a completed solve.
type Status int

const (
	Optimal Status = iota
	Infeasible
	Unbounded
)

func (s Status) String() string {
	switch s {
	case Optimal:
		return "optimal"
	case Infeasible:
		return "infeasible"
	case Unbounded:
		return "unbounded"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Solution is what a back-end returns for a model it could solve. Values is
// only set when Status is Optimal.
type Solution struct {
	Status    Status
	Objective float64
	Values    []float64
	Backend   string
}

// Value returns the value of v in an optimal solution.
func (s *Solution) Value(v VarID) float64 {
	return s.Values[v]
}
