package constrain

import (
	"errors"
	"fmt"

	"github.com/dd0wney/cluso-hbcn/pkg/analyse"
)

// ErrInvalidParameter is wrapped by every ParameterError.
var ErrInvalidParameter = errors.New("invalid parameter")

// ParameterError rejects a Params field before any work is done.
type ParameterError struct {
	Field  string
	Reason string
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("%v %s: %s", ErrInvalidParameter, e.Field, e.Reason)
}

func (e *ParameterError) Unwrap() error {
	return ErrInvalidParameter
}

// InfeasibleError reports a cycle time that cannot be met. Ratio is the
// critical ratio of the network; when it does not exceed CycleTime the
// minimal delay or the margins made the program infeasible.
type InfeasibleError struct {
	Algorithm Algorithm
	CycleTime float64
	Ratio     float64
	Critical  *analyse.Cycle
}

func (e *InfeasibleError) Error() string {
	if e.Ratio > e.CycleTime {
		return fmt.Sprintf("%v: cycle time %g, critical ratio %g", analyse.ErrInfeasible, e.CycleTime, e.Ratio)
	}
	return fmt.Sprintf("%v: no %s delay assignment meets cycle time %g", analyse.ErrInfeasible, e.Algorithm, e.CycleTime)
}

func (e *InfeasibleError) Unwrap() error {
	return analyse.ErrInfeasible
}
