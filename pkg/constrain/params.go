package constrain

import (
	"errors"

	"github.com/dd0wney/cluso-hbcn/pkg/validation"
)

// Algorithm selects the linear program used to derive delays.
type Algorithm string

const (
	// Proportional stretches every place by a common factor of its weight.
	Proportional Algorithm = "proportional"
	// Pseudoclock bounds external places from below by one virtual clock
	// period and ties places together through per-transition offsets.
	Pseudoclock Algorithm = "pseudoclock"
)

// Algorithms lists the supported algorithms.
func Algorithms() []string {
	return []string{string(Proportional), string(Pseudoclock)}
}

// Params are the inputs of one constraint generation.
type Params struct {
	CycleTime float64 `validate:"finite,gt=0"`
	MinDelay  float64 `validate:"finite,gte=0"`
	// Margins are percentages in [0, 100) bounding how far below the
	// maximum the minimum delay of an external place may fall. Nil
	// produces no minimum for that class of places.
	ForwardMargin  *float64  `validate:"omitempty,finite,gte=0,lt=100"`
	BackwardMargin *float64  `validate:"omitempty,finite,gte=0,lt=100"`
	Algorithm      Algorithm `validate:"omitempty,oneof=proportional pseudoclock"`
}

// Margin is a convenience for setting the optional margins.
func Margin(percent float64) *float64 {
	return &percent
}

// Validate checks every field and returns a *ParameterError for the first
// bad one.
func (p Params) Validate() error {
	err := validation.Struct(&p)
	var fe *validation.FieldError
	if errors.As(err, &fe) {
		return &ParameterError{Field: fe.Field, Reason: fe.Reason}
	}
	return err
}

func (p Params) algorithm() Algorithm {
	if p.Algorithm == "" {
		return Proportional
	}
	return p.Algorithm
}
