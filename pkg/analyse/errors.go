package analyse

import "errors"

var (
	// ErrInfeasible is returned when the requested cycle time is below the
	// critical-cycle ratio.
	ErrInfeasible = errors.New("cycle time below critical ratio")

	// ErrMalformed is returned for a cycle that holds no token. Expansion never
	// produces one, so it points at a network that skipped validation.
	ErrMalformed = errors.New("malformed network: cycle without tokens")

	// ErrCycleLimit is returned when enumeration exceeds Options.MaxCycles.
	ErrCycleLimit = errors.New("elementary cycle limit exceeded")
)
