package lp

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrBackendFailed is wrapped by every BackendError.
	ErrBackendFailed = errors.New("lp back-end failed")

	// ErrAllBackendsFailed is wrapped by AllBackendsFailedError.
	ErrAllBackendsFailed = errors.New("all lp back-ends failed")

	// ErrTimeout is the cause recorded for an attempt that ran out of time.
	ErrTimeout = errors.New("lp back-end timed out")

	// ErrUnknownBackend is returned for a back-end name with no constructor.
	ErrUnknownBackend = errors.New("unknown lp back-end")
)

// BackendError is the failure of one back-end. The chain moves on to the
// next entry when it sees one.
type BackendError struct {
	Backend string
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("lp back-end %q failed: %v", e.Backend, e.Err)
}

// Unwrap exposes both ErrBackendFailed and the underlying cause.
func (e *BackendError) Unwrap() []error {
	return []error{ErrBackendFailed, e.Err}
}

// AllBackendsFailedError carries the failure of every attempted back-end,
// in priority order.
type AllBackendsFailedError struct {
	Attempts []*BackendError
}

func (e *AllBackendsFailedError) Error() string {
	if len(e.Attempts) == 0 {
		return "no lp back-ends configured"
	}
	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = fmt.Sprintf("%s: %v", a.Backend, a.Err)
	}
	return fmt.Sprintf("%v: %s", ErrAllBackendsFailed, strings.Join(parts, "; "))
}

// Unwrap exposes ErrAllBackendsFailed and each attempt.
func (e *AllBackendsFailedError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts)+1)
	errs = append(errs, ErrAllBackendsFailed)
	for _, a := range e.Attempts {
		errs = append(errs, a)
	}
	return errs
}
