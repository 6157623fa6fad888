package hbcn

import (
	"errors"
	"fmt"
)

// Sentinel errors wrapped by GraphError.
var (
	ErrDanglingReference   = errors.New("dangling reference")
	ErrUnmarkedCycle       = errors.New("cycle without tokens")
	ErrMalformedChannel    = errors.New("malformed channel")
	ErrDuplicateTransition = errors.New("duplicate transition")
	ErrUnknownTransition   = errors.New("unknown transition")
	ErrSyntax              = errors.New("syntax error")
)

// GraphError reports a structural defect in a graph or network.
type GraphError struct {
	Op     string // operation that failed (e.g. "expand", "parse")
	Node   string // offending node, if any
	Target string // second node of an offending connection, if any
	Line   int    // input line for text errors
	Err    error
}

// Error implements the error interface.
func (e *GraphError) Error() string {
	switch {
	case e.Line > 0:
		return fmt.Sprintf("%s: line %d: %v", e.Op, e.Line, e.Err)
	case e.Target != "":
		return fmt.Sprintf("%s: %q -> %q: %v", e.Op, e.Node, e.Target, e.Err)
	case e.Node != "":
		return fmt.Sprintf("%s: %q: %v", e.Op, e.Node, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
}

// Unwrap returns the underlying cause for error chain support.
func (e *GraphError) Unwrap() error {
	return e.Err
}
