package tm

import "fmt"

// ErrorKind classifies a ConsensusError (spec.md §7).
type ErrorKind uint8

// Enumerate the ErrorKinds.
const (
	// InvalidInput covers unknown voter, signature check failed,
	// height/round out of window, duplicate vote. Recovered locally; the
	// offending input is dropped.
	InvalidInput ErrorKind = iota + 1
	// OutOfOrder is a threshold event firing twice for the same
	// (round, kind, threshold). Aborts the driver.
	OutOfOrder
	// Resource covers a validator set being unavailable at the requested
	// height. IsFatal does not count it among the kinds that abort the
	// driver.
	Resource
	// Fatal is a broken invariant (weight overflow, negative accumulation,
	// inconsistent lock/valid). Aborts the driver.
	Fatal
)

// String implements fmt.Stringer.
func (k ErrorKind) String() string {
	switch k {
	case InvalidInput:
		return "invalid_input"
	case OutOfOrder:
		return "out_of_order"
	case Resource:
		return "resource"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// ConsensusError is the structured error the driver returns per spec.md §7.
type ConsensusError struct {
	Kind    ErrorKind
	Message string
}

// Error implements the error interface.
func (e *ConsensusError) Error() string {
	return fmt.Sprintf("%v: %s", e.Kind, e.Message)
}

// NewInvalidInputError builds an InvalidInput ConsensusError.
func NewInvalidInputError(format string, args ...interface{}) *ConsensusError {
	return &ConsensusError{Kind: InvalidInput, Message: fmt.Sprintf(format, args...)}
}

// NewOutOfOrderError builds an OutOfOrder ConsensusError.
func NewOutOfOrderError(format string, args ...interface{}) *ConsensusError {
	return &ConsensusError{Kind: OutOfOrder, Message: fmt.Sprintf(format, args...)}
}

// NewResourceError builds a Resource ConsensusError.
func NewResourceError(format string, args ...interface{}) *ConsensusError {
	return &ConsensusError{Kind: Resource, Message: fmt.Sprintf(format, args...)}
}

// NewFatalError builds a Fatal ConsensusError.
func NewFatalError(format string, args ...interface{}) *ConsensusError {
	return &ConsensusError{Kind: Fatal, Message: fmt.Sprintf(format, args...)}
}

// IsFatal reports whether err (if a *ConsensusError) is OutOfOrder or Fatal,
// the two kinds that abort the driver per spec.md §7's propagation policy.
func IsFatal(err error) bool {
	ce, ok := err.(*ConsensusError)
	if !ok {
		return false
	}
	return ce.Kind == OutOfOrder || ce.Kind == Fatal
}
