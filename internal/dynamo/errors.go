package dynamo

import (
	"errors"
	"fmt"
)

// Error kinds raised by the core. Callers match them with errors.Is.
var (
	// ErrConstruction indicates an invalid entity name or a duplicate registration.
	ErrConstruction = errors.New("dynamo: construction failed")

	// ErrConfiguration indicates a mis-wired graph: an unresolvable signal,
	// a missing evaluation function, a type mismatch or a dependency cycle.
	ErrConfiguration = errors.New("dynamo: signal graph misconfigured")

	// ErrInvalidParameter indicates a parameter outside its valid range,
	// including a non-positive time step or a non-increasing time stamp.
	ErrInvalidParameter = errors.New("dynamo: invalid parameter")

	// ErrDimensionMismatch indicates mismatched state/control dimensions.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between state and system")

	// ErrInvalidState indicates a state vector with NaN or Inf components.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")
)

// SignalError wraps an error with the signal and stamp it occurred at.
type SignalError struct {
	Signal string
	Time   Time
	Err    error
}

func (e *SignalError) Error() string {
	return fmt.Sprintf("signal %s at t=%d: %v", e.Signal, e.Time, e.Err)
}

func (e *SignalError) Unwrap() error {
	return e.Err
}

// EntityError wraps an error with the entity and operation that raised it.
type EntityError struct {
	Entity string
	Op     string
	Err    error
}

func (e *EntityError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Entity, e.Op, e.Err)
}

func (e *EntityError) Unwrap() error {
	return e.Err
}
