package state

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidStateTransition is returned when an operation is not allowed
	// in the current status (starting twice, reconfiguring while started).
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// ErrNoController is returned when starting before a port was set.
	ErrNoController = errors.New("no client controller configured")
)

// transitionError wraps ErrInvalidStateTransition with the attempted move.
func transitionError(from, to Status) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidStateTransition, from, to)
}

// whileStartedError wraps ErrInvalidStateTransition for a config change that
// is only allowed while stopped.
func whileStartedError(field string) error {
	return fmt.Errorf("%w: cannot change %s while started", ErrInvalidStateTransition, field)
}
