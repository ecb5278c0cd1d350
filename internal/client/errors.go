package client

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyRunning is returned by Start while a worker is running.
	ErrAlreadyRunning = errors.New("client already running")

	// ErrNotRunning is returned by Stop when no worker is running.
	ErrNotRunning = errors.New("client not running")
)

// ParseError describes a server line that could not be decoded.
type ParseError struct {
	Line   string
	Field  int // zero-based field index, -1 if the whole line is bad
	Reason string
}

func (e *ParseError) Error() string {
	if e.Field >= 0 {
		return fmt.Sprintf("malformed line %q: field %d: %s", e.Line, e.Field, e.Reason)
	}
	return fmt.Sprintf("malformed line %q: %s", e.Line, e.Reason)
}
