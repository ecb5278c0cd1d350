// Package state holds the shared client state of the monitor: configuration
// bound to the dashboard, the values received from the server, the latest
// aggregates and the client controller that feeds them.
package state

// Status is the run state of the client controller.
type Status int

const (
	// StatusStopped is the initial state; no worker is receiving data.
	StatusStopped Status = iota

	// StatusStarted indicates the controller's worker is running.
	StatusStarted
)

// String returns a human-readable name for the status.
func (s Status) String() string {
	switch s {
	case StatusStopped:
		return "stopped"
	case StatusStarted:
		return "started"
	default:
		return "unknown"
	}
}

// Next returns the status a toggle moves to.
func (s Status) Next() Status {
	if s == StatusStarted {
		return StatusStopped
	}
	return StatusStarted
}
