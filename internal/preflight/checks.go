// Package preflight provides startup validation checks.
package preflight

import (
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"time"
)

// requiredFDs covers the server socket, the metrics listener with its
// connections, the terminal and log output.
const requiredFDs = 64

// Check represents the result of a single preflight check.
type Check struct {
	Name     string // Name of the check
	Required int    // Required value (if applicable)
	Actual   int    // Actual value found
	Passed   bool   // Whether the check passed
	Warning  bool   // True if it's a warning (non-fatal)
	Message  string // Additional context
}

// Result holds the results of all preflight checks.
type Result struct {
	Checks []Check
	Passed bool
}

// Options selects what RunAll checks.
type Options struct {
	ServerAddr  string        // host:port of the monitoring server
	DialTimeout time.Duration // reachability check timeout
	MetricsAddr string        // empty skips the listen check
}

// String returns a human-readable summary of the check.
func (c Check) String() string {
	status := "✓"
	if !c.Passed {
		status = "✗"
	} else if c.Warning {
		status = "⚠"
	}

	if c.Required > 0 {
		return fmt.Sprintf("  %s %s: %d available (need %d)", status, c.Name, c.Actual, c.Required)
	}
	return fmt.Sprintf("  %s %s: %s", status, c.Name, c.Message)
}

// Failed returns the checks that did not pass.
func (r *Result) Failed() []Check {
	var out []Check
	for _, c := range r.Checks {
		if !c.Passed {
			out = append(out, c)
		}
	}
	return out
}

// RunAll executes all preflight checks.
func RunAll(opts Options) *Result {
	result := &Result{
		Checks: make([]Check, 0, 3),
		Passed: true,
	}

	add := func(c Check) {
		result.Checks = append(result.Checks, c)
		if !c.Passed {
			result.Passed = false
		}
	}

	add(checkFileDescriptors())

	if opts.MetricsAddr != "" {
		add(checkListenAddr(opts.MetricsAddr))
	}

	// Server reachability is a warning only: the client reconnects.
	if opts.ServerAddr != "" {
		add(checkServer(opts.ServerAddr, opts.DialTimeout))
	}

	return result
}

// checkFileDescriptors verifies the open file limit.
func checkFileDescriptors() Check {
	var limit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &limit); err != nil {
		return Check{
			Name:    "file_descriptors",
			Passed:  true,
			Warning: true,
			Message: fmt.Sprintf("unable to check: %v", err),
		}
	}

	actual := int(limit.Cur)
	return Check{
		Name:     "file_descriptors",
		Required: requiredFDs,
		Actual:   actual,
		Passed:   actual >= requiredFDs,
		Message:  fmt.Sprintf("ulimit -n %d (need %d)", actual, requiredFDs),
	}
}

// checkListenAddr verifies the metrics address can be bound.
func checkListenAddr(addr string) Check {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return Check{
			Name:    "metrics_listen",
			Passed:  false,
			Message: fmt.Sprintf("cannot listen on %s: %v", addr, err),
		}
	}
	ln.Close()

	return Check{
		Name:    "metrics_listen",
		Passed:  true,
		Message: fmt.Sprintf("%s is available", addr),
	}
}

// checkServer checks the monitoring server with a plain TCP dial.
func checkServer(addr string, timeout time.Duration) Check {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	start := time.Now()
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		msg := fmt.Sprintf("%s unreachable: %v (will keep retrying after start)", addr, err)
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			msg = fmt.Sprintf("%s did not answer within %s (will keep retrying after start)", addr, timeout)
		}
		return Check{
			Name:    "server",
			Passed:  true,
			Warning: true,
			Message: msg,
		}
	}
	conn.Close()

	return Check{
		Name:    "server",
		Passed:  true,
		Message: fmt.Sprintf("%s reachable (%s)", addr, time.Since(start).Round(time.Millisecond)),
	}
}

// PrintResults writes the preflight check results.
func PrintResults(w io.Writer, result *Result) {
	fmt.Fprintln(w, "Preflight checks:")
	for _, check := range result.Checks {
		fmt.Fprintln(w, check.String())
		if !check.Passed || check.Warning {
			if fix := suggestFix(check.Name); fix != "" {
				fmt.Fprintf(w, "    Fix: %s\n", fix)
			}
		}
	}
	fmt.Fprintln(w)
}

// suggestFix returns a suggestion for fixing a failed check.
func suggestFix(name string) string {
	switch name {
	case "file_descriptors":
		return "ulimit -n 1024 (or edit /etc/security/limits.conf)"
	case "metrics_listen":
		return "choose another -metrics address or pass -metrics \"\" to disable"
	case "server":
		return "check -server/-port, or set CHANMON_SERVER and CHANMON_PORT"
	default:
		return ""
	}
}
