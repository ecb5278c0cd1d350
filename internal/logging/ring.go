package logging

import (
	"strings"
	"sync"
)

const (
	// MaxLineLength is the maximum length of a single log line before truncation.
	MaxLineLength = 4096

	// DefaultRingSize is the number of lines kept when no size is given.
	DefaultRingSize = 200
)

// Ring is a fixed-size circular buffer of log lines, oldest first.
// Safe for concurrent use.
type Ring struct {
	buffer []string
	next   int
	count  int
	mu     sync.Mutex
}

// NewRing creates a ring holding at most size lines.
func NewRing(size int) *Ring {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &Ring{buffer: make([]string, size)}
}

// Add stores a line, overwriting the oldest one when full.
// Lines longer than MaxLineLength are truncated.
func (r *Ring) Add(line string) {
	if len(line) > MaxLineLength {
		line = line[:MaxLineLength] + "...(truncated)"
	}

	r.mu.Lock()
	r.buffer[r.next] = line
	r.next = (r.next + 1) % len(r.buffer)
	if r.count < len(r.buffer) {
		r.count++
	}
	r.mu.Unlock()
}

// Lines returns every stored line in insertion order.
func (r *Ring) Lines() []string {
	return r.Recent(r.Cap())
}

// Recent returns the n most recent lines in insertion order.
func (r *Ring) Recent(n int) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n > r.count {
		n = r.count
	}
	if n <= 0 {
		return nil
	}

	size := len(r.buffer)
	lines := make([]string, 0, n)
	for i := 0; i < n; i++ {
		idx := (r.next - n + i + size) % size
		lines = append(lines, r.buffer[idx])
	}
	return lines
}

// Len returns the number of stored lines.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Cap returns the ring capacity.
func (r *Ring) Cap() int {
	return len(r.buffer)
}

// Reset drops every stored line.
func (r *Ring) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.buffer {
		r.buffer[i] = ""
	}
	r.next = 0
	r.count = 0
}

// ErrorPatterns are substrings counted by CountMatching for the exit summary.
var ErrorPatterns = []string{
	"connection refused",
	"connection reset",
	"malformed",
	"timeout",
	"reconnect",
}

// CountMatching counts stored lines containing each pattern (case-insensitive).
func (r *Ring) CountMatching(patterns []string) map[string]int {
	counts := make(map[string]int)
	for _, line := range r.Lines() {
		lower := strings.ToLower(line)
		for _, p := range patterns {
			if strings.Contains(lower, strings.ToLower(p)) {
				counts[p]++
			}
		}
	}
	return counts
}
