// Package timeseries tracks how fast samples arrive from the server.
//
// A RateTracker holds a cumulative counter that writers bump lock-free and a
// ring of periodic snapshots of that counter. Rolling rates are computed
// from the snapshot closest to the start of each window.
package timeseries

import (
	"sync"
	"sync/atomic"
	"time"
)

const (
	// DefaultCapacity keeps two minutes of history at one snapshot per second.
	DefaultCapacity = 120

	window1s  = 1 * time.Second
	window30s = 30 * time.Second
	window60s = 60 * time.Second
)

// Clock interface for testing with deterministic time.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// point is a snapshot of the cumulative count.
type point struct {
	at    time.Time
	total int64
}

// RateTracker counts samples and computes rolling sample rates.
//
//	tracker := NewRateTracker(0)
//	tracker.Add(1)          // per received sample
//	tracker.RecordSample()  // once per second from a ticker
//	rates := tracker.GetStats()
type RateTracker struct {
	total atomic.Int64

	mu     sync.RWMutex
	points []point
	next   int // write index once the ring is full
	start  time.Time

	capacity int
	clock    Clock
}

// RateStats holds the rolling rates in samples per second.
type RateStats struct {
	Total int64

	Avg1s      float64
	Avg30s     float64
	Avg60s     float64
	AvgOverall float64
}

// NewRateTracker creates a tracker keeping capacity snapshots
// (DefaultCapacity when capacity < 2).
func NewRateTracker(capacity int) *RateTracker {
	return NewRateTrackerWithClock(capacity, realClock{})
}

// NewRateTrackerWithClock creates a tracker with a custom clock.
func NewRateTrackerWithClock(capacity int, clock Clock) *RateTracker {
	if capacity <= 1 {
		capacity = DefaultCapacity
	}
	t := &RateTracker{capacity: capacity, clock: clock}
	t.resetLocked(clock.Now())
	return t
}

// Add adds n samples to the count. Non-positive values are ignored.
func (t *RateTracker) Add(n int64) {
	if n > 0 {
		t.total.Add(n)
	}
}

// Total returns the cumulative count.
func (t *RateTracker) Total() int64 {
	return t.total.Load()
}

// RecordSample snapshots the current count.
func (t *RateTracker) RecordSample() {
	p := point{at: t.clock.Now(), total: t.total.Load()}

	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.points) < t.capacity {
		t.points = append(t.points, p)
		return
	}
	t.points[t.next] = p
	t.next = (t.next + 1) % t.capacity
}

// GetStats computes the rolling rates as of now.
func (t *RateTracker) GetStats() RateStats {
	now := t.clock.Now()
	total := t.total.Load()

	t.mu.RLock()
	defer t.mu.RUnlock()

	s := RateStats{Total: total}
	if elapsed := now.Sub(t.start).Seconds(); elapsed > 0 {
		s.AvgOverall = float64(total) / elapsed
	}
	s.Avg1s = t.rateSince(now, total, window1s)
	s.Avg30s = t.rateSince(now, total, window30s)
	s.Avg60s = t.rateSince(now, total, window60s)
	return s
}

// rateSince uses the newest snapshot taken at or before now-window, or the
// oldest snapshot if the history is shorter than the window.
// Must be called with mu held.
func (t *RateTracker) rateSince(now time.Time, total int64, window time.Duration) float64 {
	if len(t.points) == 0 {
		return 0
	}
	cutoff := now.Add(-window)

	var base *point
	for i := range t.points {
		p := &t.points[i]
		if p.at.After(cutoff) {
			continue
		}
		if base == nil || p.at.After(base.at) {
			base = p
		}
	}
	if base == nil {
		base = t.oldest()
	}

	elapsed := now.Sub(base.at).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(total-base.total) / elapsed
}

// Rates returns the rate between consecutive snapshots, oldest first, for
// at most the n most recent intervals. Used for sparklines.
func (t *RateTracker) Rates(n int) []float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ordered := t.orderedLocked()
	if len(ordered) < 2 || n <= 0 {
		return nil
	}
	if len(ordered)-1 > n {
		ordered = ordered[len(ordered)-1-n:]
	}

	rates := make([]float64, 0, len(ordered)-1)
	for i := 1; i < len(ordered); i++ {
		dt := ordered[i].at.Sub(ordered[i-1].at).Seconds()
		if dt <= 0 {
			rates = append(rates, 0)
			continue
		}
		rates = append(rates, float64(ordered[i].total-ordered[i-1].total)/dt)
	}
	return rates
}

// orderedLocked returns the snapshots oldest first.
func (t *RateTracker) orderedLocked() []point {
	if len(t.points) < t.capacity {
		return t.points
	}
	out := make([]point, 0, t.capacity)
	out = append(out, t.points[t.next:]...)
	return append(out, t.points[:t.next]...)
}

// oldest must be called with mu held.
func (t *RateTracker) oldest() *point {
	if len(t.points) < t.capacity {
		return &t.points[0]
	}
	return &t.points[t.next]
}

// Reset clears the count and the history.
func (t *RateTracker) Reset() {
	now := t.clock.Now()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.total.Store(0)
	t.resetLocked(now)
}

func (t *RateTracker) resetLocked(now time.Time) {
	t.points = make([]point, 0, t.capacity)
	t.points = append(t.points, point{at: now})
	t.next = 0
	t.start = now
}

// SampleCount returns the number of snapshots held.
func (t *RateTracker) SampleCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.points)
}
