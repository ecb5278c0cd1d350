package client

import (
	"testing"
	"time"
)

func TestDefaultBackoffConfig(t *testing.T) {
	cfg := DefaultBackoffConfig()

	if cfg.Initial != 250*time.Millisecond {
		t.Errorf("Initial = %v, want 250ms", cfg.Initial)
	}
	if cfg.Max != 5*time.Second {
		t.Errorf("Max = %v, want 5s", cfg.Max)
	}
	if cfg.Multiplier != 1.7 {
		t.Errorf("Multiplier = %v, want 1.7", cfg.Multiplier)
	}
	if cfg.JitterPct != 0.4 {
		t.Errorf("JitterPct = %v, want 0.4", cfg.JitterPct)
	}
}

// =============================================================================
// Table-Driven Tests: Backoff
// =============================================================================

func TestBackoff_NoJitter(t *testing.T) {
	cfg := BackoffConfig{
		Initial:    100 * time.Millisecond,
		Max:        time.Second,
		Multiplier: 2,
	}
	b := NewBackoff(1, cfg)

	want := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
		time.Second,
		time.Second,
	}
	for i, w := range want {
		if got := b.Next(); got != w {
			t.Errorf("attempt %d: Next() = %v, want %v", i, got, w)
		}
	}
	if b.Attempts() != len(want) {
		t.Errorf("Attempts() = %d, want %d", b.Attempts(), len(want))
	}

	b.Reset()
	if b.Attempts() != 0 || b.Calculate() != 100*time.Millisecond {
		t.Errorf("after Reset: attempts %d, delay %v", b.Attempts(), b.Calculate())
	}
}

func TestBackoff_JitterBounds(t *testing.T) {
	cfg := DefaultBackoffConfig()

	tests := []struct {
		name string
		seed int64
	}{
		{"seed 0", 0},
		{"seed 42", 42},
		{"seed max", 1<<63 - 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBackoff(tt.seed, cfg)
			for i := 0; i < 20; i++ {
				base := float64(cfg.Initial)
				for j := 0; j < i; j++ {
					base *= cfg.Multiplier
				}
				if base > float64(cfg.Max) {
					base = float64(cfg.Max)
				}
				lo := time.Duration(base*(1-cfg.JitterPct/2)) - time.Microsecond
				hi := time.Duration(base*(1+cfg.JitterPct/2)) + time.Microsecond

				got := b.Next()
				if got < lo || got > hi {
					t.Errorf("attempt %d: %v outside [%v, %v]", i, got, lo, hi)
				}
			}
		})
	}
}

func TestBackoff_SameSeedSameSequence(t *testing.T) {
	a := NewBackoff(7, DefaultBackoffConfig())
	b := NewBackoff(7, DefaultBackoffConfig())
	for i := 0; i < 10; i++ {
		if x, y := a.Next(), b.Next(); x != y {
			t.Fatalf("attempt %d: %v != %v", i, x, y)
		}
	}
}

func TestNewBackoff_MultiplierFloor(t *testing.T) {
	b := NewBackoff(1, BackoffConfig{Initial: time.Second, Max: time.Minute, Multiplier: 0.5})
	b.Next()
	if got := b.Calculate(); got != time.Second {
		t.Errorf("delay = %v, want constant 1s", got)
	}
}

func TestShouldReset(t *testing.T) {
	tests := []struct {
		name    string
		uptime  time.Duration
		samples int64
		want    bool
	}{
		{"short and silent", time.Second, 0, false},
		{"long lived", BackoffResetThreshold, 0, true},
		{"delivered data", time.Millisecond, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldReset(tt.uptime, tt.samples); got != tt.want {
				t.Errorf("ShouldReset(%v, %d) = %v, want %v", tt.uptime, tt.samples, got, tt.want)
			}
		})
	}
}
