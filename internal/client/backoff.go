package client

import (
	"math"
	"math/rand"
	"time"
)

// BackoffConfig holds the configuration for exponential reconnect backoff.
type BackoffConfig struct {
	Initial    time.Duration // Initial backoff delay (default: 250ms)
	Max        time.Duration // Maximum backoff delay (default: 5s)
	Multiplier float64       // Multiplier for each attempt (default: 1.7)
	JitterPct  float64       // Jitter as a percentage of delay (default: 0.4 = ±20%)
}

// DefaultBackoffConfig returns sensible defaults for backoff.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		Initial:    250 * time.Millisecond,
		Max:        5 * time.Second,
		Multiplier: 1.7,
		JitterPct:  0.4,
	}
}

// Backoff calculates exponential reconnect delays with jitter.
// Not safe for concurrent use; each worker owns one.
type Backoff struct {
	config   BackoffConfig
	attempts int
	rng      *rand.Rand
}

// NewBackoff creates a Backoff; seed makes the jitter sequence reproducible.
func NewBackoff(seed int64, cfg BackoffConfig) *Backoff {
	if cfg.Multiplier < 1 {
		cfg.Multiplier = 1
	}
	return &Backoff{
		config: cfg,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Next returns the next delay and increments the attempt counter.
func (b *Backoff) Next() time.Duration {
	delay := b.Calculate()
	b.attempts++
	return delay
}

// Calculate returns the current delay without incrementing attempts.
func (b *Backoff) Calculate() time.Duration {
	delay := float64(b.config.Initial) * math.Pow(b.config.Multiplier, float64(b.attempts))

	if delay > float64(b.config.Max) {
		delay = float64(b.config.Max)
	}

	// ±(JitterPct/2) of the delay
	if b.config.JitterPct > 0 {
		jitterRange := delay * b.config.JitterPct
		delay += jitterRange*b.rng.Float64() - jitterRange/2
	}

	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

// Reset resets the attempt counter to zero.
func (b *Backoff) Reset() {
	b.attempts = 0
}

// Attempts returns the current attempt count.
func (b *Backoff) Attempts() int {
	return b.attempts
}

// BackoffResetThreshold is the minimum connection lifetime after which the
// next disconnect starts the backoff sequence over.
const BackoffResetThreshold = 30 * time.Second

// ShouldReset reports whether a connection lived long enough, or delivered
// data, to consider the server healthy again.
func ShouldReset(uptime time.Duration, samples int64) bool {
	return uptime >= BackoffResetThreshold || samples > 0
}
