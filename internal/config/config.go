// Package config provides configuration management for go-channel-monitor.
package config

import "time"

// Environment variables consulted when the matching flag is not given.
const (
	EnvServer = "CHANMON_SERVER"
	EnvPort   = "CHANMON_PORT"
)

// Config holds all configuration options for the monitor.
type Config struct {
	// Server
	Server  string        `json:"server"`
	Port    int           `json:"port"`
	Timeout time.Duration `json:"timeout"` // dial timeout

	// Acquisition
	Channels      int     `json:"channels"`
	Frequency     int     `json:"frequency"`     // expected samples per second
	HistoryLimit  int     `json:"history_limit"` // values kept per channel, 0 = unlimited
	BufferSize    int     `json:"buffer_size"`   // socket lines buffered ahead of the decoder
	DropThreshold float64 `json:"drop_threshold"`

	// Run mode
	AutoStart bool          `json:"autostart"`
	Duration  time.Duration `json:"duration"` // 0 = until interrupted

	// Observability
	MetricsAddr  string `json:"metrics_addr"`
	Verbose      bool   `json:"verbose"`
	LogFormat    string `json:"log_format"` // json, text
	LogLines     int    `json:"log_lines"`  // log lines kept for the dashboard
	PrintMetrics bool   `json:"print_metrics"`

	// Dashboard
	TUIEnabled bool `json:"tui_enabled"`

	// Diagnostic modes
	SkipPreflight bool `json:"skip_preflight"`

	// Reconnect policy
	BackoffInitial  time.Duration `json:"backoff_initial"`
	BackoffMax      time.Duration `json:"backoff_max"`
	BackoffMultiply float64       `json:"backoff_multiply"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		// Server
		Server:  "127.0.0.1",
		Port:    9300,
		Timeout: 5 * time.Second,

		// Acquisition
		Channels:      2,
		Frequency:     10,
		HistoryLimit:  0, // Unlimited
		BufferSize:    1000,
		DropThreshold: 0.01,

		// Run mode
		AutoStart: false,
		Duration:  0, // Forever

		// Observability
		MetricsAddr: "0.0.0.0:17092",
		Verbose:     false,
		LogFormat:   "json",
		LogLines:    200,

		// Dashboard
		TUIEnabled: true,

		// Reconnect policy
		BackoffInitial:  250 * time.Millisecond,
		BackoffMax:      5 * time.Second,
		BackoffMultiply: 1.7,
	}
}

// ServerAddr returns the host:port the client dials.
func (c *Config) ServerAddr() string {
	return joinHostPort(c.Server, c.Port)
}
