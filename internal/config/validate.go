package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the configuration for errors and inconsistencies.
// Returns nil if valid, or the joined ValidationErrors.
func Validate(cfg *Config) error {
	var errs []error

	if err := validateHost(cfg.Server); err != nil {
		errs = append(errs, ValidationError{Field: "server", Message: err.Error()})
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		errs = append(errs, ValidationError{
			Field:   "port",
			Message: fmt.Sprintf("must be in 1-65535 (got %d)", cfg.Port),
		})
	}

	if cfg.Timeout <= 0 {
		errs = append(errs, ValidationError{Field: "timeout", Message: "must be positive"})
	}

	if cfg.Channels < 1 {
		errs = append(errs, ValidationError{Field: "channels", Message: "must be at least 1"})
	}

	if cfg.Frequency < 1 {
		errs = append(errs, ValidationError{Field: "frequency", Message: "must be at least 1"})
	}

	if cfg.HistoryLimit < 0 {
		errs = append(errs, ValidationError{Field: "history_limit", Message: "must be 0 (unlimited) or positive"})
	}

	if cfg.BufferSize < 1 {
		errs = append(errs, ValidationError{Field: "buffer_size", Message: "must be at least 1"})
	}

	if cfg.DropThreshold <= 0 || cfg.DropThreshold >= 1 {
		errs = append(errs, ValidationError{Field: "drop_threshold", Message: "must be between 0 and 1"})
	}

	if cfg.LogLines < 1 {
		errs = append(errs, ValidationError{Field: "log_lines", Message: "must be at least 1"})
	}

	if cfg.Duration < 0 {
		errs = append(errs, ValidationError{Field: "duration", Message: "must not be negative"})
	}

	// Headless without autostart would never receive anything.
	if !cfg.TUIEnabled && !cfg.AutoStart {
		errs = append(errs, ValidationError{
			Field:   "autostart",
			Message: "required when the dashboard is disabled (-tui=false)",
		})
	}

	// Log format must be valid
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[cfg.LogFormat] {
		errs = append(errs, ValidationError{
			Field:   "log_format",
			Message: fmt.Sprintf("must be 'json' or 'text' (got %q)", cfg.LogFormat),
		})
	}

	if cfg.MetricsAddr != "" {
		if _, _, err := net.SplitHostPort(cfg.MetricsAddr); err != nil {
			errs = append(errs, ValidationError{Field: "metrics_addr", Message: err.Error()})
		}
	}

	// Backoff settings
	if cfg.BackoffInitial <= 0 {
		errs = append(errs, ValidationError{Field: "backoff_initial", Message: "must be positive"})
	}
	if cfg.BackoffMax < cfg.BackoffInitial {
		errs = append(errs, ValidationError{Field: "backoff_max", Message: "must be >= backoff_initial"})
	}
	if cfg.BackoffMultiply < 1.0 {
		errs = append(errs, ValidationError{Field: "backoff_multiply", Message: "must be >= 1.0"})
	}

	// Return combined errors
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// validateHost accepts host names and IP addresses, not URLs.
func validateHost(host string) error {
	if host == "" {
		return errors.New("must not be empty")
	}
	if strings.Contains(host, "://") {
		return errors.New("must be a host name or IP address, not a URL")
	}
	if strings.ContainsAny(host, " /") {
		return fmt.Errorf("invalid host %q", host)
	}
	return nil
}
