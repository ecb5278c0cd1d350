package config

import (
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
)

// ParseFlags parses the process command line and environment.
func ParseFlags() (*Config, error) {
	return ParseArgs(flag.CommandLine, os.Args[1:], os.Getenv)
}

// ParseArgs parses args into a Config using fs. Environment values read
// through getenv replace the defaults; explicit flags win over both.
func ParseArgs(fs *flag.FlagSet, args []string, getenv func(string) string) (*Config, error) {
	cfg := DefaultConfig()

	if err := applyEnv(cfg, getenv); err != nil {
		return nil, err
	}

	fs.Usage = func() {
		out := fs.Output()
		fmt.Fprintf(out, `go-channel-monitor - live statistics for a multi-channel value stream

Usage:
  go-channel-monitor [flags] [host[:port]]

Server Flags:
`)
		// Print flags by category
		printFlagCategory(fs, out, []string{"server", "port", "timeout"})

		fmt.Fprintf(out, "\nAcquisition:\n")
		printFlagCategory(fs, out, []string{"channels", "frequency", "history", "buffer"})

		fmt.Fprintf(out, "\nRun Mode:\n")
		printFlagCategory(fs, out, []string{"tui", "autostart", "duration", "skip-preflight"})

		fmt.Fprintf(out, "\nReconnect:\n")
		printFlagCategory(fs, out, []string{"backoff-initial", "backoff-max", "backoff-multiply"})

		fmt.Fprintf(out, "\nObservability:\n")
		printFlagCategory(fs, out, []string{"metrics", "print-metrics", "v", "log-format", "log-lines"})

		fmt.Fprintf(out, `
Environment:
  %s  server host (overridden by -server)
  %s    server port (overridden by -port)

Examples:
  # Dashboard against a local server
  go-channel-monitor -channels 4 -port 9300

  # Headless capture for one minute, then print the final metrics
  go-channel-monitor -tui=false -autostart -duration 1m -print-metrics 10.0.0.5:9300

`, EnvServer, EnvPort)
	}

	// Server
	fs.StringVar(&cfg.Server, "server", cfg.Server, "Server host name or IP")
	fs.IntVar(&cfg.Port, "port", cfg.Port, "Server TCP port")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Dial timeout")

	// Acquisition
	fs.IntVar(&cfg.Channels, "channels", cfg.Channels, "Number of channels requested from the server")
	fs.IntVar(&cfg.Frequency, "frequency", cfg.Frequency, "Expected samples per second")
	fs.IntVar(&cfg.HistoryLimit, "history", cfg.HistoryLimit, "Values kept per channel (0 = unlimited)")
	fs.IntVar(&cfg.BufferSize, "buffer", cfg.BufferSize, "Lines buffered between socket and decoder (increase if seeing drops)")
	// Hidden advanced flag
	fs.Float64Var(&cfg.DropThreshold, "drop-threshold", cfg.DropThreshold, "")

	// Run mode
	fs.BoolVar(&cfg.TUIEnabled, "tui", cfg.TUIEnabled, "Enable live terminal dashboard (use -tui=false for headless)")
	fs.BoolVar(&cfg.AutoStart, "autostart", cfg.AutoStart, "Start receiving immediately")
	fs.DurationVar(&cfg.Duration, "duration", cfg.Duration, "Run duration (0 = until interrupted)")
	fs.BoolVar(&cfg.SkipPreflight, "skip-preflight", cfg.SkipPreflight, "Skip preflight checks")

	// Reconnect
	fs.DurationVar(&cfg.BackoffInitial, "backoff-initial", cfg.BackoffInitial, "First reconnect delay")
	fs.DurationVar(&cfg.BackoffMax, "backoff-max", cfg.BackoffMax, "Maximum reconnect delay")
	fs.Float64Var(&cfg.BackoffMultiply, "backoff-multiply", cfg.BackoffMultiply, "Reconnect delay multiplier")

	// Observability
	fs.StringVar(&cfg.MetricsAddr, "metrics", cfg.MetricsAddr, "Prometheus metrics address (empty = disabled)")
	fs.BoolVar(&cfg.PrintMetrics, "print-metrics", cfg.PrintMetrics, "Print the final metrics in text exposition format on exit")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Verbose logging")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, `Log format: "json" or "text"`)
	fs.IntVar(&cfg.LogLines, "log-lines", cfg.LogLines, "Log lines kept for the dashboard")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Positional argument: host or host:port
	if rest := fs.Args(); len(rest) >= 1 {
		if err := applyTarget(cfg, rest[0]); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// applyEnv applies CHANMON_SERVER and CHANMON_PORT.
func applyEnv(cfg *Config, getenv func(string) string) error {
	if getenv == nil {
		return nil
	}
	if v := strings.TrimSpace(getenv(EnvServer)); v != "" {
		cfg.Server = v
	}
	if v := strings.TrimSpace(getenv(EnvPort)); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: invalid port %q: %w", EnvPort, v, err)
		}
		cfg.Port = port
	}
	return nil
}

// applyTarget sets the server from a "host" or "host:port" argument.
func applyTarget(cfg *Config, target string) error {
	host, portStr, err := net.SplitHostPort(target)
	if err != nil {
		// No port: the whole argument is the host.
		cfg.Server = strings.Trim(target, "[]")
		return nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("invalid port in %q: %w", target, err)
	}
	cfg.Server = host
	cfg.Port = port
	return nil
}

func joinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// printFlagCategory prints flags matching the given names (helper for usage).
func printFlagCategory(fs *flag.FlagSet, out io.Writer, names []string) {
	fs.VisitAll(func(f *flag.Flag) {
		for _, name := range names {
			if f.Name == name {
				fmt.Fprintf(out, "  -%s %s\n    \t%s", f.Name, flagType(f), f.Usage)
				if f.DefValue != "" && f.DefValue != "false" && f.DefValue != "0" && f.DefValue != "0s" {
					fmt.Fprintf(out, " (default %s)", f.DefValue)
				}
				fmt.Fprintln(out)
				return
			}
		}
	})
}

// flagType returns a type hint for the flag value.
func flagType(f *flag.Flag) string {
	switch f.DefValue {
	case "true", "false":
		return ""
	}

	// Check if it looks like a duration
	if strings.HasSuffix(f.DefValue, "s") || strings.HasSuffix(f.DefValue, "m") || strings.HasSuffix(f.DefValue, "h") {
		return "duration"
	}

	// Check if numeric
	if _, err := strconv.ParseFloat(f.DefValue, 64); err == nil {
		if strings.Contains(f.DefValue, ".") {
			return "float"
		}
		return "int"
	}

	return "string"
}
