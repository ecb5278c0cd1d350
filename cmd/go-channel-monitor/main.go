// Package main provides the go-channel-monitor CLI entry point.
//
// go-channel-monitor connects to a multi-channel data server, keeps running
// statistics over the values it streams and shows them on a terminal
// dashboard or exports them as Prometheus metrics.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/randomizedcoder/go-channel-monitor/internal/config"
	"github.com/randomizedcoder/go-channel-monitor/internal/logging"
	"github.com/randomizedcoder/go-channel-monitor/internal/orchestrator"
)

// version is set at build time via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0" ./cmd/go-channel-monitor
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// Handle version flag early (before flag parsing)
	if len(os.Args) > 1 {
		arg := os.Args[1]
		if arg == "-version" || arg == "--version" || arg == "version" {
			fmt.Printf("go-channel-monitor %s\n", version)
			return 0
		}
	}

	cfg, err := config.ParseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		return 1
	}

	// The dashboard owns the terminal; log lines still reach its log pane.
	var logger *slog.Logger
	if cfg.TUIEnabled {
		logger = logging.NewLoggerWithWriter(io.Discard, "json", "info")
	} else {
		logger = logging.NewLogger(cfg.LogFormat, "info", cfg.Verbose)
	}
	logging.SetDefault(logger)

	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return 1
	}

	logger.Info("starting",
		"version", version,
		"server", cfg.ServerAddr(),
		"channels", cfg.Channels,
		"frequency", cfg.Frequency,
		"metrics_addr", cfg.MetricsAddr,
	)

	if !cfg.TUIEnabled {
		printBanner(cfg)
	}

	orch := orchestrator.New(cfg, logger, version)
	if err := orch.Run(context.Background()); err != nil {
		logger.Error("orchestrator_failed", "error", err)
		if cfg.TUIEnabled {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}

	return 0
}

// printBanner prints the startup banner for headless runs.
func printBanner(cfg *config.Config) {
	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════════════╗")
	fmt.Println("║                       go-channel-monitor                          ║")
	fmt.Println("║         Multi-channel Stream Statistics over TCP                  ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Server:      %s\n", cfg.ServerAddr())
	fmt.Printf("  Channels:    %d at %d Hz\n", cfg.Channels, cfg.Frequency)
	if cfg.HistoryLimit > 0 {
		fmt.Printf("  History:     %d values per channel\n", cfg.HistoryLimit)
	}
	if cfg.MetricsAddr != "" {
		fmt.Printf("  Metrics:     http://%s/metrics\n", cfg.MetricsAddr)
	}
	if cfg.Duration > 0 {
		fmt.Printf("  Duration:    %s\n", cfg.Duration)
	}
	fmt.Println()
	fmt.Println("Press Ctrl+C to stop.")
	fmt.Println()
}
