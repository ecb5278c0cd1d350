// Package orchestrator wires the monitor together: the shared client state,
// the TCP client it controls, the statistics observer, metrics and the
// dashboard or headless run loop.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/randomizedcoder/go-channel-monitor/internal/client"
	"github.com/randomizedcoder/go-channel-monitor/internal/config"
	"github.com/randomizedcoder/go-channel-monitor/internal/logging"
	"github.com/randomizedcoder/go-channel-monitor/internal/metrics"
	"github.com/randomizedcoder/go-channel-monitor/internal/preflight"
	"github.com/randomizedcoder/go-channel-monitor/internal/state"
	"github.com/randomizedcoder/go-channel-monitor/internal/stats"
	"github.com/randomizedcoder/go-channel-monitor/internal/timeseries"
	"github.com/randomizedcoder/go-channel-monitor/internal/tui"
)

// sampleInterval is how often the rate tracker and client counters are
// sampled.
const sampleInterval = time.Second

// Orchestrator coordinates all components of a monitoring session.
type Orchestrator struct {
	config  *config.Config
	logger  *slog.Logger
	version string
	out     io.Writer

	state    *state.ClientState
	observer *stats.Observer
	rates    *timeseries.RateTracker

	registry      *prometheus.Registry
	metrics       *metrics.Collector
	metricsServer *metrics.Server

	// Latest client built by the controller factory
	clientMu sync.Mutex
	client   *client.TCPClient

	startTime time.Time
}

// New creates an Orchestrator with the given configuration.
func New(cfg *config.Config, logger *slog.Logger, version string) *Orchestrator {
	o := &Orchestrator{
		config:  cfg,
		version: version,
		out:     os.Stdout,
		rates:   timeseries.NewRateTracker(0),
	}

	o.state = state.New(state.Config{
		Frequency:         cfg.Frequency,
		Channels:          cfg.Channels,
		HistoryLimit:      cfg.HistoryLimit,
		LogLimit:          cfg.LogLines,
		ControllerFactory: o.newController,
	})

	// Mirror log records into the state so the dashboard can show them.
	level := "info"
	if cfg.Verbose {
		level = "debug"
	}
	o.logger = logging.WithRecorder(logger, o.state, level)

	// Metrics on a private registry with the runtime collectors.
	o.registry = prometheus.NewRegistry()
	o.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	o.metrics = metrics.NewCollectorWithRegistry(metrics.CollectorConfig{
		Version: version,
		Server:  cfg.ServerAddr(),
	}, o.registry)
	o.metrics.SetConfig(cfg.Channels, cfg.Frequency)

	if cfg.MetricsAddr != "" {
		o.metricsServer = metrics.NewServer(cfg.MetricsAddr, o.registry, o.ready, o.logger)
	}

	o.observer = stats.NewObserver(stats.ObserverConfig{
		Store:   o.state,
		Logger:  o.logger,
		OnStats: o.onStats,
	})

	// Observers run in registration order: statistics first, so the
	// metrics observer sees the fresh aggregates.
	o.state.Subscribe(o.onStatsEvent)
	o.state.Subscribe(o.onMetricsEvent)

	return o
}

// SetOutput redirects the exit summary and metrics dump (default stdout).
func (o *Orchestrator) SetOutput(w io.Writer) {
	o.out = w
}

// Run executes the monitoring session. It blocks until the dashboard quits,
// the duration elapses, a signal arrives or ctx is cancelled.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.startTime = time.Now()

	// Run preflight checks
	if !o.config.SkipPreflight {
		result := preflight.RunAll(preflight.Options{
			ServerAddr:  o.config.ServerAddr(),
			DialTimeout: o.config.Timeout,
			MetricsAddr: o.config.MetricsAddr,
		})
		preflight.PrintResults(o.out, result)
		if !result.Passed {
			return errors.New("preflight checks failed (use -skip-preflight to override)")
		}
	}

	// Build the controller for the configured port.
	if err := o.state.SetPort(o.config.Port); err != nil {
		return fmt.Errorf("configure client: %w", err)
	}

	// Start metrics server
	if o.metricsServer != nil {
		if err := o.metricsServer.Start(); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	samplerDone := make(chan struct{})
	go func() {
		defer close(samplerDone)
		o.sampleLoop(ctx)
	}()

	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	// Setup duration timer if configured
	var durationTimer <-chan time.Time
	if o.config.Duration > 0 {
		timer := time.NewTimer(o.config.Duration)
		defer timer.Stop()
		durationTimer = timer.C
	}

	o.logger.Info("monitor_starting",
		"server", o.config.ServerAddr(),
		"channels", o.config.Channels,
		"frequency", o.config.Frequency,
		"tui", o.config.TUIEnabled,
	)

	if o.config.AutoStart {
		if _, err := o.toggleTo(state.StatusStarted); err != nil {
			o.shutdown(cancel, samplerDone)
			return fmt.Errorf("autostart: %w", err)
		}
	}

	var runErr error
	if o.config.TUIEnabled {
		runErr = o.runDashboard(ctx, sigCh, durationTimer)
	} else {
		o.waitHeadless(ctx, sigCh, durationTimer)
	}

	o.shutdown(cancel, samplerDone)

	if err := o.printExitSummary(); err != nil {
		o.logger.Warn("exit_summary_failed", "error", err)
	}
	if o.config.PrintMetrics {
		fmt.Fprintln(o.out)
		if err := metrics.WriteText(o.out, o.registry); err != nil {
			o.logger.Warn("print_metrics_failed", "error", err)
		}
	}

	return runErr
}

// runDashboard runs the Bubble Tea program until it quits, or until the
// duration or a signal ends the session.
func (o *Orchestrator) runDashboard(ctx context.Context, sigCh <-chan os.Signal, durationTimer <-chan time.Time) error {
	model := tui.New(tui.Config{
		Server:      o.config.Server,
		MetricsAddr: o.metricsAddr(),
		State:       o.state,
		Rates:       o.rates,
		ClientStats: o.ClientStats,
		OnToggle:    o.recordToggle,
	})

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	done := make(chan error, 1)
	go func() {
		_, err := p.Run()
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return fmt.Errorf("dashboard: %w", err)
		}
		return nil
	case sig := <-sigCh:
		o.logger.Info("received_signal", "signal", sig.String())
	case <-durationTimer:
		o.logger.Info("duration_elapsed", "duration", o.config.Duration.String())
	case <-ctx.Done():
		o.logger.Info("context_cancelled")
	}

	tui.SendQuit(p)
	<-done
	return nil
}

// waitHeadless blocks until the session ends without a dashboard.
func (o *Orchestrator) waitHeadless(ctx context.Context, sigCh <-chan os.Signal, durationTimer <-chan time.Time) {
	select {
	case sig := <-sigCh:
		o.logger.Info("received_signal", "signal", sig.String())
	case <-durationTimer:
		o.logger.Info("duration_elapsed", "duration", o.config.Duration.String())
	case <-ctx.Done():
		o.logger.Info("context_cancelled")
	}
}

// shutdown stops the client, the sampler and the metrics server.
func (o *Orchestrator) shutdown(cancel context.CancelFunc, samplerDone <-chan struct{}) {
	if o.state.IsStarted() {
		if _, err := o.toggleTo(state.StatusStopped); err != nil {
			o.logger.Warn("client_stop_failed", "error", err)
		}
	}

	cancel()
	<-samplerDone
	o.sample()

	if o.metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := o.metricsServer.Shutdown(shutdownCtx); err != nil {
			o.logger.Warn("metrics_server_shutdown_error", "error", err)
		}
	}
}

// toggleTo moves the state to the wanted status and records the outcome.
func (o *Orchestrator) toggleTo(want state.Status) (state.Status, error) {
	var err error
	if want == state.StatusStarted {
		err = o.state.Start()
	} else {
		err = o.state.Stop()
	}
	status := o.state.Status()
	o.recordToggle(status, err)
	return status, err
}

// recordToggle logs and counts a start/stop request.
func (o *Orchestrator) recordToggle(status state.Status, err error) {
	o.metrics.RecordToggle(status.String(), err)
	if err != nil {
		o.logger.Warn("toggle_failed", "status", status.String(), "error", err)
		return
	}
	o.logger.Info("client_toggled", "status", status.String())
}

// =============================================================================
// Controller factory
// =============================================================================

// newController builds a TCP client for port. Used by the state on SetPort.
func (o *Orchestrator) newController(port int) (state.Controller, error) {
	c := client.NewTCPClient(client.Config{
		Host:   o.config.Server,
		Port:   port,
		Sink:   o.state,
		Logger: o.logger,

		DialTimeout: o.config.Timeout,
		Backoff: client.BackoffConfig{
			Initial:    o.config.BackoffInitial,
			Max:        o.config.BackoffMax,
			Multiplier: o.config.BackoffMultiply,
			JitterPct:  0.4,
		},
		BufferSize:    o.config.BufferSize,
		DropThreshold: o.config.DropThreshold,
		Seed:          time.Now().UnixNano(),
	})

	o.clientMu.Lock()
	o.client = c
	o.clientMu.Unlock()
	return c, nil
}

// ClientStats returns the counters of the current client; ok is false
// before a port was configured.
func (o *Orchestrator) ClientStats() (client.Stats, bool) {
	o.clientMu.Lock()
	c := o.client
	o.clientMu.Unlock()
	if c == nil {
		return client.Stats{}, false
	}
	return c.Stats(), true
}

// =============================================================================
// Observers
// =============================================================================

// onStatsEvent recomputes the aggregates after every sample, and after a
// config change since lowering the channel count drops values.
func (o *Orchestrator) onStatsEvent(ev state.Event) {
	if ev.Kind != state.EventSample && ev.Kind != state.EventConfig {
		return
	}
	if err := o.observer.Update(); err != nil && !errors.Is(err, stats.ErrEmptyInput) {
		o.logger.Warn("stats_update_failed", "error", err)
	}
}

// onMetricsEvent keeps the rate tracker and the gauges in step with the state.
func (o *Orchestrator) onMetricsEvent(ev state.Event) {
	switch ev.Kind {
	case state.EventSample:
		o.rates.Add(1)
	case state.EventStatus:
		o.metrics.SetStarted(ev.Status == state.StatusStarted)
	case state.EventConfig:
		o.metrics.SetConfig(o.state.Channels(), o.state.Frequency())
	case state.EventReset:
		o.metrics.ResetStats()
		o.rates.Reset()
	}
}

// onStats exports a recomputation to the collector.
func (o *Orchestrator) onStats(stat stats.DataStat, summaries []stats.ChannelSummary) {
	o.metrics.RecordStats(toStatsUpdate(stat, summaries))
}

func toStatsUpdate(stat stats.DataStat, summaries []stats.ChannelSummary) metrics.StatsUpdate {
	u := metrics.StatsUpdate{
		Highest:  stat.Highest,
		Lowest:   stat.Lowest,
		Average:  stat.Average,
		Channels: make([]metrics.ChannelUpdate, len(summaries)),
	}
	for i, cs := range summaries {
		u.Channels[i] = metrics.ChannelUpdate{
			Channel: cs.Channel,
			Count:   cs.Count,
			Last:    cs.Last,
			Average: cs.Stat.Average,
			P50:     cs.P50,
			P95:     cs.P95,
		}
	}
	return u
}

// =============================================================================
// Sampling
// =============================================================================

func (o *Orchestrator) sampleLoop(ctx context.Context) {
	ticker := time.NewTicker(sampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.sample()
		}
	}
}

// sample snapshots the rate tracker and exports the client counters.
func (o *Orchestrator) sample() {
	o.rates.RecordSample()
	o.metrics.SetSampleRate(o.rates.GetStats().Avg1s)

	if s, ok := o.ClientStats(); ok {
		o.metrics.RecordClientStats(metrics.ClientStatsUpdate{
			Connected:    s.Connected,
			Connections:  s.Connections,
			Reconnects:   s.Reconnects,
			LinesRead:    s.LinesRead,
			LinesDropped: s.LinesDropped,
			Malformed:    s.Malformed,
			Samples:      s.Samples,
		})
	}
}

// ready reports readiness for /readyz: the client must be started.
func (o *Orchestrator) ready() error {
	if !o.state.IsStarted() {
		return errors.New("client stopped")
	}
	return nil
}

func (o *Orchestrator) metricsAddr() string {
	if o.metricsServer != nil {
		return o.metricsServer.Addr()
	}
	return ""
}

// =============================================================================
// Accessors
// =============================================================================

// State returns the shared client state.
func (o *Orchestrator) State() *state.ClientState {
	return o.state
}

// Registry returns the metrics registry.
func (o *Orchestrator) Registry() *prometheus.Registry {
	return o.registry
}

// Metrics returns the metrics collector for external access.
func (o *Orchestrator) Metrics() *metrics.Collector {
	return o.metrics
}
