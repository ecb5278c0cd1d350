// Package metrics provides Prometheus metrics for go-channel-monitor.
//
// The collector exports the client status and configuration, the aggregate
// statistics over the received values, per-channel quantiles and the health
// of the socket pipeline.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "chanmon"

// Collector manages all Prometheus metrics for the monitor.
type Collector struct {
	info        *prometheus.GaugeVec
	started     prometheus.Gauge
	channels    prometheus.Gauge
	frequencyHz prometheus.Gauge

	// Aggregates over all received values
	highest prometheus.Gauge
	lowest  prometheus.Gauge
	average prometheus.Gauge

	// Per channel
	channelLast    *prometheus.GaugeVec
	channelCount   *prometheus.GaugeVec
	channelP50     *prometheus.GaugeVec
	channelP95     *prometheus.GaugeVec
	channelAverage *prometheus.GaugeVec

	// Stream
	samplesTotal     prometheus.Counter
	samplesPerSecond prometheus.Gauge
	togglesTotal     *prometheus.CounterVec

	// Pipeline health
	connected           prometheus.Gauge
	connectionsTotal    prometheus.Counter
	reconnectsTotal     prometheus.Counter
	linesReadTotal      prometheus.Counter
	linesDroppedTotal   prometheus.Counter
	linesMalformedTotal prometheus.Counter

	// Internal tracking for delta calculations
	mu               sync.Mutex
	prevSamples      int64
	prevConnections  int64
	prevReconnects   int64
	prevLinesRead    int64
	prevLinesDropped int64
	prevMalformed    int64
	knownChannels    int

	// For summary generation
	startTime    time.Time
	peakRate     float64
	toggleCounts map[string]int64
}

// CollectorConfig holds configuration for the collector.
type CollectorConfig struct {
	Version string
	Server  string
}

// NewCollector creates a collector registered on the default registry.
func NewCollector(cfg CollectorConfig) *Collector {
	return NewCollectorWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewCollectorWithRegistry creates a collector with a custom registry.
// Useful for testing.
func NewCollectorWithRegistry(cfg CollectorConfig, registry prometheus.Registerer) *Collector {
	c := &Collector{
		info: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "info",
			Help:      "Information about the monitor (value always 1)",
		}, []string{"version", "server"}),
		started: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "client_started",
			Help:      "1 if the client is started, 0 if stopped",
		}),
		channels: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "channels",
			Help:      "Configured channel count",
		}),
		frequencyHz: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "frequency_hertz",
			Help:      "Configured sampling frequency",
		}),

		highest: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "value_highest",
			Help:      "Highest value received across all channels",
		}),
		lowest: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "value_lowest",
			Help:      "Lowest value received across all channels",
		}),
		average: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "value_average",
			Help:      "Average of all values received across all channels",
		}),

		channelLast: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "channel_last_value",
			Help:      "Most recent value per channel",
		}, []string{"channel"}),
		channelCount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "channel_values",
			Help:      "Retained values per channel",
		}, []string{"channel"}),
		channelP50: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "channel_p50",
			Help:      "Median of retained values per channel",
		}, []string{"channel"}),
		channelP95: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "channel_p95",
			Help:      "95th percentile of retained values per channel",
		}, []string{"channel"}),
		channelAverage: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "channel_average",
			Help:      "Average of retained values per channel",
		}, []string{"channel"}),

		samplesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_total",
			Help:      "Samples received from the server",
		}),
		samplesPerSecond: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "samples_per_second",
			Help:      "Observed sample rate over the last second",
		}),
		togglesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "toggles_total",
			Help:      "Start/stop transitions by resulting status and outcome",
		}, []string{"to", "result"}),

		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connected",
			Help:      "1 while a server connection is open",
		}),
		connectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_total",
			Help:      "Server connections established",
		}),
		reconnectsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconnects_total",
			Help:      "Reconnect attempts after a lost connection",
		}),
		linesReadTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lines_read_total",
			Help:      "Lines read from the server socket",
		}),
		linesDroppedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lines_dropped_total",
			Help:      "Lines dropped because the decoder fell behind",
		}),
		linesMalformedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lines_malformed_total",
			Help:      "Lines that could not be decoded",
		}),

		startTime:    time.Now(),
		toggleCounts: make(map[string]int64),
	}

	registry.MustRegister(
		c.info,
		c.started,
		c.channels,
		c.frequencyHz,
		c.highest,
		c.lowest,
		c.average,
		c.channelLast,
		c.channelCount,
		c.channelP50,
		c.channelP95,
		c.channelAverage,
		c.samplesTotal,
		c.samplesPerSecond,
		c.togglesTotal,
		c.connected,
		c.connectionsTotal,
		c.reconnectsTotal,
		c.linesReadTotal,
		c.linesDroppedTotal,
		c.linesMalformedTotal,
	)

	c.info.WithLabelValues(cfg.Version, cfg.Server).Set(1)
	return c
}

// =============================================================================
// Update Methods
// =============================================================================

// ChannelUpdate holds the per-channel values exported by RecordStats.
// It mirrors stats.ChannelSummary to keep this package free of domain imports.
type ChannelUpdate struct {
	Channel int
	Count   int
	Last    int
	Average float64
	P50     float64
	P95     float64
}

// StatsUpdate holds the aggregates exported by RecordStats.
type StatsUpdate struct {
	Highest  int
	Lowest   int
	Average  float64
	Channels []ChannelUpdate
}

// RecordStats updates the aggregate and per-channel gauges.
func (c *Collector) RecordStats(u StatsUpdate) {
	c.highest.Set(float64(u.Highest))
	c.lowest.Set(float64(u.Lowest))
	c.average.Set(u.Average)

	for _, ch := range u.Channels {
		label := strconv.Itoa(ch.Channel)
		c.channelCount.WithLabelValues(label).Set(float64(ch.Count))
		if ch.Count == 0 {
			continue
		}
		c.channelLast.WithLabelValues(label).Set(float64(ch.Last))
		c.channelAverage.WithLabelValues(label).Set(ch.Average)
		c.channelP50.WithLabelValues(label).Set(ch.P50)
		c.channelP95.WithLabelValues(label).Set(ch.P95)
	}

	c.mu.Lock()
	if len(u.Channels) > c.knownChannels {
		c.knownChannels = len(u.Channels)
	}
	c.mu.Unlock()
}

// ResetStats clears the aggregate and per-channel gauges (after a data reset).
func (c *Collector) ResetStats() {
	c.highest.Set(0)
	c.lowest.Set(0)
	c.average.Set(0)
	c.channelLast.Reset()
	c.channelCount.Reset()
	c.channelAverage.Reset()
	c.channelP50.Reset()
	c.channelP95.Reset()

	c.mu.Lock()
	c.knownChannels = 0
	c.mu.Unlock()
}

// SetConfig updates the configuration gauges.
func (c *Collector) SetConfig(channels, frequency int) {
	c.channels.Set(float64(channels))
	c.frequencyHz.Set(float64(frequency))
}

// SetStarted updates the client status gauge.
func (c *Collector) SetStarted(started bool) {
	if started {
		c.started.Set(1)
	} else {
		c.started.Set(0)
	}
}

// RecordToggle counts a start/stop transition.
func (c *Collector) RecordToggle(to string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.togglesTotal.WithLabelValues(to, result).Inc()

	c.mu.Lock()
	c.toggleCounts[to+"/"+result]++
	c.mu.Unlock()
}

// ClientStatsUpdate holds cumulative client counters. It mirrors
// client.Stats to avoid an import from this package.
type ClientStatsUpdate struct {
	Connected    bool
	Connections  int64
	Reconnects   int64
	LinesRead    int64
	LinesDropped int64
	Malformed    int64
	Samples      int64
}

// RecordClientStats converts cumulative counters into counter increments.
// A counter that went backwards (a new client after a port change) is
// treated as a restart from zero.
func (c *Collector) RecordClientStats(u ClientStatsUpdate) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if u.Connected {
		c.connected.Set(1)
	} else {
		c.connected.Set(0)
	}

	c.connectionsTotal.Add(delta(&c.prevConnections, u.Connections))
	c.reconnectsTotal.Add(delta(&c.prevReconnects, u.Reconnects))
	c.linesReadTotal.Add(delta(&c.prevLinesRead, u.LinesRead))
	c.linesDroppedTotal.Add(delta(&c.prevLinesDropped, u.LinesDropped))
	c.linesMalformedTotal.Add(delta(&c.prevMalformed, u.Malformed))
	c.samplesTotal.Add(delta(&c.prevSamples, u.Samples))
}

// SetSampleRate updates the observed sample rate gauge.
func (c *Collector) SetSampleRate(perSecond float64) {
	c.samplesPerSecond.Set(perSecond)

	c.mu.Lock()
	if perSecond > c.peakRate {
		c.peakRate = perSecond
	}
	c.mu.Unlock()
}

// delta returns the non-negative increase from *prev to cur and stores cur.
// Must be called with mu held.
func delta(prev *int64, cur int64) float64 {
	d := cur - *prev
	if d < 0 {
		d = cur
	}
	*prev = cur
	return float64(d)
}

// =============================================================================
// Summary
// =============================================================================

// Summary holds run-level values for the exit report.
type Summary struct {
	Duration     time.Duration
	PeakRate     float64
	Channels     int
	ToggleCounts map[string]int64
}

// GenerateSummary returns the run-level values tracked by the collector.
func (c *Collector) GenerateSummary() *Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	counts := make(map[string]int64, len(c.toggleCounts))
	for k, v := range c.toggleCounts {
		counts[k] = v
	}

	return &Summary{
		Duration:     time.Since(c.startTime),
		PeakRate:     c.peakRate,
		Channels:     c.knownChannels,
		ToggleCounts: counts,
	}
}
