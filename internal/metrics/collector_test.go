package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

// =============================================================================
// Test Helpers
// =============================================================================

// newTestCollector creates a collector with an isolated registry.
func newTestCollector(t *testing.T) (*Collector, *prometheus.Registry) {
	t.Helper()
	registry := prometheus.NewRegistry()
	c := NewCollectorWithRegistry(CollectorConfig{Version: "test", Server: "127.0.0.1"}, registry)
	return c, registry
}

func snapshot(t *testing.T, registry *prometheus.Registry) Families {
	t.Helper()
	f, err := Snapshot(registry)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	return f
}

func wantValue(t *testing.T, f Families, name string, want float64) {
	t.Helper()
	got, ok := f.Value(name)
	if !ok {
		t.Fatalf("%s missing", name)
	}
	if got != want {
		t.Errorf("%s = %v, want %v", name, got, want)
	}
}

// =============================================================================
// Tests
// =============================================================================

func TestNewCollector_Info(t *testing.T) {
	_, registry := newTestCollector(t)
	f := snapshot(t, registry)

	v, ok := f.LabelValue("chanmon_info", "version", "test")
	if !ok || v != 1 {
		t.Errorf("chanmon_info{version=test} = %v, %v; want 1, true", v, ok)
	}
}

func TestNewCollector_DoubleRegisterPanics(t *testing.T) {
	registry := prometheus.NewRegistry()
	NewCollectorWithRegistry(CollectorConfig{}, registry)

	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	NewCollectorWithRegistry(CollectorConfig{}, registry)
}

func TestRecordStats(t *testing.T) {
	c, registry := newTestCollector(t)

	c.RecordStats(StatsUpdate{
		Highest: 9,
		Lowest:  -2,
		Average: 3.5,
		Channels: []ChannelUpdate{
			{Channel: 0, Count: 3, Last: 9, Average: 5, P50: 5, P95: 9},
			{Channel: 1, Count: 0},
		},
	})

	f := snapshot(t, registry)
	wantValue(t, f, "chanmon_value_highest", 9)
	wantValue(t, f, "chanmon_value_lowest", -2)
	wantValue(t, f, "chanmon_value_average", 3.5)

	if v, ok := f.LabelValue("chanmon_channel_last_value", "channel", "0"); !ok || v != 9 {
		t.Errorf("channel 0 last = %v, %v; want 9, true", v, ok)
	}
	if _, ok := f.LabelValue("chanmon_channel_last_value", "channel", "1"); ok {
		t.Error("empty channel should not export a last value")
	}
	if v, ok := f.LabelValue("chanmon_channel_values", "channel", "1"); !ok || v != 0 {
		t.Errorf("channel 1 count = %v, %v; want 0, true", v, ok)
	}

	if got := c.GenerateSummary().Channels; got != 2 {
		t.Errorf("summary channels = %d, want 2", got)
	}
}

func TestResetStats(t *testing.T) {
	c, registry := newTestCollector(t)
	c.RecordStats(StatsUpdate{Highest: 4, Lowest: 1, Average: 2, Channels: []ChannelUpdate{{Channel: 0, Count: 1, Last: 4}}})
	c.ResetStats()

	f := snapshot(t, registry)
	wantValue(t, f, "chanmon_value_highest", 0)
	if _, ok := f["chanmon_channel_last_value"]; ok {
		t.Error("per-channel families should be empty after reset")
	}
}

func TestSetConfigAndStarted(t *testing.T) {
	c, registry := newTestCollector(t)
	c.SetConfig(4, 25)
	c.SetStarted(true)

	f := snapshot(t, registry)
	wantValue(t, f, "chanmon_channels", 4)
	wantValue(t, f, "chanmon_frequency_hertz", 25)
	wantValue(t, f, "chanmon_client_started", 1)

	c.SetStarted(false)
	wantValue(t, snapshot(t, registry), "chanmon_client_started", 0)
}

func TestRecordToggle(t *testing.T) {
	c, registry := newTestCollector(t)
	c.RecordToggle("started", nil)
	c.RecordToggle("stopped", nil)
	c.RecordToggle("started", errors.New("dial refused"))

	f := snapshot(t, registry)
	if got := f.Sum("chanmon_toggles_total"); got != 3 {
		t.Errorf("toggles total = %v, want 3", got)
	}

	counts := c.GenerateSummary().ToggleCounts
	if counts["started/ok"] != 1 || counts["started/error"] != 1 || counts["stopped/ok"] != 1 {
		t.Errorf("toggle counts = %v", counts)
	}
}

func TestRecordClientStats_Deltas(t *testing.T) {
	tests := []struct {
		name    string
		updates []ClientStatsUpdate
		want    float64
	}{
		{
			name:    "single update",
			updates: []ClientStatsUpdate{{Samples: 10}},
			want:    10,
		},
		{
			name:    "monotonic",
			updates: []ClientStatsUpdate{{Samples: 10}, {Samples: 25}, {Samples: 25}},
			want:    25,
		},
		{
			name:    "restart after new client",
			updates: []ClientStatsUpdate{{Samples: 10}, {Samples: 4}},
			want:    14,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, registry := newTestCollector(t)
			for _, u := range tt.updates {
				c.RecordClientStats(u)
			}
			wantValue(t, snapshot(t, registry), "chanmon_samples_total", tt.want)
		})
	}
}

func TestRecordClientStats_Connected(t *testing.T) {
	c, registry := newTestCollector(t)
	c.RecordClientStats(ClientStatsUpdate{Connected: true, Connections: 1, LinesRead: 7, Malformed: 2})

	f := snapshot(t, registry)
	wantValue(t, f, "chanmon_connected", 1)
	wantValue(t, f, "chanmon_connections_total", 1)
	wantValue(t, f, "chanmon_lines_read_total", 7)
	wantValue(t, f, "chanmon_lines_malformed_total", 2)
}

func TestSetSampleRate_Peak(t *testing.T) {
	c, registry := newTestCollector(t)
	c.SetSampleRate(10)
	c.SetSampleRate(42)
	c.SetSampleRate(5)

	wantValue(t, snapshot(t, registry), "chanmon_samples_per_second", 5)
	if got := c.GenerateSummary().PeakRate; got != 42 {
		t.Errorf("PeakRate = %v, want 42", got)
	}
}
