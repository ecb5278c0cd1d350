package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/randomizedcoder/go-channel-monitor/internal/client"
	"github.com/randomizedcoder/go-channel-monitor/internal/state"
	"github.com/randomizedcoder/go-channel-monitor/internal/stats"
	"github.com/randomizedcoder/go-channel-monitor/internal/timeseries"
)

// =============================================================================
// Test Helpers
// =============================================================================

type fakeController struct {
	starts   int
	stops    int
	startErr error
}

func (f *fakeController) Start(channels int) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.starts++
	return nil
}

func (f *fakeController) Stop() error {
	f.stops++
	return nil
}

func newTestState(t *testing.T, ctrl *fakeController) *state.ClientState {
	t.Helper()
	st := state.New(state.Config{
		Frequency: 10,
		Channels:  2,
		ControllerFactory: func(port int) (state.Controller, error) {
			return ctrl, nil
		},
	})
	if err := st.SetPort(9300); err != nil {
		t.Fatalf("SetPort() error = %v", err)
	}
	return st
}

type fixedRates struct{ s timeseries.RateStats }

func (f fixedRates) GetStats() timeseries.RateStats { return f.s }

func key(s string) tea.KeyMsg {
	switch s {
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	mm, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want Model", next)
	}
	return mm, cmd
}

// runToggle presses s, runs the resulting command and feeds its message back.
func runToggle(t *testing.T, m Model) Model {
	t.Helper()
	m, cmd := update(t, m, key("s"))
	if cmd == nil {
		t.Fatal("toggle key returned nil cmd")
	}
	msg := cmd()
	if _, ok := msg.(ToggleMsg); !ok {
		t.Fatalf("toggle cmd returned %T, want ToggleMsg", msg)
	}
	m, _ = update(t, m, msg)
	return m
}

// =============================================================================
// Tests: New / Init
// =============================================================================

func TestNew(t *testing.T) {
	st := newTestState(t, &fakeController{})
	model := New(Config{Server: "127.0.0.1", MetricsAddr: "localhost:17092", State: st})

	if model.width != 80 || model.height != 24 {
		t.Errorf("size = %dx%d, want 80x24", model.width, model.height)
	}
	if model.logLines != 6 {
		t.Errorf("logLines = %d, want default 6", model.logLines)
	}
	if model.snap.channels != 2 || model.snap.frequency != 10 || model.snap.port != 9300 {
		t.Errorf("snapshot = %+v", model.snap)
	}
}

func TestNew_NilState(t *testing.T) {
	model := New(Config{})
	if model.View() == "" {
		t.Error("View() should render without a state")
	}
	if _, cmd := update(t, model, key("s")); cmd != nil {
		t.Error("toggle without state should be a no-op")
	}
}

func TestModel_Init(t *testing.T) {
	if cmd := New(Config{}).Init(); cmd == nil {
		t.Error("Init() returned nil cmd")
	}
}

// =============================================================================
// Tests: Update - Key Messages
// =============================================================================

func TestModel_Update_QuitKeys(t *testing.T) {
	tests := []struct {
		key      string
		wantQuit bool
	}{
		{"q", true},
		{"ctrl+c", true},
		{"esc", true},
		{"c", false},
		{"r", false},
		{"x", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			m := New(Config{State: newTestState(t, &fakeController{})})
			m, _ = update(t, m, key(tt.key))
			if m.quitting != tt.wantQuit {
				t.Errorf("quitting = %v, want %v", m.quitting, tt.wantQuit)
			}
			if tt.wantQuit && m.View() != "" {
				t.Error("View() should be empty after quit")
			}
		})
	}
}

func TestModel_Toggle(t *testing.T) {
	ctrl := &fakeController{}
	st := newTestState(t, ctrl)

	var toggles []state.Status
	m := New(Config{State: st, OnToggle: func(s state.Status, err error) {
		if err == nil {
			toggles = append(toggles, s)
		}
	}})

	m = runToggle(t, m)
	if !st.IsStarted() || !m.Started() {
		t.Fatal("first toggle should start the client")
	}
	if m.toggling {
		t.Error("toggling flag should clear after ToggleMsg")
	}

	m = runToggle(t, m)
	if st.IsStarted() || m.Started() {
		t.Fatal("second toggle should stop the client")
	}

	if ctrl.starts != 1 || ctrl.stops != 1 {
		t.Errorf("controller starts/stops = %d/%d, want 1/1", ctrl.starts, ctrl.stops)
	}
	if len(toggles) != 2 || toggles[0] != state.StatusStarted || toggles[1] != state.StatusStopped {
		t.Errorf("OnToggle statuses = %v", toggles)
	}
}

func TestModel_ToggleWhileToggling(t *testing.T) {
	m := New(Config{State: newTestState(t, &fakeController{})})
	m, first := update(t, m, key("s"))
	if first == nil {
		t.Fatal("expected toggle cmd")
	}
	if _, second := update(t, m, key(" ")); second != nil {
		t.Error("a second toggle while one is pending should be ignored")
	}
}

func TestModel_ToggleError(t *testing.T) {
	ctrl := &fakeController{startErr: errors.New("connection refused")}
	st := newTestState(t, ctrl)

	var gotErr error
	m := New(Config{State: st, OnToggle: func(_ state.Status, err error) { gotErr = err }})
	m = runToggle(t, m)

	if st.IsStarted() {
		t.Error("failed start should leave the client stopped")
	}
	if gotErr == nil {
		t.Error("OnToggle should receive the error")
	}
	if !m.messageErr || !strings.Contains(m.Message(), "connection refused") {
		t.Errorf("footer message = %q (err=%v)", m.Message(), m.messageErr)
	}
}

func TestModel_ChannelKeys(t *testing.T) {
	st := newTestState(t, &fakeController{})
	m := New(Config{State: st})

	m, _ = update(t, m, key("+"))
	m, _ = update(t, m, key("+"))
	if st.Channels() != 4 {
		t.Errorf("Channels() = %d, want 4", st.Channels())
	}

	for i := 0; i < 10; i++ {
		m, _ = update(t, m, key("-"))
	}
	if st.Channels() != 1 {
		t.Errorf("Channels() = %d, want floor of 1", st.Channels())
	}
	if m.snap.channels != 1 {
		t.Errorf("snapshot channels = %d, want 1", m.snap.channels)
	}
}

func TestModel_ChannelKeysWhileStarted(t *testing.T) {
	st := newTestState(t, &fakeController{})
	m := New(Config{State: st})
	m = runToggle(t, m)

	m, _ = update(t, m, key("+"))
	if st.Channels() != 2 {
		t.Errorf("Channels() = %d, want unchanged 2", st.Channels())
	}
	if !m.messageErr {
		t.Error("rejected change should show an error")
	}
}

func TestModel_FrequencyKeys(t *testing.T) {
	st := newTestState(t, &fakeController{})
	m := New(Config{State: st})

	m, _ = update(t, m, key("F"))
	if st.Frequency() != 11 {
		t.Errorf("Frequency() = %d, want 11", st.Frequency())
	}
	for i := 0; i < 20; i++ {
		m, _ = update(t, m, key("f"))
	}
	if st.Frequency() != 1 {
		t.Errorf("Frequency() = %d, want floor of 1", st.Frequency())
	}

	// Frequency may change while started.
	m = runToggle(t, m)
	m, _ = update(t, m, key("F"))
	if st.Frequency() != 2 {
		t.Errorf("Frequency() while started = %d, want 2", st.Frequency())
	}
}

func TestModel_ClearKey(t *testing.T) {
	st := newTestState(t, &fakeController{})
	st.AppendSample([]int{1, 2})
	st.SetStats(stats.DataStat{Highest: 2, Lowest: 1, Average: 1.5}, nil)

	m := New(Config{State: st})
	m, _ = update(t, m, key("c"))

	if st.Received() != 0 {
		t.Errorf("Received() = %d after clear", st.Received())
	}
	if m.snap.hasStat {
		t.Error("snapshot should have no stats after clear")
	}
}

// =============================================================================
// Tests: Update - Other Messages
// =============================================================================

func TestModel_Update_WindowSize(t *testing.T) {
	m := New(Config{})
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	if m.width != 120 || m.height != 40 {
		t.Errorf("size = %dx%d, want 120x40", m.width, m.height)
	}
}

func TestModel_Update_Tick(t *testing.T) {
	st := newTestState(t, &fakeController{})
	m := New(Config{
		State: st,
		Rates: fixedRates{timeseries.RateStats{Avg1s: 9.5, Total: 19}},
		ClientStats: func() (client.Stats, bool) {
			return client.Stats{LinesRead: 100, LinesDropped: 5}, true
		},
	})

	st.AppendSample([]int{7, 8})
	m, cmd := update(t, m, TickMsg{})
	if cmd == nil {
		t.Error("tick should schedule the next tick")
	}
	if m.snap.received != 1 {
		t.Errorf("received = %d, want 1", m.snap.received)
	}
	if m.snap.rate.Avg1s != 9.5 {
		t.Errorf("rate = %v, want 9.5", m.snap.rate.Avg1s)
	}
	if got := m.DropRate(); got != 0.05 {
		t.Errorf("DropRate() = %v, want 0.05", got)
	}
	if len(m.snap.series) != 2 || len(m.snap.series[0]) != 1 || m.snap.series[0][0] != 7 {
		t.Errorf("series = %v", m.snap.series)
	}
}

func TestModel_Update_QuitMsg(t *testing.T) {
	m := New(Config{})
	m, cmd := update(t, m, QuitMsg{})
	if !m.quitting || cmd == nil {
		t.Error("QuitMsg should quit")
	}
}

func TestTail(t *testing.T) {
	series := []state.Coordinate{{X: 0, Y: 1}, {X: 1, Y: 2}, {X: 2, Y: 3}}
	if got := tail(series, 2); len(got) != 2 || got[0] != 2 || got[1] != 3 {
		t.Errorf("tail(2) = %v", got)
	}
	if got := tail(series, 10); len(got) != 3 {
		t.Errorf("tail(10) = %v", got)
	}
	if got := tail(nil, 5); len(got) != 0 {
		t.Errorf("tail(nil) = %v", got)
	}
}

func TestFormatHelpers(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"number small", formatNumber(999), "999"},
		{"number K", formatNumber(1500), "1.5K"},
		{"number M", formatNumber(2_500_000), "2.5M"},
		{"rate fraction", formatRate(0.5), "0.50/s"},
		{"rate", formatRate(12.34), "12.3/s"},
		{"rate K", formatRate(2500), "2.5K/s"},
		{"percent", formatPercent(0.125), "12.5%"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}
