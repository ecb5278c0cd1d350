package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/randomizedcoder/go-channel-monitor/internal/client"
	"github.com/randomizedcoder/go-channel-monitor/internal/state"
	"github.com/randomizedcoder/go-channel-monitor/internal/stats"
	"github.com/randomizedcoder/go-channel-monitor/internal/timeseries"
)

// =============================================================================
// Messages
// =============================================================================

// TickMsg is sent periodically to update the display.
type TickMsg time.Time

// ToggleMsg carries the outcome of a start/stop request.
type ToggleMsg struct {
	Status state.Status
	Err    error
}

// QuitMsg signals the TUI should exit.
type QuitMsg struct{}

// =============================================================================
// Sources
// =============================================================================

// StateSource is the shared client state as seen by the dashboard.
// *state.ClientState implements it.
type StateSource interface {
	Status() state.Status
	Toggle() (state.Status, error)
	Channels() int
	SetChannels(n int) error
	Frequency() int
	SetFrequency(hz int) error
	Port() int
	Reset()
	Received() int64
	Stats() (stats.DataStat, bool)
	ChannelSummaries() []stats.ChannelSummary
	Series(channel int) []state.Coordinate
	RecentLogs(n int) []string
}

// RateSource provides the observed sample rate.
type RateSource interface {
	GetStats() timeseries.RateStats
}

// =============================================================================
// Model
// =============================================================================

// Config holds TUI configuration.
type Config struct {
	Server      string
	MetricsAddr string
	LogLines    int // log lines shown, 0 = 6

	State       StateSource
	Rates       RateSource                  // optional
	ClientStats func() (client.Stats, bool) // optional; ok=false when no client exists
	OnToggle    func(state.Status, error)   // optional; called after every toggle
}

// Model represents the TUI state.
type Model struct {
	// Configuration
	server      string
	metricsAddr string
	logLines    int

	// Sources
	state       StateSource
	rates       RateSource
	clientStats func() (client.Stats, bool)
	onToggle    func(state.Status, error)

	// Snapshot refreshed on every tick
	snap snapshot

	startTime  time.Time
	lastUpdate time.Time
	toggling   bool
	message    string // footer notice, e.g. a rejected toggle
	messageErr bool

	// Display options
	width  int
	height int

	quitting bool
}

// snapshot holds everything View needs so rendering never touches the sources.
type snapshot struct {
	status    state.Status
	channels  int
	frequency int
	port      int
	received  int64
	stat      stats.DataStat
	hasStat   bool
	summaries []stats.ChannelSummary
	series    [][]int
	logs      []string
	rate      timeseries.RateStats
	client    client.Stats
	hasClient bool
}

// New creates a new TUI model.
func New(cfg Config) Model {
	logLines := cfg.LogLines
	if logLines <= 0 {
		logLines = 6
	}
	m := Model{
		server:      cfg.Server,
		metricsAddr: cfg.MetricsAddr,
		logLines:    logLines,
		state:       cfg.State,
		rates:       cfg.Rates,
		clientStats: cfg.ClientStats,
		onToggle:    cfg.OnToggle,
		startTime:   time.Now(),
		lastUpdate:  time.Now(),
		width:       80,
		height:      24,
	}
	m.refresh()
	return m
}

// =============================================================================
// Bubble Tea Interface
// =============================================================================

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	// tea.WithAltScreen() is passed when creating the program.
	return tickCmd()
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case TickMsg:
		m.refresh()
		m.lastUpdate = time.Now()
		return m, tickCmd()

	case ToggleMsg:
		m.toggling = false
		if m.onToggle != nil {
			m.onToggle(msg.Status, msg.Err)
		}
		if msg.Err != nil {
			m.setError(fmt.Sprintf("toggle failed: %v", msg.Err))
		} else {
			m.setNotice("client " + msg.Status.String())
		}
		m.refresh()
		return m, nil

	case QuitMsg:
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit

	case "s", " ":
		if m.state == nil || m.toggling {
			return m, nil
		}
		m.toggling = true
		m.setNotice("toggling...")
		return m, toggleCmd(m.state)

	case "+", "=":
		m.changeChannels(1)

	case "-", "_":
		m.changeChannels(-1)

	case "f":
		m.changeFrequency(-1)

	case "F":
		m.changeFrequency(1)

	case "c":
		if m.state != nil {
			m.state.Reset()
			m.setNotice("data cleared")
		}

	case "r":
		// Force refresh
		m.refresh()
		return m, nil
	}

	m.refresh()
	return m, nil
}

func (m *Model) changeChannels(delta int) {
	if m.state == nil {
		return
	}
	n := m.state.Channels() + delta
	if n < 1 {
		return
	}
	if err := m.state.SetChannels(n); err != nil {
		m.setError(err.Error())
		return
	}
	m.setNotice(fmt.Sprintf("channels: %d", n))
}

func (m *Model) changeFrequency(delta int) {
	if m.state == nil {
		return
	}
	hz := m.state.Frequency() + delta
	if hz < 1 {
		return
	}
	if err := m.state.SetFrequency(hz); err != nil {
		m.setError(err.Error())
		return
	}
	m.setNotice(fmt.Sprintf("frequency: %d Hz", hz))
}

func (m *Model) setNotice(s string) {
	m.message = s
	m.messageErr = false
}

func (m *Model) setError(s string) {
	m.message = s
	m.messageErr = true
}

// refresh copies the current values out of the sources.
func (m *Model) refresh() {
	if m.state == nil {
		return
	}
	s := snapshot{
		status:    m.state.Status(),
		channels:  m.state.Channels(),
		frequency: m.state.Frequency(),
		port:      m.state.Port(),
		received:  m.state.Received(),
		summaries: m.state.ChannelSummaries(),
		logs:      m.state.RecentLogs(m.logLines),
	}
	s.stat, s.hasStat = m.state.Stats()

	for ch := 0; ch < s.channels; ch++ {
		s.series = append(s.series, tail(m.state.Series(ch), sparklineWidth))
	}
	if m.rates != nil {
		s.rate = m.rates.GetStats()
	}
	if m.clientStats != nil {
		s.client, s.hasClient = m.clientStats()
	}
	m.snap = s
}

// tail returns the Y values of the last n coordinates.
func tail(series []state.Coordinate, n int) []int {
	if len(series) > n {
		series = series[len(series)-n:]
	}
	out := make([]int, len(series))
	for i, c := range series {
		out[i] = c.Y
	}
	return out
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	return m.renderDashboard()
}

// =============================================================================
// Commands
// =============================================================================

// tickCmd returns a command that sends a tick after 500ms.
func tickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// toggleCmd runs the toggle off the update loop; stopping waits for the
// client worker to exit.
func toggleCmd(src StateSource) tea.Cmd {
	return func() tea.Msg {
		status, err := src.Toggle()
		return ToggleMsg{Status: status, Err: err}
	}
}

// =============================================================================
// Accessors
// =============================================================================

// Elapsed returns the time since the dashboard started.
func (m Model) Elapsed() time.Duration {
	return time.Since(m.startTime)
}

// Started reports whether the client was started at the last refresh.
func (m Model) Started() bool {
	return m.snap.status == state.StatusStarted
}

// Message returns the footer notice.
func (m Model) Message() string {
	return m.message
}

// DropRate returns the pipeline drop rate of the current client.
func (m Model) DropRate() float64 {
	if !m.snap.hasClient || m.snap.client.LinesRead == 0 {
		return 0
	}
	return float64(m.snap.client.LinesDropped) / float64(m.snap.client.LinesRead)
}

// =============================================================================
// Helper for external use
// =============================================================================

// SendQuit sends a quit message to the TUI.
func SendQuit(p *tea.Program) {
	if p != nil {
		p.Send(QuitMsg{})
	}
}

// =============================================================================
// Formatting Helpers (used by view.go)
// =============================================================================

// formatDuration formats a duration as HH:MM:SS.
func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// formatNumber formats a number with K/M suffixes.
func formatNumber(n int64) string {
	if n >= 1_000_000 {
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	}
	if n >= 1_000 {
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	}
	return fmt.Sprintf("%d", n)
}

// formatRate formats a rate with appropriate precision.
func formatRate(rate float64) string {
	if rate >= 1000 {
		return fmt.Sprintf("%.1fK/s", rate/1000)
	}
	if rate >= 1 {
		return fmt.Sprintf("%.1f/s", rate)
	}
	return fmt.Sprintf("%.2f/s", rate)
}

// formatPercent formats a ratio as a percentage.
func formatPercent(value float64) string {
	return fmt.Sprintf("%.1f%%", value*100)
}
