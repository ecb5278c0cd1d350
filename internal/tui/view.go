package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/randomizedcoder/go-channel-monitor/internal/state"
)

// sparklineWidth is the number of recent values plotted per channel.
const sparklineWidth = 24

// =============================================================================
// Main View Rendering
// =============================================================================

// renderDashboard renders the whole screen.
func (m Model) renderDashboard() string {
	sections := []string{
		m.renderHeader(),
		m.renderStatus(),
		m.renderAggregates(),
		m.renderChannelTable(),
		m.renderLogs(),
		m.renderFooter(),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// =============================================================================
// Header
// =============================================================================

func (m Model) renderHeader() string {
	header := fmt.Sprintf(
		" go-channel-monitor │ %s │ %s │ Elapsed: %s ",
		m.renderStatusLabel(),
		GetPipelineLabel(m.DropRate()),
		formatDuration(m.Elapsed()),
	)
	return headerStyle.Width(m.width).Render(header)
}

func (m Model) renderStatusLabel() string {
	switch {
	case m.toggling:
		return statusInfo.Render("◌ TOGGLING")
	case m.snap.status == state.StatusStarted:
		return statusOK.Render("● STARTED")
	default:
		return statusWarning.Render("○ STOPPED")
	}
}

// =============================================================================
// Connection & Configuration
// =============================================================================

func (m Model) renderStatus() string {
	s := m.snap

	connection := "idle"
	if s.hasClient {
		switch {
		case s.client.Connected:
			connection = statusOK.Render("connected")
		case s.client.Running:
			connection = statusWarning.Render(fmt.Sprintf("connecting (reconnects: %d)", s.client.Reconnects))
		}
	}

	rate := "-"
	if s.status == state.StatusStarted || s.rate.Total > 0 {
		rate = GetRateStyle(s.rate.Avg1s, s.frequency).Render(formatRate(s.rate.Avg1s)) +
			mutedStyle.Render(fmt.Sprintf("  (30s %s, 60s %s)", formatRate(s.rate.Avg30s), formatRate(s.rate.Avg60s)))
	}

	left := []string{
		RenderKeyValue("Server", m.server),
		RenderKeyValue("Port", fmt.Sprintf("%d", s.port)),
		RenderKeyValue("Connection", connection),
	}
	right := []string{
		RenderKeyValue("Channels", fmt.Sprintf("%d", s.channels)),
		RenderKeyValue("Frequency", fmt.Sprintf("%d Hz", s.frequency)),
		RenderKeyValue("Observed", rate),
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		sectionHeaderStyle.Render("Client"),
		renderTwoColumns(left, right, m.width),
	)
	return boxStyle.Width(m.width - 2).Render(content)
}

// =============================================================================
// Aggregate Statistics
// =============================================================================

func (m Model) renderAggregates() string {
	s := m.snap

	var rows []string
	if !s.hasStat {
		rows = append(rows, dimStyle.Render("No data yet. Press 's' to start."))
	} else {
		rows = append(rows,
			RenderKeyValue("Highest", fmt.Sprintf("%d", s.stat.Highest)),
			RenderKeyValue("Lowest", fmt.Sprintf("%d", s.stat.Lowest)),
			RenderKeyValue("Average", fmt.Sprintf("%.2f", s.stat.Average)),
		)
	}
	rows = append(rows, RenderKeyValue("Samples", formatNumber(s.received)))

	if s.hasClient && s.client.Malformed > 0 {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Left,
			labelStyle.Render("Malformed:"),
			valueBadStyle.Render(formatNumber(s.client.Malformed)),
		))
	}
	if dr := m.DropRate(); dr > 0 {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Left,
			labelStyle.Render("Dropped:"),
			valueWarnStyle.Render(formatPercent(dr)),
		))
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		append([]string{sectionHeaderStyle.Render("Statistics")}, rows...)...,
	)
	return boxStyle.Width(m.width - 2).Render(content)
}

// =============================================================================
// Per-Channel Table
// =============================================================================

func (m Model) renderChannelTable() string {
	s := m.snap

	header := tableHeaderStyle.Render(
		fmt.Sprintf("%-4s %8s %8s %8s %8s %9s %9s %9s  %s",
			"CH", "Count", "Last", "Min", "Max", "Avg", "P50", "P95", "Recent"),
	)

	// Table rows (limit to fit screen)
	maxRows := m.height - 22
	if maxRows < 4 {
		maxRows = 4
	}

	var rows []string
	for ch := 0; ch < s.channels; ch++ {
		if ch >= maxRows {
			rows = append(rows, dimStyle.Render(fmt.Sprintf("... and %d more channels", s.channels-maxRows)))
			break
		}

		rowStyle := tableRowEvenStyle
		if ch%2 == 1 {
			rowStyle = tableRowOddStyle
		}

		var spark string
		if ch < len(s.series) {
			spark = sparklineStyle.Render(RenderSparkline(s.series[ch]))
		}

		if ch >= len(s.summaries) || s.summaries[ch].Count == 0 {
			rows = append(rows, rowStyle.Render(fmt.Sprintf("%-4d %8s", ch, "-")))
			continue
		}

		cs := s.summaries[ch]
		row := fmt.Sprintf("%-4d %8s %8d %8d %8d %9.2f %9.1f %9.1f  ",
			ch,
			formatNumber(int64(cs.Count)),
			cs.Last,
			cs.Stat.Lowest,
			cs.Stat.Highest,
			cs.Stat.Average,
			cs.P50,
			cs.P95,
		)
		rows = append(rows, rowStyle.Render(row)+spark)
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		append([]string{sectionHeaderStyle.Render("Channels"), header}, rows...)...,
	)
	return boxStyle.Width(m.width - 2).Render(content)
}

// =============================================================================
// Logs
// =============================================================================

func (m Model) renderLogs() string {
	lines := m.snap.logs
	if len(lines) == 0 {
		return boxStyle.Width(m.width - 2).Render(lipgloss.JoinVertical(lipgloss.Left,
			sectionHeaderStyle.Render("Log"),
			dimStyle.Render("(empty)"),
		))
	}

	maxLen := m.width - 6
	rows := make([]string, 0, len(lines)+1)
	rows = append(rows, sectionHeaderStyle.Render("Log"))
	for _, line := range lines {
		if maxLen > 10 && len(line) > maxLen {
			line = line[:maxLen-3] + "..."
		}
		rows = append(rows, GetLogLineStyle(line).Render(line))
	}
	return boxStyle.Width(m.width - 2).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// =============================================================================
// Footer
// =============================================================================

func (m Model) renderFooter() string {
	shortcuts := []string{
		"s: start/stop",
		"+/-: channels",
		"f/F: frequency",
		"c: clear",
		"q: quit",
	}

	left := dimStyle.Render(strings.Join(shortcuts, " │ "))

	var right string
	switch {
	case m.message != "" && m.messageErr:
		right = statusError.Render(m.message)
	case m.message != "":
		right = mutedStyle.Render(m.message)
	case m.metricsAddr != "":
		right = dimStyle.Render("Metrics: " + m.metricsAddr)
	}

	// Pad to fill width
	padding := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if padding < 1 {
		padding = 1
	}

	return footerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Left,
			left,
			strings.Repeat(" ", padding),
			right,
		),
	)
}

// =============================================================================
// Two-Column Layout Helper
// =============================================================================

// renderTwoColumns renders two columns side-by-side with a separator.
func renderTwoColumns(left, right []string, totalWidth int) string {
	separatorWidth := 3 // " │ "
	padding := 2        // Box padding
	leftWidth := (totalWidth - separatorWidth - padding*2) / 2
	if leftWidth < 30 {
		leftWidth = 30
	}

	leftContent := lipgloss.NewStyle().Width(leftWidth).Render(
		lipgloss.JoinVertical(lipgloss.Left, left...),
	)
	rightContent := lipgloss.JoinVertical(lipgloss.Left, right...)

	separator := mutedStyle.Render(" │ ")
	return lipgloss.JoinHorizontal(lipgloss.Top, leftContent, separator, rightContent)
}
