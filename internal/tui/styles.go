// Package tui provides the live terminal dashboard for go-channel-monitor.
//
// The TUI uses Bubble Tea for the application framework and Lipgloss for styling.
// It displays:
// - Client status and server endpoint
// - Aggregate statistics over all received values
// - Per-channel summaries with a sparkline of recent values
// - Observed versus configured sample rate
// - Recent log lines
package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// Color Palette
// =============================================================================

// Colors based on a modern dark theme
var (
	// Primary colors
	colorPrimary   = lipgloss.Color("#7C3AED") // Purple
	colorSecondary = lipgloss.Color("#06B6D4") // Cyan
	colorAccent    = lipgloss.Color("#F59E0B") // Amber

	// Status colors
	colorSuccess = lipgloss.Color("#10B981") // Green
	colorWarning = lipgloss.Color("#F59E0B") // Amber
	colorError   = lipgloss.Color("#EF4444") // Red
	colorInfo    = lipgloss.Color("#3B82F6") // Blue

	// Neutral colors
	colorText      = lipgloss.Color("#E5E7EB") // Light gray
	colorTextMuted = lipgloss.Color("#9CA3AF") // Medium gray
	colorTextDim   = lipgloss.Color("#6B7280") // Dark gray
	colorBorder    = lipgloss.Color("#374151") // Border gray
)

// =============================================================================
// Base Styles
// =============================================================================

var (
	mutedStyle = lipgloss.NewStyle().
			Foreground(colorTextMuted)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorTextDim)
)

// =============================================================================
// Status Indicator Styles
// =============================================================================

var (
	statusOK = lipgloss.NewStyle().
			Foreground(colorSuccess).
			Bold(true)

	statusWarning = lipgloss.NewStyle().
			Foreground(colorWarning).
			Bold(true)

	statusError = lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true)

	statusInfo = lipgloss.NewStyle().
			Foreground(colorInfo).
			Bold(true)
)

// =============================================================================
// Layout Styles
// =============================================================================

var (
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Foreground(colorText).
			Background(colorPrimary).
			Bold(true).
			Padding(0, 1).
			MarginBottom(1)

	sectionHeaderStyle = lipgloss.NewStyle().
				Foreground(colorSecondary).
				Bold(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderBottom(true).
				BorderForeground(colorBorder)

	footerStyle = lipgloss.NewStyle().
			Foreground(colorTextMuted).
			MarginTop(1)
)

// =============================================================================
// Value Styles
// =============================================================================

var (
	valueStyle = lipgloss.NewStyle().
			Foreground(colorText).
			Bold(true)

	valueGoodStyle = lipgloss.NewStyle().
			Foreground(colorSuccess).
			Bold(true)

	valueBadStyle = lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true)

	valueWarnStyle = lipgloss.NewStyle().
			Foreground(colorWarning).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorTextMuted).
			Width(14)

	sparklineStyle = lipgloss.NewStyle().
			Foreground(colorAccent)
)

// =============================================================================
// Table Styles
// =============================================================================

var (
	tableHeaderStyle = lipgloss.NewStyle().
				Foreground(colorSecondary).
				Bold(true)

	tableRowEvenStyle = lipgloss.NewStyle().
				Foreground(colorText)

	tableRowOddStyle = lipgloss.NewStyle().
				Foreground(colorTextMuted)
)

// =============================================================================
// Pipeline Status Indicator
// =============================================================================

// PipelineStatus represents the health of the socket-to-decoder pipeline.
type PipelineStatus int

const (
	PipelineStatusOK PipelineStatus = iota
	PipelineStatusDegraded
	PipelineStatusSeverelyDegraded
)

// GetPipelineStatus returns the status based on drop rate.
func GetPipelineStatus(dropRate float64) PipelineStatus {
	switch {
	case dropRate > 0.10: // >10% dropped
		return PipelineStatusSeverelyDegraded
	case dropRate > 0.0: // Any drops
		return PipelineStatusDegraded
	default:
		return PipelineStatusOK
	}
}

// GetPipelineLabel returns a styled label based on drop rate.
func GetPipelineLabel(dropRate float64) string {
	switch GetPipelineStatus(dropRate) {
	case PipelineStatusSeverelyDegraded:
		return statusError.Render("● Pipeline (severely degraded)")
	case PipelineStatusDegraded:
		return statusWarning.Render("● Pipeline (degraded)")
	default:
		return statusOK.Render("● Pipeline")
	}
}

// =============================================================================
// Rate Indicator
// =============================================================================

// GetRateStyle compares the observed sample rate with the configured
// frequency.
func GetRateStyle(observed float64, expected int) lipgloss.Style {
	if expected <= 0 {
		return valueStyle
	}
	ratio := observed / float64(expected)
	switch {
	case ratio >= 0.9:
		return valueGoodStyle
	case ratio >= 0.5:
		return valueWarnStyle
	default:
		return valueBadStyle
	}
}

// GetLogLineStyle picks a style from the level field of a recorded line.
func GetLogLineStyle(line string) lipgloss.Style {
	switch {
	case strings.Contains(line, " ERROR "):
		return statusError
	case strings.Contains(line, " WARN "):
		return statusWarning
	case strings.Contains(line, " DEBUG "):
		return dimStyle
	default:
		return mutedStyle
	}
}

// =============================================================================
// Helper Functions
// =============================================================================

// RenderKeyValue renders a label-value pair.
func RenderKeyValue(label string, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Left,
		labelStyle.Render(label+":"),
		valueStyle.Render(value),
	)
}

// sparkBlocks are the eight block heights used by RenderSparkline.
var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

// RenderSparkline scales values between their min and max onto block
// characters. A flat series renders at mid height.
func RenderSparkline(values []int) string {
	if len(values) == 0 {
		return ""
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}

	var b strings.Builder
	top := len(sparkBlocks) - 1
	for _, v := range values {
		idx := top / 2
		if hi > lo {
			idx = int(float64(v-lo) / float64(hi-lo) * float64(top))
		}
		b.WriteRune(sparkBlocks[idx])
	}
	return b.String()
}
