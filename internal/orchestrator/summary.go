package orchestrator

import (
	"fmt"
	"sort"
	"time"

	"github.com/randomizedcoder/go-channel-monitor/internal/logging"
	"github.com/randomizedcoder/go-channel-monitor/internal/metrics"
)

// printExitSummary prints a summary of the session, read back from the
// metrics registry.
func (o *Orchestrator) printExitSummary() error {
	families, err := metrics.Snapshot(o.registry)
	if err != nil {
		return err
	}
	summary := o.metrics.GenerateSummary()
	w := o.out

	value := func(name string) float64 {
		v, _ := families.Value(name)
		return v
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════════════")
	fmt.Fprintln(w, "                   go-channel-monitor Exit Summary")
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════════════")
	fmt.Fprintf(w, "Run Duration:           %s\n", formatDuration(summary.Duration))
	fmt.Fprintf(w, "Server:                 %s\n", o.config.ServerAddr())
	fmt.Fprintf(w, "Channels:               %d\n", o.state.Channels())
	fmt.Fprintf(w, "Frequency:              %d Hz\n", o.state.Frequency())
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Stream:")
	fmt.Fprintf(w, "  Samples:              %.0f\n", value("chanmon_samples_total"))
	fmt.Fprintf(w, "  Peak Rate:            %.1f/s\n", summary.PeakRate)
	fmt.Fprintf(w, "  Lines Read:           %.0f\n", value("chanmon_lines_read_total"))
	fmt.Fprintf(w, "  Lines Dropped:        %.0f\n", value("chanmon_lines_dropped_total"))
	fmt.Fprintf(w, "  Malformed Lines:      %.0f\n", value("chanmon_lines_malformed_total"))
	fmt.Fprintf(w, "  Connections:          %.0f\n", value("chanmon_connections_total"))
	fmt.Fprintf(w, "  Reconnects:           %.0f\n", value("chanmon_reconnects_total"))
	fmt.Fprintln(w)

	if _, ok := o.state.Stats(); ok {
		fmt.Fprintln(w, "Statistics:")
		fmt.Fprintf(w, "  Highest:              %.0f\n", value("chanmon_value_highest"))
		fmt.Fprintf(w, "  Lowest:               %.0f\n", value("chanmon_value_lowest"))
		fmt.Fprintf(w, "  Average:              %.2f\n", value("chanmon_value_average"))
		fmt.Fprintln(w)
	} else {
		fmt.Fprintln(w, "Statistics:             no values received")
		fmt.Fprintln(w)
	}

	if len(summary.ToggleCounts) > 0 {
		fmt.Fprintln(w, "Toggles:")
		keys := make([]string, 0, len(summary.ToggleCounts))
		for k := range summary.ToggleCounts {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "  %-20s  %d\n", k, summary.ToggleCounts[k])
		}
		fmt.Fprintln(w)
	}

	if errs := o.state.LogRing().CountMatching(logging.ErrorPatterns); len(errs) > 0 {
		fmt.Fprintln(w, "Log Patterns:")
		keys := make([]string, 0, len(errs))
		for k := range errs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "  %-20s  %d\n", k, errs[k])
		}
		fmt.Fprintln(w)
	}

	if addr := o.metricsAddr(); addr != "" {
		fmt.Fprintf(w, "Metrics endpoint was: http://%s/metrics\n", addr)
	}
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════════════")
	return nil
}

// formatDuration formats a duration as HH:MM:SS.
func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
