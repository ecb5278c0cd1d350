package metrics

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// Families maps a metric family name to its gathered value.
type Families map[string]*dto.MetricFamily

// WriteText writes every family from the gatherer in the Prometheus text
// exposition format, sorted by name.
func WriteText(w io.Writer, gatherer prometheus.Gatherer) error {
	mfs, err := gatherer.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range mfs {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// Snapshot gathers the registry into a map keyed by family name.
func Snapshot(gatherer prometheus.Gatherer) (Families, error) {
	mfs, err := gatherer.Gather()
	if err != nil {
		return nil, fmt.Errorf("gather metrics: %w", err)
	}
	out := make(Families, len(mfs))
	for _, mf := range mfs {
		out[mf.GetName()] = mf
	}
	return out, nil
}

// DecodeText parses the Prometheus text format, as served on /metrics.
func DecodeText(r io.Reader) (Families, error) {
	decoder := expfmt.NewDecoder(r, expfmt.FmtText)
	out := make(Families)

	for {
		var mf dto.MetricFamily
		if err := decoder.Decode(&mf); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("decode error: %w", err)
		}
		out[mf.GetName()] = &mf
	}
	return out, nil
}

// Value returns the value of the first unlabelled sample of a gauge or
// counter family. ok is false if the family is missing.
func (f Families) Value(name string) (float64, bool) {
	mf, ok := f[name]
	if !ok || len(mf.GetMetric()) == 0 {
		return 0, false
	}
	return sampleValue(mf.GetMetric()[0]), true
}

// LabelValue returns the value of the sample whose label matches.
func (f Families) LabelValue(name, label, value string) (float64, bool) {
	mf, ok := f[name]
	if !ok {
		return 0, false
	}
	for _, m := range mf.GetMetric() {
		for _, lp := range m.GetLabel() {
			if lp.GetName() == label && lp.GetValue() == value {
				return sampleValue(m), true
			}
		}
	}
	return 0, false
}

// Sum adds up every sample of a family across its label values.
func (f Families) Sum(name string) float64 {
	mf, ok := f[name]
	if !ok {
		return 0
	}
	var total float64
	for _, m := range mf.GetMetric() {
		total += sampleValue(m)
	}
	return total
}

// Names returns the family names in sorted order.
func (f Families) Names() []string {
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sampleValue(m *dto.Metric) float64 {
	switch {
	case m.GetGauge() != nil:
		return m.GetGauge().GetValue()
	case m.GetCounter() != nil:
		return m.GetCounter().GetValue()
	case m.GetUntyped() != nil:
		return m.GetUntyped().GetValue()
	default:
		return 0
	}
}
