package stats

import (
	"github.com/influxdata/tdigest"
)

// digestCompression bounds each channel's sketch to roughly 100 centroids.
const digestCompression = 100

// ChannelSummary holds the aggregates of one channel.
type ChannelSummary struct {
	Channel int      `json:"channel"`
	Count   int      `json:"count"`
	Last    int      `json:"last"`
	Stat    DataStat `json:"stat"`
	P50     float64  `json:"p50"`
	P95     float64  `json:"p95"`
}

// ChannelDigest accumulates one channel's values incrementally: count, last,
// extremes, sum and a t-digest for quantiles. Adding a value is O(1)
// amortized, so summaries stay cheap however long the channel runs.
//
// Not safe for concurrent use; Summary mutates the sketch. The owner guards it.
type ChannelDigest struct {
	td      *tdigest.TDigest
	count   int
	last    int
	highest int
	lowest  int
	sum     float64
}

// NewChannelDigest creates an empty digest.
func NewChannelDigest() *ChannelDigest {
	return &ChannelDigest{td: tdigest.NewWithCompression(digestCompression)}
}

// Add records one value.
func (d *ChannelDigest) Add(v int) {
	if d.count == 0 || v > d.highest {
		d.highest = v
	}
	if d.count == 0 || v < d.lowest {
		d.lowest = v
	}
	d.count++
	d.last = v
	d.sum += float64(v)
	d.td.Add(float64(v), 1)
}

// Rebuild replaces the digest contents with values, oldest first. Used
// after values were evicted, since a t-digest cannot forget.
func (d *ChannelDigest) Rebuild(values []int) {
	*d = ChannelDigest{td: tdigest.NewWithCompression(digestCompression)}
	for _, v := range values {
		d.Add(v)
	}
}

// Count returns the number of values in the digest.
func (d *ChannelDigest) Count() int {
	return d.count
}

// Summary returns the channel's aggregates. Returns ErrEmptyInput and a
// zero-count summary if no values were added.
func (d *ChannelDigest) Summary(channel int) (ChannelSummary, error) {
	if d.count == 0 {
		return ChannelSummary{Channel: channel}, ErrEmptyInput
	}

	stat := DataStat{
		Highest: d.highest,
		Lowest:  d.lowest,
		Average: d.sum / float64(d.count),
	}
	if stat.Average < float64(stat.Lowest) {
		stat.Average = float64(stat.Lowest)
	}
	if stat.Average > float64(stat.Highest) {
		stat.Average = float64(stat.Highest)
	}

	return ChannelSummary{
		Channel: channel,
		Count:   d.count,
		Last:    d.last,
		Stat:    stat,
		P50:     clampQuantile(d.td.Quantile(0.50), stat),
		P95:     clampQuantile(d.td.Quantile(0.95), stat),
	}, nil
}

// SummarizeChannel computes the aggregates and quantiles of one channel.
// Returns ErrEmptyInput if the channel has no values.
func SummarizeChannel(channel int, values []int) (ChannelSummary, error) {
	d := NewChannelDigest()
	d.Rebuild(values)
	return d.Summary(channel)
}

// SummarizeChannels summarizes every channel; channels without values are
// reported with a zero Count.
func SummarizeChannels(channels [][]int) []ChannelSummary {
	out := make([]ChannelSummary, len(channels))
	for ch, values := range channels {
		// An empty channel yields its zero-count summary.
		out[ch], _ = SummarizeChannel(ch, values)
	}
	return out
}

// clampQuantile keeps an interpolated quantile inside the observed range.
func clampQuantile(q float64, stat DataStat) float64 {
	if q < float64(stat.Lowest) {
		return float64(stat.Lowest)
	}
	if q > float64(stat.Highest) {
		return float64(stat.Highest)
	}
	return q
}
