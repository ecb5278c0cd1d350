package stats

import (
	"errors"
	"testing"
)

func TestSummarizeChannel(t *testing.T) {
	values := make([]int, 0, 100)
	for i := 1; i <= 100; i++ {
		values = append(values, i)
	}

	got, err := SummarizeChannel(3, values)
	if err != nil {
		t.Fatal(err)
	}

	if got.Channel != 3 || got.Count != 100 || got.Last != 100 {
		t.Errorf("summary = %+v", got)
	}
	if got.Stat.Highest != 100 || got.Stat.Lowest != 1 || got.Stat.Average != 50.5 {
		t.Errorf("Stat = %+v, want {100 1 50.5}", got.Stat)
	}
	if got.P50 < 45 || got.P50 > 56 {
		t.Errorf("P50 = %v, want about 50", got.P50)
	}
	if got.P95 < 90 || got.P95 > 100 {
		t.Errorf("P95 = %v, want about 95", got.P95)
	}
	if got.P50 > got.P95 {
		t.Errorf("P50 %v > P95 %v", got.P50, got.P95)
	}
}

func TestSummarizeChannel_QuantilesInRange(t *testing.T) {
	tests := []struct {
		name   string
		values []int
	}{
		{"single", []int{42}},
		{"pair", []int{1, 1000}},
		{"constant", []int{7, 7, 7, 7, 7}},
		{"skewed", []int{1, 1, 1, 1, 1, 1, 1, 1, 1, 500}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SummarizeChannel(0, tt.values)
			if err != nil {
				t.Fatal(err)
			}
			lo, hi := float64(got.Stat.Lowest), float64(got.Stat.Highest)
			for _, q := range []float64{got.P50, got.P95} {
				if q < lo || q > hi {
					t.Errorf("quantile %v outside [%v, %v]", q, lo, hi)
				}
			}
		})
	}
}

func TestSummarizeChannel_Empty(t *testing.T) {
	got, err := SummarizeChannel(2, nil)
	if !errors.Is(err, ErrEmptyInput) {
		t.Errorf("error = %v, want ErrEmptyInput", err)
	}
	if got.Channel != 2 || got.Count != 0 {
		t.Errorf("summary = %+v, want channel 2 with zero count", got)
	}
}

func TestSummarizeChannels(t *testing.T) {
	got := SummarizeChannels([][]int{{1, 2, 3}, nil, {5}})

	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for i, s := range got {
		if s.Channel != i {
			t.Errorf("summary[%d].Channel = %d", i, s.Channel)
		}
	}
	if got[0].Count != 3 || got[0].Last != 3 || got[0].Stat.Average != 2 {
		t.Errorf("channel 0 = %+v", got[0])
	}
	if got[1].Count != 0 {
		t.Errorf("channel 1 = %+v, want zero count", got[1])
	}
	if got[2].Stat != (DataStat{Highest: 5, Lowest: 5, Average: 5}) {
		t.Errorf("channel 2 = %+v", got[2])
	}
}

func TestChannelDigest_MatchesBatch(t *testing.T) {
	values := []int{9, -4, 17, 3, 3, 250, 0, 42}

	d := NewChannelDigest()
	for _, v := range values {
		d.Add(v)
	}
	got, err := d.Summary(1)
	if err != nil {
		t.Fatal(err)
	}
	want, _ := SummarizeChannel(1, values)

	if got.Count != want.Count || got.Last != want.Last || got.Stat != want.Stat {
		t.Errorf("incremental = %+v, batch = %+v", got, want)
	}
	if got.Stat != (DataStat{Highest: 250, Lowest: -4, Average: 40}) {
		t.Errorf("Stat = %+v", got.Stat)
	}
}

func TestChannelDigest_Rebuild(t *testing.T) {
	d := NewChannelDigest()
	for _, v := range []int{1000, 1, 2} {
		d.Add(v)
	}

	// Evict the oldest value.
	d.Rebuild([]int{1, 2})

	got, err := d.Summary(0)
	if err != nil {
		t.Fatal(err)
	}
	if got.Count != 2 || got.Stat.Highest != 2 || got.P95 > 2 {
		t.Errorf("after Rebuild = %+v, evicted value still counted", got)
	}

	d.Rebuild(nil)
	if _, err := d.Summary(0); !errors.Is(err, ErrEmptyInput) {
		t.Errorf("empty digest error = %v, want ErrEmptyInput", err)
	}
	if d.Count() != 0 {
		t.Errorf("Count() = %d after empty Rebuild", d.Count())
	}
}

func BenchmarkChannelDigest_Add(b *testing.B) {
	d := NewChannelDigest()
	for i := 0; i < b.N; i++ {
		d.Add(i % 997)
	}
}
