// Package stats computes aggregate statistics over the values received from
// the monitoring server.
//
// FindStats is the pure reduction (max, min, average). Observer subscribes to
// the shared client state and recomputes the aggregates wholesale every time a
// new sample arrives.
package stats

import (
	"errors"
	"math"
)

// ErrEmptyInput is returned when statistics are requested over no values.
var ErrEmptyInput = errors.New("stats: empty input")

// DataStat holds the aggregates over a sequence of values.
type DataStat struct {
	Highest int     `json:"highest"`
	Lowest  int     `json:"lowest"`
	Average float64 `json:"average"`
}

// FindStats returns the highest, lowest and average of values.
// The sum is accumulated as float64 so long streams cannot overflow.
func FindStats(values []int) (DataStat, error) {
	if len(values) == 0 {
		return DataStat{}, ErrEmptyInput
	}

	highest := math.MinInt
	lowest := math.MaxInt
	var sum float64

	for _, v := range values {
		if v > highest {
			highest = v
		}
		if v < lowest {
			lowest = v
		}
		sum += float64(v)
	}

	avg := sum / float64(len(values))

	// Rounding on very large magnitudes can push the float average a hair
	// outside [lowest, highest]; clamp to keep the ordering invariant.
	if avg < float64(lowest) {
		avg = float64(lowest)
	}
	if avg > float64(highest) {
		avg = float64(highest)
	}

	return DataStat{
		Highest: highest,
		Lowest:  lowest,
		Average: avg,
	}, nil
}

// Valid reports whether the stat satisfies Lowest <= Average <= Highest.
func (s DataStat) Valid() bool {
	return float64(s.Lowest) <= s.Average && s.Average <= float64(s.Highest)
}
