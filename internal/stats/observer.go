package stats

import (
	"errors"
	"log/slog"
	"sync/atomic"
)

// Store is the part of the shared client state the observer reads from and
// writes the aggregates back to.
type Store interface {
	// AllValues returns a copy of every retained value.
	AllValues() []int

	// SummarizeChannels returns per-channel summaries from the store's
	// incremental digests.
	SummarizeChannels() []ChannelSummary

	SetStats(stat DataStat, summaries []ChannelSummary)
}

// Observer recomputes the aggregates every time the store changes.
type Observer struct {
	store   Store
	logger  *slog.Logger
	onStats func(DataStat, []ChannelSummary)

	updates atomic.Int64
	empty   atomic.Int64
}

// ObserverConfig holds configuration for creating an Observer.
type ObserverConfig struct {
	Store  Store
	Logger *slog.Logger

	// OnStats, if set, is called after every successful recomputation.
	OnStats func(DataStat, []ChannelSummary)
}

// NewObserver creates a statistics observer for a store.
func NewObserver(cfg ObserverConfig) *Observer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Observer{
		store:   cfg.Store,
		logger:  logger,
		onStats: cfg.OnStats,
	}
}

// Update recomputes the aggregates over every value in the store and writes
// them back together with the per-channel summaries. With no values the
// previous aggregates are kept and ErrEmptyInput is returned.
func (o *Observer) Update() error {
	stat, err := FindStats(o.store.AllValues())
	if err != nil {
		if errors.Is(err, ErrEmptyInput) {
			o.empty.Add(1)
			o.logger.Debug("stats_skipped", "reason", "no values")
		}
		return err
	}

	summaries := o.store.SummarizeChannels()
	o.store.SetStats(stat, summaries)
	o.updates.Add(1)

	if o.onStats != nil {
		o.onStats(stat, summaries)
	}
	return nil
}

// Updates returns how many recomputations succeeded.
func (o *Observer) Updates() int64 {
	return o.updates.Load()
}

// EmptyUpdates returns how many recomputations found no values.
func (o *Observer) EmptyUpdates() int64 {
	return o.empty.Load()
}
