// Package retention deletes rows past their tier's configured cutoff.
package retention

import (
	"log/slog"
	"time"
)

// Store is the slice of the repository the sweeper needs.
type Store interface {
	DeleteReadingsBefore(cutoff time.Time) (int64, error)
	DeleteHourlyAggregatesBefore(cutoff time.Time) (int64, error)
	DeleteDailyAggregatesBefore(cutoff time.Time) (int64, error)
}

// Config holds the retention duration per tier.
type Config struct {
	Raw    time.Duration
	Hourly time.Duration
	Daily  time.Duration
}

// Result reports how many rows each tier dropped in one sweep.
type Result struct {
	RawDeleted    int64 `json:"raw_deleted"`
	HourlyDeleted int64 `json:"hourly_deleted"`
	DailyDeleted  int64 `json:"daily_deleted"`
}

type Sweeper struct {
	store Store
	cfg   Config
}

func NewSweeper(store Store, cfg Config) *Sweeper {
	return &Sweeper{store: store, cfg: cfg}
}

// Sweep deletes expired rows from all three tiers. Each tier's delete is its
// own committed statement; a failure in one tier is logged and the remaining
// tiers still run.
func (s *Sweeper) Sweep(now time.Time) Result {
	var res Result

	if n, err := s.store.DeleteReadingsBefore(now.Add(-s.cfg.Raw)); err != nil {
		slog.Error("sweep raw readings failed", "error", err)
	} else {
		res.RawDeleted = n
	}

	if n, err := s.store.DeleteHourlyAggregatesBefore(now.Add(-s.cfg.Hourly)); err != nil {
		slog.Error("sweep hourly aggregates failed", "error", err)
	} else {
		res.HourlyDeleted = n
	}

	if n, err := s.store.DeleteDailyAggregatesBefore(now.Add(-s.cfg.Daily)); err != nil {
		slog.Error("sweep daily aggregates failed", "error", err)
	} else {
		res.DailyDeleted = n
	}

	return res
}
