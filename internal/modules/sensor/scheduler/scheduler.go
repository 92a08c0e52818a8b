// Package scheduler drives the aggregation and retention cycle on a fixed
// interval.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"vayu-server/internal/modules/sensor/aggregate"
	"vayu-server/internal/modules/sensor/retention"
)

// Builder is the aggregation surface the scheduler drives.
type Builder interface {
	BuildHourly(hourStart time.Time) (aggregate.Result, error)
	BuildDaily(dayStart time.Time) (aggregate.Result, error)
}

// Sweeper is the retention surface the scheduler drives.
type Sweeper interface {
	Sweep(now time.Time) retention.Result
}

type Scheduler struct {
	builder  Builder
	sweeper  Sweeper
	interval time.Duration
	now      func() time.Time
}

func New(builder Builder, sweeper Sweeper, interval time.Duration) *Scheduler {
	return &Scheduler{
		builder:  builder,
		sweeper:  sweeper,
		interval: interval,
		now:      time.Now,
	}
}

// Run fires one cycle per interval until ctx is cancelled. Cancellation is
// observed at the top of each wait: an in-flight cycle finishes, no new cycle
// starts. A failed cycle never terminates the loop.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("scheduler started", "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			slog.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.RunCycle(s.now().UTC())
		}
	}
}

// RunCycle executes one scheduled pass: summarize the just-completed hour,
// summarize the prior day when a new calendar day has begun, then sweep
// expired rows. Errors are logged; siblings still run.
func (s *Scheduler) RunCycle(now time.Time) {
	prevHour := aggregate.FloorToHour(now).Add(-time.Hour)
	if res, err := s.builder.BuildHourly(prevHour); err != nil {
		slog.Error("hourly aggregation failed", "hour_start", prevHour, "error", err)
	} else {
		slog.Info("hourly aggregation", "hour_start", prevHour, "outcome", res.Outcome.String())
	}

	if now.Hour() == 0 {
		yesterday := aggregate.FloorToDay(now).AddDate(0, 0, -1)
		if res, err := s.builder.BuildDaily(yesterday); err != nil {
			slog.Error("daily aggregation failed", "day_start", yesterday, "error", err)
		} else {
			slog.Info("daily aggregation", "day_start", yesterday, "outcome", res.Outcome.String())
		}
	}

	swept := s.sweeper.Sweep(now)
	slog.Info("retention sweep",
		"raw_deleted", swept.RawDeleted,
		"hourly_deleted", swept.HourlyDeleted,
		"daily_deleted", swept.DailyDeleted,
	)
}
