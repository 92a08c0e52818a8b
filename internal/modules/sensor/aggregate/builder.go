// Package aggregate rolls raw sensor readings into write-once hourly and
// daily statistical summaries.
package aggregate

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"vayu-server/internal/modules/sensor/repository"
	"vayu-server/internal/modules/sensor/types"
)

// Outcome classifies the result of one build call.
type Outcome int

const (
	// OutcomeCreated means a new aggregate row was stored.
	OutcomeCreated Outcome = iota
	// OutcomeAlreadyExists means an aggregate for the window was already
	// stored; nothing was written. Not an error.
	OutcomeAlreadyExists
	// OutcomeEmpty means no readings fell in the window; nothing was
	// written. Not an error.
	OutcomeEmpty
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeAlreadyExists:
		return "already_exists"
	case OutcomeEmpty:
		return "empty"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Result is the outcome of one build. Aggregate is set only for
// OutcomeCreated.
type Result struct {
	Outcome   Outcome
	Aggregate *types.Aggregate
}

// Store is the slice of the repository the builder needs.
type Store interface {
	WindowStats(start, end time.Time) (types.WindowStats, error)
	HourlyAggregateExists(hourStart time.Time) (bool, error)
	InsertHourlyAggregate(agg types.Aggregate) (types.Aggregate, error)
	DailyAggregateExists(dayStart time.Time) (bool, error)
	InsertDailyAggregate(agg types.Aggregate) (types.Aggregate, error)
}

type Builder struct {
	store Store
	now   func() time.Time
}

func NewBuilder(store Store) *Builder {
	return &Builder{store: store, now: time.Now}
}

// BuildHourly summarizes the readings in [hourStart, hourStart+1h). The
// caller must pass a boundary produced by FloorToHour. Repeated calls for the
// same window are safe: the second and later ones report OutcomeAlreadyExists.
func (b *Builder) BuildHourly(hourStart time.Time) (Result, error) {
	return b.build(buildSpec{
		windowStart: hourStart,
		windowEnd:   hourStart.Add(time.Hour),
		exists:      b.store.HourlyAggregateExists,
		insert:      b.store.InsertHourlyAggregate,
		tier:        "hourly",
	})
}

// BuildDaily summarizes the readings in [dayStart, dayStart+24h). The caller
// must pass a boundary produced by FloorToDay.
func (b *Builder) BuildDaily(dayStart time.Time) (Result, error) {
	return b.build(buildSpec{
		windowStart: dayStart,
		windowEnd:   dayStart.AddDate(0, 0, 1),
		exists:      b.store.DailyAggregateExists,
		insert:      b.store.InsertDailyAggregate,
		tier:        "daily",
	})
}

type buildSpec struct {
	windowStart time.Time
	windowEnd   time.Time
	exists      func(time.Time) (bool, error)
	insert      func(types.Aggregate) (types.Aggregate, error)
	tier        string
}

func (b *Builder) build(spec buildSpec) (Result, error) {
	stats, err := b.store.WindowStats(spec.windowStart, spec.windowEnd)
	if err != nil {
		return Result{}, fmt.Errorf("%s window stats for %s: %w", spec.tier, spec.windowStart.Format(time.RFC3339), err)
	}
	if stats.Count == 0 {
		return Result{Outcome: OutcomeEmpty}, nil
	}

	// Fast path only. The UNIQUE constraint on the window-start column is
	// what actually prevents duplicates under concurrent builders.
	exists, err := spec.exists(spec.windowStart)
	if err != nil {
		return Result{}, fmt.Errorf("%s aggregate existence check for %s: %w", spec.tier, spec.windowStart.Format(time.RFC3339), err)
	}
	if exists {
		return Result{Outcome: OutcomeAlreadyExists}, nil
	}

	agg := types.Aggregate{
		WindowStart:  spec.windowStart.UTC(),
		Temperature:  stats.Temperature,
		Humidity:     stats.Humidity,
		AirQuality:   stats.AirQuality,
		ReadingCount: stats.Count,
		CreatedAt:    b.now().UTC(),
	}
	stored, err := spec.insert(agg)
	if errors.Is(err, repository.ErrDuplicateWindow) {
		// A concurrent builder won the insert race.
		return Result{Outcome: OutcomeAlreadyExists}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("insert %s aggregate for %s: %w", spec.tier, spec.windowStart.Format(time.RFC3339), err)
	}

	slog.Info("aggregate created",
		"tier", spec.tier,
		"window_start", stored.WindowStart,
		"reading_count", stored.ReadingCount,
	)
	return Result{Outcome: OutcomeCreated, Aggregate: &stored}, nil
}
