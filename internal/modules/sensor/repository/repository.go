package repository

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"vayu-server/internal/modules/sensor/types"

	sqlite3 "github.com/mattn/go-sqlite3"
)

//go:embed sql/insert-reading.sql
var insertReadingSQL string

//go:embed sql/get-latest-reading.sql
var getLatestReadingSQL string

//go:embed sql/get-readings-range.sql
var getReadingsRangeSQL string

//go:embed sql/count-readings.sql
var countReadingsSQL string

//go:embed sql/reading-time-bounds.sql
var readingTimeBoundsSQL string

//go:embed sql/window-stats.sql
var windowStatsSQL string

//go:embed sql/statistics.sql
var statisticsSQL string

//go:embed sql/hourly-aggregate-exists.sql
var hourlyAggregateExistsSQL string

//go:embed sql/insert-hourly-aggregate.sql
var insertHourlyAggregateSQL string

//go:embed sql/get-hourly-aggregates.sql
var getHourlyAggregatesSQL string

//go:embed sql/daily-aggregate-exists.sql
var dailyAggregateExistsSQL string

//go:embed sql/insert-daily-aggregate.sql
var insertDailyAggregateSQL string

//go:embed sql/get-daily-aggregates.sql
var getDailyAggregatesSQL string

//go:embed sql/delete-readings-before.sql
var deleteReadingsBeforeSQL string

//go:embed sql/delete-hourly-aggregates-before.sql
var deleteHourlyAggregatesBeforeSQL string

//go:embed sql/delete-daily-aggregates-before.sql
var deleteDailyAggregatesBeforeSQL string

// ErrDuplicateWindow is returned when an aggregate insert hits the UNIQUE
// constraint on the window-start column. The constraint, not the caller's
// existence pre-check, is the authoritative guarantee that at most one
// aggregate is ever stored per window.
var ErrDuplicateWindow = errors.New("aggregate window already exists")

// timeLayout is a fixed-width UTC format so that lexicographic comparison of
// stored timestamps matches time order (RFC3339Nano drops trailing zeros and
// breaks that).
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

type SensorRepository interface {
	InsertReading(input types.SensorDataInput, ts time.Time) (types.Reading, error)
	GetLatestReading() (*types.Reading, error)
	GetReadings(from, to time.Time, limit int) ([]types.Reading, error)
	TotalReadingsCount() (int, error)
	ReadingTimeBounds() (oldest, newest time.Time, ok bool, err error)

	WindowStats(start, end time.Time) (types.WindowStats, error)
	Statistics(from, to time.Time) (types.Statistics, error)

	HourlyAggregateExists(hourStart time.Time) (bool, error)
	InsertHourlyAggregate(agg types.Aggregate) (types.Aggregate, error)
	GetHourlyAggregates(from, to time.Time) ([]types.Aggregate, error)

	DailyAggregateExists(dayStart time.Time) (bool, error)
	InsertDailyAggregate(agg types.Aggregate) (types.Aggregate, error)
	GetDailyAggregates(from, to time.Time) ([]types.Aggregate, error)

	DeleteReadingsBefore(cutoff time.Time) (int64, error)
	DeleteHourlyAggregatesBefore(cutoff time.Time) (int64, error)
	DeleteDailyAggregatesBefore(cutoff time.Time) (int64, error)
}

type repositoryImpl struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) SensorRepository {
	return &repositoryImpl{db: db}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err == nil {
		return t, nil
	}
	t, err2 := time.Parse(time.RFC3339Nano, s)
	if err2 != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w; RFC3339Nano: %w", s, err, err2)
	}
	return t, nil
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique ||
			se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func (r *repositoryImpl) InsertReading(input types.SensorDataInput, ts time.Time) (types.Reading, error) {
	res, err := r.db.Exec(insertReadingSQL,
		input.Temperature,
		input.Humidity,
		input.AirQualityVoltage,
		input.AirQualityLevel,
		formatTime(ts),
	)
	if err != nil {
		return types.Reading{}, fmt.Errorf("insert reading: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return types.Reading{}, fmt.Errorf("insert reading id: %w", err)
	}
	return types.Reading{
		ID:                id,
		Temperature:       input.Temperature,
		Humidity:          input.Humidity,
		AirQualityVoltage: input.AirQualityVoltage,
		AirQualityLevel:   input.AirQualityLevel,
		Timestamp:         ts.UTC(),
	}, nil
}

func (r *repositoryImpl) GetLatestReading() (*types.Reading, error) {
	row := r.db.QueryRow(getLatestReadingSQL)
	reading, err := scanReading(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &reading, nil
}

func (r *repositoryImpl) GetReadings(from, to time.Time, limit int) ([]types.Reading, error) {
	rows, err := r.db.Query(getReadingsRangeSQL, formatTime(from), formatTime(to), limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close readings rows", "error", err)
		}
	}()
	var out []types.Reading
	for rows.Next() {
		reading, err := scanReading(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, reading)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReading(row rowScanner) (types.Reading, error) {
	var rec types.Reading
	var ts string
	if err := row.Scan(&rec.ID, &rec.Temperature, &rec.Humidity, &rec.AirQualityVoltage, &rec.AirQualityLevel, &ts); err != nil {
		return types.Reading{}, err
	}
	t, err := parseTime(ts)
	if err != nil {
		return types.Reading{}, err
	}
	rec.Timestamp = t
	return rec, nil
}

func (r *repositoryImpl) TotalReadingsCount() (int, error) {
	var n int
	err := r.db.QueryRow(countReadingsSQL).Scan(&n)
	return n, err
}

func (r *repositoryImpl) ReadingTimeBounds() (time.Time, time.Time, bool, error) {
	var minStr, maxStr sql.NullString
	if err := r.db.QueryRow(readingTimeBoundsSQL).Scan(&minStr, &maxStr); err != nil {
		return time.Time{}, time.Time{}, false, err
	}
	if !minStr.Valid || !maxStr.Valid {
		return time.Time{}, time.Time{}, false, nil
	}
	oldest, err := parseTime(minStr.String)
	if err != nil {
		return time.Time{}, time.Time{}, false, err
	}
	newest, err := parseTime(maxStr.String)
	if err != nil {
		return time.Time{}, time.Time{}, false, err
	}
	return oldest, newest, true, nil
}

func scanStats(row rowScanner) (int, types.MetricStats, types.MetricStats, types.MetricStats, error) {
	var count int
	var tAvg, tMin, tMax, hAvg, hMin, hMax, aAvg, aMin, aMax sql.NullFloat64
	err := row.Scan(&count,
		&tAvg, &tMin, &tMax,
		&hAvg, &hMin, &hMax,
		&aAvg, &aMin, &aMax,
	)
	if err != nil {
		return 0, types.MetricStats{}, types.MetricStats{}, types.MetricStats{}, err
	}
	// AVG/MIN/MAX are NULL on an empty set; zero values stand in.
	temp := types.MetricStats{Avg: tAvg.Float64, Min: tMin.Float64, Max: tMax.Float64}
	hum := types.MetricStats{Avg: hAvg.Float64, Min: hMin.Float64, Max: hMax.Float64}
	aq := types.MetricStats{Avg: aAvg.Float64, Min: aMin.Float64, Max: aMax.Float64}
	return count, temp, hum, aq, nil
}

// WindowStats computes count and per-metric avg/min/max over readings whose
// timestamps fall in the half-open window [start, end).
func (r *repositoryImpl) WindowStats(start, end time.Time) (types.WindowStats, error) {
	row := r.db.QueryRow(windowStatsSQL, formatTime(start), formatTime(end))
	count, temp, hum, aq, err := scanStats(row)
	if err != nil {
		return types.WindowStats{}, fmt.Errorf("window stats: %w", err)
	}
	return types.WindowStats{Count: count, Temperature: temp, Humidity: hum, AirQuality: aq}, nil
}

// Statistics computes a fresh summary over raw readings in [from, to],
// inclusive at both ends. An empty range yields a zero-filled summary.
func (r *repositoryImpl) Statistics(from, to time.Time) (types.Statistics, error) {
	row := r.db.QueryRow(statisticsSQL, formatTime(from), formatTime(to))
	count, temp, hum, aq, err := scanStats(row)
	if err != nil {
		return types.Statistics{}, fmt.Errorf("statistics: %w", err)
	}
	return types.Statistics{
		PeriodStart:   from.UTC(),
		PeriodEnd:     to.UTC(),
		TotalReadings: count,
		Temperature:   temp,
		Humidity:      hum,
		AirQuality:    aq,
	}, nil
}

func (r *repositoryImpl) HourlyAggregateExists(hourStart time.Time) (bool, error) {
	return r.aggregateExists(hourlyAggregateExistsSQL, hourStart)
}

func (r *repositoryImpl) DailyAggregateExists(dayStart time.Time) (bool, error) {
	return r.aggregateExists(dailyAggregateExistsSQL, dayStart)
}

func (r *repositoryImpl) aggregateExists(query string, windowStart time.Time) (bool, error) {
	var exists int
	if err := r.db.QueryRow(query, formatTime(windowStart)).Scan(&exists); err != nil {
		return false, err
	}
	return exists == 1, nil
}

func (r *repositoryImpl) InsertHourlyAggregate(agg types.Aggregate) (types.Aggregate, error) {
	return r.insertAggregate(insertHourlyAggregateSQL, agg)
}

func (r *repositoryImpl) InsertDailyAggregate(agg types.Aggregate) (types.Aggregate, error) {
	return r.insertAggregate(insertDailyAggregateSQL, agg)
}

func (r *repositoryImpl) insertAggregate(query string, agg types.Aggregate) (types.Aggregate, error) {
	res, err := r.db.Exec(query,
		formatTime(agg.WindowStart),
		agg.Temperature.Avg, agg.Temperature.Min, agg.Temperature.Max,
		agg.Humidity.Avg, agg.Humidity.Min, agg.Humidity.Max,
		agg.AirQuality.Avg, agg.AirQuality.Min, agg.AirQuality.Max,
		agg.ReadingCount,
		formatTime(agg.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return types.Aggregate{}, ErrDuplicateWindow
		}
		return types.Aggregate{}, fmt.Errorf("insert aggregate: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return types.Aggregate{}, fmt.Errorf("insert aggregate id: %w", err)
	}
	agg.ID = id
	agg.WindowStart = agg.WindowStart.UTC()
	agg.CreatedAt = agg.CreatedAt.UTC()
	return agg, nil
}

func (r *repositoryImpl) GetHourlyAggregates(from, to time.Time) ([]types.Aggregate, error) {
	return r.getAggregates(getHourlyAggregatesSQL, from, to)
}

func (r *repositoryImpl) GetDailyAggregates(from, to time.Time) ([]types.Aggregate, error) {
	return r.getAggregates(getDailyAggregatesSQL, from, to)
}

func (r *repositoryImpl) getAggregates(query string, from, to time.Time) ([]types.Aggregate, error) {
	rows, err := r.db.Query(query, formatTime(from), formatTime(to))
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close aggregate rows", "error", err)
		}
	}()
	var out []types.Aggregate
	for rows.Next() {
		var agg types.Aggregate
		var windowStart, createdAt string
		err := rows.Scan(&agg.ID, &windowStart,
			&agg.Temperature.Avg, &agg.Temperature.Min, &agg.Temperature.Max,
			&agg.Humidity.Avg, &agg.Humidity.Min, &agg.Humidity.Max,
			&agg.AirQuality.Avg, &agg.AirQuality.Min, &agg.AirQuality.Max,
			&agg.ReadingCount, &createdAt,
		)
		if err != nil {
			return nil, err
		}
		if agg.WindowStart, err = parseTime(windowStart); err != nil {
			return nil, err
		}
		if agg.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, agg)
	}
	return out, rows.Err()
}

func (r *repositoryImpl) DeleteReadingsBefore(cutoff time.Time) (int64, error) {
	return r.deleteBefore(deleteReadingsBeforeSQL, cutoff)
}

func (r *repositoryImpl) DeleteHourlyAggregatesBefore(cutoff time.Time) (int64, error) {
	return r.deleteBefore(deleteHourlyAggregatesBeforeSQL, cutoff)
}

func (r *repositoryImpl) DeleteDailyAggregatesBefore(cutoff time.Time) (int64, error) {
	return r.deleteBefore(deleteDailyAggregatesBeforeSQL, cutoff)
}

func (r *repositoryImpl) deleteBefore(query string, cutoff time.Time) (int64, error) {
	res, err := r.db.Exec(query, formatTime(cutoff))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
