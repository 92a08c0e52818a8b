// Command backfill reconstructs missing hourly and daily aggregates from the
// stored raw readings, e.g. after downtime or a fresh deployment over an
// imported database. Safe to re-run over the same range.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"vayu-server/internal/config"
	"vayu-server/internal/db"
	"vayu-server/internal/db/migrate"
	"vayu-server/internal/logging"
	"vayu-server/internal/modules/sensor/aggregate"
	"vayu-server/internal/modules/sensor/backfill"
	"vayu-server/internal/modules/sensor/repository"
)

const appName = "vayu-backfill"

func main() {
	fromFlag := flag.String("from", "", "range start, RFC3339 (default: oldest stored reading)")
	toFlag := flag.String("to", "", "range end, RFC3339 (default: newest stored reading)")
	flag.Parse()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.New(cfg, "dev", appName))

	if err := run(cfg, *fromFlag, *toFlag); err != nil {
		slog.Error("backfill failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, fromFlag, toFlag string) error {
	dbConn, err := db.Open(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(dbConn); closeErr != nil {
			slog.Error("db close", "error", closeErr)
		}
	}()

	if err := migrate.Run(dbConn); err != nil {
		return err
	}

	repo := repository.NewRepository(dbConn)
	start, end, err := resolveRange(repo, fromFlag, toFlag)
	if err != nil {
		return err
	}

	slog.Info("backfill range resolved", "from", start, "to", end)

	summary, err := backfill.Range(aggregate.NewBuilder(repo), start, end)
	if err != nil {
		return err
	}

	slog.Info("hourly aggregates",
		"created", summary.Hourly.Created,
		"skipped", summary.Hourly.Skipped,
		"empty", summary.Hourly.Empty,
	)
	slog.Info("daily aggregates",
		"created", summary.Daily.Created,
		"skipped", summary.Daily.Skipped,
		"empty", summary.Daily.Empty,
	)
	return nil
}

// resolveRange fills missing bounds from the stored data extent.
func resolveRange(repo repository.SensorRepository, fromFlag, toFlag string) (time.Time, time.Time, error) {
	var start, end time.Time

	if fromFlag != "" {
		t, err := time.Parse(time.RFC3339, fromFlag)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid -from (expected RFC3339): %w", err)
		}
		start = t
	}
	if toFlag != "" {
		t, err := time.Parse(time.RFC3339, toFlag)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid -to (expected RFC3339): %w", err)
		}
		end = t
	}

	if start.IsZero() || end.IsZero() {
		oldest, newest, ok, err := repo.ReadingTimeBounds()
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("reading time bounds: %w", err)
		}
		if !ok {
			return time.Time{}, time.Time{}, fmt.Errorf("no raw readings stored; nothing to backfill")
		}
		if start.IsZero() {
			start = oldest
		}
		if end.IsZero() {
			end = newest
		}
	}

	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("-to %s is before -from %s", end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	return start, end, nil
}
