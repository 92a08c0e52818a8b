package controller

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"vayu-server/internal/modules/sensor/aggregate"
	"vayu-server/internal/modules/sensor/export"
	"vayu-server/internal/modules/sensor/types"
	"vayu-server/internal/utils"
)

func (c *sensorControllerImpl) handleHealth(w http.ResponseWriter, r *http.Request) {
	total, err := c.repository.TotalReadingsCount()
	if err != nil {
		slog.Error("health: count readings failed", "error", err)
		utils.WriteError(w, http.StatusServiceUnavailable, "service unavailable")
		return
	}
	latest, err := c.repository.GetLatestReading()
	if err != nil {
		slog.Error("health: get latest reading failed", "error", err)
		utils.WriteError(w, http.StatusServiceUnavailable, "service unavailable")
		return
	}

	body := map[string]any{
		"status":             "healthy",
		"timestamp":          c.now().UTC(),
		"database_connected": true,
		"total_readings":     total,
	}
	if latest != nil {
		body["latest_reading_time"] = latest.Timestamp
	} else {
		body["latest_reading_time"] = nil
	}
	utils.WriteJSON(w, http.StatusOK, body)
}

func (c *sensorControllerImpl) handleIngest(w http.ResponseWriter, r *http.Request) {
	var input types.SensorDataInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := input.Validate(); err != nil {
		utils.WriteError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	reading, err := c.repository.InsertReading(input, c.now().UTC())
	if err != nil {
		slog.Error("ingest: insert reading failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to store reading")
		return
	}

	slog.Info("reading stored",
		"temperature", reading.Temperature,
		"humidity", reading.Humidity,
		"air_quality_level", reading.AirQualityLevel,
	)
	utils.WriteJSON(w, http.StatusCreated, reading)
}

func (c *sensorControllerImpl) handleLatest(w http.ResponseWriter, r *http.Request) {
	reading, err := c.repository.GetLatestReading()
	if err != nil {
		slog.Error("latest: query failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load reading")
		return
	}
	if reading == nil {
		utils.WriteError(w, http.StatusNotFound, "no sensor data available")
		return
	}
	utils.WriteJSON(w, http.StatusOK, reading)
}

func (c *sensorControllerImpl) handleRange(w http.ResponseWriter, r *http.Request) {
	hours, err := parseHoursQuery(r, 1, maxRangeHours)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	end := c.now().UTC()
	start := end.Add(-time.Duration(hours) * time.Hour)
	readings, err := c.repository.GetReadings(start, end, rangeLimit)
	if err != nil {
		slog.Error("range: query failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load readings")
		return
	}
	if readings == nil {
		readings = []types.Reading{}
	}
	utils.WriteJSON(w, http.StatusOK, readings)
}

func (c *sensorControllerImpl) handleHourly(w http.ResponseWriter, r *http.Request) {
	hours, err := parseHoursQuery(r, 24, maxHourlyHours)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	end := c.now().UTC()
	start := end.Add(-time.Duration(hours) * time.Hour)
	aggregates, err := c.repository.GetHourlyAggregates(start, end)
	if err != nil {
		slog.Error("hourly: query failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load hourly aggregates")
		return
	}
	if aggregates == nil {
		aggregates = []types.Aggregate{}
	}
	utils.WriteJSON(w, http.StatusOK, aggregates)
}

func (c *sensorControllerImpl) handleDaily(w http.ResponseWriter, r *http.Request) {
	days, err := parseDaysQuery(r, 7, maxDailyDays)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	end := c.now().UTC()
	start := end.AddDate(0, 0, -days)
	aggregates, err := c.repository.GetDailyAggregates(start, end)
	if err != nil {
		slog.Error("daily: query failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load daily aggregates")
		return
	}
	if aggregates == nil {
		aggregates = []types.Aggregate{}
	}
	utils.WriteJSON(w, http.StatusOK, aggregates)
}

func (c *sensorControllerImpl) handleStatistics(w http.ResponseWriter, r *http.Request) {
	hours, err := parseHoursQuery(r, 24, maxStatisticsHours)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	end := c.now().UTC()
	start := end.Add(-time.Duration(hours) * time.Hour)
	stats, err := c.repository.Statistics(start, end)
	if err != nil {
		slog.Error("statistics: query failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to compute statistics")
		return
	}

	// Stored values keep full precision; rounding happens here only.
	stats.Temperature = roundStats(stats.Temperature, 2)
	stats.Humidity = roundStats(stats.Humidity, 2)
	stats.AirQuality = roundStats(stats.AirQuality, 3)
	utils.WriteJSON(w, http.StatusOK, stats)
}

func (c *sensorControllerImpl) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	hours, err := parseHoursQuery(r, 24, maxStatisticsHours)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	end := c.now().UTC()
	start := end.Add(-time.Duration(hours) * time.Hour)
	readings, err := c.repository.GetReadings(start, end, exportLimit)
	if err != nil {
		slog.Error("export: query failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load readings")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename="+export.Filename(start, end))
	if err := export.WriteCSV(w, readings); err != nil {
		slog.Error("export: write csv failed", "error", err)
	}
}

// handleRunAggregation is the on-demand trigger: one scheduler cycle's build
// steps without the sweep. The response says per tier whether a row was newly
// created or already present.
func (c *sensorControllerImpl) handleRunAggregation(w http.ResponseWriter, r *http.Request) {
	now := c.now().UTC()

	prevHour := aggregate.FloorToHour(now).Add(-time.Hour)
	hourly, err := c.builder.BuildHourly(prevHour)
	if err != nil {
		slog.Error("manual aggregation: hourly build failed", "hour_start", prevHour, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "hourly aggregation failed")
		return
	}

	yesterday := aggregate.FloorToDay(now).AddDate(0, 0, -1)
	daily, err := c.builder.BuildDaily(yesterday)
	if err != nil {
		slog.Error("manual aggregation: daily build failed", "day_start", yesterday, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "daily aggregation failed")
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"hourly": hourly.Outcome.String(),
		"daily":  daily.Outcome.String(),
	})
}

func roundStats(m types.MetricStats, decimals int) types.MetricStats {
	return types.MetricStats{
		Avg: roundTo(m.Avg, decimals),
		Min: roundTo(m.Min, decimals),
		Max: roundTo(m.Max, decimals),
	}
}
