package controller

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
)

const (
	maxRangeHours      = 24
	maxHourlyHours     = 168
	maxDailyDays       = 14
	maxStatisticsHours = 336

	rangeLimit  = 1000
	exportLimit = 10000
)

func parseHoursQuery(r *http.Request, def, max int) (int, error) {
	return parseBoundedQuery(r, "hours", def, max)
}

func parseDaysQuery(r *http.Request, def, max int) (int, error) {
	return parseBoundedQuery(r, "days", def, max)
}

func parseBoundedQuery(r *http.Request, key string, def, max int) (int, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid '%s' (expected integer)", key)
	}
	if n < 1 {
		return 0, fmt.Errorf("'%s' must be >= 1", key)
	}
	if n > max {
		return 0, fmt.Errorf("'%s' must be <= %d", key, max)
	}
	return n, nil
}

func roundTo(v float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(v*pow) / pow
}
