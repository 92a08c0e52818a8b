package types

import (
	"fmt"
	"time"
)

// Air quality classification reported by the sensor node.
const (
	AirQualityGood     = "Good"
	AirQualityModerate = "Moderate"
	AirQualityPoor     = "Poor"
)

// Reading is one raw sensor sample. Rows are immutable after insert and are
// removed only by the retention sweeper.
type Reading struct {
	ID                int64     `json:"id"`
	Temperature       float64   `json:"temperature"`
	Humidity          float64   `json:"humidity"`
	AirQualityVoltage float64   `json:"air_quality_voltage"`
	AirQualityLevel   string    `json:"air_quality_level"`
	Timestamp         time.Time `json:"timestamp"`
}

// SensorDataInput is the ingestion payload, accepted over HTTP POST and MQTT.
type SensorDataInput struct {
	Temperature       float64 `json:"temperature"`
	Humidity          float64 `json:"humidity"`
	AirQualityVoltage float64 `json:"airQualityVoltage"`
	AirQualityLevel   string  `json:"airQualityLevel"`
}

// Validate applies the ingestion-boundary range checks. Records that fail
// here never reach storage.
func (in SensorDataInput) Validate() error {
	if in.Temperature < -50 || in.Temperature > 100 {
		return fmt.Errorf("temperature out of range: %g (must be -50..100)", in.Temperature)
	}
	if in.Humidity < 0 || in.Humidity > 100 {
		return fmt.Errorf("humidity out of range: %g (must be 0..100)", in.Humidity)
	}
	if in.AirQualityVoltage < 0 || in.AirQualityVoltage > 5 {
		return fmt.Errorf("air quality voltage out of range: %g (must be 0..5)", in.AirQualityVoltage)
	}
	switch in.AirQualityLevel {
	case AirQualityGood, AirQualityModerate, AirQualityPoor:
	default:
		return fmt.Errorf("invalid air quality level %q (allowed: Good, Moderate, Poor)", in.AirQualityLevel)
	}
	return nil
}

// MetricStats holds avg/min/max for a single metric.
type MetricStats struct {
	Avg float64 `json:"avg"`
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// WindowStats is the result of one aggregate query over raw readings in a
// half-open time window.
type WindowStats struct {
	Count       int
	Temperature MetricStats
	Humidity    MetricStats
	AirQuality  MetricStats
}

// Aggregate is a write-once statistical summary of the raw readings whose
// timestamps fall in [WindowStart, WindowStart+window). The same shape backs
// both the hourly and the daily tier.
type Aggregate struct {
	ID           int64       `json:"id"`
	WindowStart  time.Time   `json:"timestamp"`
	Temperature  MetricStats `json:"temperature"`
	Humidity     MetricStats `json:"humidity"`
	AirQuality   MetricStats `json:"air_quality"`
	ReadingCount int         `json:"reading_count"`
	CreatedAt    time.Time   `json:"created_at"`
}

// Statistics is a fresh summary computed from raw readings in a range,
// independent of stored aggregates. A range with no readings yields a
// zero-filled summary, not an error.
type Statistics struct {
	PeriodStart   time.Time   `json:"period_start"`
	PeriodEnd     time.Time   `json:"period_end"`
	TotalReadings int         `json:"total_readings"`
	Temperature   MetricStats `json:"temperature"`
	Humidity      MetricStats `json:"humidity"`
	AirQuality    MetricStats `json:"air_quality"`
}
