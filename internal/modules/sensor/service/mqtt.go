package service

import (
	"fmt"
	"log/slog"
	"time"

	"vayu-server/internal/modules/sensor/repository"
	"vayu-server/internal/modules/sensor/types"
	"vayu-server/internal/mqtt"
)

// registerMQTTHandler wires the sensor module's telemetry handler: validate
// at the boundary, then store with the receive time as the sample timestamp.
func registerMQTTHandler(subscriber mqtt.TelemetrySubscriber, repo repository.SensorRepository) {
	subscriber.SetMessageHandler(func(input types.SensorDataInput) error {
		if err := input.Validate(); err != nil {
			return fmt.Errorf("invalid telemetry: %w", err)
		}

		reading, err := repo.InsertReading(input, time.Now().UTC())
		if err != nil {
			slog.Error("failed to insert reading", "error", err)
			return err
		}

		slog.Debug("stored telemetry reading",
			"id", reading.ID,
			"temperature", reading.Temperature,
			"air_quality_level", reading.AirQualityLevel,
		)
		return nil
	})
}
