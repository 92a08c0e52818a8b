package sensor

import (
	"database/sql"
	"net/http"

	"vayu-server/internal/config"
	"vayu-server/internal/modules/sensor/aggregate"
	"vayu-server/internal/modules/sensor/controller"
	"vayu-server/internal/modules/sensor/repository"
	"vayu-server/internal/modules/sensor/retention"
	"vayu-server/internal/modules/sensor/scheduler"
	"vayu-server/internal/modules/sensor/service"
	"vayu-server/internal/mqtt"
)

// RegisterFeature wires the sensor module: HTTP routes, MQTT ingestion, and
// the aggregation/retention scheduler. The returned scheduler is started by
// the caller.
func RegisterFeature(mux *http.ServeMux, db *sql.DB, subscriber mqtt.TelemetrySubscriber, cfg config.Config) *scheduler.Scheduler {
	repo := repository.NewRepository(db)
	builder := aggregate.NewBuilder(repo)
	sweeper := retention.NewSweeper(repo, retention.Config{
		Raw:    cfg.RawRetention,
		Hourly: cfg.HourlyRetention,
		Daily:  cfg.DailyRetention,
	})

	sensorController := controller.NewSensorController(repo, builder)
	sensorController.RegisterRoutes(mux)

	sensorService := service.NewService(repo)
	sensorService.Register(subscriber)

	return scheduler.New(builder, sweeper, cfg.AggregationInterval)
}
