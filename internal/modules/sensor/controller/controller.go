package controller

import (
	"net/http"
	"time"

	"vayu-server/internal/modules/sensor/aggregate"
	"vayu-server/internal/modules/sensor/repository"
)

type SensorController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type sensorControllerImpl struct {
	repository repository.SensorRepository
	builder    *aggregate.Builder
	now        func() time.Time
}

func NewSensorController(repo repository.SensorRepository, builder *aggregate.Builder) SensorController {
	return &sensorControllerImpl{
		repository: repo,
		builder:    builder,
		now:        time.Now,
	}
}

func (c *sensorControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", c.handleHealth)
	mux.HandleFunc("POST /api/sensor-data", c.handleIngest)
	mux.HandleFunc("GET /api/sensor-data/latest", c.handleLatest)
	mux.HandleFunc("GET /api/sensor-data/range", c.handleRange)
	mux.HandleFunc("GET /api/sensor-data/hourly", c.handleHourly)
	mux.HandleFunc("GET /api/sensor-data/daily", c.handleDaily)
	mux.HandleFunc("GET /api/statistics", c.handleStatistics)
	mux.HandleFunc("GET /api/export/csv", c.handleExportCSV)
	mux.HandleFunc("POST /api/aggregation/run", c.handleRunAggregation)
}
