package service

import (
	"vayu-server/internal/modules/sensor/repository"
	"vayu-server/internal/mqtt"
)

type Service struct {
	repository repository.SensorRepository
}

func NewService(repository repository.SensorRepository) *Service {
	return &Service{repository: repository}
}

func (s *Service) Register(subscriber mqtt.TelemetrySubscriber) {
	registerMQTTHandler(subscriber, s.repository)
}
