package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level
	HTTPAddr string

	Driver          string
	DSN             string
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// Retention cutoffs per tier. Configured in days, stored as durations.
	RawRetention    time.Duration
	HourlyRetention time.Duration
	DailyRetention  time.Duration

	// AggregationInterval is the scheduler cycle period.
	AggregationInterval time.Duration

	MQTTBroker   string
	MQTTPort     int
	MQTTTopic    string
	MQTTClientID string
}

func LoadFromEnv() (Config, error) {
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	level, err := parseLogLevel(envOrDefault("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, err
	}

	httpAddr := envOrDefault("HTTP_ADDR", ":8000")

	driver := envOrDefault("DB_DRIVER", "sqlite3")
	dsn := strings.TrimSpace(os.Getenv("DB_DSN"))
	path := envOrDefault("SQLITE_PATH", "vayu_data.db")

	maxOpenConns, err := envInt("DB_MAX_OPEN_CONNS", 1)
	if err != nil {
		return Config{}, err
	}
	maxIdleConns, err := envInt("DB_MAX_IDLE_CONNS", 1)
	if err != nil {
		return Config{}, err
	}
	connMaxLifetimeStr := envOrDefault("DB_CONN_MAX_LIFETIME", "0s")
	connMaxLifetime, err := time.ParseDuration(connMaxLifetimeStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid DB_CONN_MAX_LIFETIME %q: %w", connMaxLifetimeStr, err)
	}

	rawDays, err := envInt("RAW_RETENTION_DAYS", 1)
	if err != nil {
		return Config{}, err
	}
	hourlyDays, err := envInt("HOURLY_RETENTION_DAYS", 7)
	if err != nil {
		return Config{}, err
	}
	dailyDays, err := envInt("DAILY_RETENTION_DAYS", 14)
	if err != nil {
		return Config{}, err
	}
	if rawDays < 1 || hourlyDays < 1 || dailyDays < 1 {
		return Config{}, fmt.Errorf("retention days must be >= 1 (raw=%d hourly=%d daily=%d)", rawDays, hourlyDays, dailyDays)
	}

	intervalSec, err := envInt("AGGREGATION_INTERVAL", 3600)
	if err != nil {
		return Config{}, err
	}
	if intervalSec < 1 {
		return Config{}, fmt.Errorf("AGGREGATION_INTERVAL must be >= 1 second, got %d", intervalSec)
	}

	mqttBroker := envOrDefault("MQTT_BROKER", "localhost")
	mqttPort, err := envInt("MQTT_PORT", 1883)
	if err != nil {
		return Config{}, err
	}
	mqttTopic := envOrDefault("MQTT_TOPIC", "vayu/telemetry")
	mqttClientID := envOrDefault("MQTT_CLIENT_ID", "vayu-server")

	return Config{
		AppEnv:              appEnv,
		LogLevel:            level,
		HTTPAddr:            httpAddr,
		Driver:              driver,
		DSN:                 dsn,
		Path:                path,
		MaxOpenConns:        maxOpenConns,
		MaxIdleConns:        maxIdleConns,
		ConnMaxLifetime:     connMaxLifetime,
		RawRetention:        time.Duration(rawDays) * 24 * time.Hour,
		HourlyRetention:     time.Duration(hourlyDays) * 24 * time.Hour,
		DailyRetention:      time.Duration(dailyDays) * 24 * time.Hour,
		AggregationInterval: time.Duration(intervalSec) * time.Second,
		MQTTBroker:          mqttBroker,
		MQTTPort:            mqttPort,
		MQTTTopic:           mqttTopic,
		MQTTClientID:        mqttClientID,
	}, nil
}

func envOrDefault(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envInt(key string, def int) (int, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return n, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
