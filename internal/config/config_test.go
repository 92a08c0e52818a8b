package config

import (
	"log/slog"
	"testing"
	"time"
)

// clearEnv blanks every variable LoadFromEnv reads so defaults apply
// regardless of the host environment.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV", "LOG_LEVEL", "HTTP_ADDR",
		"DB_DRIVER", "DB_DSN", "SQLITE_PATH",
		"DB_MAX_OPEN_CONNS", "DB_MAX_IDLE_CONNS", "DB_CONN_MAX_LIFETIME",
		"RAW_RETENTION_DAYS", "HOURLY_RETENTION_DAYS", "DAILY_RETENTION_DAYS",
		"AGGREGATION_INTERVAL",
		"MQTT_BROKER", "MQTT_PORT", "MQTT_TOPIC", "MQTT_CLIENT_ID",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}

	if cfg.AppEnv != "dev" {
		t.Errorf("AppEnv: got %q, want dev", cfg.AppEnv)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel: got %v, want info", cfg.LogLevel)
	}
	if cfg.HTTPAddr != ":8000" {
		t.Errorf("HTTPAddr: got %q, want :8000", cfg.HTTPAddr)
	}
	if cfg.Driver != "sqlite3" || cfg.Path != "vayu_data.db" {
		t.Errorf("db defaults: driver %q path %q", cfg.Driver, cfg.Path)
	}
	if cfg.RawRetention != 24*time.Hour {
		t.Errorf("RawRetention: got %s, want 24h", cfg.RawRetention)
	}
	if cfg.HourlyRetention != 7*24*time.Hour {
		t.Errorf("HourlyRetention: got %s, want 168h", cfg.HourlyRetention)
	}
	if cfg.DailyRetention != 14*24*time.Hour {
		t.Errorf("DailyRetention: got %s, want 336h", cfg.DailyRetention)
	}
	if cfg.AggregationInterval != time.Hour {
		t.Errorf("AggregationInterval: got %s, want 1h", cfg.AggregationInterval)
	}
	if cfg.MQTTBroker != "localhost" || cfg.MQTTPort != 1883 {
		t.Errorf("mqtt defaults: broker %q port %d", cfg.MQTTBroker, cfg.MQTTPort)
	}
	if cfg.MQTTTopic != "vayu/telemetry" || cfg.MQTTClientID != "vayu-server" {
		t.Errorf("mqtt defaults: topic %q client %q", cfg.MQTTTopic, cfg.MQTTClientID)
	}
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "prod")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("RAW_RETENTION_DAYS", "2")
	t.Setenv("HOURLY_RETENTION_DAYS", "30")
	t.Setenv("DAILY_RETENTION_DAYS", "90")
	t.Setenv("AGGREGATION_INTERVAL", "600")
	t.Setenv("MQTT_TOPIC", "plant/greenhouse")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}

	if cfg.AppEnv != "prod" {
		t.Errorf("AppEnv: got %q, want prod", cfg.AppEnv)
	}
	if cfg.LogLevel != slog.LevelWarn {
		t.Errorf("LogLevel: got %v, want warn", cfg.LogLevel)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr: got %q", cfg.HTTPAddr)
	}
	if cfg.RawRetention != 2*24*time.Hour {
		t.Errorf("RawRetention: got %s, want 48h", cfg.RawRetention)
	}
	if cfg.HourlyRetention != 30*24*time.Hour {
		t.Errorf("HourlyRetention: got %s", cfg.HourlyRetention)
	}
	if cfg.DailyRetention != 90*24*time.Hour {
		t.Errorf("DailyRetention: got %s", cfg.DailyRetention)
	}
	if cfg.AggregationInterval != 10*time.Minute {
		t.Errorf("AggregationInterval: got %s, want 10m", cfg.AggregationInterval)
	}
	if cfg.MQTTTopic != "plant/greenhouse" {
		t.Errorf("MQTTTopic: got %q", cfg.MQTTTopic)
	}
}

func TestLoadFromEnv_TrimsWhitespace(t *testing.T) {
	clearEnv(t)
	t.Setenv("HTTP_ADDR", "  :8080  ")
	t.Setenv("LOG_LEVEL", " DEBUG ")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr: got %q, want :8080", cfg.HTTPAddr)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel: got %v, want debug", cfg.LogLevel)
	}
}

func TestLoadFromEnv_Invalid(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value string
	}{
		{"bad app env", "APP_ENV", "staging"},
		{"bad log level", "LOG_LEVEL", "verbose"},
		{"retention not a number", "RAW_RETENTION_DAYS", "one"},
		{"retention below minimum", "DAILY_RETENTION_DAYS", "0"},
		{"interval below minimum", "AGGREGATION_INTERVAL", "0"},
		{"interval not a number", "AGGREGATION_INTERVAL", "1h"},
		{"bad conn lifetime", "DB_CONN_MAX_LIFETIME", "forever"},
		{"bad mqtt port", "MQTT_PORT", "mqtt"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tc.key, tc.value)
			if _, err := LoadFromEnv(); err == nil {
				t.Fatalf("LoadFromEnv: expected error for %s=%q", tc.key, tc.value)
			}
		})
	}
}
