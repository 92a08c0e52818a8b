package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"vayu-server/internal/config"
	"vayu-server/internal/db"
	"vayu-server/internal/db/migrate"
	"vayu-server/internal/httpapi"
	sensor "vayu-server/internal/modules/sensor"
	"vayu-server/internal/mqtt"
)

func Run(ctx context.Context, cfg config.Config) error {
	slog.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"driver", cfg.Driver,
		"sqlitePath", cfg.Path,
		"rawRetention", cfg.RawRetention,
		"hourlyRetention", cfg.HourlyRetention,
		"dailyRetention", cfg.DailyRetention,
		"aggregationInterval", cfg.AggregationInterval,
		"mqttBroker", cfg.MQTTBroker,
		"mqttPort", cfg.MQTTPort,
		"mqttTopic", cfg.MQTTTopic,
	)

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

	mqttSubscriber := mqtt.NewSubscriber(cfg, slog.Default())
	mux := httpapi.NewMux(dbConn)
	sched := sensor.RegisterFeature(mux, dbConn, mqttSubscriber, cfg)

	// Short timeout so a down broker does not block startup; readings can
	// still arrive over HTTP and paho keeps retrying in the background.
	connectCtx, connectCancel := context.WithTimeout(ctx, 5*time.Second)
	err = mqttSubscriber.Connect(connectCtx)
	connectCancel()
	if err != nil {
		slog.Warn("mqtt connection failed (continuing without mqtt)", "error", err)
	}

	go sched.Run(ctx)

	srv := httpapi.NewServer(cfg, mux)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	slog.Info("mqtt disconnecting")
	mqttSubscriber.Disconnect()

	slog.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}
