package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"vayu-server/internal/config"
	"vayu-server/internal/modules/sensor/types"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Subscriber receives sensor telemetry published by the ESP32 node and hands
// each decoded payload to the registered message handler.
type Subscriber struct {
	client    mqtt.Client
	cfg       config.Config
	logger    *slog.Logger
	mu        sync.RWMutex
	connected bool

	stopCh   chan struct{}
	stopOnce sync.Once

	// MessageHandler is called for each decoded telemetry message.
	MessageHandler func(input types.SensorDataInput) error
}

// TelemetrySubscriber is the surface modules use to attach message handlers.
type TelemetrySubscriber interface {
	SetMessageHandler(handler func(input types.SensorDataInput) error)
}

func (s *Subscriber) SetMessageHandler(handler func(input types.SensorDataInput) error) {
	s.MessageHandler = handler
}

func NewSubscriber(cfg config.Config, logger *slog.Logger) *Subscriber {
	s := &Subscriber{
		cfg:    cfg,
		logger: logger,
		stopCh: make(chan struct{}),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTTBroker, cfg.MQTTPort))
	opts.SetClientID(cfg.MQTTClientID)

	opts.SetCleanSession(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)

	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		s.setConnected(true)
		logger.Info("mqtt connected", "broker", cfg.MQTTBroker, "port", cfg.MQTTPort)
	})

	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		s.setConnected(false)
		logger.Warn("mqtt connection lost", "error", err)
	})

	s.client = mqtt.NewClient(opts)
	return s
}

// Connect establishes the broker connection and subscribes to the configured
// topic. It respects ctx cancellation and a prior Disconnect.
func (s *Subscriber) Connect(ctx context.Context) error {
	select {
	case <-s.stopCh:
		return fmt.Errorf("subscriber stopped")
	default:
	}

	if s.IsConnected() {
		return nil
	}

	token := s.client.Connect()

	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			break
		}

		select {
		case <-ctx.Done():
			s.client.Disconnect(0)
			return ctx.Err()
		case <-s.stopCh:
			s.client.Disconnect(0)
			return fmt.Errorf("subscriber stopped")
		default:
		}
	}

	if err := s.subscribe(); err != nil {
		s.client.Disconnect(0)
		return fmt.Errorf("subscribe: %w", err)
	}

	return nil
}

func (s *Subscriber) subscribe() error {
	if !s.IsConnected() {
		return fmt.Errorf("mqtt client not connected")
	}

	topic := s.cfg.MQTTTopic
	qos := byte(1) // at least once

	messageHandler := func(client mqtt.Client, msg mqtt.Message) {
		s.handleMessage(msg.Topic(), msg.Payload())
	}

	token := s.client.Subscribe(topic, qos, messageHandler)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("subscribe timeout for topic %s", topic)
	}
	if token.Error() != nil {
		return fmt.Errorf("subscribe to %s: %w", topic, token.Error())
	}

	s.logger.Info("subscribed to mqtt topic", "topic", topic, "qos", qos)
	return nil
}

func (s *Subscriber) handleMessage(topic string, payload []byte) {
	s.logger.Debug("received mqtt message", "topic", topic, "size", len(payload))

	var input types.SensorDataInput
	if err := json.Unmarshal(payload, &input); err != nil {
		s.logger.Warn("failed to parse telemetry message",
			"topic", topic,
			"error", err,
			"payload", string(payload),
		)
		return
	}

	if s.MessageHandler == nil {
		return
	}
	if err := s.MessageHandler(input); err != nil {
		s.logger.Warn("telemetry message rejected",
			"topic", topic,
			"error", err,
		)
		return
	}
	s.logger.Debug("processed telemetry message", "topic", topic)
}

// IsConnected returns whether the client is connected.
func (s *Subscriber) IsConnected() bool {
	s.mu.RLock()
	connected := s.connected
	s.mu.RUnlock()
	return connected && s.client.IsConnected()
}

// Disconnect stops the subscriber and closes the MQTT connection.
// Idempotent and safe to call multiple times.
func (s *Subscriber) Disconnect() {
	s.stopOnce.Do(func() { close(s.stopCh) })

	if s.client != nil && s.IsConnected() {
		token := s.client.Unsubscribe(s.cfg.MQTTTopic)
		token.WaitTimeout(2 * time.Second)
	}

	if s.client != nil {
		s.client.Disconnect(250)
	}

	s.setConnected(false)
	s.logger.Info("mqtt subscriber disconnected")
}

func (s *Subscriber) setConnected(v bool) {
	s.mu.Lock()
	s.connected = v
	s.mu.Unlock()
}
