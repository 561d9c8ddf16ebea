package mqtt

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"serverwatch/internal/config"
	"serverwatch/internal/logging"
	"serverwatch/internal/modules/monitoring/types"
)

// handleTimeout bounds the processing of one message.
const handleTimeout = 10 * time.Second

// Subscriber receives readings published by sensors. Each message is a JSON
// object with the same fields as the submission form.
type Subscriber struct {
	*conn

	ctx    context.Context
	cancel context.CancelFunc

	handlerMu sync.RWMutex
	handler   func(ctx context.Context, c types.Candidate) error
}

func NewSubscriber(cfg config.Config, logger *slog.Logger) *Subscriber {
	s := &Subscriber{}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	// Subscribing in the connect callback restores the subscription after
	// every reconnect of the clean session.
	s.conn = newConn(cfg, cfg.MQTTClientID, logger, func() {
		if err := s.subscribe(); err != nil {
			s.logger.Error("mqtt subscribe failed", "topic", cfg.MQTTTopic, "error", err)
		}
	})
	return s
}

// SetMessageHandler sets the handler for decoded messages. Set it before
// Connect: the broker may deliver queued messages right after CONNACK.
func (s *Subscriber) SetMessageHandler(handler func(ctx context.Context, c types.Candidate) error) {
	s.handlerMu.Lock()
	s.handler = handler
	s.handlerMu.Unlock()
}

func (s *Subscriber) subscribe() error {
	topic := s.cfg.MQTTTopic
	token := s.client.Subscribe(topic, qos, func(_ mqtt.Client, msg mqtt.Message) {
		s.handleMessage(msg.Topic(), msg.Payload())
	})
	if err := waitToken(token, 5*time.Second, "subscribe to "+topic); err != nil {
		return err
	}
	s.logger.Info("subscribed to mqtt topic", "topic", topic, "qos", qos)
	return nil
}

func (s *Subscriber) handleMessage(topic string, payload []byte) {
	logger := s.logger.With("topic", topic)
	logger.Debug("received mqtt message", "size", len(payload))

	var candidate types.Candidate
	if err := json.Unmarshal(payload, &candidate); err != nil {
		logger.Warn("failed to parse reading message", "error", err, "payload", string(payload))
		return
	}

	s.handlerMu.RLock()
	handler := s.handler
	s.handlerMu.RUnlock()
	if handler == nil {
		logger.Warn("no message handler set; dropping reading")
		return
	}

	ctx, cancel := context.WithTimeout(logging.WithContext(s.ctx, logger), handleTimeout)
	defer cancel()
	if err := handler(ctx, candidate); err != nil {
		if types.IsValidation(err) {
			logger.Warn("invalid reading message", "petugas", candidate.Petugas, "error", err)
			return
		}
		logger.Error("message handler failed", "petugas", candidate.Petugas, "error", err)
		return
	}
	logger.Debug("processed reading message", "petugas", candidate.Petugas)
}

// Disconnect stops the subscriber and closes the MQTT connection.
func (s *Subscriber) Disconnect() {
	s.cancel()
	s.disconnect(func() {
		token := s.client.Unsubscribe(s.cfg.MQTTTopic)
		token.WaitTimeout(2 * time.Second)
	})
	s.logger.Info("mqtt subscriber disconnected")
}
