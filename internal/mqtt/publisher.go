package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"serverwatch/internal/config"
	"serverwatch/internal/modules/monitoring/types"
)

// Publisher sends readings to the configured topic, the way a field sensor
// does. The serve process stores them through its Subscriber.
type Publisher struct {
	*conn
}

// NewPublisher uses its own client ID so it can run next to a subscriber
// configured with the same environment.
func NewPublisher(cfg config.Config, logger *slog.Logger) *Publisher {
	clientID := cfg.MQTTClientID + "-pub-" + uuid.NewString()[:8]
	return &Publisher{conn: newConn(cfg, clientID, logger, nil)}
}

// Publish sends c to the readings topic and waits for the broker to
// acknowledge it or ctx to end.
func (p *Publisher) Publish(ctx context.Context, c types.Candidate) error {
	if !p.IsConnected() {
		return errors.New("mqtt client not connected")
	}

	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal reading: %w", err)
	}

	topic := p.cfg.MQTTTopic
	token := p.client.Publish(topic, qos, false, data)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Second):
		return fmt.Errorf("publish timeout for topic %s", topic)
	}
	if err := token.Error(); err != nil {
		p.logger.Error("failed to publish reading", "topic", topic, "error", err)
		return fmt.Errorf("publish reading: %w", err)
	}

	p.logger.Debug("published reading", "topic", topic, "petugas", c.Petugas)
	return nil
}

// Disconnect closes the connection. Idempotent.
func (p *Publisher) Disconnect() {
	p.disconnect(nil)
}
