// Package sensor publishes door readings in the format the door classifier
// emits, for exercising the bridge without hardware.
package sensor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// TimestampLayout is the sensor's local timestamp format.
const TimestampLayout = "2006-01-02 15:04:05"

// Door states reported by the classifier.
const (
	StateOpen   = "Open"
	StateClosed = "Closed"
)

// Client is the subset of a paho client used for publishing.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

type reading struct {
	DoorState string `json:"Door State"`
	Timestamp string `json:"timestamp"`
}

// Publisher sends door readings to one topic at QoS 0.
type Publisher struct {
	client Client
	topic  string
	now    func() time.Time
	logger *zap.Logger
}

// NewPublisher constructs a publisher on topic.
func NewPublisher(client Client, topic string, logger *zap.Logger) (*Publisher, error) {
	if client == nil {
		return nil, errors.New("sensor publisher: nil client")
	}
	if topic == "" {
		return nil, errors.New("sensor publisher: empty topic")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{client: client, topic: topic, now: time.Now, logger: logger.Named("sensor")}, nil
}

// Publish sends state stamped with the current local time.
func (p *Publisher) Publish(ctx context.Context, state string) error {
	if state == "" {
		return errors.New("sensor publisher: empty state")
	}
	payload, err := json.Marshal(reading{DoorState: state, Timestamp: p.now().Format(TimestampLayout)})
	if err != nil {
		return fmt.Errorf("sensor publisher: encode: %w", err)
	}
	token := p.client.Publish(p.topic, 0, false, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("sensor publisher: publish: %w", err)
	}
	p.logger.Info("published", zap.String("door_state", state), zap.String("topic", p.topic))
	return nil
}

// Alternate publishes Open and Closed in turn every interval until ctx is
// done, starting with first.
func (p *Publisher) Alternate(ctx context.Context, first string, interval time.Duration) error {
	if interval <= 0 {
		return errors.New("sensor publisher: interval must be positive")
	}
	state := first
	if state == "" {
		state = StateOpen
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := p.Publish(ctx, state); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		state = Next(state)
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil
		}
	}
}

// Next returns the state that follows state in an alternating run.
func Next(state string) string {
	if state == StateOpen {
		return StateClosed
	}
	return StateOpen
}
