package mqtt

import (
	"context"
	"errors"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"doorwatch/internal/config"
	doors "doorwatch/internal/doors/domain"
	"doorwatch/internal/observability/metrics"
)

const (
	source = "mqtt"

	disconnectQuiesceMillis = 250
)

// Subscriber forwards door sensor messages from an MQTT topic.
type Subscriber struct {
	client    paho.Client
	topic     string
	publisher doors.Publisher
	logger    *zap.Logger
}

// NewSubscriber constructs a subscriber for cfg. The topic is subscribed on
// every (re)connect.
func NewSubscriber(cfg config.MQTTConfig, publisher doors.Publisher, logger *zap.Logger) (*Subscriber, error) {
	if publisher == nil {
		return nil, errors.New("mqtt subscriber: nil publisher")
	}
	if cfg.Topic == "" {
		return nil, errors.New("mqtt subscriber: empty topic")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	opts, err := ClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	s := &Subscriber{
		topic:     cfg.Topic,
		publisher: publisher,
		logger:    logger.Named("mqtt").With(zap.String("topic", cfg.Topic)),
	}
	opts.SetOnConnectHandler(s.onConnect)
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		s.logger.Warn("connection lost", zap.Error(err))
	})
	s.client = paho.NewClient(opts)
	return s, nil
}

// Run connects and forwards messages until ctx is done. Connection failures
// are logged and retried by the client; Run only returns on ctx.
func (s *Subscriber) Run(ctx context.Context) error {
	if s == nil {
		return errors.New("mqtt subscriber: nil")
	}
	token := s.client.Connect()
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			s.logger.Error("connect failed", zap.Error(err))
			metrics.IncIngestError(source, "connect")
		}
	case <-ctx.Done():
	}
	<-ctx.Done()
	s.client.Disconnect(disconnectQuiesceMillis)
	return nil
}

func (s *Subscriber) onConnect(c paho.Client) {
	s.logger.Info("connected to broker")
	token := c.Subscribe(s.topic, 0, func(_ paho.Client, msg paho.Message) {
		s.HandleMessage(msg.Payload())
	})
	go func() {
		<-token.Done()
		if err := token.Error(); err != nil {
			s.logger.Error("subscribe failed", zap.Error(err))
			metrics.IncIngestError(source, "subscribe")
		}
	}()
}

// HandleMessage normalises one sensor payload and publishes it. Undecodable
// payloads are logged and dropped.
func (s *Subscriber) HandleMessage(payload []byte) {
	update, err := doors.DecodeSensorPayload(payload)
	if err != nil {
		s.logger.Warn("dropping message", zap.Error(err))
		metrics.IncIngest(source, metrics.ResultError)
		metrics.IncIngestError(source, "decode")
		return
	}
	s.publisher.Publish(update)
	metrics.IncIngest(source, metrics.ResultSuccess)
	s.logger.Debug("door update",
		zap.String("door_state", update.DoorState),
		zap.String("timestamp", update.Timestamp))
}
