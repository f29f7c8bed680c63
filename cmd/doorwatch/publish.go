package main

import (
	"context"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/peterbourgon/ff/v3/ffcli"
	"go.uber.org/zap"

	"doorwatch/internal/config"
	"doorwatch/internal/ingest/mqtt"
	"doorwatch/internal/sensor"
)

const connectTimeout = 30 * time.Second

var publishArgs struct {
	state    string
	interval time.Duration
}

func newPublishCommand(cfg *config.Config) *ffcli.Command {
	fs := newFlagSet("publish", cfg)
	fs.StringVar(&cfg.MQTT.Endpoint, "mqtt-endpoint", cfg.MQTT.Endpoint, "MQTT broker host")
	fs.StringVar(&cfg.MQTT.Topic, "topic", cfg.MQTT.Topic, "MQTT topic carrying door readings")
	fs.StringVar(&publishArgs.state, "state", "", "publish this state once and exit; empty alternates Open/Closed")
	fs.DurationVar(&publishArgs.interval, "interval", 5*time.Second, "pause between alternating readings")
	return &ffcli.Command{
		Name:       "publish",
		ShortUsage: "doorwatch publish [flags]",
		ShortHelp:  "Simulate the door sensor by publishing readings to MQTT",
		FlagSet:    fs,
		Options:    envOptions(),
		Exec: func(ctx context.Context, args []string) error {
			if err := noArgs(args); err != nil {
				return err
			}
			return runPublish(ctx, cfg)
		},
	}
}

func runPublish(ctx context.Context, cfg *config.Config) error {
	if err := cfg.ValidatePublish(); err != nil {
		return err
	}
	logger, err := newLogger(cfg, "publish")
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	mqttCfg := cfg.MQTT
	mqttCfg.ClientID = mqttCfg.ClientID + "-sensor"
	opts, err := mqtt.ClientOptions(mqttCfg)
	if err != nil {
		return err
	}
	// A one-shot publish should fail fast rather than retry forever.
	opts.SetConnectRetry(false)
	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("publish: connect to %s timed out", mqtt.BrokerURL(mqttCfg))
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: connect: %w", err)
	}
	defer client.Disconnect(250)
	logger.Info("connected", zap.String("broker", mqtt.BrokerURL(mqttCfg)))

	publisher, err := sensor.NewPublisher(client, mqttCfg.Topic, logger)
	if err != nil {
		return err
	}
	if publishArgs.state != "" {
		return publisher.Publish(ctx, publishArgs.state)
	}
	return publisher.Alternate(ctx, sensor.StateOpen, publishArgs.interval)
}
