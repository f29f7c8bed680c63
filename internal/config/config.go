package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds settings shared by every doorwatch command.
type Config struct {
	HTTPAddr  string         `yaml:"http_addr"`
	SecretKey string         `yaml:"secret_key"`
	LogLevel  string         `yaml:"log_level"`
	LogFormat string         `yaml:"log_format"`
	MQTT      MQTTConfig     `yaml:"mqtt"`
	Postgres  PostgresConfig `yaml:"postgres"`
	Stream    StreamConfig   `yaml:"stream"`
}

// MQTTConfig describes the broker the bridge subscribes to.
type MQTTConfig struct {
	Endpoint        string `yaml:"endpoint"`
	Port            int    `yaml:"port"`
	Topic           string `yaml:"topic"`
	ClientID        string `yaml:"client_id"`
	KeepaliveSecs   int    `yaml:"keepalive"`
	RootCA          string `yaml:"root_ca"`
	CertificatePath string `yaml:"certificate_path"`
	PrivateKeyPath  string `yaml:"private_key_path"`
}

// PostgresConfig describes the optional LISTEN/NOTIFY source.
type PostgresConfig struct {
	DatabaseURL string `yaml:"database_url"`
	Channel     string `yaml:"channel"`
}

// StreamConfig describes where the watcher connects.
type StreamConfig struct {
	URL               string        `yaml:"url"`
	Token             string        `yaml:"token"`
	ReconnectInterval time.Duration `yaml:"reconnect_interval"`
}

// Keepalive returns the MQTT keepalive as a duration.
func (c MQTTConfig) Keepalive() time.Duration {
	return time.Duration(c.KeepaliveSecs) * time.Second
}

// TLSEnabled reports whether client certificates are configured.
func (c MQTTConfig) TLSEnabled() bool {
	return c.RootCA != "" || c.CertificatePath != "" || c.PrivateKeyPath != ""
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		HTTPAddr:  ":5000",
		LogLevel:  "info",
		LogFormat: "json",
		MQTT: MQTTConfig{
			Port:          8883,
			ClientID:      "doorwatch",
			KeepaliveSecs: 60,
		},
		Postgres: PostgresConfig{Channel: "door_update"},
		Stream: StreamConfig{
			URL:               "ws://localhost:5000/socket",
			ReconnectInterval: 2 * time.Second,
		},
	}
}

// Load reads envFile (if present) into the process environment, applies
// defaults, overlays the YAML file named by DOORWATCH_CONFIG and finally
// environment variables.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load %s: %w", envFile, err)
		}
	}

	cfg := Default()
	if path := os.Getenv("DOORWATCH_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.HTTPAddr = getenvDefault("HTTP_ADDR", cfg.HTTPAddr)
	cfg.SecretKey = getenvDefault("SECRET_KEY", cfg.SecretKey)
	cfg.LogLevel = getenvDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getenvDefault("LOG_FORMAT", cfg.LogFormat)

	cfg.MQTT.Endpoint = getenvDefault("MQTT_ENDPOINT", getenvDefault("AWS_ENDPOINT", cfg.MQTT.Endpoint))
	cfg.MQTT.Port = getenvIntDefault("MQTT_PORT", cfg.MQTT.Port)
	cfg.MQTT.Topic = getenvDefault("TOPIC", cfg.MQTT.Topic)
	cfg.MQTT.ClientID = getenvDefault("CLIENT_ID", cfg.MQTT.ClientID)
	cfg.MQTT.KeepaliveSecs = getenvIntDefault("KEEPALIVE", cfg.MQTT.KeepaliveSecs)
	cfg.MQTT.RootCA = getenvDefault("ROOT_CA", cfg.MQTT.RootCA)
	cfg.MQTT.CertificatePath = getenvDefault("CERTIFICATE_PATH", cfg.MQTT.CertificatePath)
	cfg.MQTT.PrivateKeyPath = getenvDefault("PRIVATE_KEY_PATH", cfg.MQTT.PrivateKeyPath)

	cfg.Postgres.DatabaseURL = getenvDefault("DATABASE_URL", cfg.Postgres.DatabaseURL)
	cfg.Postgres.Channel = getenvDefault("NOTIFY_CHANNEL", cfg.Postgres.Channel)

	cfg.Stream.URL = getenvDefault("STREAM_URL", cfg.Stream.URL)
	cfg.Stream.Token = getenvDefault("STREAM_TOKEN", cfg.Stream.Token)
	cfg.Stream.ReconnectInterval = getenvDuration("STREAM_RECONNECT_INTERVAL", cfg.Stream.ReconnectInterval)
	return cfg, nil
}

// ValidateServe checks the settings needed by the bridge server.
func (c Config) ValidateServe() error {
	if c.HTTPAddr == "" {
		return errors.New("config: HTTP_ADDR is required")
	}
	if c.MQTT.Endpoint == "" && c.Postgres.DatabaseURL == "" {
		return errors.New("config: MQTT_ENDPOINT or DATABASE_URL is required")
	}
	if c.MQTT.Endpoint != "" {
		if err := c.MQTT.validate(); err != nil {
			return err
		}
	}
	if c.Postgres.DatabaseURL != "" && c.Postgres.Channel == "" {
		return errors.New("config: NOTIFY_CHANNEL is required with DATABASE_URL")
	}
	return nil
}

// ValidatePublish checks the settings needed by the sensor simulator.
func (c Config) ValidatePublish() error {
	if c.MQTT.Endpoint == "" {
		return errors.New("config: MQTT_ENDPOINT is required")
	}
	return c.MQTT.validate()
}

// ValidateWatch checks the settings needed by the console watcher.
func (c Config) ValidateWatch() error {
	if c.Stream.URL == "" {
		return errors.New("config: STREAM_URL is required")
	}
	if !strings.HasPrefix(c.Stream.URL, "ws://") && !strings.HasPrefix(c.Stream.URL, "wss://") {
		return fmt.Errorf("config: STREAM_URL must be ws:// or wss://, got %q", c.Stream.URL)
	}
	return nil
}

func (c MQTTConfig) validate() error {
	if c.Topic == "" {
		return errors.New("config: TOPIC is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: invalid MQTT_PORT %d", c.Port)
	}
	if c.KeepaliveSecs < 0 {
		return fmt.Errorf("config: invalid KEEPALIVE %d", c.KeepaliveSecs)
	}
	if (c.CertificatePath == "") != (c.PrivateKeyPath == "") {
		return errors.New("config: CERTIFICATE_PATH and PRIVATE_KEY_PATH must be set together")
	}
	return nil
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
