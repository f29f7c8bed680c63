package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

var configEnv = []string{
	"DOORWATCH_CONFIG", "HTTP_ADDR", "SECRET_KEY", "LOG_LEVEL", "LOG_FORMAT",
	"MQTT_ENDPOINT", "AWS_ENDPOINT", "MQTT_PORT", "TOPIC", "CLIENT_ID", "KEEPALIVE",
	"ROOT_CA", "CERTIFICATE_PATH", "PRIVATE_KEY_PATH", "DATABASE_URL", "NOTIFY_CHANNEL",
	"STREAM_URL", "STREAM_TOKEN", "STREAM_RECONNECT_INTERVAL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configEnv {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadEnvOverridesYAML(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "doorwatch.yaml")
	yamlDoc := `
http_addr: ":9000"
mqtt:
  endpoint: yaml.example.com
  topic: doors/yaml
  keepalive: 30
stream:
  reconnect_interval: 5s
`
	if err := os.WriteFile(path, []byte(yamlDoc), 0o600); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	t.Setenv("DOORWATCH_CONFIG", path)
	t.Setenv("AWS_ENDPOINT", "iot.example.com")
	t.Setenv("MQTT_PORT", "1883")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":9000" {
		t.Fatalf("expected yaml http addr, got %q", cfg.HTTPAddr)
	}
	if cfg.MQTT.Endpoint != "iot.example.com" {
		t.Fatalf("expected env endpoint, got %q", cfg.MQTT.Endpoint)
	}
	if cfg.MQTT.Port != 1883 {
		t.Fatalf("expected env port, got %d", cfg.MQTT.Port)
	}
	if cfg.MQTT.Topic != "doors/yaml" {
		t.Fatalf("expected yaml topic, got %q", cfg.MQTT.Topic)
	}
	if cfg.MQTT.Keepalive() != 30*time.Second {
		t.Fatalf("expected 30s keepalive, got %s", cfg.MQTT.Keepalive())
	}
	if cfg.Stream.ReconnectInterval != 5*time.Second {
		t.Fatalf("expected 5s reconnect interval, got %s", cfg.Stream.ReconnectInterval)
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	// godotenv never overrides variables that already exist, so unset TOPIC
	// entirely and restore it afterwards.
	os.Unsetenv("TOPIC")
	t.Cleanup(func() { os.Unsetenv("TOPIC") })

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("TOPIC=doors/front\n"), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.MQTT.Topic != "doors/front" {
		t.Fatalf("expected topic from .env, got %q", cfg.MQTT.Topic)
	}
}

func TestLoadMissingDotEnvIsIgnored(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("expected missing .env to be ignored, got %v", err)
	}
}

func TestValidateServe(t *testing.T) {
	cfg := Default()
	if err := cfg.ValidateServe(); err == nil {
		t.Fatalf("expected error without any source")
	}

	cfg.MQTT.Endpoint = "iot.example.com"
	if err := cfg.ValidateServe(); err == nil {
		t.Fatalf("expected error without topic")
	}
	cfg.MQTT.Topic = "doors/front"
	if err := cfg.ValidateServe(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
	cfg.MQTT.CertificatePath = "cert.pem"
	if err := cfg.ValidateServe(); err == nil {
		t.Fatalf("expected error for certificate without key")
	}

	pgOnly := Default()
	pgOnly.Postgres.DatabaseURL = "postgres://localhost/doors"
	if err := pgOnly.ValidateServe(); err != nil {
		t.Fatalf("expected postgres-only config to be valid, got %v", err)
	}
}

func TestValidateWatch(t *testing.T) {
	cfg := Default()
	if err := cfg.ValidateWatch(); err != nil {
		t.Fatalf("expected default stream url to be valid, got %v", err)
	}
	cfg.Stream.URL = "http://localhost:5000/socket"
	if err := cfg.ValidateWatch(); err == nil {
		t.Fatalf("expected error for http stream url")
	}
}
