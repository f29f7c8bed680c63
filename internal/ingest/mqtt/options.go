package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"doorwatch/internal/config"
)

const connectRetryInterval = 5 * time.Second

// NewTLSConfig builds a TLS 1.2 client config from PEM files. Empty paths
// are skipped; a certificate requires its key and vice versa.
func NewTLSConfig(caFile, certFile, keyFile string) (*tls.Config, error) {
	cfg := &tls.Config{
		MinVersion: tls.VersionTLS12,
		MaxVersion: tls.VersionTLS12,
	}
	if caFile != "" {
		pem, err := os.ReadFile(caFile)
		if err != nil {
			return nil, fmt.Errorf("mqtt tls: read root ca: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, errors.New("mqtt tls: root ca has no certificates")
		}
		cfg.RootCAs = pool
	}
	if (certFile == "") != (keyFile == "") {
		return nil, errors.New("mqtt tls: certificate and private key must be set together")
	}
	if certFile != "" {
		cert, err := tls.LoadX509KeyPair(certFile, keyFile)
		if err != nil {
			return nil, fmt.Errorf("mqtt tls: load key pair: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}
	return cfg, nil
}

// BrokerURL returns the paho broker address for cfg.
func BrokerURL(cfg config.MQTTConfig) string {
	scheme := "tcp"
	if cfg.TLSEnabled() {
		scheme = "ssl"
	}
	return scheme + "://" + cfg.Endpoint + ":" + strconv.Itoa(cfg.Port)
}

// ClientOptions builds paho options for cfg with auto reconnect enabled.
func ClientOptions(cfg config.MQTTConfig) (*paho.ClientOptions, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("mqtt: empty endpoint")
	}
	opts := paho.NewClientOptions().
		AddBroker(BrokerURL(cfg)).
		SetClientID(cfg.ClientID).
		SetKeepAlive(cfg.Keepalive()).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(connectRetryInterval)
	if cfg.TLSEnabled() {
		tlsCfg, err := NewTLSConfig(cfg.RootCA, cfg.CertificatePath, cfg.PrivateKeyPath)
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	return opts, nil
}
