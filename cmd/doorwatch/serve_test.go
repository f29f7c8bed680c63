package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"doorwatch/internal/auth"
	"doorwatch/internal/config"
	"doorwatch/internal/doors/broadcast"
)

func newTestServer(t *testing.T, secret string, opts serveOptions) *httptest.Server {
	t.Helper()
	cfg := config.Default()
	cfg.SecretKey = secret
	handler, err := newServerHandler(&cfg, broadcast.NewHub(nil), opts, nil)
	if err != nil {
		t.Fatalf("server handler: %v", err)
	}
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func TestServerHandlerRoutes(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "reflector.js"), []byte("// reflector"), 0o600); err != nil {
		t.Fatalf("write static: %v", err)
	}
	server := newTestServer(t, "", serveOptions{scripts: stringList{"/static/reflector.js"}, staticDir: dir})

	resp, err := http.Get(server.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != "ok" {
		t.Fatalf("expected 200 ok, got %d %q", resp.StatusCode, body)
	}

	resp, err = http.Get(server.URL + "/")
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), `id="connection-status"`) {
		t.Fatalf("expected page markup, got %s", body)
	}
	if !strings.Contains(string(body), `<script src="/static/reflector.js"></script>`) {
		t.Fatalf("expected script tag, got %s", body)
	}

	resp, err = http.Get(server.URL + "/static/reflector.js")
	if err != nil {
		t.Fatalf("static: %v", err)
	}
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "// reflector" {
		t.Fatalf("expected static file, got %q", body)
	}

	resp, err = http.Get(server.URL + "/assets/reflector.js")
	if err != nil {
		t.Fatalf("assets: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected built-in reflector 200, got %d", resp.StatusCode)
	}

	resp, err = http.Get(server.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected metrics 200, got %d", resp.StatusCode)
	}
}

func TestServerHandlerRequiresStreamToken(t *testing.T) {
	secret := "s3cret"
	server := newTestServer(t, secret, serveOptions{})

	resp, err := http.Get(server.URL + "/events")
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}

	token, err := auth.IssueToken([]byte(secret), "watcher", time.Minute)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	req, _ := http.NewRequest(http.MethodGet, server.URL+"/events", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("events with token: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	line := make([]byte, len("event: ready"))
	if _, err := io.ReadFull(resp.Body, line); err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(line) != "event: ready" {
		t.Fatalf("expected ready frame, got %q", line)
	}
}

func TestRunToken(t *testing.T) {
	cfg := config.Default()
	if err := runToken(&cfg, io.Discard); err == nil {
		t.Fatalf("expected error without secret")
	}

	cfg.SecretKey = "s3cret"
	tokenArgs.subject = "console"
	tokenArgs.ttl = time.Hour
	var out bytes.Buffer
	if err := runToken(&cfg, &out); err != nil {
		t.Fatalf("run token: %v", err)
	}
	claims, err := auth.ParseJWT(strings.TrimSpace(out.String()), []byte(cfg.SecretKey))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "console" {
		t.Fatalf("expected subject console, got %q", claims.Subject)
	}
}
