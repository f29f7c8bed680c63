package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/peterbourgon/ff/v3/ffcli"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"doorwatch/internal/auth"
	"doorwatch/internal/config"
	"doorwatch/internal/doors/broadcast"
	doorhttp "doorwatch/internal/doors/interfaces/http"
	"doorwatch/internal/ingest/mqtt"
	"doorwatch/internal/ingest/pgnotify"
	"doorwatch/internal/observability/metrics"
)

const shutdownTimeout = 5 * time.Second

// serveOptions are serve settings kept outside config.Config.
type serveOptions struct {
	originPatterns stringList
	scripts        stringList
	staticDir      string
}

var serveArgs serveOptions

func newServeCommand(cfg *config.Config) *ffcli.Command {
	fs := newFlagSet("serve", cfg)
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP listen address")
	fs.StringVar(&cfg.MQTT.Endpoint, "mqtt-endpoint", cfg.MQTT.Endpoint, "MQTT broker host")
	fs.StringVar(&cfg.MQTT.Topic, "topic", cfg.MQTT.Topic, "MQTT topic carrying door readings")
	fs.StringVar(&cfg.Postgres.DatabaseURL, "database-url", cfg.Postgres.DatabaseURL, "Postgres DSN for the LISTEN source")
	fs.StringVar(&cfg.Postgres.Channel, "notify-channel", cfg.Postgres.Channel, "Postgres NOTIFY channel")
	fs.Var(&serveArgs.originPatterns, "origin", "allowed websocket origin pattern (repeatable)")
	fs.Var(&serveArgs.scripts, "script", "script URL linked from the page instead of the built-in reflector (repeatable)")
	fs.StringVar(&serveArgs.staticDir, "static-dir", "", "directory served under /static/")
	return &ffcli.Command{
		Name:       "serve",
		ShortUsage: "doorwatch serve [flags]",
		ShortHelp:  "Bridge MQTT/Postgres door readings to websocket and SSE clients",
		FlagSet:    fs,
		Options:    envOptions(),
		Exec: func(ctx context.Context, args []string) error {
			if err := noArgs(args); err != nil {
				return err
			}
			return runServe(ctx, cfg)
		},
	}
}

func runServe(ctx context.Context, cfg *config.Config) error {
	if err := cfg.ValidateServe(); err != nil {
		return err
	}
	logger, err := newLogger(cfg, "serve")
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	metrics.Init()
	hub := broadcast.NewHub(logger)
	handler, err := newServerHandler(cfg, hub, serveArgs, logger)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	if cfg.MQTT.Endpoint != "" {
		sub, err := mqtt.NewSubscriber(cfg.MQTT, hub, logger)
		if err != nil {
			return err
		}
		g.Go(func() error { return sub.Run(ctx) })
	}
	if cfg.Postgres.DatabaseURL != "" {
		listener, err := pgnotify.NewListener(cfg.Postgres.DatabaseURL, cfg.Postgres.Channel, hub, logger)
		if err != nil {
			return err
		}
		g.Go(func() error { return listener.Run(ctx) })
	}

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	g.Go(func() error {
		logger.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// newServerHandler builds the bridge routes. Stream routes require a token
// when a secret key is configured.
func newServerHandler(cfg *config.Config, hub *broadcast.Hub, opts serveOptions, logger *zap.Logger) (http.Handler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	streamHandler, err := doorhttp.NewStreamHandler(hub, logger)
	if err != nil {
		return nil, err
	}
	socketHandler, err := doorhttp.NewSocketHandler(hub, opts.originPatterns, logger)
	if err != nil {
		return nil, err
	}
	authMiddleware := auth.NewMiddleware([]byte(cfg.SecretKey))

	mux := http.NewServeMux()
	mux.Handle("/socket", authMiddleware.Wrap(socketHandler))
	mux.Handle("/events", authMiddleware.Wrap(streamHandler))
	mux.Handle("/", doorhttp.NewPageHandler(opts.scripts...))
	mux.Handle("/assets/", doorhttp.NewAssetHandler())
	if opts.staticDir != "" {
		mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(opts.staticDir))))
	}
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return loggingMiddleware(mux, logger.Named("http")), nil
}

func loggingMiddleware(next http.Handler, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", resp.status),
			zap.Duration("elapsed", time.Since(start)))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Flush keeps SSE working through the wrapper.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack keeps websocket upgrades working through the wrapper.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

type stringList []string

func (l *stringList) String() string {
	return fmt.Sprint([]string(*l))
}

func (l *stringList) Set(value string) error {
	*l = append(*l, value)
	return nil
}
