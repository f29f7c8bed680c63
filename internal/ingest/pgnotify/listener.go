package pgnotify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	doors "doorwatch/internal/doors/domain"
	"doorwatch/internal/observability/metrics"
)

const (
	source = "postgres"

	defaultRetryInterval = 5 * time.Second
)

// Listener forwards NOTIFY payloads on one channel as door updates.
type Listener struct {
	dsn       string
	channel   string
	publisher doors.Publisher
	logger    *zap.Logger
	retry     time.Duration
}

// NewListener constructs a listener for channel on the database at dsn.
func NewListener(dsn, channel string, publisher doors.Publisher, logger *zap.Logger) (*Listener, error) {
	if dsn == "" {
		return nil, errors.New("pgnotify: empty dsn")
	}
	if channel == "" {
		return nil, errors.New("pgnotify: empty channel")
	}
	if publisher == nil {
		return nil, errors.New("pgnotify: nil publisher")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Listener{
		dsn:       dsn,
		channel:   channel,
		publisher: publisher,
		logger:    logger.Named("pgnotify").With(zap.String("channel", channel)),
		retry:     defaultRetryInterval,
	}, nil
}

// Run listens until ctx is done, reconnecting after failures.
func (l *Listener) Run(ctx context.Context) error {
	if l == nil {
		return errors.New("pgnotify: nil listener")
	}
	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			return nil
		}
		l.logger.Warn("listen interrupted", zap.Error(err), zap.Duration("retry", l.retry))
		metrics.IncIngestError(source, "connection")
		timer := time.NewTimer(l.retry)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil
		}
	}
}

func (l *Listener) listen(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, l.dsn)
	if err != nil {
		return fmt.Errorf("pgnotify: connect: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = conn.Close(closeCtx)
	}()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return fmt.Errorf("pgnotify: listen: %w", err)
	}
	l.logger.Info("listening")

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("pgnotify: wait: %w", err)
		}
		l.HandlePayload(n.Payload)
	}
}

// HandlePayload normalises one notification payload and publishes it.
func (l *Listener) HandlePayload(payload string) {
	update, err := doors.DecodeSensorPayload([]byte(payload))
	if err != nil {
		l.logger.Warn("dropping notification", zap.Error(err))
		metrics.IncIngest(source, metrics.ResultError)
		metrics.IncIngestError(source, "decode")
		return
	}
	l.publisher.Publish(update)
	metrics.IncIngest(source, metrics.ResultSuccess)
}
