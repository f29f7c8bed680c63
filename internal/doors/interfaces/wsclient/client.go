package wsclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	doors "doorwatch/internal/doors/domain"
)

// DefaultReconnectInterval is the pause between redials after a drop.
const DefaultReconnectInterval = 2 * time.Second

// Events receives the connection lifecycle and door updates in order.
type Events interface {
	Connected()
	Disconnected()
	Update(update doors.DoorUpdate)
}

// Client is a websocket door stream connection. Open and Close never block.
type Client struct {
	base      context.Context
	url       string
	header    http.Header
	reconnect time.Duration
	logger    *zap.Logger

	mu     sync.Mutex
	events Events
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures a Client.
type Option func(*Client)

// WithToken sends token as a bearer credential.
func WithToken(token string) Option {
	return func(c *Client) {
		if token != "" {
			c.header.Set("Authorization", "Bearer "+token)
		}
	}
}

// WithReconnectInterval sets the redial pause. Zero or negative disables
// redialing.
func WithReconnectInterval(d time.Duration) Option {
	return func(c *Client) {
		c.reconnect = d
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New constructs a client for url. Sessions end when ctx is done.
func New(ctx context.Context, url string, opts ...Option) (*Client, error) {
	if ctx == nil {
		return nil, errors.New("wsclient: nil context")
	}
	if url == "" {
		return nil, errors.New("wsclient: empty url")
	}
	c := &Client{
		base:      ctx,
		url:       url,
		header:    make(http.Header),
		reconnect: DefaultReconnectInterval,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	c.logger = c.logger.Named("wsclient")
	return c, nil
}

// SetEvents installs the event sink. It must be called before Open.
func (c *Client) SetEvents(events Events) {
	c.mu.Lock()
	c.events = events
	c.mu.Unlock()
}

// Open starts a session unless one is already running. A session that
// follows a Close waits for the previous one to report its disconnect.
func (c *Client) Open() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return
	}
	events := c.events
	if events == nil {
		c.logger.Warn("open without event sink")
		return
	}
	ctx, cancel := context.WithCancel(c.base)
	prev := c.done
	done := make(chan struct{})
	c.cancel = cancel
	c.done = done
	go c.run(ctx, events, prev, done)
}

// Close ends the current session. Closing a closed client is a no-op.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel == nil {
		return
	}
	c.cancel()
	c.cancel = nil
}

// Wait blocks until the most recent session has finished.
func (c *Client) Wait() {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (c *Client) run(ctx context.Context, events Events, prev <-chan struct{}, done chan struct{}) {
	defer close(done)
	if prev != nil {
		<-prev
	}
	for {
		if c.session(ctx, events) {
			events.Disconnected()
		}
		if ctx.Err() != nil || c.reconnect <= 0 {
			return
		}
		timer := time.NewTimer(c.reconnect)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}

// session dials and pumps frames until the connection drops or ctx ends.
// It reports whether the connection was established.
func (c *Client) session(ctx context.Context, events Events) bool {
	conn, _, err := websocket.Dial(ctx, c.url, &websocket.DialOptions{HTTPHeader: c.header})
	if err != nil {
		if ctx.Err() == nil {
			c.logger.Warn("dial failed", zap.String("url", c.url), zap.Error(err))
		}
		return false
	}
	defer conn.CloseNow()
	events.Connected()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				conn.Close(websocket.StatusNormalClosure, "client stopped")
			} else {
				c.logger.Info("connection lost", zap.Error(err))
			}
			return true
		}
		var env doors.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.logger.Warn("undecodable frame", zap.Error(err))
			continue
		}
		if env.Event != doors.EventDoorUpdate || env.Data == nil {
			continue
		}
		events.Update(*env.Data)
	}
}
