package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"doorwatch/internal/auth"
	"doorwatch/internal/doors/broadcast"
	doors "doorwatch/internal/doors/domain"
	"doorwatch/internal/observability/metrics"
)

const writeTimeout = 10 * time.Second

// SocketHandler serves door updates over websocket as JSON envelopes.
type SocketHandler struct {
	hub            *broadcast.Hub
	originPatterns []string
	logger         *zap.Logger
}

// NewSocketHandler constructs a websocket handler. originPatterns follow
// websocket.AcceptOptions; nil allows same-origin only.
func NewSocketHandler(hub *broadcast.Hub, originPatterns []string, logger *zap.Logger) (*SocketHandler, error) {
	if hub == nil {
		return nil, errors.New("door socket: nil hub")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SocketHandler{hub: hub, originPatterns: originPatterns, logger: logger.Named("socket")}, nil
}

// ServeHTTP handles GET /socket.
func (h *SocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		h.logger.Warn("websocket accept", zap.Error(err))
		return
	}
	defer c.CloseNow()

	ch := h.hub.Subscribe()
	defer h.hub.Unsubscribe(ch)
	metrics.AddStreamClients("websocket", 1)
	defer metrics.AddStreamClients("websocket", -1)
	h.logger.Debug("client subscribed",
		zap.String("remote", r.RemoteAddr),
		zap.String("subject", auth.SubjectFromContext(r.Context())))

	// Clients never send; CloseRead handles control frames and cancels ctx
	// when the peer goes away.
	ctx := c.CloseRead(r.Context())
	for {
		select {
		case update, ok := <-ch:
			if !ok {
				c.Close(websocket.StatusGoingAway, "server shutting down")
				return
			}
			if err := h.write(ctx, c, update); err != nil {
				h.logger.Debug("websocket write", zap.Error(err))
				return
			}
		case <-ctx.Done():
			h.logger.Debug("client gone", zap.String("remote", r.RemoteAddr))
			return
		}
	}
}

func (h *SocketHandler) write(ctx context.Context, c *websocket.Conn, update doors.DoorUpdate) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, c, doors.Envelope{Event: doors.EventDoorUpdate, Data: &update})
}
