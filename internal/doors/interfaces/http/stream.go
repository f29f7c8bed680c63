package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"doorwatch/internal/auth"
	"doorwatch/internal/doors/broadcast"
	doors "doorwatch/internal/doors/domain"
	"doorwatch/internal/observability/metrics"
)

// StreamHandler serves door updates as server-sent events.
type StreamHandler struct {
	hub    *broadcast.Hub
	logger *zap.Logger
}

// NewStreamHandler constructs a stream handler.
func NewStreamHandler(hub *broadcast.Hub, logger *zap.Logger) (*StreamHandler, error) {
	if hub == nil {
		return nil, errors.New("door stream: nil hub")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreamHandler{hub: hub, logger: logger.Named("sse")}, nil
}

// ServeHTTP handles GET /events.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "stream unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := h.hub.Subscribe()
	defer h.hub.Unsubscribe(ch)
	metrics.AddStreamClients("sse", 1)
	defer metrics.AddStreamClients("sse", -1)
	h.logger.Debug("client subscribed",
		zap.String("remote", r.RemoteAddr),
		zap.String("subject", auth.SubjectFromContext(r.Context())))

	_, _ = w.Write([]byte("event: ready\ndata: {}\n\n"))
	flusher.Flush()

	notify := r.Context().Done()
	for {
		select {
		case update, ok := <-ch:
			if !ok {
				return
			}
			payload, err := json.Marshal(update)
			if err != nil {
				h.logger.Warn("encode door update", zap.Error(err))
				continue
			}
			_, _ = w.Write([]byte("event: " + doors.EventDoorUpdate + "\n"))
			_, _ = w.Write([]byte("data: "))
			_, _ = w.Write(payload)
			_, _ = w.Write([]byte("\n\n"))
			flusher.Flush()
		case <-notify:
			h.logger.Debug("client gone", zap.String("remote", r.RemoteAddr))
			return
		}
	}
}
