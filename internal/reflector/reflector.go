package reflector

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	doors "doorwatch/internal/doors/domain"
	"doorwatch/internal/observability/metrics"
)

// Button ids wired by Bind.
const (
	ButtonPause  = "btn-pause"
	ButtonResume = "btn-resume"
	ButtonStop   = "btn-stop"
	ButtonClear  = "btn-clear"
)

// View is the rendering surface the reflector writes to.
type View interface {
	// SetDoorStatus overwrites the status and timestamp displays. Both
	// elements are required; a missing one is reported as an error.
	SetDoorStatus(state, timestamp string) error
	// AppendLogRow adds a (timestamp, state) row after all existing rows.
	AppendLogRow(timestamp, state string)
	SetConnectionIndicator(connected bool)
	ClearLog()
}

// Connection is the live link to the event source. Open must not block;
// its outcome is reported later through connect/disconnect events.
type Connection interface {
	Open()
	Close()
}

// Clickable registers click listeners on page elements by id.
type Clickable interface {
	OnClick(id string, fn func()) error
}

// Reflector mirrors door updates into a View and owns the pause and
// connection flags. It is not safe for concurrent use; drive it from a Loop.
type Reflector struct {
	view   View
	conn   Connection
	logger *zap.Logger

	paused         bool
	connectionOpen bool
}

// Option configures a Reflector.
type Option func(*Reflector)

// WithLogger sets the reflector logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Reflector) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New constructs a reflector. The connection starts out considered open.
func New(view View, conn Connection, opts ...Option) (*Reflector, error) {
	if view == nil {
		return nil, errors.New("reflector: nil view")
	}
	if conn == nil {
		return nil, errors.New("reflector: nil connection")
	}
	r := &Reflector{
		view:           view,
		conn:           conn,
		logger:         zap.NewNop(),
		connectionOpen: true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	r.logger = r.logger.Named("reflector")
	return r, nil
}

// Start opens the live connection.
func (r *Reflector) Start() {
	r.conn.Open()
}

// Bind wires the four action buttons. Every button must exist.
func (r *Reflector) Bind(page Clickable) error {
	if page == nil {
		return errors.New("reflector: nil page")
	}
	buttons := []struct {
		id string
		fn func()
	}{
		{ButtonPause, r.Pause},
		{ButtonResume, r.Resume},
		{ButtonStop, r.Stop},
		{ButtonClear, r.Clear},
	}
	for _, b := range buttons {
		if err := page.OnClick(b.id, b.fn); err != nil {
			return fmt.Errorf("reflector: bind %s: %w", b.id, err)
		}
	}
	return nil
}

// OnConnect shows the connected indicator.
func (r *Reflector) OnConnect() {
	r.logger.Info("connected to the server")
	r.view.SetConnectionIndicator(true)
}

// OnDisconnect shows the disconnected indicator.
func (r *Reflector) OnDisconnect() {
	r.logger.Info("disconnected from the server")
	r.view.SetConnectionIndicator(false)
}

// OnUpdate reflects a door update unless paused. An error means the status
// displays were missing and the log row was not written.
func (r *Reflector) OnUpdate(update doors.DoorUpdate) error {
	if r.paused {
		r.logger.Debug("updates are paused, skipping UI update")
		metrics.IncReflectorUpdate(metrics.ReflectorUpdateDropped)
		return nil
	}
	if err := r.view.SetDoorStatus(update.DoorState, update.Timestamp); err != nil {
		metrics.IncReflectorUpdate(metrics.ReflectorUpdateFailed)
		return fmt.Errorf("reflector: door status: %w", err)
	}
	r.view.AppendLogRow(update.Timestamp, update.DoorState)
	metrics.IncReflectorUpdate(metrics.ReflectorUpdateApplied)
	return nil
}

// Pause stops reflecting updates. Incoming updates are dropped, not queued.
func (r *Reflector) Pause() {
	r.paused = true
	r.logger.Info("UI updates paused")
}

// Resume reopens a stopped connection and reflects updates again.
func (r *Reflector) Resume() {
	if !r.connectionOpen {
		r.conn.Open()
		r.connectionOpen = true
	}
	r.paused = false
	r.logger.Info("UI updates resumed")
}

// Stop closes the connection. The pause flag is left alone.
func (r *Reflector) Stop() {
	r.conn.Close()
	r.connectionOpen = false
	r.logger.Info("connection stopped")
}

// Clear removes every log row.
func (r *Reflector) Clear() {
	r.view.ClearLog()
	r.logger.Info("update log cleared")
}

// Paused reports whether updates are being dropped.
func (r *Reflector) Paused() bool {
	return r.paused
}

// ConnectionOpen reports whether the connection is considered open.
func (r *Reflector) ConnectionOpen() bool {
	return r.connectionOpen
}
