package reflector

import (
	"context"
	"sync"

	"go.uber.org/zap"

	doors "doorwatch/internal/doors/domain"
)

// Loop runs posted work one item at a time on a single goroutine.
type Loop struct {
	queue    chan func()
	done     chan struct{}
	stopOnce sync.Once
	logger   *zap.Logger
}

// NewLoop constructs a loop with the given queue capacity.
func NewLoop(capacity int, logger *zap.Logger) *Loop {
	if capacity < 0 {
		capacity = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loop{
		queue:  make(chan func(), capacity),
		done:   make(chan struct{}),
		logger: logger.Named("loop"),
	}
}

// Post enqueues fn. It blocks while the queue is full and reports false once
// the loop has stopped.
func (l *Loop) Post(fn func()) bool {
	if l == nil || fn == nil {
		return false
	}
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.queue <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Run executes posted work in order until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	defer l.stopOnce.Do(func() { close(l.done) })
	for {
		select {
		case fn := <-l.queue:
			fn()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Events adapts r into a transport event sink that posts to the loop.
func (l *Loop) Events(r *Reflector) *LoopEvents {
	return &LoopEvents{loop: l, reflector: r}
}

// LoopEvents forwards transport callbacks onto the loop.
type LoopEvents struct {
	loop      *Loop
	reflector *Reflector
}

// Connected posts a connect event.
func (e *LoopEvents) Connected() {
	e.loop.Post(e.reflector.OnConnect)
}

// Disconnected posts a disconnect event.
func (e *LoopEvents) Disconnected() {
	e.loop.Post(e.reflector.OnDisconnect)
}

// Update posts a door update.
func (e *LoopEvents) Update(update doors.DoorUpdate) {
	e.loop.Post(func() {
		if err := e.reflector.OnUpdate(update); err != nil {
			e.loop.logger.Warn("door update not reflected", zap.Error(err))
		}
	})
}
