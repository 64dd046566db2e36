package canvas

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"agentscope/internal/messaging/inproc"
	"agentscope/internal/render"
)

const loopSubscriber = "canvas"

var ErrLoopStopped = errors.New("canvas loop is not running")

// Loop serializes every event onto one goroutine that owns the engine.
type Loop struct {
	engine *Engine
	bus    *inproc.Bus[Event]
	logger *slog.Logger

	// OnFrame, when set, receives a fresh frame after every handled event.
	OnFrame func(render.Frame)

	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

func NewLoop(engine *Engine, buffer int, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Loop{
		engine: engine,
		bus:    inproc.New[Event](buffer),
		logger: logger,
	}
	engine.SetDispatcher(func(ev Event) {
		if err := l.Post(ev); err != nil {
			l.logger.Warn("canvas timer event dropped", "error", err)
		}
	})
	return l
}

func (l *Loop) Start(ctx context.Context) {
	ch := l.bus.Register(loopSubscriber)
	l.mu.Lock()
	l.running = true
	l.mu.Unlock()

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer func() {
			l.mu.Lock()
			l.running = false
			l.mu.Unlock()
			l.bus.Unregister(loopSubscriber)
		}()
		l.run(ctx, ch)
	}()
}

func (l *Loop) Wait() {
	l.wg.Wait()
}

func (l *Loop) run(ctx context.Context, ch <-chan Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			l.engine.Handle(ev)
			if _, isFrame := ev.(frameRequest); !isFrame && l.OnFrame != nil {
				l.OnFrame(l.engine.Frame())
			}
		}
	}
}

// Post queues an event without blocking.
func (l *Loop) Post(ev Event) error {
	l.mu.Lock()
	running := l.running
	l.mu.Unlock()
	if !running {
		return ErrLoopStopped
	}
	if err := l.bus.Publish(loopSubscriber, ev); err != nil {
		return fmt.Errorf("post canvas event: %w", err)
	}
	return nil
}

// Frame asks the loop goroutine for a projection of the current state.
func (l *Loop) Frame(ctx context.Context) (render.Frame, error) {
	reply := make(chan render.Frame, 1)
	if err := l.Post(frameRequest{reply: reply}); err != nil {
		return render.Frame{}, err
	}
	select {
	case <-ctx.Done():
		return render.Frame{}, ctx.Err()
	case f := <-reply:
		return f, nil
	}
}
