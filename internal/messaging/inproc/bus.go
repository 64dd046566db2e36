package inproc

import (
	"errors"
	"sync"
)

var (
	ErrSubscriberNotRegistered = errors.New("subscriber is not registered in bus")
	ErrQueueFull               = errors.New("subscriber queue is full")
)

// Bus delivers values to named subscribers over buffered channels. Publish
// never blocks: a full queue is reported to the caller.
type Bus[T any] struct {
	mu     sync.RWMutex
	subs   map[string]chan T
	buffer int
}

func New[T any](buffer int) *Bus[T] {
	if buffer <= 0 {
		buffer = 64
	}
	return &Bus[T]{
		subs:   make(map[string]chan T),
		buffer: buffer,
	}
}

func (b *Bus[T]) Register(name string) <-chan T {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subs[name]; ok {
		return ch
	}
	ch := make(chan T, b.buffer)
	b.subs[name] = ch
	return ch
}

func (b *Bus[T]) Unregister(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch, ok := b.subs[name]
	if !ok {
		return
	}
	delete(b.subs, name)
	close(ch)
}

func (b *Bus[T]) Publish(to string, msg T) error {
	// Hold the read lock across the send so Unregister cannot close the
	// channel underneath it.
	b.mu.RLock()
	defer b.mu.RUnlock()
	ch, ok := b.subs[to]
	if !ok {
		return ErrSubscriberNotRegistered
	}

	select {
	case ch <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}
