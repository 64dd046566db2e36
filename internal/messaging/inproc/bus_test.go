package inproc

import (
	"errors"
	"testing"
)

func TestBusDeliversToRegisteredSubscriber(t *testing.T) {
	bus := New[int](2)
	ch := bus.Register("loop")
	if again := bus.Register("loop"); again != ch {
		t.Fatalf("register twice returned a new channel")
	}

	if err := bus.Publish("loop", 7); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if got := <-ch; got != 7 {
		t.Fatalf("unexpected value: %d", got)
	}
}

func TestBusReportsFullQueue(t *testing.T) {
	bus := New[string](1)
	bus.Register("loop")

	if err := bus.Publish("loop", "a"); err != nil {
		t.Fatalf("first publish: %v", err)
	}
	if err := bus.Publish("loop", "b"); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
}

func TestBusUnregister(t *testing.T) {
	bus := New[string](0)
	ch := bus.Register("loop")
	bus.Unregister("loop")

	if _, ok := <-ch; ok {
		t.Fatalf("expected closed channel")
	}
	if err := bus.Publish("loop", "x"); !errors.Is(err, ErrSubscriberNotRegistered) {
		t.Fatalf("expected ErrSubscriberNotRegistered, got %v", err)
	}
	bus.Unregister("loop")
}
