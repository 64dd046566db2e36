package highlight

import (
	"sync"
	"time"
)

// DefaultFlash is how long a passed test keeps its targets ok-highlighted.
const DefaultFlash = 3 * time.Second

type Timer interface {
	Stop() bool
}

// Clock schedules deferred callbacks. Tests swap in a manual clock.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

func SystemClock() Clock { return systemClock{} }

// Slot holds at most one pending timer. Replacing it stops the previous one,
// and a generation number lets a callback that raced the replacement detect
// that it is stale.
type Slot struct {
	mu    sync.Mutex
	clock Clock
	timer Timer
	gen   uint64
}

func NewSlot(clock Clock) *Slot {
	if clock == nil {
		clock = SystemClock()
	}
	return &Slot{clock: clock}
}

// Replace schedules fire after d, superseding any pending timer. fire gets the
// generation it was scheduled under.
func (s *Slot) Replace(d time.Duration, fire func(gen uint64)) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.gen++
	gen := s.gen
	s.timer = s.clock.AfterFunc(d, func() { fire(gen) })
	return gen
}

// Current reports whether gen is the latest scheduled generation.
func (s *Slot) Current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gen == s.gen && s.timer != nil
}

// Done marks gen as handled so a later Current check fails.
func (s *Slot) Done(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen == s.gen {
		s.timer = nil
	}
}

func (s *Slot) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
}
