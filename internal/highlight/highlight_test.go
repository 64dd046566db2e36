package highlight

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentscope/internal/domain"
	"agentscope/internal/graph"
	"agentscope/internal/metrics"
)

type manualTimer struct {
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

type manualClock struct {
	now    time.Duration
	timers []*manualTimer
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	t := &manualTimer{at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *manualClock) Advance(d time.Duration) {
	c.now += d
	sort.SliceStable(c.timers, func(i, j int) bool { return c.timers[i].at < c.timers[j].at })
	for _, t := range c.timers {
		if !t.stopped && !t.fired && t.at <= c.now {
			t.fired = true
			t.f()
		}
	}
}

func TestResolvePrecedence(t *testing.T) {
	s := NewState()
	s.SetOK("a", "b", "c", "d")
	s.SetRunning("b", "c", "d")
	s.AddWarnings("c", "d")
	s.AddErrors("d")

	assert.Equal(t, StyleOK, s.Resolve("a"))
	assert.Equal(t, StyleRunning, s.Resolve("b"))
	assert.Equal(t, StyleWarning, s.Resolve("c"))
	assert.Equal(t, StyleError, s.Resolve("d"))
	assert.Equal(t, StyleDefault, s.Resolve("z"))

	s.ClearErrors()
	assert.Equal(t, StyleWarning, s.Resolve("d"))
	s.ClearWarnings()
	s.ClearRunning()
	assert.Equal(t, StyleOK, s.Resolve("d"))

	s.Reset()
	assert.Equal(t, StyleDefault, s.Resolve("a"))
}

func TestApplyResult(t *testing.T) {
	s := NewState()
	assert.False(t, s.ApplyResult(domain.TestStatusFailed, 0, []string{"a"}))
	assert.False(t, s.ApplyResult(domain.TestStatusPassed, 2, []string{"b"}), "recommendations pending")
	assert.False(t, s.ApplyResult(domain.TestStatusWarning, 0, []string{"c"}))
	assert.True(t, s.ApplyResult(domain.TestStatusPassed, 0, []string{"d"}))

	assert.Equal(t, []string{"a"}, s.Errors())
	assert.Equal(t, []string{"b", "c"}, s.Warnings())
	assert.Equal(t, []string{"d"}, s.OK())
}

func TestSlotSupersedes(t *testing.T) {
	clock := &manualClock{}
	slot := NewSlot(clock)
	var fired []uint64
	fire := func(gen uint64) {
		if slot.Current(gen) {
			fired = append(fired, gen)
			slot.Done(gen)
		}
	}

	first := slot.Replace(3*time.Second, fire)
	clock.Advance(2 * time.Second)
	second := slot.Replace(3*time.Second, fire)
	clock.Advance(2 * time.Second)
	assert.Empty(t, fired, "first timer was replaced, second not due")

	clock.Advance(time.Second)
	assert.Equal(t, []uint64{second}, fired)
	assert.NotEqual(t, first, second)
	assert.False(t, slot.Current(second))

	slot.Replace(time.Second, fire)
	slot.Stop()
	clock.Advance(time.Minute)
	assert.Len(t, fired, 1)
}

func TestSlotIgnoresStaleCallback(t *testing.T) {
	slot := NewSlot(&manualClock{})
	old := slot.Replace(time.Second, func(uint64) {})
	slot.Replace(time.Second, func(uint64) {})
	assert.False(t, slot.Current(old))
}

func TestHoverImpact(t *testing.T) {
	s := graph.NewScene(
		[]*graph.Node{
			{ID: "a", Position: graph.Point{X: 0, Y: 0}, Size: graph.Size{Width: 100, Height: 50}},
			{ID: "b", Position: graph.Point{X: 300, Y: 0}, Size: graph.Size{Width: 100, Height: 50}},
			{ID: "c", Position: graph.Point{X: 0, Y: 300}, Size: graph.Size{Width: 100, Height: 50}},
			{ID: "far", Position: graph.Point{X: 2000, Y: 2000}, Size: graph.Size{Width: 10, Height: 10}},
		},
		[]*graph.Edge{
			{ID: "ab", FromID: "a", ToID: "b"},
			{ID: "ca", FromID: "c", ToID: "a"},
			{ID: "ba", FromID: "b", ToID: "a"},
			{ID: "bfar", FromID: "b", ToID: "far"},
		},
	)
	est := map[string]metrics.Estimate{
		"ab": {TotalCost: 1, P50: 10, SuccessRate: 90},
		"ca": {TotalCost: 2, P50: 20, SuccessRate: 100},
	}

	imp, ok := HoverImpact(s, "a", est, 10)
	require.True(t, ok)
	assert.Equal(t, []string{"b", "c"}, imp.Neighbors)
	assert.Equal(t, 3, imp.EdgeCount())
	assert.Equal(t, 2, imp.NeighborCount())
	assert.InDelta(t, 3, imp.TotalCost, 1e-9)
	assert.InDelta(t, 30, imp.TotalP50, 1e-9)
	assert.InDelta(t, 95, imp.MeanSuccess, 1e-9, "mean, not product")
	assert.Equal(t, graph.Rect{X: -10, Y: -10, Width: 420, Height: 370}, imp.Bounds)

	_, ok = HoverImpact(s, "missing", est, 10)
	assert.False(t, ok)
}
