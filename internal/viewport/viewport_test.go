package viewport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentscope/internal/graph"
)

const eps = 1e-9

func TestZoomKeepsCursorAnchored(t *testing.T) {
	starts := []Transform{
		{Scale: 1},
		{TranslateX: 120, TranslateY: -40, Scale: 0.35},
		{TranslateX: -900, TranslateY: 300, Scale: 1.7},
	}
	cursors := []graph.Point{{X: 0, Y: 0}, {X: 400, Y: 300}, {X: 1023, Y: 17}}
	factors := []float64{0.2, 0.9, 1.1, 3, 50}

	for _, start := range starts {
		for _, cursor := range cursors {
			for _, f := range factors {
				c := New(DefaultOptions(), 1024, 768)
				c.SetTransform(start)
				before := c.ToWorld(cursor)
				c.ZoomAt(cursor, f)
				after := c.ToWorld(cursor)
				assert.InDelta(t, before.X, after.X, 1e-6, "start=%+v cursor=%+v f=%v", start, cursor, f)
				assert.InDelta(t, before.Y, after.Y, 1e-6, "start=%+v cursor=%+v f=%v", start, cursor, f)
				s := c.Transform().Scale
				assert.True(t, s >= 0.1-eps && s <= 2.0+eps, "scale %v out of range", s)
			}
		}
	}
}

func TestWheelDirection(t *testing.T) {
	c := New(DefaultOptions(), 800, 600)
	require.True(t, c.Wheel(graph.Point{X: 10, Y: 10}, -100))
	assert.Greater(t, c.Transform().Scale, 1.0)
	require.True(t, c.Wheel(graph.Point{X: 10, Y: 10}, 400))
	assert.Less(t, c.Transform().Scale, 1.0)
}

func TestFitClampsTinyContent(t *testing.T) {
	c := New(DefaultOptions(), 4000, 3000)
	require.True(t, c.Fit(graph.Rect{X: 10, Y: 10, Width: 10, Height: 10}))

	tr := c.Transform()
	assert.Equal(t, 2.0, tr.Scale)
	center := c.ToScreen(graph.Point{X: 15, Y: 15})
	assert.InDelta(t, 2000, center.X, eps)
	assert.InDelta(t, 1500, center.Y, eps)
}

func TestFitLargeContent(t *testing.T) {
	c := New(DefaultOptions(), 1000, 500)
	require.True(t, c.Fit(graph.Rect{X: 0, Y: 0, Width: 1900, Height: 100}))
	// Width-limited: 1000 / (1900 + 100).
	assert.InDelta(t, 0.5, c.Transform().Scale, eps)

	c.Resize(0, 0)
	assert.False(t, c.Fit(graph.Rect{Width: 1, Height: 1}))
}

func TestFocusUsesTighterCeiling(t *testing.T) {
	c := New(DefaultOptions(), 2000, 2000)
	require.True(t, c.Focus(graph.Rect{X: 0, Y: 0, Width: 100, Height: 100}))
	assert.Equal(t, 1.0, c.Transform().Scale)
}

func TestPanAndDrag(t *testing.T) {
	s := graph.NewScene([]*graph.Node{
		{ID: "a", Position: graph.Point{X: 0, Y: 0}, Size: graph.Size{Width: 100, Height: 100}},
		{ID: "b", Position: graph.Point{X: 300, Y: 0}, Size: graph.Size{Width: 100, Height: 100}},
	}, nil)

	t.Run("pan on background", func(t *testing.T) {
		c := New(DefaultOptions(), 800, 600)
		assert.Equal(t, "", c.PointerDown(graph.Point{X: 200, Y: 500}, s))
		assert.Equal(t, Panning, c.State())
		require.True(t, c.PointerMove(graph.Point{X: 230, Y: 480}, s))
		assert.Equal(t, Transform{TranslateX: 30, TranslateY: -20, Scale: 1}, c.Transform())
		id, moved := c.PointerUp()
		assert.Empty(t, id)
		assert.False(t, moved)
		assert.Equal(t, Idle, c.State())
	})

	t.Run("drag divides by scale and moves one node", func(t *testing.T) {
		c := New(DefaultOptions(), 800, 600)
		c.SetTransform(Transform{Scale: 0.5})
		assert.Equal(t, "a", c.PointerDown(graph.Point{X: 10, Y: 10}, s))
		assert.Equal(t, DraggingNode, c.State())
		require.True(t, c.PointerMove(graph.Point{X: 30, Y: 15}, s))

		a, _ := s.Node("a")
		assert.Equal(t, graph.Point{X: 40, Y: 10}, a.Position)
		b, _ := s.Node("b")
		assert.Equal(t, graph.Point{X: 300, Y: 0}, b.Position)
		assert.Equal(t, Transform{Scale: 0.5}, c.Transform(), "drag bypasses pan")

		id, moved := c.PointerUp()
		assert.Equal(t, "a", id)
		assert.True(t, moved)
	})

	t.Run("click without motion", func(t *testing.T) {
		c := New(DefaultOptions(), 800, 600)
		c.PointerDown(graph.Point{X: 310, Y: 10}, s)
		assert.False(t, c.PointerMove(graph.Point{X: 310, Y: 10}, s))
		_, moved := c.PointerUp()
		assert.False(t, moved)
	})
}

func TestOptionsDefaults(t *testing.T) {
	c := New(Options{MinScale: 3, MaxScale: 0.3}, 10, 10)
	o := c.Options()
	assert.Equal(t, 0.3, o.MinScale)
	assert.Equal(t, 3.0, o.MaxScale)
}
