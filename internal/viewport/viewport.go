// Package viewport maps between world and screen space and drives pan, zoom
// and node dragging from pointer input.
package viewport

import (
	"math"

	"agentscope/internal/graph"
)

type State int

const (
	Idle State = iota
	Panning
	DraggingNode
)

func (s State) String() string {
	switch s {
	case Panning:
		return "panning"
	case DraggingNode:
		return "dragging-node"
	default:
		return "idle"
	}
}

// Transform maps world to screen: screen = world*Scale + Translate.
type Transform struct {
	TranslateX float64 `json:"translate_x"`
	TranslateY float64 `json:"translate_y"`
	Scale      float64 `json:"scale"`
}

func (t Transform) ToWorld(p graph.Point) graph.Point {
	return graph.Point{X: (p.X - t.TranslateX) / t.Scale, Y: (p.Y - t.TranslateY) / t.Scale}
}

func (t Transform) ToScreen(p graph.Point) graph.Point {
	return graph.Point{X: p.X*t.Scale + t.TranslateX, Y: p.Y*t.Scale + t.TranslateY}
}

func (t Transform) RectToScreen(r graph.Rect) graph.Rect {
	p := t.ToScreen(graph.Point{X: r.X, Y: r.Y})
	return graph.Rect{X: p.X, Y: p.Y, Width: r.Width * t.Scale, Height: r.Height * t.Scale}
}

type Options struct {
	MinScale         float64
	MaxScale         float64
	FitPadding       float64
	FocusMaxScale    float64
	FocusPadding     float64
	WheelSensitivity float64
}

func DefaultOptions() Options {
	return Options{
		MinScale:         0.1,
		MaxScale:         2.0,
		FitPadding:       50,
		FocusMaxScale:    1.0,
		FocusPadding:     80,
		WheelSensitivity: 0.0015,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MinScale <= 0 {
		o.MinScale = d.MinScale
	}
	if o.MaxScale <= 0 {
		o.MaxScale = d.MaxScale
	}
	if o.MaxScale < o.MinScale {
		o.MinScale, o.MaxScale = o.MaxScale, o.MinScale
	}
	if o.FitPadding < 0 {
		o.FitPadding = 0
	}
	if o.FocusMaxScale <= 0 {
		o.FocusMaxScale = d.FocusMaxScale
	}
	if o.FocusPadding < 0 {
		o.FocusPadding = 0
	}
	if o.WheelSensitivity <= 0 {
		o.WheelSensitivity = d.WheelSensitivity
	}
	return o
}

// NodeMover is the part of a scene the controller needs for hit testing and
// dragging. *graph.Scene implements it.
type NodeMover interface {
	NodeAt(p graph.Point) (*graph.Node, bool)
	MoveNode(id string, dx, dy float64) bool
}

type Controller struct {
	opts   Options
	t      Transform
	width  float64
	height float64

	state  State
	last   graph.Point
	dragID string
	moved  bool
}

func New(opts Options, width, height float64) *Controller {
	return &Controller{
		opts:   opts.withDefaults(),
		t:      Transform{Scale: 1},
		width:  width,
		height: height,
	}
}

func (c *Controller) Transform() Transform { return c.t }
func (c *Controller) State() State         { return c.state }
func (c *Controller) Options() Options     { return c.opts }

func (c *Controller) Size() (float64, float64) { return c.width, c.height }

// DraggedID is the node held by the current drag, or "".
func (c *Controller) DraggedID() string { return c.dragID }

// SetTransform restores a transform, clamping its scale.
func (c *Controller) SetTransform(t Transform) {
	t.Scale = c.clamp(t.Scale, c.opts.MaxScale)
	c.t = t
}

func (c *Controller) Resize(width, height float64) {
	c.width, c.height = width, height
}

func (c *Controller) ToWorld(p graph.Point) graph.Point { return c.t.ToWorld(p) }

func (c *Controller) ToScreen(p graph.Point) graph.Point { return c.t.ToScreen(p) }

// PointerDown starts a node drag when the press lands on a node, otherwise a
// pan. It returns the grabbed node ID, if any.
func (c *Controller) PointerDown(p graph.Point, target NodeMover) string {
	c.last = p
	c.moved = false
	if target != nil {
		if n, ok := target.NodeAt(c.t.ToWorld(p)); ok {
			c.state = DraggingNode
			c.dragID = n.ID
			return n.ID
		}
	}
	c.state = Panning
	c.dragID = ""
	return ""
}

// PointerMove pans by the screen delta or moves the dragged node by the
// delta converted to world units. Only the dragged node moves.
func (c *Controller) PointerMove(p graph.Point, target NodeMover) bool {
	dx, dy := p.X-c.last.X, p.Y-c.last.Y
	c.last = p
	if dx == 0 && dy == 0 {
		return false
	}
	switch c.state {
	case Panning:
		c.t.TranslateX += dx
		c.t.TranslateY += dy
		c.moved = true
		return true
	case DraggingNode:
		if target == nil || !target.MoveNode(c.dragID, dx/c.t.Scale, dy/c.t.Scale) {
			return false
		}
		c.moved = true
		return true
	}
	return false
}

// PointerUp ends any gesture. It reports the node that was actually moved so
// the caller can pin its position across re-layouts.
func (c *Controller) PointerUp() (draggedID string, moved bool) {
	draggedID, moved = c.dragID, c.moved && c.state == DraggingNode
	c.state = Idle
	c.dragID = ""
	c.moved = false
	if !moved {
		draggedID = ""
	}
	return draggedID, moved
}

// ZoomAt scales by factor around the cursor so the world point under the
// cursor stays under it.
func (c *Controller) ZoomAt(cursor graph.Point, factor float64) bool {
	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return false
	}
	world := c.t.ToWorld(cursor)
	scale := c.clamp(c.t.Scale*factor, c.opts.MaxScale)
	if scale == c.t.Scale {
		return false
	}
	c.t.Scale = scale
	c.t.TranslateX = cursor.X - world.X*scale
	c.t.TranslateY = cursor.Y - world.Y*scale
	return true
}

// Wheel zooms by a wheel delta; negative deltas zoom in.
func (c *Controller) Wheel(cursor graph.Point, delta float64) bool {
	return c.ZoomAt(cursor, math.Exp(-delta*c.opts.WheelSensitivity))
}

// Fit frames the whole content box.
func (c *Controller) Fit(bounds graph.Rect) bool {
	return c.frame(bounds, c.opts.FitPadding, c.opts.MaxScale)
}

// Focus frames a subset of nodes with a tighter zoom ceiling.
func (c *Controller) Focus(bounds graph.Rect) bool {
	return c.frame(bounds, c.opts.FocusPadding, math.Min(c.opts.FocusMaxScale, c.opts.MaxScale))
}

func (c *Controller) frame(r graph.Rect, pad, ceiling float64) bool {
	if c.width <= 0 || c.height <= 0 {
		return false
	}
	w, h := r.Width+2*pad, r.Height+2*pad
	scale := ceiling
	if w > 0 && h > 0 {
		scale = math.Min(c.width/w, c.height/h)
	}
	scale = c.clamp(scale, ceiling)
	center := r.Center()
	c.t = Transform{
		Scale:      scale,
		TranslateX: c.width/2 - center.X*scale,
		TranslateY: c.height/2 - center.Y*scale,
	}
	return true
}

func (c *Controller) clamp(s, ceiling float64) float64 {
	if math.IsNaN(s) {
		return 1
	}
	if ceiling < c.opts.MinScale {
		ceiling = c.opts.MinScale
	}
	return math.Max(c.opts.MinScale, math.Min(s, ceiling))
}
