// Package render projects a scene into screen-space draw instructions and
// paints them onto concrete surfaces.
package render

import (
	"math"

	"agentscope/internal/domain"
	"agentscope/internal/graph"
	"agentscope/internal/highlight"
	"agentscope/internal/metrics"
	"agentscope/internal/viewport"
)

type NodeShape struct {
	ID       string            `json:"id"`
	Kind     graph.NodeKind    `json:"kind"`
	Label    string            `json:"label"`
	Rect     graph.Rect        `json:"rect"`
	Fill     string            `json:"fill"`
	Stroke   string            `json:"stroke"`
	Style    string            `json:"style"`
	Hovered  bool              `json:"hovered,omitempty"`
	Selected bool              `json:"selected,omitempty"`
	Neighbor bool              `json:"neighbor,omitempty"`
	Dimmed   bool              `json:"dimmed,omitempty"`
	Estimate *metrics.Estimate `json:"estimate,omitempty"`
}

// EdgePath is a cubic bezier from From to To in screen space.
type EdgePath struct {
	ID         string            `json:"id"`
	Kind       graph.EdgeKind    `json:"kind"`
	From       graph.Point       `json:"from"`
	C1         graph.Point       `json:"c1"`
	C2         graph.Point       `json:"c2"`
	To         graph.Point       `json:"to"`
	Color      string            `json:"color"`
	Marker     string            `json:"marker"`
	Width      float64           `json:"width"`
	Emphasized bool              `json:"emphasized,omitempty"`
	Dimmed     bool              `json:"dimmed,omitempty"`
	Estimate   *metrics.Estimate `json:"estimate,omitempty"`
}

type ImpactOverlay struct {
	highlight.Impact
	Screen graph.Rect `json:"screen"`
}

// Frame is everything a surface needs to paint one picture.
type Frame struct {
	Width     float64            `json:"width"`
	Height    float64            `json:"height"`
	Transform viewport.Transform `json:"transform"`
	Nodes     []NodeShape        `json:"nodes"`
	Edges     []EdgePath         `json:"edges"`
	Impact    *ImpactOverlay     `json:"impact,omitempty"`
	Total     *metrics.Aggregate `json:"total,omitempty"`
	Deviation *metrics.Deviation `json:"deviation,omitempty"`
	Title     string             `json:"title,omitempty"`
}

type Input struct {
	Scene       *graph.Scene
	Transform   viewport.Transform
	Width       float64
	Height      float64
	Highlights  *highlight.State
	Annotations *metrics.Annotations
	Impact      *highlight.Impact
	Title       string
}

type palette struct{ fill, stroke string }

var kindPalette = map[graph.NodeKind]palette{
	graph.NodeAgent: {fill: "#1e293b", stroke: "#6366f1"},
	graph.NodeTool:  {fill: "#0f172a", stroke: "#14b8a6"},
	graph.NodeTest:  {fill: "#1f2937", stroke: "#a855f7"},
}

var stylePalette = map[highlight.Style]palette{
	highlight.StyleOK:      {fill: "#052e16", stroke: "#22c55e"},
	highlight.StyleRunning: {fill: "#172554", stroke: "#3b82f6"},
	highlight.StyleWarning: {fill: "#451a03", stroke: "#f59e0b"},
	highlight.StyleError:   {fill: "#450a0a", stroke: "#ef4444"},
}

var relationshipColors = map[domain.RelationshipType]string{
	domain.RelationshipCalls:        "#6366f1",
	domain.RelationshipCollaborates: "#0ea5e9",
	domain.RelationshipSequential:   "#8b5cf6",
	domain.RelationshipParallel:     "#ec4899",
}

const (
	agentToolColor = "#475569"
	neutralColor   = "#94a3b8"
)

// Project maps the scene through the transform and applies highlight styles.
// Exactly one style is applied per node.
func Project(in Input) Frame {
	f := Frame{Width: in.Width, Height: in.Height, Transform: in.Transform, Title: in.Title}
	if in.Scene == nil {
		return f
	}
	hl := in.Highlights
	if hl == nil {
		hl = highlight.NewState()
	}

	near := map[string]bool{}
	edgeNear := map[string]bool{}
	if in.Impact != nil {
		near[in.Impact.NodeID] = true
		for _, id := range in.Impact.Neighbors {
			near[id] = true
		}
		for _, id := range in.Impact.Edges {
			edgeNear[id] = true
		}
	}

	for _, n := range in.Scene.Nodes() {
		style := hl.Resolve(n.ID)
		p, ok := stylePalette[style]
		if !ok {
			p = kindPalette[n.Kind]
		}
		shape := NodeShape{
			ID:       n.ID,
			Kind:     n.Kind,
			Label:    n.Label,
			Rect:     in.Transform.RectToScreen(n.Rect()),
			Fill:     p.fill,
			Stroke:   p.stroke,
			Style:    style.String(),
			Hovered:  hl.Hovered() == n.ID,
			Selected: hl.Selected() == n.ID,
		}
		if in.Impact != nil {
			shape.Neighbor = near[n.ID] && n.ID != in.Impact.NodeID
			shape.Dimmed = !near[n.ID]
		}
		if in.Annotations != nil {
			if est, ok := in.Annotations.Nodes[n.ID]; ok {
				shape.Estimate = &est
			}
		}
		f.Nodes = append(f.Nodes, shape)
	}

	for _, e := range in.Scene.Edges() {
		from, to := e.From(), e.To()
		if from == nil || to == nil {
			continue
		}
		path := route(in.Transform.RectToScreen(from.Rect()), in.Transform.RectToScreen(to.Rect()))
		path.ID = e.ID
		path.Kind = e.Kind
		path.Color, path.Marker = edgeStyle(e)
		path.Width = 1.5
		if in.Impact != nil {
			path.Emphasized = edgeNear[e.ID]
			path.Dimmed = !edgeNear[e.ID]
			if path.Emphasized {
				path.Width = 3
			}
		}
		if in.Annotations != nil {
			if est, ok := in.Annotations.Edges[e.ID]; ok {
				path.Estimate = &est
			}
		}
		f.Edges = append(f.Edges, path)
	}

	if in.Impact != nil {
		f.Impact = &ImpactOverlay{Impact: *in.Impact, Screen: in.Transform.RectToScreen(in.Impact.Bounds)}
	}
	if in.Annotations != nil {
		total, dev := in.Annotations.Total, in.Annotations.Deviation
		f.Total, f.Deviation = &total, &dev
	}
	return f
}

func edgeStyle(e *graph.Edge) (color, marker string) {
	switch e.Kind {
	case graph.EdgeTestTarget:
		color, marker = e.Color, e.Marker
	case graph.EdgeAgentTool:
		color, marker = agentToolColor, "arrow"
	default:
		color, marker = neutralColor, "arrow"
		if e.Relationship != nil {
			if c, ok := relationshipColors[e.Relationship.Type]; ok {
				color = c
			}
		}
	}
	if color == "" {
		color = neutralColor
	}
	if marker == "" {
		marker = "arrow"
	}
	return color, marker
}

// route leaves the source on the side facing the target and bends the curve
// along the dominant axis.
func route(from, to graph.Rect) EdgePath {
	fc, tc := from.Center(), to.Center()
	dx, dy := tc.X-fc.X, tc.Y-fc.Y
	var a, b graph.Point
	if math.Abs(dx) >= math.Abs(dy) {
		if dx >= 0 {
			a, b = graph.Point{X: from.Right(), Y: fc.Y}, graph.Point{X: to.X, Y: tc.Y}
		} else {
			a, b = graph.Point{X: from.X, Y: fc.Y}, graph.Point{X: to.Right(), Y: tc.Y}
		}
		bend := (b.X - a.X) / 2
		return EdgePath{From: a, C1: a.Add(bend, 0), C2: b.Add(-bend, 0), To: b}
	}
	if dy >= 0 {
		a, b = graph.Point{X: fc.X, Y: from.Bottom()}, graph.Point{X: tc.X, Y: to.Y}
	} else {
		a, b = graph.Point{X: fc.X, Y: from.Y}, graph.Point{X: tc.X, Y: to.Bottom()}
	}
	bend := (b.Y - a.Y) / 2
	return EdgePath{From: a, C1: a.Add(0, bend), C2: b.Add(0, -bend), To: b}
}

// Point evaluates the curve at t in [0, 1].
func (p EdgePath) Point(t float64) graph.Point {
	u := 1 - t
	a, b, c, d := u*u*u, 3*u*u*t, 3*u*t*t, t*t*t
	return graph.Point{
		X: a*p.From.X + b*p.C1.X + c*p.C2.X + d*p.To.X,
		Y: a*p.From.Y + b*p.C1.Y + c*p.C2.Y + d*p.To.Y,
	}
}
