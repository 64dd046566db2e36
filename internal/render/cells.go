package render

import (
	"math"

	"github.com/gdamore/tcell/v2"

	"agentscope/internal/graph"
)

// CellSize is the number of frame units covered by one terminal cell.
type CellSize struct {
	W float64
	H float64
}

func DefaultCellSize() CellSize { return CellSize{W: 8, H: 16} }

// Region is the screen area, in cells, a frame is painted into.
type Region struct {
	X, Y, Width, Height int
}

func (r Region) contains(x, y int) bool {
	return x >= r.X && x < r.X+r.Width && y >= r.Y && y < r.Y+r.Height
}

// DrawCells rasterizes the frame onto a terminal screen. Edges are painted
// first so nodes cover their endpoints.
func DrawCells(s tcell.Screen, f Frame, region Region, cell CellSize) {
	if cell.W <= 0 || cell.H <= 0 {
		cell = DefaultCellSize()
	}
	c := canvas{s: s, region: region, cell: cell}

	if f.Impact != nil {
		st := tcell.StyleDefault.Foreground(tcell.GetColor("#6366f1"))
		c.outline(f.Impact.Screen, '┄', '┆', st)
	}
	for _, e := range f.Edges {
		c.edge(e)
	}
	for _, n := range f.Nodes {
		c.node(n)
	}
}

type canvas struct {
	s      tcell.Screen
	region Region
	cell   CellSize
}

func (c canvas) toCell(x, y float64) (int, int) {
	return c.region.X + int(math.Floor(x/c.cell.W)), c.region.Y + int(math.Floor(y/c.cell.H))
}

func (c canvas) set(x, y int, r rune, st tcell.Style) {
	if c.region.contains(x, y) {
		c.s.SetContent(x, y, r, nil, st)
	}
}

func (c canvas) edge(e EdgePath) {
	st := tcell.StyleDefault.Foreground(tcell.GetColor(e.Color))
	if e.Dimmed {
		st = st.Dim(true)
	}
	if e.Emphasized {
		st = st.Bold(true)
	}
	const steps = 24
	px, py := c.toCell(e.From.X, e.From.Y)
	for i := 1; i <= steps; i++ {
		p := e.Point(float64(i) / steps)
		x, y := c.toCell(p.X, p.Y)
		c.line(px, py, x, y, '·', st)
		px, py = x, y
	}
	tail := e.Point(0.9)
	c.set(px, py, arrowHead(e.To.X-tail.X, e.To.Y-tail.Y), st)
}

func arrowHead(dx, dy float64) rune {
	if math.Abs(dx) >= math.Abs(dy) {
		if dx >= 0 {
			return '▶'
		}
		return '◀'
	}
	if dy >= 0 {
		return '▼'
	}
	return '▲'
}

// line draws a Bresenham segment between two cells.
func (c canvas) line(x0, y0, x1, y1 int, r rune, st tcell.Style) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for {
		c.set(x0, y0, r, st)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func (c canvas) node(n NodeShape) {
	x0, y0 := c.toCell(n.Rect.X, n.Rect.Y)
	x1, y1 := c.toCell(n.Rect.Right(), n.Rect.Bottom())
	border := tcell.StyleDefault.Foreground(tcell.GetColor(n.Stroke)).Background(tcell.GetColor(n.Fill))
	body := tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.GetColor(n.Fill))
	if n.Dimmed {
		border, body = border.Dim(true), body.Dim(true)
	}
	if n.Hovered || n.Selected {
		border = border.Bold(true)
	}

	if x1-x0 < 2 || y1-y0 < 2 {
		c.set(x0, y0, '■', border)
		return
	}
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			c.set(x, y, ' ', body)
		}
	}
	c.outline(n.Rect, '─', '│', border)

	label := []rune(n.Label)
	room := x1 - x0 - 1
	if len(label) > room {
		if room <= 1 {
			label = label[:max(room, 0)]
		} else {
			label = append(label[:room-1], '…')
		}
	}
	ly := y0 + (y1-y0)/2
	lx := x0 + 1 + (room-len(label))/2
	for i, r := range label {
		c.set(lx+i, ly, r, body)
	}
}

func (c canvas) outline(r graph.Rect, horiz, vert rune, st tcell.Style) {
	x0, y0 := c.toCell(r.X, r.Y)
	x1, y1 := c.toCell(r.Right(), r.Bottom())
	for x := x0 + 1; x < x1; x++ {
		c.set(x, y0, horiz, st)
		c.set(x, y1, horiz, st)
	}
	for y := y0 + 1; y < y1; y++ {
		c.set(x0, y, vert, st)
		c.set(x1, y, vert, st)
	}
	c.set(x0, y0, '┌', st)
	c.set(x1, y0, '┐', st)
	c.set(x0, y1, '└', st)
	c.set(x1, y1, '┘', st)
}
