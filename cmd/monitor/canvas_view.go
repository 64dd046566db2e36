package main

import (
	"fmt"
	"sync/atomic"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"agentscope/internal/canvas"
	"agentscope/internal/graph"
	"agentscope/internal/layout"
	"agentscope/internal/metrics"
	"agentscope/internal/render"
)

const (
	wheelStep  = 100.0
	sliderStep = 10.0
)

var sliderNames = [4]string{"reasoning", "accuracy", "cost", "speed"}

// canvasView paints the latest frame into a tview box and turns terminal
// input into canvas events. All fields except frame are owned by the UI
// goroutine.
type canvasView struct {
	*tview.Box

	post  func(canvas.Event) error
	cell  render.CellSize
	frame atomic.Pointer[render.Frame]

	width, height int
	visibility    layout.Visibility
	sliders       metrics.Sliders
	active        int
}

func newCanvasView(post func(canvas.Event) error, cell render.CellSize) *canvasView {
	v := &canvasView{
		Box:     tview.NewBox(),
		post:    post,
		cell:    cell,
		sliders: metrics.NeutralSliders(),
	}
	v.SetBorder(true).SetTitle("Canvas")
	v.SetDrawFunc(v.draw)
	v.SetMouseCapture(v.mouse)
	return v
}

// SetFrame is safe to call from the canvas loop goroutine.
func (v *canvasView) SetFrame(f render.Frame) {
	v.frame.Store(&f)
}

func (v *canvasView) Frame() (render.Frame, bool) {
	f := v.frame.Load()
	if f == nil {
		return render.Frame{}, false
	}
	return *f, true
}

func (v *canvasView) draw(screen tcell.Screen, x, y, width, height int) (int, int, int, int) {
	ix, iy, iw, ih := x+1, y+1, width-2, height-2
	if iw <= 0 || ih <= 0 {
		return ix, iy, iw, ih
	}
	if iw != v.width || ih != v.height {
		v.width, v.height = iw, ih
		v.send(canvas.Resize{Width: float64(iw) * v.cell.W, Height: float64(ih) * v.cell.H})
	}
	if f, ok := v.Frame(); ok {
		render.DrawCells(screen, f, render.Region{X: ix, Y: iy, Width: iw, Height: ih}, v.cell)
	}
	return ix, iy, iw, ih
}

// toCanvas maps a screen cell to the centre of the frame area it covers.
func (v *canvasView) toCanvas(sx, sy int) (graph.Point, bool) {
	ix, iy, iw, ih := v.GetInnerRect()
	cx, cy := sx-ix, sy-iy
	if cx < 0 || cy < 0 || cx >= iw || cy >= ih {
		return graph.Point{}, false
	}
	return cellCenter(cx, cy, v.cell), true
}

func cellCenter(cx, cy int, cell render.CellSize) graph.Point {
	return graph.Point{X: (float64(cx) + 0.5) * cell.W, Y: (float64(cy) + 0.5) * cell.H}
}

func (v *canvasView) mouse(action tview.MouseAction, event *tcell.EventMouse) (tview.MouseAction, *tcell.EventMouse) {
	if event == nil {
		return action, event
	}
	p, inside := v.toCanvas(event.Position())
	if !inside && action != tview.MouseLeftUp {
		return action, event
	}
	switch action {
	case tview.MouseLeftDown:
		v.send(canvas.PointerDown{At: p})
	case tview.MouseMove:
		v.send(canvas.PointerMove{At: p})
	case tview.MouseLeftUp:
		v.send(canvas.PointerUp{})
	case tview.MouseScrollUp:
		v.send(canvas.Wheel{At: p, Delta: -wheelStep})
	case tview.MouseScrollDown:
		v.send(canvas.Wheel{At: p, Delta: wheelStep})
	default:
		return action, event
	}
	return tview.MouseConsumed, nil
}

// key handles a rune shortcut and reports whether it was consumed.
func (v *canvasView) key(r rune) bool {
	switch r {
	case 'f':
		v.send(canvas.FitRequested{})
	case 'c':
		v.send(canvas.ClearWarnings{})
	case 't':
		v.visibility.HideTools = !v.visibility.HideTools
		v.send(canvas.VisibilityChanged{Visibility: v.visibility})
	case 'r':
		v.visibility.HideRelationships = !v.visibility.HideRelationships
		v.send(canvas.VisibilityChanged{Visibility: v.visibility})
	case 'x':
		v.visibility.HideTests = !v.visibility.HideTests
		v.send(canvas.VisibilityChanged{Visibility: v.visibility})
	case '1', '2', '3', '4':
		v.active = int(r - '1')
	case '+', '=':
		v.sliders = adjustSlider(v.sliders, v.active, sliderStep)
		v.send(canvas.SlidersChanged{Sliders: v.sliders})
	case '-', '_':
		v.sliders = adjustSlider(v.sliders, v.active, -sliderStep)
		v.send(canvas.SlidersChanged{Sliders: v.sliders})
	case '0':
		v.sliders = metrics.NeutralSliders()
		v.send(canvas.SlidersChanged{Sliders: v.sliders})
	default:
		return false
	}
	return true
}

func (v *canvasView) send(ev canvas.Event) {
	// A full queue only drops a UI gesture; the next one supersedes it.
	_ = v.post(ev)
}

// adjustSlider moves slider i by step, keeping it within 0-100.
func adjustSlider(s metrics.Sliders, i int, step float64) metrics.Sliders {
	clamp := func(x float64) float64 {
		return max(0, min(100, x+step))
	}
	switch i {
	case 0:
		s.Reasoning = clamp(s.Reasoning)
	case 1:
		s.Accuracy = clamp(s.Accuracy)
	case 2:
		s.CostOptimization = clamp(s.CostOptimization)
	case 3:
		s.Speed = clamp(s.Speed)
	}
	return s
}

func (v *canvasView) controlsLine() string {
	vals := [4]float64{v.sliders.Reasoning, v.sliders.Accuracy, v.sliders.CostOptimization, v.sliders.Speed}
	line := ""
	for i, name := range sliderNames {
		if i > 0 {
			line += "  "
		}
		item := fmt.Sprintf("%d:%s %.0f", i+1, name, vals[i])
		if i == v.active {
			item = "[::r]" + item + "[::-]"
		}
		line += item
	}
	return line + "  |  " + hiddenLine(v.visibility)
}

func hiddenLine(vis layout.Visibility) string {
	onOff := func(hidden bool) string {
		if hidden {
			return "off"
		}
		return "on"
	}
	return fmt.Sprintf("t:tools %s  r:links %s  x:tests %s",
		onOff(vis.HideTools), onOff(vis.HideRelationships), onOff(vis.HideTests))
}
