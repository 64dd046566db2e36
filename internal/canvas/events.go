package canvas

import (
	"agentscope/internal/domain"
	"agentscope/internal/graph"
	"agentscope/internal/layout"
	"agentscope/internal/metrics"
	"agentscope/internal/render"
)

// Event is one discrete input to the engine.
type Event interface {
	apply(e *Engine)
}

type LoadAnalysis struct{ Analysis domain.Analysis }

func (ev LoadAnalysis) apply(e *Engine) { e.LoadAnalysis(ev.Analysis) }

type TestCasesChanged struct{ TestCases []domain.TestCase }

func (ev TestCasesChanged) apply(e *Engine) { e.SetTestCases(ev.TestCases) }

type ResultArrived struct{ Result domain.TestResult }

func (ev ResultArrived) apply(e *Engine) { e.ApplyResult(ev.Result) }

// RunningChanged carries the composite key of the executing test, or "" when
// nothing runs.
type RunningChanged struct{ Key string }

func (ev RunningChanged) apply(e *Engine) { e.SetRunningTest(ev.Key) }

type SlidersChanged struct{ Sliders metrics.Sliders }

func (ev SlidersChanged) apply(e *Engine) { e.SetSliders(ev.Sliders) }

type VisibilityChanged struct{ Visibility layout.Visibility }

func (ev VisibilityChanged) apply(e *Engine) { e.SetVisibility(ev.Visibility) }

type PointerDown struct{ At graph.Point }

func (ev PointerDown) apply(e *Engine) { e.PointerDown(ev.At) }

type PointerMove struct{ At graph.Point }

func (ev PointerMove) apply(e *Engine) { e.PointerMove(ev.At) }

type PointerUp struct{}

func (PointerUp) apply(e *Engine) { e.PointerUp() }

type Wheel struct {
	At    graph.Point
	Delta float64
}

func (ev Wheel) apply(e *Engine) { e.Wheel(ev.At, ev.Delta) }

type Resize struct{ Width, Height float64 }

func (ev Resize) apply(e *Engine) { e.Resize(ev.Width, ev.Height) }

type FitRequested struct{}

func (FitRequested) apply(e *Engine) { e.Fit() }

type ClearWarnings struct{}

func (ClearWarnings) apply(e *Engine) { e.ClearWarnings() }

type flashExpired struct{ gen uint64 }

func (ev flashExpired) apply(e *Engine) { e.onFlashExpired(ev.gen) }

type focusDue struct{ gen uint64 }

func (ev focusDue) apply(e *Engine) { e.onFocusDue(ev.gen) }

// frameRequest asks the loop for a projection of the current state.
type frameRequest struct{ reply chan render.Frame }

func (ev frameRequest) apply(e *Engine) { ev.reply <- e.Frame() }
