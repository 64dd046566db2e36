// Package canvas wires layout, metrics, viewport and highlight state into one
// engine and drives it from a single event loop.
package canvas

import (
	"log/slog"
	"time"

	"agentscope/internal/domain"
	"agentscope/internal/graph"
	"agentscope/internal/highlight"
	"agentscope/internal/layout"
	"agentscope/internal/metrics"
	"agentscope/internal/render"
	"agentscope/internal/viewport"
)

type Config struct {
	Layout              layout.Options
	Viewport            viewport.Options
	Prices              metrics.PriceTable
	DefaultModel        string
	BaselineCallsPerDay float64
	Flash               time.Duration
	FocusDebounce       time.Duration
	ImpactPadding       float64
	Width               float64
	Height              float64
}

func (c Config) withDefaults() Config {
	if c.Layout == (layout.Options{}) {
		c.Layout = layout.DefaultOptions()
	}
	if c.Viewport == (viewport.Options{}) {
		c.Viewport = viewport.DefaultOptions()
	}
	if c.Flash <= 0 {
		c.Flash = highlight.DefaultFlash
	}
	if c.FocusDebounce <= 0 {
		c.FocusDebounce = 250 * time.Millisecond
	}
	if c.ImpactPadding <= 0 {
		c.ImpactPadding = highlight.DefaultImpactPadding
	}
	if c.Width <= 0 {
		c.Width = 1280
	}
	if c.Height <= 0 {
		c.Height = 800
	}
	return c
}

// Engine owns all canvas state. It is not safe for concurrent use: every call
// must come from the goroutine running the Loop, or from a single caller when
// no loop is used. Deferred work re-enters through the dispatch function.
type Engine struct {
	cfg    Config
	logger *slog.Logger

	calc  *metrics.Calculator
	vp    *viewport.Controller
	hl    *highlight.State
	flash *highlight.Slot
	focus *highlight.Slot

	dispatch func(Event)

	analysis   domain.Analysis
	loaded     bool
	results    map[string]domain.TestStatus
	running    string
	visibility layout.Visibility
	sliders    metrics.Sliders
	pinned     map[string]graph.Point

	scene *graph.Scene
	stats layout.Stats
	ann   *metrics.Annotations
	hover *highlight.Impact
}

func NewEngine(cfg Config, clock highlight.Clock, logger *slog.Logger) *Engine {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		cfg:     cfg,
		logger:  logger,
		calc:    metrics.NewCalculator(cfg.Prices, cfg.DefaultModel, cfg.BaselineCallsPerDay),
		vp:      viewport.New(cfg.Viewport, cfg.Width, cfg.Height),
		hl:      highlight.NewState(),
		flash:   highlight.NewSlot(clock),
		focus:   highlight.NewSlot(clock),
		results: map[string]domain.TestStatus{},
		sliders: metrics.NeutralSliders(),
		pinned:  map[string]graph.Point{},
	}
	e.dispatch = e.Handle
	e.relayout()
	return e
}

// SetDispatcher routes timer events. The Loop points it at its bus so timers
// never touch state from their own goroutine.
func (e *Engine) SetDispatcher(fn func(Event)) {
	if fn == nil {
		fn = e.Handle
	}
	e.dispatch = fn
}

// Handle applies one event.
func (e *Engine) Handle(ev Event) {
	if ev != nil {
		ev.apply(e)
	}
}

// LoadAnalysis replaces the entity set. Pins, results and highlights belong
// to the previous analysis and are dropped.
func (e *Engine) LoadAnalysis(a domain.Analysis) {
	sameAnalysis := e.loaded && a.ID != "" && a.ID == e.analysis.ID
	e.analysis = a
	e.loaded = true
	if !sameAnalysis {
		e.pinned = map[string]graph.Point{}
		e.results = map[string]domain.TestStatus{}
		e.running = ""
		e.hl.Reset()
		e.flash.Stop()
		e.focus.Stop()
	}
	e.relayout()
	if !sameAnalysis {
		e.Fit()
	}
}

func (e *Engine) SetTestCases(tcs []domain.TestCase) {
	e.analysis.TestCases = tcs
	e.relayout()
}

func (e *Engine) SetVisibility(v layout.Visibility) {
	if v == e.visibility {
		return
	}
	e.visibility = v
	e.relayout()
	e.Fit()
}

func (e *Engine) Visibility() layout.Visibility { return e.visibility }

// SetSliders only records the values; estimates are recomputed on the next
// read.
func (e *Engine) SetSliders(s metrics.Sliders) { e.sliders = s }

func (e *Engine) Sliders() metrics.Sliders { return e.sliders }

func (e *Engine) relayout() {
	in := layout.Input{
		Data:       e.analysis.Data,
		TestCases:  e.analysis.TestCases,
		Results:    e.results,
		RunningKey: e.running,
		Visibility: e.visibility,
		Pinned:     e.pinned,
	}
	e.scene, e.stats = layout.Layout(in, e.cfg.Layout)
	e.ann = nil
	if e.hover != nil {
		e.refreshHover(e.hover.NodeID)
	}
	e.logger.Debug("canvas relayout",
		"analysis", e.analysis.ID,
		"nodes", e.scene.Len(),
		"edges", len(e.scene.Edges()),
		"unresolved_tools", e.stats.UnresolvedTools,
		"dangling_relationships", e.stats.DanglingRelationships,
		"unresolved_targets", e.stats.UnresolvedTargets,
	)
}

// ApplyResult records a test result, restyles its edges and highlights the
// nodes it touched.
func (e *Engine) ApplyResult(r domain.TestResult) {
	if r.TestID == "" {
		return
	}
	tc, ok := e.findTest(r.SessionID, r.TestID)
	e.results[r.Key()] = r.Status
	if ok {
		// A session result can match a test declared without that session.
		e.results[tc.Key()] = r.Status
	}
	layout.Recolor(e.scene, e.results, e.running)
	if !ok {
		return
	}
	targets := e.testTargets(tc)
	if e.hl.ApplyResult(r.Status, len(r.Recommendations), targets) {
		e.flash.Replace(e.cfg.Flash, func(gen uint64) { e.dispatch(flashExpired{gen: gen}) })
	}
}

// SetRunningTest marks the test currently executing, or clears it with an
// empty key. The viewport follows after a short debounce.
func (e *Engine) SetRunningTest(key string) {
	if key == e.running {
		return
	}
	e.running = key
	layout.Recolor(e.scene, e.results, e.running)
	if key == "" {
		e.hl.ClearRunning()
		e.focus.Stop()
		return
	}
	var ids []string
	if tc, ok := e.findTestKey(key); ok {
		ids = e.testTargets(tc)
	}
	e.hl.SetRunning(ids...)
	e.focus.Replace(e.cfg.FocusDebounce, func(gen uint64) { e.dispatch(focusDue{gen: gen}) })
}

func (e *Engine) RunningTest() string { return e.running }

func (e *Engine) findTest(sessionID, testID string) (domain.TestCase, bool) {
	if tc, ok := e.findTestKey(domain.ResultKey(sessionID, testID)); ok {
		return tc, true
	}
	return e.findTestKey(testID)
}

func (e *Engine) findTestKey(key string) (domain.TestCase, bool) {
	for _, tc := range e.analysis.TestCases {
		if tc.Key() == key {
			return tc, true
		}
	}
	for _, tc := range e.analysis.TestCases {
		if tc.ID == key {
			return tc, true
		}
	}
	return domain.TestCase{}, false
}

// testTargets is the test node plus every node it points at.
func (e *Engine) testTargets(tc domain.TestCase) []string {
	id := layout.TestNodeID(tc)
	out := []string{id}
	for _, edge := range e.scene.EdgesOf(id) {
		if edge.Kind == graph.EdgeTestTarget && edge.FromID == id {
			out = append(out, edge.ToID)
		}
	}
	if len(out) == 1 {
		if _, ok := e.scene.Node(id); !ok {
			// Tests hidden: fall back to the declared highlight elements.
			return append([]string(nil), tc.HighlightElements...)
		}
	}
	return out
}

func (e *Engine) ClearWarnings() { e.hl.ClearWarnings() }
func (e *Engine) ClearErrors()   { e.hl.ClearErrors() }

func (e *Engine) onFlashExpired(gen uint64) {
	if !e.flash.Current(gen) {
		return
	}
	e.flash.Done(gen)
	e.hl.ClearOK()
}

func (e *Engine) onFocusDue(gen uint64) {
	if !e.focus.Current(gen) {
		return
	}
	e.focus.Done(gen)
	running := e.hl.Running()
	if len(running) == 0 {
		return
	}
	if bounds, ok := e.scene.Bounds(running...); ok {
		e.vp.Focus(bounds)
	}
}

// Fit frames every node.
func (e *Engine) Fit() {
	if bounds, ok := e.scene.Bounds(); ok {
		e.vp.Fit(bounds)
	}
}

func (e *Engine) Resize(width, height float64) {
	w, h := e.vp.Size()
	if w == width && h == height {
		return
	}
	e.vp.Resize(width, height)
	e.Fit()
}

func (e *Engine) PointerDown(p graph.Point) {
	id := e.vp.PointerDown(p, e.scene)
	if id != "" {
		e.hl.Select(id)
	}
}

func (e *Engine) PointerMove(p graph.Point) {
	if e.vp.State() == viewport.Idle {
		e.Hover(p)
		return
	}
	if !e.vp.PointerMove(p, e.scene) || e.vp.State() != viewport.DraggingNode {
		return
	}
	// Pin while dragging so a relayout mid-gesture keeps the motion so far.
	id := e.vp.DraggedID()
	if n, ok := e.scene.Node(id); ok {
		e.pinned[id] = n.Position
	}
	if e.hover != nil {
		e.refreshHover(e.hover.NodeID)
	}
}

// PointerUp ends a gesture and pins a dragged node so the next re-layout
// keeps it where the user left it.
func (e *Engine) PointerUp() {
	id, moved := e.vp.PointerUp()
	if !moved {
		return
	}
	if n, ok := e.scene.Node(id); ok {
		e.pinned[id] = n.Position
	}
}

func (e *Engine) Wheel(p graph.Point, delta float64) {
	e.vp.Wheel(p, delta)
}

// Hover updates the impact region for the node under the screen point.
func (e *Engine) Hover(p graph.Point) {
	n, ok := e.scene.NodeAt(e.vp.ToWorld(p))
	if !ok {
		e.hl.Hover("")
		e.hover = nil
		return
	}
	if e.hover != nil && e.hover.NodeID == n.ID {
		return
	}
	e.hl.Hover(n.ID)
	e.refreshHover(n.ID)
}

func (e *Engine) refreshHover(id string) {
	ann := e.Annotations()
	imp, ok := highlight.HoverImpact(e.scene, id, ann.Edges, e.cfg.ImpactPadding)
	if !ok {
		e.hover = nil
		e.hl.Hover("")
		return
	}
	e.hover = &imp
}

// Annotations returns estimates for the current scene identity and sliders,
// recomputing them only when either changed.
func (e *Engine) Annotations() *metrics.Annotations {
	m := e.sliders.Multipliers()
	if !e.ann.Valid(e.scene, m) {
		e.ann = e.calc.Annotate(e.scene, m)
	}
	return e.ann
}

func (e *Engine) Scene() *graph.Scene            { return e.scene }
func (e *Engine) Stats() layout.Stats            { return e.stats }
func (e *Engine) Highlights() *highlight.State   { return e.hl }
func (e *Engine) Transform() viewport.Transform  { return e.vp.Transform() }
func (e *Engine) Viewport() *viewport.Controller { return e.vp }
func (e *Engine) Impact() *highlight.Impact      { return e.hover }
func (e *Engine) Analysis() domain.Analysis      { return e.analysis }

// Frame projects the current state for a render surface.
func (e *Engine) Frame() render.Frame {
	ann := e.Annotations()
	if e.hover != nil {
		e.refreshHover(e.hover.NodeID)
	}
	w, h := e.vp.Size()
	title := e.analysis.Name
	if title == "" {
		title = e.analysis.ID
	}
	return render.Project(render.Input{
		Scene:       e.scene,
		Transform:   e.vp.Transform(),
		Width:       w,
		Height:      h,
		Highlights:  e.hl,
		Annotations: ann,
		Impact:      e.hover,
		Title:       title,
	})
}
