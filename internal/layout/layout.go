// Package layout places agent, tool and test nodes and derives the edges
// between them. Layout is deterministic: the same input always yields the same
// positions and edge set.
package layout

import (
	"math"
	"strings"

	"agentscope/internal/domain"
	"agentscope/internal/graph"
)

// Input is everything a layout pass reads. Results are keyed by composite
// session-test key or by canonical test ID.
type Input struct {
	Data       domain.AnalysisData
	TestCases  []domain.TestCase
	Results    map[string]domain.TestStatus
	RunningKey string
	Visibility Visibility
	// Pinned holds positions the user dragged nodes to. Nodes that still exist
	// keep them; new nodes get default positions.
	Pinned map[string]graph.Point
}

// Stats counts references that could not be resolved and were skipped.
type Stats struct {
	UnresolvedTools       int `json:"unresolved_tools"`
	DanglingRelationships int `json:"dangling_relationships"`
	UnresolvedTargets     int `json:"unresolved_targets"`
}

func ToolNodeID(agentID, toolKey string) string {
	return agentID + "__" + toolKey
}

func TestNodeID(tc domain.TestCase) string {
	return "test-" + tc.Key()
}

// Layout derives a fresh scene from the input.
func Layout(in Input, opts Options) (*graph.Scene, Stats) {
	opts = opts.withDefaults()
	b := &builder{in: in, opts: opts, byID: map[string]*graph.Node{}}

	b.placeAgents()
	if !in.Visibility.HideTools {
		b.placeTools()
	}
	if !in.Visibility.HideRelationships {
		b.connectAgents()
	}
	b.pin()
	if !in.Visibility.HideTests && len(in.TestCases) > 0 {
		b.placeTests()
		b.pin()
	}
	return graph.NewScene(b.nodes, b.edges), b.stats
}

type builder struct {
	in    Input
	opts  Options
	nodes []*graph.Node
	edges []*graph.Edge
	byID  map[string]*graph.Node
	stats Stats
}

func (b *builder) add(n *graph.Node) bool {
	if _, dup := b.byID[n.ID]; dup {
		return false
	}
	b.byID[n.ID] = n
	b.nodes = append(b.nodes, n)
	return true
}

// ZigzagPosition returns the slot of the index-th item in the two-row
// serpentine grid starting at baseX.
func ZigzagPosition(index int, baseX float64, opts Options) graph.Point {
	col := float64(index / 2)
	top := index%2 == 0
	x := baseX + col*2*opts.ColSpacing
	y := opts.RowY0
	if !top {
		x += opts.ColSpacing
		y += opts.RowSpacing
	}
	return graph.Point{X: x, Y: y}
}

func (b *builder) placeAgents() {
	idx := 0
	for i := range b.in.Data.Agents {
		a := &b.in.Data.Agents[i]
		if strings.TrimSpace(a.ID) == "" {
			continue
		}
		n := &graph.Node{
			ID:       a.ID,
			Kind:     graph.NodeAgent,
			Label:    a.DisplayName(),
			Position: ZigzagPosition(idx, b.opts.BaseX, b.opts),
			Size:     b.opts.AgentSize,
			Agent:    a,
		}
		if b.add(n) {
			idx++
		}
	}
}

func (b *builder) placeTools() {
	byName := make(map[string]*domain.Tool, len(b.in.Data.Tools))
	for i := range b.in.Data.Tools {
		t := &b.in.Data.Tools[i]
		if _, ok := byName[t.Name]; !ok && t.Name != "" {
			byName[t.Name] = t
		}
	}
	for _, agent := range b.agentNodes() {
		slot := 0
		for _, name := range agent.Agent.Tools {
			tool, ok := byName[name]
			if !ok {
				b.stats.UnresolvedTools++
				continue
			}
			id := ToolNodeID(agent.ID, tool.Key())
			n := &graph.Node{
				ID:    id,
				Kind:  graph.NodeTool,
				Label: tool.Name,
				Position: graph.Point{
					X: agent.Position.X + b.opts.ToolOffsetX,
					Y: agent.Position.Y + float64(slot)*b.opts.ToolPitch,
				},
				Size:    b.opts.ToolSize,
				OwnerID: agent.ID,
				Tool:    tool,
			}
			if !b.add(n) {
				continue
			}
			slot++
			b.edges = append(b.edges, &graph.Edge{
				ID:     "at:" + id,
				Kind:   graph.EdgeAgentTool,
				FromID: agent.ID,
				ToID:   id,
			})
		}
	}
}

func (b *builder) agentNodes() []*graph.Node {
	var out []*graph.Node
	for _, n := range b.nodes {
		if n.Kind == graph.NodeAgent {
			out = append(out, n)
		}
	}
	return out
}

func (b *builder) connectAgents() {
	for i := range b.in.Data.Relationships {
		r := &b.in.Data.Relationships[i]
		from, to := b.lookup(r.FromAgentID), b.lookup(r.ToAgentID)
		if from == nil || to == nil || from.Kind != graph.NodeAgent || to.Kind != graph.NodeAgent {
			b.stats.DanglingRelationships++
			continue
		}
		id := r.ID
		if id == "" {
			id = r.FromAgentID + ">" + r.ToAgentID
		}
		b.edges = append(b.edges, &graph.Edge{
			ID:           "aa:" + id,
			Kind:         graph.EdgeAgentAgent,
			FromID:       from.ID,
			ToID:         to.ID,
			Relationship: r,
		})
	}
}

func (b *builder) lookup(id string) *graph.Node {
	return b.byID[id]
}

func (b *builder) pin() {
	if len(b.in.Pinned) == 0 {
		return
	}
	for _, n := range b.nodes {
		if p, ok := b.in.Pinned[n.ID]; ok {
			n.Position = p
		}
	}
}

func (b *builder) placeTests() {
	var occupied []graph.Rect
	for _, n := range b.nodes {
		occupied = append(occupied, n.Rect())
	}

	// Duplicate keys get no node, so they must not claim a slot either.
	var tests []*domain.TestCase
	seen := map[string]bool{}
	for i := range b.in.TestCases {
		tc := &b.in.TestCases[i]
		id := TestNodeID(*tc)
		if _, taken := b.byID[id]; taken || seen[id] {
			continue
		}
		seen[id] = true
		tests = append(tests, tc)
	}

	var positions []graph.Point
	switch b.opts.TestStrategy {
	case StrategyZigzag:
		positions = b.zigzagTests(occupied, len(tests))
	default:
		positions = b.radialTests(occupied, len(tests))
	}

	for i, tc := range tests {
		n := &graph.Node{
			ID:       TestNodeID(*tc),
			Kind:     graph.NodeTest,
			Label:    testLabel(*tc),
			Position: positions[i],
			Size:     b.opts.TestSize,
			Test:     tc,
		}
		b.add(n)
		b.connectTest(n, *tc)
	}
}

func testLabel(tc domain.TestCase) string {
	if strings.TrimSpace(tc.Name) != "" {
		return tc.Name
	}
	return tc.ID
}

func (b *builder) zigzagTests(occupied []graph.Rect, count int) []graph.Point {
	baseX := b.opts.BaseX
	if bounds, ok := graph.Bounds(occupied); ok {
		baseX = bounds.Right() + b.opts.ColSpacing
	}
	out := make([]graph.Point, count)
	for i := range out {
		out[i] = ZigzagPosition(i, baseX, b.opts)
	}
	return out
}

// radialTests scatters tests around the centroid of the non-test nodes. A
// colliding candidate is pushed outward, with the angle nudged every few
// attempts; after the retry budget the last candidate is kept as is.
func (b *builder) radialTests(occupied []graph.Rect, count int) []graph.Point {
	center := graph.Point{X: b.opts.BaseX, Y: b.opts.RowY0}
	if bounds, ok := graph.Bounds(occupied); ok {
		center = bounds.Center()
	}
	slots := max(count, 8)
	size := b.opts.TestSize
	placed := make([]graph.Rect, len(occupied), len(occupied)+count)
	copy(placed, occupied)

	out := make([]graph.Point, count)
	for i := range count {
		theta := float64(i) * 2 * math.Pi / float64(slots)
		radius := b.opts.RadialRadius
		var cand graph.Rect
		for attempt := 0; attempt <= b.opts.MaxPlacementRetries; attempt++ {
			c := graph.Point{X: center.X + radius*math.Cos(theta), Y: center.Y + radius*math.Sin(theta)}
			cand = graph.Rect{X: c.X - size.Width/2, Y: c.Y - size.Height/2, Width: size.Width, Height: size.Height}
			if !collides(cand, placed, b.opts.CollisionPadding) {
				break
			}
			radius += b.opts.RadialStep
			if b.opts.AngleNudgeEvery > 0 && (attempt+1)%b.opts.AngleNudgeEvery == 0 {
				theta += b.opts.AngleNudge
			}
		}
		placed = append(placed, cand)
		out[i] = graph.Point{X: cand.X, Y: cand.Y}
	}
	return out
}

func collides(r graph.Rect, placed []graph.Rect, pad float64) bool {
	padded := r.Expand(pad)
	for _, p := range placed {
		if padded.Intersects(p) {
			return true
		}
	}
	return false
}

// connectTest links a test node to each highlight element. Elements that match
// no node ID exactly fall back to tool nodes whose composite ID contains them.
func (b *builder) connectTest(test *graph.Node, tc domain.TestCase) {
	targets := tc.HighlightElements
	if len(targets) == 0 && tc.Target.ID != "" {
		targets = []string{tc.Target.ID}
	}
	status, running := b.testState(tc)
	color, marker := TestEdgeStyle(status, running)
	linked := map[string]bool{}
	for _, elem := range targets {
		elem = strings.TrimSpace(elem)
		if elem == "" {
			continue
		}
		ids := b.resolveTarget(elem)
		if len(ids) == 0 {
			b.stats.UnresolvedTargets++
			continue
		}
		for _, id := range ids {
			if linked[id] || id == test.ID {
				continue
			}
			linked[id] = true
			b.edges = append(b.edges, &graph.Edge{
				ID:     "tt:" + test.ID + ">" + id,
				Kind:   graph.EdgeTestTarget,
				FromID: test.ID,
				ToID:   id,
				Color:  color,
				Marker: marker,
			})
		}
	}
}

func (b *builder) resolveTarget(elem string) []string {
	if n := b.lookup(elem); n != nil && n.Kind != graph.NodeTest {
		return []string{n.ID}
	}
	var out []string
	for _, n := range b.nodes {
		if n.Kind == graph.NodeTool && strings.Contains(n.ID, elem) {
			out = append(out, n.ID)
		}
	}
	return out
}

func (b *builder) testState(tc domain.TestCase) (domain.TestStatus, bool) {
	return LookupStatus(b.in.Results, tc), IsRunning(b.in.RunningKey, tc)
}

// LookupStatus finds the latest status of a test, trying the composite
// session key before the canonical test ID.
func LookupStatus(results map[string]domain.TestStatus, tc domain.TestCase) domain.TestStatus {
	if s, ok := results[tc.Key()]; ok {
		return s
	}
	return results[tc.ID]
}

func IsRunning(runningKey string, tc domain.TestCase) bool {
	return runningKey != "" && (runningKey == tc.Key() || runningKey == tc.ID)
}
