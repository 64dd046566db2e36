package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentscope/internal/domain"
	"agentscope/internal/graph"
)

func fixture() domain.AnalysisData {
	return domain.AnalysisData{
		Agents: []domain.Agent{
			{ID: "a0", Name: "planner", Tools: domain.NameList{"search", "calc"}},
			{ID: "a1", Name: "coder", Tools: domain.NameList{"search", "ghost"}},
			{ID: "a2", Name: "reviewer"},
			{ID: "a3", Name: "writer"},
		},
		Tools: []domain.Tool{
			{ID: "t-search", Name: "search", Code: "def search(): pass"},
			{Name: "calc"},
		},
		Relationships: []domain.Relationship{
			{ID: "r1", FromAgentID: "a0", ToAgentID: "a1", Type: domain.RelationshipCalls},
			{ID: "r2", FromAgentID: "a1", ToAgentID: "nobody"},
		},
	}
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.BaseX = 100
	opts.RowY0 = 100
	opts.ColSpacing = 400
	opts.RowSpacing = 300
	return opts
}

func TestZigzagAgentPlacement(t *testing.T) {
	s, _ := Layout(Input{Data: fixture()}, testOptions())

	want := map[string]graph.Point{
		"a0": {X: 100, Y: 100},
		"a1": {X: 500, Y: 400},
		"a2": {X: 900, Y: 100},
		"a3": {X: 1300, Y: 400},
	}
	for id, p := range want {
		n, ok := s.Node(id)
		require.True(t, ok, id)
		assert.Equal(t, p, n.Position, id)
	}
}

func TestToolNodesPerAgent(t *testing.T) {
	s, stats := Layout(Input{Data: fixture()}, testOptions())

	assert.Equal(t, 1, stats.UnresolvedTools)
	tools := s.NodesOfKind(graph.NodeTool)
	ids := make([]string, 0, len(tools))
	for _, n := range tools {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []string{"a0__t-search", "a0__calc", "a1__t-search"}, ids)

	// Same tool under two agents: distinct nodes, shared metadata.
	n0, _ := s.Node("a0__t-search")
	n1, _ := s.Node("a1__t-search")
	assert.NotSame(t, n0, n1)
	assert.Same(t, n0.Tool, n1.Tool)

	calc, _ := s.Node("a0__calc")
	assert.Equal(t, n0.Position.X, calc.Position.X)
	assert.Equal(t, n0.Position.Y+testOptions().ToolPitch, calc.Position.Y)

	var agentTool int
	for _, e := range s.Edges() {
		if e.Kind == graph.EdgeAgentTool {
			agentTool++
		}
	}
	assert.Equal(t, 3, agentTool)
}

func TestDanglingRelationshipDropped(t *testing.T) {
	s, stats := Layout(Input{Data: fixture()}, testOptions())

	assert.Equal(t, 1, stats.DanglingRelationships)
	_, ok := s.Edge("aa:r2")
	assert.False(t, ok)
	e, ok := s.Edge("aa:r1")
	require.True(t, ok)
	assert.Equal(t, "a0", e.FromID)
	assert.Equal(t, "a1", e.ToID)
	require.NotNil(t, e.Relationship)
}

func TestLayoutIsDeterministic(t *testing.T) {
	in := Input{
		Data: fixture(),
		TestCases: []domain.TestCase{
			{ID: "tc1", HighlightElements: []string{"a0"}},
			{ID: "tc2", HighlightElements: []string{"t-search"}},
			{ID: "tc3", HighlightElements: []string{"a2", "a3"}},
		},
	}
	a, _ := Layout(in, testOptions())
	b, _ := Layout(in, testOptions())

	assert.Equal(t, a.Positions(), b.Positions())
	require.Equal(t, len(a.Edges()), len(b.Edges()))
	for i, e := range a.Edges() {
		assert.Equal(t, e.ID, b.Edges()[i].ID)
	}
}

func TestTestTargets(t *testing.T) {
	in := Input{
		Data: fixture(),
		TestCases: []domain.TestCase{
			{ID: "tc1", SessionID: "s1", HighlightElements: []string{"a0", "t-search", "missing"}},
			{ID: "tc2", Target: domain.TestTarget{Type: domain.EntityKindAgent, ID: "a3"}},
		},
	}
	s, stats := Layout(in, testOptions())

	assert.Equal(t, 1, stats.UnresolvedTargets)
	_, ok := s.Node("test-s1-tc1")
	require.True(t, ok)

	var targets []string
	for _, e := range s.EdgesOf("test-s1-tc1") {
		targets = append(targets, e.ToID)
	}
	assert.Equal(t, []string{"a0", "a0__t-search", "a1__t-search"}, targets)

	e, ok := s.Edge("tt:test-tc2>a3")
	require.True(t, ok, "falls back to the declared target")
	assert.Equal(t, ColorNeutral, e.Color)
}

func TestZigzagTestContinuation(t *testing.T) {
	opts := testOptions()
	opts.TestStrategy = StrategyZigzag
	in := Input{
		Data:       fixture(),
		TestCases:  []domain.TestCase{{ID: "tc1"}, {ID: "tc2"}},
		Visibility: Visibility{HideTools: true},
	}
	s, _ := Layout(in, opts)

	// Rightmost node is a3 at x=1300 with width 200.
	tc1, _ := s.Node("test-tc1")
	tc2, _ := s.Node("test-tc2")
	assert.Equal(t, graph.Point{X: 1900, Y: 100}, tc1.Position)
	assert.Equal(t, graph.Point{X: 2300, Y: 400}, tc2.Position)
}

func TestRadialTestsAvoidCollisions(t *testing.T) {
	in := Input{Data: fixture()}
	for _, id := range []string{"t1", "t2", "t3", "t4", "t5", "t6", "t7", "t8", "t9", "t10"} {
		in.TestCases = append(in.TestCases, domain.TestCase{ID: id})
	}
	s, _ := Layout(in, testOptions())

	tests := s.NodesOfKind(graph.NodeTest)
	require.Len(t, tests, 10)
	for i, a := range tests {
		for _, b := range tests[i+1:] {
			assert.False(t, a.Rect().Intersects(b.Rect()), "%s overlaps %s", a.ID, b.ID)
		}
		for _, n := range s.Nodes() {
			if n.Kind == graph.NodeTest {
				continue
			}
			assert.False(t, a.Rect().Intersects(n.Rect()), "%s overlaps %s", a.ID, n.ID)
		}
	}
}

func TestRadialRetryBudgetIsBounded(t *testing.T) {
	opts := testOptions()
	opts.MaxPlacementRetries = 1
	opts.RadialRadius = 1
	opts.RadialStep = 1
	in := Input{
		Data:      domain.AnalysisData{Agents: []domain.Agent{{ID: "a"}}},
		TestCases: []domain.TestCase{{ID: "t"}},
	}
	s, _ := Layout(in, opts)
	n, ok := s.Node("test-t")
	require.True(t, ok, "overlapping placement is still accepted")
	a, _ := s.Node("a")
	assert.True(t, n.Rect().Intersects(a.Rect()))
}

func TestPinnedPositionsSurviveRelayout(t *testing.T) {
	pinned := map[string]graph.Point{"a1": {X: -50, Y: 7}, "gone": {X: 1, Y: 1}}
	s, _ := Layout(Input{Data: fixture(), Pinned: pinned}, testOptions())

	a1, _ := s.Node("a1")
	assert.Equal(t, graph.Point{X: -50, Y: 7}, a1.Position)
	a2, _ := s.Node("a2")
	assert.Equal(t, graph.Point{X: 900, Y: 100}, a2.Position)
	_, ok := s.Node("gone")
	assert.False(t, ok)
}

func TestVisibility(t *testing.T) {
	in := Input{
		Data:       fixture(),
		TestCases:  []domain.TestCase{{ID: "tc1", HighlightElements: []string{"a0"}}},
		Visibility: Visibility{HideTools: true, HideRelationships: true, HideTests: true},
	}
	s, _ := Layout(in, testOptions())
	assert.Equal(t, 4, s.Len())
	assert.Empty(t, s.Edges())
}

func TestEdgeStyles(t *testing.T) {
	cases := []struct {
		status  domain.TestStatus
		running bool
		color   string
	}{
		{domain.TestStatusPassed, false, ColorPass},
		{domain.TestStatusFailed, false, ColorFail},
		{domain.TestStatusError, false, ColorFail},
		{domain.TestStatusWarning, false, ColorWarning},
		{domain.TestStatusFailed, true, ColorRunning},
		{"", false, ColorNeutral},
	}
	for _, tc := range cases {
		color, _ := TestEdgeStyle(tc.status, tc.running)
		assert.Equal(t, tc.color, color, "%s running=%v", tc.status, tc.running)
	}
}

func TestRecolorUsesCompositeKeyFirst(t *testing.T) {
	in := Input{
		Data:      fixture(),
		TestCases: []domain.TestCase{{ID: "tc1", SessionID: "s1", HighlightElements: []string{"a0"}}},
	}
	s, _ := Layout(in, testOptions())
	e, ok := s.Edge("tt:test-s1-tc1>a0")
	require.True(t, ok)

	Recolor(s, map[string]domain.TestStatus{"tc1": domain.TestStatusFailed}, "")
	assert.Equal(t, ColorFail, e.Color, "canonical id fallback")

	Recolor(s, map[string]domain.TestStatus{"tc1": domain.TestStatusFailed, "s1-tc1": domain.TestStatusPassed}, "")
	assert.Equal(t, ColorPass, e.Color)

	Recolor(s, nil, "s1-tc1")
	assert.Equal(t, ColorRunning, e.Color)
}

func TestDuplicateTestsDoNotReserveSlots(t *testing.T) {
	opts := testOptions()
	opts.TestStrategy = StrategyRadial
	tc1 := domain.TestCase{ID: "tc1", HighlightElements: []string{"a0"}}
	tc2 := domain.TestCase{ID: "tc2", HighlightElements: []string{"a1"}}

	unique, _ := Layout(Input{Data: fixture(), TestCases: []domain.TestCase{tc1, tc2}}, opts)
	withDup, _ := Layout(Input{Data: fixture(), TestCases: []domain.TestCase{tc1, tc1, tc2}}, opts)

	assert.Equal(t, unique.Len(), withDup.Len())
	want, ok := unique.Node("test-tc2")
	require.True(t, ok)
	got, ok := withDup.Node("test-tc2")
	require.True(t, ok)
	assert.Equal(t, want.Position, got.Position)
}
