package canvas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentscope/internal/domain"
	"agentscope/internal/layout"
	"agentscope/internal/metrics"
)

func TestSnapshotReplaysResults(t *testing.T) {
	a := analysis()
	a.RunningTest = "s1-tc2"
	snap := TakeSnapshot(Config{Width: 1200, Height: 800}, SnapshotInput{
		Analysis: a,
		Results: []domain.TestResult{
			{TestID: "tc1", SessionID: "s1", Status: domain.TestStatusPassed},
			{TestID: "tc1", SessionID: "s1", Status: domain.TestStatusFailed},
		},
	}, nil)

	assert.Equal(t, "error", shape(t, snap.Frame, "planner").Style)
	assert.Equal(t, "running", shape(t, snap.Frame, "reviewer").Style)
	assert.Equal(t, "default", shape(t, snap.Frame, "coder").Style, "ok flashes are dropped")
	for _, e := range snap.Frame.Edges {
		if e.ID == "tt:test-s1-tc1>planner" {
			assert.Equal(t, layout.ColorFail, e.Color)
		}
	}

	require.NotNil(t, snap.Annotations)
	assert.Zero(t, snap.Annotations.Deviation.CostPercent, "nil sliders are neutral")
	assert.Equal(t, 1, snap.Stats.DanglingRelationships)
}

func TestSnapshotVisibilityAndSliders(t *testing.T) {
	sliders := metrics.Sliders{Reasoning: 50, Accuracy: 50, CostOptimization: 100, Speed: 50}
	snap := TakeSnapshot(Config{Width: 1200, Height: 800}, SnapshotInput{
		Analysis:   analysis(),
		Sliders:    &sliders,
		Visibility: layout.Visibility{HideTools: true, HideTests: true},
	}, nil)

	assert.Len(t, snap.Frame.Nodes, 3)
	require.NotNil(t, snap.Annotations)
	assert.InDelta(t, 100.0, snap.Annotations.Deviation.CostPercent, 1e-6)
}
