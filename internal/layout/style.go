package layout

import (
	"agentscope/internal/domain"
	"agentscope/internal/graph"
)

const (
	ColorPass    = "#22c55e"
	ColorFail    = "#ef4444"
	ColorWarning = "#f59e0b"
	ColorRunning = "#3b82f6"
	ColorNeutral = "#94a3b8"
)

// TestEdgeStyle picks the color and arrow marker of a test-target edge. The
// running test wins over any earlier result.
func TestEdgeStyle(status domain.TestStatus, running bool) (color, marker string) {
	switch {
	case running:
		return ColorRunning, "arrow-running"
	case status == domain.TestStatusPassed:
		return ColorPass, "arrow-pass"
	case status.Failed():
		return ColorFail, "arrow-fail"
	case status == domain.TestStatusWarning:
		return ColorWarning, "arrow-warning"
	default:
		return ColorNeutral, "arrow"
	}
}

// Recolor restyles the test-target edges of an existing scene in place, so a
// new result or running test does not need a full re-layout.
func Recolor(s *graph.Scene, results map[string]domain.TestStatus, runningKey string) {
	for _, e := range s.Edges() {
		if e.Kind != graph.EdgeTestTarget {
			continue
		}
		n := e.From()
		if n == nil || n.Test == nil {
			continue
		}
		e.Color, e.Marker = TestEdgeStyle(LookupStatus(results, *n.Test), IsRunning(runningKey, *n.Test))
	}
}
