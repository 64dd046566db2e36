package canvas

import (
	"log/slog"
	"time"

	"agentscope/internal/domain"
	"agentscope/internal/highlight"
	"agentscope/internal/layout"
	"agentscope/internal/metrics"
	"agentscope/internal/render"
)

// SnapshotInput describes a one-shot render with no interaction.
type SnapshotInput struct {
	Analysis   domain.Analysis
	Results    []domain.TestResult
	Sliders    *metrics.Sliders // nil means neutral
	Visibility layout.Visibility
}

// Snapshot is the fitted frame of an analysis with its results replayed in
// order, plus the estimates it was drawn with.
type Snapshot struct {
	Frame       render.Frame         `json:"frame"`
	Annotations *metrics.Annotations `json:"metrics"`
	Stats       layout.Stats         `json:"stats"`
}

// frozenClock never fires, so replayed passes leave no pending timers.
type frozenClock struct{}

type frozenTimer struct{}

func (frozenTimer) Stop() bool { return true }

func (frozenClock) AfterFunc(time.Duration, func()) highlight.Timer { return frozenTimer{} }

// TakeSnapshot builds a throwaway engine for renders outside the event loop,
// such as HTTP handlers and the CLI. Transient ok highlights are dropped.
func TakeSnapshot(cfg Config, in SnapshotInput, logger *slog.Logger) Snapshot {
	e := NewEngine(cfg, frozenClock{}, logger)
	e.LoadAnalysis(in.Analysis)
	e.SetVisibility(in.Visibility)
	if in.Sliders != nil {
		e.SetSliders(*in.Sliders)
	}
	for _, r := range in.Results {
		e.ApplyResult(r)
	}
	e.SetRunningTest(in.Analysis.RunningTest)
	e.Highlights().ClearOK()
	return Snapshot{
		Frame:       e.Frame(),
		Annotations: e.Annotations(),
		Stats:       e.Stats(),
	}
}
