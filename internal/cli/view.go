package cli

import (
	"context"

	"github.com/spf13/cobra"

	"agentscope/internal/api"
	"agentscope/internal/canvas"
	"agentscope/internal/layout"
	"agentscope/internal/metrics"
)

// viewFlags are the knobs shared by commands that lay out an analysis.
type viewFlags struct {
	width, height int
	strategy      string
	hide          string
	sliders       metrics.Sliders
}

func (v *viewFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&v.width, "width", 1280, "viewport width in canvas units")
	cmd.Flags().IntVar(&v.height, "height", 800, "viewport height in canvas units")
	cmd.Flags().StringVar(&v.strategy, "strategy", "", "test placement: zigzag or radial (default: config)")
	cmd.Flags().StringVar(&v.hide, "hide", "", "comma separated kinds to hide: tools, relationships, tests")
	cmd.Flags().Float64Var(&v.sliders.Reasoning, "reasoning", 50, "reasoning focus 0-100")
	cmd.Flags().Float64Var(&v.sliders.Accuracy, "accuracy", 50, "accuracy focus 0-100")
	cmd.Flags().Float64Var(&v.sliders.CostOptimization, "cost", 50, "cost optimization focus 0-100")
	cmd.Flags().Float64Var(&v.sliders.Speed, "speed", 50, "speed focus 0-100")
}

func (a *app) snapshot(ctx context.Context, analysisID string, v viewFlags) (canvas.Snapshot, error) {
	analysis, err := a.store.GetAnalysis(ctx, analysisID)
	if err != nil {
		return canvas.Snapshot{}, err
	}
	results, err := a.store.ListTestResults(ctx, analysisID)
	if err != nil {
		return canvas.Snapshot{}, err
	}
	cfg := a.cfg.Canvas(float64(v.width), float64(v.height))
	if v.strategy != "" {
		cfg.Layout.TestStrategy = layout.ParseStrategy(v.strategy)
	}
	sliders := v.sliders
	return canvas.TakeSnapshot(cfg, canvas.SnapshotInput{
		Analysis:   analysis,
		Results:    results,
		Sliders:    &sliders,
		Visibility: api.ParseHidden(v.hide),
	}, a.logger), nil
}
