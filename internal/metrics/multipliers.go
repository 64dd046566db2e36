// Package metrics estimates cost, latency and reliability for every node and
// edge of a scene from the objective focus sliders.
package metrics

import "math"

// Sliders are the four objective focus controls, each in [0, 100].
type Sliders struct {
	Reasoning        float64 `json:"reasoning"`
	Accuracy         float64 `json:"accuracy"`
	CostOptimization float64 `json:"cost_optimization"`
	Speed            float64 `json:"speed"`
}

func NeutralSliders() Sliders {
	return Sliders{Reasoning: 50, Accuracy: 50, CostOptimization: 50, Speed: 50}
}

// Multipliers are slider values mapped into [0.5, 1.5].
type Multipliers struct {
	Reasoning        float64 `json:"reasoning"`
	Accuracy         float64 `json:"accuracy"`
	CostOptimization float64 `json:"cost_optimization"`
	Speed            float64 `json:"speed"`
}

func Neutral() Multipliers {
	return Multipliers{Reasoning: 1, Accuracy: 1, CostOptimization: 1, Speed: 1}
}

// Multipliers maps reasoning and accuracy directly, cost and speed inverted.
func (s Sliders) Multipliers() Multipliers {
	return Multipliers{
		Reasoning:        DirectFactor(s.Reasoning),
		Accuracy:         DirectFactor(s.Accuracy),
		CostOptimization: InvertedFactor(s.CostOptimization),
		Speed:            InvertedFactor(s.Speed),
	}
}

func DirectFactor(v float64) float64 {
	return 1 + (clampSlider(v)-50)/100
}

func InvertedFactor(v float64) float64 {
	return 1 - (clampSlider(v)-50)/100
}

func clampSlider(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 50
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}
