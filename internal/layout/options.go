package layout

import "agentscope/internal/graph"

type TestStrategy string

const (
	// StrategyZigzag continues the agent zigzag to the right of the graph.
	StrategyZigzag TestStrategy = "zigzag"
	// StrategyRadial scatters tests around the graph centroid.
	StrategyRadial TestStrategy = "radial"
)

// ParseStrategy maps a config value to a strategy, defaulting to radial.
func ParseStrategy(v string) TestStrategy {
	if TestStrategy(v) == StrategyZigzag {
		return StrategyZigzag
	}
	return StrategyRadial
}

// Visibility hides whole entity kinds. The zero value shows everything.
type Visibility struct {
	HideTools         bool `json:"hide_tools"`
	HideRelationships bool `json:"hide_relationships"`
	HideTests         bool `json:"hide_tests"`
}

type Options struct {
	BaseX      float64
	RowY0      float64
	ColSpacing float64
	RowSpacing float64

	AgentSize graph.Size
	ToolSize  graph.Size
	TestSize  graph.Size

	ToolPitch   float64
	ToolOffsetX float64

	TestStrategy        TestStrategy
	RadialRadius        float64
	RadialStep          float64
	CollisionPadding    float64
	MaxPlacementRetries int
	AngleNudgeEvery     int
	AngleNudge          float64
}

func DefaultOptions() Options {
	return Options{
		BaseX:               100,
		RowY0:               100,
		ColSpacing:          400,
		RowSpacing:          300,
		AgentSize:           graph.Size{Width: 200, Height: 80},
		ToolSize:            graph.Size{Width: 160, Height: 36},
		TestSize:            graph.Size{Width: 180, Height: 56},
		ToolPitch:           46,
		ToolOffsetX:         220,
		TestStrategy:        StrategyRadial,
		RadialRadius:        450,
		RadialStep:          60,
		CollisionPadding:    20,
		MaxPlacementRetries: 24,
		AngleNudgeEvery:     4,
		AngleNudge:          0.15,
	}
}

// withDefaults fills every non-positional zero value. BaseX and RowY0 may
// legitimately be zero and are left alone.
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.ColSpacing <= 0 {
		o.ColSpacing = d.ColSpacing
	}
	if o.RowSpacing <= 0 {
		o.RowSpacing = d.RowSpacing
	}
	if o.AgentSize.Width <= 0 || o.AgentSize.Height <= 0 {
		o.AgentSize = d.AgentSize
	}
	if o.ToolSize.Width <= 0 || o.ToolSize.Height <= 0 {
		o.ToolSize = d.ToolSize
	}
	if o.TestSize.Width <= 0 || o.TestSize.Height <= 0 {
		o.TestSize = d.TestSize
	}
	if o.ToolPitch <= 0 {
		o.ToolPitch = d.ToolPitch
	}
	if o.ToolOffsetX <= 0 {
		o.ToolOffsetX = d.ToolOffsetX
	}
	if o.TestStrategy == "" {
		o.TestStrategy = d.TestStrategy
	}
	if o.RadialRadius <= 0 {
		o.RadialRadius = d.RadialRadius
	}
	if o.RadialStep <= 0 {
		o.RadialStep = d.RadialStep
	}
	if o.CollisionPadding < 0 {
		o.CollisionPadding = 0
	}
	if o.MaxPlacementRetries <= 0 {
		o.MaxPlacementRetries = d.MaxPlacementRetries
	}
	return o
}
