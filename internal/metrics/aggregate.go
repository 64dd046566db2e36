package metrics

import (
	"agentscope/internal/graph"
)

// Aggregate is the canvas-wide total. Latencies add up as if every component
// ran in series; the success rate is the probability that all of them succeed.
type Aggregate struct {
	TotalCost   float64 `json:"total_cost"`
	P50         float64 `json:"p50_latency_ms"`
	P95         float64 `json:"p95_latency_ms"`
	P99         float64 `json:"p99_latency_ms"`
	SuccessRate float64 `json:"success_rate_percent"`
	Components  int     `json:"components"`
}

func Sum(estimates ...Estimate) Aggregate {
	agg := Aggregate{SuccessRate: 100}
	reliability := 1.0
	for _, e := range estimates {
		agg.TotalCost += e.TotalCost
		agg.P50 += e.P50
		agg.P95 += e.P95
		agg.P99 += e.P99
		reliability *= e.SuccessRate / 100
		agg.Components++
	}
	agg.SuccessRate = 100 * reliability
	return agg
}

// Deviation is the percent change of an estimate against a baseline.
type Deviation struct {
	CostPercent        float64 `json:"cost_percent"`
	LatencyPercent     float64 `json:"latency_percent"`
	SuccessRatePercent float64 `json:"success_rate_percent"`
}

// Compare reports the deviation of current from baseline. A zero baseline
// figure yields zero deviation.
func Compare(current, baseline Aggregate) Deviation {
	return Deviation{
		CostPercent:        PercentChange(current.TotalCost, baseline.TotalCost),
		LatencyPercent:     PercentChange(current.P50, baseline.P50),
		SuccessRatePercent: PercentChange(current.SuccessRate, baseline.SuccessRate),
	}
}

func PercentChange(current, baseline float64) float64 {
	return safeDiv(current-baseline, baseline) * 100
}

// Annotations are the estimates of one scene identity under one multiplier
// set. Version ties them to the scene they were computed from.
type Annotations struct {
	Version     uint64              `json:"version"`
	Multipliers Multipliers         `json:"multipliers"`
	Nodes       map[string]Estimate `json:"nodes"`
	Edges       map[string]Estimate `json:"edges"`
	Total       Aggregate           `json:"total"`
	Baseline    Aggregate           `json:"baseline"`
	Deviation   Deviation           `json:"deviation"`
}

// Valid reports whether a is current for the scene and multipliers.
func (a *Annotations) Valid(s *graph.Scene, m Multipliers) bool {
	return a != nil && s != nil && a.Version == s.Version() && a.Multipliers == m
}

// Annotate estimates every node and edge of the scene. The baseline total is
// the same scene under neutral multipliers.
func (c *Calculator) Annotate(s *graph.Scene, m Multipliers) *Annotations {
	out := &Annotations{
		Version:     s.Version(),
		Multipliers: m,
		Nodes:       map[string]Estimate{},
		Edges:       map[string]Estimate{},
	}
	var all, neutral []Estimate
	for _, n := range s.Nodes() {
		if e, ok := c.Node(n, m); ok {
			out.Nodes[n.ID] = e
			all = append(all, e)
			base, _ := c.Node(n, Neutral())
			neutral = append(neutral, base)
		}
	}
	for _, edge := range s.Edges() {
		if e, ok := c.Edge(edge, m); ok {
			out.Edges[edge.ID] = e
			all = append(all, e)
			base, _ := c.Edge(edge, Neutral())
			neutral = append(neutral, base)
		}
	}
	out.Total = Sum(all...)
	out.Baseline = Sum(neutral...)
	out.Deviation = Compare(out.Total, out.Baseline)
	return out
}
