package highlight

import (
	"agentscope/internal/graph"
	"agentscope/internal/metrics"
)

// DefaultImpactPadding is added around the hovered neighborhood.
const DefaultImpactPadding = 24

// Impact is the neighborhood of a hovered node with metrics summed over the
// edges touching it.
type Impact struct {
	NodeID      string     `json:"node_id"`
	Neighbors   []string   `json:"neighbors"`
	Edges       []string   `json:"edges"`
	Bounds      graph.Rect `json:"bounds"`
	TotalCost   float64    `json:"total_cost"`
	TotalP50    float64    `json:"total_p50_ms"`
	MeanSuccess float64    `json:"mean_success_rate_percent"`
}

func (i Impact) NeighborCount() int { return len(i.Neighbors) }
func (i Impact) EdgeCount() int     { return len(i.Edges) }

// HoverImpact walks the edges of the node once. Edges without an estimate
// still count toward the edge total but not toward the metric sums.
func HoverImpact(s *graph.Scene, id string, edgeEstimates map[string]metrics.Estimate, pad float64) (Impact, bool) {
	if s == nil {
		return Impact{}, false
	}
	n, ok := s.Node(id)
	if !ok {
		return Impact{}, false
	}
	out := Impact{NodeID: id}
	rects := []graph.Rect{n.Rect()}
	seen := map[string]bool{id: true}
	var successSum float64
	var measured int
	for _, e := range s.EdgesOf(id) {
		out.Edges = append(out.Edges, e.ID)
		other := e.To()
		if e.ToID == id {
			other = e.From()
		}
		if other != nil && !seen[other.ID] {
			seen[other.ID] = true
			out.Neighbors = append(out.Neighbors, other.ID)
			rects = append(rects, other.Rect())
		}
		if est, ok := edgeEstimates[e.ID]; ok {
			out.TotalCost += est.TotalCost
			out.TotalP50 += est.P50
			successSum += est.SuccessRate
			measured++
		}
	}
	if measured > 0 {
		out.MeanSuccess = successSum / float64(measured)
	}
	bounds, _ := graph.Bounds(rects)
	out.Bounds = bounds.Expand(pad)
	return out, true
}
