package metrics

import (
	"math"

	"agentscope/internal/domain"
	"agentscope/internal/graph"
)

const (
	DefaultBaselineCallsPerDay = 1000

	agentInputTokens  = 1000
	agentOutputTokens = 500
	agentBaseLatency  = 200
	agentMSPerToken   = 2
	agentSuccess      = 98.5

	toolBaseLatency = 50
	toolMSPerChar   = 0.1
	toolMaxLatency  = 2000
	toolCallCost    = 0.0001
	toolSuccess     = 99.5

	connDNS              = 5
	connTCP              = 10
	connTLS              = 15
	connSerializePerKB   = 0.05
	connTransferPerKB    = 0.5
	connDeserializePerKB = 0.05
	connPayloadKB        = 4
	connCallCost         = 0.00001
	connSuccess          = 99.9
)

type ratios struct{ p95, p99 float64 }

var (
	agentRatios = ratios{p95: 2.5, p99: 4.2}
	toolRatios  = ratios{p95: 2.0, p99: 3.5}
	connRatios  = ratios{p95: 2.2, p99: 3.8}
)

// Estimate is a derived figure set for one component. It is never stored.
type Estimate struct {
	TotalCost   float64 `json:"total_cost"`
	CallsPerDay float64 `json:"api_calls_per_day"`
	P50         float64 `json:"p50_latency_ms"`
	P95         float64 `json:"p95_latency_ms"`
	P99         float64 `json:"p99_latency_ms"`
	SuccessRate float64 `json:"success_rate_percent"`
}

// LatencyBreakdown is the additive decomposition of a connection's base latency.
type LatencyBreakdown struct {
	DNS             float64 `json:"dns_ms"`
	TCP             float64 `json:"tcp_ms"`
	TLS             float64 `json:"tls_ms"`
	Serialization   float64 `json:"serialization_ms"`
	Transfer        float64 `json:"transfer_ms"`
	Deserialization float64 `json:"deserialization_ms"`
}

func (b LatencyBreakdown) Total() float64 {
	return b.DNS + b.TCP + b.TLS + b.Serialization + b.Transfer + b.Deserialization
}

type Calculator struct {
	prices       PriceTable
	defaultModel string
	baseline     float64
}

func NewCalculator(prices PriceTable, defaultModel string, baselineCallsPerDay float64) *Calculator {
	if len(prices) == 0 {
		prices = DefaultPrices()
	}
	if defaultModel == "" {
		defaultModel = DefaultModel
	}
	if baselineCallsPerDay <= 0 {
		baselineCallsPerDay = DefaultBaselineCallsPerDay
	}
	return &Calculator{prices: prices, defaultModel: defaultModel, baseline: baselineCallsPerDay}
}

func (c *Calculator) Baseline() float64 { return c.baseline }

// estimate applies the shared arithmetic: calls scale with accuracy and speed,
// cost divides by the cost factor, latency scales with load/speed.
func (c *Calculator) estimate(perCall, baseLatency, load, success, baseline float64, r ratios, m Multipliers) Estimate {
	calls := baseline * m.Accuracy * m.Speed
	p50 := baseLatency * safeDiv(load, m.Speed)
	return Estimate{
		TotalCost:   safeDiv(perCall*calls, m.CostOptimization),
		CallsPerDay: calls,
		P50:         p50,
		P95:         p50 * r.p95,
		P99:         p50 * r.p99,
		SuccessRate: success,
	}
}

// Agent prices tokens per model. Token counts and latency scale with the
// reasoning factor.
func (c *Calculator) Agent(a domain.Agent, m Multipliers) Estimate {
	in, out := float64(agentInputTokens), float64(agentOutputTokens)
	if a.ModelConfig.MaxTokens > 0 {
		out = float64(a.ModelConfig.MaxTokens)
	}
	latency := agentBaseLatency + agentMSPerToken*out
	success := agentSuccess
	if h := a.Performance; h != nil {
		if h.InputTokens > 0 {
			in = float64(h.InputTokens)
		}
		if h.OutputTokens > 0 {
			out = float64(h.OutputTokens)
			latency = agentBaseLatency + agentMSPerToken*out
		}
		if h.LatencyMS > 0 {
			latency = h.LatencyMS
		}
		if h.SuccessRate > 0 {
			success = h.SuccessRate
		}
	}
	price := c.prices.Lookup(a.ModelConfig.Model, c.defaultModel)
	perCall := (in*m.Reasoning*price.InputPerMillion + out*m.Reasoning*price.OutputPerMillion) / 1e6
	return c.estimate(perCall, latency, m.Reasoning, success, c.baseline, agentRatios, m)
}

// Tool latency grows with the length of the implementation, capped.
func (c *Calculator) Tool(t domain.Tool, m Multipliers) Estimate {
	latency := math.Min(toolBaseLatency+toolMSPerChar*float64(len(t.Code)), toolMaxLatency)
	success := toolSuccess
	if h := t.Performance; h != nil {
		if h.LatencyMS > 0 {
			latency = h.LatencyMS
		}
		if h.SuccessRate > 0 {
			success = h.SuccessRate
		}
	}
	return c.estimate(toolCallCost, latency, 1, success, c.baseline, toolRatios, m)
}

// Connection estimates an inter-agent hop. A nil relationship yields the
// default estimate used for structural edges.
func (c *Calculator) Connection(r *domain.Relationship, m Multipliers) Estimate {
	baseline := c.baseline
	success := connSuccess
	var rm *domain.RelationshipMetrics
	if r != nil {
		rm = r.Metrics
	}
	if rm != nil {
		if rm.FrequencyPerMin > 0 {
			baseline = rm.FrequencyPerMin * 60 * 24
		}
		if rm.ErrorRatePercent > 0 {
			success = math.Max(0, 100-rm.ErrorRatePercent)
		}
	}
	latency := ConnectionLatency(rm).Total()
	return c.estimate(connCallCost, latency, 1, success, baseline, connRatios, m)
}

// ConnectionLatency decomposes the base latency of a hop. Payload dependent
// terms scale linearly with payload size; a measured bandwidth replaces the
// default transfer rate.
func ConnectionLatency(rm *domain.RelationshipMetrics) LatencyBreakdown {
	payload := float64(connPayloadKB)
	transfer := connTransferPerKB * payload
	if rm != nil {
		if rm.PayloadKB > 0 {
			payload = rm.PayloadKB
			transfer = connTransferPerKB * payload
		}
		if rm.BandwidthKBps > 0 {
			transfer = payload / rm.BandwidthKBps * 1000
		}
	}
	return LatencyBreakdown{
		DNS:             connDNS,
		TCP:             connTCP,
		TLS:             connTLS,
		Serialization:   connSerializePerKB * payload,
		Transfer:        transfer,
		Deserialization: connDeserializePerKB * payload,
	}
}

// Node estimates an agent or tool node. Test nodes are not system components
// and report false.
func (c *Calculator) Node(n *graph.Node, m Multipliers) (Estimate, bool) {
	switch {
	case n == nil:
		return Estimate{}, false
	case n.Kind == graph.NodeAgent && n.Agent != nil:
		return c.Agent(*n.Agent, m), true
	case n.Kind == graph.NodeTool && n.Tool != nil:
		return c.Tool(*n.Tool, m), true
	}
	return Estimate{}, false
}

// Edge estimates agent-agent and agent-tool edges. Edges without relationship
// data get the default connection estimate; test-target edges report false.
func (c *Calculator) Edge(e *graph.Edge, m Multipliers) (Estimate, bool) {
	if e == nil || e.Kind == graph.EdgeTestTarget {
		return Estimate{}, false
	}
	return c.Connection(e.Relationship, m), true
}

func safeDiv(a, b float64) float64 {
	if b == 0 || math.IsNaN(b) {
		return 0
	}
	return a / b
}
