package metrics

import "strings"

// DefaultModel prices agents whose model is missing or unknown.
const DefaultModel = "gpt-4o-mini"

// Price is USD per million tokens.
type Price struct {
	InputPerMillion  float64 `json:"input_per_million" toml:"input_per_million"`
	OutputPerMillion float64 `json:"output_per_million" toml:"output_per_million"`
}

type PriceTable map[string]Price

func DefaultPrices() PriceTable {
	return PriceTable{
		"gpt-4o":            {InputPerMillion: 2.5, OutputPerMillion: 10},
		"gpt-4o-mini":       {InputPerMillion: 0.15, OutputPerMillion: 0.6},
		"gpt-4-turbo":       {InputPerMillion: 10, OutputPerMillion: 30},
		"gpt-4":             {InputPerMillion: 30, OutputPerMillion: 60},
		"gpt-3.5-turbo":     {InputPerMillion: 0.5, OutputPerMillion: 1.5},
		"claude-3-5-sonnet": {InputPerMillion: 3, OutputPerMillion: 15},
		"claude-3-opus":     {InputPerMillion: 15, OutputPerMillion: 75},
		"claude-3-haiku":    {InputPerMillion: 0.25, OutputPerMillion: 1.25},
		"gemini-1.5-pro":    {InputPerMillion: 1.25, OutputPerMillion: 5},
		"gemini-1.5-flash":  {InputPerMillion: 0.075, OutputPerMillion: 0.3},
	}
}

// Merge returns a copy of t with the entries of o added or replaced.
func (t PriceTable) Merge(o PriceTable) PriceTable {
	out := make(PriceTable, len(t)+len(o))
	for k, v := range t {
		out[k] = v
	}
	for k, v := range o {
		out[strings.ToLower(k)] = v
	}
	return out
}

// Lookup resolves a model name case-insensitively, then falls back to the
// fallback model, then to the built-in default model.
func (t PriceTable) Lookup(model, fallback string) Price {
	if p, ok := t.find(model); ok {
		return p
	}
	if p, ok := t.find(fallback); ok {
		return p
	}
	return DefaultPrices()[DefaultModel]
}

func (t PriceTable) find(model string) (Price, bool) {
	model = strings.ToLower(strings.TrimSpace(model))
	if model == "" {
		return Price{}, false
	}
	p, ok := t[model]
	return p, ok
}
