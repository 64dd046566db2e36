package render

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"sort"
)

var markerColors = map[string]string{
	"arrow":         neutralColor,
	"arrow-pass":    "#22c55e",
	"arrow-fail":    "#ef4444",
	"arrow-warning": "#f59e0b",
	"arrow-running": "#3b82f6",
}

// WriteSVG paints the frame as a standalone SVG document.
func WriteSVG(w io.Writer, f Frame) error {
	var svg bytes.Buffer
	width, height := f.Width, f.Height
	if width <= 0 || height <= 0 {
		width, height = 1024, 768
	}

	fmt.Fprintf(&svg, "<svg width=\"%.0f\" height=\"%.0f\" viewBox=\"0 0 %.0f %.0f\" xmlns=\"http://www.w3.org/2000/svg\">\n", width, height, width, height)
	svg.WriteString("  <style>\n")
	svg.WriteString("    .node-text { font-family: Arial, sans-serif; font-size: 13px; fill: #e2e8f0; text-anchor: middle; }\n")
	svg.WriteString("    .node-metric { font-family: Arial, sans-serif; font-size: 10px; fill: #94a3b8; text-anchor: middle; }\n")
	svg.WriteString("    .edge { fill: none; }\n")
	svg.WriteString("    .dimmed { opacity: 0.25; }\n")
	svg.WriteString("    .summary { font-family: Arial, sans-serif; font-size: 12px; fill: #cbd5e1; }\n")
	svg.WriteString("  </style>\n")
	svg.WriteString("  <defs>\n")
	names := make([]string, 0, len(markerColors))
	for name := range markerColors {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&svg, "    <marker id=\"%s\" markerWidth=\"10\" markerHeight=\"7\" refX=\"10\" refY=\"3.5\" orient=\"auto\">\n", name)
		fmt.Fprintf(&svg, "      <polygon points=\"0 0, 10 3.5, 0 7\" fill=\"%s\" />\n", markerColors[name])
		svg.WriteString("    </marker>\n")
	}
	svg.WriteString("  </defs>\n")
	fmt.Fprintf(&svg, "  <rect width=\"%.0f\" height=\"%.0f\" fill=\"#020617\" />\n", width, height)

	if f.Impact != nil {
		r := f.Impact.Screen
		fmt.Fprintf(&svg, "  <rect x=\"%.1f\" y=\"%.1f\" width=\"%.1f\" height=\"%.1f\" rx=\"12\" fill=\"#6366f1\" fill-opacity=\"0.08\" stroke=\"#6366f1\" stroke-dasharray=\"6 4\" />\n",
			r.X, r.Y, r.Width, r.Height)
	}

	for _, e := range f.Edges {
		class := "edge"
		if e.Dimmed {
			class += " dimmed"
		}
		marker := e.Marker
		if _, ok := markerColors[marker]; !ok {
			marker = "arrow"
		}
		fmt.Fprintf(&svg, "  <path id=\"%s\" d=\"M %.1f %.1f C %.1f %.1f, %.1f %.1f, %.1f %.1f\" class=\"%s\" stroke=\"%s\" stroke-width=\"%.1f\" marker-end=\"url(#%s)\" />\n",
			html.EscapeString(e.ID), e.From.X, e.From.Y, e.C1.X, e.C1.Y, e.C2.X, e.C2.Y, e.To.X, e.To.Y,
			class, e.Color, e.Width, marker)
	}

	for _, n := range f.Nodes {
		r := n.Rect
		class := "node"
		if n.Dimmed {
			class += " dimmed"
		}
		strokeWidth := 1.5
		if n.Hovered || n.Selected {
			strokeWidth = 3
		}
		fmt.Fprintf(&svg, "  <g id=\"%s\" class=\"%s\" data-style=\"%s\">\n", html.EscapeString(n.ID), class, n.Style)
		fmt.Fprintf(&svg, "    <rect x=\"%.1f\" y=\"%.1f\" width=\"%.1f\" height=\"%.1f\" rx=\"6\" ry=\"6\" fill=\"%s\" stroke=\"%s\" stroke-width=\"%.1f\" />\n",
			r.X, r.Y, r.Width, r.Height, n.Fill, n.Stroke, strokeWidth)
		c := r.Center()
		fmt.Fprintf(&svg, "    <text x=\"%.1f\" y=\"%.1f\" class=\"node-text\">%s</text>\n", c.X, c.Y, html.EscapeString(n.Label))
		if n.Estimate != nil {
			fmt.Fprintf(&svg, "    <text x=\"%.1f\" y=\"%.1f\" class=\"node-metric\">$%.4f/day · p50 %.0fms · %.1f%%</text>\n",
				c.X, c.Y+14, n.Estimate.TotalCost, n.Estimate.P50, n.Estimate.SuccessRate)
		}
		svg.WriteString("  </g>\n")
	}

	y := 20.0
	if f.Title != "" {
		fmt.Fprintf(&svg, "  <text x=\"12\" y=\"%.1f\" class=\"summary\" font-weight=\"bold\">%s</text>\n", y, html.EscapeString(f.Title))
		y += 18
	}
	if f.Total != nil {
		fmt.Fprintf(&svg, "  <text x=\"12\" y=\"%.1f\" class=\"summary\">%s</text>\n", y, html.EscapeString(SummaryLine(f)))
	}
	svg.WriteString("</svg>\n")

	if _, err := w.Write(svg.Bytes()); err != nil {
		return fmt.Errorf("write svg: %w", err)
	}
	return nil
}

// SummaryLine formats the aggregate of a frame for status bars and captions.
func SummaryLine(f Frame) string {
	if f.Total == nil {
		return ""
	}
	t := f.Total
	line := fmt.Sprintf("cost $%.2f/day  p50 %.0fms  p95 %.0fms  p99 %.0fms  success %.2f%%",
		t.TotalCost, t.P50, t.P95, t.P99, t.SuccessRate)
	if d := f.Deviation; d != nil && (d.CostPercent != 0 || d.LatencyPercent != 0) {
		line += fmt.Sprintf("  (cost %+.0f%%, latency %+.0f%%)", d.CostPercent, d.LatencyPercent)
	}
	return line
}
