package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"agentscope/internal/canvas"
	"agentscope/internal/graph"
	"agentscope/internal/metrics"
)

// Theme holds the colors of the summary output.
type Theme struct {
	Header   lipgloss.Color
	Border   lipgloss.Color
	Better   lipgloss.Color
	Worse    lipgloss.Color
	Muted    lipgloss.Color
	Headline lipgloss.Color
}

var defaultTheme = Theme{
	Header:   lipgloss.Color("#5FAFD7"),
	Border:   lipgloss.Color("#3A3A3A"),
	Better:   lipgloss.Color("#00D787"),
	Worse:    lipgloss.Color("#FF005F"),
	Muted:    lipgloss.Color("#6C6C6C"),
	Headline: lipgloss.Color("#E2E8F0"),
}

func (t Theme) headerStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Header).Bold(true).Padding(0, 1)
}

func (t Theme) cellStyle() lipgloss.Style {
	return lipgloss.NewStyle().Padding(0, 1)
}

func (t Theme) mutedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Muted)
}

func (t Theme) titleStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Headline).Bold(true)
}

// deltaStyle colors a deviation; lower is better unless higherIsBetter.
func (t Theme) deltaStyle(v float64, higherIsBetter bool) lipgloss.Style {
	better := v < 0
	if higherIsBetter {
		better = v > 0
	}
	switch {
	case v == 0:
		return t.mutedStyle()
	case better:
		return lipgloss.NewStyle().Foreground(t.Better)
	default:
		return lipgloss.NewStyle().Foreground(t.Worse)
	}
}

func newSummaryCmd(a *app) *cobra.Command {
	var view viewFlags
	cmd := &cobra.Command{
		Use:   "summary <analysis-id>",
		Short: "Print per-component estimates and the aggregate",
		Long: `Print daily cost, call volume, latency percentiles and success rate for
every agent, tool and connection, followed by the system aggregate and
its deviation from the neutral slider setting.

Examples:
  agentscope summary an-1
  agentscope summary an-1 --reasoning 80 --cost 20`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := a.snapshot(cmd.Context(), args[0], view)
			if err != nil {
				return err
			}
			writeSummary(cmd.OutOrStdout(), snap, defaultTheme)
			return nil
		},
	}
	view.register(cmd)
	return cmd
}

type summaryRow struct {
	kind  string
	name  string
	order int
	est   metrics.Estimate
}

func summaryRows(snap canvas.Snapshot) []summaryRow {
	kindOrder := map[string]int{
		string(graph.NodeAgent):      0,
		string(graph.NodeTool):       1,
		string(graph.EdgeAgentAgent): 2,
		string(graph.EdgeAgentTool):  3,
	}
	var rows []summaryRow
	for _, n := range snap.Frame.Nodes {
		if n.Estimate == nil {
			continue
		}
		rows = append(rows, summaryRow{kind: string(n.Kind), name: n.Label, order: kindOrder[string(n.Kind)], est: *n.Estimate})
	}
	for _, e := range snap.Frame.Edges {
		if e.Estimate == nil {
			continue
		}
		rows = append(rows, summaryRow{kind: string(e.Kind), name: e.ID, order: kindOrder[string(e.Kind)], est: *e.Estimate})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].order != rows[j].order {
			return rows[i].order < rows[j].order
		}
		return rows[i].name < rows[j].name
	})
	return rows
}

func writeSummary(w io.Writer, snap canvas.Snapshot, theme Theme) {
	fmt.Fprintln(w, theme.titleStyle().Render(snap.Frame.Title))

	rows := summaryRows(snap)
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(theme.Border)).
		Headers("KIND", "COMPONENT", "COST/DAY", "CALLS/DAY", "P50", "P95", "P99", "SUCCESS").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return theme.headerStyle()
			}
			return theme.cellStyle()
		})
	for _, r := range rows {
		t.Row(r.kind, r.name,
			formatCost(r.est.TotalCost), fmt.Sprintf("%.0f", r.est.CallsPerDay),
			formatMS(r.est.P50), formatMS(r.est.P95), formatMS(r.est.P99),
			formatPercent(r.est.SuccessRate))
	}
	fmt.Fprintln(w, t.Render())

	if snap.Annotations == nil {
		return
	}
	total := snap.Annotations.Total
	dev := snap.Annotations.Deviation
	fmt.Fprintf(w, "Total  %s/day  p50 %s  p95 %s  p99 %s  success %s  (%d components)\n",
		formatCost(total.TotalCost), formatMS(total.P50), formatMS(total.P95), formatMS(total.P99),
		formatPercent(total.SuccessRate), total.Components)
	fmt.Fprintf(w, "vs neutral  cost %s  latency %s  success %s\n",
		theme.deltaStyle(dev.CostPercent, false).Render(formatDelta(dev.CostPercent)),
		theme.deltaStyle(dev.LatencyPercent, false).Render(formatDelta(dev.LatencyPercent)),
		theme.deltaStyle(dev.SuccessRatePercent, true).Render(formatDelta(dev.SuccessRatePercent)))

	if s := snap.Stats; s.UnresolvedTools+s.DanglingRelationships+s.UnresolvedTargets > 0 {
		var notes []string
		if s.UnresolvedTools > 0 {
			notes = append(notes, fmt.Sprintf("%d unresolved tools", s.UnresolvedTools))
		}
		if s.DanglingRelationships > 0 {
			notes = append(notes, fmt.Sprintf("%d dangling relationships", s.DanglingRelationships))
		}
		if s.UnresolvedTargets > 0 {
			notes = append(notes, fmt.Sprintf("%d unresolved test targets", s.UnresolvedTargets))
		}
		fmt.Fprintln(w, theme.mutedStyle().Render("skipped: "+strings.Join(notes, ", ")))
	}
}

func formatCost(v float64) string {
	if v < 0.01 && v > 0 {
		return fmt.Sprintf("$%.4f", v)
	}
	return fmt.Sprintf("$%.2f", v)
}

func formatMS(v float64) string {
	if v >= 1000 {
		return fmt.Sprintf("%.2fs", v/1000)
	}
	return fmt.Sprintf("%.0fms", v)
}

func formatPercent(v float64) string {
	return fmt.Sprintf("%.2f%%", v)
}

func formatDelta(v float64) string {
	return fmt.Sprintf("%+.1f%%", v)
}
