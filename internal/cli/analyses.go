package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"agentscope/internal/domain"
)

func newImportCmd(a *app) *cobra.Command {
	var id, name string
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import an analysis from JSON or YAML",
		Long: `Import an analysis document. The file may hold a full analysis
(with agent_data and test_cases) or just the agent data payload.

Examples:
  agentscope import analysis.json
  agentscope import fixtures/support.yaml --name support-bot`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read analysis file: %w", err)
			}
			analysis, err := decodeAnalysis(data, filepath.Ext(args[0]))
			if err != nil {
				return err
			}
			if id != "" {
				analysis.ID = id
			}
			if analysis.ID == "" {
				analysis.ID = uuid.NewString()
			}
			if name != "" {
				analysis.Name = name
			}
			if analysis.Name == "" {
				analysis.Name = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			}

			saved, err := a.store.SaveAnalysis(cmd.Context(), analysis)
			if err != nil {
				return err
			}
			a.logger.Debug("analysis imported", "id", saved.ID, "agents", len(saved.Data.Agents))
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %s (%s): %d agents, %d tools, %d relationships, %d tests\n",
				saved.Name, saved.ID, len(saved.Data.Agents), len(saved.Data.Tools),
				len(saved.Data.Relationships), len(saved.TestCases))
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "analysis id (default: from file or generated)")
	cmd.Flags().StringVar(&name, "name", "", "analysis name (default: from file or file name)")
	return cmd
}

// decodeAnalysis accepts a full analysis or a bare agent data payload.
func decodeAnalysis(data []byte, ext string) (domain.Analysis, error) {
	unmarshal := json.Unmarshal
	format := "json"
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		unmarshal = yaml.Unmarshal
		format = "yaml"
	}

	var a domain.Analysis
	if err := unmarshal(data, &a); err != nil {
		return domain.Analysis{}, fmt.Errorf("decode %s analysis: %w", format, err)
	}
	if len(a.Data.Agents) == 0 {
		var bare domain.AnalysisData
		if err := unmarshal(data, &bare); err == nil && len(bare.Agents) > 0 {
			a.Data = bare
		}
	}
	if len(a.Data.Agents) == 0 {
		return domain.Analysis{}, fmt.Errorf("decode %s analysis: no agents found", format)
	}
	return a, nil
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored analyses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			items, err := a.store.ListAnalyses(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(items) == 0 {
				fmt.Fprintln(out, "No analyses found.")
				return nil
			}
			fmt.Fprintf(out, "Analyses (%d):\n\n", len(items))
			for _, item := range items {
				fmt.Fprintf(out, "- %s  %s [%s] %d agents, %d tests, updated %s\n",
					item.ID, item.Name, item.Status, len(item.Data.Agents), len(item.TestCases),
					item.UpdatedAt.Format("2006-01-02 15:04"))
				if a.verbose && item.RunningTest != "" {
					fmt.Fprintf(out, "  running: %s\n", item.RunningTest)
				}
			}
			return nil
		},
	}
}
