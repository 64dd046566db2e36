package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/spf13/cobra"

	"agentscope/internal/fs"
	"agentscope/internal/render"
)

func newRenderCmd(a *app) *cobra.Command {
	var view viewFlags
	var out, format, exportDir string
	cmd := &cobra.Command{
		Use:   "render <analysis-id>",
		Short: "Render an analysis to SVG or JSON under the export root",
		Long: `Lay out an analysis with its recorded test results and write the frame
under the export root. Paths that would leave the root are rejected.

Examples:
  agentscope render an-1
  agentscope render an-1 --format json --out reports/an-1.json
  agentscope render an-1 --strategy zigzag --hide tools`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format = strings.ToLower(format)
			snap, err := a.snapshot(cmd.Context(), args[0], view)
			if err != nil {
				return err
			}

			var buf bytes.Buffer
			switch format {
			case "svg":
				err = render.WriteSVG(&buf, snap.Frame)
			case "json":
				enc := json.NewEncoder(&buf)
				enc.SetIndent("", "  ")
				err = enc.Encode(snap)
			default:
				return fmt.Errorf("unsupported format %q (want svg or json)", format)
			}
			if err != nil {
				return fmt.Errorf("render %s: %w", format, err)
			}

			gw, err := fs.NewGateway(firstNonEmpty(exportDir, a.cfg.Server.ExportDir), a.store)
			if err != nil {
				return err
			}
			rel := firstNonEmpty(out, path.Join(args[0], "scene."+format))
			rec, err := gw.WriteExport(cmd.Context(), args[0], rel, buf.Bytes())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes) under %s\n", rec.Path, rec.Bytes, gw.Root())
			fmt.Fprintln(cmd.OutOrStdout(), render.SummaryLine(snap.Frame))
			return nil
		},
	}
	view.register(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "", "path relative to the export root (default: <id>/scene.<format>)")
	cmd.Flags().StringVarP(&format, "format", "f", "svg", "output format: svg or json")
	cmd.Flags().StringVar(&exportDir, "exports", "", "export root override")
	return cmd
}
