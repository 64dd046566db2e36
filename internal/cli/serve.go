package cli

import (
	"github.com/spf13/cobra"

	"agentscope/internal/api"
	"agentscope/internal/fs"
)

func newServeCmd(a *app) *cobra.Command {
	var addr, exportDir string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long: `Serve analyses, test results and rendered canvases over HTTP.

Examples:
  agentscope serve
  agentscope serve --addr :9000 --exports ./out`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			listen := firstNonEmpty(addr, a.cfg.Server.Addr)
			root := firstNonEmpty(exportDir, a.cfg.Server.ExportDir)
			gw, err := fs.NewGateway(root, a.store)
			if err != nil {
				return err
			}
			a.cfg.Server.ExportDir = gw.Root()
			return api.New(a.cfg, a.store, gw, a.logger).ListenAndServe(cmd.Context(), listen)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "http listen address override")
	cmd.Flags().StringVar(&exportDir, "exports", "", "export root override")
	return cmd
}
