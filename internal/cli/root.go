// Package cli provides the agentscope command tree.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"agentscope/internal/config"
	sqlitestore "agentscope/internal/store/sqlite"
)

// Version is set at build time.
var Version = "0.1.0"

// app carries what every subcommand shares. It is filled by the root
// command's pre-run hook.
type app struct {
	configPath string
	dbPath     string
	verbose    bool

	cfg    config.Config
	store  *sqlitestore.Store
	logger *slog.Logger
	closer func() error
}

// NewRootCmd builds a fresh command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "agentscope",
		Short: "Lay out and estimate multi-agent architectures",
		Long: `agentscope stores agent architecture analyses and their test results,
lays them out as a canvas, estimates cost, latency and reliability per
component, and renders the result as SVG, JSON or an interactive terminal view.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "version" {
				return nil
			}
			return a.open(cmd.Context(), cmd.ErrOrStderr())
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			a.close(cmd.ErrOrStderr())
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to config.toml (default: ~/.agentscope/config.toml)")
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "sqlite database path override")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(newServeCmd(a))
	root.AddCommand(newImportCmd(a))
	root.AddCommand(newListCmd(a))
	root.AddCommand(newSummaryCmd(a))
	root.AddCommand(newRenderCmd(a))
	root.AddCommand(newResultCmd(a))
	root.AddCommand(newRunningCmd(a))
	return root
}

// Execute runs the command tree against os.Args.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

func (a *app) open(ctx context.Context, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.verbose {
		cfg.Log.Level = "debug"
	}
	a.cfg = cfg

	logger, closeLog := config.SetupLogger(cfg.Log, stderr)
	a.logger = logger
	a.closer = closeLog

	dbPath := filepath.Clean(firstNonEmpty(a.dbPath, cfg.Server.DBPath))
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("create db directory: %w", err)
	}
	store, err := sqlitestore.Open(dbPath)
	if err != nil {
		return err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return err
	}
	a.cfg.Server.DBPath = dbPath
	a.store = store
	return nil
}

func (a *app) close(stderr io.Writer) {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			fmt.Fprintf(stderr, "Warning: failed to close database: %v\n", err)
		}
		a.store = nil
	}
	if a.closer != nil {
		_ = a.closer()
		a.closer = nil
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
