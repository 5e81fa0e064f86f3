// Command collisions imports state collision exports, geocodes them, writes
// the yearly map documents and serves the filterable collision map API.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/banshee-data/collision.report/internal/config"
	"github.com/banshee-data/collision.report/internal/db"
	"github.com/banshee-data/collision.report/internal/monitoring"
	"github.com/banshee-data/collision.report/internal/version"
)

type options struct {
	configPath string
	dbPath     string
	quiet      bool
}

// loadConfig reads --config, or the defaults file when it exists, or
// falls back to built-in defaults.
func (o *options) loadConfig() (*config.Config, error) {
	path := o.configPath
	if path == "" {
		if _, err := os.Stat(config.DefaultConfigPath); err != nil {
			return config.Empty(), nil
		}
		path = config.DefaultConfigPath
	}
	return config.LoadConfig(path)
}

func (o *options) openDB(cfg *config.Config) (*db.DB, error) {
	path := o.dbPath
	if path == "" {
		path = cfg.GetDBPath()
	}
	return db.NewDB(path)
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "collisions",
		Short: "Bike and pedestrian collision map pipeline",
		Long: `collisions loads state collision exports into SQLite, geocodes the
intersections, writes yearly JSON documents and serves them with
category filters and map groups.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.quiet {
				monitoring.SetLogger(nil)
				return
			}
			monitoring.SetOutput(cmd.ErrOrStderr(), "collisions: ")
		},
	}
	root.PersistentFlags().BoolVarP(&opts.quiet, "quiet", "q", false, "Suppress progress logging")
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "JSON config file (default "+config.DefaultConfigPath+" when present)")
	root.PersistentFlags().StringVar(&opts.dbPath, "db", "", "SQLite database path (overrides db_path)")

	root.AddCommand(
		newImportCmd(opts),
		newGeocodeCmd(opts),
		newExportCmd(opts),
		newServeCmd(opts),
		newPlotCmd(opts),
		newMigrateCmd(opts),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println(version.String())
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
