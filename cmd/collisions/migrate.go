package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/banshee-data/collision.report/internal/db"
)

func newMigrateCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Inspect or change the database schema version",
	}

	// Opening the store already applies pending migrations.
	withStore := func(run func(cmd *cobra.Command, store *db.DB, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			store, err := opts.openDB(cfg)
			if err != nil {
				return err
			}
			defer store.Close()
			return run(cmd, store, args)
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: withStore(func(cmd *cobra.Command, store *db.DB, _ []string) error {
				if err := store.MigrateUp(); err != nil {
					return err
				}
				return printStatus(cmd, store)
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			Args:  cobra.NoArgs,
			RunE: withStore(func(cmd *cobra.Command, store *db.DB, _ []string) error {
				if err := store.MigrateDown(); err != nil {
					return err
				}
				return printStatus(cmd, store)
			}),
		},
		&cobra.Command{
			Use:   "status",
			Short: "Print the current and latest schema versions",
			Args:  cobra.NoArgs,
			RunE: withStore(func(cmd *cobra.Command, store *db.DB, _ []string) error {
				return printStatus(cmd, store)
			}),
		},
		&cobra.Command{
			Use:   "force <version>",
			Short: "Set the schema version without running migrations",
			Args:  cobra.ExactArgs(1),
			RunE: withStore(func(cmd *cobra.Command, store *db.DB, args []string) error {
				v, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid version %q: %w", args[0], err)
				}
				if err := store.MigrateForce(v); err != nil {
					return err
				}
				return printStatus(cmd, store)
			}),
		},
	)
	return cmd
}

func printStatus(cmd *cobra.Command, store *db.DB) error {
	v, dirty, err := store.MigrateVersion()
	if err != nil {
		return err
	}
	latest, err := db.LatestMigrationVersion()
	if err != nil {
		return err
	}
	cmd.Printf("schema version %d (latest %d, dirty %t)\n", v, latest, dirty)
	return nil
}
