package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/banshee-data/collision.report/internal/dataset"
	"github.com/banshee-data/collision.report/internal/geocode"
	"github.com/banshee-data/collision.report/internal/monitoring"
	"github.com/banshee-data/collision.report/internal/switrs"
)

func newImportCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "import <city-dir>",
		Short: "Load CollisionRecords.txt and VictimRecords.txt from every subdirectory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			store, err := opts.openDB(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			ds, err := switrs.ReadCity(os.DirFS(args[0]))
			if err != nil {
				return err
			}
			if err := store.Import(cmd.Context(), ds); err != nil {
				return err
			}
			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Printf("imported %d collisions and %d victims (%d collisions stored)\n",
				len(ds.Collisions), len(ds.Victims), stats.Collisions)
			return nil
		},
	}
}

func newGeocodeCmd(opts *options) *cobra.Command {
	var (
		mapsKey          string
		noGoogle         bool
		overpassEndpoint string
		timeout          time.Duration
	)
	cmd := &cobra.Command{
		Use:   "geocode",
		Short: "Resolve intersection coordinates for bike and pedestrian collisions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				monitoring.Logf("geocode: failed to read .env: %v", err)
			}

			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			store, err := opts.openDB(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			var chain geocode.Chain
			if !noGoogle {
				g, err := geocode.NewGoogle(mapsKey, cfg.GetRegion())
				if err != nil {
					monitoring.Logf("geocode: google disabled: %v", err)
				} else {
					chain = append(chain, g)
				}
			}
			if overpassEndpoint != "" {
				chain = append(chain, geocode.NewOverpass(overpassEndpoint, geocode.AreaFromRegion(cfg.GetRegion()), timeout))
			}

			r := geocode.NewResolver(store, chain, cfg.GetGeocodeRate())
			stats, err := r.Run(cmd.Context(), store)
			if err != nil {
				return err
			}
			cmd.Printf("geocoded %d of %d collisions (%d failed) %v\n",
				stats.Resolved, stats.Collisions, stats.Failed, stats.BySource)
			return nil
		},
	}
	cmd.Flags().StringVar(&mapsKey, "maps-key", "", "Google Maps API key (default $"+geocode.CredentialsEnv+")")
	cmd.Flags().BoolVar(&noGoogle, "no-google", false, "Skip the Google Maps geocoder")
	cmd.Flags().StringVar(&overpassEndpoint, "overpass-endpoint", geocode.DefaultOverpassEndpoint, "Overpass API interpreter URL; empty disables the Overpass fallback")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Overpass request timeout")
	return cmd
}

func newExportCmd(opts *options) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write markers.json and <city>-<year>.json documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			store, err := opts.openDB(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			if out == "" {
				out = cfg.GetDataDir()
			}
			written, err := dataset.Export(cmd.Context(), store, out, cfg.GetCity(), cfg.GetYears(), cfg.GetLocation())
			if err != nil {
				return fmt.Errorf("export failed: %w", err)
			}
			cmd.Printf("wrote %d files to %s\n", len(written), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output directory (default data_dir)")
	return cmd
}
