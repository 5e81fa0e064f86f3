package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/banshee-data/collision.report/internal/aggregate"
	"github.com/banshee-data/collision.report/internal/api"
	"github.com/banshee-data/collision.report/internal/category"
	"github.com/banshee-data/collision.report/internal/collision"
	"github.com/banshee-data/collision.report/internal/config"
	"github.com/banshee-data/collision.report/internal/db"
	"github.com/banshee-data/collision.report/internal/loader"
	"github.com/banshee-data/collision.report/internal/monitoring"
	"github.com/banshee-data/collision.report/internal/report"
)

// newEngine builds an empty engine and the record builder from cfg.
func newEngine(cfg *config.Config) (*aggregate.Engine, *collision.Builder, error) {
	cats, err := cfg.Categories()
	if err != nil {
		return nil, nil, err
	}
	reg, err := category.NewRegistry(cats)
	if err != nil {
		return nil, nil, err
	}
	builder, err := cfg.Builder()
	if err != nil {
		return nil, nil, err
	}
	return aggregate.New(reg), builder, nil
}

// newServer loads dataDir into a fresh API server. Files that fail to load
// are logged and retried by the next refresh.
func newServer(ctx context.Context, cfg *config.Config, dataDir string, store *db.DB) (*api.Server, *loader.Loader, error) {
	engine, builder, err := newEngine(cfg)
	if err != nil {
		return nil, nil, err
	}
	srv := api.NewServer(engine, cfg, store)
	l := loader.New(os.DirFS(dataDir), cfg.GetCity(), builder)
	n, err := l.Load(ctx, srv)
	if err != nil {
		monitoring.Logf("serve: initial load incomplete: %v", err)
	}
	monitoring.Logf("serve: loaded %d files from %s", n, dataDir)
	return srv, l, nil
}

func newServeCmd(opts *options) *cobra.Command {
	var listen, dataDir string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the collision map API from the data directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if listen == "" {
				listen = cfg.GetListen()
			}
			if dataDir == "" {
				dataDir = cfg.GetDataDir()
			}

			// The store only backs the debug console, so it is opened on request.
			var store *db.DB
			if opts.dbPath != "" {
				store, err = opts.openDB(cfg)
				if err != nil {
					return err
				}
				defer store.Close()
			}
			return serve(cmd.Context(), cfg, listen, dataDir, store)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (default listen)")
	cmd.Flags().StringVar(&dataDir, "data", "", "Directory of exported documents (default data_dir)")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, listen, dataDir string, store *db.DB) error {
	srv, l, err := newServer(ctx, cfg, dataDir, store)
	if err != nil {
		return err
	}

	if spec := cfg.GetRefreshSchedule(); spec != "" {
		c := cron.New()
		if _, err := l.Schedule(ctx, c, spec, srv); err != nil {
			return err
		}
		c.Start()
		defer func() { <-c.Stop().Done() }()
		monitoring.Logf("serve: refreshing %s on schedule %q", dataDir, spec)
	}

	server := &http.Server{
		Addr:              listen,
		Handler:           api.LoggingMiddleware(srv.ServeMux()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var wg sync.WaitGroup
	errc := make(chan error, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		monitoring.Logf("serve: listening on %s", listen)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- fmt.Errorf("failed to start server: %w", err)
		}
	}()

	select {
	case err := <-errc:
		wg.Wait()
		return err
	case <-ctx.Done():
	}
	monitoring.Logf("serve: shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		monitoring.Logf("serve: HTTP server shutdown error: %v", err)
		if err := server.Close(); err != nil {
			monitoring.Logf("serve: HTTP server force close error: %v", err)
		}
	}
	wg.Wait()
	monitoring.Logf("serve: graceful shutdown complete")
	return nil
}

// engineSink applies loaded files without recomputing after each one.
type engineSink struct{ e *aggregate.Engine }

func (s engineSink) SetLocations(locs []collision.Location) { s.e.SetLocations(locs) }

func (s engineSink) Append(_ string, cs []collision.Collision) { s.e.Add(cs...) }

func newPlotCmd(opts *options) *cobra.Command {
	var out, dataDir string
	cmd := &cobra.Command{
		Use:   "plot",
		Short: "Write a PNG bar chart per category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if dataDir == "" {
				dataDir = cfg.GetDataDir()
			}
			engine, builder, err := newEngine(cfg)
			if err != nil {
				return err
			}
			l := loader.New(os.DirFS(dataDir), cfg.GetCity(), builder)
			if _, err := l.Load(cmd.Context(), engineSink{engine}); err != nil {
				return err
			}
			res := engine.Recompute()

			p, err := report.NewPlotter(out)
			if err != nil {
				return err
			}
			paths, err := p.PlotAll(res.Categories)
			if err != nil {
				return err
			}
			cmd.Printf("wrote %d charts for %d records to %s\n", len(paths), engine.Len(), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "plots", "Output directory")
	cmd.Flags().StringVar(&dataDir, "data", "", "Directory of exported documents (default data_dir)")
	return cmd
}
