package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dreamware/acdb/internal/config"
	"github.com/dreamware/acdb/internal/health"
	"github.com/dreamware/acdb/internal/server"
)

func newServeCmd(opts *options) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve aircraft lookups over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts, cmd.Flags())
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("listen") {
				cfg.Listen = listen
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (overrides config)")
	return cmd
}

// runServer serves the API on cfg.Listen until ctx is done, then shuts
// down gracefully.
func runServer(ctx context.Context, cfg config.Config) error {
	log := newLogger(cfg.LogLevel)
	a := newApp(cfg, log)
	srv := server.New(a.resolver, a.scheduler, a.metrics.Handler(), log)
	if cfg.HealthInterval > 0 {
		mon := health.NewMonitor(a.fetcher, cfg.TypesPath, cfg.HealthInterval, log)
		mon.SetOnChange(func(s health.Status) {
			a.metrics.DatabaseUp(s == health.StatusHealthy)
		})
		go mon.Run(ctx)
		srv.SetHealth(mon)
	}

	httpSrv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.Listen, "db", cfg.BaseURL, "concurrency", cfg.Concurrency)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error(err, "server shutdown")
	}
	log.Info("stopped")
	return nil
}
