// Package main implements acdb, which resolves aircraft ICAO addresses
// against a static sharded aircraft database.
//
// Commands:
//
//	acdb serve              run the HTTP lookup API
//	acdb lookup ICAO...     resolve identifiers and print JSON lines
//
// Configuration comes from defaults, an optional YAML file (--config or
// ACDB_CONFIG), ACDB_* environment variables and finally flags.
//
// Example usage:
//
//	# Serve lookups against a tar1090 database
//	ACDB_BASE_URL=http://localhost/tar1090/db2 acdb serve --listen :8090
//
//	# One-off lookup
//	acdb lookup --base-url http://localhost/tar1090/db2 3c6444 a1b2c3
package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/dreamware/acdb/internal/config"
	"github.com/dreamware/acdb/internal/enrich"
	"github.com/dreamware/acdb/internal/metrics"
	"github.com/dreamware/acdb/internal/resolver"
	"github.com/dreamware/acdb/internal/scheduler"
	"github.com/dreamware/acdb/internal/transport"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// options holds flag values shared by all commands.
type options struct {
	configFile  string
	baseURL     string
	timeout     time.Duration
	concurrency int
	logLevel    int
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:          "acdb",
		Short:        "Resolve aircraft addresses against a sharded static database",
		SilenceUsage: true,
	}

	opts.addFlags(root.PersistentFlags())
	root.AddCommand(newServeCmd(opts), newLookupCmd(opts))
	return root
}

func (o *options) addFlags(flags *pflag.FlagSet) {
	flags.StringVar(&o.configFile, "config", "", "path to a YAML config file")
	flags.StringVar(&o.baseURL, "base-url", "", "database base URL (overrides config)")
	flags.DurationVar(&o.timeout, "timeout", 0, "shard fetch timeout (overrides config)")
	flags.IntVar(&o.concurrency, "concurrency", 0, "shard fetches in flight (overrides config)")
	flags.IntVarP(&o.logLevel, "verbose", "v", 0, "log verbosity")
}

// loadConfig reads the configuration and applies flags that were set.
func loadConfig(opts *options, flags *pflag.FlagSet) (config.Config, error) {
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return cfg, err
	}

	if flags.Changed("base-url") {
		cfg.BaseURL = opts.baseURL
	}
	if flags.Changed("timeout") {
		cfg.Timeout = opts.timeout
	}
	if flags.Changed("concurrency") {
		cfg.Concurrency = opts.concurrency
	}
	if flags.Changed("verbose") {
		cfg.LogLevel = opts.logLevel
	}
	return cfg, cfg.Validate()
}

// newLogger returns a logr.Logger writing text to stderr. Verbosity v
// enables logr V(v) messages.
func newLogger(verbosity int) logr.Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.Level(-verbosity)})
	return logr.FromSlogHandler(handler)
}

// app wires the lookup pipeline for one process.
type app struct {
	fetcher   transport.Fetcher
	scheduler *scheduler.Scheduler
	resolver  *resolver.Resolver
	metrics   *metrics.Prometheus
	log       logr.Logger
}

func newApp(cfg config.Config, log logr.Logger) *app {
	prom := metrics.NewPrometheus()
	fetcher := transport.NewHTTPFetcher(cfg.BaseURL, cfg.Timeout)
	sched := scheduler.New(fetcher, scheduler.Options{
		Concurrency: cfg.Concurrency,
		Timeout:     cfg.Timeout,
		Logger:      log,
		Metrics:     prom,
	})
	types := enrich.NewCache(fetcher, cfg.TypesPath, log)

	return &app{
		fetcher:   fetcher,
		scheduler: sched,
		resolver:  resolver.New(sched, types, log, prom),
		metrics:   prom,
		log:       log,
	}
}
