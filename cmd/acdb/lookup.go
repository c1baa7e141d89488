package main

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/spf13/cobra"

	"github.com/dreamware/acdb/internal/resolver"
	"github.com/dreamware/acdb/internal/server"
)

// errLookupFailed is returned when at least one identifier failed to resolve.
var errLookupFailed = errors.New("one or more lookups failed")

func newLookupCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup ICAO...",
		Short: "Resolve identifiers and print one JSON object per line",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts, cmd.Flags())
			if err != nil {
				return err
			}
			a := newApp(cfg, newLogger(cfg.LogLevel))

			results, errs := a.resolver.ResolveAll(cmd.Context(), args)
			return printResults(cmd.OutOrStdout(), results, errs)
		},
	}
}

func printResults(w io.Writer, results []resolver.Result, errs []error) error {
	enc := json.NewEncoder(w)
	failed := false
	for i := range results {
		resp, _ := server.NewResponse(results[i], errs[i])
		if errs[i] != nil {
			failed = true
		}
		if err := enc.Encode(resp); err != nil {
			return err
		}
	}
	if failed {
		return errLookupFailed
	}
	return nil
}
