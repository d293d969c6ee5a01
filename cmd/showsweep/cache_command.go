package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"showsweep/internal/cache"
	"showsweep/internal/services"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage cached source facts",
	}

	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))

	return cacheCmd
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cached fact counts per source",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := cacheRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			stats, err := rt.facts.Stats(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Backend: %s\n", rt.cfg.Cache.Backend)
			fmt.Fprintf(out, "TTL:     %s (negative %s)\n", rt.cfg.CacheTTL(), rt.cfg.NegativeCacheTTL())
			printCacheStats(out, stats)
			return nil
		},
	}
}

func printCacheStats(out io.Writer, stats []cache.SourceStats) {
	rows := make([][]string, 0, len(stats))
	for _, s := range stats {
		rows = append(rows, []string{
			string(s.Source),
			strconv.Itoa(s.Entries),
			strconv.Itoa(s.Positive),
			relativeTime(s.Oldest),
			relativeTime(s.Newest),
		})
	}
	fmt.Fprintln(out, renderTable(
		"Cached facts",
		[]string{"Source", "Entries", "Positive", "Oldest", "Newest"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft, alignLeft},
	))
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear [source]",
		Short: "Drop cached facts for one source or all of them",
		Long:  "Sources: " + sourceNames() + ". Without a source every namespace is cleared.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			targets := cache.Sources
			if len(args) == 1 {
				source, err := parseSource(args[0])
				if err != nil {
					return err
				}
				targets = []cache.Source{source}
			}

			rt, err := cacheRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			out := cmd.OutOrStdout()
			for _, source := range targets {
				n, err := rt.facts.Clear(cmd.Context(), source)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Cleared %d %s facts\n", n, source)
			}
			return nil
		},
	}
}

func cacheRuntime(ctx *commandContext) (*appRuntime, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return nil, err
	}
	return openRuntime(cfg, logger)
}

// parseSource accepts either the service name or the guard it feeds.
func parseSource(value string) (cache.Source, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case string(cache.SourceRequests), "requests":
		return cache.SourceRequests, nil
	case string(cache.SourceWatchHistory), "watch_history", "watch-history":
		return cache.SourceWatchHistory, nil
	case string(cache.SourceWatchStats), "watch_stats", "watch-stats":
		return cache.SourceWatchStats, nil
	}
	return "", services.Wrap(services.ErrValidation, "cache", "parse source",
		fmt.Sprintf("unknown source %q (want %s)", value, sourceNames()), nil)
}

func sourceNames() string {
	names := make([]string, 0, len(cache.Sources))
	for _, s := range cache.Sources {
		names = append(names, string(s))
	}
	return strings.Join(names, ", ")
}
