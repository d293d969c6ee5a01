package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"showsweep/internal/actions"
	"showsweep/internal/cache"
	"showsweep/internal/config"
	"showsweep/internal/ratelimit"
	"showsweep/internal/sources/overseerr"
	"showsweep/internal/sources/plex"
	"showsweep/internal/sources/sonarr"
	"showsweep/internal/sources/tautulli"
	"showsweep/internal/store"
	"showsweep/internal/sweep"
)

// appRuntime holds the store, cache and limiters shared by one command.
type appRuntime struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *store.Store
	facts   *cache.FreshnessCache
	limits  ratelimit.Set
	closers []func() error
}

func openRuntime(cfg *config.Config, logger *slog.Logger) (*appRuntime, error) {
	st, err := store.Open(cfg)
	if err != nil {
		return nil, err
	}
	rt := &appRuntime{
		cfg:     cfg,
		logger:  logger,
		store:   st,
		closers: []func() error{st.Close},
	}

	var backend cache.Backend = st
	if cfg.Cache.Backend == config.CacheBackendBolt {
		bolt, err := cache.OpenBolt(cfg.BoltCachePath())
		if err != nil {
			_ = rt.Close()
			return nil, fmt.Errorf("open bolt cache: %w", err)
		}
		rt.closers = append(rt.closers, bolt.Close)
		backend = bolt
	}
	rt.facts = cache.New(backend, nil)
	rt.limits = ratelimit.NewSet(ratelimit.Budgets{
		Plex:      cfg.RateLimits.Plex,
		Overseerr: cfg.RateLimits.Overseerr,
		Tautulli:  cfg.RateLimits.Tautulli,
		Sonarr:    cfg.RateLimits.Sonarr,
	}, ratelimit.WithLogger(logger))
	return rt, nil
}

// Close releases resources in reverse order of acquisition.
func (r *appRuntime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

func (r *appRuntime) policy(force bool) cache.Policy {
	return cache.Policy{
		TTL:         r.cfg.CacheTTL(),
		NegativeTTL: r.cfg.NegativeCacheTTL(),
		Force:       force,
	}
}

// pipeline wires every adapter for one sweep. The coordinator is returned
// separately so callers can skip actions entirely.
func (r *appRuntime) pipeline(force bool, rules sweep.Rules) (sweep.Deps, *actions.Coordinator) {
	cfg := r.cfg
	timeout := cfg.HTTPTimeout()
	policy := r.policy(force)

	plexClient := plex.NewClient(cfg.Plex, timeout, r.limits.Plex, r.logger)
	requests := overseerr.NewClient(cfg.Overseerr, timeout, r.limits.Overseerr, r.logger)
	history := tautulli.NewClient(cfg.Tautulli, timeout, r.limits.Tautulli, r.logger)
	stats := tautulli.NewWatchStats(history, r.facts, policy, r.logger)

	deps := sweep.Deps{
		Inventory: plex.NewInventory(plexClient, r.logger),
		Checks: sweep.Checks{
			Requests: overseerr.NewTracker(requests, r.facts, &overseerr.Snapshot{}, overseerr.TrackerOptions{
				Policy:      policy,
				Threshold:   cfg.RequestThreshold(),
				SnapshotTTL: cfg.SnapshotTTL(),
			}, r.logger),
			WatchStats:   stats,
			WatchHistory: plex.NewWatchHistory(plexClient, r.facts, policy, r.logger),
		},
		Store:  r.store,
		Logger: r.logger,
	}
	if metadataLookupEnabled(cfg, rules) {
		deps.Checks.Resolver = stats
	}

	library := plex.NewLibrary(plexClient, r.logger)
	deps.Sizer = library

	var monitor actions.Monitor
	if cfg.SonarrEnabled() {
		monitor = sonarr.NewClient(cfg.Sonarr, timeout, r.limits.Sonarr, r.logger)
	}
	return deps, actions.NewCoordinator(library, monitor, r.store, r.logger)
}

// metadataLookupEnabled reports whether tvdb ids may be looked up through
// the history service. Skipping watch stats skips the service entirely.
func metadataLookupEnabled(cfg *config.Config, rules sweep.Rules) bool {
	return !rules.SkipWatchStats && strings.TrimSpace(cfg.Tautulli.URL) != ""
}
