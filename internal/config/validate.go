package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePlex(); err != nil {
		return err
	}
	if err := c.validateSources(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validateRateLimits(); err != nil {
		return err
	}
	if err := c.validateSweep(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePlex() error {
	if err := validateURL("plex.url", c.Plex.URL); err != nil {
		return err
	}
	if c.Plex.Token == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("plex.token is required. Set PLEX_TOKEN env var or edit %s (create with 'showsweep config init')", defaultPath)
	}
	return nil
}

func (c *Config) validateSources() error {
	if !c.Sweep.SkipRequests {
		if err := validateURL("overseerr.url", c.Overseerr.URL); err != nil {
			return fmt.Errorf("%w (or set sweep.skip_requests)", err)
		}
		if c.Overseerr.APIKey == "" {
			return errors.New("overseerr.api_key must be set unless sweep.skip_requests is true")
		}
	}
	if !c.Sweep.SkipWatchStats {
		if err := validateURL("tautulli.url", c.Tautulli.URL); err != nil {
			return fmt.Errorf("%w (or set sweep.skip_watch_stats)", err)
		}
		if c.Tautulli.APIKey == "" {
			return errors.New("tautulli.api_key must be set unless sweep.skip_watch_stats is true")
		}
	}
	if c.SonarrEnabled() {
		if err := validateURL("sonarr.url", c.Sonarr.URL); err != nil {
			return err
		}
		if c.Sonarr.APIKey == "" {
			return errors.New("sonarr.api_key must be set when sonarr.url is configured")
		}
	}
	if c.Overseerr.PageSize > 100 {
		return errors.New("overseerr.page_size must not exceed 100")
	}
	return nil
}

func (c *Config) validateCache() error {
	switch c.Cache.Backend {
	case CacheBackendSQLite, CacheBackendBolt:
	default:
		return fmt.Errorf("cache.backend: unsupported value %q (want %q or %q)", c.Cache.Backend, CacheBackendSQLite, CacheBackendBolt)
	}
	if c.Cache.TTLHours <= 0 {
		return errors.New("cache.ttl_hours must be positive")
	}
	if c.Cache.NegativeTTLHours < 0 {
		return errors.New("cache.negative_ttl_hours must not be negative")
	}
	return nil
}

func (c *Config) validateRateLimits() error {
	for key, value := range map[string]int{
		"rate_limits.plex":      c.RateLimits.Plex,
		"rate_limits.overseerr": c.RateLimits.Overseerr,
		"rate_limits.tautulli":  c.RateLimits.Tautulli,
		"rate_limits.sonarr":    c.RateLimits.Sonarr,
	} {
		if value < 0 {
			return fmt.Errorf("%s must not be negative", key)
		}
	}
	return nil
}

func (c *Config) validateSweep() error {
	if !slices.Contains(Actions, c.Sweep.Action) {
		return fmt.Errorf("sweep.action: unsupported value %q (want one of %s)", c.Sweep.Action, strings.Join(Actions, ", "))
	}
	if c.Sweep.RequestThresholdDays <= 0 {
		return errors.New("sweep.request_threshold_days must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}

func validateURL(key, value string) error {
	if value == "" {
		return fmt.Errorf("%s must be set", key)
	}
	parsed, err := url.Parse(value)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("%s: invalid url %q", key, value)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s: unsupported scheme %q", key, parsed.Scheme)
	}
	return nil
}
