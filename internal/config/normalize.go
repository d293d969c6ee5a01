package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeServices()
	c.normalizeCache()
	c.normalizeSweep()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.Database = strings.TrimSpace(c.Paths.Database)
	if c.Paths.Database == "" {
		c.Paths.Database = defaultDatabase
	}
	if strings.HasPrefix(c.Paths.Database, "~") {
		if c.Paths.Database, err = expandPath(c.Paths.Database); err != nil {
			return fmt.Errorf("paths.database: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeServices() {
	c.Plex.URL = trimURL(c.Plex.URL)
	c.Plex.Token = envFallback(c.Plex.Token, "PLEX_TOKEN")
	c.Plex.Library = strings.TrimSpace(c.Plex.Library)
	if c.Plex.Library == "" {
		c.Plex.Library = defaultPlexLibrary
	}

	c.Overseerr.URL = trimURL(c.Overseerr.URL)
	c.Overseerr.APIKey = envFallback(c.Overseerr.APIKey, "OVERSEERR_API_KEY")
	if c.Overseerr.PageSize <= 0 {
		c.Overseerr.PageSize = defaultOverseerrPageSize
	}
	if c.Overseerr.SnapshotTTLMinutes <= 0 {
		c.Overseerr.SnapshotTTLMinutes = defaultOverseerrSnapshotTTL
	}
	if c.Overseerr.MaxPages <= 0 {
		c.Overseerr.MaxPages = defaultOverseerrMaxPages
	}

	c.Tautulli.URL = trimURL(c.Tautulli.URL)
	c.Tautulli.APIKey = envFallback(c.Tautulli.APIKey, "TAUTULLI_API_KEY")

	c.Sonarr.URL = trimURL(c.Sonarr.URL)
	c.Sonarr.APIKey = envFallback(c.Sonarr.APIKey, "SONARR_API_KEY")
}

func (c *Config) normalizeCache() {
	c.Cache.Backend = strings.ToLower(strings.TrimSpace(c.Cache.Backend))
	if c.Cache.Backend == "" {
		c.Cache.Backend = defaultCacheBackend
	}
	if c.Cache.NegativeTTLHours == 0 {
		c.Cache.NegativeTTLHours = c.Cache.TTLHours
	}
}

func (c *Config) normalizeSweep() {
	c.Sweep.Action = strings.ToLower(strings.TrimSpace(c.Sweep.Action))
	c.Sweep.Action = strings.ReplaceAll(c.Sweep.Action, "-", "_")
	if c.Sweep.Action == "" {
		c.Sweep.Action = defaultAction
	}
	if c.Sweep.HTTPTimeoutSeconds <= 0 {
		c.Sweep.HTTPTimeoutSeconds = defaultHTTPTimeoutSeconds
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
}

func (c *Config) normalizeLogging() {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if format == "" {
		format = defaultLogFormat
	}
	c.Logging.Format = format
	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if level == "" {
		level = defaultLogLevel
	}
	c.Logging.Level = level
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

func trimURL(value string) string {
	return strings.TrimRight(strings.TrimSpace(value), "/")
}

func envFallback(value, key string) string {
	value = strings.TrimSpace(value)
	if value != "" {
		return value
	}
	if env, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(env)
	}
	return ""
}
