package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// EnvConfigPath names the environment variable that overrides the config location.
const EnvConfigPath = "SHOWSWEEP_CONFIG"

// Paths contains directory and database file configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	LogDir   string `toml:"log_dir"`
	Database string `toml:"database"`
}

// Plex contains connection settings for the media server.
type Plex struct {
	URL     string `toml:"url"`
	Token   string `toml:"token"`
	Library string `toml:"library"`
}

// Overseerr contains connection settings for the request tracker.
type Overseerr struct {
	URL                string `toml:"url"`
	APIKey             string `toml:"api_key"`
	PageSize           int    `toml:"page_size"`
	SnapshotTTLMinutes int    `toml:"snapshot_ttl_minutes"`
	MaxPages           int    `toml:"max_pages"`
}

// Tautulli contains connection settings for the watch-history service.
type Tautulli struct {
	URL    string `toml:"url"`
	APIKey string `toml:"api_key"`
}

// Sonarr contains connection settings for the monitoring service.
type Sonarr struct {
	URL          string `toml:"url"`
	APIKey       string `toml:"api_key"`
	DeleteSeries bool   `toml:"delete_series"`
	DeleteFiles  bool   `toml:"delete_files"`
}

// Cache controls the freshness cache backend and TTLs.
type Cache struct {
	Backend          string `toml:"backend"`
	TTLHours         int    `toml:"ttl_hours"`
	NegativeTTLHours int    `toml:"negative_ttl_hours"`
}

// RateLimits holds per-service request budgets in calls per minute. Zero
// disables throttling for that service.
type RateLimits struct {
	Plex      int `toml:"plex"`
	Overseerr int `toml:"overseerr"`
	Tautulli  int `toml:"tautulli"`
	Sonarr    int `toml:"sonarr"`
}

// Sweep contains the run toggles that shape the eligibility chain.
type Sweep struct {
	RequestThresholdDays int    `toml:"request_threshold_days"`
	SkipRequests         bool   `toml:"skip_requests"`
	SkipWatchStats       bool   `toml:"skip_watch_stats"`
	SkipWatchHistory     bool   `toml:"skip_watch_history"`
	IgnoreFirstSeason    bool   `toml:"ignore_first_season"`
	IgnoreFirstEpisode   bool   `toml:"ignore_first_episode"`
	ForceRefresh         bool   `toml:"force_refresh"`
	SkipConfirmation     bool   `toml:"skip_confirmation"`
	Action               string `toml:"action"`
	DryRun               bool   `toml:"dry_run"`
	DiskUsage            bool   `toml:"disk_usage"`
	HTTPTimeoutSeconds   int    `toml:"http_timeout_seconds"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for ShowSweep.
//
// Configuration sections by subsystem:
//   - Paths: data, log, and database locations
//   - Plex, Overseerr, Tautulli, Sonarr: external service connections
//   - Cache: freshness cache backend and TTLs
//   - RateLimits: per-service request budgets
//   - Sweep: eligibility toggles and default disposition
//   - Notifications: ntfy push notification settings
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Plex          Plex          `toml:"plex"`
	Overseerr     Overseerr     `toml:"overseerr"`
	Tautulli      Tautulli      `toml:"tautulli"`
	Sonarr        Sonarr        `toml:"sonarr"`
	Cache         Cache         `toml:"cache"`
	RateLimits    RateLimits    `toml:"rate_limits"`
	Sweep         Sweep         `toml:"sweep"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		if env, ok := os.LookupEnv(EnvConfigPath); ok && strings.TrimSpace(env) != "" {
			path = strings.TrimSpace(env)
		}
	}
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("showsweep.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite store location.
func (c *Config) DatabasePath() string {
	if filepath.IsAbs(c.Paths.Database) {
		return c.Paths.Database
	}
	return filepath.Join(c.Paths.DataDir, c.Paths.Database)
}

// BoltCachePath returns the bbolt cache file used when cache.backend is "bolt".
func (c *Config) BoltCachePath() string {
	return filepath.Join(c.Paths.DataDir, "cache.bolt")
}

// LockPath returns the file guarding against concurrent sweeps.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "showsweep.lock")
}

// CacheTTL is the maximum age at which a cached fact is trusted.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLHours) * time.Hour
}

// NegativeCacheTTL is the maximum age at which a cached negative fact is trusted.
func (c *Config) NegativeCacheTTL() time.Duration {
	return time.Duration(c.Cache.NegativeTTLHours) * time.Hour
}

// SnapshotTTL bounds the in-memory request snapshot lifetime.
func (c *Config) SnapshotTTL() time.Duration {
	return time.Duration(c.Overseerr.SnapshotTTLMinutes) * time.Minute
}

// RequestThreshold is the window in which a request counts as recent.
func (c *Config) RequestThreshold() time.Duration {
	return time.Duration(c.Sweep.RequestThresholdDays) * 24 * time.Hour
}

// HTTPTimeout bounds each outbound call.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.Sweep.HTTPTimeoutSeconds) * time.Second
}

// SonarrEnabled reports whether a monitoring service is configured.
func (c *Config) SonarrEnabled() bool {
	return strings.TrimSpace(c.Sonarr.URL) != ""
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
