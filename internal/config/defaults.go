package config

const (
	defaultConfigPath           = "~/.config/showsweep/config.toml"
	defaultDataDir              = "~/.local/share/showsweep"
	defaultLogDir               = "~/.local/share/showsweep/logs"
	defaultDatabase             = "showsweep.db"
	defaultPlexURL              = "http://localhost:32400"
	defaultPlexLibrary          = "TV Shows"
	defaultOverseerrPageSize    = 100
	defaultOverseerrSnapshotTTL = 60
	defaultOverseerrMaxPages    = 1000
	defaultCacheBackend         = CacheBackendSQLite
	defaultCacheTTLHours        = 24
	defaultRatePlex             = 10
	defaultRateOverseerr        = 5
	defaultRateTautulli         = 5
	defaultRateSonarr           = 10
	defaultThresholdDays        = 365
	defaultAction               = ActionKeep
	defaultHTTPTimeoutSeconds   = 10
	defaultNotifyTimeout        = 10
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultLogRetentionDays     = 60
)

// Cache backends.
const (
	CacheBackendSQLite = "sqlite"
	CacheBackendBolt   = "bolt"
)

// Dispositions accepted by sweep.action.
const (
	ActionDelete           = "delete"
	ActionKeepFirstSeason  = "keep_first_season"
	ActionKeepFirstEpisode = "keep_first_episode"
	ActionKeep             = "keep"
)

// Actions lists every valid disposition in prompt order.
var Actions = []string{ActionDelete, ActionKeepFirstSeason, ActionKeepFirstEpisode, ActionKeep}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:  defaultDataDir,
			LogDir:   defaultLogDir,
			Database: defaultDatabase,
		},
		Plex: Plex{
			URL:     defaultPlexURL,
			Library: defaultPlexLibrary,
		},
		Overseerr: Overseerr{
			PageSize:           defaultOverseerrPageSize,
			SnapshotTTLMinutes: defaultOverseerrSnapshotTTL,
			MaxPages:           defaultOverseerrMaxPages,
		},
		Cache: Cache{
			Backend:  defaultCacheBackend,
			TTLHours: defaultCacheTTLHours,
		},
		RateLimits: RateLimits{
			Plex:      defaultRatePlex,
			Overseerr: defaultRateOverseerr,
			Tautulli:  defaultRateTautulli,
			Sonarr:    defaultRateSonarr,
		},
		Sweep: Sweep{
			RequestThresholdDays: defaultThresholdDays,
			Action:               defaultAction,
			HTTPTimeoutSeconds:   defaultHTTPTimeoutSeconds,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Errors:         true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
