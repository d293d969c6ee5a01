package testsupport

import (
	"path/filepath"
	"testing"

	"showsweep/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Every service points at an unroutable placeholder until a With* option
// rewires it, and rate limits are disabled so tests never wait.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Plex.URL = "http://127.0.0.1:1"
	cfgVal.Plex.Token = "plex-test-token"
	cfgVal.Overseerr.URL = "http://127.0.0.1:1"
	cfgVal.Overseerr.APIKey = "overseerr-test-key"
	cfgVal.Tautulli.URL = "http://127.0.0.1:1"
	cfgVal.Tautulli.APIKey = "tautulli-test-key"
	cfgVal.Cache.NegativeTTLHours = cfgVal.Cache.TTLHours
	cfgVal.RateLimits = config.RateLimits{}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return builder.cfg
}

// WithPlex points the media server at url.
func WithPlex(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Plex.URL = url
	}
}

// WithOverseerr points the request tracker at url.
func WithOverseerr(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Overseerr.URL = url
	}
}

// WithTautulli points the history service at url.
func WithTautulli(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Tautulli.URL = url
	}
}

// WithSonarr enables the monitoring service at url.
func WithSonarr(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Sonarr.URL = url
		b.cfg.Sonarr.APIKey = "sonarr-test-key"
	}
}

// WithCacheBackend selects the freshness cache backend.
func WithCacheBackend(backend string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Cache.Backend = backend
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
