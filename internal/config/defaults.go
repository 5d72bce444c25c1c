package config

import (
	"github.com/asteroid-belt/stash/internal/api"
	"github.com/asteroid-belt/stash/internal/archive"
)

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BaseDir: DefaultBaseDir(),

		API: APIConfig{
			BaseURL:           "https://api.stash.page",
			RequestsPerMinute: api.DefaultRateLimit,
		},

		Archive: ArchiveConfig{
			Dir:     DefaultCacheDir(),
			QuotaMB: archive.DefaultQuotaMB,
		},

		Sync: SyncConfig{
			PageSize: api.DefaultPageSize,
		},

		Canonical: CanonicalConfig{},
	}
}
