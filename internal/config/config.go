// Package config handles application configuration management.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration.
type Config struct {
	// Base directory for all Stash data (~/.stash)
	BaseDir string

	// Link service API settings
	API APIConfig

	// Archive cache settings
	Archive ArchiveConfig

	// Sync engine settings
	Sync SyncConfig

	// URL canonicalization settings
	Canonical CanonicalConfig
}

// APIConfig holds link service connection settings.
type APIConfig struct {
	// BaseURL of the link service (STASH_API_BASE env var)
	BaseURL string
	// Token is a static bearer token (STASH_TOKEN env var); when empty
	// requests go out unauthenticated
	Token string
	// RequestsPerMinute caps outgoing API calls
	RequestsPerMinute int
}

// ArchiveConfig holds archive cache settings.
type ArchiveConfig struct {
	// Dir overrides the cache directory (default: XDG cache dir)
	Dir string
	// QuotaMB is the advisory cache size ceiling in megabytes
	// (STASH_CACHE_QUOTA_MB env var)
	QuotaMB int64
}

// SyncConfig holds sync engine settings.
type SyncConfig struct {
	// PageSize bounds one inbound delta page
	PageSize int
	// ModelHints are forwarded with every push for server-side
	// enrichment (STASH_MODEL_HINTS env var, comma-separated)
	ModelHints []string
}

// CanonicalConfig holds URL canonicalization settings.
type CanonicalConfig struct {
	// SessionAllowlist lists hosts whose session query parameters are
	// kept (STASH_SESSION_ALLOWLIST env var, comma-separated)
	SessionAllowlist []string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	if base := os.Getenv("STASH_API_BASE"); base != "" {
		cfg.API.BaseURL = base
	}
	if token := os.Getenv("STASH_TOKEN"); token != "" {
		cfg.API.Token = token
	}
	if quota := os.Getenv("STASH_CACHE_QUOTA_MB"); quota != "" {
		n, err := strconv.ParseInt(quota, 10, 64)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid STASH_CACHE_QUOTA_MB %q", quota)
		}
		cfg.Archive.QuotaMB = n
	}
	if hosts := os.Getenv("STASH_SESSION_ALLOWLIST"); hosts != "" {
		cfg.Canonical.SessionAllowlist = splitList(hosts)
	}
	if hints := os.Getenv("STASH_MODEL_HINTS"); hints != "" {
		cfg.Sync.ModelHints = splitList(hints)
	}

	if err := ensureDirectories(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// ensureDirectories creates required directories if they don't exist.
func ensureDirectories(cfg *Config) error {
	dirs := []string{
		cfg.BaseDir,
		cfg.Archive.Dir,
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
