package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useTempDirs(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "https://api.stash.page", cfg.API.BaseURL)
	assert.Empty(t, cfg.API.Token)
	assert.Equal(t, int64(512), cfg.Archive.QuotaMB)
	assert.Equal(t, 100, cfg.Sync.PageSize)
	assert.Empty(t, cfg.Canonical.SessionAllowlist)
}

func TestLoadFromEnv(t *testing.T) {
	useTempDirs(t)
	t.Setenv("STASH_API_BASE", "https://staging.stash.page")
	t.Setenv("STASH_TOKEN", "tok-123")
	t.Setenv("STASH_CACHE_QUOTA_MB", "64")
	t.Setenv("STASH_SESSION_ALLOWLIST", "app.example.com, intranet.local")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://staging.stash.page", cfg.API.BaseURL)
	assert.Equal(t, "tok-123", cfg.API.Token)
	assert.Equal(t, int64(64), cfg.Archive.QuotaMB)
	assert.Equal(t, []string{"app.example.com", "intranet.local"}, cfg.Canonical.SessionAllowlist)
}

func TestLoadInvalidQuota(t *testing.T) {
	useTempDirs(t)
	t.Setenv("STASH_CACHE_QUOTA_MB", "not-a-number")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadCreatesDirectories(t *testing.T) {
	useTempDirs(t)
	base := filepath.Join(t.TempDir(), "stash-home")
	t.Setenv("HOME", base)

	cfg, err := Load()
	require.NoError(t, err)

	info, err := os.Stat(cfg.BaseDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestGetPaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BaseDir = "/tmp/stash-test"

	paths := GetPaths(cfg)
	assert.Equal(t, "/tmp/stash-test/stash.db", paths.Database)
	assert.Equal(t, cfg.Archive.Dir, paths.Archive)
}
