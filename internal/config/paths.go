package config

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// Paths contains commonly used file paths.
type Paths struct {
	Database string // Main SQLite database
	Archive  string // Archive blob cache directory
	Logs     string // Log directory
}

// GetPaths returns all commonly used paths based on config.
func GetPaths(cfg *Config) Paths {
	return Paths{
		Database: filepath.Join(cfg.BaseDir, "stash.db"),
		Archive:  cfg.Archive.Dir,
		Logs:     filepath.Join(cfg.BaseDir, "logs"),
	}
}

// DefaultBaseDir returns the default base directory (~/.stash).
func DefaultBaseDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".stash"
	}
	return filepath.Join(home, ".stash")
}

// DefaultCacheDir returns the archive cache directory under the
// platform cache home.
func DefaultCacheDir() string {
	return filepath.Join(xdg.CacheHome, "stash", "archive")
}
