// Package db provides a GORM-based database layer for Stash.
// It uses the pure-Go SQLite driver with FTS5 support.
package db

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/asteroid-belt/stash/internal/models"
)

// DB wraps the GORM database connection with Stash-specific operations.
type DB struct {
	*gorm.DB
	path string
}

// Config holds database configuration options.
type Config struct {
	Path        string
	Debug       bool
	MaxIdleConn int
	MaxOpenConn int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(path string) Config {
	return Config{
		Path:        path,
		Debug:       false,
		MaxIdleConn: 1,
		MaxOpenConn: 1,
	}
}

// New creates a new database connection and runs migrations.
func New(cfg Config) (*DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Configure GORM logger
	logLevel := logger.Silent
	if cfg.Debug {
		logLevel = logger.Info
	}

	// Build DSN with DELETE journal mode for simpler transaction handling
	// (WAL mode has visibility issues with the pure-Go SQLite driver)
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(DELETE)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)", cfg.Path)

	// Open database with pure-Go SQLite driver (FTS5 enabled by default)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 logger.Default.LogMode(logLevel),
		SkipDefaultTransaction: true, // Better performance for read operations
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConn)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConn)
	sqlDB.SetConnMaxLifetime(time.Hour)

	wrapped := &DB{DB: db, path: cfg.Path}

	// Run auto-migrations
	if err := wrapped.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	// Create FTS5 virtual table and triggers
	if err := wrapped.setupFTS(); err != nil {
		return nil, fmt.Errorf("setup FTS: %w", err)
	}

	// Seed the singleton sync cursor
	if err := wrapped.seedSyncCursor(); err != nil {
		return nil, fmt.Errorf("seed sync cursor: %w", err)
	}

	return wrapped, nil
}

// migrate runs GORM auto-migrations for all models.
func (db *DB) migrate() error {
	return db.AutoMigrate(
		&models.Tag{},
		&models.Link{},
		&models.SyncCursor{},
		&models.ArchiveMeta{},
	)
}

// setupFTS creates the FTS5 virtual table and triggers for full-text search.
func (db *DB) setupFTS() error {
	// Create FTS5 virtual table if it doesn't exist
	ftsSQL := `
		CREATE VIRTUAL TABLE IF NOT EXISTS links_fts USING fts5(
			title,
			snippet,
			summary_short,
			summary_long,
			canonical_url,
			content='links',
			content_rowid='rowid',
			tokenize='porter unicode61'
		);
	`
	if err := db.Exec(ftsSQL).Error; err != nil {
		return fmt.Errorf("create FTS table: %w", err)
	}

	// Create triggers to keep FTS in sync
	triggers := []string{
		// After INSERT
		`CREATE TRIGGER IF NOT EXISTS links_ai AFTER INSERT ON links BEGIN
			INSERT INTO links_fts(rowid, title, snippet, summary_short, summary_long, canonical_url)
			VALUES (NEW.rowid, NEW.title, NEW.snippet, NEW.summary_short, NEW.summary_long, NEW.canonical_url);
		END;`,

		// After DELETE
		`CREATE TRIGGER IF NOT EXISTS links_ad AFTER DELETE ON links BEGIN
			INSERT INTO links_fts(links_fts, rowid, title, snippet, summary_short, summary_long, canonical_url)
			VALUES ('delete', OLD.rowid, OLD.title, OLD.snippet, OLD.summary_short, OLD.summary_long, OLD.canonical_url);
		END;`,

		// After UPDATE
		`CREATE TRIGGER IF NOT EXISTS links_au AFTER UPDATE ON links BEGIN
			INSERT INTO links_fts(links_fts, rowid, title, snippet, summary_short, summary_long, canonical_url)
			VALUES ('delete', OLD.rowid, OLD.title, OLD.snippet, OLD.summary_short, OLD.summary_long, OLD.canonical_url);
			INSERT INTO links_fts(rowid, title, snippet, summary_short, summary_long, canonical_url)
			VALUES (NEW.rowid, NEW.title, NEW.snippet, NEW.summary_short, NEW.summary_long, NEW.canonical_url);
		END;`,
	}

	for _, trigger := range triggers {
		if err := db.Exec(trigger).Error; err != nil {
			return fmt.Errorf("create trigger: %w", err)
		}
	}

	return nil
}

// seedSyncCursor inserts the singleton cursor row if not present.
func (db *DB) seedSyncCursor() error {
	cursor := models.SyncCursor{ID: models.SyncCursorID}
	result := db.Where("id = ?", models.SyncCursorID).FirstOrCreate(&cursor)
	return result.Error
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// Close closes the database connection.
func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Transaction executes a function within a database transaction.
// The callback receives a *DB wrapper that uses the transaction.
// If the callback returns an error, the transaction is rolled back.
// If the callback returns nil, the transaction is committed.
func (d *DB) Transaction(fc func(tx *DB) error) error {
	return d.DB.Transaction(func(tx *gorm.DB) error {
		wrappedTx := &DB{DB: tx, path: d.path}
		return fc(wrappedTx)
	})
}

// GetStats returns aggregate statistics about the database.
func (db *DB) GetStats() (*models.LinkStats, error) {
	var stats models.LinkStats

	if err := db.Model(&models.Link{}).Count(&stats.TotalLinks).Error; err != nil {
		return nil, fmt.Errorf("count links: %w", err)
	}

	counts := map[models.LinkStatus]*int64{
		models.StatusQueued: &stats.QueuedLinks,
		models.StatusSynced: &stats.SyncedLinks,
		models.StatusFailed: &stats.FailedLinks,
	}
	for status, dest := range counts {
		if err := db.Model(&models.Link{}).Where("status = ?", status).Count(dest).Error; err != nil {
			return nil, fmt.Errorf("count %s links: %w", status, err)
		}
	}

	if err := db.Model(&models.Tag{}).Count(&stats.TotalTags).Error; err != nil {
		return nil, fmt.Errorf("count tags: %w", err)
	}

	var cacheSize *int64
	if err := db.Model(&models.ArchiveMeta{}).Select("COALESCE(SUM(size_bytes), 0)").Scan(&cacheSize).Error; err != nil {
		return nil, fmt.Errorf("sum cache size: %w", err)
	}
	if cacheSize != nil {
		stats.CacheSizeBytes = *cacheSize
	}

	stats.LastUpdated = time.Now()

	return &stats, nil
}
