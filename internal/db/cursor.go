package db

import (
	"time"

	"gorm.io/gorm"

	"github.com/asteroid-belt/stash/internal/models"
)

// GetSyncCursor fetches the singleton cursor row, creating it if absent.
func (db *DB) GetSyncCursor() (*models.SyncCursor, error) {
	var cursor models.SyncCursor
	err := db.First(&cursor, "id = ?", models.SyncCursorID).Error
	if err == gorm.ErrRecordNotFound {
		cursor = models.SyncCursor{ID: models.SyncCursorID}
		if err := db.Create(&cursor).Error; err != nil {
			return nil, err
		}
		return &cursor, nil
	}
	if err != nil {
		return nil, err
	}
	return &cursor, nil
}

// AdvanceSyncCursor records the server-supplied continuation token and
// stamps the time of the completed pull. Called only after a delta page
// has been merged and persisted.
func (db *DB) AdvanceSyncCursor(next string, at time.Time) error {
	return db.Model(&models.SyncCursor{}).
		Where("id = ?", models.SyncCursorID).
		Updates(map[string]interface{}{
			"last_updated_cursor": next,
			"last_full_sync_at":   at,
		}).Error
}
