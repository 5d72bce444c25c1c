package models

import "time"

// SyncCursorID is the fixed identity of the singleton cursor row.
const SyncCursorID = "default"

// SyncCursor is the singleton delta-continuation state for the sync
// engine. Exactly one row exists; it is created on first use.
type SyncCursor struct {
	ID                string     `gorm:"primaryKey;size:20" json:"id"`
	LastUpdatedCursor string     `gorm:"size:500" json:"last_updated_cursor"`
	LastFullSyncAt    *time.Time `json:"last_full_sync_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (SyncCursor) TableName() string {
	return "sync_cursors"
}
