package models

import "time"

// ArchiveMeta is the sidecar record for one cached archive blob.
// The blob bytes live on disk under the archive cache directory; the
// meta row carries the validation and eviction state.
type ArchiveMeta struct {
	ID           string    `gorm:"primaryKey;size:64" json:"id"`
	ETag         string    `gorm:"size:200" json:"etag"`
	SizeBytes    int64     `gorm:"default:0" json:"size_bytes"`
	LastAccessed time.Time `gorm:"index" json:"last_accessed"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (ArchiveMeta) TableName() string {
	return "archive_metas"
}
