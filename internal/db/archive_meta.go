package db

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/asteroid-belt/stash/internal/models"
)

// GetArchiveMeta retrieves the sidecar record for a cached blob.
func (db *DB) GetArchiveMeta(id string) (*models.ArchiveMeta, error) {
	var meta models.ArchiveMeta
	err := db.First(&meta, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &meta, nil
}

// UpsertArchiveMeta creates or replaces the sidecar record for a blob.
func (db *DB) UpsertArchiveMeta(meta *models.ArchiveMeta) error {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"e_tag", "size_bytes", "last_accessed", "updated_at"}),
	}).Create(meta).Error
}

// TouchArchiveMeta updates only the access time, so eviction ordering
// reflects actual usage rather than download time.
func (db *DB) TouchArchiveMeta(id string, at time.Time) error {
	return db.Model(&models.ArchiveMeta{}).
		Where("id = ?", id).
		Update("last_accessed", at).Error
}

// DeleteArchiveMeta removes the sidecar record for a blob.
func (db *DB) DeleteArchiveMeta(id string) error {
	return db.Delete(&models.ArchiveMeta{}, "id = ?", id).Error
}

// ListArchiveMetasByAge returns all sidecar records ordered oldest
// access first, with ID as a stable tiebreak.
func (db *DB) ListArchiveMetasByAge() ([]models.ArchiveMeta, error) {
	var metas []models.ArchiveMeta
	err := db.Order("last_accessed ASC, id ASC").Find(&metas).Error
	return metas, err
}

// TotalArchiveBytes sums the recorded sizes of all cached blobs.
func (db *DB) TotalArchiveBytes() (int64, error) {
	var total *int64
	err := db.Model(&models.ArchiveMeta{}).
		Select("COALESCE(SUM(size_bytes), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	if total == nil {
		return 0, nil
	}
	return *total, nil
}
