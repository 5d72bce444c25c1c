package db

import (
	"gorm.io/gorm"

	"github.com/asteroid-belt/stash/internal/hash"
	"github.com/asteroid-belt/stash/internal/models"
)

// GetTagByName retrieves a tag by its exact (case-sensitive) name.
func (db *DB) GetTagByName(name string) (*models.Tag, error) {
	var tag models.Tag
	err := db.First(&tag, "name = ?", name).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &tag, nil
}

// FindOrCreateTag returns the existing tag with the given name or
// creates one lazily. IDs are derived from the name so that repeated
// creation attempts converge on the same row.
func (db *DB) FindOrCreateTag(name string, confidence float64) (*models.Tag, error) {
	existing, err := db.GetTagByName(name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	tag := models.Tag{
		ID:         hash.TruncatedSHA256(name),
		Name:       name,
		Confidence: confidence,
	}
	if err := db.Create(&tag).Error; err != nil {
		return nil, err
	}
	return &tag, nil
}

// ListTags returns all tags ordered by usage.
func (db *DB) ListTags() ([]models.Tag, error) {
	var tags []models.Tag
	err := db.Order("count DESC, name ASC").Find(&tags).Error
	return tags, err
}

// GetTagsForLink returns all tags for a link.
func (db *DB) GetTagsForLink(localID string) ([]models.Tag, error) {
	var tags []models.Tag
	err := db.Joins("JOIN link_tags lt ON tags.id = lt.tag_id").
		Where("lt.link_local_id = ?", localID).
		Find(&tags).Error
	return tags, err
}

// UpdateTagCounts recalculates tag counts from link associations.
func (db *DB) UpdateTagCounts() error {
	return db.Exec(`
		UPDATE tags SET count = (
			SELECT COUNT(*) FROM link_tags WHERE link_tags.tag_id = tags.id
		)
	`).Error
}

// DeleteUnusedTags removes tags with no link associations.
func (db *DB) DeleteUnusedTags() error {
	return db.Where("count = 0").Delete(&models.Tag{}).Error
}
