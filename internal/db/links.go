package db

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/asteroid-belt/stash/internal/models"
)

// SearchResult wraps a link with its full-text search rank.
type SearchResult struct {
	models.Link
	Rank float64 `gorm:"column:rank"`
}

// CreateLink creates a new link row.
func (db *DB) CreateLink(link *models.Link) error {
	if link.LastSavedAt.IsZero() {
		link.LastSavedAt = time.Now()
	}
	return db.Create(link).Error
}

// SaveLink persists all fields of an existing link.
func (db *DB) SaveLink(link *models.Link) error {
	return db.Save(link).Error
}

// SaveLinks persists a batch of links in one transaction. Used by the
// sync engine to commit a whole phase at once.
func (db *DB) SaveLinks(links []*models.Link) error {
	if len(links) == 0 {
		return nil
	}
	return db.Transaction(func(tx *DB) error {
		for _, link := range links {
			if err := tx.Save(link).Error; err != nil {
				return fmt.Errorf("save link %s: %w", link.LocalID, err)
			}
		}
		return nil
	})
}

// GetLink retrieves a link by local ID with its tags.
func (db *DB) GetLink(localID string) (*models.Link, error) {
	var link models.Link
	err := db.Preload("Tags").First(&link, "local_id = ?", localID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &link, nil
}

// GetLinkByServerID retrieves a link by its server identity.
func (db *DB) GetLinkByServerID(serverID string) (*models.Link, error) {
	var link models.Link
	err := db.Preload("Tags").First(&link, "server_id = ?", serverID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &link, nil
}

// GetLinkByCanonicalURL retrieves the non-deleted link for a canonical URL.
func (db *DB) GetLinkByCanonicalURL(canonicalURL string) (*models.Link, error) {
	var link models.Link
	err := db.Preload("Tags").First(&link, "canonical_url = ?", canonicalURL).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &link, nil
}

// ListLinks returns all links ordered by last save time, newest first.
func (db *DB) ListLinks() ([]models.Link, error) {
	var links []models.Link
	err := db.Preload("Tags").Order("last_saved_at DESC").Find(&links).Error
	return links, err
}

// ListLinksByStatus returns all links with the given status, oldest first
// so the outbound phase pushes in save order.
func (db *DB) ListLinksByStatus(status models.LinkStatus) ([]models.Link, error) {
	var links []models.Link
	err := db.Preload("Tags").
		Where("status = ?", status).
		Order("created_at ASC").
		Find(&links).Error
	return links, err
}

// MarkLinksSyncing flips the given links to the transient syncing
// status so concurrent readers can see a push is in flight.
func (db *DB) MarkLinksSyncing(localIDs []string) error {
	if len(localIDs) == 0 {
		return nil
	}
	return db.Model(&models.Link{}).
		Where("local_id IN ?", localIDs).
		Update("status", models.StatusSyncing).Error
}

// RequeueSyncingLinks returns any links stranded in syncing (for
// example by a crash mid-pass) to the queue. Returns the number moved.
func (db *DB) RequeueSyncingLinks() (int64, error) {
	result := db.Model(&models.Link{}).
		Where("status = ?", models.StatusSyncing).
		Update("status", models.StatusQueued)
	return result.RowsAffected, result.Error
}

// RecordSave implements the duplicate-save path: at most one non-deleted
// row exists per canonical URL. A duplicate share increments SaveCount
// and refreshes LastSavedAt on the existing row without regressing its
// status; non-empty local Title/Snippet are preserved. Returns the row
// and whether it was newly created.
func (db *DB) RecordSave(link *models.Link) (*models.Link, bool, error) {
	existing, err := db.GetLinkByCanonicalURL(link.CanonicalURL)
	if err != nil {
		return nil, false, fmt.Errorf("lookup canonical url: %w", err)
	}

	if existing == nil {
		if err := db.CreateLink(link); err != nil {
			return nil, false, fmt.Errorf("create link: %w", err)
		}
		return link, true, nil
	}

	now := time.Now()
	existing.SaveCount++
	existing.LastSavedAt = now
	if existing.Title == "" {
		existing.Title = link.Title
	}
	if existing.Snippet == "" {
		existing.Snippet = link.Snippet
	}
	if err := db.SaveLink(existing); err != nil {
		return nil, false, fmt.Errorf("update duplicate save: %w", err)
	}
	return existing, false, nil
}

// ResetFailedLink flips a failed link back to queued with attempts reset.
// This is the external retry action; the next sync pass picks it up.
func (db *DB) ResetFailedLink(localID string) error {
	result := db.Model(&models.Link{}).
		Where("local_id = ? AND status = ?", localID, models.StatusFailed).
		Updates(map[string]interface{}{
			"status":     models.StatusQueued,
			"attempts":   0,
			"last_error": "",
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("no failed link with id %s", localID)
	}
	return nil
}

// ResetAllFailedLinks requeues every failed link. Returns the number of
// links reset.
func (db *DB) ResetAllFailedLinks() (int64, error) {
	result := db.Model(&models.Link{}).
		Where("status = ?", models.StatusFailed).
		Updates(map[string]interface{}{
			"status":     models.StatusQueued,
			"attempts":   0,
			"last_error": "",
		})
	return result.RowsAffected, result.Error
}

// UpsertLinkWithTags persists a link and replaces its tag set in one
// transaction. Tags are matched by exact name; missing tags are created,
// and per-tag counts are maintained across the replacement.
func (db *DB) UpsertLinkWithTags(link *models.Link, tags []models.Tag) error {
	return db.Transaction(func(tx *DB) error {
		// Snapshot the current tag set for count bookkeeping
		var existing models.Link
		linkExists := tx.Preload("Tags").First(&existing, "local_id = ?", link.LocalID).Error == nil

		oldTagIDs := make(map[string]bool)
		if linkExists {
			for _, oldTag := range existing.Tags {
				oldTagIDs[oldTag.ID] = true
			}
		}

		if err := tx.Save(link).Error; err != nil {
			return fmt.Errorf("upsert link: %w", err)
		}

		newTagIDs := make(map[string]bool)

		for i := range tags {
			tag := &tags[i]
			newTagIDs[tag.ID] = true

			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoUpdates: clause.AssignmentColumns([]string{"name", "confidence"}),
			}).Create(tag).Error; err != nil {
				return fmt.Errorf("upsert tag %s: %w", tag.Name, err)
			}

			if !oldTagIDs[tag.ID] {
				if err := tx.Model(&models.Tag{}).Where("id = ?", tag.ID).
					Update("count", gorm.Expr("count + 1")).Error; err != nil {
					return fmt.Errorf("increment tag count: %w", err)
				}
			}
		}

		if linkExists {
			for tagID := range oldTagIDs {
				if !newTagIDs[tagID] {
					if err := tx.Model(&models.Tag{}).Where("id = ?", tagID).
						Update("count", gorm.Expr("CASE WHEN count > 0 THEN count - 1 ELSE 0 END")).Error; err != nil {
						return fmt.Errorf("decrement tag count: %w", err)
					}
				}
			}
		}

		if err := tx.Model(link).Association("Tags").Replace(tags); err != nil {
			return fmt.Errorf("replace tags: %w", err)
		}

		return nil
	})
}

// SearchLinks performs full-text search over enriched link content.
func (db *DB) SearchLinks(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 50
	}
	var results []SearchResult
	err := db.Raw(`
		SELECT links.*, links_fts.rank AS rank
		FROM links_fts
		JOIN links ON links.rowid = links_fts.rowid
		WHERE links_fts MATCH ? AND links.deleted_at IS NULL
		ORDER BY rank
		LIMIT ?
	`, query, limit).Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("search links: %w", err)
	}
	return results, nil
}
