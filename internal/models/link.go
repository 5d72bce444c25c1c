// Package models defines the core data structures for Stash.
package models

import (
	"time"

	"gorm.io/gorm"
)

// LinkStatus tracks where a link is in its sync lifecycle.
type LinkStatus string

const (
	// StatusQueued means the link is saved locally and waiting for push.
	StatusQueued LinkStatus = "queued"
	// StatusSyncing means an outbound push for the link is in flight.
	StatusSyncing LinkStatus = "syncing"
	// StatusSynced means the server has acknowledged the link.
	StatusSynced LinkStatus = "synced"
	// StatusFailed means push retries are exhausted; requires manual retry.
	StatusFailed LinkStatus = "failed"
)

// MaxPushAttempts is the number of consecutive push failures tolerated
// before a link flips from queued to failed.
const MaxPushAttempts = 5

// Link represents a saved URL and its processing/sync state.
//
// LocalID is the merge anchor before a server identity exists; once
// ServerID is set it becomes the primary matching key for inbound merges.
type Link struct {
	LocalID string `gorm:"primaryKey;size:36" json:"local_id"`

	// URLs
	OriginalURL  string `gorm:"size:2048" json:"original_url"`
	CanonicalURL string `gorm:"size:2048;index" json:"canonical_url"`

	// Server identity, absent until first successful push.
	ServerID *string `gorm:"size:64;index" json:"server_id,omitempty"`

	// Sync state
	Status    LinkStatus `gorm:"size:20;index;default:queued" json:"status"`
	Attempts  int        `gorm:"default:0" json:"attempts"`
	LastError string     `gorm:"size:1000" json:"last_error,omitempty"`

	// Save bookkeeping
	SaveCount   int       `gorm:"default:1" json:"save_count"`
	LastSavedAt time.Time `json:"last_saved_at"`

	// Share-intake context, forwarded as push payload hints.
	SharedText string `gorm:"size:2048" json:"shared_text,omitempty"`
	SourceApp  string `gorm:"size:100" json:"source_app,omitempty"`

	// Server-enriched content. Client-set values survive duplicate saves
	// but are overwritten unconditionally by inbound merges.
	Title        string `gorm:"size:500" json:"title,omitempty"`
	Snippet      string `gorm:"size:1000" json:"snippet,omitempty"`
	SummaryShort string `gorm:"size:1000" json:"summary_short,omitempty"`
	SummaryLong  string `gorm:"type:text" json:"summary_long,omitempty"`
	Lang         string `gorm:"size:10" json:"lang,omitempty"`

	Tags []Tag `gorm:"many2many:link_tags" json:"tags"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for GORM.
func (Link) TableName() string {
	return "links"
}

// RetriesExhausted reports whether the link has failed more times than
// the outbound phase will retry automatically.
func (l *Link) RetriesExhausted() bool {
	return l.Attempts > MaxPushAttempts
}

// NeedsRetryNotice reports whether the link should be surfaced to the
// user as "will retry automatically".
func (l *Link) NeedsRetryNotice() bool {
	return l.Status == StatusQueued && l.Attempts > 0
}

// LinkStats provides aggregate counts for the info command.
type LinkStats struct {
	TotalLinks     int64     `json:"total_links"`
	QueuedLinks    int64     `json:"queued_links"`
	SyncedLinks    int64     `json:"synced_links"`
	FailedLinks    int64     `json:"failed_links"`
	TotalTags      int64     `json:"total_tags"`
	CacheSizeBytes int64     `json:"cache_size_bytes"`
	LastUpdated    time.Time `json:"last_updated"`
}
