// Package syncer reconciles locally queued links with the remote link
// service.
//
// A sync pass pushes every queued link, pulls the inbound delta since
// the stored cursor, merges it into the store, and then hands the
// archive cache manager a prefetch-and-evict pass. Passes are
// single-flight: concurrent triggers coalesce into at most one
// in-flight pass, never two.
package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/asteroid-belt/stash/internal/api"
	"github.com/asteroid-belt/stash/internal/archive"
	"github.com/asteroid-belt/stash/internal/db"
	"github.com/asteroid-belt/stash/internal/hash"
	"github.com/asteroid-belt/stash/internal/log"
	"github.com/asteroid-belt/stash/internal/models"
	"github.com/asteroid-belt/stash/internal/telemetry"
)

// RemoteAPI is the network boundary the engine pushes to and pulls from.
// Implemented by api.Client; faked in tests.
type RemoteAPI interface {
	Push(ctx context.Context, payload api.PushPayload) (*api.PushResult, error)
	PullDelta(ctx context.Context, since string, limit int) (*api.DeltaPage, error)
	ArchiveDownloadURL(serverID string) string
}

// ArchiveCache is the cache-maintenance collaborator. Implemented by
// archive.Manager; may be left nil to disable the maintenance phase.
type ArchiveCache interface {
	PrefetchAndEvict(ctx context.Context, items []archive.PrefetchItem) (int, int, error)
	TotalCacheSizeBytes() (int64, error)
}

// Config holds sync engine settings.
type Config struct {
	// PageSize bounds one inbound delta page.
	PageSize int
	// ModelHints are the user's preferred-model hints forwarded with
	// every push payload.
	ModelHints []string
}

// PassStats summarizes one completed sync pass.
type PassStats struct {
	Reason     string
	Pushed     int
	PushFailed int
	Merged     int
	Created    int
	Downloaded int
	Evicted    int
}

// Engine orchestrates sync passes over the link store.
type Engine struct {
	store     *db.DB
	remote    RemoteAPI
	cache     ArchiveCache
	telemetry telemetry.Client
	cfg       Config

	// slot is the single-flight guard: holding the one token means a
	// pass is in flight. Released on every exit path.
	slot chan struct{}
}

// New creates a sync engine. cache and tc may be nil.
func New(store *db.DB, remote RemoteAPI, cache ArchiveCache, tc telemetry.Client, cfg Config) *Engine {
	if cfg.PageSize <= 0 {
		cfg.PageSize = api.DefaultPageSize
	}
	if tc == nil {
		tc = telemetry.New()
	}
	slot := make(chan struct{}, 1)
	slot <- struct{}{}
	return &Engine{
		store:     store,
		remote:    remote,
		cache:     cache,
		telemetry: tc,
		cfg:       cfg,
		slot:      slot,
	}
}

// tryAcquire claims the single pass slot without blocking.
func (e *Engine) tryAcquire() bool {
	select {
	case <-e.slot:
		return true
	default:
		return false
	}
}

// release returns the pass slot.
func (e *Engine) release() {
	e.slot <- struct{}{}
}

// TriggerSync requests a sync pass and returns immediately. If a pass
// is already in flight the trigger is coalesced into it. Errors inside
// the pass are logged and recorded per link; they never reach the
// caller.
func (e *Engine) TriggerSync(reason string) {
	if !e.tryAcquire() {
		log.Printf("sync: trigger %q coalesced into running pass\n", reason)
		return
	}
	go func() {
		defer e.release()
		e.runPass(context.Background(), reason)
	}()
}

// TriggerBackgroundSync is the entry point for scheduled background
// refreshes. Identical coalescing behavior to TriggerSync.
func (e *Engine) TriggerBackgroundSync() {
	e.TriggerSync("background-task")
}

// RunSyncNow runs a pass and waits for it to finish. If a pass is in
// flight it waits for that pass to release the slot first, so at most
// one pass ever runs at a time. The returned stats and error are for
// diagnostics and tests; the store is the source of truth for outcome.
func (e *Engine) RunSyncNow(ctx context.Context, reason string) (*PassStats, error) {
	select {
	case <-e.slot:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer e.release()
	return e.runPass(ctx, reason)
}

// runPass executes the three phases of one sync pass. Callers hold the
// pass slot.
func (e *Engine) runPass(ctx context.Context, reason string) (*PassStats, error) {
	start := time.Now()
	stats := &PassStats{Reason: reason}
	log.Printf("sync: pass starting (reason=%s)\n", reason)

	var firstErr error

	if err := e.outbound(ctx, stats); err != nil {
		// Phase-level outbound failure (store unavailable); per-item
		// push failures are already absorbed into link rows.
		log.Errorf("sync: outbound phase: %v", err)
		e.telemetry.TrackSyncFailed(reason, "outbound")
		firstErr = fmt.Errorf("outbound phase: %w", err)
	}

	if err := e.inbound(ctx, stats); err != nil {
		// Cursor untouched; the same delta range is retried next pass.
		log.Errorf("sync: inbound phase: %v", err)
		e.telemetry.TrackSyncFailed(reason, "inbound")
		if firstErr == nil {
			firstErr = fmt.Errorf("inbound phase: %w", err)
		}
	}

	e.maintainCache(ctx, stats)

	log.Printf("sync: pass complete (reason=%s): pushed=%d failed=%d merged=%d created=%d downloaded=%d evicted=%d\n",
		reason, stats.Pushed, stats.PushFailed, stats.Merged, stats.Created, stats.Downloaded, stats.Evicted)
	e.telemetry.TrackSyncCompleted(reason, stats.Pushed, stats.PushFailed, stats.Merged, stats.Created,
		time.Since(start).Milliseconds())

	return stats, firstErr
}

// outbound pushes every queued link. A failed push never stops the
// remaining queue; all row mutations are persisted in one batch at the
// end of the phase.
func (e *Engine) outbound(ctx context.Context, stats *PassStats) error {
	// Links stranded in syncing by an interrupted pass go back first.
	if requeued, err := e.store.RequeueSyncingLinks(); err != nil {
		return fmt.Errorf("requeue stuck links: %w", err)
	} else if requeued > 0 {
		log.Printf("sync: requeued %d links stranded mid-push\n", requeued)
	}

	queued, err := e.store.ListLinksByStatus(models.StatusQueued)
	if err != nil {
		return fmt.Errorf("list queued links: %w", err)
	}
	if len(queued) == 0 {
		return nil
	}

	ids := make([]string, len(queued))
	for i := range queued {
		ids[i] = queued[i].LocalID
	}
	if err := e.store.MarkLinksSyncing(ids); err != nil {
		return fmt.Errorf("mark links syncing: %w", err)
	}

	batch := make([]*models.Link, 0, len(queued))
	for i := range queued {
		link := &queued[i]
		batch = append(batch, link)

		result, err := e.remote.Push(ctx, api.PushPayload{
			LocalID:     link.LocalID,
			OriginalURL: link.OriginalURL,
			SharedText:  link.SharedText,
			SourceApp:   link.SourceApp,
			SharedAt:    link.LastSavedAt,
			TitleHint:   link.Title,
			ModelHints:  e.cfg.ModelHints,
		})
		if err != nil {
			link.Attempts++
			link.LastError = err.Error()
			if link.RetriesExhausted() {
				link.Status = models.StatusFailed
			} else {
				link.Status = models.StatusQueued
			}
			stats.PushFailed++
			continue
		}

		serverID := result.ServerID
		link.ServerID = &serverID
		if result.CanonicalURL != "" {
			link.CanonicalURL = result.CanonicalURL
		}
		link.Status = models.StatusSynced
		link.Attempts = 0
		link.LastError = ""
		stats.Pushed++
	}

	if err := e.store.SaveLinks(batch); err != nil {
		return fmt.Errorf("persist outbound batch: %w", err)
	}
	return nil
}

// inbound pulls one delta page and merges it. The page's merges and the
// cursor advance commit together, so a failure anywhere leaves the
// cursor where it was and re-merging the same page later is idempotent.
func (e *Engine) inbound(ctx context.Context, stats *PassStats) error {
	cursor, err := e.store.GetSyncCursor()
	if err != nil {
		return fmt.Errorf("load sync cursor: %w", err)
	}

	page, err := e.remote.PullDelta(ctx, cursor.LastUpdatedCursor, e.cfg.PageSize)
	if err != nil {
		return fmt.Errorf("pull delta: %w", err)
	}

	merged, created := 0, 0
	err = e.store.Transaction(func(tx *db.DB) error {
		for _, rec := range page.Records {
			wasCreated, err := mergeRecord(tx, rec)
			if err != nil {
				return fmt.Errorf("merge record %s: %w", rec.CanonicalURL, err)
			}
			if wasCreated {
				created++
			} else {
				merged++
			}
		}
		return tx.AdvanceSyncCursor(page.NextCursor, time.Now())
	})
	if err != nil {
		return err
	}

	stats.Merged += merged
	stats.Created += created
	return nil
}

// mergeRecord applies one server record to the store. Matching is by
// server ID first, then canonical URL; with no match a new row is
// inserted already synced. Server state is authoritative: enrichment
// fields are overwritten unconditionally and the tag set is replaced.
func mergeRecord(tx *db.DB, rec api.ServerLink) (bool, error) {
	var link *models.Link
	var err error

	if rec.ServerID != "" {
		link, err = tx.GetLinkByServerID(rec.ServerID)
		if err != nil {
			return false, err
		}
	}
	if link == nil {
		link, err = tx.GetLinkByCanonicalURL(rec.CanonicalURL)
		if err != nil {
			return false, err
		}
	}

	created := link == nil
	if created {
		now := time.Now()
		savedAt := rec.SharedAt
		if savedAt.IsZero() {
			savedAt = now
		}
		link = &models.Link{
			LocalID:     uuid.NewString(),
			OriginalURL: rec.OriginalURL,
			LastSavedAt: savedAt,
		}
	}

	if rec.ServerID != "" {
		serverID := rec.ServerID
		link.ServerID = &serverID
	}
	link.CanonicalURL = rec.CanonicalURL
	link.Title = rec.Title
	link.Snippet = rec.Snippet
	link.SummaryShort = rec.SummaryShort
	link.SummaryLong = rec.SummaryLong
	link.Lang = rec.Lang
	link.SaveCount = rec.SaveCount
	link.Status = serverStatus(rec.Status)
	link.Attempts = 0
	link.LastError = ""

	tags := tagSet(rec.Tags)
	if err := tx.UpsertLinkWithTags(link, tags); err != nil {
		return false, err
	}
	return created, nil
}

// serverStatus maps a wire status onto the local state machine.
// Server-origin records never enter the local queue.
func serverStatus(s string) models.LinkStatus {
	switch models.LinkStatus(s) {
	case models.StatusSynced, models.StatusFailed:
		return models.LinkStatus(s)
	default:
		return models.StatusSynced
	}
}

// tagSet builds deduplicated tag rows from a server name list.
// Matching is case-sensitive; IDs derive from the name so repeated
// merges reuse the same rows.
func tagSet(names []string) []models.Tag {
	seen := make(map[string]bool, len(names))
	tags := make([]models.Tag, 0, len(names))
	for _, name := range names {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		tags = append(tags, models.Tag{
			ID:   hash.TruncatedSHA256(name),
			Name: name,
		})
	}
	return tags
}

// maintainCache runs the prefetch-and-evict pass for synced links.
// Failures are logged only; cache state never blocks a sync pass.
func (e *Engine) maintainCache(ctx context.Context, stats *PassStats) {
	if e.cache == nil {
		return
	}

	synced, err := e.store.ListLinksByStatus(models.StatusSynced)
	if err != nil {
		log.Errorf("sync: cache maintenance: list synced links: %v", err)
		return
	}

	var items []archive.PrefetchItem
	for i := range synced {
		if synced[i].ServerID == nil {
			continue
		}
		serverID := *synced[i].ServerID
		items = append(items, archive.PrefetchItem{
			ID:          serverID,
			DownloadURL: e.remote.ArchiveDownloadURL(serverID),
		})
	}

	downloaded, evicted, err := e.cache.PrefetchAndEvict(ctx, items)
	if err != nil {
		log.Errorf("sync: cache maintenance: %v", err)
	}
	stats.Downloaded = downloaded
	stats.Evicted = evicted

	if total, err := e.cache.TotalCacheSizeBytes(); err == nil {
		e.telemetry.TrackCacheMaintenance(downloaded, evicted, total)
	}
}
