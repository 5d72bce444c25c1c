// Package archive maintains the disk cache of downloaded page archives.
//
// Blobs are stored content-addressed under one cache directory with a
// sidecar ArchiveMeta row per blob. Downloads are validated with ETags,
// and total disk usage is held under a configurable quota by LRU
// eviction. The quota is advisory storage pressure control: a download
// that overshoots succeeds, and the next eviction pass reclaims space.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/asteroid-belt/stash/internal/api"
	"github.com/asteroid-belt/stash/internal/db"
	"github.com/asteroid-belt/stash/internal/hash"
	"github.com/asteroid-belt/stash/internal/log"
	"github.com/asteroid-belt/stash/internal/models"
)

// ErrNotCached is returned when the server reports the content
// unchanged but no usable local copy exists.
var ErrNotCached = errors.New("archive: content not cached locally")

// DefaultQuotaMB bounds the archive cache when no quota is configured.
const DefaultQuotaMB int64 = 512

// blobExt is the filename extension for cached archive blobs.
const blobExt = ".blob"

// Config holds archive cache settings.
type Config struct {
	// Dir is the cache directory; exclusively owned by the manager.
	Dir string
	// QuotaMB bounds total cached bytes for the maintenance pass.
	QuotaMB int64
	// HTTPClient performs archive downloads; it owns request timeouts.
	HTTPClient *http.Client
}

// Result describes the outcome of a successful DownloadIfNeeded call.
type Result struct {
	// Hit is true when no download was needed.
	Hit       bool
	ETag      string
	SizeBytes int64
}

// Manager owns the archive cache directory. All mutation goes through
// one internal mutex so concurrent downloads and eviction passes never
// race on the same files.
type Manager struct {
	store      *db.DB
	dir        string
	quotaMB    int64
	httpClient *http.Client
	tokens     api.TokenProvider

	mu sync.Mutex
}

// NewManager creates an archive cache manager rooted at cfg.Dir.
// The token provider may be nil for unauthenticated downloads.
func NewManager(store *db.DB, cfg Config, tokens api.TokenProvider) (*Manager, error) {
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: api.DefaultRequestTimeout}
	}

	quota := cfg.QuotaMB
	if quota <= 0 {
		quota = DefaultQuotaMB
	}

	return &Manager{
		store:      store,
		dir:        cfg.Dir,
		quotaMB:    quota,
		httpClient: httpClient,
		tokens:     tokens,
	}, nil
}

// QuotaMB returns the configured cache quota.
func (m *Manager) QuotaMB() int64 {
	return m.quotaMB
}

// blobPath maps an archive ID to its on-disk location.
func (m *Manager) blobPath(id string) string {
	return filepath.Join(m.dir, hash.TruncatedSHA256(id)+blobExt)
}

// DownloadIfNeeded ensures a local copy of the archive identified by id.
// A matching ETag with an existing blob short-circuits without any
// network call. Otherwise a conditional GET is issued; a 200 atomically
// replaces blob and sidecar, and any failure leaves the existing cache
// entry untouched.
func (m *Manager) DownloadIfNeeded(ctx context.Context, id, etag, downloadURL string) (*Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	path := m.blobPath(id)

	meta, err := m.store.GetArchiveMeta(id)
	if err != nil {
		return nil, fmt.Errorf("load archive meta: %w", err)
	}

	if meta != nil && meta.ETag == etag && etag != "" && fileExists(path) {
		if err := m.store.TouchArchiveMeta(id, time.Now()); err != nil {
			return nil, fmt.Errorf("touch archive meta: %w", err)
		}
		return &Result{Hit: true, ETag: meta.ETag, SizeBytes: meta.SizeBytes}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	if m.tokens != nil {
		if token := m.tokens.CurrentAccessToken(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download archive %s: %w", id, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
		return m.replaceBlob(id, path, etag, resp)
	case http.StatusNotModified:
		// Content unchanged server-side; usable only if a copy exists.
		if meta == nil || !fileExists(path) {
			return nil, ErrNotCached
		}
		meta.ETag = etag
		meta.LastAccessed = time.Now()
		if err := m.store.UpsertArchiveMeta(meta); err != nil {
			return nil, fmt.Errorf("refresh archive meta: %w", err)
		}
		return &Result{Hit: true, ETag: meta.ETag, SizeBytes: meta.SizeBytes}, nil
	default:
		return nil, fmt.Errorf("download archive %s: unexpected status %d", id, resp.StatusCode)
	}
}

// replaceBlob writes the response body to a temp file and renames it
// over the blob path, then replaces the sidecar. A failure at any step
// leaves the previous blob and sidecar in place.
func (m *Manager) replaceBlob(id, path, requestETag string, resp *http.Response) (*Result, error) {
	tmp, err := os.CreateTemp(m.dir, "download-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	size, err := io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("write archive body: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("move archive into place: %w", err)
	}

	newETag := resp.Header.Get("ETag")
	if newETag == "" {
		newETag = requestETag
	}

	meta := &models.ArchiveMeta{
		ID:           id,
		ETag:         newETag,
		SizeBytes:    size,
		LastAccessed: time.Now(),
	}
	if err := m.store.UpsertArchiveMeta(meta); err != nil {
		return nil, fmt.Errorf("save archive meta: %w", err)
	}

	return &Result{Hit: false, ETag: newETag, SizeBytes: size}, nil
}

// Touch updates the access time of a cached entry so eviction ordering
// reflects actual usage. Unknown IDs are a no-op.
func (m *Manager) Touch(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.TouchArchiveMeta(id, time.Now())
}

// LocalBlobPath returns the on-disk path of the cached archive, or nil
// when no usable copy exists. Reads count as usage for eviction.
func (m *Manager) LocalBlobPath(id string) *string {
	m.mu.Lock()
	defer m.mu.Unlock()

	meta, err := m.store.GetArchiveMeta(id)
	if err != nil || meta == nil {
		return nil
	}
	path := m.blobPath(id)
	if !fileExists(path) {
		return nil
	}
	_ = m.store.TouchArchiveMeta(id, time.Now())
	return &path
}

// TotalCacheSizeBytes returns the recorded size of all cached blobs.
func (m *Manager) TotalCacheSizeBytes() (int64, error) {
	return m.store.TotalArchiveBytes()
}

// EnforceQuota deletes least-recently-accessed entries until total
// cached bytes fit within quotaMB. Entries with identical access times
// evict in sidecar-ID order. Returns the number of evicted entries.
func (m *Manager) EnforceQuota(quotaMB int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enforceQuotaBytes(quotaMB * 1024 * 1024)
}

// enforceQuotaBytes is the byte-granular eviction pass. Callers hold mu.
func (m *Manager) enforceQuotaBytes(quotaBytes int64) (int, error) {
	total, err := m.store.TotalArchiveBytes()
	if err != nil {
		return 0, fmt.Errorf("total cache size: %w", err)
	}
	if total <= quotaBytes {
		return 0, nil
	}

	metas, err := m.store.ListArchiveMetasByAge()
	if err != nil {
		return 0, fmt.Errorf("list cache entries: %w", err)
	}

	evicted := 0
	for _, meta := range metas {
		if total <= quotaBytes {
			break
		}

		// Blob first: a sidecar without a blob is never reported as
		// cached, so a crash between the two steps is harmless.
		path := m.blobPath(meta.ID)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return evicted, fmt.Errorf("remove blob %s: %w", meta.ID, err)
		}
		if err := m.store.DeleteArchiveMeta(meta.ID); err != nil {
			return evicted, fmt.Errorf("remove archive meta %s: %w", meta.ID, err)
		}

		total -= meta.SizeBytes
		evicted++
	}

	if evicted > 0 {
		log.Printf("archive cache: evicted %d entries, %d bytes now cached\n", evicted, total)
	}
	return evicted, nil
}

// EnforceConfiguredQuota runs EnforceQuota with the configured limit.
func (m *Manager) EnforceConfiguredQuota() (int, error) {
	return m.EnforceQuota(m.quotaMB)
}

// PrefetchItem names one archive the sync engine wants cached.
type PrefetchItem struct {
	ID          string
	DownloadURL string
}

// PrefetchAndEvict is the cache-maintenance pass run after a sync.
// Each item is downloaded (or revalidated against its stored ETag);
// per-item failures are logged and never stop the pass. The configured
// quota is enforced afterwards. Returns downloads performed and entries
// evicted.
func (m *Manager) PrefetchAndEvict(ctx context.Context, items []PrefetchItem) (int, int, error) {
	downloaded := 0
	for _, item := range items {
		etag := ""
		if meta, err := m.store.GetArchiveMeta(item.ID); err == nil && meta != nil {
			etag = meta.ETag
		}

		result, err := m.DownloadIfNeeded(ctx, item.ID, etag, item.DownloadURL)
		if err != nil {
			log.Errorf("archive prefetch %s: %v", item.ID, err)
			continue
		}
		if !result.Hit {
			downloaded++
		}
	}

	evicted, err := m.EnforceConfiguredQuota()
	if err != nil {
		return downloaded, 0, fmt.Errorf("enforce quota: %w", err)
	}
	return downloaded, evicted, nil
}

// Clear removes every cached blob and sidecar record. Returns the
// number of entries removed.
func (m *Manager) Clear() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	metas, err := m.store.ListArchiveMetasByAge()
	if err != nil {
		return 0, fmt.Errorf("list cache entries: %w", err)
	}
	removed := 0
	for _, meta := range metas {
		if err := os.Remove(m.blobPath(meta.ID)); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("remove blob %s: %w", meta.ID, err)
		}
		if err := m.store.DeleteArchiveMeta(meta.ID); err != nil {
			return removed, fmt.Errorf("remove archive meta %s: %w", meta.ID, err)
		}
		removed++
	}
	return removed, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
