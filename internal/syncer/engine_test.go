package syncer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asteroid-belt/stash/internal/api"
	"github.com/asteroid-belt/stash/internal/db"
	"github.com/asteroid-belt/stash/internal/models"
)

func testStore(t *testing.T) *db.DB {
	t.Helper()
	store, err := db.New(db.DefaultConfig(filepath.Join(t.TempDir(), "test.db")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// fakeRemote is a scriptable RemoteAPI.
type fakeRemote struct {
	mu sync.Mutex

	pushResult *api.PushResult
	pushErr    error
	pushCalls  int

	// pushDelay simulates a slow service for concurrency tests.
	pushDelay time.Duration
	// inFlight tracks concurrent outbound phases.
	inFlight    int32
	maxInFlight int32

	page      *api.DeltaPage
	pullErr   error
	pullCalls int
}

func (f *fakeRemote) Push(ctx context.Context, payload api.PushPayload) (*api.PushResult, error) {
	cur := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		max := atomic.LoadInt32(&f.maxInFlight)
		if cur <= max || atomic.CompareAndSwapInt32(&f.maxInFlight, max, cur) {
			break
		}
	}

	if f.pushDelay > 0 {
		time.Sleep(f.pushDelay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushCalls++
	if f.pushErr != nil {
		return nil, f.pushErr
	}
	if f.pushResult != nil {
		return f.pushResult, nil
	}
	return &api.PushResult{ServerID: "srv-" + payload.LocalID}, nil
}

func (f *fakeRemote) PullDelta(ctx context.Context, since string, limit int) (*api.DeltaPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pullCalls++
	if f.pullErr != nil {
		return nil, f.pullErr
	}
	if f.page != nil {
		return f.page, nil
	}
	return &api.DeltaPage{NextCursor: since}, nil
}

func (f *fakeRemote) ArchiveDownloadURL(serverID string) string {
	return "https://stash.test/v1/links/" + serverID + "/archive"
}

func newEngine(store *db.DB, remote RemoteAPI) *Engine {
	return New(store, remote, nil, nil, Config{PageSize: 100})
}

func queueLink(t *testing.T, store *db.DB, url string) *models.Link {
	t.Helper()
	link := &models.Link{
		LocalID:      uuid.NewString(),
		OriginalURL:  url,
		CanonicalURL: url,
		Status:       models.StatusQueued,
		SaveCount:    1,
		LastSavedAt:  time.Now(),
	}
	require.NoError(t, store.CreateLink(link))
	return link
}

func TestOutbound_Success(t *testing.T) {
	store := testStore(t)
	remote := &fakeRemote{pushResult: &api.PushResult{ServerID: "s1", CanonicalURL: "https://x/y"}}
	engine := newEngine(store, remote)

	link := queueLink(t, store, "https://x/y?utm_source=a")

	stats, err := engine.RunSyncNow(context.Background(), "test")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Pushed)

	got, err := store.GetLink(link.LocalID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.StatusSynced, got.Status)
	require.NotNil(t, got.ServerID)
	assert.Equal(t, "s1", *got.ServerID)
	assert.Equal(t, "https://x/y", got.CanonicalURL)
	assert.Empty(t, got.LastError)
	assert.Zero(t, got.Attempts)
}

func TestOutbound_FailureAccumulation(t *testing.T) {
	store := testStore(t)
	remote := &fakeRemote{pushErr: errors.New("service unavailable")}
	engine := newEngine(store, remote)

	link := queueLink(t, store, "https://x/y")

	// Five consecutive failures keep the link queued.
	for i := 0; i < 5; i++ {
		_, _ = engine.RunSyncNow(context.Background(), "test")
	}
	got, err := store.GetLink(link.LocalID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusQueued, got.Status)
	assert.Equal(t, 5, got.Attempts)
	assert.Equal(t, "service unavailable", got.LastError)

	// The sixth consecutive failure exhausts retries.
	_, _ = engine.RunSyncNow(context.Background(), "test")
	got, err = store.GetLink(link.LocalID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, got.Status)
	assert.Equal(t, 6, got.Attempts)

	// Failed links are no longer pushed.
	calls := remote.pushCalls
	_, _ = engine.RunSyncNow(context.Background(), "test")
	assert.Equal(t, calls, remote.pushCalls)
}

func TestOutbound_PerItemIsolation(t *testing.T) {
	store := testStore(t)
	remote := &fakeRemote{}
	engine := newEngine(store, remote)

	bad := queueLink(t, store, "https://bad.example.com/a")
	good := queueLink(t, store, "https://good.example.com/b")

	// Fail only the first push, in creation order bad comes first.
	calls := 0
	scripted := &scriptedRemote{fakeRemote: remote, push: func(payload api.PushPayload) (*api.PushResult, error) {
		calls++
		if payload.OriginalURL == bad.OriginalURL {
			return nil, errors.New("boom")
		}
		return &api.PushResult{ServerID: "srv-good"}, nil
	}}
	engine = newEngine(store, scripted)

	_, err := engine.RunSyncNow(context.Background(), "test")
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "failure of one link must not stop the queue")

	gotBad, _ := store.GetLink(bad.LocalID)
	assert.Equal(t, models.StatusQueued, gotBad.Status)
	assert.Equal(t, 1, gotBad.Attempts)

	gotGood, _ := store.GetLink(good.LocalID)
	assert.Equal(t, models.StatusSynced, gotGood.Status)
}

// scriptedRemote overrides Push with a closure.
type scriptedRemote struct {
	*fakeRemote
	push func(api.PushPayload) (*api.PushResult, error)
}

func (s *scriptedRemote) Push(ctx context.Context, payload api.PushPayload) (*api.PushResult, error) {
	return s.push(payload)
}

func TestInbound_MergeByServerID(t *testing.T) {
	store := testStore(t)

	serverID := "s1"
	link := &models.Link{
		LocalID:      uuid.NewString(),
		OriginalURL:  "https://a/b",
		CanonicalURL: "https://a/b",
		ServerID:     &serverID,
		Status:       models.StatusSynced,
		Title:        "stale title",
		SaveCount:    1,
		LastSavedAt:  time.Now(),
	}
	require.NoError(t, store.CreateLink(link))

	remote := &fakeRemote{page: &api.DeltaPage{
		Records: []api.ServerLink{{
			ServerID:     "s1",
			OriginalURL:  "https://a/b",
			CanonicalURL: "https://a/b",
			Title:        "fresh title",
			SummaryShort: "tl;dr",
			Tags:         []string{"go", "sync", "go"},
			SaveCount:    4,
			Status:       "synced",
		}},
		NextCursor: "cur-2",
	}}
	engine := newEngine(store, remote)

	stats, err := engine.RunSyncNow(context.Background(), "test")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Merged)
	assert.Zero(t, stats.Created)

	// Updated in place, no duplicate row.
	links, err := store.ListLinks()
	require.NoError(t, err)
	require.Len(t, links, 1)

	got := links[0]
	assert.Equal(t, link.LocalID, got.LocalID)
	assert.Equal(t, "fresh title", got.Title)
	assert.Equal(t, "tl;dr", got.SummaryShort)
	assert.Equal(t, 4, got.SaveCount)

	// Tag list deduplicated by name.
	require.Len(t, got.Tags, 2)
	names := []string{got.Tags[0].Name, got.Tags[1].Name}
	assert.ElementsMatch(t, []string{"go", "sync"}, names)
}

func TestInbound_MergeByCanonicalURL(t *testing.T) {
	store := testStore(t)

	// Local row has no server identity yet.
	link := queueLink(t, store, "https://a/b")
	require.NoError(t, store.Model(&models.Link{}).
		Where("local_id = ?", link.LocalID).
		Update("status", models.StatusSynced).Error)

	remote := &fakeRemote{page: &api.DeltaPage{
		Records: []api.ServerLink{{
			ServerID:     "s7",
			OriginalURL:  "https://a/b",
			CanonicalURL: "https://a/b",
			Title:        "adopted",
			SaveCount:    1,
			Status:       "synced",
		}},
	}}
	engine := newEngine(store, remote)

	_, err := engine.RunSyncNow(context.Background(), "test")
	require.NoError(t, err)

	links, err := store.ListLinks()
	require.NoError(t, err)
	require.Len(t, links, 1)
	require.NotNil(t, links[0].ServerID)
	assert.Equal(t, "s7", *links[0].ServerID)
	assert.Equal(t, "adopted", links[0].Title)
}

func TestInbound_CreatesNewRow(t *testing.T) {
	store := testStore(t)

	remote := &fakeRemote{page: &api.DeltaPage{
		Records: []api.ServerLink{{
			ServerID:     "s2",
			OriginalURL:  "https://new.example.com/post",
			CanonicalURL: "https://new.example.com/post",
			Title:        "New",
			Tags:         []string{"reading"},
			SaveCount:    1,
			Status:       "synced",
		}},
		NextCursor: "cur-9",
	}}
	engine := newEngine(store, remote)

	stats, err := engine.RunSyncNow(context.Background(), "test")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Created)

	links, err := store.ListLinks()
	require.NoError(t, err)
	require.Len(t, links, 1)
	// Server-origin rows never enter the local queue.
	assert.Equal(t, models.StatusSynced, links[0].Status)
	assert.NotEmpty(t, links[0].LocalID)
}

func TestInbound_CursorAdvancesOnlyOnSuccess(t *testing.T) {
	store := testStore(t)

	// Failure leaves the cursor untouched.
	remote := &fakeRemote{pullErr: errors.New("network down")}
	engine := newEngine(store, remote)

	_, err := engine.RunSyncNow(context.Background(), "test")
	require.Error(t, err)

	cursor, err := store.GetSyncCursor()
	require.NoError(t, err)
	assert.Empty(t, cursor.LastUpdatedCursor)
	assert.Nil(t, cursor.LastFullSyncAt)

	// Success advances it.
	remote.mu.Lock()
	remote.pullErr = nil
	remote.page = &api.DeltaPage{NextCursor: "cur-42"}
	remote.mu.Unlock()

	_, err = engine.RunSyncNow(context.Background(), "test")
	require.NoError(t, err)

	cursor, err = store.GetSyncCursor()
	require.NoError(t, err)
	assert.Equal(t, "cur-42", cursor.LastUpdatedCursor)
	require.NotNil(t, cursor.LastFullSyncAt)

	// The stored cursor is what the next pull resumes from.
	_, err = engine.RunSyncNow(context.Background(), "test")
	require.NoError(t, err)
}

func TestInbound_ReMergeIsIdempotent(t *testing.T) {
	store := testStore(t)

	page := &api.DeltaPage{
		Records: []api.ServerLink{{
			ServerID:     "s3",
			OriginalURL:  "https://a/b",
			CanonicalURL: "https://a/b",
			Title:        "T",
			Tags:         []string{"go"},
			SaveCount:    2,
			Status:       "synced",
		}},
		NextCursor: "cur-1",
	}
	remote := &fakeRemote{page: page}
	engine := newEngine(store, remote)

	// Merge the same page twice, as after a crash between merge and
	// cursor advance.
	_, err := engine.RunSyncNow(context.Background(), "test")
	require.NoError(t, err)
	_, err = engine.RunSyncNow(context.Background(), "test")
	require.NoError(t, err)

	links, err := store.ListLinks()
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Len(t, links[0].Tags, 1)
}

func TestSingleFlight(t *testing.T) {
	store := testStore(t)
	remote := &fakeRemote{pushDelay: 50 * time.Millisecond}
	engine := newEngine(store, remote)

	for i := 0; i < 4; i++ {
		queueLink(t, store, fmt.Sprintf("https://example.com/%d", i))
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = engine.RunSyncNow(context.Background(), "concurrent")
		}()
		engine.TriggerSync("concurrent")
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&remote.maxInFlight),
		"at most one outbound phase may run at a time")
}

func TestTriggerSync_Coalesces(t *testing.T) {
	store := testStore(t)
	remote := &fakeRemote{pushDelay: 100 * time.Millisecond}
	engine := newEngine(store, remote)

	queueLink(t, store, "https://example.com/slow")

	// First trigger claims the slot; the burst behind it coalesces.
	engine.TriggerSync("burst")
	time.Sleep(10 * time.Millisecond)
	for i := 0; i < 10; i++ {
		engine.TriggerSync("burst")
	}

	// Wait for the pass to finish.
	_, err := engine.RunSyncNow(context.Background(), "drain")
	require.NoError(t, err)

	remote.mu.Lock()
	defer remote.mu.Unlock()
	assert.LessOrEqual(t, remote.pullCalls, 2, "burst triggers must coalesce, not queue")
}

func TestWatchConnectivity_EdgeTriggered(t *testing.T) {
	store := testStore(t)
	remote := &fakeRemote{}
	engine := newEngine(store, remote)

	status := make(chan bool)
	stop := engine.WatchConnectivity(status)
	defer stop()

	// Still offline: no trigger.
	status <- false
	// Reconnect edge: exactly one trigger.
	status <- true
	// Stable connectivity: no further triggers.
	status <- true
	status <- true

	require.Eventually(t, func() bool {
		remote.mu.Lock()
		defer remote.mu.Unlock()
		return remote.pullCalls >= 1
	}, time.Second, 10*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	remote.mu.Lock()
	defer remote.mu.Unlock()
	assert.Equal(t, 1, remote.pullCalls, "repeated connected readings must not re-trigger")
}

func TestRetryAction_RequeuesFailedLink(t *testing.T) {
	store := testStore(t)
	remote := &fakeRemote{pushErr: errors.New("down")}
	engine := newEngine(store, remote)

	link := queueLink(t, store, "https://x/y")
	for i := 0; i < 6; i++ {
		_, _ = engine.RunSyncNow(context.Background(), "test")
	}
	got, _ := store.GetLink(link.LocalID)
	require.Equal(t, models.StatusFailed, got.Status)

	// External retry action flips it back; the next pass picks it up.
	require.NoError(t, store.ResetFailedLink(link.LocalID))

	remote.mu.Lock()
	remote.pushErr = nil
	remote.mu.Unlock()

	_, err := engine.RunSyncNow(context.Background(), "test")
	require.NoError(t, err)

	got, _ = store.GetLink(link.LocalID)
	assert.Equal(t, models.StatusSynced, got.Status)
	assert.Zero(t, got.Attempts)
}
