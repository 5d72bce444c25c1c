package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeDeltaPage_SnakeCase(t *testing.T) {
	page, err := decodeDeltaPage([]byte(`{
		"records": [{
			"server_id": "s9",
			"original_url": "https://a/b",
			"canonical_url": "https://a/b",
			"summary_short": "short",
			"summary_long": "long",
			"save_count": 3,
			"status": "synced",
			"tags": ["go", "sync"],
			"shared_at": "2026-08-30T10:00:00Z"
		}],
		"next_cursor": "n1"
	}`))
	require.NoError(t, err)
	assert.Equal(t, "n1", page.NextCursor)
	require.Len(t, page.Records, 1)

	rec := page.Records[0]
	assert.Equal(t, "s9", rec.ServerID)
	assert.Equal(t, "short", rec.SummaryShort)
	assert.Equal(t, "long", rec.SummaryLong)
	assert.Equal(t, 3, rec.SaveCount)
	assert.Equal(t, []string{"go", "sync"}, rec.Tags)
	assert.Equal(t, 2026, rec.SharedAt.Year())
}

func TestDecodeDeltaPage_CamelCaseAliases(t *testing.T) {
	page, err := decodeDeltaPage([]byte(`{
		"items": [{
			"serverId": "s9",
			"originalUrl": "https://a/b",
			"canonicalUrl": "https://a/b-canonical",
			"summaryShort": "short",
			"saveCount": 2
		}],
		"nextCursor": "n2"
	}`))
	require.NoError(t, err)
	assert.Equal(t, "n2", page.NextCursor)
	require.Len(t, page.Records, 1)

	rec := page.Records[0]
	assert.Equal(t, "s9", rec.ServerID)
	assert.Equal(t, "https://a/b-canonical", rec.CanonicalURL)
	assert.Equal(t, "short", rec.SummaryShort)
	assert.Equal(t, 2, rec.SaveCount)
}

func TestDecodeDeltaPage_Defaults(t *testing.T) {
	page, err := decodeDeltaPage([]byte(`{
		"records": [{"original_url": "https://a/b"}]
	}`))
	require.NoError(t, err)
	require.Len(t, page.Records, 1)

	rec := page.Records[0]
	// Canonical URL falls back to original; count and status get floors.
	assert.Equal(t, "https://a/b", rec.CanonicalURL)
	assert.Equal(t, 1, rec.SaveCount)
	assert.Equal(t, "synced", rec.Status)
	assert.Empty(t, rec.ServerID)
}

func TestDecodeDeltaPage_RecordWithoutURL(t *testing.T) {
	_, err := decodeDeltaPage([]byte(`{"records": [{"title": "orphan"}]}`))
	assert.Error(t, err)
}

func TestDecodeDeltaPage_EmptyPage(t *testing.T) {
	page, err := decodeDeltaPage([]byte(`{"records": [], "next_cursor": ""}`))
	require.NoError(t, err)
	assert.Empty(t, page.Records)
	assert.Empty(t, page.NextCursor)
}
