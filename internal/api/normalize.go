package api

import (
	"encoding/json"
	"fmt"
	"time"
)

// The service has shipped several generations of field casings for the
// delta feed (snake_case, camelCase, and a few legacy aliases). All of
// that tolerance lives here; everything past this file sees ServerLink.

// decodeDeltaPage decodes a delta response body into the normalized page.
func decodeDeltaPage(data []byte) (*DeltaPage, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, err
	}

	page := &DeltaPage{
		NextCursor: pickString(top, "next_cursor", "nextCursor", "cursor"),
	}

	rawRecords := pickRaw(top, "records", "items", "links")
	if rawRecords == nil {
		return page, nil
	}

	var records []map[string]json.RawMessage
	if err := json.Unmarshal(rawRecords, &records); err != nil {
		return nil, fmt.Errorf("records: %w", err)
	}

	for i, rec := range records {
		link, err := normalizeRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		page.Records = append(page.Records, link)
	}
	return page, nil
}

// normalizeRecord maps one raw record to the canonical DTO shape.
func normalizeRecord(rec map[string]json.RawMessage) (ServerLink, error) {
	link := ServerLink{
		ServerID:     pickString(rec, "server_id", "serverId", "id"),
		OriginalURL:  pickString(rec, "original_url", "originalUrl", "url"),
		CanonicalURL: pickString(rec, "canonical_url", "canonicalUrl"),
		Title:        pickString(rec, "title"),
		Snippet:      pickString(rec, "snippet"),
		SummaryShort: pickString(rec, "summary_short", "summaryShort"),
		SummaryLong:  pickString(rec, "summary_long", "summaryLong"),
		Lang:         pickString(rec, "lang", "language"),
		Tags:         pickStrings(rec, "tags"),
		SaveCount:    pickInt(rec, "save_count", "saveCount"),
		Status:       pickString(rec, "status"),
	}

	if link.OriginalURL == "" && link.CanonicalURL == "" {
		return link, fmt.Errorf("record carries no URL")
	}
	if link.CanonicalURL == "" {
		link.CanonicalURL = link.OriginalURL
	}
	if link.SaveCount <= 0 {
		link.SaveCount = 1
	}
	if link.Status == "" {
		link.Status = "synced"
	}

	link.SharedAt = pickTime(rec, "shared_at", "sharedAt")
	link.CreatedAt = pickTime(rec, "created_at", "createdAt")

	return link, nil
}

// pickRaw returns the first present key's raw value.
func pickRaw(m map[string]json.RawMessage, keys ...string) json.RawMessage {
	for _, key := range keys {
		if raw, ok := m[key]; ok && string(raw) != "null" {
			return raw
		}
	}
	return nil
}

// pickString returns the first present key decoded as a string.
func pickString(m map[string]json.RawMessage, keys ...string) string {
	raw := pickRaw(m, keys...)
	if raw == nil {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// pickInt returns the first present key decoded as an int.
func pickInt(m map[string]json.RawMessage, keys ...string) int {
	raw := pickRaw(m, keys...)
	if raw == nil {
		return 0
	}
	var n int
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0
	}
	return n
}

// pickStrings returns the first present key decoded as a string slice.
func pickStrings(m map[string]json.RawMessage, keys ...string) []string {
	raw := pickRaw(m, keys...)
	if raw == nil {
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

// pickTime returns the first present key decoded as RFC 3339 time.
func pickTime(m map[string]json.RawMessage, keys ...string) time.Time {
	s := pickString(m, keys...)
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
