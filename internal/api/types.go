// Package api implements the HTTP client for the remote link service.
//
// All wire-format variance is absorbed here: the sync engine only ever
// sees the normalized DTO shapes defined in this file.
package api

import "time"

// TokenProvider supplies the current bearer token. An empty string means
// no session; requests are still attempted and the server's auth failure
// is surfaced as ErrUnauthorized.
type TokenProvider interface {
	CurrentAccessToken() string
}

// AttestationProvider supplies platform-integrity headers attached to
// every request. Optional; a nil provider sends none.
type AttestationProvider interface {
	Headers() map[string]string
}

// PushPayload is the outbound representation of a locally queued link.
type PushPayload struct {
	LocalID     string    `json:"local_id"`
	OriginalURL string    `json:"original_url"`
	SharedText  string    `json:"shared_text,omitempty"`
	SourceApp   string    `json:"source_app,omitempty"`
	SharedAt    time.Time `json:"shared_at"`
	TitleHint   string    `json:"title_hint,omitempty"`
	ModelHints  []string  `json:"model_hints,omitempty"`
}

// PushResult is the server acknowledgment for one pushed link.
type PushResult struct {
	ServerID     string `json:"server_id"`
	CanonicalURL string `json:"canonical_url,omitempty"`
}

// ServerLink is the normalized shape of one server-side link record.
type ServerLink struct {
	ServerID     string    `json:"server_id,omitempty"`
	OriginalURL  string    `json:"original_url"`
	CanonicalURL string    `json:"canonical_url"`
	Title        string    `json:"title,omitempty"`
	Snippet      string    `json:"snippet,omitempty"`
	SummaryShort string    `json:"summary_short,omitempty"`
	SummaryLong  string    `json:"summary_long,omitempty"`
	Lang         string    `json:"lang,omitempty"`
	Tags         []string  `json:"tags"`
	SaveCount    int       `json:"save_count"`
	Status       string    `json:"status"`
	SharedAt     time.Time `json:"shared_at"`
	CreatedAt    time.Time `json:"created_at"`
}

// DeltaPage is one page of server-side changes since a cursor.
type DeltaPage struct {
	Records    []ServerLink `json:"records"`
	NextCursor string       `json:"next_cursor"`
}
