package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultRequestTimeout bounds each individual request so a hung
	// push or pull cannot stall a whole sync pass.
	DefaultRequestTimeout = 30 * time.Second

	// DefaultRateLimit is requests per minute against the link service.
	DefaultRateLimit = 60

	// DefaultPageSize bounds one delta-pull page.
	DefaultPageSize = 100
)

// ErrUnauthorized is returned uniformly for auth failures, whether the
// token was absent or rejected.
var ErrUnauthorized = errors.New("api: unauthorized")

// ClientConfig holds remote service settings.
type ClientConfig struct {
	BaseURL           string
	HTTPClient        *http.Client
	RequestsPerMinute int
}

// Client talks to the remote link service.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	tokens      TokenProvider
	attestation AttestationProvider
	limiter     *rate.Limiter
}

// NewClient creates a client for the remote link service. The token
// provider may return an empty token; attestation may be nil.
func NewClient(cfg ClientConfig, tokens TokenProvider, attestation AttestationProvider) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultRequestTimeout}
	}

	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = DefaultRateLimit
	}

	return &Client{
		baseURL:     cfg.BaseURL,
		httpClient:  httpClient,
		tokens:      tokens,
		attestation: attestation,
		limiter:     rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1),
	}
}

// Push uploads one locally queued link and returns its server identity.
func (c *Client) Push(ctx context.Context, payload PushPayload) (*PushResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode push payload: %w", err)
	}

	respBody, err := c.do(ctx, http.MethodPost, "/v1/links", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var result PushResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("decode push response: %w", err)
	}
	if result.ServerID == "" {
		return nil, fmt.Errorf("push response missing server id")
	}
	return &result, nil
}

// PullDelta fetches one page of server-side changes since the cursor.
// An empty cursor means "from the beginning".
func (c *Client) PullDelta(ctx context.Context, since string, limit int) (*DeltaPage, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}

	q := url.Values{}
	if since != "" {
		q.Set("since", since)
	}
	q.Set("limit", strconv.Itoa(limit))

	respBody, err := c.do(ctx, http.MethodGet, "/v1/links/delta?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	page, err := decodeDeltaPage(respBody)
	if err != nil {
		return nil, fmt.Errorf("decode delta page: %w", err)
	}
	return page, nil
}

// ArchiveDownloadURL returns the download endpoint for a link's archive
// blob. The archive cache manager performs the actual (conditional) GET.
func (c *Client) ArchiveDownloadURL(serverID string) string {
	return c.baseURL + "/v1/links/" + url.PathEscape(serverID) + "/archive"
}

// do runs one rate-limited, authenticated request and returns the body.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	// Token may be absent; the request is still attempted and the
	// server's rejection is surfaced uniformly below.
	if token := c.tokens.CurrentAccessToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if c.attestation != nil {
		for k, v := range c.attestation.Headers() {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrUnauthorized
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}

	return respBody, nil
}
