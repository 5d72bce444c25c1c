// Package auth supplies bearer tokens for the remote link service.
//
// Credential issuance itself happens elsewhere (device sign-in flow);
// this package only adapts whatever token source is available into the
// api.TokenProvider shape. Absence of a token is a valid state: the
// sync engine proceeds and lets the service surface the auth failure.
package auth

import (
	"context"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// StaticProvider returns a fixed token, typically sourced from the
// STASH_TOKEN environment variable. An empty token means signed out.
type StaticProvider struct {
	Token string
}

// CurrentAccessToken implements api.TokenProvider.
func (p StaticProvider) CurrentAccessToken() string {
	return p.Token
}

// OAuthProvider adapts an oauth2.TokenSource (which handles refresh)
// into the synchronous token lookup the sync engine expects. Lookup
// failures yield an empty token rather than an error; the request layer
// reports the resulting rejection uniformly.
type OAuthProvider struct {
	source oauth2.TokenSource

	mu     sync.Mutex
	cached *oauth2.Token
}

// NewOAuthProvider wraps a token source. The source is consulted lazily
// and its result cached until expiry.
func NewOAuthProvider(source oauth2.TokenSource) *OAuthProvider {
	return &OAuthProvider{source: source}
}

// NewFromToken builds an auto-refreshing provider from an initial token
// and the oauth2 config that issued it.
func NewFromToken(ctx context.Context, cfg *oauth2.Config, token *oauth2.Token) *OAuthProvider {
	return NewOAuthProvider(cfg.TokenSource(ctx, token))
}

// CurrentAccessToken implements api.TokenProvider.
func (p *OAuthProvider) CurrentAccessToken() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached != nil && p.cached.Valid() && time.Until(p.cached.Expiry) > time.Minute {
		return p.cached.AccessToken
	}

	token, err := p.source.Token()
	if err != nil {
		return ""
	}
	p.cached = token
	return token.AccessToken
}
