package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/oauth2"
)

type fakeSource struct {
	token *oauth2.Token
	err   error
	calls int
}

func (f *fakeSource) Token() (*oauth2.Token, error) {
	f.calls++
	return f.token, f.err
}

func TestStaticProvider(t *testing.T) {
	assert.Equal(t, "abc", StaticProvider{Token: "abc"}.CurrentAccessToken())
	assert.Empty(t, StaticProvider{}.CurrentAccessToken())
}

func TestOAuthProvider_CachesUntilExpiry(t *testing.T) {
	source := &fakeSource{token: &oauth2.Token{
		AccessToken: "tok-1",
		Expiry:      time.Now().Add(time.Hour),
	}}
	provider := NewOAuthProvider(source)

	assert.Equal(t, "tok-1", provider.CurrentAccessToken())
	assert.Equal(t, "tok-1", provider.CurrentAccessToken())
	assert.Equal(t, 1, source.calls, "second lookup should hit the cache")
}

func TestOAuthProvider_ErrorMeansSignedOut(t *testing.T) {
	source := &fakeSource{err: errors.New("refresh failed")}
	provider := NewOAuthProvider(source)

	assert.Empty(t, provider.CurrentAccessToken())
}
