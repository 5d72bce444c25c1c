// Package canonical normalizes saved URLs into deduplication keys.
//
// Canonicalization is deterministic and pure: the same input always
// yields the same output, and canonicalizing an already-canonical URL
// is a no-op.
package canonical

import (
	"errors"
	"net/url"
	"strings"
)

// ErrInvalidURL is returned when the input cannot be reduced to a
// canonical form (no parseable host).
var ErrInvalidURL = errors.New("canonical: URL has no host")

// trackingParams are query parameter names stripped unconditionally.
var trackingParams = map[string]bool{
	"gclid":   true,
	"fbclid":  true,
	"msclkid": true,
	"mc_eid":  true,
	"ref":     true,
	"ref_src": true,
	"igshid":  true,
}

// sessionParams are stripped unless the host is allowlisted.
var sessionParams = map[string]bool{
	"sid":       true,
	"session":   true,
	"phpsessid": true,
}

// trackingPrefix matches campaign parameters like utm_source, utm_medium.
const trackingPrefix = "utm_"

// Canonicalizer normalizes URLs, optionally keeping session parameters
// for an allowlisted set of hosts whose URLs break without them.
type Canonicalizer struct {
	sessionAllowlist map[string]bool
}

// New creates a Canonicalizer. Hosts passed in keep their session
// parameters; matching is by lowercased host.
func New(sessionAllowlist ...string) *Canonicalizer {
	allow := make(map[string]bool, len(sessionAllowlist))
	for _, host := range sessionAllowlist {
		allow[strings.ToLower(host)] = true
	}
	return &Canonicalizer{sessionAllowlist: allow}
}

// defaultCanonicalizer backs the package-level Canonicalize.
var defaultCanonicalizer = New()

// Canonicalize normalizes a URL with the default (empty) allowlist.
func Canonicalize(raw string) (string, error) {
	return defaultCanonicalizer.Canonicalize(raw)
}

// Canonicalize normalizes a URL into its deduplication key:
// https scheme, lowercased host, default ports and fragments dropped,
// tracking and session parameters removed, redundant slashes collapsed.
func (c *Canonicalizer) Canonicalize(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", ErrInvalidURL
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", ErrInvalidURL
	}

	// Drop default ports; anything else stays.
	if port := u.Port(); port != "" && port != "80" && port != "443" {
		host = host + ":" + port
	}

	path := collapseSlashes(u.EscapedPath())
	if path != "/" {
		path = strings.TrimSuffix(path, "/")
	}

	query := c.filterQuery(u.RawQuery, host)

	var b strings.Builder
	b.WriteString("https://")
	b.WriteString(host)
	b.WriteString(path)
	if query != "" {
		b.WriteByte('?')
		b.WriteString(query)
	}
	return b.String(), nil
}

// filterQuery removes tracking and session parameters, preserving the
// original relative order of the surviving parameters.
func (c *Canonicalizer) filterQuery(rawQuery, host string) string {
	if rawQuery == "" {
		return ""
	}

	keepSession := c.sessionAllowlist[host]

	var kept []string
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		key := pair
		if i := strings.IndexByte(pair, '='); i >= 0 {
			key = pair[:i]
		}
		lower := strings.ToLower(key)

		if strings.HasPrefix(lower, trackingPrefix) || trackingParams[lower] {
			continue
		}
		if sessionParams[lower] && !keepSession {
			continue
		}
		kept = append(kept, pair)
	}
	return strings.Join(kept, "&")
}

// collapseSlashes reduces runs of consecutive slashes in a path to one.
func collapseSlashes(path string) string {
	if !strings.Contains(path, "//") {
		return path
	}
	var b strings.Builder
	b.Grow(len(path))
	prevSlash := false
	for i := 0; i < len(path); i++ {
		ch := path[i]
		if ch == '/' {
			if prevSlash {
				continue
			}
			prevSlash = true
		} else {
			prevSlash = false
		}
		b.WriteByte(ch)
	}
	return b.String()
}
