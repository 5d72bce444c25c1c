package canonical

import "testing"

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "tracking params and fragment stripped",
			in:   "http://Example.com:80/Some/Path/?utm_source=google&gclid=abc&foo=bar#frag",
			want: "https://example.com/Some/Path?foo=bar",
		},
		{
			name: "consecutive slashes collapsed",
			in:   "https://example.com//foo///bar//baz/",
			want: "https://example.com/foo/bar/baz",
		},
		{
			name: "root trailing slash preserved",
			in:   "https://example.com/",
			want: "https://example.com/",
		},
		{
			name: "http upgraded to https",
			in:   "http://example.com/page",
			want: "https://example.com/page",
		},
		{
			name: "host lowercased path case preserved",
			in:   "https://News.Ycombinator.COM/Item",
			want: "https://news.ycombinator.com/Item",
		},
		{
			name: "default https port dropped",
			in:   "https://example.com:443/a",
			want: "https://example.com/a",
		},
		{
			name: "non-default port kept",
			in:   "https://example.com:8080/a",
			want: "https://example.com:8080/a",
		},
		{
			name: "session params removed",
			in:   "https://example.com/a?sid=1&q=go&PHPSESSID=zz",
			want: "https://example.com/a?q=go",
		},
		{
			name: "surviving params keep relative order",
			in:   "https://example.com/a?z=1&utm_medium=mail&a=2&fbclid=x&m=3",
			want: "https://example.com/a?z=1&a=2&m=3",
		},
		{
			name: "all params removed drops query entirely",
			in:   "https://example.com/a?utm_source=x&utm_campaign=y",
			want: "https://example.com/a",
		},
		{
			name: "no path",
			in:   "https://example.com",
			want: "https://example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Canonicalize(tt.in)
			if err != nil {
				t.Fatalf("Canonicalize(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("Canonicalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCanonicalize_Idempotent(t *testing.T) {
	inputs := []string{
		"http://Example.com:80/Some/Path/?utm_source=google&gclid=abc&foo=bar#frag",
		"https://example.com//foo///bar//baz/",
		"https://example.com/",
		"https://blog.example.org/posts/go-sync?ref=twitter&id=9",
		"https://example.com/a?z=1&a=2&m=3",
	}

	for _, in := range inputs {
		once, err := Canonicalize(in)
		if err != nil {
			t.Fatalf("first pass %q: %v", in, err)
		}
		twice, err := Canonicalize(once)
		if err != nil {
			t.Fatalf("second pass %q: %v", once, err)
		}
		if once != twice {
			t.Errorf("not idempotent: %q -> %q -> %q", in, once, twice)
		}
	}
}

func TestCanonicalize_Invalid(t *testing.T) {
	for _, in := range []string{"", "not a url", "/relative/path", "https://"} {
		if _, err := Canonicalize(in); err != ErrInvalidURL {
			t.Errorf("Canonicalize(%q) error = %v, want ErrInvalidURL", in, err)
		}
	}
}

func TestCanonicalize_SessionAllowlist(t *testing.T) {
	c := New("legacy.example.com")

	got, err := c.Canonicalize("https://legacy.example.com/cart?sid=abc&item=9")
	if err != nil {
		t.Fatalf("Canonicalize error = %v", err)
	}
	if want := "https://legacy.example.com/cart?sid=abc&item=9"; got != want {
		t.Errorf("allowlisted host: got %q, want %q", got, want)
	}

	got, err = c.Canonicalize("https://other.example.com/cart?sid=abc&item=9")
	if err != nil {
		t.Fatalf("Canonicalize error = %v", err)
	}
	if want := "https://other.example.com/cart?item=9"; got != want {
		t.Errorf("non-allowlisted host: got %q, want %q", got, want)
	}
}
