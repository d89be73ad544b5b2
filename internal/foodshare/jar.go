package foodshare

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"

	"golang.org/x/net/publicsuffix"
)

// NewSessionJar returns a cookie jar for baseURL seeded with cookies. Empty
// cookie values are skipped.
func NewSessionJar(baseURL string, cookies ...*http.Cookie) (http.CookieJar, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base url %q: %w", baseURL, err)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}

	seed := make([]*http.Cookie, 0, len(cookies))
	for _, c := range cookies {
		if c == nil || c.Value == "" {
			continue
		}
		if c.Path == "" {
			c.Path = "/"
		}
		seed = append(seed, c)
	}
	if len(seed) > 0 {
		jar.SetCookies(u, seed)
	}
	return jar, nil
}
