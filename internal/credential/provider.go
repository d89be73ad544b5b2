package credential

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// ErrNoToken is returned when a provider has no CSRF token to offer.
var ErrNoToken = errors.New("csrf token not available")

// TokenProvider supplies the CSRF token attached to mutating requests.
type TokenProvider interface {
	CSRFToken() (string, error)
}

// CookieProvider reads the token from a cookie the server set in the
// client's jar.
type CookieProvider struct {
	jar  http.CookieJar
	u    *url.URL
	name string
}

// NewCookieProvider reads cookie name from jar as scoped to baseURL.
func NewCookieProvider(jar http.CookieJar, baseURL, name string) (*CookieProvider, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base url %q: %w", baseURL, err)
	}
	if name == "" {
		name = "csrftoken"
	}
	return &CookieProvider{jar: jar, u: u, name: name}, nil
}

// CSRFToken returns the cookie's value.
func (p *CookieProvider) CSRFToken() (string, error) {
	if p.jar == nil {
		return "", ErrNoToken
	}
	for _, c := range p.jar.Cookies(p.u) {
		if c.Name == p.name && c.Value != "" {
			return c.Value, nil
		}
	}
	return "", fmt.Errorf("cookie %q: %w", p.name, ErrNoToken)
}

// KeyringProvider reads a token saved in the system keyring.
type KeyringProvider struct {
	key string
	get func(string) (string, error)
}

// NewKeyringProvider reads the CSRF token stored for profile.
func NewKeyringProvider(profile string) *KeyringProvider {
	return &KeyringProvider{key: CSRFKey(profile), get: Get}
}

// CSRFToken returns the stored token.
func (p *KeyringProvider) CSRFToken() (string, error) {
	v, err := p.get(p.key)
	if err != nil {
		return "", fmt.Errorf("keyring %q: %w: %v", p.key, ErrNoToken, err)
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return "", fmt.Errorf("keyring %q: %w", p.key, ErrNoToken)
	}
	return v, nil
}

// StaticProvider always returns the same token.
type StaticProvider string

// CSRFToken returns the token, or ErrNoToken when empty.
func (p StaticProvider) CSRFToken() (string, error) {
	if p == "" {
		return "", ErrNoToken
	}
	return string(p), nil
}

// ChainProvider asks each provider in turn and returns the first token.
type ChainProvider []TokenProvider

// CSRFToken returns the first token any provider offers.
func (c ChainProvider) CSRFToken() (string, error) {
	var errs []error
	for _, p := range c {
		if p == nil {
			continue
		}
		tok, err := p.CSRFToken()
		if err == nil {
			return tok, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return "", ErrNoToken
	}
	return "", errors.Join(errs...)
}
