package credential

import (
	"errors"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCookieProvider(t *testing.T) {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	u, _ := url.Parse("http://foodshare.test/")
	jar.SetCookies(u, []*http.Cookie{
		{Name: "sessionid", Value: "s3ss", Path: "/"},
		{Name: "csrftoken", Value: "t0ken", Path: "/"},
	})

	p, err := NewCookieProvider(jar, "http://foodshare.test", "")
	require.NoError(t, err)

	tok, err := p.CSRFToken()
	require.NoError(t, err)
	assert.Equal(t, "t0ken", tok)

	other, err := NewCookieProvider(jar, "http://elsewhere.test", "csrftoken")
	require.NoError(t, err)
	_, err = other.CSRFToken()
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestKeyringProvider(t *testing.T) {
	stored := map[string]string{CSRFKey("default"): " abc \n"}
	get := func(k string) (string, error) {
		v, ok := stored[k]
		if !ok {
			return "", errors.New("The specified item could not be found in the keyring")
		}
		return v, nil
	}

	p := &KeyringProvider{key: CSRFKey("default"), get: get}
	tok, err := p.CSRFToken()
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	missing := &KeyringProvider{key: CSRFKey("staging"), get: get}
	_, err = missing.CSRFToken()
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestChainProvider(t *testing.T) {
	tok, err := ChainProvider{StaticProvider(""), nil, StaticProvider("second")}.CSRFToken()
	require.NoError(t, err)
	assert.Equal(t, "second", tok)

	_, err = ChainProvider{StaticProvider("")}.CSRFToken()
	assert.ErrorIs(t, err, ErrNoToken)

	_, err = ChainProvider{}.CSRFToken()
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "session-default", SessionKey("default"))
	assert.Equal(t, "csrf-staging", CSRFKey("staging"))
}
