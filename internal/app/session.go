package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/nhle/foodshare-desk/internal/credential"
	"github.com/nhle/foodshare-desk/internal/foodshare"
	"github.com/nhle/foodshare-desk/internal/model"
	"github.com/nhle/foodshare-desk/internal/notify"
	configview "github.com/nhle/foodshare-desk/internal/ui/config"
)

// Session is a connected client and the poller driving the badge.
type Session struct {
	Client *foodshare.Client
	Poller *notify.Poller

	// HasSession reports whether a session cookie was found in the keyring.
	HasSession bool
}

// secretLookup reads a credential by key.
type secretLookup func(key string) (string, error)

// Connect builds a client for cfg using the credentials stored for its
// profile, and a poller reporting to view. The poller is not started.
func Connect(cfg *model.AppConfig, view notify.View, log zerolog.Logger) (*Session, error) {
	return connect(cfg, view, log, credential.Get)
}

func connect(cfg *model.AppConfig, view notify.View, log zerolog.Logger, lookup secretLookup) (*Session, error) {
	srv := cfg.Server

	sessionValue, err := lookup(credential.SessionKey(srv.Profile))
	switch {
	case errors.Is(err, credential.ErrNotFound):
		log.Debug().Str("profile", srv.Profile).Msg("no stored session cookie")
		sessionValue = ""
	case err != nil:
		log.Warn().Err(err).Str("profile", srv.Profile).Msg("reading session cookie from keyring")
		sessionValue = ""
	}

	c, err := buildClient(srv, sessionValue, credential.NewKeyringProvider(srv.Profile), log)
	if err != nil {
		return nil, err
	}

	timeout := time.Duration(srv.TimeoutSec) * time.Second
	p := notify.New(c, view,
		notify.WithLogger(log),
		notify.WithFetchTimeout(timeout),
	)

	log.Info().
		Str("base_url", srv.BaseURL).
		Str("profile", srv.Profile).
		Bool("has_session", sessionValue != "").
		Msg("session ready")

	return &Session{Client: c, Poller: p, HasSession: sessionValue != ""}, nil
}

// buildClient seeds a cookie jar with the session cookie and reads the CSRF
// token from the cookie the server issues, falling back to fallback.
func buildClient(
	srv model.ServerConfig,
	sessionValue string,
	fallback credential.TokenProvider,
	log zerolog.Logger,
) (*foodshare.Client, error) {
	var cookies []*http.Cookie
	if sessionValue != "" {
		cookies = append(cookies, &http.Cookie{Name: srv.SessionCookie, Value: sessionValue})
	}

	jar, err := foodshare.NewSessionJar(srv.BaseURL, cookies...)
	if err != nil {
		return nil, fmt.Errorf("building cookie jar: %w", err)
	}

	fromCookie, err := credential.NewCookieProvider(jar, srv.BaseURL, srv.CSRFCookie)
	if err != nil {
		return nil, err
	}

	return foodshare.NewClient(srv.BaseURL, jar,
		credential.ChainProvider{fromCookie, fallback},
		foodshare.WithTimeout(time.Duration(srv.TimeoutSec)*time.Second),
		foodshare.WithLogger(log),
	), nil
}

// Probe returns a connection test for the config view. Credentials typed
// into the form take precedence over stored ones.
func Probe(log zerolog.Logger) configview.Probe {
	return probe(log, credential.Get)
}

func probe(log zerolog.Logger, lookup secretLookup) configview.Probe {
	return func(ctx context.Context, srv model.ServerConfig, secrets configview.Secrets) error {
		sessionValue := secrets.Session
		if sessionValue == "" {
			sessionValue, _ = lookup(credential.SessionKey(srv.Profile))
		}

		var fallback credential.TokenProvider = credential.StaticProvider(secrets.CSRF)
		c, err := buildClient(srv, sessionValue, fallback, log)
		if err != nil {
			return err
		}

		count, err := c.UnreadCount(ctx)
		if err != nil {
			if foodshare.IsAuthError(err) {
				return fmt.Errorf("server rejected the session cookie: %w", err)
			}
			return fmt.Errorf("reaching %s: %w", srv.BaseURL, err)
		}
		log.Info().Str("base_url", srv.BaseURL).Int("unread", count).Msg("connection test passed")
		return nil
	}
}
