// Package foodshare is a thin HTTP client for the donation coordination
// server's notification endpoints.
package foodshare

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nhle/foodshare-desk/internal/credential"
	"github.com/nhle/foodshare-desk/internal/model"
)

// Endpoint paths.
const (
	PathUnreadCount = "/notifications/unread-count"
	PathRecent      = "/notifications/recent"
	PathMarkAllRead = "/notifications/mark-all-read"
	PathReport      = "/reports/export"
)

// MarkReadPath returns the single-item mark-read path for id.
func MarkReadPath(id string) string {
	return "/notifications/" + url.PathEscape(id) + "/mark-read"
}

// Request headers understood by the server.
const (
	HeaderCSRF          = "X-CSRFToken"
	HeaderRequestedWith = "X-Requested-With"
)

const (
	defaultTimeout = 30 * time.Second
	maxBodyBytes   = 4 << 20
)

// Client talks to the server using the session held in its cookie jar.
// Mutations carry the CSRF token from the injected provider. Requests are
// never retried.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     credential.TokenProvider
	log        zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithLogger sets the client's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) {
		c.log = l.With().Str("component", "foodshare").Logger()
	}
}

// WithTransport replaces the HTTP transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.httpClient.Transport = rt
	}
}

// NewClient creates a client for the server at baseURL
// (e.g., https://foodshare.example.org).
func NewClient(baseURL string, jar http.CookieJar, tokens credential.TokenProvider, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: defaultTimeout,
			Jar:     jar,
		},
		tokens: tokens,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the server root the client was created with.
func (c *Client) BaseURL() string { return c.baseURL }

// UnreadCount returns the current user's unread notification count.
func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	var out model.UnreadCount
	if err := c.do(ctx, http.MethodGet, PathUnreadCount, false, &out); err != nil {
		return 0, err
	}
	if out.Count < 0 {
		return 0, fmt.Errorf("server returned negative unread count %d", out.Count)
	}
	return out.Count, nil
}

// Recent returns the server-rendered notification list fragment.
func (c *Client) Recent(ctx context.Context) (string, error) {
	var out model.RecentFragment
	if err := c.do(ctx, http.MethodGet, PathRecent, false, &out); err != nil {
		return "", err
	}
	return out.HTML, nil
}

// MarkAllRead marks every notification read.
func (c *Client) MarkAllRead(ctx context.Context) (model.MutationResult, error) {
	var out model.MutationResult
	err := c.do(ctx, http.MethodPost, PathMarkAllRead, true, &out)
	return out, err
}

// MarkRead marks one notification read. The server exposes this as a GET
// but still expects the CSRF header.
func (c *Client) MarkRead(ctx context.Context, id string) (model.MutationResult, error) {
	var out model.MutationResult
	err := c.do(ctx, http.MethodGet, MarkReadPath(id), true, &out)
	return out, err
}

// ReportURL builds the export link for a date range. Zero dates are left
// out of the query.
func (c *Client) ReportURL(start, end time.Time) string {
	q := url.Values{}
	if !start.IsZero() {
		q.Set("start", start.Format("2006-01-02"))
	}
	if !end.IsZero() {
		q.Set("end", end.Format("2006-01-02"))
	}
	u := c.baseURL + PathReport
	if enc := q.Encode(); enc != "" {
		u += "?" + enc
	}
	return u
}

// do builds the request, attaches headers and decodes the JSON response.
func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	csrf bool,
	result interface{},
) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set(HeaderRequestedWith, "XMLHttpRequest")

	if csrf {
		if c.tokens == nil {
			return fmt.Errorf("%s %s: %w", method, path, credential.ErrNoToken)
		}
		token, err := c.tokens.CSRFToken()
		if err != nil {
			return fmt.Errorf("%s %s: %w", method, path, err)
		}
		req.Header.Set(HeaderCSRF, token)
		// The server checks the Referer on HTTPS requests.
		req.Header.Set("Referer", c.baseURL+"/")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("request")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		se := StatusError{
			StatusCode: resp.StatusCode,
			Method:     method,
			Path:       path,
			Message:    bodyMessage(respBody),
		}
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return &AuthError{StatusError: se}
		}
		return &se
	}

	if result == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf(
			"unmarshaling response from %s %s: %w",
			method, path, err,
		)
	}
	return nil
}

// bodyMessage extracts a "message" (or "detail") field from an error body.
func bodyMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	if json.Unmarshal(body, &payload) != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Detail
}
