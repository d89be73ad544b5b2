package foodshare

import (
	"errors"
	"fmt"
)

// StatusError is returned for any non-2xx response.
type StatusError struct {
	StatusCode int
	Method     string
	Path       string

	// Message is the body's "message" field, when the server sent one.
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("unexpected status %d on %s %s: %s", e.StatusCode, e.Method, e.Path, e.Message)
	}
	return fmt.Sprintf("unexpected status %d on %s %s", e.StatusCode, e.Method, e.Path)
}

// ServerMessage returns the message the server put in the response body.
func (e *StatusError) ServerMessage() string { return e.Message }

// AuthError indicates the session has expired or the CSRF check failed.
// It is returned for 401 and 403 responses.
type AuthError struct {
	StatusError
}

func (e *AuthError) Error() string {
	return "authentication failed: " + e.StatusError.Error()
}

// Unwrap exposes the underlying status error.
func (e *AuthError) Unwrap() error { return &e.StatusError }

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}
