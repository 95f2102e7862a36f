package tado

import (
	"errors"
	"fmt"
)

// Sentinel errors for the tado package.
var (
	// ErrNotAuthenticated is returned when no access token is held at all.
	ErrNotAuthenticated = errors.New("tado: not authenticated")

	// ErrNoRefreshToken is returned when a refresh is attempted without a
	// refresh token.
	ErrNoRefreshToken = errors.New("tado: no refresh token available")

	// ErrHomeNotSet is returned by home-scoped operations before any
	// network call when the home id has not been configured.
	ErrHomeNotSet = errors.New("tado: home id not set")
)

// AuthError indicates the credential set is unusable: the device
// authorization handshake failed, a token refresh was rejected, or no
// usable token is held. Callers should treat it as "re-authentication
// required" rather than retrying the request.
type AuthError struct {
	// Op names the failed operation ("device auth", "token poll", "refresh").
	Op string

	// Err is the underlying cause (transport error, sentinel, or a
	// protocol error built from the server's error_description).
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("tado auth: %s: %v", e.Op, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// APIError indicates a non-success API outcome: an HTTP error status, a
// transport failure, or missing request context. Status is zero when the
// failure happened before or below the HTTP layer.
type APIError struct {
	// Op names the failed operation ("GET /rooms", "set presence").
	Op string

	// Status is the HTTP status code, or 0 for transport-level failures.
	Status int

	// Body is the response body text, truncated for logging.
	Body string

	// Err is the underlying cause, if any.
	Err error
}

func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("tado api: %s: status %d: %s", e.Op, e.Status, e.Body)
	}
	return fmt.Sprintf("tado api: %s: %v", e.Op, e.Err)
}

func (e *APIError) Unwrap() error { return e.Err }

// authErr wraps err in an *AuthError for operation op.
func authErr(op string, err error) error {
	return &AuthError{Op: op, Err: err}
}

// apiErr wraps a transport-level failure in an *APIError.
func apiErr(op string, err error) error {
	return &APIError{Op: op, Err: err}
}

// apiStatusErr builds an *APIError from an HTTP error response.
func apiStatusErr(op string, status int, body string) error {
	return &APIError{Op: op, Status: status, Body: truncate(body, maxErrorBodyLen)}
}

// maxErrorBodyLen bounds how much response body is carried in errors.
const maxErrorBodyLen = 512

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
