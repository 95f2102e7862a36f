package tado

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// defaultTokenLifetime is assumed when the token endpoint omits
// expires_in from a successful response.
const defaultTokenLifetime = 600 * time.Second

// oauthPendingError is the RFC 8628 error code meaning the user has not
// yet approved the device.
const oauthPendingError = "authorization_pending"

// DeviceAuthorization is the result of starting the device flow.
// UserCode and VerificationURI are shown to the user; DeviceCode is
// passed to PollForToken.
type DeviceAuthorization struct {
	DeviceCode              string `json:"device_code"`
	UserCode                string `json:"user_code"`
	VerificationURI         string `json:"verification_uri"`
	VerificationURIComplete string `json:"verification_uri_complete"`
	ExpiresIn               int    `json:"expires_in"`
	Interval                int    `json:"interval"`
}

// tokenResponse is the token endpoint's wire format, for both the
// device-code and refresh-token grants.
type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	ExpiresIn        int    `json:"expires_in"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// StartDeviceAuth begins the OAuth2 device-authorization flow.
//
// All transport and protocol failures surface as a single *AuthError;
// callers do not need to distinguish a TLS failure from a rejected
// request, only that authentication cannot proceed.
func (c *Client) StartDeviceAuth(ctx context.Context) (*DeviceAuthorization, error) {
	const op = "device auth"

	form := url.Values{
		"client_id": {c.clientID},
		"scope":     {"offline_access"},
	}

	status, body, err := c.postForm(ctx, c.authURL, form)
	if err != nil {
		return nil, authErr(op, err)
	}
	if status != http.StatusOK {
		return nil, authErr(op, fmt.Errorf("status %d: %s", status, truncate(string(body), maxErrorBodyLen)))
	}

	var auth DeviceAuthorization
	if err := json.Unmarshal(body, &auth); err != nil {
		return nil, authErr(op, fmt.Errorf("decoding response: %w", err))
	}

	c.logger.Info("device authorization started",
		"user_code", auth.UserCode,
		"verification_uri", auth.VerificationURI,
	)
	return &auth, nil
}

// PollForToken polls the token endpoint until the user approves the
// device, the timeout budget elapses, or the server returns a
// non-pending error.
//
// Returns (true, nil) once a token is issued and stored, (false, nil)
// when the budget elapses without approval, and (false, *AuthError) on
// a protocol error. Transient network errors are retried within the
// same budget. Cancelling ctx aborts the loop.
func (c *Client) PollForToken(ctx context.Context, deviceCode string, interval, timeout time.Duration) (bool, error) {
	const op = "token poll"

	if interval <= 0 {
		interval = 5 * time.Second
	}
	deadline := time.Now().Add(timeout)

	form := url.Values{
		"client_id":   {c.clientID},
		"device_code": {deviceCode},
		"grant_type":  {"urn:ietf:params:oauth:grant-type:device_code"},
	}

	for time.Now().Before(deadline) {
		status, body, err := c.postForm(ctx, c.tokenURL, form)
		if err != nil {
			if ctx.Err() != nil {
				return false, authErr(op, ctx.Err())
			}
			// Transient network failure: keep polling.
			c.logger.Warn("token poll request failed, retrying", "error", err)
			if !sleepCtx(ctx, interval) {
				return false, authErr(op, ctx.Err())
			}
			continue
		}

		var tok tokenResponse
		if err := json.Unmarshal(body, &tok); err != nil {
			return false, authErr(op, fmt.Errorf("decoding response: %w", err))
		}

		if status == http.StatusOK {
			c.applyToken(ctx, tok)
			c.logger.Info("device authorization complete")
			return true, nil
		}

		if tok.Error == oauthPendingError {
			if !sleepCtx(ctx, interval) {
				return false, authErr(op, ctx.Err())
			}
			continue
		}

		return false, authErr(op, fmt.Errorf("%s", tokenErrorText(tok)))
	}

	return false, nil
}

// Refresh exchanges the refresh token for a new access/refresh pair.
//
// Concurrent callers share a single in-flight exchange: the server
// rotates refresh tokens, so two simultaneous refreshes would invalidate
// each other.
func (c *Client) Refresh(ctx context.Context) error {
	_, err, _ := c.refreshGroup.Do("refresh", func() (any, error) {
		return nil, c.refresh(ctx)
	})
	return err
}

// refresh performs the actual refresh exchange. Only called through the
// singleflight group.
func (c *Client) refresh(ctx context.Context) error {
	const op = "refresh"

	c.mu.RLock()
	refreshToken := c.creds.RefreshToken
	c.mu.RUnlock()

	if refreshToken == "" {
		return authErr(op, ErrNoRefreshToken)
	}

	form := url.Values{
		"client_id":     {c.clientID},
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}

	status, body, err := c.postForm(ctx, c.tokenURL, form)
	if err != nil {
		return authErr(op, err)
	}
	if status != http.StatusOK {
		return authErr(op, fmt.Errorf("status %d: %s", status, truncate(string(body), maxErrorBodyLen)))
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return authErr(op, fmt.Errorf("decoding response: %w", err))
	}

	c.applyToken(ctx, tok)
	c.logger.Debug("access token refreshed")
	return nil
}

// EnsureValidToken guarantees a usable access token, refreshing
// proactively when the current one expires within refreshLeeway.
func (c *Client) EnsureValidToken(ctx context.Context) error {
	c.mu.RLock()
	creds := c.creds
	c.mu.RUnlock()

	if creds.AccessToken == "" {
		return authErr("ensure token", ErrNotAuthenticated)
	}

	if !creds.Expiry.IsZero() && time.Now().UTC().After(creds.Expiry.Add(-refreshLeeway)) {
		return c.Refresh(ctx)
	}
	return nil
}

// applyToken installs a successful token response, retaining the old
// refresh token when the server does not rotate it.
func (c *Client) applyToken(ctx context.Context, tok tokenResponse) {
	c.mu.RLock()
	prevRefresh := c.creds.RefreshToken
	c.mu.RUnlock()

	creds := Credentials{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}
	if creds.RefreshToken == "" {
		creds.RefreshToken = prevRefresh
	}

	lifetime := defaultTokenLifetime
	if tok.ExpiresIn > 0 {
		lifetime = time.Duration(tok.ExpiresIn) * time.Second
	}
	creds.Expiry = time.Now().UTC().Add(lifetime)

	c.setCredentials(ctx, creds)
}

// postForm sends an application/x-www-form-urlencoded POST and returns
// the status and body. Used only by the token endpoints, which do not
// take bearer auth.
func (c *Client) postForm(ctx context.Context, endpoint string, form url.Values) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return 0, nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close() //nolint:errcheck // Read side; nothing useful to do

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("reading response body: %w", err)
	}
	return resp.StatusCode, body, nil
}

// tokenErrorText renders a token error response for wrapping.
func tokenErrorText(tok tokenResponse) string {
	if tok.ErrorDescription != "" {
		return tok.ErrorDescription
	}
	if tok.Error != "" {
		return tok.Error
	}
	return "unknown token error"
}

// sleepCtx sleeps for d unless ctx is cancelled first. Returns false on
// cancellation.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
