package tado

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Default endpoints for the Tado cloud. Overridable for testing.
const (
	DefaultAuthURL  = "https://login.tado.com/oauth2/device_authorize"
	DefaultTokenURL = "https://login.tado.com/oauth2/token"
	DefaultMyAPIURL = "https://my.tado.com/api/v2"
	DefaultHopsURL  = "https://hops.tado.com"

	// DefaultClientID is the public OAuth2 client id for the device flow.
	DefaultClientID = "1bb50063-6b0c-4d11-bd99-387f4a91cc46"
)

// defaultHTTPTimeout bounds every individual HTTP exchange.
const defaultHTTPTimeout = 30 * time.Second

// refreshLeeway is how close to expiry a token may get before it is
// refreshed proactively.
const refreshLeeway = 60 * time.Second

// Logger is the narrow logging interface used by the Client.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Credentials is the OAuth2 credential set held by a Client.
//
// Expiry is always UTC. It is derived from "now + server-declared
// lifetime" on every refresh and never regresses otherwise.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// TokenStore persists credentials across restarts.
//
// Implementations must be safe for concurrent use; the Client saves on
// every token change.
type TokenStore interface {
	// Load returns the stored credentials. ok is false when none are stored.
	Load(ctx context.Context) (creds Credentials, ok bool, err error)

	// Save replaces the stored credentials.
	Save(ctx context.Context, creds Credentials) error
}

// Config contains Client construction options. Zero values select the
// production Tado endpoints.
type Config struct {
	ClientID string
	AuthURL  string
	TokenURL string
	MyAPIURL string
	HopsURL  string

	// HTTPClient is used for all requests. Defaults to a client with a
	// 30 second timeout.
	HTTPClient *http.Client

	// Store, when set, receives every credential change. Optional.
	Store TokenStore

	// Credentials seeds the initial credential set (from persisted state).
	Credentials Credentials

	// Logger receives diagnostic output. Defaults to a no-op logger.
	Logger Logger
}

// Client is the authenticated Tado X API client.
//
// It owns the credential set and the home id, and layers the typed API
// surface (api.go) over a resilient request core with single-flight
// token refresh.
type Client struct {
	httpClient *http.Client
	clientID   string
	authURL    string
	tokenURL   string
	myAPIURL   string
	hopsURL    string
	store      TokenStore
	logger     Logger

	mu     sync.RWMutex // guards creds and homeID
	creds  Credentials
	homeID int64

	refreshGroup singleflight.Group
}

// New creates a Client from cfg, applying defaults for unset fields.
func New(cfg Config) *Client {
	c := &Client{
		httpClient: cfg.HTTPClient,
		clientID:   cfg.ClientID,
		authURL:    cfg.AuthURL,
		tokenURL:   cfg.TokenURL,
		myAPIURL:   cfg.MyAPIURL,
		hopsURL:    cfg.HopsURL,
		store:      cfg.Store,
		logger:     cfg.Logger,
		creds:      cfg.Credentials,
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	if c.clientID == "" {
		c.clientID = DefaultClientID
	}
	if c.authURL == "" {
		c.authURL = DefaultAuthURL
	}
	if c.tokenURL == "" {
		c.tokenURL = DefaultTokenURL
	}
	if c.myAPIURL == "" {
		c.myAPIURL = DefaultMyAPIURL
	}
	if c.hopsURL == "" {
		c.hopsURL = DefaultHopsURL
	}
	if c.logger == nil {
		c.logger = noopLogger{}
	}
	// Stored expiries may predate UTC normalisation; force UTC here so
	// every later comparison is against a consistent clock.
	c.creds.Expiry = c.creds.Expiry.UTC()
	return c
}

// Credentials returns a copy of the current credential set.
func (c *Client) Credentials() Credentials {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.creds
}

// SetHomeID sets the home id used by home-scoped operations.
func (c *Client) SetHomeID(id int64) {
	c.mu.Lock()
	c.homeID = id
	c.mu.Unlock()
}

// HomeID returns the configured home id, or 0 if unset.
func (c *Client) HomeID() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.homeID
}

// homeScope returns the home id, or an *APIError when it is unset.
// Checked before any network call so a misconfigured client fails fast
// rather than leaving ambiguous partial state.
func (c *Client) homeScope(op string) (int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.homeID == 0 {
		return 0, apiErr(op, ErrHomeNotSet)
	}
	return c.homeID, nil
}

// setCredentials replaces the credential set and persists it.
// Persistence failures are logged, not surfaced: the in-memory tokens
// are valid and losing them to a disk error would force a needless
// re-authentication.
func (c *Client) setCredentials(ctx context.Context, creds Credentials) {
	creds.Expiry = creds.Expiry.UTC()

	c.mu.Lock()
	c.creds = creds
	c.mu.Unlock()

	if c.store == nil {
		return
	}
	if err := c.store.Save(ctx, creds); err != nil {
		c.logger.Warn("failed to persist credentials", "error", err)
	}
}

// request performs one authenticated API call.
//
// It ensures the token is valid, injects the bearer header, and on a 401
// performs exactly one refresh and one retry with the new token. Any
// other non-(200, 204) status surfaces an *APIError immediately. A 204
// or empty body yields a nil payload.
func (c *Client) request(ctx context.Context, method, url string, body any, op string) (json.RawMessage, error) {
	if err := c.EnsureValidToken(ctx); err != nil {
		return nil, err
	}

	var encoded []byte
	if body != nil {
		var err error
		encoded, err = json.Marshal(body)
		if err != nil {
			return nil, apiErr(op, fmt.Errorf("encoding request body: %w", err))
		}
	}

	status, respBody, err := c.do(ctx, method, url, encoded)
	if err != nil {
		return nil, apiErr(op, err)
	}

	if status == http.StatusUnauthorized {
		// Exactly one refresh and one retry. If the server still rejects
		// the new token, surface the failure rather than looping.
		if err := c.Refresh(ctx); err != nil {
			return nil, err
		}
		status, respBody, err = c.do(ctx, method, url, encoded)
		if err != nil {
			return nil, apiErr(op, err)
		}
	}

	if status != http.StatusOK && status != http.StatusNoContent {
		return nil, apiStatusErr(op, status, string(respBody))
	}
	if status == http.StatusNoContent || len(respBody) == 0 {
		return nil, nil
	}
	return json.RawMessage(respBody), nil
}

// do executes a single HTTP exchange with the current bearer token.
func (c *Client) do(ctx context.Context, method, url string, body []byte) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("building request: %w", err)
	}

	c.mu.RLock()
	token := c.creds.AccessToken
	c.mu.RUnlock()

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close() //nolint:errcheck // Read side; nothing useful to do

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("reading response body: %w", err)
	}
	return resp.StatusCode, respBody, nil
}

// getJSON performs a GET request and decodes the response into out.
// A nil payload (204 or empty body) leaves out untouched.
func (c *Client) getJSON(ctx context.Context, url string, out any, op string) error {
	raw, err := c.request(ctx, http.MethodGet, url, nil, op)
	if err != nil {
		return err
	}
	if raw == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return apiErr(op, fmt.Errorf("decoding response: %w", err))
	}
	return nil
}
