package tado

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLiteTokenStore implements TokenStore on the application database.
//
// Credentials are a single row (id=1, enforced by the schema): tokens
// are replaced wholesale on every change, never accumulated. The store
// also caches the resolved home so restarts skip the account lookup.
type SQLiteTokenStore struct {
	db *sql.DB
}

// NewSQLiteTokenStore creates a token store on an open SQLite connection.
func NewSQLiteTokenStore(db *sql.DB) *SQLiteTokenStore {
	return &SQLiteTokenStore{db: db}
}

// Load returns the persisted credentials, normalising the stored expiry
// to UTC. Expiries written by earlier versions without zone information
// are interpreted as UTC rather than rejected.
func (s *SQLiteTokenStore) Load(ctx context.Context) (Credentials, bool, error) {
	query := `
		SELECT access_token, refresh_token, expiry
		FROM credentials
		WHERE id = 1`

	var creds Credentials
	var expiry string
	err := s.db.QueryRowContext(ctx, query).Scan(&creds.AccessToken, &creds.RefreshToken, &expiry)
	if errors.Is(err, sql.ErrNoRows) {
		return Credentials{}, false, nil
	}
	if err != nil {
		return Credentials{}, false, fmt.Errorf("querying credentials: %w", err)
	}

	creds.Expiry, err = parseExpiry(expiry)
	if err != nil {
		return Credentials{}, false, fmt.Errorf("parsing stored expiry: %w", err)
	}
	return creds, true, nil
}

// Save replaces the persisted credentials.
func (s *SQLiteTokenStore) Save(ctx context.Context, creds Credentials) error {
	query := `
		INSERT INTO credentials (id, access_token, refresh_token, expiry, updated_at)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expiry = excluded.expiry,
			updated_at = excluded.updated_at`

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, query,
		creds.AccessToken,
		creds.RefreshToken,
		creds.Expiry.UTC().Format(time.RFC3339),
		now,
	)
	if err != nil {
		return fmt.Errorf("saving credentials: %w", err)
	}
	return nil
}

// Clear removes the persisted credentials. Used when the user triggers
// a full re-authentication.
func (s *SQLiteTokenStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM credentials WHERE id = 1"); err != nil {
		return fmt.Errorf("clearing credentials: %w", err)
	}
	return nil
}

// LoadHome returns the cached home id and name resolved on a previous
// start. ok is false when no home has been persisted yet.
func (s *SQLiteTokenStore) LoadHome(ctx context.Context) (int64, string, bool, error) {
	var homeID int64
	var name string
	err := s.db.QueryRowContext(ctx, "SELECT home_id, name FROM home WHERE id = 1").Scan(&homeID, &name)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, "", false, nil
	}
	if err != nil {
		return 0, "", false, fmt.Errorf("querying home: %w", err)
	}
	return homeID, name, true, nil
}

// SaveHome replaces the cached home id and name.
func (s *SQLiteTokenStore) SaveHome(ctx context.Context, homeID int64, name string) error {
	query := `
		INSERT INTO home (id, home_id, name, updated_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			home_id = excluded.home_id,
			name = excluded.name,
			updated_at = excluded.updated_at`

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := s.db.ExecContext(ctx, query, homeID, name, now); err != nil {
		return fmt.Errorf("saving home: %w", err)
	}
	return nil
}

// legacyExpiryLayout matches expiries persisted before timestamps were
// normalised to RFC 3339 UTC.
const legacyExpiryLayout = "2006-01-02T15:04:05"

// parseExpiry parses a stored expiry, accepting the legacy zone-less
// layout and pinning it to UTC so all comparisons share one clock.
func parseExpiry(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(legacyExpiryLayout, value)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
