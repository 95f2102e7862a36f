package tado_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tadolink/tadolink/internal/tado"
)

// openTestDB opens a throwaway SQLite database with the credentials schema.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("sql.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema := `
		CREATE TABLE credentials (
			id            INTEGER PRIMARY KEY CHECK (id = 1),
			access_token  TEXT NOT NULL,
			refresh_token TEXT NOT NULL,
			expiry        TEXT NOT NULL,
			updated_at    TEXT NOT NULL
		);
		CREATE TABLE home (
			id         INTEGER PRIMARY KEY CHECK (id = 1),
			home_id    INTEGER NOT NULL,
			name       TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("creating schema: %v", err)
	}
	return db
}

// =============================================================================
// Token Store Tests
// =============================================================================

func TestSQLiteTokenStore_LoadEmpty(t *testing.T) {
	store := tado.NewSQLiteTokenStore(openTestDB(t))

	_, ok, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if ok {
		t.Error("Load() ok = true, want false for empty store")
	}
}

func TestSQLiteTokenStore_SaveLoad(t *testing.T) {
	store := tado.NewSQLiteTokenStore(openTestDB(t))
	ctx := context.Background()

	expiry := time.Date(2026, 8, 31, 12, 30, 0, 0, time.UTC)
	creds := tado.Credentials{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		Expiry:       expiry,
	}

	if err := store.Save(ctx, creds); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, ok, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !ok {
		t.Fatal("Load() ok = false, want true")
	}
	if got.AccessToken != "access-1" {
		t.Errorf("AccessToken = %q, want access-1", got.AccessToken)
	}
	if got.RefreshToken != "refresh-1" {
		t.Errorf("RefreshToken = %q, want refresh-1", got.RefreshToken)
	}
	if !got.Expiry.Equal(expiry) {
		t.Errorf("Expiry = %v, want %v", got.Expiry, expiry)
	}
}

func TestSQLiteTokenStore_SaveReplaces(t *testing.T) {
	store := tado.NewSQLiteTokenStore(openTestDB(t))
	ctx := context.Background()

	first := tado.Credentials{AccessToken: "a1", RefreshToken: "r1", Expiry: time.Now().UTC()}
	second := tado.Credentials{AccessToken: "a2", RefreshToken: "r2", Expiry: time.Now().UTC().Add(time.Hour)}

	if err := store.Save(ctx, first); err != nil {
		t.Fatalf("Save(first) error = %v", err)
	}
	if err := store.Save(ctx, second); err != nil {
		t.Fatalf("Save(second) error = %v", err)
	}

	got, _, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.AccessToken != "a2" {
		t.Errorf("AccessToken = %q, want a2 after replacement", got.AccessToken)
	}
}

func TestSQLiteTokenStore_LegacyExpiry(t *testing.T) {
	db := openTestDB(t)
	store := tado.NewSQLiteTokenStore(db)
	ctx := context.Background()

	// A zone-less timestamp written by an earlier version.
	_, err := db.Exec(`
		INSERT INTO credentials (id, access_token, refresh_token, expiry, updated_at)
		VALUES (1, 'a1', 'r1', '2026-08-31T10:00:00', '2026-08-31T10:00:00')`)
	if err != nil {
		t.Fatalf("inserting legacy row: %v", err)
	}

	got, ok, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !ok {
		t.Fatal("Load() ok = false, want true")
	}

	want := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	if !got.Expiry.Equal(want) {
		t.Errorf("Expiry = %v, want legacy timestamp pinned to UTC %v", got.Expiry, want)
	}
}

func TestSQLiteTokenStore_Clear(t *testing.T) {
	store := tado.NewSQLiteTokenStore(openTestDB(t))
	ctx := context.Background()

	creds := tado.Credentials{AccessToken: "a1", RefreshToken: "r1", Expiry: time.Now().UTC()}
	if err := store.Save(ctx, creds); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}

	_, ok, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if ok {
		t.Error("Load() ok = true after Clear(), want false")
	}
}

// =============================================================================
// Home Cache Tests
// =============================================================================

func TestSQLiteTokenStore_LoadHomeEmpty(t *testing.T) {
	store := tado.NewSQLiteTokenStore(openTestDB(t))

	_, _, ok, err := store.LoadHome(context.Background())
	if err != nil {
		t.Fatalf("LoadHome() error = %v", err)
	}
	if ok {
		t.Error("LoadHome() ok = true, want false before any save")
	}
}

func TestSQLiteTokenStore_SaveLoadHome(t *testing.T) {
	store := tado.NewSQLiteTokenStore(openTestDB(t))
	ctx := context.Background()

	if err := store.SaveHome(ctx, 123456, "Hillside"); err != nil {
		t.Fatalf("SaveHome() error = %v", err)
	}

	id, name, ok, err := store.LoadHome(ctx)
	if err != nil {
		t.Fatalf("LoadHome() error = %v", err)
	}
	if !ok {
		t.Fatal("LoadHome() ok = false, want true")
	}
	if id != 123456 {
		t.Errorf("LoadHome() id = %d, want 123456", id)
	}
	if name != "Hillside" {
		t.Errorf("LoadHome() name = %q, want %q", name, "Hillside")
	}
}

func TestSQLiteTokenStore_SaveHomeReplaces(t *testing.T) {
	store := tado.NewSQLiteTokenStore(openTestDB(t))
	ctx := context.Background()

	if err := store.SaveHome(ctx, 111, "Old"); err != nil {
		t.Fatalf("SaveHome() error = %v", err)
	}
	if err := store.SaveHome(ctx, 222, "New"); err != nil {
		t.Fatalf("SaveHome() error = %v", err)
	}

	id, name, ok, err := store.LoadHome(ctx)
	if err != nil || !ok {
		t.Fatalf("LoadHome() = (%v, %v), want stored row", ok, err)
	}
	if id != 222 || name != "New" {
		t.Errorf("LoadHome() = (%d, %q), want (222, %q)", id, name, "New")
	}
}
