package tado_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/tadolink/tadolink/internal/tado"
)

// memoryStore is an in-memory TokenStore for observing persistence.
type memoryStore struct {
	mu    sync.Mutex
	creds tado.Credentials
	saved int
}

func (s *memoryStore) Load(ctx context.Context) (tado.Credentials, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creds, s.saved > 0, nil
}

func (s *memoryStore) Save(ctx context.Context, creds tado.Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = creds
	s.saved++
	return nil
}

// newTokenServer returns a token endpoint that always issues nextToken.
func newTokenServer(t *testing.T, nextToken string, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			calls.Add(1)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token": "` + nextToken + `", "refresh_token": "refresh-2", "expires_in": 600}`))
	}))
}

// =============================================================================
// Resilient Request Tests
// =============================================================================

func TestRequest_RefreshAndRetryOn401(t *testing.T) {
	var refreshes atomic.Int32
	tokenSrv := newTokenServer(t, "access-2", &refreshes)
	defer tokenSrv.Close()

	var apiCalls atomic.Int32
	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiCalls.Add(1)
		if r.URL.Path != "/homes/42/rooms" {
			t.Errorf("path = %s, want /homes/42/rooms", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer access-2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id": 7, "name": "Lounge"}]`))
	}))
	defer apiSrv.Close()

	client := tado.New(tado.Config{
		TokenURL:    tokenSrv.URL,
		HopsURL:     apiSrv.URL,
		Credentials: futureCreds(),
	})
	client.SetHomeID(42)

	rooms, err := client.Rooms(context.Background())
	if err != nil {
		t.Fatalf("Rooms() error = %v", err)
	}
	if len(rooms) != 1 || rooms[0].Name != "Lounge" {
		t.Errorf("Rooms() = %+v, want one room named Lounge", rooms)
	}
	if got := refreshes.Load(); got != 1 {
		t.Errorf("token refreshes = %d, want 1", got)
	}
	if got := apiCalls.Load(); got != 2 {
		t.Errorf("api calls = %d, want 2 (401 then retry)", got)
	}
}

func TestRequest_PersistentUnauthorized(t *testing.T) {
	var refreshes atomic.Int32
	tokenSrv := newTokenServer(t, "access-2", &refreshes)
	defer tokenSrv.Close()

	var apiCalls atomic.Int32
	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiCalls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer apiSrv.Close()

	client := tado.New(tado.Config{
		TokenURL:    tokenSrv.URL,
		HopsURL:     apiSrv.URL,
		Credentials: futureCreds(),
	})
	client.SetHomeID(42)

	_, err := client.Rooms(context.Background())
	if err == nil {
		t.Fatal("Rooms() should fail when the retry is also rejected")
	}

	var apiErr *tado.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Rooms() error = %T, want *APIError", err)
	}
	if apiErr.Status != http.StatusUnauthorized {
		t.Errorf("APIError.Status = %d, want 401", apiErr.Status)
	}
	if got := refreshes.Load(); got != 1 {
		t.Errorf("token refreshes = %d, want exactly 1", got)
	}
	if got := apiCalls.Load(); got != 2 {
		t.Errorf("api calls = %d, want 2", got)
	}
}

func TestRequest_ServerErrorSurfacesStatus(t *testing.T) {
	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boiler room on fire", http.StatusInternalServerError)
	}))
	defer apiSrv.Close()

	client := tado.New(tado.Config{HopsURL: apiSrv.URL, Credentials: futureCreds()})
	client.SetHomeID(42)

	_, err := client.Rooms(context.Background())
	var apiErr *tado.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Rooms() error = %T, want *APIError", err)
	}
	if apiErr.Status != http.StatusInternalServerError {
		t.Errorf("APIError.Status = %d, want 500", apiErr.Status)
	}
}

func TestRequest_NoContent(t *testing.T) {
	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %s, want PUT", r.Method)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer apiSrv.Close()

	client := tado.New(tado.Config{MyAPIURL: apiSrv.URL, Credentials: futureCreds()})
	client.SetHomeID(42)

	if err := client.SetPresence(context.Background(), tado.PresenceAway); err != nil {
		t.Fatalf("SetPresence() error = %v", err)
	}
}

func TestRequest_HomeNotSet(t *testing.T) {
	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request should be made when the home id is unset")
	}))
	defer apiSrv.Close()

	client := tado.New(tado.Config{HopsURL: apiSrv.URL, Credentials: futureCreds()})

	_, err := client.Rooms(context.Background())
	if !errors.Is(err, tado.ErrHomeNotSet) {
		t.Errorf("Rooms() error = %v, want ErrHomeNotSet", err)
	}
}

func TestRequest_PersistsRotatedTokens(t *testing.T) {
	tokenSrv := newTokenServer(t, "access-2", nil)
	defer tokenSrv.Close()

	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`[]`))
	}))
	defer apiSrv.Close()

	store := &memoryStore{}
	client := tado.New(tado.Config{
		TokenURL:    tokenSrv.URL,
		HopsURL:     apiSrv.URL,
		Store:       store,
		Credentials: futureCreds(),
	})
	client.SetHomeID(42)

	if _, err := client.Rooms(context.Background()); err != nil {
		t.Fatalf("Rooms() error = %v", err)
	}

	saved, ok, err := store.Load(context.Background())
	if err != nil || !ok {
		t.Fatalf("Load() = (_, %v, %v), want stored credentials", ok, err)
	}
	if saved.AccessToken != "access-2" {
		t.Errorf("stored AccessToken = %q, want access-2", saved.AccessToken)
	}
	if saved.RefreshToken != "refresh-2" {
		t.Errorf("stored RefreshToken = %q, want refresh-2", saved.RefreshToken)
	}
}
