package http

import (
	"context"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/mushycosmas/kariakooshop/internal/auth"
	"github.com/mushycosmas/kariakooshop/internal/config"
	"github.com/mushycosmas/kariakooshop/internal/core"
	"github.com/mushycosmas/kariakooshop/internal/store"
	"github.com/mushycosmas/kariakooshop/internal/store/sqlite"
)

// testEnv bundles a running hub, an in-memory store, and an httptest
// server around the real router.
type testEnv struct {
	store store.Store
	auth  *auth.Service
	hub   *core.Hub
	ts    *httptest.Server
}

// createTestStore creates an in-memory SQLite store with schema applied.
func createTestStore(t *testing.T) store.Store {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	return st
}

// createTestAuthService creates an auth service for testing.
func createTestAuthService(t *testing.T, st store.Store, jwtSecret string) *auth.Service {
	t.Helper()

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte(jwtSecret),
		Issuer:   "test",
		Audience: "test",
		TTL:      24 * time.Hour,
	}

	return auth.NewService(st, jwtConfig)
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st := createTestStore(t)
	authService := createTestAuthService(t, st, "test-secret")

	hub := core.NewHub(st)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	disabledLogger := zerolog.New(nil)
	cfg := config.Config{
		Addr:              ":0",
		ReadHeaderTimeout: time.Second,
		ShutdownTimeout:   time.Second,
		MaxMessageBytes:   1 << 20,
	}

	server := NewServer(hub, authService, st, &cfg, &disabledLogger)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return &testEnv{
		store: st,
		auth:  authService,
		hub:   hub,
		ts:    ts,
	}
}

// register creates a user and returns its token and ID.
func (e *testEnv) register(t *testing.T, username, displayName string) (string, int64) {
	t.Helper()

	token, err := e.auth.Register(context.Background(), username, "password123", displayName)
	if err != nil {
		t.Fatalf("failed to register %s: %v", username, err)
	}
	user, err := e.store.GetUserByUsername(context.Background(), username)
	if err != nil {
		t.Fatalf("failed to look up %s: %v", username, err)
	}
	return token, user.ID
}

// createListing inserts a listing owned by sellerID.
func (e *testEnv) createListing(t *testing.T, sellerID int64, name string) *store.Listing {
	t.Helper()

	listing := &store.Listing{
		SellerID:  sellerID,
		Name:      name,
		Brand:     "Generic",
		Price:     "100000",
		ImagePath: "/uploads/item.jpg",
	}
	if err := e.store.CreateListing(context.Background(), listing); err != nil {
		t.Fatalf("failed to create listing: %v", err)
	}
	return listing
}

// doJSON performs an authenticated JSON request against the test server.
func (e *testEnv) doJSON(t *testing.T, method, path, token, body string) *stdhttp.Response {
	t.Helper()

	var req *stdhttp.Request
	var err error
	if body != "" {
		req, err = stdhttp.NewRequest(method, e.ts.URL+path, strings.NewReader(body))
	} else {
		req, err = stdhttp.NewRequest(method, e.ts.URL+path, nil)
	}
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}
