// Package servicetest runs the reference backend in-process for tests.
package servicetest

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/cookie/internal/auth"
	"github.com/mmynk/cookie/internal/service"
	"github.com/mmynk/cookie/internal/storage/sqlite"
)

// PublicURL is the join-link base the test backend encodes in QR codes.
const PublicURL = "https://cookie.test"

// Backend is a running test backend.
type Backend struct {
	*httptest.Server

	Store    *sqlite.SQLiteStore
	JWT      *auth.JWTManager
	Registry *prometheus.Registry
}

// New starts a backend on a fresh SQLite database. It is shut down when the
// test ends.
func New(t testing.TB) *Backend {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "cookie.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	registry := prometheus.NewRegistry()
	handler := service.NewRouter(service.Config{
		Store:         store,
		Authenticator: auth.NewPasswordAuthenticator(store).WithCost(bcrypt.MinCost),
		JWT:           jwtManager,
		PublicURL:     PublicURL,
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		Registry:      registry,
	})

	srv := httptest.NewServer(handler)
	t.Cleanup(func() {
		srv.Close()
		store.Close()
	})

	return &Backend{
		Server:   srv,
		Store:    store,
		JWT:      jwtManager,
		Registry: registry,
	}
}
