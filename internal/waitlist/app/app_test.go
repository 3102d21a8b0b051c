package app

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	dir := t.TempDir()
	return Config{
		Env:                  "dev",
		LogLevel:             "error",
		LogFormat:            "json",
		Port:                 0,
		ShutdownGracePeriod:  time.Second,
		HousekeepingInterval: time.Hour,
		BaseURL:              "https://example.test",
		TokenTTL:             time.Hour,
		DBDriver:             "sqlite",
		DatabaseFile:         filepath.Join(dir, "waitlist.db"),
		RateLimitStore:       "badger",
		RateLimitBadgerDir:   filepath.Join(dir, "ratelimit"),
		RateLimitKeySecret:   "app-test-secret",
		CaptchaProvider:      "static",
		MailDriver:           "log",
		AdminJWTSecret:       strings.Repeat("a", 32),
		AdminJWTIssuer:       "waitlist",
		AdminJWTAudience:     "waitlist-admin",
	}
}

func TestNewWiresTheService(t *testing.T) {
	application, err := New(testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = application.Close() })

	h := application.Handler()

	req := httptest.NewRequest(http.MethodPost, "/v1/waitlist",
		bytes.NewBufferString(`{"email":"wired@test.com","locale":"en","consent":true,"captcha_token":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `waitlist_signups_total{outcome="pending"} 1`)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/admin/waitlist/stats", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.MailDriver = "pigeon"

	_, err := New(cfg)
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNewRejectsShortAdminSecret(t *testing.T) {
	cfg := testConfig(t)
	cfg.RateLimitStore = "memory"
	cfg.AdminJWTSecret = "short"

	_, err := New(cfg)
	require.Error(t, err)
}

func TestOpenStoreMigratesSQLite(t *testing.T) {
	cfg := testConfig(t)

	db, err := OpenStore(t.Context(), cfg)
	require.NoError(t, err)
	require.NoError(t, db.Ping(t.Context()))
	require.NoError(t, db.Close())

	// A second run against the same file is a no-op.
	db, err = OpenStore(t.Context(), cfg)
	require.NoError(t, err)
	require.NoError(t, db.Close())
}
