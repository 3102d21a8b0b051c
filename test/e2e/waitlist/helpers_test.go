package waitlist_test

import (
	"context"
	"io"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/waitlist/internal/waitlist/app"
	"github.com/aussiebroadwan/waitlist/internal/waitlist/mailer"
	"github.com/aussiebroadwan/waitlist/pkg/jwtx"
	"github.com/aussiebroadwan/waitlist/pkg/waitlistsdk"
	"github.com/stretchr/testify/require"
)

/*
 * Common helpers for waitlist end-to-end tests. Each test gets a fully wired
 * application on a temporary sqlite file, served over a real listener and
 * driven through the public SDK.
 */

const (
	adminIssuer   = "waitlist"
	adminAudience = "waitlist-admin"
)

var adminSecret = strings.Repeat("e2e-secret-", 4)

// inbox records confirmation emails instead of sending them.
type inbox struct {
	mu   sync.Mutex
	msgs []mailer.Confirmation
}

func (i *inbox) SendConfirmation(_ context.Context, msg mailer.Confirmation) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.msgs = append(i.msgs, msg)
	return nil
}

func (i *inbox) count() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.msgs)
}

// latestToken returns the token from the newest email sent to email.
func (i *inbox) latestToken(t *testing.T, email string) string {
	t.Helper()
	i.mu.Lock()
	defer i.mu.Unlock()
	for n := len(i.msgs) - 1; n >= 0; n-- {
		if i.msgs[n].Email == email {
			return i.msgs[n].Token
		}
	}
	t.Fatalf("no confirmation email for %s", email)
	return ""
}

type env struct {
	client *waitlistsdk.Client
	inbox  *inbox
}

func baseConfig(t *testing.T) app.Config {
	t.Helper()
	dir := t.TempDir()
	return app.Config{
		Env:                  "test",
		LogLevel:             "warn",
		LogFormat:            "json",
		ShutdownGracePeriod:  time.Second,
		HousekeepingInterval: time.Hour,
		BaseURL:              "https://waitlist.example",
		TokenTTL:             time.Hour,
		DBDriver:             "sqlite",
		DatabaseFile:         filepath.Join(dir, "waitlist.db"),
		RateLimitStore:       "memory",
		RateLimitKeySecret:   "e2e-ratelimit",
		CaptchaProvider:      "static",
		MailDriver:           "log",
		AdminJWTSecret:       adminSecret,
		AdminJWTIssuer:       adminIssuer,
		AdminJWTAudience:     adminAudience,
	}
}

// startWaitlist serves an application built from cfg and returns an SDK
// client pointed at it.
func startWaitlist(t *testing.T, cfg app.Config) *env {
	t.Helper()

	box := &inbox{}
	application, err := app.New(cfg, app.WithMailer(box), app.WithLogOutput(io.Discard))
	require.NoError(t, err)
	t.Cleanup(func() { _ = application.Close() })

	srv := httptest.NewServer(application.Handler())
	t.Cleanup(srv.Close)

	client := waitlistsdk.NewClient(srv.URL)
	client.HTTPClient = srv.Client()
	return &env{client: client, inbox: box}
}

func adminToken(t *testing.T, scopes ...string) string {
	t.Helper()
	signer, err := jwtx.NewHS256([]byte(adminSecret), adminIssuer, []string{adminAudience})
	require.NoError(t, err)

	token, err := signer.Sign(jwtx.NewClaims("e2e", scopes, time.Minute, adminIssuer, []string{adminAudience}, time.Now()))
	require.NoError(t, err)
	return token
}

func signup(email string) waitlistsdk.SignupRequest {
	return waitlistsdk.SignupRequest{
		Email:        email,
		Locale:       "en",
		Consent:      true,
		CaptchaToken: "e2e",
	}
}
