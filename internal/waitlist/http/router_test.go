package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/waitlist/internal/waitlist/captcha"
	"github.com/aussiebroadwan/waitlist/internal/waitlist/mailer"
	"github.com/aussiebroadwan/waitlist/internal/waitlist/ratelimit"
	"github.com/aussiebroadwan/waitlist/internal/waitlist/service"
	"github.com/aussiebroadwan/waitlist/internal/waitlist/store/drivers/sqlite"
	"github.com/aussiebroadwan/waitlist/pkg/cryptox"
	"github.com/aussiebroadwan/waitlist/pkg/jwtx"
	"github.com/aussiebroadwan/waitlist/pkg/waitlistsdk"
	"github.com/stretchr/testify/require"
)

var adminSecret = []byte(strings.Repeat("k", jwtx.MinSecretLength))

type outbox struct {
	mu   sync.Mutex
	sent []mailer.Confirmation
}

func (o *outbox) SendConfirmation(_ context.Context, msg mailer.Confirmation) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, msg)
	return nil
}

func (o *outbox) lastToken(t *testing.T) string {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	require.NotEmpty(t, o.sent)
	return o.sent[len(o.sent)-1].Token
}

type testServer struct {
	router *Router
	store  *sqlite.Store
	mail   *outbox
	signer *jwtx.HS256
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	keyer, err := cryptox.NewIdentifierKeyer([]byte("http-test-secret"))
	require.NoError(t, err)

	signer, err := jwtx.NewHS256(adminSecret, "waitlist", []string{"waitlist-admin"})
	require.NoError(t, err)

	mail := &outbox{}
	limiter := ratelimit.New(ratelimit.NewMemoryStore(), keyer)
	issuer := &service.Issuer{Store: st, Mailer: mail, BaseURL: "https://example.test/"}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := NewRouter(signer, "test", st, logger)
	r.SignupService = &service.SignupService{
		Issuer:  issuer,
		Limiter: limiter,
		Rule:    ratelimit.SubmitByIP,
		Captcha: captcha.StaticVerifier{Reject: []string{"bad-captcha"}},
	}
	r.ResendService = &service.ResendService{Issuer: issuer, Limiter: limiter, Rule: ratelimit.ResendByEmail}
	r.ConfirmService = &service.ConfirmService{Store: st}
	r.StatsService = &service.StatsService{Store: st}

	return &testServer{router: r, store: st, mail: mail, signer: signer}
}

func (s *testServer) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) apply() *testServer {
	s.router.ApplyRoutes()
	return s
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func signupBody(email string) string {
	return `{"email":"` + email + `","locale":"en","consent":true,"captcha_token":"ok"}`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) waitlistsdk.ErrorResponse {
	t.Helper()
	var resp waitlistsdk.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestSignupEndpoint(t *testing.T) {
	t.Run("accepted", func(t *testing.T) {
		s := newTestServer(t).apply()

		rec := s.serve(jsonRequest(http.MethodPost, "/v1/waitlist", signupBody("new@test.com")))
		require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
		require.JSONEq(t, `{"ok":true}`, rec.Body.String())
		require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
		require.Len(t, s.mail.sent, 1)
	})

	t.Run("already confirmed looks the same", func(t *testing.T) {
		s := newTestServer(t).apply()

		require.Equal(t, http.StatusAccepted, s.serve(jsonRequest(http.MethodPost, "/v1/waitlist", signupBody("a@test.com"))).Code)
		rec := s.serve(httptest.NewRequest(http.MethodGet, "/waitlist/confirm?token="+s.mail.lastToken(t), nil))
		require.Equal(t, http.StatusOK, rec.Code)

		rec = s.serve(jsonRequest(http.MethodPost, "/v1/waitlist", signupBody("a@test.com")))
		require.Equal(t, http.StatusAccepted, rec.Code)
		require.JSONEq(t, `{"ok":true}`, rec.Body.String())
		require.Len(t, s.mail.sent, 1)
	})

	t.Run("validation errors carry field details", func(t *testing.T) {
		s := newTestServer(t).apply()

		rec := s.serve(jsonRequest(http.MethodPost, "/v1/waitlist", `{"email":"nope","consent":false,"captcha_token":"ok"}`))
		require.Equal(t, http.StatusBadRequest, rec.Code)
		resp := decodeError(t, rec)
		require.Equal(t, waitlistsdk.ErrorCodeValidation, resp.Error)
		require.Contains(t, resp.Details, "email")
		require.Contains(t, resp.Details, "consent")
	})

	t.Run("captcha failure", func(t *testing.T) {
		s := newTestServer(t).apply()

		rec := s.serve(jsonRequest(http.MethodPost, "/v1/waitlist",
			`{"email":"bot@test.com","locale":"en","consent":true,"captcha_token":"bad-captcha"}`))
		require.Equal(t, http.StatusForbidden, rec.Code)
		require.Equal(t, waitlistsdk.ErrorCodeCaptchaFailed, decodeError(t, rec).Error)
		require.Empty(t, s.mail.sent)
	})

	t.Run("rate limited", func(t *testing.T) {
		s := newTestServer(t).apply()

		var rec *httptest.ResponseRecorder
		for i := 0; i <= ratelimit.SubmitByIP.Limit; i++ {
			rec = s.serve(jsonRequest(http.MethodPost, "/v1/waitlist", signupBody("user"+string(rune('a'+i))+"@test.com")))
		}
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		require.NotEmpty(t, rec.Header().Get("Retry-After"))
		require.Equal(t, waitlistsdk.ErrorCodeRateLimited, decodeError(t, rec).Error)
	})

	t.Run("requires json", func(t *testing.T) {
		s := newTestServer(t).apply()

		req := httptest.NewRequest(http.MethodPost, "/v1/waitlist", strings.NewReader("email=a@test.com"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := s.serve(req)
		require.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	})

	t.Run("rejects malformed json", func(t *testing.T) {
		s := newTestServer(t).apply()

		rec := s.serve(jsonRequest(http.MethodPost, "/v1/waitlist", `{"email":`))
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, waitlistsdk.ErrorCodeInvalidRequest, decodeError(t, rec).Error)
	})

	t.Run("rejects oversized bodies", func(t *testing.T) {
		s := newTestServer(t).apply()

		big := `{"email":"` + strings.Repeat("a", maxBodyBytes) + `@test.com"}`
		rec := s.serve(jsonRequest(http.MethodPost, "/v1/waitlist", big))
		require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})
}

func TestResendEndpoint(t *testing.T) {
	s := newTestServer(t).apply()

	rec := s.serve(jsonRequest(http.MethodPost, "/v1/waitlist/resend", `{"email":"ghost@test.com"}`))
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Empty(t, s.mail.sent)

	require.Equal(t, http.StatusAccepted, s.serve(jsonRequest(http.MethodPost, "/v1/waitlist", signupBody("real@test.com"))).Code)
	rec = s.serve(jsonRequest(http.MethodPost, "/v1/waitlist/resend", `{"email":"real@test.com"}`))
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, s.mail.sent, 2)

	rec = s.serve(jsonRequest(http.MethodPost, "/v1/waitlist/resend", `{"email":"bad"}`))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, decodeError(t, rec).Details, "email")
}

func TestConfirmEndpoint(t *testing.T) {
	t.Run("status codes", func(t *testing.T) {
		s := newTestServer(t).apply()
		require.Equal(t, http.StatusAccepted, s.serve(jsonRequest(http.MethodPost, "/v1/waitlist", signupBody("c@test.com"))).Code)
		token := s.mail.lastToken(t)

		cases := []struct {
			name   string
			token  string
			code   int
			status string
		}{
			{"confirmed", token, http.StatusOK, waitlistsdk.ConfirmStatusConfirmed},
			{"already", token, http.StatusOK, waitlistsdk.ConfirmStatusAlready},
			{"invalid", "short", http.StatusBadRequest, waitlistsdk.ConfirmStatusInvalid},
			{"not found", cryptox.MustGenerateToken(cryptox.TokenSize256), http.StatusNotFound, waitlistsdk.ConfirmStatusNotFound},
		}
		for _, tc := range cases {
			rec := s.serve(httptest.NewRequest(http.MethodGet, "/waitlist/confirm?token="+url.QueryEscape(tc.token), nil))
			require.Equal(t, tc.code, rec.Code, tc.name)

			var resp waitlistsdk.ConfirmResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			require.Equal(t, tc.status, resp.Status, tc.name)
		}
	})

	t.Run("expired", func(t *testing.T) {
		s := newTestServer(t)
		s.router.ConfirmService.Now = func() time.Time { return time.Now().Add(service.DefaultTokenTTL + time.Minute) }
		s.apply()

		require.Equal(t, http.StatusAccepted, s.serve(jsonRequest(http.MethodPost, "/v1/waitlist", signupBody("late@test.com"))).Code)
		rec := s.serve(httptest.NewRequest(http.MethodGet, "/waitlist/confirm?token="+s.mail.lastToken(t), nil))
		require.Equal(t, http.StatusGone, rec.Code)
	})

	t.Run("redirect mode", func(t *testing.T) {
		s := newTestServer(t)
		s.router.ConfirmRedirectURL = "https://launch.example/confirmed?lang=en"
		s.apply()

		rec := s.serve(httptest.NewRequest(http.MethodGet, "/waitlist/confirm?token=short", nil))
		require.Equal(t, http.StatusSeeOther, rec.Code)

		loc, err := url.Parse(rec.Header().Get("Location"))
		require.NoError(t, err)
		require.Equal(t, "launch.example", loc.Host)
		require.Equal(t, "invalid", loc.Query().Get("status"))
		require.Equal(t, "en", loc.Query().Get("lang"))
		require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	})
}

func TestStatsEndpoint(t *testing.T) {
	s := newTestServer(t).apply()
	require.Equal(t, http.StatusAccepted, s.serve(jsonRequest(http.MethodPost, "/v1/waitlist", signupBody("one@test.com"))).Code)

	bearer := func(scopes ...string) string {
		tok, err := s.signer.Sign(jwtx.NewClaims("ops", scopes, time.Minute, "waitlist", []string{"waitlist-admin"}, time.Now()))
		require.NoError(t, err)
		return "Bearer " + tok
	}

	t.Run("missing token", func(t *testing.T) {
		rec := s.serve(httptest.NewRequest(http.MethodGet, "/v1/admin/waitlist/stats", nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_token")
	})

	t.Run("wrong scope", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/admin/waitlist/stats", nil)
		req.Header.Set("Authorization", bearer("something:else"))
		require.Equal(t, http.StatusForbidden, s.serve(req).Code)
	})

	t.Run("counts", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/admin/waitlist/stats", nil)
		req.Header.Set("Authorization", bearer(ScopeStatsRead))
		rec := s.serve(req)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp waitlistsdk.StatsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, int64(1), resp.Pending)
		require.Equal(t, int64(1), resp.Total)
	})
}

func TestAdminDisabledWithoutVerifier(t *testing.T) {
	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	r := NewRouter(nil, "test", st, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r.ApplyRoutes()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/admin/waitlist/stats", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t).apply()

	rec := s.serve(httptest.NewRequest(http.MethodGet, "/livez", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var live waitlistsdk.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &live))
	require.Equal(t, "ok", live.Status)
	require.Equal(t, "test", live.Version)

	rec = s.serve(httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, s.store.Close())
	rec = s.serve(httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var ready waitlistsdk.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ready))
	require.Equal(t, "error", ready.Checks.Database)
}
