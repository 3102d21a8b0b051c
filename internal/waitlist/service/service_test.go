package service

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/waitlist/internal/waitlist/captcha"
	"github.com/aussiebroadwan/waitlist/internal/waitlist/domain"
	"github.com/aussiebroadwan/waitlist/internal/waitlist/mailer"
	"github.com/aussiebroadwan/waitlist/internal/waitlist/ratelimit"
	"github.com/aussiebroadwan/waitlist/internal/waitlist/store/drivers/sqlite"
	"github.com/aussiebroadwan/waitlist/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

type fakeMailer struct {
	mu   sync.Mutex
	sent []mailer.Confirmation
	err  error
}

func (m *fakeMailer) SendConfirmation(_ context.Context, msg mailer.Confirmation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// lastToken returns the raw token carried by the most recent confirmation URL.
func (m *fakeMailer) lastToken(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent, "no confirmation email sent")

	u, err := url.Parse(m.sent[len(m.sent)-1].URL)
	require.NoError(t, err)
	return u.Query().Get("token")
}

type failingStore struct{}

func (failingStore) Hit(context.Context, string, time.Time, int, time.Duration) (ratelimit.HitResult, error) {
	return ratelimit.HitResult{}, errors.New("store down")
}

type harness struct {
	store   *sqlite.Store
	mail    *fakeMailer
	now     time.Time
	signup  *SignupService
	resend  *ResendService
	confirm *ConfirmService
}

func (h *harness) clock() time.Time { return h.now }

func (h *harness) advance(d time.Duration) { h.now = h.now.Add(d) }

func newHarness(t *testing.T) *harness {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	keyer, err := cryptox.NewIdentifierKeyer([]byte("test-secret"))
	require.NoError(t, err)

	h := &harness{
		store: st,
		mail:  &fakeMailer{},
		now:   time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
	}
	limiter := ratelimit.New(ratelimit.NewMemoryStore(), keyer, ratelimit.WithClock(h.clock))

	issuer := &Issuer{
		Store:   st,
		Mailer:  h.mail,
		BaseURL: "https://example.test/",
		Now:     h.clock,
	}
	h.signup = &SignupService{
		Issuer:  issuer,
		Limiter: limiter,
		Rule:    ratelimit.SubmitByIP,
		Captcha: captcha.StaticVerifier{Reject: []string{"bad-captcha"}},
	}
	h.resend = &ResendService{
		Issuer:  issuer,
		Limiter: limiter,
		Rule:    ratelimit.ResendByEmail,
	}
	h.confirm = &ConfirmService{Store: st, Now: h.clock}
	return h
}

func signupInput(email string) domain.SignupInput {
	return domain.SignupInput{
		Email:        email,
		Locale:       "en",
		Consent:      true,
		CaptchaToken: "ok-captcha",
		RemoteIP:     "198.51.100.7",
	}
}

func (h *harness) entry(t *testing.T, email string) domain.Entry {
	t.Helper()
	e, err := h.store.Entries().FindByEmail(context.Background(), email)
	require.NoError(t, err)
	return e
}

func newFailingLimiter(t *testing.T) *ratelimit.Limiter {
	t.Helper()
	keyer, err := cryptox.NewIdentifierKeyer([]byte("test-secret"))
	require.NoError(t, err)
	return ratelimit.New(failingStore{}, keyer)
}
