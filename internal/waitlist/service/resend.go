package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/waitlist/internal/waitlist/domain"
	"github.com/aussiebroadwan/waitlist/internal/waitlist/metrics"
	"github.com/aussiebroadwan/waitlist/internal/waitlist/ratelimit"
	"github.com/aussiebroadwan/waitlist/internal/waitlist/store"
	"github.com/aussiebroadwan/waitlist/pkg/slogx"
)

type ResendService struct {
	Issuer  *Issuer
	Limiter *ratelimit.Limiter
	Rule    ratelimit.Rule
	Metrics *metrics.Metrics
}

// Resend issues a new confirmation token for a pending or expired entry.
// Confirmed entries are never reset. Callers must not reveal the outcome to
// the requester.
func (s *ResendService) Resend(ctx context.Context, rawEmail string) (domain.ResendOutcome, error) {
	email, reason := domain.ValidateEmail(rawEmail)
	if reason != "" {
		return "", &ValidationError{Fields: map[string]string{"email": reason}}
	}

	decision, err := s.Limiter.Enforce(ctx, s.Rule, email)
	if err != nil {
		return "", err
	}
	if !decision.Allowed {
		s.Metrics.RateLimited(s.Rule.Name)
		return "", &RateLimitedError{Rule: s.Rule.Name, RetryAfterSeconds: decision.RetryAfterSeconds}
	}

	outcome, err := s.resend(ctx, email)
	if err != nil {
		return "", err
	}
	s.Metrics.Resend(string(outcome))
	return outcome, nil
}

func (s *ResendService) resend(ctx context.Context, email string) (domain.ResendOutcome, error) {
	entry, err := s.Issuer.Store.Entries().FindByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return domain.ResendNotFound, nil
	}
	if err != nil {
		return "", fmt.Errorf("find entry by email: %w", err)
	}
	if entry.Status == domain.StatusConfirmed {
		return domain.ResendAlreadyConfirmed, nil
	}

	ctx = slogx.With(ctx, "entry_id", entry.ID)
	res, err := s.Issuer.Issue(ctx, issueRequest{
		Email:  entry.Email,
		Locale: entry.Locale,
	})
	if err != nil {
		return "", err
	}
	// Confirmed between the lookup and the upsert.
	if res == domain.UpsertAlreadyConfirmed {
		return domain.ResendAlreadyConfirmed, nil
	}
	return domain.ResendSent, nil
}
