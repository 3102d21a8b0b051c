package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/waitlist/internal/waitlist/captcha"
	"github.com/aussiebroadwan/waitlist/internal/waitlist/domain"
	"github.com/aussiebroadwan/waitlist/internal/waitlist/metrics"
	"github.com/aussiebroadwan/waitlist/internal/waitlist/ratelimit"
	"github.com/aussiebroadwan/waitlist/internal/waitlist/store"
	"github.com/aussiebroadwan/waitlist/pkg/slogx"
)

type SignupService struct {
	Issuer  *Issuer
	Limiter *ratelimit.Limiter
	Rule    ratelimit.Rule
	Captcha captcha.Verifier
	Metrics *metrics.Metrics

	// Locales restricts the accepted locales when non-empty.
	Locales []string
}

type SignupResult struct {
	Outcome domain.SignupOutcome
}

// Submit runs a signup through validation, CAPTCHA, rate limiting and
// self-referral detection before creating or refreshing the pending entry and
// emailing the confirmation link.
//
// Expected rejections come back as *ValidationError, ErrCaptchaFailed or
// *RateLimitedError. Any other error is an internal fault.
func (s *SignupService) Submit(ctx context.Context, in domain.SignupInput) (SignupResult, error) {
	log := slogx.FromContext(ctx)

	// 1. Shape.
	signup, fields := in.Validate(s.Locales)
	if fields != nil {
		return SignupResult{}, &ValidationError{Fields: fields}
	}

	// 2. CAPTCHA.
	verdict, err := s.Captcha.Verify(ctx, signup.CaptchaToken, signup.RemoteIP)
	if err != nil {
		return SignupResult{}, fmt.Errorf("verify captcha: %w", err)
	}
	if !verdict.Success {
		log.Info("captcha rejected", slog.Any("error_codes", verdict.ErrorCodes))
		return SignupResult{}, ErrCaptchaFailed
	}

	// 3. Rate limit per client IP.
	decision, err := s.Limiter.Enforce(ctx, s.Rule, signup.RemoteIP)
	if err != nil {
		return SignupResult{}, err
	}
	if !decision.Allowed {
		s.Metrics.RateLimited(s.Rule.Name)
		return SignupResult{}, &RateLimitedError{Rule: s.Rule.Name, RetryAfterSeconds: decision.RetryAfterSeconds}
	}

	// 4. Referral attribution and self-referral detection.
	req := issueRequest{
		Email:       signup.Email,
		Locale:      signup.Locale,
		UTMSource:   signup.UTMSource,
		UTMMedium:   signup.UTMMedium,
		UTMCampaign: signup.UTMCampaign,
	}
	if signup.ReferralCode != "" {
		referrer, err := s.Issuer.Store.Entries().FindByReferralCode(ctx, signup.ReferralCode)
		switch {
		case errors.Is(err, store.ErrNotFound):
			log.Debug("unknown referral code ignored")
		case err != nil:
			return SignupResult{}, fmt.Errorf("resolve referral code: %w", err)
		case referrer.Email == signup.Email:
			log.Warn("self referral suspected", slog.String("entry_id", referrer.ID))
			req.SelfReferralSuspect = true
		default:
			req.ReferredByID = referrer.ID
		}
	}

	// 5 and 6. Token, upsert, email.
	res, err := s.Issuer.Issue(ctx, req)
	if err != nil {
		return SignupResult{}, err
	}

	outcome := domain.SignupPending
	if res == domain.UpsertAlreadyConfirmed {
		outcome = domain.SignupAlreadyConfirmed
	}
	s.Metrics.Signup(string(outcome))

	// 7.
	return SignupResult{Outcome: outcome}, nil
}
