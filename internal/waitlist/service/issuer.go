package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/waitlist/internal/waitlist/domain"
	"github.com/aussiebroadwan/waitlist/internal/waitlist/mailer"
	"github.com/aussiebroadwan/waitlist/internal/waitlist/metrics"
	"github.com/aussiebroadwan/waitlist/internal/waitlist/store"
	"github.com/aussiebroadwan/waitlist/pkg/cryptox"
	"github.com/aussiebroadwan/waitlist/pkg/idx"
	"github.com/aussiebroadwan/waitlist/pkg/slogx"
)

// DefaultTokenTTL is how long a confirmation link stays valid.
const DefaultTokenTTL = 48 * time.Hour

// Issuer mints confirmation tokens, stores their hashes on the entry and
// emails the raw token. It is shared by signup and resend.
type Issuer struct {
	Store    store.Store
	Mailer   mailer.Sender
	BaseURL  string
	TokenTTL time.Duration
	Metrics  *metrics.Metrics

	// Now defaults to time.Now.
	Now func() time.Time
}

// issueRequest is the non-token part of a pending entry.
type issueRequest struct {
	Email               string
	Locale              string
	ReferredByID        string
	SelfReferralSuspect bool
	UTMSource           string
	UTMMedium           string
	UTMCampaign         string
}

func (i *Issuer) now() time.Time {
	if i.Now != nil {
		return i.Now().UTC()
	}
	return time.Now().UTC()
}

func (i *Issuer) ttl() time.Duration {
	if i.TokenTTL > 0 {
		return i.TokenTTL
	}
	return DefaultTokenTTL
}

// Issue upserts the pending entry with a fresh token and sends the
// confirmation email. A confirmed entry is left alone and no email is sent.
func (i *Issuer) Issue(ctx context.Context, req issueRequest) (domain.UpsertResult, error) {
	log := slogx.FromContext(ctx)
	now := i.now()

	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return 0, err
	}
	hashed, err := cryptox.HashToken(token, "")
	if err != nil {
		return 0, err
	}
	referralCode, err := idx.NewReferralCode()
	if err != nil {
		return 0, err
	}

	expiresAt := now.Add(i.ttl())
	pending := domain.PendingEntry{
		ID:                     idx.NewAt(now).String(),
		Email:                  req.Email,
		Locale:                 req.Locale,
		GDPRConsent:            true,
		ConfirmTokenHash:       hashed.Hash,
		ConfirmTokenLookupHash: hashed.LookupHash,
		ConfirmSalt:            hashed.Salt,
		ConfirmExpiresAt:       expiresAt,
		ReferralCode:           referralCode,
		ReferredByID:           req.ReferredByID,
		SelfReferralSuspect:    req.SelfReferralSuspect,
		UTMSource:              req.UTMSource,
		UTMMedium:              req.UTMMedium,
		UTMCampaign:            req.UTMCampaign,
		Now:                    now,
	}

	res, err := i.Store.Entries().UpsertPending(ctx, pending)
	if err != nil {
		return 0, fmt.Errorf("upsert pending entry: %w", err)
	}
	if res == domain.UpsertAlreadyConfirmed {
		log.Info("entry already confirmed, no email sent")
		return res, nil
	}

	err = i.Mailer.SendConfirmation(ctx, mailer.Confirmation{
		Email:     req.Email,
		Locale:    req.Locale,
		Token:     token,
		URL:       mailer.ConfirmURL(i.BaseURL, token),
		ExpiresAt: expiresAt,
	})
	if err != nil {
		i.Metrics.EmailFailure()
		return 0, fmt.Errorf("send confirmation email: %w", err)
	}

	log.Info("confirmation email sent",
		slog.String("upsert", res.String()),
		slog.Time("expires_at", expiresAt),
	)
	return res, nil
}
