package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/waitlist/internal/waitlist/domain"
	"github.com/aussiebroadwan/waitlist/internal/waitlist/metrics"
	"github.com/aussiebroadwan/waitlist/internal/waitlist/store"
	"github.com/aussiebroadwan/waitlist/pkg/cryptox"
	"github.com/aussiebroadwan/waitlist/pkg/slogx"
)

// MinTokenLength rejects obviously malformed tokens before touching the store.
const MinTokenLength = 20

type ConfirmService struct {
	Store   store.Store
	Metrics *metrics.Metrics

	// Now defaults to time.Now.
	Now func() time.Time
}

func (s *ConfirmService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// ProcessToken runs a raw confirmation token through the confirmation state
// machine. Every expected branch is a ConfirmOutcome; an error means the store
// failed and the outcome is unknown.
func (s *ConfirmService) ProcessToken(ctx context.Context, rawToken string) (domain.ConfirmOutcome, error) {
	outcome, err := s.processToken(ctx, rawToken)
	if err != nil {
		slogx.FromContext(ctx).Error("confirmation failed", slog.Any("error", err))
		return "", err
	}
	s.Metrics.Confirmation(string(outcome))
	return outcome, nil
}

func (s *ConfirmService) processToken(ctx context.Context, rawToken string) (domain.ConfirmOutcome, error) {
	log := slogx.FromContext(ctx)
	entries := s.Store.Entries()
	now := s.now()

	// 1. Cheap shape check.
	if len(rawToken) < MinTokenLength {
		return domain.ConfirmOutcomeInvalid, nil
	}

	// 2. Look the entry up by the unsalted fingerprint.
	lookupHash := cryptox.FingerprintToken(rawToken)
	entry, err := entries.FindByTokenHash(ctx, lookupHash)
	if errors.Is(err, store.ErrNotFound) {
		return domain.ConfirmOutcomeNotFound, nil
	}
	if err != nil {
		return "", fmt.Errorf("find entry by token: %w", err)
	}

	log = log.With(slog.String("entry_id", entry.ID))

	// 3. Re-visit of a confirm link.
	if entry.Status == domain.StatusConfirmed {
		return domain.ConfirmOutcomeAlready, nil
	}

	// 4. Already expired.
	if entry.Status == domain.StatusExpired {
		return domain.ConfirmOutcomeExpired, nil
	}

	// 5. Deadline absent or passed.
	if entry.ConfirmExpiresAt == nil || !entry.ConfirmExpiresAt.After(now) {
		log.Info("confirmation token past its deadline")
		return s.expire(ctx, lookupHash, now)
	}

	// 6. Inconsistent record: fail safe.
	if entry.ConfirmSalt == "" || entry.ConfirmTokenHash == "" {
		log.Warn("pending entry is missing token hash fields")
		return s.expire(ctx, lookupHash, now)
	}

	// 7. Verify the salted hash.
	recomputed, err := cryptox.HashToken(rawToken, entry.ConfirmSalt)
	if err != nil {
		log.Warn("stored confirmation salt is unusable", slog.Any("error", err))
		return s.expire(ctx, lookupHash, now)
	}
	if !cryptox.ConstantTimeEquals(recomputed.Hash, entry.ConfirmTokenHash) {
		log.Warn("confirmation token hash mismatch")
		return s.expire(ctx, lookupHash, now)
	}

	// 8. Conditional confirm; the store result passes through unchanged.
	res, err := entries.MarkConfirmedByTokenHash(ctx, lookupHash, now)
	if err != nil {
		return "", fmt.Errorf("mark confirmed: %w", err)
	}

	if res == domain.ConfirmResultConfirmed {
		log.Info("waitlist entry confirmed")
	}
	return confirmOutcome(res), nil
}

// expire marks the entry behind lookupHash expired and reports expired, or
// not_found when the entry vanished in the meantime.
func (s *ConfirmService) expire(ctx context.Context, lookupHash string, now time.Time) (domain.ConfirmOutcome, error) {
	res, err := s.Store.Entries().MarkExpiredByTokenHash(ctx, lookupHash, now)
	if err != nil {
		return "", fmt.Errorf("mark expired: %w", err)
	}
	if res == domain.ExpireResultNotFound {
		return domain.ConfirmOutcomeNotFound, nil
	}
	return domain.ConfirmOutcomeExpired, nil
}

func confirmOutcome(res domain.ConfirmResult) domain.ConfirmOutcome {
	switch res {
	case domain.ConfirmResultConfirmed:
		return domain.ConfirmOutcomeConfirmed
	case domain.ConfirmResultAlready:
		return domain.ConfirmOutcomeAlready
	case domain.ConfirmResultExpired:
		return domain.ConfirmOutcomeExpired
	default:
		return domain.ConfirmOutcomeNotFound
	}
}
