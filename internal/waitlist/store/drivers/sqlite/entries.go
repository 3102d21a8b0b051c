package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/aussiebroadwan/waitlist/internal/waitlist/domain"
	"github.com/aussiebroadwan/waitlist/internal/waitlist/store"
)

const entryColumns = `id, email, locale, status,
	confirm_token_hash, confirm_token_lookup_hash, confirm_salt, confirm_expires_at,
	consumed_token_lookup_hash, gdpr_consent, referral_code, referred_by_id,
	self_referral_suspect, utm_source, utm_medium, utm_campaign,
	confirmed_at, created_at, updated_at`

// The WHERE on the DO UPDATE branch leaves confirmed rows untouched, in which
// case no row is returned. Referral and first-touch attribution columns are
// only written on insert; the self-referral flag is sticky.
const upsertPending = `
INSERT INTO waitlist_entries (
	id, email, locale, status,
	confirm_token_hash, confirm_token_lookup_hash, confirm_salt, confirm_expires_at,
	gdpr_consent, referral_code, referred_by_id, self_referral_suspect,
	utm_source, utm_medium, utm_campaign, created_at, updated_at
) VALUES (?, ?, ?, 'pending', ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (email) DO UPDATE SET
	locale                    = excluded.locale,
	status                    = 'pending',
	confirm_token_hash        = excluded.confirm_token_hash,
	confirm_token_lookup_hash = excluded.confirm_token_lookup_hash,
	confirm_salt              = excluded.confirm_salt,
	confirm_expires_at        = excluded.confirm_expires_at,
	gdpr_consent              = excluded.gdpr_consent,
	self_referral_suspect     = (waitlist_entries.self_referral_suspect OR excluded.self_referral_suspect),
	updated_at                = excluded.updated_at
WHERE waitlist_entries.status <> 'confirmed'
RETURNING id`

const markConfirmed = `
UPDATE waitlist_entries SET
	status                     = 'confirmed',
	consumed_token_lookup_hash = confirm_token_lookup_hash,
	confirm_token_hash         = NULL,
	confirm_token_lookup_hash  = NULL,
	confirm_salt               = NULL,
	confirm_expires_at         = NULL,
	confirmed_at               = ?,
	updated_at                 = ?
WHERE confirm_token_lookup_hash = ?
  AND status = 'pending'
  AND confirm_expires_at > ?`

const markExpired = `
UPDATE waitlist_entries SET status = 'expired', updated_at = ?
WHERE confirm_token_lookup_hash = ? AND status = 'pending'`

const hasLiveLookupHash = `SELECT 1 FROM waitlist_entries WHERE confirm_token_lookup_hash = ?`

const expireStalePending = `
UPDATE waitlist_entries SET status = 'expired', updated_at = ?
WHERE status = 'pending'
  AND confirm_expires_at IS NOT NULL
  AND confirm_expires_at <= ?`

type entriesRepo struct {
	db *sql.DB
}

func (r *entriesRepo) UpsertPending(ctx context.Context, e domain.PendingEntry) (domain.UpsertResult, error) {
	now := toMillis(e.Now)

	var id string
	err := r.db.QueryRowContext(ctx, upsertPending,
		e.ID,
		e.Email,
		e.Locale,
		e.ConfirmTokenHash,
		e.ConfirmTokenLookupHash,
		e.ConfirmSalt,
		toMillis(e.ConfirmExpiresAt),
		e.GDPRConsent,
		e.ReferralCode,
		mapStringNull(e.ReferredByID),
		e.SelfReferralSuspect,
		e.UTMSource,
		e.UTMMedium,
		e.UTMCampaign,
		now,
		now,
	).Scan(&id)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return domain.UpsertAlreadyConfirmed, nil
	case err != nil:
		return 0, err
	case id == e.ID:
		return domain.UpsertCreated, nil
	default:
		return domain.UpsertRefreshed, nil
	}
}

func (r *entriesRepo) FindByTokenHash(ctx context.Context, lookupHash string) (domain.Entry, error) {
	return r.findOne(ctx,
		`SELECT `+entryColumns+` FROM waitlist_entries
		 WHERE confirm_token_lookup_hash = ? OR consumed_token_lookup_hash = ?
		 LIMIT 1`,
		lookupHash, lookupHash,
	)
}

func (r *entriesRepo) FindByEmail(ctx context.Context, email string) (domain.Entry, error) {
	return r.findOne(ctx,
		`SELECT `+entryColumns+` FROM waitlist_entries WHERE email = ?`,
		domain.NormalizeEmail(email),
	)
}

func (r *entriesRepo) FindByReferralCode(ctx context.Context, code string) (domain.Entry, error) {
	return r.findOne(ctx,
		`SELECT `+entryColumns+` FROM waitlist_entries WHERE referral_code = ?`,
		code,
	)
}

func (r *entriesRepo) MarkConfirmedByTokenHash(
	ctx context.Context,
	lookupHash string,
	now time.Time,
) (domain.ConfirmResult, error) {
	ms := toMillis(now)

	res, err := r.db.ExecContext(ctx, markConfirmed, ms, ms, lookupHash, ms)
	if err != nil {
		return "", err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return "", err
	}
	if n == 1 {
		return domain.ConfirmResultConfirmed, nil
	}

	// Nothing changed: find out why.
	entry, err := r.FindByTokenHash(ctx, lookupHash)
	if errors.Is(err, store.ErrNotFound) {
		return domain.ConfirmResultNotFound, nil
	}
	if err != nil {
		return "", err
	}

	switch entry.Status {
	case domain.StatusConfirmed:
		return domain.ConfirmResultAlready, nil
	case domain.StatusPending:
		if _, err := r.MarkExpiredByTokenHash(ctx, lookupHash, now); err != nil {
			return "", err
		}
	}
	return domain.ConfirmResultExpired, nil
}

func (r *entriesRepo) MarkExpiredByTokenHash(
	ctx context.Context,
	lookupHash string,
	now time.Time,
) (domain.ExpireResult, error) {
	res, err := r.db.ExecContext(ctx, markExpired, toMillis(now), lookupHash)
	if err != nil {
		return "", err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return "", err
	}
	if n == 1 {
		return domain.ExpireResultExpired, nil
	}

	// Only the live lookup hash counts; a consumed hash belongs to a
	// confirmed entry, which this call must not report as expired.
	var one int
	err = r.db.QueryRowContext(ctx, hasLiveLookupHash, lookupHash).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ExpireResultNotFound, nil
	}
	if err != nil {
		return "", err
	}
	return domain.ExpireResultExpired, nil
}

func (r *entriesRepo) ExpireStalePending(ctx context.Context, now time.Time) (int64, error) {
	ms := toMillis(now)
	res, err := r.db.ExecContext(ctx, expireStalePending, ms, ms)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *entriesRepo) CountByStatus(ctx context.Context) (map[domain.Status]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM waitlist_entries GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[domain.Status]int64{
		domain.StatusPending:   0,
		domain.StatusConfirmed: 0,
		domain.StatusExpired:   0,
	}
	for rows.Next() {
		var (
			status string
			n      int64
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[domain.Status(status)] = n
	}
	return counts, rows.Err()
}

func (r *entriesRepo) CountReferred(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM waitlist_entries WHERE referred_by_id IS NOT NULL`,
	).Scan(&n)
	return n, err
}

func (r *entriesRepo) findOne(ctx context.Context, query string, args ...any) (domain.Entry, error) {
	var row entryRow
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(row.dest()...); err != nil {
		return domain.Entry{}, mapNotFound(err)
	}
	return mapEntry(row), nil
}
