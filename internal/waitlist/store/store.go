package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/waitlist/internal/waitlist/domain"
)

var ErrNotFound = errors.New("store: not found")

// Store is the root data access interface. Concrete drivers (sqlite, postgres)
// implement this and expose the entries repository through it.
type Store interface {
	Entries() Entries

	ApplyMigrations() error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Entries is the whole contract the waitlist needs from a record store. Every
// mutating method is a single conditional statement, so no caller ever needs
// a transaction or an in-process lock.
type Entries interface {
	// UpsertPending creates the entry if absent. If present and not confirmed
	// it overwrites the token fields and resets the status to pending. A
	// confirmed entry is left untouched and UpsertAlreadyConfirmed is returned.
	UpsertPending(ctx context.Context, e domain.PendingEntry) (domain.UpsertResult, error)

	// FindByTokenHash returns the entry whose current or consumed lookup hash
	// matches. Returns ErrNotFound when nothing matches.
	FindByTokenHash(ctx context.Context, lookupHash string) (domain.Entry, error)

	// MarkConfirmedByTokenHash atomically moves a pending, unexpired entry to
	// confirmed and clears its token fields. Only one concurrent caller can
	// observe ConfirmResultConfirmed for a given token.
	MarkConfirmedByTokenHash(ctx context.Context, lookupHash string, now time.Time) (domain.ConfirmResult, error)

	// MarkExpiredByTokenHash moves a pending entry to expired. Confirmed
	// entries are never downgraded; only the live lookup hash is matched, so
	// a consumed hash reports not found.
	MarkExpiredByTokenHash(ctx context.Context, lookupHash string, now time.Time) (domain.ExpireResult, error)

	// FindByEmail looks an entry up by its normalized email.
	FindByEmail(ctx context.Context, email string) (domain.Entry, error)

	// FindByReferralCode looks an entry up by its own referral code.
	FindByReferralCode(ctx context.Context, code string) (domain.Entry, error)

	// ExpireStalePending marks pending entries whose token expired before now
	// as expired and returns how many changed (housekeeping).
	ExpireStalePending(ctx context.Context, now time.Time) (int64, error)

	// CountByStatus returns the number of entries per status.
	CountByStatus(ctx context.Context) (map[domain.Status]int64, error)

	// CountReferred returns how many entries were referred by another entry.
	CountReferred(ctx context.Context) (int64, error)
}
