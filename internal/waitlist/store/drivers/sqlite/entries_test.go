package sqlite

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/waitlist/internal/waitlist/domain"
	"github.com/aussiebroadwan/waitlist/internal/waitlist/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	st, err := NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func pending(id, email, lookup string, now time.Time) domain.PendingEntry {
	return domain.PendingEntry{
		ID:                     id,
		Email:                  email,
		Locale:                 "en",
		GDPRConsent:            true,
		ConfirmTokenHash:       "hash-" + lookup,
		ConfirmTokenLookupHash: lookup,
		ConfirmSalt:            "salt-" + lookup,
		ConfirmExpiresAt:       now.Add(48 * time.Hour),
		ReferralCode:           "REF" + id,
		UTMSource:              "newsletter",
		Now:                    now,
	}
}

func TestUpsertPending(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("creates then refreshes", func(t *testing.T) {
		entries := newTestStore(t).Entries()

		res, err := entries.UpsertPending(ctx, pending("01A", "a@b.com", "L1", now))
		require.NoError(t, err)
		require.Equal(t, domain.UpsertCreated, res)

		second := pending("01B", "a@b.com", "L2", now.Add(time.Minute))
		second.Locale = "de"
		second.UTMSource = "ads"
		second.ReferralCode = "OTHER"
		res, err = entries.UpsertPending(ctx, second)
		require.NoError(t, err)
		require.Equal(t, domain.UpsertRefreshed, res)

		got, err := entries.FindByEmail(ctx, "A@B.com")
		require.NoError(t, err)
		require.Equal(t, "01A", got.ID)
		require.Equal(t, "de", got.Locale)
		require.Equal(t, "L2", got.ConfirmTokenLookupHash)
		require.Equal(t, "hash-L2", got.ConfirmTokenHash)
		require.Equal(t, "salt-L2", got.ConfirmSalt)
		require.Equal(t, "REF01A", got.ReferralCode)
		require.Equal(t, "newsletter", got.UTMSource)
		require.Equal(t, domain.StatusPending, got.Status)
		require.NotNil(t, got.ConfirmExpiresAt)
		require.True(t, got.ConfirmExpiresAt.Equal(now.Add(time.Minute).Add(48*time.Hour)))
		require.True(t, got.CreatedAt.Equal(now))

		_, err = entries.FindByTokenHash(ctx, "L1")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("revives an expired entry", func(t *testing.T) {
		entries := newTestStore(t).Entries()

		_, err := entries.UpsertPending(ctx, pending("01A", "a@b.com", "L1", now))
		require.NoError(t, err)
		_, err = entries.MarkExpiredByTokenHash(ctx, "L1", now)
		require.NoError(t, err)

		res, err := entries.UpsertPending(ctx, pending("01B", "a@b.com", "L2", now))
		require.NoError(t, err)
		require.Equal(t, domain.UpsertRefreshed, res)

		got, err := entries.FindByTokenHash(ctx, "L2")
		require.NoError(t, err)
		require.Equal(t, domain.StatusPending, got.Status)
	})

	t.Run("never touches a confirmed entry", func(t *testing.T) {
		entries := newTestStore(t).Entries()

		_, err := entries.UpsertPending(ctx, pending("01A", "a@b.com", "L1", now))
		require.NoError(t, err)
		res, err := entries.MarkConfirmedByTokenHash(ctx, "L1", now.Add(time.Hour))
		require.NoError(t, err)
		require.Equal(t, domain.ConfirmResultConfirmed, res)

		up, err := entries.UpsertPending(ctx, pending("01B", "a@b.com", "L2", now.Add(2*time.Hour)))
		require.NoError(t, err)
		require.Equal(t, domain.UpsertAlreadyConfirmed, up)

		got, err := entries.FindByEmail(ctx, "a@b.com")
		require.NoError(t, err)
		require.Equal(t, domain.StatusConfirmed, got.Status)
		require.Empty(t, got.ConfirmTokenLookupHash)
		require.Equal(t, "L1", got.ConsumedTokenLookupHash)
	})
}

func TestMarkConfirmedByTokenHash(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("confirms and clears token fields", func(t *testing.T) {
		entries := newTestStore(t).Entries()
		_, err := entries.UpsertPending(ctx, pending("01A", "a@b.com", "L1", now))
		require.NoError(t, err)

		at := now.Add(time.Hour)
		res, err := entries.MarkConfirmedByTokenHash(ctx, "L1", at)
		require.NoError(t, err)
		require.Equal(t, domain.ConfirmResultConfirmed, res)

		got, err := entries.FindByTokenHash(ctx, "L1")
		require.NoError(t, err)
		require.Equal(t, domain.StatusConfirmed, got.Status)
		require.False(t, got.HasTokenFields())
		require.Empty(t, got.ConfirmTokenHash)
		require.Empty(t, got.ConfirmSalt)
		require.Nil(t, got.ConfirmExpiresAt)
		require.NotNil(t, got.ConfirmedAt)
		require.True(t, got.ConfirmedAt.Equal(at))

		res, err = entries.MarkConfirmedByTokenHash(ctx, "L1", at)
		require.NoError(t, err)
		require.Equal(t, domain.ConfirmResultAlready, res)
	})

	t.Run("expires a pending entry past its deadline", func(t *testing.T) {
		entries := newTestStore(t).Entries()
		_, err := entries.UpsertPending(ctx, pending("01A", "a@b.com", "L1", now))
		require.NoError(t, err)

		res, err := entries.MarkConfirmedByTokenHash(ctx, "L1", now.Add(49*time.Hour))
		require.NoError(t, err)
		require.Equal(t, domain.ConfirmResultExpired, res)

		got, err := entries.FindByTokenHash(ctx, "L1")
		require.NoError(t, err)
		require.Equal(t, domain.StatusExpired, got.Status)
	})

	t.Run("unknown hash", func(t *testing.T) {
		entries := newTestStore(t).Entries()
		res, err := entries.MarkConfirmedByTokenHash(ctx, "nope", now)
		require.NoError(t, err)
		require.Equal(t, domain.ConfirmResultNotFound, res)
	})

	t.Run("only one concurrent caller confirms", func(t *testing.T) {
		entries := newTestStore(t).Entries()
		_, err := entries.UpsertPending(ctx, pending("01A", "a@b.com", "L1", now))
		require.NoError(t, err)

		const workers = 8
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			results = map[domain.ConfirmResult]int{}
		)
		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				res, err := entries.MarkConfirmedByTokenHash(ctx, "L1", now.Add(time.Minute))
				assert.NoError(t, err)
				mu.Lock()
				results[res]++
				mu.Unlock()
			}()
		}
		wg.Wait()

		require.Equal(t, 1, results[domain.ConfirmResultConfirmed])
		require.Equal(t, workers-1, results[domain.ConfirmResultAlready])
	})
}

func TestMarkExpiredByTokenHash(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	entries := newTestStore(t).Entries()

	_, err := entries.UpsertPending(ctx, pending("01A", "a@b.com", "L1", now))
	require.NoError(t, err)
	_, err = entries.UpsertPending(ctx, pending("01B", "c@d.com", "L2", now))
	require.NoError(t, err)
	_, err = entries.MarkConfirmedByTokenHash(ctx, "L2", now)
	require.NoError(t, err)

	res, err := entries.MarkExpiredByTokenHash(ctx, "L1", now)
	require.NoError(t, err)
	require.Equal(t, domain.ExpireResultExpired, res)

	// Idempotent on an already expired entry.
	res, err = entries.MarkExpiredByTokenHash(ctx, "L1", now)
	require.NoError(t, err)
	require.Equal(t, domain.ExpireResultExpired, res)

	// A confirmed entry is never downgraded, and its consumed hash does not
	// report expired.
	res, err = entries.MarkExpiredByTokenHash(ctx, "L2", now)
	require.NoError(t, err)
	require.Equal(t, domain.ExpireResultNotFound, res)
	got, err := entries.FindByEmail(ctx, "c@d.com")
	require.NoError(t, err)
	require.Equal(t, domain.StatusConfirmed, got.Status)

	res, err = entries.MarkExpiredByTokenHash(ctx, "missing", now)
	require.NoError(t, err)
	require.Equal(t, domain.ExpireResultNotFound, res)
}

func TestExpireStalePendingAndCounts(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	entries := newTestStore(t).Entries()

	for i := range 3 {
		p := pending(fmt.Sprintf("01%d", i), fmt.Sprintf("u%d@b.com", i), fmt.Sprintf("L%d", i), now)
		if i == 2 {
			p.ConfirmExpiresAt = now.Add(96 * time.Hour)
			p.ReferredByID = "010"
		}
		_, err := entries.UpsertPending(ctx, p)
		require.NoError(t, err)
	}
	_, err := entries.MarkConfirmedByTokenHash(ctx, "L0", now)
	require.NoError(t, err)

	n, err := entries.ExpireStalePending(ctx, now.Add(50*time.Hour))
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	counts, err := entries.CountByStatus(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, counts[domain.StatusConfirmed])
	require.EqualValues(t, 1, counts[domain.StatusExpired])
	require.EqualValues(t, 1, counts[domain.StatusPending])

	referred, err := entries.CountReferred(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, referred)

	got, err := entries.FindByReferralCode(ctx, "REF011")
	require.NoError(t, err)
	require.Equal(t, "u1@b.com", got.Email)

	_, err = entries.FindByReferralCode(ctx, "NOPE")
	require.ErrorIs(t, err, store.ErrNotFound)
}
