package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aussiebroadwan/waitlist/internal/waitlist/domain"
	"github.com/aussiebroadwan/waitlist/internal/waitlist/store"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"
)

var columns = []string{
	"id", "email", "locale", "status",
	"confirm_token_hash", "confirm_token_lookup_hash", "confirm_salt", "confirm_expires_at",
	"consumed_token_lookup_hash", "gdpr_consent", "referral_code", "referred_by_id",
	"self_referral_suspect", "utm_source", "utm_medium", "utm_campaign",
	"confirmed_at", "created_at", "updated_at",
}

func newRepoWithMock(t *testing.T) (*entriesRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return &entriesRepo{db: db}, mock
}

func entryRows(status, lookup, consumed string, now time.Time) *sqlmock.Rows {
	var lookupVal, expiresVal any
	if lookup != "" {
		lookupVal = lookup
		expiresVal = now.Add(time.Hour)
	}
	var consumedVal any
	if consumed != "" {
		consumedVal = consumed
	}
	return sqlmock.NewRows(columns).AddRow(
		"01A", "a@b.com", "en", status,
		nil, lookupVal, nil, expiresVal,
		consumedVal, true, "REF", nil,
		false, "", "", "",
		nil, now, now,
	)
}

func TestUpsertPendingResults(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	in := domain.PendingEntry{
		ID: "01NEW", Email: "a@b.com", Locale: "en", GDPRConsent: true,
		ConfirmTokenHash: "h", ConfirmTokenLookupHash: "l", ConfirmSalt: "s",
		ConfirmExpiresAt: now.Add(48 * time.Hour), ReferralCode: "REF", Now: now,
	}

	tests := []struct {
		name   string
		expect func(*sqlmock.ExpectedQuery)
		want   domain.UpsertResult
	}{
		{"created", func(q *sqlmock.ExpectedQuery) {
			q.WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("01NEW"))
		}, domain.UpsertCreated},
		{"refreshed", func(q *sqlmock.ExpectedQuery) {
			q.WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("01OLD"))
		}, domain.UpsertRefreshed},
		{"already confirmed", func(q *sqlmock.ExpectedQuery) {
			q.WillReturnRows(sqlmock.NewRows([]string{"id"}))
		}, domain.UpsertAlreadyConfirmed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newRepoWithMock(t)
			tt.expect(mock.ExpectQuery(upsertPending).WithArgs(
				"01NEW", "a@b.com", "en", "h", "l", "s", sqlmock.AnyArg(),
				true, "REF", nil, false, "", "", "", sqlmock.AnyArg(),
			))

			got, err := repo.UpsertPending(ctx, in)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}

	t.Run("db error", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(upsertPending).WillReturnError(errors.New("db down"))

		_, err := repo.UpsertPending(ctx, in)
		require.EqualError(t, err, "db down")
	})
}

func TestMarkConfirmedFallbacks(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("confirmed", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(markConfirmed).WithArgs("L1", now).WillReturnResult(sqlmock.NewResult(0, 1))

		got, err := repo.MarkConfirmedByTokenHash(ctx, "L1", now)
		require.NoError(t, err)
		require.Equal(t, domain.ConfirmResultConfirmed, got)
	})

	t.Run("already", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(markConfirmed).WithArgs("L1", now).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(findByTokenHash).WithArgs("L1").
			WillReturnRows(entryRows("confirmed", "", "L1", now))

		got, err := repo.MarkConfirmedByTokenHash(ctx, "L1", now)
		require.NoError(t, err)
		require.Equal(t, domain.ConfirmResultAlready, got)
	})

	t.Run("pending past deadline is expired", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(markConfirmed).WithArgs("L1", now).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(findByTokenHash).WithArgs("L1").
			WillReturnRows(entryRows("pending", "L1", "", now))
		mock.ExpectExec(markExpired).WithArgs("L1", now).WillReturnResult(sqlmock.NewResult(0, 1))

		got, err := repo.MarkConfirmedByTokenHash(ctx, "L1", now)
		require.NoError(t, err)
		require.Equal(t, domain.ConfirmResultExpired, got)
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(markConfirmed).WithArgs("L1", now).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(findByTokenHash).WithArgs("L1").WillReturnError(sql.ErrNoRows)

		got, err := repo.MarkConfirmedByTokenHash(ctx, "L1", now)
		require.NoError(t, err)
		require.Equal(t, domain.ConfirmResultNotFound, got)
	})
}

func TestMarkExpiredResults(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("pending entry is expired", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(markExpired).WithArgs("L1", now).WillReturnResult(sqlmock.NewResult(0, 1))

		got, err := repo.MarkExpiredByTokenHash(ctx, "L1", now)
		require.NoError(t, err)
		require.Equal(t, domain.ExpireResultExpired, got)
	})

	t.Run("already expired", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(markExpired).WithArgs("L1", now).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(hasLiveLookupHash).WithArgs("L1").
			WillReturnRows(sqlmock.NewRows([]string{"one"}).AddRow(1))

		got, err := repo.MarkExpiredByTokenHash(ctx, "L1", now)
		require.NoError(t, err)
		require.Equal(t, domain.ExpireResultExpired, got)
	})

	t.Run("consumed hash of a confirmed entry", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(markExpired).WithArgs("L1", now).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(hasLiveLookupHash).WithArgs("L1").WillReturnError(sql.ErrNoRows)

		got, err := repo.MarkExpiredByTokenHash(ctx, "L1", now)
		require.NoError(t, err)
		require.Equal(t, domain.ExpireResultNotFound, got)
	})

	t.Run("query error", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(markExpired).WithArgs("L1", now).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(hasLiveLookupHash).WithArgs("L1").WillReturnError(errors.New("conn reset"))

		_, err := repo.MarkExpiredByTokenHash(ctx, "L1", now)
		require.Error(t, err)
	})
}

func TestFindByEmailMapsRow(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	repo, mock := newRepoWithMock(t)
	mock.ExpectQuery(findByEmail).WithArgs("a@b.com").
		WillReturnRows(entryRows("pending", "L1", "", now))

	got, err := repo.FindByEmail(ctx, " A@B.com ")
	require.NoError(t, err)
	require.Equal(t, "01A", got.ID)
	require.Equal(t, domain.StatusPending, got.Status)
	require.Equal(t, "L1", got.ConfirmTokenLookupHash)
	require.NotNil(t, got.ConfirmExpiresAt)
	require.Nil(t, got.ConfirmedAt)
	require.Empty(t, got.ReferredByID)

	mock.ExpectQuery(findByEmail).WithArgs("ghost@b.com").WillReturnError(sql.ErrNoRows)
	_, err = repo.FindByEmail(ctx, "ghost@b.com")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestCounts(t *testing.T) {
	ctx := context.Background()
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(countByStatus).WillReturnRows(
		sqlmock.NewRows([]string{"status", "count"}).
			AddRow("pending", int64(4)).
			AddRow("confirmed", int64(2)),
	)
	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 4, counts[domain.StatusPending])
	require.EqualValues(t, 2, counts[domain.StatusConfirmed])
	require.EqualValues(t, 0, counts[domain.StatusExpired])

	mock.ExpectQuery(countReferred).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(3)))
	n, err := repo.CountReferred(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 3, n)

	mock.ExpectExec(expireStalePending).WithArgs(sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 5))
	expired, err := repo.ExpireStalePending(ctx, time.Now())
	require.NoError(t, err)
	require.EqualValues(t, 5, expired)
}

func TestApplyMigrationsUsesGoose(t *testing.T) {
	orig := gooseUpContext
	t.Cleanup(func() { gooseUpContext = orig })

	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	var gotDir string
	gooseUpContext = func(ctx context.Context, _ *sql.DB, dir string, _ ...goose.OptionsFunc) error {
		gotDir = dir
		return nil
	}
	require.NoError(t, NewStoreFromDB(db).ApplyMigrations())
	require.Equal(t, ".", gotDir)

	gooseUpContext = func(context.Context, *sql.DB, string, ...goose.OptionsFunc) error {
		return errors.New("boom")
	}
	require.EqualError(t, NewStoreFromDB(db).ApplyMigrations(), "boom")
}
