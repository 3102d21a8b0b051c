package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/aussiebroadwan/waitlist/internal/waitlist/domain"
	"github.com/aussiebroadwan/waitlist/internal/waitlist/store"
	_ "modernc.org/sqlite"
)

type Store struct {
	db  *sql.DB
	dsn string
}

func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// Every connection to ":memory:" is a separate database.
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
	}

	// Enforce FKs
	if _, err := db.ExecContext(context.Background(), `PRAGMA foreign_keys = ON;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{
		db:  db,
		dsn: dsn,
	}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// DB exposes the underlying handle for maintenance tooling and tests.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Entries() store.Entries { return &entriesRepo{db: s.db} }

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func mapNullString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

func mapStringNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func mapNullMillisPtr(n sql.NullInt64) *time.Time {
	if n.Valid {
		t := fromMillis(n.Int64)
		return &t
	}
	return nil
}

// entryRow mirrors the waitlist_entries columns in entryColumns order.
type entryRow struct {
	ID                      string
	Email                   string
	Locale                  string
	Status                  string
	ConfirmTokenHash        sql.NullString
	ConfirmTokenLookupHash  sql.NullString
	ConfirmSalt             sql.NullString
	ConfirmExpiresAt        sql.NullInt64
	ConsumedTokenLookupHash sql.NullString
	GDPRConsent             bool
	ReferralCode            string
	ReferredByID            sql.NullString
	SelfReferralSuspect     bool
	UTMSource               string
	UTMMedium               string
	UTMCampaign             string
	ConfirmedAt             sql.NullInt64
	CreatedAt               int64
	UpdatedAt               int64
}

func (r *entryRow) dest() []any {
	return []any{
		&r.ID, &r.Email, &r.Locale, &r.Status,
		&r.ConfirmTokenHash, &r.ConfirmTokenLookupHash, &r.ConfirmSalt, &r.ConfirmExpiresAt,
		&r.ConsumedTokenLookupHash, &r.GDPRConsent, &r.ReferralCode, &r.ReferredByID,
		&r.SelfReferralSuspect, &r.UTMSource, &r.UTMMedium, &r.UTMCampaign,
		&r.ConfirmedAt, &r.CreatedAt, &r.UpdatedAt,
	}
}

func mapEntry(row entryRow) domain.Entry {
	return domain.Entry{
		ID:                      row.ID,
		Email:                   row.Email,
		Locale:                  row.Locale,
		Status:                  domain.Status(row.Status),
		ConfirmTokenHash:        mapNullString(row.ConfirmTokenHash),
		ConfirmTokenLookupHash:  mapNullString(row.ConfirmTokenLookupHash),
		ConfirmSalt:             mapNullString(row.ConfirmSalt),
		ConfirmExpiresAt:        mapNullMillisPtr(row.ConfirmExpiresAt),
		ConsumedTokenLookupHash: mapNullString(row.ConsumedTokenLookupHash),
		GDPRConsent:             row.GDPRConsent,
		ReferralCode:            row.ReferralCode,
		ReferredByID:            mapNullString(row.ReferredByID),
		SelfReferralSuspect:     row.SelfReferralSuspect,
		UTMSource:               row.UTMSource,
		UTMMedium:               row.UTMMedium,
		UTMCampaign:             row.UTMCampaign,
		ConfirmedAt:             mapNullMillisPtr(row.ConfirmedAt),
		CreatedAt:               fromMillis(row.CreatedAt),
		UpdatedAt:               fromMillis(row.UpdatedAt),
	}
}
