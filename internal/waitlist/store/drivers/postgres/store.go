// Package postgres is the PostgreSQL driver for the waitlist store, using the
// pgx stdlib adapter and goose for schema migrations.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/aussiebroadwan/waitlist/internal/waitlist/domain"
	"github.com/aussiebroadwan/waitlist/internal/waitlist/store"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Store is a PostgreSQL-backed store.Store.
type Store struct {
	db *sql.DB
}

// NewStore opens a connection pool for the given postgres URL.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// NewStoreFromDB wraps an existing handle.
func NewStoreFromDB(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Entries() store.Entries { return &entriesRepo{db: s.db} }

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func mapStringNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func mapNullTimePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

type entryRow struct {
	ID                      string
	Email                   string
	Locale                  string
	Status                  string
	ConfirmTokenHash        sql.NullString
	ConfirmTokenLookupHash  sql.NullString
	ConfirmSalt             sql.NullString
	ConfirmExpiresAt        sql.NullTime
	ConsumedTokenLookupHash sql.NullString
	GDPRConsent             bool
	ReferralCode            string
	ReferredByID            sql.NullString
	SelfReferralSuspect     bool
	UTMSource               string
	UTMMedium               string
	UTMCampaign             string
	ConfirmedAt             sql.NullTime
	CreatedAt               time.Time
	UpdatedAt               time.Time
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
		ConfirmTokenHash:        row.ConfirmTokenHash.String,
		ConfirmTokenLookupHash:  row.ConfirmTokenLookupHash.String,
		ConfirmSalt:             row.ConfirmSalt.String,
		ConfirmExpiresAt:        mapNullTimePtr(row.ConfirmExpiresAt),
		ConsumedTokenLookupHash: row.ConsumedTokenLookupHash.String,
		GDPRConsent:             row.GDPRConsent,
		ReferralCode:            row.ReferralCode,
		ReferredByID:            row.ReferredByID.String,
		SelfReferralSuspect:     row.SelfReferralSuspect,
		UTMSource:               row.UTMSource,
		UTMMedium:               row.UTMMedium,
		UTMCampaign:             row.UTMCampaign,
		ConfirmedAt:             mapNullTimePtr(row.ConfirmedAt),
		CreatedAt:               row.CreatedAt.UTC(),
		UpdatedAt:               row.UpdatedAt.UTC(),
	}
}
