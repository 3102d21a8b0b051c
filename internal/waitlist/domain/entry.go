package domain

import (
	"strings"
	"time"
)

// Status is the persisted lifecycle state of a waitlist entry.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusExpired   Status = "expired"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusExpired:
		return true
	}
	return false
}

// Entry is a single waitlist signup, one per normalized email.
//
// ConfirmTokenHash, ConfirmTokenLookupHash and ConfirmSalt are either all set
// or all empty; they are cleared once the entry is confirmed.
type Entry struct {
	ID     string
	Email  string
	Locale string
	Status Status

	ConfirmTokenHash       string
	ConfirmTokenLookupHash string
	ConfirmSalt            string
	ConfirmExpiresAt       *time.Time

	// ConsumedTokenLookupHash is the lookup hash of the token that confirmed
	// this entry, so a repeated confirm link still resolves to the entry.
	ConsumedTokenLookupHash string

	GDPRConsent         bool
	ReferralCode        string
	ReferredByID        string
	SelfReferralSuspect bool

	UTMSource   string
	UTMMedium   string
	UTMCampaign string

	ConfirmedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HasTokenFields reports whether the salted hash, salt and lookup hash are all present.
func (e Entry) HasTokenFields() bool {
	return e.ConfirmTokenHash != "" && e.ConfirmSalt != "" && e.ConfirmTokenLookupHash != ""
}

// PendingEntry carries everything needed to create or refresh a pending entry.
// ID and ReferralCode are only used when the entry does not exist yet.
type PendingEntry struct {
	ID                     string
	Email                  string
	Locale                 string
	GDPRConsent            bool
	ConfirmTokenHash       string
	ConfirmTokenLookupHash string
	ConfirmSalt            string
	ConfirmExpiresAt       time.Time
	ReferralCode           string
	ReferredByID           string
	SelfReferralSuspect    bool
	UTMSource              string
	UTMMedium              string
	UTMCampaign            string
	Now                    time.Time
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
