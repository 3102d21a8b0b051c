package domain

// UpsertResult reports what UpsertPending did.
type UpsertResult int

const (
	UpsertCreated UpsertResult = iota + 1
	UpsertRefreshed
	UpsertAlreadyConfirmed
)

func (r UpsertResult) String() string {
	switch r {
	case UpsertCreated:
		return "created"
	case UpsertRefreshed:
		return "refreshed"
	case UpsertAlreadyConfirmed:
		return "already_confirmed"
	default:
		return "unknown"
	}
}

// ConfirmResult is the result of the store's conditional confirm.
type ConfirmResult string

const (
	ConfirmResultConfirmed ConfirmResult = "confirmed"
	ConfirmResultAlready   ConfirmResult = "already"
	ConfirmResultExpired   ConfirmResult = "expired"
	ConfirmResultNotFound  ConfirmResult = "not_found"
)

// ExpireResult is the result of the store's mark-expired operation.
type ExpireResult string

const (
	ExpireResultExpired  ExpireResult = "expired"
	ExpireResultNotFound ExpireResult = "not_found"
)

// ConfirmOutcome is the request-level outcome of processing a confirmation token.
// Every branch of the confirmation flow maps to exactly one of these.
type ConfirmOutcome string

const (
	ConfirmOutcomeConfirmed ConfirmOutcome = "confirmed"
	ConfirmOutcomeAlready   ConfirmOutcome = "already"
	ConfirmOutcomeExpired   ConfirmOutcome = "expired"
	ConfirmOutcomeInvalid   ConfirmOutcome = "invalid"
	ConfirmOutcomeNotFound  ConfirmOutcome = "not_found"
)

// SignupOutcome is the business outcome of an accepted signup.
type SignupOutcome string

const (
	// SignupPending means a confirmation email was sent.
	SignupPending SignupOutcome = "pending"
	// SignupAlreadyConfirmed means the email was already confirmed and nothing changed.
	SignupAlreadyConfirmed SignupOutcome = "already_confirmed"
)

// ResendOutcome is the business outcome of a resend request.
type ResendOutcome string

const (
	ResendSent             ResendOutcome = "sent"
	ResendAlreadyConfirmed ResendOutcome = "already_confirmed"
	ResendNotFound         ResendOutcome = "not_found"
)
