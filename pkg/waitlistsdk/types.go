package waitlistsdk

// ============================================================================
// Waitlist Types
// ============================================================================

// SignupRequest is the body of POST /v1/waitlist.
type SignupRequest struct {
	Email        string `json:"email"`
	Locale       string `json:"locale"`
	Consent      bool   `json:"consent"`
	CaptchaToken string `json:"captcha_token"`

	// Ref is the referral code of the person who shared the link.
	Ref string `json:"ref,omitempty"`

	UTMSource   string `json:"utm_source,omitempty"`
	UTMMedium   string `json:"utm_medium,omitempty"`
	UTMCampaign string `json:"utm_campaign,omitempty"`
}

// ResendRequest is the body of POST /v1/waitlist/resend.
type ResendRequest struct {
	Email string `json:"email"`
}

// AcceptedResponse is returned with 202 by signup and resend.
type AcceptedResponse struct {
	OK bool `json:"ok"`
}

// Confirmation statuses returned by GET /waitlist/confirm.
const (
	ConfirmStatusConfirmed = "confirmed"
	ConfirmStatusAlready   = "already"
	ConfirmStatusExpired   = "expired"
	ConfirmStatusInvalid   = "invalid"
	ConfirmStatusNotFound  = "not_found"
)

// ConfirmResponse is the JSON body of GET /waitlist/confirm.
type ConfirmResponse struct {
	Status string `json:"status"`
}

// StatsResponse is returned by GET /v1/admin/waitlist/stats.
type StatsResponse struct {
	Pending   int64 `json:"pending"`
	Confirmed int64 `json:"confirmed"`
	Expired   int64 `json:"expired"`
	Total     int64 `json:"total"`

	// Referred counts entries attributed to another entry's referral code.
	Referred int64 `json:"referred"`
}

// ============================================================================
// Error Types
// ============================================================================

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	// Error is the machine readable code, e.g. "validation_error".
	Error string `json:"error"`

	// ErrorDescription is a human-readable description of the error.
	ErrorDescription string `json:"error_description,omitempty"`

	// Details maps field names to validation failures.
	Details map[string]string `json:"details,omitempty"`

	// RetryAfterSeconds mirrors the Retry-After header on 429 responses.
	RetryAfterSeconds int `json:"retry_after_seconds,omitempty"`
}

// ============================================================================
// Health Check Types
// ============================================================================

// HealthResponse is returned by /livez and /readyz.
type HealthResponse struct {
	// Status indicates the overall health status (e.g., "ok")
	Status string `json:"status"`

	// Uptime is the service uptime duration as a string (e.g., "1h23m45s")
	Uptime string `json:"uptime,omitempty"`

	// Version is the service version string
	Version string `json:"version,omitempty"`

	// Checks contains readiness check results (only for /readyz)
	Checks *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports the status of the service's dependencies.
type HealthChecks struct {
	Database string `json:"database"`
}
