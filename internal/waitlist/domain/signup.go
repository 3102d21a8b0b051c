package domain

import (
	"net/mail"
	"strings"
)

const (
	requiredReason = "required"

	maxEmailLength  = 254
	maxLocaleLength = 35
	maxUTMLength    = 128
	maxRefLength    = 64
)

// SignupInput is the raw, untrusted signup payload.
type SignupInput struct {
	Email        string
	Locale       string
	Consent      bool
	CaptchaToken string
	ReferralCode string
	UTMSource    string
	UTMMedium    string
	UTMCampaign  string
	RemoteIP     string
}

// ValidSignup is a signup that passed Validate. Only values of this type reach
// the rate limiter and the store.
type ValidSignup struct {
	Email        string
	Locale       string
	CaptchaToken string
	ReferralCode string
	UTMSource    string
	UTMMedium    string
	UTMCampaign  string
	RemoteIP     string
}

// Validate checks the input shape. It returns the normalized signup, or a map
// of field names to reasons when anything is wrong. When locales is non-empty
// the locale must be one of them.
func (in SignupInput) Validate(locales []string) (ValidSignup, map[string]string) {
	errs := make(map[string]string)

	email, reason := ValidateEmail(in.Email)
	if reason != "" {
		errs["email"] = reason
	}

	locale := strings.TrimSpace(in.Locale)
	switch {
	case locale == "":
		errs["locale"] = requiredReason
	case len(locale) > maxLocaleLength:
		errs["locale"] = "too long"
	case len(locales) > 0:
		// Stored with the configured spelling.
		configured, ok := lookupFold(locales, locale)
		if !ok {
			errs["locale"] = "unsupported locale"
		}
		locale = configured
	}

	if !in.Consent {
		errs["consent"] = "must be accepted"
	}

	captcha := strings.TrimSpace(in.CaptchaToken)
	if captcha == "" {
		errs["captcha_token"] = requiredReason
	}

	ref := strings.TrimSpace(in.ReferralCode)
	if len(ref) > maxRefLength {
		errs["ref"] = "too long"
	}

	for field, v := range map[string]string{
		"utm_source":   in.UTMSource,
		"utm_medium":   in.UTMMedium,
		"utm_campaign": in.UTMCampaign,
	} {
		if len(v) > maxUTMLength {
			errs[field] = "too long"
		}
	}

	if len(errs) > 0 {
		return ValidSignup{}, errs
	}

	return ValidSignup{
		Email:        email,
		Locale:       locale,
		CaptchaToken: captcha,
		ReferralCode: strings.ToUpper(ref),
		UTMSource:    strings.TrimSpace(in.UTMSource),
		UTMMedium:    strings.TrimSpace(in.UTMMedium),
		UTMCampaign:  strings.TrimSpace(in.UTMCampaign),
		RemoteIP:     in.RemoteIP,
	}, nil
}

// ValidateEmail normalizes email and checks it is a bare address. The second
// return value is empty when the address is acceptable.
func ValidateEmail(email string) (string, string) {
	normalized := NormalizeEmail(email)
	if normalized == "" {
		return "", requiredReason
	}
	if len(normalized) > maxEmailLength {
		return "", "too long"
	}

	addr, err := mail.ParseAddress(normalized)
	// Reject display-name forms such as "Bob <bob@x.com>"; only bare addresses are accepted.
	if err != nil || addr.Address != normalized || !strings.Contains(normalized[strings.LastIndex(normalized, "@")+1:], ".") {
		return "", "invalid email address"
	}
	return normalized, ""
}

func lookupFold(list []string, v string) (string, bool) {
	for _, item := range list {
		if strings.EqualFold(item, v) {
			return item, true
		}
	}
	return "", false
}
