package http

import (
	"net/http"

	"github.com/aussiebroadwan/waitlist/internal/waitlist/domain"
	"github.com/aussiebroadwan/waitlist/internal/waitlist/service"
	"github.com/aussiebroadwan/waitlist/pkg/httpx"
	"github.com/aussiebroadwan/waitlist/pkg/slogx"
	"github.com/aussiebroadwan/waitlist/pkg/waitlistsdk"
)

type SignupHandler struct {
	SignupService *service.SignupService
	TrustProxy    bool
}

// ServeHTTP godoc
//
//	@Summary		Join the Waitlist
//	@Description	Validates the signup, verifies the CAPTCHA, applies the per-IP rate limit and emails a confirmation link.
//	@Description	An address that is already confirmed gets the same 202 response and no email.
//	@Tags			Waitlist
//	@Accept			json
//	@Produce		json
//	@Param			request	body		waitlistsdk.SignupRequest		true	"Signup"
//	@Success		202		{object}	waitlistsdk.AcceptedResponse	"ok"
//	@Failure		400		{object}	waitlistsdk.ErrorResponse		"validation_error with details"
//	@Failure		403		{object}	waitlistsdk.ErrorResponse		"captcha_failed"
//	@Failure		429		{object}	waitlistsdk.ErrorResponse		"rate_limited"
//	@Failure		500		{object}	waitlistsdk.ErrorResponse		"internal_error"
//	@Router			/v1/waitlist [post].
func (h *SignupHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req waitlistsdk.SignupRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	res, err := h.SignupService.Submit(ctx, domain.SignupInput{
		Email:        req.Email,
		Locale:       req.Locale,
		Consent:      req.Consent,
		CaptchaToken: req.CaptchaToken,
		ReferralCode: req.Ref,
		UTMSource:    req.UTMSource,
		UTMMedium:    req.UTMMedium,
		UTMCampaign:  req.UTMCampaign,
		RemoteIP:     httpx.ClientIP(r, h.TrustProxy),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	slogx.FromContext(ctx).Debug("signup accepted", "outcome", res.Outcome)
	httpx.WriteJSON(w, http.StatusAccepted, waitlistsdk.AcceptedResponse{OK: true})
}
