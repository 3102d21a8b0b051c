package http

import (
	"net/http"

	"github.com/aussiebroadwan/waitlist/internal/waitlist/service"
	"github.com/aussiebroadwan/waitlist/pkg/httpx"
	"github.com/aussiebroadwan/waitlist/pkg/slogx"
	"github.com/aussiebroadwan/waitlist/pkg/waitlistsdk"
)

type ResendHandler struct {
	ResendService *service.ResendService
}

// ServeHTTP godoc
//
//	@Summary		Resend Confirmation Email
//	@Description	Issues a new confirmation link for a pending or expired entry. The response is the same whether or not the address is known.
//	@Tags			Waitlist
//	@Accept			json
//	@Produce		json
//	@Param			request	body		waitlistsdk.ResendRequest		true	"Email"
//	@Success		202		{object}	waitlistsdk.AcceptedResponse	"ok"
//	@Failure		400		{object}	waitlistsdk.ErrorResponse		"validation_error"
//	@Failure		429		{object}	waitlistsdk.ErrorResponse		"rate_limited"
//	@Failure		500		{object}	waitlistsdk.ErrorResponse		"internal_error"
//	@Router			/v1/waitlist/resend [post].
func (h *ResendHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req waitlistsdk.ResendRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	outcome, err := h.ResendService.Resend(ctx, req.Email)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	slogx.FromContext(ctx).Debug("resend handled", "outcome", outcome)
	httpx.WriteJSON(w, http.StatusAccepted, waitlistsdk.AcceptedResponse{OK: true})
}
