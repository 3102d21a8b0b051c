package http

import (
	"net/http"
	"net/url"

	"github.com/aussiebroadwan/waitlist/internal/waitlist/domain"
	"github.com/aussiebroadwan/waitlist/internal/waitlist/service"
	"github.com/aussiebroadwan/waitlist/pkg/httpx"
	"github.com/aussiebroadwan/waitlist/pkg/waitlistsdk"
)

type ConfirmHandler struct {
	ConfirmService *service.ConfirmService

	// RedirectURL is the confirmation page. When empty the outcome is
	// returned as JSON.
	RedirectURL string
}

// ServeHTTP godoc
//
//	@Summary		Confirm Waitlist Email
//	@Description	Consumes the token from a confirmation email. Each outcome has its own status code, or a 303 to the confirmation page with ?status= when a redirect URL is configured.
//	@Tags			Waitlist
//	@Produce		json
//	@Param			token	query		string						true	"Confirmation token"
//	@Success		200		{object}	waitlistsdk.ConfirmResponse	"confirmed or already"
//	@Success		303		{string}	string						"redirect to the confirmation page"
//	@Failure		400		{object}	waitlistsdk.ConfirmResponse	"invalid"
//	@Failure		404		{object}	waitlistsdk.ConfirmResponse	"not_found"
//	@Failure		410		{object}	waitlistsdk.ConfirmResponse	"expired"
//	@Failure		500		{object}	waitlistsdk.ErrorResponse	"internal_error"
//	@Router			/waitlist/confirm [get].
func (h *ConfirmHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.ConfirmService.ProcessToken(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		writeInternalError(w, r, err)
		return
	}

	if h.RedirectURL != "" {
		httpx.NoCache(w)
		http.Redirect(w, r, redirectTarget(h.RedirectURL, outcome), http.StatusSeeOther)
		return
	}

	httpx.WriteJSON(w, confirmStatusCode(outcome), waitlistsdk.ConfirmResponse{Status: string(outcome)})
}

func confirmStatusCode(outcome domain.ConfirmOutcome) int {
	switch outcome {
	case domain.ConfirmOutcomeConfirmed, domain.ConfirmOutcomeAlready:
		return http.StatusOK
	case domain.ConfirmOutcomeExpired:
		return http.StatusGone
	case domain.ConfirmOutcomeInvalid:
		return http.StatusBadRequest
	default:
		return http.StatusNotFound
	}
}

// redirectTarget appends status to base, keeping any query it already has.
func redirectTarget(base string, outcome domain.ConfirmOutcome) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	q.Set("status", string(outcome))
	u.RawQuery = q.Encode()
	return u.String()
}
