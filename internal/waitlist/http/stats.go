package http

import (
	"net/http"

	"github.com/aussiebroadwan/waitlist/internal/waitlist/service"
	"github.com/aussiebroadwan/waitlist/pkg/httpx"
	"github.com/aussiebroadwan/waitlist/pkg/waitlistsdk"
)

type StatsHandler struct {
	StatsService *service.StatsService
}

// ServeHTTP godoc
//
//	@Summary		Waitlist Stats
//	@Description	Entry counts per status and the number of referred entries.
//	@Tags			Admin
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	waitlistsdk.StatsResponse	"counts"
//	@Failure		401	{object}	waitlistsdk.ErrorResponse	"invalid_token"
//	@Failure		403	{object}	waitlistsdk.ErrorResponse	"insufficient_scope"
//	@Failure		500	{object}	waitlistsdk.ErrorResponse	"internal_error"
//	@Router			/v1/admin/waitlist/stats [get].
func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	stats, err := h.StatsService.Stats(r.Context())
	if err != nil {
		writeInternalError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, waitlistsdk.StatsResponse{
		Pending:   stats.Pending,
		Confirmed: stats.Confirmed,
		Expired:   stats.Expired,
		Total:     stats.Total(),
		Referred:  stats.Referred,
	})
}
