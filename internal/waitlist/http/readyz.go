package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/waitlist/internal/waitlist/store"
	"github.com/aussiebroadwan/waitlist/pkg/httpx"
	"github.com/aussiebroadwan/waitlist/pkg/slogx"
	"github.com/aussiebroadwan/waitlist/pkg/waitlistsdk"
)

// ReadyzHandler godoc
//
//	@Summary		Readiness Check Endpoint
//	@Description	Readiness probe that also pings the record store.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	waitlistsdk.HealthResponse	"status, uptime, version, checks"
//	@Failure		503	{object}	waitlistsdk.HealthResponse	"service not ready"
//	@Router			/readyz [get].
func ReadyzHandler(startTime time.Time, version string, st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := &waitlistsdk.HealthChecks{Database: "ok"}
		overallStatus := "ok"
		statusCode := http.StatusOK

		if err := st.Ping(r.Context()); err != nil {
			slogx.FromContext(r.Context()).Warn("readiness check failed", "err", err)
			checks.Database = "error"
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		httpx.WriteJSON(w, statusCode, waitlistsdk.HealthResponse{
			Status:  overallStatus,
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  checks,
		})
	}
}
