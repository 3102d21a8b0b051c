package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/aussiebroadwan/waitlist/internal/waitlist/service"
	"github.com/aussiebroadwan/waitlist/pkg/httpx"
	"github.com/aussiebroadwan/waitlist/pkg/slogx"
	"github.com/aussiebroadwan/waitlist/pkg/waitlistsdk"
)

func writeError(w http.ResponseWriter, code int, resp waitlistsdk.ErrorResponse) {
	httpx.WriteJSON(w, code, resp)
}

// writeDecodeError maps httpx.DecodeJSON failures.
func writeDecodeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, httpx.ErrUnsupportedMediaType):
		writeError(w, http.StatusUnsupportedMediaType, waitlistsdk.ErrorResponse{
			Error:            waitlistsdk.ErrorCodeInvalidRequest,
			ErrorDescription: "Content-Type must be application/json",
		})
	case errors.Is(err, httpx.ErrBodyTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, waitlistsdk.ErrorResponse{
			Error:            waitlistsdk.ErrorCodeInvalidRequest,
			ErrorDescription: "Request body too large",
		})
	default:
		writeError(w, http.StatusBadRequest, waitlistsdk.ErrorResponse{
			Error:            waitlistsdk.ErrorCodeInvalidRequest,
			ErrorDescription: "Malformed JSON body",
		})
	}
}

// writeServiceError maps the error returned by a signup or resend. None of
// the responses depend on whether the email is already known.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr  *service.ValidationError
		rlerr *service.RateLimitedError
	)

	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, waitlistsdk.ErrorResponse{
			Error:            waitlistsdk.ErrorCodeValidation,
			ErrorDescription: "One or more fields are invalid",
			Details:          verr.Fields,
		})
	case errors.Is(err, service.ErrCaptchaFailed):
		writeError(w, http.StatusForbidden, waitlistsdk.ErrorResponse{
			Error:            waitlistsdk.ErrorCodeCaptchaFailed,
			ErrorDescription: "CAPTCHA verification failed",
		})
	case errors.As(err, &rlerr):
		w.Header().Set("Retry-After", strconv.Itoa(rlerr.RetryAfterSeconds))
		writeError(w, http.StatusTooManyRequests, waitlistsdk.ErrorResponse{
			Error:             waitlistsdk.ErrorCodeRateLimited,
			ErrorDescription:  "Too many requests. Please try again later.",
			RetryAfterSeconds: rlerr.RetryAfterSeconds,
		})
	default:
		writeInternalError(w, r, err)
	}
}

func writeInternalError(w http.ResponseWriter, r *http.Request, err error) {
	slogx.FromContext(r.Context()).Error("request failed", "err", err)
	httpx.ReportError(r.Context(), err)
	writeError(w, http.StatusInternalServerError, waitlistsdk.ErrorResponse{
		Error:            waitlistsdk.ErrorCodeInternal,
		ErrorDescription: "An unexpected error occurred. Please try again later.",
	})
}
