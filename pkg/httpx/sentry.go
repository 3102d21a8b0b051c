package httpx

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
)

// Sentry attaches a per-request hub and reports panics before re-raising them
// for Recover. Without an initialised client it only forwards.
func Sentry() Middleware {
	h := sentryhttp.New(sentryhttp.Options{
		Repanic:         true,
		WaitForDelivery: false,
		Timeout:         2 * time.Second,
	})
	return h.Handle
}

// ReportError sends err to the request's Sentry hub, falling back to the
// current hub outside a request.
func ReportError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.CaptureException(err)
}
