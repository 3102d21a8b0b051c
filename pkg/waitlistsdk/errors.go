package waitlistsdk

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
)

// Error codes used in ErrorResponse.Error.
const (
	ErrorCodeInvalidRequest    = "invalid_request"
	ErrorCodeValidation        = "validation_error"
	ErrorCodeCaptchaFailed     = "captcha_failed"
	ErrorCodeRateLimited       = "rate_limited"
	ErrorCodeInternal          = "internal_error"
	ErrorCodeInvalidToken      = "invalid_token"
	ErrorCodeInsufficientScope = "insufficient_scope"
)

// APIError is returned by the client for any unexpected status code.
type APIError struct {
	StatusCode        int
	Code              string
	Description       string
	Details           map[string]string
	RetryAfterSeconds int
}

func (e *APIError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("waitlist: %d %s", e.StatusCode, e.Code)
	}
	return fmt.Sprintf("waitlist: %d %s: %s", e.StatusCode, e.Code, e.Description)
}

// parseErrorResponse builds an APIError from a non-success response.
func parseErrorResponse(resp *http.Response, body []byte) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var er ErrorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Error != "" {
		apiErr.Code = er.Error
		apiErr.Description = er.ErrorDescription
		apiErr.Details = er.Details
		apiErr.RetryAfterSeconds = er.RetryAfterSeconds
	} else {
		apiErr.Code = http.StatusText(resp.StatusCode)
	}

	if apiErr.RetryAfterSeconds == 0 {
		if v, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
			apiErr.RetryAfterSeconds = v
		}
	}
	return apiErr
}
