package service

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

var ErrCaptchaFailed = errors.New("captcha_failed")

// ValidationError lists the fields that failed validation and why.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := slices.Sorted(maps.Keys(e.Fields))
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// RateLimitedError is returned when a rate limit rule rejects the request.
type RateLimitedError struct {
	Rule              string
	RetryAfterSeconds int
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate_limited: %s, retry after %ds", e.Rule, e.RetryAfterSeconds)
}
