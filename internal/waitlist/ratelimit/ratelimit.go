// Package ratelimit enforces per-identifier request budgets over a rolling
// window. Identifiers are turned into keyed hashes before they reach a Store,
// so a store dump never reveals an email address or IP.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/aussiebroadwan/waitlist/internal/waitlist/domain"
	"github.com/aussiebroadwan/waitlist/pkg/slogx"
)

// ErrInvalidRule is returned for rules with a non-positive limit or window.
var ErrInvalidRule = errors.New("ratelimit: invalid rule")

// Scope names what kind of identifier a rule counts.
type Scope string

const (
	ScopeIP    Scope = "ip"
	ScopeEmail Scope = "email"
)

// Rule is a named budget: at most Limit requests per identifier in any Window.
type Rule struct {
	Name   string
	Scope  Scope
	Limit  int
	Window time.Duration

	// FailOpen allows requests through when the store is unavailable.
	FailOpen bool
}

// Validate reports whether the rule can be enforced.
func (r Rule) Validate() error {
	if r.Name == "" || r.Limit <= 0 || r.Window <= 0 {
		return fmt.Errorf("%w: %q limit=%d window=%s", ErrInvalidRule, r.Name, r.Limit, r.Window)
	}
	return nil
}

// Default rules.
var (
	// SubmitByIP caps signup submissions per client IP.
	// Override with: RATELIMIT_SUBMIT_REQUESTS, RATELIMIT_SUBMIT_WINDOW_SEC
	SubmitByIP = Rule{
		Name:   "submit_by_ip",
		Scope:  ScopeIP,
		Limit:  10,
		Window: time.Hour,
	}

	// ResendByEmail caps confirmation resends per email address.
	// Override with: RATELIMIT_RESEND_REQUESTS, RATELIMIT_RESEND_WINDOW_SEC
	ResendByEmail = Rule{
		Name:   "resend_by_email",
		Scope:  ScopeEmail,
		Limit:  3,
		Window: 30 * time.Minute,
	}
)

// RuleFromEnv returns base with RATELIMIT_{prefix}_REQUESTS and
// RATELIMIT_{prefix}_WINDOW_SEC applied when they hold positive integers.
func RuleFromEnv(prefix string, base Rule) Rule {
	rule := base

	if val := os.Getenv("RATELIMIT_" + prefix + "_REQUESTS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			rule.Limit = n
		}
	}

	if val := os.Getenv("RATELIMIT_" + prefix + "_WINDOW_SEC"); val != "" {
		if sec, err := strconv.Atoi(val); err == nil && sec > 0 {
			rule.Window = time.Duration(sec) * time.Second
		}
	}

	return rule
}

// Decision is the outcome of one Enforce call.
type Decision struct {
	Allowed           bool
	Remaining         int
	RetryAfterSeconds int
}

// HitResult is what a Store reports for one counted attempt.
type HitResult struct {
	Allowed bool
	// Count is the number of requests in the window after this hit.
	Count int
	// RetryAfter is how long until the oldest counted request leaves the
	// window. Only meaningful when Allowed is false.
	RetryAfter time.Duration
}

// Store keeps the request log per key. Hit must be atomic per key: it prunes
// entries older than window, and records now only when fewer than limit
// entries remain.
type Store interface {
	Hit(ctx context.Context, key string, now time.Time, limit int, window time.Duration) (HitResult, error)
}

// Maintainer is implemented by stores that need periodic cleanup.
type Maintainer interface {
	Maintain(now time.Time) error
}

// Keyer derives an opaque storage key from an identifier.
type Keyer interface {
	Key(namespace, identifier string) string
}

// Limiter applies rules against a Store.
type Limiter struct {
	store Store
	keyer Keyer
	now   func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// New creates a Limiter.
func New(store Store, keyer Keyer, opts ...Option) *Limiter {
	l := &Limiter{
		store: store,
		keyer: keyer,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Key returns the storage key for identifier under rule.
func (l *Limiter) Key(rule Rule, identifier string) string {
	if rule.Scope == ScopeEmail {
		identifier = domain.NormalizeEmail(identifier)
	}
	return rule.Name + ":" + l.keyer.Key(rule.Name, identifier)
}

// Enforce counts one request for identifier under rule. A store error is
// returned unless the rule fails open, in which case the request is allowed.
func (l *Limiter) Enforce(ctx context.Context, rule Rule, identifier string) (Decision, error) {
	if err := rule.Validate(); err != nil {
		return Decision{}, err
	}

	res, err := l.store.Hit(ctx, l.Key(rule, identifier), l.now(), rule.Limit, rule.Window)
	if err != nil {
		if rule.FailOpen {
			slogx.FromContext(ctx).Warn("rate limit store unavailable, failing open",
				"rule", rule.Name,
				"error", err,
			)
			return Decision{Allowed: true, Remaining: rule.Limit}, nil
		}
		return Decision{}, fmt.Errorf("ratelimit: %s: %w", rule.Name, err)
	}

	if !res.Allowed {
		return Decision{
			Allowed:           false,
			Remaining:         0,
			RetryAfterSeconds: retryAfterSeconds(res.RetryAfter),
		}, nil
	}

	return Decision{
		Allowed:   true,
		Remaining: max(rule.Limit-res.Count, 0),
	}, nil
}

func retryAfterSeconds(d time.Duration) int {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

// slide drops timestamps at or before now-window and, when fewer than limit
// remain, appends now. Timestamps are unix nanoseconds in ascending order.
func slide(log []int64, now time.Time, limit int, window time.Duration) ([]int64, HitResult) {
	cutoff := now.Add(-window).UnixNano()

	i := 0
	for i < len(log) && log[i] <= cutoff {
		i++
	}
	log = log[i:]

	if len(log) >= limit {
		// The request that has to leave the window before one more fits.
		oldest := time.Unix(0, log[len(log)-limit])
		return log, HitResult{
			Allowed:    false,
			Count:      len(log),
			RetryAfter: oldest.Add(window).Sub(now),
		}
	}

	log = append(log, now.UnixNano())
	return log, HitResult{Allowed: true, Count: len(log)}
}
