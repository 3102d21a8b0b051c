// Package metrics holds the Prometheus instruments for the waitlist funnel.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is safe to use as a nil pointer; every method becomes a no-op.
type Metrics struct {
	signups       *prometheus.CounterVec
	resends       *prometheus.CounterVec
	confirmations *prometheus.CounterVec
	rateLimited   *prometheus.CounterVec
	emailFailures prometheus.Counter
	expiredSwept  prometheus.Counter
}

// New registers the waitlist metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{}

	m.signups = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waitlist_signups_total",
			Help: "accepted signups by outcome",
		},
		[]string{"outcome"},
	)
	m.resends = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waitlist_resends_total",
			Help: "resend requests by outcome",
		},
		[]string{"outcome"},
	)
	m.confirmations = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waitlist_confirmations_total",
			Help: "confirmation attempts by outcome",
		},
		[]string{"outcome"},
	)
	m.rateLimited = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waitlist_rate_limited_total",
			Help: "requests rejected by a rate limit rule",
		},
		[]string{"rule"},
	)
	m.emailFailures = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "waitlist_email_failures_total",
			Help: "confirmation emails that could not be handed to the mailer",
		},
	)
	m.expiredSwept = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "waitlist_expired_swept_total",
			Help: "pending entries moved to expired by housekeeping",
		},
	)

	return m
}

func (m *Metrics) Signup(outcome string) {
	if m != nil {
		m.signups.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) Resend(outcome string) {
	if m != nil {
		m.resends.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) Confirmation(outcome string) {
	if m != nil {
		m.confirmations.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) RateLimited(rule string) {
	if m != nil {
		m.rateLimited.WithLabelValues(rule).Inc()
	}
}

func (m *Metrics) EmailFailure() {
	if m != nil {
		m.emailFailures.Inc()
	}
}

func (m *Metrics) ExpiredSwept(n int64) {
	if m != nil && n > 0 {
		m.expiredSwept.Add(float64(n))
	}
}
