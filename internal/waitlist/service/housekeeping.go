package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/waitlist/internal/waitlist/metrics"
	"github.com/aussiebroadwan/waitlist/internal/waitlist/ratelimit"
	"github.com/aussiebroadwan/waitlist/internal/waitlist/store"
)

// HousekeepingService periodically expires pending entries whose confirmation
// deadline has passed and lets the rate limit store drop stale hit logs.
type HousekeepingService struct {
	Store     store.Store
	RateLimit ratelimit.Maintainer
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
	Interval  time.Duration

	// Now defaults to time.Now.
	Now func() time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a housekeeping service. A non-positive
// interval defaults to 1 hour. rl may be nil.
func NewHousekeepingService(st store.Store, rl ratelimit.Maintainer, m *metrics.Metrics, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Store:     st,
		RateLimit: rl,
		Metrics:   m,
		Logger:    logger,
		Interval:  interval,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start runs the worker in the background. Call Stop to shut it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until any in-progress cleanup has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Cleanup(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Cleanup(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Cleanup runs one pass. Each step is independent; a failure in one does not
// stop the other.
func (s *HousekeepingService) Cleanup(ctx context.Context) {
	now := time.Now().UTC()
	if s.Now != nil {
		now = s.Now().UTC()
	}

	expired, err := s.Store.Entries().ExpireStalePending(ctx, now)
	if err != nil {
		s.Logger.Error("failed to expire stale pending entries", "error", err)
	} else {
		s.Metrics.ExpiredSwept(expired)
		if expired > 0 {
			s.Logger.Info("expired stale pending entries", "count", expired)
		}
	}

	if s.RateLimit != nil {
		if err := s.RateLimit.Maintain(now); err != nil {
			s.Logger.Error("failed to maintain rate limit store", "error", err)
		}
	}
}
