package service

import (
	"context"
	"fmt"

	"github.com/aussiebroadwan/waitlist/internal/waitlist/domain"
	"github.com/aussiebroadwan/waitlist/internal/waitlist/store"
)

type Stats struct {
	Pending   int64
	Confirmed int64
	Expired   int64
	Referred  int64
}

func (s Stats) Total() int64 { return s.Pending + s.Confirmed + s.Expired }

type StatsService struct {
	Store store.Store
}

func (s *StatsService) Stats(ctx context.Context) (Stats, error) {
	counts, err := s.Store.Entries().CountByStatus(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("count by status: %w", err)
	}
	referred, err := s.Store.Entries().CountReferred(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("count referred: %w", err)
	}
	return Stats{
		Pending:   counts[domain.StatusPending],
		Confirmed: counts[domain.StatusConfirmed],
		Expired:   counts[domain.StatusExpired],
		Referred:  referred,
	}, nil
}
