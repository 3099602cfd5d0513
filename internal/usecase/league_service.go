package usecase

import (
	"context"
	"fmt"

	"github.com/riskibarqy/best-odds/internal/domain/league"
)

type LeagueService struct {
	leagueRepo league.Repository
}

func NewLeagueService(leagueRepo league.Repository) *LeagueService {
	return &LeagueService{
		leagueRepo: leagueRepo,
	}
}

func (s *LeagueService) ListLeagues(ctx context.Context) ([]league.League, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LeagueService.ListLeagues")
	defer span.End()

	leagues, err := s.leagueRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list leagues: %w", err)
	}

	return leagues, nil
}
