package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/riskibarqy/best-odds/internal/domain/league"
)

// LeagueRepository keeps the configured leagues in display order.
type LeagueRepository struct {
	mu    sync.RWMutex
	items []league.League
}

func NewLeagueRepository(leagues []league.League) (*LeagueRepository, error) {
	seen := make(map[string]struct{}, len(leagues))
	items := make([]league.League, 0, len(leagues))
	for _, l := range leagues {
		if err := l.Validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[l.Key]; dup {
			return nil, fmt.Errorf("duplicate league key=%s", l.Key)
		}
		seen[l.Key] = struct{}{}
		items = append(items, l)
	}

	return &LeagueRepository{items: items}, nil
}

func (r *LeagueRepository) List(_ context.Context) ([]league.League, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]league.League(nil), r.items...), nil
}
