package usecase

import (
	"context"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/best-odds/internal/domain/league"
	"github.com/riskibarqy/best-odds/internal/domain/odds"
	"github.com/riskibarqy/best-odds/internal/platform/logging"
	"github.com/sourcegraph/conc"
	"go.opentelemetry.io/otel/attribute"
)

type OddsServiceConfig struct {
	Regions  []string
	DaysFrom int
}

// OddsService fans out to the provider for every configured league and
// region and assembles the matchday payload.
type OddsService struct {
	leagueRepo league.Repository
	provider   odds.Provider
	pool       *ants.Pool
	regions    []string
	daysFrom   int
	logger     *logging.Logger
}

// NewOddsService builds the aggregator. A nil pool runs region calls on
// plain goroutines.
func NewOddsService(leagueRepo league.Repository, provider odds.Provider, pool *ants.Pool, cfg OddsServiceConfig, logger *logging.Logger) *OddsService {
	if logger == nil {
		logger = logging.Default()
	}
	regions := append([]string(nil), cfg.Regions...)
	if len(regions) == 0 {
		regions = []string{"eu"}
	}
	daysFrom := cfg.DaysFrom
	if daysFrom <= 0 {
		daysFrom = 21
	}

	return &OddsService{
		leagueRepo: leagueRepo,
		provider:   provider,
		pool:       pool,
		regions:    regions,
		daysFrom:   daysFrom,
		logger:     logger,
	}
}

type leagueOutcome struct {
	result  *odds.LeagueResult
	calls   []odds.CallOutcome
	horizon odds.Horizon
}

// Aggregate builds the payload for date. Leagues run concurrently and a
// failing league never cancels its siblings. A cancelled ctx yields
// ctx.Err() so that partial results are never handed out.
func (s *OddsService) Aggregate(ctx context.Context, date, apiKey string) (odds.Payload, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.OddsService.Aggregate")
	defer span.End()
	span.SetAttributes(attribute.String("matchday.date", date))

	leagues, err := s.leagueRepo.List(ctx)
	if err != nil {
		return odds.Payload{}, fmt.Errorf("list leagues: %w", err)
	}

	outcomes := make([]leagueOutcome, len(leagues))
	var wg conc.WaitGroup
	for i, item := range leagues {
		wg.Go(func() {
			outcomes[i] = s.fetchLeague(ctx, item, date, apiKey)
		})
	}
	if recovered := wg.WaitAndRecover(); recovered != nil {
		s.logger.ErrorContext(ctx, "league aggregation panicked", "date", date, "panic", recovered.String())
	}
	if err := ctx.Err(); err != nil {
		return odds.Payload{}, err
	}

	payload := odds.Payload{
		Date:    date,
		Leagues: make([]odds.LeagueResult, 0, len(leagues)),
		Meta:    odds.NewReport(),
	}
	horizon := make(odds.Horizon)
	for _, outcome := range outcomes {
		for _, call := range outcome.calls {
			payload.Meta.Record(call)
		}
		horizon.Union(outcome.horizon)
		if outcome.result != nil {
			payload.Leagues = append(payload.Leagues, *outcome.result)
		}
	}
	payload.NextDate = horizon.Next(date)

	span.SetAttributes(
		attribute.Int("matchday.calls", len(payload.Meta.Calls)),
		attribute.Int("matchday.errors", len(payload.Meta.Errors)),
		attribute.Int("matchday.leagues", len(payload.Leagues)),
	)
	return payload, nil
}

// fetchLeague issues one call per region and merges the responses in
// region order into a single book.
func (s *OddsService) fetchLeague(ctx context.Context, item league.League, date, apiKey string) leagueOutcome {
	results := make([]odds.FetchResult, len(s.regions))
	var wg sync.WaitGroup
	for i, region := range s.regions {
		req := odds.FetchRequest{
			League:   item,
			Region:   region,
			DaysFrom: s.daysFrom,
			APIKey:   apiKey,
		}
		task := func() {
			defer wg.Done()
			results[i] = s.fetchRegion(ctx, req)
		}

		wg.Add(1)
		if s.pool == nil {
			go task()
			continue
		}
		if err := s.pool.Submit(task); err != nil {
			s.logger.WarnContext(ctx, "worker pool rejected region call, running inline", "league", item.Key, "region", region, "error", err)
			task()
		}
	}
	wg.Wait()

	book := odds.NewMatchBook(date)
	outcome := leagueOutcome{
		calls:   make([]odds.CallOutcome, 0, len(results)),
		horizon: make(odds.Horizon),
	}
	for _, result := range results {
		outcome.calls = append(outcome.calls, result.Call)
		if result.Call.Failed() {
			continue
		}
		for _, game := range result.Games {
			outcome.horizon.Observe(game)
			book.Add(game)
		}
	}

	if matches := book.Matches(); len(matches) > 0 {
		outcome.result = &odds.LeagueResult{
			Key:     item.Key,
			Name:    item.Name,
			Matches: matches,
		}
	}
	return outcome
}

func (s *OddsService) fetchRegion(ctx context.Context, req odds.FetchRequest) (result odds.FetchResult) {
	defer func() {
		if recovered := recover(); recovered != nil {
			s.logger.ErrorContext(ctx, "odds provider panicked", "league", req.League.Key, "region", req.Region, "panic", recovered)
			result = odds.FetchResult{Call: odds.CallOutcome{
				League:    req.League.Name,
				LeagueKey: req.League.Key,
				Region:    req.Region,
				Error:     "internal error",
			}}
		}
	}()

	result, err := s.provider.FetchOdds(ctx, req)
	if err != nil {
		s.logger.DebugContext(ctx, "region call failed", "league", req.League.Key, "region", req.Region, "error", err)
		if !result.Call.Failed() {
			result.Call.Status = 0
		}
		result.Games = nil
	}
	// Providers are expected to fill the call identity; keep it stable if
	// they did not.
	if result.Call.LeagueKey == "" {
		result.Call.League = req.League.Name
		result.Call.LeagueKey = req.League.Key
		result.Call.Region = req.Region
	}
	if err != nil && result.Call.Error == "" {
		result.Call.Error = "upstream call failed"
	}
	return result
}
