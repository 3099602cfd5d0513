package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/best-odds/external/theoddsapi"
	"github.com/riskibarqy/best-odds/internal/config"
	"github.com/riskibarqy/best-odds/internal/domain/odds"
	cacherepo "github.com/riskibarqy/best-odds/internal/infrastructure/repository/cache"
	"github.com/riskibarqy/best-odds/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/best-odds/internal/interfaces/httpapi"
	basecache "github.com/riskibarqy/best-odds/internal/platform/cache"
	idgen "github.com/riskibarqy/best-odds/internal/platform/id"
	"github.com/riskibarqy/best-odds/internal/platform/logging"
	"github.com/riskibarqy/best-odds/internal/platform/metrics"
	"github.com/riskibarqy/best-odds/internal/platform/resilience"
	"github.com/riskibarqy/best-odds/internal/usecase"
)

const cacheJanitorInterval = time.Minute

// NewHTTPServer wires the service graph. The returned cleanup releases the
// worker pool and cache resources and must be called after Shutdown.
func NewHTTPServer(cfg config.Config, logger *logging.Logger) (*http.Server, func(), error) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.HTTPAddr == "" {
		return nil, nil, fmt.Errorf("http server addr cannot be empty")
	}

	leagues, err := memory.LoadLeagues(cfg.LeaguesFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load leagues: %w", err)
	}
	leagueRepo, err := memory.NewLeagueRepository(leagues)
	if err != nil {
		return nil, nil, fmt.Errorf("build league repository: %w", err)
	}

	var m *metrics.Metrics
	var metricsHandler http.Handler
	if cfg.MetricsEnabled {
		m = metrics.New()
		metricsHandler = m.Handler()
	}

	pool, err := ants.NewPool(cfg.OddsAPIMaxConcurrency)
	if err != nil {
		return nil, nil, fmt.Errorf("create worker pool: %w", err)
	}
	cleanups := []func(){pool.Release}
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	provider := theoddsapi.NewClient(theoddsapi.ClientConfig{
		BaseURL:        cfg.OddsAPIBaseURL,
		Timeout:        cfg.OddsAPITimeout,
		MaxRetries:     cfg.OddsAPIMaxRetries,
		RateLimit:      cfg.OddsAPIRateLimit,
		Logger:         logger,
		Metrics:        m,
		CircuitBreaker: providerCircuitConfig(cfg, len(leagues)*len(cfg.OddsAPIRegions)),
	})

	oddsSvc := usecase.NewOddsService(leagueRepo, provider, pool, usecase.OddsServiceConfig{
		Regions:  cfg.OddsAPIRegions,
		DaysFrom: cfg.OddsAPIDaysFrom,
	}, logger)

	responseCache, cacheCleanup, err := newResponseCache(cfg, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	cleanups = append(cleanups, cacheCleanup)

	matchdaySvc := usecase.NewMatchdayService(oddsSvc, responseCache, usecase.MatchdayServiceConfig{
		APIKey:   cfg.OddsAPIKey,
		CacheTTL: cfg.CacheTTL,
	}, m, logger)
	leagueSvc := usecase.NewLeagueService(leagueRepo)

	if cfg.OddsAPIKey == "" {
		logger.Warn("ODDS_API_KEY is empty, matchday requests will fail")
	}

	handler := httpapi.NewHandler(matchdaySvc, leagueSvc, logger)
	router := httpapi.NewRouter(handler, logger, cfg.CORSAllowedOrigins, idgen.NewUUIDGenerator(), metricsHandler)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	logger.Info("service wired",
		"leagues", len(leagues),
		"regions", cfg.OddsAPIRegions,
		"cache_backend", cfg.CacheBackend,
		"cache_ttl", cfg.CacheTTL.String(),
		"metrics_enabled", cfg.MetricsEnabled,
	)

	return server, cleanup, nil
}

// providerCircuitConfig admits a whole matchday fan-out while half-open, so
// a recovering provider is probed by every call of one request instead of a
// few of them.
func providerCircuitConfig(cfg config.Config, fanOut int) resilience.CircuitBreakerConfig {
	return resilience.CircuitBreakerConfig{
		Enabled:          cfg.OddsAPICircuitEnabled,
		FailureThreshold: cfg.OddsAPICircuitFailureCount,
		OpenTimeout:      cfg.OddsAPICircuitOpenTimeout,
		HalfOpenMaxReq:   max(cfg.OddsAPICircuitHalfOpenMax, fanOut),
	}
}

func newResponseCache(cfg config.Config, logger *logging.Logger) (odds.ResponseCache, func(), error) {
	switch cfg.CacheBackend {
	case config.CacheBackendRedis:
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		client, err := cacherepo.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect redis cache: %w", err)
		}
		return cacherepo.NewRedisResponseCache(client), func() {
			if err := client.Close(); err != nil {
				logger.Warn("close redis cache failed", "error", err)
			}
		}, nil
	default:
		responseCache := cacherepo.NewResponseCache(basecache.NewStore(cfg.CacheTTL))
		ctx, cancel := context.WithCancel(context.Background())
		go responseCache.RunJanitor(ctx, cacheJanitorInterval, logger)
		return responseCache, cancel, nil
	}
}
