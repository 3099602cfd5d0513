package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/best-odds/internal/domain/league"
	"github.com/riskibarqy/best-odds/internal/domain/odds"
	cacherepo "github.com/riskibarqy/best-odds/internal/infrastructure/repository/cache"
	"github.com/riskibarqy/best-odds/internal/infrastructure/repository/memory"
	basecache "github.com/riskibarqy/best-odds/internal/platform/cache"
	"github.com/riskibarqy/best-odds/internal/platform/id"
	"github.com/riskibarqy/best-odds/internal/platform/logging"
	"github.com/riskibarqy/best-odds/internal/platform/metrics"
	"github.com/riskibarqy/best-odds/internal/usecase"
	"github.com/stretchr/testify/require"
)

type providerFunc func(ctx context.Context, req odds.FetchRequest) (odds.FetchResult, error)

func (f providerFunc) FetchOdds(ctx context.Context, req odds.FetchRequest) (odds.FetchResult, error) {
	return f(ctx, req)
}

type testServer struct {
	router http.Handler
	hits   *atomic.Int32
}

func newTestServer(t *testing.T, leagues []league.League, apiKey string, provider providerFunc) testServer {
	t.Helper()

	logger := logging.NewNop()
	repo, err := memory.NewLeagueRepository(leagues)
	require.NoError(t, err)

	hits := &atomic.Int32{}
	counted := providerFunc(func(ctx context.Context, req odds.FetchRequest) (odds.FetchResult, error) {
		hits.Add(1)
		return provider(ctx, req)
	})

	m := metrics.New()
	aggregator := usecase.NewOddsService(repo, counted, nil, usecase.OddsServiceConfig{Regions: []string{"eu"}, DaysFrom: 21}, logger)
	responseCache := cacherepo.NewResponseCache(basecache.NewStore(time.Minute))
	matchday := usecase.NewMatchdayService(aggregator, responseCache, usecase.MatchdayServiceConfig{APIKey: apiKey, CacheTTL: 600 * time.Second}, m, logger)
	handler := NewHandler(matchday, usecase.NewLeagueService(repo), logger)

	return testServer{
		router: NewRouter(handler, logger, []string{"*"}, id.NewUUIDGenerator(), m.Handler()),
		hits:   hits,
	}
}

func (s testServer) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func priced(home, away, kickoff string, outcomes ...odds.RawOutcome) odds.Game {
	return odds.Game{
		CommenceTime: kickoff,
		HomeTeam:     home,
		AwayTeam:     away,
		Bookmakers: []odds.Bookmaker{{
			Key:     "book",
			Markets: []odds.Market{{Key: odds.MarketHeadToHead, Outcomes: outcomes}},
		}},
	}
}

func call(req odds.FetchRequest, status int) odds.CallOutcome {
	return odds.CallOutcome{League: req.League.Name, LeagueKey: req.League.Key, Region: req.Region, Status: status}
}

type payloadView struct {
	Date     string  `json:"date"`
	NextDate *string `json:"nextDate"`
	Leagues  []struct {
		Key     string `json:"key"`
		Name    string `json:"name"`
		Matches []struct {
			Home string `json:"home"`
			Away string `json:"away"`
			Odds struct {
				Home float64 `json:"home"`
				Draw float64 `json:"draw"`
				Away float64 `json:"away"`
			} `json:"odds"`
		} `json:"matches"`
	} `json:"leagues"`
	Meta struct {
		Calls  []map[string]any `json:"calls"`
		Errors []map[string]any `json:"errors"`
	} `json:"meta"`
}

func decodePayload(t *testing.T, rec *httptest.ResponseRecorder) payloadView {
	t.Helper()
	var view payloadView
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &view))
	return view
}

func TestGetMatchday_PartialFailureServesCompleteMatches(t *testing.T) {
	leagues := []league.League{
		{Key: "soccer_epl", Name: "Premier League"},
		{Key: "soccer_italy_serie_a", Name: "Serie A (Włochy)"},
	}
	server := newTestServer(t, leagues, "key", func(_ context.Context, req odds.FetchRequest) (odds.FetchResult, error) {
		if req.League.Key == "soccer_italy_serie_a" {
			return odds.FetchResult{Call: call(req, http.StatusTooManyRequests)}, errors.New("provider status=429")
		}
		return odds.FetchResult{
			Call: call(req, http.StatusOK),
			Games: []odds.Game{
				priced("Arsenal", "Chelsea", "2025-09-13T14:00:00Z",
					odds.RawOutcome{Name: "Arsenal", Price: 2.1}, odds.RawOutcome{Name: "Draw", Price: 3.4}, odds.RawOutcome{Name: "Chelsea", Price: 3.9}),
				priced("Everton", "Fulham", "2025-09-13T16:30:00Z",
					odds.RawOutcome{Name: "Everton", Price: 2.5}, odds.RawOutcome{Name: "Fulham", Price: 2.9}),
			},
		}, nil
	})

	rec := server.get(t, "/matches/2025-09-13")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "public, max-age=0, s-maxage=600", rec.Header().Get("Cache-Control"))
	require.Equal(t, contentTypeJSON, rec.Header().Get("Content-Type"))
	require.Equal(t, "MISS", rec.Header().Get("X-Cache"))

	view := decodePayload(t, rec)
	require.Equal(t, "2025-09-13", view.Date)
	require.Len(t, view.Leagues, 1)
	require.Len(t, view.Leagues[0].Matches, 1)
	require.Equal(t, "Arsenal", view.Leagues[0].Matches[0].Home)
	require.Len(t, view.Meta.Calls, 2)
	require.Len(t, view.Meta.Errors, 1)
	require.Equal(t, "Serie A (Włochy)", view.Meta.Errors[0]["league"])
	require.EqualValues(t, http.StatusTooManyRequests, view.Meta.Errors[0]["status"])
}

func TestGetMatchday_AllUnauthorizedIsServiceUnavailableAndNotCached(t *testing.T) {
	server := newTestServer(t, memory.SeedLeagues(), "key", func(_ context.Context, req odds.FetchRequest) (odds.FetchResult, error) {
		return odds.FetchResult{Call: call(req, http.StatusUnauthorized)}, errors.New("provider status=401")
	})

	for i := 0; i < 2; i++ {
		rec := server.get(t, "/matches/2025-09-13")
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
		require.Equal(t, "MISS", rec.Header().Get("X-Cache"))

		view := decodePayload(t, rec)
		require.NotNil(t, view.Leagues)
		require.Empty(t, view.Leagues)
		require.Len(t, view.Meta.Calls, 5)
		require.Len(t, view.Meta.Errors, len(view.Meta.Calls))
		require.Nil(t, view.NextDate)
	}
	require.Equal(t, int32(10), server.hits.Load())
}

func TestGetMatchday_SuccessIsServedFromCacheVerbatim(t *testing.T) {
	var price atomic.Int32
	price.Store(20)
	server := newTestServer(t, []league.League{{Key: "soccer_epl", Name: "Premier League"}}, "key", func(_ context.Context, req odds.FetchRequest) (odds.FetchResult, error) {
		home := float64(price.Add(1)) / 10
		return odds.FetchResult{
			Call: call(req, http.StatusOK),
			Games: []odds.Game{priced("Arsenal", "Chelsea", "2025-09-13T14:00:00Z",
				odds.RawOutcome{Name: "Arsenal", Price: home}, odds.RawOutcome{Name: "Draw", Price: 3.4}, odds.RawOutcome{Name: "Chelsea", Price: 3.9})},
		}, nil
	})

	first := server.get(t, "/matches/2025-09-13")
	require.Equal(t, http.StatusOK, first.Code)

	second := server.get(t, "/matches/2025-09-13")
	require.Equal(t, http.StatusOK, second.Code)
	require.Equal(t, "HIT", second.Header().Get("X-Cache"))
	require.Equal(t, first.Body.Bytes(), second.Body.Bytes())
	require.Equal(t, int32(1), server.hits.Load())

	bypassed := server.get(t, "/matches/2025-09-13?nocache")
	require.Equal(t, http.StatusOK, bypassed.Code)
	require.Equal(t, "BYPASS", bypassed.Header().Get("X-Cache"))
	require.NotEqual(t, first.Body.Bytes(), bypassed.Body.Bytes())
	require.Equal(t, int32(2), server.hits.Load())

	again := server.get(t, "/matches/2025-09-13")
	require.Equal(t, first.Body.Bytes(), again.Body.Bytes(), "bypass must not overwrite the cached entry")
}

func TestGetMatchday_InvalidDate(t *testing.T) {
	server := newTestServer(t, memory.SeedLeagues(), "key", func(context.Context, odds.FetchRequest) (odds.FetchResult, error) {
		t.Fatalf("provider must not be called for invalid dates")
		return odds.FetchResult{}, nil
	})

	for _, path := range []string{"/matches/2025-9-13", "/matches/2025-02-30", "/matches/today", "/matches/"} {
		rec := server.get(t, path)
		require.Equal(t, http.StatusBadRequest, rec.Code, path)

		var body map[string]string
		require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &body))
		require.NotEmpty(t, body["error"])
	}
}

func TestGetMatchday_MissingCredential(t *testing.T) {
	server := newTestServer(t, memory.SeedLeagues(), "", func(context.Context, odds.FetchRequest) (odds.FetchResult, error) {
		t.Fatalf("provider must not be called without a credential")
		return odds.FetchResult{}, nil
	})

	rec := server.get(t, "/matches/2025-09-13")
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var body map[string]string
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "missing odds api key", body["error"])
}

func TestListLeaguesAndHealthz(t *testing.T) {
	server := newTestServer(t, memory.SeedLeagues(), "key", func(context.Context, odds.FetchRequest) (odds.FetchResult, error) {
		return odds.FetchResult{}, nil
	})

	rec := server.get(t, "/leagues")
	require.Equal(t, http.StatusOK, rec.Code)
	var body leaguesResponse
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Leagues, 5)
	require.Equal(t, "soccer_epl", body.Leagues[0].Key)

	health := server.get(t, "/healthz")
	require.Equal(t, http.StatusOK, health.Code)
	require.NotEmpty(t, health.Header().Get(requestIDHeader))

	metricsRec := server.get(t, "/metrics")
	require.Equal(t, http.StatusOK, metricsRec.Code)
}

func TestOpenAPIAndDocs(t *testing.T) {
	server := newTestServer(t, memory.SeedLeagues(), "key", func(context.Context, odds.FetchRequest) (odds.FetchResult, error) {
		return odds.FetchResult{}, nil
	})

	doc := server.get(t, "/openapi.yaml")
	require.Equal(t, http.StatusOK, doc.Code)
	require.Contains(t, doc.Body.String(), "/matches/{date}")

	docs := server.get(t, "/docs")
	require.Equal(t, http.StatusOK, docs.Code)
	require.Contains(t, docs.Header().Get("Content-Type"), "text/html")
}
