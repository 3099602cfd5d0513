package usecase

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/best-odds/internal/domain/odds"
	oddsmock "github.com/riskibarqy/best-odds/internal/mocks/domain/odds"
	"github.com/riskibarqy/best-odds/internal/platform/logging"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type aggregatorFunc func(ctx context.Context, date, apiKey string) (odds.Payload, error)

func (f aggregatorFunc) Aggregate(ctx context.Context, date, apiKey string) (odds.Payload, error) {
	return f(ctx, date, apiKey)
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	ttls    map[string]time.Duration
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (c *fakeCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	body, ok := c.entries[key]
	return body, ok, nil
}

func (c *fakeCache) Put(_ context.Context, key string, body []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = append([]byte(nil), body...)
	c.ttls[key] = ttl
	return nil
}

func successPayload(date string, home float64) odds.Payload {
	report := odds.NewReport()
	remaining := "100"
	report.Record(odds.CallOutcome{League: "Premier League", LeagueKey: "soccer_epl", Region: "eu", Status: http.StatusOK, Remaining: &remaining})
	return odds.Payload{
		Date:     date,
		NextDate: &date,
		Leagues: []odds.LeagueResult{{
			Key:  "soccer_epl",
			Name: "Premier League",
			Matches: []odds.Match{{
				Home: "Arsenal", Away: "Chelsea", UTCDate: date + "T14:00:00Z",
				Odds: odds.OddsTriple{Home: home, Draw: 3.4, Away: 3.9},
			}},
		}},
		Meta: report,
	}
}

func totalFailurePayload(date string) odds.Payload {
	report := odds.NewReport()
	for _, key := range []string{"soccer_epl", "soccer_italy_serie_a"} {
		report.Record(odds.CallOutcome{League: key, LeagueKey: key, Region: "eu", Status: http.StatusUnauthorized})
	}
	return odds.Payload{Date: date, Leagues: []odds.LeagueResult{}, Meta: report}
}

func newTestMatchdayService(agg Aggregator, cache odds.ResponseCache) *MatchdayService {
	return NewMatchdayService(agg, cache, MatchdayServiceConfig{APIKey: "key", CacheTTL: 600 * time.Second}, nil, logging.NewNop())
}

func TestMatchdayService_SuccessIsCachedAndServedVerbatim(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	agg := aggregatorFunc(func(_ context.Context, date, _ string) (odds.Payload, error) {
		n := calls.Add(1)
		return successPayload(date, 2.0+float64(n)), nil
	})
	cache := newFakeCache()
	service := newTestMatchdayService(agg, cache)

	first, err := service.GetMatchday(context.Background(), "2025-09-13", false)
	require.NoError(t, err)
	require.False(t, first.FromCache)
	require.Equal(t, odds.ClassificationSuccess, first.Classification)
	require.Equal(t, 600*time.Second, cache.ttls["matches:2025-09-13"])

	second, err := service.GetMatchday(context.Background(), "2025-09-13", false)
	require.NoError(t, err)
	require.True(t, second.FromCache)
	require.Equal(t, first.Body, second.Body)
	require.Equal(t, int32(1), calls.Load())

	var decoded map[string]any
	require.NoError(t, sonic.Unmarshal(second.Body, &decoded))
	require.Equal(t, "2025-09-13", decoded["date"])
}

func TestMatchdayService_TotalFailureIsNeverCached(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	agg := aggregatorFunc(func(_ context.Context, date, _ string) (odds.Payload, error) {
		calls.Add(1)
		return totalFailurePayload(date), nil
	})
	cache := newFakeCache()
	service := newTestMatchdayService(agg, cache)

	for i := 0; i < 2; i++ {
		resp, err := service.GetMatchday(context.Background(), "2025-09-13", false)
		require.NoError(t, err)
		require.False(t, resp.FromCache)
		require.Equal(t, odds.ClassificationTotalFailure, resp.Classification)
	}
	require.Empty(t, cache.entries)
	require.Equal(t, int32(2), calls.Load())
}

func TestMatchdayService_BypassSkipsReadAndWrite(t *testing.T) {
	t.Parallel()

	agg := aggregatorFunc(func(_ context.Context, date, _ string) (odds.Payload, error) {
		return successPayload(date, 2.5), nil
	})
	cache := newFakeCache()
	cache.entries["matches:2025-09-13"] = []byte(`{"stale":true}`)
	service := newTestMatchdayService(agg, cache)

	resp, err := service.GetMatchday(context.Background(), "2025-09-13", true)
	require.NoError(t, err)
	require.False(t, resp.FromCache)
	require.NotEqual(t, `{"stale":true}`, string(resp.Body))
	require.Equal(t, `{"stale":true}`, string(cache.entries["matches:2025-09-13"]))
}

func TestMatchdayService_RejectsInvalidDateBeforeAnythingElse(t *testing.T) {
	t.Parallel()

	agg := aggregatorFunc(func(context.Context, string, string) (odds.Payload, error) {
		t.Fatalf("aggregator must not run for invalid input")
		return odds.Payload{}, nil
	})
	service := NewMatchdayService(agg, newFakeCache(), MatchdayServiceConfig{}, nil, logging.NewNop())

	for _, date := range []string{"2025-9-13", "2025-02-30", "13-09-2025", "", "2025-09-13x"} {
		_, err := service.GetMatchday(context.Background(), date, false)
		require.ErrorIs(t, err, ErrInvalidInput, "date=%q", date)
	}
}

func TestMatchdayService_MissingCredential(t *testing.T) {
	t.Parallel()

	agg := aggregatorFunc(func(context.Context, string, string) (odds.Payload, error) {
		t.Fatalf("aggregator must not run without credential")
		return odds.Payload{}, nil
	})
	service := NewMatchdayService(agg, newFakeCache(), MatchdayServiceConfig{APIKey: "  "}, nil, logging.NewNop())

	_, err := service.GetMatchday(context.Background(), "2025-09-13", false)
	require.ErrorIs(t, err, ErrMissingCredential)
}

func TestMatchdayService_CacheErrorsDegradeToMiss(t *testing.T) {
	t.Parallel()

	cache := oddsmock.NewResponseCache(t)
	cache.On("Get", mock.Anything, "matches:2025-09-13").Return(nil, false, errors.New("redis down")).Once()
	cache.On("Put", mock.Anything, "matches:2025-09-13", mock.Anything, 600*time.Second).Return(errors.New("redis down")).Once()

	agg := aggregatorFunc(func(_ context.Context, date, _ string) (odds.Payload, error) {
		return successPayload(date, 2.0), nil
	})
	service := newTestMatchdayService(agg, cache)

	resp, err := service.GetMatchday(context.Background(), "2025-09-13", false)
	require.NoError(t, err)
	require.Equal(t, odds.ClassificationSuccess, resp.Classification)
}

func TestMatchdayService_CancelledAggregationIsNotCached(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	agg := aggregatorFunc(func(ctx context.Context, _, _ string) (odds.Payload, error) {
		cancel()
		return odds.Payload{}, ctx.Err()
	})
	cache := newFakeCache()
	service := newTestMatchdayService(agg, cache)

	_, err := service.GetMatchday(ctx, "2025-09-13", false)
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, cache.entries)
}

func TestMatchdayService_AggregatorErrorIsDependencyUnavailable(t *testing.T) {
	t.Parallel()

	agg := aggregatorFunc(func(context.Context, string, string) (odds.Payload, error) {
		return odds.Payload{}, errors.New("league store offline")
	})
	service := newTestMatchdayService(agg, newFakeCache())

	_, err := service.GetMatchday(context.Background(), "2025-09-13", false)
	require.ErrorIs(t, err, ErrDependencyUnavailable)
}

func TestMatchdayService_CoalescesConcurrentMisses(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	var calls atomic.Int32
	agg := aggregatorFunc(func(_ context.Context, date, _ string) (odds.Payload, error) {
		calls.Add(1)
		<-release
		return successPayload(date, 2.0), nil
	})
	service := newTestMatchdayService(agg, newFakeCache())

	const callers = 5
	var wg sync.WaitGroup
	bodies := make([][]byte, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := service.GetMatchday(context.Background(), "2025-09-13", false)
			bodies[i], errs[i] = resp.Body, err
		}()
	}

	require.Eventually(t, func() bool { return calls.Load() >= 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, bodies[0], bodies[i])
	}
	require.Equal(t, int32(1), calls.Load())
}

func TestEncodePayload_EmptyCollectionsAreArrays(t *testing.T) {
	t.Parallel()

	body, err := encodePayload(odds.Payload{Date: "2025-09-13", Leagues: []odds.LeagueResult{}, Meta: odds.NewReport()})
	require.NoError(t, err)
	require.JSONEq(t, `{"date":"2025-09-13","nextDate":null,"leagues":[],"meta":{"calls":[],"errors":[]}}`, string(body))
}
