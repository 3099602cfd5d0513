package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/best-odds/internal/domain/odds"
	"github.com/riskibarqy/best-odds/internal/platform/logging"
	"github.com/riskibarqy/best-odds/internal/platform/metrics"
	"github.com/riskibarqy/best-odds/internal/platform/resilience"
	"github.com/valyala/bytebufferpool"
	"go.opentelemetry.io/otel/attribute"
)

const (
	matchdayDateLayout  = "2006-01-02"
	matchdayCachePrefix = "matches:"
	defaultMatchdayTTL  = 600 * time.Second
)

// Aggregator assembles the payload for one date.
type Aggregator interface {
	Aggregate(ctx context.Context, date, apiKey string) (odds.Payload, error)
}

type MatchdayServiceConfig struct {
	APIKey   string
	CacheTTL time.Duration
}

// MatchdayResponse is the encoded board plus what the transport needs to
// pick a status and cache headers.
type MatchdayResponse struct {
	Body           []byte
	Classification odds.Classification
	FromCache      bool
	TTL            time.Duration
}

// MatchdayService serves the matchday board through the response cache.
// Only payloads that are not a total failure are stored.
type MatchdayService struct {
	aggregator Aggregator
	cache      odds.ResponseCache
	apiKey     string
	ttl        time.Duration
	metrics    *metrics.Metrics
	logger     *logging.Logger
	flight     resilience.SingleFlight[MatchdayResponse]
}

func NewMatchdayService(aggregator Aggregator, cache odds.ResponseCache, cfg MatchdayServiceConfig, m *metrics.Metrics, logger *logging.Logger) *MatchdayService {
	if logger == nil {
		logger = logging.Default()
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = defaultMatchdayTTL
	}

	return &MatchdayService{
		aggregator: aggregator,
		cache:      cache,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		ttl:        ttl,
		metrics:    m,
		logger:     logger,
	}
}

func (s *MatchdayService) TTL() time.Duration {
	return s.ttl
}

// GetMatchday returns the board for date. With bypass set the cache is
// neither read nor written.
func (s *MatchdayService) GetMatchday(ctx context.Context, date string, bypass bool) (MatchdayResponse, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchdayService.GetMatchday")
	defer span.End()

	date = strings.TrimSpace(date)
	if err := ValidateMatchDate(date); err != nil {
		return MatchdayResponse{}, err
	}
	if s.apiKey == "" {
		return MatchdayResponse{}, ErrMissingCredential
	}
	span.SetAttributes(attribute.String("matchday.date", date), attribute.Bool("matchday.bypass", bypass))

	if bypass {
		s.metrics.RecordCacheLookup(metrics.CacheBypass)
		return s.build(ctx, date, false)
	}

	key := matchdayCachePrefix + date
	if body, ok := s.lookup(ctx, key); ok {
		span.SetAttributes(attribute.Bool("matchday.cache_hit", true))
		return MatchdayResponse{
			Body:           body,
			Classification: odds.ClassificationSuccess,
			FromCache:      true,
			TTL:            s.ttl,
		}, nil
	}

	resp, err, shared := s.flight.Do(key, func() (MatchdayResponse, error) {
		return s.build(ctx, date, true)
	})
	if shared && err != nil && isContextError(err) && ctx.Err() == nil {
		// The leader's client went away; this caller is still waiting.
		return s.build(ctx, date, true)
	}
	return resp, err
}

func (s *MatchdayService) lookup(ctx context.Context, key string) ([]byte, bool) {
	if s.cache == nil {
		s.metrics.RecordCacheLookup(metrics.CacheMiss)
		return nil, false
	}

	body, ok, err := s.cache.Get(ctx, key)
	switch {
	case err != nil:
		s.metrics.RecordCacheLookup(metrics.CacheError)
		s.logger.WarnContext(ctx, "matchday cache lookup failed, treating as miss", "key", key, "error", err)
		return nil, false
	case !ok:
		s.metrics.RecordCacheLookup(metrics.CacheMiss)
		return nil, false
	default:
		s.metrics.RecordCacheLookup(metrics.CacheHit)
		return body, true
	}
}

func (s *MatchdayService) build(ctx context.Context, date string, store bool) (MatchdayResponse, error) {
	payload, err := s.aggregator.Aggregate(ctx, date, s.apiKey)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return MatchdayResponse{}, ctxErr
		}
		return MatchdayResponse{}, fmt.Errorf("%w: aggregate matchday date=%s: %v", ErrDependencyUnavailable, date, err)
	}

	classification := odds.Classify(payload)
	s.metrics.RecordAggregation(string(classification), countMatches(payload))

	body, err := encodePayload(payload)
	if err != nil {
		return MatchdayResponse{}, fmt.Errorf("encode matchday payload: %w", err)
	}

	resp := MatchdayResponse{
		Body:           body,
		Classification: classification,
		TTL:            s.ttl,
	}
	if classification == odds.ClassificationTotalFailure {
		s.logger.WarnContext(ctx, "every odds provider call failed", "date", date, "calls", len(payload.Meta.Calls))
	}
	if !store {
		return resp, nil
	}

	switch {
	case !classification.Cacheable():
		s.metrics.RecordCacheWrite("skipped")
	case ctx.Err() != nil:
		return MatchdayResponse{}, ctx.Err()
	case s.cache == nil:
	default:
		if err := s.cache.Put(ctx, matchdayCachePrefix+date, body, s.ttl); err != nil {
			s.metrics.RecordCacheWrite(metrics.CacheError)
			s.logger.WarnContext(ctx, "matchday cache write failed", "date", date, "error", err)
		} else {
			s.metrics.RecordCacheWrite("stored")
		}
	}

	return resp, nil
}

// ValidateMatchDate accepts YYYY-MM-DD calendar dates only.
func ValidateMatchDate(date string) error {
	if len(date) != len(matchdayDateLayout) {
		return fmt.Errorf("%w: invalid date", ErrInvalidInput)
	}
	if _, err := time.Parse(matchdayDateLayout, date); err != nil {
		return fmt.Errorf("%w: invalid date", ErrInvalidInput)
	}
	return nil
}

func encodePayload(payload odds.Payload) ([]byte, error) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	if err := sonic.ConfigDefault.NewEncoder(buf).Encode(payload); err != nil {
		return nil, err
	}
	raw := buf.B
	if n := len(raw); n > 0 && raw[n-1] == '\n' {
		raw = raw[:n-1]
	}
	return append([]byte(nil), raw...), nil
}

func countMatches(payload odds.Payload) int {
	total := 0
	for _, item := range payload.Leagues {
		total += len(item.Matches)
	}
	return total
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
