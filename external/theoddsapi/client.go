package theoddsapi

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/best-odds/internal/domain/odds"
	"github.com/riskibarqy/best-odds/internal/platform/logging"
	"github.com/riskibarqy/best-odds/internal/platform/metrics"
	"github.com/riskibarqy/best-odds/internal/platform/resilience"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL     = "https://api.the-odds-api.com/v4"
	defaultTimeout     = 10 * time.Second
	defaultRateLimit   = 10
	remainingHeader    = "x-requests-remaining"
	maxResponseBytes   = 8 << 20
	minCommenceTimeLen = len("2006-01-02")
)

var apiKeyParamRegex = regexp.MustCompile(`apiKey=[^&\s"']+`)

var (
	errTransient     = crerr.New("odds provider transient failure")
	errCircuitOpen   = crerr.New("odds provider circuit open")
	errProviderReply = crerr.New("odds provider returned non-2xx status")
)

type ClientConfig struct {
	// HTTPClient supplies timeouts and the base transport. Its transport is
	// wrapped so that spans never see the credential.
	HTTPClient     *http.Client
	TracerProvider trace.TracerProvider
	BaseURL        string
	Timeout        time.Duration
	MaxRetries     int
	RateLimit      float64
	Logger         *logging.Logger
	Metrics        *metrics.Metrics
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client calls the odds provider's per-sport odds endpoint. It is safe for
// concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string
	maxRetries int
	limiter    *rate.Limiter
	logger     *logging.Logger
	metrics    *metrics.Metrics
	breaker    *resilience.CircuitBreaker
	backoff    func(attempt int) time.Duration
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := &http.Client{Timeout: timeout}
	if cfg.HTTPClient != nil {
		clone := *cfg.HTTPClient
		httpClient = &clone
	}
	base := httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	otelOpts := []otelhttp.Option{}
	if cfg.TracerProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithTracerProvider(cfg.TracerProvider))
	}
	httpClient.Transport = otelhttp.NewTransport(apiKeyTransport{base: base}, otelOpts...)

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	limit := cfg.RateLimit
	if limit <= 0 {
		limit = defaultRateLimit
	}
	burst := int(math.Ceil(limit))

	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		maxRetries: max(cfg.MaxRetries, 0),
		limiter:    rate.NewLimiter(rate.Limit(limit), burst),
		logger:     logger,
		metrics:    cfg.Metrics,
		breaker:    resilience.NewCircuitBreakerFromConfig(cfg.CircuitBreaker),
		backoff: func(attempt int) time.Duration {
			return time.Duration(attempt+1) * 250 * time.Millisecond
		},
	}
}

// FetchOdds issues one GET for the league and region in req. The returned
// result always carries a CallOutcome; the error is non-nil when the call
// failed and is already redacted.
func (c *Client) FetchOdds(ctx context.Context, req odds.FetchRequest) (odds.FetchResult, error) {
	call := odds.CallOutcome{
		League:    req.League.Name,
		LeagueKey: req.League.Key,
		Region:    req.Region,
	}

	fullURL := c.buildURL(req)
	started := time.Now()
	resp, err := c.execute(ctx, fullURL, req.APIKey)
	c.metrics.RecordUpstreamCall(req.League.Key, req.Region, resp.status, time.Since(started))

	call.Status = resp.status
	call.Remaining = resp.remaining
	if err != nil {
		call.Error = sanitizeSensitiveText(err.Error(), req.APIKey)
		c.logger.WarnContext(
			ctx,
			"odds provider call failed",
			"league", req.League.Key,
			"region", req.Region,
			"status", resp.status,
			"url", fullURL,
			"error", call.Error,
		)
		return odds.FetchResult{Call: call}, crerr.Wrapf(err, "fetch odds league=%s region=%s", req.League.Key, req.Region)
	}

	games, skipped := decodeGames(resp.body)
	if skipped > 0 {
		c.logger.DebugContext(ctx, "skipped malformed odds records", "league", req.League.Key, "region", req.Region, "skipped", skipped)
	}

	return odds.FetchResult{Call: call, Games: games}, nil
}

func (c *Client) buildURL(req odds.FetchRequest) string {
	values := url.Values{}
	values.Set("regions", req.Region)
	values.Set("markets", odds.MarketHeadToHead)
	values.Set("oddsFormat", odds.FormatDecimal)
	values.Set("daysFrom", strconv.Itoa(req.DaysFrom))

	return c.baseURL + "/sports/" + url.PathEscape(req.League.Key) + "/odds?" + values.Encode()
}

type response struct {
	status    int
	remaining *string
	body      []byte
}

func (c *Client) execute(ctx context.Context, fullURL, apiKey string) (response, error) {
	if err := c.breaker.Allow(); err != nil {
		c.logger.WarnContext(ctx, "odds provider circuit breaker rejected request", "state", c.breaker.State())
		return response{}, errCircuitOpen
	}

	resp, err := c.executeWithRetry(ctx, fullURL, apiKey)
	c.breaker.Record(callOutcome(ctx, resp.status, err))
	return resp, err
}

// executeWithRetry retries only transport errors. Any HTTP response ends
// the attempt loop because the provider bills every answered request.
func (c *Client) executeWithRetry(ctx context.Context, fullURL, apiKey string) (response, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return response{}, crerr.Wrap(err, "wait for rate limiter")
		}

		resp, err := c.do(ctx, fullURL, apiKey)
		if err == nil || resp.status != 0 {
			return resp, err
		}
		lastErr = err
		if ctx.Err() != nil || attempt == c.maxRetries {
			break
		}

		timer := time.NewTimer(c.backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return response{}, lastErr
		case <-timer.C:
		}
	}

	return response{}, lastErr
}

func (c *Client) do(ctx context.Context, fullURL, apiKey string) (response, error) {
	req, err := http.NewRequestWithContext(withAPIKey(ctx, apiKey), http.MethodGet, fullURL, nil)
	if err != nil {
		return response{}, crerr.Newf("build request: %s", sanitizeSensitiveText(err.Error(), apiKey))
	}
	req.Header.Set("accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return response{}, crerr.Mark(crerr.Newf("send request: %s", sanitizeSensitiveText(err.Error(), apiKey)), errTransient)
	}
	defer resp.Body.Close()

	out := response{
		status:    resp.StatusCode,
		remaining: headerValue(resp.Header, remainingHeader),
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return out, crerr.Mark(
			crerr.Newf("provider status=%d body=%s", resp.StatusCode, sanitizeSensitiveText(abbreviateBody(raw), apiKey)),
			errProviderReply,
		)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		// The status line arrived, so the call is recorded with it; the
		// partial body is treated as an empty listing.
		c.logger.WarnContext(ctx, "read odds provider body failed", "url", fullURL, "error", sanitizeSensitiveText(err.Error(), apiKey))
		return out, nil
	}
	out.body = raw
	return out, nil
}

func headerValue(h http.Header, key string) *string {
	values := h.Values(key)
	if len(values) == 0 {
		return nil
	}
	v := values[0]
	return &v
}

// callOutcome maps a finished call onto the breaker. A call cut short by
// its caller says nothing about the provider.
func callOutcome(ctx context.Context, status int, err error) resilience.CallOutcome {
	switch {
	case err == nil:
		return resilience.CallSucceeded
	case ctx.Err() != nil:
		return resilience.CallAbandoned
	case status == 0 && crerr.Is(err, errTransient):
		return resilience.CallFailed
	case status != 0 && isRetryableStatus(status):
		return resilience.CallFailed
	default:
		return resilience.CallSucceeded
	}
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

type eventRecord struct {
	ID           string            `json:"id"`
	SportKey     string            `json:"sport_key"`
	CommenceTime string            `json:"commence_time"`
	HomeTeam     string            `json:"home_team"`
	AwayTeam     string            `json:"away_team"`
	Bookmakers   []bookmakerRecord `json:"bookmakers"`
}

type bookmakerRecord struct {
	Key     string         `json:"key"`
	Title   string         `json:"title"`
	Markets []marketRecord `json:"markets"`
}

type marketRecord struct {
	Key      string          `json:"key"`
	Outcomes []outcomeRecord `json:"outcomes"`
}

type outcomeRecord struct {
	Name  string `json:"name"`
	Price any    `json:"price"`
}

// decodeGames reads a JSON array of events. A body that is not an array
// yields no games; array elements that do not decode are skipped.
func decodeGames(raw []byte) ([]odds.Game, int) {
	var items []json.RawMessage
	if err := sonic.Unmarshal(raw, &items); err != nil {
		return nil, 0
	}

	games := make([]odds.Game, 0, len(items))
	skipped := 0
	for _, item := range items {
		var record eventRecord
		if err := sonic.Unmarshal(item, &record); err != nil {
			skipped++
			continue
		}
		if len(record.CommenceTime) < minCommenceTimeLen {
			skipped++
			continue
		}
		games = append(games, mapGame(record))
	}

	return games, skipped
}

func mapGame(record eventRecord) odds.Game {
	game := odds.Game{
		ID:           record.ID,
		SportKey:     record.SportKey,
		CommenceTime: record.CommenceTime,
		HomeTeam:     record.HomeTeam,
		AwayTeam:     record.AwayTeam,
		Bookmakers:   make([]odds.Bookmaker, 0, len(record.Bookmakers)),
	}
	for _, bm := range record.Bookmakers {
		bookmaker := odds.Bookmaker{
			Key:     bm.Key,
			Title:   bm.Title,
			Markets: make([]odds.Market, 0, len(bm.Markets)),
		}
		for _, m := range bm.Markets {
			market := odds.Market{
				Key:      m.Key,
				Outcomes: make([]odds.RawOutcome, 0, len(m.Outcomes)),
			}
			for _, o := range m.Outcomes {
				market.Outcomes = append(market.Outcomes, odds.RawOutcome{
					Name:  o.Name,
					Price: parsePrice(o.Price),
				})
			}
			bookmaker.Markets = append(bookmaker.Markets, market)
		}
		game.Bookmakers = append(game.Bookmakers, bookmaker)
	}
	return game
}

// parsePrice accepts JSON numbers and numeric strings. Anything else is NaN
// so the extractor ignores it.
func parsePrice(v any) float64 {
	switch value := v.(type) {
	case float64:
		return value
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return math.NaN()
		}
		return parsed
	case json.Number:
		parsed, err := value.Float64()
		if err != nil {
			return math.NaN()
		}
		return parsed
	default:
		return math.NaN()
	}
}

func sanitizeSensitiveText(value, apiKey string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	if apiKey != "" {
		value = strings.ReplaceAll(value, apiKey, "REDACTED")
	}
	return apiKeyParamRegex.ReplaceAllString(value, "apiKey=REDACTED")
}

func abbreviateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= 240 {
		return text
	}
	return text[:240] + "..."
}

type apiKeyContextKey struct{}

func withAPIKey(ctx context.Context, apiKey string) context.Context {
	return context.WithValue(ctx, apiKeyContextKey{}, apiKey)
}

// apiKeyTransport sits under the otelhttp transport and adds the apiKey
// query parameter on the way out, so client spans record the keyless URL.
type apiKeyTransport struct {
	base http.RoundTripper
}

func (t apiKeyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	apiKey, _ := req.Context().Value(apiKeyContextKey{}).(string)
	if apiKey == "" {
		return t.base.RoundTrip(req)
	}

	out := req.Clone(req.Context())
	query := out.URL.Query()
	query.Set("apiKey", apiKey)
	out.URL.RawQuery = query.Encode()
	return t.base.RoundTrip(out)
}

var _ odds.Provider = (*Client)(nil)
