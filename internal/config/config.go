package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/best-odds/internal/platform/logging"
)

const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

// Config stores runtime configuration for the service.
type Config struct {
	AppEnv                     string
	ServiceName                string
	ServiceVersion             string
	HTTPAddr                   string
	ReadTimeout                time.Duration
	WriteTimeout               time.Duration
	CORSAllowedOrigins         []string
	LogLevel                   logging.Level
	OddsAPIKey                 string
	OddsAPIBaseURL             string
	OddsAPIRegions             []string
	OddsAPIDaysFrom            int
	OddsAPITimeout             time.Duration
	OddsAPIMaxRetries          int
	OddsAPIRateLimit           float64
	OddsAPIMaxConcurrency      int
	OddsAPICircuitEnabled      bool
	OddsAPICircuitFailureCount int
	OddsAPICircuitOpenTimeout  time.Duration
	OddsAPICircuitHalfOpenMax  int
	LeaguesFile                string
	CacheBackend               string
	CacheTTL                   time.Duration
	RedisURL                   string
	MetricsEnabled             bool
	PprofEnabled               bool
	PprofAddr                  string
	PyroscopeEnabled           bool
	PyroscopeServerAddress     string
	PyroscopeAppName           string
	PyroscopeAuthToken         string
	PyroscopeUploadRate        time.Duration
	UptraceEnabled             bool
	UptraceDSN                 string
}

func Load() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	readTimeout, err := time.ParseDuration(getEnv("APP_READ_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_READ_TIMEOUT: %w", err)
	}
	writeTimeout, err := time.ParseDuration(getEnv("APP_WRITE_TIMEOUT", "30s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_WRITE_TIMEOUT: %w", err)
	}

	regions := splitCSV(getEnv("ODDS_API_REGIONS", "eu,uk"))
	if len(regions) == 0 {
		return Config{}, fmt.Errorf("ODDS_API_REGIONS must list at least one region")
	}
	daysFrom, err := getEnvAsInt("ODDS_API_DAYS_FROM", 21)
	if err != nil {
		return Config{}, fmt.Errorf("parse ODDS_API_DAYS_FROM: %w", err)
	}
	if daysFrom < 1 {
		return Config{}, fmt.Errorf("ODDS_API_DAYS_FROM must be >= 1")
	}
	oddsTimeout, err := time.ParseDuration(getEnv("ODDS_API_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse ODDS_API_TIMEOUT: %w", err)
	}
	if oddsTimeout <= 0 {
		return Config{}, fmt.Errorf("ODDS_API_TIMEOUT must be > 0")
	}
	maxRetries, err := getEnvAsInt("ODDS_API_MAX_RETRIES", 0)
	if err != nil {
		return Config{}, fmt.Errorf("parse ODDS_API_MAX_RETRIES: %w", err)
	}
	if maxRetries < 0 {
		return Config{}, fmt.Errorf("ODDS_API_MAX_RETRIES must be >= 0")
	}
	rateLimit, err := strconv.ParseFloat(getEnv("ODDS_API_RATE_LIMIT", "10"), 64)
	if err != nil {
		return Config{}, fmt.Errorf("parse ODDS_API_RATE_LIMIT: %w", err)
	}
	if rateLimit <= 0 {
		return Config{}, fmt.Errorf("ODDS_API_RATE_LIMIT must be > 0")
	}
	maxConcurrency, err := getEnvAsInt("ODDS_API_MAX_CONCURRENCY", 16)
	if err != nil {
		return Config{}, fmt.Errorf("parse ODDS_API_MAX_CONCURRENCY: %w", err)
	}
	if maxConcurrency < 1 {
		return Config{}, fmt.Errorf("ODDS_API_MAX_CONCURRENCY must be >= 1")
	}

	circuitEnabled, err := strconv.ParseBool(getEnv("ODDS_API_CIRCUIT_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse ODDS_API_CIRCUIT_ENABLED: %w", err)
	}
	circuitFailureCount, err := getEnvAsInt("ODDS_API_CIRCUIT_FAILURE_COUNT", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse ODDS_API_CIRCUIT_FAILURE_COUNT: %w", err)
	}
	if circuitFailureCount < 1 {
		return Config{}, fmt.Errorf("ODDS_API_CIRCUIT_FAILURE_COUNT must be >= 1")
	}
	circuitOpenTimeout, err := time.ParseDuration(getEnv("ODDS_API_CIRCUIT_OPEN_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse ODDS_API_CIRCUIT_OPEN_TIMEOUT: %w", err)
	}
	if circuitOpenTimeout <= 0 {
		return Config{}, fmt.Errorf("ODDS_API_CIRCUIT_OPEN_TIMEOUT must be > 0")
	}
	circuitHalfOpenMax, err := getEnvAsInt("ODDS_API_CIRCUIT_HALF_OPEN_MAX_REQ", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse ODDS_API_CIRCUIT_HALF_OPEN_MAX_REQ: %w", err)
	}
	if circuitHalfOpenMax < 1 {
		return Config{}, fmt.Errorf("ODDS_API_CIRCUIT_HALF_OPEN_MAX_REQ must be >= 1")
	}

	cacheBackend := strings.ToLower(strings.TrimSpace(getEnv("CACHE_BACKEND", CacheBackendMemory)))
	if cacheBackend != CacheBackendMemory && cacheBackend != CacheBackendRedis {
		return Config{}, fmt.Errorf("invalid CACHE_BACKEND %q: valid values are %s, %s", cacheBackend, CacheBackendMemory, CacheBackendRedis)
	}
	cacheTTL, err := time.ParseDuration(getEnv("CACHE_TTL", "600s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CACHE_TTL: %w", err)
	}
	if cacheTTL < time.Second {
		return Config{}, fmt.Errorf("CACHE_TTL must be >= 1s")
	}
	if cacheTTL%time.Second != 0 {
		return Config{}, fmt.Errorf("CACHE_TTL must be a whole number of seconds")
	}
	redisURL := strings.TrimSpace(getEnv("REDIS_URL", ""))
	if cacheBackend == CacheBackendRedis && redisURL == "" {
		return Config{}, fmt.Errorf("REDIS_URL is required when CACHE_BACKEND=redis")
	}

	metricsEnabled, err := strconv.ParseBool(getEnv("METRICS_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse METRICS_ENABLED: %w", err)
	}

	pprofEnabled, err := strconv.ParseBool(getEnv("PPROF_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PPROF_ENABLED: %w", err)
	}
	pprofAddr := strings.TrimSpace(getEnv("PPROF_ADDR", ":6060"))
	if pprofEnabled && pprofAddr == "" {
		return Config{}, fmt.Errorf("PPROF_ADDR is required when PPROF_ENABLED=true")
	}

	pyroscopeEnabled, err := strconv.ParseBool(getEnv("PYROSCOPE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_ENABLED: %w", err)
	}
	pyroscopeServerAddress := strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", ""))
	if pyroscopeEnabled && pyroscopeServerAddress == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	}
	pyroscopeUploadRate, err := time.ParseDuration(getEnv("PYROSCOPE_UPLOAD_RATE", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_UPLOAD_RATE: %w", err)
	}
	if pyroscopeUploadRate <= 0 {
		return Config{}, fmt.Errorf("PYROSCOPE_UPLOAD_RATE must be > 0")
	}

	uptraceEnabled, err := strconv.ParseBool(getEnv("UPTRACE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_ENABLED: %w", err)
	}
	uptraceDSN := strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
	if uptraceEnabled && uptraceDSN == "" {
		return Config{}, fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}

	cfg := Config{
		AppEnv:                     appEnv,
		ServiceName:                getEnv("APP_SERVICE_NAME", "best-odds-api"),
		ServiceVersion:             getEnv("APP_SERVICE_VERSION", "dev"),
		HTTPAddr:                   getEnv("APP_HTTP_ADDR", ":8080"),
		ReadTimeout:                readTimeout,
		WriteTimeout:               writeTimeout,
		CORSAllowedOrigins:         splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		LogLevel:                   parseLogLevel(getEnv("APP_LOG_LEVEL", "info")),
		OddsAPIKey:                 strings.TrimSpace(os.Getenv("ODDS_API_KEY")),
		OddsAPIBaseURL:             strings.TrimRight(strings.TrimSpace(getEnv("ODDS_API_BASE_URL", "https://api.the-odds-api.com/v4")), "/"),
		OddsAPIRegions:             regions,
		OddsAPIDaysFrom:            daysFrom,
		OddsAPITimeout:             oddsTimeout,
		OddsAPIMaxRetries:          maxRetries,
		OddsAPIRateLimit:           rateLimit,
		OddsAPIMaxConcurrency:      maxConcurrency,
		OddsAPICircuitEnabled:      circuitEnabled,
		OddsAPICircuitFailureCount: circuitFailureCount,
		OddsAPICircuitOpenTimeout:  circuitOpenTimeout,
		OddsAPICircuitHalfOpenMax:  circuitHalfOpenMax,
		LeaguesFile:                strings.TrimSpace(getEnv("LEAGUES_FILE", "")),
		CacheBackend:               cacheBackend,
		CacheTTL:                   cacheTTL,
		RedisURL:                   redisURL,
		MetricsEnabled:             metricsEnabled,
		PprofEnabled:               pprofEnabled,
		PprofAddr:                  pprofAddr,
		PyroscopeEnabled:           pyroscopeEnabled,
		PyroscopeServerAddress:     pyroscopeServerAddress,
		PyroscopeAuthToken:         strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", "")),
		PyroscopeUploadRate:        pyroscopeUploadRate,
		UptraceEnabled:             uptraceEnabled,
		UptraceDSN:                 uptraceDSN,
	}
	cfg.PyroscopeAppName = strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName))
	if len(cfg.CORSAllowedOrigins) == 0 {
		return Config{}, fmt.Errorf("CORS_ALLOWED_ORIGINS cannot be empty")
	}
	if strings.TrimSpace(cfg.HTTPAddr) == "" {
		return Config{}, fmt.Errorf("APP_HTTP_ADDR cannot be empty")
	}

	return cfg, nil
}

func parseLogLevel(v string) logging.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return logging.LevelDebug
	case "warn", "warning":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	return strconv.Atoi(value)
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		out = append(out, item)
	}

	return out
}

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}
