// Package config loads loader settings from the environment.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all loader settings.
type Config struct {
	Postgres PostgresConfig
	API      APIConfig
	Pipeline PipelineConfig
	Redis    RedisConfig
	Logging  LoggingConfig

	// MetricsAddr exposes Prometheus metrics while the run is active (empty disables).
	MetricsAddr string
}

// PostgresConfig holds the connection parameters of the persistence sink.
type PostgresConfig struct {
	User     string
	Password string
	Database string
	Host     string
	Port     string
}

// APIConfig configures the upstream HTTP client.
type APIConfig struct {
	BaseURL   string
	UserAgent string

	// MaxConcurrentRequests bounds in-flight requests across all records (0 = unbounded).
	MaxConcurrentRequests int

	// RequestTimeout bounds a single request (0 = none).
	RequestTimeout time.Duration

	// MaxAttempts per request, including the first one.
	MaxAttempts int
}

// PipelineConfig configures the identifier range and chunking.
type PipelineConfig struct {
	RangeStart int
	RangeEnd   int
	ChunkSize  int

	// SkipThreshold is the skip rate above which the run reports failure.
	SkipThreshold float64
}

// RedisConfig configures the optional response cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// LoggingConfig configures zerolog output.
type LoggingConfig struct {
	Level  string
	Pretty bool
	File   string
}

// Load reads a .env file if present and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Postgres: PostgresConfig{
			User:     getEnv("POSTGRES_USER", ""),
			Password: getEnv("POSTGRES_PASSWORD", ""),
			Database: getEnv("POSTGRES_DB", ""),
			Host:     getEnv("POSTGRES_HOST", "127.0.0.1"),
			Port:     getEnv("POSTGRES_PORT", "5431"),
		},
		API: APIConfig{
			BaseURL:               strings.TrimRight(getEnv("SWAPI_BASE_URL", "https://swapi.dev/api"), "/"),
			UserAgent:             getEnv("USER_AGENT", "swapi-loader/0.1.0"),
			MaxConcurrentRequests: getEnvInt("MAX_CONCURRENT_REQUESTS", 10),
			RequestTimeout:        getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
			MaxAttempts:           getEnvInt("MAX_ATTEMPTS", 1),
		},
		Pipeline: PipelineConfig{
			RangeStart:    getEnvInt("RANGE_START", 1),
			RangeEnd:      getEnvInt("RANGE_END", 100),
			ChunkSize:     getEnvInt("CHUNK_SIZE", 5),
			SkipThreshold: getEnvFloat("SKIP_THRESHOLD", 0.5),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			TTL:      getEnvDuration("CACHE_TTL", time.Hour),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Pretty: getEnvBool("LOG_PRETTY", false),
			File:   getEnv("LOG_FILE", ""),
		},
		MetricsAddr: getEnv("METRICS_ADDR", ""),
	}

	var missing []string
	if cfg.Postgres.User == "" {
		missing = append(missing, "POSTGRES_USER")
	}
	if cfg.Postgres.Database == "" {
		missing = append(missing, "POSTGRES_DB")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges that cannot be defaulted silently.
func (c *Config) Validate() error {
	var errs []error
	if c.Pipeline.ChunkSize < 1 {
		errs = append(errs, fmt.Errorf("chunk size must be >= 1 (got %d)", c.Pipeline.ChunkSize))
	}
	if c.Pipeline.RangeEnd < c.Pipeline.RangeStart {
		errs = append(errs, fmt.Errorf("range end %d is before range start %d", c.Pipeline.RangeEnd, c.Pipeline.RangeStart))
	}
	if c.API.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("max attempts must be >= 1 (got %d)", c.API.MaxAttempts))
	}
	if c.API.MaxConcurrentRequests < 0 {
		errs = append(errs, fmt.Errorf("max concurrent requests must be >= 0 (got %d)", c.API.MaxConcurrentRequests))
	}
	if _, err := url.ParseRequestURI(c.API.BaseURL); err != nil {
		errs = append(errs, fmt.Errorf("invalid base url %q: %w", c.API.BaseURL, err))
	}
	return errors.Join(errs...)
}

// DSN builds the pgx connection string.
func (p PostgresConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     net.JoinHostPort(p.Host, p.Port),
		Path:     "/" + p.Database,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.Warn().Str("key", key).Str("value", raw).Err(err).Msg("Invalid integer, using default")
		return defaultVal
	}
	return v
}

func getEnvFloat(key string, defaultVal float64) float64 {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return defaultVal
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Warn().Str("key", key).Str("value", raw).Err(err).Msg("Invalid number, using default")
		return defaultVal
	}
	return v
}

func getEnvBool(key string, defaultVal bool) bool {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return defaultVal
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		log.Warn().Str("key", key).Str("value", raw).Err(err).Msg("Invalid boolean, using default")
		return defaultVal
	}
	return v
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return defaultVal
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		log.Warn().Str("key", key).Str("value", raw).Err(err).Msg("Invalid duration, using default")
		return defaultVal
	}
	return v
}
