// Package client provides the shared upstream HTTP client with a global
// in-flight request limiter, optional response caching, error classification
// and retry.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/swapi-loader/pkg/cache"
	"github.com/Sternrassler/swapi-loader/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

// Prometheus metrics for client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swapi_requests_total",
		Help: "Total upstream requests by resource and status",
	}, []string{"resource", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "swapi_request_duration_seconds",
		Help:    "Upstream request duration in seconds by resource",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"resource"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swapi_errors_total",
		Help: "Total upstream errors by class",
	}, []string{"class"})

	inflightRequests = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "swapi_inflight_requests",
		Help: "Upstream requests currently holding a limiter slot",
	})

	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swapi_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	retryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "swapi_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error class",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"error_class"})

	retryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swapi_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})
)

// Client is the shared upstream client. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	limiter    *semaphore.Weighted
	cache      *cache.Manager
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// User-Agent header sent with every request.
	UserAgent string

	// Timeout bounds a single request (0 = none).
	Timeout time.Duration

	// MaxConcurrency bounds in-flight requests across all callers (0 = unbounded).
	MaxConcurrency int

	// Retry policy for server, rate limit and network failures.
	Retry RetryConfig

	// Cache is optional; nil disables response caching.
	Cache *cache.Manager
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(userAgent string) Config {
	return Config{
		UserAgent:      userAgent,
		Timeout:        30 * time.Second,
		MaxConcurrency: 10,
		Retry:          DefaultRetryConfig(),
	}
}

// New creates a new client.
func New(cfg Config) (*Client, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("timeout must be >= 0 (got %s)", cfg.Timeout)
	}

	if cfg.MaxConcurrency < 0 {
		return nil, fmt.Errorf("max_concurrency must be >= 0 (got %d)", cfg.MaxConcurrency)
	}

	if cfg.Retry.MaxAttempts < 1 {
		return nil, fmt.Errorf("max_attempts must be >= 1 (got %d)", cfg.Retry.MaxAttempts)
	}

	c := &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		cache:  cfg.Cache,
		config: cfg,
		logger: logging.NewLogger("swapi-client"),
	}
	if cfg.MaxConcurrency > 0 {
		c.limiter = semaphore.NewWeighted(int64(cfg.MaxConcurrency))
	}

	return c, nil
}

// Do performs an HTTP request with caching, limiting, and error handling.
// 4xx responses are returned to the caller; exhausted server, rate limit
// and network failures are returned as errors.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	resource := resourceName(req.URL.Path)

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(resource).Observe(time.Since(startTime).Seconds())
	}()

	// Step 1: Check Cache
	var cacheKey cache.CacheKey
	cacheable := c.cache != nil && req.Method == http.MethodGet
	if cacheable {
		cacheKey = cache.KeyFromURL(req.URL)

		entry, err := c.cache.Get(ctx, cacheKey)
		switch {
		case err == nil:
			c.logger.Debug().Str("url", req.URL.String()).Msg("Cache hit")
			requestsTotal.WithLabelValues(resource, "cache").Inc()
			return cache.EntryToResponse(entry, req), nil
		case !errors.Is(err, cache.ErrCacheMiss):
			c.logger.Warn().Err(err).Str("url", req.URL.String()).Msg("Cache get error")
		}
	}

	// Step 2: Headers
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Str("url", req.URL.String()).
		Str("method", req.Method).
		Msg("Executing request")

	// Step 3: Execute with retry
	var resp *http.Response
	retryErr := retryWithBackoff(ctx, c.config.Retry, func() (ErrorClass, error) {
		var reqErr error
		resp, reqErr = c.roundTrip(req)

		if reqErr != nil {
			errClass := c.classifyError(nil, reqErr)
			errorsTotal.WithLabelValues(string(errClass)).Inc()
			requestsTotal.WithLabelValues(resource, "network_error").Inc()
			c.logger.Warn().Err(reqErr).Str("url", req.URL.String()).Msg("HTTP request failed")
			return errClass, &APIError{
				ErrorClass: errClass,
				Message:    "request failed",
				Err:        reqErr,
			}
		}

		requestsTotal.WithLabelValues(resource, strconv.Itoa(resp.StatusCode)).Inc()

		if resp.StatusCode >= 400 {
			errClass := c.classifyError(resp, nil)
			errorsTotal.WithLabelValues(string(errClass)).Inc()

			c.logger.Debug().
				Str("url", req.URL.String()).
				Int("status_code", resp.StatusCode).
				Str("error_class", string(errClass)).
				Msg("Upstream error status")

			if errClass.Retryable() {
				resp.Body.Close()
				return errClass, &APIError{
					StatusCode: resp.StatusCode,
					ErrorClass: errClass,
					Message:    resp.Status,
				}
			}
		}

		return "", nil
	})

	if retryErr != nil {
		return nil, retryErr
	}

	// Step 4: Update Cache on success
	if cacheable && resp.StatusCode == http.StatusOK {
		entry, err := cache.ResponseToEntry(resp, c.cache.TTL())
		if err != nil {
			c.logger.Warn().Err(err).Msg("Failed to create cache entry")
		} else if err := c.cache.Set(ctx, cacheKey, entry); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to cache response")
		} else {
			c.logger.Debug().
				Str("url", req.URL.String()).
				Dur("ttl", entry.TTL()).
				Msg("Cached response")
		}
	}

	return resp, nil
}

// roundTrip executes one attempt while holding a limiter slot.
func (c *Client) roundTrip(req *http.Request) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Acquire(req.Context(), 1); err != nil {
			return nil, err
		}
		inflightRequests.Inc()
		defer func() {
			inflightRequests.Dec()
			c.limiter.Release(1)
		}()
	}
	return c.httpClient.Do(req)
}

// classifyError categorizes an error for observability and handling.
func (c *Client) classifyError(resp *http.Response, err error) ErrorClass {
	if err != nil {
		return ErrorClassNetwork
	}
	class, _ := ClassForStatus(resp.StatusCode)
	return class
}

// Get performs a GET request to an absolute URL.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	return c.Do(req)
}

// GetJSON fetches url and decodes its JSON body into v.
// The body is decoded whatever the 4xx status, so error documents such as
// {"detail": "Not found"} reach the caller as data.
func (c *Client) GetJSON(ctx context.Context, url string, v any) error {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s (status %d): %w", url, resp.StatusCode, err)
	}
	return nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// resourceName returns the resource collection of a path, e.g. "people" for
// /api/people/1/. Used as a low-cardinality metric label.
func resourceName(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i := len(segments) - 1; i >= 0; i-- {
		s := segments[i]
		if s == "" {
			continue
		}
		if _, err := strconv.Atoi(s); err == nil {
			continue
		}
		return s
	}
	return "root"
}
