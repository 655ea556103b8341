package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Sternrassler/swapi-loader/pkg/cache"
	"github.com/redis/go-redis/v9"
)

// setupTestRedis creates a test Redis client.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // Use a separate DB for tests
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}

	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

func newTestClient(t *testing.T, mutate func(cfg *Config)) *Client {
	t.Helper()

	cfg := DefaultConfig("swapi-loader-test/1.0")
	if mutate != nil {
		mutate(&cfg)
	}
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(cfg *Config)
		errorMsg string
	}{
		{"valid config", func(cfg *Config) {}, ""},
		{"unbounded and no timeout", func(cfg *Config) { cfg.MaxConcurrency = 0; cfg.Timeout = 0 }, ""},
		{"empty user agent", func(cfg *Config) { cfg.UserAgent = "" }, "user-agent is required"},
		{"negative timeout", func(cfg *Config) { cfg.Timeout = -time.Second }, "timeout must be >= 0 (got -1s)"},
		{"negative concurrency", func(cfg *Config) { cfg.MaxConcurrency = -1 }, "max_concurrency must be >= 0 (got -1)"},
		{"zero attempts", func(cfg *Config) { cfg.Retry.MaxAttempts = 0 }, "max_attempts must be >= 1 (got 0)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig("TestApp/1.0.0")
			tt.mutate(&cfg)

			client, err := New(cfg)
			if tt.errorMsg != "" {
				if err == nil {
					t.Fatal("Expected error but got nil")
				}
				if err.Error() != tt.errorMsg {
					t.Errorf("Error message = %q, want %q", err.Error(), tt.errorMsg)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if client == nil {
				t.Fatal("Client is nil")
			}
			if (cfg.MaxConcurrency > 0) != (client.limiter != nil) {
				t.Errorf("limiter presence does not match MaxConcurrency=%d", cfg.MaxConcurrency)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("TestApp/1.0.0")

	if cfg.UserAgent != "TestApp/1.0.0" {
		t.Errorf("UserAgent = %q", cfg.UserAgent)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", cfg.Timeout)
	}
	if cfg.MaxConcurrency != 10 {
		t.Errorf("MaxConcurrency = %d, want 10", cfg.MaxConcurrency)
	}
	if cfg.Retry.MaxAttempts != 1 {
		t.Errorf("Retry.MaxAttempts = %d, want 1", cfg.Retry.MaxAttempts)
	}
	if cfg.Cache != nil {
		t.Error("Cache should be disabled by default")
	}
}

func TestClassifyError(t *testing.T) {
	c := newTestClient(t, nil)

	tests := []struct {
		name     string
		resp     *http.Response
		err      error
		expected ErrorClass
	}{
		{"network error", nil, errors.New("connection refused"), ErrorClassNetwork},
		{"too many requests", &http.Response{StatusCode: 429}, nil, ErrorClassRateLimit},
		{"not found", &http.Response{StatusCode: 404}, nil, ErrorClassClient},
		{"bad request", &http.Response{StatusCode: 400}, nil, ErrorClassClient},
		{"server error", &http.Response{StatusCode: 500}, nil, ErrorClassServer},
		{"bad gateway", &http.Response{StatusCode: 502}, nil, ErrorClassServer},
		{"success", &http.Response{StatusCode: 200}, nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.classifyError(tt.resp, tt.err); got != tt.expected {
				t.Errorf("classifyError() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestResourceName(t *testing.T) {
	tests := map[string]string{
		"/api/people/1/":  "people",
		"/api/films/12":   "films",
		"/api/planets/":   "planets",
		"/":               "root",
		"":                "root",
		"/api/people/abc": "abc",
	}
	for path, want := range tests {
		if got := resourceName(path); got != want {
			t.Errorf("resourceName(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestDo_HeadersSet(t *testing.T) {
	var gotUA, gotAccept string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c := newTestClient(t, nil)
	resp, err := c.Get(context.Background(), server.URL+"/api/people/1/")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	resp.Body.Close()

	if gotUA != "swapi-loader-test/1.0" {
		t.Errorf("User-Agent = %q", gotUA)
	}
	if gotAccept != "application/json" {
		t.Errorf("Accept = %q", gotAccept)
	}
}

func TestDo_ClientErrorPassesThrough(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail":"Not found"}`))
	}))
	defer server.Close()

	c := newTestClient(t, func(cfg *Config) { cfg.Retry = fastRetry(3) })
	resp, err := c.Get(context.Background(), server.URL+"/api/people/17/")
	if err != nil {
		t.Fatalf("4xx should not be an error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != `{"detail":"Not found"}` {
		t.Errorf("body = %q", body)
	}
	if calls.Load() != 1 {
		t.Errorf("Expected 1 call (no retry on 4xx), got %d", calls.Load())
	}
}

func TestDo_ServerErrorSingleAttempt(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := newTestClient(t, nil)
	resp, err := c.Get(context.Background(), server.URL+"/api/people/1/")
	if err == nil {
		resp.Body.Close()
		t.Fatal("Expected error for 503")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected *APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != 503 || apiErr.ErrorClass != ErrorClassServer {
		t.Errorf("APIError = %+v", apiErr)
	}
	if calls.Load() != 1 {
		t.Errorf("Expected 1 call with default retry config, got %d", calls.Load())
	}
}

func TestDo_RetryOnServerError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"name":"Luke Skywalker"}`))
	}))
	defer server.Close()

	c := newTestClient(t, func(cfg *Config) { cfg.Retry = fastRetry(3) })
	resp, err := c.Get(context.Background(), server.URL+"/api/people/1/")
	if err != nil {
		t.Fatalf("Expected success after retry, got %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", resp.StatusCode)
	}
	if calls.Load() != 3 {
		t.Errorf("Expected 3 calls, got %d", calls.Load())
	}
}

func TestDo_RetryOnRateLimit(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c := newTestClient(t, func(cfg *Config) { cfg.Retry = fastRetry(2) })
	resp, err := c.Get(context.Background(), server.URL+"/api/films/1/")
	if err != nil {
		t.Fatalf("Expected success after retry, got %v", err)
	}
	resp.Body.Close()

	if calls.Load() != 2 {
		t.Errorf("Expected 2 calls, got %d", calls.Load())
	}
}

func TestDo_RetryExhausted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c := newTestClient(t, func(cfg *Config) { cfg.Retry = fastRetry(3) })
	_, err := c.Get(context.Background(), server.URL+"/api/people/1/")

	if !errors.Is(err, ErrRetryExhausted) {
		t.Errorf("Expected ErrRetryExhausted, got %v", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadGateway {
		t.Errorf("Expected wrapped APIError with status 502, got %v", err)
	}
}

func TestDo_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	c := newTestClient(t, nil)
	_, err := c.Get(context.Background(), url+"/api/people/1/")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected *APIError, got %v", err)
	}
	if apiErr.ErrorClass != ErrorClassNetwork {
		t.Errorf("ErrorClass = %q, want network", apiErr.ErrorClass)
	}
}

func TestDo_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	c := newTestClient(t, func(cfg *Config) { cfg.Timeout = 50 * time.Millisecond })

	start := time.Now()
	_, err := c.Get(context.Background(), server.URL+"/api/people/1/")
	if err == nil {
		t.Fatal("Expected timeout error")
	}
	if time.Since(start) > time.Second {
		t.Errorf("Timeout not applied (took %v)", time.Since(start))
	}
}

func TestDo_LimiterBound(t *testing.T) {
	const limit = 3

	var current, peak atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := current.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		current.Add(-1)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c := newTestClient(t, func(cfg *Config) { cfg.MaxConcurrency = limit })

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := c.Get(context.Background(), server.URL+"/api/films/1/")
			if err != nil {
				t.Errorf("Request failed: %v", err)
				return
			}
			resp.Body.Close()
		}()
	}
	wg.Wait()

	if got := peak.Load(); got > limit {
		t.Errorf("peak in-flight = %d, want <= %d", got, limit)
	}
	if got := peak.Load(); got < 2 {
		t.Errorf("peak in-flight = %d, requests did not overlap", got)
	}
}

func TestDo_LimiterRespectsContext(t *testing.T) {
	c := newTestClient(t, func(cfg *Config) { cfg.MaxConcurrency = 1 })

	// Hold the only slot.
	if err := c.limiter.Acquire(context.Background(), 1); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer c.limiter.Release(1)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Get(ctx, "http://127.0.0.1:1/api/people/1/")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected context deadline error, got %v", err)
	}
}

func TestGetJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/films/1/":
			w.Write([]byte(`{"title":"A New Hope"}`))
		case "/api/broken/":
			w.Write([]byte(`<html>`))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"detail":"Not found"}`))
		}
	}))
	defer server.Close()

	c := newTestClient(t, nil)
	ctx := context.Background()

	var film map[string]any
	if err := c.GetJSON(ctx, server.URL+"/api/films/1/", &film); err != nil {
		t.Fatalf("GetJSON failed: %v", err)
	}
	if film["title"] != "A New Hope" {
		t.Errorf("film = %v", film)
	}

	var missing map[string]any
	if err := c.GetJSON(ctx, server.URL+"/api/films/99/", &missing); err != nil {
		t.Fatalf("GetJSON on 404 body failed: %v", err)
	}
	if missing["detail"] != "Not found" {
		t.Errorf("404 body = %v", missing)
	}

	var broken map[string]any
	if err := c.GetJSON(ctx, server.URL+"/api/broken/", &broken); err == nil {
		t.Error("Expected decode error for non-JSON body")
	}

	if err := c.GetJSON(ctx, "://bad", &broken); err == nil {
		t.Error("Expected error for invalid URL")
	}
}

func TestDo_CacheHit(t *testing.T) {
	redisClient := setupTestRedis(t)

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"name":"Tatooine"}`))
	}))
	defer server.Close()

	c := newTestClient(t, func(cfg *Config) { cfg.Cache = cache.NewManager(redisClient, time.Minute) })
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		var planet map[string]any
		if err := c.GetJSON(ctx, server.URL+"/api/planets/1/", &planet); err != nil {
			t.Fatalf("request %d failed: %v", i, err)
		}
		if planet["name"] != "Tatooine" {
			t.Errorf("request %d: planet = %v", i, planet)
		}
	}

	if calls.Load() != 1 {
		t.Errorf("Expected 1 upstream call, got %d", calls.Load())
	}

	resp, err := c.Get(ctx, server.URL+"/api/planets/1/")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	resp.Body.Close()
	if resp.Header.Get("X-Cache") != "HIT" {
		t.Errorf("X-Cache = %q, want HIT", resp.Header.Get("X-Cache"))
	}
}

func TestDo_CacheSkipsErrorResponses(t *testing.T) {
	redisClient := setupTestRedis(t)

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail":"Not found"}`))
	}))
	defer server.Close()

	c := newTestClient(t, func(cfg *Config) { cfg.Cache = cache.NewManager(redisClient, time.Minute) })

	for i := 0; i < 2; i++ {
		var body map[string]any
		if err := c.GetJSON(context.Background(), server.URL+"/api/species/99/", &body); err != nil {
			t.Fatalf("request %d failed: %v", i, err)
		}
	}

	if calls.Load() != 2 {
		t.Errorf("Expected 404 responses not to be cached, got %d upstream calls", calls.Load())
	}
}
