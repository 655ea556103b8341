// Package metrics exposes the loader's Prometheus metrics.
// All metrics are defined in their respective packages (client, cache,
// pipeline, storage) via promauto; this package serves them and documents them.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Registry is the default Prometheus registry used by the loader.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// NewHandler returns a mux serving /metrics and /health.
func NewHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	})
	return mux
}

// Serve exposes NewHandler on addr until ctx is done.
func Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("Serving metrics")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("metrics server shutdown: %w", err)
		}
		return nil
	}
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - swapi_requests_total{resource, status} (Counter): Requests by resource and HTTP status ("cache" for cache hits)
//   - swapi_request_duration_seconds{resource} (Histogram): Request duration by resource
//   - swapi_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//   - swapi_inflight_requests (Gauge): Requests holding a limiter slot
//
// Retry Metrics (pkg/client):
//   - swapi_retries_total{error_class} (Counter): Retry attempts by error class
//   - swapi_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - swapi_retry_exhausted_total{error_class} (Counter): Requests that exhausted max attempts
//
// Cache Metrics (pkg/cache):
//   - swapi_cache_hits_total (Counter): Responses served from the cache
//   - swapi_cache_misses_total{reason} (Counter): Cache misses (absent, expired)
//   - swapi_cache_bytes_written_total (Counter): Bytes of encoded entries written
//   - swapi_cache_errors_total{operation} (Counter): get, set, delete, encode, decode
//
// Pipeline Metrics (pkg/pipeline):
//   - swapi_records_total{outcome} (Counter): Records by outcome (enriched, malformed_record, transport_error)
//   - swapi_chunk_enrich_duration_seconds (Histogram): Time to enrich one chunk
//   - swapi_batches_total{status} (Counter): Batches by status (ok, failed)
//   - swapi_persist_inflight (Gauge): Background persistence tasks running
//
// Storage Metrics (pkg/storage):
//   - swapi_db_operation_duration_seconds{operation} (Histogram): reset_schema, insert_batch, select_rows
//   - swapi_db_errors_total{operation} (Counter): Database errors by operation
//
// Example Prometheus Queries:
//
//   # Skip Rate
//   sum(rate(swapi_records_total{outcome!="enriched"}[5m])) / sum(rate(swapi_records_total[5m]))
//
//   # Cache Hit Rate
//   sum(rate(swapi_cache_hits_total[5m])) /
//   (sum(rate(swapi_cache_hits_total[5m])) + sum(rate(swapi_cache_misses_total[5m])))
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(swapi_request_duration_seconds_bucket[5m]))
