package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swapi_cache_hits_total",
		Help: "Total number of responses served from the cache",
	})

	// CacheMisses is labelled "absent" or "expired".
	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swapi_cache_misses_total",
		Help: "Total number of cache lookups that found no usable entry",
	}, []string{"reason"})

	CacheBytesWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swapi_cache_bytes_written_total",
		Help: "Total bytes of encoded entries written to the cache",
	})

	CacheErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swapi_cache_errors_total",
		Help: "Total number of cache operation errors",
	}, []string{"operation"})
)
