package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	recordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swapi_records_total",
		Help: "Enriched records by outcome (enriched, malformed_record, transport_error)",
	}, []string{"outcome"})

	chunkDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "swapi_chunk_enrich_duration_seconds",
		Help:    "Time to enrich one chunk",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	})

	batchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swapi_batches_total",
		Help: "Persisted batches by status (ok, failed)",
	}, []string{"status"})

	persistInflight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "swapi_persist_inflight",
		Help: "Background persistence tasks currently running",
	})
)
