package pipeline

import (
	"sync/atomic"
	"time"

	"github.com/Sternrassler/swapi-loader/pkg/swapi"
	"github.com/rs/zerolog"
)

// Stats provides run statistics with thread-safe access.
type Stats struct {
	requested     atomic.Int64
	enriched      atomic.Int64
	malformed     atomic.Int64
	transport     atomic.Int64
	persisted     atomic.Int64
	batches       atomic.Int64
	failedBatches atomic.Int64
	chunks        atomic.Int64
	elapsed       atomic.Int64
}

// Requested returns the number of identifiers dispatched for enrichment.
func (s *Stats) Requested() int64 { return s.requested.Load() }

// Enriched returns the number of records that produced a row.
func (s *Stats) Enriched() int64 { return s.enriched.Load() }

// Skipped returns the number of records that produced no row.
func (s *Stats) Skipped() int64 { return s.malformed.Load() + s.transport.Load() }

// SkippedBy returns the number of records skipped for reason.
func (s *Stats) SkippedBy(reason swapi.SkipReason) int64 {
	switch reason {
	case swapi.SkipMalformed:
		return s.malformed.Load()
	case swapi.SkipTransport:
		return s.transport.Load()
	default:
		return 0
	}
}

// PersistedRows returns the number of rows in committed batches.
func (s *Stats) PersistedRows() int64 { return s.persisted.Load() }

// Batches returns the number of batches handed to the sink.
func (s *Stats) Batches() int64 { return s.batches.Load() }

// FailedBatches returns the number of batches the sink rejected.
func (s *Stats) FailedBatches() int64 { return s.failedBatches.Load() }

// Chunks returns the number of chunks enriched.
func (s *Stats) Chunks() int64 { return s.chunks.Load() }

// Elapsed returns the wall-clock duration of the run.
func (s *Stats) Elapsed() time.Duration { return time.Duration(s.elapsed.Load()) }

// SkipRate returns skipped / requested, or 0 when nothing was requested.
func (s *Stats) SkipRate() float64 {
	requested := s.Requested()
	if requested == 0 {
		return 0
	}
	return float64(s.Skipped()) / float64(requested)
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (s *Stats) MarshalZerologObject(e *zerolog.Event) {
	e.Int64("requested", s.Requested()).
		Int64("enriched", s.Enriched()).
		Int64("skipped_malformed", s.malformed.Load()).
		Int64("skipped_transport", s.transport.Load()).
		Float64("skip_rate", s.SkipRate()).
		Int64("chunks", s.Chunks()).
		Int64("batches", s.Batches()).
		Int64("failed_batches", s.FailedBatches()).
		Int64("persisted_rows", s.PersistedRows()).
		Dur("elapsed", s.Elapsed())
}

func (s *Stats) record(res swapi.Result) {
	s.requested.Add(1)
	switch {
	case res.OK():
		s.enriched.Add(1)
		recordsTotal.WithLabelValues("enriched").Inc()
	case res.Reason == swapi.SkipMalformed:
		s.malformed.Add(1)
		recordsTotal.WithLabelValues(string(swapi.SkipMalformed)).Inc()
	default:
		s.transport.Add(1)
		recordsTotal.WithLabelValues(string(swapi.SkipTransport)).Inc()
	}
}

func (s *Stats) recordBatch(rows int, err error) {
	s.batches.Add(1)
	if err != nil {
		s.failedBatches.Add(1)
		batchesTotal.WithLabelValues("failed").Inc()
		return
	}
	s.persisted.Add(int64(rows))
	batchesTotal.WithLabelValues("ok").Inc()
}
