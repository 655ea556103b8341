package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/Sternrassler/swapi-loader/pkg/logging"
	"github.com/Sternrassler/swapi-loader/pkg/swapi"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/pool"
)

// Enricher turns one identifier into a Result. *swapi.Enricher implements it.
type Enricher interface {
	Enrich(ctx context.Context, id int) swapi.Result
}

// Sink persists one chunk of rows atomically. *storage.Store implements it.
type Sink interface {
	InsertBatch(ctx context.Context, rows []swapi.Row) error
}

// Config holds orchestrator configuration.
type Config struct {
	// RangeStart is the first identifier fetched.
	RangeStart int

	// RangeEnd is exclusive.
	RangeEnd int

	// ChunkSize is the number of identifiers enriched together.
	ChunkSize int
}

// DefaultConfig returns identifiers [1, 100) in chunks of 5.
func DefaultConfig() Config {
	return Config{
		RangeStart: 1,
		RangeEnd:   100,
		ChunkSize:  5,
	}
}

// Orchestrator drives the chunked pipeline.
type Orchestrator struct {
	enricher Enricher
	sink     Sink
	config   Config
	logger   zerolog.Logger
}

// New creates an orchestrator.
func New(enricher Enricher, sink Sink, cfg Config) (*Orchestrator, error) {
	if enricher == nil {
		return nil, fmt.Errorf("enricher is required")
	}
	if sink == nil {
		return nil, fmt.Errorf("sink is required")
	}
	if cfg.ChunkSize < 1 {
		return nil, fmt.Errorf("chunk_size must be >= 1 (got %d)", cfg.ChunkSize)
	}
	if cfg.RangeEnd < cfg.RangeStart {
		return nil, fmt.Errorf("range end %d is before range start %d", cfg.RangeEnd, cfg.RangeStart)
	}

	return &Orchestrator{
		enricher: enricher,
		sink:     sink,
		config:   cfg,
		logger:   logging.NewLogger("pipeline"),
	}, nil
}

// Run processes every chunk and waits for all persistence to finish.
// On cancellation no new chunk is started; batches already handed to the
// sink are still awaited, and the context error is returned with the stats.
func (o *Orchestrator) Run(ctx context.Context) (*Stats, error) {
	start := time.Now()
	stats := &Stats{}

	chunks := Chunks(o.config.RangeStart, o.config.RangeEnd, o.config.ChunkSize)

	o.logger.Info().
		Int("range_start", o.config.RangeStart).
		Int("range_end", o.config.RangeEnd).
		Int("chunk_size", o.config.ChunkSize).
		Int("chunks", len(chunks)).
		Msg("Starting pipeline")

	// Persistence must outlive a cancelled run so dispatched batches commit.
	persistCtx := context.WithoutCancel(ctx)

	var (
		persist conc.WaitGroup
		runErr  error
	)
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			o.logger.Warn().Err(err).Int("chunk", i).Msg("Run cancelled, not dispatching remaining chunks")
			runErr = err
			break
		}

		i := i
		rows := o.enrichChunk(ctx, i, chunk, stats)

		persist.Go(func() {
			o.persist(persistCtx, i, rows, stats)
		})
	}

	persist.Wait()
	stats.elapsed.Store(int64(time.Since(start)))

	o.logger.Info().Object("stats", stats).Msg("Pipeline finished")

	return stats, runErr
}

// enrichChunk enriches every identifier of chunk concurrently and returns the
// successful rows in identifier order.
func (o *Orchestrator) enrichChunk(ctx context.Context, index int, chunk []int, stats *Stats) []swapi.Row {
	start := time.Now()
	results := make([]swapi.Result, len(chunk))

	p := pool.New().WithMaxGoroutines(len(chunk))
	for j, id := range chunk {
		j, id := j, id
		p.Go(func() {
			results[j] = o.enricher.Enrich(ctx, id)
		})
	}
	p.Wait()

	rows := make([]swapi.Row, 0, len(chunk))
	for _, res := range results {
		stats.record(res)
		if res.OK() {
			rows = append(rows, *res.Row)
		}
	}
	stats.chunks.Add(1)
	chunkDuration.Observe(time.Since(start).Seconds())

	o.logger.Debug().
		Int("chunk", index).
		Int("first_id", chunk[0]).
		Int("ids", len(chunk)).
		Int("rows", len(rows)).
		Dur("duration", time.Since(start)).
		Msg("Chunk enriched")

	return rows
}

// persist hands rows to the sink. Failures are logged and counted only.
func (o *Orchestrator) persist(ctx context.Context, index int, rows []swapi.Row, stats *Stats) {
	persistInflight.Inc()
	defer persistInflight.Dec()

	err := o.sink.InsertBatch(ctx, rows)
	stats.recordBatch(len(rows), err)

	if err != nil {
		o.logger.Error().Err(err).Int("chunk", index).Int("rows", len(rows)).Msg("Batch insert failed, chunk lost")
		return
	}
	o.logger.Info().Int("chunk", index).Int("rows", len(rows)).Msg("Batch committed")
}
