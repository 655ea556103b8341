// Package pipeline runs the chunked fetch-enrich-persist loop.
//
// The identifier range [start, end) is split into chunks of ChunkSize. Chunks
// are processed in order; the identifiers of one chunk are enriched
// concurrently and joined before the next chunk starts. Each chunk's rows are
// handed to the Sink in the background, so persisting chunk K overlaps with
// enriching chunk K+1. All persistence is awaited before Run returns.
//
// Example usage:
//
//	orch, err := pipeline.New(enricher, store, pipeline.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	stats, err := orch.Run(ctx)
//
// Skipped records (see swapi.SkipReason) never reach the Sink. A failing
// batch is logged and counted in Stats and never stops the remaining chunks.
package pipeline
