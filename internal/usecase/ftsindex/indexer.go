// Package ftsindex maintains the lexical search index over chunks: for
// every chunk without an FTS vector, it (re)computes one from title+text
// using a language-aware Postgres text-search configuration.
package ftsindex

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"rssnews/internal/domain/entity"
	"rssnews/internal/repository"
)

// DefaultBatchSize matches spec.md §4.5's large-batch default; the FTS
// indexer is cheap per row (a single UPDATE ... SET tsvector) so it can
// safely process far more rows per cycle than the embedder.
const DefaultBatchSize = 100_000

// fullConfidence is used when selecting a Chunk's FTS language: chunk
// language is already the output of upstream language detection, not a
// confidence score the indexer re-derives, so SelectLanguage is always
// called as if detection were certain.
const fullConfidence = 1.0

// Indexer updates the fts_vector/fts_language columns for chunks that don't
// have one yet.
type Indexer struct {
	Chunks    repository.ChunkRepository
	FTS       repository.FTSRepository
	BatchRuns repository.BatchRunRepository
	WorkerID  string

	BatchSize int
}

// Result summarizes one ProcessBatch invocation.
type Result struct {
	Considered int
	Indexed    int
	Errored    int
}

// ProcessBatch indexes up to batchSize chunks missing an FTS vector.
func (ix *Indexer) ProcessBatch(ctx context.Context) (*Result, error) {
	started := time.Now()
	result := &Result{}
	buckets := map[string]int{}

	batchSize := ix.BatchSize
	if batchSize == 0 {
		batchSize = DefaultBatchSize
	}

	chunks, err := ix.Chunks.MissingFTSVector(ctx, batchSize)
	if err != nil {
		return nil, fmt.Errorf("ProcessBatch: MissingFTSVector: %w", err)
	}
	result.Considered = len(chunks)

	for _, c := range chunks {
		lang := entity.SelectLanguage(c.Language, fullConfidence)
		text := c.Title + "\n\n" + c.Text
		if err := ix.FTS.UpdateVector(ctx, c.ID, text, lang); err != nil {
			result.Errored++
			buckets[entity.ErrorKindValidation]++
			slog.Warn("fts index update failed", slog.Int64("chunk_id", c.ID), slog.Any("error", err))
			continue
		}
		result.Indexed++
	}

	if ix.BatchRuns != nil {
		run := &entity.BatchRun{
			Stage: "fts", WorkerID: ix.WorkerID,
			InputCount: result.Considered, OutputCount: result.Indexed,
			ErrorCount: result.Errored, ErrorBuckets: buckets,
			StartedAt: started, FinishedAt: time.Now(),
		}
		if err := ix.BatchRuns.Create(ctx, run); err != nil {
			slog.Warn("failed to record batch run", slog.Any("error", err))
		}
	}

	return result, nil
}
