package embed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"rssnews/internal/domain/entity"
	"rssnews/internal/repository"
	"rssnews/pkg/tokencount"
)

const (
	// DefaultBatchSize is how many chunks are embedded in one provider call.
	DefaultBatchSize = 100

	// MaxInputTokens is text-embedding-3-large's per-input token ceiling.
	MaxInputTokens = 8191

	// maxChunkAttempts bounds transient-error retries per chunk before the
	// chunk is marked permanently failed.
	maxChunkAttempts = 3

	rateLimitBaseDelay = 2 * time.Second
	rateLimitMaxDelay  = 30 * time.Second
)

// Embedder fills in missing Chunk.Embedding vectors, batching provider
// calls and writing results back conditionally so two workers racing on
// the same chunk never double-write.
type Embedder struct {
	Chunks     repository.ChunkRepository
	Embeddings repository.EmbeddingRepository
	BatchRuns  repository.BatchRunRepository
	Provider   Provider
	WorkerID   string

	ProviderName string // e.g. "openai"
	ModelName    string // e.g. "text-embedding-3-large"

	BatchSize int
}

// Result summarizes one ProcessBatch invocation.
type Result struct {
	Considered        int
	Embedded          int
	PermanentlyFailed int
	Skipped           int
}

// Migrate resets every chunk embedded under a different model than
// e.ModelName, so the next ProcessBatch calls re-embed them under the
// current provider/model. It returns the number of chunks reset; the
// caller is expected to keep calling ProcessBatch afterward to actually
// refill them.
func (e *Embedder) Migrate(ctx context.Context) (int64, error) {
	n, err := e.Embeddings.ResetForModel(ctx, e.ModelName)
	if err != nil {
		return 0, fmt.Errorf("Migrate: %w", err)
	}
	slog.Info("embedding migration reset chunks for re-embedding",
		slog.String("target_model", e.ModelName), slog.Int64("reset_count", n))
	return n, nil
}

// ErrFatalHalt is returned by ProcessBatch when the provider reported a
// fatal error (bad credentials, account disabled); the caller should stop
// scheduling further embedding work until an operator intervenes.
var ErrFatalHalt = errors.New("embedder: halted on fatal provider error")

// ProcessBatch embeds up to batchSize chunks with a missing vector.
func (e *Embedder) ProcessBatch(ctx context.Context) (*Result, error) {
	started := time.Now()
	result := &Result{}
	buckets := map[string]int{}

	batchSize := e.BatchSize
	if batchSize == 0 {
		batchSize = DefaultBatchSize
	}

	chunks, err := e.Chunks.MissingEmbedding(ctx, batchSize)
	if err != nil {
		return nil, fmt.Errorf("ProcessBatch: MissingEmbedding: %w", err)
	}
	result.Considered = len(chunks)
	if len(chunks) == 0 {
		return result, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = tokencount.Truncate(c.Title+"\n\n"+c.Text, MaxInputTokens)
	}

	vectors, fatal, err := e.embedWithRetry(ctx, texts)
	if fatal {
		e.recordBatchRun(ctx, started, result, buckets)
		return result, fmt.Errorf("%w: %v", ErrFatalHalt, err)
	}
	if err != nil {
		// the whole batch call failed after retries for a non-fatal reason;
		// record every chunk's failure individually so each one's
		// permanent-failure counter advances rather than silently
		// re-queueing forever.
		for _, c := range chunks {
			e.markAttemptFailed(ctx, c, err.Error(), result, buckets)
		}
		e.recordBatchRun(ctx, started, result, buckets)
		return result, nil
	}

	for i, c := range chunks {
		embedding := &entity.Embedding{
			ChunkID:  c.ID,
			Provider: e.ProviderName,
			Model:    e.ModelName,
			Vector:   vectors[i],
		}
		wrote, err := e.Embeddings.UpsertIfMissing(ctx, embedding)
		if err != nil {
			e.markAttemptFailed(ctx, c, err.Error(), result, buckets)
			continue
		}
		if wrote {
			result.Embedded++
		} else {
			result.Skipped++
		}
	}

	e.recordBatchRun(ctx, started, result, buckets)
	return result, nil
}

// embedWithRetry calls the provider, backing off on rate limits and
// retrying transient errors up to maxChunkAttempts times. It reports fatal
// when the provider error is unrecoverable (auth/account), at which point
// the whole embedder should stop being scheduled.
func (e *Embedder) embedWithRetry(ctx context.Context, texts []string) (vectors [][]float32, fatal bool, err error) {
	delay := rateLimitBaseDelay

	for attempt := 1; attempt <= maxChunkAttempts; attempt++ {
		vectors, err = e.Provider.Embed(ctx, texts)
		if err == nil {
			return vectors, false, nil
		}

		if errors.Is(err, ErrFatalProvider) {
			slog.Error("embedding provider returned a fatal error", slog.Any("error", err))
			return nil, true, err
		}

		if errors.Is(err, ErrRateLimited) {
			slog.Warn("embedding provider rate limited, backing off",
				slog.Int("attempt", attempt), slog.Duration("delay", delay))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, false, ctx.Err()
			}
			delay = time.Duration(math.Min(float64(delay)*2, float64(rateLimitMaxDelay)))
			continue
		}

		if attempt == maxChunkAttempts {
			break
		}
		slog.Warn("embedding call failed, retrying",
			slog.Int("attempt", attempt), slog.Any("error", err))
	}
	return nil, false, err
}

func (e *Embedder) markAttemptFailed(ctx context.Context, c *entity.Chunk, reason string, result *Result, buckets map[string]int) {
	result.PermanentlyFailed++
	buckets[entity.ErrorKindPermanentUpstream]++
	if err := e.Embeddings.MarkPermanentFailure(ctx, c.ID, reason); err != nil {
		slog.Warn("failed to record permanent embedding failure",
			slog.Int64("chunk_id", c.ID), slog.Any("error", err))
	}
}

func (e *Embedder) recordBatchRun(ctx context.Context, started time.Time, result *Result, buckets map[string]int) {
	if e.BatchRuns == nil {
		return
	}
	run := &entity.BatchRun{
		Stage: "embedding", WorkerID: e.WorkerID,
		InputCount: result.Considered, OutputCount: result.Embedded,
		ErrorCount: result.PermanentlyFailed, ErrorBuckets: buckets,
		StartedAt: started, FinishedAt: time.Now(),
	}
	if err := e.BatchRuns.Create(ctx, run); err != nil {
		slog.Warn("failed to record batch run", slog.Any("error", err))
	}
}
