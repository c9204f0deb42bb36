package repository

import (
	"context"
	"time"

	"rssnews/internal/domain/entity"
)

// ScoredChunk is a hybrid-retrieval candidate row returned by
// SearchSimilar: chunk plus the raw cosine similarity before any of the
// retriever's scoring/penalty steps are applied.
type ScoredChunk struct {
	Chunk      *entity.Chunk
	Similarity float64
}

// EmbeddingRepository stores and searches dense vectors. Writes are
// conditional (WHERE embedding IS NULL) so two embedder workers racing on
// the same chunk never double-write.
type EmbeddingRepository interface {
	// UpsertIfMissing writes embedding.Vector for embedding.ChunkID only if
	// no vector currently exists for that chunk. Returns whether the write
	// happened.
	UpsertIfMissing(ctx context.Context, embedding *entity.Embedding) (bool, error)

	MarkPermanentFailure(ctx context.Context, chunkID int64, reason string) error

	// ResetForModel clears the embedding vector (and failure state) for
	// every chunk whose recorded embedding_model does not match model, so
	// the regular Embedder batch picks them back up as if unembedded. Used
	// by a one-off provider/model migration, not the steady-state pipeline.
	ResetForModel(ctx context.Context, model string) (int64, error)

	// SearchSimilar runs the pgvector cosine-distance query against the
	// candidate pool defined by filters, returning up to limit rows
	// ordered by similarity desc.
	SearchSimilar(ctx context.Context, queryVector []float32, filters CandidateFilters, limit int) ([]ScoredChunk, error)
}

// CandidateFilters narrows the hybrid retriever's candidate fetch (§4.6
// step 2): published_at floor, language, and eTLD+1 allow-list.
type CandidateFilters struct {
	PublishedAfter *time.Time // nil means no floor
	Language       string     // empty means any
	SourceDomains  []string
}
