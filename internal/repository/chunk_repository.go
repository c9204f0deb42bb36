package repository

import (
	"context"
	"time"

	"rssnews/internal/domain/entity"
)

// ChunkRepository persists Chunks. Chunks are owned exclusively by their
// Article: CreateBatch writes the whole set atomically, and DeleteByArticleID
// is the cascade path used when an Article is removed.
type ChunkRepository interface {
	Get(ctx context.Context, id int64) (*entity.Chunk, error)
	GetByArticleID(ctx context.Context, articleID int64) ([]*entity.Chunk, error)

	// CreateBatch writes an ordered set of chunks for one article in a
	// single transaction, also flipping the parent Article's
	// chunking_completed flag. Re-running for an article already at this
	// processing_version is a no-op.
	CreateBatch(ctx context.Context, articleID int64, processingVersion int, chunks []*entity.Chunk) error

	DeleteByArticleID(ctx context.Context, articleID int64) (int64, error)

	// MissingEmbedding returns up to limit chunks with embedding IS NULL
	// and no permanent_failure flag set.
	MissingEmbedding(ctx context.Context, limit int) ([]*entity.Chunk, error)

	// MissingFTSVector returns up to limit chunks without an FTS vector.
	MissingFTSVector(ctx context.Context, limit int) ([]*entity.Chunk, error)

	// RecentSince returns up to limit chunks published at or after since,
	// newest first. Used by the trends command's clustering pass, and by
	// the hybrid retriever's empty-query fallback (no text to score
	// relevance against, so it falls back to pure freshness).
	RecentSince(ctx context.Context, since time.Time, limit int) ([]*entity.Chunk, error)
}
