package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"rssnews/internal/domain/entity"
	"rssnews/internal/repository"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// DefaultSearchTimeout bounds the pgvector similarity query so a slow
// sequential scan (e.g. a missing IVFFlat index) never stalls a request.
const DefaultSearchTimeout = 5 * time.Second

// EmbeddingRepo implements repository.EmbeddingRepository against the
// embedding_* columns on chunks.
type EmbeddingRepo struct{ db *sql.DB }

func NewEmbeddingRepo(db *sql.DB) repository.EmbeddingRepository {
	return &EmbeddingRepo{db: db}
}

// UpsertIfMissing writes embedding.Vector only if chunks.embedding is still
// NULL for this chunk, so two embedder workers racing on the same chunk
// never double-write.
func (r *EmbeddingRepo) UpsertIfMissing(ctx context.Context, embedding *entity.Embedding) (bool, error) {
	if err := embedding.Validate(); err != nil {
		return false, fmt.Errorf("UpsertIfMissing: %w", err)
	}
	vector := pgvector.NewVector(embedding.Vector)
	const query = `
UPDATE chunks SET
	embedding = $2, embedding_provider = $3, embedding_model = $4,
	embedding_failure_count = 0, embedding_last_error = ''
WHERE id = $1 AND embedding IS NULL`
	result, err := r.db.ExecContext(ctx, query, embedding.ChunkID, vector, embedding.Provider, embedding.Model)
	if err != nil {
		return false, fmt.Errorf("UpsertIfMissing: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("UpsertIfMissing: RowsAffected: %w", err)
	}
	return n > 0, nil
}

func (r *EmbeddingRepo) MarkPermanentFailure(ctx context.Context, chunkID int64, reason string) error {
	const query = `
UPDATE chunks SET
	embedding_permanent_failure = TRUE, embedding_failure_count = embedding_failure_count + 1,
	embedding_last_error = $2
WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, chunkID, reason)
	if err != nil {
		return fmt.Errorf("MarkPermanentFailure: %w", err)
	}
	return requireRowAffected(result, "MarkPermanentFailure")
}

// ResetForModel clears embedding state for every chunk not already on
// model, so the next Embedder batch re-embeds them.
func (r *EmbeddingRepo) ResetForModel(ctx context.Context, model string) (int64, error) {
	const query = `
UPDATE chunks SET
	embedding = NULL, embedding_provider = '', embedding_model = '',
	embedding_failure_count = 0, embedding_permanent_failure = FALSE, embedding_last_error = ''
WHERE embedding IS NOT NULL AND embedding_model != $1`
	result, err := r.db.ExecContext(ctx, query, model)
	if err != nil {
		return 0, fmt.Errorf("ResetForModel: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("ResetForModel: RowsAffected: %w", err)
	}
	return n, nil
}

// SearchSimilar runs the pgvector cosine-distance query over the candidate
// pool narrowed by filters, returning up to limit rows ordered by
// similarity desc.
func (r *EmbeddingRepo) SearchSimilar(ctx context.Context, queryVector []float32, filters repository.CandidateFilters, limit int) ([]repository.ScoredChunk, error) {
	searchCtx, cancel := context.WithTimeout(ctx, DefaultSearchTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 50
	}
	vector := pgvector.NewVector(queryVector)

	conditions := []string{"embedding IS NOT NULL"}
	args := []any{vector}
	argN := 2

	if filters.PublishedAfter != nil {
		conditions = append(conditions, fmt.Sprintf("published_at >= $%d", argN))
		args = append(args, *filters.PublishedAfter)
		argN++
	}
	if filters.Language != "" {
		conditions = append(conditions, fmt.Sprintf("language = $%d", argN))
		args = append(args, filters.Language)
		argN++
	}
	if len(filters.SourceDomains) > 0 {
		conditions = append(conditions, fmt.Sprintf("source_domain = ANY($%d)", argN))
		args = append(args, pq.Array(filters.SourceDomains))
		argN++
	}
	args = append(args, limit)

	query := fmt.Sprintf(`
SELECT %s, 1 - (embedding <=> $1) AS similarity
FROM chunks
WHERE %s
ORDER BY embedding <=> $1
LIMIT $%d`, chunkColumns, strings.Join(conditions, " AND "), argN)

	rows, err := r.db.QueryContext(searchCtx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("SearchSimilar: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]repository.ScoredChunk, 0, limit)
	for rows.Next() {
		var c entity.Chunk
		var semanticType string
		var similarity float64
		err := rows.Scan(&c.ID, &c.ArticleID, &c.ChunkIndex, &c.ProcessingVersion, &c.Text, &c.ByteStart,
			&c.ByteEnd, &semanticType, &c.ImportanceScore, &c.SourceDomain, &c.PublishedAt, &c.Language,
			&c.Category, &c.QualityScore, &c.Title, &c.CreatedAt, &similarity)
		if err != nil {
			return nil, fmt.Errorf("SearchSimilar: Scan: %w", err)
		}
		c.SemanticType = entity.SemanticType(semanticType)
		results = append(results, repository.ScoredChunk{Chunk: &c, Similarity: similarity})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("SearchSimilar: %w", err)
	}
	return results, nil
}
