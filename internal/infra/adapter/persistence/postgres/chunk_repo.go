package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"rssnews/internal/domain/entity"
	"rssnews/internal/repository"
)

// ChunkRepo implements repository.ChunkRepository.
type ChunkRepo struct{ db *sql.DB }

func NewChunkRepo(db *sql.DB) repository.ChunkRepository {
	return &ChunkRepo{db: db}
}

const chunkColumns = `id, article_id, chunk_index, processing_version, text, byte_start, byte_end,
	semantic_type, importance_score, url, source_domain, published_at, language, category, quality_score,
	title, created_at`

func scanChunk(row interface{ Scan(...any) error }) (*entity.Chunk, error) {
	var c entity.Chunk
	var semanticType string
	err := row.Scan(&c.ID, &c.ArticleID, &c.ChunkIndex, &c.ProcessingVersion, &c.Text, &c.ByteStart,
		&c.ByteEnd, &semanticType, &c.ImportanceScore, &c.URL, &c.SourceDomain, &c.PublishedAt, &c.Language,
		&c.Category, &c.QualityScore, &c.Title, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	c.SemanticType = entity.SemanticType(semanticType)
	return &c, nil
}

func (r *ChunkRepo) Get(ctx context.Context, id int64) (*entity.Chunk, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+chunkColumns+` FROM chunks WHERE id = $1`, id)
	c, err := scanChunk(row)
	if err == sql.ErrNoRows {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return c, nil
}

func (r *ChunkRepo) GetByArticleID(ctx context.Context, articleID int64) ([]*entity.Chunk, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+chunkColumns+` FROM chunks WHERE article_id = $1 ORDER BY chunk_index`, articleID)
	if err != nil {
		return nil, fmt.Errorf("GetByArticleID: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanChunks(rows)
}

func scanChunks(rows *sql.Rows) ([]*entity.Chunk, error) {
	chunks := make([]*entity.Chunk, 0, 16)
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, fmt.Errorf("Scan: %w", err)
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// CreateBatch writes the chunk set for one article inside a transaction and
// flips chunking_completed. Re-running for a processing_version already
// present is a no-op thanks to the unique (article_id, chunk_index,
// processing_version) constraint combined with the existence check below.
func (r *ChunkRepo) CreateBatch(ctx context.Context, articleID int64, processingVersion int, chunks []*entity.Chunk) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("CreateBatch: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var existing int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chunks WHERE article_id = $1 AND processing_version = $2`,
		articleID, processingVersion).Scan(&existing)
	if err != nil {
		return fmt.Errorf("CreateBatch: existence check: %w", err)
	}
	if existing > 0 {
		return tx.Commit()
	}

	const insert = `
INSERT INTO chunks (article_id, chunk_index, processing_version, text, byte_start, byte_end,
	semantic_type, importance_score, url, source_domain, published_at, language, category, quality_score, title)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`
	for _, c := range chunks {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("CreateBatch: %w", err)
		}
		c.ArticleID = articleID
		c.ProcessingVersion = processingVersion
		_, err := tx.ExecContext(ctx, insert, c.ArticleID, c.ChunkIndex, c.ProcessingVersion, c.Text,
			c.ByteStart, c.ByteEnd, string(c.SemanticType), c.ImportanceScore, c.URL, c.SourceDomain,
			c.PublishedAt, c.Language, c.Category, c.QualityScore, c.Title)
		if err != nil {
			return fmt.Errorf("CreateBatch: insert: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE articles SET chunking_completed = TRUE, updated_at = now() WHERE id = $1`, articleID)
	if err != nil {
		return fmt.Errorf("CreateBatch: flip chunking_completed: %w", err)
	}

	return tx.Commit()
}

func (r *ChunkRepo) DeleteByArticleID(ctx context.Context, articleID int64) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM chunks WHERE article_id = $1`, articleID)
	if err != nil {
		return 0, fmt.Errorf("DeleteByArticleID: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("DeleteByArticleID: RowsAffected: %w", err)
	}
	return n, nil
}

func (r *ChunkRepo) MissingEmbedding(ctx context.Context, limit int) ([]*entity.Chunk, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+chunkColumns+`
FROM chunks
WHERE embedding IS NULL AND embedding_permanent_failure = FALSE
ORDER BY id
LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("MissingEmbedding: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanChunks(rows)
}

func (r *ChunkRepo) MissingFTSVector(ctx context.Context, limit int) ([]*entity.Chunk, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+chunkColumns+`
FROM chunks
WHERE fts_vector IS NULL
ORDER BY id
LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("MissingFTSVector: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanChunks(rows)
}

func (r *ChunkRepo) RecentSince(ctx context.Context, since time.Time, limit int) ([]*entity.Chunk, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+chunkColumns+`
FROM chunks
WHERE published_at >= $1
ORDER BY published_at DESC
LIMIT $2`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("RecentSince: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanChunks(rows)
}
