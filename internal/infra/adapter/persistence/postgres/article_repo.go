package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"rssnews/internal/domain/entity"
	"rssnews/internal/repository"

	"github.com/lib/pq"
)

// ArticleRepo implements repository.ArticleRepository.
type ArticleRepo struct{ db *sql.DB }

func NewArticleRepo(db *sql.DB) repository.ArticleRepository {
	return &ArticleRepo{db: db}
}

const articleColumns = `id, canonical_url, source_domain, text_hash, title, clean_text, authors,
	language, category, tags, quality_score, ready_for_chunking, chunking_completed,
	processing_version, published_at, is_estimated, created_at, updated_at`

func scanArticle(row interface{ Scan(...any) error }) (*entity.Article, error) {
	var a entity.Article
	err := row.Scan(&a.ID, &a.CanonicalURL, &a.SourceDomain, &a.TextHash, &a.Title, &a.CleanText,
		pq.Array(&a.Authors), &a.Language, &a.Category, pq.Array(&a.Tags), &a.QualityScore,
		&a.ReadyForChunking, &a.ChunkingCompleted, &a.ProcessingVersion, &a.PublishedAt,
		&a.IsEstimated, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *ArticleRepo) Get(ctx context.Context, id int64) (*entity.Article, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+articleColumns+` FROM articles WHERE id = $1`, id)
	a, err := scanArticle(row)
	if err == sql.ErrNoRows {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return a, nil
}

func (r *ArticleRepo) GetByTextHash(ctx context.Context, textHash string) (*entity.Article, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+articleColumns+` FROM articles WHERE text_hash = $1`, textHash)
	a, err := scanArticle(row)
	if err == sql.ErrNoRows {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetByTextHash: %w", err)
	}
	return a, nil
}

func (r *ArticleRepo) List(ctx context.Context, offset, limit int) ([]*entity.Article, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+articleColumns+` FROM articles ORDER BY published_at DESC NULLS LAST, id DESC OFFSET $1 LIMIT $2`,
		offset, limit)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanArticles(rows)
}

func scanArticles(rows *sql.Rows) ([]*entity.Article, error) {
	articles := make([]*entity.Article, 0, 50)
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("Scan: %w", err)
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

func (r *ArticleRepo) CountArticles(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("CountArticles: %w", err)
	}
	return count, nil
}

// SearchWithFilters searches articles with multi-keyword AND logic (ILIKE
// over title and clean_text) and optional domain/date filters.
func (r *ArticleRepo) SearchWithFilters(ctx context.Context, keywords []string, filters repository.ArticleSearchFilters) ([]*entity.Article, error) {
	var conditions []string
	var args []any
	argN := 1

	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		conditions = append(conditions, fmt.Sprintf("(title ILIKE $%d OR clean_text ILIKE $%d)", argN, argN))
		args = append(args, "%"+kw+"%")
		argN++
	}
	if filters.SourceDomain != nil {
		conditions = append(conditions, fmt.Sprintf("source_domain = $%d", argN))
		args = append(args, *filters.SourceDomain)
		argN++
	}
	if filters.From != nil {
		conditions = append(conditions, fmt.Sprintf("published_at >= $%d", argN))
		args = append(args, *filters.From)
		argN++
	}
	if filters.To != nil {
		conditions = append(conditions, fmt.Sprintf("published_at <= $%d", argN))
		args = append(args, *filters.To)
		argN++
	}

	query := `SELECT ` + articleColumns + ` FROM articles`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY published_at DESC NULLS LAST LIMIT 200`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("SearchWithFilters: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanArticles(rows)
}

func (r *ArticleRepo) Create(ctx context.Context, a *entity.Article) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	const query = `
INSERT INTO articles (canonical_url, source_domain, text_hash, title, clean_text, authors,
	language, category, tags, quality_score, ready_for_chunking, chunking_completed,
	processing_version, published_at, is_estimated)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, a.CanonicalURL, a.SourceDomain, a.TextHash, a.Title, a.CleanText,
		pq.Array(a.Authors), a.Language, a.Category, pq.Array(a.Tags), a.QualityScore, a.ReadyForChunking,
		a.ChunkingCompleted, a.ProcessingVersion, a.PublishedAt, a.IsEstimated).
		Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *ArticleRepo) Update(ctx context.Context, a *entity.Article) error {
	const query = `
UPDATE articles SET
	title = $2, clean_text = $3, authors = $4, language = $5, category = $6, tags = $7,
	quality_score = $8, ready_for_chunking = $9, chunking_completed = $10, processing_version = $11,
	published_at = $12, is_estimated = $13, updated_at = now()
WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, a.ID, a.Title, a.CleanText, pq.Array(a.Authors), a.Language,
		a.Category, pq.Array(a.Tags), a.QualityScore, a.ReadyForChunking, a.ChunkingCompleted,
		a.ProcessingVersion, a.PublishedAt, a.IsEstimated)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	return requireRowAffected(result, "Update")
}

func (r *ArticleRepo) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM articles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	return requireRowAffected(result, "Delete")
}

func (r *ArticleRepo) ReadyForChunking(ctx context.Context, limit int) ([]*entity.Article, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+articleColumns+` FROM articles WHERE ready_for_chunking = TRUE AND chunking_completed = FALSE ORDER BY id LIMIT $1`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("ReadyForChunking: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanArticles(rows)
}
