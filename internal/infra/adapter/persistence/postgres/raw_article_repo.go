package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"rssnews/internal/domain/entity"
	"rssnews/internal/repository"
)

// RawArticleRepo implements repository.RawArticleRepository.
type RawArticleRepo struct{ db *sql.DB }

func NewRawArticleRepo(db *sql.DB) repository.RawArticleRepository {
	return &RawArticleRepo{db: db}
}

const rawArticleColumns = `id, feed_id, canonical_url, url_hash, rss_title, rss_summary, fetched_html,
	clean_text, text_hash, language, category, published_at, is_estimated, word_count, quality_score,
	status, retry_count, last_error, dup_original_id, lock_owner, lock_expires_at, fetch_date,
	created_at, updated_at`

func scanRawArticle(row interface{ Scan(...any) error }) (*entity.RawArticle, error) {
	var a entity.RawArticle
	var status string
	err := row.Scan(&a.ID, &a.FeedID, &a.CanonicalURL, &a.URLHash, &a.RSSTitle, &a.RSSSummary, &a.FetchedHTML,
		&a.CleanText, &a.TextHash, &a.Language, &a.Category, &a.PublishedAt, &a.IsEstimated, &a.WordCount,
		&a.QualityScore, &status, &a.RetryCount, &a.LastError, &a.DupOriginalID, &a.LockOwner,
		&a.LockExpiresAt, &a.FetchDate, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.Status = entity.RawArticleStatus(status)
	return &a, nil
}

func (r *RawArticleRepo) Get(ctx context.Context, id int64) (*entity.RawArticle, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+rawArticleColumns+` FROM raw_articles WHERE id = $1`, id)
	a, err := scanRawArticle(row)
	if err == sql.ErrNoRows {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return a, nil
}

func (r *RawArticleRepo) Create(ctx context.Context, a *entity.RawArticle) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	const query = `
INSERT INTO raw_articles (feed_id, canonical_url, url_hash, rss_title, rss_summary, fetched_html,
	clean_text, text_hash, language, category, published_at, is_estimated, word_count, quality_score,
	status, retry_count, last_error, dup_original_id, lock_owner, lock_expires_at, fetch_date)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)
RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, a.FeedID, a.CanonicalURL, a.URLHash, a.RSSTitle, a.RSSSummary,
		a.FetchedHTML, a.CleanText, a.TextHash, a.Language, a.Category, a.PublishedAt, a.IsEstimated,
		a.WordCount, a.QualityScore, string(a.Status), a.RetryCount, a.LastError, a.DupOriginalID,
		a.LockOwner, a.LockExpiresAt, a.FetchDate).
		Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *RawArticleRepo) Update(ctx context.Context, a *entity.RawArticle) error {
	const query = `
UPDATE raw_articles SET
	rss_title = $2, rss_summary = $3, fetched_html = $4, clean_text = $5, text_hash = $6,
	language = $7, category = $8, published_at = $9, is_estimated = $10, word_count = $11,
	quality_score = $12, status = $13, retry_count = $14, last_error = $15, dup_original_id = $16,
	lock_owner = $17, lock_expires_at = $18, updated_at = now()
WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, a.ID, a.RSSTitle, a.RSSSummary, a.FetchedHTML, a.CleanText,
		a.TextHash, a.Language, a.Category, a.PublishedAt, a.IsEstimated, a.WordCount, a.QualityScore,
		string(a.Status), a.RetryCount, a.LastError, a.DupOriginalID, a.LockOwner, a.LockExpiresAt)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	return requireRowAffected(result, "Update")
}

func (r *RawArticleRepo) ExistsByURLHashWithinWindow(ctx context.Context, urlHash string, window time.Duration) (bool, error) {
	const query = `
SELECT EXISTS(
	SELECT 1 FROM raw_articles
	WHERE url_hash = $1 AND created_at >= $2
)`
	var exists bool
	err := r.db.QueryRowContext(ctx, query, urlHash, time.Now().Add(-window)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ExistsByURLHashWithinWindow: %w", err)
	}
	return exists, nil
}

func (r *RawArticleRepo) FindByTextHash(ctx context.Context, textHash string) (*entity.RawArticle, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+rawArticleColumns+` FROM raw_articles WHERE text_hash = $1 AND status = 'stored' LIMIT 1`, textHash)
	a, err := scanRawArticle(row)
	if err == sql.ErrNoRows {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("FindByTextHash: %w", err)
	}
	return a, nil
}

// ClaimBatch uses SELECT ... FOR UPDATE SKIP LOCKED inside a transaction so
// concurrent article workers never claim the same row (§5 shared-resource
// policy).
func (r *RawArticleRepo) ClaimBatch(ctx context.Context, batchSize int, lockOwner string, lockExpiresAt time.Time) ([]*entity.RawArticle, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("ClaimBatch: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `
SELECT id FROM raw_articles
WHERE status = 'pending'
ORDER BY created_at ASC
LIMIT $1
FOR UPDATE SKIP LOCKED`, batchSize)
	if err != nil {
		return nil, fmt.Errorf("ClaimBatch: select: %w", err)
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("ClaimBatch: scan: %w", err)
		}
		ids = append(ids, id)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ClaimBatch: %w", err)
	}
	if len(ids) == 0 {
		return nil, tx.Commit()
	}

	claimed := make([]*entity.RawArticle, 0, len(ids))
	for _, id := range ids {
		row := tx.QueryRowContext(ctx, `
UPDATE raw_articles
SET status = 'processing', lock_owner = $2, lock_expires_at = $3, updated_at = now()
WHERE id = $1
RETURNING `+rawArticleColumns, id, lockOwner, lockExpiresAt)
		a, err := scanRawArticle(row)
		if err != nil {
			return nil, fmt.Errorf("ClaimBatch: update: %w", err)
		}
		claimed = append(claimed, a)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("ClaimBatch: commit: %w", err)
	}
	return claimed, nil
}

// ReclaimExpiredLocks transitions processing rows whose lock has expired
// back to pending with an incremented retry count (§4.2 sweeper).
func (r *RawArticleRepo) ReclaimExpiredLocks(ctx context.Context, now time.Time) (int, error) {
	const query = `
UPDATE raw_articles
SET status = 'pending', retry_count = retry_count + 1, lock_owner = NULL, lock_expires_at = NULL, updated_at = now()
WHERE status = 'processing' AND lock_expires_at < $1`
	result, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("ReclaimExpiredLocks: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("ReclaimExpiredLocks: RowsAffected: %w", err)
	}
	return int(n), nil
}
