// Package postgres implements the repository interfaces against
// PostgreSQL + pgvector, the storage engine C1 (§2) calls for: a
// relational engine with first-class vector indexes and inverted-index
// full-text search.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"rssnews/internal/domain/entity"
	"rssnews/internal/repository"
)

// FeedRepo implements repository.FeedRepository.
type FeedRepo struct{ db *sql.DB }

func NewFeedRepo(db *sql.DB) repository.FeedRepository {
	return &FeedRepo{db: db}
}

const feedColumns = `id, url, language, priority, trust_score, etag, last_modified,
	health_score, consecutive_failures, daily_quota, daily_count, quota_reset_at,
	crawl_interval_seconds, last_crawled_at, next_crawl_at, status, created_at, updated_at`

func scanFeed(row interface{ Scan(...any) error }) (*entity.Feed, error) {
	var f entity.Feed
	var crawlIntervalSeconds int
	var quotaResetAt sql.NullTime
	err := row.Scan(&f.ID, &f.URL, &f.Language, &f.Priority, &f.TrustScore, &f.ETag, &f.LastModified,
		&f.HealthScore, &f.ConsecutiveFailures, &f.DailyQuota, &f.DailyCount, &quotaResetAt,
		&crawlIntervalSeconds, &f.LastCrawledAt, &f.NextCrawlAt, &f.Status, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	f.CrawlInterval = time.Duration(crawlIntervalSeconds) * time.Second
	if quotaResetAt.Valid {
		f.QuotaResetAt = quotaResetAt.Time
	}
	return &f, nil
}

func (r *FeedRepo) Get(ctx context.Context, id int64) (*entity.Feed, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+feedColumns+` FROM feeds WHERE id = $1`, id)
	f, err := scanFeed(row)
	if err == sql.ErrNoRows {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return f, nil
}

func (r *FeedRepo) GetByURL(ctx context.Context, url string) (*entity.Feed, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+feedColumns+` FROM feeds WHERE url = $1`, url)
	f, err := scanFeed(row)
	if err == sql.ErrNoRows {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetByURL: %w", err)
	}
	return f, nil
}

func (r *FeedRepo) List(ctx context.Context) ([]*entity.Feed, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+feedColumns+` FROM feeds ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanFeeds(rows)
}

// DueForCrawl selects up to limit feeds whose next_crawl_at <= now,
// ordered by (priority asc, trust_score desc, last_crawled_at asc) per the
// poller's contract (§4.1).
func (r *FeedRepo) DueForCrawl(ctx context.Context, now time.Time, limit int) ([]*entity.Feed, error) {
	const query = `
SELECT ` + feedColumns + `
FROM feeds
WHERE status = 'active' AND next_crawl_at <= $1
ORDER BY priority ASC, trust_score DESC, last_crawled_at ASC NULLS FIRST
LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("DueForCrawl: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanFeeds(rows)
}

func scanFeeds(rows *sql.Rows) ([]*entity.Feed, error) {
	feeds := make([]*entity.Feed, 0, 16)
	for rows.Next() {
		f, err := scanFeed(rows)
		if err != nil {
			return nil, fmt.Errorf("Scan: %w", err)
		}
		feeds = append(feeds, f)
	}
	return feeds, rows.Err()
}

func (r *FeedRepo) Create(ctx context.Context, f *entity.Feed) error {
	if err := f.Validate(); err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	const query = `
INSERT INTO feeds (url, language, priority, trust_score, etag, last_modified, health_score,
	consecutive_failures, daily_quota, daily_count, quota_reset_at, crawl_interval_seconds,
	last_crawled_at, next_crawl_at, status)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, f.URL, f.Language, f.Priority, f.TrustScore, f.ETag, f.LastModified,
		f.HealthScore, f.ConsecutiveFailures, f.DailyQuota, f.DailyCount, nullTime(f.QuotaResetAt),
		int(f.CrawlInterval/time.Second), f.LastCrawledAt, f.NextCrawlAt, string(f.Status)).
		Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *FeedRepo) Update(ctx context.Context, f *entity.Feed) error {
	if err := f.Validate(); err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	const query = `
UPDATE feeds SET
	language = $2, priority = $3, trust_score = $4, etag = $5, last_modified = $6,
	health_score = $7, consecutive_failures = $8, daily_quota = $9, daily_count = $10,
	quota_reset_at = $11, crawl_interval_seconds = $12, last_crawled_at = $13,
	next_crawl_at = $14, status = $15, updated_at = now()
WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, f.ID, f.Language, f.Priority, f.TrustScore, f.ETag, f.LastModified,
		f.HealthScore, f.ConsecutiveFailures, f.DailyQuota, f.DailyCount, nullTime(f.QuotaResetAt),
		int(f.CrawlInterval/time.Second), f.LastCrawledAt, f.NextCrawlAt, string(f.Status))
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	return requireRowAffected(result, "Update")
}

func (r *FeedRepo) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM feeds WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	return requireRowAffected(result, "Delete")
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

func requireRowAffected(result sql.Result, op string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: RowsAffected: %w", op, err)
	}
	if n == 0 {
		return entity.ErrNotFound
	}
	return nil
}
