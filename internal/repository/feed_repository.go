package repository

import (
	"context"
	"time"

	"rssnews/internal/domain/entity"
)

// FeedRepository persists Feed records and the claim-queue operations the
// poller needs to pick the next batch to crawl.
type FeedRepository interface {
	Get(ctx context.Context, id int64) (*entity.Feed, error)
	GetByURL(ctx context.Context, url string) (*entity.Feed, error)
	List(ctx context.Context) ([]*entity.Feed, error)

	// DueForCrawl returns up to limit feeds with next_crawl_at <= now and
	// status = active, ordered by (priority asc, trust_score desc,
	// last_crawled_at asc).
	DueForCrawl(ctx context.Context, now time.Time, limit int) ([]*entity.Feed, error)

	Create(ctx context.Context, feed *entity.Feed) error
	Update(ctx context.Context, feed *entity.Feed) error
	Delete(ctx context.Context, id int64) error
}
