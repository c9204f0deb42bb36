package repository

import (
	"context"
	"time"

	"rssnews/internal/domain/entity"
)

// RawArticleRepository persists RawArticle sightings and the optimistic
// claim/sweep operations the article worker needs.
type RawArticleRepository interface {
	Get(ctx context.Context, id int64) (*entity.RawArticle, error)
	Create(ctx context.Context, article *entity.RawArticle) error
	Update(ctx context.Context, article *entity.RawArticle) error

	// ExistsByURLHashWithinWindow reports whether a RawArticle with this
	// URL hash was seen within the deduplication window (default 7 days),
	// used by the feed poller to admit or skip a new sighting.
	ExistsByURLHashWithinWindow(ctx context.Context, urlHash string, window time.Duration) (bool, error)

	// ClaimBatch atomically moves up to batchSize pending rows into
	// processing, setting lockOwner and lockExpiresAt, and returns the
	// claimed rows. Implementations must use row-level locking
	// (SELECT ... FOR UPDATE SKIP LOCKED or equivalent) so two workers
	// never claim the same row.
	ClaimBatch(ctx context.Context, batchSize int, lockOwner string, lockExpiresAt time.Time) ([]*entity.RawArticle, error)

	// FindByTextHash returns the stored RawArticle (if any) carrying the
	// given text hash, used to detect hard duplicates.
	FindByTextHash(ctx context.Context, textHash string) (*entity.RawArticle, error)

	// ReclaimExpiredLocks transitions processing rows whose lock has
	// expired back to pending with an incremented retry count, returning
	// how many rows were reclaimed.
	ReclaimExpiredLocks(ctx context.Context, now time.Time) (int, error)
}
