package repository

import (
	"context"
	"time"

	"rssnews/internal/domain/entity"
)

// ArticleSearchFilters contains optional filters for admin-facing article
// listing (not the hybrid retriever's own candidate query, which lives in
// internal/usecase/retrieve).
type ArticleSearchFilters struct {
	SourceDomain *string
	From         *time.Time
	To           *time.Time
}

// ArticleRepository persists canonical Article records.
type ArticleRepository interface {
	Get(ctx context.Context, id int64) (*entity.Article, error)
	GetByTextHash(ctx context.Context, textHash string) (*entity.Article, error)

	List(ctx context.Context, offset, limit int) ([]*entity.Article, error)
	CountArticles(ctx context.Context) (int64, error)
	SearchWithFilters(ctx context.Context, keywords []string, filters ArticleSearchFilters) ([]*entity.Article, error)

	Create(ctx context.Context, article *entity.Article) error
	Update(ctx context.Context, article *entity.Article) error
	Delete(ctx context.Context, id int64) error

	// ReadyForChunking returns articles with ready_for_chunking = true and
	// chunking_completed = false, up to limit.
	ReadyForChunking(ctx context.Context, limit int) ([]*entity.Article, error)
}
