package postgres_test

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rssnews/internal/domain/entity"
	pg "rssnews/internal/infra/adapter/persistence/postgres"
	"rssnews/internal/repository"
)

func articleRow(a *entity.Article) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "canonical_url", "source_domain", "text_hash", "title", "clean_text", "authors",
		"language", "category", "tags", "quality_score", "ready_for_chunking", "chunking_completed",
		"processing_version", "published_at", "is_estimated", "created_at", "updated_at",
	}).AddRow(
		a.ID, a.CanonicalURL, a.SourceDomain, a.TextHash, a.Title, a.CleanText, pq.Array(a.Authors),
		a.Language, a.Category, pq.Array(a.Tags), a.QualityScore, a.ReadyForChunking, a.ChunkingCompleted,
		a.ProcessingVersion, a.PublishedAt, a.IsEstimated, a.CreatedAt, a.UpdatedAt,
	)
}

func TestArticleRepo_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	now := time.Now()
	want := &entity.Article{
		ID: 1, CanonicalURL: "https://example.com/a", SourceDomain: "example.com",
		TextHash: "hash", Title: "Go 1.25 released", CleanText: "body",
		ProcessingVersion: 1, CreatedAt: now, UpdatedAt: now,
	}
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id")).
		WithArgs(int64(1)).
		WillReturnRows(articleRow(want))

	repo := pg.NewArticleRepo(db)
	got, err := repo.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, want.Title, got.Title)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestArticleRepo_Get_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id")).
		WithArgs(int64(99)).
		WillReturnError(sql.ErrNoRows)

	repo := pg.NewArticleRepo(db)
	_, err = repo.Get(context.Background(), 99)
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestArticleRepo_ReadyForChunking(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	now := time.Now()
	a := &entity.Article{
		ID: 1, CanonicalURL: "https://example.com/a", SourceDomain: "example.com",
		TextHash: "hash", Title: "t", CleanText: "body", ReadyForChunking: true,
		ProcessingVersion: 1, CreatedAt: now, UpdatedAt: now,
	}
	mock.ExpectQuery("FROM articles").
		WithArgs(10).
		WillReturnRows(articleRow(a))

	repo := pg.NewArticleRepo(db)
	got, err := repo.ReadyForChunking(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestArticleRepo_SearchWithFilters(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	now := time.Now()
	domain := "example.com"
	a := &entity.Article{
		ID: 1, CanonicalURL: "https://example.com/a", SourceDomain: domain,
		TextHash: "hash", Title: "golang news", CleanText: "body",
		ProcessingVersion: 1, CreatedAt: now, UpdatedAt: now,
	}
	mock.ExpectQuery("FROM articles").
		WithArgs("%golang%", domain).
		WillReturnRows(articleRow(a))

	repo := pg.NewArticleRepo(db)
	got, err := repo.SearchWithFilters(context.Background(), []string{"golang"}, repository.ArticleSearchFilters{
		SourceDomain: &domain,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestArticleRepo_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	now := time.Now()
	a := &entity.Article{
		CanonicalURL: "https://example.com/a", SourceDomain: "example.com",
		TextHash: "hash", Title: "t", CleanText: "body", ProcessingVersion: 1,
	}
	mock.ExpectQuery("INSERT INTO articles").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(1, now, now))

	repo := pg.NewArticleRepo(db)
	err = repo.Create(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, int64(1), a.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestArticleRepo_Delete_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectExec("DELETE FROM articles").
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := pg.NewArticleRepo(db)
	err = repo.Delete(context.Background(), 5)
	assert.ErrorIs(t, err, entity.ErrNotFound)
}
