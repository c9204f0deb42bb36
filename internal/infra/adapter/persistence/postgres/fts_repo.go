package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"rssnews/internal/domain/entity"
	"rssnews/internal/repository"
)

// FTSRepo implements repository.FTSRepository against the fts_vector /
// fts_language columns on chunks, using Postgres's native tsvector/GIN
// full-text search (Open Question 3: language-aware analyzer selection).
type FTSRepo struct{ db *sql.DB }

func NewFTSRepo(db *sql.DB) repository.FTSRepository {
	return &FTSRepo{db: db}
}

func (r *FTSRepo) UpdateVector(ctx context.Context, chunkID int64, titleAndText string, language entity.FTSLanguage) error {
	const query = `
UPDATE chunks SET
	fts_language = $2,
	fts_vector = to_tsvector($2::regconfig, $3)
WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, chunkID, string(language), titleAndText)
	if err != nil {
		return fmt.Errorf("UpdateVector: %w", err)
	}
	return requireRowAffected(result, "UpdateVector")
}

// SearchLexical runs a plainto_tsquery match against chunks.fts_vector,
// ranking with ts_rank and normalizing into [0, 1] via ts_rank's
// normalization flag 32 (rank / (rank + 1)).
func (r *FTSRepo) SearchLexical(ctx context.Context, queryText string, filters repository.CandidateFilters, limit int) ([]repository.LexicalResult, error) {
	if limit <= 0 {
		limit = 50
	}
	queryLanguage := "english"
	if filters.Language == "ru" {
		queryLanguage = "russian"
	}

	conditions := []string{"fts_vector @@ plainto_tsquery($1::regconfig, $2)"}
	args := []any{queryLanguage, queryText}
	argN := 3

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
	args = append(args, limit)

	query := fmt.Sprintf(`
SELECT id, ts_rank(fts_vector, plainto_tsquery($1::regconfig, $2), 32) AS rank
FROM chunks
WHERE %s
ORDER BY rank DESC
LIMIT $%d`, strings.Join(conditions, " AND "), argN)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("SearchLexical: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]repository.LexicalResult, 0, limit)
	for rows.Next() {
		var res repository.LexicalResult
		if err := rows.Scan(&res.ChunkID, &res.Rank); err != nil {
			return nil, fmt.Errorf("SearchLexical: Scan: %w", err)
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("SearchLexical: %w", err)
	}
	return results, nil
}
