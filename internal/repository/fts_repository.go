package repository

import (
	"context"

	"rssnews/internal/domain/entity"
)

// FTSRepository maintains the lexical index over chunks and runs the
// lexical half of the hybrid retriever's candidate query.
type FTSRepository interface {
	// UpdateVector (re)computes and stores the tsvector for a chunk using
	// the given language configuration.
	UpdateVector(ctx context.Context, chunkID int64, titleAndText string, language entity.FTSLanguage) error

	// SearchLexical returns up to limit chunk ids and their normalized
	// bm25-style rank for a tokenized query, restricted by filters.
	SearchLexical(ctx context.Context, queryText string, filters CandidateFilters, limit int) ([]LexicalResult, error)
}

// LexicalResult is one row of the FTS half of the hybrid candidate fetch.
type LexicalResult struct {
	ChunkID int64
	Rank    float64 // normalized to [0, 1]
}
