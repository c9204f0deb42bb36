package entity

import "time"

// EmbeddingDimension is the deployment-fixed vector width, matching
// OpenAI's text-embedding-3-large. Mixing dimensions in one index is
// forbidden (§3 invariant); a single deployment never changes this value.
const EmbeddingDimension = 3072

// EmbeddingType distinguishes what was embedded, in case future chunk
// variants (e.g. title-only) are added alongside the body embedding.
type EmbeddingType string

const EmbeddingTypeBody EmbeddingType = "body"

// Embedding is a dense vector attached 1:1 to a Chunk. A Chunk without one
// is a legal transient state: invisible to semantic search, visible to FTS.
type Embedding struct {
	ChunkID       int64
	EmbeddingType EmbeddingType
	Provider      string
	Model         string
	Vector        []float32

	PermanentFailure bool
	FailureCount     int
	LastError        string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks the embedding's dimension against the deployment-fixed value.
func (e *Embedding) Validate() error {
	if e.ChunkID == 0 {
		return &ValidationError{Field: "chunk_id", Message: "must be set"}
	}
	if len(e.Vector) != 0 && len(e.Vector) != EmbeddingDimension {
		return &ValidationError{Field: "vector", Message: "dimension must match the deployment-fixed embedding size"}
	}
	if e.EmbeddingType == "" {
		e.EmbeddingType = EmbeddingTypeBody
	}
	return nil
}
