package entity

import (
	"fmt"
	"time"
)

// SemanticType classifies a Chunk's position/role within its article.
type SemanticType string

const (
	SemanticTypeIntro      SemanticType = "intro"
	SemanticTypeBody       SemanticType = "body"
	SemanticTypeList       SemanticType = "list"
	SemanticTypeConclusion SemanticType = "conclusion"
	SemanticTypeQuote      SemanticType = "quote"
)

// DefaultImportanceScore is used when a chunk splitter does not annotate importance.
const DefaultImportanceScore = 0.5

// Chunk is the unit of retrieval: a bounded text span owned exclusively by
// one Article. Denormalized fields are copied from the parent Article so
// retrieval never has to join back to it on the hot path.
type Chunk struct {
	ID                int64
	ArticleID         int64
	ChunkIndex         int
	ProcessingVersion int

	Text       string
	ByteStart  int
	ByteEnd    int

	SemanticType    SemanticType
	ImportanceScore float64

	// Denormalized from Article, refreshed whenever the parent changes.
	URL          string
	SourceDomain string
	PublishedAt  *time.Time
	Language     string
	Category     string
	QualityScore float64
	Title        string

	CreatedAt time.Time
}

// ChunkID returns the {article_id}#{chunk_index} composite identifier.
func (c *Chunk) ChunkID() string {
	return fmt.Sprintf("%d#%d", c.ArticleID, c.ChunkIndex)
}

// Validate checks invariants that must hold before a Chunk is persisted.
func (c *Chunk) Validate() error {
	if c.ArticleID == 0 {
		return &ValidationError{Field: "article_id", Message: "must be set"}
	}
	if c.ChunkIndex < 0 {
		return &ValidationError{Field: "chunk_index", Message: "must be >= 0"}
	}
	if c.Text == "" {
		return &ValidationError{Field: "text", Message: "must not be empty or whitespace-only"}
	}
	if c.SemanticType == "" {
		c.SemanticType = SemanticTypeBody
	}
	if c.ImportanceScore == 0 {
		c.ImportanceScore = DefaultImportanceScore
	}
	if c.ProcessingVersion == 0 {
		c.ProcessingVersion = 1
	}
	return nil
}
