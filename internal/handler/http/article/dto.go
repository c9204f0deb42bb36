// Package article provides HTTP handlers for the read/admin article endpoints.
// Articles themselves are produced by the ingestion pipeline; this package
// only exposes listing, searching, and light operator edits.
package article

import (
	"time"

	"rssnews/internal/domain/entity"
)

// DTO represents the JSON structure for article data transfer.
type DTO struct {
	ID int64 `json:"id" example:"1"`

	CanonicalURL string `json:"canonical_url" example:"https://example.com/article/1"`
	SourceDomain string `json:"source_domain" example:"example.com"`

	Title    string   `json:"title" example:"Go 1.23 released"`
	Language string   `json:"language" example:"en"`
	Category string   `json:"category" example:"tech"`
	Tags     []string `json:"tags"`

	QualityScore float64 `json:"quality_score" example:"0.82"`

	PublishedAt *time.Time `json:"published_at,omitempty"`
	IsEstimated bool       `json:"is_estimated"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toDTO(a *entity.Article) DTO {
	return DTO{
		ID:           a.ID,
		CanonicalURL: a.CanonicalURL,
		SourceDomain: a.SourceDomain,
		Title:        a.Title,
		Language:     a.Language,
		Category:     a.Category,
		Tags:         a.Tags,
		QualityScore: a.QualityScore,
		PublishedAt:  a.PublishedAt,
		IsEstimated:  a.IsEstimated,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}
