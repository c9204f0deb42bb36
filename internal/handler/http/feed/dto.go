// Package feed provides HTTP handlers for feed administration: registering,
// pausing, and tuning the RSS/Atom feeds the poller crawls.
package feed

import (
	"time"

	"rssnews/internal/domain/entity"
)

// DTO represents the JSON structure for feed data transfer.
type DTO struct {
	ID       int64  `json:"id"`
	URL      string `json:"url"`
	Language string `json:"language"`

	Priority   int `json:"priority"`
	TrustScore int `json:"trust_score"`

	HealthScore         int `json:"health_score"`
	ConsecutiveFailures int `json:"consecutive_failures"`

	DailyQuota int `json:"daily_quota"`
	DailyCount int `json:"daily_count"`

	LastCrawledAt *time.Time `json:"last_crawled_at,omitempty"`
	NextCrawlAt   time.Time  `json:"next_crawl_at"`

	Status entity.FeedStatus `json:"status"`
}

func toDTO(f *entity.Feed) DTO {
	return DTO{
		ID:                  f.ID,
		URL:                 f.URL,
		Language:            f.Language,
		Priority:            f.Priority,
		TrustScore:          f.TrustScore,
		HealthScore:         f.HealthScore,
		ConsecutiveFailures: f.ConsecutiveFailures,
		DailyQuota:          f.DailyQuota,
		DailyCount:          f.DailyCount,
		LastCrawledAt:       f.LastCrawledAt,
		NextCrawlAt:         f.NextCrawlAt,
		Status:              f.Status,
	}
}
