package entity

import "time"

// FeedStatus is the lifecycle state of a Feed.
type FeedStatus string

const (
	FeedStatusActive FeedStatus = "active"
	FeedStatusPaused FeedStatus = "paused"
	FeedStatusDead   FeedStatus = "dead"
)

// Feed is a polled RSS/Atom source, keyed by its canonical feed URL.
type Feed struct {
	ID       int64
	URL      string // canonical feed URL
	Language string // language hint, e.g. "en", "ru"

	Priority   int // lower polls first
	TrustScore int // 0-100

	ETag         string
	LastModified string

	HealthScore         int // 0-100
	ConsecutiveFailures int

	DailyQuota int
	DailyCount int
	QuotaResetAt time.Time

	CrawlInterval time.Duration
	LastCrawledAt *time.Time
	NextCrawlAt   time.Time

	Status FeedStatus

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate normalizes defaults and rejects malformed feeds.
func (f *Feed) Validate() error {
	if f.URL == "" {
		return &ValidationError{Field: "url", Message: "must not be empty"}
	}
	if f.Status == "" {
		f.Status = FeedStatusActive
	}
	switch f.Status {
	case FeedStatusActive, FeedStatusPaused, FeedStatusDead:
	default:
		return &ValidationError{Field: "status", Message: "must be active, paused, or dead"}
	}
	if f.TrustScore < 0 || f.TrustScore > 100 {
		return &ValidationError{Field: "trust_score", Message: "must be in [0, 100]"}
	}
	if f.HealthScore == 0 && f.ConsecutiveFailures == 0 {
		// fresh feed, never scored
		f.HealthScore = 100
	}
	if f.CrawlInterval <= 0 {
		f.CrawlInterval = 15 * time.Minute
	}
	return nil
}

// DegradeHealth applies the weighted decay formula used on every poll cycle
// (spec.md §3 leaves the exact function unspecified; see DESIGN.md).
//
// errorRate and duplicateRate are in [0,1]; latency is the last fetch's
// wall-clock duration.
func (f *Feed) DegradeHealth(errorRate, duplicateRate float64, latency time.Duration) {
	const (
		latencyCeiling = 10 * time.Second
		wError         = 45.0
		wDuplicate     = 20.0
		wLatency       = 15.0
		wConsecutive   = 20.0
	)
	latencyPenalty := float64(latency) / float64(latencyCeiling)
	if latencyPenalty > 1 {
		latencyPenalty = 1
	}
	consecutivePenalty := float64(f.ConsecutiveFailures) / 10.0
	if consecutivePenalty > 1 {
		consecutivePenalty = 1
	}
	score := 100.0 - wError*errorRate - wDuplicate*duplicateRate - wLatency*latencyPenalty - wConsecutive*consecutivePenalty
	// exponential smoothing against the previous score so a single bad poll
	// doesn't swing the feed straight into auto-pause territory.
	smoothed := 0.7*float64(f.HealthScore) + 0.3*score
	if smoothed < 0 {
		smoothed = 0
	}
	if smoothed > 100 {
		smoothed = 100
	}
	f.HealthScore = int(smoothed)
	if f.HealthScore < 50 {
		f.Status = FeedStatusPaused
	}
}
