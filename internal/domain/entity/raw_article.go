package entity

import "time"

// RawArticleStatus is the processing lifecycle of a RawArticle.
type RawArticleStatus string

const (
	RawArticleStatusPending    RawArticleStatus = "pending"
	RawArticleStatusProcessing RawArticleStatus = "processing"
	RawArticleStatusStored     RawArticleStatus = "stored"
	RawArticleStatusDuplicate  RawArticleStatus = "duplicate"
	RawArticleStatusError      RawArticleStatus = "error"
	RawArticleStatusSkipped    RawArticleStatus = "skipped"
)

const maxRawArticleRetries = 3

// RawArticle is one sighting of (feed, canonical URL), before deduplication.
type RawArticle struct {
	ID int64

	FeedID        int64
	CanonicalURL  string
	URLHash       string // sha256 over CanonicalURL

	RSSTitle   string
	RSSSummary string

	FetchedHTML string
	CleanText   string
	TextHash    string // sha256 over normalized CleanText

	Language string
	Category string

	PublishedAt   *time.Time
	IsEstimated   bool
	WordCount     int
	QualityScore  float64

	Status     RawArticleStatus
	RetryCount int
	LastError  string

	DupOriginalID *int64

	LockOwner    string
	LockExpiresAt *time.Time

	FetchDate time.Time // partition key, daily

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks required fields and normalizes status.
func (r *RawArticle) Validate() error {
	if r.CanonicalURL == "" {
		return &ValidationError{Field: "canonical_url", Message: "must not be empty"}
	}
	if r.URLHash == "" {
		return &ValidationError{Field: "url_hash", Message: "must not be empty"}
	}
	if r.FeedID == 0 {
		return &ValidationError{Field: "feed_id", Message: "must be set"}
	}
	if r.Status == "" {
		r.Status = RawArticleStatusPending
	}
	if r.FetchDate.IsZero() {
		r.FetchDate = time.Now().UTC().Truncate(24 * time.Hour)
	}
	return nil
}

// CanRetry reports whether another processing attempt is allowed.
func (r *RawArticle) CanRetry() bool {
	return r.RetryCount < maxRawArticleRetries
}

// MarkError increments the retry counter and decides between error and skipped.
func (r *RawArticle) MarkError(reason string) {
	r.RetryCount++
	r.LastError = reason
	if r.CanRetry() {
		r.Status = RawArticleStatusError
	} else {
		r.Status = RawArticleStatusSkipped
	}
}

// LockExpired reports whether a processing lock has passed its expiry.
func (r *RawArticle) LockExpired(now time.Time) bool {
	return r.Status == RawArticleStatusProcessing && r.LockExpiresAt != nil && r.LockExpiresAt.Before(now)
}
