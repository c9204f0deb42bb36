package entity

import "time"

// BatchRun is an append-only diagnostics record written by every continuous
// service at the end of each batch. Used for operator diagnostics and for
// rate-limit decisions (consecutive error-heavy batches slow a stage down).
type BatchRun struct {
	ID int64

	Stage    string // "poll" | "work" | "chunking" | "embedding" | "fts"
	WorkerID string

	InputCount  int
	OutputCount int
	ErrorCount  int

	// ErrorBuckets maps an error-kind label (see the taxonomy in
	// internal/domain/entity/errors.go) to how many items fell into it.
	ErrorBuckets map[string]int

	DurationP50 time.Duration
	DurationP95 time.Duration
	DurationP99 time.Duration

	StartedAt  time.Time
	FinishedAt time.Time
}

// Validate checks the minimal shape a BatchRun needs before being persisted.
func (b *BatchRun) Validate() error {
	if b.Stage == "" {
		return &ValidationError{Field: "stage", Message: "must not be empty"}
	}
	if b.WorkerID == "" {
		return &ValidationError{Field: "worker_id", Message: "must not be empty"}
	}
	if b.ErrorBuckets == nil {
		b.ErrorBuckets = map[string]int{}
	}
	return nil
}

// ErrorRate returns the fraction of inputs that ended in error, used by
// Feed.DegradeHealth and by stage backoff decisions.
func (b *BatchRun) ErrorRate() float64 {
	if b.InputCount == 0 {
		return 0
	}
	return float64(b.ErrorCount) / float64(b.InputCount)
}
