package http

import (
	"sort"
	"sync"
	"time"

	"rssnews/internal/observability/slo"
)

// requestOutcome is one HTTP request's duration and status, fed into the
// rolling SLO window.
type requestOutcome struct {
	duration time.Duration
	status   int
}

// SLOTracker keeps a rolling window of recent request outcomes and, on
// Report, publishes the slo package's availability/latency/error-rate
// gauges from it. Call Record from MetricsMiddleware and Report from a
// periodic ticker, mirroring how watchCircuitBreaker polls and republishes
// circuit breaker state in cmd/api.
type SLOTracker struct {
	mu      sync.Mutex
	window  []requestOutcome
	maxSize int
}

// NewSLOTracker returns a tracker holding at most maxSize recent outcomes.
func NewSLOTracker(maxSize int) *SLOTracker {
	return &SLOTracker{maxSize: maxSize}
}

// Record appends one request's outcome, dropping the oldest entry once the
// window is full.
func (t *SLOTracker) Record(duration time.Duration, status int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.window = append(t.window, requestOutcome{duration: duration, status: status})
	if len(t.window) > t.maxSize {
		t.window = t.window[len(t.window)-t.maxSize:]
	}
}

// Report computes availability, p95/p99 latency, and error rate over the
// current window and publishes them via the slo package's gauges. A call
// against an empty window is a no-op.
func (t *SLOTracker) Report() {
	t.mu.Lock()
	outcomes := make([]requestOutcome, len(t.window))
	copy(outcomes, t.window)
	t.mu.Unlock()

	if len(outcomes) == 0 {
		return
	}

	errorCount := 0
	durations := make([]float64, len(outcomes))
	for i, o := range outcomes {
		durations[i] = o.duration.Seconds()
		if o.status >= 500 {
			errorCount++
		}
	}
	sort.Float64s(durations)

	total := float64(len(outcomes))
	slo.UpdateAvailability(1 - float64(errorCount)/total)
	slo.UpdateErrorRate(float64(errorCount) / total)
	slo.UpdateLatencyP95(percentileOf(durations, 0.95))
	slo.UpdateLatencyP99(percentileOf(durations, 0.99))
}

// percentileOf returns the p-th percentile of an already-sorted slice
// using nearest-rank, p in [0,1].
func percentileOf(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(p * float64(len(sorted)))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
