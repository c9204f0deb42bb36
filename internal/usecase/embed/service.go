// Package embed computes dense vectors for Chunks that don't have one yet,
// batching calls to the embedding provider and writing results back with a
// conditional WHERE embedding IS NULL update so two workers racing on the
// same chunk never double-write.
package embed

import (
	"context"
	"errors"
)

// ErrFatalProvider signals an unrecoverable provider error (bad API key,
// account disabled) that should halt the embedder entirely rather than be
// retried per-chunk.
var ErrFatalProvider = errors.New("embedding provider: fatal error")

// ErrRateLimited signals an HTTP 429 response, handled with exponential
// backoff rather than the fixed per-chunk retry count.
var ErrRateLimited = errors.New("embedding provider: rate limited")

// Provider embeds a batch of texts in one call, returning one vector per
// input text in the same order.
type Provider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
