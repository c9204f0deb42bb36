package repository

import (
	"context"

	"rssnews/internal/domain/entity"
)

// BatchRunRepository appends the per-batch diagnostics record every
// continuous service writes at the end of a cycle.
type BatchRunRepository interface {
	Create(ctx context.Context, run *entity.BatchRun) error
	RecentByStage(ctx context.Context, stage string, limit int) ([]*entity.BatchRun, error)
}
