package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"rssnews/internal/domain/entity"
	"rssnews/internal/repository"
)

// BatchRunRepo implements repository.BatchRunRepository. error_buckets is
// stored as JSONB since its key set varies by stage and error taxonomy.
type BatchRunRepo struct{ db *sql.DB }

func NewBatchRunRepo(db *sql.DB) repository.BatchRunRepository {
	return &BatchRunRepo{db: db}
}

func (r *BatchRunRepo) Create(ctx context.Context, run *entity.BatchRun) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	buckets, err := json.Marshal(run.ErrorBuckets)
	if err != nil {
		return fmt.Errorf("Create: marshal error_buckets: %w", err)
	}
	const query = `
INSERT INTO batch_runs (stage, worker_id, input_count, output_count, error_count, error_buckets,
	duration_p50_ms, duration_p95_ms, duration_p99_ms, started_at, finished_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
RETURNING id`
	return r.db.QueryRowContext(ctx, query, run.Stage, run.WorkerID, run.InputCount, run.OutputCount,
		run.ErrorCount, buckets, run.DurationP50.Milliseconds(), run.DurationP95.Milliseconds(),
		run.DurationP99.Milliseconds(), run.StartedAt, run.FinishedAt).Scan(&run.ID)
}

func (r *BatchRunRepo) RecentByStage(ctx context.Context, stage string, limit int) ([]*entity.BatchRun, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `
SELECT id, stage, worker_id, input_count, output_count, error_count, error_buckets,
	duration_p50_ms, duration_p95_ms, duration_p99_ms, started_at, finished_at
FROM batch_runs
WHERE stage = $1
ORDER BY finished_at DESC
LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, stage, limit)
	if err != nil {
		return nil, fmt.Errorf("RecentByStage: %w", err)
	}
	defer func() { _ = rows.Close() }()

	runs := make([]*entity.BatchRun, 0, limit)
	for rows.Next() {
		var b entity.BatchRun
		var buckets []byte
		var p50, p95, p99 int64
		err := rows.Scan(&b.ID, &b.Stage, &b.WorkerID, &b.InputCount, &b.OutputCount, &b.ErrorCount,
			&buckets, &p50, &p95, &p99, &b.StartedAt, &b.FinishedAt)
		if err != nil {
			return nil, fmt.Errorf("RecentByStage: Scan: %w", err)
		}
		if err := json.Unmarshal(buckets, &b.ErrorBuckets); err != nil {
			return nil, fmt.Errorf("RecentByStage: unmarshal error_buckets: %w", err)
		}
		b.DurationP50 = time.Duration(p50) * time.Millisecond
		b.DurationP95 = time.Duration(p95) * time.Millisecond
		b.DurationP99 = time.Duration(p99) * time.Millisecond
		runs = append(runs, &b)
	}
	return runs, rows.Err()
}
