package worker

import (
	"fmt"
	"os"
	"time"

	"rssnews/internal/pkg/config"
)

// BatchConfig configures one of the batch-oriented continuous services
// (poll, work, chunking, embedding, fts). Each service loads it under its
// own environment prefix (FEED_, CHUNK_, EMBED_, FTS_) so the five services
// can run as separate containers with independent tuning.
type BatchConfig struct {
	// BatchSize is how many rows one ProcessBatch/PollOnce call claims.
	BatchSize int

	// Interval is how long the continuous variant sleeps between batches
	// that returned zero work. Ignored by the one-shot (non "-continuous")
	// modes.
	Interval time.Duration

	// HealthPort is the port the liveness/readiness server listens on.
	HealthPort int
}

// LoadBatchConfig loads a BatchConfig from environment variables prefixed
// with prefix (e.g. "FEED", yielding FEED_BATCH_SIZE, FEED_INTERVAL,
// FEED_HEALTH_PORT), falling back to the given defaults on any invalid
// value rather than failing the process.
func LoadBatchConfig(prefix string, defaultBatchSize int, defaultInterval time.Duration, defaultHealthPort int) BatchConfig {
	cfg := BatchConfig{
		BatchSize:  defaultBatchSize,
		Interval:   defaultInterval,
		HealthPort: defaultHealthPort,
	}

	cfg.BatchSize = config.LoadEnvInt(prefix+"_BATCH_SIZE", cfg.BatchSize, func(v int) error {
		return config.ValidateIntRange(v, 1, 1_000_000)
	}).Value.(int)

	cfg.Interval = config.LoadEnvDuration(prefix+"_INTERVAL", cfg.Interval, config.ValidatePositiveDuration).Value.(time.Duration)

	cfg.HealthPort = config.LoadEnvInt(prefix+"_HEALTH_PORT", cfg.HealthPort, func(v int) error {
		return config.ValidateIntRange(v, 1024, 65535)
	}).Value.(int)

	return cfg
}

// WorkerID returns WORKER_ID if set, otherwise the host's hostname
// suffixed with the process ID, so concurrent replicas of the same
// service don't collide in BatchRun.worker_id.
func WorkerID() string {
	if id := os.Getenv("WORKER_ID"); id != "" {
		return id
	}
	host, err := os.Hostname()
	if err != nil {
		host = "worker"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}
