package repository

import (
	"context"

	"rssnews/internal/domain/entity"
)

// ConfigRepository persists the hot-reloadable Config table: scoring
// weights, thresholds, caps, window defaults.
type ConfigRepository interface {
	Get(ctx context.Context, key string) (*entity.ConfigEntry, error)
	All(ctx context.Context) ([]*entity.ConfigEntry, error)
	Set(ctx context.Context, entry *entity.ConfigEntry) error
}
