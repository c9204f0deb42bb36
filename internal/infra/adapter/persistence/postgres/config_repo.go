package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"rssnews/internal/domain/entity"
	"rssnews/internal/repository"
)

// ConfigRepo implements repository.ConfigRepository against the config
// table: the hot-reloadable scoring weights, thresholds, and caps.
type ConfigRepo struct{ db *sql.DB }

func NewConfigRepo(db *sql.DB) repository.ConfigRepository {
	return &ConfigRepo{db: db}
}

const configColumns = `key, value, value_type, updated_at, updated_by`

func scanConfigEntry(row interface{ Scan(...any) error }) (*entity.ConfigEntry, error) {
	var c entity.ConfigEntry
	var valueType string
	err := row.Scan(&c.Key, &c.Value, &valueType, &c.UpdatedAt, &c.UpdatedBy)
	if err != nil {
		return nil, err
	}
	c.ValueType = entity.ConfigValueType(valueType)
	return &c, nil
}

func (r *ConfigRepo) Get(ctx context.Context, key string) (*entity.ConfigEntry, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+configColumns+` FROM config WHERE key = $1`, key)
	c, err := scanConfigEntry(row)
	if err == sql.ErrNoRows {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return c, nil
}

func (r *ConfigRepo) All(ctx context.Context) ([]*entity.ConfigEntry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+configColumns+` FROM config ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("All: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := make([]*entity.ConfigEntry, 0, 32)
	for rows.Next() {
		c, err := scanConfigEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("All: Scan: %w", err)
		}
		entries = append(entries, c)
	}
	return entries, rows.Err()
}

func (r *ConfigRepo) Set(ctx context.Context, entry *entity.ConfigEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("Set: %w", err)
	}
	const query = `
INSERT INTO config (key, value, value_type, updated_at, updated_by)
VALUES ($1, $2, $3, now(), $4)
ON CONFLICT (key) DO UPDATE SET
	value = EXCLUDED.value, value_type = EXCLUDED.value_type,
	updated_at = now(), updated_by = EXCLUDED.updated_by
RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query, entry.Key, entry.Value, string(entry.ValueType), entry.UpdatedBy).
		Scan(&entry.UpdatedAt)
	if err != nil {
		return fmt.Errorf("Set: %w", err)
	}
	return nil
}
