package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// GetConfigValue returns the value for key and whether it was set.
func (s *Store) GetConfigValue(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM config WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("cmdq/sqlite: get config %s: %w", key, err)
	}
	return v, true, nil
}

// SetConfigValue upserts a setting.
func (s *Store) SetConfigValue(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	if err != nil {
		return fmt.Errorf("cmdq/sqlite: set config %s: %w", key, err)
	}
	return nil
}

// ListConfig returns all persisted settings.
func (s *Store) ListConfig(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM config ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("cmdq/sqlite: list config: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("cmdq/sqlite: list config scan: %w", err)
		}
		out[k] = v
	}
	return out, rows.Err()
}
