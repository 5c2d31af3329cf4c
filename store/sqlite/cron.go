package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/xraph/cmdq"
	"github.com/xraph/cmdq/clock"
	"github.com/xraph/cmdq/cron"
)

// PutCronEntry persists a new entry.
func (s *Store) PutCronEntry(ctx context.Context, e *cron.Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cron_entries
			(id, name, schedule, command, max_retries, priority, enabled,
			 last_run_at, next_run_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Name, e.Schedule, e.Command, e.MaxRetries, e.Priority, boolInt(e.Enabled),
		nullTime(e.LastRunAt), nullTime(e.NextRunAt),
		clock.Format(e.CreatedAt), clock.Format(e.UpdatedAt))
	if err != nil {
		if isDuplicateKey(err) {
			return cmdq.ErrDuplicateCron
		}
		return fmt.Errorf("cmdq/sqlite: put cron entry: %w", err)
	}
	return nil
}

// ListCronEntries returns all entries ordered by name.
func (s *Store) ListCronEntries(ctx context.Context) ([]*cron.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, schedule, command, max_retries, priority, enabled,
		       last_run_at, next_run_at, created_at, updated_at
		FROM cron_entries ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("cmdq/sqlite: list cron entries: %w", err)
	}
	defer rows.Close()

	var out []*cron.Entry
	for rows.Next() {
		e, err := scanCronEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// DeleteCronEntry removes an entry by name.
func (s *Store) DeleteCronEntry(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cron_entries WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("cmdq/sqlite: delete cron entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("cmdq/sqlite: delete cron rows affected: %w", err)
	}
	if n == 0 {
		return cmdq.ErrCronNotFound
	}
	return nil
}

// MarkCronRun records a firing.
func (s *Store) MarkCronRun(ctx context.Context, name string, lastRun, nextRun time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE cron_entries
		SET last_run_at = ?, next_run_at = ?, updated_at = ?
		WHERE name = ?`,
		clock.Format(lastRun), clock.Format(nextRun), clock.Format(lastRun), name)
	if err != nil {
		return fmt.Errorf("cmdq/sqlite: mark cron run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("cmdq/sqlite: mark cron rows affected: %w", err)
	}
	if n == 0 {
		return cmdq.ErrCronNotFound
	}
	return nil
}

func scanCronEntry(r rowScanner) (*cron.Entry, error) {
	var (
		e                cron.Entry
		enabled          int
		lastRun, nextRun sql.NullString
		created, updated string
	)
	err := r.Scan(&e.ID, &e.Name, &e.Schedule, &e.Command, &e.MaxRetries, &e.Priority,
		&enabled, &lastRun, &nextRun, &created, &updated)
	if err != nil {
		return nil, fmt.Errorf("cmdq/sqlite: scan cron entry: %w", err)
	}
	e.Enabled = enabled != 0
	if e.LastRunAt, err = parseNullTime(lastRun); err != nil {
		return nil, err
	}
	if e.NextRunAt, err = parseNullTime(nextRun); err != nil {
		return nil, err
	}
	if e.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if e.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &e, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
