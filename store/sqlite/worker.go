package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/cmdq"
	"github.com/xraph/cmdq/clock"
	"github.com/xraph/cmdq/worker"
)

// UpsertWorker inserts or refreshes a worker row.
func (s *Store) UpsertWorker(ctx context.Context, w *worker.Info) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO workers (id, started_at, last_heartbeat) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			started_at = excluded.started_at,
			last_heartbeat = excluded.last_heartbeat`,
		w.ID, clock.Format(w.StartedAt), clock.Format(w.LastHeartbeat))
	if err != nil {
		return fmt.Errorf("cmdq/sqlite: upsert worker: %w", err)
	}
	return nil
}

// HeartbeatWorker advances last_heartbeat for a live worker.
func (s *Store) HeartbeatWorker(ctx context.Context, workerID string, now time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE workers SET last_heartbeat = ? WHERE id = ?`,
		clock.Format(now), workerID)
	if err != nil {
		return fmt.Errorf("cmdq/sqlite: heartbeat worker: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("cmdq/sqlite: heartbeat rows affected: %w", err)
	}
	if n == 0 {
		return cmdq.ErrWorkerNotFound
	}
	return nil
}

// DeleteWorker removes a worker row.
func (s *Store) DeleteWorker(ctx context.Context, workerID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM workers WHERE id = ?`, workerID)
	if err != nil {
		return fmt.Errorf("cmdq/sqlite: delete worker: %w", err)
	}
	return nil
}

// ListWorkers returns all registered workers.
func (s *Store) ListWorkers(ctx context.Context) ([]*worker.Info, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, last_heartbeat FROM workers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("cmdq/sqlite: list workers: %w", err)
	}
	defer rows.Close()

	var out []*worker.Info
	for rows.Next() {
		var (
			w                  worker.Info
			started, heartbeat string
		)
		if err := rows.Scan(&w.ID, &started, &heartbeat); err != nil {
			return nil, fmt.Errorf("cmdq/sqlite: list workers scan: %w", err)
		}
		if w.StartedAt, err = parseTime(started); err != nil {
			return nil, err
		}
		if w.LastHeartbeat, err = parseTime(heartbeat); err != nil {
			return nil, err
		}
		out = append(out, &w)
	}
	return out, rows.Err()
}
