package sqlite

import (
	"context"
	"fmt"
)

// migration is one schema step. Versions are applied in order and
// recorded in schema_migrations so reopening an existing database only
// runs what is missing.
type migration struct {
	version int
	name    string
	stmts   []string
}

var migrations = []migration{
	{
		version: 1,
		name:    "create_jobs",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS jobs (
				id           TEXT PRIMARY KEY,
				command      TEXT NOT NULL,
				state        TEXT NOT NULL DEFAULT 'pending',
				attempts     INTEGER NOT NULL DEFAULT 0,
				max_retries  INTEGER NOT NULL DEFAULT 3,
				priority     INTEGER NOT NULL DEFAULT 100,
				created_at   TEXT NOT NULL,
				updated_at   TEXT NOT NULL,
				run_at       TEXT,
				next_run_at  TEXT,
				worker_id    TEXT,
				last_error   TEXT
			)`,
			`CREATE INDEX IF NOT EXISTS idx_jobs_claim
				ON jobs (priority ASC, run_at ASC, created_at ASC)
				WHERE state = 'pending'`,
			`CREATE INDEX IF NOT EXISTS idx_jobs_state
				ON jobs (state)`,
			`CREATE INDEX IF NOT EXISTS idx_jobs_due
				ON jobs (state, next_run_at, run_at)`,
		},
	},
	{
		version: 2,
		name:    "create_job_logs",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS job_logs (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				job_id      TEXT NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
				message     TEXT NOT NULL,
				created_at  TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_job_logs_job
				ON job_logs (job_id, id)`,
		},
	},
	{
		version: 3,
		name:    "create_job_metrics",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS job_metrics (
				job_id        TEXT PRIMARY KEY,
				command       TEXT NOT NULL,
				state         TEXT NOT NULL,
				duration      REAL NOT NULL,
				worker_id     TEXT NOT NULL,
				completed_at  TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_job_metrics_completed
				ON job_metrics (completed_at DESC)`,
		},
	},
	{
		version: 4,
		name:    "create_config",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS config (
				key    TEXT PRIMARY KEY,
				value  TEXT NOT NULL
			)`,
		},
	},
	{
		version: 5,
		name:    "create_workers",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS workers (
				id              TEXT PRIMARY KEY,
				started_at      TEXT NOT NULL,
				last_heartbeat  TEXT NOT NULL
			)`,
		},
	},
	{
		version: 6,
		name:    "create_cron_entries",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS cron_entries (
				id           TEXT PRIMARY KEY,
				name         TEXT NOT NULL UNIQUE,
				schedule     TEXT NOT NULL,
				command      TEXT NOT NULL,
				max_retries  INTEGER NOT NULL DEFAULT 3,
				priority     INTEGER NOT NULL DEFAULT 100,
				enabled      INTEGER NOT NULL DEFAULT 1,
				last_run_at  TEXT,
				next_run_at  TEXT,
				created_at   TEXT NOT NULL,
				updated_at   TEXT NOT NULL
			)`,
		},
	},
}

// Migrate applies all pending migrations inside a transaction each.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version     INTEGER PRIMARY KEY,
		name        TEXT NOT NULL,
		applied_at  TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
	)`)
	if err != nil {
		return fmt.Errorf("cmdq/sqlite: create migrations table: %w", err)
	}

	var current int
	err = s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current)
	if err != nil {
		return fmt.Errorf("cmdq/sqlite: read schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("cmdq/sqlite: begin migration %d: %w", m.version, err)
		}
		for _, stmt := range m.stmts {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("cmdq/sqlite: migration %d (%s): %w", m.version, m.name, err)
			}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO schema_migrations (version, name) VALUES (?, ?)`, m.version, m.name); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("cmdq/sqlite: record migration %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("cmdq/sqlite: commit migration %d: %w", m.version, err)
		}
	}
	return nil
}
