package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/xraph/cmdq"
	"github.com/xraph/cmdq/clock"
	"github.com/xraph/cmdq/job"
)

const jobColumns = `id, command, state, attempts, max_retries, priority,
	created_at, updated_at, run_at, next_run_at, worker_id, last_error`

// waitingStates matches the retry-wait state under both its canonical
// and legacy names. Databases written by older revisions carry 'failed'.
const waitingStates = `('waiting', 'failed')`

// EnqueueJob persists a new job.
func (s *Store) EnqueueJob(ctx context.Context, j *job.Job) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO jobs (`+jobColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.ID, j.Command, string(j.State), j.Attempts, j.MaxRetries, j.Priority,
		clock.Format(j.CreatedAt), clock.Format(j.UpdatedAt),
		nullTime(j.RunAt), nullTime(j.NextRunAt),
		nullString(j.WorkerID), nullString(j.LastError),
	)
	if err != nil {
		if isDuplicateKey(err) {
			return cmdq.ErrDuplicateID
		}
		return fmt.Errorf("cmdq/sqlite: enqueue job: %w", err)
	}
	return nil
}

// ClaimNextJob selects the next runnable pending job and claims it with
// a conditional update. The rows-affected check is the race arbiter:
// when two workers pick the same candidate, only the update that still
// sees state='pending' wins.
func (s *Store) ClaimNextJob(ctx context.Context, workerID string, now time.Time) (*job.Job, error) {
	ts := clock.Format(now)

	row := s.db.QueryRowContext(ctx, `
		SELECT `+jobColumns+`
		FROM jobs
		WHERE state = 'pending'
		  AND (run_at IS NULL OR run_at <= ?)
		  AND (next_run_at IS NULL OR next_run_at <= ?)
		ORDER BY priority ASC,
		         CASE WHEN run_at IS NULL THEN 1 ELSE 0 END ASC,
		         run_at ASC,
		         created_at ASC
		LIMIT 1`, ts, ts)

	j, err := scanJob(row)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("cmdq/sqlite: select claim candidate: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET state = 'processing', worker_id = ?, updated_at = ?
		WHERE id = ? AND state = 'pending'`,
		workerID, ts, j.ID)
	if err != nil {
		return nil, fmt.Errorf("cmdq/sqlite: claim job: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("cmdq/sqlite: claim rows affected: %w", err)
	}
	if n == 0 {
		// Another worker won the race.
		return nil, nil
	}

	j.State = job.StateProcessing
	j.WorkerID = workerID
	j.UpdatedAt = now
	return j, nil
}

// MarkJobCompleted moves a job to completed.
func (s *Store) MarkJobCompleted(ctx context.Context, jobID string, attempts int, now time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET state = 'completed', attempts = ?, worker_id = NULL, updated_at = ?
		WHERE id = ?`,
		attempts, clock.Format(now), jobID)
	if err != nil {
		return fmt.Errorf("cmdq/sqlite: mark completed: %w", err)
	}
	return requireRow(res)
}

// MarkJobFailed resolves a failed attempt into waiting or dead. The
// transition is a single UPDATE, so a crash can never leave the row
// half-moved.
func (s *Store) MarkJobFailed(ctx context.Context, jobID, errMsg string, attempts, maxRetries int, backoff time.Duration, now time.Time) error {
	var (
		state   = job.StateWaiting
		nextRun any
	)
	if attempts > maxRetries {
		state = job.StateDead
	} else {
		nextRun = clock.Format(now.Add(backoff))
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs
		SET state = ?, attempts = ?, last_error = ?, next_run_at = ?,
		    worker_id = NULL, updated_at = ?
		WHERE id = ?`,
		string(state), attempts, errMsg, nextRun, clock.Format(now), jobID)
	if err != nil {
		return fmt.Errorf("cmdq/sqlite: mark failed: %w", err)
	}
	return requireRow(res)
}

// ActivateScheduledJobs promotes due scheduled jobs to pending.
func (s *Store) ActivateScheduledJobs(ctx context.Context, now time.Time) (int64, error) {
	ts := clock.Format(now)
	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET state = 'pending', updated_at = ?
		WHERE state = 'scheduled' AND (run_at IS NULL OR run_at <= ?)`,
		ts, ts)
	if err != nil {
		return 0, fmt.Errorf("cmdq/sqlite: activate scheduled: %w", err)
	}
	return res.RowsAffected()
}

// ReactivateWaitingJobs promotes due waiting jobs to pending.
func (s *Store) ReactivateWaitingJobs(ctx context.Context, now time.Time) (int64, error) {
	ts := clock.Format(now)
	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET state = 'pending', updated_at = ?
		WHERE state IN `+waitingStates+` AND (next_run_at IS NULL OR next_run_at <= ?)`,
		ts, ts)
	if err != nil {
		return 0, fmt.Errorf("cmdq/sqlite: reactivate waiting: %w", err)
	}
	return res.RowsAffected()
}

// RetryDeadJob moves one dead job back to pending.
func (s *Store) RetryDeadJob(ctx context.Context, jobID string, now time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs
		SET state = 'pending', attempts = 0, next_run_at = NULL,
		    last_error = NULL, updated_at = ?
		WHERE id = ? AND state = 'dead'`,
		clock.Format(now), jobID)
	if err != nil {
		return fmt.Errorf("cmdq/sqlite: retry dead job: %w", err)
	}
	return requireRow(res)
}

// RetryAllDeadJobs moves every dead job back to pending.
func (s *Store) RetryAllDeadJobs(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs
		SET state = 'pending', attempts = 0, next_run_at = NULL,
		    last_error = NULL, updated_at = ?
		WHERE state = 'dead'`,
		clock.Format(now))
	if err != nil {
		return 0, fmt.Errorf("cmdq/sqlite: retry all dead jobs: %w", err)
	}
	return res.RowsAffected()
}

// ClearDeadJobs deletes every dead job. Logs cascade via the job_logs
// foreign key.
func (s *Store) ClearDeadJobs(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE state = 'dead'`)
	if err != nil {
		return 0, fmt.Errorf("cmdq/sqlite: clear dead jobs: %w", err)
	}
	return res.RowsAffected()
}

// RecoverOrphanedJobs returns processing jobs to pending. attempts is
// deliberately untouched: an orphaned execution was never resolved, so
// it does not count against the retry budget.
func (s *Store) RecoverOrphanedJobs(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET state = 'pending', worker_id = NULL, updated_at = ?
		WHERE state = 'processing'`,
		clock.Format(now))
	if err != nil {
		return 0, fmt.Errorf("cmdq/sqlite: recover orphans: %w", err)
	}
	return res.RowsAffected()
}

// GetJob retrieves a job by id.
func (s *Store) GetJob(ctx context.Context, jobID string) (*job.Job, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+jobColumns+` FROM jobs WHERE id = ?`, jobID)
	j, err := scanJob(row)
	if err != nil {
		if isNoRows(err) {
			return nil, cmdq.ErrJobNotFound
		}
		return nil, fmt.Errorf("cmdq/sqlite: get job: %w", err)
	}
	return j, nil
}

// ListJobs returns jobs in the given state (all when state is empty),
// ordered by created_at ascending.
func (s *Store) ListJobs(ctx context.Context, state job.State) ([]*job.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs`
	args := []any{}
	switch {
	case state == job.StateWaiting:
		query += ` WHERE state IN ` + waitingStates
	case state != "":
		query += ` WHERE state = ?`
		args = append(args, string(state))
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("cmdq/sqlite: list jobs: %w", err)
	}
	defer rows.Close()

	var out []*job.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("cmdq/sqlite: list jobs scan: %w", err)
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// CountJobsByState returns a histogram over the canonical states.
// Legacy 'failed' rows count as waiting.
func (s *Store) CountJobsByState(ctx context.Context) (map[job.State]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT state, COUNT(*) FROM jobs GROUP BY state`)
	if err != nil {
		return nil, fmt.Errorf("cmdq/sqlite: count jobs: %w", err)
	}
	defer rows.Close()

	out := make(map[job.State]int64, len(job.States))
	for _, st := range job.States {
		out[st] = 0
	}
	for rows.Next() {
		var (
			st string
			n  int64
		)
		if err := rows.Scan(&st, &n); err != nil {
			return nil, fmt.Errorf("cmdq/sqlite: count jobs scan: %w", err)
		}
		state := job.State(st)
		if state == job.StateLegacyFailed {
			state = job.StateWaiting
		}
		out[state] += n
	}
	return out, rows.Err()
}

// CountReadyPending counts pending jobs whose time gates have passed.
func (s *Store) CountReadyPending(ctx context.Context, now time.Time) (int64, error) {
	ts := clock.Format(now)
	var n int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM jobs
		WHERE state = 'pending'
		  AND (run_at IS NULL OR run_at <= ?)
		  AND (next_run_at IS NULL OR next_run_at <= ?)`,
		ts, ts).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("cmdq/sqlite: count ready pending: %w", err)
	}
	return n, nil
}

// AppendJobLog appends one log line for a job.
func (s *Store) AppendJobLog(ctx context.Context, jobID, message string, now time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO job_logs (job_id, message, created_at) VALUES (?, ?, ?)`,
		jobID, message, clock.Format(now))
	if err != nil {
		return fmt.Errorf("cmdq/sqlite: append job log: %w", err)
	}
	return nil
}

// GetJobLogs returns a job's log lines in insertion order.
func (s *Store) GetJobLogs(ctx context.Context, jobID string) ([]*job.LogLine, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT job_id, message, created_at FROM job_logs
		WHERE job_id = ? ORDER BY id ASC`, jobID)
	if err != nil {
		return nil, fmt.Errorf("cmdq/sqlite: get job logs: %w", err)
	}
	defer rows.Close()

	var out []*job.LogLine
	for rows.Next() {
		var (
			l  job.LogLine
			ts string
		)
		if err := rows.Scan(&l.JobID, &l.Message, &ts); err != nil {
			return nil, fmt.Errorf("cmdq/sqlite: get job logs scan: %w", err)
		}
		t, err := parseTime(ts)
		if err != nil {
			return nil, err
		}
		l.CreatedAt = t
		out = append(out, &l)
	}
	return out, rows.Err()
}

// ── row scanning ─────────────────────────────────────────────

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(r rowScanner) (*job.Job, error) {
	var (
		j                  job.Job
		state              string
		createdAt          string
		updatedAt          string
		runAt, nextRunAt   sql.NullString
		workerID, lastErr  sql.NullString
	)
	err := r.Scan(&j.ID, &j.Command, &state, &j.Attempts, &j.MaxRetries, &j.Priority,
		&createdAt, &updatedAt, &runAt, &nextRunAt, &workerID, &lastErr)
	if err != nil {
		return nil, err
	}

	j.State = job.State(state)
	if j.State == job.StateLegacyFailed {
		j.State = job.StateWaiting
	}
	if j.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if j.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if j.RunAt, err = parseNullTime(runAt); err != nil {
		return nil, err
	}
	if j.NextRunAt, err = parseNullTime(nextRunAt); err != nil {
		return nil, err
	}
	j.WorkerID = workerID.String
	j.LastError = lastErr.String
	return &j, nil
}

func parseTime(s string) (time.Time, error) {
	t, err := clock.Parse(s)
	if err == nil {
		return t, nil
	}
	// Older revisions stored RFC3339 with varying precision.
	t, err2 := time.Parse(time.RFC3339Nano, s)
	if err2 != nil {
		return time.Time{}, fmt.Errorf("cmdq/sqlite: bad timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return clock.Format(*t)
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("cmdq/sqlite: rows affected: %w", err)
	}
	if n == 0 {
		return cmdq.ErrJobNotFound
	}
	return nil
}
