package job

import (
	"context"
	"time"
)

// Store defines the persistence contract for jobs. It is the state
// machine authority: every method is a single atomic statement on the
// backend, so partial transitions are impossible.
type Store interface {
	// EnqueueJob persists a new job. Returns cmdq.ErrDuplicateID when a
	// row with the same id already exists.
	EnqueueJob(ctx context.Context, j *Job) error

	// ClaimNextJob selects the next runnable pending job and atomically
	// claims it for workerID via a conditional update on the row's state,
	// checking the affected-row count. Returns nil when there is no
	// runnable job or another worker won the race.
	//
	// Selection: state = pending AND (run_at IS NULL OR run_at <= now)
	// AND (next_run_at IS NULL OR next_run_at <= now).
	// Ordering: priority ascending (smaller wins), rows with run_at
	// before rows without, run_at ascending, created_at ascending.
	ClaimNextJob(ctx context.Context, workerID string, now time.Time) (*Job, error)

	// MarkJobCompleted moves a job to completed, recording the attempt
	// count including the execution that just succeeded. Terminal.
	MarkJobCompleted(ctx context.Context, jobID string, attempts int, now time.Time) error

	// MarkJobFailed resolves a failed attempt. attempts is the count
	// including the attempt that just failed. attempts > maxRetries moves
	// the job to dead; otherwise to waiting with next_run_at = now +
	// backoff. worker_id is cleared either way.
	MarkJobFailed(ctx context.Context, jobID, errMsg string, attempts, maxRetries int, backoff time.Duration, now time.Time) error

	// ActivateScheduledJobs promotes scheduled jobs whose run_at has
	// arrived to pending. Returns the number of rows promoted. Idempotent.
	ActivateScheduledJobs(ctx context.Context, now time.Time) (int64, error)

	// ReactivateWaitingJobs promotes waiting jobs whose next_run_at has
	// arrived to pending. Legacy "failed" rows reactivate identically.
	// Returns the number of rows promoted. Idempotent.
	ReactivateWaitingJobs(ctx context.Context, now time.Time) (int64, error)

	// RetryDeadJob moves one dead job back to pending with attempts
	// reset to 0, clearing next_run_at and last_error. Returns
	// cmdq.ErrJobNotFound when there is no dead row with that id.
	RetryDeadJob(ctx context.Context, jobID string, now time.Time) error

	// RetryAllDeadJobs applies RetryDeadJob to every dead row and
	// returns the number transitioned.
	RetryAllDeadJobs(ctx context.Context, now time.Time) (int64, error)

	// ClearDeadJobs physically deletes every dead row (logs cascade)
	// and returns the number removed.
	ClearDeadJobs(ctx context.Context) (int64, error)

	// RecoverOrphanedJobs returns processing jobs to pending with
	// worker_id cleared and attempts untouched. Run before starting any
	// worker to reclaim jobs orphaned by an unclean shutdown.
	RecoverOrphanedJobs(ctx context.Context, now time.Time) (int64, error)

	// GetJob retrieves a job by id. Returns cmdq.ErrJobNotFound when
	// absent.
	GetJob(ctx context.Context, jobID string) (*Job, error)

	// ListJobs returns jobs in the given state, or all jobs when state
	// is empty, ordered by created_at ascending.
	ListJobs(ctx context.Context, state State) ([]*Job, error)

	// CountJobsByState returns a histogram over the canonical states.
	CountJobsByState(ctx context.Context) (map[State]int64, error)

	// CountReadyPending counts pending jobs whose run_at and next_run_at
	// gates have both passed at now.
	CountReadyPending(ctx context.Context, now time.Time) (int64, error)

	// AppendJobLog appends one log line for a job.
	AppendJobLog(ctx context.Context, jobID, message string, now time.Time) error

	// GetJobLogs returns a job's log lines in insertion order.
	GetJobLogs(ctx context.Context, jobID string) ([]*LogLine, error)
}
