package job

import "time"

// State represents the lifecycle state of a job.
type State string

const (
	// StateScheduled means the job has a future run_at and is not yet
	// eligible for execution.
	StateScheduled State = "scheduled"
	// StatePending means the job is waiting to be claimed by a worker.
	StatePending State = "pending"
	// StateProcessing means a worker has claimed the job and its child
	// process is (or is about to be) running.
	StateProcessing State = "processing"
	// StateWaiting means the job failed and is waiting out its retry
	// backoff before reactivation.
	StateWaiting State = "waiting"
	// StateCompleted means the job finished successfully. Terminal.
	StateCompleted State = "completed"
	// StateDead means the job exhausted its retry budget and sits in the
	// dead letter queue. Terminal except for explicit DLQ retry.
	StateDead State = "dead"

	// StateLegacyFailed is the name older databases used for the
	// retry-wait state. It is never written; stores must treat existing
	// rows carrying it exactly like StateWaiting.
	StateLegacyFailed State = "failed"
)

// States lists the canonical states in lifecycle order.
var States = []State{
	StateScheduled,
	StatePending,
	StateProcessing,
	StateWaiting,
	StateCompleted,
	StateDead,
}

// Valid reports whether s is a canonical state.
func (s State) Valid() bool {
	for _, st := range States {
		if s == st {
			return true
		}
	}
	return false
}

// DefaultPriority is assigned when a spec carries no priority.
// Smaller values are more urgent.
const DefaultPriority = 100

// Job is a unit of work defined by a shell command and metadata.
type Job struct {
	ID         string `json:"id"`
	Command    string `json:"command"`
	State      State  `json:"state"`
	Attempts   int    `json:"attempts"`
	MaxRetries int    `json:"max_retries"`
	Priority   int    `json:"priority"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// RunAt is the earliest wall-clock time the job may first execute.
	RunAt *time.Time `json:"run_at,omitempty"`
	// NextRunAt is the earliest time a waiting job becomes runnable again.
	NextRunAt *time.Time `json:"next_run_at,omitempty"`

	// WorkerID is set while State is processing and cleared on every
	// terminal or waiting transition.
	WorkerID string `json:"worker_id,omitempty"`
	// LastError is the most recent failure reason.
	LastError string `json:"last_error,omitempty"`
}

// LogLine is one append-only log entry for a job.
type LogLine struct {
	JobID     string    `json:"job_id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
