// Package memory is a fully in-memory implementation of store.Store.
// Safe for concurrent access. Intended for unit testing and development;
// nothing survives a restart.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xraph/cmdq"
	"github.com/xraph/cmdq/config"
	"github.com/xraph/cmdq/cron"
	"github.com/xraph/cmdq/job"
	"github.com/xraph/cmdq/metric"
	"github.com/xraph/cmdq/worker"
)

// Ensure Store implements every subsystem interface at compile time.
var (
	_ job.Store    = (*Store)(nil)
	_ config.Store = (*Store)(nil)
	_ metric.Store = (*Store)(nil)
	_ worker.Store = (*Store)(nil)
	_ cron.Store   = (*Store)(nil)
)

// Store holds all queue state in maps guarded by one mutex.
type Store struct {
	mu sync.RWMutex

	jobs    map[string]*job.Job
	logs    map[string][]*job.LogLine
	config  map[string]string
	metrics map[string]*metric.Metric
	workers map[string]*worker.Info
	crons   map[string]*cron.Entry // keyed by name
}

// New returns a new empty Store.
func New() *Store {
	return &Store{
		jobs:    make(map[string]*job.Job),
		logs:    make(map[string][]*job.LogLine),
		config:  make(map[string]string),
		metrics: make(map[string]*metric.Metric),
		workers: make(map[string]*worker.Info),
		crons:   make(map[string]*cron.Entry),
	}
}

// ──────────────────────────────────────────────────
// Lifecycle — Migrate / Ping / Close
// ──────────────────────────────────────────────────

// Migrate is a no-op for the memory store.
func (m *Store) Migrate(_ context.Context) error { return nil }

// Ping always succeeds for the memory store.
func (m *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (m *Store) Close() error { return nil }

// ──────────────────────────────────────────────────
// Job store
// ──────────────────────────────────────────────────

// EnqueueJob persists a new job.
func (m *Store) EnqueueJob(_ context.Context, j *job.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.jobs[j.ID]; exists {
		return cmdq.ErrDuplicateID
	}
	cp := *j
	m.jobs[j.ID] = &cp
	return nil
}

// isWaiting treats legacy "failed" rows as waiting.
func isWaiting(s job.State) bool {
	return s == job.StateWaiting || s == job.StateLegacyFailed
}

// ClaimNextJob selects and claims the next runnable pending job. The
// whole selection-plus-claim runs under the store lock, which gives the
// same exactly-one-claim guarantee the SQL backend gets from its
// conditional update.
func (m *Store) ClaimNextJob(_ context.Context, workerID string, now time.Time) (*job.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	candidates := make([]*job.Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		if j.State != job.StatePending {
			continue
		}
		if j.RunAt != nil && j.RunAt.After(now) {
			continue
		}
		if j.NextRunAt != nil && j.NextRunAt.After(now) {
			continue
		}
		candidates = append(candidates, j)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	// Tie-break chain: priority asc, run_at non-null first, run_at asc,
	// created_at asc.
	sort.Slice(candidates, func(i, k int) bool {
		a, b := candidates[i], candidates[k]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		if (a.RunAt != nil) != (b.RunAt != nil) {
			return a.RunAt != nil
		}
		if a.RunAt != nil && b.RunAt != nil && !a.RunAt.Equal(*b.RunAt) {
			return a.RunAt.Before(*b.RunAt)
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})

	j := candidates[0]
	j.State = job.StateProcessing
	j.WorkerID = workerID
	j.UpdatedAt = now

	cp := *j
	return &cp, nil
}

// MarkJobCompleted moves a job to completed.
func (m *Store) MarkJobCompleted(_ context.Context, jobID string, attempts int, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[jobID]
	if !ok {
		return cmdq.ErrJobNotFound
	}
	j.State = job.StateCompleted
	j.Attempts = attempts
	j.WorkerID = ""
	j.UpdatedAt = now
	return nil
}

// MarkJobFailed resolves a failed attempt into waiting or dead.
func (m *Store) MarkJobFailed(_ context.Context, jobID, errMsg string, attempts, maxRetries int, backoff time.Duration, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[jobID]
	if !ok {
		return cmdq.ErrJobNotFound
	}

	j.Attempts = attempts
	j.LastError = errMsg
	j.WorkerID = ""
	j.UpdatedAt = now

	if attempts > maxRetries {
		j.State = job.StateDead
		j.NextRunAt = nil
		return nil
	}
	next := now.Add(backoff)
	j.State = job.StateWaiting
	j.NextRunAt = &next
	return nil
}

// ActivateScheduledJobs promotes due scheduled jobs to pending.
func (m *Store) ActivateScheduledJobs(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, j := range m.jobs {
		if j.State != job.StateScheduled {
			continue
		}
		if j.RunAt != nil && j.RunAt.After(now) {
			continue
		}
		j.State = job.StatePending
		j.UpdatedAt = now
		n++
	}
	return n, nil
}

// ReactivateWaitingJobs promotes due waiting jobs to pending.
func (m *Store) ReactivateWaitingJobs(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, j := range m.jobs {
		if !isWaiting(j.State) {
			continue
		}
		if j.NextRunAt != nil && j.NextRunAt.After(now) {
			continue
		}
		j.State = job.StatePending
		j.UpdatedAt = now
		n++
	}
	return n, nil
}

// RetryDeadJob moves one dead job back to pending.
func (m *Store) RetryDeadJob(_ context.Context, jobID string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[jobID]
	if !ok || j.State != job.StateDead {
		return cmdq.ErrJobNotFound
	}
	m.reviveLocked(j, now)
	return nil
}

// RetryAllDeadJobs moves every dead job back to pending.
func (m *Store) RetryAllDeadJobs(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, j := range m.jobs {
		if j.State != job.StateDead {
			continue
		}
		m.reviveLocked(j, now)
		n++
	}
	return n, nil
}

func (m *Store) reviveLocked(j *job.Job, now time.Time) {
	j.State = job.StatePending
	j.Attempts = 0
	j.NextRunAt = nil
	j.LastError = ""
	j.UpdatedAt = now
}

// ClearDeadJobs deletes every dead job and its logs.
func (m *Store) ClearDeadJobs(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for id, j := range m.jobs {
		if j.State != job.StateDead {
			continue
		}
		delete(m.jobs, id)
		delete(m.logs, id)
		n++
	}
	return n, nil
}

// RecoverOrphanedJobs returns processing jobs to pending.
func (m *Store) RecoverOrphanedJobs(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, j := range m.jobs {
		if j.State != job.StateProcessing {
			continue
		}
		j.State = job.StatePending
		j.WorkerID = ""
		j.UpdatedAt = now
		n++
	}
	return n, nil
}

// GetJob retrieves a job by id.
func (m *Store) GetJob(_ context.Context, jobID string) (*job.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	j, ok := m.jobs[jobID]
	if !ok {
		return nil, cmdq.ErrJobNotFound
	}
	cp := *j
	return &cp, nil
}

// ListJobs returns jobs in the given state (all when state is empty),
// ordered by created_at ascending.
func (m *Store) ListJobs(_ context.Context, state job.State) ([]*job.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*job.Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		if state != "" && !stateMatches(j.State, state) {
			continue
		}
		cp := *j
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, k int) bool {
		if !result[i].CreatedAt.Equal(result[k].CreatedAt) {
			return result[i].CreatedAt.Before(result[k].CreatedAt)
		}
		return result[i].ID < result[k].ID
	})
	return result, nil
}

func stateMatches(have, want job.State) bool {
	if want == job.StateWaiting {
		return isWaiting(have)
	}
	return have == want
}

// CountJobsByState returns a histogram over the canonical states.
func (m *Store) CountJobsByState(_ context.Context) (map[job.State]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[job.State]int64, len(job.States))
	for _, s := range job.States {
		out[s] = 0
	}
	for _, j := range m.jobs {
		s := j.State
		if s == job.StateLegacyFailed {
			s = job.StateWaiting
		}
		out[s]++
	}
	return out, nil
}

// CountReadyPending counts pending jobs whose time gates have passed.
func (m *Store) CountReadyPending(_ context.Context, now time.Time) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var n int64
	for _, j := range m.jobs {
		if j.State != job.StatePending {
			continue
		}
		if j.RunAt != nil && j.RunAt.After(now) {
			continue
		}
		if j.NextRunAt != nil && j.NextRunAt.After(now) {
			continue
		}
		n++
	}
	return n, nil
}

// AppendJobLog appends one log line for a job.
func (m *Store) AppendJobLog(_ context.Context, jobID, message string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logs[jobID] = append(m.logs[jobID], &job.LogLine{
		JobID:     jobID,
		Message:   message,
		CreatedAt: now,
	})
	return nil
}

// GetJobLogs returns a job's log lines in insertion order.
func (m *Store) GetJobLogs(_ context.Context, jobID string) ([]*job.LogLine, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	lines := m.logs[jobID]
	out := make([]*job.LogLine, len(lines))
	for i, l := range lines {
		cp := *l
		out[i] = &cp
	}
	return out, nil
}

// ──────────────────────────────────────────────────
// Config store
// ──────────────────────────────────────────────────

// GetConfigValue returns the value for key and whether it was set.
func (m *Store) GetConfigValue(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.config[key]
	return v, ok, nil
}

// SetConfigValue upserts a setting.
func (m *Store) SetConfigValue(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.config[key] = value
	return nil
}

// ListConfig returns all persisted settings.
func (m *Store) ListConfig(_ context.Context) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]string, len(m.config))
	for k, v := range m.config {
		out[k] = v
	}
	return out, nil
}

// ──────────────────────────────────────────────────
// Metric store
// ──────────────────────────────────────────────────

// RecordJobMetric inserts or replaces the metric row for m.JobID.
func (m *Store) RecordJobMetric(_ context.Context, mt *metric.Metric) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *mt
	m.metrics[mt.JobID] = &cp
	return nil
}

// ListJobMetrics returns all metric rows, most recent first.
func (m *Store) ListJobMetrics(_ context.Context) ([]*metric.Metric, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*metric.Metric, 0, len(m.metrics))
	for _, mt := range m.metrics {
		cp := *mt
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, k int) bool {
		return out[i].CompletedAt.After(out[k].CompletedAt)
	})
	return out, nil
}

// MetricSummary aggregates the metric table.
func (m *Store) MetricSummary(_ context.Context) (*metric.Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := &metric.Summary{}
	var totalDuration float64
	for _, mt := range m.metrics {
		s.Total++
		totalDuration += mt.Duration
		if mt.Duration > s.MaxDuration {
			s.MaxDuration = mt.Duration
		}
		switch mt.Outcome {
		case metric.OutcomeCompleted:
			s.Completed++
		case metric.OutcomeTimeout:
			s.TimedOut++
		default:
			s.Failed++
		}
	}
	if s.Total > 0 {
		s.AvgDuration = totalDuration / float64(s.Total)
	}
	return s, nil
}

// ──────────────────────────────────────────────────
// Worker store
// ──────────────────────────────────────────────────

// UpsertWorker inserts or refreshes a worker row.
func (m *Store) UpsertWorker(_ context.Context, w *worker.Info) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *w
	m.workers[w.ID] = &cp
	return nil
}

// HeartbeatWorker advances last_heartbeat for a live worker.
func (m *Store) HeartbeatWorker(_ context.Context, workerID string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.workers[workerID]
	if !ok {
		return cmdq.ErrWorkerNotFound
	}
	w.LastHeartbeat = now
	return nil
}

// DeleteWorker removes a worker row.
func (m *Store) DeleteWorker(_ context.Context, workerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.workers, workerID)
	return nil
}

// ListWorkers returns all registered workers.
func (m *Store) ListWorkers(_ context.Context) ([]*worker.Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*worker.Info, 0, len(m.workers))
	for _, w := range m.workers {
		cp := *w
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].ID < out[k].ID })
	return out, nil
}

// ──────────────────────────────────────────────────
// Cron store
// ──────────────────────────────────────────────────

// PutCronEntry persists a new entry.
func (m *Store) PutCronEntry(_ context.Context, e *cron.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.crons[e.Name]; exists {
		return cmdq.ErrDuplicateCron
	}
	cp := *e
	m.crons[e.Name] = &cp
	return nil
}

// ListCronEntries returns all entries ordered by name.
func (m *Store) ListCronEntries(_ context.Context) ([]*cron.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*cron.Entry, 0, len(m.crons))
	for _, e := range m.crons {
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Name < out[k].Name })
	return out, nil
}

// DeleteCronEntry removes an entry by name.
func (m *Store) DeleteCronEntry(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.crons[name]; !ok {
		return cmdq.ErrCronNotFound
	}
	delete(m.crons, name)
	return nil
}

// MarkCronRun records a firing.
func (m *Store) MarkCronRun(_ context.Context, name string, lastRun, nextRun time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.crons[name]
	if !ok {
		return cmdq.ErrCronNotFound
	}
	lr, nr := lastRun, nextRun
	e.LastRunAt = &lr
	e.NextRunAt = &nr
	e.UpdatedAt = lastRun
	return nil
}
