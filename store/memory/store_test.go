package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/xraph/cmdq"
	"github.com/xraph/cmdq/cron"
	"github.com/xraph/cmdq/job"
	"github.com/xraph/cmdq/metric"
	"github.com/xraph/cmdq/worker"
)

var t0 = time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

func newJob(id string, state job.State, priority int) *job.Job {
	return &job.Job{
		ID:         id,
		Command:    "echo " + id,
		State:      state,
		MaxRetries: 3,
		Priority:   priority,
		CreatedAt:  t0,
		UpdatedAt:  t0,
	}
}

func mustEnqueue(t *testing.T, s *Store, jobs ...*job.Job) {
	t.Helper()
	for _, j := range jobs {
		if err := s.EnqueueJob(context.Background(), j); err != nil {
			t.Fatalf("EnqueueJob(%s) returned error: %v", j.ID, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Enqueue / Get
// ──────────────────────────────────────────────────

func TestEnqueueJob_DuplicateID(t *testing.T) {
	t.Parallel()
	s := New()

	mustEnqueue(t, s, newJob("a", job.StatePending, 100))
	err := s.EnqueueJob(context.Background(), newJob("a", job.StatePending, 100))
	if !errors.Is(err, cmdq.ErrDuplicateID) {
		t.Errorf("second enqueue error = %v, want ErrDuplicateID", err)
	}
}

func TestGetJob_NotFound(t *testing.T) {
	t.Parallel()
	s := New()

	if _, err := s.GetJob(context.Background(), "ghost"); !errors.Is(err, cmdq.ErrJobNotFound) {
		t.Errorf("GetJob error = %v, want ErrJobNotFound", err)
	}
}

func TestEnqueueJob_FieldsPreserved(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	runAt := t0.Add(time.Hour)
	in := newJob("a", job.StateScheduled, 7)
	in.RunAt = &runAt
	mustEnqueue(t, s, in)

	got, err := s.GetJob(ctx, "a")
	if err != nil {
		t.Fatalf("GetJob returned error: %v", err)
	}
	if got.Command != in.Command || got.Priority != 7 || !got.RunAt.Equal(runAt) {
		t.Errorf("round trip mangled fields: %+v", got)
	}
}

// ──────────────────────────────────────────────────
// Claim
// ──────────────────────────────────────────────────

func TestClaimNextJob_SetsProcessingAndWorker(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	mustEnqueue(t, s, newJob("a", job.StatePending, 100))

	now := t0.Add(time.Minute)
	got, err := s.ClaimNextJob(ctx, "w1", now)
	if err != nil {
		t.Fatalf("ClaimNextJob returned error: %v", err)
	}
	if got == nil {
		t.Fatal("ClaimNextJob returned nil, want job")
	}
	if got.State != job.StateProcessing || got.WorkerID != "w1" {
		t.Errorf("claimed job state=%q worker=%q", got.State, got.WorkerID)
	}
	if !got.UpdatedAt.Equal(now) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, now)
	}

	// Nothing left to claim.
	second, err := s.ClaimNextJob(ctx, "w2", now)
	if err != nil {
		t.Fatalf("ClaimNextJob returned error: %v", err)
	}
	if second != nil {
		t.Errorf("second claim = %+v, want nil", second)
	}
}

func TestClaimNextJob_RespectsTimeGates(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	future := t0.Add(time.Hour)

	tests := []struct {
		name  string
		setup func(*job.Job)
	}{
		{"future run_at", func(j *job.Job) { j.RunAt = &future }},
		{"future next_run_at", func(j *job.Job) { j.NextRunAt = &future }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			j := newJob("a", job.StatePending, 100)
			tt.setup(j)
			mustEnqueue(t, s, j)

			got, err := s.ClaimNextJob(ctx, "w1", t0)
			if err != nil {
				t.Fatalf("ClaimNextJob returned error: %v", err)
			}
			if got != nil {
				t.Errorf("claimed gated job %+v", got)
			}

			// Gate passes once now reaches the boundary.
			got, err = s.ClaimNextJob(ctx, "w1", future)
			if err != nil {
				t.Fatalf("ClaimNextJob returned error: %v", err)
			}
			if got == nil {
				t.Error("expected claim at gate boundary")
			}
		})
	}
}

func TestClaimNextJob_Ordering(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	early := t0.Add(-time.Hour)
	late := t0.Add(-time.Minute)

	a := newJob("low-priority", job.StatePending, 100)
	b := newJob("urgent", job.StatePending, 1)
	c := newJob("urgent-with-runat-late", job.StatePending, 1)
	c.RunAt = &late
	d := newJob("urgent-with-runat-early", job.StatePending, 1)
	d.RunAt = &early
	e := newJob("urgent-older", job.StatePending, 1)
	e.CreatedAt = t0.Add(-time.Minute)
	mustEnqueue(t, s, a, b, c, d, e)

	want := []string{
		"urgent-with-runat-early", // priority 1, earliest run_at
		"urgent-with-runat-late",  // priority 1, run_at before no-run_at
		"urgent-older",            // priority 1, earlier created_at
		"urgent",
		"low-priority",
	}
	for i, id := range want {
		got, err := s.ClaimNextJob(ctx, "w1", t0)
		if err != nil {
			t.Fatalf("claim %d returned error: %v", i, err)
		}
		if got == nil || got.ID != id {
			t.Fatalf("claim %d = %v, want %s", i, got, id)
		}
	}
}

// Exactly-one-claim: concurrent claims over one pending job yield one
// winner; everyone else sees nil.
func TestClaimNextJob_ExactlyOnce(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	mustEnqueue(t, s, newJob("contested", job.StatePending, 100))

	const claimers = 32
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins []string
	)
	for i := range claimers {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			got, err := s.ClaimNextJob(ctx, "w", t0)
			if err != nil {
				t.Errorf("ClaimNextJob returned error: %v", err)
				return
			}
			if got != nil {
				mu.Lock()
				wins = append(wins, got.ID)
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if len(wins) != 1 {
		t.Errorf("claim winners = %d, want exactly 1", len(wins))
	}
}

// ──────────────────────────────────────────────────
// Complete / Fail
// ──────────────────────────────────────────────────

func TestMarkJobCompleted_ClearsWorker(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	mustEnqueue(t, s, newJob("a", job.StatePending, 100))
	if _, err := s.ClaimNextJob(ctx, "w1", t0); err != nil {
		t.Fatalf("claim: %v", err)
	}

	if err := s.MarkJobCompleted(ctx, "a", 1, t0.Add(time.Second)); err != nil {
		t.Fatalf("MarkJobCompleted returned error: %v", err)
	}
	got, _ := s.GetJob(ctx, "a")
	if got.State != job.StateCompleted || got.WorkerID != "" {
		t.Errorf("state=%q worker=%q, want completed/empty", got.State, got.WorkerID)
	}
	if got.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", got.Attempts)
	}
}

func TestMarkJobFailed_RetriesThenDead(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	mustEnqueue(t, s, newJob("a", job.StatePending, 100))

	// Attempt 1 of maxRetries 2: waiting with next_run_at = now + backoff.
	now := t0.Add(time.Second)
	if err := s.MarkJobFailed(ctx, "a", "exit=1", 1, 2, 2*time.Second, now); err != nil {
		t.Fatalf("MarkJobFailed returned error: %v", err)
	}
	got, _ := s.GetJob(ctx, "a")
	if got.State != job.StateWaiting {
		t.Fatalf("state = %q, want waiting", got.State)
	}
	if got.NextRunAt == nil || !got.NextRunAt.Equal(now.Add(2*time.Second)) {
		t.Errorf("NextRunAt = %v, want %v", got.NextRunAt, now.Add(2*time.Second))
	}
	if got.Attempts != 1 || got.LastError != "exit=1" || got.WorkerID != "" {
		t.Errorf("attempts=%d last_error=%q worker=%q", got.Attempts, got.LastError, got.WorkerID)
	}

	// Attempt 3 with maxRetries 2: attempts > max_retries → dead.
	if err := s.MarkJobFailed(ctx, "a", "exit=1", 3, 2, 8*time.Second, now); err != nil {
		t.Fatalf("MarkJobFailed returned error: %v", err)
	}
	got, _ = s.GetJob(ctx, "a")
	if got.State != job.StateDead {
		t.Errorf("state = %q, want dead", got.State)
	}
	if got.NextRunAt != nil {
		t.Errorf("NextRunAt = %v, want nil for dead job", got.NextRunAt)
	}
}

func TestMarkJobFailed_ZeroRetriesDiesImmediately(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	mustEnqueue(t, s, newJob("a", job.StatePending, 100))
	if err := s.MarkJobFailed(ctx, "a", "exit=1", 1, 0, 2*time.Second, t0); err != nil {
		t.Fatalf("MarkJobFailed returned error: %v", err)
	}
	got, _ := s.GetJob(ctx, "a")
	if got.State != job.StateDead {
		t.Errorf("state = %q, want dead after first failure with max_retries=0", got.State)
	}
}

// ──────────────────────────────────────────────────
// Activation sweeps
// ──────────────────────────────────────────────────

func TestActivateScheduledJobs(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	due := t0.Add(-time.Second)
	notYet := t0.Add(time.Hour)

	a := newJob("due", job.StateScheduled, 100)
	a.RunAt = &due
	b := newJob("early", job.StateScheduled, 100)
	b.RunAt = &notYet
	mustEnqueue(t, s, a, b)

	n, err := s.ActivateScheduledJobs(ctx, t0)
	if err != nil {
		t.Fatalf("ActivateScheduledJobs returned error: %v", err)
	}
	if n != 1 {
		t.Errorf("activated = %d, want 1", n)
	}

	// Idempotent: nothing more to do without time advancing.
	n, err = s.ActivateScheduledJobs(ctx, t0)
	if err != nil {
		t.Fatalf("ActivateScheduledJobs returned error: %v", err)
	}
	if n != 0 {
		t.Errorf("second sweep activated = %d, want 0", n)
	}

	got, _ := s.GetJob(ctx, "due")
	if got.State != job.StatePending {
		t.Errorf("due job state = %q, want pending", got.State)
	}
	got, _ = s.GetJob(ctx, "early")
	if got.State != job.StateScheduled {
		t.Errorf("early job state = %q, want scheduled", got.State)
	}
}

func TestReactivateWaitingJobs_IncludesLegacyFailed(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	due := t0.Add(-time.Second)

	a := newJob("waiting", job.StateWaiting, 100)
	a.NextRunAt = &due
	b := newJob("legacy", job.StateLegacyFailed, 100)
	b.NextRunAt = &due
	c := newJob("not-due", job.StateWaiting, 100)
	notYet := t0.Add(time.Hour)
	c.NextRunAt = &notYet
	mustEnqueue(t, s, a, b, c)

	n, err := s.ReactivateWaitingJobs(ctx, t0)
	if err != nil {
		t.Fatalf("ReactivateWaitingJobs returned error: %v", err)
	}
	if n != 2 {
		t.Errorf("reactivated = %d, want 2 (waiting + legacy failed)", n)
	}

	n, _ = s.ReactivateWaitingJobs(ctx, t0)
	if n != 0 {
		t.Errorf("second sweep reactivated = %d, want 0", n)
	}
}

// ──────────────────────────────────────────────────
// DLQ
// ──────────────────────────────────────────────────

func TestRetryDeadJob(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	dead := newJob("d", job.StateDead, 100)
	dead.Attempts = 4
	dead.LastError = "exit=1"
	next := t0.Add(time.Hour)
	dead.NextRunAt = &next
	mustEnqueue(t, s, dead)

	if err := s.RetryDeadJob(ctx, "d", t0.Add(time.Minute)); err != nil {
		t.Fatalf("RetryDeadJob returned error: %v", err)
	}
	got, _ := s.GetJob(ctx, "d")
	if got.State != job.StatePending || got.Attempts != 0 || got.NextRunAt != nil || got.LastError != "" {
		t.Errorf("revived job = %+v", got)
	}
}

func TestRetryDeadJob_NotDeadIsNotFound(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	mustEnqueue(t, s, newJob("alive", job.StatePending, 100))

	tests := []string{"alive", "ghost"}
	for _, id := range tests {
		if err := s.RetryDeadJob(ctx, id, t0); !errors.Is(err, cmdq.ErrJobNotFound) {
			t.Errorf("RetryDeadJob(%q) error = %v, want ErrJobNotFound", id, err)
		}
	}

	// And nothing changed.
	got, _ := s.GetJob(ctx, "alive")
	if got.State != job.StatePending {
		t.Errorf("state = %q, want pending untouched", got.State)
	}
}

func TestRetryAllDeadJobs(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	mustEnqueue(t, s,
		newJob("d1", job.StateDead, 100),
		newJob("d2", job.StateDead, 100),
		newJob("ok", job.StateCompleted, 100),
	)

	n, err := s.RetryAllDeadJobs(ctx, t0)
	if err != nil {
		t.Fatalf("RetryAllDeadJobs returned error: %v", err)
	}
	if n != 2 {
		t.Errorf("retried = %d, want 2", n)
	}
}

func TestClearDeadJobs_CascadesLogs(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	mustEnqueue(t, s, newJob("d1", job.StateDead, 100), newJob("ok", job.StateCompleted, 100))
	if err := s.AppendJobLog(ctx, "d1", "boom", t0); err != nil {
		t.Fatalf("AppendJobLog returned error: %v", err)
	}

	n, err := s.ClearDeadJobs(ctx)
	if err != nil {
		t.Fatalf("ClearDeadJobs returned error: %v", err)
	}
	if n != 1 {
		t.Errorf("cleared = %d, want 1", n)
	}
	if _, err := s.GetJob(ctx, "d1"); !errors.Is(err, cmdq.ErrJobNotFound) {
		t.Errorf("dead job still present after clear")
	}
	logs, _ := s.GetJobLogs(ctx, "d1")
	if len(logs) != 0 {
		t.Errorf("logs survived clear: %d lines", len(logs))
	}
}

// ──────────────────────────────────────────────────
// Recovery
// ──────────────────────────────────────────────────

func TestRecoverOrphanedJobs(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	orphan := newJob("orphan", job.StateProcessing, 100)
	orphan.WorkerID = "dead-worker"
	orphan.Attempts = 2
	mustEnqueue(t, s, orphan, newJob("ok", job.StateCompleted, 100))

	n, err := s.RecoverOrphanedJobs(ctx, t0)
	if err != nil {
		t.Fatalf("RecoverOrphanedJobs returned error: %v", err)
	}
	if n != 1 {
		t.Errorf("recovered = %d, want 1", n)
	}
	got, _ := s.GetJob(ctx, "orphan")
	if got.State != job.StatePending || got.WorkerID != "" {
		t.Errorf("recovered job state=%q worker=%q", got.State, got.WorkerID)
	}
	if got.Attempts != 2 {
		t.Errorf("Attempts = %d, recovery must not change it", got.Attempts)
	}
}

// ──────────────────────────────────────────────────
// Listing / counting
// ──────────────────────────────────────────────────

func TestListJobs_ByStateAndAll(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	a := newJob("a", job.StatePending, 100)
	a.CreatedAt = t0
	b := newJob("b", job.StatePending, 100)
	b.CreatedAt = t0.Add(-time.Minute)
	c := newJob("c", job.StateDead, 100)
	mustEnqueue(t, s, a, b, c)

	pending, err := s.ListJobs(ctx, job.StatePending)
	if err != nil {
		t.Fatalf("ListJobs returned error: %v", err)
	}
	if len(pending) != 2 || pending[0].ID != "b" || pending[1].ID != "a" {
		t.Errorf("pending list = %v", pending)
	}

	all, err := s.ListJobs(ctx, "")
	if err != nil {
		t.Fatalf("ListJobs returned error: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("all = %d jobs, want 3", len(all))
	}
}

func TestListJobs_WaitingIncludesLegacyFailed(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	mustEnqueue(t, s,
		newJob("w", job.StateWaiting, 100),
		newJob("f", job.StateLegacyFailed, 100),
	)

	got, err := s.ListJobs(ctx, job.StateWaiting)
	if err != nil {
		t.Fatalf("ListJobs returned error: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("waiting list = %d jobs, want 2", len(got))
	}
}

func TestCountJobsByState(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	mustEnqueue(t, s,
		newJob("p1", job.StatePending, 100),
		newJob("p2", job.StatePending, 100),
		newJob("f", job.StateLegacyFailed, 100),
		newJob("d", job.StateDead, 100),
	)

	counts, err := s.CountJobsByState(ctx)
	if err != nil {
		t.Fatalf("CountJobsByState returned error: %v", err)
	}
	if counts[job.StatePending] != 2 || counts[job.StateWaiting] != 1 || counts[job.StateDead] != 1 {
		t.Errorf("counts = %v", counts)
	}
	if _, ok := counts[job.StateCompleted]; !ok {
		t.Error("histogram must include zero-count states")
	}
}

func TestCountReadyPending(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	future := t0.Add(time.Hour)
	gated := newJob("gated", job.StatePending, 100)
	gated.RunAt = &future
	mustEnqueue(t, s, newJob("ready", job.StatePending, 100), gated)

	n, err := s.CountReadyPending(ctx, t0)
	if err != nil {
		t.Fatalf("CountReadyPending returned error: %v", err)
	}
	if n != 1 {
		t.Errorf("ready = %d, want 1", n)
	}
}

// ──────────────────────────────────────────────────
// Logs / metrics / workers / cron
// ──────────────────────────────────────────────────

func TestJobLogs_InsertionOrder(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	for i, msg := range []string{"one", "two", "three"} {
		if err := s.AppendJobLog(ctx, "a", msg, t0.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("AppendJobLog returned error: %v", err)
		}
	}
	logs, err := s.GetJobLogs(ctx, "a")
	if err != nil {
		t.Fatalf("GetJobLogs returned error: %v", err)
	}
	if len(logs) != 3 || logs[0].Message != "one" || logs[2].Message != "three" {
		t.Errorf("logs = %v", logs)
	}
}

func TestRecordJobMetric_UpsertsByJobID(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	first := &metric.Metric{JobID: "a", Outcome: metric.OutcomeFailed, Duration: 1, CompletedAt: t0}
	second := &metric.Metric{JobID: "a", Outcome: metric.OutcomeCompleted, Duration: 2, CompletedAt: t0.Add(time.Minute)}
	if err := s.RecordJobMetric(ctx, first); err != nil {
		t.Fatalf("RecordJobMetric returned error: %v", err)
	}
	if err := s.RecordJobMetric(ctx, second); err != nil {
		t.Fatalf("RecordJobMetric returned error: %v", err)
	}

	rows, err := s.ListJobMetrics(ctx)
	if err != nil {
		t.Fatalf("ListJobMetrics returned error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("metric rows = %d, want 1 (retries overwrite)", len(rows))
	}
	if rows[0].Outcome != metric.OutcomeCompleted {
		t.Errorf("metric outcome = %q, want completed", rows[0].Outcome)
	}
}

func TestMetricSummary(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	for _, m := range []*metric.Metric{
		{JobID: "a", Outcome: metric.OutcomeCompleted, Duration: 1, CompletedAt: t0},
		{JobID: "b", Outcome: metric.OutcomeCompleted, Duration: 3, CompletedAt: t0},
		{JobID: "c", Outcome: metric.OutcomeTimeout, Duration: 5, CompletedAt: t0},
		{JobID: "d", Outcome: metric.OutcomeFailed, Duration: 7, CompletedAt: t0},
	} {
		if err := s.RecordJobMetric(ctx, m); err != nil {
			t.Fatalf("RecordJobMetric returned error: %v", err)
		}
	}

	sum, err := s.MetricSummary(ctx)
	if err != nil {
		t.Fatalf("MetricSummary returned error: %v", err)
	}
	if sum.Total != 4 || sum.Completed != 2 || sum.TimedOut != 1 || sum.Failed != 1 {
		t.Errorf("summary counts = %+v", sum)
	}
	if sum.AvgDuration != 4 || sum.MaxDuration != 7 {
		t.Errorf("summary durations = avg %v max %v", sum.AvgDuration, sum.MaxDuration)
	}
}

func TestWorkerRows(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	w := &worker.Info{ID: "w1", StartedAt: t0, LastHeartbeat: t0}
	if err := s.UpsertWorker(ctx, w); err != nil {
		t.Fatalf("UpsertWorker returned error: %v", err)
	}
	if err := s.HeartbeatWorker(ctx, "w1", t0.Add(2*time.Second)); err != nil {
		t.Fatalf("HeartbeatWorker returned error: %v", err)
	}

	list, err := s.ListWorkers(ctx)
	if err != nil {
		t.Fatalf("ListWorkers returned error: %v", err)
	}
	if len(list) != 1 || !list[0].LastHeartbeat.Equal(t0.Add(2*time.Second)) {
		t.Errorf("workers = %+v", list)
	}

	if err := s.HeartbeatWorker(ctx, "ghost", t0); !errors.Is(err, cmdq.ErrWorkerNotFound) {
		t.Errorf("HeartbeatWorker(ghost) error = %v, want ErrWorkerNotFound", err)
	}

	if err := s.DeleteWorker(ctx, "w1"); err != nil {
		t.Fatalf("DeleteWorker returned error: %v", err)
	}
	list, _ = s.ListWorkers(ctx)
	if len(list) != 0 {
		t.Errorf("workers after delete = %d, want 0", len(list))
	}
}

func TestCronEntries(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	e := &cron.Entry{
		ID:       "c1",
		Name:     "nightly",
		Schedule: "0 2 * * *",
		Command:  "backup.sh",
		Enabled:  true,
	}
	if err := s.PutCronEntry(ctx, e); err != nil {
		t.Fatalf("PutCronEntry returned error: %v", err)
	}
	if err := s.PutCronEntry(ctx, e); !errors.Is(err, cmdq.ErrDuplicateCron) {
		t.Errorf("duplicate PutCronEntry error = %v, want ErrDuplicateCron", err)
	}

	next := t0.Add(24 * time.Hour)
	if err := s.MarkCronRun(ctx, "nightly", t0, next); err != nil {
		t.Fatalf("MarkCronRun returned error: %v", err)
	}

	list, err := s.ListCronEntries(ctx)
	if err != nil {
		t.Fatalf("ListCronEntries returned error: %v", err)
	}
	if len(list) != 1 || list[0].LastRunAt == nil || !list[0].NextRunAt.Equal(next) {
		t.Errorf("entries = %+v", list)
	}

	if err := s.DeleteCronEntry(ctx, "nightly"); err != nil {
		t.Fatalf("DeleteCronEntry returned error: %v", err)
	}
	if err := s.DeleteCronEntry(ctx, "nightly"); !errors.Is(err, cmdq.ErrCronNotFound) {
		t.Errorf("second delete error = %v, want ErrCronNotFound", err)
	}
	if err := s.MarkCronRun(ctx, "nightly", t0, next); !errors.Is(err, cmdq.ErrCronNotFound) {
		t.Errorf("MarkCronRun on absent entry error = %v, want ErrCronNotFound", err)
	}
}
