package cmdq

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/cmdq/backoff"
	"github.com/xraph/cmdq/clock"
	settings "github.com/xraph/cmdq/config"
	"github.com/xraph/cmdq/cron"
	"github.com/xraph/cmdq/dlq"
	"github.com/xraph/cmdq/job"
	"github.com/xraph/cmdq/metric"
	"github.com/xraph/cmdq/store"
	"github.com/xraph/cmdq/worker"
)

// Engine is the central coordinator: it owns the worker pool, the DLQ
// service, the optional cron scheduler, and the persisted settings, and
// it is the façade the CLI and HTTP API call.
type Engine struct {
	config      Config
	logger      *slog.Logger
	store       store.Store
	clk         clock.Clock
	strategy    backoff.Strategy
	cronEnabled bool

	settings  *settings.Service
	pool      *worker.Pool
	dlq       *dlq.Service
	scheduler *cron.Scheduler

	started bool
}

// New creates an Engine with the given options. WithStore is required.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		config: DefaultConfig(),
		logger: slog.Default(),
		clk:    clock.System(),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	if e.store == nil {
		return nil, ErrNoStore
	}

	e.settings = settings.NewService(e.store, e.logger)
	e.dlq = dlq.NewService(e.store, e.clk)

	execOpts := []worker.ExecutorOption{worker.WithExecutorClock(e.clk)}
	if e.strategy != nil {
		execOpts = append(execOpts, worker.WithBackoffStrategy(e.strategy))
	}
	executor := worker.NewExecutor(e.store, e.store, e.settings, e.logger, execOpts...)

	e.pool = worker.NewPool(e.store, e.store, executor, e.logger,
		worker.WithPoolConcurrency(e.config.Concurrency),
		worker.WithPollInterval(e.config.PollInterval),
		worker.WithHeartbeatInterval(e.config.HeartbeatInterval),
		worker.WithClaimRateLimit(e.config.ClaimRatePerSecond, e.config.ClaimBurst),
		worker.WithPoolClock(e.clk),
	)

	if e.cronEnabled {
		e.scheduler = cron.NewScheduler(e.store, e.Enqueue, e.logger,
			cron.WithSchedulerClock(e.clk))
	}

	return e, nil
}

// Logger returns the engine's logger.
func (e *Engine) Logger() *slog.Logger { return e.logger }

// Store returns the engine's store.
func (e *Engine) Store() store.Store { return e.store }

// Settings returns the persisted queue settings service.
func (e *Engine) Settings() *settings.Service { return e.settings }

// DLQ returns the dead letter queue service.
func (e *Engine) DLQ() *dlq.Service { return e.dlq }

// Config returns a copy of the engine's runtime configuration.
func (e *Engine) Config() Config { return e.config }

// Start seeds defaults, reclaims orphaned jobs, and launches the worker
// pool (and cron scheduler when enabled).
func (e *Engine) Start(ctx context.Context) error {
	if err := e.settings.Seed(ctx); err != nil {
		return err
	}
	if err := e.pool.Start(ctx); err != nil {
		return err
	}
	if e.scheduler != nil {
		if err := e.scheduler.Start(ctx); err != nil {
			return err
		}
	}
	e.started = true
	return nil
}

// Stop gracefully shuts everything down and closes the store. Workers
// finish their current child first; ShutdownTimeout only bounds how
// long Stop stays quiet about it.
func (e *Engine) Stop(ctx context.Context) error {
	if e.started {
		if e.scheduler != nil {
			if err := e.scheduler.Stop(ctx); err != nil {
				e.logger.Error("scheduler stop error", slog.String("error", err.Error()))
			}
		}
		stopCtx, cancel := context.WithTimeout(ctx, e.config.ShutdownTimeout)
		defer cancel()
		if err := e.pool.Stop(stopCtx); err != nil {
			e.logger.Error("pool stop error", slog.String("error", err.Error()))
		}
		e.started = false
	}
	return e.store.Close()
}

// ──────────────────────────────────────────────────
// Queue operations
// ──────────────────────────────────────────────────

// Enqueue validates the spec, fills defaults (generated id, persisted
// max_retries, priority 100), and inserts the job. A run_at strictly in
// the future yields a scheduled job; anything else is pending.
func (e *Engine) Enqueue(ctx context.Context, spec job.Spec) (string, error) {
	j, err := spec.Materialize(e.settings.MaxRetries(ctx), e.clk.Now())
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidSpec, err)
	}
	if err := e.store.EnqueueJob(ctx, j); err != nil {
		return "", err
	}
	e.logger.Info("job enqueued",
		slog.String("job_id", j.ID),
		slog.String("state", string(j.State)),
		slog.Int("priority", j.Priority),
	)
	return j.ID, nil
}

// GetJob retrieves a job by id.
func (e *Engine) GetJob(ctx context.Context, jobID string) (*job.Job, error) {
	return e.store.GetJob(ctx, jobID)
}

// ListJobs returns jobs in the given state, or all jobs when state is
// empty.
func (e *Engine) ListJobs(ctx context.Context, state job.State) ([]*job.Job, error) {
	return e.store.ListJobs(ctx, state)
}

// JobLogs returns a job's log lines. The job must exist.
func (e *Engine) JobLogs(ctx context.Context, jobID string) (*job.Job, []*job.LogLine, error) {
	j, err := e.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, nil, err
	}
	lines, err := e.store.GetJobLogs(ctx, jobID)
	if err != nil {
		return nil, nil, err
	}
	return j, lines, nil
}

// Status is the queue's state histogram plus the count of pending jobs
// that are runnable right now.
type Status struct {
	States       map[job.State]int64 `json:"states"`
	ReadyPending int64               `json:"ready_pending"`
	Workers      int                 `json:"workers"`
}

// StatusSummary aggregates the queue for the status CLI and read API.
func (e *Engine) StatusSummary(ctx context.Context) (*Status, error) {
	states, err := e.store.CountJobsByState(ctx)
	if err != nil {
		return nil, err
	}
	ready, err := e.store.CountReadyPending(ctx, e.clk.Now())
	if err != nil {
		return nil, err
	}
	workers, err := e.store.ListWorkers(ctx)
	if err != nil {
		return nil, err
	}
	return &Status{States: states, ReadyPending: ready, Workers: len(workers)}, nil
}

// Metrics returns the per-job execution summaries, most recent first.
func (e *Engine) Metrics(ctx context.Context) ([]*metric.Metric, error) {
	return e.store.ListJobMetrics(ctx)
}

// MetricSummary aggregates the metric table.
func (e *Engine) MetricSummary(ctx context.Context) (*metric.Summary, error) {
	return e.store.MetricSummary(ctx)
}

// Workers lists the registered worker rows.
func (e *Engine) Workers(ctx context.Context) ([]*worker.Info, error) {
	return e.store.ListWorkers(ctx)
}

// ──────────────────────────────────────────────────
// Cron operations
// ──────────────────────────────────────────────────

// AddCron registers a recurring entry. The schedule accepts standard
// 5-field cron expressions and descriptors like "@every 30s".
func (e *Engine) AddCron(ctx context.Context, name, schedule, command string, maxRetries, priority int) (*cron.Entry, error) {
	entry, err := cron.NewEntry(name, schedule, command, maxRetries, priority, e.clk.Now())
	if err != nil {
		return nil, err
	}
	if err := e.store.PutCronEntry(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// ListCron returns all recurring entries.
func (e *Engine) ListCron(ctx context.Context) ([]*cron.Entry, error) {
	return e.store.ListCronEntries(ctx)
}

// RemoveCron deletes a recurring entry by name.
func (e *Engine) RemoveCron(ctx context.Context, name string) error {
	return e.store.DeleteCronEntry(ctx, name)
}
