// Package cron schedules recurring jobs. An Entry pairs a cron
// expression with a command template; when the schedule fires, the
// scheduler enqueues an ordinary job, so recurring work flows through
// the same claim/retry/DLQ machinery as everything else.
package cron

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	cronlib "github.com/robfig/cron/v3"

	"github.com/xraph/cmdq/clock"
	"github.com/xraph/cmdq/job"
)

// EnqueueFunc is the callback the scheduler uses to enqueue jobs.
// This breaks the import cycle: the engine provides the implementation.
type EnqueueFunc func(ctx context.Context, spec job.Spec) (string, error)

// cronParser supports standard 5-field cron and descriptors like
// "@every 30s".
var cronParser = cronlib.NewParser(
	cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow | cronlib.Descriptor,
)

// ParseSchedule parses a cron expression.
func ParseSchedule(expr string) (cronlib.Schedule, error) {
	return cronParser.Parse(expr)
}

// NewEntry validates the schedule and builds an Entry with its first
// next_run_at precomputed.
func NewEntry(name, schedule, command string, maxRetries, priority int, now time.Time) (*Entry, error) {
	sched, err := ParseSchedule(schedule)
	if err != nil {
		return nil, fmt.Errorf("cron: parse schedule %q: %w", schedule, err)
	}
	next := sched.Next(now)
	return &Entry{
		ID:         uuid.NewString(),
		Name:       name,
		Schedule:   schedule,
		Command:    command,
		MaxRetries: maxRetries,
		Priority:   priority,
		Enabled:    true,
		NextRunAt:  &next,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithTickInterval sets how often the scheduler checks for due entries.
func WithTickInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) { s.tickInterval = d }
}

// WithSchedulerClock substitutes the wall-clock source.
func WithSchedulerClock(c clock.Clock) SchedulerOption {
	return func(s *Scheduler) { s.clk = c }
}

// Scheduler runs cron entries on a tick loop. Single-node: every tick
// reads the entries table and fires whatever is due.
type Scheduler struct {
	store   Store
	enqueue EnqueueFunc
	logger  *slog.Logger
	clk     clock.Clock

	tickInterval time.Duration

	// parsed caches parsed cron expressions by schedule string.
	parsedMu sync.Mutex
	parsed   map[string]cronlib.Schedule

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewScheduler creates a Scheduler.
func NewScheduler(store Store, enqueue EnqueueFunc, logger *slog.Logger, opts ...SchedulerOption) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		store:        store,
		enqueue:      enqueue,
		logger:       logger,
		clk:          clock.System(),
		tickInterval: time.Second,
		parsed:       make(map[string]cronlib.Schedule),
		stopCh:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the tick loop.
func (s *Scheduler) Start(_ context.Context) error {
	s.wg.Add(1)
	go s.tickLoop()
	s.logger.Info("cron scheduler started", slog.Duration("tick_interval", s.tickInterval))
	return nil
}

// Stop halts the tick loop and waits for it to exit.
func (s *Scheduler) Stop(_ context.Context) error {
	close(s.stopCh)
	s.wg.Wait()
	s.logger.Info("cron scheduler stopped")
	return nil
}

func (s *Scheduler) tickLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.tick(context.Background())
		}
	}
}

// tick fires every enabled entry whose next_run_at has arrived.
func (s *Scheduler) tick(ctx context.Context) {
	now := s.clk.Now()

	entries, err := s.store.ListCronEntries(ctx)
	if err != nil {
		s.logger.Error("cron tick: list entries", slog.String("error", err.Error()))
		return
	}

	for _, e := range entries {
		if !e.Enabled {
			continue
		}
		if e.NextRunAt == nil || e.NextRunAt.After(now) {
			continue
		}

		sched, err := s.schedule(e.Schedule)
		if err != nil {
			s.logger.Error("cron tick: bad schedule",
				slog.String("entry", e.Name),
				slog.String("schedule", e.Schedule),
				slog.String("error", err.Error()),
			)
			continue
		}

		jobID, err := s.fire(ctx, e)
		if err != nil {
			s.logger.Error("cron tick: enqueue failed",
				slog.String("entry", e.Name),
				slog.String("error", err.Error()),
			)
			continue
		}

		next := sched.Next(now)
		if err := s.store.MarkCronRun(ctx, e.Name, now, next); err != nil {
			s.logger.Error("cron tick: mark run failed",
				slog.String("entry", e.Name),
				slog.String("error", err.Error()),
			)
			continue
		}

		s.logger.Info("cron entry fired",
			slog.String("entry", e.Name),
			slog.String("job_id", jobID),
			slog.Time("next_run_at", next),
		)
	}
}

func (s *Scheduler) fire(ctx context.Context, e *Entry) (string, error) {
	maxRetries := e.MaxRetries
	priority := e.Priority
	if priority == 0 {
		priority = job.DefaultPriority
	}
	return s.enqueue(ctx, job.Spec{
		Command:    e.Command,
		MaxRetries: &maxRetries,
		Priority:   &priority,
	})
}

func (s *Scheduler) schedule(expr string) (cronlib.Schedule, error) {
	s.parsedMu.Lock()
	defer s.parsedMu.Unlock()
	if sched, ok := s.parsed[expr]; ok {
		return sched, nil
	}
	sched, err := ParseSchedule(expr)
	if err != nil {
		return nil, err
	}
	s.parsed[expr] = sched
	return sched, nil
}
