// Package worker provides the job execution engine — an Executor that
// supervises one child process per job, and a Pool that runs N claim
// loops against the store.
package worker

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/xraph/cmdq/backoff"
	"github.com/xraph/cmdq/clock"
	"github.com/xraph/cmdq/config"
	"github.com/xraph/cmdq/job"
	"github.com/xraph/cmdq/metric"
)

// Log line tags for captured child output.
const (
	stdoutTag = "📤 "
	stderrTag = "[stderr] "
)

// killGracePeriod is how long after SIGTERM a timed-out child gets
// before SIGKILL.
const killGracePeriod = 5 * time.Second

// Executor runs a single job's child process: shell spawn, output
// capture, timeout enforcement, outcome classification, and the
// resulting state transition plus metric upsert.
type Executor struct {
	jobs     job.Store
	metrics  metric.Store
	settings *config.Service
	strategy backoff.Strategy // nil means Power(backoff_base) per execution
	clk      clock.Clock
	logger   *slog.Logger
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithBackoffStrategy overrides the default base^attempt backoff.
func WithBackoffStrategy(s backoff.Strategy) ExecutorOption {
	return func(e *Executor) { e.strategy = s }
}

// WithExecutorClock substitutes the wall-clock source.
func WithExecutorClock(c clock.Clock) ExecutorOption {
	return func(e *Executor) { e.clk = c }
}

// NewExecutor creates an Executor.
func NewExecutor(jobs job.Store, metrics metric.Store, settings *config.Service, logger *slog.Logger, opts ...ExecutorOption) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Executor{
		jobs:     jobs,
		metrics:  metrics,
		settings: settings,
		clk:      clock.System(),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs j's command to completion (or timeout) and resolves the
// outcome through the job store. The returned error reports store
// failures only; a failing child is a normal outcome, not an error.
func (e *Executor) Execute(ctx context.Context, j *job.Job, workerID string) error {
	timeout := e.settings.JobTimeout(ctx)

	e.appendLog(ctx, j.ID, fmt.Sprintf("started attempt %d on %s", j.Attempts+1, workerID))

	cmd := shellCommand(j.Command)
	cmd.Env = append(os.Environ(), "ATTEMPT="+strconv.Itoa(j.Attempts))

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return e.resolveSpawnFailure(ctx, j, workerID, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return e.resolveSpawnFailure(ctx, j, workerID, err)
	}

	start := e.clk.Now()
	if err := cmd.Start(); err != nil {
		return e.resolveSpawnFailure(ctx, j, workerID, err)
	}

	var killed atomic.Bool
	timer := time.AfterFunc(timeout, func() {
		killed.Store(true)
		terminate(cmd)
		// Kill on an already-exited process is a harmless no-op.
		time.AfterFunc(killGracePeriod, func() { _ = cmd.Process.Kill() })
	})

	var wg sync.WaitGroup
	wg.Add(2)
	go e.drain(ctx, &wg, j.ID, stdout, stdoutTag)
	go e.drain(ctx, &wg, j.ID, stderr, stderrTag)
	wg.Wait()

	waitErr := cmd.Wait()
	timer.Stop()
	duration := e.clk.Now().Sub(start).Seconds()

	attempts := j.Attempts + 1
	delay := e.backoffDelay(ctx, attempts)

	switch {
	case killed.Load() || sigtermed(waitErr):
		e.appendLog(ctx, j.ID, fmt.Sprintf("killed after %.2fs (timeout %s)", duration, timeout))
		return e.resolveFailure(ctx, j, workerID, "timeout", metric.OutcomeTimeout, attempts, delay, duration)

	case waitErr == nil:
		e.appendLog(ctx, j.ID, fmt.Sprintf("completed in %.2fs", duration))
		return e.resolveSuccess(ctx, j, workerID, attempts, duration)

	default:
		errMsg := "exit=" + strconv.Itoa(exitCode(waitErr))
		e.appendLog(ctx, j.ID, fmt.Sprintf("failed (%s) after %.2fs", errMsg, duration))
		return e.resolveFailure(ctx, j, workerID, errMsg, metric.OutcomeFailed, attempts, delay, duration)
	}
}

// drain copies child output into the job log line by line. Empty lines
// are dropped.
func (e *Executor) drain(ctx context.Context, wg *sync.WaitGroup, jobID string, r io.Reader, tag string) {
	defer wg.Done()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		e.appendLog(ctx, jobID, tag+line)
	}
}

func (e *Executor) resolveSuccess(ctx context.Context, j *job.Job, workerID string, attempts int, duration float64) error {
	now := e.clk.Now()
	if err := e.jobs.MarkJobCompleted(ctx, j.ID, attempts, now); err != nil {
		e.logger.Error("failed to mark job completed",
			slog.String("job_id", j.ID),
			slog.String("error", err.Error()),
		)
		return err
	}
	e.recordMetric(ctx, j, workerID, metric.OutcomeCompleted, duration, now)
	return nil
}

func (e *Executor) resolveFailure(ctx context.Context, j *job.Job, workerID, errMsg string, outcome metric.Outcome, attempts int, delay time.Duration, duration float64) error {
	now := e.clk.Now()
	if err := e.jobs.MarkJobFailed(ctx, j.ID, errMsg, attempts, j.MaxRetries, delay, now); err != nil {
		e.logger.Error("failed to mark job failed",
			slog.String("job_id", j.ID),
			slog.String("error", err.Error()),
		)
		return err
	}
	e.recordMetric(ctx, j, workerID, outcome, duration, now)

	if attempts > j.MaxRetries {
		e.logger.Warn("job moved to DLQ after exhausting retries",
			slog.String("job_id", j.ID),
			slog.Int("attempts", attempts),
			slog.String("error", errMsg),
		)
	} else {
		e.logger.Info("job scheduled for retry",
			slog.String("job_id", j.ID),
			slog.Int("attempt", attempts),
			slog.Int("max_retries", j.MaxRetries),
			slog.Duration("delay", delay),
		)
	}
	return nil
}

// resolveSpawnFailure treats an unspawnable command (not found, no
// permission) as a failed attempt subject to the normal retry policy.
func (e *Executor) resolveSpawnFailure(ctx context.Context, j *job.Job, workerID string, spawnErr error) error {
	e.appendLog(ctx, j.ID, "spawn failed: "+spawnErr.Error())
	attempts := j.Attempts + 1
	return e.resolveFailure(ctx, j, workerID, spawnErr.Error(), metric.OutcomeFailed, attempts, e.backoffDelay(ctx, attempts), 0)
}

func (e *Executor) recordMetric(ctx context.Context, j *job.Job, workerID string, outcome metric.Outcome, duration float64, now time.Time) {
	err := e.metrics.RecordJobMetric(ctx, &metric.Metric{
		JobID:       j.ID,
		Command:     j.Command,
		Outcome:     outcome,
		Duration:    duration,
		WorkerID:    workerID,
		CompletedAt: now,
	})
	if err != nil {
		e.logger.Error("failed to record metric",
			slog.String("job_id", j.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (e *Executor) appendLog(ctx context.Context, jobID, message string) {
	if err := e.jobs.AppendJobLog(ctx, jobID, message, e.clk.Now()); err != nil {
		e.logger.Error("failed to append job log",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
	}
}

func (e *Executor) backoffDelay(ctx context.Context, attempt int) time.Duration {
	s := e.strategy
	if s == nil {
		s = backoff.NewPower(float64(e.settings.BackoffBase(ctx)))
	}
	return s.Delay(attempt)
}

// shellCommand wraps a command line in the platform's default shell.
func shellCommand(command string) *exec.Cmd {
	if runtime.GOOS == "windows" {
		return exec.Command("cmd.exe", "/c", command)
	}
	return exec.Command("/bin/sh", "-c", command)
}

// terminate asks the child to exit. Windows has no SIGTERM delivery for
// arbitrary processes, so the tree is killed outright.
func terminate(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	if runtime.GOOS == "windows" {
		_ = exec.Command("taskkill", "/T", "/F", "/PID", strconv.Itoa(cmd.Process.Pid)).Run()
		return
	}
	_ = cmd.Process.Signal(syscall.SIGTERM)
}

// sigtermed reports whether the child died to SIGTERM delivered from
// outside (our own timeout sets the killed flag instead).
func sigtermed(waitErr error) bool {
	exitErr, ok := waitErr.(*exec.ExitError)
	if !ok {
		return false
	}
	ws, ok := exitErr.Sys().(syscall.WaitStatus)
	if !ok {
		return false
	}
	return ws.Signaled() && ws.Signal() == syscall.SIGTERM
}

// exitCode extracts the child's exit code from a Wait error.
func exitCode(waitErr error) int {
	if exitErr, ok := waitErr.(*exec.ExitError); ok {
		return exitErr.ExitCode()
	}
	return -1
}
