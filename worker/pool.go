package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/xraph/cmdq/clock"
	"github.com/xraph/cmdq/job"
)

// Pool manages a set of concurrent worker loops that poll the store for
// claimable jobs and execute them through the Executor. Within a loop,
// execution is strictly sequential: at most one child process per worker
// is live at any instant.
type Pool struct {
	jobs     job.Store
	registry Store
	executor *Executor
	logger   *slog.Logger
	clk      clock.Clock

	concurrency       int
	pollInterval      time.Duration
	heartbeatInterval time.Duration
	limiter           *rate.Limiter

	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
	workers []*workerState
}

// workerState is one loop's identity and in-flight tracking.
type workerState struct {
	id         string
	inProgress atomic.Bool
	current    atomic.Pointer[job.Job]
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithPoolConcurrency sets the number of worker loops.
func WithPoolConcurrency(n int) PoolOption {
	return func(p *Pool) { p.concurrency = n }
}

// WithPollInterval sets the idle sleep between claim attempts.
func WithPollInterval(d time.Duration) PoolOption {
	return func(p *Pool) { p.pollInterval = d }
}

// WithHeartbeatInterval sets how often each worker refreshes its
// registry heartbeat.
func WithHeartbeatInterval(d time.Duration) PoolOption {
	return func(p *Pool) { p.heartbeatInterval = d }
}

// WithClaimRateLimit caps sustained claims per second across the pool.
// Zero disables limiting.
func WithClaimRateLimit(perSecond float64, burst int) PoolOption {
	return func(p *Pool) {
		if perSecond <= 0 {
			p.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithPoolClock substitutes the wall-clock source.
func WithPoolClock(c clock.Clock) PoolOption {
	return func(p *Pool) { p.clk = c }
}

// NewPool creates a worker pool.
func NewPool(jobs job.Store, registry Store, executor *Executor, logger *slog.Logger, opts ...PoolOption) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pool{
		jobs:              jobs,
		registry:          registry,
		executor:          executor,
		logger:            logger,
		clk:               clock.System(),
		concurrency:       1,
		pollInterval:      time.Second,
		heartbeatInterval: 2 * time.Second,
		stopCh:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// WorkerIDs returns the ids of the running worker loops.
func (p *Pool) WorkerIDs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]string, len(p.workers))
	for i, ws := range p.workers {
		ids[i] = ws.id
	}
	return ids
}

// Start reclaims orphaned jobs, registers the workers, and launches
// their loops. It returns once everything is running.
//
// Recovery runs before any loop spawns: jobs left in processing by an
// unclean shutdown return to pending with the same attempt count, which
// is the queue's at-least-once guarantee.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return nil
	}

	now := p.clk.Now()
	recovered, err := p.jobs.RecoverOrphanedJobs(ctx, now)
	if err != nil {
		return fmt.Errorf("worker: recover orphaned jobs: %w", err)
	}
	if recovered > 0 {
		p.logger.Info("recovered orphaned jobs", slog.Int64("count", recovered))
	}

	p.running = true
	p.workers = make([]*workerState, p.concurrency)

	for i := range p.concurrency {
		ws := &workerState{id: mintWorkerID(now, i)}
		p.workers[i] = ws

		if err := p.registry.UpsertWorker(ctx, &Info{
			ID:            ws.id,
			StartedAt:     now,
			LastHeartbeat: now,
		}); err != nil {
			return fmt.Errorf("worker: register %s: %w", ws.id, err)
		}

		p.wg.Add(2)
		go p.runLoop(ws)
		go p.heartbeatLoop(ws)
	}

	p.logger.Info("worker pool started",
		slog.Int("concurrency", p.concurrency),
		slog.Duration("poll_interval", p.pollInterval),
	)
	return nil
}

// Stop signals every loop to finish its current job and exit, then
// waits. In-flight children are never aborted; the per-job timeout is
// the only bound on how long Stop can take. When ctx expires first a
// warning is logged but Stop keeps waiting.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	workers := p.workers
	p.mu.Unlock()

	p.logger.Info("worker pool stopping")
	close(p.stopCh)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		p.logger.Warn("shutdown deadline exceeded, waiting for in-flight jobs")
		<-done
	}

	for _, ws := range workers {
		if err := p.registry.DeleteWorker(context.Background(), ws.id); err != nil {
			p.logger.Warn("failed to deregister worker",
				slog.String("worker_id", ws.id),
				slog.String("error", err.Error()),
			)
		}
	}

	p.logger.Info("worker pool stopped")
	return nil
}

// runLoop is one worker's claim-execute cycle.
func (p *Pool) runLoop(ws *workerState) {
	defer p.wg.Done()
	ctx := context.Background()

	for {
		select {
		case <-p.stopCh:
			return
		default:
		}

		// Promotion sweeps are cheap and idempotent; running them every
		// iteration bounds promotion latency by the poll period no
		// matter which worker's tick handles it.
		now := p.clk.Now()
		if _, err := p.jobs.ActivateScheduledJobs(ctx, now); err != nil {
			p.storeError(ws, "activate scheduled", err)
			continue
		}
		if _, err := p.jobs.ReactivateWaitingJobs(ctx, now); err != nil {
			p.storeError(ws, "reactivate waiting", err)
			continue
		}

		if p.limiter != nil && !p.limiter.Allow() {
			p.sleep()
			continue
		}

		j, err := p.jobs.ClaimNextJob(ctx, ws.id, p.clk.Now())
		if err != nil {
			p.storeError(ws, "claim", err)
			continue
		}
		if j == nil {
			p.sleep()
			continue
		}

		ws.inProgress.Store(true)
		ws.current.Store(j)

		if err := p.executor.Execute(ctx, j, ws.id); err != nil {
			p.logger.Error("job execution left unresolved state",
				slog.String("worker_id", ws.id),
				slog.String("job_id", j.ID),
				slog.String("error", err.Error()),
			)
		}

		ws.current.Store(nil)
		ws.inProgress.Store(false)
	}
}

// heartbeatLoop refreshes one worker's registry row until shutdown.
func (p *Pool) heartbeatLoop(ws *workerState) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			if err := p.registry.HeartbeatWorker(context.Background(), ws.id, p.clk.Now()); err != nil {
				p.logger.Warn("heartbeat failed",
					slog.String("worker_id", ws.id),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// storeError logs a store failure and backs the loop off briefly so a
// sick database does not spin it.
func (p *Pool) storeError(ws *workerState, op string, err error) {
	p.logger.Error("store error in worker loop",
		slog.String("worker_id", ws.id),
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
	p.sleep()
}

func (p *Pool) sleep() {
	select {
	case <-time.After(p.pollInterval):
	case <-p.stopCh:
	}
}

// mintWorkerID builds ids of the form worker-<epoch_ms>-<rand5>-<i>.
func mintWorkerID(now time.Time, i int) string {
	return fmt.Sprintf("worker-%d-%s-%d", now.UnixMilli(), uuid.NewString()[:5], i)
}
