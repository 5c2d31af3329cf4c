// Package dlq provides the dead letter queue surface. The DLQ is not a
// separate table: it is the set of jobs in the dead state, retained for
// inspection, manual retry, or purging.
package dlq

import (
	"context"
	"time"

	"github.com/xraph/cmdq/clock"
	"github.com/xraph/cmdq/job"
)

// Service provides high-level DLQ operations over the job store.
type Service struct {
	store job.Store
	clk   clock.Clock
}

// NewService creates a DLQ service.
func NewService(store job.Store, clk clock.Clock) *Service {
	if clk == nil {
		clk = clock.System()
	}
	return &Service{store: store, clk: clk}
}

// List returns every dead job, oldest first.
func (s *Service) List(ctx context.Context) ([]*job.Job, error) {
	return s.store.ListJobs(ctx, job.StateDead)
}

// Retry moves one dead job back to pending with its attempt counter
// reset. Returns cmdq.ErrJobNotFound when no dead job has that id.
func (s *Service) Retry(ctx context.Context, jobID string) error {
	return s.store.RetryDeadJob(ctx, jobID, s.now())
}

// RetryAll moves every dead job back to pending and returns how many
// were transitioned.
func (s *Service) RetryAll(ctx context.Context) (int64, error) {
	return s.store.RetryAllDeadJobs(ctx, s.now())
}

// Clear physically deletes every dead job and returns how many were
// removed.
func (s *Service) Clear(ctx context.Context) (int64, error) {
	return s.store.ClearDeadJobs(ctx)
}

func (s *Service) now() time.Time { return s.clk.Now() }
