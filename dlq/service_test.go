package dlq_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/cmdq"
	"github.com/xraph/cmdq/dlq"
	"github.com/xraph/cmdq/job"
	"github.com/xraph/cmdq/store/memory"
)

func seedDead(t *testing.T, s *memory.Store, ids ...string) {
	t.Helper()
	now := time.Now().UTC()
	for _, id := range ids {
		err := s.EnqueueJob(context.Background(), &job.Job{
			ID:         id,
			Command:    "false",
			State:      job.StateDead,
			Attempts:   4,
			MaxRetries: 3,
			LastError:  "exit=1",
			CreatedAt:  now,
			UpdatedAt:  now,
		})
		if err != nil {
			t.Fatalf("seed %s: %v", id, err)
		}
	}
}

func TestList_ReturnsOnlyDead(t *testing.T) {
	t.Parallel()
	s := memory.New()
	ctx := context.Background()

	seedDead(t, s, "d1", "d2")
	if err := s.EnqueueJob(ctx, &job.Job{ID: "ok", Command: "true", State: job.StateCompleted}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	svc := dlq.NewService(s, nil)
	got, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("List = %d entries, want 2", len(got))
	}
}

func TestRetry_RevivesOneJob(t *testing.T) {
	t.Parallel()
	s := memory.New()
	ctx := context.Background()

	seedDead(t, s, "d1")
	svc := dlq.NewService(s, nil)

	if err := svc.Retry(ctx, "d1"); err != nil {
		t.Fatalf("Retry returned error: %v", err)
	}
	got, _ := s.GetJob(ctx, "d1")
	if got.State != job.StatePending || got.Attempts != 0 || got.LastError != "" {
		t.Errorf("revived job = %+v", got)
	}
}

func TestRetry_UnknownIDIsNotFound(t *testing.T) {
	t.Parallel()
	s := memory.New()

	svc := dlq.NewService(s, nil)
	if err := svc.Retry(context.Background(), "ghost"); !errors.Is(err, cmdq.ErrJobNotFound) {
		t.Errorf("Retry error = %v, want ErrJobNotFound", err)
	}
}

func TestRetryAll_ReturnsCount(t *testing.T) {
	t.Parallel()
	s := memory.New()
	ctx := context.Background()

	seedDead(t, s, "d1", "d2", "d3")
	svc := dlq.NewService(s, nil)

	n, err := svc.RetryAll(ctx)
	if err != nil {
		t.Fatalf("RetryAll returned error: %v", err)
	}
	if n != 3 {
		t.Errorf("RetryAll = %d, want 3", n)
	}
}

func TestClear_DeletesDead(t *testing.T) {
	t.Parallel()
	s := memory.New()
	ctx := context.Background()

	seedDead(t, s, "d1", "d2")
	svc := dlq.NewService(s, nil)

	n, err := svc.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear returned error: %v", err)
	}
	if n != 2 {
		t.Errorf("Clear = %d, want 2", n)
	}
	if _, err := s.GetJob(ctx, "d1"); !errors.Is(err, cmdq.ErrJobNotFound) {
		t.Error("dead job survived Clear")
	}
}
