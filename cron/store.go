package cron

import (
	"context"
	"time"
)

// Store defines the persistence contract for cron entries.
type Store interface {
	// PutCronEntry persists a new entry. Names are unique; returns
	// cmdq.ErrDuplicateCron on collision.
	PutCronEntry(ctx context.Context, e *Entry) error

	// ListCronEntries returns all entries ordered by name.
	ListCronEntries(ctx context.Context) ([]*Entry, error)

	// DeleteCronEntry removes an entry by name. Returns
	// cmdq.ErrCronNotFound when absent.
	DeleteCronEntry(ctx context.Context, name string) error

	// MarkCronRun records a firing: last_run_at and the precomputed
	// next_run_at.
	MarkCronRun(ctx context.Context, name string, lastRun, nextRun time.Time) error
}
