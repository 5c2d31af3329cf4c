package worker

import (
	"context"
	"time"
)

// Info is one worker's registration row. Rows exist while the worker is
// alive; the pool deletes them on graceful stop, and last_heartbeat lets
// an operator spot workers that died without cleaning up.
type Info struct {
	ID            string    `json:"id"`
	StartedAt     time.Time `json:"started_at"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
}

// Store defines the persistence contract for worker registrations.
type Store interface {
	// UpsertWorker inserts or refreshes a worker row.
	UpsertWorker(ctx context.Context, w *Info) error

	// HeartbeatWorker advances last_heartbeat for a live worker.
	HeartbeatWorker(ctx context.Context, workerID string, now time.Time) error

	// DeleteWorker removes a worker row on graceful shutdown.
	DeleteWorker(ctx context.Context, workerID string) error

	// ListWorkers returns all registered workers.
	ListWorkers(ctx context.Context) ([]*Info, error)
}
