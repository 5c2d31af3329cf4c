// Package store defines the aggregate persistence interface. Each
// subsystem (job, config, metric, worker, cron) defines its own store
// interface; the composite Store composes them all. Backends: SQLite
// and Memory.
package store

import (
	"context"

	"github.com/xraph/cmdq/config"
	"github.com/xraph/cmdq/cron"
	"github.com/xraph/cmdq/job"
	"github.com/xraph/cmdq/metric"
	"github.com/xraph/cmdq/worker"
)

// Store is the aggregate persistence interface. A single backend
// (sqlite, memory) implements all of the subsystem contracts.
type Store interface {
	job.Store
	config.Store
	metric.Store
	worker.Store
	cron.Store

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error

	// Close closes the store.
	Close() error
}
