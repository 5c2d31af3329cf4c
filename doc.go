// Package cmdq provides a persistent, single-node job queue for shell
// commands. Jobs are durable rows in an embedded store; a pool of workers
// claims them one at a time, supervises the child process, and resolves
// the outcome through a transactional state machine with bounded retries,
// exponential backoff, and a dead letter queue.
//
// Cmdq is designed as a library, not a service. Import it, configure a
// store, and enqueue commands.
//
// # Quick Start
//
//	s, _ := sqlite.Open(ctx, "data/queue.sqlite")
//	e, _ := cmdq.New(
//	    cmdq.WithStore(s),
//	    cmdq.WithConcurrency(4),
//	)
//	id, _ := e.Enqueue(ctx, job.Spec{Command: "echo hi"})
//	e.Start(ctx)
//
// # Architecture
//
// Cmdq follows a composable store pattern where each subsystem (job,
// config, metric, worker, cron) defines its own store interface.
// A single backend implements all of them. Backends: SQLite and Memory.
//
// The store is the sole authority on state transitions. Workers never
// mutate job rows directly; the only cross-worker synchronisation point
// is the conditional claim update inside ClaimNextJob.
package cmdq
