// Package job defines the Job entity, its lifecycle states, the
// caller-facing enqueue Spec, and the persistence contract stores must
// satisfy.
//
// # Lifecycle
//
//	enqueue        → pending (or scheduled when run_at is in the future)
//	activate       : scheduled → pending, once run_at arrives
//	claim          : pending → processing, bound to exactly one worker
//	success        : processing → completed (terminal)
//	failure        : processing → waiting (retry pending) while attempts
//	                 <= max_retries, else → dead (terminal)
//	reactivate     : waiting → pending, once next_run_at arrives
//	dlq retry      : dead → pending with attempts reset to 0
//
// completed and dead have no other outgoing transitions.
package job
