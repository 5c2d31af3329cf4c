package sqlite

import (
	"context"
	"fmt"

	"github.com/xraph/cmdq/clock"
	"github.com/xraph/cmdq/metric"
)

// RecordJobMetric inserts or replaces the metric row for m.JobID.
// Retries of a job overwrite rather than proliferate.
func (s *Store) RecordJobMetric(ctx context.Context, m *metric.Metric) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO job_metrics (job_id, command, state, duration, worker_id, completed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(job_id) DO UPDATE SET
			command = excluded.command,
			state = excluded.state,
			duration = excluded.duration,
			worker_id = excluded.worker_id,
			completed_at = excluded.completed_at`,
		m.JobID, m.Command, string(m.Outcome), m.Duration, m.WorkerID, clock.Format(m.CompletedAt))
	if err != nil {
		return fmt.Errorf("cmdq/sqlite: record metric: %w", err)
	}
	return nil
}

// ListJobMetrics returns all metric rows, most recent first.
func (s *Store) ListJobMetrics(ctx context.Context) ([]*metric.Metric, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT job_id, command, state, duration, worker_id, completed_at
		FROM job_metrics ORDER BY completed_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("cmdq/sqlite: list metrics: %w", err)
	}
	defer rows.Close()

	var out []*metric.Metric
	for rows.Next() {
		var (
			m       metric.Metric
			outcome string
			ts      string
		)
		if err := rows.Scan(&m.JobID, &m.Command, &outcome, &m.Duration, &m.WorkerID, &ts); err != nil {
			return nil, fmt.Errorf("cmdq/sqlite: list metrics scan: %w", err)
		}
		m.Outcome = metric.Outcome(outcome)
		t, err := parseTime(ts)
		if err != nil {
			return nil, err
		}
		m.CompletedAt = t
		out = append(out, &m)
	}
	return out, rows.Err()
}

// MetricSummary aggregates the metric table.
func (s *Store) MetricSummary(ctx context.Context) (*metric.Summary, error) {
	sum := &metric.Summary{}
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN state = 'completed' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN state = 'timeout' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN state NOT IN ('completed', 'timeout') THEN 1 ELSE 0 END), 0),
		       COALESCE(AVG(duration), 0),
		       COALESCE(MAX(duration), 0)
		FROM job_metrics`).
		Scan(&sum.Total, &sum.Completed, &sum.TimedOut, &sum.Failed, &sum.AvgDuration, &sum.MaxDuration)
	if err != nil {
		return nil, fmt.Errorf("cmdq/sqlite: metric summary: %w", err)
	}
	return sum, nil
}
