package job

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/xraph/cmdq/clock"
)

// Spec is the caller-facing description of a job to enqueue.
//
// RunAt accepts ISO-8601 timestamps. A timestamp without a timezone
// designator is interpreted in clock.LocalOffset (+05:30) and converted
// to UTC.
type Spec struct {
	ID         string `json:"id,omitempty"`
	Command    string `json:"command"`
	MaxRetries *int   `json:"max_retries,omitempty"`
	Priority   *int   `json:"priority,omitempty"`
	RunAt      string `json:"run_at,omitempty"`
}

// ParseSpec decodes a JSON job spec and validates it.
func ParseSpec(data []byte) (Spec, error) {
	var s Spec
	if err := json.Unmarshal(data, &s); err != nil {
		return Spec{}, fmt.Errorf("job: parse spec: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Spec{}, err
	}
	return s, nil
}

// Validate checks the spec for required fields and well-formed values.
func (s Spec) Validate() error {
	if s.Command == "" {
		return fmt.Errorf("job: spec missing command")
	}
	if s.MaxRetries != nil && *s.MaxRetries < 0 {
		return fmt.Errorf("job: max_retries must be >= 0, got %d", *s.MaxRetries)
	}
	if s.RunAt != "" {
		if _, err := clock.ParseUserTime(s.RunAt); err != nil {
			return fmt.Errorf("job: invalid run_at: %w", err)
		}
	}
	return nil
}

// Materialize builds a Job from the spec. defaultMaxRetries fills in the
// retry budget when the spec leaves it unset. The job is born scheduled
// when run_at is strictly in the future at now, pending otherwise.
func (s Spec) Materialize(defaultMaxRetries int, now time.Time) (*Job, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	j := &Job{
		ID:         s.ID,
		Command:    s.Command,
		State:      StatePending,
		MaxRetries: defaultMaxRetries,
		Priority:   DefaultPriority,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	if s.MaxRetries != nil {
		j.MaxRetries = *s.MaxRetries
	}
	if s.Priority != nil {
		j.Priority = *s.Priority
	}
	if s.RunAt != "" {
		runAt, err := clock.ParseUserTime(s.RunAt)
		if err != nil {
			return nil, err
		}
		j.RunAt = &runAt
		if runAt.After(now) {
			j.State = StateScheduled
		}
	}
	return j, nil
}
