package cron

import "time"

// Entry is a recurring job template. When its schedule fires, the
// scheduler enqueues an ordinary job carrying the entry's command,
// retry budget, and priority. A zero Priority fires jobs at
// job.DefaultPriority.
type Entry struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Schedule   string `json:"schedule"`
	Command    string `json:"command"`
	MaxRetries int    `json:"max_retries"`
	Priority   int    `json:"priority"`
	Enabled    bool   `json:"enabled"`

	LastRunAt *time.Time `json:"last_run_at,omitempty"`
	NextRunAt *time.Time `json:"next_run_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
