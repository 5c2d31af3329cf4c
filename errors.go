package cmdq

import "errors"

var (
	// Store errors.
	ErrNoStore     = errors.New("cmdq: no store configured")
	ErrStoreClosed = errors.New("cmdq: store closed")

	// Not found errors.
	ErrJobNotFound    = errors.New("cmdq: job not found")
	ErrWorkerNotFound = errors.New("cmdq: worker not found")
	ErrCronNotFound   = errors.New("cmdq: cron entry not found")

	// Conflict errors.
	ErrDuplicateID   = errors.New("cmdq: job id already exists")
	ErrDuplicateCron = errors.New("cmdq: duplicate cron entry")

	// Input errors.
	ErrInvalidSpec = errors.New("cmdq: invalid job spec")
)
