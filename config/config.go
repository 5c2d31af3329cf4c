// Package config manages the queue's persisted named settings:
// max_retries, backoff_base, and job_timeout. Values live in the store's
// config table and are read per use, so a running worker picks up
// changes without a restart.
package config

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"
)

// Well-known setting keys.
const (
	KeyMaxRetries  = "max_retries"
	KeyBackoffBase = "backoff_base"
	KeyJobTimeout  = "job_timeout"
)

// Defaults seeded on first boot.
const (
	DefaultMaxRetries  = 3
	DefaultBackoffBase = 2
	DefaultJobTimeout  = 300 // seconds
)

// Store defines the persistence contract for settings.
type Store interface {
	// GetConfigValue returns the value for key and whether it was set.
	GetConfigValue(ctx context.Context, key string) (string, bool, error)

	// SetConfigValue upserts a setting.
	SetConfigValue(ctx context.Context, key, value string) error

	// ListConfig returns all persisted settings.
	ListConfig(ctx context.Context) (map[string]string, error)
}

// Service provides typed read-through access to settings.
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService creates a Service over the given store.
func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// Seed writes the defaults for any key not yet present. Call once at
// startup; existing values are never overwritten.
func (s *Service) Seed(ctx context.Context) error {
	defaults := map[string]string{
		KeyMaxRetries:  strconv.Itoa(DefaultMaxRetries),
		KeyBackoffBase: strconv.Itoa(DefaultBackoffBase),
		KeyJobTimeout:  strconv.Itoa(DefaultJobTimeout),
	}
	for key, value := range defaults {
		_, ok, err := s.store.GetConfigValue(ctx, key)
		if err != nil {
			return fmt.Errorf("config: seed %s: %w", key, err)
		}
		if ok {
			continue
		}
		if err := s.store.SetConfigValue(ctx, key, value); err != nil {
			return fmt.Errorf("config: seed %s: %w", key, err)
		}
	}
	return nil
}

// Get returns the raw value for key, or fallback when unset.
func (s *Service) Get(ctx context.Context, key, fallback string) (string, error) {
	v, ok, err := s.store.GetConfigValue(ctx, key)
	if err != nil {
		return "", err
	}
	if !ok {
		return fallback, nil
	}
	return v, nil
}

// Set upserts a setting.
func (s *Service) Set(ctx context.Context, key, value string) error {
	return s.store.SetConfigValue(ctx, key, value)
}

// All returns every persisted setting.
func (s *Service) All(ctx context.Context) (map[string]string, error) {
	return s.store.ListConfig(ctx)
}

// MaxRetries returns the default retry budget for new jobs.
func (s *Service) MaxRetries(ctx context.Context) int {
	return s.intValue(ctx, KeyMaxRetries, DefaultMaxRetries)
}

// BackoffBase returns the base of the retry backoff power.
func (s *Service) BackoffBase(ctx context.Context) int {
	return s.intValue(ctx, KeyBackoffBase, DefaultBackoffBase)
}

// JobTimeout returns the per-job execution timeout.
func (s *Service) JobTimeout(ctx context.Context) time.Duration {
	return time.Duration(s.intValue(ctx, KeyJobTimeout, DefaultJobTimeout)) * time.Second
}

// intValue reads key as an integer, falling back on missing, unreadable,
// or non-numeric values.
func (s *Service) intValue(ctx context.Context, key string, fallback int) int {
	raw, ok, err := s.store.GetConfigValue(ctx, key)
	if err != nil {
		s.logger.Warn("config read failed, using default",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return fallback
	}
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		s.logger.Warn("config value not numeric, using default",
			slog.String("key", key),
			slog.String("value", raw),
		)
		return fallback
	}
	return n
}
