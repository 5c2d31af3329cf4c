package config_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/cmdq/config"
)

// fakeStore is a minimal in-memory config.Store.
type fakeStore struct {
	values map[string]string
	err    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{values: make(map[string]string)}
}

func (f *fakeStore) GetConfigValue(_ context.Context, key string) (string, bool, error) {
	if f.err != nil {
		return "", false, f.err
	}
	v, ok := f.values[key]
	return v, ok, nil
}

func (f *fakeStore) SetConfigValue(_ context.Context, key, value string) error {
	if f.err != nil {
		return f.err
	}
	f.values[key] = value
	return nil
}

func (f *fakeStore) ListConfig(_ context.Context) (map[string]string, error) {
	out := make(map[string]string, len(f.values))
	for k, v := range f.values {
		out[k] = v
	}
	return out, f.err
}

func TestSeed_WritesDefaultsOnce(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	fs := newFakeStore()
	svc := config.NewService(fs, nil)

	if err := svc.Seed(ctx); err != nil {
		t.Fatalf("Seed returned error: %v", err)
	}
	if fs.values[config.KeyMaxRetries] != "3" ||
		fs.values[config.KeyBackoffBase] != "2" ||
		fs.values[config.KeyJobTimeout] != "300" {
		t.Errorf("seeded values = %v", fs.values)
	}

	// A pre-set value survives reseeding.
	fs.values[config.KeyMaxRetries] = "7"
	if err := svc.Seed(ctx); err != nil {
		t.Fatalf("Seed returned error: %v", err)
	}
	if fs.values[config.KeyMaxRetries] != "7" {
		t.Errorf("Seed overwrote existing value: %q", fs.values[config.KeyMaxRetries])
	}
}

func TestTypedAccessors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	fs := newFakeStore()
	fs.values[config.KeyMaxRetries] = "5"
	fs.values[config.KeyBackoffBase] = "3"
	fs.values[config.KeyJobTimeout] = "60"
	svc := config.NewService(fs, nil)

	if got := svc.MaxRetries(ctx); got != 5 {
		t.Errorf("MaxRetries = %d, want 5", got)
	}
	if got := svc.BackoffBase(ctx); got != 3 {
		t.Errorf("BackoffBase = %d, want 3", got)
	}
	if got := svc.JobTimeout(ctx); got != time.Minute {
		t.Errorf("JobTimeout = %v, want 1m", got)
	}
}

func TestTypedAccessors_FallBack(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tests := []struct {
		name  string
		setup func(*fakeStore)
	}{
		{"unset", func(_ *fakeStore) {}},
		{"non-numeric", func(fs *fakeStore) { fs.values[config.KeyMaxRetries] = "lots" }},
		{"store error", func(fs *fakeStore) { fs.err = errors.New("disk on fire") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := newFakeStore()
			tt.setup(fs)
			svc := config.NewService(fs, nil)
			if got := svc.MaxRetries(ctx); got != config.DefaultMaxRetries {
				t.Errorf("MaxRetries = %d, want default %d", got, config.DefaultMaxRetries)
			}
		})
	}
}

func TestGet_Fallback(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	fs := newFakeStore()
	svc := config.NewService(fs, nil)

	got, err := svc.Get(ctx, "nope", "fb")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got != "fb" {
		t.Errorf("Get = %q, want fallback", got)
	}

	if err := svc.Set(ctx, "nope", "yes"); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	got, err = svc.Get(ctx, "nope", "fb")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got != "yes" {
		t.Errorf("Get = %q, want %q", got, "yes")
	}
}
