package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3" // register the sqlite3 driver

	"github.com/xraph/cmdq/config"
	"github.com/xraph/cmdq/cron"
	"github.com/xraph/cmdq/job"
	"github.com/xraph/cmdq/metric"
	"github.com/xraph/cmdq/worker"
)

// Ensure Store implements every subsystem interface at compile time.
var (
	_ job.Store    = (*Store)(nil)
	_ config.Store = (*Store)(nil)
	_ metric.Store = (*Store)(nil)
	_ worker.Store = (*Store)(nil)
	_ cron.Store   = (*Store)(nil)
)

// Store is a database/sql implementation of store.Store backed by an
// embedded SQLite file with WAL journaling. A single connection keeps
// the write path serialised; SQLite linearises every statement, which
// is what gives the claim update its exactly-one-winner guarantee.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Option configures the Store.
type Option func(*Store)

// WithLogger sets the logger for the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// Open creates the database file (and its parent directory) if needed,
// enables WAL journaling and foreign keys, and runs migrations.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("cmdq/sqlite: create data dir: %w", err)
		}
	}

	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("cmdq/sqlite: open %s: %w", path, err)
	}

	// SQLite allows one writer; funnelling all statements through a
	// single connection avoids SQLITE_BUSY churn under worker load.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("cmdq/sqlite: ping: %w", err)
	}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// DB returns the underlying *sql.DB for advanced usage.
func (s *Store) DB() *sql.DB { return s.db }

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ── helpers ──────────────────────────────────────────────────

// isNoRows returns true when err indicates no rows were found.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// isDuplicateKey checks if a SQLite error is a unique constraint violation.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
