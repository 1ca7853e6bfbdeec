package cache

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite" // sqlite driver
)

// SQLiteStore implements Store on a local SQLite database so cached
// results survive process restarts.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store instance.
// The logger may be nil, in which case logs are discarded.
func NewSQLiteStore(logger *slog.Logger) *SQLiteStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLiteStore{logger: logger}
}

// Open opens the SQLite database and runs pending migrations.
// Use ":memory:" for an in-memory database.
func (s *SQLiteStore) Open(path string) error {
	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open cache database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping cache database: %w", err)
	}

	s.db = db
	s.path = path

	if err := s.Migrate(); err != nil {
		_ = db.Close()
		s.db = nil
		return err
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Read returns the stored value if present and not expired. Expired rows
// are deleted on read.
func (s *SQLiteStore) Read(ctx context.Context, key string) ([]byte, bool, error) {
	if s.db == nil {
		return nil, false, fmt.Errorf("cache database not opened")
	}

	var value []byte
	var expiresAt int64
	err := s.db.QueryRowContext(ctx,
		"SELECT value, expires_at FROM cache_entries WHERE key = ?", key,
	).Scan(&value, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache entry: %w", err)
	}

	if time.Now().Unix() >= expiresAt {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM cache_entries WHERE key = ?", key); err != nil {
			s.logger.Debug("failed to delete expired cache entry", "key", key, "error", err)
		}
		return nil, false, nil
	}
	return value, true, nil
}

// Write stores value under key with the given TTL, replacing any
// existing entry.
func (s *SQLiteStore) Write(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if s.db == nil {
		return fmt.Errorf("cache database not opened")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cache_entries (key, value, expires_at, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET
			value = excluded.value,
			expires_at = excluded.expires_at,
			created_at = excluded.created_at
	`, key, value, time.Now().Add(ttl).Unix(), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// Delete removes key. No-op if absent.
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if s.db == nil {
		return fmt.Errorf("cache database not opened")
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM cache_entries WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

var _ Store = (*SQLiteStore)(nil)
