// Package cache decides whether statement results are served from and
// written to a key/value store, derives stable cache keys, and ships two
// Store implementations (in-memory and SQLite-backed).
package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"time"
)

// keyPrefix is a persisted contract and must remain stable across versions.
const keyPrefix = "blazer/v3/"

// Store is a minimal byte store with TTLs. Implementations must be safe
// for concurrent use and byte-for-byte transparent: Read must return
// exactly the []byte previously passed to Write for the same key.
type Store interface {
	// Read returns (value, true, nil) on hit; (nil, false, nil) on miss.
	Read(ctx context.Context, key string) ([]byte, bool, error)

	// Write stores value with the given TTL.
	Write(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key (no-op if absent).
	Delete(ctx context.Context, key string) error
}

// Key derives the cache key for a statement run against a data source.
// It is a pure function of data-source identity and exact statement text;
// whitespace differences produce different keys.
func Key(dataSourceID, statement string) string {
	sum := md5.Sum([]byte(statement))
	return keyPrefix + dataSourceID + "/" + hex.EncodeToString(sum[:])
}
