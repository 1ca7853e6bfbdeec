package datasource

import (
	"context"
	"fmt"
	"time"

	"github.com/omarriaga/blazer/internal/cache"
	"github.com/omarriaga/blazer/internal/executor"
)

// RunOptions control one RunStatement call.
type RunOptions struct {
	// RefreshCache bypasses any existing cache entry and re-executes,
	// overwriting the entry if write-eligible.
	RefreshCache bool

	// Args are bind arguments for placeholders in the statement. They
	// become part of the cache key, so distinct argument sets cache
	// under distinct entries.
	Args []any

	// Opaque identifiers rendered into the diagnostic SQL comment.
	// Never interpreted as SQL.
	UserID   string
	UserName string
	QueryID  string
}

// Result is the immutable outcome of one RunStatement call.
type Result struct {
	Columns []string
	Rows    [][]any

	// Error is the normalized statement error. When non-empty, Columns
	// and Rows are empty, not partial; callers must treat it as
	// authoritative.
	Error string

	// CachedAt is set when the result was served from a prior cache
	// entry; zero for freshly computed results.
	CachedAt time.Time

	// JustCached reports that this call computed the result and wrote
	// it to cache.
	JustCached bool
}

// Cached reports whether the result came from the cache.
func (r *Result) Cached() bool { return !r.CachedAt.IsZero() }

// RunStatement executes a statement through the cache policy: attempt a
// cache read unless refreshing, otherwise execute and conditionally
// write the cache. A cache hit short-circuits entirely; no connection
// is touched. The only returned Go error outside construction problems
// is the executor's TimeoutNotSupportedError.
func (ds *DataSource) RunStatement(ctx context.Context, statement string, opts RunOptions) (*Result, error) {
	keyed := statement
	if len(opts.Args) > 0 {
		keyed = fmt.Sprintf("%s %v", statement, opts.Args)
	}
	key := cache.Key(ds.id, keyed)

	if ds.store != nil && ds.policy.ReadEligible(opts.RefreshCache) {
		if res, ok := ds.readCache(ctx, key); ok {
			return res, nil
		}
	}

	if ds.cfg.SingleFlight {
		v, err, _ := ds.group.Do(key, func() (any, error) {
			return ds.execute(ctx, statement, key, opts)
		})
		if err != nil {
			return nil, err
		}
		return v.(*Result), nil
	}
	return ds.execute(ctx, statement, key, opts)
}

// readCache attempts to serve a statement from the store. Store and
// decode failures are logged and treated as misses.
func (ds *DataSource) readCache(ctx context.Context, key string) (*Result, bool) {
	data, ok, err := ds.store.Read(ctx, key)
	if err != nil {
		ds.logger.Debug("cache read failed", "key", key, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	entry, err := cache.DecodeEntry(data)
	if err != nil {
		ds.logger.Debug("cache entry undecodable", "key", key, "error", err)
		return nil, false
	}

	ds.logger.Debug("cache hit", "key", key, "cached_at", entry.CachedAt)
	return &Result{
		Columns:  entry.Columns,
		Rows:     entry.Rows,
		CachedAt: entry.CachedAt,
	}, true
}

// execute runs the statement and, when eligible, writes the cache.
func (ds *DataSource) execute(ctx context.Context, statement, key string, opts RunOptions) (*Result, error) {
	db, err := ds.handle()
	if err != nil {
		return nil, err
	}

	exec := &executor.Executor{
		Adapter:        ds.adapter,
		Timeout:        ds.timeout(),
		UseTransaction: ds.cfg.Transactional(),
		Logger:         ds.logger,
	}
	out, err := exec.Execute(ctx, db, statement, executor.Comment{
		UserID:   opts.UserID,
		UserName: opts.UserName,
		QueryID:  opts.QueryID,
	}, opts.Args...)
	if err != nil {
		return nil, err
	}

	res := &Result{Columns: out.Columns, Rows: out.Rows, Error: out.Err}
	if out.Err != "" {
		return res, nil
	}

	if ds.store != nil && ds.policy.WriteEligible(out.Elapsed) {
		entry := &cache.Entry{Columns: out.Columns, Rows: out.Rows, CachedAt: time.Now()}
		data, err := entry.Encode()
		if err != nil {
			ds.logger.Debug("cache encode failed", "key", key, "error", err)
			return res, nil
		}
		if err := ds.store.Write(ctx, key, data, ds.policy.TTL()); err != nil {
			ds.logger.Debug("cache write failed", "key", key, "error", err)
			return res, nil
		}
		res.JustCached = true
	}
	return res, nil
}

// Invalidate deletes the cache entry for a statement. No-op if absent.
func (ds *DataSource) Invalidate(ctx context.Context, statement string) error {
	if ds.store == nil {
		return nil
	}
	return ds.store.Delete(ctx, cache.Key(ds.id, statement))
}
