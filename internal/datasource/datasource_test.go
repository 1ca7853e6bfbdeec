package datasource

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omarriaga/blazer/internal/adapter"
	"github.com/omarriaga/blazer/internal/cache"
	"github.com/omarriaga/blazer/internal/config"
	"github.com/omarriaga/blazer/internal/executor"
	"github.com/omarriaga/blazer/internal/testutil"
)

func init() {
	// Mock adapters backed by go-sqlmock. The URL host doubles as the
	// sqlmock DSN so each test can isolate its own mock.
	mockDSN := func(u *url.URL) (string, error) { return u.Host, nil }

	adapter.Register(adapter.Adapter{
		Name:          "mock",
		Driver:        "sqlmock",
		Kind:          adapter.KindPostgres,
		DefaultSchema: "public",
		DSN:           mockDSN,
		TimeoutSQL: func(d time.Duration) string {
			return fmt.Sprintf("SET statement_timeout = %d", d.Milliseconds())
		},
		Placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	})
	adapter.Register(adapter.Adapter{
		Name:        "mockother",
		Driver:      "sqlmock",
		Kind:        adapter.KindOther,
		DSN:         mockDSN,
		Placeholder: func(int) string { return "?" },
	})
}

var dsnSeq atomic.Int64

// newMockSource builds a DataSource over a fresh sqlmock instance.
// cfg.URL may carry a bare adapter scheme ("mockother"); it is expanded
// into a full URL whose host is the per-test sqlmock DSN.
func newMockSource(t *testing.T, cfg config.DataSource, store cache.Store) (*DataSource, sqlmock.Sqlmock) {
	t.Helper()

	dsn := fmt.Sprintf("mock_dsn_%d", dsnSeq.Add(1))
	_, mock, err := sqlmock.NewWithDSN(dsn)
	require.NoError(t, err)

	scheme := "mock"
	if cfg.URL != "" {
		scheme = cfg.URL
	}
	cfg.URL = scheme + "://" + dsn

	ds, err := New("main", cfg, Options{Store: store, Logger: testutil.NewTestLogger(t)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ds.Close() })
	return ds, mock
}

func expectStatement(mock sqlmock.Sqlmock, statement string, rows *sqlmock.Rows) {
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(statement + " /*blazer*/")).WillReturnRows(rows)
	mock.ExpectRollback()
}

func TestNewMissingURL(t *testing.T) {
	_, err := New("main", config.DataSource{}, Options{})
	var cerr *ConfigError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "main", cerr.DataSource)
}

func TestNewMissingURLPermissive(t *testing.T) {
	ds, err := New("main", config.DataSource{}, Options{Permissive: true})
	require.NoError(t, err)

	// Registration succeeds but use fails.
	_, err = ds.RunStatement(context.Background(), "SELECT 1", RunOptions{})
	var cerr *ConfigError
	require.ErrorAs(t, err, &cerr)
}

func TestNewUnknownScheme(t *testing.T) {
	_, err := New("main", config.DataSource{URL: "oracle://localhost/xe"}, Options{})
	var cerr *ConfigError
	require.ErrorAs(t, err, &cerr)
}

func TestRunStatementCacheAll(t *testing.T) {
	store := cache.NewMemoryStore()
	ds, mock := newMockSource(t, config.DataSource{
		Cache: map[string]any{"mode": "all", "expires_in": 5},
	}, store)

	expectStatement(mock, "SELECT 1",
		sqlmock.NewRows([]string{"?column?"}).AddRow(int64(1)))

	before := time.Now()
	first, err := ds.RunStatement(context.Background(), "SELECT 1", RunOptions{})
	require.NoError(t, err)
	assert.Empty(t, first.Error)
	assert.Equal(t, []string{"?column?"}, first.Columns)
	assert.Equal(t, [][]any{{int64(1)}}, first.Rows)
	assert.True(t, first.JustCached)
	assert.False(t, first.Cached(), "fresh result carries no cached_at")

	// Second identical call is served from cache: no further database
	// expectations exist, so any execution would fail them.
	second, err := ds.RunStatement(context.Background(), "SELECT 1", RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, first.Columns, second.Columns)
	assert.Equal(t, first.Rows, second.Rows)
	assert.False(t, second.JustCached)
	assert.True(t, second.Cached())
	assert.WithinRange(t, second.CachedAt, before, time.Now())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunStatementRefreshCache(t *testing.T) {
	store := cache.NewMemoryStore()
	ds, mock := newMockSource(t, config.DataSource{Cache: true}, store)

	expectStatement(mock, "SELECT 1", sqlmock.NewRows([]string{"x"}).AddRow(int64(1)))
	expectStatement(mock, "SELECT 1", sqlmock.NewRows([]string{"x"}).AddRow(int64(2)))

	_, err := ds.RunStatement(context.Background(), "SELECT 1", RunOptions{})
	require.NoError(t, err)

	// refresh_cache bypasses the entry and re-executes.
	res, err := ds.RunStatement(context.Background(), "SELECT 1", RunOptions{RefreshCache: true})
	require.NoError(t, err)
	assert.Equal(t, [][]any{{int64(2)}}, res.Rows)
	assert.True(t, res.JustCached, "write-eligible refresh overwrites the entry")

	// The overwritten entry is what subsequent calls see.
	res, err = ds.RunStatement(context.Background(), "SELECT 1", RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, [][]any{{int64(2)}}, res.Rows)
	assert.True(t, res.Cached())

	assert.NoError(t, mock.ExpectationsWereMet())
}

// countingStore records cache traffic so tests can assert the runner
// never touched the store.
type countingStore struct {
	cache.Store
	reads, writes, deletes atomic.Int64
}

func (s *countingStore) Read(ctx context.Context, key string) ([]byte, bool, error) {
	s.reads.Add(1)
	return s.Store.Read(ctx, key)
}

func (s *countingStore) Write(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.writes.Add(1)
	return s.Store.Write(ctx, key, value, ttl)
}

func (s *countingStore) Delete(ctx context.Context, key string) error {
	s.deletes.Add(1)
	return s.Store.Delete(ctx, key)
}

func TestRunStatementCacheOff(t *testing.T) {
	store := &countingStore{Store: cache.NewMemoryStore()}
	ds, mock := newMockSource(t, config.DataSource{}, store)

	for i := 0; i < 3; i++ {
		expectStatement(mock, "SELECT 1", sqlmock.NewRows([]string{"x"}).AddRow(int64(1)))
		res, err := ds.RunStatement(context.Background(), "SELECT 1", RunOptions{})
		require.NoError(t, err)
		assert.False(t, res.JustCached)
		assert.False(t, res.Cached())
	}

	assert.Zero(t, store.reads.Load(), "mode off must never read the store")
	assert.Zero(t, store.writes.Load(), "mode off must never write the store")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunStatementSlowModeSkipsFastQueries(t *testing.T) {
	store := &countingStore{Store: cache.NewMemoryStore()}
	ds, mock := newMockSource(t, config.DataSource{
		Cache: map[string]any{"mode": "slow", "slow_threshold": 30},
	}, store)

	expectStatement(mock, "SELECT 1", sqlmock.NewRows([]string{"x"}).AddRow(int64(1)))
	res, err := ds.RunStatement(context.Background(), "SELECT 1", RunOptions{})
	require.NoError(t, err)
	assert.False(t, res.JustCached)
	assert.Zero(t, store.writes.Load(), "fast query under slow threshold must not cache")
}

func TestRunStatementErrorNotCached(t *testing.T) {
	store := &countingStore{Store: cache.NewMemoryStore()}
	ds, mock := newMockSource(t, config.DataSource{Cache: true}, store)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT").
		WillReturnError(errors.New(`pq: driver noise ERROR: relation "nope" does not exist`))
	mock.ExpectRollback()

	res, err := ds.RunStatement(context.Background(), "SELECT * FROM nope", RunOptions{})
	require.NoError(t, err, "statement failures are data, not errors")
	assert.Equal(t, `relation "nope" does not exist`, res.Error)
	assert.Empty(t, res.Columns)
	assert.Empty(t, res.Rows)
	assert.False(t, res.JustCached)
	assert.Zero(t, store.writes.Load(), "errored executions must never cache")
}

func TestRunStatementTimeoutNotSupported(t *testing.T) {
	ds, mock := newMockSource(t, config.DataSource{URL: "mockother", Timeout: 5}, nil)

	_, err := ds.RunStatement(context.Background(), "SELECT 1", RunOptions{})
	var tns *executor.TimeoutNotSupportedError
	require.ErrorAs(t, err, &tns)
	assert.Equal(t, "mockother", tns.Adapter)

	// No expectations were registered, so no execution happened.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunStatementSingleFlight(t *testing.T) {
	ds, mock := newMockSource(t, config.DataSource{SingleFlight: true}, nil)

	expectStatement(mock, "SELECT 1", sqlmock.NewRows([]string{"x"}).AddRow(int64(1)))
	res, err := ds.RunStatement(context.Background(), "SELECT 1", RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, [][]any{{int64(1)}}, res.Rows)
}

func TestRunStatementArgsCacheSeparately(t *testing.T) {
	store := cache.NewMemoryStore()
	ds, mock := newMockSource(t, config.DataSource{Cache: true}, store)

	stmt := "SELECT name FROM users WHERE id = $1"
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(stmt+" /*blazer*/")).WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("ada"))
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(stmt+" /*blazer*/")).WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("grace"))
	mock.ExpectRollback()

	first, err := ds.RunStatement(context.Background(), stmt, RunOptions{Args: []any{int64(1)}})
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"ada"}}, first.Rows)

	// A different argument set misses the first call's entry.
	second, err := ds.RunStatement(context.Background(), stmt, RunOptions{Args: []any{int64(2)}})
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"grace"}}, second.Rows)

	// Repeating an argument set is served from its own entry.
	hit, err := ds.RunStatement(context.Background(), stmt, RunOptions{Args: []any{int64(1)}})
	require.NoError(t, err)
	assert.True(t, hit.Cached())
	assert.Equal(t, [][]any{{"ada"}}, hit.Rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvalidate(t *testing.T) {
	store := cache.NewMemoryStore()
	ds, mock := newMockSource(t, config.DataSource{Cache: true}, store)

	expectStatement(mock, "SELECT 1", sqlmock.NewRows([]string{"x"}).AddRow(int64(1)))
	_, err := ds.RunStatement(context.Background(), "SELECT 1", RunOptions{})
	require.NoError(t, err)

	require.NoError(t, ds.Invalidate(context.Background(), "SELECT 1"))

	// Next call re-executes.
	expectStatement(mock, "SELECT 1", sqlmock.NewRows([]string{"x"}).AddRow(int64(1)))
	res, err := ds.RunStatement(context.Background(), "SELECT 1", RunOptions{})
	require.NoError(t, err)
	assert.False(t, res.Cached())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTables(t *testing.T) {
	ds, mock := newMockSource(t, config.DataSource{}, nil)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT table_name FROM information_schema.columns WHERE table_schema IN ($1)")).
		WithArgs("public").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).
			AddRow("users").AddRow("users").AddRow("events").AddRow("users"))
	mock.ExpectRollback()

	tables, err := ds.Tables(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"users", "events"}, tables, "distinct, ordered by first appearance")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTablesCustomSchemas(t *testing.T) {
	ds, mock := newMockSource(t, config.DataSource{Schemas: []string{"raw", "mart"}}, nil)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("IN ($1, $2)")).
		WithArgs("raw", "mart").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("orders"))
	mock.ExpectRollback()

	tables, err := ds.Tables(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"orders"}, tables)
}

func TestCost(t *testing.T) {
	ds, mock := newMockSource(t, config.DataSource{}, nil)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("EXPLAIN SELECT * FROM users")).
		WillReturnRows(sqlmock.NewRows([]string{"QUERY PLAN"}).
			AddRow("Seq Scan on users  (cost=0.00..35.50 rows=2550 width=4)"))
	mock.ExpectRollback()

	cost, ok := ds.Cost(context.Background(), "SELECT * FROM users")
	require.True(t, ok)
	assert.Equal(t, 35.50, cost)
}

func TestCostUnsupportedEngine(t *testing.T) {
	ds, mock := newMockSource(t, config.DataSource{URL: "mockother"}, nil)

	// No expectations: the connection must not be touched at all.
	cost, ok := ds.Cost(context.Background(), "SELECT 1")
	assert.False(t, ok)
	assert.Zero(t, cost)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCostInvalidStatement(t *testing.T) {
	ds, mock := newMockSource(t, config.DataSource{}, nil)

	mock.ExpectBegin()
	mock.ExpectQuery("EXPLAIN").WillReturnError(errors.New("pq: ERROR: syntax error"))
	mock.ExpectRollback()

	// Planning failures are swallowed.
	cost, ok := ds.Cost(context.Background(), "SELEKT")
	assert.False(t, ok)
	assert.Zero(t, cost)
}

func TestSchemas(t *testing.T) {
	pg, _ := newMockSource(t, config.DataSource{}, nil)
	assert.Equal(t, []string{"public"}, pg.Schemas())

	override, _ := newMockSource(t, config.DataSource{Schemas: []string{"analytics"}}, nil)
	assert.Equal(t, []string{"analytics"}, override.Schemas())
}

func TestReconnect(t *testing.T) {
	ds, mock := newMockSource(t, config.DataSource{}, nil)

	mock.ExpectClose()
	require.NoError(t, ds.Reconnect())

	expectStatement(mock, "SELECT 1", sqlmock.NewRows([]string{"x"}).AddRow(int64(1)))
	res, err := ds.RunStatement(context.Background(), "SELECT 1", RunOptions{})
	require.NoError(t, err)
	assert.Empty(t, res.Error)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUseTransactionDisabled(t *testing.T) {
	off := false
	ds, mock := newMockSource(t, config.DataSource{UseTransaction: &off}, nil)

	// No Begin/Rollback expected.
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 /*blazer*/")).
		WillReturnRows(sqlmock.NewRows([]string{"x"}).AddRow(int64(1)))

	res, err := ds.RunStatement(context.Background(), "SELECT 1", RunOptions{})
	require.NoError(t, err)
	assert.Empty(t, res.Error)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunStatementComment(t *testing.T) {
	ds, mock := newMockSource(t, config.DataSource{}, nil)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 /*blazer,user_id:7,user_name:Ada,query_id:42*/")).
		WillReturnRows(sqlmock.NewRows([]string{"x"}).AddRow(int64(1)))
	mock.ExpectRollback()

	_, err := ds.RunStatement(context.Background(), "SELECT 1", RunOptions{
		UserID: "7", UserName: "Ada", QueryID: "42",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
