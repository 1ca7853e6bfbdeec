// Package datasource models one configured database connection together
// with its cache and timeout policy, and is the public entry point for
// running statements against it.
package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/omarriaga/blazer/internal/adapter"
	"github.com/omarriaga/blazer/internal/cache"
	"github.com/omarriaga/blazer/internal/config"
)

// connectTimeout bounds the initial ping when a handle is established.
const connectTimeout = 5 * time.Second

// ConfigError reports an invalid data source configuration. It is fatal
// at construction and not recoverable.
type ConfigError struct {
	DataSource string
	Reason     string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("data source %s: %s", e.DataSource, e.Reason)
}

// Options are the injected collaborators for a DataSource.
type Options struct {
	// Store receives cached results. Nil disables caching regardless of
	// the configured policy.
	Store cache.Store

	// Logger may be nil; logs are then discarded.
	Logger *slog.Logger

	// Permissive tolerates a missing connection URL (development mode):
	// construction succeeds and the first statement fails instead.
	Permissive bool
}

// DataSource is one configured database plus its derived policy. It is
// the exclusive owner of its connection handle; the handle is replaced,
// never mutated, on Reconnect.
type DataSource struct {
	id  string
	cfg config.DataSource

	adapter adapter.Adapter
	url     *url.URL
	policy  cache.Policy
	store   cache.Store
	logger  *slog.Logger

	mu sync.Mutex
	db *sql.DB

	group singleflight.Group
}

// New constructs a data source and eagerly establishes its connection
// handle, so a misconfigured source is caught at registration time
// rather than at first query.
func New(id string, cfg config.DataSource, opts Options) (*DataSource, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if cfg.URL == "" {
		if !opts.Permissive {
			return nil, &ConfigError{DataSource: id, Reason: "missing connection url"}
		}
		// Development mode: register without a handle; use fails later.
		policy, err := cache.DerivePolicy(cfg.Cache)
		if err != nil {
			return nil, &ConfigError{DataSource: id, Reason: err.Error()}
		}
		return &DataSource{id: id, cfg: cfg, policy: policy, store: opts.Store, logger: logger}, nil
	}

	a, u, err := adapter.ForURL(cfg.URL)
	if err != nil {
		return nil, &ConfigError{DataSource: id, Reason: err.Error()}
	}

	policy, err := cache.DerivePolicy(cfg.Cache)
	if err != nil {
		return nil, &ConfigError{DataSource: id, Reason: err.Error()}
	}

	ds := &DataSource{
		id:      id,
		cfg:     cfg,
		adapter: a,
		url:     u,
		policy:  policy,
		store:   opts.Store,
		logger:  logger.With("data_source", id),
	}

	db, err := ds.connect()
	if err != nil {
		return nil, err
	}
	ds.db = db

	ds.logger.Debug("data source registered", "adapter", a.Name, "cache_mode", policy.Mode)
	return ds, nil
}

// ID returns the data source identity used in cache keys.
func (ds *DataSource) ID() string { return ds.id }

// Name returns the display name, falling back to the id.
func (ds *DataSource) Name() string {
	if ds.cfg.Name != "" {
		return ds.cfg.Name
	}
	return ds.id
}

// AdapterKind classifies the underlying engine.
func (ds *DataSource) AdapterKind() adapter.Kind {
	if ds.adapter.Name == "" {
		return adapter.KindOther
	}
	return ds.adapter.Kind
}

// Policy returns the derived cache policy.
func (ds *DataSource) Policy() cache.Policy { return ds.policy }

// connect opens a fresh handle and pings it within connectTimeout.
func (ds *DataSource) connect() (*sql.DB, error) {
	dsn, err := ds.adapter.DSN(ds.url)
	if err != nil {
		return nil, &ConfigError{DataSource: ds.id, Reason: err.Error()}
	}

	db, err := sql.Open(ds.adapter.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", ds.adapter.Name, err)
	}

	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to data source %s: %w", ds.id, err)
	}
	return db, nil
}

// Reconnect tears down and re-establishes the connection handle. The
// swap is atomic from the caller's perspective; statements in flight on
// the old handle run to completion.
func (ds *DataSource) Reconnect() error {
	if ds.cfg.URL == "" {
		return &ConfigError{DataSource: ds.id, Reason: "missing connection url"}
	}

	db, err := ds.connect()
	if err != nil {
		return err
	}

	ds.mu.Lock()
	old := ds.db
	ds.db = db
	ds.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}
	ds.logger.Debug("reconnected")
	return nil
}

// Close releases the connection handle.
func (ds *DataSource) Close() error {
	ds.mu.Lock()
	db := ds.db
	ds.db = nil
	ds.mu.Unlock()

	if db != nil {
		return db.Close()
	}
	return nil
}

// handle returns the current connection handle.
func (ds *DataSource) handle() (*sql.DB, error) {
	ds.mu.Lock()
	db := ds.db
	ds.mu.Unlock()

	if db == nil {
		return nil, &ConfigError{DataSource: ds.id, Reason: "no connection established"}
	}
	return db, nil
}

// Schemas returns the schema list used for table discovery: the
// configured override, else the URL's schema parameter, else "public"
// for Postgres and Redshift, else the database name.
func (ds *DataSource) Schemas() []string {
	if len(ds.cfg.Schemas) > 0 {
		return ds.cfg.Schemas
	}
	if ds.url != nil {
		if s := ds.url.Query().Get("schema"); s != "" {
			return []string{s}
		}
	}
	switch ds.AdapterKind() {
	case adapter.KindPostgres, adapter.KindRedshift:
		return []string{"public"}
	default:
		if ds.adapter.DefaultSchema != "" {
			return []string{ds.adapter.DefaultSchema}
		}
		if ds.url != nil {
			if name := adapter.DatabaseName(ds.url); name != "" {
				return []string{name}
			}
		}
		return nil
	}
}

func (ds *DataSource) timeout() time.Duration {
	if ds.cfg.Timeout <= 0 {
		return 0
	}
	return time.Duration(ds.cfg.Timeout * float64(time.Second))
}
