// Package adapter maps configured connection URLs onto database/sql drivers
// and carries the dialect-specific SQL each engine family needs: session
// timeout statements, EXPLAIN cost support, default schemas and placeholder
// styles.
package adapter

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"
)

// Kind classifies the underlying engine family. It drives every
// dialect-specific branch: timeout syntax, cost queries, default schema.
type Kind string

const (
	KindPostgres Kind = "postgres"
	KindRedshift Kind = "redshift"
	KindMySQL    Kind = "mysql"
	KindOther    Kind = "other"
)

// Adapter describes one supported database engine.
type Adapter struct {
	// Name is the registry name, matching the connection URL scheme.
	Name string

	// Driver is the database/sql driver name to open connections with.
	Driver string

	// Kind is the engine family classification.
	Kind Kind

	// DefaultSchema is the schema assumed when the URL names none.
	// Empty means "use the database name from the URL".
	DefaultSchema string

	// DSN converts a parsed connection URL into the driver's DSN format.
	DSN func(u *url.URL) (string, error)

	// TimeoutSQL returns the session statement that bounds query execution
	// to d. Nil when the engine has no session timeout mechanism.
	TimeoutSQL func(d time.Duration) string

	// Placeholder formats the nth bind placeholder ($1 vs ?).
	Placeholder func(n int) string
}

// SupportsCost reports whether the engine's EXPLAIN output carries
// planner cost estimates in the `cost=a..b` form.
func (a Adapter) SupportsCost() bool {
	return a.Kind == KindPostgres || a.Kind == KindRedshift
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Adapter)
)

// Register adds an adapter to the registry under its name.
// Called by adapter implementations in their init() functions.
func Register(a Adapter) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[a.Name] = a
}

// Get retrieves an adapter by registry name.
func Get(name string) (Adapter, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	a, ok := registry[name]
	return a, ok
}

// List returns all registered adapter names (sorted).
func List() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ForURL resolves the adapter for a connection URL. Postgres-scheme URLs
// pointing at a Redshift endpoint resolve to the redshift adapter.
func ForURL(rawurl string) (Adapter, *url.URL, error) {
	u, err := url.Parse(rawurl)
	if err != nil {
		return Adapter{}, nil, fmt.Errorf("invalid connection url: %w", err)
	}

	name := strings.ToLower(u.Scheme)
	if (name == "postgres" || name == "postgresql") && strings.Contains(strings.ToLower(u.Host), "redshift") {
		name = "redshift"
	}

	a, ok := Get(name)
	if !ok {
		return Adapter{}, nil, &UnknownAdapterError{Scheme: name, Available: List()}
	}
	return a, u, nil
}

// UnknownAdapterError is returned when no adapter is registered for a
// connection URL's scheme.
type UnknownAdapterError struct {
	Scheme    string
	Available []string
}

func (e *UnknownAdapterError) Error() string {
	return fmt.Sprintf("unknown adapter %q (available: %s)", e.Scheme, strings.Join(e.Available, ", "))
}

// DatabaseName extracts the database name from a connection URL path.
func DatabaseName(u *url.URL) string {
	return strings.TrimPrefix(u.Path, "/")
}
