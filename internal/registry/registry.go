// Package registry holds the constructed data sources for a process,
// mapping ids to their exclusive DataSource instances.
package registry

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/omarriaga/blazer/internal/cache"
	"github.com/omarriaga/blazer/internal/config"
	"github.com/omarriaga/blazer/internal/datasource"
)

// Registry is a set of data sources keyed by id.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]*datasource.DataSource
}

// UnknownDataSourceError is returned when a lookup misses.
type UnknownDataSourceError struct {
	ID        string
	Available []string
}

func (e *UnknownDataSourceError) Error() string {
	return fmt.Sprintf("unknown data source %q (available: %s)", e.ID, strings.Join(e.Available, ", "))
}

// New constructs every data source in cfg. It fails on the first
// misconfigured source: registration time is where configuration
// problems surface, not first query.
func New(cfg *config.Config, store cache.Store, logger *slog.Logger) (*Registry, error) {
	r := &Registry{sources: make(map[string]*datasource.DataSource)}

	for id, dsCfg := range cfg.DataSources {
		ds, err := datasource.New(id, dsCfg, datasource.Options{
			Store:      store,
			Logger:     logger,
			Permissive: cfg.Permissive(),
		})
		if err != nil {
			r.Close()
			return nil, err
		}
		r.sources[id] = ds
	}
	return r, nil
}

// Get returns the data source registered under id.
func (r *Registry) Get(id string) (*datasource.DataSource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ds, ok := r.sources[id]
	if !ok {
		return nil, &UnknownDataSourceError{ID: id, Available: r.idsLocked()}
	}
	return ds, nil
}

// List returns all registered ids (sorted).
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.idsLocked()
}

func (r *Registry) idsLocked() []string {
	ids := make([]string, 0, len(r.sources))
	for id := range r.sources {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Close releases every data source's connection handle.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ds := range r.sources {
		_ = ds.Close()
	}
}
