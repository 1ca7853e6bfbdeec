// Package config loads and validates blazer configuration: the process
// environment, the cache store location, and one entry per data source.
package config

import "fmt"

// Environment names with special behavior.
const (
	// EnvDevelopment is the permissive mode: data sources may omit their
	// connection URL and fail at first use instead of at registration.
	EnvDevelopment = "development"
)

// Config is the top-level process configuration.
type Config struct {
	// Environment controls permissive construction (see EnvDevelopment).
	Environment string `koanf:"environment"`

	// CachePath is the SQLite cache database path. Empty selects the
	// in-memory store; ":memory:" a transient SQLite database.
	CachePath string `koanf:"cache_path"`

	Verbose bool `koanf:"verbose"`

	// DataSources maps data source id to its settings.
	DataSources map[string]DataSource `koanf:"data_sources"`
}

// Permissive reports whether missing connection URLs are tolerated.
func (c *Config) Permissive() bool {
	return c.Environment == EnvDevelopment
}

// DataSource is the typed settings bag for one configured database.
// Unknown keys in the source file are ignored rather than mis-typed.
type DataSource struct {
	Name string `koanf:"name"`

	// URL is the connection URL; its scheme selects the adapter.
	URL string `koanf:"url"`

	// Timeout bounds statement execution, in seconds.
	Timeout float64 `koanf:"timeout"`

	// Cache is polymorphic: false/absent (off), a number or true
	// (cache everything), or a mapping {mode, expires_in, slow_threshold}.
	Cache any `koanf:"cache"`

	// UseTransaction wraps every statement in a rollback-only
	// transaction. Defaults to true when unset.
	UseTransaction *bool `koanf:"use_transaction"`

	// Schemas overrides the schema list used for table discovery.
	Schemas []string `koanf:"schemas"`

	// SingleFlight coalesces concurrent identical statements onto one
	// execution per cache key. Off by default.
	SingleFlight bool `koanf:"single_flight"`

	// Pass-through fields consumed by display layers only.
	LinkedColumns    map[string]string `koanf:"linked_columns"`
	SmartColumns     map[string]string `koanf:"smart_columns"`
	SmartVariables   map[string]any    `koanf:"smart_variables"`
	VariableDefaults map[string]any    `koanf:"variable_defaults"`
	LocalTimeSuffix  []string          `koanf:"local_time_suffix"`
}

// Transactional reports the effective use_transaction setting.
func (d DataSource) Transactional() bool {
	return d.UseTransaction == nil || *d.UseTransaction
}

// Source returns the settings for one data source id.
func (c *Config) Source(id string) (DataSource, error) {
	ds, ok := c.DataSources[id]
	if !ok {
		return DataSource{}, fmt.Errorf("unknown data source %q", id)
	}
	return ds, nil
}
