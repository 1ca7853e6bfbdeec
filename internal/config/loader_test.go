package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "blazer.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
environment: production
cache_path: /var/lib/blazer/cache.db
data_sources:
  main:
    name: Main warehouse
    url: postgres://user@localhost:5432/reports
    timeout: 15
    cache:
      mode: slow
      expires_in: 30
      slow_threshold: 5
    schemas: [public, analytics]
  replica:
    url: mysql://root@localhost/app
    cache: 60
    use_transaction: false
`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.False(t, cfg.Permissive())
	assert.Equal(t, "/var/lib/blazer/cache.db", cfg.CachePath)

	main, err := cfg.Source("main")
	require.NoError(t, err)
	assert.Equal(t, "Main warehouse", main.Name)
	assert.Equal(t, 15.0, main.Timeout)
	assert.Equal(t, []string{"public", "analytics"}, main.Schemas)
	assert.True(t, main.Transactional(), "use_transaction defaults to true")

	replica, err := cfg.Source("replica")
	require.NoError(t, err)
	assert.False(t, replica.Transactional())
	assert.Equal(t, 60, replica.Cache)

	_, err = cfg.Source("nope")
	assert.Error(t, err)
}

func TestLoadDefaults(t *testing.T) {
	// No blazer.yaml in the package directory: defaults only.
	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, EnvDevelopment, cfg.Environment)
	assert.True(t, cfg.Permissive())
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("BLAZER_ENVIRONMENT", "production")
	path := writeConfig(t, "environment: development\n")

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Environment)
}
