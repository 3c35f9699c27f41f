package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/config"
)

type testConfig struct {
	Name     string        `env:"CFG_TEST_NAME" envDefault:"notifyd"`
	Interval time.Duration `env:"CFG_TEST_INTERVAL" envDefault:"5s"`
	Workers  int           `env:"CFG_TEST_WORKERS" envDefault:"8"`
}

func TestLoadDefaults(t *testing.T) {
	var cfg testConfig
	require.NoError(t, config.Load(&cfg))

	assert.Equal(t, "notifyd", cfg.Name)
	assert.Equal(t, 5*time.Second, cfg.Interval)
	assert.Equal(t, 8, cfg.Workers)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("CFG_ENV_HOST", "db.internal")
	t.Setenv("CFG_ENV_PORT", "6432")

	type envConfig struct {
		Host string `env:"CFG_ENV_HOST"`
		Port int    `env:"CFG_ENV_PORT"`
	}

	var cfg envConfig
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, "db.internal", cfg.Host)
	assert.Equal(t, 6432, cfg.Port)
}

func TestLoadCachesPerType(t *testing.T) {
	t.Setenv("CFG_CACHE_VALUE", "first")

	type cachedConfig struct {
		Value string `env:"CFG_CACHE_VALUE"`
	}

	var first cachedConfig
	require.NoError(t, config.Load(&first))
	assert.Equal(t, "first", first.Value)

	// The cached value wins over a changed environment.
	t.Setenv("CFG_CACHE_VALUE", "second")
	var second cachedConfig
	require.NoError(t, config.Load(&second))
	assert.Equal(t, "first", second.Value)
}

func TestLoadNilPointer(t *testing.T) {
	var cfg *testConfig
	assert.ErrorIs(t, config.Load(cfg), config.ErrNilPointer)
}
