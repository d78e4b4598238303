package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pevans/recipys/config"
	"github.com/pevans/recipys/recipe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestGetEnv verifies default handling
func TestGetEnv(t *testing.T) {
	t.Setenv("RECIPYS_TEST_VALUE", "")
	assert.Equal(t, "fallback", getEnv("RECIPYS_TEST_VALUE", "fallback"))

	t.Setenv("RECIPYS_TEST_VALUE", "set")
	assert.Equal(t, "set", getEnv("RECIPYS_TEST_VALUE", "fallback"))
}

// TestGetEnvDuration verifies duration parsing
func TestGetEnvDuration(t *testing.T) {
	t.Setenv("RECIPYS_TEST_INTERVAL", "")
	d, err := getEnvDuration("RECIPYS_TEST_INTERVAL", time.Second)
	require.NoError(t, err)
	assert.Equal(t, time.Second, d)

	t.Setenv("RECIPYS_TEST_INTERVAL", "250ms")
	d, err = getEnvDuration("RECIPYS_TEST_INTERVAL", time.Second)
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, d)

	for _, bad := range []string{"soon", "-1s"} {
		t.Setenv("RECIPYS_TEST_INTERVAL", bad)
		_, err = getEnvDuration("RECIPYS_TEST_INTERVAL", time.Second)
		assert.Error(t, err, bad)
	}
}

// TestOpenEnvironment_Defaults verifies files are created under the home
// directory
func TestOpenEnvironment_Defaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("RECIPYS_CONFIG", "")
	t.Setenv("RECIPYS_SOURCES", "")
	t.Setenv("RECIPYS_HISTORY_DSN", "")
	t.Setenv("RECIPYS_MIN_INTERVAL", "")

	env, err := openEnvironment()
	require.NoError(t, err)
	defer env.Close()

	assert.Equal(t, config.DefaultSources(), env.sources)
	assert.Equal(t, recipe.DefaultMinInterval, env.minInterval)
	assert.NotNil(t, env.history)

	_, err = os.Stat(filepath.Join(home, ".recipys", config.FileName))
	assert.NoError(t, err, "config file should be created")
	assert.NotNil(t, env.Finder())
}

// TestOpenEnvironment_Overrides verifies environment overrides
func TestOpenEnvironment_Overrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("RECIPYS_CONFIG", filepath.Join(dir, "custom.json"))
	t.Setenv("RECIPYS_SOURCES", filepath.Join(dir, "missing.yaml"))
	t.Setenv("RECIPYS_HISTORY_DSN", "off")
	t.Setenv("RECIPYS_MIN_INTERVAL", "0s")

	env, err := openEnvironment()
	require.NoError(t, err)
	defer env.Close()

	assert.Nil(t, env.history)
	assert.Equal(t, time.Duration(0), env.minInterval)
	assert.Equal(t, filepath.Join(dir, "custom.json"), env.client.Path())
}

// TestOpenEnvironment_InvalidSources verifies broken sources files fail
func TestOpenEnvironment_InvalidSources(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sources.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sources: []\n"), 0o644))

	t.Setenv("HOME", dir)
	t.Setenv("RECIPYS_SOURCES", path)
	t.Setenv("RECIPYS_MIN_INTERVAL", "")

	_, err := openEnvironment()
	assert.ErrorIs(t, err, config.ErrNoSources)
}
