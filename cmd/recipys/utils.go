package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pevans/recipys/config"
	"github.com/pevans/recipys/history"
	"github.com/pevans/recipys/recipe"
)

// historyOff disables the history database when used as RECIPYS_HISTORY_DSN.
const historyOff = "off"

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default value.
func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid %s: %q is not a duration", key, value)
	}
	return d, nil
}

// environment holds everything a command needs, resolved from the
// environment and ~/.recipys.
type environment struct {
	sources     []config.Source
	client      *config.ClientConfig
	history     *history.Store // nil when disabled
	minInterval time.Duration
}

func openEnvironment() (*environment, error) {
	dir, err := config.DefaultDir()
	if err != nil {
		return nil, err
	}

	minInterval, err := getEnvDuration("RECIPYS_MIN_INTERVAL", recipe.DefaultMinInterval)
	if err != nil {
		return nil, err
	}

	sources, err := config.LoadSources(getEnv("RECIPYS_SOURCES", filepath.Join(dir, config.SourcesFileName)))
	if err != nil {
		return nil, err
	}

	client := config.NewClientConfig(getEnv("RECIPYS_CONFIG", filepath.Join(dir, config.FileName)))
	if err := client.Read(); err != nil {
		return nil, err
	}

	env := &environment{
		sources:     sources,
		client:      client,
		minInterval: minInterval,
	}

	dsn := getEnv("RECIPYS_HISTORY_DSN", filepath.Join(dir, history.FileName))
	if !strings.EqualFold(dsn, historyOff) {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
		store, err := history.NewStore(dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open history store: %w", err)
		}
		env.history = store
	}

	slog.Debug("environment ready", "sources", len(sources), "config", client.Path(), "history", env.history != nil)
	return env, nil
}

// Finder creates a recipe finder recording into the history store, if any.
func (e *environment) Finder() *recipe.Finder {
	opts := []recipe.Option{recipe.WithMinInterval(e.minInterval)}
	if e.history != nil {
		opts = append(opts, recipe.WithRecorder(e.history))
	}
	return recipe.NewFinder(e.sources, e.client, opts...)
}

func (e *environment) Close() {
	if e.history != nil {
		e.history.Close()
	}
}
