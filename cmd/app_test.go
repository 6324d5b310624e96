package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"Story-Atlas/server/internal/config"
	"Story-Atlas/server/internal/models"
)

func TestOpenDurable_RejectsMemoryCache(t *testing.T) {
	cfg := &config.Config{Cache: config.CacheConfig{Driver: config.DriverMemory}}

	_, err := openDurable(cfg, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "memory")
}

func TestOpenDurable_SharesSQLiteCacheAcrossRuns(t *testing.T) {
	cfg := &config.Config{
		API:      config.APIConfig{BaseURL: "http://127.0.0.1:1"},
		Cache:    config.CacheConfig{Driver: config.DriverSQLite},
		Database: config.DatabaseConfig{SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "stories.db")}},
	}
	ctx := context.Background()

	first, err := openDurable(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, first.cache.Put(ctx, &models.Story{ID: "local-1", SyncState: models.SyncStatePending}))
	require.NoError(t, first.Close())

	second, err := openDurable(cfg, zap.NewNop())
	require.NoError(t, err)
	defer second.Close()

	n, err := second.cache.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
