package storage

import (
	"errors"
	"fmt"

	"Story-Atlas/server/internal/config"
	"Story-Atlas/server/internal/interfaces"
)

// ErrNotFound is returned by Get when no record has the id
var ErrNotFound = errors.New("story not found in cache")

// Open returns the story cache selected by cfg.Cache.Driver
func Open(cfg *config.Config) (interfaces.StoryCache, error) {
	switch cfg.Cache.Driver {
	case config.DriverMemory:
		return NewMemoryStore(), nil
	case config.DriverRedis:
		store, err := NewRedisStore(cfg.Database.Redis)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.DriverSQLite:
		store, err := NewSQLiteStore(cfg.Database.SQLite)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.DriverMySQL:
		store, err := NewMySQLStore(cfg.Database.MySQL)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown cache driver %q", cfg.Cache.Driver)
	}
}
