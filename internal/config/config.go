package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v2"
)

const (
	defaultHost               = "0.0.0.0"
	defaultPort               = 8080
	defaultAPIBaseURL         = "https://story-api.dicoding.dev/v1"
	defaultAPITimeout         = 30 * time.Second
	defaultPageSize           = 10
	defaultMaxPhotoBytes      = 1 << 20
	defaultGeolocationTimeout = 5 * time.Second
	defaultCacheDriver        = DriverSQLite
	defaultSQLitePath         = "data/story-atlas.db"
)

// Cache drivers. Memory is not durable and is meant for tests.
const (
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
	DriverRedis  = "redis"
	DriverMySQL  = "mysql"
)

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	API         APIConfig         `yaml:"api"`
	Cache       CacheConfig       `yaml:"cache"`
	Database    DatabaseConfig    `yaml:"database"`
	Geolocation GeolocationConfig `yaml:"geolocation"`
	Sync        SyncConfig        `yaml:"sync"`
	Logging     LoggingConfig     `yaml:"logging"`
}

type ServerConfig struct {
	Host         string        `yaml:"host" env:"STORY_SERVER_HOST"`
	Port         int           `yaml:"port" env:"STORY_SERVER_PORT"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type APIConfig struct {
	BaseURL string        `yaml:"base_url" env:"STORY_API_BASE_URL"`
	Token   string        `yaml:"token" env:"STORY_API_TOKEN"`
	Timeout time.Duration `yaml:"timeout" env:"STORY_API_TIMEOUT"`
	// PageSize is the fixed page size of the list flow
	PageSize      int   `yaml:"page_size" env:"STORY_PAGE_SIZE"`
	MaxPhotoBytes int64 `yaml:"max_photo_bytes"`
	// CheckConnectivity dials the API host before a submission
	CheckConnectivity bool `yaml:"check_connectivity" env:"STORY_API_CHECK"`
}

type CacheConfig struct {
	Driver string `yaml:"driver" env:"STORY_CACHE_DRIVER"`
}

type DatabaseConfig struct {
	SQLite SQLiteConfig `yaml:"sqlite"`
	MySQL  MySQLConfig  `yaml:"mysql"`
	Redis  RedisConfig  `yaml:"redis"`
}

type SQLiteConfig struct {
	Path string `yaml:"path" env:"STORY_SQLITE_PATH"`
}

type MySQLConfig struct {
	Host            string        `yaml:"host" env:"STORY_MYSQL_HOST"`
	Port            int           `yaml:"port" env:"STORY_MYSQL_PORT"`
	Username        string        `yaml:"username" env:"STORY_MYSQL_USER"`
	Password        string        `yaml:"password" env:"STORY_MYSQL_PASSWORD"`
	Database        string        `yaml:"database" env:"STORY_MYSQL_DATABASE"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

type RedisConfig struct {
	Host      string `yaml:"host" env:"STORY_REDIS_HOST"`
	Port      int    `yaml:"port" env:"STORY_REDIS_PORT"`
	Password  string `yaml:"password" env:"STORY_REDIS_PASSWORD"`
	DB        int    `yaml:"db"`
	PoolSize  int    `yaml:"pool_size"`
	KeyPrefix string `yaml:"key_prefix"`
}

type GeolocationConfig struct {
	Timeout time.Duration `yaml:"timeout"`
	// Static, when set, is served as the device position
	Static *StaticPosition `yaml:"static"`
}

type StaticPosition struct {
	Lat      float64 `yaml:"lat"`
	Lon      float64 `yaml:"lon"`
	Accuracy float64 `yaml:"accuracy"`
}

type SyncConfig struct {
	// Interval of the background sync; zero disables it
	Interval time.Duration `yaml:"interval" env:"STORY_SYNC_INTERVAL"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" env:"STORY_LOG_LEVEL"`
	Format string `yaml:"format" env:"STORY_LOG_FORMAT"`
}

// Load reads configuration from a YAML file, applies environment overrides and defaults.
// A missing file is not an error; the configuration then comes from env and defaults.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Apply environment variable overrides
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse env: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = defaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = defaultPort
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = defaultAPIBaseURL
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = defaultAPITimeout
	}
	if c.API.PageSize <= 0 {
		c.API.PageSize = defaultPageSize
	}
	if c.API.MaxPhotoBytes <= 0 {
		c.API.MaxPhotoBytes = defaultMaxPhotoBytes
	}
	if c.Cache.Driver == "" {
		c.Cache.Driver = defaultCacheDriver
	}
	if c.Database.SQLite.Path == "" {
		c.Database.SQLite.Path = defaultSQLitePath
	}
	if c.Geolocation.Timeout <= 0 {
		c.Geolocation.Timeout = defaultGeolocationTimeout
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}

// Validate checks values that defaults cannot repair
func (c *Config) Validate() error {
	switch c.Cache.Driver {
	case DriverSQLite, DriverMemory, DriverRedis, DriverMySQL:
	default:
		return fmt.Errorf("unknown cache driver %q", c.Cache.Driver)
	}
	if c.Sync.Interval < 0 {
		return fmt.Errorf("sync interval must not be negative")
	}
	return nil
}

// Durable reports whether the configured cache survives a restart
func (c *Config) Durable() bool {
	return c.Cache.Driver != DriverMemory
}
