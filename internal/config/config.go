package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kapu/famescale/internal/constants"
	"github.com/kapu/famescale/pkg/errors"
)

// Cache backends
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

type Config struct {
	Source   SourceConfig
	Cache    CacheConfig
	Redis    RedisConfig
	Postgres PostgresConfig
	SQLite   SQLiteConfig
	Server   ServerConfig
	Logging  LoggingConfig
}

type SourceConfig struct {
	URL            string
	Timeout        time.Duration
	CategoriesFile string
}

type CacheConfig struct {
	Backend string
	Key     string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

type SQLiteConfig struct {
	Path string
}

type ServerConfig struct {
	Addr            string
	RefreshInterval time.Duration
}

type LoggingConfig struct {
	Level string
	File  string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Source: SourceConfig{
			URL:            getEnv("FAME_SOURCE_URL", constants.SourceConfig.DefaultURL),
			Timeout:        time.Duration(getEnvInt("FAME_HTTP_TIMEOUT_SECONDS", int(constants.SourceConfig.Timeout/time.Second))) * time.Second,
			CategoriesFile: getEnv("CATEGORIES_FILE", ""),
		},
		Cache: CacheConfig{
			Backend: strings.ToLower(getEnv("CACHE_BACKEND", BackendSQLite)),
			Key:     getEnv("CACHE_KEY", constants.CacheConfig.DefaultSlot),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Postgres: PostgresConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnvInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "famescale"),
			Password: getEnv("POSTGRES_PASSWORD", ""),
			Database: getEnv("POSTGRES_DB", "famescale"),
		},
		SQLite: SQLiteConfig{
			Path: getEnv("SQLITE_PATH", "data/famescale.db"),
		},
		Server: ServerConfig{
			Addr:            getEnv("SERVER_ADDR", ":8080"),
			RefreshInterval: time.Duration(getEnvInt("REFRESH_INTERVAL_SECONDS", 300)) * time.Second,
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			File:  getEnv("LOG_FILE", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Source.URL) == "" {
		return errors.NewConfigError("FAME_SOURCE_URL is required", "FAME_SOURCE_URL", nil)
	}
	u, err := url.Parse(c.Source.URL)
	if err != nil {
		return errors.NewConfigError("FAME_SOURCE_URL is not a valid URL", "FAME_SOURCE_URL", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.NewConfigError("FAME_SOURCE_URL must be http or https", "FAME_SOURCE_URL", nil)
	}
	if c.Source.Timeout <= 0 {
		return errors.NewConfigError("FAME_HTTP_TIMEOUT_SECONDS must be positive", "FAME_HTTP_TIMEOUT_SECONDS", nil)
	}

	switch c.Cache.Backend {
	case BackendMemory, BackendRedis, BackendPostgres, BackendSQLite:
	default:
		return errors.NewConfigError(fmt.Sprintf("unknown CACHE_BACKEND %q", c.Cache.Backend), "CACHE_BACKEND", nil)
	}
	if strings.TrimSpace(c.Cache.Key) == "" {
		return errors.NewConfigError("CACHE_KEY is required", "CACHE_KEY", nil)
	}
	if c.Cache.Backend == BackendSQLite && strings.TrimSpace(c.SQLite.Path) == "" {
		return errors.NewConfigError("SQLITE_PATH is required for the sqlite backend", "SQLITE_PATH", nil)
	}

	if c.Server.RefreshInterval < 0 {
		return errors.NewConfigError("REFRESH_INTERVAL_SECONDS must not be negative", "REFRESH_INTERVAL_SECONDS", nil)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
