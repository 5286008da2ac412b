package app

import (
	"context"
	"fmt"

	"github.com/kapu/famescale/internal/adapter"
	"github.com/kapu/famescale/internal/config"
	"github.com/kapu/famescale/internal/constants"
	"github.com/kapu/famescale/internal/domain"
	"github.com/kapu/famescale/internal/fame"
	"github.com/kapu/famescale/internal/server"
	"github.com/kapu/famescale/internal/service/cache"
	"github.com/kapu/famescale/internal/service/database"
	"github.com/kapu/famescale/internal/source"
	"github.com/kapu/famescale/internal/util"
	"go.uber.org/zap"
)

// Container bundles assembled services for the CLI commands.
type Container struct {
	Config    *config.Config
	Logger    *zap.Logger
	Service   *fame.Service
	Formatter *adapter.Formatter

	closers []func()
}

// NewServer wires the HTTP server around the fame service.
func (c *Container) NewServer() *server.Server {
	return server.New(c.Service, c.Logger)
}

// Close releases cache connections in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

// Build assembles the loader, cache backend, parser and service.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (container *Container, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var closers []func()
	defer func() {
		if err != nil {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		}
	}()

	categories, err := domain.LoadCategoriesFile(cfg.Source.CategoriesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}

	breaker := util.NewCircuitBreaker("fame_source",
		constants.CircuitBreakerConfig.FailureThreshold,
		constants.CircuitBreakerConfig.ResetTimeout,
		logger,
	)
	loader, err := source.NewLoader(cfg.Source.URL, cfg.Source.Timeout, logger, source.WithCircuitBreaker(breaker))
	if err != nil {
		return nil, fmt.Errorf("failed to create source loader: %w", err)
	}

	store, storeClosers, err := buildStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	closers = append(closers, storeClosers...)

	parser := fame.NewParser(store, logger)
	svc := fame.NewService(loader, parser, categories, logger)

	logger.Info("Fame service assembled",
		zap.String("source", loader.URL()),
		zap.String("cache_backend", cfg.Cache.Backend),
		zap.Int("categories", len(categories)),
	)

	return &Container{
		Config:    cfg,
		Logger:    logger,
		Service:   svc,
		Formatter: adapter.NewFormatter(constants.StringLimits.Description),
		closers:   closers,
	}, nil
}

func buildStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (cache.Store, []func(), error) {
	switch cfg.Cache.Backend {
	case config.BackendMemory:
		return cache.NewMemoryStore(), nil, nil

	case config.BackendRedis:
		store, err := cache.NewRedisStore(cache.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, cfg.Cache.Key, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create redis store: %w", err)
		}
		return store, []func(){func() { _ = store.Close() }}, nil

	case config.BackendPostgres, config.BackendSQLite:
		var (
			db  *database.DB
			err error
		)
		if cfg.Cache.Backend == config.BackendPostgres {
			db, err = database.OpenPostgres(database.PostgresConfig{
				Host:     cfg.Postgres.Host,
				Port:     cfg.Postgres.Port,
				User:     cfg.Postgres.User,
				Password: cfg.Postgres.Password,
				Database: cfg.Postgres.Database,
			}, logger)
		} else {
			db, err = database.OpenSQLite(cfg.SQLite.Path, logger)
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open %s: %w", cfg.Cache.Backend, err)
		}
		closers := []func(){func() { _ = db.Close() }}

		store, err := database.NewSnapshotStore(ctx, db, cfg.Cache.Key, logger)
		if err != nil {
			closers[0]()
			return nil, nil, fmt.Errorf("failed to create snapshot store: %w", err)
		}
		return store, closers, nil

	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}
