package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/kapu/famescale/internal/domain"
	"github.com/kapu/famescale/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "famescale:"

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// RedisStore keeps the cached collection under a single Redis key with no expiry.
type RedisStore struct {
	client *redis.Client
	key    string
	logger *zap.Logger
}

func NewRedisStore(cfg RedisConfig, slot string, logger *zap.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     4,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.NewCacheError("failed to connect to Redis", "ping", "", err)
	}

	logger.Info("Redis connected",
		zap.String("addr", fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)),
		zap.Int("db", cfg.DB),
	)

	return NewRedisStoreWithClient(client, slot, logger), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client, slot string, logger *zap.Logger) *RedisStore {
	return &RedisStore{
		client: client,
		key:    keyPrefix + slot,
		logger: logger,
	}
}

func (s *RedisStore) Read(ctx context.Context) ([]*domain.FameRecord, bool, error) {
	value, err := s.client.Get(ctx, s.key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		s.logger.Error("Cache get failed", zap.String("key", s.key), zap.Error(err))
		return nil, false, errors.NewCacheError("get failed", "get", s.key, err)
	}

	records, err := Decode(value)
	if err != nil {
		s.logger.Error("Cache unmarshal failed", zap.String("key", s.key), zap.Error(err))
		return nil, false, errors.NewCacheError("unmarshal failed", "get", s.key, err)
	}
	return records, true, nil
}

func (s *RedisStore) Write(ctx context.Context, records []*domain.FameRecord) error {
	payload, err := Encode(records)
	if err != nil {
		return errors.NewCacheError("marshal failed", "set", s.key, err)
	}

	if err := s.client.Set(ctx, s.key, payload, 0).Err(); err != nil {
		s.logger.Error("Cache set failed", zap.String("key", s.key), zap.Error(err))
		return errors.NewCacheError("set failed", "set", s.key, err)
	}
	return nil
}

func (s *RedisStore) Key() string {
	return s.key
}

func (s *RedisStore) Close() error {
	if err := s.client.Close(); err != nil {
		s.logger.Error("Failed to close Redis connection", zap.Error(err))
		return err
	}
	s.logger.Info("Redis disconnected")
	return nil
}
