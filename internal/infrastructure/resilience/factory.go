package resilience

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dealerdesk/backend/internal/infrastructure/config"
)

// CacheFactory creates result caches based on configuration
type CacheFactory struct {
	redisConfig     config.RedisConfig
	cleanupInterval time.Duration
	logger          *zap.Logger
	allowFallback   bool
}

// CacheFactoryOption is a functional option for configuring the factory
type CacheFactoryOption func(*CacheFactory)

// WithFactoryLogger sets the logger for the factory
func WithFactoryLogger(logger *zap.Logger) CacheFactoryOption {
	return func(f *CacheFactory) {
		f.logger = logger
	}
}

// WithMemoryFallback controls whether to fall back to an in-memory cache
// when Redis is unavailable. Default is true.
func WithMemoryFallback(allow bool) CacheFactoryOption {
	return func(f *CacheFactory) {
		f.allowFallback = allow
	}
}

// NewCacheFactory creates a new factory
func NewCacheFactory(redisCfg config.RedisConfig, cleanupInterval time.Duration, opts ...CacheFactoryOption) *CacheFactory {
	f := &CacheFactory{
		redisConfig:     redisCfg,
		cleanupInterval: cleanupInterval,
		logger:          zap.NewNop(),
		allowFallback:   true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateRedisCache creates a Redis-backed result cache, verifying
// connectivity before returning it
func (f *CacheFactory) CreateRedisCache() (ResultCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     f.redisConfig.Addr(),
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisCache(client, f.logger), nil
}

// CreateMemoryCache creates an in-process result cache.
// In-memory caches do not share state across instances, so distributed
// deployments will re-fetch the same upstream data per instance.
func (f *CacheFactory) CreateMemoryCache() ResultCache {
	return NewMemoryCache(f.cleanupInterval, WithMemoryCacheLogger(f.logger))
}

// CreateCache creates a result cache based on whether Redis is enabled and
// reachable, falling back to in-memory when allowed
func (f *CacheFactory) CreateCache() (ResultCache, error) {
	if !f.redisConfig.Enabled {
		f.logger.Info("Redis disabled, using in-memory result cache")
		return f.CreateMemoryCache(), nil
	}

	cache, err := f.CreateRedisCache()
	if err == nil {
		f.logger.Info("using Redis result cache")
		return cache, nil
	}

	if !f.allowFallback {
		return nil, fmt.Errorf("Redis required for result cache but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory result cache. "+
		"Cached upstream results will not be shared across instances.",
		zap.Error(err),
	)
	return f.CreateMemoryCache(), nil
}
