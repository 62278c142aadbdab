package cache

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/stellarsupply/fulfillment-gateway/internal/domain/fulfillment"
	"github.com/stellarsupply/fulfillment-gateway/internal/infrastructure/config"
)

// ReferenceCacheFactory creates reference caches based on configuration
type ReferenceCacheFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// ReferenceCacheFactoryOption is a functional option for configuring the factory
type ReferenceCacheFactoryOption func(*ReferenceCacheFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) ReferenceCacheFactoryOption {
	return func(f *ReferenceCacheFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to the in-memory cache
// when Redis is unavailable. Default is true.
func WithInMemoryFallback(allow bool) ReferenceCacheFactoryOption {
	return func(f *ReferenceCacheFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewReferenceCacheFactory creates a new factory
func NewReferenceCacheFactory(cfg config.RedisConfig, opts ...ReferenceCacheFactoryOption) *ReferenceCacheFactory {
	f := &ReferenceCacheFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateRedisCache creates a Redis-backed reference cache
func (f *ReferenceCacheFactory) CreateRedisCache() (fulfillment.ReferenceCache, error) {
	cache, err := NewRedisReferenceCache(RedisConfig{
		Addr:     f.redisConfig.RedisAddr(),
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
		TTL:      f.redisConfig.ReferenceTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis reference cache: %w", err)
	}
	return cache, nil
}

// CreateInMemoryCache creates an in-memory reference cache.
// WARNING: in-memory caches do not share state across process instances.
func (f *ReferenceCacheFactory) CreateInMemoryCache() fulfillment.ReferenceCache {
	return NewInMemoryReferenceCache(f.redisConfig.ReferenceTTL)
}

// CreateCache tries Redis first and falls back to in-memory when Redis is
// unavailable and fallback is allowed. Reference data is small and cheap to
// refetch, so a degraded cache beats a failed startup.
func (f *ReferenceCacheFactory) CreateCache() (fulfillment.ReferenceCache, error) {
	cache, err := f.CreateRedisCache()
	if err == nil {
		f.logger.Info("using Redis reference cache",
			zap.String("addr", f.redisConfig.RedisAddr()),
		)
		return cache, nil
	}

	if !f.allowInMemoryFallback {
		return nil, err
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory reference cache",
		zap.Error(err),
	)
	return f.CreateInMemoryCache(), nil
}
