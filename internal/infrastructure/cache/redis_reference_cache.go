package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stellarsupply/fulfillment-gateway/internal/domain/fulfillment"
)

const (
	paymentMethodsKey       = "reference:payment_methods"
	shippingInstructionsKey = "reference:shipping_instructions"
)

// RedisReferenceCache implements fulfillment.ReferenceCache using Redis.
// This is suitable for distributed deployments where multiple instances
// should share one view of the upstream reference data.
type RedisReferenceCache struct {
	client *redis.Client
	ttl    time.Duration
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// TTL bounds how long cached reference data is served before the next
	// caller refreshes it from upstream.
	TTL time.Duration
}

// NewRedisReferenceCache creates a new Redis-backed reference cache
func NewRedisReferenceCache(cfg RedisConfig) (*RedisReferenceCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisReferenceCacheWithClient(client, cfg.TTL), nil
}

// NewRedisReferenceCacheWithClient creates a cache with an existing Redis
// client, useful for testing or when sharing a client across components.
func NewRedisReferenceCacheWithClient(client *redis.Client, ttl time.Duration) *RedisReferenceCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisReferenceCache{client: client, ttl: ttl}
}

// GetPaymentMethods returns the cached payment methods, if present.
func (c *RedisReferenceCache) GetPaymentMethods(ctx context.Context) ([]fulfillment.PaymentMethod, bool, error) {
	var methods []fulfillment.PaymentMethod
	ok, err := c.get(ctx, paymentMethodsKey, &methods)
	return methods, ok, err
}

// SetPaymentMethods stores the payment methods with the configured TTL.
func (c *RedisReferenceCache) SetPaymentMethods(ctx context.Context, methods []fulfillment.PaymentMethod) error {
	return c.set(ctx, paymentMethodsKey, methods)
}

// GetShippingInstructions returns the cached shipping instructions, if present.
func (c *RedisReferenceCache) GetShippingInstructions(ctx context.Context) ([]fulfillment.ShippingInstruction, bool, error) {
	var instructions []fulfillment.ShippingInstruction
	ok, err := c.get(ctx, shippingInstructionsKey, &instructions)
	return instructions, ok, err
}

// SetShippingInstructions stores the shipping instructions with the configured TTL.
func (c *RedisReferenceCache) SetShippingInstructions(ctx context.Context, instructions []fulfillment.ShippingInstruction) error {
	return c.set(ctx, shippingInstructionsKey, instructions)
}

func (c *RedisReferenceCache) get(ctx context.Context, key string, dst any) (bool, error) {
	payload, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		// A corrupted entry is treated as a miss; the next Set overwrites it.
		return false, nil
	}
	return true, nil
}

func (c *RedisReferenceCache) set(ctx context.Context, key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

var _ fulfillment.ReferenceCache = (*RedisReferenceCache)(nil)
