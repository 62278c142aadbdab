package cache

import (
	"context"
	"sync"
	"time"

	"github.com/stellarsupply/fulfillment-gateway/internal/domain/fulfillment"
)

// InMemoryReferenceCache implements fulfillment.ReferenceCache using process
// memory. This is suitable for single-instance deployments and testing.
type InMemoryReferenceCache struct {
	mu  sync.RWMutex
	ttl time.Duration
	now func() time.Time

	methods             []fulfillment.PaymentMethod
	methodsExpiresAt    time.Time
	instructions        []fulfillment.ShippingInstruction
	instructionsExpires time.Time
}

// NewInMemoryReferenceCache creates a new in-memory reference cache
func NewInMemoryReferenceCache(ttl time.Duration) *InMemoryReferenceCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &InMemoryReferenceCache{ttl: ttl, now: time.Now}
}

// GetPaymentMethods returns the cached payment methods, if present and fresh.
func (c *InMemoryReferenceCache) GetPaymentMethods(ctx context.Context) ([]fulfillment.PaymentMethod, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.methods == nil || c.now().After(c.methodsExpiresAt) {
		return nil, false, nil
	}
	out := make([]fulfillment.PaymentMethod, len(c.methods))
	copy(out, c.methods)
	return out, true, nil
}

// SetPaymentMethods stores the payment methods with the configured TTL.
func (c *InMemoryReferenceCache) SetPaymentMethods(ctx context.Context, methods []fulfillment.PaymentMethod) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.methods = make([]fulfillment.PaymentMethod, len(methods))
	copy(c.methods, methods)
	c.methodsExpiresAt = c.now().Add(c.ttl)
	return nil
}

// GetShippingInstructions returns the cached instructions, if present and fresh.
func (c *InMemoryReferenceCache) GetShippingInstructions(ctx context.Context) ([]fulfillment.ShippingInstruction, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.instructions == nil || c.now().After(c.instructionsExpires) {
		return nil, false, nil
	}
	out := make([]fulfillment.ShippingInstruction, len(c.instructions))
	copy(out, c.instructions)
	return out, true, nil
}

// SetShippingInstructions stores the instructions with the configured TTL.
func (c *InMemoryReferenceCache) SetShippingInstructions(ctx context.Context, instructions []fulfillment.ShippingInstruction) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.instructions = make([]fulfillment.ShippingInstruction, len(instructions))
	copy(c.instructions, instructions)
	c.instructionsExpires = c.now().Add(c.ttl)
	return nil
}

var _ fulfillment.ReferenceCache = (*InMemoryReferenceCache)(nil)
