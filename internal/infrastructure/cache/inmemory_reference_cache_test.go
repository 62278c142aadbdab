package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stellarsupply/fulfillment-gateway/internal/domain/fulfillment"
)

func TestInMemoryReferenceCache_MissWhenEmpty(t *testing.T) {
	c := NewInMemoryReferenceCache(time.Hour)

	methods, ok, err := c.GetPaymentMethods(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, methods)

	instructions, ok, err := c.GetShippingInstructions(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, instructions)
}

func TestInMemoryReferenceCache_RoundTrip(t *testing.T) {
	c := NewInMemoryReferenceCache(time.Hour)
	ctx := context.Background()

	require.NoError(t, c.SetPaymentMethods(ctx, []fulfillment.PaymentMethod{{ID: "5", Title: "Net 30"}}))
	require.NoError(t, c.SetShippingInstructions(ctx, []fulfillment.ShippingInstruction{{ID: "11", Name: "Ship Complete - Hold For Pickup"}}))

	methods, ok, err := c.GetPaymentMethods(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Net 30", methods[0].Title)

	instructions, ok, err := c.GetShippingInstructions(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "11", instructions[0].ID)
}

func TestInMemoryReferenceCache_Expiry(t *testing.T) {
	c := NewInMemoryReferenceCache(time.Hour)
	ctx := context.Background()

	base := time.Now()
	c.now = func() time.Time { return base }
	require.NoError(t, c.SetPaymentMethods(ctx, []fulfillment.PaymentMethod{{ID: "5", Title: "Net 30"}}))

	c.now = func() time.Time { return base.Add(2 * time.Hour) }
	_, ok, err := c.GetPaymentMethods(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "entries past their TTL must read as misses")
}

func TestInMemoryReferenceCache_EmptyListIsAHit(t *testing.T) {
	c := NewInMemoryReferenceCache(time.Hour)
	ctx := context.Background()

	require.NoError(t, c.SetPaymentMethods(ctx, []fulfillment.PaymentMethod{}))

	methods, ok, err := c.GetPaymentMethods(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, methods)
}

func TestInMemoryReferenceCache_CopiesOnReadAndWrite(t *testing.T) {
	c := NewInMemoryReferenceCache(time.Hour)
	ctx := context.Background()

	src := []fulfillment.PaymentMethod{{ID: "5", Title: "Net 30"}}
	require.NoError(t, c.SetPaymentMethods(ctx, src))
	src[0].Title = "mutated"

	methods, ok, err := c.GetPaymentMethods(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Net 30", methods[0].Title)

	methods[0].Title = "mutated again"
	again, _, err := c.GetPaymentMethods(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Net 30", again[0].Title)
}
