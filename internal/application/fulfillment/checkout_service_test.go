package fulfillment

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stellarsupply/fulfillment-gateway/internal/domain/fulfillment"
)

func newCheckoutForTest(gw *fakeGateway, repo *fakeRepo, cache *fakeCache) *CheckoutService {
	return NewCheckoutService(gw, repo, cache, CheckoutConfig{
		Mode:                        fulfillment.OrderModeOrder,
		RequiredShippingInstruction: "Ship Complete - Hold For Pickup",
	}, zap.NewNop())
}

func validInput() PlaceOrderInput {
	return PlaceOrderInput{
		CustomerRef:     "cust-42",
		Email:           "ada@example.com",
		Items:           testItems(),
		ShippingAddress: testAddress(),
		PaymentMethodID: "5",
	}
}

func TestPlaceOrder_Success(t *testing.T) {
	gw := &fakeGateway{}
	repo := newFakeRepo()
	svc := newCheckoutForTest(gw, repo, &fakeCache{})

	var captured *fulfillment.CreateOrderRequest
	gw.createOrderFn = func(ctx context.Context, req *fulfillment.CreateOrderRequest) (*fulfillment.CreateOrderResult, error) {
		captured = req
		return &fulfillment.CreateOrderResult{
			UpstreamOrderID: "SO-1001",
			TransactionID:   "TX-1001",
			Status:          fulfillment.RawStatusPendingFulfillment,
		}, nil
	}

	order, err := svc.PlaceOrder(context.Background(), validInput())
	require.NoError(t, err)
	require.NotNil(t, captured)

	assert.Equal(t, "5", captured.PaymentMethodID)
	assert.Equal(t, "11", captured.ShippingInstructionID)
	assert.Equal(t, fulfillment.OrderModeOrder, captured.Mode)
	assert.Equal(t, "Ada Lovelace", captured.ShippingAddress.Addressee)
	assert.Equal(t, fulfillment.DefaultCountry, captured.ShippingAddress.Country)

	assert.Equal(t, "SO-1001", order.UpstreamOrderID)
	assert.Equal(t, "TX-1001", order.UpstreamTransactionID)
	assert.Equal(t, fulfillment.RawStatusPendingFulfillment, order.UpstreamStatus)
	assert.Equal(t, fulfillment.LocalStatusProcessing, order.LocalStatus)

	stored := repo.get(order.ID)
	require.NotNil(t, stored)
	assert.Equal(t, "SO-1001", stored.UpstreamOrderID)
}

func TestPlaceOrder_IncompleteAddressNeverReachesUpstream(t *testing.T) {
	gw := &fakeGateway{}
	repo := newFakeRepo()
	svc := newCheckoutForTest(gw, repo, &fakeCache{})

	in := validInput()
	in.ShippingAddress.City = ""
	in.ShippingAddress.Zip = ""

	_, err := svc.PlaceOrder(context.Background(), in)
	require.Error(t, err)
	assert.True(t, fulfillment.IsValidationFailure(err))

	var ve *fulfillment.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.ElementsMatch(t, []string{"city", "zip"}, ve.Fields)

	assert.Zero(t, gw.callCount("CreateOrder"))
	assert.Empty(t, repo.orders)
}

func TestPlaceOrder_MissingTopLevelFields(t *testing.T) {
	svc := newCheckoutForTest(&fakeGateway{}, newFakeRepo(), &fakeCache{})

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderInput{ShippingAddress: testAddress()})
	require.Error(t, err)

	var ve *fulfillment.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.ElementsMatch(t, []string{"email", "items", "paymentMethodId"}, ve.Fields)
}

func TestPlaceOrder_UnknownPaymentMethod(t *testing.T) {
	gw := &fakeGateway{}
	svc := newCheckoutForTest(gw, newFakeRepo(), &fakeCache{})

	in := validInput()
	in.PaymentMethodID = "999"

	_, err := svc.PlaceOrder(context.Background(), in)
	assert.ErrorIs(t, err, fulfillment.ErrPaymentMethodNotFound)
	assert.Zero(t, gw.callCount("CreateOrder"))
}

func TestPlaceOrder_RequiredInstructionMissingUpstream(t *testing.T) {
	gw := &fakeGateway{
		instructionsFn: func(ctx context.Context) ([]fulfillment.ShippingInstruction, error) {
			return []fulfillment.ShippingInstruction{{ID: "12", Name: "Ship Partial"}}, nil
		},
	}
	svc := newCheckoutForTest(gw, newFakeRepo(), &fakeCache{})

	_, err := svc.PlaceOrder(context.Background(), validInput())
	assert.ErrorIs(t, err, fulfillment.ErrInstructionNotFound)
	assert.Zero(t, gw.callCount("CreateOrder"))
}

func TestPlaceOrder_UpstreamFailureRecordedOnOrder(t *testing.T) {
	gw := &fakeGateway{
		createOrderFn: func(ctx context.Context, req *fulfillment.CreateOrderRequest) (*fulfillment.CreateOrderResult, error) {
			return nil, fulfillment.ErrUpstreamUnavailable
		},
	}
	repo := newFakeRepo()
	svc := newCheckoutForTest(gw, repo, &fakeCache{})

	order, err := svc.PlaceOrder(context.Background(), validInput())
	require.Error(t, err)
	assert.ErrorIs(t, err, fulfillment.ErrUpstreamUnavailable)
	require.NotNil(t, order)

	stored := repo.get(order.ID)
	require.NotNil(t, stored)
	assert.Empty(t, stored.UpstreamOrderID)
	assert.NotEmpty(t, stored.LastError)
	assert.NotNil(t, stored.LastErrorAt)
}

func TestPlaceOrder_QuoteModePassedThrough(t *testing.T) {
	gw := &fakeGateway{}
	var captured fulfillment.OrderMode
	gw.createOrderFn = func(ctx context.Context, req *fulfillment.CreateOrderRequest) (*fulfillment.CreateOrderResult, error) {
		captured = req.Mode
		return &fulfillment.CreateOrderResult{UpstreamOrderID: "Q-7", Status: "Quote Open"}, nil
	}
	svc := NewCheckoutService(gw, newFakeRepo(), &fakeCache{}, CheckoutConfig{
		Mode:                        fulfillment.OrderModeQuote,
		RequiredShippingInstruction: "Ship Complete - Hold For Pickup",
	}, zap.NewNop())

	_, err := svc.PlaceOrder(context.Background(), validInput())
	require.NoError(t, err)
	assert.Equal(t, fulfillment.OrderModeQuote, captured)
}

func TestPaymentMethods_CacheHitSkipsUpstream(t *testing.T) {
	gw := &fakeGateway{}
	cache := &fakeCache{methods: []fulfillment.PaymentMethod{{ID: "5", Title: "Net 30"}}}
	svc := newCheckoutForTest(gw, newFakeRepo(), cache)

	methods, err := svc.PaymentMethods(context.Background())
	require.NoError(t, err)
	assert.Len(t, methods, 1)
	assert.Zero(t, gw.callCount("FetchPaymentMethods"))
}

func TestPaymentMethods_CacheMissWarmsCache(t *testing.T) {
	gw := &fakeGateway{}
	cache := &fakeCache{}
	svc := newCheckoutForTest(gw, newFakeRepo(), cache)

	_, err := svc.PaymentMethods(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, gw.callCount("FetchPaymentMethods"))

	_, err = svc.PaymentMethods(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, gw.callCount("FetchPaymentMethods"), "second read should be served from cache")
}

func TestPaymentMethods_CacheFailureFallsThrough(t *testing.T) {
	gw := &fakeGateway{}
	cache := &fakeCache{getErr: errors.New("redis: connection refused"), setErr: errors.New("redis: connection refused")}
	svc := newCheckoutForTest(gw, newFakeRepo(), cache)

	methods, err := svc.PaymentMethods(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, methods)
	assert.Equal(t, 1, gw.callCount("FetchPaymentMethods"))
}

func TestRefreshOrder_AppliesSnapshot(t *testing.T) {
	gw := &fakeGateway{
		fetchStatusFn: func(ctx context.Context, id string) (*fulfillment.OrderSnapshot, error) {
			return &fulfillment.OrderSnapshot{
				Status:          fulfillment.RawStatusFulfillmentComplete,
				TrackingNumbers: []string{"1Z999"},
			}, nil
		},
	}
	repo := newFakeRepo()
	svc := newCheckoutForTest(gw, repo, &fakeCache{})

	order := fulfillment.NewOrderRecord("cust-42", "ada@example.com", testItems(), testAddress(), "5")
	require.NoError(t, order.AssignUpstream("SO-1001", "TX-1001"))
	repo.put(order)

	refreshed, err := svc.RefreshOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, fulfillment.LocalStatusShipped, refreshed.LocalStatus)
	assert.Equal(t, []string{"1Z999"}, refreshed.TrackingNumbers)
	assert.NotNil(t, refreshed.LastSyncedAt)

	stored := repo.get(order.ID)
	assert.Equal(t, fulfillment.LocalStatusShipped, stored.LocalStatus)
}

func TestRefreshOrder_NeverSubmitted(t *testing.T) {
	repo := newFakeRepo()
	svc := newCheckoutForTest(&fakeGateway{}, repo, &fakeCache{})

	order := fulfillment.NewOrderRecord("cust-42", "ada@example.com", testItems(), testAddress(), "5")
	repo.put(order)

	_, err := svc.RefreshOrder(context.Background(), order.ID)
	assert.ErrorIs(t, err, fulfillment.ErrOrderMissingUpstreamID)
}

func TestRefreshOrder_FetchFailureReturnsStaleRecord(t *testing.T) {
	gw := &fakeGateway{
		fetchStatusFn: func(ctx context.Context, id string) (*fulfillment.OrderSnapshot, error) {
			return nil, fulfillment.ErrUpstreamUnavailable
		},
	}
	repo := newFakeRepo()
	svc := newCheckoutForTest(gw, repo, &fakeCache{})

	order := fulfillment.NewOrderRecord("cust-42", "ada@example.com", testItems(), testAddress(), "5")
	require.NoError(t, order.AssignUpstream("SO-1001", ""))
	order.UpstreamStatus = fulfillment.RawStatusPendingFulfillment
	repo.put(order)

	stale, err := svc.RefreshOrder(context.Background(), order.ID)
	require.Error(t, err)
	require.NotNil(t, stale)
	assert.Equal(t, fulfillment.RawStatusPendingFulfillment, stale.UpstreamStatus)
	assert.NotEmpty(t, stale.LastError)
}

func TestGetOrder_NotFound(t *testing.T) {
	svc := newCheckoutForTest(&fakeGateway{}, newFakeRepo(), &fakeCache{})

	order := fulfillment.NewOrderRecord("cust-42", "ada@example.com", testItems(), testAddress(), "5")
	_, err := svc.GetOrder(context.Background(), order.ID)
	assert.ErrorIs(t, err, fulfillment.ErrOrderRecordNotFound)
}
