package fulfillment

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stellarsupply/fulfillment-gateway/internal/domain/fulfillment"
)

// ---------------------------------------------------------------------------
// Test doubles
// ---------------------------------------------------------------------------

type fakeGateway struct {
	paymentMethodsFn      func(ctx context.Context) ([]fulfillment.PaymentMethod, error)
	instructionsFn        func(ctx context.Context) ([]fulfillment.ShippingInstruction, error)
	requiredInstructionFn func(ctx context.Context) (fulfillment.ShippingInstruction, error)
	createOrderFn         func(ctx context.Context, req *fulfillment.CreateOrderRequest) (*fulfillment.CreateOrderResult, error)
	fetchStatusFn         func(ctx context.Context, id string) (*fulfillment.OrderSnapshot, error)
	updateOrderFn         func(ctx context.Context, id string, update fulfillment.OrderUpdate) (string, error)

	mu    sync.Mutex
	calls []string
}

func (g *fakeGateway) record(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, name)
}

func (g *fakeGateway) callCount(name string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, c := range g.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (g *fakeGateway) FetchPaymentMethods(ctx context.Context) ([]fulfillment.PaymentMethod, error) {
	g.record("FetchPaymentMethods")
	if g.paymentMethodsFn != nil {
		return g.paymentMethodsFn(ctx)
	}
	return []fulfillment.PaymentMethod{{ID: "5", Title: "Net 30"}}, nil
}

func (g *fakeGateway) FetchShippingInstructions(ctx context.Context) ([]fulfillment.ShippingInstruction, error) {
	g.record("FetchShippingInstructions")
	if g.instructionsFn != nil {
		return g.instructionsFn(ctx)
	}
	return []fulfillment.ShippingInstruction{
		{ID: "11", Name: "Ship Complete - Hold For Pickup"},
		{ID: "12", Name: "Ship Partial"},
	}, nil
}

func (g *fakeGateway) RequiredShippingInstruction(ctx context.Context) (fulfillment.ShippingInstruction, error) {
	g.record("RequiredShippingInstruction")
	if g.requiredInstructionFn != nil {
		return g.requiredInstructionFn(ctx)
	}
	return fulfillment.ShippingInstruction{ID: "11", Name: "Ship Complete - Hold For Pickup"}, nil
}

func (g *fakeGateway) CreateOrder(ctx context.Context, req *fulfillment.CreateOrderRequest) (*fulfillment.CreateOrderResult, error) {
	g.record("CreateOrder")
	if g.createOrderFn != nil {
		return g.createOrderFn(ctx, req)
	}
	return &fulfillment.CreateOrderResult{
		UpstreamOrderID: "SO-1001",
		TransactionID:   "TX-1001",
		Status:          fulfillment.RawStatusPendingFulfillment,
	}, nil
}

func (g *fakeGateway) FetchStatus(ctx context.Context, id string) (*fulfillment.OrderSnapshot, error) {
	g.record("FetchStatus")
	if g.fetchStatusFn != nil {
		return g.fetchStatusFn(ctx, id)
	}
	return &fulfillment.OrderSnapshot{Status: fulfillment.RawStatusPendingFulfillment}, nil
}

func (g *fakeGateway) UpdateOrder(ctx context.Context, id string, update fulfillment.OrderUpdate) (string, error) {
	g.record("UpdateOrder")
	if g.updateOrderFn != nil {
		return g.updateOrderFn(ctx, id, update)
	}
	return "", nil
}

var _ fulfillment.UpstreamGateway = (*fakeGateway)(nil)

type fakeRepo struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*fulfillment.OrderRecord

	createErr error
	updateErr error
	findErr   error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{orders: make(map[uuid.UUID]*fulfillment.OrderRecord)}
}

func (r *fakeRepo) put(order *fulfillment.OrderRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *order
	r.orders[order.ID] = &copied
}

func (r *fakeRepo) get(id uuid.UUID) *fulfillment.OrderRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok := r.orders[id]; ok {
		copied := *o
		return &copied
	}
	return nil
}

func (r *fakeRepo) Create(ctx context.Context, order *fulfillment.OrderRecord) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.put(order)
	return nil
}

func (r *fakeRepo) Update(ctx context.Context, order *fulfillment.OrderRecord) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	r.put(order)
	return nil
}

func (r *fakeRepo) FindByID(ctx context.Context, id uuid.UUID) (*fulfillment.OrderRecord, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	if o := r.get(id); o != nil {
		return o, nil
	}
	return nil, fulfillment.ErrOrderRecordNotFound
}

func (r *fakeRepo) FindRecentSubmitted(ctx context.Context, cutoff time.Time, limit int) ([]fulfillment.OrderRecord, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]fulfillment.OrderRecord, 0)
	for _, o := range r.orders {
		if o.UpstreamOrderID != "" && o.CreatedAt.After(cutoff) {
			out = append(out, *o)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *fakeRepo) FindByUpstreamStatus(ctx context.Context, status string, limit int) ([]fulfillment.OrderRecord, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]fulfillment.OrderRecord, 0)
	for _, o := range r.orders {
		if o.UpstreamStatus == status {
			out = append(out, *o)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

var _ fulfillment.OrderRepository = (*fakeRepo)(nil)

type fakeCache struct {
	mu           sync.Mutex
	methods      []fulfillment.PaymentMethod
	instructions []fulfillment.ShippingInstruction
	getErr       error
	setErr       error
}

func (c *fakeCache) GetPaymentMethods(ctx context.Context) ([]fulfillment.PaymentMethod, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	if c.methods == nil {
		return nil, false, nil
	}
	return c.methods, true, nil
}

func (c *fakeCache) SetPaymentMethods(ctx context.Context, methods []fulfillment.PaymentMethod) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	c.methods = methods
	return nil
}

func (c *fakeCache) GetShippingInstructions(ctx context.Context) ([]fulfillment.ShippingInstruction, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	if c.instructions == nil {
		return nil, false, nil
	}
	return c.instructions, true, nil
}

func (c *fakeCache) SetShippingInstructions(ctx context.Context, instructions []fulfillment.ShippingInstruction) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	c.instructions = instructions
	return nil
}

var _ fulfillment.ReferenceCache = (*fakeCache)(nil)

// ---------------------------------------------------------------------------
// Fixture helpers
// ---------------------------------------------------------------------------

func testItems() []fulfillment.LineItem {
	return []fulfillment.LineItem{
		{SKU: "WIDGET-1", Quantity: 2, UnitPrice: decimal.NewFromFloat(9.99), Total: decimal.NewFromFloat(19.98)},
	}
}

func testAddress() fulfillment.AddressInput {
	return fulfillment.AddressInput{
		FullName: "Ada Lovelace",
		Line1:    "12 Analytical Way",
		City:     "Portland",
		State:    "OR",
		Zip:      "97201",
	}
}

func noThrottle() *Throttle {
	return NewThrottle(0)
}

func countingThrottle(count *int) *Throttle {
	return NewThrottleWithSleep(time.Millisecond, func(ctx context.Context, d time.Duration) error {
		*count++
		return nil
	})
}
