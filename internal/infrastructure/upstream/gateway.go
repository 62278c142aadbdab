package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/stellarsupply/fulfillment-gateway/internal/domain/fulfillment"
)

// Upstream endpoint paths
const (
	pathPaymentMethods       = "/payment-methods"
	pathShippingInstructions = "/shipping-instructions"
	pathSalesOrderQuote      = "/sales-order-quote"
	pathSalesOrder           = "/sales-order"
)

// OrderGateway implements fulfillment.UpstreamGateway on top of the
// authenticated client.
type OrderGateway struct {
	client *Client
	cfg    *Config
	logger *zap.Logger
}

// NewOrderGateway creates a gateway with the given configuration.
func NewOrderGateway(cfg *Config, logger *zap.Logger) (*OrderGateway, error) {
	client, err := NewClient(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &OrderGateway{client: client, cfg: cfg, logger: logger}, nil
}

// NewOrderGatewayWithClient creates a gateway around an existing client,
// mainly for tests.
func NewOrderGatewayWithClient(client *Client, cfg *Config, logger *zap.Logger) *OrderGateway {
	return &OrderGateway{client: client, cfg: cfg, logger: logger}
}

// FetchPaymentMethods retrieves the upstream payment method list.
func (g *OrderGateway) FetchPaymentMethods(ctx context.Context) ([]fulfillment.PaymentMethod, error) {
	body, err := g.client.Do(ctx, http.MethodGet, pathPaymentMethods, nil)
	if err != nil {
		return nil, classify(err)
	}

	var payload []paymentMethodPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: payment methods: %v", fulfillment.ErrUpstreamInvalidResponse, err)
	}

	methods := make([]fulfillment.PaymentMethod, 0, len(payload))
	for _, p := range payload {
		if p.ID == "" {
			return nil, fmt.Errorf("%w: payment method without id", fulfillment.ErrUpstreamInvalidResponse)
		}
		methods = append(methods, fulfillment.PaymentMethod{ID: p.ID, Title: p.Title})
	}
	return methods, nil
}

// FetchShippingInstructions retrieves the upstream shipping instruction list.
func (g *OrderGateway) FetchShippingInstructions(ctx context.Context) ([]fulfillment.ShippingInstruction, error) {
	body, err := g.client.Do(ctx, http.MethodGet, pathShippingInstructions, nil)
	if err != nil {
		return nil, classify(err)
	}

	var payload []shippingInstructionPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: shipping instructions: %v", fulfillment.ErrUpstreamInvalidResponse, err)
	}

	instructions := make([]fulfillment.ShippingInstruction, 0, len(payload))
	for _, p := range payload {
		if p.ID == "" {
			return nil, fmt.Errorf("%w: shipping instruction without id", fulfillment.ErrUpstreamInvalidResponse)
		}
		instructions = append(instructions, fulfillment.ShippingInstruction{ID: p.ID, Name: p.Name})
	}
	return instructions, nil
}

// RequiredShippingInstruction fetches the instruction list and selects the
// configured entry by exact name.
func (g *OrderGateway) RequiredShippingInstruction(ctx context.Context) (fulfillment.ShippingInstruction, error) {
	list, err := g.FetchShippingInstructions(ctx)
	if err != nil {
		return fulfillment.ShippingInstruction{}, err
	}
	si, err := fulfillment.SelectRequiredInstruction(list, g.cfg.RequiredShippingInstruction)
	if err != nil {
		return fulfillment.ShippingInstruction{}, fmt.Errorf("%w: %q", err, g.cfg.RequiredShippingInstruction)
	}
	return si, nil
}

// CreateOrder submits a quote or a firm order. The mode selects the
// endpoint; the request shape is identical either way.
func (g *OrderGateway) CreateOrder(ctx context.Context, req *fulfillment.CreateOrderRequest) (*fulfillment.CreateOrderResult, error) {
	if len(req.Items) == 0 {
		return nil, fulfillment.NewValidationError("lineItems")
	}
	if req.PaymentMethodID == "" {
		return nil, fulfillment.NewValidationError("paymentMethodId")
	}

	path := pathSalesOrder
	if req.Mode == fulfillment.OrderModeQuote {
		path = pathSalesOrderQuote
	}

	items := make([]orderItemPayload, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, orderItemPayload{
			SKU:       it.SKU,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Total:     it.Total,
		})
	}

	payload := createOrderPayload{
		LineItems:             items,
		ShippingAddress:       req.ShippingAddress,
		Email:                 req.Email,
		PaymentMethodID:       req.PaymentMethodID,
		ShippingInstructionID: req.ShippingInstructionID,
	}

	body, err := g.client.Do(ctx, http.MethodPost, path, payload)
	if err != nil {
		return nil, classify(err)
	}

	var resp createOrderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: create order: %v", fulfillment.ErrUpstreamInvalidResponse, err)
	}
	orderID := resp.upstreamOrderID()
	if orderID == "" {
		return nil, fmt.Errorf("%w: create order response missing order identifier", fulfillment.ErrUpstreamInvalidResponse)
	}

	g.logger.Info("Upstream order created",
		zap.String("upstream_order_id", orderID),
		zap.String("mode", string(req.Mode)),
		zap.String("status", resp.Status),
	)

	return &fulfillment.CreateOrderResult{
		UpstreamOrderID: orderID,
		TransactionID:   resp.TransactionID,
		Status:          resp.Status,
		Amount:          resp.Amount,
		QuoteExpiration: parseUpstreamTime(resp.QuoteExpiration),
	}, nil
}

// FetchStatus retrieves a read-only snapshot of the live upstream order.
func (g *OrderGateway) FetchStatus(ctx context.Context, upstreamOrderID string) (*fulfillment.OrderSnapshot, error) {
	if upstreamOrderID == "" {
		return nil, fulfillment.ErrOrderMissingUpstreamID
	}

	body, err := g.client.Do(ctx, http.MethodGet, pathSalesOrder+"/"+upstreamOrderID, nil)
	if err != nil {
		return nil, classify(err)
	}

	var resp orderStatusResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: order status: %v", fulfillment.ErrUpstreamInvalidResponse, err)
	}
	if resp.Status == "" {
		return nil, fmt.Errorf("%w: order status response missing status", fulfillment.ErrUpstreamInvalidResponse)
	}

	fulfillments := make([]fulfillment.ItemFulfillment, 0, len(resp.ItemFulfillments))
	for _, f := range resp.ItemFulfillments {
		fulfillments = append(fulfillments, fulfillment.ItemFulfillment{
			SKU:            f.SKU,
			Quantity:       f.Quantity,
			TrackingNumber: f.TrackingNumber,
		})
	}

	tracking := resp.TrackingNumbers
	if tracking == nil {
		tracking = make([]string, 0)
	}

	return &fulfillment.OrderSnapshot{
		Status:          resp.Status,
		TransactionID:   resp.TransactionID,
		Amount:          resp.Amount,
		TransactionDate: parseUpstreamTime(resp.TransactionDate),
		TrackingNumbers: tracking,
		ShippingAddress: resp.ShippingAddress,
		Fulfillments:    fulfillments,
	}, nil
}

// UpdateOrder applies a partial update to an upstream order; only the
// supplied fields are changed. Returns the status from the response, which
// the upstream sometimes omits.
func (g *OrderGateway) UpdateOrder(ctx context.Context, upstreamOrderID string, update fulfillment.OrderUpdate) (string, error) {
	if upstreamOrderID == "" {
		return "", fulfillment.ErrOrderMissingUpstreamID
	}
	if update.IsEmpty() {
		return "", fmt.Errorf("upstream: refusing empty order update for %s", upstreamOrderID)
	}

	payload := updateOrderPayload{
		ShippingAddress:       update.ShippingAddress,
		ShippingInstructionID: update.ShippingInstructionID,
		OrderNotes:            update.Notes,
	}

	body, err := g.client.Do(ctx, http.MethodPatch, pathSalesOrder+"/"+upstreamOrderID, payload)
	if err != nil {
		return "", classify(err)
	}

	var resp updateOrderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: update order: %v", fulfillment.ErrUpstreamInvalidResponse, err)
	}

	g.logger.Info("Upstream order updated",
		zap.String("upstream_order_id", upstreamOrderID),
		zap.String("status", resp.Status),
	)

	return resp.Status, nil
}

// classify maps a transport-level failure onto the domain error taxonomy.
// Lock detection is best-effort: the upstream API documents no lock signal,
// so a 403 or a lock-related phrase in the body is treated as one.
func classify(err error) error {
	var ue *Error
	if !errors.As(err, &ue) {
		return err
	}

	switch {
	case ue.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %v", fulfillment.ErrOrderNotFound, ue)
	case ue.StatusCode == http.StatusForbidden, containsLockSignal(ue.Body):
		return fmt.Errorf("%w: %v", fulfillment.ErrOrderLocked, ue)
	case ue.StatusCode == http.StatusBadRequest, ue.StatusCode == http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %v", fulfillment.ErrUpstreamRejected, ue)
	case ue.StatusCode >= 500:
		return fmt.Errorf("%w: %v", fulfillment.ErrUpstreamUnavailable, ue)
	default:
		return fmt.Errorf("%w: %v", fulfillment.ErrUpstreamRequestFailed, ue)
	}
}

func containsLockSignal(body string) bool {
	return strings.Contains(strings.ToLower(body), "lock")
}

// Ensure OrderGateway implements the domain port
var _ fulfillment.UpstreamGateway = (*OrderGateway)(nil)
