package upstream

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/stellarsupply/fulfillment-gateway/internal/domain/fulfillment"
)

// Wire payloads for the upstream REST API, one typed shape per endpoint.
// Parsing fails loudly on missing required fields instead of producing
// partially-populated objects; see the gateway's per-endpoint checks.

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

type paymentMethodPayload struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type shippingInstructionPayload struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type orderItemPayload struct {
	SKU       string          `json:"sku"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Total     decimal.Decimal `json:"total"`
}

type createOrderPayload struct {
	LineItems             []orderItemPayload          `json:"lineItems"`
	ShippingAddress       fulfillment.UpstreamAddress `json:"shippingAddress"`
	Email                 string                      `json:"email"`
	PaymentMethodID       string                      `json:"paymentMethodId"`
	ShippingInstructionID string                      `json:"shippingInstructionId"`
}

// createOrderResponse covers both the quote and the firm-order endpoint;
// quotes identify themselves by a handle, firm orders by an order id.
type createOrderResponse struct {
	Handle          string          `json:"handle"`
	OrderID         string          `json:"orderId"`
	Status          string          `json:"status"`
	Amount          decimal.Decimal `json:"amount"`
	TransactionID   string          `json:"transactionId"`
	QuoteExpiration string          `json:"quoteExpiration"`
}

// upstreamOrderID returns whichever identifier the endpoint populated.
func (r *createOrderResponse) upstreamOrderID() string {
	if r.OrderID != "" {
		return r.OrderID
	}
	return r.Handle
}

type itemFulfillmentPayload struct {
	SKU            string `json:"sku"`
	Quantity       int    `json:"quantity"`
	TrackingNumber string `json:"trackingNumber"`
}

type orderStatusResponse struct {
	Status              string                       `json:"status"`
	TransactionID       string                       `json:"transactionId"`
	Amount              decimal.Decimal              `json:"amount"`
	TransactionDate     string                       `json:"transactionDate"`
	TrackingNumbers     []string                     `json:"trackingNumbers"`
	ShippingAddress     *fulfillment.UpstreamAddress `json:"shippingAddress"`
	ShippingInstruction *shippingInstructionPayload  `json:"shippingInstruction"`
	PaymentMethod       *paymentMethodPayload        `json:"paymentMethod"`
	ItemFulfillments    []itemFulfillmentPayload     `json:"itemFulfillments"`
}

type updateOrderPayload struct {
	ShippingAddress       *fulfillment.UpstreamAddress `json:"shippingAddress,omitempty"`
	ShippingInstructionID *string                      `json:"shippingInstructionId,omitempty"`
	OrderNotes            *string                      `json:"orderNotes,omitempty"`
}

type updateOrderResponse struct {
	Status string `json:"status"`
}

// parseUpstreamTime parses the timestamp formats observed from the
// upstream API. Returns nil when the value is absent or unparseable;
// timestamps are informational and never gate a workflow.
func parseUpstreamTime(value string) *time.Time {
	if value == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	return nil
}
