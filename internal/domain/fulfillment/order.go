package fulfillment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineItem is a single purchasable line on an order.
type LineItem struct {
	SKU       string          `json:"sku"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Total     decimal.Decimal `json:"total"`
}

// OrderRecord is the storefront's persistent record of an order.
//
// Invariants:
//   - Once UpstreamOrderID is assigned it never changes; it is the
//     correlation key for every subsequent upstream operation.
//   - UpstreamStatus is always the literal last value returned by the
//     upstream API (or the repair job's RawStatusAddressFixed sentinel),
//     never inferred locally.
type OrderRecord struct {
	ID          uuid.UUID
	CustomerRef string
	Email       string
	Items       []LineItem

	ShippingAddress AddressInput
	PaymentMethodID string

	LocalStatus           LocalStatus
	UpstreamOrderID       string
	UpstreamTransactionID string
	UpstreamStatus        string
	TrackingNumbers       []string

	LastSyncedAt *time.Time
	LastError    string
	LastErrorAt  *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewOrderRecord creates a local order record for a checkout that has not
// yet been submitted upstream.
func NewOrderRecord(customerRef, email string, items []LineItem, address AddressInput, paymentMethodID string) *OrderRecord {
	now := time.Now()
	return &OrderRecord{
		ID:              uuid.New(),
		CustomerRef:     customerRef,
		Email:           email,
		Items:           items,
		ShippingAddress: address,
		PaymentMethodID: paymentMethodID,
		LocalStatus:     LocalStatusProcessing,
		TrackingNumbers: make([]string, 0),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// AssignUpstream records the upstream identifiers after a successful
// submission. Re-assigning the same order id is a no-op; assigning a
// different one returns ErrUpstreamIDConflict.
func (o *OrderRecord) AssignUpstream(orderID, transactionID string) error {
	if o.UpstreamOrderID != "" && o.UpstreamOrderID != orderID {
		return ErrUpstreamIDConflict
	}
	o.UpstreamOrderID = orderID
	if transactionID != "" {
		o.UpstreamTransactionID = transactionID
	}
	o.UpdatedAt = time.Now()
	return nil
}

// ApplySnapshot overwrites the locally cached upstream state with a fresh
// read from the upstream API and recomputes the customer-facing status.
func (o *OrderRecord) ApplySnapshot(snap *OrderSnapshot, at time.Time) {
	o.UpstreamStatus = snap.Status
	if snap.TransactionID != "" {
		o.UpstreamTransactionID = snap.TransactionID
	}
	o.TrackingNumbers = append(o.TrackingNumbers[:0], snap.TrackingNumbers...)
	o.LocalStatus = Simplify(snap.Status, snap.TrackingNumbers)
	o.LastSyncedAt = &at
	o.LastError = ""
	o.LastErrorAt = nil
	o.UpdatedAt = at
}

// RecordSyncError writes the failure into the order so operators can audit
// batch runs without re-running them.
func (o *OrderRecord) RecordSyncError(msg string, at time.Time) {
	o.LastError = msg
	o.LastErrorAt = &at
	o.UpdatedAt = at
}

// ---------------------------------------------------------------------------
// Upstream gateway types
// ---------------------------------------------------------------------------

// OrderMode selects between a non-committing quote and a firm order.
type OrderMode string

const (
	OrderModeQuote OrderMode = "quote"
	OrderModeOrder OrderMode = "order"
)

// PaymentMethod is an upstream reference entity.
type PaymentMethod struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// ShippingInstruction is an upstream reference entity.
type ShippingInstruction struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SelectRequiredInstruction picks the instruction whose name exactly equals
// requiredName. It never falls back to an arbitrary entry: an absent match
// is an error the operator has to see.
func SelectRequiredInstruction(list []ShippingInstruction, requiredName string) (ShippingInstruction, error) {
	for _, si := range list {
		if si.Name == requiredName {
			return si, nil
		}
	}
	return ShippingInstruction{}, ErrInstructionNotFound
}

// CreateOrderRequest is the gateway input for a quote or firm order.
// The request shape is identical in both modes; only the upstream endpoint
// differs.
type CreateOrderRequest struct {
	Items                 []LineItem
	ShippingAddress       UpstreamAddress
	Email                 string
	PaymentMethodID       string
	ShippingInstructionID string
	Mode                  OrderMode
}

// CreateOrderResult is the upstream's answer to a submission.
type CreateOrderResult struct {
	UpstreamOrderID string
	TransactionID   string
	Status          string
	Amount          decimal.Decimal
	QuoteExpiration *time.Time
}

// ItemFulfillment is one fulfilled line as reported by the upstream API.
type ItemFulfillment struct {
	SKU            string
	Quantity       int
	TrackingNumber string
}

// OrderSnapshot is a read-only view of the live upstream order state.
// Fetching a snapshot never mutates local state.
type OrderSnapshot struct {
	Status          string
	TransactionID   string
	Amount          decimal.Decimal
	TransactionDate *time.Time
	TrackingNumbers []string
	ShippingAddress *UpstreamAddress
	Fulfillments    []ItemFulfillment
}

// OrderUpdate is a partial update; only non-nil fields are changed upstream.
type OrderUpdate struct {
	ShippingAddress       *UpstreamAddress
	ShippingInstructionID *string
	Notes                 *string
}

// IsEmpty reports whether the update would change nothing.
func (u OrderUpdate) IsEmpty() bool {
	return u.ShippingAddress == nil && u.ShippingInstructionID == nil && u.Notes == nil
}

// ---------------------------------------------------------------------------
// Ports
// ---------------------------------------------------------------------------

// UpstreamGateway is the port to the third-party fulfillment API.
type UpstreamGateway interface {
	FetchPaymentMethods(ctx context.Context) ([]PaymentMethod, error)
	FetchShippingInstructions(ctx context.Context) ([]ShippingInstruction, error)
	// RequiredShippingInstruction fetches the instruction list and selects
	// the configured entry via SelectRequiredInstruction.
	RequiredShippingInstruction(ctx context.Context) (ShippingInstruction, error)
	CreateOrder(ctx context.Context, req *CreateOrderRequest) (*CreateOrderResult, error)
	FetchStatus(ctx context.Context, upstreamOrderID string) (*OrderSnapshot, error)
	// UpdateOrder applies a partial update and returns the upstream status
	// from the response, which may be empty when the upstream omits it.
	UpdateOrder(ctx context.Context, upstreamOrderID string, update OrderUpdate) (string, error)
}

// OrderRepository is the port to the local order store.
type OrderRepository interface {
	Create(ctx context.Context, order *OrderRecord) error
	Update(ctx context.Context, order *OrderRecord) error
	FindByID(ctx context.Context, id uuid.UUID) (*OrderRecord, error)
	// FindRecentSubmitted returns orders created after cutoff that carry an
	// upstream order id, newest first.
	FindRecentSubmitted(ctx context.Context, cutoff time.Time, limit int) ([]OrderRecord, error)
	// FindByUpstreamStatus returns orders whose raw upstream status equals
	// status, oldest first.
	FindByUpstreamStatus(ctx context.Context, status string, limit int) ([]OrderRecord, error)
}

// ReferenceCache caches rarely-changing upstream reference data.
// A miss is (nil, false, nil); storage failures must not break callers,
// who fall through to the gateway.
type ReferenceCache interface {
	GetPaymentMethods(ctx context.Context) ([]PaymentMethod, bool, error)
	SetPaymentMethods(ctx context.Context, methods []PaymentMethod) error
	GetShippingInstructions(ctx context.Context) ([]ShippingInstruction, bool, error)
	SetShippingInstructions(ctx context.Context, instructions []ShippingInstruction) error
}
