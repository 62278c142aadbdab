package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/stellarsupply/fulfillment-gateway/internal/domain/fulfillment"
)

// OrderModel is the persistence model for the OrderRecord domain entity.
// Items, the shipping address and tracking numbers are stored as JSON so the
// schema stays stable while the upstream payloads evolve.
type OrderModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key"`
	CustomerRef string    `gorm:"type:varchar(100);index:idx_orders_customer_ref"`
	Email       string    `gorm:"type:varchar(255);not null"`

	ItemsJSON           string `gorm:"type:jsonb;column:items;default:'[]'"`
	ShippingAddressJSON string `gorm:"type:jsonb;column:shipping_address;default:'{}'"`
	PaymentMethodID     string `gorm:"type:varchar(50);not null"`

	LocalStatus           string `gorm:"type:varchar(20);not null;default:'processing';index:idx_orders_local_status"`
	UpstreamOrderID       string `gorm:"type:varchar(100);index:idx_orders_upstream_order_id"`
	UpstreamTransactionID string `gorm:"type:varchar(100)"`
	UpstreamStatus        string `gorm:"type:varchar(100);index:idx_orders_upstream_status"`
	TrackingNumbersJSON   string `gorm:"type:jsonb;column:tracking_numbers;default:'[]'"`

	LastSyncedAt *time.Time
	LastError    string `gorm:"type:text"`
	LastErrorAt  *time.Time

	CreatedAt time.Time `gorm:"not null;index:idx_orders_created_at"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the persistence model to a domain OrderRecord entity.
func (m *OrderModel) ToDomain() *fulfillment.OrderRecord {
	order := &fulfillment.OrderRecord{
		ID:                    m.ID,
		CustomerRef:           m.CustomerRef,
		Email:                 m.Email,
		Items:                 make([]fulfillment.LineItem, 0),
		PaymentMethodID:       m.PaymentMethodID,
		LocalStatus:           fulfillment.LocalStatus(m.LocalStatus),
		UpstreamOrderID:       m.UpstreamOrderID,
		UpstreamTransactionID: m.UpstreamTransactionID,
		UpstreamStatus:        m.UpstreamStatus,
		TrackingNumbers:       make([]string, 0),
		LastSyncedAt:          m.LastSyncedAt,
		LastError:             m.LastError,
		LastErrorAt:           m.LastErrorAt,
		CreatedAt:             m.CreatedAt,
		UpdatedAt:             m.UpdatedAt,
	}

	if m.ItemsJSON != "" {
		var items []fulfillment.LineItem
		if err := json.Unmarshal([]byte(m.ItemsJSON), &items); err == nil {
			order.Items = items
		}
	}
	if m.ShippingAddressJSON != "" {
		var address fulfillment.AddressInput
		if err := json.Unmarshal([]byte(m.ShippingAddressJSON), &address); err == nil {
			order.ShippingAddress = address
		}
	}
	if m.TrackingNumbersJSON != "" {
		var tracking []string
		if err := json.Unmarshal([]byte(m.TrackingNumbersJSON), &tracking); err == nil {
			order.TrackingNumbers = tracking
		}
	}

	return order
}

// FromDomain populates the persistence model from a domain OrderRecord entity.
func (m *OrderModel) FromDomain(o *fulfillment.OrderRecord) error {
	m.ID = o.ID
	m.CustomerRef = o.CustomerRef
	m.Email = o.Email
	m.PaymentMethodID = o.PaymentMethodID
	m.LocalStatus = string(o.LocalStatus)
	m.UpstreamOrderID = o.UpstreamOrderID
	m.UpstreamTransactionID = o.UpstreamTransactionID
	m.UpstreamStatus = o.UpstreamStatus
	m.LastSyncedAt = o.LastSyncedAt
	m.LastError = o.LastError
	m.LastErrorAt = o.LastErrorAt
	m.CreatedAt = o.CreatedAt
	m.UpdatedAt = o.UpdatedAt

	items, err := json.Marshal(o.Items)
	if err != nil {
		return err
	}
	m.ItemsJSON = string(items)

	address, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return err
	}
	m.ShippingAddressJSON = string(address)

	tracking := o.TrackingNumbers
	if tracking == nil {
		tracking = make([]string, 0)
	}
	trackingJSON, err := json.Marshal(tracking)
	if err != nil {
		return err
	}
	m.TrackingNumbersJSON = string(trackingJSON)

	return nil
}
