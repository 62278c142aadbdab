package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/stellarsupply/fulfillment-gateway/internal/domain/fulfillment"
)

// OrderModelSQLite is a SQLite-compatible version of OrderModel for testing
type OrderModelSQLite struct {
	ID                    string `gorm:"primaryKey"`
	CustomerRef           string `gorm:"index"`
	Email                 string `gorm:"not null"`
	ItemsJSON             string `gorm:"column:items"`
	ShippingAddressJSON   string `gorm:"column:shipping_address"`
	PaymentMethodID       string `gorm:"not null"`
	LocalStatus           string `gorm:"not null;default:'processing'"`
	UpstreamOrderID       string `gorm:"index"`
	UpstreamTransactionID string
	UpstreamStatus        string `gorm:"index"`
	TrackingNumbersJSON   string `gorm:"column:tracking_numbers"`
	LastSyncedAt          *time.Time
	LastError             string
	LastErrorAt           *time.Time
	CreatedAt             time.Time `gorm:"not null;index"`
	UpdatedAt             time.Time `gorm:"not null"`
}

func (OrderModelSQLite) TableName() string {
	return "orders"
}

func setupOrderTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&OrderModelSQLite{})
	require.NoError(t, err)

	return db
}

func newStoredOrder() *fulfillment.OrderRecord {
	return fulfillment.NewOrderRecord(
		"cust-42",
		"ada@example.com",
		[]fulfillment.LineItem{
			{SKU: "WIDGET-1", Quantity: 2, UnitPrice: decimal.NewFromFloat(9.99), Total: decimal.NewFromFloat(19.98)},
		},
		fulfillment.AddressInput{
			FullName: "Ada Lovelace",
			Line1:    "12 Analytical Way",
			City:     "Portland",
			State:    "OR",
			Zip:      "97201",
		},
		"5",
	)
}

func TestGormOrderRepository_CreateAndFindByID(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	order := newStoredOrder()
	require.NoError(t, repo.Create(ctx, order))

	found, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)

	assert.Equal(t, order.ID, found.ID)
	assert.Equal(t, "ada@example.com", found.Email)
	assert.Equal(t, fulfillment.LocalStatusProcessing, found.LocalStatus)
	require.Len(t, found.Items, 1)
	assert.Equal(t, "WIDGET-1", found.Items[0].SKU)
	assert.True(t, found.Items[0].UnitPrice.Equal(decimal.NewFromFloat(9.99)))
	assert.Equal(t, "Ada Lovelace", found.ShippingAddress.FullName)
	assert.Empty(t, found.TrackingNumbers)
}

func TestGormOrderRepository_FindByID_NotFound(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewGormOrderRepository(db)

	_, err := repo.FindByID(context.Background(), newStoredOrder().ID)
	assert.ErrorIs(t, err, fulfillment.ErrOrderRecordNotFound)
}

func TestGormOrderRepository_Update(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	order := newStoredOrder()
	require.NoError(t, repo.Create(ctx, order))

	require.NoError(t, order.AssignUpstream("SO-1001", "TX-1001"))
	order.ApplySnapshot(&fulfillment.OrderSnapshot{
		Status:          fulfillment.RawStatusFulfillmentComplete,
		TrackingNumbers: []string{"1Z999", "1Z998"},
	}, time.Now())
	require.NoError(t, repo.Update(ctx, order))

	found, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "SO-1001", found.UpstreamOrderID)
	assert.Equal(t, fulfillment.RawStatusFulfillmentComplete, found.UpstreamStatus)
	assert.Equal(t, fulfillment.LocalStatusShipped, found.LocalStatus)
	assert.Equal(t, []string{"1Z999", "1Z998"}, found.TrackingNumbers)
	assert.NotNil(t, found.LastSyncedAt)
}

func TestGormOrderRepository_Update_NotFound(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewGormOrderRepository(db)

	err := repo.Update(context.Background(), newStoredOrder())
	assert.ErrorIs(t, err, fulfillment.ErrOrderRecordNotFound)
}

func TestGormOrderRepository_FindRecentSubmitted(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	submitted := newStoredOrder()
	require.NoError(t, submitted.AssignUpstream("SO-1", ""))
	require.NoError(t, repo.Create(ctx, submitted))

	unsubmitted := newStoredOrder()
	require.NoError(t, repo.Create(ctx, unsubmitted))

	old := newStoredOrder()
	require.NoError(t, old.AssignUpstream("SO-OLD", ""))
	old.CreatedAt = time.Now().Add(-30 * 24 * time.Hour)
	require.NoError(t, repo.Create(ctx, old))

	found, err := repo.FindRecentSubmitted(ctx, time.Now().Add(-14*24*time.Hour), 100)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, submitted.ID, found[0].ID)
}

func TestGormOrderRepository_FindRecentSubmitted_Limit(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		order := newStoredOrder()
		require.NoError(t, order.AssignUpstream("SO-x", ""))
		require.NoError(t, repo.Create(ctx, order))
	}

	found, err := repo.FindRecentSubmitted(ctx, time.Now().Add(-time.Hour), 3)
	require.NoError(t, err)
	assert.Len(t, found, 3)
}

func TestGormOrderRepository_FindByUpstreamStatus(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	onHold := newStoredOrder()
	require.NoError(t, onHold.AssignUpstream("SO-1", ""))
	onHold.UpstreamStatus = fulfillment.RawStatusOnHoldContactDesk
	require.NoError(t, repo.Create(ctx, onHold))

	pending := newStoredOrder()
	require.NoError(t, pending.AssignUpstream("SO-2", ""))
	pending.UpstreamStatus = fulfillment.RawStatusPendingFulfillment
	require.NoError(t, repo.Create(ctx, pending))

	found, err := repo.FindByUpstreamStatus(ctx, fulfillment.RawStatusOnHoldContactDesk, 100)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, onHold.ID, found[0].ID)
}

func TestGormOrderRepository_FindByUpstreamStatus_OldestFirst(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	newer := newStoredOrder()
	require.NoError(t, newer.AssignUpstream("SO-NEW", ""))
	newer.UpstreamStatus = fulfillment.RawStatusOnHoldContactDesk
	require.NoError(t, repo.Create(ctx, newer))

	older := newStoredOrder()
	require.NoError(t, older.AssignUpstream("SO-OLD", ""))
	older.UpstreamStatus = fulfillment.RawStatusOnHoldContactDesk
	older.CreatedAt = time.Now().Add(-48 * time.Hour)
	require.NoError(t, repo.Create(ctx, older))

	found, err := repo.FindByUpstreamStatus(ctx, fulfillment.RawStatusOnHoldContactDesk, 100)
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, older.ID, found[0].ID)
	assert.Equal(t, newer.ID, found[1].ID)
}
