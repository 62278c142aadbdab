package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stellarsupply/fulfillment-gateway/internal/domain/fulfillment"
	"github.com/stellarsupply/fulfillment-gateway/internal/infrastructure/persistence/models"
)

// GormOrderRepository implements fulfillment.OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// Create persists a new order record
func (r *GormOrderRepository) Create(ctx context.Context, order *fulfillment.OrderRecord) error {
	var model models.OrderModel
	if err := model.FromDomain(order); err != nil {
		return fmt.Errorf("encode order: %w", err)
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

// Update persists changes to an existing order record
func (r *GormOrderRepository) Update(ctx context.Context, order *fulfillment.OrderRecord) error {
	var model models.OrderModel
	if err := model.FromDomain(order); err != nil {
		return fmt.Errorf("encode order: %w", err)
	}
	result := r.db.WithContext(ctx).Model(&models.OrderModel{}).
		Where("id = ?", order.ID).
		Select("*").
		Omit("created_at").
		Updates(&model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fulfillment.ErrOrderRecordNotFound
	}
	return nil
}

// FindByID finds an order record by its local ID
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*fulfillment.OrderRecord, error) {
	var model models.OrderModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fulfillment.ErrOrderRecordNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindRecentSubmitted returns orders created after cutoff that have been
// submitted upstream, newest first.
func (r *GormOrderRepository) FindRecentSubmitted(ctx context.Context, cutoff time.Time, limit int) ([]fulfillment.OrderRecord, error) {
	var rows []models.OrderModel
	if err := r.db.WithContext(ctx).
		Where("upstream_order_id <> '' AND created_at > ?", cutoff).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainList(rows), nil
}

// FindByUpstreamStatus returns orders whose last seen upstream status equals
// status, oldest first so long-stuck orders are handled before fresh ones.
func (r *GormOrderRepository) FindByUpstreamStatus(ctx context.Context, status string, limit int) ([]fulfillment.OrderRecord, error) {
	var rows []models.OrderModel
	if err := r.db.WithContext(ctx).
		Where("upstream_status = ?", status).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainList(rows), nil
}

func toDomainList(rows []models.OrderModel) []fulfillment.OrderRecord {
	out := make([]fulfillment.OrderRecord, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].ToDomain())
	}
	return out
}

var _ fulfillment.OrderRepository = (*GormOrderRepository)(nil)
