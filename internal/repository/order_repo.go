package repository

import (
	"context"

	"procurement/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderStatusTotal is one row of the per-status order summary.
type OrderStatusTotal struct {
	Status string
	Count  int64
	Total  decimal.Decimal
}

type OrderRepository interface {
	Create(ctx context.Context, order *model.PurchaseOrder) error
	Update(ctx context.Context, order *model.PurchaseOrder) error
	FindByID(ctx context.Context, org, id uuid.UUID) (*model.PurchaseOrder, error)
	FindByIDForUpdate(ctx context.Context, org, id uuid.UUID) (*model.PurchaseOrder, error)
	ExistsForRequisition(ctx context.Context, requisitionID uuid.UUID) (bool, error)
	List(ctx context.Context, org uuid.UUID, status string, offset, limit int) ([]model.PurchaseOrder, int64, error)
	SummaryByStatus(ctx context.Context, org uuid.UUID) ([]OrderStatusTotal, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, order *model.PurchaseOrder) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Create(order).Error
}

func (r *orderRepository) Update(ctx context.Context, order *model.PurchaseOrder) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Save(order).Error
}

func (r *orderRepository) FindByID(ctx context.Context, org, id uuid.UUID) (*model.PurchaseOrder, error) {
	var order model.PurchaseOrder
	if err := GetDB(ctx, r.db).
		Preload("Requisition").
		Where("organization_id = ?", org).
		First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) FindByIDForUpdate(ctx context.Context, org, id uuid.UUID) (*model.PurchaseOrder, error) {
	var order model.PurchaseOrder
	if err := forUpdate(GetDB(ctx, r.db)).
		Where("organization_id = ?", org).
		First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) ExistsForRequisition(ctx context.Context, requisitionID uuid.UUID) (bool, error) {
	var count int64
	if err := GetDB(ctx, r.db).Model(&model.PurchaseOrder{}).
		Where("request_id = ?", requisitionID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *orderRepository) List(ctx context.Context, org uuid.UUID, status string, offset, limit int) ([]model.PurchaseOrder, int64, error) {
	var orders []model.PurchaseOrder
	var total int64

	db := GetDB(ctx, r.db).Model(&model.PurchaseOrder{}).Where("organization_id = ?", org)
	if status != "" {
		db = db.Where("status = ?", status)
	}
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.
		Preload("Requisition").
		Order("created_at DESC, po_number DESC").
		Offset(offset).Limit(limit).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *orderRepository) SummaryByStatus(ctx context.Context, org uuid.UUID) ([]OrderStatusTotal, error) {
	var rows []OrderStatusTotal
	if err := GetDB(ctx, r.db).Model(&model.PurchaseOrder{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(total_amount), 0) AS total").
		Where("organization_id = ?", org).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
