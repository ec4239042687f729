package repository

import (
	"context"

	"procurement/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LineItemRepository interface {
	Create(ctx context.Context, item *model.LineItem) error
	Update(ctx context.Context, item *model.LineItem) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.LineItem, error)
	ListByRequisition(ctx context.Context, requisitionID uuid.UUID) ([]model.LineItem, error)
}

type lineItemRepository struct {
	db *gorm.DB
}

func NewLineItemRepository(db *gorm.DB) LineItemRepository {
	return &lineItemRepository{db: db}
}

func (r *lineItemRepository) Create(ctx context.Context, item *model.LineItem) error {
	return GetDB(ctx, r.db).Create(item).Error
}

func (r *lineItemRepository) Update(ctx context.Context, item *model.LineItem) error {
	return GetDB(ctx, r.db).Save(item).Error
}

func (r *lineItemRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Delete(&model.LineItem{}, "id = ?", id).Error
}

func (r *lineItemRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.LineItem, error) {
	var item model.LineItem
	if err := GetDB(ctx, r.db).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *lineItemRepository) ListByRequisition(ctx context.Context, requisitionID uuid.UUID) ([]model.LineItem, error) {
	var items []model.LineItem
	if err := GetDB(ctx, r.db).Scopes(orderedItems).
		Where("requisition_id = ?", requisitionID).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
