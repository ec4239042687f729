package repository

import (
	"context"

	"procurement/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RequisitionRepository interface {
	Create(ctx context.Context, req *model.Requisition) error
	Update(ctx context.Context, req *model.Requisition) error
	Delete(ctx context.Context, req *model.Requisition) error
	FindByID(ctx context.Context, org, id uuid.UUID) (*model.Requisition, error)
	FindByIDForUpdate(ctx context.Context, org, id uuid.UUID) (*model.Requisition, error)
	FindByPRNumber(ctx context.Context, org uuid.UUID, prNumber string) (*model.Requisition, error)
	ListByOrganization(ctx context.Context, org uuid.UUID) ([]model.Requisition, error)
	ListConvertible(ctx context.Context, org uuid.UUID) ([]model.Requisition, error)
	CountByBudget(ctx context.Context, budgetID uuid.UUID) (int64, error)
}

type requisitionRepository struct {
	db *gorm.DB
}

func NewRequisitionRepository(db *gorm.DB) RequisitionRepository {
	return &requisitionRepository{db: db}
}

func orderedItems(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC, id ASC")
}

func (r *requisitionRepository) Create(ctx context.Context, req *model.Requisition) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Create(req).Error
}

// Update writes every column but leaves line items alone.
func (r *requisitionRepository) Update(ctx context.Context, req *model.Requisition) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Save(req).Error
}

func (r *requisitionRepository) Delete(ctx context.Context, req *model.Requisition) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("requisition_id = ?", req.ID).Delete(&model.LineItem{}).Error; err != nil {
		return err
	}
	return db.Delete(&model.Requisition{}, "id = ?", req.ID).Error
}

func (r *requisitionRepository) FindByID(ctx context.Context, org, id uuid.UUID) (*model.Requisition, error) {
	var req model.Requisition
	if err := GetDB(ctx, r.db).
		Preload("Items", orderedItems).
		Where("organization_id = ?", org).
		First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *requisitionRepository) FindByIDForUpdate(ctx context.Context, org, id uuid.UUID) (*model.Requisition, error) {
	var req model.Requisition
	if err := forUpdate(GetDB(ctx, r.db)).
		Where("organization_id = ?", org).
		First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	if err := GetDB(ctx, r.db).Scopes(orderedItems).
		Where("requisition_id = ?", req.ID).
		Find(&req.Items).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *requisitionRepository) FindByPRNumber(ctx context.Context, org uuid.UUID, prNumber string) (*model.Requisition, error) {
	var req model.Requisition
	if err := GetDB(ctx, r.db).
		Preload("Items", orderedItems).
		Where("organization_id = ? AND pr_number = ?", org, prNumber).
		First(&req).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

// ListByOrganization loads the full corpus, newest first.
func (r *requisitionRepository) ListByOrganization(ctx context.Context, org uuid.UUID) ([]model.Requisition, error) {
	var reqs []model.Requisition
	if err := GetDB(ctx, r.db).
		Preload("Items", orderedItems).
		Where("organization_id = ?", org).
		Order("created_at DESC, pr_number DESC").
		Find(&reqs).Error; err != nil {
		return nil, err
	}
	return reqs, nil
}

// ListConvertible returns APPROVED requisitions that no purchase order references yet.
func (r *requisitionRepository) ListConvertible(ctx context.Context, org uuid.UUID) ([]model.Requisition, error) {
	var reqs []model.Requisition
	if err := GetDB(ctx, r.db).
		Preload("Items", orderedItems).
		Where("organization_id = ? AND status = ?", org, model.RequisitionApproved).
		Where("NOT EXISTS (SELECT 1 FROM purchase_orders po WHERE po.request_id = requisitions.id)").
		Order("created_at DESC, pr_number DESC").
		Find(&reqs).Error; err != nil {
		return nil, err
	}
	return reqs, nil
}

func (r *requisitionRepository) CountByBudget(ctx context.Context, budgetID uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.Requisition{}).Where("budget_id = ?", budgetID).Count(&count).Error
	return count, err
}
