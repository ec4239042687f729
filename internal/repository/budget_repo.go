package repository

import (
	"context"
	"errors"

	"procurement/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrStaleBudget means the budget row changed since it was read.
var ErrStaleBudget = errors.New("budget was modified concurrently")

type BudgetRepository interface {
	Create(ctx context.Context, budget *model.Budget) error
	FindByID(ctx context.Context, org, id uuid.UUID) (*model.Budget, error)
	FindByIDForUpdate(ctx context.Context, org, id uuid.UUID) (*model.Budget, error)
	List(ctx context.Context, org uuid.UUID, offset, limit int) ([]model.Budget, int64, error)
	ListAll(ctx context.Context, org uuid.UUID) ([]model.Budget, error)
	UpdateLedger(ctx context.Context, budget *model.Budget) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type budgetRepository struct {
	db *gorm.DB
}

func NewBudgetRepository(db *gorm.DB) BudgetRepository {
	return &budgetRepository{db: db}
}

func (r *budgetRepository) Create(ctx context.Context, budget *model.Budget) error {
	return GetDB(ctx, r.db).Create(budget).Error
}

func (r *budgetRepository) FindByID(ctx context.Context, org, id uuid.UUID) (*model.Budget, error) {
	var budget model.Budget
	if err := GetDB(ctx, r.db).Where("organization_id = ?", org).First(&budget, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &budget, nil
}

func (r *budgetRepository) FindByIDForUpdate(ctx context.Context, org, id uuid.UUID) (*model.Budget, error) {
	var budget model.Budget
	if err := forUpdate(GetDB(ctx, r.db)).Where("organization_id = ?", org).First(&budget, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &budget, nil
}

func (r *budgetRepository) List(ctx context.Context, org uuid.UUID, offset, limit int) ([]model.Budget, int64, error) {
	var budgets []model.Budget
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Budget{}).Where("organization_id = ?", org)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Order("created_at DESC, name ASC").Offset(offset).Limit(limit).Find(&budgets).Error; err != nil {
		return nil, 0, err
	}
	return budgets, total, nil
}

func (r *budgetRepository) ListAll(ctx context.Context, org uuid.UUID) ([]model.Budget, error) {
	var budgets []model.Budget
	if err := GetDB(ctx, r.db).Where("organization_id = ?", org).Order("name ASC").Find(&budgets).Error; err != nil {
		return nil, err
	}
	return budgets, nil
}

// UpdateLedger writes the reserved/balance pair only if the version read is still current,
// then advances budget.Version.
func (r *budgetRepository) UpdateLedger(ctx context.Context, budget *model.Budget) error {
	res := GetDB(ctx, r.db).Model(&model.Budget{}).
		Where("id = ? AND version = ?", budget.ID, budget.Version).
		Updates(map[string]interface{}{
			"amount_allocated": budget.AmountAllocated,
			"amount_reserved":  budget.AmountReserved,
			"balance":          budget.Balance,
			"version":          budget.Version + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleBudget
	}
	budget.Version++
	return nil
}

func (r *budgetRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Delete(&model.Budget{}, "id = ?", id).Error
}
