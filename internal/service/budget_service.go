package service

import (
	"context"
	"strings"

	"procurement/internal/cache"
	"procurement/internal/events"
	"procurement/internal/ledger"
	"procurement/internal/lock"
	"procurement/internal/model"
	"procurement/internal/repository"
	"procurement/pkg/apperror"
	"procurement/pkg/pagination"
	"procurement/pkg/response"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DTOs
type AllocateBudgetRequest struct {
	Name            string          `json:"name" binding:"required"`
	Currency        string          `json:"currency" binding:"omitempty,len=3"`
	AmountAllocated decimal.Decimal `json:"amount_allocated"`
	BranchID        uuid.UUID       `json:"branch_id" binding:"required"`
	DepartmentID    uuid.UUID       `json:"department_id" binding:"required"`
	CategoryID      uuid.UUID       `json:"category_id" binding:"required"`
}

type BudgetResponse struct {
	model.Budget
	AmountUsed decimal.Decimal `json:"amount_used"`
	Metrics    ledger.Metrics  `json:"metrics"`
	Display    ledger.Metrics  `json:"display_metrics"`
}

func toBudgetResponse(b model.Budget) BudgetResponse {
	m := ledger.ComputeMetrics(b)
	return BudgetResponse{Budget: b, AmountUsed: m.AmountUsed, Metrics: m, Display: m.Display()}
}

type BudgetService interface {
	Allocate(ctx context.Context, scope Scope, req AllocateBudgetRequest) (BudgetResponse, error)
	Get(ctx context.Context, scope Scope, id string) (BudgetResponse, error)
	List(ctx context.Context, scope Scope, p pagination.Params) (response.Page, error)
	Delete(ctx context.Context, scope Scope, id string) error
}

type budgetService struct {
	budgetRepo repository.BudgetRepository
	reqRepo    repository.RequisitionRepository
	optionRepo repository.OptionRepository
	auditRepo  repository.AuditRepository
	infra      Infra
}

func NewBudgetService(
	budgetRepo repository.BudgetRepository,
	reqRepo repository.RequisitionRepository,
	optionRepo repository.OptionRepository,
	auditRepo repository.AuditRepository,
	infra Infra,
) BudgetService {
	return &budgetService{
		budgetRepo: budgetRepo,
		reqRepo:    reqRepo,
		optionRepo: optionRepo,
		auditRepo:  auditRepo,
		infra:      infra.withDefaults(),
	}
}

func (s *budgetService) Allocate(ctx context.Context, scope Scope, in AllocateBudgetRequest) (BudgetResponse, error) {
	if err := scope.validate(); err != nil {
		return BudgetResponse{}, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return BudgetResponse{}, apperror.Validation("name is required")
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = defaultCurrency
	}

	budget := &model.Budget{
		OrganizationID: scope.OrganizationID,
		BranchID:       in.BranchID,
		DepartmentID:   in.DepartmentID,
		CategoryID:     in.CategoryID,
		Name:           name,
		Currency:       currency,
	}
	if err := ledger.Allocate(budget, in.AmountAllocated); err != nil {
		return BudgetResponse{}, err
	}

	err := s.infra.TxManager.RunInTx(ctx, func(txCtx context.Context) error {
		for kind, id := range map[model.OptionKind]uuid.UUID{
			model.OptionBranch:     in.BranchID,
			model.OptionDepartment: in.DepartmentID,
			model.OptionCategory:   in.CategoryID,
		} {
			ok, err := s.optionRepo.Exists(txCtx, scope.OrganizationID, kind, id)
			if err != nil {
				return storageErr(err, string(kind), id)
			}
			if !ok {
				return apperror.Validation("%s %s does not exist", kind, id)
			}
		}

		if err := s.budgetRepo.Create(txCtx, budget); err != nil {
			if repository.IsDuplicate(err) {
				return apperror.Validation("a budget already exists for this branch, department and category")
			}
			return storageErr(err, "budget", name)
		}
		return writeAudit(txCtx, s.auditRepo, scope, model.ActionAllocateBudget, budget.ID.String(), budget.Name,
			map[string]interface{}{"amount_allocated": budget.AmountAllocated.String(), "currency": budget.Currency})
	})
	if err != nil {
		return BudgetResponse{}, err
	}

	s.infra.changed(ctx, events.New(events.BudgetChanged, scope.OrganizationID, budget.ID, budget.Name, ""), cache.NamespaceDashboard)
	return toBudgetResponse(*budget), nil
}

func (s *budgetService) Get(ctx context.Context, scope Scope, rawID string) (BudgetResponse, error) {
	if err := scope.validate(); err != nil {
		return BudgetResponse{}, err
	}
	id, err := parseID(rawID, "budget")
	if err != nil {
		return BudgetResponse{}, err
	}
	budget, err := s.budgetRepo.FindByID(ctx, scope.OrganizationID, id)
	if err != nil {
		return BudgetResponse{}, storageErr(err, "budget", id)
	}
	return toBudgetResponse(*budget), nil
}

func (s *budgetService) List(ctx context.Context, scope Scope, p pagination.Params) (response.Page, error) {
	if err := scope.validate(); err != nil {
		return response.Page{}, err
	}
	p = p.Capped(pagination.MaxPageSize)
	budgets, total, err := s.budgetRepo.List(ctx, scope.OrganizationID, p.Offset, p.PageSize)
	if err != nil {
		return response.Page{}, storageErr(err, "budgets", scope.OrganizationID)
	}
	items := make([]BudgetResponse, 0, len(budgets))
	for _, b := range budgets {
		items = append(items, toBudgetResponse(b))
	}
	return response.Page{
		Items:      items,
		Page:       p.Page,
		PageSize:   p.PageSize,
		Total:      total,
		TotalPages: pagination.TotalPages(total, p.PageSize),
	}, nil
}

// Delete refuses while any amount is reserved or any requisition still points at the budget.
func (s *budgetService) Delete(ctx context.Context, scope Scope, rawID string) error {
	if err := scope.validate(); err != nil {
		return err
	}
	id, err := parseID(rawID, "budget")
	if err != nil {
		return err
	}

	var deleted model.Budget
	err = s.infra.Locker.WithLock(ctx, lock.BudgetKey(id), func(ctx context.Context) error {
		return s.infra.TxManager.RunInTx(ctx, func(txCtx context.Context) error {
			budget, err := s.budgetRepo.FindByIDForUpdate(txCtx, scope.OrganizationID, id)
			if err != nil {
				return storageErr(err, "budget", id)
			}
			if budget.AmountReserved.IsPositive() {
				return apperror.Validation("budget %s still has %s reserved", budget.Name, budget.AmountReserved)
			}
			refs, err := s.reqRepo.CountByBudget(txCtx, id)
			if err != nil {
				return storageErr(err, "requisitions", id)
			}
			if refs > 0 {
				return apperror.Validation("budget %s is referenced by %d requisition(s)", budget.Name, refs)
			}
			if err := s.budgetRepo.Delete(txCtx, id); err != nil {
				return storageErr(err, "budget", id)
			}
			deleted = *budget
			return writeAudit(txCtx, s.auditRepo, scope, model.ActionDeleteBudget, budget.ID.String(), budget.Name, nil)
		})
	})
	if err != nil {
		return err
	}

	s.infra.changed(ctx, events.New(events.BudgetChanged, scope.OrganizationID, deleted.ID, deleted.Name, "DELETED"), cache.NamespaceDashboard)
	return nil
}
