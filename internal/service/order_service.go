package service

import (
	"context"
	"fmt"
	"strings"

	"procurement/internal/cache"
	"procurement/internal/events"
	"procurement/internal/ledger"
	"procurement/internal/lock"
	"procurement/internal/model"
	"procurement/internal/repository"
	"procurement/pkg/apperror"
	"procurement/pkg/pagination"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const convertedState = "CONVERTED"

// DTOs
type ConvertRequest struct {
	RequestID     uuid.UUID        `json:"request_id" binding:"required"`
	SupplierID    *uuid.UUID       `json:"supplier_id"`
	TotalAmount   *decimal.Decimal `json:"total_amount"`
	AttachmentURL string           `json:"attachment_url"`
}

type OrderDecisionRequest struct {
	Status string `json:"status" binding:"required,oneof=APPROVED REJECTED"`
}

type OrderResponse struct {
	model.PurchaseOrder
	PRNumber string `json:"pr_number,omitempty"`
}

func toOrderResponse(o model.PurchaseOrder) OrderResponse {
	resp := OrderResponse{PurchaseOrder: o}
	if o.Requisition != nil {
		resp.PRNumber = o.Requisition.PRNumber
		resp.Requisition = nil
	}
	return resp
}

type OrderPage struct {
	Items      []OrderResponse `json:"items"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
	Total      int64           `json:"total"`
	TotalPages int             `json:"total_pages"`
}

type OrderService interface {
	Convert(ctx context.Context, scope Scope, req ConvertRequest) (OrderResponse, error)
	List(ctx context.Context, scope Scope, status string, p pagination.Params) (OrderPage, error)
	Eligible(ctx context.Context, scope Scope) ([]RequisitionResponse, error)
	Decide(ctx context.Context, scope Scope, id string, req OrderDecisionRequest) (OrderResponse, error)
}

type orderService struct {
	orderRepo  repository.OrderRepository
	reqRepo    repository.RequisitionRepository
	budgetRepo repository.BudgetRepository
	optionRepo repository.OptionRepository
	auditRepo  repository.AuditRepository
	numberer   Numberer
	infra      Infra
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	reqRepo repository.RequisitionRepository,
	budgetRepo repository.BudgetRepository,
	optionRepo repository.OptionRepository,
	auditRepo repository.AuditRepository,
	numberer Numberer,
	infra Infra,
) OrderService {
	return &orderService{
		orderRepo:  orderRepo,
		reqRepo:    reqRepo,
		budgetRepo: budgetRepo,
		optionRepo: optionRepo,
		auditRepo:  auditRepo,
		numberer:   numberer,
		infra:      infra.withDefaults(),
	}
}

// Convert turns one APPROVED requisition into one PENDING purchase order and consumes its reservation.
// A second conversion of the same requisition fails with ALREADY_CONVERTED.
func (s *orderService) Convert(ctx context.Context, scope Scope, in ConvertRequest) (OrderResponse, error) {
	if err := scope.validate(); err != nil {
		return OrderResponse{}, err
	}
	if in.RequestID == uuid.Nil {
		return OrderResponse{}, apperror.Validation("request_id is required")
	}
	if in.TotalAmount != nil && in.TotalAmount.IsNegative() {
		return OrderResponse{}, apperror.Validation("total_amount must not be negative, got %s", in.TotalAmount)
	}

	current, err := s.reqRepo.FindByID(ctx, scope.OrganizationID, in.RequestID)
	if err != nil {
		return OrderResponse{}, storageErr(err, "requisition", in.RequestID)
	}
	keys := []string{lock.RequisitionKey(current.ID)}
	if current.BudgetID != nil {
		keys = append(keys, lock.BudgetKey(*current.BudgetID))
	}

	var order model.PurchaseOrder
	var prNumber string
	err = lock.WithLocks(ctx, s.infra.Locker, keys, func(ctx context.Context) error {
		return s.infra.TxManager.RunInTx(ctx, func(txCtx context.Context) error {
			req, err := s.reqRepo.FindByIDForUpdate(txCtx, scope.OrganizationID, in.RequestID)
			if err != nil {
				return storageErr(err, "requisition", in.RequestID)
			}
			exists, err := s.orderRepo.ExistsForRequisition(txCtx, req.ID)
			if err != nil {
				return storageErr(err, "purchase order", req.ID)
			}
			if exists {
				return apperror.New(apperror.KindAlreadyConverted, "requisition %s has already been converted", req.PRNumber)
			}
			if req.Status != model.RequisitionApproved {
				return apperror.InvalidTransition(string(req.Status), convertedState)
			}

			supplierID := req.SupplierID
			if in.SupplierID != nil {
				supplierID = in.SupplierID
			}
			if supplierID == nil {
				return apperror.Validation("supplier_id is required")
			}
			ok, err := s.optionRepo.Exists(txCtx, scope.OrganizationID, model.OptionSupplier, *supplierID)
			if err != nil {
				return storageErr(err, "supplier", *supplierID)
			}
			if !ok {
				return apperror.Validation("supplier %s does not exist", *supplierID)
			}

			total := req.Totals().TotalEstimatedCost
			if in.TotalAmount != nil {
				total = *in.TotalAmount
			}

			if req.BudgetID != nil {
				budget, err := s.budgetRepo.FindByIDForUpdate(txCtx, scope.OrganizationID, *req.BudgetID)
				if err != nil {
					return storageErr(err, "budget", *req.BudgetID)
				}
				if err := ledger.Consume(budget, req.ReservedAmount, total); err != nil {
					return err
				}
				if err := s.budgetRepo.UpdateLedger(txCtx, budget); err != nil {
					return storageErr(err, "budget", budget.ID)
				}
			}

			number, err := s.numberer.NextPONumber(txCtx, scope.OrganizationID, s.infra.Now())
			if err != nil {
				return err
			}
			order = model.PurchaseOrder{
				OrganizationID: scope.OrganizationID,
				PONumber:       number,
				RequestID:      req.ID,
				SupplierID:     *supplierID,
				TotalAmount:    total,
				Currency:       req.Currency,
				AttachmentURL:  strings.TrimSpace(in.AttachmentURL),
				Status:         model.OrderStatusPending,
				CreatedBy:      scope.userRef(),
			}
			if err := s.orderRepo.Create(txCtx, &order); err != nil {
				if repository.IsDuplicate(err) {
					return apperror.New(apperror.KindAlreadyConverted, "requisition %s has already been converted", req.PRNumber)
				}
				return storageErr(err, "purchase order", number)
			}
			prNumber = req.PRNumber
			return writeAudit(txCtx, s.auditRepo, scope, model.ActionCreatePurchaseOrder, order.ID.String(), order.PONumber,
				map[string]interface{}{
					"pr_number":       req.PRNumber,
					"total_amount":    total.String(),
					"reserved_amount": req.ReservedAmount.String(),
				})
		})
	})
	if err != nil {
		return OrderResponse{}, err
	}

	e := events.New(events.OrderCreated, scope.OrganizationID, order.ID, order.PONumber, order.Status)
	e.Payload = map[string]interface{}{"request_id": order.RequestID.String(), "pr_number": prNumber}
	s.infra.changed(ctx, e, cache.NamespaceOrders, cache.NamespaceDashboard, cache.NamespaceRequisitions)

	resp := toOrderResponse(order)
	resp.PRNumber = prNumber
	return resp, nil
}

func (s *orderService) List(ctx context.Context, scope Scope, status string, p pagination.Params) (OrderPage, error) {
	if err := scope.validate(); err != nil {
		return OrderPage{}, err
	}
	p = p.Capped(pagination.MaxPageSize)
	status = strings.ToUpper(strings.TrimSpace(status))
	switch status {
	case "", model.OrderStatusPending, model.OrderStatusApproved, model.OrderStatusRejected:
	default:
		return OrderPage{}, apperror.Validation("unknown order status %q", status)
	}

	key := fmt.Sprintf("list:%s:%d:%d", status, p.Page, p.PageSize)
	return cachedRead(ctx, s.infra, scope.OrganizationID, cache.NamespaceOrders, key, func() (OrderPage, error) {
		orders, total, err := s.orderRepo.List(ctx, scope.OrganizationID, status, p.Offset, p.PageSize)
		if err != nil {
			return OrderPage{}, storageErr(err, "purchase orders", scope.OrganizationID)
		}
		items := make([]OrderResponse, 0, len(orders))
		for _, o := range orders {
			items = append(items, toOrderResponse(o))
		}
		return OrderPage{
			Items:      items,
			Page:       p.Page,
			PageSize:   p.PageSize,
			Total:      total,
			TotalPages: pagination.TotalPages(total, p.PageSize),
		}, nil
	})
}

// Eligible lists APPROVED requisitions that have no purchase order yet.
func (s *orderService) Eligible(ctx context.Context, scope Scope) ([]RequisitionResponse, error) {
	if err := scope.validate(); err != nil {
		return nil, err
	}
	reqs, err := s.reqRepo.ListConvertible(ctx, scope.OrganizationID)
	if err != nil {
		return nil, storageErr(err, "requisitions", scope.OrganizationID)
	}
	return toRequisitionResponses(reqs), nil
}

func (s *orderService) Decide(ctx context.Context, scope Scope, rawID string, in OrderDecisionRequest) (OrderResponse, error) {
	if err := scope.validate(); err != nil {
		return OrderResponse{}, err
	}
	if !scope.IsApprover() {
		return OrderResponse{}, apperror.Validation("only approvers may decide on a purchase order")
	}
	id, err := parseID(rawID, "purchase order")
	if err != nil {
		return OrderResponse{}, err
	}
	decision := strings.ToUpper(strings.TrimSpace(in.Status))
	if decision != model.OrderStatusApproved && decision != model.OrderStatusRejected {
		return OrderResponse{}, apperror.Validation("decision must be APPROVED or REJECTED, got %q", in.Status)
	}

	var order *model.PurchaseOrder
	err = s.infra.TxManager.RunInTx(ctx, func(txCtx context.Context) error {
		o, err := s.orderRepo.FindByIDForUpdate(txCtx, scope.OrganizationID, id)
		if err != nil {
			return storageErr(err, "purchase order", id)
		}
		if o.Status != model.OrderStatusPending {
			return apperror.InvalidTransition(o.Status, decision)
		}
		now := s.infra.Now()
		o.Status = decision
		o.ApprovedBy = scope.userRef()
		o.ApprovedAt = &now
		if err := s.orderRepo.Update(txCtx, o); err != nil {
			return storageErr(err, "purchase order", id)
		}
		order = o
		return writeAudit(txCtx, s.auditRepo, scope, model.ActionDecidePurchaseOrder, o.ID.String(), o.PONumber,
			map[string]interface{}{"status": decision})
	})
	if err != nil {
		return OrderResponse{}, err
	}

	s.infra.changed(ctx, events.New(events.OrderDecided, scope.OrganizationID, order.ID, order.PONumber, order.Status),
		cache.NamespaceOrders, cache.NamespaceDashboard)
	return toOrderResponse(*order), nil
}
