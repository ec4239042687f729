package service

import (
	"context"
	"strings"

	"procurement/internal/cache"
	"procurement/internal/events"
	"procurement/internal/lock"
	"procurement/internal/model"
	"procurement/internal/repository"
	"procurement/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DTOs
type AddLineItemRequest struct {
	PRNumber    string          `json:"pr_number" binding:"required"`
	ProductID   *uuid.UUID      `json:"product_id"`
	ItemName    string          `json:"item_name" binding:"required"`
	Description string          `json:"description"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	PRQuantity  int64           `json:"pr_quantity"`
	ImageURL    string          `json:"image_url"`
}

// UpdateLineItemRequest changes only the fields that are set.
type UpdateLineItemRequest struct {
	ItemName    *string          `json:"item_name"`
	Description *string          `json:"description"`
	UnitPrice   *decimal.Decimal `json:"unit_price"`
	PRQuantity  *int64           `json:"pr_quantity"`
	ImageURL    *string          `json:"image_url"`
}

type LineItemListResponse struct {
	PRNumber string           `json:"pr_number"`
	Status   string           `json:"status"`
	Items    []model.LineItem `json:"items"`
	model.LineTotals
}

type LineItemService interface {
	Add(ctx context.Context, scope Scope, req AddLineItemRequest) (model.LineItem, error)
	Update(ctx context.Context, scope Scope, id string, req UpdateLineItemRequest) (model.LineItem, error)
	Remove(ctx context.Context, scope Scope, id string) error
	List(ctx context.Context, scope Scope, prNumber string) (LineItemListResponse, error)
	Totals(ctx context.Context, scope Scope, requisitionID string) (model.LineTotals, error)
}

type lineItemService struct {
	reqRepo  repository.RequisitionRepository
	itemRepo repository.LineItemRepository
	infra    Infra
}

func NewLineItemService(reqRepo repository.RequisitionRepository, itemRepo repository.LineItemRepository, infra Infra) LineItemService {
	return &lineItemService{reqRepo: reqRepo, itemRepo: itemRepo, infra: infra.withDefaults()}
}

func validateItemValues(unitPrice decimal.Decimal, quantity int64) error {
	if !unitPrice.IsPositive() {
		return apperror.Validation("unit_price must be greater than 0, got %s", unitPrice)
	}
	if quantity < 0 {
		return apperror.Validation("pr_quantity must not be negative, got %d", quantity)
	}
	return nil
}

func immutable(req *model.Requisition) error {
	if req.Status.Mutable() {
		return nil
	}
	return apperror.New(apperror.KindImmutableRequisition,
		"requisition %s is %s; line items can no longer change", req.PRNumber, req.Status)
}

// mutate runs fn under the requisition lock with the requisition re-read and checked for mutability.
func (s *lineItemService) mutate(ctx context.Context, scope Scope, requisitionID uuid.UUID, fn func(ctx context.Context, req *model.Requisition) error) (*model.Requisition, error) {
	var out *model.Requisition
	err := s.infra.Locker.WithLock(ctx, lock.RequisitionKey(requisitionID), func(ctx context.Context) error {
		return s.infra.TxManager.RunInTx(ctx, func(txCtx context.Context) error {
			req, err := s.reqRepo.FindByIDForUpdate(txCtx, scope.OrganizationID, requisitionID)
			if err != nil {
				return storageErr(err, "requisition", requisitionID)
			}
			if err := immutable(req); err != nil {
				return err
			}
			if err := fn(txCtx, req); err != nil {
				return err
			}
			out = req
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	e := events.New(events.CacheInvalidated, scope.OrganizationID, out.ID, out.PRNumber, string(out.Status))
	e.Payload = map[string]interface{}{"namespaces": []cache.Namespace{cache.NamespaceRequisitions}}
	s.infra.changed(ctx, e, cache.NamespaceRequisitions)
	return out, nil
}

func (s *lineItemService) Add(ctx context.Context, scope Scope, in AddLineItemRequest) (model.LineItem, error) {
	if err := scope.validate(); err != nil {
		return model.LineItem{}, err
	}
	name := strings.TrimSpace(in.ItemName)
	if name == "" {
		return model.LineItem{}, apperror.Validation("item_name is required")
	}
	if err := validateItemValues(in.UnitPrice, in.PRQuantity); err != nil {
		return model.LineItem{}, err
	}

	req, err := s.reqRepo.FindByPRNumber(ctx, scope.OrganizationID, strings.TrimSpace(in.PRNumber))
	if err != nil {
		return model.LineItem{}, storageErr(err, "requisition", in.PRNumber)
	}

	item := &model.LineItem{
		ProductID:   in.ProductID,
		ItemName:    name,
		Description: in.Description,
		UnitPrice:   in.UnitPrice,
		PRQuantity:  in.PRQuantity,
		ImageURL:    in.ImageURL,
	}
	_, err = s.mutate(ctx, scope, req.ID, func(ctx context.Context, locked *model.Requisition) error {
		item.RequisitionID = locked.ID
		if err := s.itemRepo.Create(ctx, item); err != nil {
			return storageErr(err, "line item", item.ItemName)
		}
		return nil
	})
	if err != nil {
		return model.LineItem{}, err
	}
	return *item, nil
}

func (s *lineItemService) Update(ctx context.Context, scope Scope, rawID string, in UpdateLineItemRequest) (model.LineItem, error) {
	if err := scope.validate(); err != nil {
		return model.LineItem{}, err
	}
	id, err := parseID(rawID, "line item")
	if err != nil {
		return model.LineItem{}, err
	}
	existing, err := s.itemRepo.FindByID(ctx, id)
	if err != nil {
		return model.LineItem{}, storageErr(err, "line item", id)
	}

	var updated model.LineItem
	_, err = s.mutate(ctx, scope, existing.RequisitionID, func(ctx context.Context, _ *model.Requisition) error {
		item, err := s.itemRepo.FindByID(ctx, id)
		if err != nil {
			return storageErr(err, "line item", id)
		}
		if in.ItemName != nil {
			name := strings.TrimSpace(*in.ItemName)
			if name == "" {
				return apperror.Validation("item_name must not be empty")
			}
			item.ItemName = name
		}
		if in.Description != nil {
			item.Description = *in.Description
		}
		if in.UnitPrice != nil {
			item.UnitPrice = *in.UnitPrice
		}
		if in.PRQuantity != nil {
			item.PRQuantity = *in.PRQuantity
		}
		if in.ImageURL != nil {
			item.ImageURL = *in.ImageURL
		}
		if err := validateItemValues(item.UnitPrice, item.PRQuantity); err != nil {
			return err
		}
		if err := s.itemRepo.Update(ctx, item); err != nil {
			return storageErr(err, "line item", id)
		}
		updated = *item
		return nil
	})
	if err != nil {
		return model.LineItem{}, err
	}
	return updated, nil
}

func (s *lineItemService) Remove(ctx context.Context, scope Scope, rawID string) error {
	if err := scope.validate(); err != nil {
		return err
	}
	id, err := parseID(rawID, "line item")
	if err != nil {
		return err
	}
	existing, err := s.itemRepo.FindByID(ctx, id)
	if err != nil {
		return storageErr(err, "line item", id)
	}

	_, err = s.mutate(ctx, scope, existing.RequisitionID, func(ctx context.Context, _ *model.Requisition) error {
		if err := s.itemRepo.Delete(ctx, id); err != nil {
			return storageErr(err, "line item", id)
		}
		return nil
	})
	return err
}

func (s *lineItemService) List(ctx context.Context, scope Scope, prNumber string) (LineItemListResponse, error) {
	if err := scope.validate(); err != nil {
		return LineItemListResponse{}, err
	}
	prNumber = strings.TrimSpace(prNumber)
	if prNumber == "" {
		return LineItemListResponse{}, apperror.Validation("pr_number is required")
	}
	req, err := s.reqRepo.FindByPRNumber(ctx, scope.OrganizationID, prNumber)
	if err != nil {
		return LineItemListResponse{}, storageErr(err, "requisition", prNumber)
	}
	items := req.Items
	if items == nil {
		items = []model.LineItem{}
	}
	return LineItemListResponse{
		PRNumber:   req.PRNumber,
		Status:     string(req.Status),
		Items:      items,
		LineTotals: model.SumLineItems(items),
	}, nil
}

func (s *lineItemService) Totals(ctx context.Context, scope Scope, rawID string) (model.LineTotals, error) {
	if err := scope.validate(); err != nil {
		return model.LineTotals{}, err
	}
	id, err := parseID(rawID, "requisition")
	if err != nil {
		return model.LineTotals{}, err
	}
	if _, err := s.reqRepo.FindByID(ctx, scope.OrganizationID, id); err != nil {
		return model.LineTotals{}, storageErr(err, "requisition", id)
	}
	items, err := s.itemRepo.ListByRequisition(ctx, id)
	if err != nil {
		return model.LineTotals{}, storageErr(err, "line item", id)
	}
	return model.SumLineItems(items), nil
}
