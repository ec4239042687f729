package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"procurement/internal/cache"
	"procurement/internal/events"
	"procurement/internal/ledger"
	"procurement/internal/lock"
	"procurement/internal/model"
	"procurement/internal/repository"
	"procurement/pkg/apperror"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultCurrency = "NGN"
	dateLayout      = "2006-01-02"
)

// DTOs
type InitializeRequisitionRequest struct {
	Currency       string `json:"currency" binding:"omitempty,len=3"`
	RequestorName  string `json:"requestor_name"`
	RequestorPhone string `json:"requestor_phone"`
	RequestorEmail string `json:"requestor_email"`
}

// RequisitionFields is the requestor-editable form. Drafts and finalization both require every field.
type RequisitionFields struct {
	DepartmentID       *uuid.UUID `json:"department_id" validate:"required"`
	BranchID           *uuid.UUID `json:"branch_id" validate:"required"`
	SupplierID         *uuid.UUID `json:"supplier_id" validate:"required"`
	BudgetID           *uuid.UUID `json:"budget_id"`
	RequestorName      string     `json:"requestor_name" validate:"required,max=255"`
	RequestorPhone     string     `json:"requestor_phone" validate:"required,max=50"`
	RequestorEmail     string     `json:"requestor_email" validate:"required,email"`
	RequestDescription string     `json:"request_description" validate:"required"`
	Justification      string     `json:"justification" validate:"required"`
	NeededByDate       string     `json:"needed_by_date" validate:"required,datetime=2006-01-02"`
	Currency           string     `json:"currency" validate:"omitempty,len=3"`
}

type SubmitRequisitionRequest struct {
	ID uuid.UUID `json:"id" binding:"required"`
	RequisitionFields
}

type DecisionRequest struct {
	Status  string `json:"status" binding:"required"`
	Comment string `json:"comment"`
}

type RequisitionResponse struct {
	model.Requisition
	model.LineTotals
}

func toRequisitionResponse(r model.Requisition) RequisitionResponse {
	if r.Items == nil {
		r.Items = []model.LineItem{}
	}
	return RequisitionResponse{Requisition: r, LineTotals: r.Totals()}
}

func toRequisitionResponses(reqs []model.Requisition) []RequisitionResponse {
	out := make([]RequisitionResponse, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, toRequisitionResponse(r))
	}
	return out
}

type RequisitionService interface {
	Initialize(ctx context.Context, scope Scope, req InitializeRequisitionRequest) (RequisitionResponse, error)
	SaveDraft(ctx context.Context, scope Scope, req SubmitRequisitionRequest) (RequisitionResponse, error)
	Finalize(ctx context.Context, scope Scope, req SubmitRequisitionRequest) (RequisitionResponse, error)
	Resubmit(ctx context.Context, scope Scope, id string, fields RequisitionFields) (RequisitionResponse, error)
	Decide(ctx context.Context, scope Scope, id string, req DecisionRequest) (RequisitionResponse, error)
	Get(ctx context.Context, scope Scope, id string) (RequisitionResponse, error)
	Delete(ctx context.Context, scope Scope, id string) error
}

type requisitionService struct {
	reqRepo    repository.RequisitionRepository
	budgetRepo repository.BudgetRepository
	optionRepo repository.OptionRepository
	auditRepo  repository.AuditRepository
	numberer   Numberer
	infra      Infra
	validate   *validator.Validate
}

func NewRequisitionService(
	reqRepo repository.RequisitionRepository,
	budgetRepo repository.BudgetRepository,
	optionRepo repository.OptionRepository,
	auditRepo repository.AuditRepository,
	numberer Numberer,
	infra Infra,
) RequisitionService {
	return &requisitionService{
		reqRepo:    reqRepo,
		budgetRepo: budgetRepo,
		optionRepo: optionRepo,
		auditRepo:  auditRepo,
		numberer:   numberer,
		infra:      infra.withDefaults(),
		validate:   newValidator(),
	}
}

func (s *requisitionService) Initialize(ctx context.Context, scope Scope, in InitializeRequisitionRequest) (RequisitionResponse, error) {
	if err := scope.validate(); err != nil {
		return RequisitionResponse{}, err
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = defaultCurrency
	}

	var created model.Requisition
	err := s.infra.TxManager.RunInTx(ctx, func(txCtx context.Context) error {
		number, err := s.numberer.NextPRNumber(txCtx, scope.OrganizationID)
		if err != nil {
			return err
		}
		req := &model.Requisition{
			OrganizationID: scope.OrganizationID,
			PRNumber:       number,
			Status:         model.RequisitionInitialized,
			Currency:       currency,
			RequestorName:  in.RequestorName,
			RequestorPhone: in.RequestorPhone,
			RequestorEmail: in.RequestorEmail,
			ReservedAmount: decimal.Zero,
			CreatedBy:      scope.userRef(),
		}
		if err := s.reqRepo.Create(txCtx, req); err != nil {
			return storageErr(err, "requisition", number)
		}
		if err := writeAudit(txCtx, s.auditRepo, scope, model.ActionInitializeRequisition, req.ID.String(), req.PRNumber,
			map[string]interface{}{"currency": currency}); err != nil {
			return err
		}
		created = *req
		return nil
	})
	if err != nil {
		return RequisitionResponse{}, err
	}

	s.infra.changed(ctx, events.New(events.RequisitionSaved, scope.OrganizationID, created.ID, created.PRNumber, string(created.Status)),
		cache.NamespaceRequisitions, cache.NamespaceDashboard)
	return toRequisitionResponse(created), nil
}

func (s *requisitionService) SaveDraft(ctx context.Context, scope Scope, in SubmitRequisitionRequest) (RequisitionResponse, error) {
	return s.transition(ctx, scope, in.ID, transitionInput{action: model.ActionSaveDraft, fields: &in.RequisitionFields})
}

func (s *requisitionService) Finalize(ctx context.Context, scope Scope, in SubmitRequisitionRequest) (RequisitionResponse, error) {
	return s.transition(ctx, scope, in.ID, transitionInput{action: model.ActionFinalize, fields: &in.RequisitionFields})
}

func (s *requisitionService) Resubmit(ctx context.Context, scope Scope, rawID string, fields RequisitionFields) (RequisitionResponse, error) {
	id, err := parseID(rawID, "requisition")
	if err != nil {
		return RequisitionResponse{}, err
	}
	return s.transition(ctx, scope, id, transitionInput{action: model.ActionResubmit, fields: &fields})
}

func (s *requisitionService) Decide(ctx context.Context, scope Scope, rawID string, in DecisionRequest) (RequisitionResponse, error) {
	if !scope.IsApprover() {
		return RequisitionResponse{}, apperror.Validation("only approvers may decide on a requisition")
	}
	id, err := parseID(rawID, "requisition")
	if err != nil {
		return RequisitionResponse{}, err
	}
	decision, err := model.ParseRequisitionStatus(in.Status)
	if err != nil {
		return RequisitionResponse{}, err
	}
	action, err := model.DecisionAction(decision)
	if err != nil {
		return RequisitionResponse{}, err
	}
	return s.transition(ctx, scope, id, transitionInput{action: action, comment: strings.TrimSpace(in.Comment), decision: true})
}

type transitionInput struct {
	action   model.RequisitionAction
	fields   *RequisitionFields
	comment  string
	decision bool
}

// transition validates the form, then applies action under the requisition and budget locks,
// moving the reservation in the same transaction as the status change.
func (s *requisitionService) transition(ctx context.Context, scope Scope, id uuid.UUID, in transitionInput) (RequisitionResponse, error) {
	if err := scope.validate(); err != nil {
		return RequisitionResponse{}, err
	}
	if id == uuid.Nil {
		return RequisitionResponse{}, apperror.Validation("id is required")
	}

	target := in.action.Target()
	var neededBy time.Time
	if in.fields != nil {
		if err := s.validate.Struct(in.fields); err != nil {
			return RequisitionResponse{}, validationErr(err)
		}
		parsed, err := time.Parse(dateLayout, in.fields.NeededByDate)
		if err != nil {
			return RequisitionResponse{}, apperror.Validation("needed_by_date must be YYYY-MM-DD")
		}
		neededBy = parsed
		if target == model.RequisitionPending && startOfDay(neededBy).Before(startOfDay(s.infra.Now())) {
			return RequisitionResponse{}, apperror.Validation("needed_by_date %s must be today or later", in.fields.NeededByDate)
		}
	}

	var budgetID *uuid.UUID
	if in.fields != nil {
		budgetID = in.fields.BudgetID
	} else {
		current, err := s.reqRepo.FindByID(ctx, scope.OrganizationID, id)
		if err != nil {
			return RequisitionResponse{}, storageErr(err, "requisition", id)
		}
		budgetID = current.BudgetID
	}

	var out model.Requisition
	for attempt := 1; ; attempt++ {
		moved, err := s.applyLocked(ctx, scope, id, in, neededBy, budgetID, &out)
		if err == nil {
			break
		}
		if !errors.Is(err, errBudgetMoved) {
			return RequisitionResponse{}, err
		}
		if attempt == maxRelockAttempts {
			return RequisitionResponse{}, apperror.Upstream(err, "requisition %s kept changing budget", id)
		}
		s.infra.Logger.Debug("requisition budget changed before lock, relocking",
			zap.String("requisition_id", id.String()), zap.Int("attempt", attempt))
		budgetID = moved
	}

	e := events.New(eventFor(in.action), scope.OrganizationID, out.ID, out.PRNumber, string(out.Status))
	if out.BudgetID != nil {
		e.Payload = map[string]interface{}{"budget_id": out.BudgetID.String(), "reserved_amount": out.ReservedAmount.String()}
	}
	s.infra.changed(ctx, e, cache.NamespaceRequisitions, cache.NamespaceDashboard)
	return toRequisitionResponse(out), nil
}

const maxRelockAttempts = 3

var errBudgetMoved = errors.New("requisition budget changed while waiting for its lock")

func sameBudget(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// applyLocked runs one attempt of a transition holding the requisition lock and the lock of lockedBudget.
// When the locked read shows a different budget it returns errBudgetMoved and that budget, so the
// caller can retry under the right lock.
func (s *requisitionService) applyLocked(ctx context.Context, scope Scope, id uuid.UUID, in transitionInput, neededBy time.Time, lockedBudget *uuid.UUID, out *model.Requisition) (*uuid.UUID, error) {
	keys := []string{lock.RequisitionKey(id)}
	if lockedBudget != nil {
		keys = append(keys, lock.BudgetKey(*lockedBudget))
	}

	var moved *uuid.UUID
	err := lock.WithLocks(ctx, s.infra.Locker, keys, func(ctx context.Context) error {
		return s.infra.TxManager.RunInTx(ctx, func(txCtx context.Context) error {
			req, err := s.reqRepo.FindByIDForUpdate(txCtx, scope.OrganizationID, id)
			if err != nil {
				return storageErr(err, "requisition", id)
			}
			// the budget already holding a reservation is the one release touches
			if in.fields == nil && !sameBudget(req.BudgetID, lockedBudget) {
				moved = req.BudgetID
				return errBudgetMoved
			}
			from := req.Status
			next, err := req.Status.Next(in.action)
			if err != nil {
				return err
			}

			if in.fields != nil {
				if err := s.checkReferences(txCtx, scope.OrganizationID, in.fields); err != nil {
					return err
				}
				applyFields(req, in.fields, neededBy)
			}

			now := s.infra.Now()
			switch {
			case next == model.RequisitionPending:
				if err := s.reserve(txCtx, scope.OrganizationID, req); err != nil {
					return err
				}
				req.SubmittedAt = &now
			case next == model.RequisitionRejected || next == model.RequisitionRequestedModification:
				if err := s.release(txCtx, scope.OrganizationID, req); err != nil {
					return err
				}
			}
			if in.decision {
				req.DecidedBy = scope.userRef()
				req.DecidedAt = &now
				req.DecisionComment = in.comment
			}
			req.Status = next

			if err := s.reqRepo.Update(txCtx, req); err != nil {
				return storageErr(err, "requisition", id)
			}
			if err := writeAudit(txCtx, s.auditRepo, scope, auditActionFor(in.action), req.ID.String(), req.PRNumber,
				map[string]interface{}{
					"from":            from,
					"to":              next,
					"reserved_amount": req.ReservedAmount.String(),
					"comment":         in.comment,
				}); err != nil {
				return err
			}
			*out = *req
			return nil
		})
	})
	return moved, err
}

// reserve earmarks the line-item estimate against the requisition's budget, if any.
func (s *requisitionService) reserve(ctx context.Context, org uuid.UUID, req *model.Requisition) error {
	if len(req.Items) == 0 {
		return apperror.Validation("requisition %s has no line items", req.PRNumber)
	}
	cost := req.Totals().TotalEstimatedCost
	if req.BudgetID == nil {
		req.ReservedAmount = decimal.Zero
		return nil
	}

	budget, err := s.budgetRepo.FindByIDForUpdate(ctx, org, *req.BudgetID)
	if err != nil {
		return storageErr(err, "budget", *req.BudgetID)
	}
	if !strings.EqualFold(budget.Currency, req.Currency) {
		return apperror.Validation("budget currency %s does not match requisition currency %s", budget.Currency, req.Currency)
	}
	if err := ledger.Reserve(budget, cost); err != nil {
		return err
	}
	if err := s.budgetRepo.UpdateLedger(ctx, budget); err != nil {
		return storageErr(err, "budget", budget.ID)
	}
	req.ReservedAmount = cost
	return nil
}

func (s *requisitionService) release(ctx context.Context, org uuid.UUID, req *model.Requisition) error {
	if req.BudgetID == nil || !req.ReservedAmount.IsPositive() {
		req.ReservedAmount = decimal.Zero
		return nil
	}
	budget, err := s.budgetRepo.FindByIDForUpdate(ctx, org, *req.BudgetID)
	if err != nil {
		return storageErr(err, "budget", *req.BudgetID)
	}
	if err := ledger.Release(budget, req.ReservedAmount); err != nil {
		return err
	}
	if err := s.budgetRepo.UpdateLedger(ctx, budget); err != nil {
		return storageErr(err, "budget", budget.ID)
	}
	req.ReservedAmount = decimal.Zero
	return nil
}

func (s *requisitionService) checkReferences(ctx context.Context, org uuid.UUID, f *RequisitionFields) error {
	refs := []struct {
		kind model.OptionKind
		id   *uuid.UUID
	}{
		{model.OptionDepartment, f.DepartmentID},
		{model.OptionBranch, f.BranchID},
		{model.OptionSupplier, f.SupplierID},
	}
	for _, ref := range refs {
		if ref.id == nil {
			continue
		}
		ok, err := s.optionRepo.Exists(ctx, org, ref.kind, *ref.id)
		if err != nil {
			return storageErr(err, string(ref.kind), *ref.id)
		}
		if !ok {
			return apperror.Validation("%s %s does not exist", ref.kind, *ref.id)
		}
	}
	if f.BudgetID != nil {
		if _, err := s.budgetRepo.FindByID(ctx, org, *f.BudgetID); err != nil {
			if repository.IsNotFound(err) {
				return apperror.Validation("budget %s does not exist", *f.BudgetID)
			}
			return storageErr(err, "budget", *f.BudgetID)
		}
	}
	return nil
}

func applyFields(req *model.Requisition, f *RequisitionFields, neededBy time.Time) {
	req.DepartmentID = f.DepartmentID
	req.BranchID = f.BranchID
	req.SupplierID = f.SupplierID
	req.BudgetID = f.BudgetID
	req.RequestorName = strings.TrimSpace(f.RequestorName)
	req.RequestorPhone = strings.TrimSpace(f.RequestorPhone)
	req.RequestorEmail = strings.TrimSpace(f.RequestorEmail)
	req.RequestDescription = f.RequestDescription
	req.Justification = f.Justification
	req.NeededByDate = &neededBy
	if c := strings.ToUpper(strings.TrimSpace(f.Currency)); c != "" {
		req.Currency = c
	}
}

func auditActionFor(action model.RequisitionAction) string {
	switch action {
	case model.ActionSaveDraft:
		return model.ActionSaveRequisitionDraft
	case model.ActionFinalize:
		return model.ActionFinalizeRequisition
	case model.ActionResubmit:
		return model.ActionResubmitRequisition
	}
	return model.ActionDecideRequisition
}

func eventFor(action model.RequisitionAction) events.Type {
	switch action {
	case model.ActionSaveDraft:
		return events.RequisitionSaved
	case model.ActionFinalize, model.ActionResubmit:
		return events.RequisitionFinalized
	}
	return events.RequisitionDecided
}

func (s *requisitionService) Get(ctx context.Context, scope Scope, rawID string) (RequisitionResponse, error) {
	if err := scope.validate(); err != nil {
		return RequisitionResponse{}, err
	}
	id, err := parseID(rawID, "requisition")
	if err != nil {
		return RequisitionResponse{}, err
	}
	req, err := s.reqRepo.FindByID(ctx, scope.OrganizationID, id)
	if err != nil {
		return RequisitionResponse{}, storageErr(err, "requisition", id)
	}
	return toRequisitionResponse(*req), nil
}

// Delete removes a requisition that never left the draft states, together with its line items.
func (s *requisitionService) Delete(ctx context.Context, scope Scope, rawID string) error {
	if err := scope.validate(); err != nil {
		return err
	}
	id, err := parseID(rawID, "requisition")
	if err != nil {
		return err
	}

	var deleted model.Requisition
	err = s.infra.Locker.WithLock(ctx, lock.RequisitionKey(id), func(ctx context.Context) error {
		return s.infra.TxManager.RunInTx(ctx, func(txCtx context.Context) error {
			req, err := s.reqRepo.FindByIDForUpdate(txCtx, scope.OrganizationID, id)
			if err != nil {
				return storageErr(err, "requisition", id)
			}
			if req.Status != model.RequisitionInitialized && req.Status != model.RequisitionSavedForLater {
				return apperror.New(apperror.KindImmutableRequisition,
					"requisition %s is %s and cannot be deleted", req.PRNumber, req.Status)
			}
			if err := s.reqRepo.Delete(txCtx, req); err != nil {
				return storageErr(err, "requisition", id)
			}
			if err := writeAudit(txCtx, s.auditRepo, scope, model.ActionDeleteRequisition, req.ID.String(), req.PRNumber,
				map[string]interface{}{"status": req.Status, "items": len(req.Items)}); err != nil {
				return err
			}
			deleted = *req
			return nil
		})
	})
	if err != nil {
		return err
	}

	s.infra.changed(ctx, events.New(events.RequisitionDeleted, scope.OrganizationID, deleted.ID, deleted.PRNumber, string(deleted.Status)),
		cache.NamespaceRequisitions, cache.NamespaceDashboard)
	return nil
}
