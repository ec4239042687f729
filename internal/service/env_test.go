package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"procurement/internal/cache"
	"procurement/internal/database"
	"procurement/internal/events"
	"procurement/internal/lock"
	"procurement/internal/model"
	"procurement/internal/repository"
	"procurement/pkg/pagination"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var today = time.Date(2026, 5, 10, 9, 30, 0, 0, time.UTC)

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) types() []events.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Type, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

// hookLocker records every acquired key and can run a hook once a key is held.
type hookLocker struct {
	lock.Locker
	mu       sync.Mutex
	acquired []string
	onLock   func(key string)
}

func (h *hookLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	return h.Locker.WithLock(ctx, key, func(ctx context.Context) error {
		h.mu.Lock()
		h.acquired = append(h.acquired, key)
		hook := h.onLock
		h.mu.Unlock()
		if hook != nil {
			hook(key)
		}
		return fn(ctx)
	})
}

func (h *hookLocker) keys() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.acquired...)
}

func (h *hookLocker) reset(hook func(key string)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.acquired = nil
	h.onLock = hook
}

type testEnv struct {
	db           *gorm.DB
	budgetRepo   repository.BudgetRepository
	orderRepo    repository.OrderRepository
	requisitions RequisitionService
	items        LineItemService
	listings     ListingService
	budgets      BudgetService
	orders       OrderService
	stats        StatisticsService
	options      OptionService
	audit        AuditService
	cache        *cache.MemoryCache
	events       *recorder
	locker       *hookLocker

	requestor Scope
	approver  Scope

	branch, department, category, supplier model.Option
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), nil)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	reqRepo := repository.NewRequisitionRepository(db)
	itemRepo := repository.NewLineItemRepository(db)
	budgetRepo := repository.NewBudgetRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	optionRepo := repository.NewOptionRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	statsRepo := repository.NewStatisticsRepository(db)
	numberer := NewNumberer(repository.NewSequenceRepository(db))

	env := &testEnv{
		db:         db,
		budgetRepo: budgetRepo,
		orderRepo:  orderRepo,
		cache:      cache.NewMemoryCache(),
		events:     &recorder{},
		locker:     &hookLocker{Locker: lock.NewLocalLocker()},
	}
	infra := Infra{
		TxManager: repository.NewTransactionManager(db),
		Locker:    env.locker,
		Cache:     env.cache,
		Publisher: env.events,
		Logger:    zap.NewNop(),
		Now:       func() time.Time { return today },
	}

	env.requisitions = NewRequisitionService(reqRepo, budgetRepo, optionRepo, auditRepo, numberer, infra)
	env.items = NewLineItemService(reqRepo, itemRepo, infra)
	env.listings = NewListingService(reqRepo, infra)
	env.budgets = NewBudgetService(budgetRepo, reqRepo, optionRepo, auditRepo, infra)
	env.orders = NewOrderService(orderRepo, reqRepo, budgetRepo, optionRepo, auditRepo, numberer, infra)
	env.stats = NewStatisticsService(statsRepo, orderRepo, budgetRepo, infra)
	env.options = NewOptionService(optionRepo)
	env.audit = NewAuditService(auditRepo)

	org := uuid.New()
	env.requestor = Scope{OrganizationID: org, UserID: uuid.New(), Role: RoleRequestor}
	env.approver = Scope{OrganizationID: org, UserID: uuid.New(), Role: RoleApprover}

	ctx := context.Background()
	env.branch = env.mustOption(t, ctx, model.OptionBranch, CreateOptionRequest{Name: "Lagos HQ", Address: "12 Marina"})
	env.department = env.mustOption(t, ctx, model.OptionDepartment, CreateOptionRequest{Name: "Operations", Code: "ops"})
	env.category = env.mustOption(t, ctx, model.OptionCategory, CreateOptionRequest{Name: "Office Supplies"})
	env.supplier = env.mustOption(t, ctx, model.OptionSupplier, CreateOptionRequest{Name: "Acme", CompanyName: "Acme Ltd", Email: "sales@acme.test"})
	return env
}

func (e *testEnv) mustOption(t *testing.T, ctx context.Context, kind model.OptionKind, req CreateOptionRequest) model.Option {
	t.Helper()
	opt, err := e.options.Create(ctx, e.requestor, string(kind), req)
	require.NoError(t, err)
	return opt
}

func (e *testEnv) allocate(t *testing.T, amount string) BudgetResponse {
	t.Helper()
	b, err := e.budgets.Allocate(context.Background(), e.requestor, AllocateBudgetRequest{
		Name:            "Ops supplies",
		AmountAllocated: decimal.RequireFromString(amount),
		BranchID:        e.branch.ID,
		DepartmentID:    e.department.ID,
		CategoryID:      e.category.ID,
	})
	require.NoError(t, err)
	return b
}

func (e *testEnv) budget(t *testing.T, id uuid.UUID) *model.Budget {
	t.Helper()
	b, err := e.budgetRepo.FindByID(context.Background(), e.requestor.OrganizationID, id)
	require.NoError(t, err)
	return b
}

func (e *testEnv) fields(budgetID *uuid.UUID, neededBy string) RequisitionFields {
	dept, branch, sup := e.department.ID, e.branch.ID, e.supplier.ID
	return RequisitionFields{
		DepartmentID:       &dept,
		BranchID:           &branch,
		SupplierID:         &sup,
		BudgetID:           budgetID,
		RequestorName:      "Ada Obi",
		RequestorPhone:     "+2348000000000",
		RequestorEmail:     "ada@example.com",
		RequestDescription: "Printer paper for Q3",
		Justification:      "Stock is depleted",
		NeededByDate:       neededBy,
	}
}

type item struct {
	name  string
	price string
	qty   int64
}

// newRequisition initializes a requisition and attaches the given line items.
func (e *testEnv) newRequisition(t *testing.T, items ...item) RequisitionResponse {
	t.Helper()
	ctx := context.Background()
	req, err := e.requisitions.Initialize(ctx, e.requestor, InitializeRequisitionRequest{RequestorName: "Ada Obi"})
	require.NoError(t, err)
	for _, it := range items {
		_, err := e.items.Add(ctx, e.requestor, AddLineItemRequest{
			PRNumber:   req.PRNumber,
			ItemName:   it.name,
			UnitPrice:  decimal.RequireFromString(it.price),
			PRQuantity: it.qty,
		})
		require.NoError(t, err)
	}
	return req
}

func (e *testEnv) finalize(t *testing.T, id uuid.UUID, budgetID *uuid.UUID) RequisitionResponse {
	t.Helper()
	res, err := e.requisitions.Finalize(context.Background(), e.requestor, SubmitRequisitionRequest{
		ID:                id,
		RequisitionFields: e.fields(budgetID, "2026-06-01"),
	})
	require.NoError(t, err)
	return res
}

func (e *testEnv) decide(t *testing.T, id uuid.UUID, status model.RequisitionStatus) RequisitionResponse {
	t.Helper()
	res, err := e.requisitions.Decide(context.Background(), e.approver, id.String(), DecisionRequest{Status: string(status)})
	require.NoError(t, err)
	return res
}

// seed drives a fresh requisition into status through the public operations.
func (e *testEnv) seed(t *testing.T, status model.RequisitionStatus, items ...item) RequisitionResponse {
	t.Helper()
	if len(items) == 0 {
		items = []item{{name: "Paper", price: "25", qty: 4}}
	}
	req := e.newRequisition(t, items...)
	switch status {
	case model.RequisitionInitialized:
		return req
	case model.RequisitionSavedForLater:
		res, err := e.requisitions.SaveDraft(context.Background(), e.requestor, SubmitRequisitionRequest{
			ID:                req.ID,
			RequisitionFields: e.fields(nil, "2026-06-01"),
		})
		require.NoError(t, err)
		return res
	}
	res := e.finalize(t, req.ID, nil)
	if status == model.RequisitionPending {
		return res
	}
	return e.decide(t, req.ID, status)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

func defaultPage() pagination.Params {
	return pagination.New(pagination.DefaultPage, pagination.DefaultPageSize)
}
