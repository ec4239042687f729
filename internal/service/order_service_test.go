package service

import (
	"context"
	"sync"
	"testing"

	"procurement/internal/model"
	"procurement/pkg/apperror"
	"procurement/pkg/pagination"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertConsumesReservationWithOverrun(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	budget := env.allocate(t, "10000")
	req := env.newRequisition(t,
		item{name: "Chairs", price: "1500", qty: 2},
		item{name: "Desk", price: "1000", qty: 1},
	)

	env.finalize(t, req.ID, &budget.ID)
	b := env.budget(t, budget.ID)
	requireDecimal(t, "6000", b.Balance)
	requireDecimal(t, "4000", b.AmountReserved)

	env.decide(t, req.ID, model.RequisitionApproved)

	total := dec("4500")
	order, err := env.orders.Convert(ctx, env.requestor, ConvertRequest{RequestID: req.ID, TotalAmount: &total})
	require.NoError(t, err)
	assert.Equal(t, "PO-20260510-00001", order.PONumber)
	assert.Equal(t, req.PRNumber, order.PRNumber)
	assert.Equal(t, model.OrderStatusPending, order.Status)
	assert.Equal(t, env.supplier.ID, order.SupplierID)
	requireDecimal(t, "4500", order.TotalAmount)

	b = env.budget(t, budget.ID)
	requireDecimal(t, "0", b.AmountReserved)
	requireDecimal(t, "5500", b.Balance)
	requireDecimal(t, "4500", b.AmountUsed())
	assert.True(t, b.AmountAllocated.Equal(b.AmountReserved.Add(b.Balance).Add(b.AmountUsed())))

	got, err := env.requisitions.Get(ctx, env.requestor, req.ID.String())
	require.NoError(t, err)
	assert.Equal(t, model.RequisitionApproved, got.Status)
}

func TestConvertDefaultsToEstimateAndIsOneShot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	budget := env.allocate(t, "10000")
	req := env.newRequisition(t, item{name: "Paper", price: "250", qty: 4})
	env.finalize(t, req.ID, &budget.ID)
	env.decide(t, req.ID, model.RequisitionApproved)

	eligible, err := env.orders.Eligible(ctx, env.requestor)
	require.NoError(t, err)
	require.Len(t, eligible, 1)
	assert.Equal(t, req.ID, eligible[0].ID)

	order, err := env.orders.Convert(ctx, env.requestor, ConvertRequest{RequestID: req.ID})
	require.NoError(t, err)
	requireDecimal(t, "1000", order.TotalAmount)

	_, err = env.orders.Convert(ctx, env.requestor, ConvertRequest{RequestID: req.ID})
	require.ErrorIs(t, err, apperror.ErrAlreadyConverted)

	b := env.budget(t, budget.ID)
	requireDecimal(t, "9000", b.Balance)
	requireDecimal(t, "1000", b.AmountUsed())

	eligible, err = env.orders.Eligible(ctx, env.requestor)
	require.NoError(t, err)
	assert.Empty(t, eligible)
}

func TestConcurrentConvertCreatesOneOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	budget := env.allocate(t, "10000")
	req := env.newRequisition(t, item{name: "Paper", price: "100", qty: 10})
	env.finalize(t, req.ID, &budget.ID)
	env.decide(t, req.ID, model.RequisitionApproved)

	const callers = 4
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.orders.Convert(ctx, env.requestor, ConvertRequest{RequestID: req.ID})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, apperror.ErrAlreadyConverted)
	}
	assert.Equal(t, 1, succeeded)

	page, err := env.orders.List(ctx, env.requestor, "", defaultPage())
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	b := env.budget(t, budget.ID)
	requireDecimal(t, "9000", b.Balance)
	requireDecimal(t, "0", b.AmountReserved)
}

func TestConvertRequiresApproval(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	pending := env.seed(t, model.RequisitionPending)
	_, err := env.orders.Convert(ctx, env.requestor, ConvertRequest{RequestID: pending.ID})
	require.ErrorIs(t, err, apperror.ErrInvalidTransition)
	assert.Contains(t, err.Error(), "PENDING")

	rejected := env.seed(t, model.RequisitionRejected)
	_, err = env.orders.Convert(ctx, env.requestor, ConvertRequest{RequestID: rejected.ID})
	require.ErrorIs(t, err, apperror.ErrInvalidTransition)

	_, err = env.orders.Convert(ctx, env.requestor, ConvertRequest{RequestID: uuid.New()})
	require.ErrorIs(t, err, apperror.ErrNotFound)

	approved := env.seed(t, model.RequisitionApproved)
	unknown := uuid.New()
	_, err = env.orders.Convert(ctx, env.requestor, ConvertRequest{RequestID: approved.ID, SupplierID: &unknown})
	require.ErrorIs(t, err, apperror.ErrValidationFailed)

	negative := dec("-1")
	_, err = env.orders.Convert(ctx, env.requestor, ConvertRequest{RequestID: approved.ID, TotalAmount: &negative})
	require.ErrorIs(t, err, apperror.ErrValidationFailed)
}

func TestConvertOverrunBeyondBalanceRollsBack(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	budget := env.allocate(t, "1000")
	req := env.newRequisition(t, item{name: "Paper", price: "900", qty: 1})
	env.finalize(t, req.ID, &budget.ID)
	env.decide(t, req.ID, model.RequisitionApproved)

	total := dec("1200")
	_, err := env.orders.Convert(ctx, env.requestor, ConvertRequest{RequestID: req.ID, TotalAmount: &total})
	require.ErrorIs(t, err, apperror.ErrInsufficientBudget)

	b := env.budget(t, budget.ID)
	requireDecimal(t, "900", b.AmountReserved)
	requireDecimal(t, "100", b.Balance)

	eligible, err := env.orders.Eligible(ctx, env.requestor)
	require.NoError(t, err)
	assert.Len(t, eligible, 1)
}

func TestOrderDecisionAndListing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first := env.seed(t, model.RequisitionApproved)
	second := env.seed(t, model.RequisitionApproved)
	o1, err := env.orders.Convert(ctx, env.requestor, ConvertRequest{RequestID: first.ID})
	require.NoError(t, err)
	o2, err := env.orders.Convert(ctx, env.requestor, ConvertRequest{RequestID: second.ID, AttachmentURL: " https://files.test/quote.pdf "})
	require.NoError(t, err)
	assert.Equal(t, "PO-20260510-00002", o2.PONumber)
	assert.Equal(t, "https://files.test/quote.pdf", o2.AttachmentURL)

	_, err = env.orders.Decide(ctx, env.requestor, o1.ID.String(), OrderDecisionRequest{Status: "APPROVED"})
	require.ErrorIs(t, err, apperror.ErrValidationFailed)

	approved, err := env.orders.Decide(ctx, env.approver, o1.ID.String(), OrderDecisionRequest{Status: "APPROVED"})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusApproved, approved.Status)
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, env.approver.UserID, *approved.ApprovedBy)

	_, err = env.orders.Decide(ctx, env.approver, o1.ID.String(), OrderDecisionRequest{Status: "REJECTED"})
	require.ErrorIs(t, err, apperror.ErrInvalidTransition)

	pendingOnly, err := env.orders.List(ctx, env.requestor, "pending", defaultPage())
	require.NoError(t, err)
	require.Len(t, pendingOnly.Items, 1)
	assert.Equal(t, o2.ID, pendingOnly.Items[0].ID)
	assert.Equal(t, second.PRNumber, pendingOnly.Items[0].PRNumber)

	all, err := env.orders.List(ctx, env.requestor, "", defaultPage())
	require.NoError(t, err)
	assert.Equal(t, int64(2), all.Total)
	assert.Equal(t, 1, all.TotalPages)

	_, err = env.orders.List(ctx, env.requestor, "SHIPPED", defaultPage())
	assert.ErrorIs(t, err, apperror.ErrValidationFailed)

	capped, err := env.orders.List(ctx, env.requestor, "", pagination.New(1, 500))
	require.NoError(t, err)
	assert.Equal(t, pagination.MaxPageSize, capped.PageSize)
	assert.Len(t, capped.Items, 2)
}

func TestOrderListingCacheIsInvalidatedByConversion(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	first := env.seed(t, model.RequisitionApproved)
	second := env.seed(t, model.RequisitionApproved)

	_, err := env.orders.Convert(ctx, env.requestor, ConvertRequest{RequestID: first.ID})
	require.NoError(t, err)
	page, err := env.orders.List(ctx, env.requestor, "", defaultPage())
	require.NoError(t, err)
	require.Equal(t, int64(1), page.Total)

	_, err = env.orders.Convert(ctx, env.requestor, ConvertRequest{RequestID: second.ID})
	require.NoError(t, err)
	page, err = env.orders.List(ctx, env.requestor, "", defaultPage())
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
}
