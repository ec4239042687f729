package ledger

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procurement/internal/model"
	"procurement/pkg/apperror"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newBudget(t *testing.T, amount string) *model.Budget {
	t.Helper()
	b := &model.Budget{Name: "Ops", Currency: "NGN"}
	require.NoError(t, Allocate(b, dec(amount)))
	return b
}

func assertInvariant(t *testing.T, b *model.Budget) {
	t.Helper()
	sum := b.AmountReserved.Add(b.Balance).Add(b.AmountUsed())
	require.True(t, b.AmountAllocated.Equal(sum), "allocated %s != reserved %s + balance %s + used %s",
		b.AmountAllocated, b.AmountReserved, b.Balance, b.AmountUsed())
	require.NoError(t, Check(*b))
}

func TestAllocate(t *testing.T) {
	b := newBudget(t, "10000")
	assert.True(t, b.AmountAllocated.Equal(dec("10000")))
	assert.True(t, b.AmountReserved.IsZero())
	assert.True(t, b.Balance.Equal(dec("10000")))
	assert.True(t, b.AmountUsed().IsZero())

	err := Allocate(&model.Budget{}, dec("-1"))
	assert.ErrorIs(t, err, apperror.ErrValidationFailed)
}

func TestReserveThenConsumeWithOverrun(t *testing.T) {
	b := newBudget(t, "10000")

	require.NoError(t, Reserve(b, dec("4000")))
	assert.True(t, b.Balance.Equal(dec("6000")))
	assert.True(t, b.AmountReserved.Equal(dec("4000")))

	require.NoError(t, Consume(b, dec("4000"), dec("4500")))
	assert.True(t, b.AmountReserved.IsZero())
	assert.True(t, b.Balance.Equal(dec("5500")))
	assert.True(t, b.AmountUsed().Equal(dec("4500")))
	assertInvariant(t, b)
}

func TestConsumeUnderrunReturnsDifference(t *testing.T) {
	b := newBudget(t, "10000")
	require.NoError(t, Reserve(b, dec("4000")))
	require.NoError(t, Consume(b, dec("4000"), dec("3000")))

	assert.True(t, b.Balance.Equal(dec("7000")))
	assert.True(t, b.AmountUsed().Equal(dec("3000")))
	assertInvariant(t, b)
}

func TestInsufficientReserveLeavesBudgetUnchanged(t *testing.T) {
	b := newBudget(t, "10000")
	before := *b

	err := Reserve(b, dec("12000"))
	require.ErrorIs(t, err, apperror.ErrInsufficientBudget)
	assert.True(t, before.AmountAllocated.Equal(b.AmountAllocated))
	assert.True(t, before.AmountReserved.Equal(b.AmountReserved))
	assert.True(t, before.Balance.Equal(b.Balance))
}

func TestConsumeOverrunBeyondBalanceFails(t *testing.T) {
	b := newBudget(t, "1000")
	require.NoError(t, Reserve(b, dec("900")))
	before := *b

	err := Consume(b, dec("900"), dec("1200"))
	require.ErrorIs(t, err, apperror.ErrInsufficientBudget)
	assert.True(t, before.Balance.Equal(b.Balance))
	assert.True(t, before.AmountReserved.Equal(b.AmountReserved))
}

func TestReleaseBeyondReservationFails(t *testing.T) {
	b := newBudget(t, "1000")
	require.NoError(t, Reserve(b, dec("100")))

	assert.ErrorIs(t, Release(b, dec("150")), apperror.ErrValidationFailed)
	require.NoError(t, Release(b, dec("100")))
	assert.True(t, b.Balance.Equal(dec("1000")))
	assertInvariant(t, b)
}

// Randomized operation sequences must never break the allocation invariant.
func TestRandomOperationSequencesKeepInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for run := 0; run < 200; run++ {
		b := newBudget(t, "10000")
		var reservations []decimal.Decimal

		for step := 0; step < 50; step++ {
			amount := decimal.NewFromInt(int64(rng.Intn(3000)))
			before := *b

			var err error
			switch op := rng.Intn(3); {
			case op == 0:
				err = Reserve(b, amount)
				if err == nil {
					reservations = append(reservations, amount)
				}
			case op == 1 && len(reservations) > 0:
				idx := rng.Intn(len(reservations))
				err = Release(b, reservations[idx])
				if err == nil {
					reservations = append(reservations[:idx], reservations[idx+1:]...)
				}
			case op == 2 && len(reservations) > 0:
				idx := rng.Intn(len(reservations))
				actual := reservations[idx].Add(decimal.NewFromInt(int64(rng.Intn(1000) - 500)))
				if actual.IsNegative() {
					actual = decimal.Zero
				}
				err = Consume(b, reservations[idx], actual)
				if err == nil {
					reservations = append(reservations[:idx], reservations[idx+1:]...)
				}
			}

			if err != nil {
				require.True(t, before.Balance.Equal(b.Balance))
				require.True(t, before.AmountReserved.Equal(b.AmountReserved))
			}
			assertInvariant(t, b)
		}
	}
}

func TestMetrics(t *testing.T) {
	b := newBudget(t, "10000")
	require.NoError(t, Reserve(b, dec("4000")))
	require.NoError(t, Consume(b, dec("4000"), dec("4500")))
	require.NoError(t, Reserve(b, dec("1000")))

	m := ComputeMetrics(*b).Display()
	assert.Equal(t, "45", m.UtilizationRate.String())
	assert.Equal(t, "10", m.ReservationRate.String())
	assert.Equal(t, "45", m.AvailabilityRate.String())
	assert.True(t, m.AmountUsed.Equal(dec("4500")))
}

func TestMetricsZeroAllocationAndClamp(t *testing.T) {
	m := ComputeMetrics(model.Budget{})
	assert.True(t, m.UtilizationRate.IsZero())

	raw := Metrics{UtilizationRate: dec("130.5"), ReservationRate: dec("-3"), AvailabilityRate: dec("33.3333")}
	d := raw.Display()
	assert.Equal(t, "100", d.UtilizationRate.String())
	assert.Equal(t, "0", d.ReservationRate.String())
	assert.Equal(t, "33.33", d.AvailabilityRate.String())
}
