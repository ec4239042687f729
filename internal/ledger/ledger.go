// Package ledger holds the budget arithmetic: allocation, reservation, release
// and consumption over the allocated/reserved/balance triple.
//
// Every operation validates against a copy and only writes the budget when the
// result keeps allocated = reserved + balance + used with no negative component,
// so a rejected operation leaves the budget exactly as it was.
package ledger

import (
	"github.com/shopspring/decimal"

	"procurement/internal/model"
	"procurement/pkg/apperror"
)

var hundred = decimal.NewFromInt(100)

// Allocate initializes a fresh budget with the whole amount available.
func Allocate(b *model.Budget, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return apperror.Validation("allocation amount must not be negative, got %s", amount)
	}
	b.AmountAllocated = amount
	b.AmountReserved = decimal.Zero
	b.Balance = amount
	return nil
}

// Reserve earmarks amount from the balance.
func Reserve(b *model.Budget, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return apperror.Validation("reservation amount must not be negative, got %s", amount)
	}
	if amount.GreaterThan(b.Balance) {
		return apperror.New(apperror.KindInsufficientBudget,
			"budget %s has balance %s, cannot reserve %s", b.Name, b.Balance, amount)
	}
	next := *b
	next.Balance = b.Balance.Sub(amount)
	next.AmountReserved = b.AmountReserved.Add(amount)
	return commit(b, next)
}

// Release returns a reservation to the balance.
func Release(b *model.Budget, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return apperror.Validation("release amount must not be negative, got %s", amount)
	}
	if amount.GreaterThan(b.AmountReserved) {
		return apperror.Validation("budget %s has %s reserved, cannot release %s", b.Name, b.AmountReserved, amount)
	}
	next := *b
	next.AmountReserved = b.AmountReserved.Sub(amount)
	next.Balance = b.Balance.Add(amount)
	return commit(b, next)
}

// Consume releases reservedAmount and lets used grow by actualAmount.
// Excess over the reservation is drawn from the balance; a shortfall goes back to it.
func Consume(b *model.Budget, reservedAmount, actualAmount decimal.Decimal) error {
	if reservedAmount.IsNegative() || actualAmount.IsNegative() {
		return apperror.Validation("consumption amounts must not be negative")
	}
	if reservedAmount.GreaterThan(b.AmountReserved) {
		return apperror.Validation("budget %s has %s reserved, cannot consume a %s reservation",
			b.Name, b.AmountReserved, reservedAmount)
	}

	next := *b
	next.AmountReserved = b.AmountReserved.Sub(reservedAmount)
	next.Balance = b.Balance.Add(reservedAmount).Sub(actualAmount)
	if next.Balance.IsNegative() {
		excess := actualAmount.Sub(reservedAmount)
		return apperror.New(apperror.KindInsufficientBudget,
			"budget %s has balance %s, cannot absorb %s over the reservation", b.Name, b.Balance, excess)
	}
	return commit(b, next)
}

// Check verifies the invariant on b.
func Check(b model.Budget) error {
	used := b.AmountUsed()
	switch {
	case b.AmountReserved.IsNegative():
		return apperror.Validation("budget %s: reserved amount is negative", b.Name)
	case b.Balance.IsNegative():
		return apperror.Validation("budget %s: balance is negative", b.Name)
	case used.IsNegative():
		return apperror.Validation("budget %s: used amount is negative", b.Name)
	case used.GreaterThan(b.AmountAllocated):
		return apperror.Validation("budget %s: used amount exceeds allocation", b.Name)
	}
	return nil
}

func commit(b *model.Budget, next model.Budget) error {
	if err := Check(next); err != nil {
		return err
	}
	b.AmountReserved = next.AmountReserved
	b.Balance = next.Balance
	return nil
}

// Metrics are reporting-only rates, expressed as percentages.
type Metrics struct {
	AmountUsed       decimal.Decimal `json:"amount_used"`
	UtilizationRate  decimal.Decimal `json:"utilization_rate"`
	ReservationRate  decimal.Decimal `json:"reservation_rate"`
	AvailabilityRate decimal.Decimal `json:"availability_rate"`
}

// ComputeMetrics returns unclamped rates; a zero allocation yields zero rates.
func ComputeMetrics(b model.Budget) Metrics {
	used := b.AmountUsed()
	return Metrics{
		AmountUsed:       used,
		UtilizationRate:  rate(used, b.AmountAllocated),
		ReservationRate:  rate(b.AmountReserved, b.AmountAllocated),
		AvailabilityRate: rate(b.Balance, b.AmountAllocated),
	}
}

// Display clamps every rate to [0, 100] and rounds to two places.
func (m Metrics) Display() Metrics {
	return Metrics{
		AmountUsed:       m.AmountUsed,
		UtilizationRate:  clamp(m.UtilizationRate),
		ReservationRate:  clamp(m.ReservationRate),
		AvailabilityRate: clamp(m.AvailabilityRate),
	}
}

func rate(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Mul(hundred).DivRound(whole, 4)
}

func clamp(v decimal.Decimal) decimal.Decimal {
	if v.IsNegative() {
		return decimal.Zero
	}
	if v.GreaterThan(hundred) {
		return hundred
	}
	return v.Round(2)
}
