package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DashboardResponse aggregates requisition, order and budget figures for one organization
type DashboardResponse struct {
	RequisitionCounts map[RequisitionStatus]int64 `json:"requisition_counts"`
	OrderCounts       map[string]int64            `json:"order_counts"`
	TotalOrderValue   decimal.Decimal             `json:"total_order_value"`
	Budgets           []BudgetUtilization         `json:"budgets"`
	GeneratedAt       time.Time                   `json:"generated_at"`
}

// BudgetUtilization is the reporting view of a single budget
type BudgetUtilization struct {
	BudgetID         string          `json:"budget_id"`
	Name             string          `json:"name"`
	Currency         string          `json:"currency"`
	AmountAllocated  decimal.Decimal `json:"amount_allocated"`
	AmountReserved   decimal.Decimal `json:"amount_reserved"`
	Balance          decimal.Decimal `json:"balance"`
	AmountUsed       decimal.Decimal `json:"amount_used"`
	UtilizationRate  decimal.Decimal `json:"utilization_rate"`
	ReservationRate  decimal.Decimal `json:"reservation_rate"`
	AvailabilityRate decimal.Decimal `json:"availability_rate"`
}
