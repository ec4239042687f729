package service

import (
	"context"
	"sort"

	"procurement/internal/cache"
	"procurement/internal/ledger"
	"procurement/internal/model"
	"procurement/internal/repository"

	"github.com/shopspring/decimal"
)

const dashboardKey = "summary"

type StatisticsService interface {
	GetDashboard(ctx context.Context, scope Scope) (model.DashboardResponse, error)
}

type statisticsService struct {
	statsRepo  repository.StatisticsRepository
	orderRepo  repository.OrderRepository
	budgetRepo repository.BudgetRepository
	infra      Infra
}

func NewStatisticsService(
	statsRepo repository.StatisticsRepository,
	orderRepo repository.OrderRepository,
	budgetRepo repository.BudgetRepository,
	infra Infra,
) StatisticsService {
	return &statisticsService{
		statsRepo:  statsRepo,
		orderRepo:  orderRepo,
		budgetRepo: budgetRepo,
		infra:      infra.withDefaults(),
	}
}

// GetDashboard aggregates requisition counts, order totals and budget utilization, cached per generation
func (s *statisticsService) GetDashboard(ctx context.Context, scope Scope) (model.DashboardResponse, error) {
	if err := scope.validate(); err != nil {
		return model.DashboardResponse{}, err
	}
	org := scope.OrganizationID

	return cachedRead(ctx, s.infra, org, cache.NamespaceDashboard, dashboardKey, func() (model.DashboardResponse, error) {
		var resp model.DashboardResponse

		counts, err := s.statsRepo.RequisitionCounts(ctx, org)
		if err != nil {
			return resp, storageErr(err, "requisitions", org)
		}
		resp.RequisitionCounts = counts

		summary, err := s.orderRepo.SummaryByStatus(ctx, org)
		if err != nil {
			return resp, storageErr(err, "purchase orders", org)
		}
		resp.OrderCounts = map[string]int64{
			model.OrderStatusPending:  0,
			model.OrderStatusApproved: 0,
			model.OrderStatusRejected: 0,
		}
		resp.TotalOrderValue = decimal.Zero
		for _, row := range summary {
			resp.OrderCounts[row.Status] = row.Count
			resp.TotalOrderValue = resp.TotalOrderValue.Add(row.Total)
		}

		budgets, err := s.budgetRepo.ListAll(ctx, org)
		if err != nil {
			return resp, storageErr(err, "budgets", org)
		}
		resp.Budgets = make([]model.BudgetUtilization, 0, len(budgets))
		for _, b := range budgets {
			m := ledger.ComputeMetrics(b).Display()
			resp.Budgets = append(resp.Budgets, model.BudgetUtilization{
				BudgetID:         b.ID.String(),
				Name:             b.Name,
				Currency:         b.Currency,
				AmountAllocated:  b.AmountAllocated,
				AmountReserved:   b.AmountReserved,
				Balance:          b.Balance,
				AmountUsed:       m.AmountUsed,
				UtilizationRate:  m.UtilizationRate,
				ReservationRate:  m.ReservationRate,
				AvailabilityRate: m.AvailabilityRate,
			})
		}
		sort.SliceStable(resp.Budgets, func(i, j int) bool {
			return resp.Budgets[i].UtilizationRate.GreaterThan(resp.Budgets[j].UtilizationRate)
		})

		resp.GeneratedAt = s.infra.Now().UTC()
		return resp, nil
	})
}
