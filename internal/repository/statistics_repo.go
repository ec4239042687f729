package repository

import (
	"context"
	"fmt"

	"procurement/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StatisticsRepository interface {
	RequisitionCounts(ctx context.Context, org uuid.UUID) (map[model.RequisitionStatus]int64, error)
}

type statisticsRepository struct {
	db *gorm.DB
}

func NewStatisticsRepository(db *gorm.DB) StatisticsRepository {
	return &statisticsRepository{db: db}
}

// RequisitionCounts groups the organization's requisitions by status in one query.
// Every status is present in the result, zero when absent.
func (r *statisticsRepository) RequisitionCounts(ctx context.Context, org uuid.UUID) (map[model.RequisitionStatus]int64, error) {
	var rows []struct {
		Status model.RequisitionStatus
		Count  int64
	}
	if err := GetDB(ctx, r.db).Model(&model.Requisition{}).
		Select("status, COUNT(*) AS count").
		Where("organization_id = ?", org).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count requisitions: %w", err)
	}

	counts := make(map[model.RequisitionStatus]int64, len(model.RequisitionStatuses))
	for _, s := range model.RequisitionStatuses {
		counts[s] = 0
	}
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
