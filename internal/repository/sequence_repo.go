package repository

import (
	"context"
	"fmt"

	"procurement/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SequenceRepository interface {
	// Next increments and returns the named counter; callers run it inside the creating transaction.
	Next(ctx context.Context, org uuid.UUID, name string) (int64, error)
}

type sequenceRepository struct {
	db *gorm.DB
}

func NewSequenceRepository(db *gorm.DB) SequenceRepository {
	return &sequenceRepository{db: db}
}

func (r *sequenceRepository) Next(ctx context.Context, org uuid.UUID, name string) (int64, error) {
	db := GetDB(ctx, r.db)

	// Serializes first use of a counter, when there is no row to lock yet.
	if db.Dialector.Name() == "postgres" {
		if err := db.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", org.String()+":"+name).Error; err != nil {
			return 0, fmt.Errorf("failed to lock sequence %s: %w", name, err)
		}
	}

	var seq model.Sequence
	err := forUpdate(db).Where("organization_id = ? AND name = ?", org, name).First(&seq).Error
	if IsNotFound(err) {
		seq = model.Sequence{OrganizationID: org, Name: name, Value: 1}
		if err := db.Create(&seq).Error; err != nil {
			return 0, fmt.Errorf("failed to start sequence %s: %w", name, err)
		}
		return 1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read sequence %s: %w", name, err)
	}

	if err := db.Model(&model.Sequence{}).
		Where("organization_id = ? AND name = ?", org, name).
		Update("value", gorm.Expr("value + 1")).Error; err != nil {
		return 0, fmt.Errorf("failed to advance sequence %s: %w", name, err)
	}
	return seq.Value + 1, nil
}
