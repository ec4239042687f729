package repository

import (
	"context"
	"fmt"

	"procurement/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OptionRepository interface {
	CreateBranch(ctx context.Context, b *model.Branch) error
	CreateDepartment(ctx context.Context, d *model.Department) error
	CreateCategory(ctx context.Context, c *model.Category) error
	CreateSupplier(ctx context.Context, s *model.Supplier) error
	List(ctx context.Context, org uuid.UUID, kind model.OptionKind, search string) ([]model.Option, error)
	Exists(ctx context.Context, org uuid.UUID, kind model.OptionKind, id uuid.UUID) (bool, error)
}

type optionRepository struct {
	db *gorm.DB
}

func NewOptionRepository(db *gorm.DB) OptionRepository {
	return &optionRepository{db: db}
}

func (r *optionRepository) CreateBranch(ctx context.Context, b *model.Branch) error {
	return GetDB(ctx, r.db).Create(b).Error
}

func (r *optionRepository) CreateDepartment(ctx context.Context, d *model.Department) error {
	return GetDB(ctx, r.db).Create(d).Error
}

func (r *optionRepository) CreateCategory(ctx context.Context, c *model.Category) error {
	return GetDB(ctx, r.db).Create(c).Error
}

func (r *optionRepository) CreateSupplier(ctx context.Context, s *model.Supplier) error {
	return GetDB(ctx, r.db).Create(s).Error
}

func tableFor(kind model.OptionKind) (interface{}, error) {
	switch kind {
	case model.OptionBranch:
		return &model.Branch{}, nil
	case model.OptionDepartment:
		return &model.Department{}, nil
	case model.OptionCategory:
		return &model.Category{}, nil
	case model.OptionSupplier:
		return &model.Supplier{}, nil
	}
	return nil, fmt.Errorf("unknown option kind %q", kind)
}

func (r *optionRepository) List(ctx context.Context, org uuid.UUID, kind model.OptionKind, search string) ([]model.Option, error) {
	db := GetDB(ctx, r.db).Where("organization_id = ?", org).Order("name ASC")
	if search != "" {
		db = db.Where("LOWER(name) LIKE ?", "%"+search+"%")
	}

	var options []model.Option
	switch kind {
	case model.OptionBranch:
		var rows []model.Branch
		if err := db.Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, row := range rows {
			options = append(options, row.Option())
		}
	case model.OptionDepartment:
		var rows []model.Department
		if err := db.Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, row := range rows {
			options = append(options, row.Option())
		}
	case model.OptionCategory:
		var rows []model.Category
		if err := db.Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, row := range rows {
			options = append(options, row.Option())
		}
	case model.OptionSupplier:
		var rows []model.Supplier
		if err := db.Where("is_active = ?", true).Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, row := range rows {
			options = append(options, row.Option())
		}
	default:
		return nil, fmt.Errorf("unknown option kind %q", kind)
	}
	return options, nil
}

func (r *optionRepository) Exists(ctx context.Context, org uuid.UUID, kind model.OptionKind, id uuid.UUID) (bool, error) {
	table, err := tableFor(kind)
	if err != nil {
		return false, err
	}
	var count int64
	if err := GetDB(ctx, r.db).Model(table).
		Where("organization_id = ? AND id = ?", org, id).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
