package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Budget is a monetary envelope for one branch/department/category combination.
// amount_allocated = amount_reserved + balance + amount_used holds after every write;
// amount_used is derived and never stored.
type Budget struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID  uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_budgets_scope" json:"organization_id"`
	BranchID        uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_budgets_scope" json:"branch_id"`
	DepartmentID    uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_budgets_scope" json:"department_id"`
	CategoryID      uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_budgets_scope" json:"category_id"`
	Name            string          `gorm:"type:varchar(255);not null" json:"name"`
	Currency        string          `gorm:"type:varchar(10);not null" json:"currency"`
	AmountAllocated decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"amount_allocated"`
	AmountReserved  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"amount_reserved"`
	Balance         decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"balance"`
	Version         int64           `gorm:"not null;default:0" json:"version"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (b *Budget) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// AmountUsed is allocated - reserved - balance.
func (b Budget) AmountUsed() decimal.Decimal {
	return b.AmountAllocated.Sub(b.AmountReserved).Sub(b.Balance)
}
