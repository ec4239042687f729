package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LineItem is one purchased good or service attached to exactly one Requisition.
type LineItem struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	RequisitionID uuid.UUID       `gorm:"type:uuid;not null;index" json:"requisition_id"`
	ProductID     *uuid.UUID      `gorm:"type:uuid" json:"product_id"` // set when sourced from the catalog
	ItemName      string          `gorm:"type:varchar(255);not null" json:"item_name"`
	Description   string          `gorm:"type:text" json:"description"`
	UnitPrice     decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"unit_price"`
	PRQuantity    int64           `gorm:"column:pr_quantity;not null;default:0" json:"pr_quantity"`
	ImageURL      string          `gorm:"type:text" json:"image_url"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (i *LineItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// LineCost is unit_price x pr_quantity; never stored.
func (i LineItem) LineCost() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(i.PRQuantity))
}

// LineTotals is the per-requisition aggregate shown as the read-only Quantity and Estimated Cost.
type LineTotals struct {
	TotalQuantity      int64           `json:"total_quantity"`
	TotalEstimatedCost decimal.Decimal `json:"total_estimated_cost"`
}

func SumLineItems(items []LineItem) LineTotals {
	totals := LineTotals{TotalEstimatedCost: decimal.Zero}
	for _, item := range items {
		totals.TotalQuantity += item.PRQuantity
		totals.TotalEstimatedCost = totals.TotalEstimatedCost.Add(item.LineCost())
	}
	return totals
}
